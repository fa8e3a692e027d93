// Package wallet detects a wallet provider and manages the account session bound to it.
package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Chain is the read side a provider exposes: contract calls, logs, subscriptions and receipts.
// *ethclient.Client implements it.
type Chain interface {
	bind.ContractCaller
	bind.ContractFilterer
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// TxRequest is an unsigned contract call handed to the wallet for signing and broadcast.
type TxRequest struct {
	From common.Address
	To   common.Address
	Data []byte
	Gas  uint64
}

// Provider is the wallet capability: account discovery, signing and chain access.
type Provider interface {
	// Accounts lists accounts already authorized for this client without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)
	// RequestAccounts prompts the user to select/approve an account.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// SendTransaction signs and broadcasts req, returning the transaction hash.
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
	// Chain returns the backend used for reads and event subscriptions.
	Chain() Chain
}

// Environment is the host the client runs in. Injected is nil when no wallet is present.
// Store an untyped nil, never a typed nil pointer.
type Environment struct {
	Injected Provider
}

// DetectProvider returns the injected wallet, if any. Absence is a normal state.
func (e Environment) DetectProvider() (Provider, bool) {
	return e.Injected, e.Injected != nil
}
