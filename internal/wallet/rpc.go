package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/and161185/wave-portal/internal/errs"
)

// JSON-RPC error codes the provider maps (EIP-1193, JSON-RPC 2.0).
const (
	codeUserRejected   = 4001
	codeUnauthorized   = 4100
	codeMethodNotFound = -32601
)

// walletRPC is the subset of *rpc.Client the provider uses.
type walletRPC interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// RPCProvider talks to an external wallet over JSON-RPC (eth_accounts, eth_requestAccounts,
// eth_sendTransaction) and reads the chain through a separate node client.
type RPCProvider struct {
	wallet walletRPC
	chain  Chain
	closer func()
}

// NewRPCProvider wraps an already dialed wallet client and chain backend.
func NewRPCProvider(w walletRPC, chain Chain) *RPCProvider {
	return &RPCProvider{wallet: w, chain: chain, closer: func() {}}
}

// DialRPC dials the wallet endpoint and the chain node. chainURL may equal walletURL.
func DialRPC(ctx context.Context, walletURL, chainURL string) (*RPCProvider, error) {
	wc, err := rpc.DialContext(ctx, walletURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial wallet: %v", errs.ErrNoProvider, err)
	}
	if chainURL == "" || chainURL == walletURL {
		return &RPCProvider{wallet: wc, chain: ethclient.NewClient(wc), closer: wc.Close}, nil
	}
	cc, err := ethclient.DialContext(ctx, chainURL)
	if err != nil {
		wc.Close()
		return nil, fmt.Errorf("%w: dial chain: %v", errs.ErrChainCallFailed, err)
	}
	return &RPCProvider{wallet: wc, chain: cc, closer: func() { wc.Close(); cc.Close() }}, nil
}

// Close releases the underlying connections.
func (p *RPCProvider) Close() { p.closer() }

// Accounts calls eth_accounts.
func (p *RPCProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	var out []common.Address
	if err := p.wallet.CallContext(ctx, &out, "eth_accounts"); err != nil {
		return nil, classifyRPC(err)
	}
	return out, nil
}

// RequestAccounts calls eth_requestAccounts; nodes without it fall back to eth_accounts.
func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var out []common.Address
	err := p.wallet.CallContext(ctx, &out, "eth_requestAccounts")
	if rpcCode(err) == codeMethodNotFound {
		return p.Accounts(ctx)
	}
	if err != nil {
		return nil, classifyRPC(err)
	}
	return out, nil
}

// SendTransaction calls eth_sendTransaction; the wallet signs and broadcasts.
func (p *RPCProvider) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	args := map[string]any{
		"from": req.From,
		"to":   req.To,
		"data": hexutil.Bytes(req.Data),
		"gas":  hexutil.Uint64(req.Gas),
	}
	var h common.Hash
	if err := p.wallet.CallContext(ctx, &h, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, classifyRPC(err)
	}
	return h, nil
}

// Chain returns the node backend.
func (p *RPCProvider) Chain() Chain { return p.chain }

func rpcCode(err error) int {
	var re rpc.Error
	if errors.As(err, &re) {
		return re.ErrorCode()
	}
	return 0
}

func classifyRPC(err error) error {
	switch rpcCode(err) {
	case codeUserRejected, codeUnauthorized:
		return fmt.Errorf("%w: %v", errs.ErrUserRejected, err)
	default:
		return fmt.Errorf("%w: %v", errs.ErrChainCallFailed, err)
	}
}
