package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	cc "github.com/and161185/wave-portal/internal/crypto/clientcrypto"
	"github.com/and161185/wave-portal/internal/errs"
)

var grantInfo = []byte("wave-portal/grant/v1")

// Approver stands in for the wallet's own confirmation UI.
type Approver interface {
	ApproveConnection(ctx context.Context, account common.Address, site string) (bool, error)
	ApproveTransaction(ctx context.Context, req TxRequest) (bool, error)
}

// Backend is what the local wallet needs to sign and broadcast; *ethclient.Client implements it.
type Backend interface {
	Chain
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// KeyWallet is a software wallet holding one unlocked key. Site authorization is remembered
// through signed grants so discovery works across restarts without prompting.
type KeyWallet struct {
	key     *ecdsa.PrivateKey
	addr    common.Address
	site    string
	backend Backend
	grants  *GrantStore
	approve Approver
	log     *zap.Logger
}

// KeyWalletConfig carries KeyWallet dependencies.
type KeyWalletConfig struct {
	Key      *ecdsa.PrivateKey
	Site     string // authorization audience, e.g. the contract address
	GrantDir string
	Backend  Backend
	Approver Approver
	Log      *zap.Logger
}

// NewKeyWallet builds a wallet around an unlocked key.
func NewKeyWallet(cfg KeyWalletConfig) (*KeyWallet, error) {
	if cfg.Key == nil || cfg.Backend == nil || cfg.Approver == nil {
		return nil, errors.New("key wallet: key, backend and approver are required")
	}
	gk, err := cc.DeriveSubkey(ethcrypto.FromECDSA(cfg.Key), grantInfo)
	if err != nil {
		return nil, err
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &KeyWallet{
		key:     cfg.Key,
		addr:    ethcrypto.PubkeyToAddress(cfg.Key.PublicKey),
		site:    cfg.Site,
		backend: cfg.Backend,
		grants:  NewGrantStore(cfg.GrantDir, gk, DefaultGrantTTL),
		approve: cfg.Approver,
		log:     log,
	}, nil
}

// Address returns the wallet's account.
func (w *KeyWallet) Address() common.Address { return w.addr }

func (w *KeyWallet) authorized() bool {
	ok, err := w.grants.Valid(w.addr, w.site)
	if err != nil {
		w.log.Warn("read grant", zap.Error(err))
		return false
	}
	return ok
}

// Accounts returns the account only while this site holds a valid grant.
func (w *KeyWallet) Accounts(_ context.Context) ([]common.Address, error) {
	if !w.authorized() {
		return []common.Address{}, nil
	}
	return []common.Address{w.addr}, nil
}

// RequestAccounts asks the approver, then remembers the approval. Idempotent once granted.
func (w *KeyWallet) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if w.authorized() {
		return []common.Address{w.addr}, nil
	}
	ok, err := w.approve.ApproveConnection(ctx, w.addr, w.site)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUserRejected, err)
	}
	if !ok {
		return nil, errs.ErrUserRejected
	}
	exp, err := w.grants.Issue(w.addr, w.site)
	if err != nil {
		// approval still holds for this run
		w.log.Warn("persist grant", zap.Error(err))
	} else {
		w.log.Debug("grant issued", zap.Time("expires", exp))
	}
	return []common.Address{w.addr}, nil
}

// Disconnect revokes the site grant.
func (w *KeyWallet) Disconnect() error { return w.grants.Revoke(w.addr) }

// SendTransaction asks the approver, signs a legacy transaction and broadcasts it.
func (w *KeyWallet) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	if req.From != w.addr {
		return common.Hash{}, fmt.Errorf("%w: unknown account %s", errs.ErrNoAuthorization, req.From.Hex())
	}
	ok, err := w.approve.ApproveTransaction(ctx, req)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", errs.ErrUserRejected, err)
	}
	if !ok {
		return common.Hash{}, errs.ErrUserRejected
	}

	chainID, err := w.backend.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: chain id: %v", errs.ErrChainCallFailed, err)
	}
	nonce, err := w.backend.PendingNonceAt(ctx, w.addr)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: nonce: %v", errs.ErrChainCallFailed, err)
	}
	gasPrice, err := w.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: gas price: %v", errs.ErrChainCallFailed, err)
	}

	to := req.To
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      req.Gas,
		GasPrice: gasPrice,
		Data:     req.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: sign: %v", errs.ErrTransactionRejected, err)
	}
	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("%w: broadcast: %v", errs.ErrChainCallFailed, err)
	}
	w.log.Info("transaction sent", zap.String("tx", signed.Hash().Hex()), zap.Uint64("nonce", nonce))
	return signed.Hash(), nil
}

// Chain returns the backend for reads and subscriptions.
func (w *KeyWallet) Chain() Chain { return w.backend }
