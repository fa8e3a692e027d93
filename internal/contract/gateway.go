package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"github.com/and161185/wave-portal/internal/convert"
	"github.com/and161185/wave-portal/internal/errs"
	"github.com/and161185/wave-portal/internal/model"
	"github.com/and161185/wave-portal/internal/wallet"
)

// Gateway is an immutable binding of the contract to one signer. Rebuild it when the
// account changes. A zero account is allowed for reads and subscriptions.
type Gateway struct {
	address  common.Address
	account  model.Account
	provider wallet.Provider
	bound    *bind.BoundContract
	log      *zap.Logger
}

// New binds the contract at address to provider's chain and account's signer.
func New(p wallet.Provider, account model.Account, address common.Address, log *zap.Logger) (*Gateway, error) {
	if p == nil {
		return nil, errs.ErrNoProvider
	}
	chain := p.Chain()
	if chain == nil {
		return nil, fmt.Errorf("%w: provider has no chain backend", errs.ErrNoProvider)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		address:  address,
		account:  account,
		provider: p,
		bound:    bind.NewBoundContract(address, parsed, chain, nil, chain),
		log:      log.With(zap.String("contract", address.Hex())),
	}, nil
}

// Address returns the bound contract address.
func (g *Gateway) Address() common.Address { return g.address }

// Account returns the bound signer.
func (g *Gateway) Account() model.Account { return g.account }

func (g *Gateway) callOpts(ctx context.Context) *bind.CallOpts {
	opts := &bind.CallOpts{Context: ctx}
	if !g.account.IsZero() {
		opts.From = g.account.Address()
	}
	return opts
}

// TotalCount returns getTotalWaves. Diagnostics only.
func (g *Gateway) TotalCount(ctx context.Context) (uint64, error) {
	var out []any
	if err := g.bound.Call(g.callOpts(ctx), &out, methodTotal); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", errs.ErrChainCallFailed, methodTotal, err)
	}
	n := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return n.Uint64(), nil
}

// History returns every wave in the contract's chronological order. Empty is valid.
func (g *Gateway) History(ctx context.Context) ([]model.WaveEntry, error) {
	var out []any
	if err := g.bound.Call(g.callOpts(ctx), &out, methodAll); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrChainCallFailed, methodAll, err)
	}
	raw := *abi.ConvertType(out[0], new([]model.RawWave)).(*[]model.RawWave)
	return convert.FromRawBatch(raw), nil
}

// Submit sends wave(message) under the fixed gas ceiling. An empty message is replaced by
// Placeholder. The returned Tx must be waited on before treating the wave as durable.
func (g *Gateway) Submit(ctx context.Context, message string) (Tx, error) {
	if g.account.IsZero() {
		return nil, fmt.Errorf("%w: gateway has no signer", errs.ErrNoAuthorization)
	}
	if message == "" {
		message = Placeholder
	}
	data, err := parsed.Pack(methodWave, message)
	if err != nil {
		return nil, err
	}
	hash, err := g.provider.SendTransaction(ctx, wallet.TxRequest{
		From: g.account.Address(),
		To:   g.address,
		Data: data,
		Gas:  GasLimit,
	})
	if err != nil {
		return nil, classifySend(err)
	}
	g.log.Info("mining", zap.String("tx", hash.Hex()))
	return newPendingTx(hash, g.provider.Chain(), g.log), nil
}

func classifySend(err error) error {
	switch {
	case errors.Is(err, errs.ErrUserRejected), errors.Is(err, errs.ErrNoAuthorization):
		return fmt.Errorf("%w: %w", errs.ErrTransactionRejected, err)
	case errors.Is(err, errs.ErrTransactionRejected), errors.Is(err, errs.ErrChainCallFailed), errors.Is(err, errs.ErrNoProvider):
		return err
	default:
		return fmt.Errorf("%w: %v", errs.ErrChainCallFailed, err)
	}
}

// Subscribe delivers every NewWave event to onNewEntry until the returned subscription is
// released. Callers must Unsubscribe on teardown.
func (g *Gateway) Subscribe(ctx context.Context, onNewEntry func(model.WaveEntry)) (event.Subscription, error) {
	logs, sub, err := g.bound.WatchLogs(&bind.WatchOpts{Context: ctx}, EventNewWave)
	if err != nil {
		return nil, fmt.Errorf("%w: watch %s: %v", errs.ErrChainCallFailed, EventNewWave, err)
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case l := <-logs:
				var ev NewWave
				if err := g.bound.UnpackLog(&ev, EventNewWave, l); err != nil {
					g.log.Warn("undecodable log", zap.Error(err), zap.String("tx", l.TxHash.Hex()))
					continue
				}
				ev.Raw = l
				g.log.Debug("new wave", zap.String("from", ev.From.Hex()), zap.String("tx", l.TxHash.Hex()))
				onNewEntry(convert.FromEvent(ev.From, ev.Timestamp, ev.Message))
			case err := <-sub.Err():
				if err != nil {
					return fmt.Errorf("%w: %s subscription: %v", errs.ErrChainCallFailed, EventNewWave, err)
				}
				return nil
			case <-quit:
				return nil
			}
		}
	}), nil
}
