package contract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/and161185/wave-portal/internal/errs"
	"github.com/and161185/wave-portal/internal/wallet"
)

// Tx is a submitted wave. Wait blocks until it is mined.
type Tx interface {
	Hash() common.Hash
	// Wait returns nil once the transaction is included, errs.ErrTransactionRejected if it
	// reverted, or the context error.
	Wait(ctx context.Context) error
}

const receiptPoll = time.Second

type pendingTx struct {
	hash  common.Hash
	chain wallet.Chain
	log   *zap.Logger
	poll  time.Duration
}

func newPendingTx(hash common.Hash, chain wallet.Chain, log *zap.Logger) *pendingTx {
	return &pendingTx{hash: hash, chain: chain, log: log, poll: receiptPoll}
}

func (t *pendingTx) Hash() common.Hash { return t.hash }

func (t *pendingTx) Wait(ctx context.Context) error {
	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()
	for {
		r, err := t.chain.TransactionReceipt(ctx, t.hash)
		switch {
		case err == nil:
			if r.Status == types.ReceiptStatusFailed {
				return fmt.Errorf("%w: %s reverted", errs.ErrTransactionRejected, t.hash.Hex())
			}
			if r.BlockNumber != nil {
				t.log.Info("mined", zap.String("tx", t.hash.Hex()), zap.Uint64("block", r.BlockNumber.Uint64()))
			}
			return nil
		case errors.Is(err, ethereum.NotFound):
		default:
			t.log.Debug("receipt not available", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
