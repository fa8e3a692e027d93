package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/and161185/wave-portal/internal/errs"
)

// ReadOnly is a provider without accounts. It serves reads and event subscriptions for
// processes that never sign, such as the archiver.
type ReadOnly struct{ chain Chain }

// NewReadOnly wraps a chain backend.
func NewReadOnly(chain Chain) *ReadOnly { return &ReadOnly{chain: chain} }

func (r *ReadOnly) Accounts(context.Context) ([]common.Address, error)        { return nil, nil }
func (r *ReadOnly) RequestAccounts(context.Context) ([]common.Address, error) { return nil, errs.ErrNoAuthorization }
func (r *ReadOnly) Chain() Chain                                               { return r.chain }

func (r *ReadOnly) SendTransaction(context.Context, TxRequest) (common.Hash, error) {
	return common.Hash{}, errs.ErrNoAuthorization
}
