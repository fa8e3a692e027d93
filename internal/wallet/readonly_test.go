package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/and161185/wave-portal/internal/errs"
)

func TestReadOnly_NeverAuthorizes(t *testing.T) {
	var p Provider = NewReadOnly(nil)
	s := NewSession(Environment{Injected: p}, zap.NewNop())

	_, ok := s.DiscoverAuthorizedAccount(context.Background())
	require.False(t, ok)

	_, err := s.RequestConnection(context.Background())
	require.ErrorIs(t, err, errs.ErrNoAuthorization)

	_, err = p.SendTransaction(context.Background(), TxRequest{})
	require.ErrorIs(t, err, errs.ErrNoAuthorization)
}
