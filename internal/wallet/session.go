package wallet

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/wave-portal/internal/errs"
	"github.com/and161185/wave-portal/internal/model"
)

// Session discovers or obtains the authorized account of the environment's wallet.
type Session struct {
	env Environment
	log *zap.Logger
}

// NewSession constructs a Session over an explicitly injected environment.
func NewSession(env Environment, log *zap.Logger) *Session {
	return &Session{env: env, log: log}
}

// DetectProvider reports the environment's wallet provider.
func (s *Session) DetectProvider() (Provider, bool) { return s.env.DetectProvider() }

// DiscoverAuthorizedAccount returns an already-authorized account without prompting.
// It is best-effort: transport errors are logged and reported as "none".
func (s *Session) DiscoverAuthorizedAccount(ctx context.Context) (model.Account, bool) {
	p, ok := s.env.DetectProvider()
	if !ok {
		s.log.Info("no wallet provider detected")
		return "", false
	}
	accs, err := p.Accounts(ctx)
	if err != nil {
		s.log.Warn("discover authorized account", zap.Error(err))
		return "", false
	}
	if len(accs) == 0 {
		s.log.Info("no authorized account found")
		return "", false
	}
	acc := model.AccountFromAddress(accs[0])
	s.log.Info("found authorized account", zap.String("account", string(acc)))
	return acc, true
}

// RequestConnection prompts the wallet for an account.
// It fails with errs.ErrNoProvider or errs.ErrUserRejected; transport faults wrap errs.ErrChainCallFailed.
func (s *Session) RequestConnection(ctx context.Context) (model.Account, error) {
	p, ok := s.env.DetectProvider()
	if !ok {
		return "", errs.ErrNoProvider
	}
	accs, err := p.RequestAccounts(ctx)
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrUserRejected), errors.Is(err, errs.ErrNoProvider), errors.Is(err, errs.ErrNoAuthorization),
		errors.Is(err, errs.ErrChainCallFailed):
		return "", err
	default:
		return "", fmt.Errorf("%w: request accounts: %v", errs.ErrChainCallFailed, err)
	}
	if len(accs) == 0 {
		return "", errs.ErrUserRejected
	}
	acc := model.AccountFromAddress(accs[0])
	s.log.Info("connected", zap.String("account", string(acc)))
	return acc, nil
}
