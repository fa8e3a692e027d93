// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Wallet and chain sentinels. Callers wrap them with %w and classify with errors.Is.
var (
	// ErrNoProvider indicates the environment has no wallet provider, or it went away mid-flow.
	ErrNoProvider = errors.New("no wallet provider")

	// ErrNoAuthorization indicates the user never granted this client access to an account.
	// It is a normal state, not a failure.
	ErrNoAuthorization = errors.New("no authorized account")

	// ErrUserRejected indicates the user declined a wallet prompt.
	ErrUserRejected = errors.New("user rejected request")

	// ErrChainCallFailed indicates an RPC/network fault on a read or write.
	ErrChainCallFailed = errors.New("chain call failed")

	// ErrTransactionRejected indicates the signer declined the write or the chain reverted it.
	ErrTransactionRejected = errors.New("transaction rejected")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
)
