// Package limiter paces retried operations such as resubscribing to contract events.
package limiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter blocks until the next attempt is allowed.
type Limiter interface {
	// Wait blocks until an attempt may proceed or ctx is done.
	Wait(ctx context.Context) error
}

// Rate is a token-bucket Limiter.
type Rate struct{ lim *rate.Limiter }

// NewRate allows one attempt per every, with burst attempts available immediately.
func NewRate(every time.Duration, burst int) *Rate {
	if burst < 1 {
		burst = 1
	}
	return &Rate{lim: rate.NewLimiter(rate.Every(every), burst)}
}

// Wait implements Limiter.
func (r *Rate) Wait(ctx context.Context) error { return r.lim.Wait(ctx) }
