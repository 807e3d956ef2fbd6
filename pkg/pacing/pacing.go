// Package pacing spaces out calls to the listing source.
package pacing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// FixedDelay sleeps for a constant duration on every Wait.
type FixedDelay struct {
	Delay time.Duration
}

func NewFixedDelay(d time.Duration) *FixedDelay {
	return &FixedDelay{Delay: d}
}

// Wait blocks for the delay or until ctx is done.
func (p *FixedDelay) Wait(ctx context.Context) error {
	if p.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RateLimited lets at most rps calls through per second, with burst.
type RateLimited struct {
	lim *rate.Limiter
}

func NewRateLimited(rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (p *RateLimited) Wait(ctx context.Context) error {
	return p.lim.Wait(ctx)
}

// None never waits. Tests use it.
type None struct{}

func (None) Wait(ctx context.Context) error {
	return ctx.Err()
}
