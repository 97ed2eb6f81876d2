// Package ratelimit enforces a minimum spacing between successive calls to an
// external provider.
package ratelimit

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// Limiter grants calls strictly serially, at most one per interval. There is
// no burst allowance: every grant is spaced at least Interval() after the
// previous grant from the same Limiter, measured from grant time.
type Limiter struct {
	interval time.Duration

	// slot is the single exclusion point. Holding it guards last.
	slot chan struct{}
	last time.Time
}

// New creates a Limiter allowing ratePerSecond grants per second. Rates of
// zero or below are treated as 1.
func New(ratePerSecond int) *Limiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	return &Limiter{
		interval: time.Second / time.Duration(ratePerSecond),
		slot:     make(chan struct{}, 1),
	}
}

// Interval returns the minimum spacing between grants.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until the caller may proceed. Concurrent callers queue on the
// limiter and are released one at a time. Returns an error only if ctx ends
// before the grant.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "ratelimit: acquire")
	}
	select {
	case l.slot <- struct{}{}:
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "ratelimit: acquire")
	}
	defer func() { <-l.slot }()

	if !l.last.IsZero() {
		if d := l.interval - time.Since(l.last); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return eris.Wrap(ctx.Err(), "ratelimit: wait")
			case <-timer.C:
			}
		}
	}

	l.last = time.Now()
	return nil
}
