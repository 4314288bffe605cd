// Package ratelimit spaces outbound control messages to stay under the
// exchange's per-connection messages-per-second ceiling.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum gap between successive sends.
type Pacer struct {
	interval time.Duration
	limiter  *rate.Limiter
}

// Interval returns the pause between two control messages for the given
// ceiling, truncated to whole milliseconds.
func Interval(perSecond int) time.Duration {
	if perSecond <= 0 {
		return 0
	}
	return time.Duration(1000/perSecond) * time.Millisecond
}

func NewPacer(perSecond int) *Pacer {
	interval := Interval(perSecond)
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{
		interval: interval,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until the next send is allowed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
