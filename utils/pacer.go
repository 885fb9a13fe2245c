package utils

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces consecutive navigations so the shared browser tab never issues
// two page loads closer than the configured interval.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a Pacer allowing one navigation per interval. A zero
// interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next navigation is allowed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
