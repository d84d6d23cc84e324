package openai

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// newLimiter returns a limiter allowing rps requests per second, or nil when
// rps is not positive.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := max(int(math.Ceil(rps)), 1)
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// wait blocks until the limiter admits a request. A nil limiter never blocks.
func wait(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}
