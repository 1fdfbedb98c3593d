package dispatch

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token-bucket limiter, wrapping golang.org/x/time/rate's
// Limiter: one instance guards one channel's delivery
// rate so a burst of aggregated alerts can't hammer a webhook or bot
// API past its own rate limit.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained
// throughput with the given burst capacity.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Allow blocks until a token is available or ctx is canceled.
func (r *RateLimiter) Allow(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
