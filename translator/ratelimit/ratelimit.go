// Package ratelimit paces provider calls: token and request budgets for AI
// providers and fixed spacing for strict free endpoints.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter implements rate limiting for tokens per minute (TPM) and requests per minute (RPM)
type Limiter struct {
	requests *rate.Limiter
	tokens   *rate.Limiter
}

// NewLimiter creates a new rate limiter with specified TPM and RPM limits.
// A non-positive limit disables that dimension.
func NewLimiter(tpm, rpm int) *Limiter {
	return &Limiter{
		requests: newPerMinute(rpm),
		tokens:   newPerMinute(tpm),
	}
}

func newPerMinute(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(perMinute(n), n)
}

func perMinute(n int) rate.Limit {
	return rate.Limit(float64(n) / time.Minute.Seconds())
}

// Wait blocks until the request can proceed within rate limits
func (l *Limiter) Wait(ctx context.Context, tokensNeeded int) error {
	if err := l.requests.Wait(ctx); err != nil {
		return err
	}

	// A single request may never need more than the full bucket
	if burst := l.tokens.Burst(); burst > 0 && tokensNeeded > burst {
		tokensNeeded = burst
	}

	return l.tokens.WaitN(ctx, tokensNeeded)
}

// EstimateTokens gives a rough token count for text (1 token ~= 4 chars)
func EstimateTokens(text string) int {
	estimated := len(text) / 4
	if estimated < 100 {
		estimated = 100
	}
	return estimated
}

// Throttle spaces calls at least a fixed interval apart. The first call
// passes immediately.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle creates a throttle; a non-positive interval never waits
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		return &Throttle{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call may proceed
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}
