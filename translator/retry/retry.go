// Package retry re-attempts provider calls that failed with a retryable
// error kind, backing off between attempts.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/ownlingo/transmux/translator"
)

// IsRetryable reports whether err may be retried. Only transient failures
// qualify; unclassified errors count as transient.
func IsRetryable(err error) bool {
	return err != nil && translator.KindOf(err).Retryable()
}

// Config holds retry configuration
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	// RetryRateLimited also retries rate-limited failures, waiting at least
	// RateLimitBackoff
	RetryRateLimited bool
	RateLimitBackoff time.Duration

	// OnRetry, when set, is called before each wait
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultConfig returns the adapter-level policy for AI providers
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:       3,
		InitialBackoff:   time.Second,
		MaxBackoff:       30 * time.Second,
		Multiplier:       2.0,
		RetryRateLimited: true,
		RateLimitBackoff: 5 * time.Second,
	}
}

// SegmentConfig returns the per-segment fallback policy: two attempts with a
// short, increasing delay. Rate-limited failures are not retried.
func SegmentConfig() *Config {
	return &Config{
		MaxRetries:     1,
		InitialBackoff: 300 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
	}
}

// Attempts returns the total number of calls Do may make
func (c *Config) Attempts() int {
	return c.MaxRetries + 1
}

// Retries reports whether the policy retries err
func (c *Config) Retries(err error) bool {
	if c.RetryRateLimited && translator.IsKind(err, translator.KindRateLimited) {
		return true
	}
	return IsRetryable(err)
}

// Backoff returns the wait after the given zero-based failed attempt
func (c *Config) Backoff(attempt int, err error) time.Duration {
	mult := c.Multiplier
	if mult < 1 {
		mult = 1
	}

	wait := float64(c.InitialBackoff) * math.Pow(mult, float64(attempt))
	if c.MaxBackoff > 0 {
		wait = math.Min(wait, float64(c.MaxBackoff))
	}

	if translator.IsKind(err, translator.KindRateLimited) && wait < float64(c.RateLimitBackoff) {
		wait = float64(c.RateLimitBackoff)
	}

	return time.Duration(wait)
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// attempt budget runs out. The last error is returned as is.
func Do(ctx context.Context, config *Config, op func() error) error {
	if config == nil {
		config = DefaultConfig()
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op()
		if err == nil || !config.Retries(err) || attempt >= config.MaxRetries {
			return err
		}

		wait := config.Backoff(attempt, err)
		if config.OnRetry != nil {
			config.OnRetry(attempt+1, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
