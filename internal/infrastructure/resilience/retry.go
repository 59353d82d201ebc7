package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig controls the retry decorator
type RetryConfig struct {
	// MaxAttempts is the total number of calls, first try included
	MaxAttempts int
	// InitialDelay is the wait before the first retry
	InitialDelay time.Duration
	// MaxDelay caps the exponentially growing delay
	MaxDelay time.Duration
	// Factor multiplies the delay after each retry
	Factor float64
	// Jitter randomizes each delay to avoid synchronized retry storms
	Jitter bool
	// ShouldRetry filters retryable errors; nil retries everything
	ShouldRetry func(error) bool
	// OnRetry observes each scheduled retry; attempt is 1-based
	OnRetry func(attempt int, delay time.Duration)
}

// DefaultRetryConfig returns the baseline retry policy for store and
// upstream calls
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Factor:       2,
		Jitter:       true,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Factor <= 1 {
		c.Factor = 2
	}
	return c
}

// WithRetry wraps op so transient failures are retried with exponential
// backoff. A failure the ShouldRetry filter rejects, or a cancelled context,
// stops retrying immediately; exhausting the attempts returns the last error.
func WithRetry[T any](op Operation[T], config RetryConfig) Operation[T] {
	config = config.withDefaults()

	return func(ctx context.Context) (T, error) {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = config.InitialDelay
		bo.MaxInterval = config.MaxDelay
		bo.Multiplier = config.Factor
		bo.MaxElapsedTime = 0
		if config.Jitter {
			bo.RandomizationFactor = 0.5
		} else {
			bo.RandomizationFactor = 0
		}
		bo.Reset()

		attempt := 0
		notify := func(err error, delay time.Duration) {
			attempt++
			if config.OnRetry != nil {
				config.OnRetry(attempt, delay)
			}
		}

		wrapped := func() (T, error) {
			result, err := op(ctx)
			if err != nil && config.ShouldRetry != nil && !config.ShouldRetry(err) {
				return result, backoff.Permanent(err)
			}
			return result, err
		}

		policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(config.MaxAttempts-1)), ctx)
		return backoff.RetryNotifyWithData(wrapped, policy, notify)
	}
}
