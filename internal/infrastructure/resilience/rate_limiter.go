package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiter rejects calls beyond MaxRequests per fixed window. Rejected
// calls fail immediately with a RateLimitError; nothing is queued or delayed.
// Safe for concurrent use.
type RateLimiter struct {
	maxRequests int
	window      time.Duration

	mu          sync.Mutex
	windowStart time.Time
	count       int
}

// NewRateLimiter creates a fixed-window rate limiter
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiter{maxRequests: maxRequests, window: window}
}

// Allow consumes one slot from the current window
func (rl *RateLimiter) Allow() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.windowStart) >= rl.window {
		rl.windowStart = now
		rl.count = 0
	}
	if rl.count >= rl.maxRequests {
		return &RateLimitError{MaxRequests: rl.maxRequests, Window: rl.window}
	}
	rl.count++
	return nil
}

// WithRateLimit wraps op behind the limiter
func WithRateLimit[T any](rl *RateLimiter, op Operation[T]) Operation[T] {
	return func(ctx context.Context) (T, error) {
		if err := rl.Allow(); err != nil {
			var zero T
			return zero, err
		}
		return op(ctx)
	}
}
