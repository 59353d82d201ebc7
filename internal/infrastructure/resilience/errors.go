package resilience

import (
	"fmt"
	"time"
)

// TimeoutError reports that an operation exceeded its deadline
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out after %s", e.Timeout)
}

// CircuitOpenError reports a call rejected without execution because the
// circuit is open
type CircuitOpenError struct {
	State State
}

func (e *CircuitOpenError) Error() string {
	return "circuit breaker is " + e.State.String()
}

// RateLimitError reports a call rejected because the current window's budget
// is spent
type RateLimitError struct {
	MaxRequests int
	Window      time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d requests per %s", e.MaxRequests, e.Window)
}
