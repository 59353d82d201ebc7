package resilience

import (
	"context"
	"sync"
	"time"
)

// State is the circuit breaker's current position
type State int

const (
	// StateClosed lets calls through and counts consecutive failures
	StateClosed State = iota
	// StateOpen rejects all calls without invoking the operation
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through
	StateHalfOpen
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreakerConfig controls the circuit breaker
type CircuitBreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the circuit
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before probing
	ResetTimeout time.Duration
	// HalfOpenRequests is the number of concurrent probes allowed while
	// half-open; they must all succeed to close the circuit
	HalfOpenRequests int
	// OnStateChange observes transitions
	OnStateChange func(from, to State)
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.HalfOpenRequests <= 0 {
		c.HalfOpenRequests = 1
	}
	return c
}

// CircuitBreaker fails calls fast once the wrapped dependency has proven
// unhealthy, giving it ResetTimeout to recover before probing again. Safe for
// concurrent use.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu               sync.Mutex
	state            State
	failures         int
	openedAt         time.Time
	halfOpenInFlight int
	halfOpenSuccess  int
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{config: config.withDefaults(), state: StateClosed}
}

// State returns the current state, accounting for an elapsed reset timeout
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.config.ResetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// allow reserves a slot for one call, or rejects it with a CircuitOpenError
func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.openedAt) < cb.config.ResetTimeout {
			return &CircuitOpenError{State: StateOpen}
		}
		cb.transition(StateHalfOpen)
		cb.halfOpenInFlight = 1
		cb.halfOpenSuccess = 0
		return nil
	default: // StateHalfOpen
		if cb.halfOpenInFlight >= cb.config.HalfOpenRequests {
			return &CircuitOpenError{State: StateHalfOpen}
		}
		cb.halfOpenInFlight++
		return nil
	}
}

// record reports the outcome of an allowed call
func (cb *CircuitBreaker) record(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		if success {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.transition(StateOpen)
			cb.openedAt = time.Now()
		}
	case StateHalfOpen:
		cb.halfOpenInFlight--
		if !success {
			// One failed probe reopens the circuit immediately.
			cb.transition(StateOpen)
			cb.openedAt = time.Now()
			cb.failures = cb.config.FailureThreshold
			return
		}
		cb.halfOpenSuccess++
		if cb.halfOpenSuccess >= cb.config.HalfOpenRequests {
			cb.transition(StateClosed)
			cb.failures = 0
		}
	}
}

// transition must be called with the mutex held
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

// WithCircuitBreaker wraps op behind the breaker. Rejected calls fail with a
// CircuitOpenError without invoking op.
func WithCircuitBreaker[T any](cb *CircuitBreaker, op Operation[T]) Operation[T] {
	return func(ctx context.Context) (T, error) {
		var zero T
		if err := cb.allow(); err != nil {
			return zero, err
		}
		result, err := op(ctx)
		cb.record(err == nil)
		return result, err
	}
}
