// Package resilience provides composable decorators for calls that leave the
// process: retry with exponential backoff, timeouts, a circuit breaker and a
// fixed-window rate limiter. Decorators nest freely; each layer sees only
// success or failure from the layer beneath it.
package resilience

import "context"

// Operation is a cancellable call returning a value or an error
type Operation[T any] func(ctx context.Context) (T, error)
