package resilience

import (
	"context"
	"time"
)

// WithTimeout wraps op with a deadline. When the deadline fires first the
// call fails with a TimeoutError and op's context is cancelled; op must honor
// the cancellation and release its resources. The wrapper does not wait for a
// deadline-overrunning op to acknowledge the cancellation.
func WithTimeout[T any](op Operation[T], timeout time.Duration) Operation[T] {
	return func(ctx context.Context) (T, error) {
		opCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		type outcome struct {
			result T
			err    error
		}
		done := make(chan outcome, 1)
		go func() {
			result, err := op(opCtx)
			done <- outcome{result: result, err: err}
		}()

		select {
		case out := <-done:
			return out.result, out.err
		case <-opCtx.Done():
			var zero T
			if ctx.Err() != nil {
				// Parent cancellation is not a timeout.
				return zero, ctx.Err()
			}
			return zero, &TimeoutError{Timeout: timeout}
		}
	}
}
