package logger

import "context"

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID attaches the request ID to ctx so lower layers can
// correlate their log entries with the HTTP request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFrom returns the request ID attached to ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
