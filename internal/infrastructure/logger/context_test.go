package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")

	assert.Equal(t, "req-123", RequestIDFrom(ctx))
}

func TestRequestIDFrom_Missing(t *testing.T) {
	assert.Equal(t, "", RequestIDFrom(context.Background()))
}

func TestRequestIDFrom_NotShadowedByStringKey(t *testing.T) {
	// A plain string key must not collide with the package's typed key.
	ctx := context.WithValue(context.Background(), "request_id", "spoofed") //nolint:staticcheck

	assert.Equal(t, "", RequestIDFrom(ctx))
}
