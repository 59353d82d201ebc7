package billing

import (
	"context"

	"github.com/google/uuid"
)

// AuditEntry describes one auditable action on a billing entity
type AuditEntry struct {
	EntityType string         `json:"entity_type"`
	EntityID   uuid.UUID      `json:"entity_id"`
	Action     string         `json:"action"`
	UserID     uuid.UUID      `json:"user_id"`
	Data       map[string]any `json:"data,omitempty"`
}

// AuditLogger is a fire-and-forget side channel for recording billing actions.
// Implementations must swallow their own failures: an audit write that fails
// can never be allowed to fail the primary operation, so Record returns
// nothing and implementations log errors instead of surfacing them.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// NopAuditLogger discards all entries
type NopAuditLogger struct{}

// Record implements AuditLogger
func (NopAuditLogger) Record(ctx context.Context, entry AuditEntry) {}
