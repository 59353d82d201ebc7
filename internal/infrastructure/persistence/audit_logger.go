package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	appbilling "github.com/wms/backend/internal/application/billing"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormAuditLogger persists billing audit entries to the audit_logs table.
// Failures are logged and swallowed; an audit write must never fail the
// operation it describes.
type GormAuditLogger struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormAuditLogger creates a new GormAuditLogger
func NewGormAuditLogger(db *gorm.DB, logger *zap.Logger) *GormAuditLogger {
	return &GormAuditLogger{db: db, logger: logger}
}

// Record implements billing.AuditLogger
func (l *GormAuditLogger) Record(ctx context.Context, entry appbilling.AuditEntry) {
	var data []byte
	if entry.Data != nil {
		var err error
		data, err = json.Marshal(entry.Data)
		if err != nil {
			l.logger.Warn("failed to marshal audit data",
				zap.String("entity_type", entry.EntityType),
				zap.String("action", entry.Action),
				zap.Error(err))
			data = nil
		}
	}

	model := models.AuditLogModel{
		ID:         uuid.New(),
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		UserID:     entry.UserID,
		Data:       data,
		CreatedAt:  time.Now(),
	}
	if err := l.db.WithContext(ctx).Create(&model).Error; err != nil {
		l.logger.Warn("failed to write audit log",
			zap.String("entity_type", entry.EntityType),
			zap.String("entity_id", entry.EntityID.String()),
			zap.String("action", entry.Action),
			zap.Error(err))
	}
}
