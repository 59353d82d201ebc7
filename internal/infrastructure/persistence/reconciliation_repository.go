package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/billing"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// unresolvedStatuses are the reconciliation statuses that keep an invoice from
// reaching the reconciled state
var unresolvedStatuses = []billing.ReconciliationStatus{
	billing.ReconciliationStatusVariance,
	billing.ReconciliationStatusUnmatched,
	billing.ReconciliationStatusMissing,
}

// GormReconciliationRepository implements ReconciliationRepository using GORM
type GormReconciliationRepository struct {
	db *gorm.DB
}

// NewGormReconciliationRepository creates a new GormReconciliationRepository
func NewGormReconciliationRepository(db *gorm.DB) *GormReconciliationRepository {
	return &GormReconciliationRepository{db: db}
}

// FindByID finds a reconciliation record by its ID
func (r *GormReconciliationRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Reconciliation, error) {
	var model models.ReconciliationModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoice returns the invoice's reconciliations, optionally restricted
// to the given statuses
func (r *GormReconciliationRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID, statuses ...billing.ReconciliationStatus) ([]billing.Reconciliation, error) {
	var recModels []models.ReconciliationModel
	query := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if err := query.Order("cost_category ASC, cost_name ASC").Find(&recModels).Error; err != nil {
		return nil, err
	}
	recs := make([]billing.Reconciliation, len(recModels))
	for i, model := range recModels {
		recs[i] = *model.ToDomain()
	}
	return recs, nil
}

// FindByInvoiceAndKey finds the reconciliation for one matching key
func (r *GormReconciliationRepository) FindByInvoiceAndKey(ctx context.Context, invoiceID uuid.UUID, key billing.CostKey) (*billing.Reconciliation, error) {
	var model models.ReconciliationModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ? AND cost_category = ? AND cost_name = ?",
			invoiceID, key.Category, key.Name).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Update persists changes to a reconciliation record
func (r *GormReconciliationRepository) Update(ctx context.Context, rec *billing.Reconciliation) error {
	model := models.ReconciliationModelFromDomain(rec)
	return r.db.WithContext(ctx).Save(model).Error
}

// CountUnresolved counts the variance, unmatched and missing records still
// open for the invoice
func (r *GormReconciliationRepository) CountUnresolved(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ReconciliationModel{}).
		Where("invoice_id = ? AND status IN ?", invoiceID, unresolvedStatuses).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// BulkResolve marks all given records resolved with a shared note, as one
// atomic update
func (r *GormReconciliationRepository) BulkResolve(ctx context.Context, ids []uuid.UUID, notes string, resolvedBy uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.ReconciliationModel{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":           billing.ReconciliationStatusResolved,
			"resolution_notes": notes,
			"resolved_by":      resolvedBy,
			"resolved_at":      now,
			"updated_at":       now,
		}).Error
}
