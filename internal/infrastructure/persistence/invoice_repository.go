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

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice with its line items
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("LineItems").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByWarehouseAndStatus finds invoices for a warehouse in the given status
func (r *GormInvoiceRepository) FindByWarehouseAndStatus(ctx context.Context, warehouseID uuid.UUID, status billing.InvoiceStatus) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("warehouse_id = ? AND status = ?", warehouseID, status).
		Order("billing_period_start ASC, invoice_number ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]billing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// Save creates or updates an invoice together with its line items
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(model).Error
}

// UpdateStatus updates only the invoice's status column
func (r *GormInvoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status billing.InvoiceStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SaveMatchingResult persists the reconciliations produced by matching together
// with the invoice's status change as one atomic unit. Rerunning matching
// replaces any reconciliations left over from a previous run.
func (r *GormInvoiceRepository) SaveMatchingResult(ctx context.Context, invoice *billing.Invoice, reconciliations []billing.Reconciliation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.InvoiceModel{}).
			Where("id = ?", invoice.ID).
			Updates(map[string]any{
				"status":     invoice.Status,
				"updated_at": invoice.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}

		if err := tx.Where("invoice_id = ?", invoice.ID).
			Delete(&models.ReconciliationModel{}).Error; err != nil {
			return err
		}
		if len(reconciliations) == 0 {
			return nil
		}

		recModels := make([]models.ReconciliationModel, len(reconciliations))
		for i := range reconciliations {
			recModels[i] = *models.ReconciliationModelFromDomain(&reconciliations[i])
		}
		return tx.Create(&recModels).Error
	})
}
