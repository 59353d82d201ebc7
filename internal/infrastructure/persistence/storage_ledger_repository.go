package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/billing"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStorageLedgerRepository implements StorageLedgerRepository using GORM
type GormStorageLedgerRepository struct {
	db *gorm.DB
}

// NewGormStorageLedgerRepository creates a new GormStorageLedgerRepository
func NewGormStorageLedgerRepository(db *gorm.DB) *GormStorageLedgerRepository {
	return &GormStorageLedgerRepository{db: db}
}

// FindByWarehouseAndPeriod returns the ledger entries whose week ending falls
// within the billing period, inclusive of both bounds
func (r *GormStorageLedgerRepository) FindByWarehouseAndPeriod(ctx context.Context, warehouseID uuid.UUID, period billing.BillingPeriod) ([]billing.StorageLedgerEntry, error) {
	var entryModels []models.StorageLedgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND week_ending >= ? AND week_ending <= ?",
			warehouseID, period.Start, period.End).
		Order("week_ending ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}
	entries := make([]billing.StorageLedgerEntry, len(entryModels))
	for i, model := range entryModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// Save creates a storage ledger snapshot entry
func (r *GormStorageLedgerRepository) Save(ctx context.Context, entry *billing.StorageLedgerEntry) error {
	model := models.StorageLedgerEntryModelFromDomain(entry)
	return r.db.WithContext(ctx).Save(model).Error
}
