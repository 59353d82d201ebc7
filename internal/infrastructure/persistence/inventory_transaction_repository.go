package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/billing"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInventoryTransactionRepository implements InventoryTransactionRepository using GORM
type GormInventoryTransactionRepository struct {
	db *gorm.DB
}

// NewGormInventoryTransactionRepository creates a new GormInventoryTransactionRepository
func NewGormInventoryTransactionRepository(db *gorm.DB) *GormInventoryTransactionRepository {
	return &GormInventoryTransactionRepository{db: db}
}

// FindByWarehouseAndPeriod returns the transactions dated within the billing
// period, optionally filtered by type. Both period bounds are inclusive.
func (r *GormInventoryTransactionRepository) FindByWarehouseAndPeriod(ctx context.Context, warehouseID uuid.UUID, period billing.BillingPeriod, types ...billing.TransactionType) ([]billing.InventoryTransaction, error) {
	var txModels []models.InventoryTransactionModel
	query := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND transaction_date >= ? AND transaction_date <= ?",
			warehouseID, period.Start, period.End)
	if len(types) > 0 {
		query = query.Where("type IN ?", types)
	}
	if err := query.Order("transaction_date ASC").Find(&txModels).Error; err != nil {
		return nil, err
	}
	transactions := make([]billing.InventoryTransaction, len(txModels))
	for i, model := range txModels {
		transactions[i] = *model.ToDomain()
	}
	return transactions, nil
}

// Save creates an inventory transaction record
func (r *GormInventoryTransactionRepository) Save(ctx context.Context, tx *billing.InventoryTransaction) error {
	model := models.InventoryTransactionModelFromDomain(tx)
	return r.db.WithContext(ctx).Save(model).Error
}
