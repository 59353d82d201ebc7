package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/billing"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCostRateRepository implements CostRateRepository using GORM
type GormCostRateRepository struct {
	db *gorm.DB
}

// NewGormCostRateRepository creates a new GormCostRateRepository
func NewGormCostRateRepository(db *gorm.DB) *GormCostRateRepository {
	return &GormCostRateRepository{db: db}
}

// FindByWarehouse returns every rate configured for a warehouse
func (r *GormCostRateRepository) FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]billing.CostRate, error) {
	var rateModels []models.CostRateModel
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ?", warehouseID).
		Order("category ASC, name ASC, effective_from ASC").
		Find(&rateModels).Error; err != nil {
		return nil, err
	}
	rates := make([]billing.CostRate, len(rateModels))
	for i, model := range rateModels {
		rates[i] = *model.ToDomain()
	}
	return rates, nil
}

// FindEffective returns the rates for a category whose effective window
// contains asOf. Effective windows are inclusive at date granularity, so the
// query brackets asOf's calendar day rather than comparing instants.
func (r *GormCostRateRepository) FindEffective(ctx context.Context, warehouseID uuid.UUID, category billing.CostCategory, asOf time.Time) ([]billing.CostRate, error) {
	dayStart := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	nextDay := dayStart.AddDate(0, 0, 1)

	var rateModels []models.CostRateModel
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND category = ?", warehouseID, category).
		Where("effective_from < ?", nextDay).
		Where("effective_to IS NULL OR effective_to >= ?", dayStart).
		Find(&rateModels).Error; err != nil {
		return nil, err
	}
	rates := make([]billing.CostRate, len(rateModels))
	for i, model := range rateModels {
		rates[i] = *model.ToDomain()
	}
	return rates, nil
}

// Save creates or updates a cost rate
func (r *GormCostRateRepository) Save(ctx context.Context, rate *billing.CostRate) error {
	model := models.CostRateModelFromDomain(rate)
	return r.db.WithContext(ctx).Save(model).Error
}

// Supersede closes the old rate's effective window and inserts its replacement
// atomically. Readers either see the old rate still open or the handover
// complete, never a gap.
func (r *GormCostRateRepository) Supersede(ctx context.Context, oldRateID uuid.UUID, closeAt time.Time, replacement *billing.CostRate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.CostRateModel{}).
			Where("id = ?", oldRateID).
			Updates(map[string]any{
				"effective_to": closeAt,
				"updated_at":   time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return tx.Create(models.CostRateModelFromDomain(replacement)).Error
	})
}
