package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wms/backend/internal/domain/billing"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStorageLedgerTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.StorageLedgerEntryModel{})
	require.NoError(t, err)

	return db
}

func saveLedgerEntry(t *testing.T, repo *GormStorageLedgerRepository, warehouseID uuid.UUID, weekEnding time.Time, pallets float64) *billing.StorageLedgerEntry {
	t.Helper()
	entry, err := billing.NewStorageLedgerEntry(warehouseID, "SKU-001", "LOT-A", weekEnding,
		decimal.NewFromFloat(pallets))
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), entry))
	return entry
}

func TestStorageLedgerRepository_FindByWarehouseAndPeriod(t *testing.T) {
	db := setupStorageLedgerTestDB(t)
	repo := NewGormStorageLedgerRepository(db)
	ctx := context.Background()

	warehouseID := uuid.New()
	period := billing.BillingPeriodFor(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))

	saveLedgerEntry(t, repo, warehouseID, time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC), 5)
	saveLedgerEntry(t, repo, warehouseID, time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC), 4)
	// Week ending before the period opens.
	saveLedgerEntry(t, repo, warehouseID, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), 6)
	saveLedgerEntry(t, repo, uuid.New(), time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC), 9)

	entries, err := repo.FindByWarehouseAndPeriod(ctx, warehouseID, period)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].WeekEnding.Before(entries[1].WeekEnding))
	assert.True(t, entries[0].PalletsCharged.Equal(decimal.NewFromInt(5)))
}

func TestStorageLedgerRepository_SaveRoundTrip(t *testing.T) {
	db := setupStorageLedgerTestDB(t)
	repo := NewGormStorageLedgerRepository(db)
	ctx := context.Background()

	warehouseID := uuid.New()
	weekEnding := time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC)
	entry, err := billing.NewStorageLedgerEntry(warehouseID, "SKU-002", "LOT-B", weekEnding,
		decimal.NewFromFloat(3.5))
	require.NoError(t, err)
	entry.OpeningCartons = 40
	entry.InboundCartons = 10
	entry.OutboundCartons = 15
	entry.ClosingCartons = 35

	require.NoError(t, repo.Save(ctx, entry))

	entries, err := repo.FindByWarehouseAndPeriod(ctx, warehouseID, billing.BillingPeriodFor(weekEnding))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "SKU-002", entries[0].SKUID)
	assert.Equal(t, 35, entries[0].ClosingCartons)
	assert.True(t, entries[0].PalletsCharged.Equal(decimal.NewFromFloat(3.5)))
}
