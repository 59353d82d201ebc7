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
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupInvoiceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.InvoiceModel{},
		&models.InvoiceLineItemModel{},
		&models.ReconciliationModel{},
	)
	require.NoError(t, err)

	return db
}

func newTestInvoice(t *testing.T, warehouseID uuid.UUID, number string) *billing.Invoice {
	t.Helper()
	period := billing.BillingPeriodFor(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
	invoice, err := billing.NewInvoice(warehouseID, number, period, decimal.NewFromInt(150))
	require.NoError(t, err)
	require.NoError(t, invoice.AddLineItem(billing.CostCategoryStorage, "Weekly Storage",
		decimal.NewFromInt(50), decimal.NewFromInt(2), decimal.NewFromInt(100)))
	require.NoError(t, invoice.AddLineItem(billing.CostCategoryContainer, "Container Unload",
		decimal.NewFromInt(1), decimal.NewFromInt(50), decimal.NewFromInt(50)))
	return invoice
}

func TestInvoiceRepository_SaveAndFindByID(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	warehouseID := uuid.New()
	invoice := newTestInvoice(t, warehouseID, "INV-2024-001")
	require.NoError(t, repo.Save(ctx, invoice))

	found, err := repo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-001", found.InvoiceNumber)
	assert.Equal(t, billing.InvoiceStatusPending, found.Status)
	assert.True(t, found.TotalAmount.Equal(decimal.NewFromInt(150)))
	require.Len(t, found.LineItems, 2)
	assert.Equal(t, billing.CostKey{Category: billing.CostCategoryStorage, Name: "Weekly Storage"},
		found.LineItems[0].Key())
}

func TestInvoiceRepository_FindByID_NotFound(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestInvoiceRepository_FindByWarehouseAndStatus(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	warehouseID := uuid.New()
	pending := newTestInvoice(t, warehouseID, "INV-2024-001")
	require.NoError(t, repo.Save(ctx, pending))

	reconciling := newTestInvoice(t, warehouseID, "INV-2024-002")
	require.NoError(t, reconciling.TransitionTo(billing.InvoiceStatusReconciling))
	require.NoError(t, repo.Save(ctx, reconciling))

	require.NoError(t, repo.Save(ctx, newTestInvoice(t, uuid.New(), "INV-2024-003")))

	invoices, err := repo.FindByWarehouseAndStatus(ctx, warehouseID, billing.InvoiceStatusReconciling)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "INV-2024-002", invoices[0].InvoiceNumber)
	assert.Len(t, invoices[0].LineItems, 2)
}

func TestInvoiceRepository_UpdateStatus(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	invoice := newTestInvoice(t, uuid.New(), "INV-2024-001")
	require.NoError(t, repo.Save(ctx, invoice))

	require.NoError(t, repo.UpdateStatus(ctx, invoice.ID, billing.InvoiceStatusReconciling))

	found, err := repo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusReconciling, found.Status)

	err = repo.UpdateStatus(ctx, uuid.New(), billing.InvoiceStatusReconciling)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestInvoiceRepository_SaveMatchingResult(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	recRepo := NewGormReconciliationRepository(db)
	ctx := context.Background()

	invoice := newTestInvoice(t, uuid.New(), "INV-2024-001")
	require.NoError(t, repo.Save(ctx, invoice))

	t.Run("persists status and reconciliations together", func(t *testing.T) {
		expected := billing.AggregatedCost{
			WarehouseID:  invoice.WarehouseID,
			CostCategory: billing.CostCategoryStorage,
			CostName:     "Weekly Storage",
			Quantity:     decimal.NewFromInt(50),
			UnitRate:     decimal.NewFromInt(2),
			TotalAmount:  decimal.NewFromInt(90),
		}
		recs := []billing.Reconciliation{
			*billing.NewReconciliationForLineItem(invoice.ID, invoice.LineItems[0], &expected),
			*billing.NewReconciliationForLineItem(invoice.ID, invoice.LineItems[1], nil),
		}
		require.NoError(t, invoice.TransitionTo(billing.InvoiceStatusReconciling))

		require.NoError(t, repo.SaveMatchingResult(ctx, invoice, recs))

		found, err := repo.FindByID(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusReconciling, found.Status)

		saved, err := recRepo.FindByInvoice(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Len(t, saved, 2)
	})

	t.Run("rerunning matching replaces prior reconciliations", func(t *testing.T) {
		recs := []billing.Reconciliation{
			*billing.NewReconciliationForLineItem(invoice.ID, invoice.LineItems[0], nil),
		}
		require.NoError(t, repo.SaveMatchingResult(ctx, invoice, recs))

		saved, err := recRepo.FindByInvoice(ctx, invoice.ID)
		require.NoError(t, err)
		require.Len(t, saved, 1)
		assert.Equal(t, billing.ReconciliationStatusUnmatched, saved[0].Status)
	})

	t.Run("unknown invoice writes nothing", func(t *testing.T) {
		ghost := newTestInvoice(t, uuid.New(), "INV-2024-099")
		recs := []billing.Reconciliation{
			*billing.NewReconciliationForLineItem(ghost.ID, ghost.LineItems[0], nil),
		}
		err := repo.SaveMatchingResult(ctx, ghost, recs)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		saved, err := recRepo.FindByInvoice(ctx, ghost.ID)
		require.NoError(t, err)
		assert.Empty(t, saved)
	})
}
