package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wms/backend/internal/domain/billing"
)

func testInvoice(t *testing.T, warehouseID uuid.UUID, total float64) *billing.Invoice {
	t.Helper()
	invoice, err := billing.NewInvoice(warehouseID, "INV-2024-001", testPeriod(), decimal.NewFromFloat(total))
	require.NoError(t, err)
	return invoice
}

func newReconciliationServiceWithMocks() (*ReconciliationService, *MockInvoiceRepository, *MockReconciliationRepository, *MockCostRateRepository, *MockInventoryTransactionRepository, *MockStorageLedgerRepository, *MockAuditLogger) {
	invoiceRepo := new(MockInvoiceRepository)
	reconRepo := new(MockReconciliationRepository)
	rateRepo := new(MockCostRateRepository)
	txRepo := new(MockInventoryTransactionRepository)
	ledgerRepo := new(MockStorageLedgerRepository)
	audit := &MockAuditLogger{}
	costService := NewCostAggregationService(rateRepo, txRepo, ledgerRepo, newTestLogger())
	service := NewReconciliationService(invoiceRepo, reconRepo, costService, audit, newTestLogger())
	return service, invoiceRepo, reconRepo, rateRepo, txRepo, ledgerRepo, audit
}

func TestReconciliationService_PrepareInvoiceMatching_AllMatched(t *testing.T) {
	service, invoiceRepo, _, rateRepo, txRepo, ledgerRepo, audit := newReconciliationServiceWithMocks()
	ctx := context.Background()
	warehouseID := uuid.New()
	userID := uuid.New()

	// One storage line on the invoice, matching the ledger-derived expectation
	// exactly.
	invoice := testInvoice(t, warehouseID, 30)
	require.NoError(t, invoice.AddLineItem(billing.CostCategoryStorage, WeeklyStorageCostName,
		decimal.NewFromInt(15), decimal.NewFromInt(2), decimal.NewFromInt(30)))

	week := time.Date(2024, time.March, 17, 0, 0, 0, 0, time.UTC)
	entries := []billing.StorageLedgerEntry{
		testLedgerEntry(t, warehouseID, "SKU-A", week, 15),
	}
	rates := []billing.CostRate{
		testRate(t, warehouseID, billing.CostCategoryStorage, "Weekly storage", 2),
	}

	invoiceRepo.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
	rateRepo.On("FindByWarehouse", ctx, warehouseID).Return(rates, nil)
	txRepo.On("FindByWarehouseAndPeriod", ctx, warehouseID, invoice.BillingPeriod(), mock.Anything).
		Return([]billing.InventoryTransaction{}, nil)
	ledgerRepo.On("FindByWarehouseAndPeriod", ctx, warehouseID, invoice.BillingPeriod()).Return(entries, nil)
	invoiceRepo.On("SaveMatchingResult", ctx, invoice, mock.AnythingOfType("[]billing.Reconciliation")).Return(nil)

	summary, err := service.PrepareInvoiceMatching(ctx, invoice.ID, userID)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 0, summary.Variance)
	assert.Equal(t, 0, summary.Unmatched)
	assert.Equal(t, 0, summary.Missing)
	// Nothing to review, so the invoice is not pushed into reconciling.
	assert.Equal(t, billing.InvoiceStatusPending, summary.InvoiceStatus)
	assert.True(t, summary.TotalDifference.IsZero())
	require.Len(t, audit.Entries, 1)
	assert.Equal(t, "matching_prepared", audit.Entries[0].Action)
	invoiceRepo.AssertExpectations(t)
}

func TestReconciliationService_PrepareInvoiceMatching_UnmatchedAndMissing(t *testing.T) {
	service, invoiceRepo, _, rateRepo, txRepo, ledgerRepo, _ := newReconciliationServiceWithMocks()
	ctx := context.Background()
	warehouseID := uuid.New()
	userID := uuid.New()

	// Supplier bills an accessorial charge the system never expected, while
	// the expected storage charge is absent from the invoice.
	invoice := testInvoice(t, warehouseID, 45)
	require.NoError(t, invoice.AddLineItem(billing.CostCategoryAccessorial, "Shrink wrap",
		decimal.NewFromInt(1), decimal.NewFromInt(45), decimal.NewFromInt(45)))

	week := time.Date(2024, time.March, 17, 0, 0, 0, 0, time.UTC)
	entries := []billing.StorageLedgerEntry{
		testLedgerEntry(t, warehouseID, "SKU-A", week, 10),
	}
	rates := []billing.CostRate{
		testRate(t, warehouseID, billing.CostCategoryStorage, "Weekly storage", 2),
	}

	invoiceRepo.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
	rateRepo.On("FindByWarehouse", ctx, warehouseID).Return(rates, nil)
	txRepo.On("FindByWarehouseAndPeriod", ctx, warehouseID, invoice.BillingPeriod(), mock.Anything).
		Return([]billing.InventoryTransaction{}, nil)
	ledgerRepo.On("FindByWarehouseAndPeriod", ctx, warehouseID, invoice.BillingPeriod()).Return(entries, nil)

	var saved []billing.Reconciliation
	invoiceRepo.On("SaveMatchingResult", ctx, invoice, mock.AnythingOfType("[]billing.Reconciliation")).
		Run(func(args mock.Arguments) {
			saved = args.Get(2).([]billing.Reconciliation)
		}).Return(nil)

	summary, err := service.PrepareInvoiceMatching(ctx, invoice.ID, userID)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, 1, summary.Missing)
	assert.Equal(t, billing.InvoiceStatusReconciling, summary.InvoiceStatus)

	require.Len(t, saved, 2)
	unmatched := saved[0]
	assert.Equal(t, billing.ReconciliationStatusUnmatched, unmatched.Status)
	assert.True(t, unmatched.ExpectedAmount.IsZero())
	missing := saved[1]
	assert.Equal(t, billing.ReconciliationStatusMissing, missing.Status)
	assert.True(t, missing.InvoicedAmount.IsZero())
	assert.True(t, missing.ExpectedAmount.Equal(decimal.NewFromInt(20)))
}

func TestReconciliationService_PrepareInvoiceMatching_RejectsNonPending(t *testing.T) {
	service, invoiceRepo, _, _, _, _, _ := newReconciliationServiceWithMocks()
	ctx := context.Background()

	invoice := testInvoice(t, uuid.New(), 100)
	invoice.Status = billing.InvoiceStatusReconciled
	invoiceRepo.On("FindByID", ctx, invoice.ID).Return(invoice, nil)

	summary, err := service.PrepareInvoiceMatching(ctx, invoice.ID, uuid.New())

	assert.Nil(t, summary)
	assert.Error(t, err)
}

func TestReconciliationService_CalculateVariance_DefaultTolerance(t *testing.T) {
	service, _, reconRepo, _, _, _, _ := newReconciliationServiceWithMocks()
	ctx := context.Background()
	invoiceID := uuid.New()
	key := billing.CostKey{Category: billing.CostCategoryStorage, Name: WeeklyStorageCostName}

	rec := &billing.Reconciliation{
		InvoiceID:      invoiceID,
		CostCategory:   key.Category,
		CostName:       key.Name,
		ExpectedAmount: decimal.NewFromInt(100),
		InvoicedAmount: decimal.NewFromInt(104),
		Status:         billing.ReconciliationStatusVariance,
	}
	reconRepo.On("FindByInvoiceAndKey", ctx, invoiceID, key).Return(rec, nil)

	result, err := service.CalculateVariance(ctx, invoiceID, key, nil)

	require.NoError(t, err)
	assert.True(t, result.Variance.Equal(decimal.NewFromInt(4)))
	assert.True(t, result.VariancePercentage.Equal(decimal.NewFromInt(4)))
	assert.True(t, result.IsWithinTolerance)
}

func TestReconciliationService_UpdateReconciliationStatus_LastResolutionReconcilesInvoice(t *testing.T) {
	service, invoiceRepo, reconRepo, _, _, _, audit := newReconciliationServiceWithMocks()
	ctx := context.Background()
	userID := uuid.New()

	invoice := testInvoice(t, uuid.New(), 100)
	invoice.Status = billing.InvoiceStatusReconciling

	rec := &billing.Reconciliation{
		InvoiceID:      invoice.ID,
		CostCategory:   billing.CostCategoryCarton,
		CostName:       "Carton outbound",
		ExpectedAmount: decimal.NewFromInt(80),
		InvoicedAmount: decimal.NewFromInt(95),
		Status:         billing.ReconciliationStatusVariance,
	}

	reconRepo.On("FindByID", ctx, rec.ID).Return(rec, nil)
	reconRepo.On("Update", ctx, rec).Return(nil)
	reconRepo.On("CountUnresolved", ctx, invoice.ID).Return(int64(0), nil)
	invoiceRepo.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
	invoiceRepo.On("UpdateStatus", ctx, invoice.ID, billing.InvoiceStatusReconciled).Return(nil)

	resolvedAmount := decimal.NewFromInt(80)
	updated, err := service.UpdateReconciliationStatus(ctx, rec.ID, billing.ReconciliationStatusResolved,
		"Supplier credit note agreed", &resolvedAmount, userID)

	require.NoError(t, err)
	assert.Equal(t, billing.ReconciliationStatusResolved, updated.Status)
	assert.Equal(t, "Supplier credit note agreed", updated.ResolutionNotes)
	require.NotNil(t, updated.ResolvedBy)
	assert.Equal(t, userID, *updated.ResolvedBy)
	require.Len(t, audit.Entries, 1)
	invoiceRepo.AssertExpectations(t)
	reconRepo.AssertExpectations(t)
}

func TestReconciliationService_UpdateReconciliationStatus_OpenRecordsLeaveInvoiceAlone(t *testing.T) {
	service, invoiceRepo, reconRepo, _, _, _, _ := newReconciliationServiceWithMocks()
	ctx := context.Background()

	rec := &billing.Reconciliation{
		InvoiceID:      uuid.New(),
		CostCategory:   billing.CostCategoryShipment,
		CostName:       "Shipment",
		ExpectedAmount: decimal.NewFromInt(10),
		InvoicedAmount: decimal.NewFromInt(20),
		Status:         billing.ReconciliationStatusUnmatched,
	}

	reconRepo.On("FindByID", ctx, rec.ID).Return(rec, nil)
	reconRepo.On("Update", ctx, rec).Return(nil)
	reconRepo.On("CountUnresolved", ctx, rec.InvoiceID).Return(int64(2), nil)

	_, err := service.UpdateReconciliationStatus(ctx, rec.ID, billing.ReconciliationStatusResolved,
		"Accepted as one-off", nil, uuid.New())

	require.NoError(t, err)
	invoiceRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciliationService_UpdateReconciliationStatus_MatchedIsTerminal(t *testing.T) {
	service, _, reconRepo, _, _, _, _ := newReconciliationServiceWithMocks()
	ctx := context.Background()

	rec := &billing.Reconciliation{
		InvoiceID: uuid.New(),
		Status:    billing.ReconciliationStatusMatched,
	}
	reconRepo.On("FindByID", ctx, rec.ID).Return(rec, nil)

	_, err := service.UpdateReconciliationStatus(ctx, rec.ID, billing.ReconciliationStatusResolved,
		"", nil, uuid.New())

	assert.Error(t, err)
	reconRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
