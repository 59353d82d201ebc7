package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/wms/backend/internal/domain/billing"
	"go.uber.org/zap"
)

// MockCostRateRepository is a mock implementation of CostRateRepository
type MockCostRateRepository struct {
	mock.Mock
}

func (m *MockCostRateRepository) FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]billing.CostRate, error) {
	args := m.Called(ctx, warehouseID)
	return args.Get(0).([]billing.CostRate), args.Error(1)
}

func (m *MockCostRateRepository) FindEffective(ctx context.Context, warehouseID uuid.UUID, category billing.CostCategory, asOf time.Time) ([]billing.CostRate, error) {
	args := m.Called(ctx, warehouseID, category, asOf)
	return args.Get(0).([]billing.CostRate), args.Error(1)
}

func (m *MockCostRateRepository) Save(ctx context.Context, rate *billing.CostRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

func (m *MockCostRateRepository) Supersede(ctx context.Context, oldRateID uuid.UUID, closeAt time.Time, replacement *billing.CostRate) error {
	args := m.Called(ctx, oldRateID, closeAt, replacement)
	return args.Error(0)
}

// MockInventoryTransactionRepository is a mock implementation of InventoryTransactionRepository
type MockInventoryTransactionRepository struct {
	mock.Mock
}

func (m *MockInventoryTransactionRepository) FindByWarehouseAndPeriod(ctx context.Context, warehouseID uuid.UUID, period billing.BillingPeriod, types ...billing.TransactionType) ([]billing.InventoryTransaction, error) {
	args := m.Called(ctx, warehouseID, period, types)
	return args.Get(0).([]billing.InventoryTransaction), args.Error(1)
}

func (m *MockInventoryTransactionRepository) Save(ctx context.Context, tx *billing.InventoryTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// MockStorageLedgerRepository is a mock implementation of StorageLedgerRepository
type MockStorageLedgerRepository struct {
	mock.Mock
}

func (m *MockStorageLedgerRepository) FindByWarehouseAndPeriod(ctx context.Context, warehouseID uuid.UUID, period billing.BillingPeriod) ([]billing.StorageLedgerEntry, error) {
	args := m.Called(ctx, warehouseID, period)
	return args.Get(0).([]billing.StorageLedgerEntry), args.Error(1)
}

func (m *MockStorageLedgerRepository) Save(ctx context.Context, entry *billing.StorageLedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockInvoiceRepository is a mock implementation of InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByWarehouseAndStatus(ctx context.Context, warehouseID uuid.UUID, status billing.InvoiceStatus) ([]billing.Invoice, error) {
	args := m.Called(ctx, warehouseID, status)
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status billing.InvoiceStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveMatchingResult(ctx context.Context, invoice *billing.Invoice, reconciliations []billing.Reconciliation) error {
	args := m.Called(ctx, invoice, reconciliations)
	return args.Error(0)
}

// MockReconciliationRepository is a mock implementation of ReconciliationRepository
type MockReconciliationRepository struct {
	mock.Mock
}

func (m *MockReconciliationRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Reconciliation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Reconciliation), args.Error(1)
}

func (m *MockReconciliationRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID, statuses ...billing.ReconciliationStatus) ([]billing.Reconciliation, error) {
	args := m.Called(ctx, invoiceID, statuses)
	return args.Get(0).([]billing.Reconciliation), args.Error(1)
}

func (m *MockReconciliationRepository) FindByInvoiceAndKey(ctx context.Context, invoiceID uuid.UUID, key billing.CostKey) (*billing.Reconciliation, error) {
	args := m.Called(ctx, invoiceID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Reconciliation), args.Error(1)
}

func (m *MockReconciliationRepository) Update(ctx context.Context, rec *billing.Reconciliation) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockReconciliationRepository) CountUnresolved(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReconciliationRepository) BulkResolve(ctx context.Context, ids []uuid.UUID, notes string, resolvedBy uuid.UUID) error {
	args := m.Called(ctx, ids, notes, resolvedBy)
	return args.Error(0)
}

// MockAuditLogger records entries for inspection
type MockAuditLogger struct {
	Entries []AuditEntry
}

func (m *MockAuditLogger) Record(ctx context.Context, entry AuditEntry) {
	m.Entries = append(m.Entries, entry)
}

func newTestLogger() *zap.Logger {
	return zap.NewNop()
}
