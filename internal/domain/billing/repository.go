package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CostRateRepository manages the time-versioned rate table
type CostRateRepository interface {
	// FindByWarehouse returns every rate configured for the warehouse
	FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]CostRate, error)
	// FindEffective returns the rates for a category whose effective window
	// contains asOf. The slice may hold more than one entry when the rate
	// table contains overlaps; callers resolve via ResolveRate.
	FindEffective(ctx context.Context, warehouseID uuid.UUID, category CostCategory, asOf time.Time) ([]CostRate, error)
	Save(ctx context.Context, rate *CostRate) error
	// Supersede closes the old rate's effective window and inserts its
	// replacement in a single transaction
	Supersede(ctx context.Context, oldRateID uuid.UUID, closeAt time.Time, replacement *CostRate) error
}

// InventoryTransactionRepository provides read access to the immutable
// transaction history
type InventoryTransactionRepository interface {
	// FindByWarehouseAndPeriod returns the transactions dated within the
	// period, optionally filtered by type
	FindByWarehouseAndPeriod(ctx context.Context, warehouseID uuid.UUID, period BillingPeriod, types ...TransactionType) ([]InventoryTransaction, error)
	Save(ctx context.Context, tx *InventoryTransaction) error
}

// StorageLedgerRepository provides read access to the append-only storage
// snapshot ledger
type StorageLedgerRepository interface {
	FindByWarehouseAndPeriod(ctx context.Context, warehouseID uuid.UUID, period BillingPeriod) ([]StorageLedgerEntry, error)
	Save(ctx context.Context, entry *StorageLedgerEntry) error
}

// InvoiceRepository manages invoice aggregates with their line items and
// reconciliations
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByWarehouseAndStatus(ctx context.Context, warehouseID uuid.UUID, status InvoiceStatus) ([]Invoice, error)
	Save(ctx context.Context, invoice *Invoice) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status InvoiceStatus) error
	// SaveMatchingResult persists the reconciliations produced by invoice
	// matching together with the invoice's status change as one atomic unit.
	// A partial write would leave inconsistent state visible to readers.
	SaveMatchingResult(ctx context.Context, invoice *Invoice, reconciliations []Reconciliation) error
}

// ReconciliationRepository manages reconciliation records owned by invoices
type ReconciliationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Reconciliation, error)
	// FindByInvoice returns the invoice's reconciliations, optionally
	// restricted to the given statuses
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID, statuses ...ReconciliationStatus) ([]Reconciliation, error)
	FindByInvoiceAndKey(ctx context.Context, invoiceID uuid.UUID, key CostKey) (*Reconciliation, error)
	Update(ctx context.Context, rec *Reconciliation) error
	// CountUnresolved counts the variance, unmatched and missing records
	// still open for the invoice
	CountUnresolved(ctx context.Context, invoiceID uuid.UUID) (int64, error)
	// BulkResolve marks all given records resolved with a shared note, as one
	// atomic update
	BulkResolve(ctx context.Context, ids []uuid.UUID, notes string, resolvedBy uuid.UUID) error
}
