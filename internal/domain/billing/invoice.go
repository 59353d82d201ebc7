package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared"
)

// InvoiceStatus represents the reconciliation lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending     InvoiceStatus = "pending"
	InvoiceStatusReconciling InvoiceStatus = "reconciling"
	InvoiceStatusReconciled  InvoiceStatus = "reconciled"
	InvoiceStatusDisputed    InvoiceStatus = "disputed"
	InvoiceStatusPaid        InvoiceStatus = "paid"
)

// IsValid checks if the status is a known InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusReconciling, InvoiceStatusReconciled,
		InvoiceStatusDisputed, InvoiceStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the status machine allows moving to target.
// Transitions are forward-only: reopening a reconciled invoice is an external
// administrative action, not part of this core.
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	switch s {
	case InvoiceStatusPending:
		return target == InvoiceStatusReconciling || target == InvoiceStatusDisputed
	case InvoiceStatusReconciling:
		return target == InvoiceStatusReconciled
	case InvoiceStatusReconciled:
		return target == InvoiceStatusDisputed || target == InvoiceStatusPaid
	}
	return false
}

// InvoiceLineItem is one charge as billed by the supplier. Line items are
// immutable once the invoice is created.
type InvoiceLineItem struct {
	ID           uuid.UUID       `json:"id"`
	InvoiceID    uuid.UUID       `json:"invoice_id"`
	CostCategory CostCategory    `json:"cost_category"`
	CostName     string          `json:"cost_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitRate     decimal.Decimal `json:"unit_rate"`
	Amount       decimal.Decimal `json:"amount"`
}

// Key returns the matching key for the line item
func (li InvoiceLineItem) Key() CostKey {
	return CostKey{Category: li.CostCategory, Name: li.CostName}
}

// Invoice is a supplier invoice aggregate root. It owns its line items and the
// reconciliation records produced by matching; they are deleted together.
type Invoice struct {
	shared.BaseAggregateRoot
	WarehouseID        uuid.UUID         `json:"warehouse_id"`
	InvoiceNumber      string            `json:"invoice_number"`
	BillingPeriodStart time.Time         `json:"billing_period_start"`
	BillingPeriodEnd   time.Time         `json:"billing_period_end"`
	TotalAmount        decimal.Decimal   `json:"total_amount"`
	Status             InvoiceStatus     `json:"status"`
	LineItems          []InvoiceLineItem `json:"line_items"`
}

// NewInvoice creates a pending invoice for a billing period
func NewInvoice(warehouseID uuid.UUID, invoiceNumber string, period BillingPeriod, totalAmount decimal.Decimal) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invoice number cannot be empty")
	}
	if !period.End.After(period.Start) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Billing period end must be after start")
	}
	return &Invoice{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		WarehouseID:        warehouseID,
		InvoiceNumber:      invoiceNumber,
		BillingPeriodStart: period.Start,
		BillingPeriodEnd:   period.End,
		TotalAmount:        totalAmount,
		Status:             InvoiceStatusPending,
	}, nil
}

// AddLineItem appends a supplier-billed charge. Only allowed while pending,
// since line items represent what the supplier billed and are immutable after
// reconciliation starts.
func (inv *Invoice) AddLineItem(category CostCategory, name string, quantity, unitRate, amount decimal.Decimal) error {
	if inv.Status != InvoiceStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Cannot add line items after reconciliation has started")
	}
	if !category.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", "Invalid cost category")
	}
	inv.LineItems = append(inv.LineItems, InvoiceLineItem{
		ID:           uuid.New(),
		InvoiceID:    inv.ID,
		CostCategory: category,
		CostName:     name,
		Quantity:     quantity,
		UnitRate:     unitRate,
		Amount:       amount,
	})
	inv.Touch()
	return nil
}

// BillingPeriod returns the invoice's billing window
func (inv *Invoice) BillingPeriod() BillingPeriod {
	return BillingPeriod{Start: inv.BillingPeriodStart, End: inv.BillingPeriodEnd}
}

// TransitionTo moves the invoice to the target status, validating the
// transition against the status machine
func (inv *Invoice) TransitionTo(target InvoiceStatus) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", "Unknown invoice status: "+target.String())
	}
	if !inv.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot transition invoice from %s to %s", inv.Status, target))
	}
	inv.Status = target
	inv.IncrementVersion()
	inv.Touch()
	return nil
}
