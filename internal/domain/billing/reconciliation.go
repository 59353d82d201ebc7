package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared"
)

// MatchedTolerance is the absolute currency-unit tolerance below which an
// invoiced amount is considered to match the expected amount.
var MatchedTolerance = decimal.NewFromFloat(0.01)

// DefaultVarianceTolerancePercent is the relative tolerance used when deciding
// whether a variance is immaterial.
var DefaultVarianceTolerancePercent = decimal.NewFromInt(5)

// ReconciliationStatus classifies the outcome of matching one invoice line
// item against the expected costs for the same period
type ReconciliationStatus string

const (
	// ReconciliationStatusMatched means invoiced and expected amounts agree within MatchedTolerance
	ReconciliationStatusMatched ReconciliationStatus = "matched"
	// ReconciliationStatusVariance means both sides exist but the amounts differ
	ReconciliationStatusVariance ReconciliationStatus = "variance"
	// ReconciliationStatusUnmatched means the supplier billed a charge the system has no expectation for
	ReconciliationStatusUnmatched ReconciliationStatus = "unmatched"
	// ReconciliationStatusMissing means the system expected a charge the supplier never billed
	ReconciliationStatusMissing ReconciliationStatus = "missing"
	// ReconciliationStatusResolved means a discrepancy was reviewed and closed
	ReconciliationStatusResolved ReconciliationStatus = "resolved"
)

// IsValid checks if the status is a known ReconciliationStatus
func (s ReconciliationStatus) IsValid() bool {
	switch s {
	case ReconciliationStatusMatched, ReconciliationStatusVariance,
		ReconciliationStatusUnmatched, ReconciliationStatusMissing,
		ReconciliationStatusResolved:
		return true
	}
	return false
}

// String returns the string representation of ReconciliationStatus
func (s ReconciliationStatus) String() string {
	return string(s)
}

// IsUnresolved reports whether the record still blocks the invoice from
// reaching the reconciled status
func (s ReconciliationStatus) IsUnresolved() bool {
	return s == ReconciliationStatusVariance ||
		s == ReconciliationStatusUnmatched ||
		s == ReconciliationStatusMissing
}

// Reconciliation is the comparison record between a system-expected cost and a
// supplier-invoiced line item. Created once per (invoice, category, name)
// pairing during matching; later mutated only by a resolution action or by
// auto-reconciliation.
type Reconciliation struct {
	shared.BaseEntity
	InvoiceID        uuid.UUID            `json:"invoice_id"`
	CostCategory     CostCategory         `json:"cost_category"`
	CostName         string               `json:"cost_name"`
	ExpectedAmount   decimal.Decimal      `json:"expected_amount"`
	InvoicedAmount   decimal.Decimal      `json:"invoiced_amount"`
	ExpectedQuantity decimal.Decimal      `json:"expected_quantity"`
	InvoicedQuantity decimal.Decimal      `json:"invoiced_quantity"`
	UnitRate         decimal.Decimal      `json:"unit_rate"`
	Difference       decimal.Decimal      `json:"difference"`
	Status           ReconciliationStatus `json:"status"`
	ResolutionNotes  string               `json:"resolution_notes,omitempty"`
	ResolvedAmount   *decimal.Decimal     `json:"resolved_amount,omitempty"`
	ResolvedBy       *uuid.UUID           `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time           `json:"resolved_at,omitempty"`
}

// NewReconciliationForLineItem compares a supplier line item against the
// expected cost for the same (category, name) key. A nil expected cost yields
// an unmatched record with a zero expected amount.
func NewReconciliationForLineItem(invoiceID uuid.UUID, item InvoiceLineItem, expected *AggregatedCost) *Reconciliation {
	rec := &Reconciliation{
		BaseEntity:       shared.NewBaseEntity(),
		InvoiceID:        invoiceID,
		CostCategory:     item.CostCategory,
		CostName:         item.CostName,
		InvoicedAmount:   item.Amount,
		InvoicedQuantity: item.Quantity,
		UnitRate:         item.UnitRate,
	}
	if expected == nil {
		rec.ExpectedAmount = decimal.Zero
		rec.ExpectedQuantity = decimal.Zero
		rec.Difference = item.Amount
		rec.Status = ReconciliationStatusUnmatched
		return rec
	}
	rec.ExpectedAmount = expected.TotalAmount
	rec.ExpectedQuantity = expected.Quantity
	rec.Difference = item.Amount.Sub(expected.TotalAmount)
	if rec.Difference.Abs().LessThanOrEqual(MatchedTolerance) {
		rec.Status = ReconciliationStatusMatched
	} else {
		rec.Status = ReconciliationStatusVariance
	}
	return rec
}

// NewMissingReconciliation records an expected cost the supplier never billed
func NewMissingReconciliation(invoiceID uuid.UUID, expected AggregatedCost) *Reconciliation {
	return &Reconciliation{
		BaseEntity:       shared.NewBaseEntity(),
		InvoiceID:        invoiceID,
		CostCategory:     expected.CostCategory,
		CostName:         expected.CostName,
		ExpectedAmount:   expected.TotalAmount,
		ExpectedQuantity: expected.Quantity,
		InvoicedAmount:   decimal.Zero,
		InvoicedQuantity: decimal.Zero,
		UnitRate:         expected.UnitRate,
		Difference:       expected.TotalAmount.Neg(),
		Status:           ReconciliationStatusMissing,
	}
}

// Resolve closes the record with a new status, notes and resolver. Only
// unresolved records can be resolved; matched records are terminal.
func (r *Reconciliation) Resolve(status ReconciliationStatus, notes string, resolvedAmount *decimal.Decimal, resolvedBy uuid.UUID) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", "Unknown reconciliation status: "+status.String())
	}
	if !r.Status.IsUnresolved() {
		return shared.NewDomainError("INVALID_STATE", "Only variance, unmatched or missing records can be resolved")
	}
	now := time.Now()
	r.Status = status
	r.ResolutionNotes = notes
	r.ResolvedAmount = resolvedAmount
	r.ResolvedBy = &resolvedBy
	r.ResolvedAt = &now
	r.UpdatedAt = now
	return nil
}

// VarianceResult describes how far an invoiced amount deviates from the
// expected amount for one reconciliation key
type VarianceResult struct {
	Variance           decimal.Decimal `json:"variance"`
	VariancePercentage decimal.Decimal `json:"variance_percentage"`
	IsWithinTolerance  bool            `json:"is_within_tolerance"`
}

// ComputeVariance calculates the variance between invoiced and expected
// amounts, relative to the expected amount. When the expected amount is zero
// the percentage is defined as 100 (a fully unexpected charge), never NaN.
func ComputeVariance(expected, invoiced, tolerancePercent decimal.Decimal) VarianceResult {
	variance := invoiced.Sub(expected)
	var pct decimal.Decimal
	if expected.IsZero() {
		pct = decimal.NewFromInt(100)
	} else {
		pct = variance.Abs().Div(expected.Abs()).Mul(decimal.NewFromInt(100))
	}
	return VarianceResult{
		Variance:           variance,
		VariancePercentage: pct,
		IsWithinTolerance:  pct.LessThanOrEqual(tolerancePercent),
	}
}
