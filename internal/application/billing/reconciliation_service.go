package billing

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/billing"
	"github.com/wms/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MatchingSummary reports the outcome of matching one invoice against the
// expected costs for its billing period
type MatchingSummary struct {
	InvoiceID       uuid.UUID             `json:"invoice_id"`
	InvoiceStatus   billing.InvoiceStatus `json:"invoice_status"`
	TotalExpected   decimal.Decimal       `json:"total_expected"`
	TotalInvoiced   decimal.Decimal       `json:"total_invoiced"`
	TotalDifference decimal.Decimal       `json:"total_difference"`
	Matched         int                   `json:"matched"`
	Variance        int                   `json:"variance"`
	Unmatched       int                   `json:"unmatched"`
	Missing         int                   `json:"missing"`

	Reconciliations []billing.Reconciliation `json:"reconciliations"`
}

// ReconciliationService matches supplier invoices against system-expected
// costs and manages the resulting reconciliation records.
type ReconciliationService struct {
	invoiceRepo billing.InvoiceRepository
	reconRepo   billing.ReconciliationRepository
	costService *CostAggregationService
	audit       AuditLogger
	logger      *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	invoiceRepo billing.InvoiceRepository,
	reconRepo billing.ReconciliationRepository,
	costService *CostAggregationService,
	audit AuditLogger,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		invoiceRepo: invoiceRepo,
		reconRepo:   reconRepo,
		costService: costService,
		audit:       audit,
		logger:      logger,
	}
}

// PrepareInvoiceMatching runs the matching procedure for a pending invoice:
// it computes the expected costs for the invoice's billing period, compares
// every supplier line item against them, records a missing reconciliation for
// every expected cost the supplier never billed, and moves the invoice to
// reconciling when any record needs review. The reconciliations and the status
// change are persisted atomically.
//
// Matching is keyed by (category, name). Storage is matched as a single
// aggregate entry because suppliers bill storage as one weekly line, not per
// ledger snapshot.
func (s *ReconciliationService) PrepareInvoiceMatching(ctx context.Context, invoiceID uuid.UUID, userID uuid.UUID) (*MatchingSummary, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != billing.InvoiceStatusPending {
		return nil, shared.NewDomainError("INVALID_STATE",
			"Only pending invoices can be matched, invoice is "+invoice.Status.String())
	}

	expected, err := s.expectedCosts(ctx, invoice.WarehouseID, invoice.BillingPeriod())
	if err != nil {
		return nil, err
	}

	reconciliations := make([]billing.Reconciliation, 0, len(invoice.LineItems)+len(expected))
	for _, item := range invoice.LineItems {
		key := item.Key()
		var match *billing.AggregatedCost
		if cost, ok := expected[key]; ok {
			match = &cost
			delete(expected, key)
		}
		reconciliations = append(reconciliations, *billing.NewReconciliationForLineItem(invoice.ID, item, match))
	}

	// Whatever is left in the expected map was never billed.
	for _, key := range sortedCostKeys(expected) {
		reconciliations = append(reconciliations, *billing.NewMissingReconciliation(invoice.ID, expected[key]))
	}

	summary := summarize(invoice.ID, reconciliations)

	// A perfectly matched invoice stays pending; only discrepancies put it
	// into review.
	if summary.Variance > 0 || summary.Unmatched > 0 || summary.Missing > 0 {
		if err := invoice.TransitionTo(billing.InvoiceStatusReconciling); err != nil {
			return nil, err
		}
	}

	if err := s.invoiceRepo.SaveMatchingResult(ctx, invoice, reconciliations); err != nil {
		return nil, err
	}
	summary.InvoiceStatus = invoice.Status

	s.audit.Record(ctx, AuditEntry{
		EntityType: "invoice",
		EntityID:   invoice.ID,
		Action:     "matching_prepared",
		UserID:     userID,
		Data: map[string]any{
			"matched":   summary.Matched,
			"variance":  summary.Variance,
			"unmatched": summary.Unmatched,
			"missing":   summary.Missing,
		},
	})
	s.logger.Info("invoice matching prepared",
		zap.String("invoice_id", invoice.ID.String()),
		zap.Int("matched", summary.Matched),
		zap.Int("variance", summary.Variance),
		zap.Int("unmatched", summary.Unmatched),
		zap.Int("missing", summary.Missing))

	return summary, nil
}

// GetInvoice returns an invoice with its line items and any reconciliation
// records produced by matching
func (s *ReconciliationService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*billing.Invoice, []billing.Reconciliation, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	recs, err := s.reconRepo.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	return invoice, recs, nil
}

// CalculateVariance computes the variance for one reconciliation key of an
// invoice, using the default tolerance when tolerancePercent is nil.
func (s *ReconciliationService) CalculateVariance(ctx context.Context, invoiceID uuid.UUID, key billing.CostKey, tolerancePercent *decimal.Decimal) (*billing.VarianceResult, error) {
	rec, err := s.reconRepo.FindByInvoiceAndKey(ctx, invoiceID, key)
	if err != nil {
		return nil, err
	}
	tolerance := billing.DefaultVarianceTolerancePercent
	if tolerancePercent != nil {
		tolerance = *tolerancePercent
	}
	result := billing.ComputeVariance(rec.ExpectedAmount, rec.InvoicedAmount, tolerance)
	return &result, nil
}

// UpdateReconciliationStatus resolves a discrepancy record. When the
// resolution leaves the invoice with no unresolved records, the invoice
// advances to reconciled.
func (s *ReconciliationService) UpdateReconciliationStatus(ctx context.Context, reconciliationID uuid.UUID, status billing.ReconciliationStatus, notes string, resolvedAmount *decimal.Decimal, userID uuid.UUID) (*billing.Reconciliation, error) {
	rec, err := s.reconRepo.FindByID(ctx, reconciliationID)
	if err != nil {
		return nil, err
	}

	if err := rec.Resolve(status, notes, resolvedAmount, userID); err != nil {
		return nil, err
	}
	if err := s.reconRepo.Update(ctx, rec); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		EntityType: "reconciliation",
		EntityID:   rec.ID,
		Action:     "resolved",
		UserID:     userID,
		Data: map[string]any{
			"status": status.String(),
			"notes":  notes,
		},
	})

	if err := s.maybeCompleteInvoice(ctx, rec.InvoiceID); err != nil {
		return nil, err
	}
	return rec, nil
}

// maybeCompleteInvoice advances a reconciling invoice to reconciled once every
// discrepancy record has been closed. Invoices in any other status are left
// untouched.
func (s *ReconciliationService) maybeCompleteInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	open, err := s.reconRepo.CountUnresolved(ctx, invoiceID)
	if err != nil {
		return err
	}
	if open > 0 {
		return nil
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice.Status != billing.InvoiceStatusReconciling {
		return nil
	}
	if err := invoice.TransitionTo(billing.InvoiceStatusReconciled); err != nil {
		return err
	}
	if err := s.invoiceRepo.UpdateStatus(ctx, invoice.ID, invoice.Status); err != nil {
		return err
	}
	s.logger.Info("invoice fully reconciled", zap.String("invoice_id", invoiceID.String()))
	return nil
}

// expectedCosts builds the expected-cost map for matching: per-category
// transaction charges plus the storage ledger folded into a single
// (storage, Weekly Storage) entry.
func (s *ReconciliationService) expectedCosts(ctx context.Context, warehouseID uuid.UUID, period billing.BillingPeriod) (map[billing.CostKey]billing.AggregatedCost, error) {
	transactional, err := s.costService.CalculateTransactionCosts(ctx, warehouseID, period)
	if err != nil {
		return nil, err
	}
	expected := billing.MergeCosts(transactional)

	storage, err := s.costService.WeeklyStorageCost(ctx, warehouseID, period)
	if err != nil {
		return nil, err
	}
	if storage != nil {
		expected[storage.Key()] = *storage
	}
	return expected, nil
}

func summarize(invoiceID uuid.UUID, recs []billing.Reconciliation) *MatchingSummary {
	summary := &MatchingSummary{InvoiceID: invoiceID, Reconciliations: recs}
	for _, rec := range recs {
		summary.TotalExpected = summary.TotalExpected.Add(rec.ExpectedAmount)
		summary.TotalInvoiced = summary.TotalInvoiced.Add(rec.InvoicedAmount)
		switch rec.Status {
		case billing.ReconciliationStatusMatched:
			summary.Matched++
		case billing.ReconciliationStatusVariance:
			summary.Variance++
		case billing.ReconciliationStatusUnmatched:
			summary.Unmatched++
		case billing.ReconciliationStatusMissing:
			summary.Missing++
		}
	}
	summary.TotalDifference = summary.TotalInvoiced.Sub(summary.TotalExpected)
	return summary
}

func sortedCostKeys(costs map[billing.CostKey]billing.AggregatedCost) []billing.CostKey {
	keys := make([]billing.CostKey, 0, len(costs))
	for k := range costs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Category != keys[j].Category {
			return keys[i].Category < keys[j].Category
		}
		return keys[i].Name < keys[j].Name
	})
	return keys
}
