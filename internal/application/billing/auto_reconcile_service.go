package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/billing"
	"go.uber.org/zap"
)

// AutoReconcileResult summarizes one auto-reconciliation batch
type AutoReconcileResult struct {
	Processed  int `json:"processed"`
	Reconciled int `json:"reconciled"`
}

// AutoReconcileService closes out invoices whose remaining variances are all
// within a percentage tolerance, saving reviewers from clicking through
// immaterial differences.
type AutoReconcileService struct {
	invoiceRepo billing.InvoiceRepository
	reconRepo   billing.ReconciliationRepository
	audit       AuditLogger
	logger      *zap.Logger
}

// NewAutoReconcileService creates a new AutoReconcileService
func NewAutoReconcileService(
	invoiceRepo billing.InvoiceRepository,
	reconRepo billing.ReconciliationRepository,
	audit AuditLogger,
	logger *zap.Logger,
) *AutoReconcileService {
	return &AutoReconcileService{
		invoiceRepo: invoiceRepo,
		reconRepo:   reconRepo,
		audit:       audit,
		logger:      logger,
	}
}

// AutoReconcileInvoices walks every reconciling invoice for the warehouse and,
// where all variance records fall within tolerancePercent, resolves them in
// bulk and advances the invoice to reconciled. An invoice with no variance
// records, or with even one out-of-tolerance variance, is left untouched;
// there is no partial resolution. A nil tolerancePercent uses the default.
func (s *AutoReconcileService) AutoReconcileInvoices(ctx context.Context, warehouseID uuid.UUID, tolerancePercent *decimal.Decimal, userID uuid.UUID) (*AutoReconcileResult, error) {
	tolerance := billing.DefaultVarianceTolerancePercent
	if tolerancePercent != nil {
		tolerance = *tolerancePercent
	}

	invoices, err := s.invoiceRepo.FindByWarehouseAndStatus(ctx, warehouseID, billing.InvoiceStatusReconciling)
	if err != nil {
		return nil, err
	}

	result := &AutoReconcileResult{}
	for i := range invoices {
		result.Processed++
		reconciled, err := s.autoReconcileInvoice(ctx, &invoices[i], tolerance, userID)
		if err != nil {
			return nil, err
		}
		if reconciled {
			result.Reconciled++
		}
	}

	s.audit.Record(ctx, AuditEntry{
		EntityType: "warehouse",
		EntityID:   warehouseID,
		Action:     "auto_reconcile",
		UserID:     userID,
		Data: map[string]any{
			"tolerance_percent": tolerance.String(),
			"processed":         result.Processed,
			"reconciled":        result.Reconciled,
		},
	})
	s.logger.Info("auto-reconciliation batch finished",
		zap.String("warehouse_id", warehouseID.String()),
		zap.Int("processed", result.Processed),
		zap.Int("reconciled", result.Reconciled))

	return result, nil
}

func (s *AutoReconcileService) autoReconcileInvoice(ctx context.Context, invoice *billing.Invoice, tolerance decimal.Decimal, userID uuid.UUID) (bool, error) {
	variances, err := s.reconRepo.FindByInvoice(ctx, invoice.ID, billing.ReconciliationStatusVariance)
	if err != nil {
		return false, err
	}
	if len(variances) == 0 {
		return false, nil
	}

	ids := make([]uuid.UUID, 0, len(variances))
	for _, rec := range variances {
		v := billing.ComputeVariance(rec.ExpectedAmount, rec.InvoicedAmount, tolerance)
		if !v.IsWithinTolerance {
			return false, nil
		}
		ids = append(ids, rec.ID)
	}

	notes := fmt.Sprintf("Auto-reconciled: variance within %s%% tolerance", tolerance.String())
	if err := s.reconRepo.BulkResolve(ctx, ids, notes, userID); err != nil {
		return false, err
	}

	// Unmatched or missing records may still be open even though every
	// variance cleared; those keep the invoice in review.
	open, err := s.reconRepo.CountUnresolved(ctx, invoice.ID)
	if err != nil {
		return false, err
	}
	if open > 0 {
		return false, nil
	}

	if err := invoice.TransitionTo(billing.InvoiceStatusReconciled); err != nil {
		return false, err
	}
	if err := s.invoiceRepo.UpdateStatus(ctx, invoice.ID, invoice.Status); err != nil {
		return false, err
	}
	return true, nil
}
