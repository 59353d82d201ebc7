package handler

import (
	"context"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appbilling "github.com/wms/backend/internal/application/billing"
	"github.com/wms/backend/internal/domain/billing"
	"github.com/wms/backend/internal/infrastructure/resilience"
)

// BillingHandler handles billing and reconciliation API endpoints
type BillingHandler struct {
	BaseHandler
	costService      *appbilling.CostAggregationService
	reconService     *appbilling.ReconciliationService
	autoService      *appbilling.AutoReconcileService
	operationTimeout time.Duration
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(
	costService *appbilling.CostAggregationService,
	reconService *appbilling.ReconciliationService,
	autoService *appbilling.AutoReconcileService,
	operationTimeout time.Duration,
) *BillingHandler {
	return &BillingHandler{
		costService:      costService,
		reconService:     reconService,
		autoService:      autoService,
		operationTimeout: operationTimeout,
	}
}

// ===================== Request/Response DTOs =====================

// CostDetailResponse represents one per-SKU/batch breakdown line
type CostDetailResponse struct {
	SKUID           string  `json:"sku_id,omitempty"`
	BatchLot        string  `json:"batch_lot,omitempty"`
	TransactionType string  `json:"transaction_type,omitempty"`
	Count           float64 `json:"count"`
}

// AggregatedCostResponse represents an expected charge in API responses
type AggregatedCostResponse struct {
	WarehouseID  string               `json:"warehouse_id"`
	CostCategory string               `json:"cost_category"`
	CostName     string               `json:"cost_name"`
	Quantity     float64              `json:"quantity"`
	UnitRate     float64              `json:"unit_rate"`
	TotalAmount  float64              `json:"total_amount"`
	Details      []CostDetailResponse `json:"details,omitempty"`
}

// CostsResponse represents the aggregated costs for a billing period
type CostsResponse struct {
	WarehouseID string                   `json:"warehouse_id"`
	PeriodStart time.Time                `json:"period_start"`
	PeriodEnd   time.Time                `json:"period_end"`
	Costs       []AggregatedCostResponse `json:"costs"`
}

// CostSummaryResponse represents costs merged by (category, name) key
type CostSummaryResponse struct {
	WarehouseID string                   `json:"warehouse_id"`
	PeriodStart time.Time                `json:"period_start"`
	PeriodEnd   time.Time                `json:"period_end"`
	TotalAmount float64                  `json:"total_amount"`
	Costs       []AggregatedCostResponse `json:"costs"`
}

// InvoiceLineItemResponse represents a supplier-billed charge
type InvoiceLineItemResponse struct {
	ID           string  `json:"id"`
	CostCategory string  `json:"cost_category"`
	CostName     string  `json:"cost_name"`
	Quantity     float64 `json:"quantity"`
	UnitRate     float64 `json:"unit_rate"`
	Amount       float64 `json:"amount"`
}

// ReconciliationResponse represents a reconciliation record
type ReconciliationResponse struct {
	ID               string     `json:"id"`
	InvoiceID        string     `json:"invoice_id"`
	CostCategory     string     `json:"cost_category"`
	CostName         string     `json:"cost_name"`
	ExpectedAmount   float64    `json:"expected_amount"`
	InvoicedAmount   float64    `json:"invoiced_amount"`
	ExpectedQuantity float64    `json:"expected_quantity"`
	InvoicedQuantity float64    `json:"invoiced_quantity"`
	UnitRate         float64    `json:"unit_rate"`
	Difference       float64    `json:"difference"`
	Status           string     `json:"status"`
	ResolutionNotes  string     `json:"resolution_notes,omitempty"`
	ResolvedAmount   *float64   `json:"resolved_amount,omitempty"`
	ResolvedBy       *string    `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
}

// InvoiceResponse represents an invoice with its line items and reconciliations
type InvoiceResponse struct {
	ID                 string                    `json:"id"`
	WarehouseID        string                    `json:"warehouse_id"`
	InvoiceNumber      string                    `json:"invoice_number"`
	BillingPeriodStart time.Time                 `json:"billing_period_start"`
	BillingPeriodEnd   time.Time                 `json:"billing_period_end"`
	TotalAmount        float64                   `json:"total_amount"`
	Status             string                    `json:"status"`
	LineItems          []InvoiceLineItemResponse `json:"line_items"`
	Reconciliations    []ReconciliationResponse  `json:"reconciliations,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

// MatchingSummaryResponse represents the outcome of invoice matching
type MatchingSummaryResponse struct {
	InvoiceID       string                   `json:"invoice_id"`
	InvoiceStatus   string                   `json:"invoice_status"`
	TotalExpected   float64                  `json:"total_expected"`
	TotalInvoiced   float64                  `json:"total_invoiced"`
	TotalDifference float64                  `json:"total_difference"`
	Matched         int                      `json:"matched"`
	Variance        int                      `json:"variance"`
	Unmatched       int                      `json:"unmatched"`
	Missing         int                      `json:"missing"`
	Reconciliations []ReconciliationResponse `json:"reconciliations"`
}

// VarianceRequest identifies one reconciliation key
type VarianceRequest struct {
	Category  string   `form:"category" binding:"required"`
	Name      string   `form:"name" binding:"required"`
	Tolerance *float64 `form:"tolerance"`
}

// VarianceResponse represents a variance calculation result
type VarianceResponse struct {
	Variance           float64 `json:"variance"`
	VariancePercentage float64 `json:"variance_percentage"`
	IsWithinTolerance  bool    `json:"is_within_tolerance"`
}

// UpdateReconciliationStatusRequest carries a resolution action
type UpdateReconciliationStatusRequest struct {
	Status         string   `json:"status" binding:"required"`
	Notes          string   `json:"notes"`
	ResolvedAmount *float64 `json:"resolved_amount"`
}

// AutoReconcileRequest carries auto-reconciliation options
type AutoReconcileRequest struct {
	TolerancePercent *float64 `json:"tolerance_percent"`
}

// AutoReconcileResponse represents an auto-reconciliation batch outcome
type AutoReconcileResponse struct {
	Processed  int `json:"processed"`
	Reconciled int `json:"reconciled"`
}

// ===================== Endpoints =====================

// GetCosts handles GET /warehouses/:id/costs. The optional date query
// parameter (YYYY-MM-DD) selects the billing period containing it; the current
// period is used when absent.
func (h *BillingHandler) GetCosts(c *gin.Context) {
	warehouseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid warehouse ID format")
		return
	}
	period, err := periodFromQuery(c)
	if err != nil {
		h.BadRequest(c, "Invalid date format, expected YYYY-MM-DD")
		return
	}

	costs, err := resilience.WithTimeout(func(ctx context.Context) ([]billing.AggregatedCost, error) {
		return h.costService.CalculateCosts(ctx, warehouseID, period)
	}, h.operationTimeout)(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, CostsResponse{
		WarehouseID: warehouseID.String(),
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		Costs:       toAggregatedCostResponses(costs),
	})
}

// GetCostsSummary handles GET /warehouses/:id/costs/summary
func (h *BillingHandler) GetCostsSummary(c *gin.Context) {
	warehouseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid warehouse ID format")
		return
	}
	period, err := periodFromQuery(c)
	if err != nil {
		h.BadRequest(c, "Invalid date format, expected YYYY-MM-DD")
		return
	}

	summary, err := resilience.WithTimeout(func(ctx context.Context) (map[billing.CostKey]billing.AggregatedCost, error) {
		return h.costService.AggregateCostsSummary(ctx, warehouseID, period)
	}, h.operationTimeout)(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	merged := make([]billing.AggregatedCost, 0, len(summary))
	total := decimal.Zero
	for _, cost := range summary {
		merged = append(merged, cost)
		total = total.Add(cost.TotalAmount)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].CostCategory != merged[j].CostCategory {
			return merged[i].CostCategory < merged[j].CostCategory
		}
		return merged[i].CostName < merged[j].CostName
	})

	h.Success(c, CostSummaryResponse{
		WarehouseID: warehouseID.String(),
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		TotalAmount: total.InexactFloat64(),
		Costs:       toAggregatedCostResponses(merged),
	})
}

// GetInvoice handles GET /invoices/:id
func (h *BillingHandler) GetInvoice(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, recs, err := h.reconService.GetInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice, recs))
}

// PrepareMatching handles POST /invoices/:id/matching
func (h *BillingHandler) PrepareMatching(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid X-User-ID header")
		return
	}

	summary, err := resilience.WithTimeout(func(ctx context.Context) (*appbilling.MatchingSummary, error) {
		return h.reconService.PrepareInvoiceMatching(ctx, invoiceID, userID)
	}, h.operationTimeout)(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toMatchingSummaryResponse(summary))
}

// GetVariance handles GET /invoices/:id/variance
func (h *BillingHandler) GetVariance(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}
	var req VarianceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	category, err := billing.ParseCostCategory(req.Category)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var tolerance *decimal.Decimal
	if req.Tolerance != nil {
		d := decimal.NewFromFloat(*req.Tolerance)
		tolerance = &d
	}

	result, err := h.reconService.CalculateVariance(c.Request.Context(), invoiceID,
		billing.CostKey{Category: category, Name: req.Name}, tolerance)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, VarianceResponse{
		Variance:           result.Variance.InexactFloat64(),
		VariancePercentage: result.VariancePercentage.InexactFloat64(),
		IsWithinTolerance:  result.IsWithinTolerance,
	})
}

// UpdateReconciliationStatus handles PUT /reconciliations/:id/status
func (h *BillingHandler) UpdateReconciliationStatus(c *gin.Context) {
	reconciliationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reconciliation ID format")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid X-User-ID header")
		return
	}
	var req UpdateReconciliationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	var resolvedAmount *decimal.Decimal
	if req.ResolvedAmount != nil {
		d := decimal.NewFromFloat(*req.ResolvedAmount)
		resolvedAmount = &d
	}

	rec, err := h.reconService.UpdateReconciliationStatus(c.Request.Context(),
		reconciliationID, billing.ReconciliationStatus(req.Status), req.Notes, resolvedAmount, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toReconciliationResponse(*rec))
}

// AutoReconcile handles POST /warehouses/:id/auto-reconcile
func (h *BillingHandler) AutoReconcile(c *gin.Context) {
	warehouseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid warehouse ID format")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid X-User-ID header")
		return
	}
	var req AutoReconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}
	var tolerance *decimal.Decimal
	if req.TolerancePercent != nil {
		d := decimal.NewFromFloat(*req.TolerancePercent)
		tolerance = &d
	}

	result, err := resilience.WithTimeout(func(ctx context.Context) (*appbilling.AutoReconcileResult, error) {
		return h.autoService.AutoReconcileInvoices(ctx, warehouseID, tolerance, userID)
	}, h.operationTimeout)(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, AutoReconcileResponse{
		Processed:  result.Processed,
		Reconciled: result.Reconciled,
	})
}

// ===================== Conversions =====================

func periodFromQuery(c *gin.Context) (billing.BillingPeriod, error) {
	ref := time.Now().UTC()
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return billing.BillingPeriod{}, err
		}
		ref = parsed
	}
	return billing.BillingPeriodFor(ref), nil
}

func toAggregatedCostResponses(costs []billing.AggregatedCost) []AggregatedCostResponse {
	responses := make([]AggregatedCostResponse, len(costs))
	for i, cost := range costs {
		details := make([]CostDetailResponse, len(cost.Details))
		for j, d := range cost.Details {
			details[j] = CostDetailResponse{
				SKUID:           d.SKUID,
				BatchLot:        d.BatchLot,
				TransactionType: d.TransactionType.String(),
				Count:           d.Count.InexactFloat64(),
			}
		}
		responses[i] = AggregatedCostResponse{
			WarehouseID:  cost.WarehouseID.String(),
			CostCategory: cost.CostCategory.String(),
			CostName:     cost.CostName,
			Quantity:     cost.Quantity.InexactFloat64(),
			UnitRate:     cost.UnitRate.InexactFloat64(),
			TotalAmount:  cost.TotalAmount.InexactFloat64(),
			Details:      details,
		}
	}
	return responses
}

func toInvoiceResponse(invoice *billing.Invoice, recs []billing.Reconciliation) InvoiceResponse {
	lineItems := make([]InvoiceLineItemResponse, len(invoice.LineItems))
	for i, li := range invoice.LineItems {
		lineItems[i] = InvoiceLineItemResponse{
			ID:           li.ID.String(),
			CostCategory: li.CostCategory.String(),
			CostName:     li.CostName,
			Quantity:     li.Quantity.InexactFloat64(),
			UnitRate:     li.UnitRate.InexactFloat64(),
			Amount:       li.Amount.InexactFloat64(),
		}
	}
	return InvoiceResponse{
		ID:                 invoice.ID.String(),
		WarehouseID:        invoice.WarehouseID.String(),
		InvoiceNumber:      invoice.InvoiceNumber,
		BillingPeriodStart: invoice.BillingPeriodStart,
		BillingPeriodEnd:   invoice.BillingPeriodEnd,
		TotalAmount:        invoice.TotalAmount.InexactFloat64(),
		Status:             invoice.Status.String(),
		LineItems:          lineItems,
		Reconciliations:    toReconciliationResponses(recs),
		CreatedAt:          invoice.CreatedAt,
		UpdatedAt:          invoice.UpdatedAt,
	}
}

func toReconciliationResponse(rec billing.Reconciliation) ReconciliationResponse {
	resp := ReconciliationResponse{
		ID:               rec.ID.String(),
		InvoiceID:        rec.InvoiceID.String(),
		CostCategory:     rec.CostCategory.String(),
		CostName:         rec.CostName,
		ExpectedAmount:   rec.ExpectedAmount.InexactFloat64(),
		InvoicedAmount:   rec.InvoicedAmount.InexactFloat64(),
		ExpectedQuantity: rec.ExpectedQuantity.InexactFloat64(),
		InvoicedQuantity: rec.InvoicedQuantity.InexactFloat64(),
		UnitRate:         rec.UnitRate.InexactFloat64(),
		Difference:       rec.Difference.InexactFloat64(),
		Status:           rec.Status.String(),
		ResolutionNotes:  rec.ResolutionNotes,
		ResolvedAt:       rec.ResolvedAt,
	}
	if rec.ResolvedAmount != nil {
		amount := rec.ResolvedAmount.InexactFloat64()
		resp.ResolvedAmount = &amount
	}
	if rec.ResolvedBy != nil {
		resolvedBy := rec.ResolvedBy.String()
		resp.ResolvedBy = &resolvedBy
	}
	return resp
}

func toReconciliationResponses(recs []billing.Reconciliation) []ReconciliationResponse {
	responses := make([]ReconciliationResponse, len(recs))
	for i, rec := range recs {
		responses[i] = toReconciliationResponse(rec)
	}
	return responses
}

func toMatchingSummaryResponse(summary *appbilling.MatchingSummary) MatchingSummaryResponse {
	return MatchingSummaryResponse{
		InvoiceID:       summary.InvoiceID.String(),
		InvoiceStatus:   summary.InvoiceStatus.String(),
		TotalExpected:   summary.TotalExpected.InexactFloat64(),
		TotalInvoiced:   summary.TotalInvoiced.InexactFloat64(),
		TotalDifference: summary.TotalDifference.InexactFloat64(),
		Matched:         summary.Matched,
		Variance:        summary.Variance,
		Unmatched:       summary.Unmatched,
		Missing:         summary.Missing,
		Reconciliations: toReconciliationResponses(summary.Reconciliations),
	}
}
