package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostKey identifies an expected or invoiced charge by category and rate name.
// Matching between expected costs and invoice line items happens on this key.
type CostKey struct {
	Category CostCategory `json:"category"`
	Name     string       `json:"name"`
}

// CostDetail is a per-SKU/batch breakdown line within an AggregatedCost
type CostDetail struct {
	SKUID           string          `json:"sku_id,omitempty"`
	BatchLot        string          `json:"batch_lot,omitempty"`
	TransactionType TransactionType `json:"transaction_type,omitempty"`
	Count           decimal.Decimal `json:"count"`
}

// AggregatedCost is an expected charge derived for one (warehouse, billing
// period). It is computed fresh on every request and never persisted by the
// billing core; callers may persist it as a calculated-cost fact if they wish.
type AggregatedCost struct {
	WarehouseID  uuid.UUID       `json:"warehouse_id"`
	CostCategory CostCategory    `json:"cost_category"`
	CostName     string          `json:"cost_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitRate     decimal.Decimal `json:"unit_rate"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Details      []CostDetail    `json:"details,omitempty"`
}

// Key returns the matching key for the cost
func (c AggregatedCost) Key() CostKey {
	return CostKey{Category: c.CostCategory, Name: c.CostName}
}

// MergeCosts folds a list of aggregated costs into a map keyed by
// (category, name), summing quantities and totals and concatenating details.
// The input slice is not modified.
func MergeCosts(costs []AggregatedCost) map[CostKey]AggregatedCost {
	merged := make(map[CostKey]AggregatedCost, len(costs))
	for _, c := range costs {
		key := c.Key()
		existing, ok := merged[key]
		if !ok {
			// Copy details so the merged map never aliases the input.
			cc := c
			cc.Details = append([]CostDetail(nil), c.Details...)
			merged[key] = cc
			continue
		}
		existing.Quantity = existing.Quantity.Add(c.Quantity)
		existing.TotalAmount = existing.TotalAmount.Add(c.TotalAmount)
		existing.Details = append(existing.Details, c.Details...)
		merged[key] = existing
	}
	return merged
}
