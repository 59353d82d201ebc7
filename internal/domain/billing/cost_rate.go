package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared"
)

// CostCategory classifies a warehouse charge
type CostCategory string

const (
	CostCategoryStorage     CostCategory = "STORAGE"
	CostCategoryContainer   CostCategory = "CONTAINER"
	CostCategoryCarton      CostCategory = "CARTON"
	CostCategoryPallet      CostCategory = "PALLET"
	CostCategoryUnit        CostCategory = "UNIT"
	CostCategoryShipment    CostCategory = "SHIPMENT"
	CostCategoryAccessorial CostCategory = "ACCESSORIAL"
)

// IsValid checks if the category is a known CostCategory
func (c CostCategory) IsValid() bool {
	switch c {
	case CostCategoryStorage, CostCategoryContainer, CostCategoryCarton,
		CostCategoryPallet, CostCategoryUnit, CostCategoryShipment, CostCategoryAccessorial:
		return true
	}
	return false
}

// String returns the string representation of CostCategory
func (c CostCategory) String() string {
	return string(c)
}

// ParseCostCategory converts a string into a CostCategory
func ParseCostCategory(s string) (CostCategory, error) {
	c := CostCategory(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", shared.NewDomainError("INVALID_INPUT", "Unknown cost category: "+s)
	}
	return c, nil
}

// CostRate is a time-versioned rate for a (warehouse, category, name) combination.
// Rates are superseded by closing EffectiveTo and inserting a new row; a rate is
// never mutated after creation except to close its effective window.
type CostRate struct {
	shared.BaseEntity
	WarehouseID   uuid.UUID       `json:"warehouse_id"`
	Category      CostCategory    `json:"category"`
	Name          string          `json:"name"`
	Value         decimal.Decimal `json:"value"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty"`
}

// NewCostRate creates a new cost rate effective from the given date
func NewCostRate(warehouseID uuid.UUID, category CostCategory, name string, value decimal.Decimal, unitOfMeasure string, effectiveFrom time.Time) (*CostRate, error) {
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid cost category")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Rate name cannot be empty")
	}
	if value.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Rate value cannot be negative")
	}
	return &CostRate{
		BaseEntity:    shared.NewBaseEntity(),
		WarehouseID:   warehouseID,
		Category:      category,
		Name:          name,
		Value:         value,
		UnitOfMeasure: unitOfMeasure,
		EffectiveFrom: effectiveFrom,
	}, nil
}

// Close ends the rate's effective window at the given date
func (r *CostRate) Close(effectiveTo time.Time) error {
	if effectiveTo.Before(r.EffectiveFrom) {
		return shared.NewDomainError("INVALID_INPUT", "EffectiveTo cannot precede EffectiveFrom")
	}
	r.EffectiveTo = &effectiveTo
	return nil
}

// IsEffectiveAt reports whether the rate is effective on the given date.
// Both window bounds are inclusive and compared at date granularity, so a rate
// ending Jan 31 still applies to any time of day on Jan 31.
func (r *CostRate) IsEffectiveAt(asOf time.Time) bool {
	day := dateOnly(asOf)
	if dateOnly(r.EffectiveFrom).After(day) {
		return false
	}
	if r.EffectiveTo != nil && dateOnly(*r.EffectiveTo).Before(day) {
		return false
	}
	return true
}

// ResolveRate selects the single rate effective for the category at the given
// date, or nil when none applies. Callers must treat nil as "no charge for this
// category in this period", not as an error.
//
// Upstream configuration should keep the effective windows of a (warehouse,
// category, name) non-overlapping, but that is not enforced at the store level.
// When multiple candidates match, the rate with the latest EffectiveFrom wins
// (most recently superseding), with CreatedAt and then ID as deterministic
// tie-breakers so the result never depends on store ordering.
func ResolveRate(rates []CostRate, category CostCategory, asOf time.Time) *CostRate {
	var best *CostRate
	for i := range rates {
		r := &rates[i]
		if r.Category != category || !r.IsEffectiveAt(asOf) {
			continue
		}
		if best == nil || supersedes(r, best) {
			best = r
		}
	}
	return best
}

// ResolveRateByName selects the effective rate for the category whose name
// contains the given substring (case-insensitive). This is the second,
// name-based matching axis used for inbound/outbound carton and pallet rates.
func ResolveRateByName(rates []CostRate, category CostCategory, nameContains string, asOf time.Time) *CostRate {
	needle := strings.ToLower(nameContains)
	var best *CostRate
	for i := range rates {
		r := &rates[i]
		if r.Category != category || !r.IsEffectiveAt(asOf) {
			continue
		}
		if !strings.Contains(strings.ToLower(r.Name), needle) {
			continue
		}
		if best == nil || supersedes(r, best) {
			best = r
		}
	}
	return best
}

// supersedes reports whether a should be preferred over b under the
// latest-EffectiveFrom-wins policy.
func supersedes(a, b *CostRate) bool {
	if !a.EffectiveFrom.Equal(b.EffectiveFrom) {
		return a.EffectiveFrom.After(b.EffectiveFrom)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
