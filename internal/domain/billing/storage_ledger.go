package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared"
)

// StorageLedgerEntry is an append-only snapshot of pallet occupancy for one
// SKU/batch over one storage week. Entries are produced by a periodic storage
// snapshot process and are the basis for weekly storage charges, independent of
// individual inventory transactions.
type StorageLedgerEntry struct {
	shared.BaseEntity
	WarehouseID     uuid.UUID       `json:"warehouse_id"`
	SKUID           string          `json:"sku_id"`
	BatchLot        string          `json:"batch_lot"`
	WeekEnding      time.Time       `json:"week_ending"`
	PalletsCharged  decimal.Decimal `json:"pallets_charged"`
	OpeningCartons  int             `json:"opening_cartons"`
	InboundCartons  int             `json:"inbound_cartons"`
	OutboundCartons int             `json:"outbound_cartons"`
	ClosingCartons  int             `json:"closing_cartons"`
}

// NewStorageLedgerEntry creates a new storage ledger snapshot entry
func NewStorageLedgerEntry(warehouseID uuid.UUID, skuID, batchLot string, weekEnding time.Time, palletsCharged decimal.Decimal) (*StorageLedgerEntry, error) {
	if skuID == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "SKU cannot be empty")
	}
	if palletsCharged.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Pallets charged cannot be negative")
	}
	return &StorageLedgerEntry{
		BaseEntity:     shared.NewBaseEntity(),
		WarehouseID:    warehouseID,
		SKUID:          skuID,
		BatchLot:       batchLot,
		WeekEnding:     weekEnding,
		PalletsCharged: palletsCharged,
	}, nil
}
