package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// TransactionType represents the type of an inventory movement
type TransactionType string

const (
	TransactionTypeReceive     TransactionType = "RECEIVE"
	TransactionTypeShip        TransactionType = "SHIP"
	TransactionTypeAdjustIn    TransactionType = "ADJUST_IN"
	TransactionTypeAdjustOut   TransactionType = "ADJUST_OUT"
	TransactionTypeTransferIn  TransactionType = "TRANSFER_IN"
	TransactionTypeTransferOut TransactionType = "TRANSFER_OUT"
)

// IsValid checks if the type is a known TransactionType
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeReceive, TransactionTypeShip,
		TransactionTypeAdjustIn, TransactionTypeAdjustOut,
		TransactionTypeTransferIn, TransactionTypeTransferOut:
		return true
	}
	return false
}

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// InventoryTransaction is an immutable record of a single inventory movement.
// It drives both inventory balances and billing cost aggregation.
type InventoryTransaction struct {
	shared.BaseEntity
	WarehouseID     uuid.UUID       `json:"warehouse_id"`
	SKUID           string          `json:"sku_id"`
	BatchLot        string          `json:"batch_lot"`
	Type            TransactionType `json:"type"`
	CartonsIn       int             `json:"cartons_in"`
	CartonsOut      int             `json:"cartons_out"`
	Pallets         int             `json:"pallets"`
	TransactionDate time.Time       `json:"transaction_date"`
	Reference       string          `json:"reference"`
}

// NewInventoryTransaction creates a new inventory transaction
func NewInventoryTransaction(warehouseID uuid.UUID, skuID, batchLot string, txType TransactionType, transactionDate time.Time, reference string) (*InventoryTransaction, error) {
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid transaction type")
	}
	if skuID == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "SKU cannot be empty")
	}
	return &InventoryTransaction{
		BaseEntity:      shared.NewBaseEntity(),
		WarehouseID:     warehouseID,
		SKUID:           skuID,
		BatchLot:        batchLot,
		Type:            txType,
		TransactionDate: transactionDate,
		Reference:       reference,
	}, nil
}

// ShippedLoose reports whether a SHIP transaction moved cartons without pallets.
// Loose cartons are billed per carton; palletised cartons are billed per pallet.
func (t *InventoryTransaction) ShippedLoose() bool {
	return t.Type == TransactionTypeShip && t.Pallets == 0
}
