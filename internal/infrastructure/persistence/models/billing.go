package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/billing"
)

// CostRateModel is the persistence model for the time-versioned cost rate table.
type CostRateModel struct {
	BaseModel
	WarehouseID   uuid.UUID            `gorm:"type:uuid;not null;index:idx_cost_rates_warehouse_category,priority:1"`
	Category      billing.CostCategory `gorm:"type:varchar(20);not null;index:idx_cost_rates_warehouse_category,priority:2"`
	Name          string               `gorm:"type:varchar(100);not null"`
	Value         decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	UnitOfMeasure string               `gorm:"type:varchar(30)"`
	EffectiveFrom time.Time            `gorm:"not null;index"`
	EffectiveTo   *time.Time           `gorm:"index"`
}

// TableName returns the table name for GORM
func (CostRateModel) TableName() string {
	return "cost_rates"
}

// ToDomain converts the persistence model to a domain CostRate entity.
func (m *CostRateModel) ToDomain() *billing.CostRate {
	return &billing.CostRate{
		BaseEntity:    m.BaseModel.ToDomain(),
		WarehouseID:   m.WarehouseID,
		Category:      m.Category,
		Name:          m.Name,
		Value:         m.Value,
		UnitOfMeasure: m.UnitOfMeasure,
		EffectiveFrom: m.EffectiveFrom,
		EffectiveTo:   m.EffectiveTo,
	}
}

// CostRateModelFromDomain creates a persistence model from a domain CostRate.
func CostRateModelFromDomain(r *billing.CostRate) *CostRateModel {
	m := &CostRateModel{
		WarehouseID:   r.WarehouseID,
		Category:      r.Category,
		Name:          r.Name,
		Value:         r.Value,
		UnitOfMeasure: r.UnitOfMeasure,
		EffectiveFrom: r.EffectiveFrom,
		EffectiveTo:   r.EffectiveTo,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}

// InventoryTransactionModel is the persistence model for the immutable
// inventory movement history.
type InventoryTransactionModel struct {
	BaseModel
	WarehouseID     uuid.UUID               `gorm:"type:uuid;not null;index:idx_inventory_transactions_warehouse_date,priority:1"`
	SKUID           string                  `gorm:"column:sku_id;type:varchar(100);not null;index"`
	BatchLot        string                  `gorm:"type:varchar(100)"`
	Type            billing.TransactionType `gorm:"type:varchar(20);not null;index"`
	CartonsIn       int                     `gorm:"not null;default:0"`
	CartonsOut      int                     `gorm:"not null;default:0"`
	Pallets         int                     `gorm:"not null;default:0"`
	TransactionDate time.Time               `gorm:"not null;index:idx_inventory_transactions_warehouse_date,priority:2"`
	Reference       string                  `gorm:"type:varchar(100);index"`
}

// TableName returns the table name for GORM
func (InventoryTransactionModel) TableName() string {
	return "inventory_transactions"
}

// ToDomain converts the persistence model to a domain InventoryTransaction entity.
func (m *InventoryTransactionModel) ToDomain() *billing.InventoryTransaction {
	return &billing.InventoryTransaction{
		BaseEntity:      m.BaseModel.ToDomain(),
		WarehouseID:     m.WarehouseID,
		SKUID:           m.SKUID,
		BatchLot:        m.BatchLot,
		Type:            m.Type,
		CartonsIn:       m.CartonsIn,
		CartonsOut:      m.CartonsOut,
		Pallets:         m.Pallets,
		TransactionDate: m.TransactionDate,
		Reference:       m.Reference,
	}
}

// InventoryTransactionModelFromDomain creates a persistence model from a
// domain InventoryTransaction.
func InventoryTransactionModelFromDomain(t *billing.InventoryTransaction) *InventoryTransactionModel {
	m := &InventoryTransactionModel{
		WarehouseID:     t.WarehouseID,
		SKUID:           t.SKUID,
		BatchLot:        t.BatchLot,
		Type:            t.Type,
		CartonsIn:       t.CartonsIn,
		CartonsOut:      t.CartonsOut,
		Pallets:         t.Pallets,
		TransactionDate: t.TransactionDate,
		Reference:       t.Reference,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}

// StorageLedgerEntryModel is the persistence model for the append-only weekly
// storage snapshot ledger.
type StorageLedgerEntryModel struct {
	BaseModel
	WarehouseID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_storage_ledger_warehouse_week,priority:1"`
	SKUID           string          `gorm:"column:sku_id;type:varchar(100);not null;index"`
	BatchLot        string          `gorm:"type:varchar(100)"`
	WeekEnding      time.Time       `gorm:"not null;index:idx_storage_ledger_warehouse_week,priority:2"`
	PalletsCharged  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OpeningCartons  int             `gorm:"not null;default:0"`
	InboundCartons  int             `gorm:"not null;default:0"`
	OutboundCartons int             `gorm:"not null;default:0"`
	ClosingCartons  int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (StorageLedgerEntryModel) TableName() string {
	return "storage_ledger_entries"
}

// ToDomain converts the persistence model to a domain StorageLedgerEntry entity.
func (m *StorageLedgerEntryModel) ToDomain() *billing.StorageLedgerEntry {
	return &billing.StorageLedgerEntry{
		BaseEntity:      m.BaseModel.ToDomain(),
		WarehouseID:     m.WarehouseID,
		SKUID:           m.SKUID,
		BatchLot:        m.BatchLot,
		WeekEnding:      m.WeekEnding,
		PalletsCharged:  m.PalletsCharged,
		OpeningCartons:  m.OpeningCartons,
		InboundCartons:  m.InboundCartons,
		OutboundCartons: m.OutboundCartons,
		ClosingCartons:  m.ClosingCartons,
	}
}

// StorageLedgerEntryModelFromDomain creates a persistence model from a domain
// StorageLedgerEntry.
func StorageLedgerEntryModelFromDomain(e *billing.StorageLedgerEntry) *StorageLedgerEntryModel {
	m := &StorageLedgerEntryModel{
		WarehouseID:     e.WarehouseID,
		SKUID:           e.SKUID,
		BatchLot:        e.BatchLot,
		WeekEnding:      e.WeekEnding,
		PalletsCharged:  e.PalletsCharged,
		OpeningCartons:  e.OpeningCartons,
		InboundCartons:  e.InboundCartons,
		OutboundCartons: e.OutboundCartons,
		ClosingCartons:  e.ClosingCartons,
	}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	WarehouseID        uuid.UUID              `gorm:"type:uuid;not null;index:idx_invoices_warehouse_status,priority:1;uniqueIndex:idx_invoices_warehouse_number,priority:1"`
	InvoiceNumber      string                 `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoices_warehouse_number,priority:2"`
	BillingPeriodStart time.Time              `gorm:"not null"`
	BillingPeriodEnd   time.Time              `gorm:"not null"`
	TotalAmount        decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Status             billing.InvoiceStatus  `gorm:"type:varchar(20);not null;default:'pending';index:idx_invoices_warehouse_status,priority:2"`
	LineItems          []InvoiceLineItemModel `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice aggregate.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	lineItems := make([]billing.InvoiceLineItem, len(m.LineItems))
	for i, li := range m.LineItems {
		lineItems[i] = li.ToDomain()
	}
	return &billing.Invoice{
		BaseAggregateRoot:  m.AggregateModel.ToDomainAggregateRoot(),
		WarehouseID:        m.WarehouseID,
		InvoiceNumber:      m.InvoiceNumber,
		BillingPeriodStart: m.BillingPeriodStart,
		BillingPeriodEnd:   m.BillingPeriodEnd,
		TotalAmount:        m.TotalAmount,
		Status:             m.Status,
		LineItems:          lineItems,
	}
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		WarehouseID:        inv.WarehouseID,
		InvoiceNumber:      inv.InvoiceNumber,
		BillingPeriodStart: inv.BillingPeriodStart,
		BillingPeriodEnd:   inv.BillingPeriodEnd,
		TotalAmount:        inv.TotalAmount,
		Status:             inv.Status,
	}
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.LineItems = make([]InvoiceLineItemModel, len(inv.LineItems))
	for i, li := range inv.LineItems {
		m.LineItems[i] = InvoiceLineItemModelFromDomain(li)
	}
	return m
}

// InvoiceLineItemModel is the persistence model for a supplier-billed charge
// owned by an invoice.
type InvoiceLineItemModel struct {
	ID           uuid.UUID            `gorm:"type:uuid;primary_key"`
	InvoiceID    uuid.UUID            `gorm:"type:uuid;not null;index"`
	CostCategory billing.CostCategory `gorm:"type:varchar(20);not null"`
	CostName     string               `gorm:"type:varchar(100);not null"`
	Quantity     decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	UnitRate     decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Amount       decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineItemModel) TableName() string {
	return "invoice_line_items"
}

// ToDomain converts the persistence model to a domain InvoiceLineItem.
func (m *InvoiceLineItemModel) ToDomain() billing.InvoiceLineItem {
	return billing.InvoiceLineItem{
		ID:           m.ID,
		InvoiceID:    m.InvoiceID,
		CostCategory: m.CostCategory,
		CostName:     m.CostName,
		Quantity:     m.Quantity,
		UnitRate:     m.UnitRate,
		Amount:       m.Amount,
	}
}

// InvoiceLineItemModelFromDomain creates a persistence model from a domain
// InvoiceLineItem.
func InvoiceLineItemModelFromDomain(li billing.InvoiceLineItem) InvoiceLineItemModel {
	return InvoiceLineItemModel{
		ID:           li.ID,
		InvoiceID:    li.InvoiceID,
		CostCategory: li.CostCategory,
		CostName:     li.CostName,
		Quantity:     li.Quantity,
		UnitRate:     li.UnitRate,
		Amount:       li.Amount,
	}
}

// ReconciliationModel is the persistence model for reconciliation records
// produced by invoice matching.
type ReconciliationModel struct {
	BaseModel
	InvoiceID        uuid.UUID                    `gorm:"type:uuid;not null;index:idx_reconciliations_invoice_status,priority:1"`
	CostCategory     billing.CostCategory         `gorm:"type:varchar(20);not null"`
	CostName         string                       `gorm:"type:varchar(100);not null"`
	ExpectedAmount   decimal.Decimal              `gorm:"type:decimal(18,4);not null"`
	InvoicedAmount   decimal.Decimal              `gorm:"type:decimal(18,4);not null"`
	ExpectedQuantity decimal.Decimal              `gorm:"type:decimal(18,4);not null"`
	InvoicedQuantity decimal.Decimal              `gorm:"type:decimal(18,4);not null"`
	UnitRate         decimal.Decimal              `gorm:"type:decimal(18,4);not null"`
	Difference       decimal.Decimal              `gorm:"type:decimal(18,4);not null"`
	Status           billing.ReconciliationStatus `gorm:"type:varchar(20);not null;index:idx_reconciliations_invoice_status,priority:2"`
	ResolutionNotes  string                       `gorm:"type:text"`
	ResolvedAmount   *decimal.Decimal             `gorm:"type:decimal(18,4)"`
	ResolvedBy       *uuid.UUID                   `gorm:"type:uuid"`
	ResolvedAt       *time.Time
}

// TableName returns the table name for GORM
func (ReconciliationModel) TableName() string {
	return "reconciliations"
}

// ToDomain converts the persistence model to a domain Reconciliation entity.
func (m *ReconciliationModel) ToDomain() *billing.Reconciliation {
	return &billing.Reconciliation{
		BaseEntity:       m.BaseModel.ToDomain(),
		InvoiceID:        m.InvoiceID,
		CostCategory:     m.CostCategory,
		CostName:         m.CostName,
		ExpectedAmount:   m.ExpectedAmount,
		InvoicedAmount:   m.InvoicedAmount,
		ExpectedQuantity: m.ExpectedQuantity,
		InvoicedQuantity: m.InvoicedQuantity,
		UnitRate:         m.UnitRate,
		Difference:       m.Difference,
		Status:           m.Status,
		ResolutionNotes:  m.ResolutionNotes,
		ResolvedAmount:   m.ResolvedAmount,
		ResolvedBy:       m.ResolvedBy,
		ResolvedAt:       m.ResolvedAt,
	}
}

// ReconciliationModelFromDomain creates a persistence model from a domain
// Reconciliation.
func ReconciliationModelFromDomain(r *billing.Reconciliation) *ReconciliationModel {
	m := &ReconciliationModel{
		InvoiceID:        r.InvoiceID,
		CostCategory:     r.CostCategory,
		CostName:         r.CostName,
		ExpectedAmount:   r.ExpectedAmount,
		InvoicedAmount:   r.InvoicedAmount,
		ExpectedQuantity: r.ExpectedQuantity,
		InvoicedQuantity: r.InvoicedQuantity,
		UnitRate:         r.UnitRate,
		Difference:       r.Difference,
		Status:           r.Status,
		ResolutionNotes:  r.ResolutionNotes,
		ResolvedAmount:   r.ResolvedAmount,
		ResolvedBy:       r.ResolvedBy,
		ResolvedAt:       r.ResolvedAt,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}

// AuditLogModel is the persistence model for the append-only billing audit trail.
type AuditLogModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	EntityType string    `gorm:"type:varchar(50);not null;index:idx_audit_logs_entity,priority:1"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_logs_entity,priority:2"`
	Action     string    `gorm:"type:varchar(50);not null;index"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Data       []byte    `gorm:"type:jsonb"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}
