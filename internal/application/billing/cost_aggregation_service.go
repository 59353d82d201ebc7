package billing

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/billing"
	"go.uber.org/zap"
)

// WeeklyStorageCostName is the expected-cost key under which ledger-derived
// storage charges are matched against supplier invoices.
const WeeklyStorageCostName = "Weekly Storage"

// CostAggregationService derives expected warehouse charges for a billing
// period from the transaction history, the storage ledger and the
// time-versioned rate table.
//
// The service is read-only. Store failures propagate to the caller unchanged;
// retry policy belongs to the resilience layer at the boundary, not here.
// Expected absence is not a failure: a bucket with no resolvable rate or a
// zero quantity is omitted from the result, to be caught later by
// reconciliation's missing/unmatched classification.
type CostAggregationService struct {
	rateRepo   billing.CostRateRepository
	txRepo     billing.InventoryTransactionRepository
	ledgerRepo billing.StorageLedgerRepository
	logger     *zap.Logger
}

// NewCostAggregationService creates a new CostAggregationService
func NewCostAggregationService(
	rateRepo billing.CostRateRepository,
	txRepo billing.InventoryTransactionRepository,
	ledgerRepo billing.StorageLedgerRepository,
	logger *zap.Logger,
) *CostAggregationService {
	return &CostAggregationService{
		rateRepo:   rateRepo,
		txRepo:     txRepo,
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// CalculateCosts computes every expected charge for the warehouse and billing
// period: storage charges from the ledger plus the per-category transaction
// charges. The result order is deterministic (storage first, then transaction
// buckets by category).
//
// The Unit category is never populated: transactions carry no unit-level
// quantity, so there is nothing to aggregate. This is a known limitation, not
// an oversight.
func (s *CostAggregationService) CalculateCosts(ctx context.Context, warehouseID uuid.UUID, period billing.BillingPeriod) ([]billing.AggregatedCost, error) {
	rates, err := s.rateRepo.FindByWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, err
	}

	storage, err := s.calculateStorageCosts(ctx, warehouseID, period, rates)
	if err != nil {
		return nil, err
	}

	transactional, err := s.transactionCosts(ctx, warehouseID, period, rates)
	if err != nil {
		return nil, err
	}

	return append(storage, transactional...), nil
}

// AggregateCostsSummary merges the calculated costs by (category, name),
// summing quantities and totals and concatenating details.
func (s *CostAggregationService) AggregateCostsSummary(ctx context.Context, warehouseID uuid.UUID, period billing.BillingPeriod) (map[billing.CostKey]billing.AggregatedCost, error) {
	costs, err := s.CalculateCosts(ctx, warehouseID, period)
	if err != nil {
		return nil, err
	}
	return billing.MergeCosts(costs), nil
}

// CalculateTransactionCosts computes the per-category charges driven by
// inventory transactions: container unloads, inbound cartons, outbound pallets,
// loose outbound cartons and shipments.
func (s *CostAggregationService) CalculateTransactionCosts(ctx context.Context, warehouseID uuid.UUID, period billing.BillingPeriod) ([]billing.AggregatedCost, error) {
	rates, err := s.rateRepo.FindByWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	return s.transactionCosts(ctx, warehouseID, period, rates)
}

func (s *CostAggregationService) transactionCosts(ctx context.Context, warehouseID uuid.UUID, period billing.BillingPeriod, rates []billing.CostRate) ([]billing.AggregatedCost, error) {
	transactions, err := s.txRepo.FindByWarehouseAndPeriod(ctx, warehouseID, period)
	if err != nil {
		return nil, err
	}

	// Transaction bucket rates are resolved at the period end: the rate in
	// force when the period closes is the one the supplier invoices at.
	asOf := period.End

	var costs []billing.AggregatedCost
	appendCost := func(c *billing.AggregatedCost) {
		if c != nil {
			costs = append(costs, *c)
		}
	}

	appendCost(s.containerCosts(warehouseID, transactions, rates, asOf))
	appendCost(s.inboundCartonCosts(warehouseID, transactions, rates, asOf))
	appendCost(s.outboundPalletCosts(warehouseID, transactions, rates, asOf))
	appendCost(s.outboundCartonCosts(warehouseID, transactions, rates, asOf))
	appendCost(s.shipmentCosts(warehouseID, transactions, rates, asOf))

	return costs, nil
}

// WeeklyStorageCost folds the period's storage ledger into a single expected
// entry keyed (Storage, "Weekly Storage"), carrying the quantity-weighted
// average rate across the period. Returns nil when no entry has a resolvable
// rate.
func (s *CostAggregationService) WeeklyStorageCost(ctx context.Context, warehouseID uuid.UUID, period billing.BillingPeriod) (*billing.AggregatedCost, error) {
	rates, err := s.rateRepo.FindByWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledgerRepo.FindByWarehouseAndPeriod(ctx, warehouseID, period)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	quantity := decimal.Zero
	details := make([]billing.CostDetail, 0, len(entries))
	for _, entry := range entries {
		rate := s.resolveStorageRate(rates, entry.WeekEnding, warehouseID)
		if rate == nil {
			continue
		}
		amount := entry.PalletsCharged.Mul(rate.Value)
		total = total.Add(amount)
		quantity = quantity.Add(entry.PalletsCharged)
		details = append(details, billing.CostDetail{
			SKUID:    entry.SKUID,
			BatchLot: entry.BatchLot,
			Count:    entry.PalletsCharged,
		})
	}
	if quantity.IsZero() {
		return nil, nil
	}

	return &billing.AggregatedCost{
		WarehouseID:  warehouseID,
		CostCategory: billing.CostCategoryStorage,
		CostName:     WeeklyStorageCostName,
		Quantity:     quantity,
		UnitRate:     total.Div(quantity),
		TotalAmount:  total,
		Details:      details,
	}, nil
}

// calculateStorageCosts prices each storage ledger entry at the storage rate
// effective on its snapshot date, grouped by rate name with a per-SKU/batch
// detail breakdown. Entries without a resolvable rate are excluded from
// totals: storage without a rate is currently unbillable, and reconciliation
// surfaces the gap against whatever the supplier invoices.
func (s *CostAggregationService) calculateStorageCosts(ctx context.Context, warehouseID uuid.UUID, period billing.BillingPeriod, rates []billing.CostRate) ([]billing.AggregatedCost, error) {
	entries, err := s.ledgerRepo.FindByWarehouseAndPeriod(ctx, warehouseID, period)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		quantity decimal.Decimal
		total    decimal.Decimal
		details  map[[2]string]decimal.Decimal
	}
	buckets := make(map[string]*bucket)

	for _, entry := range entries {
		rate := s.resolveStorageRate(rates, entry.WeekEnding, warehouseID)
		if rate == nil {
			continue
		}
		b, ok := buckets[rate.Name]
		if !ok {
			b = &bucket{
				quantity: decimal.Zero,
				total:    decimal.Zero,
				details:  make(map[[2]string]decimal.Decimal),
			}
			buckets[rate.Name] = b
		}
		b.quantity = b.quantity.Add(entry.PalletsCharged)
		b.total = b.total.Add(entry.PalletsCharged.Mul(rate.Value))
		detailKey := [2]string{entry.SKUID, entry.BatchLot}
		b.details[detailKey] = b.details[detailKey].Add(entry.PalletsCharged)
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	costs := make([]billing.AggregatedCost, 0, len(buckets))
	for _, name := range names {
		b := buckets[name]
		if b.quantity.IsZero() {
			continue
		}
		costs = append(costs, billing.AggregatedCost{
			WarehouseID:  warehouseID,
			CostCategory: billing.CostCategoryStorage,
			CostName:     name,
			Quantity:     b.quantity,
			UnitRate:     b.total.Div(b.quantity),
			TotalAmount:  b.total,
			Details:      sortedDetails(b.details),
		})
	}
	return costs, nil
}

// containerCosts charges one container unload per distinct calendar date on
// which at least one RECEIVE occurred.
func (s *CostAggregationService) containerCosts(warehouseID uuid.UUID, transactions []billing.InventoryTransaction, rates []billing.CostRate, asOf time.Time) *billing.AggregatedCost {
	rate := billing.ResolveRate(rates, billing.CostCategoryContainer, asOf)
	if rate == nil {
		return nil
	}

	days := make(map[string]struct{})
	for _, tx := range transactions {
		if tx.Type == billing.TransactionTypeReceive {
			days[tx.TransactionDate.Format("2006-01-02")] = struct{}{}
		}
	}
	if len(days) == 0 {
		return nil
	}

	quantity := decimal.NewFromInt(int64(len(days)))
	return &billing.AggregatedCost{
		WarehouseID:  warehouseID,
		CostCategory: billing.CostCategoryContainer,
		CostName:     rate.Name,
		Quantity:     quantity,
		UnitRate:     rate.Value,
		TotalAmount:  quantity.Mul(rate.Value),
	}
}

// inboundCartonCosts charges every carton received against the inbound carton
// rate (the Carton rate whose name contains "inbound").
func (s *CostAggregationService) inboundCartonCosts(warehouseID uuid.UUID, transactions []billing.InventoryTransaction, rates []billing.CostRate, asOf time.Time) *billing.AggregatedCost {
	rate := billing.ResolveRateByName(rates, billing.CostCategoryCarton, "inbound", asOf)
	if rate == nil {
		return nil
	}

	total := 0
	details := make(map[[2]string]decimal.Decimal)
	for _, tx := range transactions {
		if tx.Type != billing.TransactionTypeReceive || tx.CartonsIn == 0 {
			continue
		}
		total += tx.CartonsIn
		key := [2]string{tx.SKUID, tx.BatchLot}
		details[key] = details[key].Add(decimal.NewFromInt(int64(tx.CartonsIn)))
	}
	if total == 0 {
		return nil
	}

	quantity := decimal.NewFromInt(int64(total))
	return &billing.AggregatedCost{
		WarehouseID:  warehouseID,
		CostCategory: billing.CostCategoryCarton,
		CostName:     rate.Name,
		Quantity:     quantity,
		UnitRate:     rate.Value,
		TotalAmount:  quantity.Mul(rate.Value),
		Details:      sortedTypedDetails(details, billing.TransactionTypeReceive),
	}
}

// outboundPalletCosts charges pallets on SHIP transactions that moved whole
// pallets. Cartons on those pallets are billed per pallet, not per carton.
func (s *CostAggregationService) outboundPalletCosts(warehouseID uuid.UUID, transactions []billing.InventoryTransaction, rates []billing.CostRate, asOf time.Time) *billing.AggregatedCost {
	rate := billing.ResolveRateByName(rates, billing.CostCategoryPallet, "outbound", asOf)
	if rate == nil {
		return nil
	}

	total := 0
	details := make(map[[2]string]decimal.Decimal)
	for _, tx := range transactions {
		if tx.Type != billing.TransactionTypeShip || tx.Pallets == 0 {
			continue
		}
		total += tx.Pallets
		key := [2]string{tx.SKUID, tx.BatchLot}
		details[key] = details[key].Add(decimal.NewFromInt(int64(tx.Pallets)))
	}
	if total == 0 {
		return nil
	}

	quantity := decimal.NewFromInt(int64(total))
	return &billing.AggregatedCost{
		WarehouseID:  warehouseID,
		CostCategory: billing.CostCategoryPallet,
		CostName:     rate.Name,
		Quantity:     quantity,
		UnitRate:     rate.Value,
		TotalAmount:  quantity.Mul(rate.Value),
		Details:      sortedTypedDetails(details, billing.TransactionTypeShip),
	}
}

// outboundCartonCosts charges cartons shipped loose (SHIP with no pallets).
// The pallet and loose-carton buckets are mutually exclusive so a carton is
// never billed twice.
func (s *CostAggregationService) outboundCartonCosts(warehouseID uuid.UUID, transactions []billing.InventoryTransaction, rates []billing.CostRate, asOf time.Time) *billing.AggregatedCost {
	rate := billing.ResolveRateByName(rates, billing.CostCategoryCarton, "outbound", asOf)
	if rate == nil {
		return nil
	}

	total := 0
	details := make(map[[2]string]decimal.Decimal)
	for _, tx := range transactions {
		if !tx.ShippedLoose() || tx.CartonsOut == 0 {
			continue
		}
		total += tx.CartonsOut
		key := [2]string{tx.SKUID, tx.BatchLot}
		details[key] = details[key].Add(decimal.NewFromInt(int64(tx.CartonsOut)))
	}
	if total == 0 {
		return nil
	}

	quantity := decimal.NewFromInt(int64(total))
	return &billing.AggregatedCost{
		WarehouseID:  warehouseID,
		CostCategory: billing.CostCategoryCarton,
		CostName:     rate.Name,
		Quantity:     quantity,
		UnitRate:     rate.Value,
		TotalAmount:  quantity.Mul(rate.Value),
		Details:      sortedTypedDetails(details, billing.TransactionTypeShip),
	}
}

// shipmentCosts charges one shipment per distinct (date, reference) pair among
// SHIP transactions, regardless of how many items each shipment moved.
func (s *CostAggregationService) shipmentCosts(warehouseID uuid.UUID, transactions []billing.InventoryTransaction, rates []billing.CostRate, asOf time.Time) *billing.AggregatedCost {
	rate := billing.ResolveRate(rates, billing.CostCategoryShipment, asOf)
	if rate == nil {
		return nil
	}

	shipments := make(map[string]struct{})
	for _, tx := range transactions {
		if tx.Type != billing.TransactionTypeShip {
			continue
		}
		shipments[tx.TransactionDate.Format("2006-01-02")+"|"+tx.Reference] = struct{}{}
	}
	if len(shipments) == 0 {
		return nil
	}

	quantity := decimal.NewFromInt(int64(len(shipments)))
	return &billing.AggregatedCost{
		WarehouseID:  warehouseID,
		CostCategory: billing.CostCategoryShipment,
		CostName:     rate.Name,
		Quantity:     quantity,
		UnitRate:     rate.Value,
		TotalAmount:  quantity.Mul(rate.Value),
	}
}

// resolveStorageRate resolves the storage rate for a snapshot date, warning
// when the rate table holds overlapping candidates. Overlaps are a data
// quality problem upstream, not a reason to fail a billing run.
func (s *CostAggregationService) resolveStorageRate(rates []billing.CostRate, asOf time.Time, warehouseID uuid.UUID) *billing.CostRate {
	candidates := 0
	for i := range rates {
		if rates[i].Category == billing.CostCategoryStorage && rates[i].IsEffectiveAt(asOf) {
			candidates++
		}
	}
	if candidates > 1 {
		s.logger.Warn("overlapping storage rates, resolving to latest effective-from",
			zap.String("warehouse_id", warehouseID.String()),
			zap.Time("as_of", asOf),
			zap.Int("candidates", candidates))
	}
	return billing.ResolveRate(rates, billing.CostCategoryStorage, asOf)
}

func sortedDetails(details map[[2]string]decimal.Decimal) []billing.CostDetail {
	keys := make([][2]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	out := make([]billing.CostDetail, 0, len(keys))
	for _, k := range keys {
		out = append(out, billing.CostDetail{SKUID: k[0], BatchLot: k[1], Count: details[k]})
	}
	return out
}

func sortedTypedDetails(details map[[2]string]decimal.Decimal, txType billing.TransactionType) []billing.CostDetail {
	out := sortedDetails(details)
	for i := range out {
		out[i].TransactionType = txType
	}
	return out
}
