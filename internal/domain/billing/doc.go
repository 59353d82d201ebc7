// Package billing provides domain models for warehouse billing reconciliation.
//
// This package implements the billing bounded context, which is responsible for:
//   - Mapping dates onto the 16th-to-15th billing cycle used by warehouse suppliers
//   - Resolving time-versioned cost rates per warehouse and cost category
//   - Deriving expected charges from inventory transactions and storage ledger snapshots
//   - Comparing expected charges against supplier invoice line items
//
// Key Aggregates:
//   - Invoice: A supplier invoice with its line items and reconciliation records
//   - CostRate: A time-versioned rate for a (warehouse, category, name) combination
//
// Value Objects:
//   - BillingPeriod: A single 16th-to-15th billing window
//   - AggregatedCost: An expected charge computed for one billing period
//
// Computed AggregatedCost values are transient; only invoices and their
// reconciliations are persisted through the repositories defined here.
package billing
