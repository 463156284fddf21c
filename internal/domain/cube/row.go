package cube

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fintrack-trend-cube/internal/domain/transaction"
)

// DimensionKey is the dimension tuple a cube row aggregates over.
// CategoryID uuid.Nil means uncategorized.
type DimensionKey struct {
	AccountID   uuid.UUID
	CategoryID  uuid.UUID
	Type        transaction.Type
	IsRecurring bool
}

// DimensionOf extracts the dimension tuple from a cube projection
func DimensionOf(f transaction.CubeRelevantFields) DimensionKey {
	return DimensionKey{
		AccountID:   f.AccountID,
		CategoryID:  f.CategoryID,
		Type:        f.Type,
		IsRecurring: f.IsRecurring,
	}
}

// Adjustment is a signed amount/count change to apply to one cube row.
// N deltas touching the same bucket and tuple net into a single adjustment
// before the store is touched.
type Adjustment struct {
	Amount decimal.Decimal
	Count  int64
}

// Add credits the adjustment with one transaction's amount
func (a *Adjustment) Add(amount decimal.Decimal) {
	a.Amount = a.Amount.Add(amount)
	a.Count++
}

// Subtract debits the adjustment with one transaction's amount
func (a *Adjustment) Subtract(amount decimal.Decimal) {
	a.Amount = a.Amount.Sub(amount)
	a.Count--
}

// IsZero reports whether the adjustment would not change a row
func (a *Adjustment) IsZero() bool {
	return a.Count == 0 && a.Amount.IsZero()
}

// Row is one persisted cube aggregate: the running amount sum and transaction
// count for a (tenant, period, dimension tuple) bucket. Rows are created
// lazily on the first delta touching the bucket and adjusted atomically on
// every later one.
type Row struct {
	TenantID         uuid.UUID        `json:"tenant_id"`
	PeriodType       Granularity      `json:"period_type"`
	PeriodStart      time.Time        `json:"period_start"`
	PeriodEnd        time.Time        `json:"period_end"`
	AccountID        uuid.UUID        `json:"account_id"`
	CategoryID       uuid.UUID        `json:"category_id"`
	Type             transaction.Type `json:"type"`
	IsRecurring      bool             `json:"is_recurring"`
	AmountSum        decimal.Decimal  `json:"amount_sum"`
	TransactionCount int64            `json:"transaction_count"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Dimension returns the row's dimension tuple
func (r *Row) Dimension() DimensionKey {
	return DimensionKey{
		AccountID:   r.AccountID,
		CategoryID:  r.CategoryID,
		Type:        r.Type,
		IsRecurring: r.IsRecurring,
	}
}
