package cube

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines cube row persistence operations
type Repository interface {
	// ApplyAdjustments upserts the net adjustments for one period bucket.
	// Each tuple's change is applied as a store-level atomic increment so
	// concurrent writers to the same row cannot lose updates.
	ApplyAdjustments(ctx context.Context, tenantID uuid.UUID, period Period, adjustments map[DimensionKey]*Adjustment) error

	// DeleteByPeriodStartRange removes every row of one granularity whose
	// period start lies in [from, to]. Used by range regeneration.
	DeleteByPeriodStartRange(ctx context.Context, tenantID uuid.UUID, granularity Granularity, from, to time.Time) (int64, error)

	// FindByPeriodStartRange returns rows of one granularity whose period
	// start lies in [from, to], optionally filtered by account and category.
	FindByPeriodStartRange(ctx context.Context, tenantID uuid.UUID, granularity Granularity, from, to time.Time, filter RowFilter) ([]*Row, error)

	WithTx(tx pgx.Tx) Repository
}

// RowFilter narrows cube row queries; nil fields match everything
type RowFilter struct {
	AccountID  *uuid.UUID
	CategoryID *uuid.UUID
}
