package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fintrack-trend-cube/internal/domain/cube"
	"github.com/fintrack-trend-cube/internal/domain/delta"
	"github.com/fintrack-trend-cube/internal/domain/journal"
	"github.com/fintrack-trend-cube/internal/domain/shared"
	"github.com/fintrack-trend-cube/internal/domain/transaction"
)

// CubeService defines the interface for applying cube mutation events.
type CubeService interface {
	ProcessMutation(ctx context.Context, event *shared.MutationEvent) error
}

// PeriodCalculator resolves calendar dates into the periods that contain them
type PeriodCalculator interface {
	// PeriodFor returns the single period of the granularity containing the date
	PeriodFor(date time.Time, g cube.Granularity) cube.Period

	// PeriodsFor returns one period per supported granularity containing the date
	PeriodsFor(date time.Time) []cube.Period

	// BuildIndex maps each distinct day among dates to its containing
	// periods, computing the period set once per distinct day
	BuildIndex(dates []time.Time) map[time.Time][]cube.Period

	// DistinctPeriods returns the deduplicated union of periods containing
	// any of the dates
	DistinctPeriods(dates []time.Time) []cube.Period

	// WidenToAnchorUnits expands a date range outward to whole anchor units
	// so regeneration never rebuilds a period from a partial scan
	WidenToAnchorUnits(start, end time.Time) (time.Time, time.Time)
}

// DeltaGrouper nets transaction deltas into per-period adjustment buckets
type DeltaGrouper interface {
	GroupByPeriod(deltas []*delta.TransactionDelta) (map[cube.PeriodKey]*cube.Bucket, error)
}

// LedgerManager persists ledger mutations inside the enclosing database transaction
type LedgerManager interface {
	ApplyDelta(ctx context.Context, tx pgx.Tx, d *delta.TransactionDelta) error
	CreateBatch(ctx context.Context, tx pgx.Tx, txns []*transaction.Transaction) error
	LoadBatch(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, ids []uuid.UUID) ([]*transaction.Transaction, error)
	UpdateBatch(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, ids []uuid.UUID, changes transaction.FieldChanges) (int64, error)
	DeleteBatch(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, ids []uuid.UUID) (int64, error)
	ScanCubeFields(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, start, end time.Time) ([]transaction.CubeRelevantFields, error)
}

// Aggregator maintains cube rows: incremental bucket application and the
// bulk-regeneration fallback
type Aggregator interface {
	// ApplyBuckets upserts every non-empty bucket and returns the number of
	// rows adjusted
	ApplyBuckets(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, buckets map[cube.PeriodKey]*cube.Bucket) (int64, error)

	// RegenerateRange deletes every cube row overlapping the range and
	// rebuilds them from a fresh ledger scan. Returns periods rebuilt and
	// rows written.
	RegenerateRange(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, start, end time.Time) (int, int64, error)
}

// JournalRecorder writes the audit record of an applied mutation into the
// transactional outbox
type JournalRecorder interface {
	Record(ctx context.Context, tx pgx.Tx, entry *journal.Entry) error
}
