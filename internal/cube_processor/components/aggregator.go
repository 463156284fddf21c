package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fintrack-trend-cube/internal/cube_processor/service"
	"github.com/fintrack-trend-cube/internal/domain/cube"
	"github.com/fintrack-trend-cube/internal/domain/transaction"
)

// AggregatorImpl implements the Aggregator interface
type AggregatorImpl struct {
	cubeRepo   cube.Repository
	ledger     service.LedgerManager
	calculator service.PeriodCalculator
	logger     *slog.Logger
}

// NewAggregator creates a new AggregatorImpl
func NewAggregator(cubeRepo cube.Repository, ledger service.LedgerManager, calculator service.PeriodCalculator, logger *slog.Logger) service.Aggregator {
	return &AggregatorImpl{
		cubeRepo:   cubeRepo,
		ledger:     ledger,
		calculator: calculator,
		logger:     logger,
	}
}

// ApplyBuckets upserts every non-empty bucket as atomic increments on the
// cube rows it touches. Buckets whose adjustments net to zero are skipped;
// they would not change any row.
func (a *AggregatorImpl) ApplyBuckets(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, buckets map[cube.PeriodKey]*cube.Bucket) (int64, error) {
	cubeRepoTx := a.cubeRepo.WithTx(tx)

	var rowsAdjusted int64
	for _, bucket := range buckets {
		adjustments := make(map[cube.DimensionKey]*cube.Adjustment, len(bucket.Adjustments))
		for dim, adj := range bucket.Adjustments {
			if adj.IsZero() {
				continue
			}
			adjustments[dim] = adj
		}
		if len(adjustments) == 0 {
			continue
		}

		if err := cubeRepoTx.ApplyAdjustments(ctx, tenantID, bucket.Period, adjustments); err != nil {
			a.logger.Error("Failed to apply cube adjustments", "period", bucket.Period.String(), "tuples", len(adjustments), "error", err)
			return rowsAdjusted, fmt.Errorf("failed to apply adjustments for period %s: %w", bucket.Period.String(), err)
		}
		rowsAdjusted += int64(len(adjustments))
	}

	return rowsAdjusted, nil
}

// RegenerateRange rebuilds every cube bucket anchored inside [start, end]
// from a fresh ledger scan. Affected rows are deleted first, then the scan is
// re-bucketed and written back, so the result is identical to having applied
// every delta incrementally.
//
// The scan range is widened to whole anchor units; transactions in the
// widened margin that anchor outside the requested range are skipped so
// neighbouring buckets are never double-counted.
func (a *AggregatorImpl) RegenerateRange(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, start, end time.Time) (int, int64, error) {
	cubeRepoTx := a.cubeRepo.WithTx(tx)

	startDay := transaction.Day(start)
	endDay := transaction.Day(end)

	// Anchor-start window per granularity; doubles as delete range and
	// rebuild filter.
	anchorFrom := make(map[cube.Granularity]time.Time)
	anchorTo := make(map[cube.Granularity]time.Time)
	for _, g := range cube.SupportedGranularities() {
		anchorFrom[g] = a.calculator.PeriodFor(startDay, g).Start
		anchorTo[g] = a.calculator.PeriodFor(endDay, g).Start

		deleted, err := cubeRepoTx.DeleteByPeriodStartRange(ctx, tenantID, g, anchorFrom[g], anchorTo[g])
		if err != nil {
			return 0, 0, fmt.Errorf("failed to clear %s cube rows for regeneration: %w", g, err)
		}
		a.logger.Debug("Cleared cube rows for regeneration", "granularity", string(g), "deleted", deleted)
	}

	scanStart, scanEnd := a.calculator.WidenToAnchorUnits(startDay, endDay)
	fields, err := a.ledger.ScanCubeFields(ctx, tx, tenantID, scanStart, scanEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to scan ledger for regeneration: %w", err)
	}

	dates := make([]time.Time, 0, len(fields))
	for _, f := range fields {
		dates = append(dates, f.Day())
	}
	index := a.calculator.BuildIndex(dates)

	buckets := make(map[cube.PeriodKey]*cube.Bucket)
	for _, f := range fields {
		for _, p := range index[f.Day()] {
			if p.Start.Before(anchorFrom[p.Type]) || p.Start.After(anchorTo[p.Type]) {
				continue
			}
			key := p.Key()
			b, ok := buckets[key]
			if !ok {
				b = cube.NewBucket(p)
				buckets[key] = b
			}
			b.Credit(f)
		}
	}

	rowsWritten, err := a.ApplyBuckets(ctx, tx, tenantID, buckets)
	if err != nil {
		return 0, 0, err
	}

	a.logger.Info("Cube range regenerated",
		"tenant_id", tenantID.String(),
		"range", startDay.Format(time.DateOnly)+".."+endDay.Format(time.DateOnly),
		"transactions", len(fields),
		"periods", len(buckets),
		"rows", rowsWritten,
	)
	return len(buckets), rowsWritten, nil
}
