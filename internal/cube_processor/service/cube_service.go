package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fintrack-trend-cube/internal/domain/delta"
	"github.com/fintrack-trend-cube/internal/domain/journal"
	"github.com/fintrack-trend-cube/internal/domain/shared"
	"github.com/fintrack-trend-cube/internal/domain/transaction"
)

// TxRunner runs a function inside a database transaction, rolling back when
// the function returns an error.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// CubePolicy holds the tunables deciding between incremental delta
// application and range regeneration.
type CubePolicy struct {
	// DeltaBatchThreshold is the largest bulk create applied as per-row
	// deltas; bigger batches fall back to range regeneration.
	DeltaBatchThreshold int
	// RegenerateChunkMonths bounds how many months one regeneration pass
	// scans at a time.
	RegenerateChunkMonths int
}

type CubeServiceImpl struct {
	db              TxRunner
	calculator      PeriodCalculator
	grouper         DeltaGrouper
	ledgerManager   LedgerManager
	aggregator      Aggregator
	journalRecorder JournalRecorder
	policy          CubePolicy
	logger          *slog.Logger
}

func NewCubeService(
	db TxRunner,
	calculator PeriodCalculator,
	grouper DeltaGrouper,
	ledgerManager LedgerManager,
	aggregator Aggregator,
	journalRecorder JournalRecorder,
	policy CubePolicy,
	logger *slog.Logger,
) CubeService {
	return &CubeServiceImpl{
		db:              db,
		calculator:      calculator,
		grouper:         grouper,
		ledgerManager:   ledgerManager,
		aggregator:      aggregator,
		journalRecorder: journalRecorder,
		policy:          policy,
		logger:          logger,
	}
}

// ProcessMutation applies one mutation event to the ledger and the cube in a
// single database transaction. Permanent failures (malformed events, missing
// rows) are logged and acknowledged; transient failures propagate so the
// consumer retries the message.
func (s *CubeServiceImpl) ProcessMutation(ctx context.Context, event *shared.MutationEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	if err := event.Validate(); err != nil {
		if errors.Is(err, delta.ErrEmptyDelta) {
			logger.Debug("Skipping empty delta event", "event_id", event.EventID.String())
			return nil
		}
		logger.Error("Dropping invalid mutation event", "event_id", event.EventID.String(), "kind", string(event.Kind), "error", err)
		return nil // Acknowledge; a malformed event never becomes valid on retry
	}

	logger.Info("Processing mutation event", "event_id", event.EventID.String(), "kind", string(event.Kind), "tenant_id", event.TenantID.String())

	var err error
	switch event.Kind {
	case shared.EventKindDelta:
		err = s.applyDelta(ctx, logger, event)
	case shared.EventKindBulk:
		err = s.applyBulk(ctx, logger, event)
	case shared.EventKindRegenerate:
		err = s.regenerate(ctx, logger, event)
	}

	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound{}) {
			logger.Warn("Mutation references a missing transaction, acknowledging", "event_id", event.EventID.String(), "error", err)
			return nil
		}
		logger.Error("Failed to process mutation event", "event_id", event.EventID.String(), "kind", string(event.Kind), "error", err)
		return err // Let Kafka retry
	}

	logger.Info("Successfully processed mutation event", "event_id", event.EventID.String())
	return nil
}

// applyDelta handles a single-transaction mutation incrementally: the ledger
// write, the cube adjustments, and the journal record commit together.
func (s *CubeServiceImpl) applyDelta(ctx context.Context, logger *slog.Logger, event *shared.MutationEvent) error {
	d := event.Delta

	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.ledgerManager.ApplyDelta(ctx, tx, d); err != nil {
			return err
		}

		buckets, err := s.grouper.GroupByPeriod([]*delta.TransactionDelta{d})
		if err != nil {
			return err
		}

		rowsAdjusted, err := s.aggregator.ApplyBuckets(ctx, tx, d.TenantID, buckets)
		if err != nil {
			return err
		}

		dates := d.RelevantDates()
		entry := s.newJournalEntry(event, string(d.Operation), []uuid.UUID{d.TransactionID}, dates[0], dates[len(dates)-1], len(buckets), rowsAdjusted)
		return s.journalRecorder.Record(ctx, tx, entry)
	})
}

// applyBulk handles batch mutations. Small creates are expanded into per-row
// insert deltas; everything else regenerates the affected date range, which
// is slower but immune to delta synthesis bugs at scale.
func (s *CubeServiceImpl) applyBulk(ctx context.Context, logger *slog.Logger, event *shared.MutationEvent) error {
	bulk := event.Bulk

	switch bulk.Kind {
	case shared.BulkKindCreate:
		return s.bulkCreate(ctx, logger, event)
	case shared.BulkKindUpdate:
		return s.bulkUpdate(ctx, logger, event)
	case shared.BulkKindDelete:
		return s.bulkDelete(ctx, logger, event)
	}
	return shared.ErrInvalidBulkKind
}

func (s *CubeServiceImpl) bulkCreate(ctx context.Context, logger *slog.Logger, event *shared.MutationEvent) error {
	txns := event.Bulk.Transactions
	start, end := dateRangeOfTransactions(txns)

	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.ledgerManager.CreateBatch(ctx, tx, txns); err != nil {
			return err
		}

		var periods int
		var rowsAdjusted int64
		if len(txns) <= s.policy.DeltaBatchThreshold {
			deltas := make([]*delta.TransactionDelta, 0, len(txns))
			for _, txn := range txns {
				deltas = append(deltas, delta.NewInsertDelta(txn.TenantID, txn.ID, txn.CubeFields()))
			}
			buckets, err := s.grouper.GroupByPeriod(deltas)
			if err != nil {
				return err
			}
			rowsAdjusted, err = s.aggregator.ApplyBuckets(ctx, tx, event.TenantID, buckets)
			if err != nil {
				return err
			}
			periods = len(buckets)
		} else {
			logger.Info("Bulk create above delta threshold, regenerating range",
				"count", len(txns), "threshold", s.policy.DeltaBatchThreshold)
			var err error
			periods, rowsAdjusted, err = s.regenerateChunks(ctx, tx, event.TenantID, start, end)
			if err != nil {
				return err
			}
		}

		entry := s.newJournalEntry(event, string(shared.BulkKindCreate), transactionIDs(txns), start, end, periods, rowsAdjusted)
		return s.journalRecorder.Record(ctx, tx, entry)
	})
}

func (s *CubeServiceImpl) bulkUpdate(ctx context.Context, logger *slog.Logger, event *shared.MutationEvent) error {
	bulk := event.Bulk

	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		rows, err := s.ledgerManager.LoadBatch(ctx, tx, event.TenantID, bulk.TransactionIDs)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			logger.Warn("Bulk update matched no transactions", "requested", len(bulk.TransactionIDs))
			return nil
		}

		// The metadata gives the tightest affected range when old values are
		// uniform; non-uniform batches fall back to the raw row dates since
		// the range regeneration below does not care about old values.
		start, end := dateRangeOfRows(rows, bulk.Changes)
		if md, mdErr := delta.NewBulkUpdateMetadata(event.TenantID, *bulk.Changes, rows); mdErr == nil {
			start, end = md.StartDate, md.EndDate
		} else if !errors.Is(mdErr, delta.ErrNonUniformOldValues{}) {
			return mdErr
		}

		updated, err := s.ledgerManager.UpdateBatch(ctx, tx, event.TenantID, bulk.TransactionIDs, *bulk.Changes)
		if err != nil {
			return err
		}

		periods, rowsAdjusted, err := s.regenerateChunks(ctx, tx, event.TenantID, start, end)
		if err != nil {
			return err
		}

		logger.Info("Bulk update applied", "updated", updated, "periods", periods)
		entry := s.newJournalEntry(event, string(shared.BulkKindUpdate), bulk.TransactionIDs, start, end, periods, rowsAdjusted)
		return s.journalRecorder.Record(ctx, tx, entry)
	})
}

func (s *CubeServiceImpl) bulkDelete(ctx context.Context, logger *slog.Logger, event *shared.MutationEvent) error {
	bulk := event.Bulk

	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		rows, err := s.ledgerManager.LoadBatch(ctx, tx, event.TenantID, bulk.TransactionIDs)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			logger.Warn("Bulk delete matched no transactions", "requested", len(bulk.TransactionIDs))
			return nil
		}

		start, end := dateRangeOfTransactions(rows)

		deleted, err := s.ledgerManager.DeleteBatch(ctx, tx, event.TenantID, bulk.TransactionIDs)
		if err != nil {
			return err
		}

		periods, rowsAdjusted, err := s.regenerateChunks(ctx, tx, event.TenantID, start, end)
		if err != nil {
			return err
		}

		logger.Info("Bulk delete applied", "deleted", deleted, "periods", periods)
		entry := s.newJournalEntry(event, string(shared.BulkKindDelete), bulk.TransactionIDs, start, end, periods, rowsAdjusted)
		return s.journalRecorder.Record(ctx, tx, entry)
	})
}

func (s *CubeServiceImpl) regenerate(ctx context.Context, logger *slog.Logger, event *shared.MutationEvent) error {
	req := event.Regenerate

	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		periods, rowsAdjusted, err := s.regenerateChunks(ctx, tx, event.TenantID, req.StartDate, req.EndDate)
		if err != nil {
			return err
		}

		logger.Info("Cube regeneration finished", "periods", periods, "rows", rowsAdjusted)
		entry := s.newJournalEntry(event, "", nil, transaction.Day(req.StartDate), transaction.Day(req.EndDate), periods, rowsAdjusted)
		return s.journalRecorder.Record(ctx, tx, entry)
	})
}

// regenerateChunks splits the range into month-bounded chunks so one pass
// never scans an unbounded span. Chunks sharing a straddling week both
// rebuild that week's buckets; the rebuild is idempotent, so the overlap is
// harmless.
func (s *CubeServiceImpl) regenerateChunks(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, start, end time.Time) (int, int64, error) {
	startDay := transaction.Day(start)
	endDay := transaction.Day(end)

	var totalPeriods int
	var totalRows int64
	for chunkStart := startDay; !chunkStart.After(endDay); {
		chunkEnd := chunkStart.AddDate(0, s.policy.RegenerateChunkMonths, 0).AddDate(0, 0, -1)
		if chunkEnd.After(endDay) {
			chunkEnd = endDay
		}

		periods, rows, err := s.aggregator.RegenerateRange(ctx, tx, tenantID, chunkStart, chunkEnd)
		if err != nil {
			return totalPeriods, totalRows, fmt.Errorf("regenerating chunk %s..%s: %w",
				chunkStart.Format(time.DateOnly), chunkEnd.Format(time.DateOnly), err)
		}
		totalPeriods += periods
		totalRows += rows

		chunkStart = chunkEnd.AddDate(0, 0, 1)
	}

	return totalPeriods, totalRows, nil
}

func (s *CubeServiceImpl) newJournalEntry(event *shared.MutationEvent, operation string, ids []uuid.UUID, start, end time.Time, periods int, rowsAdjusted int64) *journal.Entry {
	return &journal.Entry{
		EntryID:        event.EventID,
		TenantID:       event.TenantID,
		Kind:           event.Kind,
		Operation:      operation,
		TransactionIDs: ids,
		StartDate:      start,
		EndDate:        end,
		PeriodsTouched: periods,
		RowsAdjusted:   rowsAdjusted,
		CorrelationID:  event.CorrelationID,
		AppliedAt:      time.Now().UTC(),
	}
}

func transactionIDs(txns []*transaction.Transaction) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(txns))
	for _, txn := range txns {
		ids = append(ids, txn.ID)
	}
	return ids
}

func dateRangeOfTransactions(txns []*transaction.Transaction) (time.Time, time.Time) {
	start := transaction.Day(txns[0].Date)
	end := start
	for _, txn := range txns[1:] {
		day := transaction.Day(txn.Date)
		if day.Before(start) {
			start = day
		}
		if day.After(end) {
			end = day
		}
	}
	return start, end
}

func dateRangeOfRows(rows []*transaction.Transaction, changes *transaction.FieldChanges) (time.Time, time.Time) {
	start, end := dateRangeOfTransactions(rows)
	if changes != nil && changes.Date != nil {
		if day := transaction.Day(*changes.Date); day.Before(start) {
			start = day
		} else if day.After(end) {
			end = day
		}
	}
	return start, end
}
