package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-trend-cube/internal/domain/cube"
	"github.com/fintrack-trend-cube/internal/domain/delta"
	"github.com/fintrack-trend-cube/internal/domain/journal"
	"github.com/fintrack-trend-cube/internal/domain/shared"
	"github.com/fintrack-trend-cube/internal/domain/transaction"
)

// Mock implementations of the dependencies

// fakeTxRunner runs the transactional function directly; the nil tx is fine
// because every mocked dependency ignores it.
type fakeTxRunner struct {
	err error
}

func (r *fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if r.err != nil {
		return r.err
	}
	return fn(nil)
}

type MockDeltaGrouper struct {
	mock.Mock
}

func (m *MockDeltaGrouper) GroupByPeriod(deltas []*delta.TransactionDelta) (map[cube.PeriodKey]*cube.Bucket, error) {
	args := m.Called(deltas)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[cube.PeriodKey]*cube.Bucket), args.Error(1)
}

type MockLedgerManager struct {
	mock.Mock
}

func (m *MockLedgerManager) ApplyDelta(ctx context.Context, tx pgx.Tx, d *delta.TransactionDelta) error {
	args := m.Called(ctx, tx, d)
	return args.Error(0)
}

func (m *MockLedgerManager) CreateBatch(ctx context.Context, tx pgx.Tx, txns []*transaction.Transaction) error {
	args := m.Called(ctx, tx, txns)
	return args.Error(0)
}

func (m *MockLedgerManager) LoadBatch(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, ids []uuid.UUID) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, tx, tenantID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockLedgerManager) UpdateBatch(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, ids []uuid.UUID, changes transaction.FieldChanges) (int64, error) {
	args := m.Called(ctx, tx, tenantID, ids, changes)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerManager) DeleteBatch(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, tx, tenantID, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerManager) ScanCubeFields(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, start, end time.Time) ([]transaction.CubeRelevantFields, error) {
	args := m.Called(ctx, tx, tenantID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]transaction.CubeRelevantFields), args.Error(1)
}

type MockAggregator struct {
	mock.Mock
}

func (m *MockAggregator) ApplyBuckets(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, buckets map[cube.PeriodKey]*cube.Bucket) (int64, error) {
	args := m.Called(ctx, tx, tenantID, buckets)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAggregator) RegenerateRange(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, start, end time.Time) (int, int64, error) {
	args := m.Called(ctx, tx, tenantID, start, end)
	return args.Int(0), args.Get(1).(int64), args.Error(2)
}

type MockJournalRecorder struct {
	mock.Mock
}

func (m *MockJournalRecorder) Record(ctx context.Context, tx pgx.Tx, entry *journal.Entry) error {
	args := m.Called(ctx, tx, entry)
	return args.Error(0)
}

type MockPeriodCalculator struct {
	mock.Mock
}

func (m *MockPeriodCalculator) PeriodFor(date time.Time, g cube.Granularity) cube.Period {
	return cube.PeriodFor(date, g)
}

func (m *MockPeriodCalculator) PeriodsFor(date time.Time) []cube.Period {
	periods := make([]cube.Period, 0, len(cube.SupportedGranularities()))
	for _, g := range cube.SupportedGranularities() {
		periods = append(periods, cube.PeriodFor(date, g))
	}
	return periods
}

func (m *MockPeriodCalculator) BuildIndex(dates []time.Time) map[time.Time][]cube.Period {
	index := make(map[time.Time][]cube.Period)
	for _, d := range dates {
		day := transaction.Day(d)
		if _, ok := index[day]; !ok {
			index[day] = m.PeriodsFor(day)
		}
	}
	return index
}

func (m *MockPeriodCalculator) DistinctPeriods(dates []time.Time) []cube.Period {
	seen := make(map[cube.PeriodKey]struct{})
	var periods []cube.Period
	for _, group := range m.BuildIndex(dates) {
		for _, p := range group {
			if _, ok := seen[p.Key()]; ok {
				continue
			}
			seen[p.Key()] = struct{}{}
			periods = append(periods, p)
		}
	}
	return periods
}

func (m *MockPeriodCalculator) WidenToAnchorUnits(start, end time.Time) (time.Time, time.Time) {
	return start, end
}

type serviceFixture struct {
	grouper         *MockDeltaGrouper
	ledgerManager   *MockLedgerManager
	aggregator      *MockAggregator
	journalRecorder *MockJournalRecorder
	service         CubeService
}

func newFixture(policy CubePolicy) *serviceFixture {
	f := &serviceFixture{
		grouper:         &MockDeltaGrouper{},
		ledgerManager:   &MockLedgerManager{},
		aggregator:      &MockAggregator{},
		journalRecorder: &MockJournalRecorder{},
	}
	f.service = NewCubeService(
		&fakeTxRunner{},
		&MockPeriodCalculator{},
		f.grouper,
		f.ledgerManager,
		f.aggregator,
		f.journalRecorder,
		policy,
		slog.Default(),
	)
	return f
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testFields(date time.Time, amount int64) transaction.CubeRelevantFields {
	return transaction.CubeRelevantFields{
		AccountID: uuid.New(),
		Amount:    decimal.NewFromInt(amount),
		Date:      date,
		Type:      transaction.TypeExpense,
	}
}

func testBuckets(date time.Time) map[cube.PeriodKey]*cube.Bucket {
	p := cube.PeriodFor(date, cube.GranularityMonthly)
	return map[cube.PeriodKey]*cube.Bucket{p.Key(): cube.NewBucket(p)}
}

func defaultPolicy() CubePolicy {
	return CubePolicy{DeltaBatchThreshold: 25, RegenerateChunkMonths: 12}
}

func TestCubeService_ProcessMutation_Delta(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("AppliesLedgerCubeAndJournalTogether", func(t *testing.T) {
		f := newFixture(defaultPolicy())
		d := delta.NewInsertDelta(tenantID, uuid.New(), testFields(day(2025, 8, 1), 100))
		event := shared.NewDeltaEvent(d, "corr-1")
		buckets := testBuckets(day(2025, 8, 1))

		f.ledgerManager.On("ApplyDelta", ctx, nil, d).Return(nil).Once()
		f.grouper.On("GroupByPeriod", []*delta.TransactionDelta{d}).Return(buckets, nil).Once()
		f.aggregator.On("ApplyBuckets", ctx, nil, tenantID, buckets).Return(int64(6), nil).Once()
		f.journalRecorder.On("Record", ctx, nil, mock.MatchedBy(func(entry *journal.Entry) bool {
			return entry.EntryID == event.EventID &&
				entry.Kind == shared.EventKindDelta &&
				entry.Operation == "INSERT" &&
				entry.RowsAdjusted == 6 &&
				entry.CorrelationID == "corr-1"
		})).Return(nil).Once()

		require.NoError(t, f.service.ProcessMutation(ctx, event))
		f.ledgerManager.AssertExpectations(t)
		f.aggregator.AssertExpectations(t)
		f.journalRecorder.AssertExpectations(t)
	})

	t.Run("EmptyDeltaIsAcknowledgedWithoutWork", func(t *testing.T) {
		f := newFixture(defaultPolicy())
		event := shared.NewDeltaEvent(&delta.TransactionDelta{
			TenantID:      tenantID,
			TransactionID: uuid.New(),
			Operation:     delta.OperationUpdate,
		}, "")

		require.NoError(t, f.service.ProcessMutation(ctx, event))
		f.ledgerManager.AssertNotCalled(t, "ApplyDelta")
	})

	t.Run("InvalidEventIsAcknowledged", func(t *testing.T) {
		f := newFixture(defaultPolicy())
		event := &shared.MutationEvent{EventID: uuid.New(), Kind: shared.EventKind("SNAPSHOT"), TenantID: tenantID}

		require.NoError(t, f.service.ProcessMutation(ctx, event))
		f.ledgerManager.AssertNotCalled(t, "ApplyDelta")
	})

	t.Run("MissingTransactionIsAcknowledged", func(t *testing.T) {
		f := newFixture(defaultPolicy())
		d := delta.NewUpdateDelta(tenantID, uuid.New(), testFields(day(2025, 8, 1), 100), testFields(day(2025, 8, 1), 150))
		event := shared.NewDeltaEvent(d, "")

		f.ledgerManager.On("ApplyDelta", ctx, nil, d).
			Return(transaction.ErrTransactionNotFound{TransactionID: d.TransactionID}).Once()

		assert.NoError(t, f.service.ProcessMutation(ctx, event), "missing rows never become present on retry")
	})

	t.Run("TransientErrorPropagatesForRetry", func(t *testing.T) {
		f := newFixture(defaultPolicy())
		d := delta.NewInsertDelta(tenantID, uuid.New(), testFields(day(2025, 8, 1), 100))
		event := shared.NewDeltaEvent(d, "")

		dbErr := errors.New("connection reset by peer")
		f.ledgerManager.On("ApplyDelta", ctx, nil, d).Return(dbErr).Once()

		assert.ErrorIs(t, f.service.ProcessMutation(ctx, event), dbErr)
	})
}

func TestCubeService_ProcessMutation_BulkCreate(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	makeTxns := func(t *testing.T, n int) []*transaction.Transaction {
		t.Helper()
		txns := make([]*transaction.Transaction, 0, n)
		for i := 0; i < n; i++ {
			txn, err := transaction.NewTransaction(tenantID, uuid.New(), uuid.Nil, decimal.NewFromInt(int64(i+1)), day(2025, 8, 1).AddDate(0, 0, i), transaction.TypeExpense, false, "")
			require.NoError(t, err)
			txns = append(txns, txn)
		}
		return txns
	}

	t.Run("SmallBatchGoesThroughDeltas", func(t *testing.T) {
		f := newFixture(CubePolicy{DeltaBatchThreshold: 5, RegenerateChunkMonths: 12})
		txns := makeTxns(t, 3)
		event := shared.NewBulkEvent(tenantID, &shared.BulkOperation{Kind: shared.BulkKindCreate, Transactions: txns}, "")
		buckets := testBuckets(day(2025, 8, 1))

		f.ledgerManager.On("CreateBatch", ctx, nil, txns).Return(nil).Once()
		f.grouper.On("GroupByPeriod", mock.MatchedBy(func(deltas []*delta.TransactionDelta) bool {
			return len(deltas) == 3 && deltas[0].Operation == delta.OperationInsert
		})).Return(buckets, nil).Once()
		f.aggregator.On("ApplyBuckets", ctx, nil, tenantID, buckets).Return(int64(18), nil).Once()
		f.journalRecorder.On("Record", ctx, nil, mock.Anything).Return(nil).Once()

		require.NoError(t, f.service.ProcessMutation(ctx, event))
		f.aggregator.AssertNotCalled(t, "RegenerateRange")
	})

	t.Run("LargeBatchFallsBackToRegeneration", func(t *testing.T) {
		f := newFixture(CubePolicy{DeltaBatchThreshold: 2, RegenerateChunkMonths: 12})
		txns := makeTxns(t, 4)
		event := shared.NewBulkEvent(tenantID, &shared.BulkOperation{Kind: shared.BulkKindCreate, Transactions: txns}, "")

		f.ledgerManager.On("CreateBatch", ctx, nil, txns).Return(nil).Once()
		f.aggregator.On("RegenerateRange", ctx, nil, tenantID, day(2025, 8, 1), day(2025, 8, 4)).
			Return(24, int64(40), nil).Once()
		f.journalRecorder.On("Record", ctx, nil, mock.MatchedBy(func(entry *journal.Entry) bool {
			return entry.PeriodsTouched == 24 && entry.RowsAdjusted == 40
		})).Return(nil).Once()

		require.NoError(t, f.service.ProcessMutation(ctx, event))
		f.grouper.AssertNotCalled(t, "GroupByPeriod")
	})
}

func TestCubeService_ProcessMutation_BulkUpdate(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	newCategory := uuid.New()

	makeRows := func(t *testing.T, categories []uuid.UUID) []*transaction.Transaction {
		t.Helper()
		rows := make([]*transaction.Transaction, 0, len(categories))
		for i, cat := range categories {
			txn, err := transaction.NewTransaction(tenantID, uuid.New(), cat, decimal.NewFromInt(10), day(2025, 8, 1).AddDate(0, 0, i), transaction.TypeExpense, false, "")
			require.NoError(t, err)
			rows = append(rows, txn)
		}
		return rows
	}

	t.Run("AlwaysRegeneratesAffectedRange", func(t *testing.T) {
		f := newFixture(defaultPolicy())
		sharedCategory := uuid.New()
		rows := makeRows(t, []uuid.UUID{sharedCategory, sharedCategory})
		ids := []uuid.UUID{rows[0].ID, rows[1].ID}
		changes := transaction.FieldChanges{CategoryID: &newCategory}
		event := shared.NewBulkEvent(tenantID, &shared.BulkOperation{Kind: shared.BulkKindUpdate, TransactionIDs: ids, Changes: &changes}, "")

		f.ledgerManager.On("LoadBatch", ctx, nil, tenantID, ids).Return(rows, nil).Once()
		f.ledgerManager.On("UpdateBatch", ctx, nil, tenantID, ids, changes).Return(int64(2), nil).Once()
		f.aggregator.On("RegenerateRange", ctx, nil, tenantID, day(2025, 8, 1), day(2025, 8, 2)).
			Return(12, int64(20), nil).Once()
		f.journalRecorder.On("Record", ctx, nil, mock.Anything).Return(nil).Once()

		require.NoError(t, f.service.ProcessMutation(ctx, event))
		f.aggregator.AssertExpectations(t)
	})

	t.Run("NonUniformOldValuesStillRegenerates", func(t *testing.T) {
		f := newFixture(defaultPolicy())
		rows := makeRows(t, []uuid.UUID{uuid.New(), uuid.New()})
		ids := []uuid.UUID{rows[0].ID, rows[1].ID}
		changes := transaction.FieldChanges{CategoryID: &newCategory}
		event := shared.NewBulkEvent(tenantID, &shared.BulkOperation{Kind: shared.BulkKindUpdate, TransactionIDs: ids, Changes: &changes}, "")

		f.ledgerManager.On("LoadBatch", ctx, nil, tenantID, ids).Return(rows, nil).Once()
		f.ledgerManager.On("UpdateBatch", ctx, nil, tenantID, ids, changes).Return(int64(2), nil).Once()
		f.aggregator.On("RegenerateRange", ctx, nil, tenantID, day(2025, 8, 1), day(2025, 8, 2)).
			Return(12, int64(20), nil).Once()
		f.journalRecorder.On("Record", ctx, nil, mock.Anything).Return(nil).Once()

		require.NoError(t, f.service.ProcessMutation(ctx, event))
	})

	t.Run("EmptyMatchIsAcknowledged", func(t *testing.T) {
		f := newFixture(defaultPolicy())
		ids := []uuid.UUID{uuid.New()}
		changes := transaction.FieldChanges{CategoryID: &newCategory}
		event := shared.NewBulkEvent(tenantID, &shared.BulkOperation{Kind: shared.BulkKindUpdate, TransactionIDs: ids, Changes: &changes}, "")

		f.ledgerManager.On("LoadBatch", ctx, nil, tenantID, ids).Return([]*transaction.Transaction{}, nil).Once()

		require.NoError(t, f.service.ProcessMutation(ctx, event))
		f.ledgerManager.AssertNotCalled(t, "UpdateBatch")
	})
}

func TestCubeService_ProcessMutation_BulkDelete(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("DeletesThenRegenerates", func(t *testing.T) {
		f := newFixture(defaultPolicy())
		txn, err := transaction.NewTransaction(tenantID, uuid.New(), uuid.Nil, decimal.NewFromInt(10), day(2025, 8, 15), transaction.TypeExpense, false, "")
		require.NoError(t, err)
		ids := []uuid.UUID{txn.ID}
		event := shared.NewBulkEvent(tenantID, &shared.BulkOperation{Kind: shared.BulkKindDelete, TransactionIDs: ids}, "")

		f.ledgerManager.On("LoadBatch", ctx, nil, tenantID, ids).Return([]*transaction.Transaction{txn}, nil).Once()
		f.ledgerManager.On("DeleteBatch", ctx, nil, tenantID, ids).Return(int64(1), nil).Once()
		f.aggregator.On("RegenerateRange", ctx, nil, tenantID, day(2025, 8, 15), day(2025, 8, 15)).
			Return(6, int64(6), nil).Once()
		f.journalRecorder.On("Record", ctx, nil, mock.Anything).Return(nil).Once()

		require.NoError(t, f.service.ProcessMutation(ctx, event))
	})
}

func TestCubeService_ProcessMutation_Regenerate(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("SingleChunk", func(t *testing.T) {
		f := newFixture(defaultPolicy())
		event := shared.NewRegenerateEvent(tenantID, day(2025, 1, 1), day(2025, 6, 30), "corr-9")

		f.aggregator.On("RegenerateRange", ctx, nil, tenantID, day(2025, 1, 1), day(2025, 6, 30)).
			Return(50, int64(200), nil).Once()
		f.journalRecorder.On("Record", ctx, nil, mock.MatchedBy(func(entry *journal.Entry) bool {
			return entry.Kind == shared.EventKindRegenerate && entry.PeriodsTouched == 50
		})).Return(nil).Once()

		require.NoError(t, f.service.ProcessMutation(ctx, event))
	})

	t.Run("LongRangeIsChunked", func(t *testing.T) {
		f := newFixture(CubePolicy{DeltaBatchThreshold: 25, RegenerateChunkMonths: 12})
		event := shared.NewRegenerateEvent(tenantID, day(2024, 1, 1), day(2025, 12, 31), "")

		f.aggregator.On("RegenerateRange", ctx, nil, tenantID, day(2024, 1, 1), day(2024, 12, 31)).
			Return(100, int64(400), nil).Once()
		f.aggregator.On("RegenerateRange", ctx, nil, tenantID, day(2025, 1, 1), day(2025, 12, 31)).
			Return(100, int64(400), nil).Once()
		f.journalRecorder.On("Record", ctx, nil, mock.MatchedBy(func(entry *journal.Entry) bool {
			return entry.PeriodsTouched == 200 && entry.RowsAdjusted == 800
		})).Return(nil).Once()

		require.NoError(t, f.service.ProcessMutation(ctx, event))
		f.aggregator.AssertExpectations(t)
	})

	t.Run("ChunkFailureAborts", func(t *testing.T) {
		f := newFixture(CubePolicy{DeltaBatchThreshold: 25, RegenerateChunkMonths: 12})
		event := shared.NewRegenerateEvent(tenantID, day(2024, 1, 1), day(2025, 12, 31), "")

		scanErr := errors.New("statement timeout")
		f.aggregator.On("RegenerateRange", ctx, nil, tenantID, day(2024, 1, 1), day(2024, 12, 31)).
			Return(0, int64(0), scanErr).Once()

		assert.ErrorIs(t, f.service.ProcessMutation(ctx, event), scanErr)
		f.journalRecorder.AssertNotCalled(t, "Record")
	})
}
