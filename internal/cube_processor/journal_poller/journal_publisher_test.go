package journal_poller

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fintrack-trend-cube/internal/domain/journal"
	"github.com/fintrack-trend-cube/internal/domain/outbox"
	"github.com/fintrack-trend-cube/internal/domain/shared"
)

// MockOutboxRepo for testing
type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	args := m.Called(tx)
	return args.Get(0).(outbox.Repository)
}

// MockJournalRepo for testing
type MockJournalRepo struct {
	mock.Mock
}

func (m *MockJournalRepo) Create(ctx context.Context, entry *journal.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockJournalRepo) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*journal.Entry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Entry), args.Error(1)
}

func (m *MockJournalRepo) GetByTenantID(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*journal.Entry, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*journal.Entry), args.Error(1)
}

func (m *MockJournalRepo) CountByTenantID(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockJournalRepo) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*journal.Entry, error) {
	args := m.Called(ctx, startTime, endTime, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*journal.Entry), args.Error(1)
}

func TestJournalPublisher_PublishToJournal(t *testing.T) {
	mockOutboxRepo := &MockOutboxRepo{}
	mockJournalRepo := &MockJournalRepo{}
	logger := slog.Default()

	publisher := NewJournalPublisher(mockOutboxRepo, mockJournalRepo, logger)

	entryID := uuid.New()
	tenantID := uuid.New()
	entry := &journal.Entry{
		EntryID:        entryID,
		TenantID:       tenantID,
		Kind:           shared.EventKindDelta,
		Operation:      "INSERT",
		StartDate:      time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC),
		PeriodsTouched: 6,
		RowsAdjusted:   6,
		CorrelationID:  "corr1",
		AppliedAt:      time.Now().UTC(),
	}

	entryJSON, err := json.Marshal(entry)
	assert.NoError(t, err)

	message := &outbox.Message{
		ID:        1,
		EntryID:   entryID,
		TenantID:  tenantID,
		Status:    shared.OutboxStatusPending,
		Payload:   entryJSON,
		Attempts:  0,
		CreatedAt: time.Now(),
	}

	tests := []struct {
		name          string
		message       *outbox.Message
		setupMocks    func()
		expectedError error
	}{
		{
			name:    "successful archive - no existing entry",
			message: message,
			setupMocks: func() {
				mockJournalRepo.On("GetByEntryID", mock.Anything, entryID).Return(nil, journal.ErrEntryNotFound{EntryID: entryID}).Once()

				mockJournalRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *journal.Entry) bool {
					return e.EntryID == entryID && e.ArchivedAt != nil
				})).Return(nil).Once()

				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusProcessed).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name:    "entry already archived",
			message: message,
			setupMocks: func() {
				mockJournalRepo.On("GetByEntryID", mock.Anything, entryID).Return(entry, nil).Once()

				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusProcessed).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name:    "entry archived concurrently",
			message: message,
			setupMocks: func() {
				mockJournalRepo.On("GetByEntryID", mock.Anything, entryID).Return(nil, journal.ErrEntryNotFound{EntryID: entryID}).Once()

				mockJournalRepo.On("Create", mock.Anything, mock.Anything).Return(journal.ErrDuplicateEntry{EntryID: entryID}).Once()

				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusProcessed).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "error unmarshalling payload",
			message: &outbox.Message{
				ID:        1,
				EntryID:   entryID,
				TenantID:  tenantID,
				Status:    shared.OutboxStatusPending,
				Payload:   []byte("invalid json"),
				Attempts:  0,
				CreatedAt: time.Now(),
			},
			setupMocks: func() {
				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusFailedToPublish).Return(nil).Once()
			},
			expectedError: errors.New("unmarshal payload"),
		},
		{
			name:    "error checking existing entry",
			message: message,
			setupMocks: func() {
				mockJournalRepo.On("GetByEntryID", mock.Anything, entryID).Return(nil, errors.New("mongo down")).Once()
			},
			expectedError: errors.New("failed to check existing journal entry"),
		},
		{
			name:    "error creating journal entry",
			message: message,
			setupMocks: func() {
				mockJournalRepo.On("GetByEntryID", mock.Anything, entryID).Return(nil, journal.ErrEntryNotFound{EntryID: entryID}).Once()

				mockJournalRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db error")).Once()
			},
			expectedError: errors.New("failed to create journal entry"),
		},
		{
			name:    "error updating outbox status",
			message: message,
			setupMocks: func() {
				mockJournalRepo.On("GetByEntryID", mock.Anything, entryID).Return(nil, journal.ErrEntryNotFound{EntryID: entryID}).Once()

				mockJournalRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusProcessed).Return(errors.New("db error")).Once()
			},
			expectedError: errors.New("failed to mark outbox"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOutboxRepo = &MockOutboxRepo{}
			mockJournalRepo = &MockJournalRepo{}
			publisher = NewJournalPublisher(mockOutboxRepo, mockJournalRepo, logger)

			tt.setupMocks()
			ctx := context.Background()

			err := publisher.PublishToJournal(ctx, tt.message)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockOutboxRepo.AssertExpectations(t)
			mockJournalRepo.AssertExpectations(t)
		})
	}
}
