package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fintrack-trend-cube/internal/domain/delta"
	"github.com/fintrack-trend-cube/internal/domain/shared"
	"github.com/fintrack-trend-cube/internal/domain/transaction"
	"github.com/fintrack-trend-cube/internal/platform/messaging/producers"
)

// MockCubeService for testing
type MockCubeService struct {
	mock.Mock
}

func (m *MockCubeService) ProcessMutation(ctx context.Context, event *shared.MutationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockDeadLetterPublisher for testing
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestHandleMessage(t *testing.T) {
	mockCubeService := &MockCubeService{}
	mockDLQPublisher := &MockDeadLetterPublisher{}
	logger := slog.Default()

	handler := NewMutationEventHandler(logger, mockCubeService, mockDLQPublisher)

	tenantID := uuid.New()
	fields := transaction.CubeRelevantFields{
		AccountID: uuid.New(),
		Amount:    decimal.NewFromInt(100),
		Date:      time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC),
		Type:      transaction.TypeExpense,
	}
	validEvent := shared.NewDeltaEvent(delta.NewInsertDelta(tenantID, uuid.New(), fields), "corr1")

	validJSON, err := json.Marshal(validEvent)
	assert.NoError(t, err)

	tests := []struct {
		name          string
		key           []byte
		value         []byte
		setupMocks    func()
		expectedError error
	}{
		{
			name:  "successful processing",
			key:   []byte(tenantID.String()),
			value: validJSON,
			setupMocks: func() {
				mockCubeService.On("ProcessMutation", mock.Anything, mock.MatchedBy(func(event *shared.MutationEvent) bool {
					return event.EventID == validEvent.EventID && event.Kind == shared.EventKindDelta
				})).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:  "processing error",
			key:   []byte(tenantID.String()),
			value: validJSON,
			setupMocks: func() {
				mockCubeService.On("ProcessMutation", mock.Anything, mock.Anything).Return(errors.New("processing error"))
			},
			expectedError: errors.New("processing mutation event"),
		},
		{
			name:  "unmarshal error with successful DLQ publish",
			key:   []byte("test-key"),
			value: []byte("invalid json"),
			setupMocks: func() {
				mockDLQPublisher.On("PublishToDLQ", mock.Anything, "test-key", []byte("invalid json"), mock.Anything).Return(nil)
			},
			expectedError: nil, // No error because message was successfully sent to DLQ
		},
		{
			name:  "unmarshal error with DLQ publish failure",
			key:   []byte("test-key"),
			value: []byte("invalid json"),
			setupMocks: func() {
				mockDLQPublisher.On("PublishToDLQ", mock.Anything, "test-key", []byte("invalid json"), mock.Anything).Return(errors.New("dlq error"))
			},
			expectedError: errors.New("failed to unmarshal"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCubeService = &MockCubeService{}
			mockDLQPublisher = &MockDeadLetterPublisher{}
			mockDLQPublisher.On("Close").Return(nil).Maybe()

			handler = NewMutationEventHandler(logger, mockCubeService, mockDLQPublisher)

			tt.setupMocks()
			ctx := context.Background()

			err := handler.HandleMessage(ctx, tt.key, tt.value)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockCubeService.AssertExpectations(t)
			mockDLQPublisher.AssertExpectations(t)
		})
	}
}

func TestHandleMessage_NoDLQConfigured(t *testing.T) {
	mockCubeService := &MockCubeService{}
	handler := NewMutationEventHandler(slog.Default(), mockCubeService, nil)

	err := handler.HandleMessage(context.Background(), []byte("key"), []byte("not json"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
	mockCubeService.AssertNotCalled(t, "ProcessMutation")
}

// A disabled DLQ hands the handler a typed-nil *DLQProducer when wiring goes
// through the concrete type. The handler must survive a malformed message in
// that configuration instead of panicking on the nil receiver.
func TestHandleMessage_TypedNilDLQProducer(t *testing.T) {
	mockCubeService := &MockCubeService{}
	handler := NewMutationEventHandler(slog.Default(), mockCubeService, (*producers.DLQProducer)(nil))

	assert.NotPanics(t, func() {
		err := handler.HandleMessage(context.Background(), []byte("key"), []byte("not json"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal")
	})
	mockCubeService.AssertNotCalled(t, "ProcessMutation")
}
