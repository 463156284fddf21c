package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fintrack-trend-cube/internal/cube_processor/service"
	"github.com/fintrack-trend-cube/internal/domain/shared"
	"github.com/fintrack-trend-cube/internal/platform/messaging/producers"
)

// MutationEventHandler handles incoming cube mutation messages from Kafka
type MutationEventHandler struct {
	cubeService service.CubeService
	producer    producers.DeadLetterPublisher
	logger      *slog.Logger
}

// NewMutationEventHandler creates a new handler
func NewMutationEventHandler(
	logger *slog.Logger,
	cubeService service.CubeService,
	producer producers.DeadLetterPublisher,
) *MutationEventHandler {
	return &MutationEventHandler{
		cubeService: cubeService,
		producer:    producer,
		logger:      logger,
	}
}

// HandleMessage processes Kafka messages
func (h *MutationEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.MutationEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal mutation event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received mutation event for processing",
		"event_id", event.EventID.String(),
		"kind", string(event.Kind),
		"tenant_id", event.TenantID.String(),
	)

	if err := h.cubeService.ProcessMutation(ctx, &event); err != nil {
		logger.Error("Failed to process mutation event",
			"event_id", event.EventID.String(),
			"kind", string(event.Kind),
			"error", err,
		)
		return fmt.Errorf("processing mutation event %s failed: %w", event.EventID.String(), err)
	}

	logger.Info("Successfully processed mutation event", "event_id", event.EventID.String())
	return nil // Success, commit offset
}
