package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/fintrack-trend-cube/internal/cube_processor/service"
	"github.com/fintrack-trend-cube/internal/domain/journal"
	"github.com/fintrack-trend-cube/internal/domain/outbox"
)

type JournalRecorderImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewJournalRecorder(outboxRepo outbox.Repository, logger *slog.Logger) service.JournalRecorder {
	return &JournalRecorderImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Record writes the journal entry into the transactional outbox. The entry
// commits or rolls back together with the ledger and cube writes; the poller
// archives it to the journal store afterwards.
func (r *JournalRecorderImpl) Record(ctx context.Context, tx pgx.Tx, entry *journal.Entry) error {
	logger := r.logger
	if entry.CorrelationID != "" {
		logger = r.logger.With("correlation_id", entry.CorrelationID)
	}

	outboxRepoTx := r.outboxRepo.WithTx(tx)

	outboxMessage, err := outbox.NewMessage(entry)
	if err != nil {
		logger.Error("Failed to create new outbox message (marshal payload)",
			"entry_id", entry.EntryID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message payload for entry %s: %w", entry.EntryID.String(), err)
	}

	if err = outboxRepoTx.Create(ctx, outboxMessage); err != nil {
		logger.Error("Failed to create outbox message",
			"entry_id", entry.EntryID.String(),
			"tenant_id", entry.TenantID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for entry %s: %w", entry.EntryID.String(), err)
	}
	logger.Info("Journal outbox message created successfully",
		"entry_id", entry.EntryID.String(),
		"outbox_id", outboxMessage.ID,
	)

	return nil
}
