package journal_poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fintrack-trend-cube/internal/domain/journal"
	"github.com/fintrack-trend-cube/internal/domain/outbox"
	"github.com/fintrack-trend-cube/internal/domain/shared"
)

// JournalPublisher archives outbox messages to the journal store
type JournalPublisher interface {
	PublishToJournal(ctx context.Context, message *outbox.Message) error
}

// JournalPublisherImpl implements JournalPublisher
type JournalPublisherImpl struct {
	outboxRepo  outbox.Repository
	journalRepo journal.Repository
	logger      *slog.Logger
}

// NewJournalPublisher creates a new publisher
func NewJournalPublisher(
	outboxRepo outbox.Repository,
	journalRepo journal.Repository,
	logger *slog.Logger,
) JournalPublisher {
	return &JournalPublisherImpl{
		outboxRepo:  outboxRepo,
		journalRepo: journalRepo,
		logger:      logger,
	}
}

// PublishToJournal archives a message's journal entry to the journal store
func (p *JournalPublisherImpl) PublishToJournal(ctx context.Context, message *outbox.Message) error {
	var entryToArchive journal.Entry
	if err := json.Unmarshal(message.Payload, &entryToArchive); err != nil {
		p.logger.Error("Failed to unmarshal journal entry from outbox payload",
			"outbox_id", message.ID, "entry_id", message.EntryID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	// Add correlation ID to logger
	logger := p.logger
	if entryToArchive.CorrelationID != "" {
		logger = p.logger.With("correlation_id", entryToArchive.CorrelationID)
	}

	logger.Info("Attempting to archive outbox message to journal", "outbox_id", message.ID, "entry_id", message.EntryID)

	now := time.Now().UTC()
	entryToArchive.ArchivedAt = &now

	existing, err := p.journalRepo.GetByEntryID(ctx, entryToArchive.EntryID)
	if err != nil && !errors.Is(err, journal.ErrEntryNotFound{}) {
		logger.Error("Failed to check existing journal entry before archiving", "entry_id", entryToArchive.EntryID, "error", err)
		return fmt.Errorf("failed to check existing journal entry %s: %w", entryToArchive.EntryID, err)
	}

	if existing != nil {
		// A replayed event already archived this entry
		logger.Info("Journal entry already archived", "entry_id", entryToArchive.EntryID)
	} else {
		if err = p.journalRepo.Create(ctx, &entryToArchive); err != nil {
			if errors.Is(err, journal.ErrDuplicateEntry{}) {
				logger.Info("Journal entry archived concurrently", "entry_id", entryToArchive.EntryID)
			} else {
				logger.Error("Failed to create journal entry in MongoDB", "entry_id", entryToArchive.EntryID, "error", err)
				return fmt.Errorf("failed to create journal entry %s: %w", entryToArchive.EntryID, err)
			}
		} else {
			logger.Info("Successfully created journal entry in MongoDB", "entry_id", entryToArchive.EntryID)
		}
	}

	// Mark outbox message as processed
	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "entry_id", message.EntryID, "error", err,
		)
		return fmt.Errorf("journal write for %s OK, but failed to mark outbox %d as PROCESSED: %w", message.EntryID, message.ID, err)
	}

	logger.Info("Outbox message successfully processed and marked as PROCESSED", "outbox_id", message.ID, "entry_id", message.EntryID)
	return nil
}
