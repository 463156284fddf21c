package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fintrack-trend-cube/internal/domain/delta"
	"github.com/fintrack-trend-cube/internal/domain/shared"
	"github.com/fintrack-trend-cube/internal/domain/transaction"
	"github.com/fintrack-trend-cube/internal/platform/messaging/producers"
)

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	transactionRepo transaction.Repository
	producer        producers.MessagePublisher
	logger          *slog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(logger *slog.Logger, transactionRepo transaction.Repository, producer producers.MessagePublisher) TransactionService {
	return &TransactionServiceImpl{
		transactionRepo: transactionRepo,
		producer:        producer,
		logger:          logger,
	}
}

// CreateTransaction publishes an insert delta for the transaction
func (s *TransactionServiceImpl) CreateTransaction(ctx context.Context, txn *transaction.Transaction, correlationID string) error {
	d := delta.NewInsertDelta(txn.TenantID, txn.ID, txn.CubeFields())
	event := shared.NewDeltaEvent(d, correlationID)

	if err := s.publish(ctx, event); err != nil {
		return err
	}

	s.logger.Info("Transaction create published",
		"transaction_id", txn.ID.String(),
		"tenant_id", txn.TenantID.String(),
		"type", string(txn.Type),
		"amount", txn.Amount.String(),
	)
	return nil
}

// UpdateTransaction loads the current ledger state to capture old values,
// then publishes an update delta. The old values must be read before the
// processor overwrites the row; they are unrecoverable afterwards.
func (s *TransactionServiceImpl) UpdateTransaction(ctx context.Context, tenantID, id uuid.UUID, changes transaction.FieldChanges, correlationID string) error {
	if changes.IsEmpty() {
		s.logger.Debug("Update with no field changes, nothing to publish", "transaction_id", id.String())
		return nil
	}

	existing, err := s.transactionRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		if !errors.Is(err, transaction.ErrTransactionNotFound{}) {
			s.logger.Error("Failed to load transaction for update", "transaction_id", id.String(), "error", err)
		}
		return err
	}

	oldValues := existing.CubeFields()
	newValues := changes.ApplyTo(oldValues)

	d := delta.NewUpdateDelta(tenantID, id, oldValues, newValues)
	event := shared.NewDeltaEvent(d, correlationID)

	if err := s.publish(ctx, event); err != nil {
		return err
	}

	s.logger.Info("Transaction update published", "transaction_id", id.String(), "tenant_id", tenantID.String())
	return nil
}

// DeleteTransaction loads the current ledger state and publishes a delete
// delta carrying its last-known values
func (s *TransactionServiceImpl) DeleteTransaction(ctx context.Context, tenantID, id uuid.UUID, correlationID string) error {
	existing, err := s.transactionRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		if !errors.Is(err, transaction.ErrTransactionNotFound{}) {
			s.logger.Error("Failed to load transaction for delete", "transaction_id", id.String(), "error", err)
		}
		return err
	}

	d := delta.NewDeleteDelta(tenantID, id, existing.CubeFields())
	event := shared.NewDeltaEvent(d, correlationID)

	if err := s.publish(ctx, event); err != nil {
		return err
	}

	s.logger.Info("Transaction delete published", "transaction_id", id.String(), "tenant_id", tenantID.String())
	return nil
}

// GetTransactionByID retrieves a transaction from the ledger. Returns nil if not found
func (s *TransactionServiceImpl) GetTransactionByID(ctx context.Context, tenantID, id uuid.UUID) (*transaction.Transaction, error) {
	txn, err := s.transactionRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound{}) {
			s.logger.Info("Transaction not found", "transaction_id", id.String())
			return nil, nil
		}
		s.logger.Error("Failed to get transaction by ID", "transaction_id", id.String(), "error", err)
		return nil, err
	}
	return txn, nil
}

// ListTransactions retrieves a paginated list of the tenant's transactions.
// Returns transactions, total count, and any error
func (s *TransactionServiceImpl) ListTransactions(ctx context.Context, tenantID uuid.UUID, page, perPage int) ([]*transaction.Transaction, int64, error) {
	offset := (page - 1) * perPage

	txns, err := s.transactionRepo.List(ctx, tenantID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.transactionRepo.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, 0, err
	}

	return txns, total, nil
}

// BulkCreateTransactions publishes a batch insert as one bulk event
func (s *TransactionServiceImpl) BulkCreateTransactions(ctx context.Context, tenantID uuid.UUID, txns []*transaction.Transaction, correlationID string) error {
	event := shared.NewBulkEvent(tenantID, &shared.BulkOperation{
		Kind:         shared.BulkKindCreate,
		Transactions: txns,
	}, correlationID)

	if err := s.publish(ctx, event); err != nil {
		return err
	}

	s.logger.Info("Bulk create published", "tenant_id", tenantID.String(), "count", len(txns))
	return nil
}

// BulkUpdateTransactions publishes uniform field changes for a batch
func (s *TransactionServiceImpl) BulkUpdateTransactions(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, changes transaction.FieldChanges, correlationID string) error {
	event := shared.NewBulkEvent(tenantID, &shared.BulkOperation{
		Kind:           shared.BulkKindUpdate,
		TransactionIDs: ids,
		Changes:        &changes,
	}, correlationID)

	if err := s.publish(ctx, event); err != nil {
		return err
	}

	s.logger.Info("Bulk update published", "tenant_id", tenantID.String(), "count", len(ids))
	return nil
}

// BulkDeleteTransactions publishes a batch delete
func (s *TransactionServiceImpl) BulkDeleteTransactions(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, correlationID string) error {
	event := shared.NewBulkEvent(tenantID, &shared.BulkOperation{
		Kind:           shared.BulkKindDelete,
		TransactionIDs: ids,
	}, correlationID)

	if err := s.publish(ctx, event); err != nil {
		return err
	}

	s.logger.Info("Bulk delete published", "tenant_id", tenantID.String(), "count", len(ids))
	return nil
}

func (s *TransactionServiceImpl) publish(ctx context.Context, event *shared.MutationEvent) error {
	if err := event.Validate(); err != nil {
		s.logger.Error("Refusing to publish invalid mutation event", "event_id", event.EventID.String(), "kind", string(event.Kind), "error", err)
		return err
	}

	// Key by tenant so one tenant's mutations stay ordered on a partition
	if err := s.producer.Publish(ctx, event.TenantID.String(), event); err != nil {
		s.logger.Error("Failed to publish mutation event",
			"event_id", event.EventID.String(),
			"kind", string(event.Kind),
			"error", err,
		)
		return err
	}
	return nil
}
