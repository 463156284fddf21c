package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fintrack-trend-cube/internal/cube_processor/service"
	"github.com/fintrack-trend-cube/internal/domain/delta"
	"github.com/fintrack-trend-cube/internal/domain/transaction"
)

// LedgerManagerImpl implements the LedgerManager interface
type LedgerManagerImpl struct {
	transactionRepo transaction.Repository
	logger          *slog.Logger
}

// NewLedgerManager creates a new LedgerManagerImpl
func NewLedgerManager(transactionRepo transaction.Repository, logger *slog.Logger) service.LedgerManager {
	return &LedgerManagerImpl{
		transactionRepo: transactionRepo,
		logger:          logger,
	}
}

// ApplyDelta persists the ledger mutation a delta describes. The cube and the
// ledger only stay consistent because this runs in the same database
// transaction as the cube adjustments.
func (m *LedgerManagerImpl) ApplyDelta(ctx context.Context, tx pgx.Tx, d *delta.TransactionDelta) error {
	repo := m.transactionRepo.WithTx(tx)

	switch d.Operation {
	case delta.OperationInsert:
		txn := &transaction.Transaction{
			ID:        d.TransactionID,
			TenantID:  d.TenantID,
			CreatedAt: d.Timestamp,
			UpdatedAt: d.Timestamp,
		}
		txn.ApplyCubeFields(*d.NewValues)
		if err := repo.Create(ctx, txn); err != nil {
			m.logger.Error("Failed to insert ledger transaction", "transaction_id", d.TransactionID.String(), "error", err)
			return fmt.Errorf("failed to insert transaction %s: %w", d.TransactionID.String(), err)
		}
	case delta.OperationUpdate:
		existing, err := repo.GetByID(ctx, d.TenantID, d.TransactionID)
		if err != nil {
			if errors.Is(err, transaction.ErrTransactionNotFound{}) {
				m.logger.Warn("Ledger transaction missing for update", "transaction_id", d.TransactionID.String())
			}
			return err
		}
		existing.ApplyCubeFields(*d.NewValues)
		if err := repo.Update(ctx, existing); err != nil {
			m.logger.Error("Failed to update ledger transaction", "transaction_id", d.TransactionID.String(), "error", err)
			return fmt.Errorf("failed to update transaction %s: %w", d.TransactionID.String(), err)
		}
	case delta.OperationDelete:
		if err := repo.Delete(ctx, d.TenantID, d.TransactionID); err != nil {
			m.logger.Error("Failed to delete ledger transaction", "transaction_id", d.TransactionID.String(), "error", err)
			return fmt.Errorf("failed to delete transaction %s: %w", d.TransactionID.String(), err)
		}
	default:
		return delta.ErrInvalidShape{Operation: d.Operation, Detail: "unknown operation"}
	}

	return nil
}

// CreateBatch inserts a batch of transactions into the ledger
func (m *LedgerManagerImpl) CreateBatch(ctx context.Context, tx pgx.Tx, txns []*transaction.Transaction) error {
	if err := m.transactionRepo.WithTx(tx).CreateBatch(ctx, txns); err != nil {
		m.logger.Error("Failed to insert transaction batch", "count", len(txns), "error", err)
		return fmt.Errorf("failed to insert batch of %d transactions: %w", len(txns), err)
	}
	return nil
}

// LoadBatch fetches the current state of the identified transactions
func (m *LedgerManagerImpl) LoadBatch(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, ids []uuid.UUID) ([]*transaction.Transaction, error) {
	rows, err := m.transactionRepo.WithTx(tx).GetByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch of %d transactions: %w", len(ids), err)
	}
	return rows, nil
}

// UpdateBatch applies uniform field changes to the identified transactions
func (m *LedgerManagerImpl) UpdateBatch(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, ids []uuid.UUID, changes transaction.FieldChanges) (int64, error) {
	updated, err := m.transactionRepo.WithTx(tx).UpdateBatch(ctx, tenantID, ids, changes)
	if err != nil {
		m.logger.Error("Failed to update transaction batch", "count", len(ids), "error", err)
		return 0, fmt.Errorf("failed to update batch of %d transactions: %w", len(ids), err)
	}
	return updated, nil
}

// DeleteBatch removes the identified transactions from the ledger
func (m *LedgerManagerImpl) DeleteBatch(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, ids []uuid.UUID) (int64, error) {
	deleted, err := m.transactionRepo.WithTx(tx).DeleteBatch(ctx, tenantID, ids)
	if err != nil {
		m.logger.Error("Failed to delete transaction batch", "count", len(ids), "error", err)
		return 0, fmt.Errorf("failed to delete batch of %d transactions: %w", len(ids), err)
	}
	return deleted, nil
}

// ScanCubeFields reads the cube projection of every ledger transaction in the
// date range
func (m *LedgerManagerImpl) ScanCubeFields(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, start, end time.Time) ([]transaction.CubeRelevantFields, error) {
	fields, err := m.transactionRepo.WithTx(tx).FindCubeRelevantByDateRange(ctx, tenantID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger for %s..%s: %w", start.Format(time.DateOnly), end.Format(time.DateOnly), err)
	}
	return fields, nil
}
