// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the trend cube system.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fintrack-trend-cube/internal/domain/transaction"
	"github.com/fintrack-trend-cube/internal/platform/persistence"
)

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(), // Initialize with the pool
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls. The returned repository will use the provided
// transaction for all database operations.
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx, // Use the transaction
		logger:  r.logger,
	}
}

const transactionColumns = "id, tenant_id, account_id, category_id, amount, date, type, is_recurring, description, created_at, updated_at"

// Create stores a new transaction in the database
func (r *TransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.TenantID,
		txn.AccountID,
		txn.CategoryID,
		txn.Amount,
		txn.Date,
		txn.Type,
		txn.IsRecurring,
		txn.Description,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction", "id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// CreateBatch stores a batch of transactions in the database
func (r *TransactionRepository) CreateBatch(ctx context.Context, txns []*transaction.Transaction) error {
	for _, txn := range txns {
		if err := r.Create(ctx, txn); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves a transaction by its ID, scoped to the tenant
func (r *TransactionRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE tenant_id = $1 AND id = $2
	`

	txn, err := r.scanOne(r.querier.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// GetByIDs retrieves the identified transactions, scoped to the tenant.
// Missing ids are silently absent from the result.
func (r *TransactionRepository) GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*transaction.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE tenant_id = $1 AND id = ANY($2)
		ORDER BY date, id
	`

	rows, err := r.querier.Query(ctx, query, tenantID, ids)
	if err != nil {
		r.logger.Error("Failed to get transactions by ids", "count", len(ids), "error", err)
		return nil, fmt.Errorf("failed to get transactions by ids: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// Update overwrites an existing transaction in the database
func (r *TransactionRepository) Update(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET account_id = $1, category_id = $2, amount = $3, date = $4, type = $5, is_recurring = $6, description = $7, updated_at = $8
		WHERE tenant_id = $9 AND id = $10
	`

	result, err := r.querier.Exec(ctx, query,
		txn.AccountID,
		txn.CategoryID,
		txn.Amount,
		txn.Date,
		txn.Type,
		txn.IsRecurring,
		txn.Description,
		txn.UpdatedAt,
		txn.TenantID,
		txn.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update transaction", "id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: txn.ID}
	}

	return nil
}

// UpdateBatch applies uniform field changes to the identified transactions
// and returns the number of rows updated
func (r *TransactionRepository) UpdateBatch(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, changes transaction.FieldChanges) (int64, error) {
	if len(ids) == 0 || changes.IsEmpty() {
		return 0, nil
	}

	var assignments []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if changes.AccountID != nil {
		assignments = append(assignments, "account_id = "+arg(*changes.AccountID))
	}
	if changes.CategoryID != nil {
		assignments = append(assignments, "category_id = "+arg(*changes.CategoryID))
	}
	if changes.Amount != nil {
		assignments = append(assignments, "amount = "+arg(*changes.Amount))
	}
	if changes.Date != nil {
		assignments = append(assignments, "date = "+arg(transaction.Day(*changes.Date)))
	}
	if changes.Type != nil {
		assignments = append(assignments, "type = "+arg(*changes.Type))
	}
	if changes.IsRecurring != nil {
		assignments = append(assignments, "is_recurring = "+arg(*changes.IsRecurring))
	}
	assignments = append(assignments, "updated_at = NOW()")

	query := "UPDATE transactions SET " + strings.Join(assignments, ", ") +
		" WHERE tenant_id = " + arg(tenantID) + " AND id = ANY(" + arg(ids) + ")"

	result, err := r.querier.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update transaction batch", "count", len(ids), "error", err)
		return 0, fmt.Errorf("failed to update transaction batch: %w", err)
	}

	return result.RowsAffected(), nil
}

// Delete removes a transaction from the database, scoped to the tenant
func (r *TransactionRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `
		DELETE FROM transactions
		WHERE tenant_id = $1 AND id = $2
	`

	result, err := r.querier.Exec(ctx, query, tenantID, id)
	if err != nil {
		r.logger.Error("Failed to delete transaction", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: id}
	}

	return nil
}

// DeleteBatch removes the identified transactions and returns the number of
// rows deleted
func (r *TransactionRepository) DeleteBatch(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		DELETE FROM transactions
		WHERE tenant_id = $1 AND id = ANY($2)
	`

	result, err := r.querier.Exec(ctx, query, tenantID, ids)
	if err != nil {
		r.logger.Error("Failed to delete transaction batch", "count", len(ids), "error", err)
		return 0, fmt.Errorf("failed to delete transaction batch: %w", err)
	}

	return result.RowsAffected(), nil
}

// List retrieves a page of the tenant's transactions ordered by date
func (r *TransactionRepository) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE tenant_id = $1
		ORDER BY date DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list transactions", "tenant_id", tenantID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// CountByTenant returns the number of transactions the tenant owns
func (r *TransactionRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM transactions
		WHERE tenant_id = $1
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, tenantID).Scan(&count); err != nil {
		r.logger.Error("Failed to count transactions", "tenant_id", tenantID.String(), "error", err)
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return count, nil
}

// FindCubeRelevantByDateRange reads the cube projection of every transaction
// for the tenant dated inside [start, end]
func (r *TransactionRepository) FindCubeRelevantByDateRange(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]transaction.CubeRelevantFields, error) {
	query := `
		SELECT account_id, category_id, amount, date, type, is_recurring
		FROM transactions
		WHERE tenant_id = $1 AND date BETWEEN $2 AND $3
	`

	rows, err := r.querier.Query(ctx, query, tenantID, transaction.Day(start), transaction.Day(end))
	if err != nil {
		r.logger.Error("Failed to scan transactions by date range", "tenant_id", tenantID.String(), "error", err)
		return nil, fmt.Errorf("failed to scan transactions by date range: %w", err)
	}
	defer rows.Close()

	var fields []transaction.CubeRelevantFields
	for rows.Next() {
		var f transaction.CubeRelevantFields
		if err := rows.Scan(&f.AccountID, &f.CategoryID, &f.Amount, &f.Date, &f.Type, &f.IsRecurring); err != nil {
			return nil, fmt.Errorf("failed to scan transaction projection: %w", err)
		}
		f.Date = transaction.Day(f.Date)
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transaction projections: %w", err)
	}

	return fields, nil
}

func (r *TransactionRepository) scanOne(row pgx.Row) (*transaction.Transaction, error) {
	var txn transaction.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.TenantID,
		&txn.AccountID,
		&txn.CategoryID,
		&txn.Amount,
		&txn.Date,
		&txn.Type,
		&txn.IsRecurring,
		&txn.Description,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	txn.Date = transaction.Day(txn.Date)
	return &txn, nil
}

func (r *TransactionRepository) scanAll(rows pgx.Rows) ([]*transaction.Transaction, error) {
	var txns []*transaction.Transaction
	for rows.Next() {
		txn, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return txns, nil
}
