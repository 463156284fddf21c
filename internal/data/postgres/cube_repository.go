package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fintrack-trend-cube/internal/domain/cube"
	"github.com/fintrack-trend-cube/internal/domain/transaction"
	"github.com/fintrack-trend-cube/internal/platform/persistence"
)

// CubeRepository implements the cube.Repository interface for PostgreSQL
type CubeRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewCubeRepository creates a new PostgreSQL cube repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewCubeRepository(logger *slog.Logger, db *persistence.PostgresDB) cube.Repository {
	return &CubeRepository{
		querier: db.Pool(), // Initialize with the pool
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls. The returned repository will use the provided
// transaction for all database operations.
func (r *CubeRepository) WithTx(tx pgx.Tx) cube.Repository {
	return &CubeRepository{
		querier: tx, // Use the transaction
		logger:  r.logger,
	}
}

// ApplyAdjustments upserts the net adjustments for one period bucket. The
// increment happens inside the database, so two concurrent writers hitting
// the same row both land their full adjustment.
func (r *CubeRepository) ApplyAdjustments(ctx context.Context, tenantID uuid.UUID, period cube.Period, adjustments map[cube.DimensionKey]*cube.Adjustment) error {
	query := `
		INSERT INTO cube_rows (tenant_id, period_type, period_start, period_end, account_id, category_id, transaction_type, is_recurring, amount_sum, transaction_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (tenant_id, period_type, period_start, account_id, category_id, transaction_type, is_recurring)
		DO UPDATE SET
			amount_sum = cube_rows.amount_sum + EXCLUDED.amount_sum,
			transaction_count = cube_rows.transaction_count + EXCLUDED.transaction_count,
			updated_at = NOW()
	`

	for dim, adj := range adjustments {
		_, err := r.querier.Exec(ctx, query,
			tenantID,
			period.Type,
			period.Start,
			period.End,
			dim.AccountID,
			dim.CategoryID,
			dim.Type,
			dim.IsRecurring,
			adj.Amount,
			adj.Count,
		)
		if err != nil {
			r.logger.Error("Failed to apply cube adjustment", "period", period.String(), "account_id", dim.AccountID.String(), "error", err)
			return fmt.Errorf("failed to apply cube adjustment: %w", err)
		}
	}

	return nil
}

// DeleteByPeriodStartRange removes every row of one granularity whose period
// start lies in [from, to] and returns the number of rows deleted
func (r *CubeRepository) DeleteByPeriodStartRange(ctx context.Context, tenantID uuid.UUID, granularity cube.Granularity, from, to time.Time) (int64, error) {
	query := `
		DELETE FROM cube_rows
		WHERE tenant_id = $1 AND period_type = $2 AND period_start BETWEEN $3 AND $4
	`

	result, err := r.querier.Exec(ctx, query, tenantID, granularity, transaction.Day(from), transaction.Day(to))
	if err != nil {
		r.logger.Error("Failed to delete cube rows", "granularity", string(granularity), "error", err)
		return 0, fmt.Errorf("failed to delete cube rows: %w", err)
	}

	return result.RowsAffected(), nil
}

// FindByPeriodStartRange returns rows of one granularity whose period start
// lies in [from, to], optionally narrowed by the filter
func (r *CubeRepository) FindByPeriodStartRange(ctx context.Context, tenantID uuid.UUID, granularity cube.Granularity, from, to time.Time, filter cube.RowFilter) ([]*cube.Row, error) {
	query := `
		SELECT tenant_id, period_type, period_start, period_end, account_id, category_id, transaction_type, is_recurring, amount_sum, transaction_count, updated_at
		FROM cube_rows
		WHERE tenant_id = $1 AND period_type = $2 AND period_start BETWEEN $3 AND $4
	`
	args := []interface{}{tenantID, granularity, transaction.Day(from), transaction.Day(to)}

	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		query += fmt.Sprintf(" AND account_id = $%d", len(args))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		query += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	query += " ORDER BY period_start, account_id, category_id"

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query cube rows", "granularity", string(granularity), "error", err)
		return nil, fmt.Errorf("failed to query cube rows: %w", err)
	}
	defer rows.Close()

	var result []*cube.Row
	for rows.Next() {
		var row cube.Row
		err := rows.Scan(
			&row.TenantID,
			&row.PeriodType,
			&row.PeriodStart,
			&row.PeriodEnd,
			&row.AccountID,
			&row.CategoryID,
			&row.Type,
			&row.IsRecurring,
			&row.AmountSum,
			&row.TransactionCount,
			&row.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cube row: %w", err)
		}
		row.PeriodStart = transaction.Day(row.PeriodStart)
		row.PeriodEnd = transaction.Day(row.PeriodEnd)
		result = append(result, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cube rows: %w", err)
	}

	return result, nil
}
