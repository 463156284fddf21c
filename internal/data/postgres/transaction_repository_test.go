package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-trend-cube/internal/domain/transaction"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testTransaction(tenantID uuid.UUID) *transaction.Transaction {
	now := time.Now().UTC()
	return &transaction.Transaction{
		ID:          uuid.New(),
		TenantID:    tenantID,
		AccountID:   uuid.New(),
		CategoryID:  uuid.New(),
		Amount:      decimal.NewFromInt(100),
		Date:        time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC),
		Type:        transaction.TypeExpense,
		IsRecurring: false,
		Description: "groceries",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func transactionRows(txns ...*transaction.Transaction) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "tenant_id", "account_id", "category_id", "amount", "date", "type", "is_recurring", "description", "created_at", "updated_at"})
	for _, txn := range txns {
		rows.AddRow(txn.ID, txn.TenantID, txn.AccountID, txn.CategoryID, txn.Amount, txn.Date, txn.Type, txn.IsRecurring, txn.Description, txn.CreatedAt, txn.UpdatedAt)
	}
	return rows
}

func TestTransactionRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: logger}
	txn := testTransaction(uuid.New())

	query := `
		INSERT INTO transactions \(id, tenant_id, account_id, category_id, amount, date, type, is_recurring, description, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(txn.ID, txn.TenantID, txn.AccountID, txn.CategoryID, txn.Amount, txn.Date, txn.Type, txn.IsRecurring, txn.Description, txn.CreatedAt, txn.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, txn)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(txn.ID, txn.TenantID, txn.AccountID, txn.CategoryID, txn.Amount, txn.Date, txn.Type, txn.IsRecurring, txn.Description, txn.CreatedAt, txn.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, txn)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create transaction")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: logger}
	tenantID := uuid.New()
	expected := testTransaction(tenantID)

	query := `
		SELECT id, tenant_id, account_id, category_id, amount, date, type, is_recurring, description, created_at, updated_at
		FROM transactions
		WHERE tenant_id = \$1 AND id = \$2
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(tenantID, expected.ID).WillReturnRows(transactionRows(expected))

		txn, err := repo.GetByID(ctx, tenantID, expected.ID)
		assert.NoError(t, err)
		assert.Equal(t, expected, txn)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(tenantID, expected.ID).WillReturnError(pgx.ErrNoRows)

		txn, err := repo.GetByID(ctx, tenantID, expected.ID)
		assert.Error(t, err)
		assert.Nil(t, txn)
		var notFoundErr transaction.ErrTransactionNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, expected.ID, notFoundErr.TransactionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(tenantID, expected.ID).WillReturnError(dbErr)

		txn, err := repo.GetByID(ctx, tenantID, expected.ID)
		assert.Error(t, err)
		assert.Nil(t, txn)
		assert.Contains(t, err.Error(), "failed to get transaction")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_GetByIDs(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: logger}
	tenantID := uuid.New()
	txn1 := testTransaction(tenantID)
	txn2 := testTransaction(tenantID)
	ids := []uuid.UUID{txn1.ID, txn2.ID}

	query := `
		SELECT id, tenant_id, account_id, category_id, amount, date, type, is_recurring, description, created_at, updated_at
		FROM transactions
		WHERE tenant_id = \$1 AND id = ANY\(\$2\)
		ORDER BY date, id
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(tenantID, ids).WillReturnRows(transactionRows(txn1, txn2))

		txns, err := repo.GetByIDs(ctx, tenantID, ids)
		assert.NoError(t, err)
		assert.Len(t, txns, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty ids short-circuits", func(t *testing.T) {
		txns, err := repo.GetByIDs(ctx, tenantID, nil)
		assert.NoError(t, err)
		assert.Nil(t, txns)
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("query failed")
		mock.ExpectQuery(query).WithArgs(tenantID, ids).WillReturnError(dbErr)

		txns, err := repo.GetByIDs(ctx, tenantID, ids)
		assert.Error(t, err)
		assert.Nil(t, txns)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_Update(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: logger}
	txn := testTransaction(uuid.New())

	query := `
		UPDATE transactions
		SET account_id = \$1, category_id = \$2, amount = \$3, date = \$4, type = \$5, is_recurring = \$6, description = \$7, updated_at = \$8
		WHERE tenant_id = \$9 AND id = \$10
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(txn.AccountID, txn.CategoryID, txn.Amount, txn.Date, txn.Type, txn.IsRecurring, txn.Description, txn.UpdatedAt, txn.TenantID, txn.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, txn)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(txn.AccountID, txn.CategoryID, txn.Amount, txn.Date, txn.Type, txn.IsRecurring, txn.Description, txn.UpdatedAt, txn.TenantID, txn.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, txn)
		assert.Error(t, err)
		var notFoundErr transaction.ErrTransactionNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, txn.ID, notFoundErr.TransactionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("update db error")
		mock.ExpectExec(query).
			WithArgs(txn.AccountID, txn.CategoryID, txn.Amount, txn.Date, txn.Type, txn.IsRecurring, txn.Description, txn.UpdatedAt, txn.TenantID, txn.ID).
			WillReturnError(dbErr)

		err := repo.Update(ctx, txn)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update transaction")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_UpdateBatch(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: logger}
	tenantID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	newCategory := uuid.New()
	changes := transaction.FieldChanges{CategoryID: &newCategory}

	query := `UPDATE transactions SET category_id = \$1, updated_at = NOW\(\) WHERE tenant_id = \$2 AND id = ANY\(\$3\)`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(newCategory, tenantID, ids).
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))

		updated, err := repo.UpdateBatch(ctx, tenantID, ids, changes)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), updated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty changes short-circuits", func(t *testing.T) {
		updated, err := repo.UpdateBatch(ctx, tenantID, ids, transaction.FieldChanges{})
		assert.NoError(t, err)
		assert.Zero(t, updated)
	})

	t.Run("date change is day normalized", func(t *testing.T) {
		newDate := time.Date(2025, time.August, 5, 13, 45, 0, 0, time.UTC)
		dateChanges := transaction.FieldChanges{Date: &newDate}
		dateQuery := `UPDATE transactions SET date = \$1, updated_at = NOW\(\) WHERE tenant_id = \$2 AND id = ANY\(\$3\)`

		mock.ExpectExec(dateQuery).
			WithArgs(time.Date(2025, time.August, 5, 0, 0, 0, 0, time.UTC), tenantID, ids).
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))

		updated, err := repo.UpdateBatch(ctx, tenantID, ids, dateChanges)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), updated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("batch update error")
		mock.ExpectExec(query).
			WithArgs(newCategory, tenantID, ids).
			WillReturnError(dbErr)

		updated, err := repo.UpdateBatch(ctx, tenantID, ids, changes)
		assert.Error(t, err)
		assert.Zero(t, updated)
		assert.Contains(t, err.Error(), "failed to update transaction batch")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_Delete(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: logger}
	tenantID := uuid.New()
	id := uuid.New()

	query := `
		DELETE FROM transactions
		WHERE tenant_id = \$1 AND id = \$2
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(tenantID, id).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		err := repo.Delete(ctx, tenantID, id)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(tenantID, id).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.Delete(ctx, tenantID, id)
		assert.Error(t, err)
		var notFoundErr transaction.ErrTransactionNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_DeleteBatch(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: logger}
	tenantID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	query := `
		DELETE FROM transactions
		WHERE tenant_id = \$1 AND id = ANY\(\$2\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(tenantID, ids).
			WillReturnResult(pgxmock.NewResult("DELETE", 3))

		deleted, err := repo.DeleteBatch(ctx, tenantID, ids)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), deleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty ids short-circuits", func(t *testing.T) {
		deleted, err := repo.DeleteBatch(ctx, tenantID, nil)
		assert.NoError(t, err)
		assert.Zero(t, deleted)
	})
}

func TestTransactionRepository_List(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: logger}
	tenantID := uuid.New()
	txn := testTransaction(tenantID)

	query := `
		SELECT id, tenant_id, account_id, category_id, amount, date, type, is_recurring, description, created_at, updated_at
		FROM transactions
		WHERE tenant_id = \$1
		ORDER BY date DESC, id
		LIMIT \$2 OFFSET \$3
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(tenantID, 10, 0).WillReturnRows(transactionRows(txn))

		txns, err := repo.List(ctx, tenantID, 10, 0)
		assert.NoError(t, err)
		assert.Len(t, txns, 1)
		assert.Equal(t, txn.ID, txns[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("list error")
		mock.ExpectQuery(query).WithArgs(tenantID, 10, 0).WillReturnError(dbErr)

		txns, err := repo.List(ctx, tenantID, 10, 0)
		assert.Error(t, err)
		assert.Nil(t, txns)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_CountByTenant(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: logger}
	tenantID := uuid.New()

	query := `
		SELECT COUNT\(\*\)
		FROM transactions
		WHERE tenant_id = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(tenantID).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

		count, err := repo.CountByTenant(ctx, tenantID)
		assert.NoError(t, err)
		assert.Equal(t, int64(42), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("count error")
		mock.ExpectQuery(query).WithArgs(tenantID).WillReturnError(dbErr)

		count, err := repo.CountByTenant(ctx, tenantID)
		assert.Error(t, err)
		assert.Zero(t, count)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_FindCubeRelevantByDateRange(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: logger}
	tenantID := uuid.New()
	start := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.August, 31, 0, 0, 0, 0, time.UTC)

	query := `
		SELECT account_id, category_id, amount, date, type, is_recurring
		FROM transactions
		WHERE tenant_id = \$1 AND date BETWEEN \$2 AND \$3
	`

	t.Run("success", func(t *testing.T) {
		accountID := uuid.New()
		categoryID := uuid.New()
		rows := pgxmock.NewRows([]string{"account_id", "category_id", "amount", "date", "type", "is_recurring"}).
			AddRow(accountID, categoryID, decimal.NewFromInt(100), start, transaction.TypeExpense, false)

		mock.ExpectQuery(query).WithArgs(tenantID, start, end).WillReturnRows(rows)

		fields, err := repo.FindCubeRelevantByDateRange(ctx, tenantID, start, end)
		assert.NoError(t, err)
		require.Len(t, fields, 1)
		assert.Equal(t, accountID, fields[0].AccountID)
		assert.True(t, fields[0].Amount.Equal(decimal.NewFromInt(100)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("time of day stripped from bounds", func(t *testing.T) {
		noisyStart := time.Date(2025, time.August, 1, 15, 30, 0, 0, time.UTC)
		noisyEnd := time.Date(2025, time.August, 31, 7, 0, 0, 0, time.UTC)

		mock.ExpectQuery(query).WithArgs(tenantID, start, end).
			WillReturnRows(pgxmock.NewRows([]string{"account_id", "category_id", "amount", "date", "type", "is_recurring"}))

		fields, err := repo.FindCubeRelevantByDateRange(ctx, tenantID, noisyStart, noisyEnd)
		assert.NoError(t, err)
		assert.Empty(t, fields)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("scan error")
		mock.ExpectQuery(query).WithArgs(tenantID, start, end).WillReturnError(dbErr)

		fields, err := repo.FindCubeRelevantByDateRange(ctx, tenantID, start, end)
		assert.Error(t, err)
		assert.Nil(t, fields)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_WithTx(t *testing.T) {
	logger := newTestLogger()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	originalRepo := &TransactionRepository{querier: mockPool, logger: logger}

	mockPool.ExpectBegin()
	pgxTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	txRepo := originalRepo.WithTx(pgxTx)

	assert.NotNil(t, txRepo)
	assert.Equal(t, originalRepo.logger, txRepo.(*TransactionRepository).logger)
	assert.Equal(t, pgxTx, txRepo.(*TransactionRepository).querier, "Querier in new repo should be the transaction")

	assert.NoError(t, mockPool.ExpectationsWereMet())
}
