package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-trend-cube/internal/domain/cube"
	"github.com/fintrack-trend-cube/internal/domain/journal"
	"github.com/fintrack-trend-cube/internal/domain/transaction"
)

// TransactionService defines the interface for ledger mutation operations.
// Mutations are published as cube mutation events and applied asynchronously
// by the cube processor; reads go straight to the ledger store.
type TransactionService interface {
	// CreateTransaction publishes a single-transaction insert
	CreateTransaction(ctx context.Context, txn *transaction.Transaction, correlationID string) error

	// UpdateTransaction publishes an update carrying the transaction's old
	// and new cube-relevant values.
	// Returns ErrTransactionNotFound if the transaction doesn't exist.
	UpdateTransaction(ctx context.Context, tenantID, id uuid.UUID, changes transaction.FieldChanges, correlationID string) error

	// DeleteTransaction publishes a delete carrying the transaction's
	// last-known cube-relevant values.
	// Returns ErrTransactionNotFound if the transaction doesn't exist.
	DeleteTransaction(ctx context.Context, tenantID, id uuid.UUID, correlationID string) error

	// GetTransactionByID retrieves a transaction from the ledger.
	// Returns nil if the transaction is not found.
	GetTransactionByID(ctx context.Context, tenantID, id uuid.UUID) (*transaction.Transaction, error)

	// ListTransactions retrieves a paginated list of the tenant's transactions.
	// Returns transactions, total count, and any error.
	ListTransactions(ctx context.Context, tenantID uuid.UUID, page, perPage int) ([]*transaction.Transaction, int64, error)

	// BulkCreateTransactions publishes a batch insert as one bulk event
	BulkCreateTransactions(ctx context.Context, tenantID uuid.UUID, txns []*transaction.Transaction, correlationID string) error

	// BulkUpdateTransactions publishes uniform field changes for a batch
	BulkUpdateTransactions(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, changes transaction.FieldChanges, correlationID string) error

	// BulkDeleteTransactions publishes a batch delete
	BulkDeleteTransactions(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, correlationID string) error
}

// TrendService defines the interface for cube reads and maintenance
type TrendService interface {
	// GetTrends reads cube rows of one granularity whose period starts fall
	// inside [start, end], optionally filtered by account and category
	GetTrends(ctx context.Context, tenantID uuid.UUID, granularity cube.Granularity, start, end time.Time, filter cube.RowFilter) ([]*cube.Row, error)

	// RegenerateCube publishes a full cube rebuild over the date range and
	// returns the event ID for correlation
	RegenerateCube(ctx context.Context, tenantID uuid.UUID, start, end time.Time, correlationID string) (uuid.UUID, error)

	// GetJournal retrieves a paginated list of the tenant's applied cube
	// mutations, newest first. Returns entries, total count, and any error.
	GetJournal(ctx context.Context, tenantID uuid.UUID, page, perPage int) ([]*journal.Entry, int64, error)
}
