package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines ledger transaction persistence operations
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	CreateBatch(ctx context.Context, txns []*Transaction) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Transaction, error)
	GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Transaction, error)
	Update(ctx context.Context, txn *Transaction) error
	UpdateBatch(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, changes FieldChanges) (int64, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	DeleteBatch(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (int64, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// FindCubeRelevantByDateRange streams the cube projection of every
	// transaction for the tenant with a date inside [start, end]. Used by
	// cube regeneration.
	FindCubeRelevantByDateRange(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]CubeRelevantFields, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates missing ledger transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

// Is implements errors.Is matching; a target with a nil ID matches any
// ErrTransactionNotFound.
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}
