package delta

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-trend-cube/internal/domain/transaction"
)

// Bulk metadata errors
var (
	ErrEmptyBatch   = errors.New("bulk metadata requires at least one transaction")
	ErrEmptyChanges = errors.New("bulk metadata requires at least one changed field")
)

// ErrNonUniformOldValues indicates a batch whose rows disagree on the old
// value of a changed field. Incremental adjustment for such a batch is
// ambiguous; callers must fall back to per-row deltas or range regeneration.
type ErrNonUniformOldValues struct {
	Field string
}

func (e ErrNonUniformOldValues) Error() string {
	return fmt.Sprintf("bulk metadata: old values for field %q are not uniform across the batch", e.Field)
}

// Is implements errors.Is matching; a target with an empty field matches any
// ErrNonUniformOldValues.
func (e ErrNonUniformOldValues) Is(target error) bool {
	t, ok := target.(ErrNonUniformOldValues)
	if !ok {
		return false
	}
	return t.Field == "" || t.Field == e.Field
}

// BulkUpdateMetadata describes a batch mutation ("set category C on these N
// transactions") compactly: the changed fields, the affected ids, and the
// affected date range. It avoids materializing one TransactionDelta per row
// when thousands of rows change identically.
type BulkUpdateMetadata struct {
	TenantID       uuid.UUID                `json:"tenant_id"`
	TransactionIDs []uuid.UUID              `json:"transaction_ids"`
	Changes        transaction.FieldChanges `json:"changes"`
	OldValues      transaction.FieldChanges `json:"old_values"`
	StartDate      time.Time                `json:"start_date"`
	EndDate        time.Time                `json:"end_date"`
}

// NewBulkUpdateMetadata builds metadata for a uniform batch update over the
// given rows. For every changed field the rows must share a single old value;
// otherwise construction fails fast with ErrNonUniformOldValues.
//
// The returned date range covers every affected row's current date plus the
// new date when the change moves rows between days.
func NewBulkUpdateMetadata(tenantID uuid.UUID, changes transaction.FieldChanges, rows []*transaction.Transaction) (*BulkUpdateMetadata, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyBatch
	}
	if changes.IsEmpty() {
		return nil, ErrEmptyChanges
	}

	first := rows[0].CubeFields()
	start, end := first.Day(), first.Day()
	ids := make([]uuid.UUID, 0, len(rows))

	for _, row := range rows {
		f := row.CubeFields()
		ids = append(ids, row.ID)

		if day := f.Day(); day.Before(start) {
			start = day
		} else if day.After(end) {
			end = day
		}

		if changes.AccountID != nil && f.AccountID != first.AccountID {
			return nil, ErrNonUniformOldValues{Field: "account_id"}
		}
		if changes.CategoryID != nil && f.CategoryID != first.CategoryID {
			return nil, ErrNonUniformOldValues{Field: "category_id"}
		}
		if changes.Amount != nil && !f.Amount.Equal(first.Amount) {
			return nil, ErrNonUniformOldValues{Field: "amount"}
		}
		if changes.Date != nil && !f.Day().Equal(first.Day()) {
			return nil, ErrNonUniformOldValues{Field: "date"}
		}
		if changes.Type != nil && f.Type != first.Type {
			return nil, ErrNonUniformOldValues{Field: "type"}
		}
		if changes.IsRecurring != nil && f.IsRecurring != first.IsRecurring {
			return nil, ErrNonUniformOldValues{Field: "is_recurring"}
		}
	}

	if changes.Date != nil {
		if day := transaction.Day(*changes.Date); day.Before(start) {
			start = day
		} else if day.After(end) {
			end = day
		}
	}

	old := transaction.FieldChanges{}
	if changes.AccountID != nil {
		v := first.AccountID
		old.AccountID = &v
	}
	if changes.CategoryID != nil {
		v := first.CategoryID
		old.CategoryID = &v
	}
	if changes.Amount != nil {
		v := first.Amount
		old.Amount = &v
	}
	if changes.Date != nil {
		v := first.Day()
		old.Date = &v
	}
	if changes.Type != nil {
		v := first.Type
		old.Type = &v
	}
	if changes.IsRecurring != nil {
		v := first.IsRecurring
		old.IsRecurring = &v
	}

	return &BulkUpdateMetadata{
		TenantID:       tenantID,
		TransactionIDs: ids,
		Changes:        changes,
		OldValues:      old,
		StartDate:      start,
		EndDate:        end,
	}, nil
}
