// Package delta models single ledger mutations in terms of the fields the
// trend cube aggregates over. A delta carries the cube-relevant values before
// and/or after a mutation; the cube applies the old side as a subtraction and
// the new side as an addition.
package delta

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-trend-cube/internal/domain/transaction"
)

// Common errors
var (
	ErrEmptyDelta     = errors.New("delta carries neither old nor new values")
	ErrMissingTenant  = errors.New("delta tenant cannot be empty")
	ErrMissingTransID = errors.New("delta transaction id cannot be empty")
)

// Operation identifies the ledger mutation a delta describes
type Operation string

const (
	OperationInsert Operation = "INSERT"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

// ErrInvalidShape indicates a delta whose old/new values do not match its operation
type ErrInvalidShape struct {
	Operation Operation
	Detail    string
}

func (e ErrInvalidShape) Error() string {
	return fmt.Sprintf("invalid %s delta: %s", e.Operation, e.Detail)
}

// TransactionDelta represents one ledger mutation event.
// INSERT carries NewValues only, DELETE carries OldValues only, UPDATE both.
type TransactionDelta struct {
	TransactionID uuid.UUID                       `json:"transaction_id"`
	TenantID      uuid.UUID                       `json:"tenant_id"`
	Operation     Operation                       `json:"operation"`
	OldValues     *transaction.CubeRelevantFields `json:"old_values,omitempty"`
	NewValues     *transaction.CubeRelevantFields `json:"new_values,omitempty"`
	Timestamp     time.Time                       `json:"timestamp"`
}

// NewInsertDelta builds the delta for a newly created transaction
func NewInsertDelta(tenantID, transactionID uuid.UUID, newValues transaction.CubeRelevantFields) *TransactionDelta {
	return &TransactionDelta{
		TransactionID: transactionID,
		TenantID:      tenantID,
		Operation:     OperationInsert,
		NewValues:     &newValues,
		Timestamp:     time.Now().UTC(),
	}
}

// NewUpdateDelta builds the delta for a mutated transaction. Old values must
// be captured before the ledger row is overwritten; they are unrecoverable
// afterwards.
func NewUpdateDelta(tenantID, transactionID uuid.UUID, oldValues, newValues transaction.CubeRelevantFields) *TransactionDelta {
	return &TransactionDelta{
		TransactionID: transactionID,
		TenantID:      tenantID,
		Operation:     OperationUpdate,
		OldValues:     &oldValues,
		NewValues:     &newValues,
		Timestamp:     time.Now().UTC(),
	}
}

// NewDeleteDelta builds the delta for a removed transaction from its
// last-known field values
func NewDeleteDelta(tenantID, transactionID uuid.UUID, oldValues transaction.CubeRelevantFields) *TransactionDelta {
	return &TransactionDelta{
		TransactionID: transactionID,
		TenantID:      tenantID,
		Operation:     OperationDelete,
		OldValues:     &oldValues,
		Timestamp:     time.Now().UTC(),
	}
}

// IsEmpty reports whether the delta carries no values at all. Empty deltas
// are degenerate no-ops and are filtered out rather than treated as errors.
func (d *TransactionDelta) IsEmpty() bool {
	return d.OldValues == nil && d.NewValues == nil
}

// Validate checks the delta invariants for its operation
func (d *TransactionDelta) Validate() error {
	if d.TenantID == uuid.Nil {
		return ErrMissingTenant
	}
	if d.TransactionID == uuid.Nil {
		return ErrMissingTransID
	}
	if d.IsEmpty() {
		return ErrEmptyDelta
	}

	switch d.Operation {
	case OperationInsert:
		if d.NewValues == nil {
			return ErrInvalidShape{Operation: d.Operation, Detail: "new values are required"}
		}
		if d.OldValues != nil {
			return ErrInvalidShape{Operation: d.Operation, Detail: "old values must be absent"}
		}
	case OperationUpdate:
		if d.OldValues == nil || d.NewValues == nil {
			return ErrInvalidShape{Operation: d.Operation, Detail: "both old and new values are required"}
		}
	case OperationDelete:
		if d.OldValues == nil {
			return ErrInvalidShape{Operation: d.Operation, Detail: "old values are required"}
		}
		if d.NewValues != nil {
			return ErrInvalidShape{Operation: d.Operation, Detail: "new values must be absent"}
		}
	default:
		return ErrInvalidShape{Operation: d.Operation, Detail: "unknown operation"}
	}

	return nil
}

// RelevantDates returns the distinct calendar days the delta touches: the old
// date, the new date, or both when an update moved the transaction between
// days. Empty deltas contribute no dates.
func (d *TransactionDelta) RelevantDates() []time.Time {
	var dates []time.Time
	if d.OldValues != nil {
		dates = append(dates, d.OldValues.Day())
	}
	if d.NewValues != nil {
		day := d.NewValues.Day()
		if len(dates) == 0 || !dates[0].Equal(day) {
			dates = append(dates, day)
		}
	}
	return dates
}
