package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-trend-cube/internal/domain/delta"
	"github.com/fintrack-trend-cube/internal/domain/transaction"
)

// Envelope errors
var (
	ErrInvalidEventKind = errors.New("invalid mutation event kind")
	ErrMissingPayload   = errors.New("mutation event payload does not match its kind")
	ErrMissingTenant    = errors.New("mutation event tenant cannot be empty")
	ErrInvalidDateRange = errors.New("mutation event date range is invalid")
	ErrInvalidBulkKind  = errors.New("invalid bulk operation kind")
	ErrEmptyBulkPayload = errors.New("bulk operation carries no transactions")
)

// EventKind identifies the kind of cube mutation an event carries
type EventKind string

const (
	EventKindDelta      EventKind = "TRANSACTION_DELTA"
	EventKindBulk       EventKind = "BULK_OPERATION"
	EventKindRegenerate EventKind = "REGENERATE"
)

// BulkKind identifies the ledger operation a bulk payload performs
type BulkKind string

const (
	BulkKindCreate BulkKind = "CREATE"
	BulkKindUpdate BulkKind = "UPDATE"
	BulkKindDelete BulkKind = "DELETE"
)

// MutationEvent is the Kafka message the gateway publishes for every cube
// mutation. Exactly one payload field matching Kind is set.
type MutationEvent struct {
	EventID       uuid.UUID               `json:"event_id"`
	Kind          EventKind               `json:"kind"`
	TenantID      uuid.UUID               `json:"tenant_id"`
	CorrelationID string                  `json:"correlation_id,omitempty"`
	Timestamp     time.Time               `json:"timestamp"`
	Delta         *delta.TransactionDelta `json:"delta,omitempty"`
	Bulk          *BulkOperation          `json:"bulk,omitempty"`
	Regenerate    *RegenerateRequest      `json:"regenerate,omitempty"`
}

// BulkOperation describes a batch ledger mutation. CREATE carries the full
// transactions; UPDATE carries ids plus the uniform field changes; DELETE
// carries ids only.
type BulkOperation struct {
	Kind           BulkKind                   `json:"kind"`
	Transactions   []*transaction.Transaction `json:"transactions,omitempty"`
	TransactionIDs []uuid.UUID                `json:"transaction_ids,omitempty"`
	Changes        *transaction.FieldChanges  `json:"changes,omitempty"`
}

// RegenerateRequest asks for a full cube rebuild over a tenant date range
type RegenerateRequest struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// NewDeltaEvent wraps a single transaction delta in an envelope
func NewDeltaEvent(d *delta.TransactionDelta, correlationID string) *MutationEvent {
	return &MutationEvent{
		EventID:       uuid.New(),
		Kind:          EventKindDelta,
		TenantID:      d.TenantID,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
		Delta:         d,
	}
}

// NewBulkEvent wraps a bulk operation in an envelope
func NewBulkEvent(tenantID uuid.UUID, bulk *BulkOperation, correlationID string) *MutationEvent {
	return &MutationEvent{
		EventID:       uuid.New(),
		Kind:          EventKindBulk,
		TenantID:      tenantID,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
		Bulk:          bulk,
	}
}

// NewRegenerateEvent wraps a regeneration command in an envelope
func NewRegenerateEvent(tenantID uuid.UUID, start, end time.Time, correlationID string) *MutationEvent {
	return &MutationEvent{
		EventID:       uuid.New(),
		Kind:          EventKindRegenerate,
		TenantID:      tenantID,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
		Regenerate:    &RegenerateRequest{StartDate: start, EndDate: end},
	}
}

// Validate checks the envelope invariants for its kind
func (e *MutationEvent) Validate() error {
	if e.TenantID == uuid.Nil {
		return ErrMissingTenant
	}

	switch e.Kind {
	case EventKindDelta:
		if e.Delta == nil {
			return ErrMissingPayload
		}
		return e.Delta.Validate()
	case EventKindBulk:
		if e.Bulk == nil {
			return ErrMissingPayload
		}
		return e.Bulk.Validate()
	case EventKindRegenerate:
		if e.Regenerate == nil {
			return ErrMissingPayload
		}
		if e.Regenerate.StartDate.IsZero() || e.Regenerate.EndDate.IsZero() || e.Regenerate.EndDate.Before(e.Regenerate.StartDate) {
			return ErrInvalidDateRange
		}
		return nil
	}
	return ErrInvalidEventKind
}

// Validate checks the bulk payload invariants for its kind
func (b *BulkOperation) Validate() error {
	switch b.Kind {
	case BulkKindCreate:
		if len(b.Transactions) == 0 {
			return ErrEmptyBulkPayload
		}
	case BulkKindUpdate:
		if len(b.TransactionIDs) == 0 {
			return ErrEmptyBulkPayload
		}
		if b.Changes == nil || b.Changes.IsEmpty() {
			return ErrMissingPayload
		}
	case BulkKindDelete:
		if len(b.TransactionIDs) == 0 {
			return ErrEmptyBulkPayload
		}
	default:
		return ErrInvalidBulkKind
	}
	return nil
}
