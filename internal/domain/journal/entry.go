package journal

import (
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-trend-cube/internal/domain/shared"
)

// Entry records one applied cube mutation for auditability
type Entry struct {
	EntryID        uuid.UUID        `json:"entry_id" bson:"entry_id"`
	TenantID       uuid.UUID        `json:"tenant_id" bson:"tenant_id"`
	Kind           shared.EventKind `json:"kind" bson:"kind"`
	Operation      string           `json:"operation,omitempty" bson:"operation,omitempty"`
	TransactionIDs []uuid.UUID      `json:"transaction_ids,omitempty" bson:"transaction_ids,omitempty"`
	StartDate      time.Time        `json:"start_date" bson:"start_date"`
	EndDate        time.Time        `json:"end_date" bson:"end_date"`
	PeriodsTouched int              `json:"periods_touched" bson:"periods_touched"`
	RowsAdjusted   int64            `json:"rows_adjusted" bson:"rows_adjusted"`
	CorrelationID  string           `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	AppliedAt      time.Time        `json:"applied_at" bson:"applied_at"`
	ArchivedAt     *time.Time       `json:"archived_at,omitempty" bson:"archived_at,omitempty"`
}
