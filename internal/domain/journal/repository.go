package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages journal entry persistence with pagination support
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByEntryID(ctx context.Context, entryID uuid.UUID) (*Entry, error)
	GetByTenantID(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByTenantID(ctx context.Context, tenantID uuid.UUID) (int64, error)
	GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*Entry, error)
}

// ErrEntryNotFound indicates missing journal entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "journal entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// If the target EntryID is empty, consider it a match for any ErrEntryNotFound
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrDuplicateEntry indicates journal entry uniqueness violation
type ErrDuplicateEntry struct {
	EntryID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate journal entry: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	// If the target EntryID is empty, consider it a match for any ErrDuplicateEntry
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}
