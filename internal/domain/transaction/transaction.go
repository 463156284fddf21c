package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidType    = errors.New("invalid transaction type")
	ErrZeroDate       = errors.New("transaction date must be set")
	ErrMissingAccount = errors.New("transaction account cannot be empty")
	ErrMissingTenant  = errors.New("transaction tenant cannot be empty")
)

// Type defines the kind of ledger transaction
type Type string

const (
	TypeIncome   Type = "INCOME"
	TypeExpense  Type = "EXPENSE"
	TypeTransfer Type = "TRANSFER"
)

// Valid reports whether t is one of the supported transaction types
func (t Type) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

// CubeRelevantFields is the projection of a transaction the trend cube
// aggregates over. Everything else on a transaction (description, audit
// timestamps) is irrelevant to aggregation and deliberately excluded to keep
// deltas small.
type CubeRelevantFields struct {
	AccountID   uuid.UUID       `json:"account_id"`
	CategoryID  uuid.UUID       `json:"category_id"` // uuid.Nil means uncategorized
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"` // calendar day, no time-of-day semantics
	Type        Type            `json:"type"`
	IsRecurring bool            `json:"is_recurring"`
}

// Day returns the calendar day of the fields, normalized to UTC midnight.
func (f CubeRelevantFields) Day() time.Time {
	return Day(f.Date)
}

// Day normalizes a timestamp to its calendar day at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Transaction represents a ledger transaction scoped to a tenant
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	AccountID   uuid.UUID       `json:"account_id"`
	CategoryID  uuid.UUID       `json:"category_id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Type        Type            `json:"type"`
	IsRecurring bool            `json:"is_recurring"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewTransaction creates a ledger transaction with the given parameters
func NewTransaction(tenantID, accountID, categoryID uuid.UUID, amount decimal.Decimal, date time.Time, txnType Type, isRecurring bool, description string) (*Transaction, error) {
	if tenantID == uuid.Nil {
		return nil, ErrMissingTenant
	}
	if accountID == uuid.Nil {
		return nil, ErrMissingAccount
	}
	if !txnType.Valid() {
		return nil, ErrInvalidType
	}
	if date.IsZero() {
		return nil, ErrZeroDate
	}

	now := time.Now()
	return &Transaction{
		ID:          uuid.New(),
		TenantID:    tenantID,
		AccountID:   accountID,
		CategoryID:  categoryID,
		Amount:      amount,
		Date:        Day(date),
		Type:        txnType,
		IsRecurring: isRecurring,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CubeFields projects the transaction onto the fields the cube aggregates
func (t *Transaction) CubeFields() CubeRelevantFields {
	return CubeRelevantFields{
		AccountID:   t.AccountID,
		CategoryID:  t.CategoryID,
		Amount:      t.Amount,
		Date:        Day(t.Date),
		Type:        t.Type,
		IsRecurring: t.IsRecurring,
	}
}

// ApplyCubeFields overwrites the cube-relevant fields of the transaction
func (t *Transaction) ApplyCubeFields(f CubeRelevantFields) {
	t.AccountID = f.AccountID
	t.CategoryID = f.CategoryID
	t.Amount = f.Amount
	t.Date = Day(f.Date)
	t.Type = f.Type
	t.IsRecurring = f.IsRecurring
	t.UpdatedAt = time.Now()
}

// FieldChanges describes a uniform set of field updates applied to many
// transactions at once. Nil fields are left untouched.
type FieldChanges struct {
	AccountID   *uuid.UUID       `json:"account_id,omitempty"`
	CategoryID  *uuid.UUID       `json:"category_id,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
	Type        *Type            `json:"type,omitempty"`
	IsRecurring *bool            `json:"is_recurring,omitempty"`
}

// IsEmpty reports whether the change set touches no fields
func (c FieldChanges) IsEmpty() bool {
	return c.AccountID == nil && c.CategoryID == nil && c.Amount == nil &&
		c.Date == nil && c.Type == nil && c.IsRecurring == nil
}

// ApplyTo returns a copy of fields with the changes applied
func (c FieldChanges) ApplyTo(f CubeRelevantFields) CubeRelevantFields {
	if c.AccountID != nil {
		f.AccountID = *c.AccountID
	}
	if c.CategoryID != nil {
		f.CategoryID = *c.CategoryID
	}
	if c.Amount != nil {
		f.Amount = *c.Amount
	}
	if c.Date != nil {
		f.Date = Day(*c.Date)
	}
	if c.Type != nil {
		f.Type = *c.Type
	}
	if c.IsRecurring != nil {
		f.IsRecurring = *c.IsRecurring
	}
	return f
}
