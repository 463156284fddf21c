package handler

// CreateTransactionRequest represents a request to create a new transaction
type CreateTransactionRequest struct {
	AccountID   string `json:"account_id" binding:"required,uuid"`
	CategoryID  string `json:"category_id" binding:"omitempty,uuid"`
	Amount      string `json:"amount" binding:"required"`
	Date        string `json:"date" binding:"required,datetime=2006-01-02"`
	Type        string `json:"type" binding:"required,oneof=INCOME EXPENSE TRANSFER"`
	IsRecurring bool   `json:"is_recurring"`
	Description string `json:"description"`
}

// UpdateTransactionRequest represents a partial update of a transaction.
// Omitted fields are left untouched.
type UpdateTransactionRequest struct {
	AccountID   *string `json:"account_id" binding:"omitempty,uuid"`
	CategoryID  *string `json:"category_id" binding:"omitempty,uuid"`
	Amount      *string `json:"amount"`
	Date        *string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Type        *string `json:"type" binding:"omitempty,oneof=INCOME EXPENSE TRANSFER"`
	IsRecurring *bool   `json:"is_recurring"`
}

// BulkCreateRequest represents a request to create many transactions at once
type BulkCreateRequest struct {
	Transactions []CreateTransactionRequest `json:"transactions" binding:"required,min=1,dive"`
}

// BulkUpdateRequest represents a request to apply the same field changes to
// many transactions at once
type BulkUpdateRequest struct {
	TransactionIDs []string                 `json:"transaction_ids" binding:"required,min=1,dive,uuid"`
	Changes        UpdateTransactionRequest `json:"changes" binding:"required"`
}

// BulkDeleteRequest represents a request to delete many transactions at once
type BulkDeleteRequest struct {
	TransactionIDs []string `json:"transaction_ids" binding:"required,min=1,dive,uuid"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	CategoryID  string `json:"category_id,omitempty"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	IsRecurring bool   `json:"is_recurring"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// TrendQueryParams represents the query parameters of a trend request
type TrendQueryParams struct {
	Granularity string `form:"granularity" binding:"required"`
	StartDate   string `form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate     string `form:"end_date" binding:"required,datetime=2006-01-02"`
	AccountID   string `form:"account_id" binding:"omitempty,uuid"`
	CategoryID  string `form:"category_id" binding:"omitempty,uuid"`
}

// TrendRowResponse represents one cube aggregate in API responses
type TrendRowResponse struct {
	PeriodType       string `json:"period_type"`
	PeriodStart      string `json:"period_start"`
	PeriodEnd        string `json:"period_end"`
	AccountID        string `json:"account_id"`
	CategoryID       string `json:"category_id,omitempty"`
	Type             string `json:"type"`
	IsRecurring      bool   `json:"is_recurring"`
	AmountSum        string `json:"amount_sum"`
	TransactionCount int64  `json:"transaction_count"`
}

// RegenerateCubeRequest represents a request to rebuild cube aggregates for
// a date range
type RegenerateCubeRequest struct {
	StartDate string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" binding:"required,datetime=2006-01-02"`
}

// JournalEntryResponse represents an applied cube mutation in API responses
type JournalEntryResponse struct {
	EntryID        string   `json:"entry_id"`
	Kind           string   `json:"kind"`
	Operation      string   `json:"operation,omitempty"`
	TransactionIDs []string `json:"transaction_ids,omitempty"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	PeriodsTouched int      `json:"periods_touched"`
	RowsAdjusted   int64    `json:"rows_adjusted"`
	AppliedAt      string   `json:"applied_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
