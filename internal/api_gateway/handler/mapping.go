package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fintrack-trend-cube/internal/domain/cube"
	"github.com/fintrack-trend-cube/internal/domain/journal"
	"github.com/fintrack-trend-cube/internal/domain/transaction"
)

// transactionFromRequest builds a domain transaction from a create request.
// The category is optional; an absent one maps to the uncategorized bucket.
func transactionFromRequest(tenantID uuid.UUID, req CreateTransactionRequest) (*transaction.Transaction, error) {
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("invalid account ID: %w", err)
	}

	categoryID := uuid.Nil
	if req.CategoryID != "" {
		categoryID, err = uuid.Parse(req.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("invalid category ID: %w", err)
		}
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %w", err)
	}

	return transaction.NewTransaction(tenantID, accountID, categoryID, amount, date, transaction.Type(req.Type), req.IsRecurring, req.Description)
}

// fieldChangesFromRequest builds a domain change set from an update request
func fieldChangesFromRequest(req UpdateTransactionRequest) (transaction.FieldChanges, error) {
	var changes transaction.FieldChanges

	if req.AccountID != nil {
		accountID, err := uuid.Parse(*req.AccountID)
		if err != nil {
			return changes, fmt.Errorf("invalid account ID: %w", err)
		}
		changes.AccountID = &accountID
	}
	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			return changes, fmt.Errorf("invalid category ID: %w", err)
		}
		changes.CategoryID = &categoryID
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			return changes, fmt.Errorf("invalid amount: %w", err)
		}
		changes.Amount = &amount
	}
	if req.Date != nil {
		date, err := time.Parse(time.DateOnly, *req.Date)
		if err != nil {
			return changes, fmt.Errorf("invalid date: %w", err)
		}
		changes.Date = &date
	}
	if req.Type != nil {
		txnType := transaction.Type(*req.Type)
		if !txnType.Valid() {
			return changes, transaction.ErrInvalidType
		}
		changes.Type = &txnType
	}
	if req.IsRecurring != nil {
		changes.IsRecurring = req.IsRecurring
	}

	return changes, nil
}

// parseUUIDs parses a list of UUID strings, failing on the first invalid one
func parseUUIDs(values []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, value := range values {
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// errorIsNotFound reports whether the error is a missing-transaction error
func errorIsNotFound(err error) bool {
	return errors.Is(err, transaction.ErrTransactionNotFound{})
}

// mapTransactionToResponse maps a domain transaction to a response DTO
func mapTransactionToResponse(txn *transaction.Transaction) TransactionResponse {
	response := TransactionResponse{
		ID:          txn.ID.String(),
		AccountID:   txn.AccountID.String(),
		Amount:      txn.Amount.String(),
		Date:        txn.Date.Format(time.DateOnly),
		Type:        string(txn.Type),
		IsRecurring: txn.IsRecurring,
		Description: txn.Description,
		CreatedAt:   txn.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   txn.UpdatedAt.Format(time.RFC3339),
	}

	if txn.CategoryID != uuid.Nil {
		response.CategoryID = txn.CategoryID.String()
	}

	return response
}

// mapRowToResponse maps a cube aggregate to a response DTO
func mapRowToResponse(row *cube.Row) TrendRowResponse {
	response := TrendRowResponse{
		PeriodType:       string(row.PeriodType),
		PeriodStart:      row.PeriodStart.Format(time.DateOnly),
		PeriodEnd:        row.PeriodEnd.Format(time.DateOnly),
		AccountID:        row.AccountID.String(),
		Type:             string(row.Type),
		IsRecurring:      row.IsRecurring,
		AmountSum:        row.AmountSum.String(),
		TransactionCount: row.TransactionCount,
	}

	if row.CategoryID != uuid.Nil {
		response.CategoryID = row.CategoryID.String()
	}

	return response
}

// mapJournalEntryToResponse maps a journal entry to a response DTO
func mapJournalEntryToResponse(entry *journal.Entry) JournalEntryResponse {
	ids := make([]string, 0, len(entry.TransactionIDs))
	for _, id := range entry.TransactionIDs {
		ids = append(ids, id.String())
	}

	return JournalEntryResponse{
		EntryID:        entry.EntryID.String(),
		Kind:           string(entry.Kind),
		Operation:      entry.Operation,
		TransactionIDs: ids,
		StartDate:      entry.StartDate.Format(time.DateOnly),
		EndDate:        entry.EndDate.Format(time.DateOnly),
		PeriodsTouched: entry.PeriodsTouched,
		RowsAdjusted:   entry.RowsAdjusted,
		AppliedAt:      entry.AppliedAt.Format(time.RFC3339),
	}
}
