package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fintrack-trend-cube/internal/api_gateway/middleware"
	"github.com/fintrack-trend-cube/internal/api_gateway/service"
	"github.com/fintrack-trend-cube/internal/domain/transaction"
)

// TransactionHandler handles HTTP requests for ledger transaction operations
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

// Create accepts a new transaction and publishes it for asynchronous
// processing. The ledger write and cube update happen downstream, so the
// response is 202 with the assigned transaction ID.
func (h *TransactionHandler) Create(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	txn, err := transactionFromRequest(middleware.GetTenantID(c), req)
	if err != nil {
		h.logger.Error("Invalid transaction payload", "error", err)
		RespondBadRequest(c, err.Error())
		return
	}

	if err := h.transactionService.CreateTransaction(c.Request.Context(), txn, middleware.GetCorrelationID(c)); err != nil {
		h.logger.Error("Failed to create transaction", "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"transaction_id": txn.ID.String(),
		"status":         "PENDING",
	})
}

// Update accepts a partial update of a transaction and publishes it for
// asynchronous processing
func (h *TransactionHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	changes, err := fieldChangesFromRequest(req)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	if changes.IsEmpty() {
		RespondBadRequest(c, "No fields to update")
		return
	}

	err = h.transactionService.UpdateTransaction(c.Request.Context(), middleware.GetTenantID(c), id, changes, middleware.GetCorrelationID(c))
	if err != nil {
		if errorIsNotFound(err) {
			RespondNotFound(c, "Transaction not found")
			return
		}
		h.logger.Error("Failed to update transaction", "transaction_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"transaction_id": id.String(),
		"status":         "PENDING",
	})
}

// Delete publishes the removal of a transaction for asynchronous processing
func (h *TransactionHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	err = h.transactionService.DeleteTransaction(c.Request.Context(), middleware.GetTenantID(c), id, middleware.GetCorrelationID(c))
	if err != nil {
		if errorIsNotFound(err) {
			RespondNotFound(c, "Transaction not found")
			return
		}
		h.logger.Error("Failed to delete transaction", "transaction_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"transaction_id": id.String(),
		"status":         "PENDING",
	})
}

// GetByID retrieves transaction details by ID, returns 404 if not found
func (h *TransactionHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	txn, err := h.transactionService.GetTransactionByID(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.logger.Error("Failed to get transaction", "transaction_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}
	if txn == nil {
		RespondNotFound(c, "Transaction not found")
		return
	}

	RespondOK(c, mapTransactionToResponse(txn))
}

// List retrieves paginated transactions for the tenant
func (h *TransactionHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	txns, total, err := h.transactionService.ListTransactions(
		c.Request.Context(),
		middleware.GetTenantID(c),
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		h.logger.Error("Failed to list transactions", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		responses = append(responses, mapTransactionToResponse(txn))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// BulkCreate accepts a batch of transactions and publishes them as one
// asynchronous operation
func (h *TransactionHandler) BulkCreate(c *gin.Context) {
	var req BulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tenantID := middleware.GetTenantID(c)
	txns := make([]*transaction.Transaction, 0, len(req.Transactions))
	for _, item := range req.Transactions {
		txn, err := transactionFromRequest(tenantID, item)
		if err != nil {
			RespondBadRequest(c, err.Error())
			return
		}
		txns = append(txns, txn)
	}

	if err := h.transactionService.BulkCreateTransactions(c.Request.Context(), tenantID, txns, middleware.GetCorrelationID(c)); err != nil {
		h.logger.Error("Failed to bulk create transactions", "count", len(txns), "error", err)
		RespondInternalError(c)
		return
	}

	ids := make([]string, 0, len(txns))
	for _, txn := range txns {
		ids = append(ids, txn.ID.String())
	}

	RespondAccepted(c, gin.H{
		"transaction_ids": ids,
		"status":          "PENDING",
	})
}

// BulkUpdate applies the same field changes to a batch of transactions as one
// asynchronous operation
func (h *TransactionHandler) BulkUpdate(c *gin.Context) {
	var req BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ids, err := parseUUIDs(req.TransactionIDs)
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID: "+err.Error())
		return
	}

	changes, err := fieldChangesFromRequest(req.Changes)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	if changes.IsEmpty() {
		RespondBadRequest(c, "No fields to update")
		return
	}

	err = h.transactionService.BulkUpdateTransactions(c.Request.Context(), middleware.GetTenantID(c), ids, changes, middleware.GetCorrelationID(c))
	if err != nil {
		h.logger.Error("Failed to bulk update transactions", "count", len(ids), "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"transaction_count": len(ids),
		"status":            "PENDING",
	})
}

// BulkDelete removes a batch of transactions as one asynchronous operation
func (h *TransactionHandler) BulkDelete(c *gin.Context) {
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ids, err := parseUUIDs(req.TransactionIDs)
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID: "+err.Error())
		return
	}

	err = h.transactionService.BulkDeleteTransactions(c.Request.Context(), middleware.GetTenantID(c), ids, middleware.GetCorrelationID(c))
	if err != nil {
		h.logger.Error("Failed to bulk delete transactions", "count", len(ids), "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"transaction_count": len(ids),
		"status":            "PENDING",
	})
}
