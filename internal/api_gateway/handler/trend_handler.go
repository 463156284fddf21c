package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fintrack-trend-cube/internal/api_gateway/middleware"
	"github.com/fintrack-trend-cube/internal/api_gateway/service"
	"github.com/fintrack-trend-cube/internal/domain/cube"
)

// TrendHandler handles HTTP requests for cube queries and maintenance
type TrendHandler struct {
	trendService service.TrendService
	logger       *slog.Logger
}

// NewTrendHandler creates a new trend handler
func NewTrendHandler(logger *slog.Logger, trendService service.TrendService) *TrendHandler {
	return &TrendHandler{
		trendService: trendService,
		logger:       logger,
	}
}

// GetTrends retrieves cube aggregates of one granularity over a date range,
// optionally filtered by account and category
func (h *TrendHandler) GetTrends(c *gin.Context) {
	var params TrendQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid trend query parameters", "error", err)
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	granularity, err := cube.ParseGranularity(params.Granularity)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	start, err := time.Parse(time.DateOnly, params.StartDate)
	if err != nil {
		RespondBadRequest(c, "Invalid start date")
		return
	}
	end, err := time.Parse(time.DateOnly, params.EndDate)
	if err != nil {
		RespondBadRequest(c, "Invalid end date")
		return
	}
	if end.Before(start) {
		RespondBadRequest(c, "End date must not precede start date")
		return
	}

	var filter cube.RowFilter
	if params.AccountID != "" {
		accountID, err := uuid.Parse(params.AccountID)
		if err != nil {
			RespondBadRequest(c, "Invalid account ID")
			return
		}
		filter.AccountID = &accountID
	}
	if params.CategoryID != "" {
		categoryID, err := uuid.Parse(params.CategoryID)
		if err != nil {
			RespondBadRequest(c, "Invalid category ID")
			return
		}
		filter.CategoryID = &categoryID
	}

	rows, err := h.trendService.GetTrends(c.Request.Context(), middleware.GetTenantID(c), granularity, start, end, filter)
	if err != nil {
		h.logger.Error("Failed to get trends", "granularity", params.Granularity, "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]TrendRowResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, mapRowToResponse(row))
	}

	RespondOK(c, responses)
}

// Regenerate requests a cube rebuild for a date range. The rebuild runs
// asynchronously; the response carries the event ID for correlation.
func (h *TrendHandler) Regenerate(c *gin.Context) {
	var req RegenerateCubeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	start, err := time.Parse(time.DateOnly, req.StartDate)
	if err != nil {
		RespondBadRequest(c, "Invalid start date")
		return
	}
	end, err := time.Parse(time.DateOnly, req.EndDate)
	if err != nil {
		RespondBadRequest(c, "Invalid end date")
		return
	}
	if end.Before(start) {
		RespondBadRequest(c, "End date must not precede start date")
		return
	}

	eventID, err := h.trendService.RegenerateCube(c.Request.Context(), middleware.GetTenantID(c), start, end, middleware.GetCorrelationID(c))
	if err != nil {
		h.logger.Error("Failed to request cube regeneration", "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"event_id": eventID.String(),
		"status":   "PENDING",
	})
}

// GetJournal retrieves the tenant's paginated cube mutation journal
func (h *TrendHandler) GetJournal(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.trendService.GetJournal(
		c.Request.Context(),
		middleware.GetTenantID(c),
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		h.logger.Error("Failed to get journal entries", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]JournalEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapJournalEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}
