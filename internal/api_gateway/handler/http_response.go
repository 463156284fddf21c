package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fintrack-trend-cube/internal/api_gateway/middleware"
)

// Response is the envelope every API reply uses. Exactly one of Data or
// Error is set; Meta accompanies paginated lists.
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo carries a machine-readable code and a human-readable message
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo carries pagination metadata
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

// respond stamps the request's correlation ID onto the envelope and writes it
func respond(c *gin.Context, status int, r *Response) {
	r.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(status, r)
}

// RespondOK sends a 200 with data
func RespondOK(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, &Response{Data: data})
}

// RespondAccepted sends a 202 with data; used for mutations that are queued
// rather than applied synchronously
func RespondAccepted(c *gin.Context, data interface{}) {
	respond(c, http.StatusAccepted, &Response{Data: data})
}

// RespondWithPaginatedData sends data plus pagination metadata
func RespondWithPaginatedData(c *gin.Context, status int, data interface{}, page, perPage, totalItems int) {
	totalPages := totalItems / perPage
	if totalItems%perPage > 0 {
		totalPages++
	}
	respond(c, status, &Response{
		Data: data,
		Meta: &MetaInfo{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			TotalItems: totalItems,
		},
	})
}

// RespondBadRequest sends a 400 with the validation message
func RespondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondNotFound sends a 404
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	respondError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondInternalError sends a 500 with a generic message; the real cause
// stays in the logs
func RespondInternalError(c *gin.Context) {
	respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}

func respondError(c *gin.Context, status int, code, message string) {
	respond(c, status, &Response{Error: &ErrorInfo{Code: code, Message: message}})
}
