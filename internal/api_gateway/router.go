package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fintrack-trend-cube/internal/api_gateway/handler"
	"github.com/fintrack-trend-cube/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	transactionHandler *handler.TransactionHandler,
	trendHandler *handler.TrendHandler,
) {
	// Correlation before logging so every request log carries the ID
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	// API v1 endpoints, all tenant-scoped
	v1 := r.Group("/api/v1")
	v1.Use(middleware.TenantID())
	{
		// Ledger transaction operations
		transactions := v1.Group("/transactions")
		{
			transactions.POST("", transactionHandler.Create)
			transactions.GET("", transactionHandler.List)
			transactions.GET("/:id", transactionHandler.GetByID)
			transactions.PUT("/:id", transactionHandler.Update)
			transactions.DELETE("/:id", transactionHandler.Delete)
			transactions.POST("/bulk", transactionHandler.BulkCreate)
			transactions.PUT("/bulk", transactionHandler.BulkUpdate)
			transactions.POST("/bulk-delete", transactionHandler.BulkDelete)
		}

		// Trend cube operations
		trends := v1.Group("/trends")
		{
			trends.GET("", trendHandler.GetTrends)
		}

		cube := v1.Group("/cube")
		{
			cube.POST("/regenerate", trendHandler.Regenerate)
			cube.GET("/journal", trendHandler.GetJournal)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
