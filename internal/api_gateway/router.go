package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agritrace-ledger/internal/api_gateway/handler"
	"github.com/agritrace-ledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	batchHandler *handler.BatchHandler,
	certificateHandler *handler.CertificateHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Batch lifecycle and queries
		batches := v1.Group("/batches")
		{
			batches.POST("", batchHandler.Create)
			batches.POST("/:id/processor", batchHandler.AddProcessor)
			batches.POST("/:id/distributor", batchHandler.AddDistributor)
			batches.POST("/:id/retailer", batchHandler.AddRetailer)
			batches.POST("/:id/sold", batchHandler.MarkSold)
			batches.GET("/:id/trace", batchHandler.GetTrace)
			batches.GET("/:id/current", batchHandler.GetCurrent)
			batches.GET("/:id/status", batchHandler.GetStatus)
			batches.GET("/:id/qr", batchHandler.GetScan)
		}

		// Certificate verification
		certificates := v1.Group("/certificates")
		{
			certificates.GET("/:hash/verify", certificateHandler.Verify)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
