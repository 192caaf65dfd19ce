package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/agritrace-ledger/internal/api_gateway/service"
	"github.com/agritrace-ledger/internal/domain/trace"
)

// BatchHandler handles HTTP requests for batch traceability operations
type BatchHandler struct {
	traceService service.TraceabilityService
	logger       *slog.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(logger *slog.Logger, traceService service.TraceabilityService) *BatchHandler {
	return &BatchHandler{
		traceService: traceService,
		logger:       logger,
	}
}

// Create opens a new batch with the farmer record
func (h *BatchHandler) Create(c *gin.Context) {
	var req CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	in, err := req.toInput()
	if err != nil {
		RespondBadRequest(c, "Invalid amount: "+err.Error())
		return
	}

	rec, err := h.traceService.CreateBatch(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondCreated(c, mapRecordToResponse(rec))
}

// AddProcessor appends a processing record to a batch
func (h *BatchHandler) AddProcessor(c *gin.Context) {
	var req ProcessorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	in, err := req.toInput()
	if err != nil {
		RespondBadRequest(c, "Invalid amount: "+err.Error())
		return
	}

	rec, err := h.traceService.AddProcessorData(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondCreated(c, mapRecordToResponse(rec))
}

// AddDistributor appends a distribution record to a batch
func (h *BatchHandler) AddDistributor(c *gin.Context) {
	var req DistributorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	in, err := req.toInput()
	if err != nil {
		RespondBadRequest(c, "Invalid amount: "+err.Error())
		return
	}

	rec, err := h.traceService.AddDistributorData(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondCreated(c, mapRecordToResponse(rec))
}

// AddRetailer appends a retail record to a batch
func (h *BatchHandler) AddRetailer(c *gin.Context) {
	var req RetailerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	in, err := req.toInput()
	if err != nil {
		RespondBadRequest(c, "Invalid amount: "+err.Error())
		return
	}

	rec, err := h.traceService.AddRetailerData(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondCreated(c, mapRecordToResponse(rec))
}

// MarkSold closes a batch with the consumer purchase record
func (h *BatchHandler) MarkSold(c *gin.Context) {
	var req SoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	in, err := req.toInput()
	if err != nil {
		RespondBadRequest(c, "Invalid amount: "+err.Error())
		return
	}

	rec, err := h.traceService.MarkAsSold(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondCreated(c, mapRecordToResponse(rec))
}

// GetTrace returns the full chain of a batch, empty for an unknown batch
func (h *BatchHandler) GetTrace(c *gin.Context) {
	batchID := c.Param("id")

	records, err := h.traceService.GetFullTrace(c.Request.Context(), batchID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondOK(c, mapTraceToResponse(batchID, records))
}

// GetCurrent returns the latest record of a batch
func (h *BatchHandler) GetCurrent(c *gin.Context) {
	rec, err := h.traceService.GetCurrentTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondOK(c, mapRecordToResponse(rec))
}

// GetStatus returns the denormalized batch summary
func (h *BatchHandler) GetStatus(c *gin.Context) {
	summary, err := h.traceService.GetBatchStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondOK(c, mapSummaryToResponse(summary))
}

// GetScan returns the QR scan aggregate, 404 for an unknown batch
func (h *BatchHandler) GetScan(c *gin.Context) {
	scan, err := h.traceService.GetScanPayload(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondOK(c, mapScanToResponse(scan))
}

// respondError maps domain error kinds to HTTP statuses
func (h *BatchHandler) respondError(c *gin.Context, err error) {
	var (
		notFound      trace.ErrBatchNotFound
		txNotFound    trace.ErrTransactionNotFound
		alreadyExists trace.ErrBatchAlreadyExists
		readOnly      trace.ErrBatchReadOnly
		badTarget     trace.ErrInvalidCorrectionTarget
		dupCert       trace.ErrDuplicateCertificate
		invalidInput  trace.ErrInvalidInput
		conflict      trace.ErrConflict
	)

	switch {
	case errors.As(err, &notFound):
		RespondNotFound(c, notFound.Error())
	case errors.As(err, &txNotFound):
		RespondNotFound(c, txNotFound.Error())
	case errors.As(err, &alreadyExists):
		RespondConflict(c, "BATCH_ALREADY_EXISTS", alreadyExists.Error())
	case errors.As(err, &readOnly):
		RespondConflict(c, "BATCH_READ_ONLY", readOnly.Error())
	case errors.As(err, &badTarget):
		RespondUnprocessable(c, "INVALID_CORRECTION_TARGET", badTarget.Error())
	case errors.As(err, &dupCert):
		RespondConflict(c, "DUPLICATE_CERTIFICATE", dupCert.Error())
	case errors.As(err, &invalidInput):
		RespondBadRequest(c, invalidInput.Error())
	case errors.As(err, &conflict):
		RespondConflict(c, "CONFLICT", conflict.Error())
	default:
		h.logger.Error("Unhandled error", "error", err)
		RespondInternalError(c)
	}
}
