package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/agritrace-ledger/internal/api_gateway/service"
	"github.com/agritrace-ledger/internal/domain/trace"
)

// CertificateHandler handles HTTP requests for certificate verification
type CertificateHandler struct {
	traceService service.TraceabilityService
	logger       *slog.Logger
}

// NewCertificateHandler creates a new certificate handler
func NewCertificateHandler(logger *slog.Logger, traceService service.TraceabilityService) *CertificateHandler {
	return &CertificateHandler{
		traceService: traceService,
		logger:       logger,
	}
}

// Verify looks up a certificate by its verification hash. Unknown hashes are
// a valid negative result, not an error.
func (h *CertificateHandler) Verify(c *gin.Context) {
	hash := c.Param("hash")

	certificateID, found, err := h.traceService.VerifyCertificate(c.Request.Context(), hash)
	if err != nil {
		var invalidInput trace.ErrInvalidInput
		if errors.As(err, &invalidInput) {
			RespondBadRequest(c, invalidInput.Error())
			return
		}
		h.logger.Error("Failed to verify certificate", "verification_hash", hash, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, &CertificateVerifyResponse{
		VerificationHash: hash,
		CertificateID:    certificateID,
		IsValid:          found,
	})
}
