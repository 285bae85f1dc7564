package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/tia/core"
	"github.com/layer-3/tia/service"
	"go.uber.org/zap"
)

// ProofHandlers contains HTTP handlers for the proof endpoints
type ProofHandlers struct {
	verificationService *service.VerificationService
	logger              *zap.Logger
}

// NewProofHandlers creates new proof handlers
func NewProofHandlers(verificationService *service.VerificationService, logger *zap.Logger) *ProofHandlers {
	return &ProofHandlers{
		verificationService: verificationService,
		logger:              logger,
	}
}

// Challenge issues a new message to sign for the caller's session
func (h *ProofHandlers) Challenge(c *gin.Context) {
	message, err := h.verificationService.NewChallenge(c.Request.Context(), sessionID(c))
	if err != nil {
		h.logger.Error("Failed to create challenge", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// Verify checks a signed challenge message
func (h *ProofHandlers) Verify(c *gin.Context) {
	var req struct {
		Message   string `json:"message"`
		Signature string `json:"signature"`
	}

	// Every validation failure answers with the same empty 400
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	attribution, err := h.verificationService.Verify(c.Request.Context(), sessionID(c), req.Message, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrBadRequest):
			c.AbortWithStatus(http.StatusBadRequest)
		case errors.Is(err, core.ErrInvalidSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Verification failed"})
		case errors.Is(err, core.ErrRateLimited):
			h.logger.Warn("Verification rate limited by integration service")
			c.AbortWithStatus(http.StatusTooManyRequests)
		case errors.Is(err, core.ErrServiceError), errors.Is(err, core.ErrTransport):
			h.logger.Error("Verification failed on integration service", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Verification unavailable"})
		default:
			h.logger.Error("Verification failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Verification unavailable"})
		}
		return
	}

	c.JSON(http.StatusOK, attribution)
}

// ContractInfo returns information about the tracked token contract
func (h *ProofHandlers) ContractInfo(c *gin.Context) {
	info, err := h.verificationService.ContractInfo(c.Request.Context())
	if err != nil {
		if errors.Is(err, core.ErrRateLimited) {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		h.logger.Error("Failed to fetch contract info", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Contract info unavailable"})
		return
	}

	// Pass unknown keys through, normalized fields take precedence
	response := gin.H{}
	for k, v := range info.Raw {
		response[k] = v
	}
	response["contract_address"] = info.ContractAddress
	response["block_number"] = info.BlockNumber
	response["decimals"] = info.Decimals

	c.JSON(http.StatusOK, response)
}

// Health reports that the process is serving
func (h *ProofHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
