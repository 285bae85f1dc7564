package http

import (
	"github.com/gin-gonic/gin"
	"github.com/layer-3/tia/ports"
	"github.com/layer-3/tia/service"
	"go.uber.org/zap"
)

// SetupRouter sets up the Gin router
func SetupRouter(
	verificationService *service.VerificationService,
	tokenizer ports.Tokenizer,
	sessionOpts SessionOptions,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	handlers := NewProofHandlers(verificationService, logger)

	router.GET("/health", handlers.Health)

	tia := router.Group("/tia")
	{
		tia.GET("/contract-info", handlers.ContractInfo)

		// Proof routes, bound to the visitor session. Only a challenge
		// request starts a new session.
		tia.GET("/challenge", SessionMiddleware(tokenizer, sessionOpts, logger), handlers.Challenge)
		tia.POST("/verify", RequireSession(tokenizer, sessionOpts), handlers.Verify)
	}

	return router
}
