package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/layer-3/tia/core"
	"github.com/layer-3/tia/ports"
	"go.uber.org/zap"
)

const sessionIDKey = "sessionID"

// SessionOptions configures the session cookie
type SessionOptions struct {
	CookieName string
	Secure     bool
	TTL        time.Duration
}

// SessionMiddleware binds the request to a session. The session id
// travels in a signed cookie; a missing, expired or forged cookie starts a
// fresh session.
func SessionMiddleware(tokenizer ports.Tokenizer, opts SessionOptions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, err := c.Cookie(opts.CookieName); err == nil && raw != "" {
			if session, err := tokenizer.TokenToSession(raw); err == nil {
				c.Set(sessionIDKey, session.ID)
				c.Next()
				return
			}
		}

		now := time.Now()
		session := &core.Session{
			ID:        uuid.New().String(),
			IssuedAt:  now,
			ExpiresAt: now.Add(opts.TTL),
		}

		token, err := tokenizer.SessionToToken(session)
		if err != nil {
			logger.Error("Failed to create session token", zap.Error(err))
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(opts.CookieName, token, int(opts.TTL.Seconds()), "/", "", opts.Secure, true)
		c.Set(sessionIDKey, session.ID)

		c.Next()
	}
}

// RequireSession binds the request to the session of a valid cookie and
// never issues one. Requests without a valid session get an empty 400.
func RequireSession(tokenizer ports.Tokenizer, opts SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(opts.CookieName)
		if err != nil || raw == "" {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		session, err := tokenizer.TokenToSession(raw)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		c.Set(sessionIDKey, session.ID)
		c.Next()
	}
}

// RequestLogger logs every request with zap
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}
