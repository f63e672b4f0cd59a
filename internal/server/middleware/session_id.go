package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/biatec-io/gdrive-account/internal/pkg/ctxkey"
	"github.com/biatec-io/gdrive-account/internal/pkg/logger"
)

// SessionID lifts the pairing session id out of the route param or query
// string into request.Context(), so downstream log lines correlate to the
// device session without every handler re-plumbing it.
func SessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request == nil {
			c.Next()
			return
		}

		if v := c.Request.Context().Value(ctxkey.SessionID); v != nil {
			c.Next()
			return
		}

		sessionID := strings.TrimSpace(c.Param("sessionId"))
		if sessionID == "" {
			sessionID = strings.TrimSpace(c.Query("sessionId"))
		}
		if sessionID == "" {
			c.Next()
			return
		}

		ctx := context.WithValue(c.Request.Context(), ctxkey.SessionID, sessionID)
		requestLogger := logger.FromContext(ctx).With(zap.String("session_id", sessionID))
		ctx = logger.IntoContext(ctx, requestLogger)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
