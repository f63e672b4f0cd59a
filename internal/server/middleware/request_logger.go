package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/biatec-io/gdrive-account/internal/pkg/ctxkey"
	"github.com/biatec-io/gdrive-account/internal/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger injects a request-scoped logger. The request id is taken from
// the X-Request-ID header when the client forwards one, generated otherwise,
// and always echoed back on the response.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request == nil {
			c.Next()
			return
		}

		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		ctx := context.WithValue(c.Request.Context(), ctxkey.RequestID, requestID)
		sessionID, _ := ctx.Value(ctxkey.SessionID).(string)

		requestLogger := logger.With(
			zap.String("component", "http"),
			zap.String("request_id", requestID),
			zap.String("session_id", strings.TrimSpace(sessionID)),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)

		ctx = logger.IntoContext(ctx, requestLogger)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
