package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/biatec-io/gdrive-account/internal/config"
)

// defaultCSPPolicy locks the surface down for an API that serves no markup.
const defaultCSPPolicy = "default-src 'none'; frame-ancestors 'none'"

// SecurityHeaders sets baseline security headers for all responses.
func SecurityHeaders(cfg config.CSPConfig) gin.HandlerFunc {
	policy := strings.TrimSpace(cfg.Policy)
	if policy == "" {
		policy = defaultCSPPolicy
	}

	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if cfg.Enabled {
			c.Header("Content-Security-Policy", policy)
		}
		c.Next()
	}
}
