package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/biatec-io/gdrive-account/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func runSecurityHeaders(cfg config.CSPConfig) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	SecurityHeaders(cfg)(c)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	t.Run("sets_basic_security_headers", func(t *testing.T) {
		w := runSecurityHeaders(config.CSPConfig{Enabled: false})

		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	})

	t.Run("csp_disabled_no_csp_header", func(t *testing.T) {
		w := runSecurityHeaders(config.CSPConfig{Enabled: false, Policy: "default-src 'self'"})

		assert.Empty(t, w.Header().Get("Content-Security-Policy"))
	})

	t.Run("csp_enabled_sets_configured_policy", func(t *testing.T) {
		w := runSecurityHeaders(config.CSPConfig{Enabled: true, Policy: "default-src 'self'"})

		assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
	})

	t.Run("uses_default_policy_when_empty", func(t *testing.T) {
		w := runSecurityHeaders(config.CSPConfig{Enabled: true, Policy: "   \t\n  "})

		assert.Equal(t, defaultCSPPolicy, w.Header().Get("Content-Security-Policy"))
	})

	t.Run("calls_next_handler", func(t *testing.T) {
		nextCalled := false
		router := gin.New()
		router.Use(SecurityHeaders(config.CSPConfig{Enabled: true}))
		router.GET("/test", func(c *gin.Context) {
			nextCalled = true
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.True(t, nextCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
