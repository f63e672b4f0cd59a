package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"github.com/biatec-io/gdrive-account/internal/config"
	"github.com/biatec-io/gdrive-account/internal/handler"
	"github.com/biatec-io/gdrive-account/internal/server/middleware"
)

// NewRouter builds the gin engine with the shared middleware chain and every
// API route mounted.
func NewRouter(cfg *config.Config, handlers *handler.Handlers) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SessionID())
	router.Use(middleware.CORS(cfg.CORS))
	router.Use(middleware.SecurityHeaders(cfg.Security.CSP))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	device := router.Group("/api/device")
	{
		device.GET("/pair-device", handlers.Pairing.PairDevice)
		device.GET("/paired-device", handlers.Pairing.PairedDevice)
		device.GET("/request-drive-access/:sessionId", handlers.Pairing.RequestDriveAccess)
		device.GET("/drive-access-callback", handlers.Pairing.DriveAccessCallback)
		device.GET("/access-token/:sessionId", handlers.Pairing.GetAccessToken)
		device.GET("/info/:sessionId", handlers.Pairing.GetDeviceInfo)
		device.POST("/unpair/:sessionId", handlers.Pairing.UnpairDevice)
		device.DELETE("/unpair/:sessionId", handlers.Pairing.UnpairDevice)
		device.GET("/diagnose/:sessionId", handlers.Pairing.Diagnose)
		device.GET("/security-status/:sessionId", handlers.Pairing.SecurityStatus)
		device.POST("/report-security-event/:sessionId", handlers.Pairing.ReportSecurityEvent)
		device.GET("/cap-status", handlers.Pairing.CapStatus)
		device.GET("/portfolio/:sessionId", handlers.Pairing.Portfolio)
	}

	drive := router.Group("/api/drive")
	{
		drive.POST("/sign", handlers.Drive.Sign)
		drive.GET("/address", handlers.Drive.GetAddress)
	}

	return router
}

// NewHTTPServer wraps the router in an http.Server with the configured
// listen address and timeouts.
func NewHTTPServer(cfg *config.Config, router *gin.Engine) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}
}

var ProviderSet = wire.NewSet(
	NewRouter,
	NewHTTPServer,
)
