package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/biatec-io/gdrive-account/internal/config"
	"github.com/biatec-io/gdrive-account/internal/pkg/googleauth"
	"github.com/biatec-io/gdrive-account/internal/pkg/response"
	"github.com/biatec-io/gdrive-account/internal/service"
)

const sessionNotFoundMessage = "Device not found or session expired"

// PairingHandler exposes the device pairing lifecycle plus the per-session
// diagnostic, security, and portfolio endpoints.
type PairingHandler struct {
	cfg        *config.Config
	pairing    *service.PairingService
	accounts   *service.DriveAccountService
	protection *service.ProtectionService
	portfolio  *service.PortfolioService
}

func NewPairingHandler(
	cfg *config.Config,
	pairing *service.PairingService,
	accounts *service.DriveAccountService,
	protection *service.ProtectionService,
	portfolio *service.PortfolioService,
) *PairingHandler {
	return &PairingHandler{
		cfg:        cfg,
		pairing:    pairing,
		accounts:   accounts,
		protection: protection,
		portfolio:  portfolio,
	}
}

// PairDevice starts a pairing attempt and redirects the device to the Google
// consent screen. The session id rides along as OAuth state.
func (h *PairingHandler) PairDevice(c *gin.Context) {
	sessionID := c.Query("sessionId")
	deviceName := c.DefaultQuery("deviceName", "Unknown Device")
	requestDriveAccess := c.Query("requestDriveAccess") == "true"

	if _, err := h.pairing.InitiatePairing(c.Request.Context(), sessionID, deviceName); err != nil {
		response.ErrorFrom(c, err)
		return
	}

	scopes := append([]string{}, googleauth.BaseScopes...)
	if requestDriveAccess {
		scopes = append(scopes, googleauth.DriveFileScope)
	}

	authURL := googleauth.BuildAuthURL(googleauth.AuthURLParams{
		ClientID:      h.cfg.Google.ClientID,
		RedirectURI:   strings.TrimSuffix(h.cfg.Google.Host, "/") + "/api/device/paired-device",
		Scopes:        scopes,
		State:         sessionID,
		OfflineAccess: true,
	})
	c.Redirect(http.StatusFound, authURL)
}

// PairedDevice is the OAuth callback. The identity provider supplies the
// email (directly or inside an ID token) and the tokens; the state parameter
// carries the session id from PairDevice.
func (h *PairingHandler) PairedDevice(c *gin.Context) {
	h.completeCallback(c)
}

// RequestDriveAccess starts incremental authorization for an already paired
// device, asking for the Drive scope on top of the base scopes. A fresh temp
// session is opened so the callback can promote the upgraded tokens.
func (h *PairingHandler) RequestDriveAccess(c *gin.Context) {
	sessionID := c.Param("sessionId")

	info, err := h.pairing.GetDeviceInfo(c.Request.Context(), sessionID)
	if err != nil {
		response.ErrorFrom(c, err)
		return
	}
	if info == nil {
		response.NotFound(c, "Device not found or session expired. Please pair the device first.")
		return
	}

	if _, err := h.pairing.InitiatePairing(c.Request.Context(), sessionID, info.DeviceName); err != nil {
		response.ErrorFrom(c, err)
		return
	}

	authURL := googleauth.BuildAuthURL(googleauth.AuthURLParams{
		ClientID:      h.cfg.Google.ClientID,
		RedirectURI:   strings.TrimSuffix(h.cfg.Google.Host, "/") + "/api/device/drive-access-callback",
		Scopes:        append(append([]string{}, googleauth.BaseScopes...), googleauth.DriveFileScope),
		State:         sessionID,
		OfflineAccess: true,
	})
	c.Redirect(http.StatusFound, authURL)
}

// DriveAccessCallback finishes incremental authorization. The upgraded tokens
// replace the stored device session through the same promotion path the
// initial pairing uses.
func (h *PairingHandler) DriveAccessCallback(c *gin.Context) {
	h.completeCallback(c)
}

func (h *PairingHandler) completeCallback(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		sessionID = c.Query("state")
	}

	email := c.Query("email")
	if email == "" {
		if idToken := c.Query("id_token"); idToken != "" {
			claims, err := googleauth.ExtractIDTokenClaims(idToken)
			if err != nil {
				slog.Warn("pairing callback: id token parse failed", "session_id", sessionID, "error", err)
			} else {
				email = claims.Email
			}
		}
	}

	result := h.pairing.ProcessPairingCallback(
		c.Request.Context(),
		sessionID,
		email,
		c.Query("access_token"),
		c.Query("refresh_token"),
	)
	if !result.Success {
		status := http.StatusBadRequest
		if strings.Contains(result.Message, "error occurred") {
			status = http.StatusInternalServerError
		}
		c.JSON(status, response.Body{Code: status, Message: result.Message, Data: result})
		return
	}
	response.Success(c, result)
}

// GetAccessToken returns the live token for a paired session.
func (h *PairingHandler) GetAccessToken(c *gin.Context) {
	token, err := h.pairing.GetAccessToken(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.ErrorFrom(c, err)
		return
	}
	if token == "" {
		response.NotFound(c, "Device not found or session expired. Please pair the device again.")
		return
	}
	response.Success(c, gin.H{"accessToken": token})
}

// GetDeviceInfo returns the pairing record with tokens redacted.
func (h *PairingHandler) GetDeviceInfo(c *gin.Context) {
	info, err := h.pairing.GetDeviceInfo(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.ErrorFrom(c, err)
		return
	}
	if info == nil {
		response.NotFound(c, sessionNotFoundMessage)
		return
	}
	response.Success(c, info)
}

// UnpairDevice removes the pairing record.
func (h *PairingHandler) UnpairDevice(c *gin.Context) {
	result := h.pairing.UnpairDevice(c.Request.Context(), c.Param("sessionId"))
	if !result.Success {
		if strings.Contains(result.Message, "required") {
			response.BadRequest(c, result.Message)
		} else {
			response.InternalError(c, result.Message)
		}
		return
	}
	response.Success(c, result)
}

// Diagnose walks the session's Drive to explain account loading failures.
func (h *PairingHandler) Diagnose(c *gin.Context) {
	info, err := h.pairing.GetDeviceInfoInternal(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.ErrorFrom(c, err)
		return
	}
	if info == nil {
		response.NotFound(c, sessionNotFoundMessage)
		return
	}

	report, err := h.accounts.Diagnose(c.Request.Context(), service.DriveCredential{AccessToken: info.AccessToken}, info.Email)
	if err != nil {
		respondDriveError(c, err)
		return
	}
	response.Success(c, report)
}

// SecurityStatus runs the Cross-Account Protection check for a session.
func (h *PairingHandler) SecurityStatus(c *gin.Context) {
	sessionID := c.Param("sessionId")
	info, err := h.pairing.GetDeviceInfoInternal(c.Request.Context(), sessionID)
	if err != nil {
		response.ErrorFrom(c, err)
		return
	}
	if info == nil {
		response.NotFound(c, sessionNotFoundMessage)
		return
	}

	status := h.protection.CheckSecurityStatus(c.Request.Context(), info.AccessToken)
	response.Success(c, gin.H{
		"sessionId":      sessionID,
		"email":          info.Email,
		"isSecure":       status.IsSecure,
		"requiresReauth": status.RequiresReauth,
		"warnings":       status.Warnings,
		"lastCheck":      status.LastCheck,
	})
}

// SecurityEventRequest is the report-security-event payload.
type SecurityEventRequest struct {
	EventType string `json:"eventType" binding:"required"`
	Details   string `json:"details"`
}

// ReportSecurityEvent forwards a device-reported security event to Google.
func (h *PairingHandler) ReportSecurityEvent(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var req SecurityEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	info, err := h.pairing.GetDeviceInfoInternal(c.Request.Context(), sessionID)
	if err != nil {
		response.ErrorFrom(c, err)
		return
	}
	if info == nil {
		response.NotFound(c, sessionNotFoundMessage)
		return
	}

	ok := h.protection.ReportSecurityEvent(c.Request.Context(), info.AccessToken, info.Email, req.EventType, req.Details)
	message := "Security event reported successfully"
	if !ok {
		message = "Failed to report security event"
	}
	response.Success(c, gin.H{
		"success":   ok,
		"message":   message,
		"sessionId": sessionID,
	})
}

// CapStatus reports the Cross-Account Protection configuration.
func (h *PairingHandler) CapStatus(c *gin.Context) {
	response.Success(c, gin.H{"crossAccountProtection": h.protection.Status()})
}

// Portfolio returns the valuation summary and tier benefits for a session.
func (h *PairingHandler) Portfolio(c *gin.Context) {
	sessionID := c.Param("sessionId")
	info, err := h.pairing.GetDeviceInfoInternal(c.Request.Context(), sessionID)
	if err != nil {
		response.ErrorFrom(c, err)
		return
	}
	if info == nil {
		response.NotFound(c, sessionNotFoundMessage)
		return
	}

	summary := h.portfolio.GetPortfolioSummary(c.Request.Context(), info.Email)
	response.Success(c, gin.H{
		"sessionId":    sessionID,
		"email":        info.Email,
		"portfolio":    summary,
		"tierBenefits": tierBenefits(summary.CurrentTier),
	})
}

func tierBenefits(tier service.ServiceTier) gin.H {
	switch tier {
	case service.TierFree:
		return gin.H{
			"tier":           "Free",
			"portfolioRange": "< €10,000",
			"devices":        1,
			"support":        "Community",
			"sla":            "Best effort",
			"features":       []string{"Basic account management", "Standard security", "Portfolio tracking"},
		}
	case service.TierProfessional:
		return gin.H{
			"tier":           "Professional",
			"portfolioRange": "€10,000 - €1,000,000",
			"devices":        5,
			"support":        "Priority",
			"sla":            "99.5%",
			"features":       []string{"Full account management", "Advanced security", "Portfolio analytics", "Risk management"},
		}
	case service.TierEnterprise:
		return gin.H{
			"tier":           "Enterprise",
			"portfolioRange": "> €1,000,000",
			"devices":        "Unlimited",
			"support":        "Dedicated",
			"sla":            "99.9%",
			"features":       []string{"All Professional features", "Dedicated account manager", "Custom integrations", "Institutional security"},
		}
	}
	return gin.H{"tier": "Unknown"}
}
