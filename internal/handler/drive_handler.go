package handler

import (
	"encoding/base64"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/biatec-io/gdrive-account/internal/pkg/response"
	"github.com/biatec-io/gdrive-account/internal/service"
)

// DriveHandler exposes transaction signing and address lookup backed by the
// account blob in the session owner's Drive.
type DriveHandler struct {
	pairing *service.PairingService
	signing *service.SigningService
}

func NewDriveHandler(pairing *service.PairingService, signing *service.SigningService) *DriveHandler {
	return &DriveHandler{pairing: pairing, signing: signing}
}

// SignRequest carries the transaction bytes to sign, base64 encoded.
type SignRequest struct {
	SessionID   string `json:"sessionId" binding:"required"`
	Transaction string `json:"transaction" binding:"required"`
}

// Sign signs a transaction with the session owner's primary account.
func (h *DriveHandler) Sign(c *gin.Context) {
	var req SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	txn, err := base64.StdEncoding.DecodeString(req.Transaction)
	if err != nil {
		response.BadRequest(c, "Transaction must be base64 encoded")
		return
	}

	info, err := h.pairing.GetDeviceInfoInternal(c.Request.Context(), req.SessionID)
	if err != nil {
		response.ErrorFrom(c, err)
		return
	}
	if info == nil {
		response.NotFound(c, sessionNotFoundMessage)
		return
	}

	cred := service.DriveCredential{AccessToken: info.AccessToken}
	signature, err := h.signing.SignTransaction(c.Request.Context(), cred, info.Email, txn)
	if err != nil {
		respondDriveError(c, err)
		return
	}
	response.Success(c, gin.H{
		"signature": base64.StdEncoding.EncodeToString(signature),
	})
}

// GetAddress returns the session owner's primary account address.
func (h *DriveHandler) GetAddress(c *gin.Context) {
	sessionID := c.Query("sessionId")

	info, err := h.pairing.GetDeviceInfoInternal(c.Request.Context(), sessionID)
	if err != nil {
		response.ErrorFrom(c, err)
		return
	}
	if info == nil {
		response.NotFound(c, sessionNotFoundMessage)
		return
	}

	address, err := h.signing.GetAddress(c.Request.Context(), service.DriveCredential{AccessToken: info.AccessToken}, info.Email)
	if err != nil {
		respondDriveError(c, err)
		return
	}
	response.Success(c, gin.H{"address": address})
}

// respondDriveError maps Drive failures onto the envelope, surfacing token
// expiry as 401 so clients re-pair instead of retrying.
func respondDriveError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrDriveUnauthorized) {
		response.Unauthorized(c, "Google Drive access denied. The access token may be expired or invalid. Please pair the device again.")
		return
	}
	response.ErrorFrom(c, err)
}
