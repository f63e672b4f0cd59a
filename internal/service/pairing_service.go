package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/biatec-io/gdrive-account/internal/config"
	"github.com/biatec-io/gdrive-account/internal/domain"
	infraerrors "github.com/biatec-io/gdrive-account/internal/pkg/errors"
)

// PairingService manages the device pairing state machine on top of the KV
// cache: a short-lived temp session bridging the OAuth redirect, then a
// long-lived device session holding the tokens.
//
// Error discipline is split on purpose and clients depend on it: read paths
// (GetAccessToken, GetDeviceInfo) return errors for bad input and nil for
// absent sessions, while mutating paths (ProcessPairingCallback,
// UnpairDevice) always return a structured PairingResponse.
type PairingService struct {
	cache     PairingCache
	tempTTL   time.Duration
	deviceTTL time.Duration

	// now is replaceable in tests to exercise expiry.
	now func() time.Time
}

func NewPairingService(cache PairingCache, cfg *config.Config) *PairingService {
	return &PairingService{
		cache:     cache,
		tempTTL:   cfg.Pairing.TempSessionTTL,
		deviceTTL: cfg.Pairing.DeviceSessionTTL,
		now:       time.Now,
	}
}

func tempSessionKey(sessionID string) string {
	return domain.TempSessionKeyPrefix + sessionID
}

func deviceSessionKey(sessionID string) string {
	return domain.DeviceSessionKeyPrefix + sessionID
}

// InitiatePairing stores a temp session for the OAuth round trip and returns
// its cache key. The temp TTL only needs to outlive the consent screen.
func (s *PairingService) InitiatePairing(ctx context.Context, sessionID, deviceName string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", infraerrors.BadRequest("SESSION_ID_REQUIRED", "Session ID is required for device pairing")
	}

	temp := domain.TempSession{
		SessionID:   sessionID,
		DeviceName:  deviceName,
		InitiatedAt: s.now().UTC(),
	}
	payload, err := json.Marshal(temp)
	if err != nil {
		return "", fmt.Errorf("marshal temp session: %w", err)
	}

	key := tempSessionKey(sessionID)
	if err := s.cache.Set(ctx, key, payload, s.tempTTL); err != nil {
		return "", fmt.Errorf("store temp session: %w", err)
	}
	return key, nil
}

// ProcessPairingCallback consumes the OAuth result and promotes the temp
// session into a paired device session. Failures are reported in the
// response, never as an error; the exact messages are a client contract.
func (s *PairingService) ProcessPairingCallback(ctx context.Context, sessionID, email, accessToken, refreshToken string) *domain.PairingResponse {
	if strings.TrimSpace(sessionID) == "" {
		return &domain.PairingResponse{Success: false, Message: "Session ID is required"}
	}

	tempKey := tempSessionKey(sessionID)
	tempPayload, err := s.cache.Get(ctx, tempKey)
	if err != nil {
		slog.Error("pairing callback: temp session lookup failed", "session_id", sessionID, "error", err)
		return &domain.PairingResponse{Success: false, Message: "An error occurred while pairing the device"}
	}
	if len(tempPayload) == 0 {
		return &domain.PairingResponse{Success: false, Message: "Session not found or expired. Please initiate pairing again."}
	}

	if email == "" {
		return &domain.PairingResponse{Success: false, Message: "Email not found in claims. Authentication failed."}
	}
	if accessToken == "" {
		return &domain.PairingResponse{Success: false, Message: "No access token found. Authentication failed."}
	}

	deviceName := domain.DefaultDeviceName
	var temp domain.TempSession
	if err := json.Unmarshal(tempPayload, &temp); err == nil && temp.DeviceName != "" {
		deviceName = temp.DeviceName
	}

	now := s.now().UTC()
	info := domain.PairedDeviceInfo{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Email:        email,
		DeviceName:   deviceName,
		PairedAt:     now,
		ExpiresAt:    now.Add(s.deviceTTL),
	}
	payload, err := json.Marshal(info)
	if err != nil {
		slog.Error("pairing callback: marshal device session failed", "session_id", sessionID, "error", err)
		return &domain.PairingResponse{Success: false, Message: "An error occurred while pairing the device"}
	}

	if err := s.cache.Set(ctx, deviceSessionKey(sessionID), payload, s.deviceTTL); err != nil {
		slog.Error("pairing callback: store device session failed", "session_id", sessionID, "error", err)
		return &domain.PairingResponse{Success: false, Message: "An error occurred while pairing the device"}
	}

	if err := s.cache.Delete(ctx, tempKey); err != nil {
		slog.Error("pairing callback: temp session cleanup failed", "session_id", sessionID, "error", err)
		return &domain.PairingResponse{Success: false, Message: "An error occurred while pairing the device"}
	}

	slog.Info("device paired", "session_id", sessionID, "email", email)
	return &domain.PairingResponse{
		Success:   true,
		Message:   "Device paired successfully",
		SessionID: sessionID,
	}
}

// GetAccessToken returns the stored access token for a paired session, or
// empty when the session is absent or expired. An expired record is deleted
// on read; the cache's own TTL is the backstop for records never read again.
func (s *PairingService) GetAccessToken(ctx context.Context, sessionID string) (string, error) {
	info, err := s.loadDeviceInfo(ctx, sessionID)
	if err != nil || info == nil {
		return "", err
	}
	return info.AccessToken, nil
}

// GetDeviceInfo returns the pairing record with token values redacted.
func (s *PairingService) GetDeviceInfo(ctx context.Context, sessionID string) (*domain.PairedDeviceInfo, error) {
	info, err := s.loadDeviceInfo(ctx, sessionID)
	if err != nil || info == nil {
		return nil, err
	}
	redacted := info.Redacted()
	return &redacted, nil
}

// GetDeviceInfoInternal returns the pairing record with live token values.
// Only for in-process consumers (diagnose, security checks, signing), never
// for the public info endpoint.
func (s *PairingService) GetDeviceInfoInternal(ctx context.Context, sessionID string) (*domain.PairedDeviceInfo, error) {
	return s.loadDeviceInfo(ctx, sessionID)
}

// UnpairDevice removes the device session. Deleting an unknown session still
// succeeds, unpairing is idempotent.
func (s *PairingService) UnpairDevice(ctx context.Context, sessionID string) *domain.PairingResponse {
	if strings.TrimSpace(sessionID) == "" {
		return &domain.PairingResponse{Success: false, Message: "Session ID is required"}
	}

	if err := s.cache.Delete(ctx, deviceSessionKey(sessionID)); err != nil {
		slog.Error("unpair device failed", "session_id", sessionID, "error", err)
		return &domain.PairingResponse{Success: false, Message: "An error occurred while unpairing the device"}
	}

	slog.Info("device unpaired", "session_id", sessionID)
	return &domain.PairingResponse{
		Success:   true,
		Message:   "Device unpaired successfully",
		SessionID: sessionID,
	}
}

func (s *PairingService) loadDeviceInfo(ctx context.Context, sessionID string) (*domain.PairedDeviceInfo, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, infraerrors.BadRequest("SESSION_ID_REQUIRED", "Session ID is required")
	}

	key := deviceSessionKey(sessionID)
	payload, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load device session: %w", err)
	}
	if len(payload) == 0 {
		return nil, nil
	}

	var info domain.PairedDeviceInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return nil, fmt.Errorf("decode device session: %w", err)
	}

	if s.now().UTC().After(info.ExpiresAt) {
		if err := s.cache.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("evict expired device session: %w", err)
		}
		return nil, nil
	}
	return &info, nil
}
