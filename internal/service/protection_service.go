package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/biatec-io/gdrive-account/internal/config"
	"github.com/biatec-io/gdrive-account/internal/domain"
)

// ErrIntrospectionRejected marks a non-200 response from the introspection
// endpoint. It is the fail-open case: the token may be fine, Google just
// would not tell us.
var ErrIntrospectionRejected = errors.New("token introspection rejected")

// TokenIntrospector resolves an access token into its metadata. A rejected
// token yields ErrIntrospectionRejected (possibly wrapped); transport
// failures yield any other error.
type TokenIntrospector interface {
	Introspect(ctx context.Context, accessToken string) (*domain.TokenIntrospection, error)
}

// SecurityEvent is a RISC-style event reported to Google.
type SecurityEvent struct {
	UserID    string    `json:"userId"`
	Type      string    `json:"eventType"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// SecurityEventReporter delivers security events to the identity provider.
type SecurityEventReporter interface {
	Report(ctx context.Context, accessToken string, event SecurityEvent) error
}

// trustedIssuers are the only issuer values Google mints.
var trustedIssuers = map[string]struct{}{
	"accounts.google.com":         {},
	"https://accounts.google.com": {},
}

const (
	tokenAgeWarnAfter   = 24 * time.Hour
	tokenAgeReauthAfter = 7 * 24 * time.Hour
	tokenExpiryGrace    = 5 * time.Minute

	protectionCacheSize = 1 << 14
)

// ProtectionService implements the Cross-Account Protection security check.
// Results are memoized per token for the configured interval so hot sessions
// do not hammer the introspection endpoint.
type ProtectionService struct {
	introspector TokenIntrospector
	reporter     SecurityEventReporter

	enabled        bool
	requiredScopes []string
	clientID       string
	applicationID  string
	checkInterval  time.Duration

	cache *ristretto.Cache
	now   func() time.Time
}

func NewProtectionService(introspector TokenIntrospector, reporter SecurityEventReporter, cfg *config.Config) (*ProtectionService, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: protectionCacheSize * 10,
		MaxCost:     protectionCacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create protection cache: %w", err)
	}
	return &ProtectionService{
		introspector:   introspector,
		reporter:       reporter,
		enabled:        cfg.Protection.Enabled,
		requiredScopes: cfg.Protection.RequiredScopes,
		clientID:       cfg.Google.ClientID,
		applicationID:  cfg.Drive.ApplicationName,
		checkInterval:  cfg.Protection.CheckInterval,
		cache:          cache,
		now:            time.Now,
	}, nil
}

// CheckSecurityStatus evaluates a token against the protection rule set.
//
// Failure handling is asymmetric on purpose: a rejected introspection call
// degrades to a permissive secure default with a warning, while a
// network-level failure degrades to insecure plus re-authentication. The
// first means Google answered and declined, the second means we know nothing.
func (s *ProtectionService) CheckSecurityStatus(ctx context.Context, accessToken string) *domain.SecurityStatus {
	now := s.now().UTC()

	if !s.enabled {
		return &domain.SecurityStatus{IsSecure: true, Warnings: []string{}, LastCheck: now}
	}

	if accessToken == "" {
		return &domain.SecurityStatus{
			IsSecure:       false,
			Warnings:       []string{"No access token available for security check"},
			RequiresReauth: true,
			LastCheck:      now,
		}
	}

	cacheKey := tokenCacheKey(accessToken)
	if cached, ok := s.cache.Get(cacheKey); ok {
		if status, ok := cached.(*domain.SecurityStatus); ok {
			return status
		}
	}

	info, err := s.introspector.Introspect(ctx, accessToken)
	if err != nil {
		if errors.Is(err, ErrIntrospectionRejected) {
			slog.Warn("token introspection rejected, defaulting to secure", "error", err)
			return &domain.SecurityStatus{
				IsSecure:  true,
				Warnings:  []string{"Unable to verify security status with Google"},
				LastCheck: now,
			}
		}
		slog.Error("token introspection failed", "error", err)
		return &domain.SecurityStatus{
			IsSecure:       false,
			Warnings:       []string{fmt.Sprintf("Security check failed: %v", err)},
			RequiresReauth: true,
			LastCheck:      now,
		}
	}

	status := s.evaluate(info, now)
	s.cache.SetWithTTL(cacheKey, status, 1, s.checkInterval)
	return status
}

func (s *ProtectionService) evaluate(info *domain.TokenIntrospection, now time.Time) *domain.SecurityStatus {
	status := &domain.SecurityStatus{
		IsSecure:  true,
		Warnings:  []string{},
		LastCheck: now,
	}

	if missing := missingScopes(info.Scopes, s.requiredScopes); len(missing) > 0 {
		status.IsSecure = false
		status.Warnings = append(status.Warnings, fmt.Sprintf("Token is missing required scopes: %s", strings.Join(missing, ", ")))
	}

	if info.Audience != s.clientID {
		status.IsSecure = false
		status.RequiresReauth = true
		status.Warnings = append(status.Warnings, "Token audience does not match the expected client")
	}

	if age := now.Sub(info.IssuedAt); age > tokenAgeReauthAfter {
		status.RequiresReauth = true
		status.Warnings = append(status.Warnings, "Token is older than 7 days, re-authentication required")
	} else if age > tokenAgeWarnAfter {
		status.Warnings = append(status.Warnings, "Token is older than 24 hours")
	}

	if !info.EmailVerified {
		status.RequiresReauth = true
		status.Warnings = append(status.Warnings, "Token email address is not verified")
	}

	if _, ok := trustedIssuers[info.Issuer]; !ok {
		status.IsSecure = false
		status.RequiresReauth = true
		status.Warnings = append(status.Warnings, "Token issuer is not recognized")
	}

	if info.ExpiresAt.Before(now.Add(tokenExpiryGrace)) {
		status.RequiresReauth = true
		status.Warnings = append(status.Warnings, "Token expires within 5 minutes")
	}

	return status
}

// ReportSecurityEvent forwards a security event to Google. Returns whether
// the report was delivered; delivery failures are logged, never fatal.
func (s *ProtectionService) ReportSecurityEvent(ctx context.Context, accessToken, userID, eventType, details string) bool {
	if accessToken == "" {
		slog.Warn("cannot report security event without an access token", "event_type", eventType)
		return false
	}
	if !validSecurityEventType(eventType) {
		slog.Warn("unknown security event type", "event_type", eventType)
		return false
	}

	event := SecurityEvent{
		UserID:    userID,
		Type:      eventType,
		Details:   details,
		Timestamp: s.now().UTC(),
		Source:    s.applicationID,
	}
	if err := s.reporter.Report(ctx, accessToken, event); err != nil {
		slog.Error("security event report failed", "event_type", eventType, "error", err)
		return false
	}

	slog.Info("security event reported", "event_type", eventType, "user_id", userID)
	return true
}

// Status describes the protection feature configuration for the cap-status
// endpoint.
type ProtectionStatus struct {
	Enabled              bool     `json:"enabled"`
	RequiredScopes       []string `json:"requiredScopes"`
	CheckIntervalMinutes int      `json:"securityCheckIntervalMinutes"`
	Message              string   `json:"message"`
}

func (s *ProtectionService) Status() *ProtectionStatus {
	message := "Cross-Account Protection is disabled - basic security validation only"
	if s.enabled {
		message = "Cross-Account Protection is enabled for enhanced security monitoring"
	}
	return &ProtectionStatus{
		Enabled:              s.enabled,
		RequiredScopes:       s.requiredScopes,
		CheckIntervalMinutes: int(s.checkInterval.Minutes()),
		Message:              message,
	}
}

func tokenCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func missingScopes(granted, required []string) []string {
	have := make(map[string]struct{}, len(granted))
	for _, scope := range granted {
		have[scope] = struct{}{}
	}
	var missing []string
	for _, scope := range required {
		if _, ok := have[scope]; !ok {
			missing = append(missing, scope)
		}
	}
	return missing
}

func validSecurityEventType(eventType string) bool {
	switch eventType {
	case domain.SecurityEventSessionRevoked,
		domain.SecurityEventTokensRevoked,
		domain.SecurityEventAccountDisabled,
		domain.SecurityEventAccountReenabled:
		return true
	}
	return false
}
