package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/biatec-io/gdrive-account/internal/config"
	"github.com/biatec-io/gdrive-account/internal/domain"
)

type fakeIntrospector struct {
	info  *domain.TokenIntrospection
	err   error
	calls atomic.Int32
}

func (f *fakeIntrospector) Introspect(context.Context, string) (*domain.TokenIntrospection, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

type fakeReporter struct {
	events []SecurityEvent
	err    error
}

func (f *fakeReporter) Report(_ context.Context, _ string, event SecurityEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func protectionConfig(enabled bool) *config.Config {
	cfg := &config.Config{}
	cfg.Protection.Enabled = enabled
	cfg.Protection.RequiredScopes = []string{"scope-a", "scope-b"}
	cfg.Protection.CheckInterval = time.Hour
	cfg.Google.ClientID = "client-123"
	cfg.Drive.ApplicationName = "Biatec"
	return cfg
}

// healthyToken passes every rule against protectionConfig at the service's
// current clock.
func healthyToken(now time.Time) *domain.TokenIntrospection {
	return &domain.TokenIntrospection{
		Audience:      "client-123",
		Scopes:        []string{"scope-a", "scope-b", "extra"},
		Email:         "user@example.com",
		EmailVerified: true,
		Issuer:        "https://accounts.google.com",
		IssuedAt:      now.Add(-time.Hour),
		ExpiresAt:     now.Add(time.Hour),
	}
}

func newTestProtectionService(t *testing.T, introspector TokenIntrospector, reporter SecurityEventReporter, enabled bool) *ProtectionService {
	t.Helper()
	svc, err := NewProtectionService(introspector, reporter, protectionConfig(enabled))
	require.NoError(t, err)
	return svc
}

func TestCheckSecurityStatus_FlagOff(t *testing.T) {
	introspector := &fakeIntrospector{}
	svc := newTestProtectionService(t, introspector, &fakeReporter{}, false)

	status := svc.CheckSecurityStatus(context.Background(), "any-token")
	require.True(t, status.IsSecure)
	require.False(t, status.RequiresReauth)
	require.Empty(t, status.Warnings)
	require.False(t, status.LastCheck.IsZero())
	require.Zero(t, introspector.calls.Load())
}

func TestCheckSecurityStatus_NoToken(t *testing.T) {
	svc := newTestProtectionService(t, &fakeIntrospector{}, &fakeReporter{}, true)

	status := svc.CheckSecurityStatus(context.Background(), "")
	require.False(t, status.IsSecure)
	require.True(t, status.RequiresReauth)
	require.Contains(t, status.Warnings, "No access token available for security check")
}

func TestCheckSecurityStatus_HealthyToken(t *testing.T) {
	now := time.Now().UTC()
	introspector := &fakeIntrospector{info: healthyToken(now)}
	svc := newTestProtectionService(t, introspector, &fakeReporter{}, true)
	svc.now = func() time.Time { return now }

	status := svc.CheckSecurityStatus(context.Background(), "tok")
	require.True(t, status.IsSecure)
	require.False(t, status.RequiresReauth)
	require.Empty(t, status.Warnings)
}

func TestCheckSecurityStatus_RejectionFailsOpen(t *testing.T) {
	introspector := &fakeIntrospector{err: ErrIntrospectionRejected}
	svc := newTestProtectionService(t, introspector, &fakeReporter{}, true)

	status := svc.CheckSecurityStatus(context.Background(), "tok")
	require.True(t, status.IsSecure)
	require.False(t, status.RequiresReauth)
	require.Contains(t, status.Warnings, "Unable to verify security status with Google")
}

func TestCheckSecurityStatus_TransportErrorFailsClosed(t *testing.T) {
	introspector := &fakeIntrospector{err: errors.New("dial tcp: connection refused")}
	svc := newTestProtectionService(t, introspector, &fakeReporter{}, true)

	status := svc.CheckSecurityStatus(context.Background(), "tok")
	require.False(t, status.IsSecure)
	require.True(t, status.RequiresReauth)
	require.Len(t, status.Warnings, 1)
	require.Contains(t, status.Warnings[0], "Security check failed")
}

func TestCheckSecurityStatus_Rules(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name           string
		mutate         func(info *domain.TokenIntrospection)
		wantSecure     bool
		wantReauth     bool
		wantWarnSubstr string
	}{
		{
			name:           "missing required scopes",
			mutate:         func(info *domain.TokenIntrospection) { info.Scopes = []string{"scope-a"} },
			wantSecure:     false,
			wantReauth:     false,
			wantWarnSubstr: "missing required scopes: scope-b",
		},
		{
			name:           "audience mismatch",
			mutate:         func(info *domain.TokenIntrospection) { info.Audience = "someone-else" },
			wantSecure:     false,
			wantReauth:     true,
			wantWarnSubstr: "audience does not match",
		},
		{
			name:           "older than 24 hours",
			mutate:         func(info *domain.TokenIntrospection) { info.IssuedAt = now.Add(-25 * time.Hour) },
			wantSecure:     true,
			wantReauth:     false,
			wantWarnSubstr: "older than 24 hours",
		},
		{
			name:           "older than 7 days",
			mutate:         func(info *domain.TokenIntrospection) { info.IssuedAt = now.Add(-8 * 24 * time.Hour) },
			wantSecure:     true,
			wantReauth:     true,
			wantWarnSubstr: "older than 7 days",
		},
		{
			name:           "unverified email",
			mutate:         func(info *domain.TokenIntrospection) { info.EmailVerified = false },
			wantSecure:     true,
			wantReauth:     true,
			wantWarnSubstr: "not verified",
		},
		{
			name:           "unknown issuer",
			mutate:         func(info *domain.TokenIntrospection) { info.Issuer = "https://evil.example.com" },
			wantSecure:     false,
			wantReauth:     true,
			wantWarnSubstr: "issuer is not recognized",
		},
		{
			name:           "expiring within 5 minutes",
			mutate:         func(info *domain.TokenIntrospection) { info.ExpiresAt = now.Add(2 * time.Minute) },
			wantSecure:     true,
			wantReauth:     true,
			wantWarnSubstr: "expires within 5 minutes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := healthyToken(now)
			tt.mutate(info)

			svc := newTestProtectionService(t, &fakeIntrospector{info: info}, &fakeReporter{}, true)
			svc.now = func() time.Time { return now }

			status := svc.CheckSecurityStatus(context.Background(), "tok-"+tt.name)
			require.Equal(t, tt.wantSecure, status.IsSecure)
			require.Equal(t, tt.wantReauth, status.RequiresReauth)

			found := false
			for _, w := range status.Warnings {
				if strings.Contains(w, tt.wantWarnSubstr) {
					found = true
				}
			}
			require.True(t, found, "expected a warning containing %q, got %v", tt.wantWarnSubstr, status.Warnings)
		})
	}
}

func TestCheckSecurityStatus_ResultMemoized(t *testing.T) {
	now := time.Now().UTC()
	introspector := &fakeIntrospector{info: healthyToken(now)}
	svc := newTestProtectionService(t, introspector, &fakeReporter{}, true)
	svc.now = func() time.Time { return now }

	first := svc.CheckSecurityStatus(context.Background(), "tok")
	require.True(t, first.IsSecure)
	svc.cache.Wait()

	second := svc.CheckSecurityStatus(context.Background(), "tok")
	require.True(t, second.IsSecure)
	require.Equal(t, int32(1), introspector.calls.Load())
}

func TestReportSecurityEvent(t *testing.T) {
	reporter := &fakeReporter{}
	svc := newTestProtectionService(t, &fakeIntrospector{}, reporter, true)

	ok := svc.ReportSecurityEvent(context.Background(), "tok", "user@example.com", domain.SecurityEventTokensRevoked, "device lost")
	require.True(t, ok)
	require.Len(t, reporter.events, 1)
	require.Equal(t, domain.SecurityEventTokensRevoked, reporter.events[0].Type)
	require.Equal(t, "Biatec", reporter.events[0].Source)

	require.False(t, svc.ReportSecurityEvent(context.Background(), "", "u", domain.SecurityEventTokensRevoked, ""))
	require.False(t, svc.ReportSecurityEvent(context.Background(), "tok", "u", "not-a-real-event", ""))

	reporter.err = errors.New("risc api down")
	require.False(t, svc.ReportSecurityEvent(context.Background(), "tok", "u", domain.SecurityEventTokensRevoked, ""))
}

func TestProtectionStatus(t *testing.T) {
	svc := newTestProtectionService(t, &fakeIntrospector{}, &fakeReporter{}, true)
	status := svc.Status()
	require.True(t, status.Enabled)
	require.Equal(t, []string{"scope-a", "scope-b"}, status.RequiredScopes)
	require.Equal(t, 60, status.CheckIntervalMinutes)
	require.Contains(t, status.Message, "enabled")

	svc = newTestProtectionService(t, &fakeIntrospector{}, &fakeReporter{}, false)
	require.Contains(t, svc.Status().Message, "disabled")
}
