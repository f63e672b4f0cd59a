package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/biatec-io/gdrive-account/internal/config"
	"github.com/biatec-io/gdrive-account/internal/domain"
	infraerrors "github.com/biatec-io/gdrive-account/internal/pkg/errors"
)

type fakeCacheEntry struct {
	value []byte
	ttl   time.Duration
}

// fakeCache is an in-memory PairingCache with call recording and failure
// injection.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]fakeCacheEntry
	deletes []string

	getErr    error
	setErr    error
	deleteErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]fakeCacheEntry{}}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	entry, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	return entry.value, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = fakeCacheEntry{value: value, ttl: ttl}
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes = append(c.deletes, key)
	if c.deleteErr != nil {
		return c.deleteErr
	}
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) deleteCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.deletes {
		if k == key {
			n++
		}
	}
	return n
}

func newTestPairingService(cache PairingCache) *PairingService {
	cfg := &config.Config{}
	cfg.Pairing.TempSessionTTL = 5 * time.Minute
	cfg.Pairing.DeviceSessionTTL = 24 * time.Hour
	return NewPairingService(cache, cfg)
}

func pairSession(t *testing.T, svc *PairingService, sessionID, deviceName, email, token string) {
	t.Helper()
	_, err := svc.InitiatePairing(context.Background(), sessionID, deviceName)
	require.NoError(t, err)
	resp := svc.ProcessPairingCallback(context.Background(), sessionID, email, token, "refresh-1")
	require.True(t, resp.Success, resp.Message)
}

func TestInitiatePairing_StoresTempSession(t *testing.T) {
	cache := newFakeCache()
	svc := newTestPairingService(cache)

	key, err := svc.InitiatePairing(context.Background(), "s1", "Phone")
	require.NoError(t, err)
	require.Equal(t, "temp_session:s1", key)

	entry, ok := cache.entries[key]
	require.True(t, ok)
	require.Equal(t, 5*time.Minute, entry.ttl)

	var temp domain.TempSession
	require.NoError(t, json.Unmarshal(entry.value, &temp))
	require.Equal(t, "s1", temp.SessionID)
	require.Equal(t, "Phone", temp.DeviceName)
	require.False(t, temp.InitiatedAt.IsZero())
}

func TestInitiatePairing_RequiresSessionID(t *testing.T) {
	svc := newTestPairingService(newFakeCache())

	for _, id := range []string{"", "   "} {
		_, err := svc.InitiatePairing(context.Background(), id, "Phone")
		require.Error(t, err)
		require.Equal(t, 400, infraerrors.Code(err))
		require.Contains(t, err.Error(), "Session ID is required")
	}
}

func TestProcessPairingCallback_ValidationOrder(t *testing.T) {
	cache := newFakeCache()
	svc := newTestPairingService(cache)

	resp := svc.ProcessPairingCallback(context.Background(), "", "a@b.com", "tok", "")
	require.False(t, resp.Success)
	require.Equal(t, "Session ID is required", resp.Message)

	resp = svc.ProcessPairingCallback(context.Background(), "never-initiated", "a@b.com", "tok", "")
	require.False(t, resp.Success)
	require.Equal(t, "Session not found or expired. Please initiate pairing again.", resp.Message)

	_, err := svc.InitiatePairing(context.Background(), "s1", "Phone")
	require.NoError(t, err)

	resp = svc.ProcessPairingCallback(context.Background(), "s1", "", "tok", "")
	require.False(t, resp.Success)
	require.Equal(t, "Email not found in claims. Authentication failed.", resp.Message)

	resp = svc.ProcessPairingCallback(context.Background(), "s1", "a@b.com", "", "")
	require.False(t, resp.Success)
	require.Equal(t, "No access token found. Authentication failed.", resp.Message)
}

func TestProcessPairingCallback_Success(t *testing.T) {
	cache := newFakeCache()
	svc := newTestPairingService(cache)

	_, err := svc.InitiatePairing(context.Background(), "s1", "Phone")
	require.NoError(t, err)

	resp := svc.ProcessPairingCallback(context.Background(), "s1", "a@b.com", "tok123", "refresh123")
	require.True(t, resp.Success)
	require.Equal(t, "Device paired successfully", resp.Message)
	require.Equal(t, "s1", resp.SessionID)

	// The temp session is consumed.
	_, ok := cache.entries["temp_session:s1"]
	require.False(t, ok)

	entry, ok := cache.entries["device_session:s1"]
	require.True(t, ok)
	require.Equal(t, 24*time.Hour, entry.ttl)

	var info domain.PairedDeviceInfo
	require.NoError(t, json.Unmarshal(entry.value, &info))
	require.Equal(t, "a@b.com", info.Email)
	require.Equal(t, "Phone", info.DeviceName)
	require.Equal(t, "tok123", info.AccessToken)
	require.Equal(t, "refresh123", info.RefreshToken)
	require.Equal(t, 24*time.Hour, info.ExpiresAt.Sub(info.PairedAt))
}

func TestProcessPairingCallback_DefaultDeviceName(t *testing.T) {
	cache := newFakeCache()
	svc := newTestPairingService(cache)

	_, err := svc.InitiatePairing(context.Background(), "s1", "")
	require.NoError(t, err)
	resp := svc.ProcessPairingCallback(context.Background(), "s1", "a@b.com", "tok", "")
	require.True(t, resp.Success)

	info, err := svc.GetDeviceInfo(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultDeviceName, info.DeviceName)
}

func TestProcessPairingCallback_CacheFailuresAreGeneric(t *testing.T) {
	boom := errors.New("redis down")

	cache := newFakeCache()
	cache.getErr = boom
	svc := newTestPairingService(cache)
	resp := svc.ProcessPairingCallback(context.Background(), "s1", "a@b.com", "tok", "")
	require.False(t, resp.Success)
	require.Equal(t, "An error occurred while pairing the device", resp.Message)

	cache = newFakeCache()
	svc = newTestPairingService(cache)
	_, err := svc.InitiatePairing(context.Background(), "s1", "Phone")
	require.NoError(t, err)
	cache.setErr = boom
	resp = svc.ProcessPairingCallback(context.Background(), "s1", "a@b.com", "tok", "")
	require.False(t, resp.Success)
	require.Equal(t, "An error occurred while pairing the device", resp.Message)
}

func TestGetAccessToken(t *testing.T) {
	cache := newFakeCache()
	svc := newTestPairingService(cache)
	pairSession(t, svc, "s1", "Phone", "a@b.com", "tok123")

	token, err := svc.GetAccessToken(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, "tok123", token)

	token, err = svc.GetAccessToken(context.Background(), "unknown")
	require.NoError(t, err)
	require.Empty(t, token)

	_, err = svc.GetAccessToken(context.Background(), " ")
	require.Error(t, err)
	require.Equal(t, 400, infraerrors.Code(err))
}

func TestGetAccessToken_ExpiredSessionEvicted(t *testing.T) {
	cache := newFakeCache()
	svc := newTestPairingService(cache)
	pairSession(t, svc, "s1", "Phone", "a@b.com", "tok123")

	// Jump past the record's own expiry, the cache TTL has not collected it.
	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	token, err := svc.GetAccessToken(context.Background(), "s1")
	require.NoError(t, err)
	require.Empty(t, token)
	require.Equal(t, 1, cache.deleteCount("device_session:s1"))

	// The next read is a plain miss, no second delete.
	token, err = svc.GetAccessToken(context.Background(), "s1")
	require.NoError(t, err)
	require.Empty(t, token)
	require.Equal(t, 1, cache.deleteCount("device_session:s1"))
}

func TestGetDeviceInfo_RedactsTokens(t *testing.T) {
	cache := newFakeCache()
	svc := newTestPairingService(cache)
	pairSession(t, svc, "s1", "Phone", "a@b.com", "tok123")

	info, err := svc.GetDeviceInfo(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, domain.RedactedToken, info.AccessToken)
	require.Equal(t, domain.RedactedToken, info.RefreshToken)
	require.Equal(t, "a@b.com", info.Email)
	require.Equal(t, "Phone", info.DeviceName)
	require.False(t, info.PairedAt.IsZero())
	require.False(t, info.ExpiresAt.IsZero())

	// Redaction must not write back into the stored record.
	internal, err := svc.GetDeviceInfoInternal(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, "tok123", internal.AccessToken)
	require.Equal(t, "refresh-1", internal.RefreshToken)
}

func TestGetDeviceInfo_MalformedRecord(t *testing.T) {
	cache := newFakeCache()
	svc := newTestPairingService(cache)
	require.NoError(t, cache.Set(context.Background(), "device_session:s1", []byte("{not json"), time.Hour))

	_, err := svc.GetDeviceInfo(context.Background(), "s1")
	require.Error(t, err)
}

func TestUnpairDevice(t *testing.T) {
	cache := newFakeCache()
	svc := newTestPairingService(cache)
	pairSession(t, svc, "s1", "Phone", "a@b.com", "tok123")

	resp := svc.UnpairDevice(context.Background(), "s1")
	require.True(t, resp.Success)
	require.Equal(t, "Device unpaired successfully", resp.Message)
	require.Equal(t, "s1", resp.SessionID)

	// Idempotent: unpairing again still succeeds and still issues a delete.
	resp = svc.UnpairDevice(context.Background(), "s1")
	require.True(t, resp.Success)
	require.Equal(t, 2, cache.deleteCount("device_session:s1"))

	resp = svc.UnpairDevice(context.Background(), "")
	require.False(t, resp.Success)
	require.Equal(t, "Session ID is required", resp.Message)

	cache.deleteErr = errors.New("redis down")
	resp = svc.UnpairDevice(context.Background(), "s1")
	require.False(t, resp.Success)
	require.Equal(t, "An error occurred while unpairing the device", resp.Message)
}

func TestPairingLifecycle(t *testing.T) {
	cache := newFakeCache()
	svc := newTestPairingService(cache)
	ctx := context.Background()

	_, err := svc.InitiatePairing(ctx, "s1", "Phone")
	require.NoError(t, err)

	resp := svc.ProcessPairingCallback(ctx, "s1", "a@b.com", "tok123", "")
	require.True(t, resp.Success)

	info, err := svc.GetDeviceInfo(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "a@b.com", info.Email)
	require.Equal(t, "Phone", info.DeviceName)
	require.Equal(t, domain.RedactedToken, info.AccessToken)

	require.True(t, svc.UnpairDevice(ctx, "s1").Success)

	token, err := svc.GetAccessToken(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, token)
}
