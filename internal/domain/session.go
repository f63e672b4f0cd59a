package domain

import "time"

// TempSession bridges the OAuth redirect round trip. It lives under
// temp_session:{sessionId} for a few minutes only.
type TempSession struct {
	SessionID   string    `json:"sessionId"`
	DeviceName  string    `json:"deviceName"`
	InitiatedAt time.Time `json:"initiatedAt"`
}

// PairedDeviceInfo is the long-lived pairing record stored under
// device_session:{sessionId}. ExpiresAt is fixed at pairing time and checked
// on every read in addition to the cache's own TTL.
type PairedDeviceInfo struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	Email        string    `json:"email"`
	DeviceName   string    `json:"deviceName"`
	PairedAt     time.Time `json:"pairedAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Redacted returns a copy with token values masked for public info reads.
func (d PairedDeviceInfo) Redacted() PairedDeviceInfo {
	d.AccessToken = RedactedToken
	d.RefreshToken = RedactedToken
	return d
}

// PairingResponse is the structured result of mutating pairing operations.
// Mutating paths report failure through this instead of an error, read paths
// use errors; both disciplines are part of the client contract.
type PairingResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// SecurityStatus is the outcome of a Cross-Account Protection check.
type SecurityStatus struct {
	IsSecure       bool      `json:"isSecure"`
	Warnings       []string  `json:"warnings"`
	RequiresReauth bool      `json:"requiresReauth"`
	LastCheck      time.Time `json:"lastCheck"`
}

// TokenIntrospection is the subset of Google's tokeninfo response the
// security checker evaluates.
type TokenIntrospection struct {
	Audience      string
	Scopes        []string
	Email         string
	EmailVerified bool
	Issuer        string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}
