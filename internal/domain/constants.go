// Package domain holds constants shared across services, repositories, and
// handlers.
package domain

// Cache key prefixes. These are part of the wire contract with other
// deployments sharing the same redis, do not change them.
const (
	TempSessionKeyPrefix   = "temp_session:"
	DeviceSessionKeyPrefix = "device_session:"
)

const (
	// DefaultDeviceName is used when a pairing request carries no device name.
	DefaultDeviceName = "Unknown Device"

	// RedactedToken replaces secret token values on info read paths.
	RedactedToken = "***"

	// AesIDPlaceholder is substituted in the blob filename template with the
	// short identifier of the active AES key/IV generation.
	AesIDPlaceholder = "%AESID%"
)

// Security event types reported to the identity provider.
const (
	SecurityEventSessionRevoked   = "sessions-revoked"
	SecurityEventTokensRevoked    = "tokens-revoked"
	SecurityEventAccountDisabled  = "account-disabled"
	SecurityEventAccountReenabled = "account-enabled"
)
