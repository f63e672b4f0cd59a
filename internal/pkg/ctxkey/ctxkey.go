// Package ctxkey defines typed keys for context.Value.
package ctxkey

// Key avoids the built-in string type for context keys (staticcheck SA1029).
type Key string

const (
	// RequestID is the server-generated or forwarded request id.
	RequestID Key = "ctx_request_id"

	// SessionID is the device pairing session id of the current request,
	// set by handlers for request-scoped log correlation.
	SessionID Key = "ctx_session_id"
)
