// Package errors defines coded application errors that carry an HTTP status,
// a stable machine-readable reason, and optional metadata, so handlers can map
// service failures onto responses without string matching.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ApplicationError is the error type exchanged between service and handler
// layers.
type ApplicationError struct {
	Status   int               `json:"status"`
	Reason   string            `json:"reason"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`

	cause error
}

func (e *ApplicationError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *ApplicationError) Unwrap() error { return e.cause }

// Is matches on status and reason so sentinel errors compare across wrapping.
func (e *ApplicationError) Is(target error) bool {
	var ae *ApplicationError
	if !errors.As(target, &ae) {
		return false
	}
	return e.Status == ae.Status && e.Reason == ae.Reason
}

// WithCause returns a copy carrying the underlying error.
func (e *ApplicationError) WithCause(cause error) *ApplicationError {
	cp := *e
	cp.cause = cause
	return &cp
}

// WithMetadata returns a copy with the given metadata merged in.
func (e *ApplicationError) WithMetadata(md map[string]string) *ApplicationError {
	cp := *e
	cp.Metadata = make(map[string]string, len(e.Metadata)+len(md))
	for k, v := range e.Metadata {
		cp.Metadata[k] = v
	}
	for k, v := range md {
		cp.Metadata[k] = v
	}
	return &cp
}

func New(status int, reason, message string) *ApplicationError {
	return &ApplicationError{Status: status, Reason: reason, Message: message}
}

func BadRequest(reason, message string) *ApplicationError {
	return New(http.StatusBadRequest, reason, message)
}

func Unauthorized(reason, message string) *ApplicationError {
	return New(http.StatusUnauthorized, reason, message)
}

func Forbidden(reason, message string) *ApplicationError {
	return New(http.StatusForbidden, reason, message)
}

func NotFound(reason, message string) *ApplicationError {
	return New(http.StatusNotFound, reason, message)
}

func Conflict(reason, message string) *ApplicationError {
	return New(http.StatusConflict, reason, message)
}

func InternalServer(reason, message string) *ApplicationError {
	return New(http.StatusInternalServerError, reason, message)
}

func ServiceUnavailable(reason, message string) *ApplicationError {
	return New(http.StatusServiceUnavailable, reason, message)
}

// Code returns the HTTP status carried by err, defaulting to 500 for unknown
// errors and 200 for nil.
func Code(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ae *ApplicationError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// Reason returns the machine-readable reason carried by err, or "" for
// unknown errors.
func Reason(err error) string {
	var ae *ApplicationError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}

// FromError converts any error into an ApplicationError, wrapping unknown
// errors as internal.
func FromError(err error) *ApplicationError {
	if err == nil {
		return nil
	}
	var ae *ApplicationError
	if errors.As(err, &ae) {
		return ae
	}
	return InternalServer("INTERNAL", err.Error()).WithCause(err)
}
