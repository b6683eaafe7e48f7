package session

import (
	"errors"
	"fmt"
	"net/http"
)

// SessionError represents a session-related error
type SessionError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *SessionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *SessionError) Unwrap() error {
	return e.Cause
}

// Error codes for session operations
const (
	ErrSessionNotFound   = "SESSION_NOT_FOUND"
	ErrSessionExpired    = "SESSION_EXPIRED"
	ErrSessionInvalid    = "SESSION_INVALID"
	ErrSessionGeneration = "SESSION_GENERATION_FAILED"
	ErrSessionStorage    = "SESSION_STORAGE_ERROR"
)

func newSessionError(code, message string, cause error) *SessionError {
	return &SessionError{Code: code, Message: message, Cause: cause}
}

func NewSessionNotFoundError(sessionID string) *SessionError {
	return newSessionError(ErrSessionNotFound, fmt.Sprintf("session not found: %s", sessionID), nil)
}

func NewSessionExpiredError(sessionID string) *SessionError {
	return newSessionError(ErrSessionExpired, fmt.Sprintf("session expired: %s", sessionID), nil)
}

func NewSessionInvalidError(reason string) *SessionError {
	return newSessionError(ErrSessionInvalid, fmt.Sprintf("session invalid: %s", reason), nil)
}

func NewSessionGenerationError(cause error) *SessionError {
	return newSessionError(ErrSessionGeneration, "failed to generate session ID", cause)
}

func NewSessionStorageError(operation string, cause error) *SessionError {
	return newSessionError(ErrSessionStorage, fmt.Sprintf("session storage error during %s", operation), cause)
}

// ErrorCode extracts the code of a SessionError, or UNKNOWN_ERROR.
func ErrorCode(err error) string {
	var sessionErr *SessionError
	if errors.As(err, &sessionErr) {
		return sessionErr.Code
	}
	return "UNKNOWN_ERROR"
}

// HTTPStatus maps a session error to the status an MCP client expects:
// 400 for a malformed ID, 404 for an unknown or expired one.
func HTTPStatus(err error) int {
	switch ErrorCode(err) {
	case ErrSessionInvalid:
		return http.StatusBadRequest
	case ErrSessionNotFound, ErrSessionExpired:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
