// Package apperrors defines the error taxonomy shared by the gateway, the
// resolver and the graph store.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// APIError is returned when the backend answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Endpoint   string
	Method     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Endpoint, e.StatusCode)
}

// Is lets callers use errors.Is(err, ErrNotFound) for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// IsRetryable reports true for throttling, request timeouts and 5xx responses.
func (e *APIError) IsRetryable() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == http.StatusRequestTimeout:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// AuthError is returned when the backend rejects the session (HTTP 401).
// It is never retried: re-authentication happens out of band.
type AuthError struct {
	Endpoint string
	Message  string
}

func (e *AuthError) Error() string {
	if e.Endpoint == "" {
		return "authentication failed: " + e.Message
	}
	return fmt.Sprintf("authentication failed for %s: %s", e.Endpoint, e.Message)
}

func (e *AuthError) Is(target error) bool { return target == ErrNotAuthenticated }

func (e *AuthError) IsRetryable() bool { return false }

// NetworkError wraps a transport-level failure (DNS, refused connection, reset).
type NetworkError struct {
	Endpoint string
	Cause    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error calling %s: %v", e.Endpoint, e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

func (e *NetworkError) IsRetryable() bool { return true }

// ConfigError reports missing or invalid required configuration.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Key, e.Message)
}

func (e *ConfigError) IsRetryable() bool { return false }

// ValidationError reports malformed local input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error (%s): %s", e.Field, e.Message)
}

func (e *ValidationError) IsRetryable() bool { return false }

// NewConfigError creates a ConfigError for the given key.
func NewConfigError(key, format string, args ...any) *ConfigError {
	return &ConfigError{Key: key, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// StatusCode extracts the HTTP status from an APIError chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
