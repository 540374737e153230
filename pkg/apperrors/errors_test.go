package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_NotFoundMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("get node: %w", &APIError{StatusCode: 404, Endpoint: "kg/node", Method: "GET"})

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 404, StatusCode(err))
}

func TestAPIError_OtherStatusDoesNotMatchNotFound(t *testing.T) {
	err := &APIError{StatusCode: 500, Endpoint: "kg/node", Method: "GET"}

	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestAPIError_Retryability(t *testing.T) {
	cases := map[int]bool{
		400: false,
		404: false,
		408: true,
		429: true,
		500: true,
		503: true,
	}
	for status, want := range cases {
		err := &APIError{StatusCode: status}
		assert.Equal(t, want, err.IsRetryable(), "status %d", status)
	}
}

func TestAPIError_ErrorIncludesBody(t *testing.T) {
	err := &APIError{StatusCode: 422, Endpoint: "kg/asset", Method: "POST", Body: "bad uri"}

	assert.Equal(t, "POST kg/asset: HTTP 422: bad uri", err.Error())
}

func TestAuthError_NeverRetryable(t *testing.T) {
	err := fmt.Errorf("list nodes: %w", &AuthError{Endpoint: "kg/nodes", Message: "token rejected"})

	assert.True(t, IsAuth(err))
	assert.True(t, errors.Is(err, ErrNotAuthenticated))

	var authErr *AuthError
	assert.True(t, errors.As(err, &authErr))
	assert.False(t, authErr.IsRetryable())
}

func TestNetworkError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := &NetworkError{Endpoint: "kg/nodes", Cause: cause}

	assert.True(t, errors.Is(err, cause))
	assert.True(t, err.IsRetryable())
	assert.Contains(t, err.Error(), "connection refused")
}

func TestConfigAndValidationErrors(t *testing.T) {
	cfgErr := NewConfigError("SINDIT_KG_BASE_URI", "base URI is not configured")
	assert.Equal(t, "configuration error (SINDIT_KG_BASE_URI): base URI is not configured", cfgErr.Error())
	assert.False(t, cfgErr.IsRetryable())

	valErr := NewValidationError("page_size", "must be >= 1, got %d", 0)
	assert.Equal(t, "validation error (page_size): must be >= 1, got 0", valErr.Error())
	assert.False(t, valErr.IsRetryable())
}
