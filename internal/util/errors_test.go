package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		field          string
		message        string
		cause          error
		expectedString string
	}{
		{
			name:           "with field",
			field:          "spec.routes[0].path",
			message:        "path must start with /",
			expectedString: "config error at spec.routes[0].path: path must start with /",
		},
		{
			name:           "without field",
			message:        "invalid configuration",
			expectedString: "config error: invalid configuration",
		},
		{
			name:           "with cause",
			field:          "spec.auth.signingKey",
			message:        "unreadable",
			cause:          errors.New("permission denied"),
			expectedString: "config error at spec.auth.signingKey: unreadable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var err *ConfigError
			if tt.cause != nil {
				err = NewConfigErrorWithCause(tt.field, tt.message, tt.cause)
			} else {
				err = NewConfigError(tt.field, tt.message)
			}

			assert.Equal(t, tt.expectedString, err.Error())
			assert.Equal(t, tt.cause, err.Unwrap())
			assert.ErrorIs(t, err, ErrConfigInvalid)
		})
	}
}

func TestRouteNotFoundError_Is(t *testing.T) {
	t.Parallel()

	err := NewRouteNotFoundError("GET", "/unknown")

	assert.Equal(t, "no route found for GET /unknown", err.Error())
	assert.ErrorIs(t, err, ErrRouteNotFound)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", err), ErrRouteNotFound)
	assert.NotErrorIs(t, err, ErrBackendUnavail)
}

func TestBackendError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *BackendError
		expected string
	}{
		{
			name:     "status",
			err:      &BackendError{Service: "user-service", Status: 503, Message: "retryable status"},
			expected: "backend user-service error: retryable status (status 503)",
		},
		{
			name:     "cause",
			err:      NewBackendErrorWithCause("order-service", "transport", errors.New("connection refused")),
			expected: "backend order-service error: transport: connection refused",
		},
		{
			name:     "message only",
			err:      &BackendError{Service: "product-service", Message: "no address"},
			expected: "backend product-service error: no address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, tt.err.Error())
			assert.ErrorIs(t, tt.err, ErrBackendUnavail)
		})
	}
}

func TestBackendError_UnwrapsCause(t *testing.T) {
	t.Parallel()

	err := NewBackendErrorWithCause("user-service", "resolve", ErrNoHealthyInstances)

	assert.ErrorIs(t, err, ErrNoHealthyInstances)
	var be *BackendError
	assert.True(t, errors.As(fmt.Errorf("outer: %w", err), &be))
	assert.Equal(t, "user-service", be.Service)
}

func TestCircuitOpenError(t *testing.T) {
	t.Parallel()

	err := NewCircuitOpenError("userServiceCircuitBreaker", "open")

	assert.Equal(t, "circuit breaker userServiceCircuitBreaker is open", err.Error())
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
}
