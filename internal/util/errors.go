package util

import (
	"errors"
	"fmt"
)

// Common sentinel errors.
var (
	ErrRouteNotFound      = errors.New("no route")
	ErrServiceNotFound    = errors.New("service not found")
	ErrNoHealthyInstances = errors.New("no healthy instances")
	ErrCircuitOpen        = errors.New("circuit breaker open")
	ErrRetriesExhausted   = errors.New("retries exhausted")
	ErrBackendUnavail     = errors.New("backend unavailable")
	ErrConfigInvalid      = errors.New("invalid configuration")
)

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// RouteNotFoundError is returned when no route prefix matches a path.
type RouteNotFoundError struct {
	Path   string
	Method string
}

// Error implements the error interface.
func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("no route found for %s %s", e.Method, e.Path)
}

// Is checks if the error matches the target.
func (e *RouteNotFoundError) Is(target error) bool {
	if target == ErrRouteNotFound {
		return true
	}
	_, ok := target.(*RouteNotFoundError)
	return ok
}

// NewRouteNotFoundError creates a new RouteNotFoundError.
func NewRouteNotFoundError(method, path string) *RouteNotFoundError {
	return &RouteNotFoundError{Path: path, Method: method}
}

// BackendError represents a failed call to a backend service.
type BackendError struct {
	Service string
	Status  int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("backend %s error: %s: %v", e.Service, e.Message, e.Cause)
	case e.Status != 0:
		return fmt.Sprintf("backend %s error: %s (status %d)", e.Service, e.Message, e.Status)
	default:
		return fmt.Sprintf("backend %s error: %s", e.Service, e.Message)
	}
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *BackendError) Is(target error) bool {
	if target == ErrBackendUnavail {
		return true
	}
	_, ok := target.(*BackendError)
	return ok || errors.Is(e.Cause, target)
}

// NewBackendErrorWithCause creates a new BackendError with a cause.
func NewBackendErrorWithCause(service, message string, cause error) *BackendError {
	return &BackendError{Service: service, Message: message, Cause: cause}
}

// CircuitOpenError reports a call rejected by a circuit breaker.
type CircuitOpenError struct {
	Name  string
	State string
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker %s is %s", e.Name, e.State)
}

// Is checks if the error matches the target.
func (e *CircuitOpenError) Is(target error) bool {
	if target == ErrCircuitOpen {
		return true
	}
	_, ok := target.(*CircuitOpenError)
	return ok
}

// NewCircuitOpenError creates a new CircuitOpenError.
func NewCircuitOpenError(name, state string) *CircuitOpenError {
	return &CircuitOpenError{Name: name, State: state}
}
