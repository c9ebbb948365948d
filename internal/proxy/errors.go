package proxy

import (
	"errors"
	"fmt"
)

// ErrUpstreamTimeout indicates that a backend attempt timed out.
var ErrUpstreamTimeout = errors.New("upstream request timed out")

// ProxyError describes a failed backend call.
type ProxyError struct {
	Op     string // Operation that failed
	Route  string // Route name
	Target string // Instance address if one was resolved
	Cause  error
}

// Error implements the error interface.
func (e *ProxyError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("proxy error [%s] route=%s target=%s: %v", e.Op, e.Route, e.Target, e.Cause)
	}
	return fmt.Sprintf("proxy error [%s] route=%s: %v", e.Op, e.Route, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ProxyError) Unwrap() error {
	return e.Cause
}

func newProxyError(op, route, target string, cause error) *ProxyError {
	return &ProxyError{Op: op, Route: route, Target: target, Cause: cause}
}
