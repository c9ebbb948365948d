// Package backend resolves logical service names to live instance
// addresses. It keeps a static instance list per service, balances
// round robin over the instances not known to be unhealthy, and can
// probe instances with active HTTP health checks.
package backend

import (
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
)

// Status represents the health status of an instance.
type Status int32

const (
	// StatusUnknown means no health check has completed yet.
	StatusUnknown Status = iota
	// StatusHealthy means the instance passed its health checks.
	StatusHealthy
	// StatusUnhealthy means the instance failed its health checks.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Host is one instance of a service.
type Host struct {
	// URL is the base address, for example http://10.0.0.5:8081.
	URL    string
	status atomic.Int32
}

// NewHost parses an instance address. A bare host:port gets the http scheme.
func NewHost(raw string) (*Host, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid instance address %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid instance address %q: missing host", raw)
	}
	h := &Host{URL: strings.TrimSuffix(u.Scheme+"://"+u.Host+u.Path, "/")}
	h.status.Store(int32(StatusUnknown))
	return h, nil
}

// Status returns the host status.
func (h *Host) Status() Status {
	return Status(h.status.Load())
}

// SetStatus sets the host status.
func (h *Host) SetStatus(status Status) {
	h.status.Store(int32(status))
}

// Available reports whether the host may receive traffic. Hosts that were
// never checked count as available.
func (h *Host) Available() bool {
	return h.Status() != StatusUnhealthy
}
