package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClient is the identity used when nothing identifies the caller.
const UnknownClient = "unknown"

// ClientIdentity resolves the rate limit key for r. It takes the first
// entry of X-Forwarded-For, then X-Real-IP, then the host part of the
// remote address.
func ClientIdentity(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); strings.TrimSpace(xff) != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	if r.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		if host != "" {
			return host
		}
	}

	return UnknownClient
}
