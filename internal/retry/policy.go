// Package retry re-attempts idempotent backend calls that fail with a
// retryable status or a transport error, spacing attempts with
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/vyrodovalexey/apigw/internal/config"
)

// Defaults applied by FromConfig.
const (
	DefaultInitialBackoff = 50 * time.Millisecond
	DefaultMaxBackoff     = 500 * time.Millisecond
)

// Policy describes when and how often a call is repeated.
type Policy struct {
	// Retries is the number of attempts after the first one.
	Retries int
	// Statuses are the response codes worth another attempt.
	Statuses []int
	// Methods are the request methods that may be repeated.
	Methods []string

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// FromConfig converts a route retry policy. It returns nil when the route
// does not retry.
func FromConfig(c *config.RetryPolicy) *Policy {
	if c == nil || c.Attempts <= 0 {
		return nil
	}

	p := &Policy{
		Retries:        c.Attempts,
		Statuses:       c.Statuses,
		Methods:        make([]string, 0, len(c.Methods)),
		InitialBackoff: c.InitialBackoff.OrDefault(DefaultInitialBackoff),
		MaxBackoff:     c.MaxBackoff.OrDefault(DefaultMaxBackoff),
	}
	if len(p.Statuses) == 0 {
		p.Statuses = []int{http.StatusServiceUnavailable}
	}
	for _, m := range c.Methods {
		p.Methods = append(p.Methods, strings.ToUpper(m))
	}
	if len(p.Methods) == 0 {
		p.Methods = []string{http.MethodGet}
	}
	return p
}

// MaxAttempts is the total number of calls the policy allows.
func (p *Policy) MaxAttempts() int {
	if p == nil {
		return 1
	}
	return p.Retries + 1
}

// AllowsMethod reports whether requests with method may be repeated.
func (p *Policy) AllowsMethod(method string) bool {
	return p != nil && p.Retries > 0 && slices.Contains(p.Methods, method)
}

// RetryableStatus reports whether status is worth another attempt.
func (p *Policy) RetryableStatus(status int) bool {
	return p != nil && slices.Contains(p.Statuses, status)
}

// ShouldRetry reports whether an attempt that produced status or err may
// be repeated. Cancellation by the caller is never retried.
func (p *Policy) ShouldRetry(method string, status int, err error) bool {
	if !p.AllowsMethod(method) {
		return false
	}
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	return p.RetryableStatus(status)
}

// NewBackOff returns a fresh backoff sequence for one request.
func (p *Policy) NewBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.MaxInterval = p.MaxBackoff
	return b
}
