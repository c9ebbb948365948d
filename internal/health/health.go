// Package health serves the gateway health endpoint.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/vyrodovalexey/apigw/internal/observability"
	"github.com/vyrodovalexey/apigw/internal/util"
)

// Status represents the health status.
type Status string

const (
	// StatusUp indicates the component is healthy.
	StatusUp Status = "UP"
	// StatusDown indicates the component is not healthy.
	StatusDown Status = "DOWN"
)

const (
	// DefaultPath is where the gateway mounts the health handler.
	DefaultPath = "/actuator/health"

	// DefaultCheckTimeout bounds a single component check.
	DefaultCheckTimeout = 2 * time.Second
)

// CheckFunc reports a component failure as an error.
type CheckFunc func(ctx context.Context) error

// DetailsFunc reports informational state for a component that is
// always UP.
type DetailsFunc func() map[string]string

// Component is the result of one component check.
type Component struct {
	Status  Status            `json:"status"`
	Details map[string]string `json:"details,omitempty"`
}

// Response is the health endpoint body.
type Response struct {
	Status     Status               `json:"status"`
	Version    string               `json:"version,omitempty"`
	Uptime     string               `json:"uptime,omitempty"`
	Components map[string]Component `json:"components,omitempty"`
}

type check struct {
	fn       CheckFunc
	critical bool
}

// Checker aggregates component checks.
type Checker struct {
	version   string
	startTime time.Time
	timeout   time.Duration
	logger    observability.Logger

	mu      sync.RWMutex
	checks  map[string]check
	details map[string]DetailsFunc
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger used to report failing checks.
func WithLogger(logger observability.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// WithCheckTimeout sets the per-check timeout.
func WithCheckTimeout(d time.Duration) Option {
	return func(c *Checker) {
		c.timeout = d
	}
}

// NewChecker creates a new health checker.
func NewChecker(version string, opts ...Option) *Checker {
	c := &Checker{
		version:   version,
		startTime: time.Now(),
		timeout:   DefaultCheckTimeout,
		logger:    observability.NopLogger(),
		checks:    make(map[string]check),
		details:   make(map[string]DetailsFunc),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterCheck registers a critical check. A failing critical check
// turns the overall status DOWN.
func (c *Checker) RegisterCheck(name string, fn CheckFunc) {
	c.register(name, fn, true)
}

// RegisterOptionalCheck registers a check whose failure is reported for
// the component only. The overall status stays UP.
func (c *Checker) RegisterOptionalCheck(name string, fn CheckFunc) {
	c.register(name, fn, false)
}

// RegisterDetails registers an informational component. It never affects
// the overall status.
func (c *Checker) RegisterDetails(name string, fn DetailsFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.details[name] = fn
}

func (c *Checker) register(name string, fn CheckFunc, critical bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check{fn: fn, critical: critical}
}

// Health runs all checks concurrently.
func (c *Checker) Health(ctx context.Context) Response {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	checks := make(map[string]check, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	details := make(map[string]DetailsFunc, len(c.details))
	for k, v := range c.details {
		details[k] = v
	}
	c.mu.RUnlock()
	sort.Strings(names)

	resp := Response{
		Status:  StatusUp,
		Version: c.version,
		Uptime:  time.Since(c.startTime).Round(time.Second).String(),
	}
	if len(names) == 0 && len(details) == 0 {
		return resp
	}

	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, fn CheckFunc) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			errs[i] = fn(cctx)
		}(i, checks[name].fn)
	}
	wg.Wait()

	resp.Components = make(map[string]Component, len(names)+len(details))
	for name, fn := range details {
		resp.Components[name] = Component{Status: StatusUp, Details: fn()}
	}
	for i, name := range names {
		if errs[i] == nil {
			resp.Components[name] = Component{Status: StatusUp}
			continue
		}
		c.logger.Warn("health check failed",
			observability.String("component", name),
			observability.Error(errs[i]),
		)
		resp.Components[name] = Component{Status: StatusDown}
		if checks[name].critical {
			resp.Status = StatusDown
		}
	}
	return resp
}

// HealthHandler returns an HTTP handler for the health endpoint. It
// answers 503 when the overall status is DOWN.
func (c *Checker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := c.Health(r.Context())

		status := http.StatusOK
		if resp.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		util.WriteJSON(w, status, resp)
	}
}
