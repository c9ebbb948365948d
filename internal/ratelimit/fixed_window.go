// Package ratelimit implements the gateway's client rate limiters: a
// fixed-window counter shared through an external store, and an
// in-process token bucket for individual routes.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/vyrodovalexey/apigw/internal/observability"
	"github.com/vyrodovalexey/apigw/internal/ratelimit/store"
)

// DefaultKeyPrefix namespaces counter keys in the shared store.
const DefaultKeyPrefix = "rate_limit:"

// Result is the outcome of a limiter decision.
type Result struct {
	Allowed bool
	// Limit is the configured maximum per window.
	Limit int64
	// Remaining is max(0, Limit-Count).
	Remaining int64
	// Count is the post-increment counter value.
	Count int64
	// Reset is the window length. It approximates the time until the
	// counter resets; the exact TTL is not read back.
	Reset time.Duration
}

// ResetSeconds returns Reset in whole seconds.
func (r *Result) ResetSeconds() int64 {
	return int64(r.Reset / time.Second)
}

// FixedWindowConfig configures a FixedWindowLimiter.
type FixedWindowConfig struct {
	Max    int64
	Window time.Duration
	Prefix string
}

// FixedWindowLimiter counts requests per key in fixed windows. The window
// starts lazily on the first increment, which also sets the key's TTL.
type FixedWindowLimiter struct {
	store  store.Store
	max    int64
	window time.Duration
	prefix string
	logger observability.Logger
}

// FixedWindowOption configures a FixedWindowLimiter.
type FixedWindowOption func(*FixedWindowLimiter)

// WithFixedWindowLogger sets the logger.
func WithFixedWindowLogger(logger observability.Logger) FixedWindowOption {
	return func(l *FixedWindowLimiter) {
		l.logger = logger
	}
}

// NewFixedWindowLimiter creates a limiter over s.
func NewFixedWindowLimiter(s store.Store, cfg FixedWindowConfig, opts ...FixedWindowOption) (*FixedWindowLimiter, error) {
	if s == nil {
		return nil, fmt.Errorf("rate limit store is required")
	}
	if cfg.Max < 1 {
		return nil, fmt.Errorf("rate limit max must be at least 1, got %d", cfg.Max)
	}
	if cfg.Window < time.Second {
		return nil, fmt.Errorf("rate limit window must be at least 1s, got %s", cfg.Window)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultKeyPrefix
	}

	l := &FixedWindowLimiter{
		store:  s,
		max:    cfg.Max,
		window: cfg.Window,
		prefix: cfg.Prefix,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Limit returns the configured maximum per window.
func (l *FixedWindowLimiter) Limit() int64 {
	return l.max
}

// Window returns the configured window length.
func (l *FixedWindowLimiter) Window() time.Duration {
	return l.window
}

// Allow records one request for key and reports whether it is within the
// limit. A store error is returned as is; the caller decides whether to
// fail open.
//
// Expire is a second round trip after the increment. Two requests that
// race on a fresh window may both set the same TTL, which is harmless.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	fullKey := l.prefix + key

	count, err := l.store.Increment(ctx, fullKey)
	if err != nil {
		return nil, fmt.Errorf("increment %s: %w", fullKey, err)
	}

	if count == 1 {
		if _, err := l.store.Expire(ctx, fullKey, l.window); err != nil {
			return nil, fmt.Errorf("expire %s: %w", fullKey, err)
		}
	}

	remaining := l.max - count
	if remaining < 0 {
		remaining = 0
	}

	res := &Result{
		Allowed:   count <= l.max,
		Limit:     l.max,
		Remaining: remaining,
		Count:     count,
		Reset:     l.window,
	}

	if !res.Allowed {
		l.logger.Debug("fixed window limit exceeded",
			observability.String("key", fullKey),
			observability.Int64("count", count),
			observability.Int64("limit", l.max),
		)
	}
	return res, nil
}
