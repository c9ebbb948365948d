// Package store provides the shared counter backends used by the
// fixed-window rate limiter.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vyrodovalexey/apigw/internal/observability"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Store is a shared counter store.
//
// Increment and Expire are separate round trips. A limiter that needs the
// first increment to carry a TTL calls Expire right after it observes a
// count of 1; the gap between the two calls is accepted.
type Store interface {
	// Increment atomically adds one to key and returns the new value.
	// A missing key counts from zero.
	Increment(ctx context.Context, key string) (int64, error)

	// Expire sets a time to live on key. It reports false when the key
	// does not exist.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// Operation label values.
const (
	opIncrement = "increment"
	opExpire    = "expire"
	opPing      = "ping"

	statusSuccess = "success"
	statusError   = "error"
)

var (
	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_store_operations_total",
			Help: "Total number of rate limit store operations",
		},
		[]string{"backend", "operation", "status"},
	)

	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rate_limit_store_operation_duration_seconds",
			Help:    "Duration of rate limit store operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"backend", "operation"},
	)

	storeConnectionRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_store_connection_retries_total",
			Help: "Total number of store connection retry attempts",
		},
		[]string{"backend"},
	)
)

func observe(backend, operation string, start time.Time, err error) {
	storeOperationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	storeOperationsTotal.WithLabelValues(backend, operation, status).Inc()
}

// WaitConfig controls WaitReady.
type WaitConfig struct {
	Backend        string
	MaxTries       uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Logger         observability.Logger
}

// WaitReady pings s until it answers or the attempts run out.
// The limiter fails open, so callers usually log the error and carry on.
func WaitReady(ctx context.Context, s Store, cfg WaitConfig) error {
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 5
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialBackoff
	b.MaxInterval = cfg.MaxBackoff

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		return struct{}{}, s.Ping(ctx)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(cfg.MaxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			storeConnectionRetries.WithLabelValues(cfg.Backend).Inc()
			logger.Debug("store ping failed, retrying",
				observability.String("backend", cfg.Backend),
				observability.Int("attempt", attempt),
				observability.Duration("backoff", wait),
				observability.Error(err),
			)
		}),
	)
	if err != nil {
		return err
	}

	if attempt > 1 {
		logger.Info("store connection established after retry",
			observability.String("backend", cfg.Backend),
			observability.Int("attempt", attempt),
		)
	}
	return nil
}
