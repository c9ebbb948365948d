// Package circuitbreaker isolates the gateway from failing backends with
// named, shared circuit breakers built on sony/gobreaker.
package circuitbreaker

import (
	"time"

	"github.com/vyrodovalexey/apigw/internal/config"
)

// Config holds the trip and recovery settings of one breaker.
type Config struct {
	// ConsecutiveFailures trips the breaker once reached.
	ConsecutiveFailures uint32

	// FailureRatio trips the breaker when at least MinRequests were seen
	// in the current interval. Zero disables ratio tripping.
	FailureRatio float64
	MinRequests  uint32

	// Interval clears closed-state counts periodically. Zero never clears.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// HalfOpenRequests is the number of trial calls allowed while half-open.
	HalfOpenRequests uint32
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ConsecutiveFailures: 5,
		FailureRatio:        0.5,
		MinRequests:         10,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// normalize replaces unusable values with defaults.
func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.ConsecutiveFailures < 1 {
		c.ConsecutiveFailures = d.ConsecutiveFailures
	}
	if c.FailureRatio < 0 || c.FailureRatio > 1 {
		c.FailureRatio = 0
	}
	if c.MinRequests < 1 {
		c.MinRequests = d.MinRequests
	}
	if c.Interval < 0 {
		c.Interval = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.HalfOpenRequests < 1 {
		c.HalfOpenRequests = d.HalfOpenRequests
	}
	return c
}

// FromConfig builds breaker settings from the gateway-wide defaults with
// the route's overrides applied on top.
func FromConfig(defaults config.CircuitBreakerConfig, route *config.RouteCircuitBreakerConfig) Config {
	c := Config{
		ConsecutiveFailures: safeUint32(defaults.ConsecutiveFailures),
		FailureRatio:        defaults.FailureRatio,
		MinRequests:         safeUint32(defaults.MinRequests),
		Interval:            defaults.Interval.Duration(),
		Timeout:             defaults.Timeout.Duration(),
		HalfOpenRequests:    safeUint32(defaults.HalfOpenRequests),
	}
	if route != nil {
		if route.ConsecutiveFailures > 0 {
			c.ConsecutiveFailures = safeUint32(route.ConsecutiveFailures)
		}
		if route.Timeout > 0 {
			c.Timeout = route.Timeout.Duration()
		}
	}
	return c.normalize()
}

func safeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}
