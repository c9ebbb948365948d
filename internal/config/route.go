package config

import "strings"

// Route maps a path prefix to a logical backend service.
type Route struct {
	Name string `yaml:"name" json:"name"`

	// Path is a prefix pattern. A trailing "/**" is accepted and ignored,
	// so "/api/users/**" and "/api/users" are equivalent.
	Path    string `yaml:"path" json:"path"`
	Service string `yaml:"service" json:"service"`

	Timeout        Duration                   `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	CircuitBreaker *RouteCircuitBreakerConfig `yaml:"circuitBreaker,omitempty" json:"circuitBreaker,omitempty"`
	Retries        *RetryPolicy               `yaml:"retries,omitempty" json:"retries,omitempty"`
	Headers        *HeaderManipulation        `yaml:"headers,omitempty" json:"headers,omitempty"`
	RateLimit      *RouteRateLimitConfig      `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`
}

// PathPrefix returns the literal prefix of the route path pattern.
func (r *Route) PathPrefix() string {
	p := strings.TrimSuffix(r.Path, "/**")
	p = strings.TrimSuffix(p, "/*")
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// RouteCircuitBreakerConfig attaches a named breaker and fallback to a route.
// Zero thresholds inherit the gateway-wide CircuitBreakerConfig.
type RouteCircuitBreakerConfig struct {
	Name        string `yaml:"name" json:"name"`
	FallbackURI string `yaml:"fallbackUri,omitempty" json:"fallbackUri,omitempty"`

	ConsecutiveFailures int      `yaml:"consecutiveFailures,omitempty" json:"consecutiveFailures,omitempty"`
	Timeout             Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// RetryPolicy represents retry configuration.
type RetryPolicy struct {
	// Attempts is the number of additional attempts after the first call.
	Attempts int `yaml:"attempts" json:"attempts"`

	// Statuses are the response codes that trigger a retry. Defaults to 503.
	Statuses []int `yaml:"statuses,omitempty" json:"statuses,omitempty"`

	// Methods restricts retries to idempotent-safe methods. Defaults to GET.
	Methods []string `yaml:"methods,omitempty" json:"methods,omitempty"`

	InitialBackoff Duration `yaml:"initialBackoff,omitempty" json:"initialBackoff,omitempty"`
	MaxBackoff     Duration `yaml:"maxBackoff,omitempty" json:"maxBackoff,omitempty"`
}

// HeaderManipulation describes request header changes applied before proxying.
type HeaderManipulation struct {
	Add    map[string]string `yaml:"add,omitempty" json:"add,omitempty"`
	Remove []string          `yaml:"remove,omitempty" json:"remove,omitempty"`
}

// RouteRateLimitConfig is an in-process token bucket applied per client on one route.
type RouteRateLimitConfig struct {
	RequestsPerSecond int `yaml:"requestsPerSecond" json:"requestsPerSecond"`
	Burst             int `yaml:"burst" json:"burst"`
}
