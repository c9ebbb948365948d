package config

import "time"

// RateLimitConfig configures the shared fixed-window limiter.
type RateLimitConfig struct {
	Enabled     bool     `yaml:"enabled" json:"enabled"`
	MaxRequests int      `yaml:"maxRequests" json:"maxRequests"`
	Window      Duration `yaml:"window" json:"window"`
	KeyPrefix   string   `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`
}

// AuthConfig configures bearer token authentication.
type AuthConfig struct {
	Enabled     bool     `yaml:"enabled" json:"enabled"`
	ExemptPaths []string `yaml:"exemptPaths,omitempty" json:"exemptPaths,omitempty"`

	// SigningKey is the shared HMAC secret. Usually "${JWT_SECRET}".
	SigningKey string `yaml:"signingKey,omitempty" json:"-"`

	// SigningKeyRef reads the secret from Vault KV v2 instead.
	SigningKeyRef *SecretRef `yaml:"signingKeyRef,omitempty" json:"signingKeyRef,omitempty"`

	Algorithms []string `yaml:"algorithms,omitempty" json:"algorithms,omitempty"`
	ClockSkew  Duration `yaml:"clockSkew,omitempty" json:"clockSkew,omitempty"`
}

// SecretRef points to a single key of a Vault KV v2 secret.
type SecretRef struct {
	Mount string `yaml:"mount,omitempty" json:"mount,omitempty"`
	Path  string `yaml:"path" json:"path"`
	Key   string `yaml:"key" json:"key"`
}

// CircuitBreakerConfig holds gateway-wide breaker defaults.
type CircuitBreakerConfig struct {
	// ConsecutiveFailures trips the breaker once reached.
	ConsecutiveFailures int `yaml:"consecutiveFailures" json:"consecutiveFailures"`

	// FailureRatio trips the breaker when at least MinRequests were seen in
	// the current interval. Zero disables ratio tripping.
	FailureRatio float64 `yaml:"failureRatio,omitempty" json:"failureRatio,omitempty"`
	MinRequests  int     `yaml:"minRequests,omitempty" json:"minRequests,omitempty"`

	// Interval clears closed-state counts periodically. Zero never clears.
	Interval Duration `yaml:"interval,omitempty" json:"interval,omitempty"`

	// Timeout is the open-state cool-down before half-open.
	Timeout Duration `yaml:"timeout" json:"timeout"`

	HalfOpenRequests int `yaml:"halfOpenRequests,omitempty" json:"halfOpenRequests,omitempty"`
}

// DefaultCircuitBreakerConfig returns breaker defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		ConsecutiveFailures: 5,
		FailureRatio:        0.5,
		MinRequests:         10,
		Interval:            Duration(60 * time.Second),
		Timeout:             Duration(30 * time.Second),
		HalfOpenRequests:    1,
	}
}

// VaultConfig configures the Vault client used for secret references.
// Empty fields fall back to VAULT_ADDR and VAULT_TOKEN.
type VaultConfig struct {
	Address string   `yaml:"address,omitempty" json:"address,omitempty"`
	Token   string   `yaml:"token,omitempty" json:"-"`
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}
