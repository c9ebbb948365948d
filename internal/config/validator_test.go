package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *GatewayConfig {
	cfg := DefaultConfig()
	cfg.Spec.Auth.SigningKey = "0123456789abcdef0123456789abcdef"
	cfg.Spec.Services = []Service{
		{Name: "user-service", Instances: []string{"http://127.0.0.1:8081"}},
	}
	cfg.Spec.Routes = []Route{
		{
			Name:    "user-service",
			Path:    "/api/users/**",
			Service: "user-service",
			CircuitBreaker: &RouteCircuitBreakerConfig{
				Name:        "userServiceCircuitBreaker",
				FallbackURI: "/fallback/users",
			},
			Retries: &RetryPolicy{Attempts: 3, Statuses: []int{503}},
		},
	}
	return cfg
}

func TestValidateConfig_Valid(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateConfig(validConfig()))
}

func TestValidateConfig_Nil(t *testing.T) {
	t.Parallel()

	err := ValidateConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is nil")
}

func TestValidateConfig_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*GatewayConfig)
		wantPath string
	}{
		{
			name:     "wrong api version",
			mutate:   func(c *GatewayConfig) { c.APIVersion = "v0" },
			wantPath: "apiVersion",
		},
		{
			name:     "no listeners",
			mutate:   func(c *GatewayConfig) { c.Spec.Listeners = nil },
			wantPath: "spec.listeners",
		},
		{
			name:     "port out of range",
			mutate:   func(c *GatewayConfig) { c.Spec.Listeners[0].Port = 70000 },
			wantPath: "spec.listeners[0].port",
		},
		{
			name: "duplicate port",
			mutate: func(c *GatewayConfig) {
				c.Spec.Listeners = append(c.Spec.Listeners, Listener{Name: "second", Port: DefaultHTTPPort})
			},
			wantPath: "spec.listeners[1].port",
		},
		{
			name:     "route path without slash",
			mutate:   func(c *GatewayConfig) { c.Spec.Routes[0].Path = "api/users" },
			wantPath: "spec.routes[0].path",
		},
		{
			name:     "unknown service",
			mutate:   func(c *GatewayConfig) { c.Spec.Routes[0].Service = "ghost" },
			wantPath: "spec.routes[0].service",
		},
		{
			name:     "bad retry status",
			mutate:   func(c *GatewayConfig) { c.Spec.Routes[0].Retries.Statuses = []int{42} },
			wantPath: "spec.routes[0].retries.statuses[0]",
		},
		{
			name:     "remote fallback",
			mutate:   func(c *GatewayConfig) { c.Spec.Routes[0].CircuitBreaker.FallbackURI = "http://x" },
			wantPath: "spec.routes[0].circuitBreaker.fallbackUri",
		},
		{
			name:     "short signing key",
			mutate:   func(c *GatewayConfig) { c.Spec.Auth.SigningKey = "short" },
			wantPath: "spec.auth.signingKey",
		},
		{
			name:     "unsupported algorithm",
			mutate:   func(c *GatewayConfig) { c.Spec.Auth.Algorithms = []string{"RS256"} },
			wantPath: "spec.auth.algorithms[0]",
		},
		{
			name:     "zero rate limit",
			mutate:   func(c *GatewayConfig) { c.Spec.RateLimit.MaxRequests = 0 },
			wantPath: "spec.rateLimit.maxRequests",
		},
		{
			name:     "sub-second window",
			mutate:   func(c *GatewayConfig) { c.Spec.RateLimit.Window = Duration(100 * time.Millisecond) },
			wantPath: "spec.rateLimit.window",
		},
		{
			name:     "unknown store client",
			mutate:   func(c *GatewayConfig) { c.Spec.Redis.Client = "memcached" },
			wantPath: "spec.redis.client",
		},
		{
			name:     "breaker threshold",
			mutate:   func(c *GatewayConfig) { c.Spec.CircuitBreaker.ConsecutiveFailures = 0 },
			wantPath: "spec.circuitBreaker.consecutiveFailures",
		},
		{
			name:     "bad instance url",
			mutate:   func(c *GatewayConfig) { c.Spec.Services[0].Instances = []string{"localhost"} },
			wantPath: "spec.services[0].instances[0]",
		},
		{
			name:     "negative body limit",
			mutate:   func(c *GatewayConfig) { c.Spec.MaxRequestBodyBytes = -1 },
			wantPath: "spec.maxRequestBodyBytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			require.Error(t, err)

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			paths := make([]string, 0, len(verrs))
			for _, e := range verrs {
				paths = append(paths, e.Path)
			}
			assert.Contains(t, paths, tt.wantPath)
		})
	}
}

func TestValidateConfig_DisabledSectionsSkipped(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Spec.Auth.Enabled = false
	cfg.Spec.Auth.SigningKey = ""
	cfg.Spec.RateLimit.Enabled = false
	cfg.Spec.RateLimit.MaxRequests = 0

	assert.NoError(t, ValidateConfig(cfg))
}

func TestValidateConfig_SigningKeyRef(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Spec.Auth.SigningKey = ""
	cfg.Spec.Auth.SigningKeyRef = &SecretRef{Path: "apigw/jwt", Key: "secret"}

	assert.NoError(t, ValidateConfig(cfg))
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
	assert.Equal(t, "a: b", ValidationErrors{{Path: "a", Message: "b"}}.Error())
	multi := ValidationErrors{{Path: "a", Message: "b"}, {Message: "c"}}.Error()
	assert.Contains(t, multi, "2 validation errors")
	assert.Contains(t, multi, "2. c")
}
