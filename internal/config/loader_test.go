package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
apiVersion: gateway.apigw.io/v1
kind: Gateway
metadata:
  name: test-gateway
spec:
  listeners:
    - name: http
      port: 8080
  services:
    - name: user-service
      instances: ["http://10.0.0.1:8081", "http://10.0.0.2:8081"]
  routes:
    - name: user-service
      path: /api/users/**
      service: user-service
      circuitBreaker:
        name: userServiceCircuitBreaker
        fallbackUri: /fallback/users
      retries:
        attempts: 3
        statuses: [503]
      headers:
        remove: [Cookie]
  rateLimit:
    enabled: true
    maxRequests: 3
    window: 60s
  auth:
    signingKey: ${TEST_JWT_SECRET:-0123456789abcdef0123456789abcdef}
`

func TestLoader_LoadFromReader(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFromReader(strings.NewReader(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "test-gateway", cfg.Metadata.Name)
	require.Len(t, cfg.Spec.Routes, 1)
	route := cfg.Spec.Routes[0]
	assert.Equal(t, "/api/users", route.PathPrefix())
	assert.Equal(t, "/fallback/users", route.CircuitBreaker.FallbackURI)
	assert.Equal(t, []int{503}, route.Retries.Statuses)
	assert.Equal(t, []string{"Cookie"}, route.Headers.Remove)

	assert.Equal(t, 3, cfg.Spec.RateLimit.MaxRequests)
	assert.Equal(t, 60*time.Second, cfg.Spec.RateLimit.Window.Duration())
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.Spec.Auth.SigningKey)

	// Sections omitted from the document keep their defaults.
	assert.Equal(t, DefaultRateLimitKeyPrefix, cfg.Spec.RateLimit.KeyPrefix)
	assert.Equal(t, "localhost:6379", cfg.Spec.Redis.Address)
	assert.Equal(t, DefaultSlowRequestThreshold, cfg.Spec.Observability.Logging.SlowRequestThreshold.Duration())
	assert.Contains(t, cfg.Spec.Auth.ExemptPaths, "/actuator/health")
	assert.Equal(t, DefaultGatewaySourceValue, cfg.Spec.DefaultHeaders[DefaultGatewaySourceHeader])

	require.NoError(t, ValidateConfig(cfg))
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "test-gateway", cfg.Metadata.Name)
}

func TestLoader_Load_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoader_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := LoadConfigFromReader(strings.NewReader("spec: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoader_InvalidDuration(t *testing.T) {
	t.Parallel()

	_, err := LoadConfigFromReader(strings.NewReader("spec:\n  rateLimit:\n    window: soon\n"))
	assert.Error(t, err)
}

func TestLoader_SubstituteEnvVars(t *testing.T) {
	t.Parallel()

	env := map[string]string{"HOST": "redis.internal", "EMPTY": ""}
	l := &Loader{lookupEnv: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "set", input: "${HOST}:6379", want: "redis.internal:6379"},
		{name: "default unused", input: "${HOST:-localhost}", want: "redis.internal"},
		{name: "default used", input: "${MISSING:-localhost}", want: "localhost"},
		{name: "missing no default", input: "[${MISSING}]", want: "[]"},
		{name: "set but empty", input: "[${EMPTY:-x}]", want: "[]"},
		{name: "escaped dollar", input: "pa$$word", want: "pa$word"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, l.substituteEnvVars(tt.input))
		})
	}
}

func TestLoader_ShippedConfig(t *testing.T) {
	t.Parallel()

	env := map[string]string{"JWT_SECRET": strings.Repeat("k", MinHMACKeyLength)}
	l := &Loader{lookupEnv: func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}}

	cfg, err := l.Load(filepath.Join("..", "..", "configs", "gateway.yaml"))
	require.NoError(t, err)
	require.NoError(t, ValidateConfig(cfg))

	assert.Equal(t, 8080, cfg.Spec.Listeners[0].Port)
	assert.Equal(t, "localhost:6379", cfg.Spec.Redis.Address)
	require.Len(t, cfg.Spec.Routes, 3)

	users := cfg.Spec.Routes[0]
	assert.Equal(t, "/api/users", users.PathPrefix())
	assert.Equal(t, []string{"Cookie"}, users.Headers.Remove)
	assert.Equal(t, 3, users.Retries.Attempts)

	orders := cfg.Spec.Routes[1]
	require.NotNil(t, orders.RateLimit)
	assert.Equal(t, 10, orders.RateLimit.RequestsPerSecond)
	assert.Equal(t, 20, orders.RateLimit.Burst)
	assert.Equal(t, "forward:/fallback/orders", orders.CircuitBreaker.FallbackURI)

	assert.Equal(t, 3*time.Second, cfg.Spec.Observability.Logging.SlowRequestThreshold.Duration())
}
