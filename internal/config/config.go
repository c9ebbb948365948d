// Package config provides configuration management for the gateway.
// Configuration is read from a YAML document with environment variable
// substitution and checked by ValidateConfig before use. Nothing in it
// changes after startup.
package config

import "time"

// API version and kind accepted in configuration documents.
const (
	APIVersionV1 = "gateway.apigw.io/v1"
	KindGateway  = "Gateway"
)

// Default values.
const (
	DefaultHTTPPort             = 8080
	DefaultMetricsPort          = 9090
	DefaultRateLimitMax         = 100
	DefaultRateLimitWindow      = 60 * time.Second
	DefaultRateLimitKeyPrefix   = "rate_limit:"
	DefaultSlowRequestThreshold = 3000 * time.Millisecond
	DefaultBackendTimeout       = 10 * time.Second
	DefaultShutdownTimeout      = 30 * time.Second
	DefaultGatewaySourceHeader  = "X-Gateway-Source"
	DefaultGatewaySourceValue   = "apigw"
)

// GatewayConfig is the root configuration document.
type GatewayConfig struct {
	APIVersion string      `yaml:"apiVersion" json:"apiVersion"`
	Kind       string      `yaml:"kind" json:"kind"`
	Metadata   Metadata    `yaml:"metadata" json:"metadata"`
	Spec       GatewaySpec `yaml:"spec" json:"spec"`
}

// Metadata identifies a gateway instance.
type Metadata struct {
	Name   string            `yaml:"name" json:"name"`
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// GatewaySpec is the body of the configuration.
type GatewaySpec struct {
	Listeners      []Listener           `yaml:"listeners" json:"listeners"`
	Routes         []Route              `yaml:"routes,omitempty" json:"routes,omitempty"`
	Services       []Service            `yaml:"services,omitempty" json:"services,omitempty"`
	DefaultHeaders map[string]string    `yaml:"defaultHeaders,omitempty" json:"defaultHeaders,omitempty"`
	RateLimit      RateLimitConfig      `yaml:"rateLimit" json:"rateLimit"`
	Auth           AuthConfig           `yaml:"auth" json:"auth"`
	Redis          RedisConfig          `yaml:"redis" json:"redis"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker" json:"circuitBreaker"`
	Vault          *VaultConfig         `yaml:"vault,omitempty" json:"vault,omitempty"`
	Observability  ObservabilityConfig  `yaml:"observability" json:"observability"`

	// BackendTimeout bounds every outbound backend attempt unless a route overrides it.
	BackendTimeout Duration `yaml:"backendTimeout,omitempty" json:"backendTimeout,omitempty"`

	// MaxRequestBodyBytes caps the buffered request body. Zero keeps the proxy default.
	MaxRequestBodyBytes int64 `yaml:"maxRequestBodyBytes,omitempty" json:"maxRequestBodyBytes,omitempty"`

	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
}

// DefaultConfig returns a configuration populated with defaults. Loaded
// documents are decoded on top of it.
func DefaultConfig() *GatewayConfig {
	return &GatewayConfig{
		APIVersion: APIVersionV1,
		Kind:       KindGateway,
		Metadata:   Metadata{Name: "apigw"},
		Spec: GatewaySpec{
			Listeners: []Listener{
				{Name: "http", Port: DefaultHTTPPort, Bind: "0.0.0.0"},
			},
			DefaultHeaders: map[string]string{
				DefaultGatewaySourceHeader: DefaultGatewaySourceValue,
			},
			RateLimit: RateLimitConfig{
				Enabled:     true,
				MaxRequests: DefaultRateLimitMax,
				Window:      Duration(DefaultRateLimitWindow),
				KeyPrefix:   DefaultRateLimitKeyPrefix,
			},
			Auth: AuthConfig{
				Enabled: true,
				ExemptPaths: []string{
					"/api/users/register",
					"/api/users/login",
					"/api/products",
					"/actuator/health",
				},
				Algorithms: []string{"HS256"},
			},
			Redis:          DefaultRedisConfig(),
			CircuitBreaker: DefaultCircuitBreakerConfig(),
			Observability: ObservabilityConfig{
				Metrics: MetricsConfig{Enabled: true, Path: "/metrics", Port: DefaultMetricsPort},
				Tracing: TracingConfig{ServiceName: "apigw", SamplingRate: 1.0},
				Logging: LoggingConfig{
					Level:                "info",
					Format:               "json",
					Output:               "stdout",
					SlowRequestThreshold: Duration(DefaultSlowRequestThreshold),
				},
			},
			BackendTimeout:  Duration(DefaultBackendTimeout),
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
		},
	}
}

// FindService returns the service with the given name.
func (s *GatewaySpec) FindService(name string) (*Service, bool) {
	for i := range s.Services {
		if s.Services[i].Name == name {
			return &s.Services[i], true
		}
	}
	return nil, false
}
