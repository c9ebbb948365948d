package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// MinHMACKeyLength is the shortest accepted HMAC signing key in bytes.
const MinHMACKeyLength = 32

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates gateway configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a gateway configuration.
func ValidateConfig(config *GatewayConfig) error {
	return NewValidator().Validate(config)
}

// Validate validates the configuration and returns all problems found.
func (v *Validator) Validate(config *GatewayConfig) error {
	v.errors = make(ValidationErrors, 0)

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateRoot(config)
	v.validateListeners(config.Spec.Listeners)
	v.validateServices(config.Spec.Services)
	v.validateRoutes(&config.Spec)
	v.validateRateLimit(&config.Spec.RateLimit)
	v.validateAuth(&config.Spec.Auth)
	v.validateRedis(&config.Spec.Redis)
	v.validateCircuitBreaker(&config.Spec.CircuitBreaker)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateRoot(config *GatewayConfig) {
	if config.APIVersion != APIVersionV1 {
		v.addError("apiVersion", fmt.Sprintf("apiVersion must be %q", APIVersionV1))
	}
	if config.Kind != KindGateway {
		v.addError("kind", fmt.Sprintf("kind must be %q", KindGateway))
	}
	if config.Metadata.Name == "" {
		v.addError("metadata.name", "name is required")
	}
	if config.Spec.MaxRequestBodyBytes < 0 {
		v.addError("spec.maxRequestBodyBytes", "must not be negative")
	}
}

func (v *Validator) validateListeners(listeners []Listener) {
	if len(listeners) == 0 {
		v.addError("spec.listeners", "at least one listener is required")
	}

	names := make(map[string]bool)
	ports := make(map[int]string)

	for i := range listeners {
		listener := &listeners[i]
		path := fmt.Sprintf("spec.listeners[%d]", i)

		switch {
		case listener.Name == "":
			v.addError(path+".name", "listener name is required")
		case names[listener.Name]:
			v.addError(path+".name", fmt.Sprintf("duplicate listener name: %s", listener.Name))
		default:
			names[listener.Name] = true
		}

		if listener.Port < 1 || listener.Port > 65535 {
			v.addError(path+".port", fmt.Sprintf("port %d out of range 1-65535", listener.Port))
		} else if existing, ok := ports[listener.Port]; ok {
			v.addError(path+".port", fmt.Sprintf("port %d already used by listener %s", listener.Port, existing))
		} else {
			ports[listener.Port] = listener.Name
		}

		if listener.Bind != "" && net.ParseIP(listener.Bind) == nil {
			v.addError(path+".bind", fmt.Sprintf("invalid bind address: %s", listener.Bind))
		}
	}
}

func (v *Validator) validateServices(services []Service) {
	names := make(map[string]bool)

	for i := range services {
		svc := &services[i]
		path := fmt.Sprintf("spec.services[%d]", i)

		switch {
		case svc.Name == "":
			v.addError(path+".name", "service name is required")
		case names[svc.Name]:
			v.addError(path+".name", fmt.Sprintf("duplicate service name: %s", svc.Name))
		default:
			names[svc.Name] = true
		}

		if len(svc.Instances) == 0 {
			v.addError(path+".instances", "at least one instance is required")
		}
		for j, inst := range svc.Instances {
			u, err := url.Parse(inst)
			if err != nil || u.Scheme == "" || u.Host == "" {
				v.addError(fmt.Sprintf("%s.instances[%d]", path, j), fmt.Sprintf("invalid instance URL: %s", inst))
			}
		}

		if hc := svc.HealthCheck; hc != nil && !strings.HasPrefix(hc.Path, "/") {
			v.addError(path+".healthCheck.path", "path must start with /")
		}
	}
}

func (v *Validator) validateRoutes(spec *GatewaySpec) {
	names := make(map[string]bool)

	for i := range spec.Routes {
		route := &spec.Routes[i]
		path := fmt.Sprintf("spec.routes[%d]", i)

		switch {
		case route.Name == "":
			v.addError(path+".name", "route name is required")
		case names[route.Name]:
			v.addError(path+".name", fmt.Sprintf("duplicate route name: %s", route.Name))
		default:
			names[route.Name] = true
		}

		if !strings.HasPrefix(route.Path, "/") {
			v.addError(path+".path", "path must start with /")
		}

		if route.Service == "" {
			v.addError(path+".service", "service is required")
		} else if _, ok := spec.FindService(route.Service); !ok {
			v.addError(path+".service", fmt.Sprintf("unknown service: %s", route.Service))
		}

		if cb := route.CircuitBreaker; cb != nil {
			if cb.Name == "" {
				v.addError(path+".circuitBreaker.name", "breaker name is required")
			}
			if cb.FallbackURI != "" && !strings.HasPrefix(strings.TrimPrefix(cb.FallbackURI, "forward:"), "/") {
				v.addError(path+".circuitBreaker.fallbackUri", "fallback must be a local path")
			}
		}

		if r := route.Retries; r != nil {
			if r.Attempts < 0 {
				v.addError(path+".retries.attempts", "attempts must be >= 0")
			}
			for j, status := range r.Statuses {
				if status < 100 || status > 599 {
					v.addError(fmt.Sprintf("%s.retries.statuses[%d]", path, j), fmt.Sprintf("invalid status code %d", status))
				}
			}
		}

		if rl := route.RateLimit; rl != nil && (rl.RequestsPerSecond <= 0 || rl.Burst <= 0) {
			v.addError(path+".rateLimit", "requestsPerSecond and burst must be positive")
		}
	}
}

func (v *Validator) validateRateLimit(rl *RateLimitConfig) {
	if !rl.Enabled {
		return
	}
	if rl.MaxRequests < 1 {
		v.addError("spec.rateLimit.maxRequests", "maxRequests must be >= 1")
	}
	if rl.Window.Duration() < time.Second {
		v.addError("spec.rateLimit.window", "window must be at least 1s")
	}
}

func (v *Validator) validateAuth(auth *AuthConfig) {
	if !auth.Enabled {
		return
	}

	for i, p := range auth.ExemptPaths {
		if !strings.HasPrefix(p, "/") {
			v.addError(fmt.Sprintf("spec.auth.exemptPaths[%d]", i), "path must start with /")
		}
	}

	if auth.SigningKeyRef != nil {
		if auth.SigningKeyRef.Path == "" || auth.SigningKeyRef.Key == "" {
			v.addError("spec.auth.signingKeyRef", "path and key are required")
		}
	} else if len(auth.SigningKey) < MinHMACKeyLength {
		v.addError("spec.auth.signingKey", fmt.Sprintf("signing key must be at least %d bytes", MinHMACKeyLength))
	}

	for i, alg := range auth.Algorithms {
		switch alg {
		case "HS256", "HS384", "HS512":
		default:
			v.addError(fmt.Sprintf("spec.auth.algorithms[%d]", i), fmt.Sprintf("unsupported algorithm %s", alg))
		}
	}
}

func (v *Validator) validateRedis(r *RedisConfig) {
	switch r.Client {
	case "", StoreClientRedis, StoreClientValkey:
		if r.Address == "" {
			v.addError("spec.redis.address", "address is required")
		}
	case StoreClientMemory:
	default:
		v.addError("spec.redis.client", fmt.Sprintf("unknown client %q", r.Client))
	}
}

func (v *Validator) validateCircuitBreaker(cb *CircuitBreakerConfig) {
	if cb.ConsecutiveFailures < 1 {
		v.addError("spec.circuitBreaker.consecutiveFailures", "must be >= 1")
	}
	if cb.FailureRatio < 0 || cb.FailureRatio > 1 {
		v.addError("spec.circuitBreaker.failureRatio", "must be between 0 and 1")
	}
	if cb.Timeout <= 0 {
		v.addError("spec.circuitBreaker.timeout", "cool-down must be positive")
	}
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}
