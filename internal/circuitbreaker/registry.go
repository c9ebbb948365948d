package circuitbreaker

import (
	"sync"

	"github.com/vyrodovalexey/apigw/internal/observability"
)

// Registry owns the named breakers of a gateway. Routes naming the same
// breaker share its state.
type Registry struct {
	breakers sync.Map
	defaults Config
	logger   observability.Logger
	metrics  *observability.Metrics
}

// RegistryOption is a functional option for the registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used by the registry and its breakers.
func WithRegistryLogger(logger observability.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithRegistryMetrics sets the metrics sink for breaker state.
func WithRegistryMetrics(metrics *observability.Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = metrics
	}
}

// NewRegistry creates a registry. defaults apply to breakers requested
// without their own settings.
func NewRegistry(defaults Config, opts ...RegistryOption) *Registry {
	r := &Registry{
		defaults: defaults.normalize(),
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the breaker called name, creating it with cfg on first use.
// A nil cfg uses the registry defaults. Settings passed on later calls
// are ignored.
func (r *Registry) Get(name string, cfg *Config) *Breaker {
	if v, ok := r.breakers.Load(name); ok {
		return v.(*Breaker)
	}

	settings := r.defaults
	if cfg != nil {
		settings = *cfg
	}
	b := newBreaker(name, settings, r.logger, r.metrics)

	actual, loaded := r.breakers.LoadOrStore(name, b)
	if loaded {
		return actual.(*Breaker)
	}

	r.logger.Debug("created circuit breaker",
		observability.String("name", name),
	)
	return b
}

// Lookup returns an existing breaker.
func (r *Registry) Lookup(name string) (*Breaker, bool) {
	v, ok := r.breakers.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*Breaker), true
}

// States returns the current state of every breaker by name.
func (r *Registry) States() map[string]State {
	states := make(map[string]State)
	r.breakers.Range(func(key, value any) bool {
		states[key.(string)] = value.(*Breaker).State()
		return true
	})
	return states
}
