package backend

import (
	"context"
	"fmt"
	"sort"

	"github.com/vyrodovalexey/apigw/internal/config"
	"github.com/vyrodovalexey/apigw/internal/observability"
	"github.com/vyrodovalexey/apigw/internal/util"
)

// Resolver turns a logical service name into the base URL of a live
// instance.
type Resolver interface {
	Resolve(ctx context.Context, service string) (string, error)
}

type service struct {
	name     string
	balancer *RoundRobinBalancer
	checker  *HealthChecker
}

// Registry is a static discovery registry built from configuration.
// The service set is fixed after construction.
type Registry struct {
	services map[string]*service
	logger   observability.Logger
	metrics  *observability.Metrics
	hcOpts   []HealthCheckOption
}

// RegistryOption is a functional option for the registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger.
func WithRegistryLogger(logger observability.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithRegistryMetrics reports instance health to metrics.
func WithRegistryMetrics(metrics *observability.Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = metrics
	}
}

// WithHealthCheckOptions passes options to every health checker.
func WithHealthCheckOptions(opts ...HealthCheckOption) RegistryOption {
	return func(r *Registry) {
		r.hcOpts = append(r.hcOpts, opts...)
	}
}

// NewRegistry builds a registry for services.
func NewRegistry(services []config.Service, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		services: make(map[string]*service, len(services)),
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, svc := range services {
		if _, dup := r.services[svc.Name]; dup {
			return nil, fmt.Errorf("duplicate service %q", svc.Name)
		}

		hosts := make([]*Host, 0, len(svc.Instances))
		for _, inst := range svc.Instances {
			h, err := NewHost(inst)
			if err != nil {
				return nil, fmt.Errorf("service %s: %w", svc.Name, err)
			}
			hosts = append(hosts, h)
		}

		s := &service{name: svc.Name, balancer: NewRoundRobinBalancer(hosts)}
		if svc.HealthCheck != nil {
			hcOpts := append([]HealthCheckOption{
				WithHealthCheckLogger(r.logger),
				WithHealthStatusCallback(r.metrics.SetBackendHealth),
			}, r.hcOpts...)
			s.checker = NewHealthChecker(svc.Name, hosts, *svc.HealthCheck, hcOpts...)
		}
		r.services[svc.Name] = s
	}
	return r, nil
}

// Resolve returns the base URL of the next available instance of name.
func (r *Registry) Resolve(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s, ok := r.services[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", util.ErrServiceNotFound, name)
	}
	h := s.balancer.Next()
	if h == nil {
		return "", fmt.Errorf("%w: %s", util.ErrNoHealthyInstances, name)
	}
	return h.URL, nil
}

// Start begins active health checking for services that configure it.
func (r *Registry) Start(ctx context.Context) {
	for _, s := range r.services {
		if s.checker != nil {
			s.checker.Start(ctx)
		}
	}
}

// Stop ends all health checking.
func (r *Registry) Stop() {
	for _, s := range r.services {
		if s.checker != nil {
			s.checker.Stop()
		}
	}
}

// Services returns the sorted service names.
func (r *Registry) Services() []string {
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check reports an error when some service has no available instance.
// It is meant for the health endpoint.
func (r *Registry) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, name := range r.Services() {
		if r.services[name].balancer.Next() == nil {
			return fmt.Errorf("%w: %s", util.ErrNoHealthyInstances, name)
		}
	}
	return nil
}
