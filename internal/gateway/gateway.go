package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vyrodovalexey/apigw/internal/backend"
	"github.com/vyrodovalexey/apigw/internal/circuitbreaker"
	"github.com/vyrodovalexey/apigw/internal/config"
	"github.com/vyrodovalexey/apigw/internal/health"
	"github.com/vyrodovalexey/apigw/internal/observability"
	"github.com/vyrodovalexey/apigw/internal/proxy"
	"github.com/vyrodovalexey/apigw/internal/ratelimit/store"
	"github.com/vyrodovalexey/apigw/internal/util"
)

// State represents the gateway state.
type State int32

const (
	// StateStopped indicates the gateway is stopped.
	StateStopped State = iota
	// StateStarting indicates the gateway is starting.
	StateStarting
	// StateRunning indicates the gateway is running.
	StateRunning
	// StateStopping indicates the gateway is stopping.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

const metricsListenerName = "metrics"

// Gateway owns the pipeline, its collaborators and the listeners.
type Gateway struct {
	config  *config.GatewayConfig
	logger  observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
	version string

	store     store.Store
	ownsStore bool
	secrets   SecretReader
	transport http.RoundTripper

	backends *backend.Registry
	breakers *circuitbreaker.Registry
	proxy    *proxy.Proxy
	health   *health.Checker
	pipeline *Pipeline
	handler  http.Handler

	listeners []*Listener
	state     atomic.Int32
	startTime atomic.Int64

	shutdownTimeout time.Duration
}

// Option is a functional option for configuring the gateway.
type Option func(*Gateway)

// WithLogger sets the logger for the gateway.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = metrics
	}
}

// WithTracer enables the tracing stage.
func WithTracer(tracer *observability.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = tracer
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(version string) Option {
	return func(g *Gateway) {
		g.version = version
	}
}

// WithStore supplies the rate limit counter store. The gateway does not
// close a store it did not create.
func WithStore(s store.Store) Option {
	return func(g *Gateway) {
		g.store = s
	}
}

// WithSecretReader replaces the Vault client used for signingKeyRef.
func WithSecretReader(r SecretReader) Option {
	return func(g *Gateway) {
		g.secrets = r
	}
}

// WithTransport sets the transport used for backend calls and health probes.
func WithTransport(rt http.RoundTripper) Option {
	return func(g *Gateway) {
		g.transport = rt
	}
}

// WithShutdownTimeout overrides the configured shutdownTimeout.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.shutdownTimeout = timeout
	}
}

// New validates cfg and builds the pipeline. Nothing is started until
// Start is called.
func New(cfg *config.GatewayConfig, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, util.NewConfigErrorWithCause("gateway", "invalid configuration", err)
	}

	g := &Gateway{
		config:          cfg,
		logger:          observability.NopLogger(),
		shutdownTimeout: cfg.Spec.ShutdownTimeout.OrDefault(config.DefaultShutdownTimeout),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.metrics == nil {
		g.metrics = observability.NewMetrics("gateway")
	}

	if err := g.build(); err != nil {
		g.release()
		return nil, err
	}

	g.state.Store(int32(StateStopped))
	return g, nil
}

// Handler returns the composed pipeline.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Stages returns the pipeline stage names in execution order.
func (g *Gateway) Stages() []string {
	return g.pipeline.Stages()
}

// Start checks the counter store, starts health probing and opens the
// listeners.
func (g *Gateway) Start(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return fmt.Errorf("gateway is not in stopped state")
	}

	g.logger.Info("starting gateway",
		observability.String("name", g.config.Metadata.Name),
		observability.Any("stages", g.Stages()),
	)

	if g.store != nil {
		err := store.WaitReady(ctx, g.store, store.WaitConfig{
			Backend: g.storeBackend(),
			Logger:  g.logger,
		})
		if err != nil {
			g.logger.Warn("rate limit store unreachable, requests will not be limited",
				observability.String("backend", g.storeBackend()),
				observability.Error(err),
			)
		}
	}

	if err := g.createListeners(); err != nil {
		g.state.Store(int32(StateStopped))
		return err
	}

	g.backends.Start(ctx)

	for _, l := range g.listeners {
		if err := l.Start(ctx); err != nil {
			g.stopListeners(ctx)
			g.backends.Stop()
			g.state.Store(int32(StateStopped))
			return fmt.Errorf("failed to start listener %s: %w", l.Name(), err)
		}
	}

	g.startTime.Store(time.Now().UnixNano())
	g.state.Store(int32(StateRunning))

	g.logger.Info("gateway started",
		observability.String("name", g.config.Metadata.Name),
		observability.Int("listeners", len(g.listeners)),
		observability.Int("routes", len(g.config.Spec.Routes)),
	)
	return nil
}

// Stop drains the listeners and releases the collaborators.
func (g *Gateway) Stop(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return fmt.Errorf("gateway is not running")
	}

	g.logger.Info("stopping gateway",
		observability.String("name", g.config.Metadata.Name),
	)

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.shutdownTimeout)
		defer cancel()
	}

	err := g.stopListeners(ctx)
	g.backends.Stop()
	g.release()

	g.state.Store(int32(StateStopped))

	g.logger.Info("gateway stopped",
		observability.String("name", g.config.Metadata.Name),
	)
	return err
}

// release closes what New created.
func (g *Gateway) release() {
	if g.proxy != nil {
		g.proxy.Close()
	}
	if g.ownsStore && g.store != nil {
		if err := g.store.Close(); err != nil && !errors.Is(err, store.ErrClosed) {
			g.logger.Warn("failed to close rate limit store", observability.Error(err))
		}
	}
}

// State returns the current gateway state.
func (g *Gateway) State() State {
	return State(g.state.Load())
}

// IsRunning returns true if the gateway is running.
func (g *Gateway) IsRunning() bool {
	return g.State() == StateRunning
}

// Uptime returns the time since Start.
func (g *Gateway) Uptime() time.Duration {
	started := g.startTime.Load()
	if started == 0 {
		return 0
	}
	return time.Since(time.Unix(0, started))
}

// Config returns the configuration the gateway was built from.
func (g *Gateway) Config() *config.GatewayConfig {
	return g.config
}

// Listeners returns the listeners created by Start.
func (g *Gateway) Listeners() []*Listener {
	return g.listeners
}

func (g *Gateway) createListeners() error {
	spec := &g.config.Spec
	g.listeners = make([]*Listener, 0, len(spec.Listeners)+1)

	for _, lc := range spec.Listeners {
		l, err := NewListener(lc, g.handler, WithListenerLogger(g.logger))
		if err != nil {
			return fmt.Errorf("failed to create listener %s: %w", lc.Name, err)
		}
		g.listeners = append(g.listeners, l)
	}

	mc := spec.Observability.Metrics
	if mc.Enabled {
		path := mc.Path
		if path == "" {
			path = "/metrics"
		}
		mux := http.NewServeMux()
		mux.Handle(path, g.metrics.Handler())

		l, err := NewListener(config.Listener{
			Name: metricsListenerName,
			Port: mc.Port,
		}, mux, WithListenerLogger(g.logger))
		if err != nil {
			return fmt.Errorf("failed to create metrics listener: %w", err)
		}
		g.listeners = append(g.listeners, l)
	}
	return nil
}

func (g *Gateway) stopListeners(ctx context.Context) error {
	var eg errgroup.Group
	for _, l := range g.listeners {
		eg.Go(func() error {
			if err := l.Stop(ctx); err != nil {
				g.logger.Error("failed to stop listener",
					observability.String("name", l.Name()),
					observability.Error(err),
				)
				return err
			}
			return nil
		})
	}
	return eg.Wait()
}
