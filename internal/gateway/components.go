package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vyrodovalexey/apigw/internal/auth/jwt"
	"github.com/vyrodovalexey/apigw/internal/backend"
	"github.com/vyrodovalexey/apigw/internal/circuitbreaker"
	"github.com/vyrodovalexey/apigw/internal/config"
	"github.com/vyrodovalexey/apigw/internal/health"
	"github.com/vyrodovalexey/apigw/internal/middleware"
	"github.com/vyrodovalexey/apigw/internal/observability"
	"github.com/vyrodovalexey/apigw/internal/proxy"
	"github.com/vyrodovalexey/apigw/internal/ratelimit"
	"github.com/vyrodovalexey/apigw/internal/ratelimit/store"
	"github.com/vyrodovalexey/apigw/internal/router"
	"github.com/vyrodovalexey/apigw/internal/vault"
)

// secretTimeout bounds the signing key lookup during New.
const secretTimeout = 10 * time.Second

// SecretReader reads one value of a KV v2 secret.
type SecretReader interface {
	ReadKV2(ctx context.Context, mount, path, key string) (string, error)
}

// NewStore creates the counter store selected by cfg.Client.
func NewStore(cfg config.RedisConfig) (store.Store, error) {
	switch cfg.Client {
	case "", config.StoreClientRedis:
		s, err := store.NewRedisStore(store.RedisConfig{
			Address:      cfg.Address,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			MaxRetries:   cfg.MaxRetries,
			DialTimeout:  cfg.DialTimeout.Duration(),
			ReadTimeout:  cfg.ReadTimeout.Duration(),
			WriteTimeout: cfg.WriteTimeout.Duration(),
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreClientValkey:
		s, err := store.NewValkeyStore(store.ValkeyConfig{
			Addresses:    []string{cfg.Address},
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout.Duration(),
			WriteTimeout: cfg.WriteTimeout.Duration(),
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreClientMemory:
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store client %q", cfg.Client)
	}
}

func (g *Gateway) build() error {
	spec := &g.config.Spec

	limiter, err := g.buildLimiter()
	if err != nil {
		return err
	}

	validator, err := g.buildValidator()
	if err != nil {
		return err
	}

	regOpts := []backend.RegistryOption{
		backend.WithRegistryLogger(g.logger),
		backend.WithRegistryMetrics(g.metrics),
	}
	if g.transport != nil {
		regOpts = append(regOpts, backend.WithHealthCheckOptions(
			backend.WithHealthCheckTransport(g.transport),
		))
	}
	g.backends, err = backend.NewRegistry(spec.Services, regOpts...)
	if err != nil {
		return fmt.Errorf("failed to create backend registry: %w", err)
	}

	g.breakers = circuitbreaker.NewRegistry(
		circuitbreaker.FromConfig(spec.CircuitBreaker, nil),
		circuitbreaker.WithRegistryLogger(g.logger),
		circuitbreaker.WithRegistryMetrics(g.metrics),
	)

	rt, err := router.New(spec.Routes)
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}

	proxyOpts := []proxy.Option{
		proxy.WithProxyLogger(g.logger),
		proxy.WithProxyMetrics(g.metrics),
		proxy.WithDefaultHeaders(spec.DefaultHeaders),
		proxy.WithBreakerDefaults(spec.CircuitBreaker),
		proxy.WithDefaultTimeout(spec.BackendTimeout.OrDefault(config.DefaultBackendTimeout)),
	}
	if g.transport != nil {
		proxyOpts = append(proxyOpts, proxy.WithTransport(g.transport))
	}
	if spec.MaxRequestBodyBytes > 0 {
		proxyOpts = append(proxyOpts, proxy.WithMaxBodyBytes(spec.MaxRequestBodyBytes))
	}
	g.proxy, err = proxy.New(rt, g.backends, g.breakers, proxyOpts...)
	if err != nil {
		return fmt.Errorf("failed to create proxy: %w", err)
	}

	g.health = health.NewChecker(g.version, health.WithLogger(g.logger))
	g.health.RegisterCheck("discovery", g.backends.Check)
	g.health.RegisterDetails("circuitBreakers", g.breakerStates)
	if g.store != nil {
		g.health.RegisterOptionalCheck(g.storeBackend(), g.store.Ping)
	}

	g.pipeline = g.buildPipeline(limiter, validator)
	g.handler = g.pipeline.Handler(g.buildFinalHandler())
	return nil
}

func (g *Gateway) buildLimiter() (*ratelimit.FixedWindowLimiter, error) {
	rl := g.config.Spec.RateLimit
	if !rl.Enabled {
		return nil, nil
	}

	if g.store == nil {
		s, err := NewStore(g.config.Spec.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limit store: %w", err)
		}
		g.store = s
		g.ownsStore = true
	}

	limiter, err := ratelimit.NewFixedWindowLimiter(g.store, ratelimit.FixedWindowConfig{
		Max:    int64(rl.MaxRequests),
		Window: rl.Window.Duration(),
		Prefix: rl.KeyPrefix,
	}, ratelimit.WithFixedWindowLogger(g.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}
	return limiter, nil
}

func (g *Gateway) buildValidator() (*jwt.Validator, error) {
	auth := g.config.Spec.Auth
	if !auth.Enabled {
		return nil, nil
	}

	key, err := g.signingKey()
	if err != nil {
		return nil, err
	}

	validator, err := jwt.NewValidator(key, auth.Algorithms, jwt.WithClockSkew(auth.ClockSkew.Duration()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token validator: %w", err)
	}
	return validator, nil
}

// signingKey returns the literal key or reads it from Vault.
func (g *Gateway) signingKey() ([]byte, error) {
	auth := g.config.Spec.Auth
	ref := auth.SigningKeyRef
	if ref == nil {
		return []byte(auth.SigningKey), nil
	}

	reader := g.secrets
	if reader == nil {
		vc := vault.Config{}
		if v := g.config.Spec.Vault; v != nil {
			vc = vault.Config{Address: v.Address, Token: v.Token, Timeout: v.Timeout.Duration()}
		}
		client, err := vault.NewClient(vc, vault.WithLogger(g.logger))
		if err != nil {
			return nil, err
		}
		reader = client
	}

	ctx, cancel := context.WithTimeout(context.Background(), secretTimeout)
	defer cancel()

	key, err := reader.ReadKV2(ctx, ref.Mount, ref.Path, ref.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}
	if len(key) < config.MinHMACKeyLength {
		return nil, fmt.Errorf("signing key from %s must be at least %d bytes", ref.Path, config.MinHMACKeyLength)
	}

	g.logger.Info("signing key loaded from vault",
		observability.String("path", ref.Path),
	)
	return []byte(key), nil
}

func (g *Gateway) buildPipeline(limiter *ratelimit.FixedWindowLimiter, validator *jwt.Validator) *Pipeline {
	logging := g.config.Spec.Observability.Logging
	slow := logging.SlowRequestThreshold.OrDefault(config.DefaultSlowRequestThreshold)

	stages := []Stage{
		{Name: StageRecovery, Middleware: middleware.Recovery(g.logger)},
		{Name: StageTracing, Middleware: g.tracingMiddleware()},
		{Name: StageMetrics, Middleware: observability.MetricsMiddleware(g.metrics)},
		{Name: StageLogging, Middleware: middleware.Logging(g.logger, middleware.WithSlowThreshold(slow))},
		{Name: StageCorrelation, Middleware: middleware.Correlation()},
	}
	if limiter != nil {
		stages = append(stages, Stage{
			Name: StageRateLimit,
			Middleware: middleware.RateLimit(limiter,
				middleware.WithRateLimitLogger(g.logger),
				middleware.WithRateLimitMetrics(g.metrics),
			),
		})
	}
	if validator != nil {
		stages = append(stages, Stage{
			Name: StageAuth,
			Middleware: middleware.Auth(validator, g.config.Spec.Auth.ExemptPaths,
				middleware.WithAuthLogger(g.logger),
				middleware.WithAuthMetrics(g.metrics),
			),
		})
	}
	return NewPipeline(stages...)
}

func (g *Gateway) tracingMiddleware() Middleware {
	if g.tracer == nil {
		return nil
	}
	return observability.TracingMiddleware(g.tracer)
}

// buildFinalHandler serves the health endpoint in process and hands
// everything else to the proxy.
func (g *Gateway) buildFinalHandler() http.Handler {
	mux := chi.NewRouter()
	mux.Get(health.DefaultPath, g.health.HealthHandler())
	mux.NotFound(g.proxy.ServeHTTP)
	mux.MethodNotAllowed(g.proxy.ServeHTTP)
	return mux
}

func (g *Gateway) storeBackend() string {
	if g.config.Spec.Redis.Client == "" {
		return config.StoreClientRedis
	}
	return g.config.Spec.Redis.Client
}

// breakerStates reports every breaker's state by name.
func (g *Gateway) breakerStates() map[string]string {
	states := g.breakers.States()
	out := make(map[string]string, len(states))
	for name, state := range states {
		out[name] = state.String()
	}
	return out
}
