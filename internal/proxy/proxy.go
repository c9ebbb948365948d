package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vyrodovalexey/apigw/internal/backend"
	"github.com/vyrodovalexey/apigw/internal/circuitbreaker"
	"github.com/vyrodovalexey/apigw/internal/config"
	"github.com/vyrodovalexey/apigw/internal/observability"
	"github.com/vyrodovalexey/apigw/internal/ratelimit"
	"github.com/vyrodovalexey/apigw/internal/retry"
	"github.com/vyrodovalexey/apigw/internal/router"
	"github.com/vyrodovalexey/apigw/internal/util"
)

const (
	// DefaultMaxBodyBytes bounds the buffered request body.
	DefaultMaxBodyBytes int64 = 10 << 20

	// statusClientClosedRequest is written when the client goes away
	// before the backend answers.
	statusClientClosedRequest = 499
)

// Fallback reasons reported to metrics.
const (
	reasonCircuitOpen      = "circuit_open"
	reasonRetriesExhausted = "retries_exhausted"
	reasonBackendError     = "backend_error"
)

// hopHeaders are headers that should not be forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// routeState is the resilience setup of one route, built at startup.
type routeState struct {
	route    *router.Route
	breaker  *circuitbreaker.Breaker
	retry    *retry.Policy
	limiter  *ratelimit.RouteLimiter
	timeout  time.Duration
	fallback string
}

// Proxy is the terminal stage of the pipeline.
type Proxy struct {
	router   *router.Router
	resolver backend.Resolver
	breakers *circuitbreaker.Registry
	routes   map[string]*routeState

	transport       http.RoundTripper
	fallback        http.Handler
	defaultHeaders  map[string]string
	breakerDefaults config.CircuitBreakerConfig
	defaultTimeout  time.Duration
	maxBodyBytes    int64
	logger          observability.Logger
	metrics         *observability.Metrics
}

// Option is a functional option for configuring the proxy.
type Option func(*Proxy)

// WithProxyLogger sets the logger for the proxy.
func WithProxyLogger(logger observability.Logger) Option {
	return func(p *Proxy) {
		p.logger = logger
	}
}

// WithProxyMetrics sets the metrics for the proxy.
func WithProxyMetrics(metrics *observability.Metrics) Option {
	return func(p *Proxy) {
		p.metrics = metrics
	}
}

// WithTransport sets the transport used for backend calls.
func WithTransport(transport http.RoundTripper) Option {
	return func(p *Proxy) {
		p.transport = transport
	}
}

// WithDefaultHeaders sets headers added to every proxied request.
func WithDefaultHeaders(headers map[string]string) Option {
	return func(p *Proxy) {
		p.defaultHeaders = headers
	}
}

// WithBreakerDefaults sets the breaker settings routes inherit.
func WithBreakerDefaults(cfg config.CircuitBreakerConfig) Option {
	return func(p *Proxy) {
		p.breakerDefaults = cfg
	}
}

// WithDefaultTimeout sets the per-attempt timeout for routes without one.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(p *Proxy) {
		p.defaultTimeout = timeout
	}
}

// WithFallbackHandler replaces the in-process fallback targets.
func WithFallbackHandler(handler http.Handler) Option {
	return func(p *Proxy) {
		p.fallback = handler
	}
}

// WithMaxBodyBytes sets the request body buffer limit.
func WithMaxBodyBytes(n int64) Option {
	return func(p *Proxy) {
		p.maxBodyBytes = n
	}
}

// New creates a proxy for every route known to r. Breakers come from
// breakers, so routes naming the same breaker share its state.
func New(r *router.Router, resolver backend.Resolver, breakers *circuitbreaker.Registry, opts ...Option) (*Proxy, error) {
	if r == nil || resolver == nil || breakers == nil {
		return nil, errors.New("proxy requires a router, a resolver and a breaker registry")
	}

	p := &Proxy{
		router:          r,
		resolver:        resolver,
		breakers:        breakers,
		routes:          make(map[string]*routeState),
		breakerDefaults: config.DefaultCircuitBreakerConfig(),
		defaultTimeout:  config.DefaultBackendTimeout,
		maxBodyBytes:    DefaultMaxBodyBytes,
		logger:          observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.transport == nil {
		p.transport = observability.NewTransport(http.DefaultTransport)
	}
	if p.fallback == nil {
		p.fallback = NewFallbackHandler()
	}

	for _, route := range r.Routes() {
		p.routes[route.Name] = p.buildRouteState(route)
	}
	return p, nil
}

func (p *Proxy) buildRouteState(route *router.Route) *routeState {
	cbCfg := route.Config.CircuitBreaker
	name := route.Service
	fallback := ""
	if cbCfg != nil {
		if cbCfg.Name != "" {
			name = cbCfg.Name
		}
		fallback = strings.TrimPrefix(cbCfg.FallbackURI, "forward:")
	}
	settings := circuitbreaker.FromConfig(p.breakerDefaults, cbCfg)

	rs := &routeState{
		route:    route,
		breaker:  p.breakers.Get(name, &settings),
		retry:    retry.FromConfig(route.Config.Retries),
		timeout:  route.Config.Timeout.OrDefault(p.defaultTimeout),
		fallback: fallback,
	}

	if rl := route.Config.RateLimit; rl != nil && rl.RequestsPerSecond > 0 {
		rs.limiter = ratelimit.NewRouteLimiter(float64(rl.RequestsPerSecond), rl.Burst,
			ratelimit.WithRouteLimiterLogger(p.logger))
		rs.limiter.StartAutoCleanup()
	}
	return rs
}

// Close stops the route limiters' cleanup loops.
func (p *Proxy) Close() {
	for _, rs := range p.routes {
		if rs.limiter != nil {
			rs.limiter.Stop()
		}
	}
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := p.logger.WithContext(ctx)

	route, err := p.router.MatchRequest(r)
	if err != nil {
		logger.Debug("route not found", observability.Error(err))
		if errors.Is(err, util.ErrRouteNotFound) {
			util.WriteError(w, http.StatusNotFound, "No route matches the request path")
			return
		}
		util.WriteError(w, http.StatusInternalServerError, "Route lookup failed")
		return
	}
	util.SetRoute(ctx, route.Name)
	rs := p.routes[route.Name]

	if rs.limiter != nil && !p.allowRoute(w, r, rs) {
		return
	}

	body, err := bufferBody(w, r, p.maxBodyBytes)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			util.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		util.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	done, err := rs.breaker.Allow()
	if err != nil {
		logger.Debug("circuit breaker rejected request",
			observability.String("route", route.Name),
			observability.String("breaker", rs.breaker.Name()),
		)
		p.serveFallback(w, r, rs, reasonCircuitOpen)
		return
	}

	resp, err := rs.retry.Do(ctx, r.Method,
		func(ctx context.Context, _ int) (*http.Response, error) {
			return p.attempt(ctx, r, rs, body)
		},
		func(attempt, status int, err error, wait time.Duration) {
			p.metrics.RecordRetry(route.Name)
			fields := []observability.Field{
				observability.String("route", route.Name),
				observability.Int("attempt", attempt),
				observability.Duration("backoff", wait),
			}
			if status != 0 {
				fields = append(fields, observability.Int("status", status))
			}
			if err != nil {
				fields = append(fields, observability.Error(err))
			}
			logger.Debug("retrying backend call", fields...)
		},
	)

	switch {
	case err == nil:
		done(resp.StatusCode < http.StatusInternalServerError)
		p.copyResponse(w, resp, logger)

	case ctx.Err() != nil:
		// The client went away, which says nothing about the backend. A
		// half-open trial still has to resolve, and it did not succeed.
		if rs.breaker.State() == circuitbreaker.StateHalfOpen {
			done(false)
		}
		closeBody(resp)
		logger.Debug("client cancelled request",
			observability.String("route", route.Name),
			observability.Error(ctx.Err()),
		)
		w.WriteHeader(statusClientClosedRequest)

	case resp != nil:
		done(false)
		if rs.fallback == "" {
			p.copyResponse(w, resp, logger)
			return
		}
		closeBody(resp)
		p.serveFallback(w, r, rs, reasonRetriesExhausted)

	default:
		done(false)
		err = util.NewBackendErrorWithCause(route.Service, "call failed", err)
		logger.Warn("backend call failed",
			observability.String("route", route.Name),
			observability.Error(err),
		)
		if rs.fallback != "" {
			p.serveFallback(w, r, rs, reasonBackendError)
			return
		}
		writeBackendError(w, err)
	}
}

func (p *Proxy) allowRoute(w http.ResponseWriter, r *http.Request, rs *routeState) bool {
	client := util.ClientIPFromContext(r.Context())
	if client == "" {
		client = ratelimit.ClientIdentity(r)
	}

	limit := rs.limiter.Limit()
	if rs.limiter.Allow(client) {
		p.metrics.RecordRateLimit(rs.route.Name, observability.RateLimitAllowed)
		return true
	}

	p.metrics.RecordRateLimit(rs.route.Name, observability.RateLimitRejected)
	p.logger.WithContext(r.Context()).Warn("route rate limit exceeded",
		observability.String("route", rs.route.Name),
		observability.String("client", client),
	)
	ratelimit.SetHeaders(w.Header(), limit, 0, 1)
	ratelimit.WriteRejection(w, limit, 1)
	return false
}

// attempt performs one backend call with its own timeout. The timeout
// stays armed until the response body is closed.
func (p *Proxy) attempt(ctx context.Context, r *http.Request, rs *routeState, body []byte) (*http.Response, error) {
	target, err := p.resolver.Resolve(ctx, rs.route.Service)
	if err != nil {
		return nil, newProxyError("resolve", rs.route.Name, "", err)
	}

	actx, cancel := context.WithTimeout(ctx, rs.timeout)
	out, err := p.outboundRequest(actx, r, rs, target, body)
	if err != nil {
		cancel()
		return nil, newProxyError("build", rs.route.Name, target, err)
	}

	resp, err := p.transport.RoundTrip(out)
	if err != nil {
		cancel()
		if ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %w", ErrUpstreamTimeout, rs.timeout, err)
		}
		return nil, newProxyError("roundtrip", rs.route.Name, target, err)
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (p *Proxy) outboundRequest(
	ctx context.Context, r *http.Request, rs *routeState, target string, body []byte,
) (*http.Request, error) {
	base, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL: %w", err)
	}
	u := *base
	u.Path = strings.TrimSuffix(base.Path, "/") + r.URL.Path
	u.RawPath = ""
	u.RawQuery = r.URL.RawQuery

	var reader io.Reader = http.NoBody
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	out, err := http.NewRequestWithContext(ctx, r.Method, u.String(), reader)
	if err != nil {
		return nil, err
	}

	out.Header = r.Header.Clone()
	removeHopHeaders(out.Header)

	if clientIP, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if prior := r.Header.Get("X-Forwarded-For"); prior != "" {
			clientIP = prior + ", " + clientIP
		}
		out.Header.Set("X-Forwarded-For", clientIP)
	}
	if r.TLS != nil {
		out.Header.Set("X-Forwarded-Proto", "https")
	} else {
		out.Header.Set("X-Forwarded-Proto", "http")
	}
	out.Header.Set("X-Forwarded-Host", r.Host)

	for k, v := range p.defaultHeaders {
		out.Header.Set(k, v)
	}
	applyHeaderManipulation(out.Header, rs.route.Config.Headers)

	out.Host = u.Host
	return out, nil
}

func applyHeaderManipulation(h http.Header, m *config.HeaderManipulation) {
	if m == nil {
		return
	}
	for k, v := range m.Add {
		h.Set(k, v)
	}
	for _, k := range m.Remove {
		h.Del(k)
	}
}

// copyResponse writes resp to w. Headers the gateway already set, such as
// the correlation id and rate limit headers, win over the backend's.
func (p *Proxy) copyResponse(w http.ResponseWriter, resp *http.Response, logger observability.Logger) {
	defer closeBody(resp)

	removeHopHeaders(resp.Header)
	dst := w.Header()
	for k, vv := range resp.Header {
		if _, exists := dst[k]; exists {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.Debug("failed to copy response body", observability.Error(err))
	}
}

func (p *Proxy) serveFallback(w http.ResponseWriter, r *http.Request, rs *routeState, reason string) {
	p.metrics.RecordFallback(rs.route.Name, reason)
	if rs.fallback == "" {
		util.WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		return
	}

	p.logger.WithContext(r.Context()).Info("serving fallback response",
		observability.String("route", rs.route.Name),
		observability.String("fallback", rs.fallback),
		observability.String("reason", reason),
	)

	// Drop any routing state an outer chi mux left in the context.
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, nil)
	fr := r.Clone(ctx)
	fr.URL.Path = rs.fallback
	fr.URL.RawPath = ""
	fr.Body = http.NoBody
	fr.ContentLength = 0
	p.fallback.ServeHTTP(w, fr)
}

func writeBackendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, util.ErrNoHealthyInstances), errors.Is(err, util.ErrServiceNotFound):
		util.WriteError(w, http.StatusServiceUnavailable, "Backend service unavailable")
	case errors.Is(err, ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		util.WriteError(w, http.StatusGatewayTimeout, "Backend request timed out")
	default:
		util.WriteError(w, http.StatusBadGateway, "Backend request failed")
	}
}

func bufferBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	defer r.Body.Close()
	return io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
}

func removeHopHeaders(h http.Header) {
	for _, k := range hopHeaders {
		h.Del(k)
	}
}

func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}

// cancelOnClose releases an attempt's timeout once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
