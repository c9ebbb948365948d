package circuitbreaker

import (
	"context"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/apigw/internal/observability"
	"github.com/vyrodovalexey/apigw/internal/util"
)

var cbTracer = otel.Tracer("apigw/circuitbreaker")

// State is the breaker state. The numeric values match the exported
// circuit_breaker_state gauge: 0 closed, 1 half-open, 2 open.
type State = gobreaker.State

// Breaker states.
const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// Breaker is a two-step circuit breaker: Allow admits a call and returns
// a callback that records its single outcome. The state lock is held only
// inside Allow and the callback, never across the call itself.
type Breaker struct {
	name    string
	config  Config
	cb      *gobreaker.TwoStepCircuitBreaker
	logger  observability.Logger
	metrics *observability.Metrics
}

func newBreaker(name string, cfg Config, logger observability.Logger, metrics *observability.Metrics) *Breaker {
	cfg = cfg.normalize()
	b := &Breaker{
		name:    name,
		config:  cfg,
		logger:  logger,
		metrics: metrics,
	}

	b.cb = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:          name,
		MaxRequests:   cfg.HalfOpenRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   readyToTrip(cfg),
		OnStateChange: b.onStateChange,
	})
	metrics.SetCircuitBreakerState(name, int(StateClosed))
	return b
}

func readyToTrip(cfg Config) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
			return true
		}
		if cfg.FailureRatio <= 0 || counts.Requests < cfg.MinRequests {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
	}
}

func (b *Breaker) onStateChange(name string, from, to gobreaker.State) {
	b.logger.Info("circuit breaker state change",
		observability.String("name", name),
		observability.String("from", from.String()),
		observability.String("to", to.String()),
	)

	b.metrics.SetCircuitBreakerState(name, int(to))
	b.metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())

	_, span := cbTracer.Start(context.Background(),
		"circuitbreaker.state_change",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.AddEvent("state_change", trace.WithAttributes(
		attribute.String("circuitbreaker.name", name),
		attribute.String("circuitbreaker.from", from.String()),
		attribute.String("circuitbreaker.to", to.String()),
	))
	span.End()
}

// Allow admits one call. When the breaker is open, or half-open with all
// trial slots taken, it returns a *util.CircuitOpenError matching
// util.ErrCircuitOpen. Otherwise the caller invokes done at most once. A
// half-open trial must be resolved or the breaker admits no more trials;
// an unresolved closed-state call is dropped when the counts reset.
func (b *Breaker) Allow() (done func(success bool), err error) {
	done, err = b.cb.Allow()
	if err != nil {
		return nil, util.NewCircuitOpenError(b.name, b.cb.State().String())
	}
	return done, nil
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state.
func (b *Breaker) State() State {
	return b.cb.State()
}

// Counts returns the counters of the current generation.
func (b *Breaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}

// Config returns the effective settings.
func (b *Breaker) Config() Config {
	return b.config
}
