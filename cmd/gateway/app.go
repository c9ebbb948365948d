package main

import (
	"fmt"

	"github.com/vyrodovalexey/apigw/internal/config"
	"github.com/vyrodovalexey/apigw/internal/gateway"
	"github.com/vyrodovalexey/apigw/internal/observability"
)

// application holds all application components.
type application struct {
	gateway *gateway.Gateway
	metrics *observability.Metrics
	tracer  *observability.Tracer
	config  *config.GatewayConfig
	logger  observability.Logger
}

// newApplication wires the gateway and its observability.
func newApplication(cfg *config.GatewayConfig, logger observability.Logger) (*application, error) {
	metrics := observability.NewMetrics("gateway")
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	tracer, err := initTracer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	observability.SetOTelLogger(logger)

	opts := []gateway.Option{
		gateway.WithLogger(logger),
		gateway.WithMetrics(metrics),
		gateway.WithVersion(version),
		gateway.WithShutdownTimeout(cfg.Spec.ShutdownTimeout.OrDefault(config.DefaultShutdownTimeout)),
	}
	if cfg.Spec.Observability.Tracing.Enabled {
		opts = append(opts, gateway.WithTracer(tracer))
	}

	gw, err := gateway.New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	return &application{
		gateway: gw,
		metrics: metrics,
		tracer:  tracer,
		config:  cfg,
		logger:  logger,
	}, nil
}

// initTracer creates the tracer. A disabled tracer is a no-op.
func initTracer(cfg *config.GatewayConfig) (*observability.Tracer, error) {
	tc := cfg.Spec.Observability.Tracing

	tracerCfg := observability.TracerConfig{
		ServiceName:  "apigw",
		Enabled:      tc.Enabled,
		SamplingRate: tc.SamplingRate,
		OTLPEndpoint: tc.OTLPEndpoint,
	}
	if tc.ServiceName != "" {
		tracerCfg.ServiceName = tc.ServiceName
	}

	return observability.NewTracer(tracerCfg)
}
