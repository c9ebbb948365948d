// Package observability provides logging, metrics, and tracing
// for the gateway.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.WithContext(r.Context()).Info("request processed",
//	    observability.String("method", "GET"),
//	    observability.Int("status", 200),
//	)
//
// WithContext attaches the correlation id established for the request,
// plus trace and span ids when tracing is enabled.
//
// # Metrics
//
// Metrics owns a private Prometheus registry served from the metrics
// listener:
//
//	metrics := observability.NewMetrics("gateway")
//	mux.Handle("/metrics", metrics.Handler())
//
// # Tracing
//
// NewTracer installs an OpenTelemetry tracer provider with an OTLP gRPC
// exporter. NewTransport instruments outbound backend calls.
package observability
