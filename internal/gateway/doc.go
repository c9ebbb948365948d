// Package gateway assembles the request pipeline and runs its listeners.
//
// A request passes through a fixed list of stages before it reaches the
// proxy:
//
//	Recovery -> Tracing -> Metrics -> Logging -> Correlation -> RateLimit -> Auth -> Router
//
// The list is built once in New and never changes afterwards. Route
// definitions, exempt paths and breaker settings are likewise read once
// from the configuration.
//
// # Usage
//
//	gw, err := gateway.New(cfg, gateway.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := gw.Start(ctx); err != nil {
//	    return err
//	}
//	defer gw.Stop(context.Background())
package gateway
