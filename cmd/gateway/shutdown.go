package main

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/apigw/internal/config"
	"github.com/vyrodovalexey/apigw/internal/observability"
)

// run starts the gateway and blocks until ctx is cancelled, then shuts
// down within the configured shutdownTimeout.
func (app *application) run(ctx context.Context) error {
	if err := app.gateway.Start(ctx); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	<-ctx.Done()
	app.logger.Info("received shutdown signal")

	return app.shutdown()
}

func (app *application) shutdown() error {
	timeout := app.config.Spec.ShutdownTimeout.OrDefault(config.DefaultShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var firstErr error
	if err := app.gateway.Stop(shutdownCtx); err != nil {
		app.logger.Error("failed to stop gateway gracefully", observability.Error(err))
		firstErr = err
	}

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("failed to shutdown tracer", observability.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	app.logger.Info("gateway stopped")
	return firstErr
}
