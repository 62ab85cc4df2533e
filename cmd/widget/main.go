package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-widget/internal/app"
	httphandler "github.com/kjstillabower/weather-lookup-widget/internal/http"
	"github.com/kjstillabower/weather-lookup-widget/internal/lifecycle"
	"github.com/kjstillabower/weather-lookup-widget/internal/observability"
)

func main() {
	cfg, logger, err := app.Bootstrap("widget")
	if err != nil {
		fmt.Fprintf(os.Stderr, "widget: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitTracing(context.Background(), app.TracingConfig(cfg))
	if err != nil {
		logger.Fatal("tracing", zap.Error(err))
	}
	if cfg.Tracing.Enabled {
		logger.Info("tracing enabled", zap.String("endpoint", cfg.Tracing.Endpoint), zap.Float64("sample_ratio", cfg.Tracing.SampleRatio))
	}

	weatherClient, err := app.NewClient(cfg, logger)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}
	workflow := app.NewWorkflow(cfg, weatherClient, logger)

	handler := httphandler.NewHandler(workflow, weatherClient, &httphandler.HealthConfig{
		DegradedWindow:   cfg.DegradedWindow,
		DegradedErrorPct: cfg.DegradedErrorPct,
	}, logger)
	// Two sequential provider calls, each bounded by the client timeout.
	requestTimeout := 2*cfg.APITimeout + time.Second
	router := httphandler.NewRouter(handler, logger, requestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()
	lifecycle.MarkReady()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.InFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.InFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(shutdownCtx, logger, shutdownTracing); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
