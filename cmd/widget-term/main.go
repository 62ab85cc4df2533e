package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-widget/internal/app"
	"github.com/kjstillabower/weather-lookup-widget/internal/observability"
	"github.com/kjstillabower/weather-lookup-widget/internal/term"
	"github.com/kjstillabower/weather-lookup-widget/internal/voice"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "widget-term: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, logger, err := app.Bootstrap("widget-term")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, app.TracingConfig(cfg))
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	weatherClient, err := app.NewClient(cfg, logger)
	if err != nil {
		return err
	}
	workflow := app.NewWorkflow(cfg, weatherClient, logger)

	recognizer := voice.NewCommandRecognizer(cfg.VoiceCommand, logger)
	if cfg.VoiceCommand != "" && !recognizer.Available() {
		logger.Warn("voice command not found on PATH; voice input disabled", zap.String("command", recognizer.Command))
	}

	session := term.NewSession(workflow, recognizer, app.VoiceOptions(cfg), os.Stdin, os.Stdout, logger)
	runErr := session.Run(ctx)

	if err := observability.FlushTelemetry(context.Background(), logger, shutdownTracing); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	return runErr
}
