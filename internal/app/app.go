// Package app builds the lookup stack shared by the HTTP and terminal widgets.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-widget/internal/circuitbreaker"
	"github.com/kjstillabower/weather-lookup-widget/internal/client"
	"github.com/kjstillabower/weather-lookup-widget/internal/config"
	"github.com/kjstillabower/weather-lookup-widget/internal/lookup"
	"github.com/kjstillabower/weather-lookup-widget/internal/observability"
	"github.com/kjstillabower/weather-lookup-widget/internal/voice"
)

const breakerComponent = "openweather"

// Bootstrap loads configuration and then builds the component logger, so a
// LOG_LEVEL set only in .env still applies.
func Bootstrap(component string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := observability.NewLogger(component)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}

// NewClient creates the OpenWeatherMap client, wrapped in a circuit breaker when enabled.
func NewClient(cfg *config.Config, logger *zap.Logger) (*client.OpenWeatherClient, error) {
	c, err := client.NewOpenWeatherClient(cfg.APIKey, client.Endpoints{
		GeocodeURL: cfg.GeocodeURL,
		WeatherURL: cfg.WeatherURL,
	}, cfg.APITimeout)
	if err != nil {
		return nil, fmt.Errorf("weather client: %w", err)
	}

	if cfg.APIKey == "" {
		logger.Warn("no OpenWeather API key configured; every lookup will report a configuration error",
			zap.Strings("sources", []string{config.EnvAPIKey, config.EnvLegacyAPIKey, "config/secrets.yaml"}))
	} else {
		logger.Info("OpenWeather API key loaded", zap.String("source", cfg.APIKeySource))
	}

	if cfg.CircuitBreaker.Enabled {
		cb := circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
			SuccessThreshold: cfg.CircuitBreaker.SuccessThreshold,
			Timeout:          cfg.CircuitBreaker.Timeout,
			Component:        breakerComponent,
			IsFailure:        client.BreakerFailure,
			OnStateChange: func(component string, from, to circuitbreaker.State) {
				observability.RecordCircuitBreakerTransition(component, from.String(), to.String(), int(to))
				logger.Warn("circuit breaker transition",
					zap.String("component", component),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
		c.SetCircuitBreaker(cb)
		observability.CircuitBreakerState.WithLabelValues(breakerComponent).Set(0)
		logger.Info("circuit breaker enabled",
			zap.Int("failure_threshold", cfg.CircuitBreaker.FailureThreshold),
			zap.Duration("timeout", cfg.CircuitBreaker.Timeout))
	}
	return c, nil
}

// NewWorkflow creates the lookup workflow over c.
func NewWorkflow(cfg *config.Config, c client.WeatherClient, logger *zap.Logger) *lookup.Workflow {
	return lookup.New(c, cfg.IconURLTemplate, logger)
}

// TracingConfig converts the tracing section for observability.InitTracing.
func TracingConfig(cfg *config.Config) observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: cfg.Tracing.ServiceName,
	}
}

// VoiceOptions converts the voice section for the capture adapter.
func VoiceOptions(cfg *config.Config) voice.Options {
	return voice.Options{
		Locale:          cfg.VoiceLocale,
		InterimResults:  cfg.VoiceInterimResults,
		MaxAlternatives: cfg.VoiceMaxAlternatives,
	}
}
