package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables holding the OpenWeatherMap API key, in lookup order.
const (
	EnvAPIKey       = "OPENWEATHER_API_KEY"
	EnvLegacyAPIKey = "VITE_OPENWEATHER_API_KEY"
)

// Where the API key came from. KeySourceNone means the widget runs unconfigured.
const (
	KeySourceNone    = ""
	KeySourceEnv     = "env"
	KeySourceLegacy  = "legacy_env"
	KeySourceSecrets = "secrets_file"
)

// Config holds widget configuration loaded from YAML, .env and the environment.
type Config struct {
	Env string

	ServerPort string

	// APIKey may be empty. A missing key is reported by every lookup, not by Load.
	APIKey          string
	APIKeySource    string
	GeocodeURL      string
	WeatherURL      string
	IconURLTemplate string
	APITimeout      time.Duration

	CircuitBreaker CircuitBreakerConfig

	VoiceCommand         string
	VoiceLocale          string
	VoiceInterimResults  bool
	VoiceMaxAlternatives int

	Tracing TracingConfig

	DegradedWindow   time.Duration
	DegradedErrorPct int

	ShutdownTimeout       time.Duration
	InFlightTimeout       time.Duration
	InFlightCheckInterval time.Duration
}

// CircuitBreakerConfig configures the optional breaker around provider calls.
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	SampleRatio float64
	ServiceName string
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	OpenWeather struct {
		GeocodeURL      string `yaml:"geocode_url"`
		WeatherURL      string `yaml:"weather_url"`
		IconURLTemplate string `yaml:"icon_url_template"`
		Timeout         string `yaml:"timeout"`
	} `yaml:"openweather"`

	CircuitBreaker struct {
		Enabled          bool   `yaml:"enabled"`
		FailureThreshold int    `yaml:"failure_threshold"`
		SuccessThreshold int    `yaml:"success_threshold"`
		Timeout          string `yaml:"timeout"`
	} `yaml:"circuit_breaker"`

	Voice struct {
		Command         string `yaml:"command"`
		Locale          string `yaml:"locale"`
		InterimResults  bool   `yaml:"interim_results"`
		MaxAlternatives int    `yaml:"max_alternatives"`
	} `yaml:"voice"`

	Tracing struct {
		Enabled     bool     `yaml:"enabled"`
		Endpoint    string   `yaml:"endpoint"`
		Insecure    bool     `yaml:"insecure"`
		SampleRatio *float64 `yaml:"sample_ratio"`
		ServiceName string   `yaml:"service_name"`
	} `yaml:"tracing"`

	Health struct {
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"health"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	OpenWeatherAPIKey string `yaml:"openweather_api_key"`
}

// Load reads config/{ENV_NAME}.yaml (default dev; the file is optional), loads
// .env into the environment without overriding existing variables, and
// resolves the API key from OPENWEATHER_API_KEY, VITE_OPENWEATHER_API_KEY or
// config/secrets.yaml, in that order. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}

	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}

	var fc fileConfig
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{Env: env}

	cfg.ServerPort = strings.TrimSpace(os.Getenv("PORT"))
	if cfg.ServerPort == "" {
		cfg.ServerPort = strings.TrimSpace(fc.Server.Port)
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.APIKey, cfg.APIKeySource, err = resolveAPIKey(cwd)
	if err != nil {
		return nil, err
	}

	cfg.GeocodeURL = strings.TrimSpace(fc.OpenWeather.GeocodeURL)
	if cfg.GeocodeURL == "" {
		cfg.GeocodeURL = "https://api.openweathermap.org/geo/1.0/direct"
	}
	cfg.WeatherURL = strings.TrimSpace(fc.OpenWeather.WeatherURL)
	if cfg.WeatherURL == "" {
		cfg.WeatherURL = "https://api.openweathermap.org/data/2.5/weather"
	}
	cfg.IconURLTemplate = strings.TrimSpace(fc.OpenWeather.IconURLTemplate)
	if cfg.IconURLTemplate == "" {
		cfg.IconURLTemplate = "https://openweathermap.org/img/wn/{icon}@2x.png"
	}
	cfg.APITimeout = parseDurationOrZero(fc.OpenWeather.Timeout, 10*time.Second)

	cfg.CircuitBreaker = CircuitBreakerConfig{
		Enabled:          fc.CircuitBreaker.Enabled,
		FailureThreshold: fc.CircuitBreaker.FailureThreshold,
		SuccessThreshold: fc.CircuitBreaker.SuccessThreshold,
		Timeout:          parseDuration(fc.CircuitBreaker.Timeout, 30*time.Second),
	}
	if cfg.CircuitBreaker.FailureThreshold == 0 {
		cfg.CircuitBreaker.FailureThreshold = 5
	}
	if cfg.CircuitBreaker.SuccessThreshold == 0 {
		cfg.CircuitBreaker.SuccessThreshold = 1
	}

	cfg.VoiceCommand = strings.TrimSpace(os.Getenv("VOICE_COMMAND"))
	if cfg.VoiceCommand == "" {
		cfg.VoiceCommand = strings.TrimSpace(fc.Voice.Command)
	}
	cfg.VoiceLocale = strings.TrimSpace(fc.Voice.Locale)
	if cfg.VoiceLocale == "" {
		cfg.VoiceLocale = "en-US"
	}
	cfg.VoiceInterimResults = fc.Voice.InterimResults
	cfg.VoiceMaxAlternatives = fc.Voice.MaxAlternatives
	if cfg.VoiceMaxAlternatives == 0 {
		cfg.VoiceMaxAlternatives = 1
	}

	cfg.Tracing = TracingConfig{
		Enabled:     fc.Tracing.Enabled,
		Endpoint:    strings.TrimSpace(fc.Tracing.Endpoint),
		Insecure:    fc.Tracing.Insecure,
		SampleRatio: 1,
		ServiceName: strings.TrimSpace(fc.Tracing.ServiceName),
	}
	if ep := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); ep != "" {
		cfg.Tracing.Endpoint = ep
	}
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = "localhost:4318"
	}
	if fc.Tracing.SampleRatio != nil {
		cfg.Tracing.SampleRatio = *fc.Tracing.SampleRatio
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "weather-lookup-widget"
	}

	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Health.DegradedErrorPct
	if cfg.DegradedErrorPct == 0 {
		cfg.DegradedErrorPct = 50
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.InFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.InFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveAPIKey returns the first non-blank key and where it came from.
func resolveAPIKey(cwd string) (key, source string, err error) {
	if key = strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		return key, KeySourceEnv, nil
	}
	if key = strings.TrimSpace(os.Getenv(EnvLegacyAPIKey)); key != "" {
		return key, KeySourceLegacy, nil
	}

	secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
	data, err := os.ReadFile(secretsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", KeySourceNone, nil
		}
		return "", "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return "", "", fmt.Errorf("parse secrets file: %w", err)
	}
	if key = strings.TrimSpace(sec.OpenWeatherAPIKey); key != "" {
		return key, KeySourceSecrets, nil
	}
	return "", KeySourceNone, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is so validate can reject them.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate reports every invalid value at once.
func validate(cfg *Config) error {
	var result *multierror.Error

	if port, err := strconv.Atoi(cfg.ServerPort); err != nil || port < 1 || port > 65535 {
		result = multierror.Append(result, fmt.Errorf("server.port must be 1-65535, got %q", cfg.ServerPort))
	}
	if cfg.APITimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("openweather.timeout must be positive"))
	}
	for _, ep := range []struct{ name, raw string }{
		{"openweather.geocode_url", cfg.GeocodeURL},
		{"openweather.weather_url", cfg.WeatherURL},
	} {
		u, err := url.Parse(ep.raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			result = multierror.Append(result, fmt.Errorf("%s must be an absolute http(s) URL, got %q", ep.name, ep.raw))
		}
	}
	if !strings.Contains(cfg.IconURLTemplate, "{icon}") {
		result = multierror.Append(result, fmt.Errorf("openweather.icon_url_template must contain {icon}"))
	}
	if cfg.CircuitBreaker.FailureThreshold < 1 || cfg.CircuitBreaker.SuccessThreshold < 1 {
		result = multierror.Append(result, fmt.Errorf("circuit_breaker thresholds must be at least 1"))
	}
	if cfg.VoiceMaxAlternatives < 1 {
		result = multierror.Append(result, fmt.Errorf("voice.max_alternatives must be at least 1, got %d", cfg.VoiceMaxAlternatives))
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		result = multierror.Append(result, fmt.Errorf("tracing.sample_ratio must be within [0, 1], got %v", cfg.Tracing.SampleRatio))
	}
	if cfg.DegradedErrorPct < 1 || cfg.DegradedErrorPct > 100 {
		result = multierror.Append(result, fmt.Errorf("health.degraded_error_pct must be 1-100, got %d", cfg.DegradedErrorPct))
	}
	if cfg.InFlightTimeout > cfg.ShutdownTimeout {
		cfg.InFlightTimeout = cfg.ShutdownTimeout
	}

	return result.ErrorOrNil()
}
