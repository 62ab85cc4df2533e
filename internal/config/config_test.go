package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// unsetEnv removes key for the duration of the test; t.Setenv restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

// isolate runs the test in an empty directory with no config-related env vars.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range []string{EnvAPIKey, EnvLegacyAPIKey, "ENV_NAME", "PORT", "VOICE_COMMAND", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		unsetEnv(t, key)
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_MissingKeyIsNotAnError(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil: a missing key is reported per lookup", err)
	}
	if cfg.APIKey != "" || cfg.APIKeySource != KeySourceNone {
		t.Errorf("APIKey = %q (%q), want empty", cfg.APIKey, cfg.APIKeySource)
	}
}

func TestLoad_DefaultsWithoutConfigFile(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Env != "dev" || cfg.ServerPort != "8080" {
		t.Errorf("Env/Port = %q/%q, want dev/8080", cfg.Env, cfg.ServerPort)
	}
	if cfg.GeocodeURL != "https://api.openweathermap.org/geo/1.0/direct" {
		t.Errorf("GeocodeURL = %q", cfg.GeocodeURL)
	}
	if cfg.WeatherURL != "https://api.openweathermap.org/data/2.5/weather" {
		t.Errorf("WeatherURL = %q", cfg.WeatherURL)
	}
	if cfg.APITimeout != 10*time.Second {
		t.Errorf("APITimeout = %v, want 10s", cfg.APITimeout)
	}
	if cfg.CircuitBreaker.Enabled {
		t.Error("CircuitBreaker.Enabled = true, want disabled by default")
	}
	if cfg.VoiceLocale != "en-US" || cfg.VoiceMaxAlternatives != 1 || cfg.VoiceInterimResults {
		t.Errorf("voice = %q/%d/%v, want en-US/1/false", cfg.VoiceLocale, cfg.VoiceMaxAlternatives, cfg.VoiceInterimResults)
	}
	if cfg.Tracing.Enabled || cfg.Tracing.SampleRatio != 1 {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.DegradedErrorPct != 50 || cfg.DegradedWindow != time.Minute {
		t.Errorf("degraded = %d%%/%v", cfg.DegradedErrorPct, cfg.DegradedWindow)
	}
}

func TestLoad_APIKeyPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		legacy     string
		secrets    string
		wantKey    string
		wantSource string
	}{
		{"env wins", "from-env", "from-legacy", "openweather_api_key: from-secrets\n", "from-env", KeySourceEnv},
		{"legacy before secrets", "", "from-legacy", "openweather_api_key: from-secrets\n", "from-legacy", KeySourceLegacy},
		{"secrets file", "", "", "openweather_api_key: from-secrets\n", "from-secrets", KeySourceSecrets},
		{"blank env ignored", "   ", "", "openweather_api_key: from-secrets\n", "from-secrets", KeySourceSecrets},
		{"blank secrets", "", "", "openweather_api_key: \"\"\n", "", KeySourceNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			if tt.env != "" {
				t.Setenv(EnvAPIKey, tt.env)
			}
			if tt.legacy != "" {
				t.Setenv(EnvLegacyAPIKey, tt.legacy)
			}
			writeSecretsFile(t, dir, tt.secrets)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.APIKey != tt.wantKey || cfg.APIKeySource != tt.wantSource {
				t.Errorf("APIKey = %q (%q), want %q (%q)", cfg.APIKey, cfg.APIKeySource, tt.wantKey, tt.wantSource)
			}
		})
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvAPIKey+"=from-dotenv\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "from-dotenv" || cfg.APIKeySource != KeySourceEnv {
		t.Errorf("APIKey = %q (%q), want from-dotenv (env)", cfg.APIKey, cfg.APIKeySource)
	}
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := isolate(t)
	t.Setenv(EnvAPIKey, "from-process")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvAPIKey+"=from-dotenv\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "from-process" {
		t.Errorf("APIKey = %q, want the process environment to win", cfg.APIKey)
	}
}

func TestLoad_LegacyDotEnvKey(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvLegacyAPIKey+"=vite-key\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "vite-key" || cfg.APIKeySource != KeySourceLegacy {
		t.Errorf("APIKey = %q (%q), want vite-key (legacy_env)", cfg.APIKey, cfg.APIKeySource)
	}
}

func TestLoad_FileValues(t *testing.T) {
	dir := isolate(t)
	writeEnvFile(t, dir, `
server:
  port: "9090"
openweather:
  geocode_url: "http://localhost:9000/geo"
  weather_url: "http://localhost:9000/weather"
  icon_url_template: "http://localhost:9000/icons/{icon}.png"
  timeout: "3s"
circuit_breaker:
  enabled: true
  failure_threshold: 2
  success_threshold: 3
  timeout: "5s"
voice:
  command: "whisper-cli --model tiny"
  locale: "fr-FR"
  interim_results: true
  max_alternatives: 3
tracing:
  enabled: true
  endpoint: "collector:4318"
  sample_ratio: 0.25
health:
  degraded_window: "2m"
  degraded_error_pct: 10
shutdown:
  timeout: "20s"
  in_flight_timeout: "5s"
  in_flight_check_interval: "50ms"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "9090" || cfg.APITimeout != 3*time.Second {
		t.Errorf("port/timeout = %q/%v", cfg.ServerPort, cfg.APITimeout)
	}
	if cfg.GeocodeURL != "http://localhost:9000/geo" || cfg.WeatherURL != "http://localhost:9000/weather" {
		t.Errorf("urls = %q %q", cfg.GeocodeURL, cfg.WeatherURL)
	}
	if cfg.IconURLTemplate != "http://localhost:9000/icons/{icon}.png" {
		t.Errorf("IconURLTemplate = %q", cfg.IconURLTemplate)
	}
	want := CircuitBreakerConfig{Enabled: true, FailureThreshold: 2, SuccessThreshold: 3, Timeout: 5 * time.Second}
	if cfg.CircuitBreaker != want {
		t.Errorf("CircuitBreaker = %+v, want %+v", cfg.CircuitBreaker, want)
	}
	if cfg.VoiceCommand != "whisper-cli --model tiny" || cfg.VoiceLocale != "fr-FR" || !cfg.VoiceInterimResults || cfg.VoiceMaxAlternatives != 3 {
		t.Errorf("voice = %q %q %v %d", cfg.VoiceCommand, cfg.VoiceLocale, cfg.VoiceInterimResults, cfg.VoiceMaxAlternatives)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.Endpoint != "collector:4318" || cfg.Tracing.SampleRatio != 0.25 {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.DegradedWindow != 2*time.Minute || cfg.DegradedErrorPct != 10 {
		t.Errorf("degraded = %v/%d", cfg.DegradedWindow, cfg.DegradedErrorPct)
	}
	if cfg.ShutdownTimeout != 20*time.Second || cfg.InFlightTimeout != 5*time.Second || cfg.InFlightCheckInterval != 50*time.Millisecond {
		t.Errorf("shutdown = %v/%v/%v", cfg.ShutdownTimeout, cfg.InFlightTimeout, cfg.InFlightCheckInterval)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "7070")
	t.Setenv("VOICE_COMMAND", "vosk-transcribe")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4318")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "7070" || cfg.VoiceCommand != "vosk-transcribe" || cfg.Tracing.Endpoint != "otel:4318" {
		t.Errorf("overrides not applied: %q %q %q", cfg.ServerPort, cfg.VoiceCommand, cfg.Tracing.Endpoint)
	}
}

func TestLoad_EnvNameSelectsFile(t *testing.T) {
	dir := isolate(t)
	t.Setenv("ENV_NAME", "prod")
	configDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "prod.yaml"), []byte("server:\n  port: \"80\"\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Env != "prod" || cfg.ServerPort != "80" {
		t.Errorf("Env/Port = %q/%q, want prod/80", cfg.Env, cfg.ServerPort)
	}
}

func TestLoad_EmptyAndInvalidDurationsFallBack(t *testing.T) {
	dir := isolate(t)
	writeEnvFile(t, dir, `
openweather:
  timeout: ""
circuit_breaker:
  timeout: "invalid"
shutdown:
  timeout: "-5s"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APITimeout != 10*time.Second {
		t.Errorf("APITimeout = %v, want default 10s", cfg.APITimeout)
	}
	if cfg.CircuitBreaker.Timeout != 30*time.Second {
		t.Errorf("CircuitBreaker.Timeout = %v, want default 30s", cfg.CircuitBreaker.Timeout)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want default 30s", cfg.ShutdownTimeout)
	}
}

func TestLoad_InFlightTimeoutCappedByShutdown(t *testing.T) {
	dir := isolate(t)
	writeEnvFile(t, dir, "shutdown:\n  timeout: \"2s\"\n  in_flight_timeout: \"10s\"\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.InFlightTimeout != 2*time.Second {
		t.Errorf("InFlightTimeout = %v, want capped at 2s", cfg.InFlightTimeout)
	}
}

func TestLoad_ValidationReportsEveryProblem(t *testing.T) {
	dir := isolate(t)
	writeEnvFile(t, dir, `
server:
  port: "not-a-port"
openweather:
  geocode_url: "ftp://example.com/geo"
  icon_url_template: "https://example.com/icon.png"
  timeout: "0s"
voice:
  max_alternatives: -1
tracing:
  sample_ratio: 1.5
health:
  degraded_error_pct: 150
`)

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	if cfg != nil {
		t.Fatalf("Load() expected nil config on error, got %+v", cfg)
	}
	for _, want := range []string{
		"server.port",
		"openweather.timeout",
		"openweather.geocode_url",
		"icon_url_template",
		"voice.max_alternatives",
		"tracing.sample_ratio",
		"health.degraded_error_pct",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Load() error = %v, want it to mention %s", err, want)
		}
	}
}

func TestLoad_InvalidSecretsYAML(t *testing.T) {
	dir := isolate(t)
	writeSecretsFile(t, dir, "not valid: yaml: [[[")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for invalid secrets YAML, got nil")
	}
	if cfg != nil {
		t.Fatalf("Load() expected nil config on error, got %+v", cfg)
	}
	if !strings.Contains(err.Error(), "secrets") {
		t.Errorf("Load() error = %v, want message about secrets", err)
	}
}

func TestLoad_InvalidConfigYAML(t *testing.T) {
	dir := isolate(t)
	writeEnvFile(t, dir, "not: valid: yaml: [[[")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for invalid config YAML, got nil")
	}
	if cfg != nil {
		t.Fatalf("Load() expected nil config on error, got %+v", cfg)
	}
	if !strings.Contains(err.Error(), "parse config file") {
		t.Errorf("Load() error = %v, want message about parse config file", err)
	}
}

func TestLoad_ProjectDevConfig(t *testing.T) {
	root := findProjectRoot(t)
	isolate(t)
	t.Chdir(root)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort == "" || cfg.GeocodeURL == "" || cfg.WeatherURL == "" {
		t.Errorf("Load() did not populate config from config/dev.yaml")
	}
}

// TestCoverageGaps_IntentionallyUntested documents paths we reviewed but chose not to test.
// Run with -v to see skip reasons.
func TestCoverageGaps_IntentionallyUntested(t *testing.T) {
	t.Run("resolveAPIKey_read_error", func(t *testing.T) {
		t.Skip("read-error path (non-IsNotExist) requires simulated ReadFile failure; not worth the portability cost")
	})
	t.Run("Load_dotenv_parse_error", func(t *testing.T) {
		t.Skip("godotenv accepts almost any line; a reliably unparseable .env is version dependent")
	})
}

func writeEnvFile(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "dev.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
}

func writeSecretsFile(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "secrets.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write secrets file: %v", err)
	}
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "config", "dev.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("config/dev.yaml not found (run tests from project root)")
		}
		dir = parent
	}
}
