package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kjstillabower/weather-lookup-widget/internal/circuitbreaker"
	"github.com/kjstillabower/weather-lookup-widget/internal/models"
	"github.com/kjstillabower/weather-lookup-widget/internal/observability"
	"github.com/kjstillabower/weather-lookup-widget/internal/traffic"
)

const (
	DefaultGeocodeURL = "https://api.openweathermap.org/geo/1.0/direct"
	DefaultWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

	endpointGeocode = "geocode"
	endpointWeather = "weather"

	maxBodyBytes = 1 << 20
)

// WeatherClient is the two-call provider surface the lookup workflow needs.
type WeatherClient interface {
	// Configured reports whether an API key is available. Callers check it
	// before issuing any request.
	Configured() bool
	Geocode(ctx context.Context, query string) ([]models.GeoLocation, error)
	CurrentWeather(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error)
}

// Endpoints are the provider URLs. Tests point both at an httptest server.
type Endpoints struct {
	GeocodeURL string
	WeatherURL string
}

type OpenWeatherClient struct {
	apiKey     string
	geocodeURL *url.URL
	weatherURL *url.URL
	client     *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	tracer     trace.Tracer
}

// NewOpenWeatherClient validates the endpoint URLs. An empty apiKey is accepted:
// Configured reports false and every call returns ErrMissingAPIKey without I/O.
func NewOpenWeatherClient(apiKey string, endpoints Endpoints, timeout time.Duration) (*OpenWeatherClient, error) {
	if endpoints.GeocodeURL == "" {
		endpoints.GeocodeURL = DefaultGeocodeURL
	}
	if endpoints.WeatherURL == "" {
		endpoints.WeatherURL = DefaultWeatherURL
	}
	geocodeURL, err := parseEndpoint(endpoints.GeocodeURL)
	if err != nil {
		return nil, fmt.Errorf("geocode url: %w", err)
	}
	weatherURL, err := parseEndpoint(endpoints.WeatherURL)
	if err != nil {
		return nil, fmt.Errorf("weather url: %w", err)
	}

	return &OpenWeatherClient{
		apiKey:     apiKey,
		geocodeURL: geocodeURL,
		weatherURL: weatherURL,
		client:     &http.Client{Timeout: timeout},
		tracer:     otel.Tracer("github.com/kjstillabower/weather-lookup-widget/internal/client"),
	}, nil
}

func parseEndpoint(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u, nil
}

// SetCircuitBreaker wraps every upstream call in cb. Pass nil to disable.
func (c *OpenWeatherClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

// BreakerFailure is the circuitbreaker.Config.IsFailure policy for this client.
func BreakerFailure(err error) bool {
	return isUpstreamFailure(err)
}

func (c *OpenWeatherClient) Configured() bool {
	return c.apiKey != ""
}

// Geocode resolves a free-text place name. At most one candidate is requested;
// an empty slice means the provider found nothing.
func (c *OpenWeatherClient) Geocode(ctx context.Context, query string) ([]models.GeoLocation, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", "1")

	var locations []models.GeoLocation
	if err := c.get(ctx, endpointGeocode, StageLocation, c.geocodeURL, params, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// CurrentWeather fetches current conditions. Units are left at the provider
// default, so temperatures come back in Kelvin.
func (c *OpenWeatherClient) CurrentWeather(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	var snapshot models.WeatherSnapshot
	if err := c.get(ctx, endpointWeather, StageWeather, c.weatherURL, params, &snapshot); err != nil {
		return models.WeatherSnapshot{}, err
	}
	return snapshot, nil
}

func (c *OpenWeatherClient) get(ctx context.Context, endpoint string, stage Stage, base *url.URL, params url.Values, out interface{}) error {
	if !c.Configured() {
		return ErrMissingAPIKey
	}

	ctx, span := c.tracer.Start(ctx, "openweather."+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	call := func() error { return c.callAPI(ctx, endpoint, stage, base, params, out, span) }
	var err error
	if c.breaker != nil {
		err = c.breaker.Call(ctx, call)
	} else {
		err = call()
	}
	recordOutcome(ctx, err)
	if err != nil {
		observability.UpstreamErrorsTotal.WithLabelValues(endpoint, string(CategorizeError(err))).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, string(CategorizeError(err)))
	}
	return err
}

func (c *OpenWeatherClient) callAPI(ctx context.Context, endpoint string, stage Stage, base *url.URL, params url.Values, out interface{}, span trace.Span) error {
	start := time.Now()

	req, err := c.buildRequest(ctx, base, params)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.UpstreamDuration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		err = redactTransportError(err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("request %s data timed out: %w", stage, err)
		}
		return fmt.Errorf("request %s data: %w", stage, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.UpstreamDuration.WithLabelValues(endpoint, status).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", stage, redactTransportError(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(stage, resp, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s data: %w", stage, err)
	}
	return nil
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, base *url.URL, params url.Values) (*http.Request, error) {
	u := *base
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("appid", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}
	return req, nil
}

// recordOutcome feeds the health error-rate window. Caller cancellation says
// nothing about the provider and is not recorded.
func recordOutcome(ctx context.Context, err error) {
	switch {
	case err == nil:
		traffic.RecordSuccess()
	case ctx.Err() != nil:
	case isUpstreamFailure(err):
		traffic.RecordError()
	default:
		traffic.RecordSuccess()
	}
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
