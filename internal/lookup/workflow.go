// Package lookup runs the two-stage geocode-then-weather lookup and turns
// every outcome, including failures, into a View.
package lookup

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-widget/internal/client"
	"github.com/kjstillabower/weather-lookup-widget/internal/models"
	"github.com/kjstillabower/weather-lookup-widget/internal/observability"
	"github.com/kjstillabower/weather-lookup-widget/internal/validation"
)

// DefaultIconURLTemplate is the OpenWeatherMap icon asset URL; {icon} is replaced by the icon code.
const DefaultIconURLTemplate = "https://openweathermap.org/img/wn/{icon}@2x.png"

// Workflow performs lookups against a WeatherClient. It is safe for concurrent use.
type Workflow struct {
	client          client.WeatherClient
	iconURLTemplate string
	logger          *zap.Logger
	tracer          trace.Tracer
}

// New creates a Workflow. An empty iconURLTemplate uses DefaultIconURLTemplate.
func New(c client.WeatherClient, iconURLTemplate string, logger *zap.Logger) *Workflow {
	if iconURLTemplate == "" {
		iconURLTemplate = DefaultIconURLTemplate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		client:          c,
		iconURLTemplate: iconURLTemplate,
		logger:          logger,
		tracer:          otel.Tracer("github.com/kjstillabower/weather-lookup-widget/internal/lookup"),
	}
}

// Submit looks up the page's current query and applies the result to the page.
func (w *Workflow) Submit(ctx context.Context, page *Page) Result {
	res := w.Lookup(ctx, page.Query())
	page.Apply(res)
	return res
}

// Lookup resolves query to a location, fetches its current weather and
// returns exactly one outcome. It never returns an error: failures become
// error views.
func (w *Workflow) Lookup(ctx context.Context, query string) Result {
	ctx, span := w.tracer.Start(ctx, "lookup")
	defer span.End()

	res := w.lookup(ctx, query)

	outcome := res.Kind.String()
	observability.LookupsTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("lookup.outcome", outcome))

	logger := observability.LoggerFrom(ctx, w.logger)
	switch res.Kind {
	case KindTransportError, KindUnknownError:
		logger.Warn("lookup failed",
			zap.String("outcome", outcome),
			zap.String("category", string(client.CategorizeError(res.Err))),
			zap.Error(res.Err))
	case KindConfigurationError:
		logger.Error("lookup refused: no API key configured")
	default:
		logger.Debug("lookup complete", zap.String("outcome", outcome), zap.String("query", res.Query))
	}
	return res
}

func (w *Workflow) lookup(ctx context.Context, query string) Result {
	if !w.client.Configured() {
		return configurationResult()
	}

	trimmed, err := validation.ValidateQuery(query)
	if err != nil {
		return emptyInputResult(err)
	}

	locations, err := w.client.Geocode(ctx, trimmed)
	if err != nil {
		return classify(err)
	}
	if len(locations) == 0 {
		return notFoundResult(trimmed)
	}
	loc := locations[0]
	lat, lon, ok := loc.Coordinates()
	if !ok {
		return errorResult(KindUnknownError, ErrNoCoordinates)
	}

	snapshot, err := w.client.CurrentWeather(ctx, lat, lon)
	if err != nil {
		return classify(err)
	}
	condition, ok := snapshot.Primary()
	if !ok {
		return errorResult(KindUnknownError, ErrNoConditions)
	}
	if !snapshot.Complete() {
		return errorResult(KindUnknownError, ErrIncompleteWeather)
	}

	card := w.card(loc, snapshot, condition)
	return Result{
		View:      View{Kind: KindWeather, Query: trimmed, Card: &card},
		Condition: condition.Main,
	}
}

func (w *Workflow) card(loc models.GeoLocation, snapshot models.WeatherSnapshot, condition models.Condition) Card {
	return Card{
		IconURL:      w.iconURL(condition.Icon),
		IconAlt:      condition.Description,
		Heading:      loc.DisplayName(),
		TemperatureC: KelvinToCelsius(snapshot.Main.TempKelvin),
		Description:  condition.Description,
		Humidity:     snapshot.Main.Humidity,
		WindSpeed:    snapshot.Wind.Speed,
	}
}

func (w *Workflow) iconURL(icon string) string {
	icon = strings.TrimSpace(icon)
	if icon == "" {
		return ""
	}
	return strings.ReplaceAll(w.iconURLTemplate, "{icon}", url.PathEscape(icon))
}

// KelvinToCelsius subtracts 273.15 and rounds half up (toward +∞), so -0.5 becomes 0.
func KelvinToCelsius(k float64) int {
	return int(math.Floor(k - models.KelvinOffset + 0.5))
}

// classify turns a client failure into a transport or unknown outcome.
func classify(err error) Result {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return errorResult(KindTransportError, apiErr)
	}
	if errors.Is(err, client.ErrMissingAPIKey) {
		return configurationResult()
	}
	return errorResult(KindUnknownError, err)
}
