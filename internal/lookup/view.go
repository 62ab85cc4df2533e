package lookup

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind is the outcome of one lookup. Outcomes are mutually exclusive.
type Kind int

const (
	KindNone Kind = iota // nothing looked up yet
	KindWeather
	KindConfigurationError
	KindEmptyInput
	KindNotFound
	KindTransportError
	KindUnknownError
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindWeather:
		return "weather"
	case KindConfigurationError:
		return "configuration_error"
	case KindEmptyInput:
		return "empty_input"
	case KindNotFound:
		return "not_found"
	case KindTransportError:
		return "transport_error"
	case KindUnknownError:
		return "unknown_error"
	default:
		return "unknown"
	}
}

// IsError reports whether the outcome is rendered in the error style.
func (k Kind) IsError() bool {
	return k == KindConfigurationError || k == KindTransportError || k == KindUnknownError
}

// ErrNotConfigured is the outcome error when no provider API key is available.
var ErrNotConfigured = errors.New("API key is missing")

// ErrNoConditions is returned when the weather response has an empty weather array.
var ErrNoConditions = errors.New("weather response did not include any conditions")

// ErrIncompleteWeather is returned when the weather response lacks its main or wind block.
var ErrIncompleteWeather = errors.New("weather response is missing temperature, humidity or wind readings")

// ErrNoCoordinates is returned when the geocoding candidate has no lat/lon.
var ErrNoCoordinates = errors.New("location data did not include coordinates")

// NotFoundError means the geocoder returned zero candidates for Query.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no results for %q", e.Query)
}

// View is the content of the display region.
type View struct {
	Kind    Kind   `json:"-"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
	Query   string `json:"query,omitempty"`
	Card    *Card  `json:"card,omitempty"`
}

// Card is the rendered weather for one location.
type Card struct {
	IconURL      string  `json:"iconUrl,omitempty"`
	IconAlt      string  `json:"iconAlt"`
	Heading      string  `json:"heading"`
	TemperatureC int     `json:"temperatureC"`
	Description  string  `json:"description"`
	Humidity     int     `json:"humidity"`
	WindSpeed    float64 `json:"windSpeed"`
}

// Temperature formats the rounded Celsius value, e.g. "10°C".
func (c Card) Temperature() string {
	return strconv.Itoa(c.TemperatureC) + "°C"
}

// HumidityText formats humidity, e.g. "70%".
func (c Card) HumidityText() string {
	return strconv.Itoa(c.Humidity) + "%"
}

// WindSpeedText formats wind speed in m/s with the provider's precision.
func (c Card) WindSpeedText() string {
	return strconv.FormatFloat(c.WindSpeed, 'f', -1, 64) + " m/s"
}

// Result is a View plus what the rendering boundary needs to finish the lookup.
type Result struct {
	View
	// Err is the classified failure; nil for KindWeather.
	Err error
	// Condition is the raw provider category ("Clear", "Rain", ...) for the background.
	Condition string
}

// ClearQuery reports whether the query field should be emptied.
func (r Result) ClearQuery() bool {
	return r.Kind == KindWeather
}

func configurationResult() Result {
	return Result{
		View: View{
			Kind:    KindConfigurationError,
			Title:   "Configuration Error!",
			Message: "API key is missing. Set OPENWEATHER_API_KEY in the environment or .env file, or openweather_api_key in config/secrets.yaml.",
		},
		Err: ErrNotConfigured,
	}
}

func emptyInputResult(err error) Result {
	return Result{
		View: View{
			Kind:    KindEmptyInput,
			Title:   "Empty Input!",
			Message: "Please enter a valid city name (e.g., London, Tokyo, New York).",
		},
		Err: err,
	}
}

func notFoundResult(query string) Result {
	return Result{
		View: View{
			Kind:    KindNotFound,
			Title:   "City Not Found",
			Message: `No results for "` + query + `". Try a valid global city name.`,
			Query:   query,
		},
		Err: &NotFoundError{Query: query},
	}
}

func errorResult(kind Kind, err error) Result {
	return Result{
		View: View{
			Kind:    kind,
			Title:   "Error:",
			Message: err.Error(),
		},
		Err: err,
	}
}
