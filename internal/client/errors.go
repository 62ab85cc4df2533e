package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ErrMissingAPIKey is returned by every call when no API key is configured.
// No request is sent in that case.
var ErrMissingAPIKey = errors.New("OpenWeather API key is not configured")

// Stage names the upstream call an error came from, as worded in user-facing messages.
type Stage string

const (
	StageLocation Stage = "location"
	StageWeather  Stage = "weather"
)

// APIError is a non-2xx response from OpenWeatherMap.
type APIError struct {
	Stage      Stage
	StatusCode int
	Reason     string // reason phrase, e.g. "Not Found"
	Message    string // "message" field of a structured error body, if any
}

func (e *APIError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = fmt.Sprintf("%d - %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("Failed to fetch %s data: %s", e.Stage, detail)
}

// newAPIError builds an APIError from a failed response. A JSON body carrying a
// usable "message" wins; anything else falls back to status code and reason.
func newAPIError(stage Stage, resp *http.Response, body []byte) *APIError {
	return &APIError{
		Stage:      stage,
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
		Message:    structuredMessage(body),
	}
}

// structuredMessage returns the "message" field when it holds a truthy scalar,
// rendered as the provider sent it. Objects, arrays, false, 0 and "" fall back
// to the status line.
func structuredMessage(body []byte) string {
	var payload struct {
		Message interface{} `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	switch m := payload.Message.(type) {
	case string:
		return m
	case float64:
		if m != 0 {
			return strconv.FormatFloat(m, 'f', -1, 64)
		}
	case bool:
		if m {
			return "true"
		}
	}
	return ""
}

// reasonPhrase prefers the phrase the server sent over the canonical one.
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}

// redactTransportError drops the *url.Error wrapper, whose text embeds the
// request URL and therefore the appid query parameter.
func redactTransportError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
