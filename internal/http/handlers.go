package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-widget/internal/client"
	"github.com/kjstillabower/weather-lookup-widget/internal/lifecycle"
	"github.com/kjstillabower/weather-lookup-widget/internal/lookup"
	"github.com/kjstillabower/weather-lookup-widget/internal/observability"
	"github.com/kjstillabower/weather-lookup-widget/internal/render"
	"github.com/kjstillabower/weather-lookup-widget/internal/theme"
	"github.com/kjstillabower/weather-lookup-widget/internal/traffic"
)

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	DegradedWindow   time.Duration
	DegradedErrorPct int
	Version          string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	workflow         *lookup.Workflow
	client           client.WeatherClient
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(workflow *lookup.Workflow, client client.WeatherClient, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		workflow:     workflow,
		client:       client,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// GetIndex handles GET /: the widget with an empty query and a hidden display region.
func (h *Handler) GetIndex(w http.ResponseWriter, r *http.Request) {
	h.writeDocument(w, r, &lookup.Page{})
}

// GetSearch handles GET /search?q=. Every outcome, including errors, renders
// into the display region with status 200.
func (h *Handler) GetSearch(w http.ResponseWriter, r *http.Request) {
	page := &lookup.Page{}
	page.SetQuery(r.URL.Query().Get("q"))
	h.workflow.Submit(r.Context(), page)
	h.writeDocument(w, r, page)
}

func (h *Handler) writeDocument(w http.ResponseWriter, r *http.Request, page *lookup.Page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := render.Document(w, render.NewPageData(page)); err != nil {
		observability.LoggerFrom(r.Context(), h.logger).Error("render page", zap.Error(err))
	}
}

// lookupResponse is the JSON body of GET /api/lookup.
type lookupResponse struct {
	Outcome string       `json:"outcome"`
	Title   string       `json:"title,omitempty"`
	Message string       `json:"message,omitempty"`
	Query   string       `json:"query,omitempty"`
	Card    *lookup.Card `json:"card,omitempty"`
	Theme   string       `json:"theme,omitempty"`
}

// GetLookup handles GET /api/lookup?q=.
func (h *Handler) GetLookup(w http.ResponseWriter, r *http.Request) {
	res := h.workflow.Lookup(r.Context(), r.URL.Query().Get("q"))

	resp := lookupResponse{
		Outcome: res.Kind.String(),
		Title:   res.Title,
		Message: res.Message,
		Query:   res.Query,
		Card:    res.Card,
	}
	if res.Kind == lookup.KindWeather {
		resp.Theme = string(theme.ForCondition(res.Condition))
	}
	writeJSON(w, lookupStatus(res.Kind), resp)
}

// lookupStatus maps an outcome onto the API status code.
func lookupStatus(k lookup.Kind) int {
	switch k {
	case lookup.KindWeather:
		return http.StatusOK
	case lookup.KindEmptyInput:
		return http.StatusBadRequest
	case lookup.KindNotFound:
		return http.StatusNotFound
	case lookup.KindTransportError:
		return http.StatusBadGateway
	case lookup.KindConfigurationError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{
		"apiKey":     "configured",
		"weatherApi": "healthy",
	}
	if !h.client.Configured() {
		checks["apiKey"] = "missing"
	}
	if result.reason == "error_rate_breach" {
		checks["weatherApi"] = "unhealthy"
	}
	version := "dev"
	if h.healthConfig != nil && h.healthConfig.Version != "" {
		version = h.healthConfig.Version
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "weather-lookup-widget",
		"version":   version,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > starting > API key missing > upstream error rate > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	switch lifecycle.Current() {
	case lifecycle.Draining:
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	case lifecycle.Starting:
		return healthResult{"starting", http.StatusServiceUnavailable, "not_ready"}
	}
	if !h.client.Configured() {
		return healthResult{"degraded", http.StatusServiceUnavailable, "api_key_missing"}
	}
	if h.healthConfig != nil && h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		if traffic.Degraded(h.healthConfig.DegradedWindow, h.healthConfig.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// NotFound handles unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "NOT_FOUND", "no route for "+r.URL.Path)
}
