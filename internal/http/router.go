package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-widget/internal/observability"
)

// NewRouter wires the widget routes. Lookup routes get requestTimeout as a
// context deadline; zero disables it.
func NewRouter(h *Handler, logger *zap.Logger, requestTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.NotFoundHandler = http.HandlerFunc(NotFound)

	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler()).Methods("GET")
	router.HandleFunc("/", h.GetIndex).Methods("GET")

	lookups := router.NewRoute().Subrouter()
	if requestTimeout > 0 {
		lookups.Use(TimeoutMiddleware(requestTimeout))
	}
	lookups.HandleFunc("/search", h.GetSearch).Methods("GET")
	lookups.HandleFunc("/api/lookup", h.GetLookup).Methods("GET")

	return router
}
