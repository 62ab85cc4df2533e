package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/weather-lookup-widget/internal/observability"
)

func TestMiddleware_CorrelationIDGenerated(t *testing.T) {
	router := newTestRouter(t, londonClient())

	w := doRequest(t, router, "/api/lookup?q=London")

	if w.Header().Get("X-Correlation-ID") == "" {
		t.Error("X-Correlation-ID header missing")
	}
}

func TestMiddleware_CorrelationIDPropagated(t *testing.T) {
	router := newTestRouter(t, londonClient())

	req := httptest.NewRequest("GET", "/api/lookup?q=London", nil)
	req.Header.Set("X-Correlation-ID", "client-provided-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Correlation-ID"); got != "client-provided-id" {
		t.Errorf("X-Correlation-ID = %q, want client-provided-id", got)
	}
}

func TestMiddleware_RequestScopedLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.New(core)))
	router.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {
		if got := observability.CorrelationID(r.Context()); got != "abc" {
			t.Errorf("CorrelationID = %q, want abc", got)
		}
		observability.LoggerFrom(r.Context(), nil).Info("inside")
	})

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Correlation-ID", "abc")
	router.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("inside").All()
	if len(entries) != 1 || entries[0].ContextMap()["correlation_id"] != "abc" {
		t.Errorf("log entries = %+v, want one with correlation_id=abc", entries)
	}
}

func TestMiddleware_InFlightTracked(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	router := mux.NewRouter()
	router.Use(MetricsMiddleware)
	router.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	})

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/slow", nil))
		close(done)
	}()
	<-entered
	if got := InFlightCount(); got < 1 {
		t.Errorf("InFlightCount() = %d during request, want >= 1", got)
	}
	close(release)
	<-done

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := WaitForInFlight(ctx, time.Millisecond); err != nil {
		t.Errorf("WaitForInFlight() = %v after request finished", err)
	}
}

func TestTimeoutMiddleware_CancelsLookup(t *testing.T) {
	m := londonClient()
	m.block = make(chan struct{})
	defer close(m.block)
	handler := newTestHandler(m, nil, nil)

	router := mux.NewRouter()
	router.Use(TimeoutMiddleware(50 * time.Millisecond))
	router.HandleFunc("/api/lookup", handler.GetLookup)

	w := doRequest(t, router, "/api/lookup?q=London")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d (deadline surfaces as an unknown error)", w.Code, http.StatusInternalServerError)
	}
}

func TestStatusCodeString(t *testing.T) {
	tests := map[int]string{200: "2xx", 404: "4xx", 502: "5xx"}
	for code, want := range tests {
		if got := statusCodeString(code); got != want {
			t.Errorf("statusCodeString(%d) = %q, want %q", code, got, want)
		}
	}
}
