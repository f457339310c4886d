package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"conference/internal/adapters/http/perf"
)

func timedMux(collector *perf.Collector, observers ...RequestObserver) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/pcc/{code}/count", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {})
	// Auth sits between Timing and the mux and replaces the request, like in production.
	return Chain(mux, Routes, Auth(NewSessions([]byte("k"), 0, false)), Timing(collector, observers...))
}

func TestTimingMiddleware_RecordsRoutePattern(t *testing.T) {
	collector := perf.NewCollector(100)
	var gotRoute string
	var gotStatus int
	h := timedMux(collector, func(method, route string, status int, _ time.Duration) {
		gotRoute, gotStatus = route, status
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/pcc/M1/count", nil))

	if collector.TotalRecorded() != 1 {
		t.Fatalf("TotalRecorded = %d, want 1", collector.TotalRecorded())
	}
	if gotRoute != "GET /api/pcc/{code}/count" || gotStatus != http.StatusOK {
		t.Errorf("observed %q %d", gotRoute, gotStatus)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestTimingMiddleware_SkipsHealthz(t *testing.T) {
	collector := perf.NewCollector(100)
	rr := httptest.NewRecorder()
	timedMux(collector).ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))

	if collector.TotalRecorded() != 0 {
		t.Errorf("TotalRecorded = %d, want 0", collector.TotalRecorded())
	}
}

func TestTimingMiddleware_UnmatchedRoute(t *testing.T) {
	collector := perf.NewCollector(100)
	var gotRoute string
	var gotStatus int
	h := timedMux(collector, func(_, route string, status int, _ time.Duration) {
		gotRoute, gotStatus = route, status
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/missing", nil))

	if rr.Code != http.StatusNotFound || gotStatus != http.StatusNotFound {
		t.Errorf("status = %d observed %d, want 404", rr.Code, gotStatus)
	}
	if gotRoute != "unmatched" {
		t.Errorf("route = %q", gotRoute)
	}
}

func TestTimingMiddleware_NilCollector(t *testing.T) {
	handler := Timing(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/test", nil))

	if rr.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rr.Code)
	}
}
