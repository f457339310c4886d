package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"conference/internal/adapters/http/perf"
)

// DefaultSlowRequestMs is the default threshold for slow request warnings.
const DefaultSlowRequestMs = 300

var (
	slowRequestMs   int64
	slowRequestOnce sync.Once
)

// slowRequestThreshold reads CONFERENCE_SLOW_REQUEST_MS once.
func slowRequestThreshold() float64 {
	slowRequestOnce.Do(func() {
		ms := DefaultSlowRequestMs
		if v := os.Getenv("CONFERENCE_SLOW_REQUEST_MS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				ms = n
			}
		}
		atomic.StoreInt64(&slowRequestMs, int64(ms))
	})
	return float64(atomic.LoadInt64(&slowRequestMs))
}

var requestIDCounter uint64

// untimedPaths are polled by infrastructure and would crowd out real traffic in the ring buffer.
var untimedPaths = map[string]bool{"/healthz": true, "/metrics": true}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the underlying ResponseWriter.
func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// RequestObserver receives every timed request. route is the matched mux pattern.
type RequestObserver func(method, route string, status int, elapsed time.Duration)

type routeHolder struct{ pattern string }

const routeContextKey contextKey = "route"

// Routes must wrap the ServeMux directly. Middlewares that replace the request
// (WithContext) hide the pattern the mux sets, so Routes copies it back for Timing.
func Routes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if h, ok := r.Context().Value(routeContextKey).(*routeHolder); ok {
			h.pattern = r.Pattern
		}
	})
}

// Timing returns middleware that logs request duration and tags each response with X-Request-ID.
// Normal requests log at DEBUG; slow requests (above threshold) log at WARN.
// If collector is non-nil, entries are recorded for the perf snapshot, keyed by route
// pattern so record ids do not fan out into separate rows.
func Timing(collector *perf.Collector, observers ...RequestObserver) func(http.Handler) http.Handler {
	threshold := slowRequestThreshold()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if untimedPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			reqID := atomic.AddUint64(&requestIDCounter, 1)
			w.Header().Set("X-Request-ID", strconv.FormatUint(reqID, 10))
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			holder := &routeHolder{}

			next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), routeContextKey, holder)))

			elapsed := time.Since(start)
			durationMs := float64(elapsed.Microseconds()) / 1000.0
			route := holder.pattern
			if route == "" {
				route = "unmatched"
			}
			attrs := []any{
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", durationMs,
			}
			if durationMs >= threshold {
				slog.Warn("slow_request", attrs...)
			} else {
				slog.Debug("request", attrs...)
			}

			if collector != nil {
				collector.Record(perf.Entry{
					Kind:       perf.KindRequest,
					Path:       route,
					StatusCode: sw.status,
					DurationMs: durationMs,
					Timestamp:  start,
				})
			}
			for _, observe := range observers {
				observe(r.Method, route, sw.status, elapsed)
			}
		})
	}
}
