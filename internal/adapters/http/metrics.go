package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the site. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.HistogramVec
	ordersCreated *prometheus.CounterVec
	recordsSaved  *prometheus.CounterVec
	emailsSent    *prometheus.CounterVec
	fxFallbacks   *prometheus.CounterVec
}

// NewMetrics creates a registry with the site collectors plus Go runtime and process metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requests: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conference_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route pattern and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		ordersCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "conference_orders_created_total",
			Help: "Gateway orders created, by order kind.",
		}, []string{"kind"}),
		recordsSaved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "conference_records_saved_total",
			Help: "Registrations, bookings and course sign-ups saved, by kind and payment mode.",
		}, []string{"kind", "mode"}),
		emailsSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "conference_emails_total",
			Help: "Confirmation and payment-link emails, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		fxFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "conference_fx_fallback_total",
			Help: "Times the configured fallback exchange rate was used, by reason.",
		}, []string{"reason"}),
	}
}

// ObserveRequest matches middleware.RequestObserver.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) OrderCreated(kind string) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordSaved(kind, mode string) {
	if m == nil {
		return
	}
	m.recordsSaved.WithLabelValues(kind, mode).Inc()
}

// ObserveEmail counts one send attempt; failures are the ones queued in the outbox.
func (m *Metrics) ObserveEmail(kind string, sent bool) {
	if m == nil {
		return
	}
	outcome := "sent"
	if !sent {
		outcome = "failed"
	}
	m.emailsSent.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveFXFallback(reason string) {
	if m == nil {
		return
	}
	m.fxFallbacks.WithLabelValues(reason).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
