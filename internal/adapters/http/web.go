package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"conference/internal/adapters/http/middleware"
	"conference/internal/adapters/http/perf"
	"conference/internal/adapters/payment"
	accommodationStore "conference/internal/adapters/storage/accommodation"
	orderStore "conference/internal/adapters/storage/order"
	outboxStore "conference/internal/adapters/storage/outbox"
	pccStore "conference/internal/adapters/storage/pcc"
	registrationStore "conference/internal/adapters/storage/registration"
	"conference/internal/application/orchestrators"
	"conference/internal/domain/course"
	"conference/internal/domain/pricing"
)

var ErrCSRFKey = errors.New("CONFERENCE_CSRF_KEY must be 64 hex characters (32 bytes)")

// Stores holds all storage dependencies.
type Stores struct {
	Registrations  registrationStore.Store
	Accommodations accommodationStore.Store
	Courses        pccStore.Store
	Outbox         outboxStore.Store
	Orders         orderStore.Store
}

// Deps is everything the handlers reach for. Zero-valued optional fields are filled by NewMux.
type Deps struct {
	Stores      Stores
	Calculator  *pricing.Calculator
	Catalog     course.Catalog
	Gateway     payment.Gateway
	Notifier    *orchestrators.Notifier
	Processor   *orchestrators.OutboxProcessor
	Credentials orchestrators.AdminCredentials
	Sessions    *middleware.Sessions
	Collector   *perf.Collector
	Metrics     *Metrics

	CSRFKey []byte
	CSRF    middleware.CSRFOptions

	// Ping reports storage health for /healthz. Nil means always healthy.
	Ping func(ctx context.Context) error

	GenerateID func() string
	Now        func() time.Time
}

// LoadCSRFKey decodes the hex CSRF secret.
// In production, the key MUST be set. In development, a random key is generated per startup.
func LoadCSRFKey(keyHex string, production bool) ([]byte, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, ErrCSRFKey
		}
		return key, nil
	}
	if production {
		return nil, fmt.Errorf("%w: required in production", ErrCSRFKey)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate CSRF key: %w", err)
	}
	slog.Warn("csrf_key_random", "hint", "form tokens will not survive a restart; set CONFERENCE_CSRF_KEY")
	return key, nil
}

// Global dependencies (set by NewMux)
var app *Deps

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// NewMux wires HTTP handlers for the app.
// PRE: d.Stores, d.Calculator and d.Sessions are set
func NewMux(d *Deps) http.Handler {
	if d.Gateway == nil {
		d.Gateway = payment.NewNoopGateway()
	}
	if d.GenerateID == nil {
		d.GenerateID = generateID
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Processor == nil {
		d.Processor = orchestrators.NewOutboxProcessor(d.Stores.Outbox, nil)
	}
	if len(d.CSRFKey) == 0 {
		// NewMux has no error path; LoadCSRFKey only fails on bad input or in production.
		d.CSRFKey, _ = LoadCSRFKey("", false)
	}
	app = d

	mux := http.NewServeMux()
	registerRoutes(mux)

	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second, nil)

	var observers []middleware.RequestObserver
	if d.Metrics != nil {
		observers = append(observers, d.Metrics.ObserveRequest)
	}

	// Innermost first: Routes -> Auth -> CSRF -> RateLimit -> SecurityHeaders -> Timing
	return middleware.Chain(mux,
		middleware.Routes,
		middleware.Auth(d.Sessions),
		middleware.CSRF(d.CSRFKey, d.CSRF),
		middleware.RateLimit(limiter),
		middleware.SecurityHeaders,
		middleware.Timing(d.Collector, observers...),
	)
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealthz)
	if app.Metrics != nil {
		mux.Handle("GET /metrics", app.Metrics.Handler())
	}

	// Public registration flow
	mux.HandleFunc("GET /api/csrf", handleCSRFToken)
	mux.HandleFunc("POST /api/quote", handleQuote)
	mux.HandleFunc("POST /api/accommodation/quote", handleAccommodationQuote)
	mux.HandleFunc("POST /api/orders", handleCreateOrder)
	mux.HandleFunc("POST /api/registrations", handleCompleteRegistration)
	mux.HandleFunc("POST /api/accommodations", handleCompleteAccommodation)
	mux.HandleFunc("GET /api/pcc/courses", handleCourseSeats)
	mux.HandleFunc("GET /api/pcc/{code}/count", handleCourseCount)
	mux.HandleFunc("POST /api/pcc/registrations", handleCompleteCourseRegistration)

	// Back office
	mux.HandleFunc("POST /admin/login", handleLogin)
	mux.HandleFunc("POST /admin/logout", handleLogout)

	admin := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.RequireAdmin(h))
	}
	admin("GET /admin/registrations", handleListRegistrations)
	admin("POST /admin/registrations", handleCreateOfflineRegistration)
	admin("GET /admin/registrations/{id}", handleGetRegistration)
	admin("PUT /admin/registrations/{id}", handleUpdateRegistration)
	admin("DELETE /admin/registrations/{id}", handleDeleteRegistration)

	admin("GET /admin/accommodations", handleListAccommodations)
	admin("POST /admin/accommodations", handleCreateOfflineAccommodation)
	admin("GET /admin/accommodations/{id}", handleGetAccommodation)
	admin("PUT /admin/accommodations/{id}", handleUpdateAccommodation)
	admin("DELETE /admin/accommodations/{id}", handleDeleteAccommodation)

	admin("GET /admin/pcc", handleListCourseRegistrations)
	admin("POST /admin/pcc", handleCreateOfflineCourseRegistration)
	admin("GET /admin/pcc/{id}", handleGetCourseRegistration)
	admin("PUT /admin/pcc/{id}", handleUpdateCourseRegistration)
	admin("DELETE /admin/pcc/{id}", handleDeleteCourseRegistration)

	admin("POST /admin/payment-links", handleSendPaymentLink)
	admin("POST /admin/confirmations", handleResendConfirmations)

	admin("GET /admin/outbox", handleListOutbox)
	admin("POST /admin/outbox/{id}/retry", handleRetryOutbox)
	admin("POST /admin/outbox/{id}/abandon", handleAbandonOutbox)

	admin("GET /admin/dashboard", handleDashboard)
	admin("GET /admin/perf", handlePerf)
}
