package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_RefillsPerInterval(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute, stop)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "buckets are per IP")

	now = now.Add(90 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "refill is capped at rate")
}

func TestRateLimiter_Sweep(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute, nil)
	rl.now = func() time.Time { return now }
	rl.Allow("10.0.0.1")
	now = now.Add(10 * time.Minute)
	rl.sweep(5 * time.Minute)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.visitors)
}

func TestRateLimit_IgnoresPort(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)
	h := RateLimit(NewRateLimiter(1, time.Hour, stop))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	first := httptest.NewRequest("POST", "/api/quote", nil)
	first.RemoteAddr = "192.0.2.7:50001"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, first)
	require.Equal(t, http.StatusOK, rr.Code)

	second := httptest.NewRequest("POST", "/api/quote", nil)
	second.RemoteAddr = "192.0.2.7:50002"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, second)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
}

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "checkout.razorpay.com")
}

func TestCSRF_FormNeedsTokenJSONExempt(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/csrf", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(CSRFToken(r)))
	})
	mux.HandleFunc("POST /admin/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := CSRF(key, CSRFOptions{TrustedOrigins: []string{"example.com"}})(mux)

	// JSON bypasses the token check.
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/admin/login", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	// Form post without a token is rejected.
	rr = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/admin/login", strings.NewReader("username=admin"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// Fetch a token, then post it back with the cookie.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/csrf", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	token := rr.Body.String()
	require.NotEmpty(t, token)

	form := url.Values{"username": {"admin"}, "gorilla.csrf.Token": {token}}
	req = httptest.NewRequest("POST", "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
