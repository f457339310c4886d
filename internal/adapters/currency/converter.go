// Package currency resolves the USD to INR exchange rate used for cross-currency fees.
package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gojektech/heimdall/v6"
	"github.com/gojektech/heimdall/v6/httpclient"
)

// DefaultURL is the public rate API queried for USD rates.
const DefaultURL = "https://api.exchangerate-api.com/v4/latest/USD"

// DefaultFallback is substituted whenever the live rate cannot be obtained.
const DefaultFallback = 75.0

// Doer sends an HTTP request. *httpclient.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Options configures a Converter. Zero values select defaults.
type Options struct {
	URL      string
	Fallback float64
	TTL      time.Duration
	Retries  int
	Timeout  time.Duration
	Client   Doer
	Cache    Cache
	// OnFallback is called with a short reason each time the fallback rate is used.
	OnFallback func(reason string)
}

// Converter fetches the live rate, caches successes and falls back on any failure.
type Converter struct {
	client     Doer
	url        string
	fallback   float64
	ttl        time.Duration
	cache      Cache
	onFallback func(string)
}

// NewHTTPClient builds the retrying HTTP client shared by outbound adapters.
func NewHTTPClient(timeout time.Duration, retries int) *httpclient.Client {
	backoff := heimdall.NewConstantBackoff(200*time.Millisecond, 50*time.Millisecond)
	return httpclient.NewClient(
		httpclient.WithHTTPTimeout(timeout),
		httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
		httpclient.WithRetryCount(retries),
	)
}

// NewConverter creates a Converter.
func NewConverter(opts Options) *Converter {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Fallback <= 0 {
		opts.Fallback = DefaultFallback
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.Client == nil {
		opts.Client = NewHTTPClient(opts.Timeout, opts.Retries)
	}
	if opts.Cache == nil {
		opts.Cache = NewMemoryCache(time.Now)
	}
	if opts.OnFallback == nil {
		opts.OnFallback = func(string) {}
	}
	return &Converter{
		client:     opts.Client,
		url:        opts.URL,
		fallback:   opts.Fallback,
		ttl:        opts.TTL,
		cache:      opts.Cache,
		onFallback: opts.OnFallback,
	}
}

// UsdToInr returns the current rate.
// POST: Never fails; returns the fallback rate when the API or cache cannot supply one
// POST: Only successful fetches are cached
func (c *Converter) UsdToInr(ctx context.Context) float64 {
	if rate, ok := c.cache.Get(ctx); ok {
		return rate
	}
	rate, err := c.fetch(ctx)
	if err != nil {
		slog.Warn("fx_fallback", "error", err.Error(), "rate", c.fallback)
		c.onFallback(reason(err))
		return c.fallback
	}
	c.cache.Set(ctx, rate, c.ttl)
	return rate
}

// Fallback returns the configured substitute rate.
func (c *Converter) Fallback() float64 {
	return c.fallback
}

type rateResponse struct {
	Rates map[string]float64 `json:"rates"`
}

type fetchError struct {
	kind string
	err  error
}

func (e *fetchError) Error() string { return e.kind + ": " + e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }

func reason(err error) string {
	var fe *fetchError
	if errors.As(err, &fe) {
		return fe.kind
	}
	return "unknown"
}

func (c *Converter) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, &fetchError{"request", err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return 0, &fetchError{"network", err}
	}
	if resp.StatusCode != http.StatusOK {
		return 0, &fetchError{"status", fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var body rateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return 0, &fetchError{"decode", err}
	}
	rate, ok := body.Rates["INR"]
	if !ok || rate <= 0 {
		return 0, &fetchError{"missing_rate", errors.New("rates.INR missing or non-positive")}
	}
	return rate, nil
}
