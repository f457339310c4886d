package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gojektech/heimdall/v6/httpclient"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"conference/internal/adapters/currency"
	"conference/internal/adapters/email"
	web "conference/internal/adapters/http"
	"conference/internal/adapters/http/middleware"
	"conference/internal/adapters/http/perf"
	"conference/internal/adapters/payment"
	"conference/internal/adapters/storage"
	accommodationStore "conference/internal/adapters/storage/accommodation"
	orderStore "conference/internal/adapters/storage/order"
	outboxStore "conference/internal/adapters/storage/outbox"
	pccStore "conference/internal/adapters/storage/pcc"
	registrationStore "conference/internal/adapters/storage/registration"
	"conference/internal/application/orchestrators"
	"conference/internal/config"
	"conference/internal/domain/outbox"
	"conference/internal/domain/pricing"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server_exit", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogger(cfg)

	rates, err := config.LoadRates(cfg.RatesFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := perf.NewCollector(perf.DefaultRingSize)
	metrics := web.NewMetrics()

	stores, ping, closeStores, err := openStores(ctx, cfg, collector)
	if err != nil {
		return err
	}
	defer closeStores()

	fx := currency.NewConverter(currency.Options{
		URL:        cfg.FXURL,
		Fallback:   cfg.FXFallback,
		TTL:        cfg.FXTTL,
		Client:     outboundClient(collector, "fx", 3*time.Second, 2),
		Cache:      fxCache(ctx, cfg),
		OnFallback: metrics.ObserveFXFallback,
	})
	calculator := pricing.NewCalculator(rates.Schedule, fx)

	var gateway payment.Gateway = payment.NewNoopGateway()
	if cfg.PaymentsEnabled() {
		// Order creation is not idempotent, so the gateway client never retries.
		gateway = payment.NewRazorpayGateway(outboundClient(collector, "razorpay", 10*time.Second, 0),
			payment.DefaultBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
		slog.Info("payment_gateway_configured", "gateway", "razorpay")
	} else if cfg.Production() {
		slog.Warn("payment_gateway_disabled", "hint", "set CONFERENCE_RAZORPAY_KEY_ID and CONFERENCE_RAZORPAY_KEY_SECRET")
	}

	var sender email.Sender = email.NewNoopSender()
	if cfg.ResendKey != "" {
		sender = email.NewResendSender(cfg.ResendKey, cfg.EmailFrom, cfg.ReplyTo)
		slog.Info("email_sender_configured", "relay", "resend")
	} else if cfg.Production() {
		slog.Warn("email_delivery_disabled", "hint", "set CONFERENCE_RESEND_KEY")
	}
	notifier := &orchestrators.Notifier{
		Sender:     sender,
		Outbox:     stores.Outbox,
		From:       cfg.EmailFrom,
		ReplyTo:    cfg.ReplyTo,
		GenerateID: uuid.NewString,
		Now:        time.Now,
		Observe:    metrics.ObserveEmail,
	}

	processor := orchestrators.NewOutboxProcessor(stores.Outbox, map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeEmail: &orchestrators.EmailExecutor{Sender: sender},
	})
	outboxStop := make(chan struct{})
	orchestrators.StartBackgroundWorker(processor, time.Minute, outboxStop)
	defer close(outboxStop)

	sessionKey, err := loadSessionKey(cfg)
	if err != nil {
		return err
	}
	csrfKey, err := web.LoadCSRFKey(cfg.CSRFKey, cfg.Production())
	if err != nil {
		return err
	}

	handler := web.NewMux(&web.Deps{
		Stores:     stores,
		Calculator: calculator,
		Catalog:    rates.Courses,
		Gateway:    gateway,
		Notifier:   notifier,
		Processor:  processor,
		Credentials: orchestrators.AdminCredentials{
			Username:     cfg.AdminUsername,
			Password:     cfg.AdminPassword,
			PasswordHash: cfg.AdminPasswordHash,
		},
		Sessions:   middleware.NewSessions(sessionKey, middleware.DefaultSessionTTL, cfg.Production()),
		Collector:  collector,
		Metrics:    metrics,
		CSRFKey:    csrfKey,
		CSRF:       middleware.CSRFOptions{Secure: cfg.Production()},
		Ping:       ping,
		GenerateID: uuid.NewString,
		Now:        time.Now,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server_starting", "version", version, "addr", cfg.Addr, "env", cfg.Env,
			"store", cfg.Store, "schema", storage.LatestSchemaVersion(), "rate_snapshots", len(rates.Schedule))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		slog.Info("server_stopping")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func setupLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Production() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h).With("service", "conference"))
}

// openStores connects the configured backend and returns its stores, a health ping and a closer.
func openStores(ctx context.Context, cfg config.Config, collector *perf.Collector) (web.Stores, func(context.Context) error, func(), error) {
	switch cfg.Store {
	case config.StoreMongo:
		client, db, err := storage.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB, collector)
		if err != nil {
			return web.Stores{}, nil, nil, err
		}
		stores := web.Stores{
			Registrations:  registrationStore.NewMongoStore(db),
			Accommodations: accommodationStore.NewMongoStore(db),
			Courses:        pccStore.NewMongoStore(db),
			Outbox:         outboxStore.NewMongoStore(db),
			Orders:         orderStore.NewMongoStore(db),
		}
		ping := func(ctx context.Context) error { return client.Ping(ctx, nil) }
		closer := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				slog.Warn("mongo_disconnect_failed", "error", err.Error())
			}
		}
		slog.Info("store_ready", "backend", "mongo", "db", cfg.MongoDB)
		return stores, ping, closer, nil

	default:
		db, err := storage.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return web.Stores{}, nil, nil, err
		}
		timed := storage.NewTimedDB(db, collector)
		stores := web.Stores{
			Registrations:  registrationStore.NewSQLiteStore(timed),
			Accommodations: accommodationStore.NewSQLiteStore(timed),
			Courses:        pccStore.NewSQLiteStore(timed),
			Outbox:         outboxStore.NewSQLiteStore(timed),
			Orders:         orderStore.NewSQLiteStore(timed),
		}
		closer := func() {
			if err := db.Close(); err != nil {
				slog.Warn("sqlite_close_failed", "error", err.Error())
			}
		}
		slog.Info("store_ready", "backend", "sqlite", "path", cfg.SQLitePath)
		return stores, timed.PingContext, closer, nil
	}
}

// fxCache shares the exchange rate across instances through Redis when configured.
// An unreachable Redis degrades to the in-process cache.
func fxCache(ctx context.Context, cfg config.Config) currency.Cache {
	if cfg.RedisAddr == "" {
		return currency.NewMemoryCache(time.Now)
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis_unavailable", "addr", cfg.RedisAddr, "error", err.Error())
		rdb.Close()
		return currency.NewMemoryCache(time.Now)
	}
	slog.Info("fx_cache_configured", "backend", "redis", "addr", cfg.RedisAddr)
	return currency.NewRedisCache(rdb)
}

func outboundClient(collector *perf.Collector, label string, timeout time.Duration, retries int) *httpclient.Client {
	c := currency.NewHTTPClient(timeout, retries)
	c.AddPlugin(perf.NewOutboundPlugin(collector, label))
	return c
}

// loadSessionKey returns the JWT signing key. Development gets a per-process random key.
func loadSessionKey(cfg config.Config) ([]byte, error) {
	if cfg.SessionKey != "" {
		return []byte(cfg.SessionKey), nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	slog.Warn("session_key_random", "hint", "admin sessions will not survive a restart; set CONFERENCE_SESSION_KEY")
	return key, nil
}
