// Package config loads runtime settings from the environment and the rate snapshot file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrUnknownStore     = errors.New("CONFERENCE_STORE must be sqlite or mongo")
	ErrSessionKeyShort  = errors.New("CONFERENCE_SESSION_KEY must be at least 32 bytes in production")
	ErrAdminCredentials = errors.New("CONFERENCE_ADMIN_PASSWORD or CONFERENCE_ADMIN_PASSWORD_HASH is required in production")
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// Config is the full set of process settings.
type Config struct {
	Addr     string
	Env      string
	LogLevel slog.Level

	Store      string
	SQLitePath string
	MongoURI   string
	MongoDB    string
	RedisAddr  string

	FXURL      string
	FXTTL      time.Duration
	FXFallback float64

	RazorpayKeyID     string
	RazorpayKeySecret string

	ResendKey string
	EmailFrom string
	ReplyTo   string

	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string
	SessionKey        string
	CSRFKey           string

	RatesFile string
}

// Production reports whether the process runs with production settings.
func (c Config) Production() bool {
	return c.Env == "production"
}

// Load reads an optional .env file and then the environment.
// A missing .env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from CONFERENCE_* variables with development defaults.
// POST: Returns a validated Config or the first validation error
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:              envOrDefault("CONFERENCE_ADDR", ":8080"),
		Env:               envOrDefault("CONFERENCE_ENV", "development"),
		LogLevel:          parseLevel(os.Getenv("CONFERENCE_LOG_LEVEL")),
		Store:             strings.ToLower(envOrDefault("CONFERENCE_STORE", StoreSQLite)),
		SQLitePath:        envOrDefault("CONFERENCE_SQLITE_PATH", "conference.db"),
		MongoURI:          envOrDefault("CONFERENCE_MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:           envOrDefault("CONFERENCE_MONGO_DB", "conference"),
		RedisAddr:         os.Getenv("CONFERENCE_REDIS_ADDR"),
		FXURL:             envOrDefault("CONFERENCE_FX_URL", "https://api.exchangerate-api.com/v4/latest/USD"),
		RazorpayKeyID:     os.Getenv("CONFERENCE_RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("CONFERENCE_RAZORPAY_KEY_SECRET"),
		ResendKey:         os.Getenv("CONFERENCE_RESEND_KEY"),
		EmailFrom:         envOrDefault("CONFERENCE_EMAIL_FROM", "IADR-APR 2025 <noreply@iadrapr2025.org>"),
		ReplyTo:           envOrDefault("CONFERENCE_REPLY_TO", "info@iadrapr2025.org"),
		AdminUsername:     envOrDefault("CONFERENCE_ADMIN_USERNAME", "admin"),
		AdminPassword:     os.Getenv("CONFERENCE_ADMIN_PASSWORD"),
		AdminPasswordHash: os.Getenv("CONFERENCE_ADMIN_PASSWORD_HASH"),
		SessionKey:        os.Getenv("CONFERENCE_SESSION_KEY"),
		CSRFKey:           os.Getenv("CONFERENCE_CSRF_KEY"),
		RatesFile:         os.Getenv("CONFERENCE_RATES_FILE"),
	}

	var err error
	if cfg.FXTTL, err = parseDuration("CONFERENCE_FX_TTL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.FXFallback, err = parseFloat("CONFERENCE_FX_FALLBACK", 75); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.Store != StoreSQLite && c.Store != StoreMongo {
		return ErrUnknownStore
	}
	if c.Production() {
		if len(c.SessionKey) < 32 {
			return ErrSessionKeyShort
		}
		if c.AdminPassword == "" && c.AdminPasswordHash == "" {
			return ErrAdminCredentials
		}
	}
	return nil
}

// PaymentsEnabled reports whether gateway credentials are configured.
func (c Config) PaymentsEnabled() bool {
	return c.RazorpayKeyID != "" && c.RazorpayKeySecret != ""
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if f <= 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}
	return f, nil
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
