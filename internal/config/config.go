// config.go

// Environment variable loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIURL is the backend base URL baked in at build time:
//
//	go build -ldflags "-X github.com/michame/console/internal/config.DefaultAPIURL=https://api.michame.com.br"
//
// MICHAME_API_URL overrides it at runtime.
var DefaultAPIURL = "http://localhost:3001"

// Credential store backends.
const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds all env configuration vars for the console.
type Config struct {
	// APIURL is the backend base URL with any trailing slash already stripped.
	APIURL   string
	LogLevel slog.Level

	// Credential storage. Store is one of StoreFile, StoreRedis, StorePostgres, StoreMemory.
	Store       string
	Home        string // directory for the file store
	RedisURL    string // required when Store == StoreRedis
	DatabaseURL string // required when Store == StorePostgres
	KeyPrefix   string

	// HTTPTimeout bounds each backend call. Zero leaves the transport default in place.
	HTTPTimeout time.Duration

	// Web console. ListenAddr is the interface the console binds; it defaults to
	// loopback because the console acts with the signed-in operator's token.
	ListenAddr     string
	Port           string
	PollInterval   time.Duration
	WhatsAppNumber string

	// Fallback enables static fixtures when the backend is unreachable.
	// Default true; set MICHAME_FALLBACK=false to surface errors instead.
	Fallback bool
}

// LoadConfig reads environment variables and returns a validated Config.
// Returns an error if MICHAME_STORE is unknown or a networked store lacks its URL.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	apiURL := os.Getenv("MICHAME_API_URL")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	cfg.APIURL = NormalizeBaseURL(apiURL)
	if !strings.HasPrefix(cfg.APIURL, "http://") && !strings.HasPrefix(cfg.APIURL, "https://") {
		return nil, fmt.Errorf("MICHAME_API_URL must start with http:// or https://")
	}

	cfg.LogLevel = ParseLogLevel(os.Getenv("LOG_LEVEL"))

	cfg.Store = strings.ToLower(os.Getenv("MICHAME_STORE"))
	if cfg.Store == "" {
		cfg.Store = StoreFile
	}
	switch cfg.Store {
	case StoreFile, StoreMemory:
	case StoreRedis:
		cfg.RedisURL = os.Getenv("REDIS_URL")
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when MICHAME_STORE=redis")
		}
	case StorePostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when MICHAME_STORE=postgres")
		}
	default:
		return nil, fmt.Errorf("MICHAME_STORE must be one of file, redis, postgres, memory (got %q)", cfg.Store)
	}

	cfg.Home = os.Getenv("MICHAME_HOME")
	if cfg.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		cfg.Home = filepath.Join(home, ".michame")
	}

	cfg.KeyPrefix = os.Getenv("MICHAME_KEY_PREFIX")
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "michame_"
	}

	// Zero is a legal value here, so this one can't go through envDuration.
	if v := os.Getenv("MICHAME_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			slog.Warn("invalid env var, using default", "key", "MICHAME_HTTP_TIMEOUT", "value", v, "default", 0)
		} else {
			cfg.HTTPTimeout = d
		}
	}

	cfg.ListenAddr = os.Getenv("MICHAME_LISTEN_ADDR")
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1"
	}

	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("PORT must be numeric (got %q)", cfg.Port)
	}

	cfg.PollInterval = envDuration("MICHAME_POLL_INTERVAL", 10*time.Second)

	cfg.WhatsAppNumber = os.Getenv("MICHAME_WHATSAPP_NUMBER")
	if cfg.WhatsAppNumber == "" {
		cfg.WhatsAppNumber = "5519992753360"
	}

	// Default true -- only explicit "false" disables.
	cfg.Fallback = os.Getenv("MICHAME_FALLBACK") != "false"

	return cfg, nil
}

// NormalizeBaseURL strips one trailing slash. Called once at configuration time;
// request paths are appended verbatim afterwards.
func NormalizeBaseURL(raw string) string {
	return strings.TrimSuffix(strings.TrimSpace(raw), "/")
}

// ParseLogLevel maps debug/warn/error to slog levels, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WhatsAppLink returns the wa.me deep link used by every call-to-action.
func (c *Config) WhatsAppLink() string {
	return "https://wa.me/" + c.WhatsAppNumber
}

// envDuration reads an env var as time.Duration, returning def if missing or unparseable.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}
