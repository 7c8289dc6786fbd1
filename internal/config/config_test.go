package config

import (
	"log/slog"
	"testing"
	"time"
)

// --- LoadConfig ---

func TestLoadConfig(t *testing.T) {
	// Helper clears every var LoadConfig reads so tests don't inherit the shell's env
	clearEnv := func(t *testing.T) {
		t.Helper()
		for _, key := range []string{
			"MICHAME_API_URL", "LOG_LEVEL", "MICHAME_STORE", "REDIS_URL", "DATABASE_URL", "MICHAME_KEY_PREFIX",
			"MICHAME_HTTP_TIMEOUT", "PORT", "MICHAME_POLL_INTERVAL", "MICHAME_WHATSAPP_NUMBER",
			"MICHAME_FALLBACK", "MICHAME_LISTEN_ADDR",
		} {
			t.Setenv(key, "")
		}
		t.Setenv("MICHAME_HOME", t.TempDir())
	}

	t.Run("defaults API URL to the build-time value", func(t *testing.T) {
		clearEnv(t)

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.APIURL != "http://localhost:3001" {
			t.Errorf("APIURL: expected %q, got %q", "http://localhost:3001", cfg.APIURL)
		}
	})

	t.Run("strips a single trailing slash from MICHAME_API_URL", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MICHAME_API_URL", "https://api.example.com/")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.APIURL != "https://api.example.com" {
			t.Errorf("APIURL: expected %q, got %q", "https://api.example.com", cfg.APIURL)
		}
	})

	t.Run("errors on non-http API URL", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MICHAME_API_URL", "ftp://api.example.com")

		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for ftp URL, got nil")
		}
	})

	t.Run("defaults store to file", func(t *testing.T) {
		clearEnv(t)

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Store != StoreFile {
			t.Errorf("Store: expected %q, got %q", StoreFile, cfg.Store)
		}
		if cfg.KeyPrefix != "michame_" {
			t.Errorf("KeyPrefix: expected %q, got %q", "michame_", cfg.KeyPrefix)
		}
	})

	t.Run("errors when redis store has no REDIS_URL", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MICHAME_STORE", "redis")

		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for missing REDIS_URL, got nil")
		}
	})

	t.Run("accepts redis store with REDIS_URL", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MICHAME_STORE", "REDIS")
		t.Setenv("REDIS_URL", "redis://localhost:6379")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Store != StoreRedis {
			t.Errorf("Store: expected %q, got %q", StoreRedis, cfg.Store)
		}
	})

	t.Run("postgres store requires DATABASE_URL", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MICHAME_STORE", "postgres")

		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for missing DATABASE_URL, got nil")
		}

		t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/michame")
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Store != StorePostgres || cfg.DatabaseURL == "" {
			t.Errorf("expected postgres store with url, got %q %q", cfg.Store, cfg.DatabaseURL)
		}
	})

	t.Run("errors on unknown store", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MICHAME_STORE", "sqlite")

		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for unknown store, got nil")
		}
	})

	t.Run("defaults PORT to 8080", func(t *testing.T) {
		clearEnv(t)

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Port != "8080" {
			t.Errorf("Port: expected %q, got %q", "8080", cfg.Port)
		}
		if cfg.ListenAddr != "127.0.0.1" {
			t.Errorf("ListenAddr: expected loopback, got %q", cfg.ListenAddr)
		}
	})

	t.Run("MICHAME_LISTEN_ADDR opens the console to other interfaces", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MICHAME_LISTEN_ADDR", "0.0.0.0")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.ListenAddr != "0.0.0.0" {
			t.Errorf("ListenAddr: expected %q, got %q", "0.0.0.0", cfg.ListenAddr)
		}
	})

	t.Run("errors on non-numeric PORT", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "http")

		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for non-numeric PORT, got nil")
		}
	})

	t.Run("invalid poll interval falls back to default", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MICHAME_POLL_INTERVAL", "soon")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.PollInterval != 10*time.Second {
			t.Errorf("PollInterval: expected 10s, got %v", cfg.PollInterval)
		}
	})

	t.Run("HTTP timeout defaults to zero and accepts durations", func(t *testing.T) {
		clearEnv(t)

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.HTTPTimeout != 0 {
			t.Errorf("HTTPTimeout: expected 0, got %v", cfg.HTTPTimeout)
		}

		t.Setenv("MICHAME_HTTP_TIMEOUT", "15s")
		cfg, err = LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.HTTPTimeout != 15*time.Second {
			t.Errorf("HTTPTimeout: expected 15s, got %v", cfg.HTTPTimeout)
		}
	})

	t.Run("Fallback is false only when explicitly set to false", func(t *testing.T) {
		clearEnv(t)
		for _, val := range []string{"", "true", "1", "FALSE", "typo"} {
			t.Setenv("MICHAME_FALLBACK", val)

			cfg, err := LoadConfig()
			if err != nil {
				t.Fatalf("LoadConfig failed for %q: %v", val, err)
			}
			if !cfg.Fallback {
				t.Errorf("Fallback should be true for %q", val)
			}
		}

		t.Setenv("MICHAME_FALLBACK", "false")
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Fallback {
			t.Error("Fallback should be false when MICHAME_FALLBACK is \"false\"")
		}
	})

	t.Run("WhatsApp link uses configured number", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MICHAME_WHATSAPP_NUMBER", "5511999990000")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if got := cfg.WhatsAppLink(); got != "https://wa.me/5511999990000" {
			t.Errorf("WhatsAppLink: expected %q, got %q", "https://wa.me/5511999990000", got)
		}
	})
}

// --- ParseLogLevel ---

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}

// --- NormalizeBaseURL ---

func TestNormalizeBaseURL(t *testing.T) {
	t.Run("strips exactly one trailing slash", func(t *testing.T) {
		if got := NormalizeBaseURL("http://x//"); got != "http://x/" {
			t.Errorf("expected %q, got %q", "http://x/", got)
		}
	})

	t.Run("leaves URL without slash untouched", func(t *testing.T) {
		if got := NormalizeBaseURL("http://x"); got != "http://x" {
			t.Errorf("expected %q, got %q", "http://x", got)
		}
	})
}
