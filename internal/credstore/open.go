// open.go -- Builds the Store selected by config.
package credstore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/michame/console/internal/config"
)

// Open returns the Store for cfg.Store plus a close func for the backend.
// For the file store, backend is also returned so callers can Watch it.
func Open(ctx context.Context, cfg *config.Config) (*Store, Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case config.StoreMemory:
		b := NewMemoryBackend()
		return New(b, cfg.KeyPrefix), b, noop, nil

	case config.StoreRedis:
		b, err := NewRedisBackend(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return New(b, cfg.KeyPrefix), b, b.Close, nil

	case config.StorePostgres:
		b, err := NewPostgresBackend(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return New(b, cfg.KeyPrefix), b, b.Close, nil

	case config.StoreFile, "":
		b, err := NewFileBackend(filepath.Clean(cfg.Home))
		if err != nil {
			return nil, nil, nil, err
		}
		return New(b, cfg.KeyPrefix), b, noop, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown credential store %q", cfg.Store)
	}
}
