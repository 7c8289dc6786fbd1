// Package credstore persists what the console knows about the current session
// across process restarts: access token, refresh token, and the last-known user.
//
// credstore.go -- Keyed credential store over a pluggable string backend.
// The three entries live under fixed keys (<prefix>access_token, <prefix>refresh_token,
// <prefix>user) so any process sharing the backend sees the same session.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/michame/console/internal/models"
)

// ErrNotFound is returned by Backend.Get when the key is absent.
// Callers use errors.Is to tell a miss from a backend failure.
var ErrNotFound = errors.New("credential not found")

// Key suffixes appended to the configured prefix.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// DefaultPrefix namespaces keys when no prefix is configured.
const DefaultPrefix = "michame_"

// Backend is a flat string key/value store.
// Satisfied by *MemoryBackend, *FileBackend, *RedisBackend and *PostgresBackend.
type Backend interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set overwrites the value for key.
	Set(ctx context.Context, key, value string) error

	// Delete removes keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// Store is the single source of truth for locally known session state.
// Reads never fail: a missing, unreadable or malformed entry reads as absent.
type Store struct {
	backend Backend
	prefix  string
}

// New wraps backend with the fixed credential keys under prefix.
// An empty prefix falls back to DefaultPrefix.
func New(backend Backend, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{backend: backend, prefix: prefix}
}

// Key returns the full backend key for a suffix.
func (s *Store) Key(suffix string) string {
	return s.prefix + suffix
}

// AccessToken returns the stored access token, or "" when absent.
func (s *Store) AccessToken(ctx context.Context) string {
	return s.read(ctx, KeyAccessToken)
}

// RefreshToken returns the stored refresh token, or "" when absent.
func (s *Store) RefreshToken(ctx context.Context) string {
	return s.read(ctx, KeyRefreshToken)
}

// SetTokens overwrites both tokens. Tokens are set and cleared together: if the
// second write fails the first is rolled back so no half-written pair remains.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	if err := s.backend.Set(ctx, s.Key(KeyAccessToken), access); err != nil {
		return fmt.Errorf("storing access token: %w", err)
	}
	if err := s.backend.Set(ctx, s.Key(KeyRefreshToken), refresh); err != nil {
		if delErr := s.backend.Delete(ctx, s.Key(KeyAccessToken)); delErr != nil {
			slog.Warn("credstore: rollback of access token failed", "error", delErr)
		}
		return fmt.Errorf("storing refresh token: %w", err)
	}
	return nil
}

// SetAccessToken replaces only the access token. Used after a refresh,
// which does not rotate the refresh token.
func (s *Store) SetAccessToken(ctx context.Context, access string) error {
	if err := s.backend.Set(ctx, s.Key(KeyAccessToken), access); err != nil {
		return fmt.Errorf("storing access token: %w", err)
	}
	return nil
}

// User returns the cached profile, or nil when absent or unparseable.
func (s *Store) User(ctx context.Context) *models.UserProfile {
	raw := s.read(ctx, KeyUser)
	if raw == "" {
		return nil
	}
	var u models.UserProfile
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		slog.Warn("credstore: ignoring malformed cached user", "error", err)
		return nil
	}
	return &u
}

// SetUser caches the profile as JSON.
func (s *Store) SetUser(ctx context.Context, u models.UserProfile) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshaling user: %w", err)
	}
	if err := s.backend.Set(ctx, s.Key(KeyUser), string(data)); err != nil {
		return fmt.Errorf("storing user: %w", err)
	}
	return nil
}

// Clear removes all three entries. Idempotent.
func (s *Store) Clear(ctx context.Context) error {
	err := s.backend.Delete(ctx, s.Key(KeyAccessToken), s.Key(KeyRefreshToken), s.Key(KeyUser))
	if err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return nil
}

// read returns the value for suffix, or "" on miss or backend failure.
// Backend failures are logged; a miss is silent.
func (s *Store) read(ctx context.Context, suffix string) string {
	v, err := s.backend.Get(ctx, s.Key(suffix))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("credstore: read failed, treating as absent", "key", s.Key(suffix), "error", err)
		}
		return ""
	}
	return v
}
