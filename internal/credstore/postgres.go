// postgres.go -- pgxpool backend for consoles that already run next to a Postgres.
//
// Same contract as the Redis backend: one row per key, no expiry.
// All queries use parameterized statements (no string concatenation).
package credstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsDir embed.FS

// PostgresBackend stores credentials in the console_credentials table.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend creates a verified connection pool and applies pending migrations.
// The returned backend is safe for concurrent use.
func NewPostgresBackend(ctx context.Context, databaseURL string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	p := &PostgresBackend{pool: pool}
	migrations, err := fs.Sub(migrationsDir, "migrations")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("accessing embedded migrations: %w", err)
	}
	if err := p.Migrate(ctx, migrations); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Close shuts down the connection pool.
func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresBackend) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := p.pool.QueryRow(ctx, "SELECT value FROM console_credentials WHERE key = $1", key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres get %s: %w", key, err)
	}
	return v, nil
}

func (p *PostgresBackend) Set(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO console_credentials (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("postgres set %s: %w", key, err)
	}
	return nil
}

// Delete removes all keys in one statement so Clear is atomic.
func (p *PostgresBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := p.pool.Exec(ctx, "DELETE FROM console_credentials WHERE key = ANY($1)", keys); err != nil {
		return fmt.Errorf("postgres delete: %w", err)
	}
	return nil
}
