// Package pgstore keeps the serialized collection in a PostgreSQL key/value
// table.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sundayezeilo/shortlinks/internal/errx"
	"github.com/sundayezeilo/shortlinks/internal/shortener"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// DBTX is the subset of *pgxpool.Pool and pgx.Tx the store needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db  DBTX
	key string
}

// New returns a store over db. key names the row the collection is stored
// under; empty selects shortener.StorageKey.
func New(db DBTX, key string) *Store {
	if key == "" {
		key = shortener.StorageKey
	}
	return &Store{db: db, key: key}
}

// Connect opens a pool for dsn, verifies it and creates the kv table.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	const op = "pgstore.Connect"

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errx.E(op, errx.Invalid, fmt.Errorf("failed to parse database config: %w", err))
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, fmt.Errorf("failed to create connection pool: %w", err))
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errx.E(op, errx.Unavailable, fmt.Errorf("failed to ping database: %w", err))
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Migrate creates the kv table if it does not exist.
func Migrate(ctx context.Context, db DBTX) error {
	const op = "pgstore.Migrate"

	if _, err := db.Exec(ctx, schema); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) ([]shortener.Link, error) {
	const op = "pgstore.Load"

	var data []byte
	err := s.db.QueryRow(ctx, `SELECT value FROM kv WHERE key = $1`, s.key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return []shortener.Link{}, nil
	}
	if err != nil {
		return nil, mapError(op, err)
	}

	links, err := shortener.DecodeLinks(data)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

func (s *Store) Save(ctx context.Context, links []shortener.Link) error {
	const op = "pgstore.Save"

	data, err := shortener.EncodeLinks(links)
	if err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		s.key, string(data))
	if err != nil {
		return mapError(op, err)
	}
	return nil
}

// mapError classifies driver errors. Invalid JSON rejected by the server
// (SQLSTATE 22P02) means the blob itself is bad.
func mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return errx.E(op, errx.Corrupt, err)
	}
	return errx.E(op, errx.Unavailable, err)
}
