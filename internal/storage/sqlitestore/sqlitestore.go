// Package sqlitestore keeps the serialized collection in a key/value table in
// SQLite. Local files use modernc.org/sqlite; libsql:// and wss:// URLs go to
// a remote libsql server.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"github.com/sundayezeilo/shortlinks/internal/errx"
	"github.com/sundayezeilo/shortlinks/internal/shortener"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

type Store struct {
	db  *sql.DB
	key string
}

// DriverFor picks the database/sql driver for dsn.
func DriverFor(dsn string) string {
	if strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://") {
		return "libsql"
	}
	return "sqlite"
}

// Open connects to dsn and creates the kv table if needed. key names the row
// the collection is stored under; empty selects shortener.StorageKey.
func Open(ctx context.Context, dsn, key string) (*Store, error) {
	const op = "sqlitestore.Open"

	db, err := sql.Open(DriverFor(dsn), dsn)
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}

	if DriverFor(dsn) == "sqlite" {
		// One writer; modernc serialises on the file lock anyway.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errx.E(op, errx.Unavailable, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errx.E(op, errx.Unavailable, fmt.Errorf("create kv table: %w", err))
	}

	return New(db, key), nil
}

// New wraps an existing database that already has the kv table.
func New(db *sql.DB, key string) *Store {
	if key == "" {
		key = shortener.StorageKey
	}
	return &Store{db: db, key: key}
}

func (s *Store) Load(ctx context.Context) ([]shortener.Link, error) {
	const op = "sqlitestore.Load"

	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, s.key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return []shortener.Link{}, nil
	}
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}

	links, err := shortener.DecodeLinks(data)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

func (s *Store) Save(ctx context.Context, links []shortener.Link) error {
	const op = "sqlitestore.Save"

	data, err := shortener.EncodeLinks(links)
	if err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.key, data)
	if err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
