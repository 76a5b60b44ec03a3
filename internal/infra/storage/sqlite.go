// Package storage provides the SQLite-backed key-value store used for persisted state.
package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	zlog "github.com/rs/zerolog/log"
)

// ErrPersistence marks failures reading or writing persisted state.
var ErrPersistence = errors.New("persistence error")

// ErrKeyNotFound is returned by Get when the key has no value.
var ErrKeyNotFound = errors.New("key not found")

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// DB is a flat key-value table.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and initializes the schema.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create storage directory")
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open storage database")
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	d, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	zlog.Info().Msgf("storage: database opened: path=%s", path)
	return d, nil
}

// New wraps an existing connection and initializes the schema.
func New(db *sql.DB) (*DB, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "failed to initialize schema")
	}
	return &DB{db: db}, nil
}

// Get returns the value stored under key.
func (d *DB) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", errors.Mark(errors.Wrapf(err, "failed to get %q", key), ErrPersistence)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (d *DB) Set(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "failed to set %q", key), ErrPersistence)
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}
