// Package cache implements the local cache: a small key/value store in an
// embedded SQLite database holding the current board, the two legacy board
// generations and the saved cloud configuration.
//
// Architecture:
//   - Database file: <data_dir>/cache.db
//   - WAL mode: the dashboard and CLI may read while a save is in flight
//   - Schema: one kv table, values are raw JSON
//
// The current board lives under KeyCurrent and is the only key the save
// pipeline writes. KeyV2 and KeyV1 are read for migration only.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/mschirtzinger/flowboard/internal/backend"
	"github.com/mschirtzinger/flowboard/internal/migrate"
	"github.com/mschirtzinger/flowboard/internal/schema"
)

// Storage keys.
const (
	KeyCurrent     = "project-board-v3"
	KeyV2          = "project-board-v2"
	KeyV1          = "project-board-v1"
	KeyCloudConfig = "cloud-config"
)

// Name is the backend name of the local cache.
const Name = "local"

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens the cache database at path and initializes its schema.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	c, err := cache.Open(".flowboard/cache.db")
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping cache: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close cache: %w", err)
	}
	db.conn = nil
	return nil
}

// InitSchema creates the kv table if it doesn't exist. Idempotent.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the kv table with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`
	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Get returns the raw value stored under key. A missing key returns an error
// wrapping backend.ErrNoData.
func (db *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", key, backend.ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return []byte(value), nil
}

// Put stores value under key, replacing any previous value.
func (db *DB) Put(ctx context.Context, key string, value []byte) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (db *DB) Delete(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Entry describes one stored key.
type Entry struct {
	Key       string
	Size      int
	UpdatedAt time.Time
}

// Entries lists every stored key, sorted by key.
func (db *DB) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT key, length(value), updated_at FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var updated string
		if err := rows.Scan(&e.Key, &e.Size, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return entries, nil
}

// Legacy implements migrate.LegacySource.
func (db *DB) Legacy(ctx context.Context, v migrate.Version) ([]byte, error) {
	switch v {
	case migrate.V1:
		return db.Get(ctx, KeyV1)
	case migrate.V2:
		return db.Get(ctx, KeyV2)
	case migrate.V3:
		return db.Get(ctx, KeyCurrent)
	default:
		return nil, fmt.Errorf("unknown document version %d", v)
	}
}

// Name implements backend.Backend.
func (db *DB) Name() string {
	return Name
}

// Read implements backend.Backend by decoding the current board. A value that
// does not parse as a JSON object is reported as backend.ErrMalformed.
func (db *DB) Read(ctx context.Context) (*schema.Document, error) {
	data, err := db.Get(ctx, KeyCurrent)
	if err != nil {
		return nil, err
	}
	doc, err := schema.Decode(data)
	if err != nil {
		return nil, backend.Wrap(Name, "read", backend.ErrMalformed, err)
	}
	return doc, nil
}

// Write implements backend.Backend by storing doc as the current board.
func (db *DB) Write(ctx context.Context, doc *schema.Document) error {
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	if err := db.Put(ctx, KeyCurrent, data); err != nil {
		return backend.Wrap(Name, "write", backend.ErrRejected, err)
	}
	return nil
}
