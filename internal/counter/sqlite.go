package counter

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore persists counters so sequence numbers survive restarts.
// The increment is a single upsert statement, which SQLite serializes, so
// concurrent callers get distinct consecutive values.
type SQLiteStore struct {
	db     *sql.DB
	ownsDB bool
}

// NewSQLiteStore opens (or creates) a counter database at dbPath.
// Pass ":memory:" for an ephemeral store in tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("counter: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("counter: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS counters (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("counter: create table: %w", err)
	}

	return &SQLiteStore{db: db, ownsDB: true}, nil
}

// NewSQLiteStoreFromDB wraps an existing database handle, letting the item
// store and the counters share one file. The caller keeps ownership of the
// handle; Close becomes a no-op.
func NewSQLiteStoreFromDB(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS counters (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("counter: create table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Next implements Store.
func (s *SQLiteStore) Next(ctx context.Context, key string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO counters (key, value) VALUES (?, 1)
		 ON CONFLICT(key) DO UPDATE SET value = value + 1
		 RETURNING value`, key).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("counter: increment %s: %w", key, err)
	}
	return value, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
