package store

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection backing the profile's cache.db.
type DB struct {
	*sql.DB
	path string
}

// Open opens (creating if needed) the cache database at path. WAL keeps
// readers off the writer's back; the busy timeout covers the short window
// where the reconciler mirrors a snapshot while the API reads.
func Open(path string) (*DB, error) {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_synchronous", "NORMAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")

	db, err := sql.Open("sqlite3", path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open cache db %s: %w", path, err)
	}
	return &DB{DB: db, path: path}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close folds the WAL back into the main file before closing, so a copied
// cache.db is complete on its own.
func (db *DB) Close() error {
	_, _ = db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return db.DB.Close()
}
