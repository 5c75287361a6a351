// Package store provides the shared SQLite database handle and the
// error taxonomy used by the Sprintline stores.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// Sentinel errors shared by all stores. Stores wrap these with detail
// via fmt.Errorf("%w: ..."); callers match with errors.Is.
var (
	// ErrNotFound means a referenced task, sprint, project, status, or
	// user does not exist. Never retried.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the request itself is invalid (missing field,
	// duplicate name, active sprint already exists). Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrConflict means a concurrent writer won a race (duplicate task
	// key, simultaneous sprint activation). Safe to retry a bounded
	// number of times.
	ErrConflict = errors.New("conflict")
)

// Open opens (or creates) the SQLite database at dbPath. The parent
// directory is created if missing. The connection pool is capped at a
// single connection: every transaction runs serialized, which is what
// makes "latest ledger row" and the sprint activation guard race-free.
// The caller is responsible for calling Close.
func Open(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", dbPath, err)
	}
	return db, nil
}
