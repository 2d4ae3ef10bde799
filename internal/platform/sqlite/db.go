// Package sqlite opens and migrates the embedded SQLite database used for
// the attempt journal on single-box installs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // database/sql driver
)

// Options holds SQLite connection settings.
type Options struct {
	// BusyTimeout is how long a writer waits on SQLITE_BUSY.
	BusyTimeout time.Duration
	// WALMode enables write-ahead logging.
	WALMode bool
	// ForeignKeys enables foreign key enforcement.
	ForeignKeys bool
	// MaxOpenConns caps the pool; SQLite has a single writer, keep it small.
	MaxOpenConns int
	// PingTimeout bounds the connectivity check on open.
	PingTimeout time.Duration
}

// DefaultOptions returns settings tuned for embedded use.
func DefaultOptions() Options {
	return Options{
		BusyTimeout:  5 * time.Second,
		WALMode:      true,
		ForeignKeys:  true,
		MaxOpenConns: 4,
		PingTimeout:  5 * time.Second,
	}
}

// Open creates the parent directory if needed and opens the database with
// default options.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	return OpenWithOptions(ctx, path, DefaultOptions())
}

// OpenWithOptions opens the database at path with the given settings.
func OpenWithOptions(ctx context.Context, path string, opts Options) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", buildDSN(path, opts))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if opts.WALMode {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}
	if opts.ForeignKeys {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return db, nil
}

// buildDSN appends connection parameters to the file path.
func buildDSN(path string, opts Options) string {
	params := url.Values{}
	if opts.BusyTimeout > 0 {
		params.Set("_busy_timeout", fmt.Sprintf("%d", opts.BusyTimeout.Milliseconds()))
	}
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}
