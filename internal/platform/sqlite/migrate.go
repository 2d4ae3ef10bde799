package sqlite

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // migrate driver
	_ "github.com/golang-migrate/migrate/v4/source/file"     // file:// source
)

// BuildMigrateURL turns a database file path into a golang-migrate URL,
// accounting for Windows drive letters.
func BuildMigrateURL(dbPath string) (string, error) {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return "", fmt.Errorf("sqlite: absolute path: %w", err)
	}
	p := filepath.ToSlash(abs)
	if runtime.GOOS == "windows" && len(p) >= 2 && p[1] == ':' {
		p = "/" + p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "sqlite://" + p, nil
}

// ApplyMigrations applies all pending migrations from sourceURL (for
// example "file://migrations/sqlite"). Re-running with nothing to apply is
// not an error.
func ApplyMigrations(dbPath, sourceURL string) error {
	dbURL, err := BuildMigrateURL(dbPath)
	if err != nil {
		return err
	}
	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return fmt.Errorf("sqlite: create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: apply migrations: %w", err)
	}
	return nil
}
