// Package storagetest opens throwaway SQLite databases for tests.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"

	"central_logger/internal/storage"
)

// NewDB returns a migrated SQLite database in t's temp dir, closed on cleanup.
func NewDB(t testing.TB) *storage.DB {
	t.Helper()

	cfg := storage.DefaultDBConfig()
	cfg.Driver = storage.DriverSQLite
	cfg.DSN = filepath.Join(t.TempDir(), "central_logger.db")

	db, err := storage.NewDB(cfg)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}
