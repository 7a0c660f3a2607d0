// Package dbtest provides migrated throwaway databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/isdelr/resumai-be/internal/database"
)

// NewSQLite opens a migrated SQLite database in a temp dir that is removed
// when the test ends.
func NewSQLite(tb testing.TB) *database.DB {
	tb.Helper()

	db, err := database.Open(database.DriverSQLite, filepath.Join(tb.TempDir(), "test.db"))
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { db.Close() })

	if err := database.Migrate(context.Background(), db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}
