package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema migrations for the DB's dialect.
func Migrate(ctx context.Context, db *DB) error {
	var dialect, dir string
	switch db.driver {
	case DriverSQLite:
		dialect, dir = "sqlite3", "migrations/sqlite"
	case DriverPostgres:
		dialect, dir = "postgres", "migrations/postgres"
	default:
		return fmt.Errorf("no migrations for driver %q", db.driver)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db.DB, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
