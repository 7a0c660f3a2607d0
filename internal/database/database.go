package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Querier is the subset of database/sql used by the services. Both *DB and
// *Tx satisfy it, so a service can run inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Rebind(query string) string
}

// DB wraps a connection pool together with the dialect it speaks.
type DB struct {
	*sql.DB
	driver string
}

// Tx is a transaction handle that keeps the dialect of its parent DB.
type Tx struct {
	*sql.Tx
	driver string
}

// Open creates a new database connection pool for the given driver.
func Open(driver, dsn string) (*DB, error) {
	var (
		sqlDB *sql.DB
		err   error
	)

	switch driver {
	case DriverSQLite:
		sqlDB, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, err
		}
		// SQLite allows a single writer; serialising through one
		// connection avoids SQLITE_BUSY under concurrent requests.
		sqlDB.SetMaxOpenConns(1)
	case DriverPostgres:
		sqlDB, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if err = sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return &DB{DB: sqlDB, driver: driver}, nil
}

// Wrap adopts an existing pool, mainly for tests backed by sqlmock.
func Wrap(db *sql.DB, driver string) *DB {
	return &DB{DB: db, driver: driver}
}

// Driver returns the dialect name.
func (db *DB) Driver() string { return db.driver }

// Rebind rewrites ? placeholders for the DB's dialect.
func (db *DB) Rebind(query string) string { return rebind(db.driver, query) }

// Rebind rewrites ? placeholders for the transaction's dialect.
func (tx *Tx) Rebind(query string) string { return rebind(tx.driver, query) }

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error or panic. Panics are rethrown.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) (err error) {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	tx := &Tx{Tx: sqlTx, driver: db.driver}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// rebind turns ? into $1, $2, ... for PostgreSQL. Placeholders inside
// single-quoted literals are left alone.
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}

	var (
		b       strings.Builder
		n       int
		inQuote bool
	)
	b.Grow(len(query) + 8)
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
