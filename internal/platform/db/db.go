package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"signal-simulation-service/internal/domain"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open opens the tower store and verifies it answers within probeTimeout.
// An unreachable store is reported as domain.ErrStoreUnreachable.
func Open(ctx context.Context, driver, dsn string, probeTimeout time.Duration) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch driver {
	case DriverPostgres:
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("openDB: open postgres database: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	case DriverSQLite:
		db, err = openSQLite(dsn)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("openDB: unsupported driver %q", driver)
	}

	if err := Probe(ctx, db, probeTimeout); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("openDB: %w", err)
	}

	return db, nil
}

// Probe pings the store with a bounded timeout.
func Probe(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnreachable, err)
	}
	return nil
}

// SQLiteDSN builds a modernc sqlite DSN for a file path. Transactions start
// IMMEDIATE so concurrent initializers serialize on the write lock.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func openSQLite(dsn string) (*sql.DB, error) {
	if path := sqlitePath(dsn); path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("openDB: create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("openDB: open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}

func sqlitePath(dsn string) string {
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	return path
}
