// Package sqlstore is the transactional persistence layer: jobs,
// dead-letter entries, worker heartbeats, and config, backed by either
// SQLite (default) or PostgreSQL. Connection setup and migration
// management use a driver-selectable DBConfig, a pooled *sql.DB, and
// goose running embedded migrations, with hand-written database/sql
// queries in place of a generated query layer.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/vishnusrinivas00/queuectl/internal/clock"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DBConfig holds database connection configuration.
type DBConfig struct {
	Driver          string // "sqlite" (default) or "pgx"
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Clock           clock.Clock // defaults to clock.Real{}
}

// Open opens a database connection per cfg, runs embedded migrations,
// and returns a ready-to-use Store. Running Open twice against the same
// DSN is equivalent to running it once: goose tracks applied versions,
// and config seeding only inserts defaults that are absent.
func Open(ctx context.Context, cfg DBConfig) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}

	sqlDriver := driver
	if driver == "sqlite" {
		sqlDriver = "sqlite"
	} else if driver == "pgx" {
		sqlDriver = "pgx"
	}

	db, err := sql.Open(sqlDriver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpenConns := cfg.MaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = 25
	}
	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns <= 0 {
		maxIdleConns = 5
	}
	connMaxLifetime := cfg.ConnMaxLifetime
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	connMaxIdleTime := cfg.ConnMaxIdleTime
	if connMaxIdleTime <= 0 {
		connMaxIdleTime = time.Minute
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	c := cfg.Clock
	if c == nil {
		c = clock.Real{}
	}

	store := newStore(db, driver, c)
	if err := store.seedDefaults(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed config defaults: %w", err)
	}

	return store, nil
}

func runMigrations(db *sql.DB, driver string) error {
	dialect := "sqlite3"
	if driver == "pgx" {
		dialect = "postgres"
	}

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	defer goose.SetBaseFS(nil)

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// OpenSQLite opens a SQLite-backed store at path with the pragmas the
// claim protocol relies on: WAL mode for concurrent-reader throughput
// and a busy timeout so lock contention resolves to ErrStorageUnavailable
// instead of blocking forever.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", path)
	return Open(ctx, DBConfig{Driver: "sqlite", DSN: dsn})
}

// OpenPostgres opens a PostgreSQL-backed store using connString.
func OpenPostgres(ctx context.Context, connString string) (*Store, error) {
	return Open(ctx, DBConfig{Driver: "pgx", DSN: connString})
}
