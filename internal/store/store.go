// Package store persists users, sessions, meal plans, grocery lists and meal
// logs in PostgreSQL or SQLite through sqlx.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrNotFound is returned by updates that match no row.
var ErrNotFound = errors.New("record not found")

func init() {
	// modernc registers itself as "sqlite", which older sqlx releases do not map
	// to a bind type.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Store is the sqlx-backed persistence layer. Queries are written with ?
// placeholders and rebound for the active driver.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open connects to the database. It does not run migrations.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		// one writer at a time; concurrent connections would hit SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	return &Store{db: db, now: time.Now}, nil
}

// sqliteDSN turns on foreign keys for every connection opened from dsn.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// newID returns a time-ordered id so rows sort by insertion when ordered by id.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
