// Package sqlstore implements db.Store over database/sql for PostgreSQL
// (lib/pq) and SQLite (modernc.org/sqlite).
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/kailas-cloud/marketsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

//go:embed schema.sql
var schema string

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds connection parameters.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// ConnectTimeout bounds the retry loop in Open.
	ConnectTimeout time.Duration
}

// Store is a database/sql backed store.
type Store struct {
	db      *sql.DB
	dialect dialect
	log     *zap.Logger
}

// Open connects with exponential backoff until ConnectTimeout elapses.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	conn, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, &db.Error{Op: db.OpConnect, Err: err}
	}
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	s := &Store{db: conn, dialect: d, log: log}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if err := s.WaitForReady(ctx, timeout); err != nil {
		_ = conn.Close()
		return nil, err
	}
	log.Info("database connection established", zap.String("driver", cfg.Driver))
	return s, nil
}

// NewStoreForTest wraps an existing handle (test-only).
func NewStoreForTest(conn *sql.DB, driver string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &Store{db: conn, dialect: d, log: zap.NewNop()}, nil
}

// ApplySchema creates the marketplace tables if they do not exist.
func (s *Store) ApplySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// DB exposes the handle for seeding in tests and tooling.
func (s *Store) DB() *sql.DB { return s.db }

// Select renders the query for the store's dialect and scans all rows.
func (s *Store) Select(ctx context.Context, q *db.Query) ([]db.Row, error) {
	stmt, args, err := render(s.dialect, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}

	var out []db.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		row := make(db.Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return out, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close closes the handle.
func (s *Store) Close() {
	if err := s.db.Close(); err != nil {
		s.log.Warn("close database", zap.Error(err))
	}
}

// WaitForReady retries Ping with exponential backoff until timeout.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = timeout

	attempt := 0
	op := func() error {
		attempt++
		err := s.Ping(ctx)
		if err != nil {
			s.log.Warn("database not ready", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("timeout waiting for database: %w", err)
	}
	return nil
}
