// Package postgres persists the device capability table in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	sqldocs "configedit/docs/schema/sql"
	"configedit/internal/catalog"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ catalog.Store = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/configedit?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store reads and writes the devices table.
type Store struct {
	db *sql.DB
}

// NewStore connects using dsn (falling back to a local default) and ensures
// the devices table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqldocs.Postgres); err != nil {
		return nil, fmt.Errorf("ensure devices table: %w", err)
	}
	return &Store{db: db}, nil
}

// Lookup returns the row for name.
func (s *Store) Lookup(ctx context.Context, name string) (catalog.Capability, error) {
	var c catalog.Capability
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, prefix, min_unit, max_unit, kind FROM devices WHERE name = $1`, name,
	).Scan(&c.Name, &c.Prefix, &c.Min, &c.Max, &kind)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Capability{}, fmt.Errorf("%s: %w", name, catalog.ErrUnknownDevice)
	}
	if err != nil {
		return catalog.Capability{}, fmt.Errorf("select device %s: %w", name, err)
	}
	c.Kind = catalog.Kind(kind)
	return c, nil
}

// List returns every row ordered by name.
func (s *Store) List(ctx context.Context) ([]catalog.Capability, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, prefix, min_unit, max_unit, kind FROM devices ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select devices: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []catalog.Capability
	for rows.Next() {
		var c catalog.Capability
		var kind string
		if err := rows.Scan(&c.Name, &c.Prefix, &c.Min, &c.Max, &kind); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		c.Kind = catalog.Kind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Upsert validates and stores a row inside a transaction.
func (s *Store) Upsert(ctx context.Context, c catalog.Capability) (retErr error) {
	if err := catalog.Check(c); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO devices (name, prefix, min_unit, max_unit, kind) VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (name) DO UPDATE SET prefix = EXCLUDED.prefix, min_unit = EXCLUDED.min_unit,
		max_unit = EXCLUDED.max_unit, kind = EXCLUDED.kind`,
		c.Name, c.Prefix, c.Min, c.Max, string(c.Kind),
	); err != nil {
		return fmt.Errorf("upsert device %s: %w", c.Name, err)
	}
	return tx.Commit()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
