// Package sqlite persists the device capability table in an embedded SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sqldocs "configedit/docs/schema/sql"
	"configedit/internal/catalog"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ catalog.Store = (*Store)(nil)

// Store reads and writes the devices table.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "configedit.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(sqldocs.SQLite); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create devices table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Lookup returns the row for name.
func (s *Store) Lookup(ctx context.Context, name string) (catalog.Capability, error) {
	var c catalog.Capability
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, prefix, min_unit, max_unit, kind FROM devices WHERE name = ?`, name,
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

// Upsert validates and stores a row, replacing any row of the same name.
func (s *Store) Upsert(ctx context.Context, c catalog.Capability) error {
	if err := catalog.Check(c); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO devices(name,prefix,min_unit,max_unit,kind) VALUES(?,?,?,?,?)
		ON CONFLICT(name) DO UPDATE SET prefix=excluded.prefix, min_unit=excluded.min_unit,
		max_unit=excluded.max_unit, kind=excluded.kind`,
		c.Name, c.Prefix, c.Min, c.Max, string(c.Kind),
	); err != nil {
		return fmt.Errorf("upsert device %s: %w", c.Name, err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
