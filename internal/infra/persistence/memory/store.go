// Package memory provides an in-memory device capability store used for
// tests and ephemeral sessions.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"configedit/internal/catalog"
)

var _ catalog.Store = (*Store)(nil)

// Store keeps capability rows in a map keyed by name.
type Store struct {
	mu   sync.RWMutex
	rows map[string]catalog.Capability
}

// NewStore constructs a store holding the given rows.
func NewStore(seed ...catalog.Capability) *Store {
	s := &Store{rows: make(map[string]catalog.Capability, len(seed))}
	for _, c := range seed {
		s.rows[c.Name] = c
	}
	return s
}

// Lookup returns the row for name.
func (s *Store) Lookup(_ context.Context, name string) (catalog.Capability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.rows[name]
	if !ok {
		return catalog.Capability{}, fmt.Errorf("%s: %w", name, catalog.ErrUnknownDevice)
	}
	return c, nil
}

// List returns every row ordered by name.
func (s *Store) List(_ context.Context) ([]catalog.Capability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Capability, 0, len(s.rows))
	for _, c := range s.rows {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Upsert validates and stores a row, replacing any row of the same name.
func (s *Store) Upsert(_ context.Context, c catalog.Capability) error {
	if err := catalog.Check(c); err != nil {
		return err
	}
	s.mu.Lock()
	s.rows[c.Name] = c
	s.mu.Unlock()
	return nil
}
