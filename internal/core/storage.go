package core

import (
	"context"
	"fmt"

	"configedit/internal/catalog"
	"configedit/internal/config"
	"configedit/internal/infra/persistence/memory"
	"configedit/internal/infra/persistence/postgres"
	"configedit/internal/infra/persistence/sqlite"

	"github.com/rs/zerolog"
)

// StorageDriver identifies a device capability table backend.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // default table, not persisted
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// CapabilityStore is a device capability table and the function releasing
// its resources.
type CapabilityStore struct {
	catalog.Store
	close func() error
}

// Close releases the backend.
func (s CapabilityStore) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenCapabilityStore opens the backend selected by cfg. An empty table is
// seeded with the default device list.
func OpenCapabilityStore(ctx context.Context, cfg config.Storage, logger zerolog.Logger) (CapabilityStore, error) {
	var out CapabilityStore
	switch StorageDriver(cfg.Driver) {
	case "", StorageMemory:
		return CapabilityStore{Store: memory.NewStore(catalog.Defaults()...)}, nil
	case StorageSQLite:
		s, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return out, err
		}
		out = CapabilityStore{Store: s, close: s.Close}
	case StoragePostgres:
		s, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return out, err
		}
		out = CapabilityStore{Store: s, close: s.Close}
	default:
		return out, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}

	rows, err := out.List(ctx)
	if err != nil {
		_ = out.Close()
		return CapabilityStore{}, fmt.Errorf("list devices: %w", err)
	}
	if len(rows) == 0 {
		if err := catalog.Seed(ctx, out, catalog.Defaults()); err != nil {
			_ = out.Close()
			return CapabilityStore{}, fmt.Errorf("seed devices: %w", err)
		}
		logger.Info().Str("driver", cfg.Driver).Int("rows", len(catalog.Defaults())).Msg("seeded device table")
	}
	return out, nil
}
