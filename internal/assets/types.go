// Package assets is the only entry point to the asset store backends. Other
// packages depend on assets.Store and never import internal/infra/assets.
package assets

import (
	"configedit/internal/assets/core"
)

type (
	// Driver identifies an asset backend.
	Driver = core.Driver
	// PutOptions configures a write.
	PutOptions = core.PutOptions
	// Info describes stored asset metadata.
	Info = core.Info
	// Store is the interface for asset backends.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// ErrNotFound reports a missing key.
var ErrNotFound = core.ErrNotFound
