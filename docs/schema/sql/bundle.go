// Package sqldocs exposes the device capability table DDL directly from the
// docs tree so the stores and the documentation cannot drift apart.
package sqldocs

import _ "embed"

// SQLite contains the SQLite DDL of the devices table.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the Postgres DDL of the devices table.
//
//go:embed postgres.sql
var Postgres string
