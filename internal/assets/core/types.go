// Package core defines the asset store abstraction shared by the facade in
// internal/assets and the backends under internal/infra/assets.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete asset store backend.
type Driver string

const (
	// DriverFilesystem serves assets from a local directory tree.
	DriverFilesystem Driver = "fs"
	// DriverS3 serves assets from an S3 or MinIO bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps assets in process memory.
	DriverMemory Driver = "memory"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
}

// Info describes a stored asset.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store reads and writes configuration documents and calibration files by
// slash-separated key.
type Store interface {
	// Put writes r at key, replacing any existing content.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns the content at key. Missing keys yield ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Head returns metadata only. Missing keys yield ErrNotFound.
	Head(ctx context.Context, key string) (Info, error)
	// Delete removes key, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns assets whose key has prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("asset not found")
