package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"configedit/internal/infra/assets/fs"
	memorystore "configedit/internal/infra/assets/memory"
	infraS3 "configedit/internal/infra/assets/s3"
)

// S3Config re-exports the S3 backend configuration.
type S3Config = infraS3.Config

// Config selects and configures a backend.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open constructs the backend named by cfg.Driver, defaulting to fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown asset driver %s", cfg.Driver)
	}
}

// NewFilesystem returns a store rooted at the given directory.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}

// NewMemory returns an in-memory store.
func NewMemory() Store { return memorystore.New() }

// NewS3 returns a store over an S3-compatible bucket.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// NewMockS3ForTests returns an S3 store backed by an in-process fake
// transport, for tests in other packages.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }

// ReadAll fetches the whole content at key.
func ReadAll(ctx context.Context, store Store, key string) ([]byte, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// WriteAll replaces the content at key.
func WriteAll(ctx context.Context, store Store, key string, b []byte, contentType string) (Info, error) {
	return store.Put(ctx, key, bytes.NewReader(b), PutOptions{ContentType: contentType})
}
