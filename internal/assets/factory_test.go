package assets

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, Config{FSRoot: filepath.Join(t.TempDir(), "root")})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, fsStore.Driver())

	mem, err := Open(ctx, Config{Driver: DriverMemory})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, mem.Driver())

	_, err = Open(ctx, Config{Driver: DriverS3})
	assert.Error(t, err, "bucket is required")

	_, err = Open(ctx, Config{Driver: "ftp"})
	assert.Error(t, err)
}

func TestReadWriteAllHelpers(t *testing.T) {
	ctx := context.Background()
	for _, store := range []Store{NewMemory(), NewMockS3ForTests()} {
		_, err := WriteAll(ctx, store, "doc.xml", []byte("<project/>"), "application/xml")
		require.NoError(t, err)
		b, err := ReadAll(ctx, store, "doc.xml")
		require.NoError(t, err)
		assert.Equal(t, "<project/>", string(b))

		_, err = ReadAll(ctx, store, "missing.xml")
		assert.True(t, errors.Is(err, ErrNotFound), "driver %s: %v", store.Driver(), err)
	}
}
