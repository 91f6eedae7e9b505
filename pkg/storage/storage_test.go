package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/pkg/storage"
)

func TestLocalDisk(t *testing.T) {
	ctx := context.Background()
	d := storage.NewLocal(t.TempDir(), "http://localhost:8080/storage/")

	require.NoError(t, d.Put(ctx, "products/7/mug.png", strings.NewReader("png"), "image/png"))

	ok, err := d.Exists(ctx, "products/7/mug.png")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := d.Get(ctx, "products/7/mug.png")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "png", string(body))

	assert.Equal(t, "http://localhost:8080/storage/products/7/mug.png", d.URL("products/7/mug.png"))

	require.NoError(t, d.Delete(ctx, "products/7/mug.png"))
	require.NoError(t, d.Delete(ctx, "products/7/mug.png"))
	_, err = d.Get(ctx, "products/7/mug.png")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLocalDisk_StaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	d := storage.NewLocal(root, "")

	require.NoError(t, d.Put(context.Background(), "../../escape.txt", strings.NewReader("x"), ""))
	ok, err := d.Exists(context.Background(), "escape.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestManagerFallsBackToLocal(t *testing.T) {
	m := storage.NewManager("s3")
	local := storage.NewLocal(t.TempDir(), "")
	m.Register("local", local)

	assert.Same(t, local, m.Default())
	_, err := m.Disk("s3")
	assert.Error(t, err)
}
