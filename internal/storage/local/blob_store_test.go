package local

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperwire/arxiv-ingest/internal/storage"
)

func TestBlobStore_PutGet(t *testing.T) {
	t.Parallel()

	store, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	key := "cs/ProcessDate=2026-08-26/articles/2408.00001.json"
	uri, err := store.Put(context.Background(), "arxiv-data", key, []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Contains(t, uri, "file://")
	assert.Contains(t, uri, filepath.FromSlash("arxiv-data/cs"))

	data, err := store.Get(context.Background(), "arxiv-data", key)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestBlobStore_Put_Overwrites(t *testing.T) {
	t.Parallel()

	store, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "ns", "k.json", []byte("first"))
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "ns", "k.json", []byte("second"))
	require.NoError(t, err)

	data, err := store.Get(context.Background(), "ns", "k.json")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestBlobStore_Get_NotFound(t *testing.T) {
	t.Parallel()

	store, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "ns", "missing.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestBlobStore_RejectsPathTraversal(t *testing.T) {
	t.Parallel()

	store, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "ns", "../../etc/passwd", []byte("x"))
	assert.Error(t, err)
}

func TestNew_RequiresBaseDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	assert.Error(t, err)
}
