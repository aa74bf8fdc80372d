package blobstore_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrJDen31/tierann/blobstore"
	"github.com/DrJDen31/tierann/dataset"
	"github.com/DrJDen31/tierann/index/hnsw"
	"github.com/DrJDen31/tierann/persistence"
)

func stores(t *testing.T) map[string]blobstore.Store {
	t.Helper()
	return map[string]blobstore.Store{
		"memory": blobstore.NewMemoryStore(),
		"local":  blobstore.NewLocalStore(t.TempDir()),
	}
}

func TestStorePutGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, blobstore.ErrNotFound)

			require.NoError(t, store.Put(ctx, "a", []byte("one")))
			require.NoError(t, store.Put(ctx, "a", []byte("two")))

			data, err := store.Get(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, []byte("two"), data)

			require.NoError(t, store.Delete(ctx, "a"))
			require.NoError(t, store.Delete(ctx, "a"))
			_, err = store.Get(ctx, "a")
			assert.ErrorIs(t, err, blobstore.ErrNotFound)
		})
	}
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "snapshots/a", []byte("1")))
			require.NoError(t, store.Put(ctx, "snapshots/b", []byte("2")))
			require.NoError(t, store.Put(ctx, "other/c", []byte("3")))

			names, err := store.List(ctx, "snapshots/")
			require.NoError(t, err)
			assert.Equal(t, []string{"snapshots/a", "snapshots/b"}, names)

			all, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestIndexSnapshotThroughStore(t *testing.T) {
	ctx := context.Background()
	vectors := dataset.GenerateGaussian(200, 8, 31)

	idx, err := hnsw.New(func(o *hnsw.Options) {
		o.Dimension = 8
		o.M = 8
		o.EFConstruction = 64
	})
	require.NoError(t, err)
	require.NoError(t, idx.Build(vectors))

	want, serr := idx.Search(vectors[17], 5, 64)
	require.NoError(t, serr)

	store := blobstore.NewMemoryStore()
	err = blobstore.Save(ctx, store, "snapshots/idx.tann", func(w io.Writer) error {
		return idx.WriteSnapshot(w, persistence.CompressionZSTD)
	})
	require.NoError(t, err)

	var loaded *hnsw.Index
	err = blobstore.Load(ctx, store, "snapshots/idx.tann", func(r io.Reader) error {
		var rerr error
		loaded, rerr = hnsw.ReadSnapshot(r)
		return rerr
	})
	require.NoError(t, err)

	got, err := loaded.Search(vectors[17], 5, 64)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
