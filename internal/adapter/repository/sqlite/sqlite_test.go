package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestKeyValueStore(t *testing.T) {
	kv := NewKeyValueStore(openTestDB(t))
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "favs", []byte(`[1]`)))
	require.NoError(t, kv.Set(ctx, "favs", []byte(`[1,2]`)))

	got, ok, err := kv.Get(ctx, "favs")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`[1,2]`), got)
}

func TestBlobStore(t *testing.T) {
	blobs := NewBlobStore(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	older := domain.UploadMeta{ID: "local-1", Filename: "a.mp3", Title: "A", Artist: "X", Album: "Y",
		ContentType: "audio/mpeg", Size: 3, CreatedAt: base}
	newer := older
	newer.ID = "local-2"
	newer.CreatedAt = base.Add(time.Minute)

	require.NoError(t, blobs.Put(ctx, older, []byte{1, 2, 3}))
	require.NoError(t, blobs.Put(ctx, newer, []byte{4, 5, 6}))

	all, err := blobs.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "local-2", all[0].Meta.ID)
	assert.Equal(t, older, all[1].Meta)
	assert.Equal(t, []byte{1, 2, 3}, all[1].Data)

	got, err := blobs.Get(ctx, "local-2")
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5, 6}, got.Data)
	assert.True(t, newer.CreatedAt.Equal(got.Meta.CreatedAt))

	require.NoError(t, blobs.Delete(ctx, "local-2"))
	require.NoError(t, blobs.Delete(ctx, "local-2"))
	_, err = blobs.Get(ctx, "local-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var vErr *domain.ValidationError
	assert.ErrorAs(t, blobs.Put(ctx, domain.UploadMeta{}, nil), &vErr)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, NewKeyValueStore(db).Set(ctx, "k", []byte("v")))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	got, ok, err := NewKeyValueStore(db).Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestOpenInMemory(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, ok, err := NewKeyValueStore(db).Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
