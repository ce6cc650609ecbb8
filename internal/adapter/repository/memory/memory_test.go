package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
)

func TestKeyValueStore(t *testing.T) {
	ctx := context.Background()
	kv := NewKeyValueStore()

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	value := []byte(`[1,2]`)
	require.NoError(t, kv.Set(ctx, "k", value))
	value[0] = 'x' // stored value must not alias the caller's slice

	got, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[1,2]`, string(got))
	assert.Equal(t, 1, kv.Writes())

	kv.SetFailWrites(true)
	err = kv.Set(ctx, "k", []byte("y"))
	assert.True(t, errors.Is(err, domain.ErrStorageFailure))

	got, _, _ = kv.Get(ctx, "k")
	assert.Equal(t, `[1,2]`, string(got), "failed write must not change the value")
}

func TestBlobStoreOrderingAndCopies(t *testing.T) {
	ctx := context.Background()
	blobs := NewBlobStore()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, blobs.Put(ctx, domain.UploadMeta{ID: "old", CreatedAt: base}, []byte("a")))
	require.NoError(t, blobs.Put(ctx, domain.UploadMeta{ID: "new", CreatedAt: base.Add(time.Minute)}, []byte("b")))

	all, err := blobs.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "new", all[0].Meta.ID)
	assert.Equal(t, "old", all[1].Meta.ID)

	all[0].Data[0] = 'z'
	up, err := blobs.Get(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "b", string(up.Data))

	_, err = blobs.Get(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, blobs.Delete(ctx, "old"))
	require.NoError(t, blobs.Delete(ctx, "old"))
	assert.Equal(t, 1, blobs.Count())
}

func TestBlobStoreFailures(t *testing.T) {
	ctx := context.Background()
	blobs := NewBlobStore()

	err := blobs.Put(ctx, domain.UploadMeta{}, []byte("a"))
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)

	blobs.SetFailWrites(true)
	assert.ErrorIs(t, blobs.Put(ctx, domain.UploadMeta{ID: "x"}, []byte("a")), domain.ErrStorageFailure)
	assert.ErrorIs(t, blobs.Delete(ctx, "x"), domain.ErrStorageFailure)
	assert.Equal(t, 0, blobs.Count())
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	require.NoError(t, c.Set(ctx, "short", "v1", time.Minute))
	require.NoError(t, c.Set(ctx, "forever", "v2", 0))

	v, ok, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "short")
	assert.False(t, ok)

	v, ok, _ = c.Get(ctx, "forever")
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
	assert.Equal(t, 1, c.Len())
}
