package minio

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/logger"
)

func TestMetaRoundTrip(t *testing.T) {
	in := domain.UploadMeta{
		Filename:  "晴天 (live).mp3",
		Title:     "晴天",
		Artist:    "周杰伦",
		Album:     "叶惠美 & more",
		CreatedAt: time.Date(2024, 2, 3, 4, 5, 6, 7, time.UTC),
	}

	encoded := encodeMeta(in)
	for _, v := range encoded {
		for _, r := range v {
			assert.Less(t, r, rune(128), "header values must be ASCII")
		}
	}

	assert.Equal(t, in, decodeMeta(encoded))
}

func TestDecodeMetaTolerant(t *testing.T) {
	meta := decodeMeta(map[string]string{metaTitle: "%zz", metaCreatedAt: "not-a-number"})
	assert.Equal(t, "%zz", meta.Title)
	assert.True(t, meta.CreatedAt.IsZero())
}

// TestBlobStoreLive needs a reachable server: PIXELTUNES_TEST_MINIO=host:port,
// with PIXELTUNES_TEST_MINIO_KEY and PIXELTUNES_TEST_MINIO_SECRET.
func TestBlobStoreLive(t *testing.T) {
	endpoint := os.Getenv("PIXELTUNES_TEST_MINIO")
	if endpoint == "" {
		t.Skip("PIXELTUNES_TEST_MINIO not set")
	}
	ctx := context.Background()

	store, err := Connect(ctx, logger.NewTestLogger(), Options{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("PIXELTUNES_TEST_MINIO_KEY"),
		SecretKey: os.Getenv("PIXELTUNES_TEST_MINIO_SECRET"),
		Bucket:    "pixeltunes-test",
	})
	require.NoError(t, err)

	id := "local-" + uuid.NewString()
	meta := domain.UploadMeta{ID: id, Filename: "a.mp3", Title: "A", ContentType: "audio/mpeg", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Put(ctx, meta, []byte{1, 2, 3}))
	t.Cleanup(func() { _ = store.Delete(context.Background(), id) })

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got.Data)
	assert.Equal(t, "A", got.Meta.Title)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
