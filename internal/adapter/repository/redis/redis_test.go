package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
)

// connectForTest needs a running server named by PIXELTUNES_TEST_REDIS.
func connectForTest(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("PIXELTUNES_TEST_REDIS")
	if addr == "" {
		t.Skip("PIXELTUNES_TEST_REDIS not set")
	}
	c, err := Connect(context.Background(), Options{Addr: addr, Prefix: "pixeltunes-test:" + uuid.NewString() + ":"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewClientDefaultPrefix(t *testing.T) {
	c := NewClient(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"}), "")
	defer c.Close()
	assert.Equal(t, "pixeltunes:favs", c.key("favs"))
}

func TestConnectFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Connect(ctx, Options{Addr: "127.0.0.1:1"})
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
}

func TestKeyValueRoundTrip(t *testing.T) {
	c := connectForTest(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "favs")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "favs", []byte(`[]`)))
	got, ok, err := c.Get(ctx, "favs")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`[]`), got)
}

func TestCacheExpiry(t *testing.T) {
	cache := connectForTest(t).Cache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "url", "https://x", 50*time.Millisecond))
	v, ok, err := cache.Get(ctx, "url")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://x", v)

	assert.Eventually(t, func() bool {
		_, ok, _ := cache.Get(ctx, "url")
		return !ok
	}, 2*time.Second, 20*time.Millisecond)
}
