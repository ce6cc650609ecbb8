// Package redis provides a KeyValueStore and a Cache on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "pixeltunes:"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Client wraps a go-redis client. It implements both ports.KeyValueStore and ports.Cache.
type Client struct {
	rdb    *goredis.Client
	prefix string
}

// Connect dials Redis and verifies the connection with a PING.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, domain.NewRepositoryError("connect", "redis", fmt.Sprintf("failed to connect to %s", opts.Addr), err)
	}

	return NewClient(rdb, opts.Prefix), nil
}

// NewClient wraps an existing go-redis client.
func NewClient(rdb *goredis.Client, prefix string) *Client {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Client{rdb: rdb, prefix: prefix}
}

func (c *Client) key(k string) string {
	return c.prefix + k
}

// Get implements ports.KeyValueStore.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.NewRepositoryError("get", "redis", key, err)
	}
	return value, true, nil
}

// Set implements ports.KeyValueStore. Values never expire.
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	if err := c.rdb.Set(ctx, c.key(key), value, 0).Err(); err != nil {
		return domain.NewRepositoryError("set", "redis", key, err)
	}
	return nil
}

// Cache returns a ports.Cache view of the client.
func (c *Client) Cache() *Cache {
	return &Cache{client: c}
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Cache stores string values with SET EX.
type Cache struct {
	client *Client
}

// Get returns a cached value.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.rdb.Get(ctx, c.client.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, domain.NewRepositoryError("get", "cache", key, err)
	}
	return value, true, nil
}

// Set stores value for ttl. A zero ttl keeps it until evicted.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.rdb.Set(ctx, c.client.key(key), value, ttl).Err(); err != nil {
		return domain.NewRepositoryError("set", "cache", key, err)
	}
	return nil
}

var (
	_ ports.KeyValueStore = (*Client)(nil)
	_ ports.Cache         = (*Cache)(nil)
)
