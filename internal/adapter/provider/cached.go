// Package provider holds the caching decorator shared by every metadata provider.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

// Default cache lifetimes. Stream URLs are signed and expire upstream.
const (
	DefaultStreamTTL = 20 * time.Minute
	DefaultMetaTTL   = 24 * time.Hour
)

// Cached wraps a MetadataProvider and caches stream URLs, cover URLs and lyric text.
// Search results are never cached. Cache failures are logged and bypassed.
type Cached struct {
	logger    *slog.Logger
	inner     ports.MetadataProvider
	cache     ports.Cache
	streamTTL time.Duration
	metaTTL   time.Duration
}

// NewCached creates the decorator. Non-positive TTLs fall back to the defaults.
func NewCached(logger *slog.Logger, inner ports.MetadataProvider, cache ports.Cache, streamTTL, metaTTL time.Duration) *Cached {
	if streamTTL <= 0 {
		streamTTL = DefaultStreamTTL
	}
	if metaTTL <= 0 {
		metaTTL = DefaultMetaTTL
	}
	return &Cached{
		logger:    logger.With(slog.String("provider", inner.Name()), slog.Bool("cached", true)),
		inner:     inner,
		cache:     cache,
		streamTTL: streamTTL,
		metaTTL:   metaTTL,
	}
}

// CacheKey builds the key for one cached value.
func CacheKey(kind, provider, ref string) string {
	return fmt.Sprintf("pixeltunes:%s:%s:%s", kind, provider, ref)
}

// Name implements ports.MetadataProvider.
func (c *Cached) Name() string { return c.inner.Name() }

// Search always goes to the inner provider.
func (c *Cached) Search(ctx context.Context, term string, limit int) ([]domain.Track, error) {
	return c.inner.Search(ctx, term, limit)
}

// StreamURL implements ports.MetadataProvider.
func (c *Cached) StreamURL(ctx context.Context, source, streamID string, bitrate int) (string, error) {
	key := CacheKey("url", c.inner.Name(), source+"/"+streamID+"@"+strconv.Itoa(bitrate))
	return c.through(ctx, key, c.streamTTL, func() (string, error) {
		return c.inner.StreamURL(ctx, source, streamID, bitrate)
	})
}

// CoverURL implements ports.MetadataProvider.
func (c *Cached) CoverURL(ctx context.Context, source, coverRef string, size int) (string, error) {
	key := CacheKey("pic", c.inner.Name(), source+"/"+coverRef+"@"+strconv.Itoa(size))
	return c.through(ctx, key, c.metaTTL, func() (string, error) {
		return c.inner.CoverURL(ctx, source, coverRef, size)
	})
}

// LyricText implements ports.MetadataProvider.
func (c *Cached) LyricText(ctx context.Context, source, lyricRef string) (string, error) {
	key := CacheKey("lyric", c.inner.Name(), source+"/"+lyricRef)
	return c.through(ctx, key, c.metaTTL, func() (string, error) {
		return c.inner.LyricText(ctx, source, lyricRef)
	})
}

// through serves key from the cache or calls fetch and stores a non-empty result.
func (c *Cached) through(ctx context.Context, key string, ttl time.Duration, fetch func() (string, error)) (string, error) {
	if v, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
	} else if ok {
		return v, nil
	}

	v, err := fetch()
	if err != nil || v == "" {
		return v, err
	}

	if err := c.cache.Set(ctx, key, v, ttl); err != nil {
		c.logger.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return v, nil
}

var _ ports.MetadataProvider = (*Cached)(nil)
