package ports

import (
	"context"
	"time"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
)

// MetadataProvider is the remote service that knows stream URLs, covers and lyric text.
//
// Every call is a single best-effort attempt. An empty string with a nil error
// means "absent"; an error means the call itself failed.
type MetadataProvider interface {
	// Name identifies the provider in logs and cache keys.
	Name() string

	// Search returns unresolved track stubs for a free-text term.
	Search(ctx context.Context, term string, limit int) ([]domain.Track, error)

	// StreamURL returns a playable URL for the given track reference.
	StreamURL(ctx context.Context, source, streamID string, bitrate int) (string, error)

	// CoverURL returns an image URL for the given picture reference.
	CoverURL(ctx context.Context, source, coverRef string, size int) (string, error)

	// LyricText returns raw time-tagged lyric text.
	LyricText(ctx context.Context, source, lyricRef string) (string, error)
}

// Cache stores provider responses with a time-to-live.
//
// Thread-safety: Implementations must be thread-safe.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key for ttl. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
