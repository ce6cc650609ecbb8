package ports

import (
	"context"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
)

// BlobStore persists uploaded files together with their metadata.
//
// Thread-safety: Implementations must be thread-safe.
type BlobStore interface {
	// Put stores data under meta.ID, replacing any existing entry.
	Put(ctx context.Context, meta domain.UploadMeta, data []byte) error

	// GetAll returns every stored upload, newest first.
	GetAll(ctx context.Context) ([]domain.StoredUpload, error)

	// Get returns a single upload, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (domain.StoredUpload, error)

	// Delete removes an upload. Deleting a missing id is a no-op.
	Delete(ctx context.Context, id string) error
}

// KeyValueStore persists small structured values under fixed keys.
//
// Thread-safety: Implementations must be thread-safe.
type KeyValueStore interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key.
	Set(ctx context.Context, key string, value []byte) error
}
