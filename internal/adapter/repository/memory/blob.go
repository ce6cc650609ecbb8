package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

// BlobStore implements ports.BlobStore in memory.
//
// Thread-safe: All operations protected by sync.RWMutex.
type BlobStore struct {
	uploads map[string]domain.StoredUpload
	mu      sync.RWMutex

	failWrites bool
}

// NewBlobStore creates an empty blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		uploads: make(map[string]domain.StoredUpload),
	}
}

// SetFailWrites makes Put and Delete fail (for testing).
func (r *BlobStore) SetFailWrites(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWrites = fail
}

// Put stores data under meta.ID.
func (r *BlobStore) Put(_ context.Context, meta domain.UploadMeta, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites {
		return domain.NewRepositoryError("put", "blob", "quota exceeded", nil)
	}
	if meta.ID == "" {
		return domain.NewValidationError("meta.id", meta.ID, "must not be empty")
	}

	r.uploads[meta.ID] = domain.StoredUpload{
		Meta: meta,
		Data: append([]byte(nil), data...),
	}
	return nil
}

// GetAll returns every upload, newest first.
func (r *BlobStore) GetAll(_ context.Context) ([]domain.StoredUpload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.StoredUpload, 0, len(r.uploads))
	for _, up := range r.uploads {
		out = append(out, copyUpload(up))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Meta.CreatedAt.Equal(out[j].Meta.CreatedAt) {
			return out[i].Meta.ID > out[j].Meta.ID
		}
		return out[i].Meta.CreatedAt.After(out[j].Meta.CreatedAt)
	})
	return out, nil
}

// Get returns a single upload.
func (r *BlobStore) Get(_ context.Context, id string) (domain.StoredUpload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	up, ok := r.uploads[id]
	if !ok {
		return domain.StoredUpload{}, domain.ErrNotFound
	}
	return copyUpload(up), nil
}

// Delete removes an upload. Missing ids are ignored.
func (r *BlobStore) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites {
		return domain.NewRepositoryError("delete", "blob", "store unavailable", nil)
	}

	delete(r.uploads, id)
	return nil
}

// Count returns the number of stored uploads.
func (r *BlobStore) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.uploads)
}

func copyUpload(up domain.StoredUpload) domain.StoredUpload {
	return domain.StoredUpload{
		Meta: up.Meta,
		Data: append([]byte(nil), up.Data...),
	}
}

// Verify interface compliance
var _ ports.BlobStore = (*BlobStore)(nil)
