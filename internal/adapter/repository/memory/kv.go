// Package memory provides in-memory repository implementations.
// They back tests and the zero-configuration server mode; nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

// KeyValueStore implements ports.KeyValueStore with a map.
//
// Thread-safe: All operations protected by sync.RWMutex.
type KeyValueStore struct {
	data map[string][]byte
	mu   sync.RWMutex

	failWrites bool
	writes     int
}

// NewKeyValueStore creates an empty key-value store.
func NewKeyValueStore() *KeyValueStore {
	return &KeyValueStore{
		data: make(map[string][]byte),
	}
}

// SetFailWrites makes every Set fail (for testing).
func (r *KeyValueStore) SetFailWrites(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWrites = fail
}

// Get returns a copy of the value stored under key.
func (r *KeyValueStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value under key.
func (r *KeyValueStore) Set(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites {
		return domain.NewRepositoryError("set", "kv", "quota exceeded", nil)
	}

	r.data[key] = append([]byte(nil), value...)
	r.writes++
	return nil
}

// Writes returns how many successful writes happened (for testing).
func (r *KeyValueStore) Writes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes
}

// Verify interface compliance
var _ ports.KeyValueStore = (*KeyValueStore)(nil)
