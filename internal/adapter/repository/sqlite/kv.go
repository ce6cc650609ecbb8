package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

// KeyValueStore stores values in the kv table.
type KeyValueStore struct {
	db *sql.DB
}

// NewKeyValueStore returns a key-value store backed by d.
func NewKeyValueStore(d *DB) *KeyValueStore {
	return &KeyValueStore{db: d.db}
}

// Get returns the value stored under key.
func (s *KeyValueStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.NewRepositoryError("get", "kv", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *KeyValueStore) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	if err != nil {
		return domain.NewRepositoryError("set", "kv", key, err)
	}
	return nil
}

var _ ports.KeyValueStore = (*KeyValueStore)(nil)
