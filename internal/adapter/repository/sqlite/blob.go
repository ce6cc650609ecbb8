package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

// BlobStore stores uploads in the uploads table.
type BlobStore struct {
	db *sql.DB
}

// NewBlobStore returns a blob store backed by d.
func NewBlobStore(d *DB) *BlobStore {
	return &BlobStore{db: d.db}
}

// Put stores data under meta.ID.
func (s *BlobStore) Put(ctx context.Context, meta domain.UploadMeta, data []byte) error {
	if meta.ID == "" {
		return domain.NewValidationError("meta.id", meta.ID, "must not be empty")
	}
	if data == nil {
		data = []byte{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO uploads
			(id, filename, title, artist, album, content_type, size, created_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, meta.ID, meta.Filename, meta.Title, meta.Artist, meta.Album, meta.ContentType,
		meta.Size, meta.CreatedAt.UnixNano(), data)
	if err != nil {
		return domain.NewRepositoryError("put", "blob", meta.ID, err)
	}
	return nil
}

// GetAll returns every upload, newest first.
func (s *BlobStore) GetAll(ctx context.Context) ([]domain.StoredUpload, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, title, artist, album, content_type, size, created_at, data
		FROM uploads
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, domain.NewRepositoryError("getAll", "blob", "query failed", err)
	}
	defer rows.Close()

	uploads := make([]domain.StoredUpload, 0)
	for rows.Next() {
		up, err := scanUpload(rows)
		if err != nil {
			return nil, domain.NewRepositoryError("getAll", "blob", "scan failed", err)
		}
		uploads = append(uploads, up)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewRepositoryError("getAll", "blob", "iteration failed", err)
	}
	return uploads, nil
}

// Get returns one upload or domain.ErrNotFound.
func (s *BlobStore) Get(ctx context.Context, id string) (domain.StoredUpload, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, title, artist, album, content_type, size, created_at, data
		FROM uploads WHERE id = ?
	`, id)

	up, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StoredUpload{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StoredUpload{}, domain.NewRepositoryError("get", "blob", id, err)
	}
	return up, nil
}

// Delete removes an upload. A missing id is not an error.
func (s *BlobStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = ?`, id); err != nil {
		return domain.NewRepositoryError("delete", "blob", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(row scanner) (domain.StoredUpload, error) {
	var (
		up      domain.StoredUpload
		created int64
	)
	err := row.Scan(&up.Meta.ID, &up.Meta.Filename, &up.Meta.Title, &up.Meta.Artist, &up.Meta.Album,
		&up.Meta.ContentType, &up.Meta.Size, &created, &up.Data)
	if err != nil {
		return domain.StoredUpload{}, err
	}
	up.Meta.CreatedAt = time.Unix(0, created).UTC()
	return up, nil
}

var _ ports.BlobStore = (*BlobStore)(nil)
