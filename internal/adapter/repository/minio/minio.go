// Package minio provides a BlobStore on an S3-compatible object store.
// Each upload is one object under uploads/ with its metadata in user metadata headers.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

const objectPrefix = "uploads/"

// User metadata keys as minio-go returns them.
const (
	metaFilename  = "Filename"
	metaTitle     = "Title"
	metaArtist    = "Artist"
	metaAlbum     = "Album"
	metaCreatedAt = "Created-At"
)

// Options configures the object store connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

// BlobStore stores uploads as objects in one bucket.
type BlobStore struct {
	logger *slog.Logger
	client *minio.Client
	bucket string
}

// Connect creates the client and makes sure the bucket exists.
func Connect(ctx context.Context, logger *slog.Logger, opts Options) (*BlobStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, domain.NewRepositoryError("connect", "minio", "failed to create client", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, domain.NewRepositoryError("connect", "minio", "failed to check bucket "+opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, domain.NewRepositoryError("connect", "minio", "failed to create bucket "+opts.Bucket, err)
		}
		logger.Info("bucket created", slog.String("bucket", opts.Bucket))
	}

	return &BlobStore{
		logger: logger.With(slog.String("adapter", "minio")),
		client: client,
		bucket: opts.Bucket,
	}, nil
}

func objectName(id string) string {
	return objectPrefix + id
}

// Put uploads data as uploads/<id>.
func (s *BlobStore) Put(ctx context.Context, meta domain.UploadMeta, data []byte) error {
	if meta.ID == "" {
		return domain.NewValidationError("meta.id", meta.ID, "must not be empty")
	}

	_, err := s.client.PutObject(ctx, s.bucket, objectName(meta.ID), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  meta.ContentType,
			UserMetadata: encodeMeta(meta),
		})
	if err != nil {
		return domain.NewRepositoryError("put", "minio", meta.ID, err)
	}
	return nil
}

// GetAll downloads every upload, newest first.
func (s *BlobStore) GetAll(ctx context.Context) ([]domain.StoredUpload, error) {
	uploads := make([]domain.StoredUpload, 0)

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: objectPrefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, domain.NewRepositoryError("getAll", "minio", "list failed", obj.Err)
		}
		up, err := s.Get(ctx, strings.TrimPrefix(obj.Key, objectPrefix))
		if err != nil {
			s.logger.Warn("skipping unreadable object", slog.String("key", obj.Key), slog.Any("error", err))
			continue
		}
		uploads = append(uploads, up)
	}

	slices.SortFunc(uploads, func(a, b domain.StoredUpload) int {
		if c := b.Meta.CreatedAt.Compare(a.Meta.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.Meta.ID, a.Meta.ID)
	})
	return uploads, nil
}

// Get downloads one upload or returns domain.ErrNotFound.
func (s *BlobStore) Get(ctx context.Context, id string) (domain.StoredUpload, error) {
	info, err := s.client.StatObject(ctx, s.bucket, objectName(id), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return domain.StoredUpload{}, domain.ErrNotFound
		}
		return domain.StoredUpload{}, domain.NewRepositoryError("get", "minio", id, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, objectName(id), minio.GetObjectOptions{})
	if err != nil {
		return domain.StoredUpload{}, domain.NewRepositoryError("get", "minio", id, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return domain.StoredUpload{}, domain.NewRepositoryError("get", "minio", id, err)
	}

	meta := decodeMeta(info.UserMetadata)
	meta.ID = id
	meta.ContentType = info.ContentType
	meta.Size = info.Size
	return domain.StoredUpload{Meta: meta, Data: data}, nil
}

// Delete removes uploads/<id>. Removing a missing object succeeds.
func (s *BlobStore) Delete(ctx context.Context, id string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectName(id), minio.RemoveObjectOptions{}); err != nil {
		return domain.NewRepositoryError("delete", "minio", id, err)
	}
	return nil
}

// encodeMeta escapes values so non-ASCII titles survive HTTP headers.
func encodeMeta(meta domain.UploadMeta) map[string]string {
	return map[string]string{
		metaFilename:  url.QueryEscape(meta.Filename),
		metaTitle:     url.QueryEscape(meta.Title),
		metaArtist:    url.QueryEscape(meta.Artist),
		metaAlbum:     url.QueryEscape(meta.Album),
		metaCreatedAt: strconv.FormatInt(meta.CreatedAt.UnixNano(), 10),
	}
}

func decodeMeta(m map[string]string) domain.UploadMeta {
	get := func(k string) string {
		v, err := url.QueryUnescape(m[k])
		if err != nil {
			return m[k]
		}
		return v
	}

	meta := domain.UploadMeta{
		Filename: get(metaFilename),
		Title:    get(metaTitle),
		Artist:   get(metaArtist),
		Album:    get(metaAlbum),
	}
	if ns, err := strconv.ParseInt(m[metaCreatedAt], 10, 64); err == nil {
		meta.CreatedAt = time.Unix(0, ns).UTC()
	}
	return meta
}

// String describes the store for logs.
func (s *BlobStore) String() string {
	return fmt.Sprintf("minio://%s/%s", s.client.EndpointURL().Host, s.bucket)
}

var _ ports.BlobStore = (*BlobStore)(nil)
