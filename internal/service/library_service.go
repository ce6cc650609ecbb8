package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dhowden/tag"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

// Upload notification texts and placeholders.
const (
	MsgFileUploaded = "FILE UPLOADED"
	MsgFileDeleted  = "FILE DELETED"

	uploadArtist = "LOCAL LIBRARY"
	uploadAlbum  = "MY UPLOADS"
)

// DefaultMediaBaseURL is where the HTTP adapter serves stored uploads.
const DefaultMediaBaseURL = "/media/local"

// LibraryService manages uploaded files: the Local collection and its blob store.
// All operations are thread-safe via sync.RWMutex.
type LibraryService struct {
	// Dependencies (injected)
	logger     *slog.Logger
	blobs      ports.BlobStore
	store      *PlaylistStore
	controller *PlaybackController
	bus        ports.EventBus

	// Configuration
	mediaBaseURL  string
	supportedExts []string
	now           func() time.Time

	// State
	importing    bool
	cancelImport context.CancelFunc

	// Concurrency control
	mu sync.RWMutex
}

// NewLibraryService creates a new library service.
// mediaBaseURL is the prefix under which stored uploads are streamed.
func NewLibraryService(
	logger *slog.Logger,
	blobs ports.BlobStore,
	store *PlaylistStore,
	controller *PlaybackController,
	bus ports.EventBus,
	mediaBaseURL string,
) *LibraryService {
	if mediaBaseURL == "" {
		mediaBaseURL = DefaultMediaBaseURL
	}
	return &LibraryService{
		logger:       logger.With(slog.String("service", "library")),
		blobs:        blobs,
		store:        store,
		controller:   controller,
		bus:          bus,
		mediaBaseURL: strings.TrimRight(mediaBaseURL, "/"),
		now:          time.Now,
		supportedExts: []string{
			".mp3", ".m4a", ".aac", ".mp4",
			".ogg", ".oga", ".opus", ".webm",
			".wav", ".flac",
		},
	}
}

// Load reads every stored upload into the Local collection, newest first.
func (s *LibraryService) Load(ctx context.Context) error {
	stored, err := s.blobs.GetAll(ctx)
	if err != nil {
		return asRepositoryError("getAll", err)
	}

	tracks := make([]domain.Track, 0, len(stored))
	for _, up := range stored {
		tracks = append(tracks, s.trackFromMeta(up.Meta))
	}

	s.logger.Debug("local library loaded", slog.Int("tracks", len(tracks)))
	return s.store.SetCollection(ctx, domain.CollectionLocal, tracks)
}

// Upload stores a file, puts it at the top of Local and starts playing it.
// When storing fails the Local collection is left untouched.
func (s *LibraryService) Upload(ctx context.Context, data []byte, filename string) (domain.Track, error) {
	track, err := s.persist(ctx, data, filename)
	if err != nil {
		return domain.Track{}, err
	}

	if err := s.store.Prepend(ctx, domain.CollectionLocal, track); err != nil {
		return track, err
	}
	if err := s.store.SetViewed(domain.CollectionLocal); err != nil {
		return track, err
	}
	s.bus.Publish(domain.NewNotificationEvent(domain.NotifyInfo, MsgFileUploaded, nil))

	return track, s.controller.SelectTrack(ctx, domain.CollectionLocal, 0)
}

// persist validates data, reads its tags and writes it to the blob store.
func (s *LibraryService) persist(ctx context.Context, data []byte, filename string) (domain.Track, error) {
	if len(data) == 0 {
		return domain.Track{}, domain.ErrInvalidUpload
	}
	filename = filepath.Base(strings.TrimSpace(filename))
	if !s.IsFormatSupported(filename) {
		return domain.Track{}, fmt.Errorf("%w: unsupported format %q", domain.ErrInvalidUpload, filepath.Ext(filename))
	}

	meta := s.buildMeta(data, filename)

	if err := s.blobs.Put(ctx, meta, data); err != nil {
		repoErr := asRepositoryError("put", err)
		s.logger.Warn("upload not stored",
			slog.String("filename", filename),
			slog.String("size", humanize.Bytes(uint64(len(data)))),
			slog.Any("error", err))
		s.bus.Publish(domain.NewNotificationEvent(domain.NotifyStorageFailure, MsgStorageFull, repoErr))
		return domain.Track{}, repoErr
	}

	s.logger.Info("upload stored",
		slog.String("id", meta.ID),
		slog.String("title", meta.Title),
		slog.String("size", humanize.Bytes(uint64(meta.Size))))

	return s.trackFromMeta(meta), nil
}

// buildMeta derives upload metadata from the file name, then from embedded tags.
func (s *LibraryService) buildMeta(data []byte, filename string) domain.UploadMeta {
	ext := filepath.Ext(filename)
	meta := domain.UploadMeta{
		ID:          "local-" + uuid.NewString(),
		Filename:    filename,
		Title:       strings.TrimSuffix(filename, ext),
		Artist:      uploadArtist,
		Album:       uploadAlbum,
		ContentType: contentType(ext, data),
		Size:        int64(len(data)),
		CreatedAt:   s.now().UTC(),
	}

	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		s.logger.Debug("no readable tags", slog.String("filename", filename), slog.Any("error", err))
		return meta
	}
	if v := strings.TrimSpace(m.Title()); v != "" {
		meta.Title = v
	}
	if v := strings.TrimSpace(m.Artist()); v != "" {
		meta.Artist = v
	}
	if v := strings.TrimSpace(m.Album()); v != "" {
		meta.Album = v
	}
	return meta
}

func contentType(ext string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(ext)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

// Delete removes an upload from the blob store and from Local.
// Deleting the playing track stops playback.
func (s *LibraryService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.NewValidationError("id", id, "must not be empty")
	}

	if err := s.blobs.Delete(ctx, id); err != nil {
		repoErr := asRepositoryError("delete", err)
		s.logger.Warn("upload not deleted", slog.String("id", id), slog.Any("error", err))
		s.bus.Publish(domain.NewNotificationEvent(domain.NotifyStorageFailure, MsgStorageFull, repoErr))
		return repoErr
	}

	index, err := s.store.Remove(domain.CollectionLocal, id)
	if err != nil {
		return err
	}
	s.controller.HandleLocalRemoved(index)

	s.bus.Publish(domain.NewNotificationEvent(domain.NotifyInfo, MsgFileDeleted, nil))
	return nil
}

// Open returns a stored upload for streaming.
func (s *LibraryService) Open(ctx context.Context, id string) (domain.StoredUpload, error) {
	up, err := s.blobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.StoredUpload{}, err
		}
		return domain.StoredUpload{}, asRepositoryError("get", err)
	}
	return up, nil
}

// ImportFolder stores every supported file below dir without starting playback.
// Files that cannot be read or stored are skipped. It returns the number imported.
func (s *LibraryService) ImportFolder(ctx context.Context, dir string) (int, error) {
	s.mu.Lock()
	if s.importing {
		s.mu.Unlock()
		return 0, domain.NewServiceError("LibraryService", "ImportFolder", "import already in progress", nil)
	}
	s.importing = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancelImport = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.importing = false
		s.cancelImport = nil
		s.mu.Unlock()
	}()

	files, err := s.collectAudioFiles(ctx, dir)
	if err != nil {
		return 0, err
	}

	imported := make([]domain.Track, 0, len(files))
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Debug("skipping unreadable file", slog.String("path", path), slog.Any("error", err))
			continue
		}
		track, err := s.persist(ctx, data, filepath.Base(path))
		if err != nil {
			continue
		}
		imported = append(imported, track)
	}

	for _, track := range imported {
		if err := s.store.Prepend(ctx, domain.CollectionLocal, track); err != nil {
			return len(imported), err
		}
	}

	s.logger.Info("folder imported", slog.String("dir", dir), slog.Int("tracks", len(imported)))
	return len(imported), ctx.Err()
}

// CancelImport cancels a running ImportFolder.
func (s *LibraryService) CancelImport() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.importing {
		return domain.NewServiceError("LibraryService", "CancelImport", "no import in progress", nil)
	}
	if s.cancelImport != nil {
		s.cancelImport()
	}
	return nil
}

// IsImporting returns true while ImportFolder runs.
func (s *LibraryService) IsImporting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.importing
}

// IsFormatSupported checks if a file format can be played by the browser.
func (s *LibraryService) IsFormatSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, supported := range s.supportedExts {
		if ext == supported {
			return true
		}
	}
	return false
}

// GetSupportedFormats returns the list of supported file extensions.
func (s *LibraryService) GetSupportedFormats() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	formats := make([]string, len(s.supportedExts))
	copy(formats, s.supportedExts)
	return formats
}

// collectAudioFiles recursively collects all supported files in a directory.
func (s *LibraryService) collectAudioFiles(ctx context.Context, dir string) ([]string, error) {
	files := make([]string, 0)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			// Skip entries we can't access, but fail on the root itself
			if path == dir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if s.IsFormatSupported(path) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// trackFromMeta builds the Local track for a stored upload.
func (s *LibraryService) trackFromMeta(meta domain.UploadMeta) domain.Track {
	return domain.Track{
		ID:        meta.ID,
		Title:     meta.Title,
		Artist:    meta.Artist,
		Album:     meta.Album,
		StreamURL: s.mediaBaseURL + "/" + url.PathEscape(meta.ID),
	}
}

// Shutdown cancels a running import.
func (s *LibraryService) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.importing && s.cancelImport != nil {
		s.cancelImport()
	}
	return nil
}

func asRepositoryError(op string, err error) error {
	var repoErr *domain.RepositoryError
	if errors.As(err, &repoErr) {
		return err
	}
	return domain.NewRepositoryError(op, "blob", err.Error(), err)
}
