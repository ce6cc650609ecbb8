package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

// FavoritesKey is the key-value store key holding the favorites snapshot.
const FavoritesKey = "pixel_tunes_favs"

// Notification texts shown by the front end.
const (
	MsgSavedToFavorites     = "SAVED TO FAVORITES"
	MsgRemovedFromFavorites = "REMOVED FROM FAVORITES"
	MsgStorageFull          = "STORAGE FULL"
)

// PlaylistStore owns the three collections and the viewed-collection axis.
// It is the only writer of collection contents; readers always get copies.
// All operations are thread-safe via sync.RWMutex.
type PlaylistStore struct {
	// Dependencies (injected)
	logger *slog.Logger
	bus    ports.EventBus
	kv     ports.KeyValueStore

	// State
	collections [3][]domain.Track
	viewed      domain.CollectionKind

	// Concurrency control
	mu sync.RWMutex
}

// NewPlaylistStore creates an empty store. Favorites are persisted through kv.
func NewPlaylistStore(logger *slog.Logger, bus ports.EventBus, kv ports.KeyValueStore) *PlaylistStore {
	s := &PlaylistStore{
		logger: logger.With(slog.String("service", "playlist")),
		bus:    bus,
		kv:     kv,
		viewed: domain.CollectionRemote,
	}
	for _, kind := range domain.AllCollections {
		s.collections[kind] = make([]domain.Track, 0)
	}
	return s
}

func checkKind(kind domain.CollectionKind) error {
	if !kind.Valid() {
		return domain.NewValidationError("collection", int(kind), "unknown collection")
	}
	return nil
}

// Collection returns a copy of the tracks in kind.
func (s *PlaylistStore) Collection(kind domain.CollectionKind) []domain.Track {
	if checkKind(kind) != nil {
		return []domain.Track{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.CloneTracks(s.collections[kind])
}

// Len returns the number of tracks in kind.
func (s *PlaylistStore) Len(kind domain.CollectionKind) int {
	if checkKind(kind) != nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.collections[kind])
}

// TrackAt returns a copy of the track at index in kind.
func (s *PlaylistStore) TrackAt(kind domain.CollectionKind, index int) (domain.Track, error) {
	if err := checkKind(kind); err != nil {
		return domain.Track{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.collections[kind]
	if index < 0 || index >= len(list) {
		return domain.Track{}, domain.ErrInvalidIndex
	}
	return list[index].Clone(), nil
}

// SetCollection replaces kind with tracks. Later duplicates of an id are dropped.
// Cursors and the viewed collection are not touched; callers reset them explicitly.
func (s *PlaylistStore) SetCollection(ctx context.Context, kind domain.CollectionKind, tracks []domain.Track) error {
	if err := checkKind(kind); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(tracks))
	list := make([]domain.Track, 0, len(tracks))
	for _, t := range tracks {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		list = append(list, t.Clone())
	}

	s.mu.Lock()
	s.collections[kind] = list
	snapshot := domain.CloneTracks(list)
	var persistErr error
	if kind == domain.CollectionFavorites {
		persistErr = s.persistFavoritesLocked(ctx)
	}
	s.mu.Unlock()

	s.bus.Publish(domain.NewCollectionChangedEvent(kind, snapshot))
	if persistErr != nil {
		s.reportStorageFailure(persistErr)
	}
	return persistErr
}

// Prepend inserts track at the front of kind.
func (s *PlaylistStore) Prepend(ctx context.Context, kind domain.CollectionKind, track domain.Track) error {
	if err := checkKind(kind); err != nil {
		return err
	}

	s.mu.Lock()
	list := make([]domain.Track, 0, len(s.collections[kind])+1)
	list = append(list, track.Clone())
	for _, t := range s.collections[kind] {
		if t.ID != track.ID {
			list = append(list, t)
		}
	}
	s.collections[kind] = list
	snapshot := domain.CloneTracks(list)
	var persistErr error
	if kind == domain.CollectionFavorites {
		persistErr = s.persistFavoritesLocked(ctx)
	}
	s.mu.Unlock()

	s.bus.Publish(domain.NewCollectionChangedEvent(kind, snapshot))
	if persistErr != nil {
		s.reportStorageFailure(persistErr)
	}
	return persistErr
}

// UpsertResolved replaces the element at index in place, keeping length and order.
// It returns domain.ErrStaleTrack when the element no longer has expectedID.
func (s *PlaylistStore) UpsertResolved(ctx context.Context, kind domain.CollectionKind, index int, expectedID string, track domain.Track) error {
	if err := checkKind(kind); err != nil {
		return err
	}

	s.mu.Lock()
	list := s.collections[kind]
	if index < 0 || index >= len(list) || list[index].ID != expectedID || track.ID != expectedID {
		s.mu.Unlock()
		return domain.ErrStaleTrack
	}

	list[index] = track.Clone()
	snapshot := domain.CloneTracks(list)
	var persistErr error
	if kind == domain.CollectionFavorites {
		persistErr = s.persistFavoritesLocked(ctx)
	}
	s.mu.Unlock()

	s.bus.Publish(domain.NewCollectionChangedEvent(kind, snapshot))
	if persistErr != nil {
		s.logger.Warn("resolved favorite not persisted", slog.Any("error", persistErr))
	}
	return nil
}

// Remove deletes the track with id from kind and returns the index it had.
// Only the Local collection supports removal.
func (s *PlaylistStore) Remove(kind domain.CollectionKind, id string) (int, error) {
	if err := checkKind(kind); err != nil {
		return -1, err
	}
	if kind != domain.CollectionLocal {
		return -1, domain.ErrNotDeletable
	}

	s.mu.Lock()
	list := s.collections[kind]
	index := indexOfTrack(list, id)
	if index < 0 {
		s.mu.Unlock()
		return -1, domain.ErrTrackNotFound
	}

	updated := make([]domain.Track, 0, len(list)-1)
	updated = append(updated, list[:index]...)
	updated = append(updated, list[index+1:]...)
	s.collections[kind] = updated
	snapshot := domain.CloneTracks(updated)
	s.mu.Unlock()

	s.bus.Publish(domain.NewCollectionChangedEvent(kind, snapshot))
	return index, nil
}

// ToggleFavorite adds track to favorites if absent (by id) and removes it otherwise.
// Membership and list change under one lock. When persisting fails the in-memory
// change is kept, a storage notification is published and the error returned.
func (s *PlaylistStore) ToggleFavorite(ctx context.Context, track domain.Track) (bool, error) {
	if track.ID == "" {
		return false, domain.NewValidationError("track.id", track.ID, "must not be empty")
	}

	s.mu.Lock()
	favs := s.collections[domain.CollectionFavorites]
	index := indexOfTrack(favs, track.ID)
	added := index < 0

	var updated []domain.Track
	if added {
		updated = make([]domain.Track, 0, len(favs)+1)
		updated = append(updated, favs...)
		updated = append(updated, track.Clone())
	} else {
		updated = make([]domain.Track, 0, len(favs)-1)
		updated = append(updated, favs[:index]...)
		updated = append(updated, favs[index+1:]...)
	}
	s.collections[domain.CollectionFavorites] = updated
	snapshot := domain.CloneTracks(updated)
	persistErr := s.persistFavoritesLocked(ctx)
	s.mu.Unlock()

	s.bus.Publish(domain.NewFavoritesChangedEvent(track.Clone(), added))
	s.bus.Publish(domain.NewCollectionChangedEvent(domain.CollectionFavorites, snapshot))

	if persistErr != nil {
		s.reportStorageFailure(persistErr)
		return added, persistErr
	}

	msg := MsgRemovedFromFavorites
	if added {
		msg = MsgSavedToFavorites
	}
	s.bus.Publish(domain.NewNotificationEvent(domain.NotifyInfo, msg, nil))

	return added, nil
}

// IsFavorite reports whether a track with id is in favorites.
func (s *PlaylistStore) IsFavorite(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOfTrack(s.collections[domain.CollectionFavorites], id) >= 0
}

// LoadFavorites restores favorites from the key-value store.
// A missing key leaves the collection empty.
func (s *PlaylistStore) LoadFavorites(ctx context.Context) error {
	data, ok, err := s.kv.Get(ctx, FavoritesKey)
	if err != nil {
		return domain.NewRepositoryError("get", "kv", "failed to load favorites", err)
	}

	tracks := make([]domain.Track, 0)
	if ok && len(data) > 0 {
		if err := json.Unmarshal(data, &tracks); err != nil {
			return domain.NewRepositoryError("decode", "kv", "corrupt favorites snapshot", err)
		}
	}

	s.mu.Lock()
	s.collections[domain.CollectionFavorites] = tracks
	snapshot := domain.CloneTracks(tracks)
	s.mu.Unlock()

	s.logger.Debug("favorites loaded", slog.Int("count", len(tracks)))
	s.bus.Publish(domain.NewCollectionChangedEvent(domain.CollectionFavorites, snapshot))
	return nil
}

// SetViewed changes the collection on screen. Playback is not affected.
func (s *PlaylistStore) SetViewed(kind domain.CollectionKind) error {
	if err := checkKind(kind); err != nil {
		return err
	}

	s.mu.Lock()
	changed := s.viewed != kind
	s.viewed = kind
	s.mu.Unlock()

	if changed {
		s.bus.Publish(domain.NewViewChangedEvent(kind))
	}
	return nil
}

// Viewed returns the collection on screen.
func (s *PlaylistStore) Viewed() domain.CollectionKind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewed
}

// persistFavoritesLocked writes the favorites snapshot. Caller must hold mu.
func (s *PlaylistStore) persistFavoritesLocked(ctx context.Context) error {
	data, err := json.Marshal(s.collections[domain.CollectionFavorites])
	if err != nil {
		return domain.NewRepositoryError("encode", "kv", "failed to encode favorites", err)
	}
	if err := s.kv.Set(ctx, FavoritesKey, data); err != nil {
		return domain.NewRepositoryError("set", "kv", fmt.Sprintf("failed to save %d favorites", len(s.collections[domain.CollectionFavorites])), err)
	}
	return nil
}

func (s *PlaylistStore) reportStorageFailure(err error) {
	s.logger.Warn("favorites not persisted", slog.Any("error", err))
	s.bus.Publish(domain.NewNotificationEvent(domain.NotifyStorageFailure, MsgStorageFull, err))
}

func indexOfTrack(list []domain.Track, id string) int {
	for i, t := range list {
		if t.ID == id {
			return i
		}
	}
	return -1
}
