package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
)

func TestStoreStartsEmpty(t *testing.T) {
	h := newHarness(t)

	for _, kind := range domain.AllCollections {
		assert.NotNil(t, h.store.Collection(kind))
		assert.Empty(t, h.store.Collection(kind))
	}
	assert.Equal(t, domain.CollectionRemote, h.store.Viewed())
}

func TestSetCollectionReplacesAndDedupes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.store.SetCollection(ctx, domain.CollectionRemote,
		[]domain.Track{remoteTrack("a"), remoteTrack("b"), remoteTrack("a")}))

	got := h.store.Collection(domain.CollectionRemote)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	changed := h.events.ofType(domain.EventCollectionChanged)
	require.Len(t, changed, 1)
	assert.Len(t, changed[0].(domain.CollectionChangedEvent).Tracks, 2)
}

func TestCollectionReturnsCopies(t *testing.T) {
	h := newHarness(t)
	h.seedRemote(t, "a")

	got := h.store.Collection(domain.CollectionRemote)
	got[0].Title = "mutated"
	got[0].Remote.StreamID = "mutated"

	again, err := h.store.TrackAt(domain.CollectionRemote, 0)
	require.NoError(t, err)
	assert.Equal(t, "Title a", again.Title)
	assert.Equal(t, "a", again.Remote.StreamID)
}

func TestTrackAtBounds(t *testing.T) {
	h := newHarness(t)
	h.seedRemote(t, "a")

	_, err := h.store.TrackAt(domain.CollectionRemote, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidIndex)
	_, err = h.store.TrackAt(domain.CollectionRemote, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidIndex)

	_, err = h.store.TrackAt(domain.CollectionKind(7), 0)
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestUpsertResolvedInPlace(t *testing.T) {
	h := newHarness(t)
	h.seedRemote(t, "a", "b", "c")
	ctx := context.Background()

	resolved := remoteTrack("b")
	resolved.StreamURL = "https://stream.test/b.mp3"

	require.NoError(t, h.store.UpsertResolved(ctx, domain.CollectionRemote, 1, "b", resolved))

	got := h.store.Collection(domain.CollectionRemote)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.True(t, got[1].IsResolved())
	assert.False(t, got[0].IsResolved())
}

func TestUpsertResolvedStale(t *testing.T) {
	h := newHarness(t)
	h.seedRemote(t, "a", "b")
	ctx := context.Background()

	resolved := remoteTrack("a")
	resolved.StreamURL = "https://stream.test/a.mp3"

	// index now holds a different id
	assert.ErrorIs(t, h.store.UpsertResolved(ctx, domain.CollectionRemote, 1, "a", resolved), domain.ErrStaleTrack)
	// index out of range
	assert.ErrorIs(t, h.store.UpsertResolved(ctx, domain.CollectionRemote, 5, "a", resolved), domain.ErrStaleTrack)
	// track id disagrees with the expected id
	assert.ErrorIs(t, h.store.UpsertResolved(ctx, domain.CollectionRemote, 1, "b", resolved), domain.ErrStaleTrack)

	for _, tr := range h.store.Collection(domain.CollectionRemote) {
		assert.False(t, tr.IsResolved())
	}
}

func TestRemoveLocalOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedRemote(t, "a")
	require.NoError(t, h.store.SetCollection(ctx, domain.CollectionLocal,
		[]domain.Track{localTrack("l1"), localTrack("l2"), localTrack("l3")}))

	_, err := h.store.Remove(domain.CollectionRemote, "a")
	assert.ErrorIs(t, err, domain.ErrNotDeletable)
	_, err = h.store.Remove(domain.CollectionFavorites, "a")
	assert.ErrorIs(t, err, domain.ErrNotDeletable)

	idx, err := h.store.Remove(domain.CollectionLocal, "l2")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 2, h.store.Len(domain.CollectionLocal))

	_, err = h.store.Remove(domain.CollectionLocal, "l2")
	assert.ErrorIs(t, err, domain.ErrTrackNotFound)
}

func TestPrependPutsTrackFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.store.Prepend(ctx, domain.CollectionLocal, localTrack("old")))
	require.NoError(t, h.store.Prepend(ctx, domain.CollectionLocal, localTrack("new")))

	got := h.store.Collection(domain.CollectionLocal)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "old", got[1].ID)
}

func TestToggleFavoriteRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.store.SetCollection(ctx, domain.CollectionFavorites, []domain.Track{remoteTrack("keep")}))
	before, ok, err := h.kv.Get(ctx, FavoritesKey)
	require.NoError(t, err)
	require.True(t, ok)

	added, err := h.store.ToggleFavorite(ctx, remoteTrack("x"))
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, h.store.IsFavorite("x"))

	favs := h.store.Collection(domain.CollectionFavorites)
	require.Len(t, favs, 2)
	assert.Equal(t, "x", favs[1].ID, "new favorites are appended")

	added, err = h.store.ToggleFavorite(ctx, remoteTrack("x"))
	require.NoError(t, err)
	assert.False(t, added)
	assert.False(t, h.store.IsFavorite("x"))

	after, _, err := h.kv.Get(ctx, FavoritesKey)
	require.NoError(t, err)
	assert.Equal(t, before, after, "persisted snapshot must match byte for byte")

	msgs := h.events.notifications()
	require.Len(t, msgs, 2)
	assert.Equal(t, MsgSavedToFavorites, msgs[0].Message)
	assert.Equal(t, MsgRemovedFromFavorites, msgs[1].Message)

	favEvents := h.events.ofType(domain.EventFavoritesChanged)
	require.Len(t, favEvents, 2)
	assert.True(t, favEvents[0].(domain.FavoritesChangedEvent).Added)
	assert.False(t, favEvents[1].(domain.FavoritesChangedEvent).Added)
}

func TestToggleFavoritePersistFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.kv.SetFailWrites(true)

	added, err := h.store.ToggleFavorite(ctx, remoteTrack("x"))
	assert.True(t, added)
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.True(t, h.store.IsFavorite("x"), "in-memory change is kept")

	msgs := h.events.notifications()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.NotifyStorageFailure, msgs[0].Kind)
}

func TestToggleFavoriteRejectsEmptyID(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.ToggleFavorite(context.Background(), domain.Track{})
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestToggleFavoriteConcurrent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = h.store.ToggleFavorite(ctx, remoteTrack(string(rune('a'+i))))
		}(i)
	}
	wg.Wait()

	favs := h.store.Collection(domain.CollectionFavorites)
	assert.Len(t, favs, 20)

	data, _, err := h.kv.Get(ctx, FavoritesKey)
	require.NoError(t, err)
	var persisted []domain.Track
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Len(t, persisted, 20, "last write reflects the final list")
}

func TestLoadFavorites(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.store.LoadFavorites(ctx))
	assert.Empty(t, h.store.Collection(domain.CollectionFavorites))

	data, err := json.Marshal([]domain.Track{remoteTrack("a"), localTrack("b")})
	require.NoError(t, err)
	require.NoError(t, h.kv.Set(ctx, FavoritesKey, data))

	require.NoError(t, h.store.LoadFavorites(ctx))
	favs := h.store.Collection(domain.CollectionFavorites)
	require.Len(t, favs, 2)
	assert.Equal(t, "a", favs[0].ID)
	assert.NotNil(t, favs[0].Remote)

	require.NoError(t, h.kv.Set(ctx, FavoritesKey, []byte("{not json")))
	assert.ErrorIs(t, h.store.LoadFavorites(ctx), domain.ErrStorageFailure)
}

func TestViewedIsIndependentOfPlayback(t *testing.T) {
	h := newHarness(t)
	h.seedRemote(t, "a", "b")
	ctx := context.Background()

	require.NoError(t, h.controller.SelectTrack(ctx, domain.CollectionRemote, 1))
	require.NoError(t, h.store.SetViewed(domain.CollectionFavorites))
	require.NoError(t, h.store.SetViewed(domain.CollectionLocal))

	state := h.controller.State()
	assert.Equal(t, domain.CollectionLocal, state.ViewedCollection)
	assert.Equal(t, domain.CollectionRemote, state.ActiveCollection)
	assert.Equal(t, 1, state.ActiveIndex)
	assert.Equal(t, domain.TransportPlaying, state.Transport)

	assert.Len(t, h.events.ofType(domain.EventViewChanged), 2)
	require.NoError(t, h.store.SetViewed(domain.CollectionLocal))
	assert.Len(t, h.events.ofType(domain.EventViewChanged), 2, "unchanged view is not republished")
}
