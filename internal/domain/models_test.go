package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackIsResolved(t *testing.T) {
	assert.True(t, Track{ID: "local"}.IsResolved())
	assert.False(t, Track{ID: "r", Remote: &RemoteRef{StreamID: "1"}}.IsResolved())
	assert.True(t, Track{ID: "r", StreamURL: "u", Remote: &RemoteRef{StreamID: "1"}}.IsResolved())
}

func TestTrackResolutionKey(t *testing.T) {
	assert.Equal(t, "netease:42", Track{ID: "x", Remote: &RemoteRef{Provider: "netease", StreamID: "42"}}.ResolutionKey())
	assert.Equal(t, "x", Track{ID: "x"}.ResolutionKey())
}

func TestTrackCloneIsDeep(t *testing.T) {
	orig := Track{
		ID:     "a",
		Lyrics: []LyricLine{{Time: 1, Text: "one"}},
		Remote: &RemoteRef{StreamID: "s"},
	}
	c := orig.Clone()
	c.Lyrics[0].Text = "changed"
	c.Remote.StreamID = "changed"

	assert.Equal(t, "one", orig.Lyrics[0].Text)
	assert.Equal(t, "s", orig.Remote.StreamID)
	assert.NotNil(t, CloneTracks(nil))
}

func TestParseCollectionKind(t *testing.T) {
	cases := map[string]CollectionKind{
		"remote":     CollectionRemote,
		"Search":     CollectionRemote,
		" local ":    CollectionLocal,
		"library":    CollectionLocal,
		"favorites":  CollectionFavorites,
		"FAVOURITES": CollectionFavorites,
	}
	for in, want := range cases {
		got, err := ParseCollectionKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseCollectionKind("history")
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestCollectionKindJSON(t *testing.T) {
	data, err := json.Marshal(PlayerState{ActiveCollection: CollectionFavorites, Transport: TransportPaused})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"activeCollection":"favorites"`)
	assert.Contains(t, string(data), `"transport":"paused"`)

	var k CollectionKind
	require.NoError(t, json.Unmarshal([]byte(`"local"`), &k))
	assert.Equal(t, CollectionLocal, k)

	_, err = json.Marshal(CollectionKind(9))
	assert.Error(t, err)
}

func TestErrorUnwrapping(t *testing.T) {
	assert.ErrorIs(t, NewResolutionError("t", "stream", nil), ErrResolutionFailed)
	assert.ErrorIs(t, NewProviderError("p", "search", 500, nil), ErrNetworkFailure)
	assert.ErrorIs(t, NewRepositoryError("set", "kv", "boom", ErrNotFound), ErrStorageFailure)
	assert.ErrorIs(t, NewRepositoryError("set", "kv", "boom", ErrNotFound), ErrNotFound)
	assert.ErrorIs(t, NewMediaError("play", "", "x", ErrPlaybackRejected), ErrPlaybackRejected)
}
