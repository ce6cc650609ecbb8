// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the PixelTunes player core.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Track represents a single playable item in one of the collections.
type Track struct {
	// ID is unique within its owning collection.
	// The same ID may appear in several collections (e.g. a favorited remote track).
	ID string `json:"id"`

	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`

	// CoverURL is the resolved image URL, empty while unresolved
	CoverURL string `json:"coverUrl"`

	// StreamURL is the resolved playable media URL, empty while unresolved.
	// Local uploads populate it immediately; remote tracks start empty.
	StreamURL string `json:"streamUrl"`

	// DurationHint is advisory only, in seconds.
	// The media output reports the authoritative duration once loaded.
	DurationHint float64 `json:"duration"`

	// Lyrics is the parsed, time-tagged lyric sequence (nil or empty = none)
	Lyrics []LyricLine `json:"lyrics,omitempty"`

	// Remote is present only for tracks that require lazy resolution
	Remote *RemoteRef `json:"remote,omitempty"`
}

// RemoteRef identifies a track at the metadata provider.
type RemoteRef struct {
	Provider string `json:"provider"`
	StreamID string `json:"streamId"`
	CoverRef string `json:"coverRef,omitempty"`
	LyricRef string `json:"lyricRef,omitempty"`
}

// IsResolved reports whether the track can be handed to the media output.
// A track with a remote reference and no stream URL still needs resolution.
func (t Track) IsResolved() bool {
	return t.Remote == nil || t.StreamURL != ""
}

// HasLyrics reports whether synchronized lyrics are available.
func (t Track) HasLyrics() bool {
	return len(t.Lyrics) > 0
}

// ResolutionKey returns the key used to deduplicate resolution requests.
func (t Track) ResolutionKey() string {
	if t.Remote != nil && t.Remote.StreamID != "" {
		return t.Remote.Provider + ":" + t.Remote.StreamID
	}
	return t.ID
}

// Clone returns a deep copy so callers can never alias collection storage.
func (t Track) Clone() Track {
	c := t
	if t.Lyrics != nil {
		c.Lyrics = make([]LyricLine, len(t.Lyrics))
		copy(c.Lyrics, t.Lyrics)
	}
	if t.Remote != nil {
		ref := *t.Remote
		c.Remote = &ref
	}
	return c
}

// CloneTracks deep-copies a slice of tracks. A nil input yields an empty slice.
func CloneTracks(tracks []Track) []Track {
	out := make([]Track, len(tracks))
	for i, t := range tracks {
		out[i] = t.Clone()
	}
	return out
}

// LyricLine is a single timestamped lyric line.
type LyricLine struct {
	// Time is the offset in seconds from the start of the track
	Time float64 `json:"time"`

	// Text is never empty
	Text string `json:"text"`
}

// CollectionKind names one of the three independently addressed collections.
type CollectionKind int

const (
	// CollectionRemote holds search results (session only)
	CollectionRemote CollectionKind = iota

	// CollectionLocal holds uploaded files (persisted in the blob store)
	CollectionLocal

	// CollectionFavorites holds favorited tracks (persisted in the key-value store)
	CollectionFavorites
)

// AllCollections lists every collection kind in display order.
var AllCollections = []CollectionKind{CollectionRemote, CollectionLocal, CollectionFavorites}

// String returns the wire name of the collection kind.
func (k CollectionKind) String() string {
	switch k {
	case CollectionRemote:
		return "remote"
	case CollectionLocal:
		return "local"
	case CollectionFavorites:
		return "favorites"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the known kinds.
func (k CollectionKind) Valid() bool {
	return k >= CollectionRemote && k <= CollectionFavorites
}

// ParseCollectionKind converts a wire name back into a CollectionKind.
func ParseCollectionKind(s string) (CollectionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "remote", "search":
		return CollectionRemote, nil
	case "local", "library":
		return CollectionLocal, nil
	case "favorites", "favourites":
		return CollectionFavorites, nil
	default:
		return 0, NewValidationError("collection", s, "unknown collection")
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k CollectionKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid collection kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *CollectionKind) UnmarshalText(b []byte) error {
	parsed, err := ParseCollectionKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// TransportState is the playback state machine state.
type TransportState int

const (
	// TransportIdle means no track is loaded, or the selected track is unplayable
	TransportIdle TransportState = iota

	// TransportResolving means remote details are being fetched; transport is suppressed
	TransportResolving

	// TransportPlaying means the media output is playing
	TransportPlaying

	// TransportPaused means a track is loaded but not playing
	TransportPaused
)

// String returns a human-readable representation of the transport state.
func (s TransportState) String() string {
	switch s {
	case TransportIdle:
		return "idle"
	case TransportResolving:
		return "resolving"
	case TransportPlaying:
		return "playing"
	case TransportPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s TransportState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PlayerState is a snapshot of the playback side of the session.
// PlaybackController is its only writer; everyone else receives copies.
type PlayerState struct {
	ActiveCollection CollectionKind `json:"activeCollection"`
	ActiveIndex      int            `json:"activeIndex"`
	Transport        TransportState `json:"transport"`

	// ViewedCollection is the tab on screen; it never drives playback
	ViewedCollection CollectionKind `json:"viewedCollection"`

	// Clock is the playback position in seconds as last reported by the media output
	Clock float64 `json:"clock"`

	// Duration is zero until the media output reports metadata
	Duration float64 `json:"duration"`

	// ActiveLyricIndex is -1 when no lyric line is active
	ActiveLyricIndex int `json:"activeLyricIndex"`

	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`

	// CurrentTrack is the selected track, nil before the first selection
	CurrentTrack *Track `json:"currentTrack,omitempty"`
}

// UploadMeta is the metadata stored next to an uploaded file.
type UploadMeta struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Album       string    `json:"album"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}

// StoredUpload is an upload as returned by a blob store.
type StoredUpload struct {
	Meta UploadMeta
	Data []byte
}
