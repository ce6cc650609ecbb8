// Package ports define interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of external frameworks.
package ports

import (
	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
)

// MediaOutput is the single shared media pipeline that plays resolved tracks.
// In production this is the browser's media element driven over websocket;
// tests use an in-memory implementation.
//
// At most one source is active at a time: Load always replaces the previous
// source. Implementations must be thread-safe.
type MediaOutput interface {
	// Load stops any current source and prepares track.StreamURL for playback.
	// The track must be resolved. token identifies this load; every message
	// reported for the source carries it back.
	Load(track domain.Track, token uint64) error

	// Play starts or resumes the loaded source.
	// An error means the environment refused playback (gesture policy, decode error).
	Play() error

	// Pause pauses the loaded source, keeping its position.
	Pause() error

	// Stop stops and releases the loaded source. Stopping with nothing loaded is a no-op.
	Stop() error

	// Seek moves the loaded source to position seconds.
	Seek(position float64) error

	// SetVolume sets the effective output volume (0.0 to 1.0).
	SetVolume(volume float64) error
}

// MediaMessageKind distinguishes the messages the media output reports back.
type MediaMessageKind string

const (
	// MediaClock reports the current playback position
	MediaClock MediaMessageKind = "clock"

	// MediaEnded reports that the source reached its natural end
	MediaEnded MediaMessageKind = "ended"

	// MediaMetadata reports that duration metadata became available
	MediaMetadata MediaMessageKind = "metadata"

	// MediaRejected reports an asynchronous playback rejection
	MediaRejected MediaMessageKind = "rejected"
)

// MediaMessage is one message on the channel that drives the playback state machine.
type MediaMessage struct {
	Kind MediaMessageKind

	// TrackID identifies the source the message refers to; empty means "current"
	TrackID string

	// Token echoes the token of the Load that produced the source; zero means unknown
	Token uint64

	// Time is the clock position in seconds (MediaClock)
	Time float64

	// Duration is the source duration in seconds (MediaMetadata)
	Duration float64

	// Err describes the rejection (MediaRejected)
	Err error
}
