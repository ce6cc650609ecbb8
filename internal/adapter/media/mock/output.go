// Package mock provides an in-memory implementation of the MediaOutput interface.
// It is used by tests and by the headless server mode where no browser is attached.
package mock

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

// DefaultDuration is reported for tracks without a duration hint, in seconds.
const DefaultDuration = 180.0

// Status is the simulated state of the loaded source.
type Status int

const (
	StatusStopped Status = iota
	StatusPlaying
	StatusPaused
)

// Output is a mock implementation of the MediaOutput interface.
// It simulates a single media element in memory without producing any sound.
//
// Thread-safety: This implementation is thread-safe.
type Output struct {
	// Dependencies
	logger *slog.Logger

	// Source state
	source   *source
	volume   float64
	loads    int
	messages chan ports.MediaMessage
	mu       sync.RWMutex

	// Behavior configuration (for testing error scenarios)
	failLoad bool
	failPlay bool
}

// source represents the loaded media in the mock output.
type source struct {
	track    domain.Track
	token    uint64
	duration float64
	position float64
	status   Status
}

// NewOutput creates a new mock media output.
// Reported clock, metadata and end messages are buffered on Messages();
// they are dropped when nobody drains the channel.
func NewOutput() *Output {
	return &Output{
		volume:   1.0,
		messages: make(chan ports.MediaMessage, 64),
		logger:   slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger for this output.
// This should be called after construction before using the output.
func (m *Output) SetLogger(logger *slog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if logger != nil {
		m.logger = logger
	}
}

// SetFailLoad configures the mock to fail loading sources (for testing).
func (m *Output) SetFailLoad(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLoad = fail
}

// SetFailPlay configures the mock to reject playback (for testing).
func (m *Output) SetFailPlay(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPlay = fail
}

// Messages returns the channel of simulated media element reports.
func (m *Output) Messages() <-chan ports.MediaMessage {
	return m.messages
}

// Load replaces the current source with track.
func (m *Output) Load(track domain.Track, token uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failLoad {
		return domain.NewMediaError("load", track.StreamURL, "mock load failed", nil)
	}

	if track.StreamURL == "" {
		return domain.NewMediaError("load", "", "track has no stream URL", domain.ErrNoTrackLoaded)
	}

	duration := track.DurationHint
	if duration <= 0 {
		duration = DefaultDuration
	}

	m.source = &source{
		track:    track,
		token:    token,
		duration: duration,
		status:   StatusStopped,
	}
	m.loads++

	m.logger.Debug("mock source loaded", slog.String("track_id", track.ID), slog.String("url", track.StreamURL))
	m.emit(ports.MediaMessage{Kind: ports.MediaMetadata, TrackID: track.ID, Token: token, Duration: duration})

	return nil
}

// Play starts or resumes playback.
func (m *Output) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.source == nil {
		return domain.ErrNoTrackLoaded
	}

	if m.failPlay {
		return domain.NewMediaError("play", m.source.track.StreamURL, "mock playback rejected", domain.ErrPlaybackRejected)
	}

	m.source.status = StatusPlaying
	return nil
}

// Pause pauses playback.
func (m *Output) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.source == nil {
		return domain.ErrNoTrackLoaded
	}

	if m.source.status == StatusPlaying {
		m.source.status = StatusPaused
	}

	return nil
}

// Stop stops playback and releases the source.
func (m *Output) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.source = nil
	return nil
}

// Seek sets the playback position in seconds.
func (m *Output) Seek(position float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.source == nil {
		return domain.ErrNoTrackLoaded
	}

	if position < 0 || position > m.source.duration {
		return domain.ErrInvalidPosition
	}

	m.source.position = position
	return nil
}

// SetVolume sets the output volume.
func (m *Output) SetVolume(volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if volume < 0.0 || volume > 1.0 {
		return domain.ErrInvalidVolume
	}

	m.volume = volume
	return nil
}

// Volume returns the last applied volume (for testing).
func (m *Output) Volume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volume
}

// Status returns the simulated status of the loaded source.
func (m *Output) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.source == nil {
		return StatusStopped
	}
	return m.source.status
}

// Position returns the simulated position in seconds.
func (m *Output) Position() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.source == nil {
		return 0
	}
	return m.source.position
}

// Current returns the loaded track, if any.
func (m *Output) Current() (domain.Track, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.source == nil {
		return domain.Track{}, false
	}
	return m.source.track, true
}

// ActiveSources returns 1 while a source is loaded, 0 otherwise.
func (m *Output) ActiveSources() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.source == nil {
		return 0
	}
	return 1
}

// LoadCount returns how many sources were loaded since creation (for testing).
func (m *Output) LoadCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loads
}

// SimulateProgress advances a playing source by delta seconds and reports the clock.
// Reaching the end reports MediaEnded and stops the source.
func (m *Output) SimulateProgress(delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.source == nil {
		return domain.ErrNoTrackLoaded
	}

	if m.source.status != StatusPlaying {
		return fmt.Errorf("source is not playing")
	}

	src := m.source
	src.position += delta
	if src.position >= src.duration {
		src.position = src.duration
		src.status = StatusStopped
		m.emit(ports.MediaMessage{Kind: ports.MediaClock, TrackID: src.track.ID, Token: src.token, Time: src.position})
		m.emit(ports.MediaMessage{Kind: ports.MediaEnded, TrackID: src.track.ID, Token: src.token})
		return nil
	}

	m.emit(ports.MediaMessage{Kind: ports.MediaClock, TrackID: src.track.ID, Token: src.token, Time: src.position})
	return nil
}

// Tick advances playback like SimulateProgress but ignores a missing or paused source.
// The headless server calls it on a timer.
func (m *Output) Tick(delta float64) {
	if m.Status() != StatusPlaying {
		return
	}
	_ = m.SimulateProgress(delta)
}

// emit must be called with mu held.
func (m *Output) emit(msg ports.MediaMessage) {
	select {
	case m.messages <- msg:
	default:
		m.logger.Debug("mock media message dropped", slog.String("kind", string(msg.Kind)))
	}
}

// Verify that Output implements the MediaOutput interface
var _ ports.MediaOutput = (*Output)(nil)
