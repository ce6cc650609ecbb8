// Package remote implements MediaOutput by driving the media element of
// connected browser clients. Commands go out as websocket frames; clock,
// metadata, end and rejection reports come back through Deliver.
package remote

import (
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

// CommandFrame is the frame type every command is sent under.
const CommandFrame = "media.command"

const messageBuffer = 64

// Command names understood by the browser client.
const (
	CommandLoad   = "load"
	CommandPlay   = "play"
	CommandPause  = "pause"
	CommandStop   = "stop"
	CommandSeek   = "seek"
	CommandVolume = "volume"
)

// Broadcaster delivers frames to every connected client.
type Broadcaster interface {
	Broadcast(frameType string, data any) error
	ClientCount() int
}

// Command is the payload of a media.command frame.
type Command struct {
	Command  string  `json:"command"`
	TrackID  string  `json:"trackId,omitempty"`
	Token    uint64  `json:"token,omitempty"`
	URL      string  `json:"url,omitempty"`
	Title    string  `json:"title,omitempty"`
	Position float64 `json:"position,omitempty"`
	Volume   float64 `json:"volume,omitempty"`
}

// Output forwards media commands to browser clients.
//
// Thread-safety: This implementation is thread-safe.
type Output struct {
	logger *slog.Logger
	sink   Broadcaster

	mu       sync.Mutex
	current  *domain.Track
	token    uint64
	duration float64
	volume   float64
	messages chan ports.MediaMessage
}

// NewOutput creates an output that sends through sink.
func NewOutput(logger *slog.Logger, sink Broadcaster) *Output {
	return &Output{
		logger:   logger,
		sink:     sink,
		volume:   1.0,
		messages: make(chan ports.MediaMessage, messageBuffer),
	}
}

// Messages is the channel the playback controller consumes.
func (o *Output) Messages() <-chan ports.MediaMessage {
	return o.messages
}

// Deliver queues a client report for the controller.
// Metadata reports for the current source also update the known duration.
func (o *Output) Deliver(msg ports.MediaMessage) {
	o.mu.Lock()
	if msg.Kind == ports.MediaMetadata && o.isCurrentLocked(msg) {
		o.duration = msg.Duration
	}
	o.mu.Unlock()

	select {
	case o.messages <- msg:
	default:
		o.logger.Warn("media message dropped", slog.String("kind", string(msg.Kind)))
	}
}

func (o *Output) isCurrentLocked(msg ports.MediaMessage) bool {
	if o.current == nil {
		return false
	}
	if msg.Token != 0 && msg.Token != o.token {
		return false
	}
	return msg.TrackID == "" || msg.TrackID == o.current.ID
}

func (o *Output) send(op string, cmd Command) error {
	if err := o.sink.Broadcast(CommandFrame, cmd); err != nil {
		return domain.NewMediaError(op, cmd.URL, "failed to send command", err)
	}
	return nil
}

// Load replaces the current source with track.
func (o *Output) Load(track domain.Track, token uint64) error {
	if track.StreamURL == "" {
		return domain.NewMediaError("load", "", "track has no stream URL", domain.ErrNoTrackLoaded)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.send("load", Command{
		Command: CommandLoad,
		TrackID: track.ID,
		Token:   token,
		URL:     track.StreamURL,
		Title:   track.Title,
	}); err != nil {
		return err
	}

	t := track.Clone()
	o.current = &t
	o.token = token
	o.duration = 0
	o.logger.Debug("source loaded", slog.String("track_id", track.ID), slog.String("url", track.StreamURL))
	return nil
}

// Play starts or resumes playback. It is rejected when no client can play.
func (o *Output) Play() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current == nil {
		return domain.ErrNoTrackLoaded
	}
	if o.sink.ClientCount() == 0 {
		return domain.NewMediaError("play", o.current.StreamURL, "no media client connected", domain.ErrPlaybackRejected)
	}
	return o.send("play", Command{Command: CommandPlay, TrackID: o.current.ID, Token: o.token})
}

// Pause pauses playback.
func (o *Output) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current == nil {
		return domain.ErrNoTrackLoaded
	}
	return o.send("pause", Command{Command: CommandPause, TrackID: o.current.ID, Token: o.token})
}

// Stop releases the current source. Stopping with nothing loaded is a no-op.
func (o *Output) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current == nil {
		return nil
	}
	id, token := o.current.ID, o.token
	o.current = nil
	o.token = 0
	o.duration = 0
	return o.send("stop", Command{Command: CommandStop, TrackID: id, Token: token})
}

// Seek moves the current source to position seconds.
func (o *Output) Seek(position float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current == nil {
		return domain.ErrNoTrackLoaded
	}
	if position < 0 || (o.duration > 0 && position > o.duration) {
		return domain.ErrInvalidPosition
	}
	return o.send("seek", Command{Command: CommandSeek, TrackID: o.current.ID, Token: o.token, Position: position})
}

// SetVolume sets the output volume on every client.
func (o *Output) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return domain.ErrInvalidVolume
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.volume = volume
	return o.send("volume", Command{Command: CommandVolume, Volume: volume})
}

// Current returns the loaded track, if any.
func (o *Output) Current() (domain.Track, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return domain.Track{}, false
	}
	return o.current.Clone(), true
}

var _ ports.MediaOutput = (*Output)(nil)
