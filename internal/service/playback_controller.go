// Package service provides the coordination core of the PixelTunes player.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/lyrics"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

// Notification texts raised by the controller.
const (
	MsgResourceBlocked  = "RESOURCE BLOCKED / API ERROR"
	MsgPlaybackBlocked  = "PLAYBACK BLOCKED"
	MsgNoFavoritesYet   = "NO FAVORITES YET"
	MsgPlayingFavorites = "PLAYING FAVORITES"
)

// Direct stream placeholders.
const (
	customTitle  = "CUSTOM URL STREAM"
	customArtist = "UNKNOWN ARTIST"
	customAlbum  = "LOCAL IMPORT"
)

// DefaultVolume is the volume of a new session.
const DefaultVolume = 0.5

// DefaultStatusLogInterval is how often a status line is emitted for tracks without lyrics.
const DefaultStatusLogInterval = 2 * time.Second

// statusLogKeep is how many status lines stay visible.
const statusLogKeep = 9

// RetroLogs are the status lines shown while a track without lyrics plays.
var RetroLogs = []string{
	"ANALYZING AUDIO SPECTRUM...",
	"BITRATE: 320KBPS [HQ]",
	"SYNCING WAVEFORMS...",
	"DETECTING BEAT...",
	"CPU USAGE: 12%",
	"AUDIO_BUFFER: OK",
	"DECODING STREAM...",
	"RENDERING PIXELS...",
	"VIRTUAL SURROUND: ON",
	">>> MUSIC IS LIFE <<<",
}

// Resolver fills in the remote details of a track.
type Resolver interface {
	Resolve(ctx context.Context, track domain.Track) (domain.Track, error)
}

// ControllerOption configures a PlaybackController.
type ControllerOption func(*PlaybackController)

// WithDefaultVolume sets the initial volume.
func WithDefaultVolume(v float64) ControllerOption {
	return func(c *PlaybackController) {
		if v >= 0 && v <= 1 {
			c.volume = v
		}
	}
}

// WithStatusLogInterval sets the status line cadence. Zero disables the ticker.
func WithStatusLogInterval(d time.Duration) ControllerOption {
	return func(c *PlaybackController) {
		c.statusInterval = d
	}
}

// WithStatusLines replaces the pool of status lines.
func WithStatusLines(lines []string) ControllerOption {
	return func(c *PlaybackController) {
		if len(lines) > 0 {
			c.statusLines = append([]string(nil), lines...)
		}
	}
}

// WithRand sets the random source used to pick status lines.
func WithRand(r *rand.Rand) ControllerOption {
	return func(c *PlaybackController) {
		if r != nil {
			c.rng = r
		}
	}
}

// WithClock sets the time source used to stamp status lines.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *PlaybackController) {
		if now != nil {
			c.now = now
		}
	}
}

// PlaybackController is the transport state machine.
// It is the only writer of the player state and drives the media output.
//
// Events are queued while the lock is held and published after it is released,
// so subscribers may read controller state from their handlers.
type PlaybackController struct {
	// Dependencies (injected)
	logger   *slog.Logger
	store    *PlaylistStore
	resolver Resolver
	media    ports.MediaOutput
	bus      ports.EventBus

	// State
	activeKind  domain.CollectionKind
	activeIndex int
	transport   domain.TransportState
	clock       float64
	duration    float64
	lyricIndex  int
	volume      float64
	muted       bool
	current     *domain.Track
	generation  uint64
	loadSeq     uint64
	loadToken   uint64
	statusLog   []string

	// Status log ticker
	statusInterval time.Duration
	statusLines    []string
	rng            *rand.Rand
	now            func() time.Time
	stopTicker     chan struct{}
	tickerWg       sync.WaitGroup
	tickerRunning  bool

	// Concurrency control
	mu      sync.Mutex
	pending []domain.Event
}

// NewPlaybackController creates a controller and starts its status log ticker.
func NewPlaybackController(
	logger *slog.Logger,
	store *PlaylistStore,
	resolver Resolver,
	media ports.MediaOutput,
	bus ports.EventBus,
	opts ...ControllerOption,
) *PlaybackController {
	c := &PlaybackController{
		logger:         logger.With(slog.String("service", "playback")),
		store:          store,
		resolver:       resolver,
		media:          media,
		bus:            bus,
		lyricIndex:     -1,
		volume:         DefaultVolume,
		statusInterval: DefaultStatusLogInterval,
		statusLines:    RetroLogs,
		rng:            rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		now:            time.Now,
		stopTicker:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.startStatusTicker()
	c.logger.Debug("playback controller initialized", slog.Float64("volume", c.volume))

	return c
}

// queue records an event for publication after unlock. Caller must hold mu.
func (c *PlaybackController) queue(e domain.Event) {
	c.pending = append(c.pending, e)
}

// unlock releases mu and publishes the queued events in order.
func (c *PlaybackController) unlock() {
	events := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, e := range events {
		c.bus.Publish(e)
	}
}

// setTransportLocked changes the transport state. Caller must hold mu.
func (c *PlaybackController) setTransportLocked(to domain.TransportState) {
	if c.transport == to {
		return
	}
	from := c.transport
	c.transport = to
	c.queue(domain.NewTransportChangedEvent(from, to, c.currentCopyLocked()))
}

func (c *PlaybackController) currentCopyLocked() *domain.Track {
	if c.current == nil {
		return nil
	}
	t := c.current.Clone()
	return &t
}

// effectiveVolumeLocked is the volume the media output should use. Caller must hold mu.
func (c *PlaybackController) effectiveVolumeLocked() float64 {
	if c.muted {
		return 0
	}
	return c.volume
}

// stopMediaLocked stops the current source. Caller must hold mu.
func (c *PlaybackController) stopMediaLocked() {
	if err := c.media.Stop(); err != nil {
		c.logger.Warn("failed to stop media output", slog.Any("error", err))
	}
}

// SelectTrack makes the track at index in kind the active one and starts it.
//
// Remote tracks are resolved first with the lock released. If another selection
// happens meanwhile, this call's result is discarded and ErrSelectionSuperseded
// is returned.
func (c *PlaybackController) SelectTrack(ctx context.Context, kind domain.CollectionKind, index int) error {
	c.mu.Lock()

	track, err := c.store.TrackAt(kind, index)
	if err != nil {
		c.unlock()
		return err
	}

	c.generation++
	gen := c.generation

	c.activeKind = kind
	c.activeIndex = index
	c.clock = 0
	c.duration = 0
	c.lyricIndex = -1
	c.current = &track

	c.stopMediaLocked()
	c.queue(domain.NewTrackSelectedEvent(kind, index, track.Clone()))
	c.setTransportLocked(domain.TransportResolving)
	c.unlock()

	c.logger.Debug("track selected",
		slog.String("collection", kind.String()),
		slog.Int("index", index),
		slog.String("track_id", track.ID),
		slog.Bool("resolved", track.IsResolved()))

	resolved, err := c.resolver.Resolve(ctx, track)

	c.mu.Lock()
	if c.generation != gen {
		c.unlock()
		return domain.ErrSelectionSuperseded
	}
	if err != nil {
		c.setTransportLocked(domain.TransportIdle)
		c.queue(domain.NewNotificationEvent(domain.NotifyResolutionFailed, MsgResourceBlocked, err))
		c.unlock()
		c.logger.Warn("track resolution failed", slog.String("track_id", track.ID), slog.Any("error", err))
		return err
	}
	c.unlock()

	if !track.IsResolved() {
		if err := c.store.UpsertResolved(ctx, kind, index, track.ID, resolved); err != nil {
			c.mu.Lock()
			if c.generation != gen {
				c.unlock()
				return domain.ErrSelectionSuperseded
			}
			c.setTransportLocked(domain.TransportIdle)
			c.unlock()
			return err
		}
	}

	c.mu.Lock()
	if c.generation != gen {
		c.unlock()
		return domain.ErrSelectionSuperseded
	}
	c.current = &resolved
	if !track.IsResolved() {
		c.queue(domain.NewTrackResolvedEvent(kind, index, resolved.Clone()))
	}
	err = c.startLocked(resolved)
	c.unlock()

	return err
}

// startLocked loads track and starts playback. Caller must hold mu.
// A rejected start leaves the transport Paused.
func (c *PlaybackController) startLocked(track domain.Track) error {
	c.loadSeq++
	c.loadToken = c.loadSeq
	if err := c.media.Load(track, c.loadToken); err != nil {
		return c.rejectLocked("load", track.StreamURL, err)
	}
	if err := c.media.SetVolume(c.effectiveVolumeLocked()); err != nil {
		c.logger.Warn("failed to apply volume", slog.Any("error", err))
	}
	if err := c.media.Play(); err != nil {
		return c.rejectLocked("play", track.StreamURL, err)
	}

	c.setTransportLocked(domain.TransportPlaying)
	return nil
}

// rejectLocked records a playback rejection. Caller must hold mu.
func (c *PlaybackController) rejectLocked(op, url string, cause error) error {
	err := domain.NewMediaError(op, url, "playback rejected", errors.Join(domain.ErrPlaybackRejected, cause))
	c.setTransportLocked(domain.TransportPaused)
	c.queue(domain.NewNotificationEvent(domain.NotifyPlaybackRejected, MsgPlaybackBlocked, err))
	c.logger.Warn("playback rejected", slog.String("op", op), slog.Any("error", cause))
	return err
}

// TogglePlayPause switches between Playing and Paused.
// It does nothing while Idle or Resolving.
func (c *PlaybackController) TogglePlayPause() error {
	c.mu.Lock()

	var err error
	switch c.transport {
	case domain.TransportPlaying:
		if pauseErr := c.media.Pause(); pauseErr != nil {
			c.logger.Warn("failed to pause media output", slog.Any("error", pauseErr))
		}
		c.setTransportLocked(domain.TransportPaused)
	case domain.TransportPaused:
		if playErr := c.media.Play(); playErr != nil {
			url := ""
			if c.current != nil {
				url = c.current.StreamURL
			}
			err = c.rejectLocked("play", url, playErr)
		} else {
			c.setTransportLocked(domain.TransportPlaying)
		}
	}

	c.unlock()
	return err
}

// Next selects the following track of the active collection, wrapping at the end.
func (c *PlaybackController) Next(ctx context.Context) error {
	return c.step(ctx, 1)
}

// Previous selects the preceding track of the active collection, wrapping at the start.
func (c *PlaybackController) Previous(ctx context.Context) error {
	return c.step(ctx, -1)
}

func (c *PlaybackController) step(ctx context.Context, delta int) error {
	c.mu.Lock()
	kind := c.activeKind
	index := c.activeIndex
	c.mu.Unlock()

	n := c.store.Len(kind)
	if n == 0 {
		return nil
	}

	target := ((index+delta)%n + n) % n
	return c.SelectTrack(ctx, kind, target)
}

// Seek moves playback to fraction of the known duration.
func (c *PlaybackController) Seek(fraction float64) error {
	if fraction < 0 || fraction > 1 {
		return domain.ErrInvalidPosition
	}

	c.mu.Lock()

	if c.transport != domain.TransportPlaying && c.transport != domain.TransportPaused {
		c.unlock()
		return domain.ErrNoTrackLoaded
	}
	if c.duration <= 0 {
		c.unlock()
		return domain.ErrDurationUnknown
	}

	position := fraction * c.duration
	if err := c.media.Seek(position); err != nil {
		c.unlock()
		return domain.NewMediaError("seek", "", "seek failed", err)
	}

	c.clock = position
	c.queue(domain.NewTrackProgressEvent(c.clock, c.duration))
	c.updateLyricLocked()
	c.unlock()

	return nil
}

// SetVolume sets the volume. Any level above zero also unmutes.
func (c *PlaybackController) SetVolume(level float64) error {
	if level < 0 || level > 1 {
		return domain.ErrInvalidVolume
	}

	c.mu.Lock()
	c.volume = level
	if level > 0 && c.muted {
		c.muted = false
		c.queue(domain.NewMuteToggledEvent(false))
	}
	if err := c.media.SetVolume(c.effectiveVolumeLocked()); err != nil {
		c.logger.Warn("failed to apply volume", slog.Any("error", err))
	}
	c.queue(domain.NewVolumeChangedEvent(level))
	c.unlock()

	return nil
}

// ToggleMute mutes or unmutes the output. The volume level is kept.
func (c *PlaybackController) ToggleMute() bool {
	c.mu.Lock()
	c.muted = !c.muted
	muted := c.muted
	if err := c.media.SetVolume(c.effectiveVolumeLocked()); err != nil {
		c.logger.Warn("failed to apply volume", slog.Any("error", err))
	}
	c.queue(domain.NewMuteToggledEvent(muted))
	c.unlock()

	return muted
}

// PlayDirectURL plays a stream URL that bypasses search.
// The Remote collection becomes the single synthetic track.
func (c *PlaybackController) PlayDirectURL(ctx context.Context, url string) (domain.Track, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return domain.Track{}, domain.NewValidationError("url", url, "must not be empty")
	}

	track := domain.Track{
		ID:        "custom-" + uuid.NewString(),
		Title:     customTitle,
		Artist:    customArtist,
		Album:     customAlbum,
		StreamURL: url,
	}

	c.HandleRemoteReplaced()
	if err := c.store.SetCollection(ctx, domain.CollectionRemote, []domain.Track{track}); err != nil {
		return track, err
	}
	if err := c.store.SetViewed(domain.CollectionRemote); err != nil {
		return track, err
	}

	return track, c.SelectTrack(ctx, domain.CollectionRemote, 0)
}

// PlayAllFavorites starts the favorites collection from the top.
func (c *PlaybackController) PlayAllFavorites(ctx context.Context) error {
	if c.store.Len(domain.CollectionFavorites) == 0 {
		c.bus.Publish(domain.NewNotificationEvent(domain.NotifyInfo, MsgNoFavoritesYet, nil))
		return domain.ErrPlaylistEmpty
	}

	c.bus.Publish(domain.NewNotificationEvent(domain.NotifyInfo, MsgPlayingFavorites, nil))
	return c.SelectTrack(ctx, domain.CollectionFavorites, 0)
}

// HandleLocalRemoved adjusts the selection after the Local track at index was removed.
func (c *PlaybackController) HandleLocalRemoved(index int) {
	c.mu.Lock()

	if c.activeKind != domain.CollectionLocal {
		c.unlock()
		return
	}

	switch {
	case index == c.activeIndex:
		c.generation++
		c.stopMediaLocked()
		c.current = nil
		c.clock = 0
		c.duration = 0
		c.lyricIndex = -1
		if index >= c.store.Len(domain.CollectionLocal) {
			c.activeIndex = 0
		}
		c.setTransportLocked(domain.TransportIdle)
		c.logger.Debug("active local track removed", slog.Int("active_index", c.activeIndex))
	case index < c.activeIndex:
		c.activeIndex--
	}

	c.unlock()
}

// HandleRemoteReplaced resets the selection before new search results replace Remote.
// It does nothing when Remote is not feeding playback.
func (c *PlaybackController) HandleRemoteReplaced() {
	c.mu.Lock()

	if c.activeKind != domain.CollectionRemote {
		c.unlock()
		return
	}

	c.generation++
	c.stopMediaLocked()
	c.activeIndex = 0
	c.current = nil
	c.clock = 0
	c.duration = 0
	c.lyricIndex = -1
	c.setTransportLocked(domain.TransportIdle)
	c.unlock()
}

// isStaleLocked reports whether msg belongs to an earlier load.
// Reloading the same track issues a new token, so its old messages are stale too.
func (c *PlaybackController) isStaleLocked(msg ports.MediaMessage) bool {
	if msg.Token != 0 && msg.Token != c.loadToken {
		return true
	}
	return msg.TrackID != "" && (c.current == nil || c.current.ID != msg.TrackID)
}

// Dispatch applies one media message to the state machine.
func (c *PlaybackController) Dispatch(ctx context.Context, msg ports.MediaMessage) {
	c.mu.Lock()

	if c.isStaleLocked(msg) {
		c.unlock()
		c.logger.Debug("stale media message dropped",
			slog.String("kind", string(msg.Kind)),
			slog.String("track_id", msg.TrackID),
			slog.Uint64("token", msg.Token))
		return
	}

	loaded := c.transport == domain.TransportPlaying || c.transport == domain.TransportPaused

	switch msg.Kind {
	case ports.MediaClock:
		if !loaded {
			break
		}
		c.clock = msg.Time
		c.queue(domain.NewTrackProgressEvent(c.clock, c.duration))
		c.updateLyricLocked()

	case ports.MediaMetadata:
		if msg.Duration > 0 {
			c.duration = msg.Duration
			c.queue(domain.NewTrackProgressEvent(c.clock, c.duration))
		}

	case ports.MediaRejected:
		if c.transport == domain.TransportPlaying {
			url := ""
			if c.current != nil {
				url = c.current.StreamURL
			}
			cause := msg.Err
			if cause == nil {
				cause = fmt.Errorf("media element refused playback")
			}
			_ = c.rejectLocked("play", url, cause)
		}

	case ports.MediaEnded:
		c.unlock()
		if !loaded {
			return
		}
		if err := c.Next(ctx); err != nil && !errors.Is(err, domain.ErrSelectionSuperseded) {
			c.logger.Warn("auto advance failed", slog.Any("error", err))
		}
		return

	default:
		c.logger.Debug("unknown media message", slog.String("kind", string(msg.Kind)))
	}

	c.unlock()
}

// Run feeds messages from ch into the state machine until ctx is done or ch is closed.
func (c *PlaybackController) Run(ctx context.Context, ch <-chan ports.MediaMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.Dispatch(ctx, msg)
		}
	}
}

// updateLyricLocked recomputes the active lyric line. Caller must hold mu.
func (c *PlaybackController) updateLyricLocked() {
	if c.current == nil {
		return
	}

	idx := lyrics.ActiveIndex(c.current.Lyrics, c.clock)
	if idx == c.lyricIndex {
		return
	}

	c.lyricIndex = idx
	text := ""
	if idx >= 0 {
		text = c.current.Lyrics[idx].Text
	}
	c.queue(domain.NewLyricLineChangedEvent(idx, text))
}

// State returns a snapshot of the player state.
func (c *PlaybackController) State() domain.PlayerState {
	viewed := c.store.Viewed()

	c.mu.Lock()
	defer c.mu.Unlock()

	return domain.PlayerState{
		ActiveCollection: c.activeKind,
		ActiveIndex:      c.activeIndex,
		Transport:        c.transport,
		ViewedCollection: viewed,
		Clock:            c.clock,
		Duration:         c.duration,
		ActiveLyricIndex: c.lyricIndex,
		Volume:           c.volume,
		Muted:            c.muted,
		CurrentTrack:     c.currentCopyLocked(),
	}
}

// StatusLog returns the most recent status lines, oldest first.
func (c *PlaybackController) StatusLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.statusLog...)
}

// startStatusTicker starts the goroutine that emits status lines.
func (c *PlaybackController) startStatusTicker() {
	if c.statusInterval <= 0 {
		return
	}

	c.mu.Lock()
	c.tickerRunning = true
	c.tickerWg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.tickerWg.Done()
		ticker := time.NewTicker(c.statusInterval)
		defer ticker.Stop()

		for {
			select {
			case <-c.stopTicker:
				return
			case <-ticker.C:
				c.emitStatusLine()
			}
		}
	}()
}

// emitStatusLine appends a status line while a track without lyrics is playing.
func (c *PlaybackController) emitStatusLine() {
	c.mu.Lock()

	if c.transport != domain.TransportPlaying || c.current == nil || c.current.HasLyrics() {
		c.unlock()
		return
	}

	line := fmt.Sprintf("[%s] %s", c.now().Format("15:04:05"), c.statusLines[c.rng.IntN(len(c.statusLines))])
	c.statusLog = append(c.statusLog, line)
	if len(c.statusLog) > statusLogKeep {
		c.statusLog = c.statusLog[len(c.statusLog)-statusLogKeep:]
	}
	c.queue(domain.NewStatusLogEvent(line))
	c.unlock()
}

// Shutdown stops the status ticker and the media output.
func (c *PlaybackController) Shutdown() error {
	c.mu.Lock()
	if c.tickerRunning {
		close(c.stopTicker)
		c.tickerRunning = false
	}
	// Release lock before waiting for the ticker goroutine to exit
	c.mu.Unlock()

	c.tickerWg.Wait()

	c.mu.Lock()
	c.generation++
	c.stopMediaLocked()
	c.setTransportLocked(domain.TransportIdle)
	c.unlock()

	return nil
}
