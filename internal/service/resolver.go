package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/lyrics"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

// Resolution defaults.
const (
	DefaultBitrate    = 320
	DefaultCoverSize  = 500
	defaultMemoLimit  = 512
	defaultFetchLimit = 30 * time.Second
	resolveStepStream = "stream"
)

// ResolverOption configures a TrackResolver.
type ResolverOption func(*TrackResolver)

// WithBitrate sets the requested stream bitrate.
func WithBitrate(br int) ResolverOption {
	return func(r *TrackResolver) {
		if br > 0 {
			r.bitrate = br
		}
	}
}

// WithCoverSize sets the requested cover edge length in pixels.
func WithCoverSize(size int) ResolverOption {
	return func(r *TrackResolver) {
		if size > 0 {
			r.coverSize = size
		}
	}
}

// WithMemoLimit bounds how many resolved tracks are remembered.
func WithMemoLimit(n int) ResolverOption {
	return func(r *TrackResolver) {
		if n > 0 {
			r.memoLimit = n
		}
	}
}

// WithFetchTimeout bounds one shared fetch sequence. The sequence outlives
// the caller that started it, so it needs its own deadline.
func WithFetchTimeout(d time.Duration) ResolverOption {
	return func(r *TrackResolver) {
		if d > 0 {
			r.fetchTimeout = d
		}
	}
}

// TrackResolver lazily fills in stream URL, cover and lyrics for remote tracks.
//
// Concurrent requests for the same track share one fetch sequence, and a
// successful result is remembered so later requests make no network calls.
// Failures are not remembered; the next selection may try again.
type TrackResolver struct {
	logger   *slog.Logger
	provider ports.MetadataProvider

	bitrate   int
	coverSize int
	memoLimit int

	fetchTimeout time.Duration

	group singleflight.Group

	mu        sync.Mutex
	memo      map[string]domain.Track
	memoOrder []string
}

// NewTrackResolver creates a resolver backed by provider.
func NewTrackResolver(logger *slog.Logger, provider ports.MetadataProvider, opts ...ResolverOption) *TrackResolver {
	r := &TrackResolver{
		logger:    logger.With(slog.String("service", "resolver")),
		provider:  provider,
		bitrate:   DefaultBitrate,
		coverSize: DefaultCoverSize,
		memoLimit: defaultMemoLimit,
		memo:      make(map[string]domain.Track),

		fetchTimeout: defaultFetchLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns track with its remote details filled in.
// Tracks that are already resolved are returned unchanged.
//
// Callers of the same track wait on one fetch. Cancelling ctx only abandons
// this caller's wait; the fetch keeps running for the others.
func (r *TrackResolver) Resolve(ctx context.Context, track domain.Track) (domain.Track, error) {
	if track.IsResolved() {
		return track, nil
	}

	key := track.ResolutionKey()
	if cached, ok := r.lookup(key); ok {
		return r.adopt(track, cached), nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (interface{}, error) {
		if cached, ok := r.lookup(key); ok {
			return cached, nil
		}
		fctx, cancel := context.WithTimeout(fetchCtx, r.fetchTimeout)
		defer cancel()

		resolved, err := r.fetch(fctx, track)
		if err != nil {
			return nil, err
		}
		r.remember(key, resolved)
		return resolved, nil
	})

	select {
	case <-ctx.Done():
		return track, domain.NewResolutionError(track.ID, resolveStepStream, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return track, res.Err
		}
		if res.Shared {
			r.logger.Debug("joined in-flight resolution", slog.String("key", key))
		}
		return r.adopt(track, res.Val.(domain.Track)), nil
	}
}

// fetch runs the three provider calls. Only the stream URL is mandatory.
func (r *TrackResolver) fetch(ctx context.Context, track domain.Track) (domain.Track, error) {
	ref := track.Remote
	out := track.Clone()

	url, err := r.provider.StreamURL(ctx, ref.Provider, ref.StreamID, r.bitrate)
	if err != nil {
		r.logger.Warn("stream url request failed",
			slog.String("track_id", track.ID), slog.Any("error", err))
		return track, domain.NewResolutionError(track.ID, resolveStepStream, err)
	}
	if url == "" {
		return track, domain.NewResolutionError(track.ID, resolveStepStream, nil)
	}
	out.StreamURL = url

	if ref.CoverRef != "" {
		cover, err := r.provider.CoverURL(ctx, ref.Provider, ref.CoverRef, r.coverSize)
		switch {
		case err != nil:
			r.logger.Debug("cover unavailable", slog.String("track_id", track.ID), slog.Any("error", err))
		case cover != "":
			out.CoverURL = cover
		}
	}

	if ref.LyricRef != "" {
		raw, err := r.provider.LyricText(ctx, ref.Provider, ref.LyricRef)
		if err != nil {
			r.logger.Debug("lyrics unavailable", slog.String("track_id", track.ID), slog.Any("error", err))
		} else {
			out.Lyrics = lyrics.Parse(raw)
		}
	}

	r.logger.Debug("track resolved",
		slog.String("track_id", track.ID),
		slog.Bool("cover", out.CoverURL != ""),
		slog.Int("lyric_lines", len(out.Lyrics)))

	return out, nil
}

// adopt copies resolved fields onto the caller's track so display fields
// (title, album fallback) set by the collection are kept.
func (r *TrackResolver) adopt(track, resolved domain.Track) domain.Track {
	out := track.Clone()
	out.StreamURL = resolved.StreamURL
	if resolved.CoverURL != "" {
		out.CoverURL = resolved.CoverURL
	}
	if resolved.Lyrics != nil {
		out.Lyrics = make([]domain.LyricLine, len(resolved.Lyrics))
		copy(out.Lyrics, resolved.Lyrics)
	}
	return out
}

func (r *TrackResolver) lookup(key string) (domain.Track, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.memo[key]
	return t, ok
}

func (r *TrackResolver) remember(key string, track domain.Track) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.memo[key]; ok {
		return
	}
	if len(r.memoOrder) >= r.memoLimit {
		oldest := r.memoOrder[0]
		r.memoOrder = r.memoOrder[1:]
		delete(r.memo, oldest)
	}
	r.memo[key] = track
	r.memoOrder = append(r.memoOrder, key)
}

// Remembered reports how many resolved tracks are held.
func (r *TrackResolver) Remembered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.memo)
}
