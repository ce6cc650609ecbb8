package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tejashwikalptaru/pixeltunes/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/pixeltunes/internal/adapter/media/mock"
	"github.com/tejashwikalptaru/pixeltunes/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/logger"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

var errProviderDown = errors.New("provider down")

// fakeProvider is a scriptable MetadataProvider.
type fakeProvider struct {
	mu sync.Mutex

	streamURLs map[string]string // streamID -> url
	covers     map[string]string
	lyricText  map[string]string
	results    []domain.Track

	failStream bool
	failCover  bool
	failLyric  bool
	failSearch bool

	// gate, when set, blocks StreamURL until closed
	gate    chan struct{}
	entered chan string

	streamCalls atomic.Int32
	coverCalls  atomic.Int32
	lyricCalls  atomic.Int32
	searchCalls atomic.Int32
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		streamURLs: make(map[string]string),
		covers:     make(map[string]string),
		lyricText:  make(map[string]string),
	}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Search(_ context.Context, _ string, limit int) ([]domain.Track, error) {
	p.searchCalls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSearch {
		return nil, domain.NewProviderError("fake", "search", 0, errProviderDown)
	}
	out := domain.CloneTracks(p.results)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (p *fakeProvider) StreamURL(ctx context.Context, _, streamID string, _ int) (string, error) {
	p.streamCalls.Add(1)

	p.mu.Lock()
	gate, entered := p.gate, p.entered
	p.mu.Unlock()

	if entered != nil {
		entered <- streamID
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failStream {
		return "", domain.NewProviderError("fake", "url", 503, nil)
	}
	return p.streamURLs[streamID], nil
}

func (p *fakeProvider) CoverURL(_ context.Context, _, coverRef string, _ int) (string, error) {
	p.coverCalls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failCover {
		return "", errProviderDown
	}
	return p.covers[coverRef], nil
}

func (p *fakeProvider) LyricText(_ context.Context, _, lyricRef string) (string, error) {
	p.lyricCalls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failLyric {
		return "", errProviderDown
	}
	return p.lyricText[lyricRef], nil
}

func remoteTrack(id string) domain.Track {
	return domain.Track{
		ID:     id,
		Title:  "Title " + id,
		Artist: "Artist",
		Album:  "Album",
		Remote: &domain.RemoteRef{Provider: "netease", StreamID: id, CoverRef: "pic-" + id, LyricRef: "lrc-" + id},
	}
}

func localTrack(id string) domain.Track {
	return domain.Track{ID: id, Title: id, Artist: uploadArtist, Album: uploadAlbum, StreamURL: "/media/local/" + id}
}

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) handle(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) notifications() []domain.NotificationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.NotificationEvent
	for _, e := range r.events {
		if n, ok := e.(domain.NotificationEvent); ok {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) ofType(t domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, e := range r.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// harness wires the core services against in-memory adapters.
type harness struct {
	bus        *eventbus.SyncEventBus
	kv         *memory.KeyValueStore
	blobs      *memory.BlobStore
	media      *mock.Output
	provider   *fakeProvider
	resolver   *TrackResolver
	store      *PlaylistStore
	controller *PlaybackController
	library    *LibraryService
	discovery  *DiscoveryService
	events     *recorder
}

func newHarness(t *testing.T, opts ...ControllerOption) *harness {
	t.Helper()

	log := logger.NewTestLogger()
	h := &harness{
		bus:      eventbus.NewSyncEventBus(),
		kv:       memory.NewKeyValueStore(),
		blobs:    memory.NewBlobStore(),
		media:    mock.NewOutput(),
		provider: newFakeProvider(),
		events:   &recorder{},
	}
	h.bus.SubscribeAll(h.events.handle)

	opts = append([]ControllerOption{WithStatusLogInterval(0)}, opts...)

	h.resolver = NewTrackResolver(log, h.provider)
	h.store = NewPlaylistStore(log, h.bus, h.kv)
	h.controller = NewPlaybackController(log, h.store, h.resolver, h.media, h.bus, opts...)
	h.library = NewLibraryService(log, h.blobs, h.store, h.controller, h.bus, "/media/local")
	h.discovery = NewDiscoveryService(log, h.provider, h.store, h.controller, h.bus)

	t.Cleanup(func() {
		_ = h.controller.Shutdown()
		_ = h.bus.Close()
	})
	return h
}

// seedRemote fills Remote with n unresolved tracks and teaches the provider their URLs.
func (h *harness) seedRemote(t *testing.T, ids ...string) {
	t.Helper()
	tracks := make([]domain.Track, 0, len(ids))
	for _, id := range ids {
		tracks = append(tracks, remoteTrack(id))
		h.provider.streamURLs[id] = "https://stream.test/" + id + ".mp3"
	}
	if err := h.store.SetCollection(context.Background(), domain.CollectionRemote, tracks); err != nil {
		t.Fatalf("seed remote: %v", err)
	}
}

// drain removes every queued media message without dispatching it.
func (h *harness) drain() []ports.MediaMessage {
	var held []ports.MediaMessage
	for {
		select {
		case msg := <-h.media.Messages():
			held = append(held, msg)
		default:
			return held
		}
	}
}

// pump dispatches every queued media message.
func (h *harness) pump(ctx context.Context) {
	for {
		select {
		case msg := <-h.media.Messages():
			h.controller.Dispatch(ctx, msg)
		default:
			return
		}
	}
}
