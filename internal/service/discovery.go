package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

// Search notification texts.
const (
	MsgConnectionError = "CONNECTION ERROR"
	MsgNoResults       = "NO RESULTS FOUND"
)

// Search defaults.
const (
	DefaultSearchLimit    = 20
	DefaultRecentTagLimit = 20
	defaultAlbum          = "Single"
)

// DefaultDiscoveryTags is the curated pool used by random discovery.
var DefaultDiscoveryTags = []string{
	// Mandopop / C-Pop
	"周杰伦", "陈奕迅", "林俊杰", "邓紫棋", "王力宏", "五月天", "孙燕姿", "蔡依林", "李荣浩", "薛之谦",
	"伍佰", "张学友", "王菲", "陶喆", "苏打绿", "张惠妹", "莫文蔚", "徐佳莹", "田馥甄", "告五人",
	"草东没有派对", "万能青年旅店", "赵雷", "朴树", "许巍", "李健", "毛不易", "周深", "张杰", "华晨宇",

	// Genres / Moods
	"抖音热歌", "网络热歌", "经典老歌", "车载音乐", "助眠纯音乐", "游戏原声", "古风", "民谣", "说唱", "摇滚",
	"R&B", "Jazz", "Lo-Fi", "Hip-Hop", "Electronic", "Synthwave", "Vaporwave", "City Pop", "Cyberpunk",
	"Classical", "Piano", "Violin", "Guitar", "Study Music", "Workout", "Relaxing", "Sad Songs",

	// Western / International
	"Taylor Swift", "Justin Bieber", "Ed Sheeran", "Adele", "Bruno Mars", "Coldplay", "Imagine Dragons", "Maroon 5",
	"Billie Eilish", "Ariana Grande", "The Weeknd", "Post Malone", "Eminem", "Drake", "Rihanna", "Beyonce",
	"Linkin Park", "Green Day", "Queen", "The Beatles", "Michael Jackson", "Madonna", "Britney Spears",

	// K-Pop / J-Pop
	"BTS", "BLACKPINK", "Twice", "NewJeans", "EXO", "Big Bang", "IU", "G-Dragon",
	"Kenshi Yonezu", "YOASOBI", "Official Hige Dandism", "King Gnu", "Fujii Kaze", "Radwimps", "One OK Rock",
	"Lisa", "Aimer", "Ghibli", "Anime OST", "Naruto", "One Piece",
}

// DiscoveryOption configures a DiscoveryService.
type DiscoveryOption func(*DiscoveryService)

// WithDiscoveryTags replaces the tag pool.
func WithDiscoveryTags(tags []string) DiscoveryOption {
	return func(s *DiscoveryService) {
		if len(tags) > 0 {
			s.tags = append([]string(nil), tags...)
		}
	}
}

// WithRecentTagLimit sets how many recently used tags are excluded.
func WithRecentTagLimit(n int) DiscoveryOption {
	return func(s *DiscoveryService) {
		if n >= 0 {
			s.recentLimit = n
		}
	}
}

// WithSearchLimit sets how many results a search requests.
func WithSearchLimit(n int) DiscoveryOption {
	return func(s *DiscoveryService) {
		if n > 0 {
			s.searchLimit = n
		}
	}
}

// WithDiscoveryRand sets the random source used to pick tags.
func WithDiscoveryRand(r *rand.Rand) DiscoveryOption {
	return func(s *DiscoveryService) {
		if r != nil {
			s.rng = r
		}
	}
}

// DiscoveryService runs searches and the random tag mix.
type DiscoveryService struct {
	logger     *slog.Logger
	provider   ports.MetadataProvider
	store      *PlaylistStore
	controller *PlaybackController
	bus        ports.EventBus

	tags        []string
	recentLimit int
	searchLimit int

	mu     sync.Mutex
	rng    *rand.Rand
	recent []string // newest first
}

// NewDiscoveryService creates a discovery service.
func NewDiscoveryService(
	logger *slog.Logger,
	provider ports.MetadataProvider,
	store *PlaylistStore,
	controller *PlaybackController,
	bus ports.EventBus,
	opts ...DiscoveryOption,
) *DiscoveryService {
	s := &DiscoveryService{
		logger:      logger.With(slog.String("service", "discovery")),
		provider:    provider,
		store:       store,
		controller:  controller,
		bus:         bus,
		tags:        DefaultDiscoveryTags,
		recentLimit: DefaultRecentTagLimit,
		searchLimit: DefaultSearchLimit,
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x2545f4914f6cdd1d)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search looks term up and replaces the Remote collection with the results.
//
// A term starting with "http" is played directly as a stream URL. On failure or
// an empty result the Remote collection keeps its previous contents. Searching
// for a discovery tag starts the first result.
func (s *DiscoveryService) Search(ctx context.Context, term string) ([]domain.Track, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, domain.ErrEmptySearch
	}

	if strings.HasPrefix(term, "http") {
		track, err := s.controller.PlayDirectURL(ctx, term)
		return []domain.Track{track}, err
	}

	if err := s.store.SetViewed(domain.CollectionRemote); err != nil {
		return nil, err
	}

	results, err := s.provider.Search(ctx, term, s.searchLimit)
	if err != nil {
		if !errors.Is(err, domain.ErrNetworkFailure) {
			err = domain.NewProviderError(s.provider.Name(), "search", 0, err)
		}
		s.logger.Warn("search failed", slog.String("term", term), slog.Any("error", err))
		s.bus.Publish(domain.NewNotificationEvent(domain.NotifyNetworkFailure, MsgConnectionError, err))
		return nil, err
	}

	if len(results) == 0 {
		s.bus.Publish(domain.NewNotificationEvent(domain.NotifyInfo, MsgNoResults, nil))
		return []domain.Track{}, nil
	}

	for i := range results {
		if strings.TrimSpace(results[i].Album) == "" {
			results[i].Album = defaultAlbum
		}
	}

	s.controller.HandleRemoteReplaced()
	if err := s.store.SetCollection(ctx, domain.CollectionRemote, results); err != nil {
		return nil, err
	}
	tracks := s.store.Collection(domain.CollectionRemote)

	s.logger.Info("search completed", slog.String("term", term), slog.Int("results", len(tracks)))

	if slices.Contains(s.tags, term) {
		if err := s.controller.SelectTrack(ctx, domain.CollectionRemote, 0); err != nil {
			return tracks, err
		}
	}

	return tracks, nil
}

// RandomDiscovery picks a tag not used recently and searches for it.
func (s *DiscoveryService) RandomDiscovery(ctx context.Context) (string, []domain.Track, error) {
	tag := s.NextTag()
	tracks, err := s.Search(ctx, tag)
	return tag, tracks, err
}

// NextTag picks a tag outside the recent history and records it.
// When every tag was used recently the full pool is used.
func (s *DiscoveryService) NextTag() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool := make([]string, 0, len(s.tags))
	for _, tag := range s.tags {
		if !slices.Contains(s.recent, tag) {
			pool = append(pool, tag)
		}
	}
	if len(pool) == 0 {
		pool = s.tags
	}

	tag := pool[s.rng.IntN(len(pool))]

	s.recent = append([]string{tag}, s.recent...)
	if len(s.recent) > s.recentLimit {
		s.recent = s.recent[:s.recentLimit]
	}

	return tag
}

// RecentTags returns the recently used tags, newest first.
func (s *DiscoveryService) RecentTags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recent...)
}
