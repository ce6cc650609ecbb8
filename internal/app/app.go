// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tejashwikalptaru/pixeltunes/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/pixeltunes/internal/adapter/httpapi"
	"github.com/tejashwikalptaru/pixeltunes/internal/adapter/media/mock"
	"github.com/tejashwikalptaru/pixeltunes/internal/adapter/media/remote"
	"github.com/tejashwikalptaru/pixeltunes/internal/adapter/provider"
	"github.com/tejashwikalptaru/pixeltunes/internal/adapter/provider/gdstudio"
	"github.com/tejashwikalptaru/pixeltunes/internal/adapter/provider/netease"
	"github.com/tejashwikalptaru/pixeltunes/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/pixeltunes/internal/adapter/repository/minio"
	"github.com/tejashwikalptaru/pixeltunes/internal/adapter/repository/redis"
	"github.com/tejashwikalptaru/pixeltunes/internal/adapter/repository/sqlite"
	"github.com/tejashwikalptaru/pixeltunes/internal/config"
	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/logger"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
	"github.com/tejashwikalptaru/pixeltunes/internal/service"
)

// AppName is the display name used in banners and version strings.
const AppName = "PixelTunes"

// mockTickInterval is how often the headless media output advances its clock
const mockTickInterval = 250 * time.Millisecond

// Application is the root application structure that holds all dependencies.
// It is the single session context: every component reaches shared state
// through the references it was constructed with.
type Application struct {
	// Core dependencies
	config config.Config
	logger *slog.Logger

	// Infrastructure
	eventBus  *eventbus.SyncEventBus
	provider  ports.MetadataProvider
	media     ports.MediaOutput
	messages  <-chan ports.MediaMessage
	mockMedia *mock.Output
	hub       *httpapi.Hub
	server    *httpapi.Server
	redis     *redis.Client

	// Services
	store      *service.PlaylistStore
	controller *service.PlaybackController
	library    *service.LibraryService
	discovery  *service.DiscoveryService

	closers      []func() error
	shutdownOnce sync.Once
	shutdownErr  error
}

// Options controls how the application is assembled.
type Options struct {
	Config config.Config

	// MockMedia replaces the browser-driven media output with the in-memory one
	MockMedia bool

	// Logger overrides the logger built from Config.Log
	Logger *slog.Logger

	// Provider overrides the configured metadata provider (tests)
	Provider ports.MetadataProvider
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(ctx context.Context, opts Options) (*Application, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{config: cfg}

	// Step 1: Create logger
	app.logger = opts.Logger
	if app.logger == nil {
		app.logger = NewLogger(cfg.Log)
	}
	app.logger.Info("initializing application", slog.String("app_name", AppName))

	// Step 2: Create an event bus
	app.eventBus = eventbus.NewSyncEventBus()
	app.eventBus.SetLogger(app.logger.With(slog.String("component", "eventbus")))

	// Step 3: Create repositories
	kv, blobs, err := app.openStorage(ctx)
	if err != nil {
		_ = app.closeAll()
		return nil, err
	}

	// Step 4: Create the metadata provider
	app.provider = opts.Provider
	if app.provider == nil {
		cache, err := app.openCache(ctx)
		if err != nil {
			_ = app.closeAll()
			return nil, err
		}
		app.provider = NewProvider(cfg.Provider, app.logger)
		if cache != nil {
			app.provider = provider.NewCached(app.logger, app.provider, cache, cfg.Cache.StreamTTL, cfg.Cache.MetaTTL)
		}
	}

	// Step 5: Create the websocket hub and the media output
	app.hub = httpapi.NewHub(app.logger.With(slog.String("component", "hub")))
	if opts.MockMedia {
		out := mock.NewOutput()
		out.SetLogger(app.logger.With(slog.String("media", "mock")))
		app.mockMedia = out
		app.media = out
		app.messages = out.Messages()
	} else {
		out := remote.NewOutput(app.logger.With(slog.String("media", "remote")), app.hub)
		app.hub.SetInboundHandler(func(_ context.Context, frame httpapi.InboundFrame) {
			msg, ok := frame.MediaMessage()
			if !ok {
				app.logger.Debug("unknown media frame", slog.String("type", frame.Type))
				return
			}
			out.Deliver(msg)
		})
		app.media = out
		app.messages = out.Messages()
	}

	// Step 6: Create services (with dependency injection)
	resolver := service.NewTrackResolver(app.logger, app.provider,
		service.WithBitrate(cfg.Provider.Bitrate),
		service.WithCoverSize(cfg.Provider.CoverSize),
		service.WithFetchTimeout(3*cfg.Provider.Timeout),
	)
	app.store = service.NewPlaylistStore(app.logger, app.eventBus, kv)
	app.controller = service.NewPlaybackController(app.logger, app.store, resolver, app.media, app.eventBus,
		service.WithDefaultVolume(cfg.Player.DefaultVolume),
		service.WithStatusLogInterval(cfg.Player.StatusLogInterval),
	)
	app.library = service.NewLibraryService(app.logger, blobs, app.store, app.controller, app.eventBus, cfg.Server.MediaBaseURL)

	discoveryOpts := []service.DiscoveryOption{
		service.WithRecentTagLimit(cfg.Player.RecentTagLimit),
		service.WithSearchLimit(cfg.Provider.SearchLimit),
	}
	if len(cfg.Player.DiscoveryTags) > 0 {
		discoveryOpts = append(discoveryOpts, service.WithDiscoveryTags(cfg.Player.DiscoveryTags))
	}
	app.discovery = service.NewDiscoveryService(app.logger, app.provider, app.store, app.controller, app.eventBus, discoveryOpts...)

	// Step 7: Forward every event to websocket clients, and log failures
	app.eventBus.SubscribeAll(app.hub.PublishEvent)
	app.eventBus.SubscribeFiltered(domain.EventNotification, isFailureNotification, app.logNotification)

	app.server = httpapi.NewServer(app.logger.With(slog.String("component", "http")), httpapi.Deps{
		Store:      app.store,
		Controller: app.controller,
		Library:    app.library,
		Discovery:  app.discovery,
		Hub:        app.hub,
	})

	// Step 8: Load saved state
	if err := app.loadSavedState(ctx); err != nil {
		// Non-fatal - just log and continue
		app.logger.Warn("failed to load saved state", slog.Any("error", err))
	}

	return app, nil
}

// NewLogger builds the process logger from the log section of the config.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	lc := logger.DefaultConfig()
	if cfg.Level != "" {
		lc.Level = logger.ParseLevel(cfg.Level)
	}
	if cfg.Format != "" {
		lc.Format = cfg.Format
	}
	lc.File = cfg.File
	return logger.NewLogger(lc)
}

func isFailureNotification(event domain.Event) bool {
	n, ok := event.(domain.NotificationEvent)
	return ok && n.Kind != domain.NotifyInfo
}

func (a *Application) logNotification(event domain.Event) {
	n := event.(domain.NotificationEvent)
	a.logger.Warn("user notified of failure",
		slog.String("kind", string(n.Kind)),
		slog.String("message", n.Message),
		slog.Any("error", n.Err))
}

// NewProvider builds the configured metadata provider without caching.
func NewProvider(cfg config.ProviderConfig, log *slog.Logger) ports.MetadataProvider {
	if cfg.Kind == "netease" {
		return netease.NewClient(log, cfg.BaseURL, cfg.Timeout)
	}
	return gdstudio.NewClient(log, cfg.BaseURL, cfg.Source, cfg.Timeout)
}

// openStorage connects the key-value and blob backends.
func (a *Application) openStorage(ctx context.Context) (ports.KeyValueStore, ports.BlobStore, error) {
	cfg := a.config

	var db *sqlite.DB
	if cfg.UsesSQLite() {
		path := cfg.Storage.SQLitePath
		if path == "" {
			p, err := sqlite.DefaultPath()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to resolve database path: %w", err)
			}
			path = p
		}
		d, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, d.Close)
		db = d
		a.logger.Info("sqlite storage opened", slog.String("path", path))
	}

	var rdb *redis.Client
	if cfg.UsesRedis() {
		c, err := a.connectRedis(ctx)
		if err != nil {
			return nil, nil, err
		}
		rdb = c
	}

	var kv ports.KeyValueStore
	switch cfg.Storage.KV {
	case "sqlite":
		kv = sqlite.NewKeyValueStore(db)
	case "redis":
		kv = rdb
	default:
		kv = memory.NewKeyValueStore()
	}

	var blobs ports.BlobStore
	switch cfg.Storage.Blob {
	case "sqlite":
		blobs = sqlite.NewBlobStore(db)
	case "minio":
		store, err := minio.Connect(ctx, a.logger, minio.Options{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
			Region:    cfg.Minio.Region,
		})
		if err != nil {
			return nil, nil, err
		}
		blobs = store
	default:
		blobs = memory.NewBlobStore()
	}

	return kv, blobs, nil
}

// connectRedis opens the shared redis client once.
func (a *Application) connectRedis(ctx context.Context) (*redis.Client, error) {
	c, err := redis.Connect(ctx, redis.Options{
		Addr:     a.config.Redis.Addr,
		Password: a.config.Redis.Password,
		DB:       a.config.Redis.DB,
		Prefix:   a.config.Redis.Prefix,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, c.Close)
	a.redis = c
	return c, nil
}

// openCache returns the provider cache, or nil when caching is disabled.
func (a *Application) openCache(ctx context.Context) (ports.Cache, error) {
	switch a.config.Cache.Kind {
	case "redis":
		if a.redis == nil {
			if _, err := a.connectRedis(ctx); err != nil {
				return nil, err
			}
		}
		return a.redis.Cache(), nil
	case "memory":
		return memory.NewCache(), nil
	default:
		return nil, nil
	}
}

// loadSavedState restores the application state from the previous session.
func (a *Application) loadSavedState(ctx context.Context) error {
	var errs []error
	if err := a.store.LoadFavorites(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to load favorites: %w", err))
	}
	if err := a.library.Load(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to load uploads: %w", err))
	}
	return errors.Join(errs...)
}

// Run serves HTTP and drives the controller until ctx is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	a.logger.Info(GetVersionInfo().FullString())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.hub.Run()
	}()
	go func() {
		defer wg.Done()
		a.controller.Run(runCtx, a.messages)
	}()

	if a.mockMedia != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.tickMockMedia(runCtx)
		}()
	}

	err := a.server.ListenAndServe(runCtx, a.config.Server.Addr)

	cancel()
	a.hub.Stop()
	wg.Wait()
	return err
}

// tickMockMedia advances the headless media output in real time.
func (a *Application) tickMockMedia(ctx context.Context) {
	ticker := time.NewTicker(mockTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.mockMedia.Tick(mockTickInterval.Seconds())
		}
	}
}

// Shutdown gracefully shuts down the application.
// Calling it more than once returns the first result.
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down application")

		var errs []error
		if a.hub != nil {
			a.hub.Stop()
		}
		if a.library != nil {
			if err := a.library.Shutdown(); err != nil {
				errs = append(errs, fmt.Errorf("library service: %w", err))
			}
		}
		if a.controller != nil {
			if err := a.controller.Shutdown(); err != nil {
				errs = append(errs, fmt.Errorf("playback controller: %w", err))
			}
		}
		if a.eventBus != nil {
			if err := a.eventBus.Close(); err != nil {
				errs = append(errs, fmt.Errorf("event bus: %w", err))
			}
		}
		if err := a.closeAll(); err != nil {
			errs = append(errs, err)
		}

		a.shutdownErr = errors.Join(errs...)
		a.logger.Info("application shutdown complete")
	})
	return a.shutdownErr
}

// closeAll releases storage connections in reverse order of opening.
func (a *Application) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// GetServices returns the core services.
func (a *Application) GetServices() (*service.PlaylistStore, *service.PlaybackController, *service.LibraryService, *service.DiscoveryService) {
	return a.store, a.controller, a.library, a.discovery
}

// GetEventBus returns the event bus.
func (a *Application) GetEventBus() ports.EventBus {
	return a.eventBus
}

// Handler returns the HTTP handler (tests mount it on httptest servers).
func (a *Application) Handler() http.Handler {
	return a.server.Handler()
}

// MockMedia returns the in-memory media output, or nil when clients drive playback.
func (a *Application) MockMedia() *mock.Output {
	return a.mockMedia
}
