// Package httpapi exposes the player core to a browser front end.
//
// It serves a JSON API for transport and collection operations, streams
// uploaded files, and runs a websocket hub that forwards bus events to
// clients and feeds their media reports back to the playback controller.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/tejashwikalptaru/pixeltunes/internal/service"
)

const (
	// maxUploadSize bounds multipart uploads
	maxUploadSize = 64 << 20

	shutdownTimeout = 5 * time.Second
)

// Deps are the services the API drives.
type Deps struct {
	Store      *service.PlaylistStore
	Controller *service.PlaybackController
	Library    *service.LibraryService
	Discovery  *service.DiscoveryService
	Hub        *Hub
}

// Server routes HTTP requests to the player services.
type Server struct {
	logger     *slog.Logger
	store      *service.PlaylistStore
	controller *service.PlaybackController
	library    *service.LibraryService
	discovery  *service.DiscoveryService
	hub        *Hub

	upgrader websocket.Upgrader
	router   *mux.Router
}

// NewServer creates the API server and registers its routes.
func NewServer(logger *slog.Logger, deps Deps) *Server {
	s := &Server{
		logger:     logger,
		store:      deps.Store,
		controller: deps.Controller,
		library:    deps.Library,
		discovery:  deps.Discovery,
		hub:        deps.Hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.logMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/collections/{kind}", s.handleCollection).Methods(http.MethodGet)
	api.HandleFunc("/view", s.handleView).Methods(http.MethodPost)
	api.HandleFunc("/select", s.handleSelect).Methods(http.MethodPost)
	api.HandleFunc("/toggle", s.handleToggle).Methods(http.MethodPost)
	api.HandleFunc("/next", s.handleNext).Methods(http.MethodPost)
	api.HandleFunc("/previous", s.handlePrevious).Methods(http.MethodPost)
	api.HandleFunc("/seek", s.handleSeek).Methods(http.MethodPost)
	api.HandleFunc("/volume", s.handleVolume).Methods(http.MethodPost)
	api.HandleFunc("/mute", s.handleMute).Methods(http.MethodPost)
	api.HandleFunc("/favorites/toggle", s.handleToggleFavorite).Methods(http.MethodPost)
	api.HandleFunc("/favorites/play", s.handlePlayFavorites).Methods(http.MethodPost)
	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodPost)
	api.HandleFunc("/discover", s.handleDiscover).Methods(http.MethodPost)
	api.HandleFunc("/uploads", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/uploads/{id}", s.handleDeleteUpload).Methods(http.MethodDelete)

	r.HandleFunc("/media/local/{id}", s.handleLocalMedia).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/ws", s.handleWebsocket)
}

// Handler returns the root HTTP handler.
// CORS wraps the router so preflight requests never reach method matching.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.router)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("elapsed", time.Since(start)))
	})
}
