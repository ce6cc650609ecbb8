package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/service"
)

type stateResponse struct {
	domain.PlayerState
	StatusLog []string `json:"statusLog"`
}

// collectionItem is a track as rendered in a list
type collectionItem struct {
	domain.Track
	CoverColor  string `json:"coverColor"`
	CoverAccent string `json:"coverAccent"`
	Favorite    bool   `json:"favorite"`
}

type viewRequest struct {
	Collection domain.CollectionKind `json:"collection"`
}

type selectRequest struct {
	Collection domain.CollectionKind `json:"collection"`
	Index      int                   `json:"index"`
}

type seekRequest struct {
	Fraction *float64 `json:"fraction"`
}

type volumeRequest struct {
	Level *float64 `json:"level"`
}

type searchRequest struct {
	Term string `json:"term"`
}

type favoriteResponse struct {
	Favorite  bool `json:"favorite"`
	Persisted bool `json:"persisted"`
}

type discoverResponse struct {
	Tag    string         `json:"tag"`
	Tracks []domain.Track `json:"tracks"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse{
		PlayerState: s.controller.State(),
		StatusLog:   s.controller.StatusLog(),
	})
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseCollectionKind(mux.Vars(r)["kind"])
	if err != nil {
		s.writeError(w, err)
		return
	}

	tracks := s.store.Collection(kind)
	items := make([]collectionItem, 0, len(tracks))
	for _, t := range tracks {
		items = append(items, collectionItem{
			Track:       t,
			CoverColor:  service.CoverColor(t.Title),
			CoverAccent: service.CoverAccent(t.Title),
			Favorite:    s.store.IsFavorite(t.ID),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.store.SetViewed(req.Collection); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.controller.SelectTrack(r.Context(), req.Collection, req.Index); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.controller.State())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.transport(w, func(context.Context) error { return s.controller.TogglePlayPause() }, r)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.transport(w, s.controller.Next, r)
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	s.transport(w, s.controller.Previous, r)
}

func (s *Server) handlePlayFavorites(w http.ResponseWriter, r *http.Request) {
	s.transport(w, s.controller.PlayAllFavorites, r)
}

// transport runs a controller operation and answers with the resulting state.
func (s *Server) transport(w http.ResponseWriter, op func(context.Context) error, r *http.Request) {
	if err := op(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.controller.State())
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Fraction == nil {
		s.writeError(w, domain.NewValidationError("fraction", nil, "required"))
		return
	}
	if err := s.controller.Seek(*req.Fraction); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.controller.State())
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Level == nil {
		s.writeError(w, domain.NewValidationError("level", nil, "required"))
		return
	}
	if err := s.controller.SetVolume(*req.Level); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.controller.State())
}

func (s *Server) handleMute(w http.ResponseWriter, r *http.Request) {
	muted := s.controller.ToggleMute()
	writeJSON(w, http.StatusOK, map[string]bool{"muted": muted})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !s.decode(w, r, &req) {
		return
	}
	track, err := s.store.TrackAt(req.Collection, req.Index)
	if err != nil {
		s.writeError(w, err)
		return
	}

	added, err := s.store.ToggleFavorite(r.Context(), track)
	switch {
	case errors.Is(err, domain.ErrStorageFailure):
		// the in-memory change stands; the client already got a notification
		writeJSON(w, http.StatusOK, favoriteResponse{Favorite: added})
	case err != nil:
		s.writeError(w, err)
	default:
		writeJSON(w, http.StatusOK, favoriteResponse{Favorite: added, Persisted: true})
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}
	tracks, err := s.discovery.Search(r.Context(), req.Term)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	tag, tracks, err := s.discovery.RandomDiscovery(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, discoverResponse{Tag: tag, Tracks: tracks})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.writeError(w, domain.NewValidationError("file", nil, err.Error()))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, domain.NewValidationError("file", nil, "missing file field"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, domain.NewValidationError("file", header.Filename, err.Error()))
		return
	}

	track, err := s.library.Upload(r.Context(), data, header.Filename)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, track)
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.library.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLocalMedia(w http.ResponseWriter, r *http.Request) {
	upload, err := s.library.Open(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	if upload.Meta.ContentType != "" {
		w.Header().Set("Content-Type", upload.Meta.ContentType)
	}
	http.ServeContent(w, r, upload.Meta.Filename, upload.Meta.CreatedAt, bytes.NewReader(upload.Data))
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	s.hub.Attach(context.WithoutCancel(r.Context()), conn)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, domain.NewValidationError("body", nil, err.Error()))
		return false
	}
	return true
}

// StatusFor maps a service error onto an HTTP status code.
func StatusFor(err error) int {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr),
		errors.Is(err, domain.ErrInvalidIndex),
		errors.Is(err, domain.ErrInvalidVolume),
		errors.Is(err, domain.ErrInvalidPosition),
		errors.Is(err, domain.ErrEmptySearch),
		errors.Is(err, domain.ErrInvalidUpload),
		errors.Is(err, domain.ErrNotDeletable):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrTrackNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSelectionSuperseded),
		errors.Is(err, domain.ErrDurationUnknown),
		errors.Is(err, domain.ErrPlaylistEmpty),
		errors.Is(err, domain.ErrNoTrackLoaded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.Any("error", err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
