package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"cadenza/internal/store"
	"cadenza/pkg/models"
)

// handleTracks returns tracks optionally filtered, searched or sorted.
func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	if search := query.Get("search"); search != "" {
		tracks, err := s.store.SearchTracks(search)
		if err != nil {
			s.respondWithError(w, r, http.StatusInternalServerError, "Error searching tracks", err)
			return
		}
		s.respondJSON(w, tracks)
		return
	}

	filter := store.TrackFilter{
		Artist:      query.Get("artist"),
		Album:       query.Get("album"),
		AlbumArtist: query.Get("albumArtist"),
	}
	sort := store.SortSpec{
		Column: query.Get("sort"),
		Desc:   query.Get("order") == "desc",
	}

	tracks, err := s.store.GetTracks(filter, sort)
	if err != nil {
		var ve *store.ValidationError
		if errors.As(err, &ve) {
			s.respondWithError(w, r, http.StatusBadRequest, ve.Error(), nil)
			return
		}
		s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving tracks", err)
		return
	}
	s.respondJSON(w, tracks)
}

// handleTrackByID dispatches GET/PATCH/DELETE for a single track, plus the
// track genres subresource.
func (s *Server) handleTrackByID(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r, 3)
	if verr != nil {
		s.respondWithError(w, r, http.StatusBadRequest, verr.Message, nil)
		return
	}

	if strings.HasSuffix(r.URL.Path, "/genres") {
		s.handleGetTrackGenres(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		track, err := s.store.GetTrack(id)
		if errors.Is(err, store.ErrNotFound) {
			s.respondWithError(w, r, http.StatusNotFound, "Track not found", nil)
			return
		}
		if err != nil {
			s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving track", err)
			return
		}
		s.respondJSON(w, track)

	case http.MethodPatch:
		var update models.TrackUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			s.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}
		changed, err := s.store.UpdateTrack(id, update)
		if err != nil {
			var ve *store.ValidationError
			if errors.As(err, &ve) {
				s.respondWithError(w, r, http.StatusBadRequest, ve.Error(), nil)
				return
			}
			s.respondWithError(w, r, http.StatusInternalServerError, "Error updating track", err)
			return
		}
		s.respondJSON(w, map[string]int64{"rowsChanged": changed})

	case http.MethodDelete:
		deleted, err := s.store.DeleteTrack(id)
		if err != nil {
			s.respondWithError(w, r, http.StatusInternalServerError, "Error deleting track", err)
			return
		}
		s.respondJSON(w, map[string]int64{"rowsChanged": deleted})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetTrackGenres lists a track's genres in lexicographic order.
func (s *Server) handleGetTrackGenres(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	genres, err := s.store.GetTrackGenres(id)
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving track genres", err)
		return
	}
	if genres == nil {
		genres = []string{}
	}
	s.respondJSON(w, genres)
}

// handleGetAlbums returns the materialized album gallery.
func (s *Server) handleGetAlbums(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	albums, err := s.store.GetAllAlbums()
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving albums", err)
		return
	}
	s.respondJSON(w, albums)
}

// handleGetGenres returns every genre ordered by name.
func (s *Server) handleGetGenres(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	genres, err := s.store.GetAllGenres()
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving genres", err)
		return
	}
	s.respondJSON(w, genres)
}

// handleGetStats combines store entity counts with library disk usage.
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	storeStats, err := s.store.GetStats()
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving store stats", err)
		return
	}
	libraryStats, err := s.library.Stats()
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving library stats", err)
		return
	}

	s.respondJSON(w, map[string]interface{}{
		"store":   storeStats,
		"library": libraryStats,
	})
}

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Database  string                 `json:"database"`
	Storage   string                 `json:"storage"`
	Tracks    int                    `json:"trackCount"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// handleHealthCheck returns basic liveness + dependency checks.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Database:  "ok",
		Storage:   "ok",
		Details:   make(map[string]interface{}),
	}

	if err := s.store.Ping(); err != nil {
		health.Status = "unhealthy"
		health.Database = "error"
		health.Details["database_error"] = err.Error()
	}

	if ok, reasons := s.pipeline.ValidatePrerequisites(); !ok {
		health.Status = "unhealthy"
		health.Storage = "error"
		health.Details["storage_errors"] = reasons
	}

	if stats, err := s.store.GetStats(); err == nil {
		health.Tracks = stats.Tracks
	}

	if health.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	s.respondJSON(w, health)
}
