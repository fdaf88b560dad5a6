package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"cadenza/internal/store"
)

// handlePlaylists lists playlists or creates one.
func (s *Server) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		playlists, err := s.store.GetAllPlaylists()
		if err != nil {
			s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlists", err)
			return
		}
		s.respondJSON(w, playlists)

	case http.MethodPost:
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}

		id, err := s.store.CreatePlaylist(req.Name, req.Description)
		if err != nil {
			var ve *store.ValidationError
			if errors.As(err, &ve) {
				s.respondWithError(w, r, http.StatusBadRequest, ve.Error(), nil)
				return
			}
			s.respondWithError(w, r, http.StatusInternalServerError, "Error creating playlist", err)
			return
		}
		s.respondJSON(w, map[string]interface{}{
			"id":      id,
			"message": "Playlist created successfully",
		})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetPlaylist returns one playlist with its track count.
func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r, 3)
	if verr != nil {
		s.respondWithError(w, r, http.StatusBadRequest, verr.Message, nil)
		return
	}

	playlist, err := s.store.GetPlaylist(id)
	if errors.Is(err, store.ErrNotFound) {
		s.respondWithError(w, r, http.StatusNotFound, "Playlist not found", nil)
		return
	}
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlist", err)
		return
	}
	s.respondJSON(w, playlist)
}

// handleUpdatePlaylist updates playlist metadata.
func (s *Server) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r, 3)
	if verr != nil {
		s.respondWithError(w, r, http.StatusBadRequest, verr.Message, nil)
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ArtworkPath string `json:"artworkPath"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	changed, err := s.store.UpdatePlaylist(id, req.Name, req.Description, req.ArtworkPath)
	if err != nil {
		var ve *store.ValidationError
		if errors.As(err, &ve) {
			s.respondWithError(w, r, http.StatusBadRequest, ve.Error(), nil)
			return
		}
		s.respondWithError(w, r, http.StatusInternalServerError, "Error updating playlist", err)
		return
	}
	s.respondJSON(w, map[string]int64{"rowsChanged": changed})
}

// handleDeletePlaylist removes a playlist; memberships cascade.
func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r, 3)
	if verr != nil {
		s.respondWithError(w, r, http.StatusBadRequest, verr.Message, nil)
		return
	}

	deleted, err := s.store.DeletePlaylist(id)
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error deleting playlist", err)
		return
	}
	s.respondJSON(w, map[string]int64{"rowsChanged": deleted})
}

// handleGetPlaylistTracks returns tracks joined with positions, ordered by
// position.
func (s *Server) handleGetPlaylistTracks(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r, 3)
	if verr != nil {
		s.respondWithError(w, r, http.StatusBadRequest, verr.Message, nil)
		return
	}

	tracks, err := s.store.GetPlaylistTracks(id)
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlist tracks", err)
		return
	}
	s.respondJSON(w, tracks)
}

// handleAddTracksToPlaylist appends tracks at the end of the playlist,
// skipping existing members.
func (s *Server) handleAddTracksToPlaylist(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r, 3)
	if verr != nil {
		s.respondWithError(w, r, http.StatusBadRequest, verr.Message, nil)
		return
	}

	var req struct {
		TrackIDs []int64 `json:"trackIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	if len(req.TrackIDs) == 0 {
		s.respondWithError(w, r, http.StatusBadRequest, "At least one track ID is required", nil)
		return
	}

	if err := s.store.AddTracksToPlaylist(id, req.TrackIDs); err != nil {
		if store.IsConstraint(err) {
			s.respondWithError(w, r, http.StatusConflict, "Track or playlist does not exist", err)
			return
		}
		s.respondWithError(w, r, http.StatusInternalServerError, "Error adding tracks to playlist", err)
		return
	}
	s.respondJSON(w, map[string]string{"message": "Tracks added to playlist"})
}

// handleRemoveTrackFromPlaylist removes one track (trackId query or body).
func (s *Server) handleRemoveTrackFromPlaylist(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r, 3)
	if verr != nil {
		s.respondWithError(w, r, http.StatusBadRequest, verr.Message, nil)
		return
	}

	var req struct {
		TrackID int64 `json:"trackId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TrackID <= 0 {
		s.respondWithError(w, r, http.StatusBadRequest, "A valid track ID is required", err)
		return
	}

	removed, err := s.store.RemoveTrackFromPlaylist(id, req.TrackID)
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error removing track from playlist", err)
		return
	}
	s.respondJSON(w, map[string]int64{"rowsChanged": removed})
}
