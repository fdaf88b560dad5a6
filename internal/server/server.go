package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"cadenza/internal/config"
	"cadenza/internal/importer"
	"cadenza/internal/library"
	"cadenza/internal/store"

	"github.com/sirupsen/logrus"
)

// Server is the local request/response boundary the UI talks to. It only
// exposes the store, library and pipeline operations; all state lives in
// those collaborators.
type Server struct {
	store    *store.Store
	library  *library.Manager
	pipeline *importer.Pipeline
	config   *config.Config
	logger   *logrus.Logger

	httpServer *http.Server
}

// NewServer creates a server over explicit collaborators.
func NewServer(cfg *config.Config, st *store.Store, lib *library.Manager, pipeline *importer.Pipeline) *Server {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Server{
		store:    st,
		library:  lib,
		pipeline: pipeline,
		config:   cfg,
		logger:   logger,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/tracks", s.handleTracks)
	mux.HandleFunc("/api/tracks/", s.handleTrackByID)
	mux.HandleFunc("/api/albums", s.handleGetAlbums)
	mux.HandleFunc("/api/genres", s.handleGetGenres)
	mux.HandleFunc("/api/stats", s.handleGetStats)
	mux.HandleFunc("/api/import", s.handleImport)
	mux.HandleFunc("/health", s.handleHealthCheck)

	mux.HandleFunc("/api/playlists", s.handlePlaylists)
	mux.HandleFunc("/api/playlists/", func(w http.ResponseWriter, r *http.Request) {
		pathParts := strings.Split(r.URL.Path, "/")
		if len(pathParts) >= 5 && pathParts[4] == "tracks" {
			switch r.Method {
			case http.MethodGet:
				s.handleGetPlaylistTracks(w, r)
			case http.MethodPost:
				s.handleAddTracksToPlaylist(w, r)
			case http.MethodDelete:
				s.handleRemoveTrackFromPlaylist(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}
		switch r.Method {
		case http.MethodGet:
			s.handleGetPlaylist(w, r)
		case http.MethodPut:
			s.handleUpdatePlaylist(w, r)
		case http.MethodDelete:
			s.handleDeletePlaylist(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return s.corsMiddleware(mux)
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        s.config.GetAddress(),
		Handler:     s.Handler(),
		ReadTimeout: time.Duration(s.config.Server.ReadTimeout) * time.Second,
	}

	s.logger.WithField("address", s.config.GetAddress()).Info("Server starting")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware applies permissive CORS headers when enabled in config.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	if !s.config.Server.EnableCORS {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
