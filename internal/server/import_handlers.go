package server

import (
	"encoding/json"
	"net/http"

	"cadenza/internal/importer"
	"cadenza/pkg/models"
)

// handleImport starts an import batch over a user-supplied folder and
// streams progress events as newline-delimited JSON, one object per event,
// flushed as they happen. The final line is the batch summary. Closing the
// request connection cancels the batch at the next file boundary.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	// Security gate: never walk a folder the library manager won't vouch for.
	if err := s.library.ValidatePath(req.Path); err != nil {
		s.respondWithError(w, r, http.StatusForbidden, err.Error(), nil)
		return
	}

	if ok, reasons := s.pipeline.ValidatePrerequisites(); !ok {
		s.respondWithError(w, r, http.StatusServiceUnavailable, "Import prerequisites not met", nil)
		s.logger.WithField("reasons", reasons).Warn("Refused import batch")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, _ := w.(http.Flusher)
	encoder := json.NewEncoder(w)

	events := make(chan models.ProgressEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			if err := encoder.Encode(event); err != nil {
				s.logger.WithError(err).Debug("Client went away during import stream")
				continue
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}()

	summary, err := s.pipeline.ImportFolder(r.Context(), req.Path, importer.Options{Events: events})
	close(events)
	<-done

	if err != nil {
		s.logger.WithError(err).WithField("path", req.Path).Error("Import batch failed")
		encoder.Encode(map[string]string{"error": err.Error()})
		return
	}

	encoder.Encode(summary)
	if flusher != nil {
		flusher.Flush()
	}
}
