package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// respondJSON writes v as a JSON body.
func (s *Server) respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// respondWithError sends a structured error response
func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	logEntry := s.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
	})
	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   message,
		"code":    statusCode,
		"success": false,
	})
}

// pathID validates and parses a numeric identifier from the URL path at the
// given segment index.
func pathID(r *http.Request, index int) (int64, *ValidationError) {
	pathParts := strings.Split(r.URL.Path, "/")
	if len(pathParts) <= index || pathParts[index] == "" {
		return 0, &ValidationError{
			Field:   "id",
			Message: "Identifier is required",
			Code:    "MISSING_ID",
		}
	}

	id, err := strconv.ParseInt(pathParts[index], 10, 64)
	if err != nil {
		return 0, &ValidationError{
			Field:   "id",
			Message: "Identifier must be a valid integer",
			Code:    "INVALID_ID_FORMAT",
		}
	}
	if id <= 0 {
		return 0, &ValidationError{
			Field:   "id",
			Message: "Identifier must be positive",
			Code:    "INVALID_ID_VALUE",
		}
	}
	return id, nil
}
