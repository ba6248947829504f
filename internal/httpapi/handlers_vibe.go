package httpapi

import (
	"context"
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"cinespin/internal/logging"
	"cinespin/internal/services"
	"cinespin/internal/vibe"
)

const maxVibeBodyBytes = 16 << 10

type analyzeVibeRequest struct {
	Prompt string `json:"prompt"`
	Region string `json:"region"`
}

func (s *Server) handleAnalyzeVibe(w http.ResponseWriter, r *http.Request) {
	if s.deps.Resolver == nil {
		s.writeError(w, http.StatusInternalServerError, "resolver not configured", vibe.CodeMissingConfiguration)
		return
	}
	var body analyzeVibeRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVibeBodyBytes))
	if err := decoder.Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body", "invalid_request")
		return
	}

	result, err := s.deps.Resolver.Resolve(r.Context(), vibe.Request{Text: body.Prompt, Region: body.Region})
	if err != nil {
		s.writeResolveError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result.Response())
}

func (s *Server) writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	if fatal, ok := vibe.AsFatal(err); ok {
		s.writeError(w, http.StatusInternalServerError, "Failed to generate vibe", fatal.Code)
		return
	}
	status := services.HTTPStatus(err)
	if errors.Is(err, services.ErrValidation) {
		s.writeError(w, status, err.Error(), "invalid_request")
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logging.WithContext(r.Context(), s.logger).Debug("vibe request ended before resolution", logging.Error(err))
		s.writeError(w, status, "request cancelled", "cancelled")
		return
	}
	logging.WithContext(r.Context(), s.logger).Error("vibe resolution error", logging.Error(err))
	s.writeError(w, status, "Failed to generate vibe", "")
}
