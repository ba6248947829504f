package httpapi

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"cinespin/internal/config"
	"cinespin/internal/services"
)

type cacheEntryView struct {
	Key        string     `json:"key"`
	Candidates []string   `json:"candidates"`
	CachedAt   time.Time  `json:"cachedAt"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

type cacheListResponse struct {
	Backend string           `json:"backend"`
	Count   int              `json:"count"`
	Entries []cacheEntryView `json:"entries"`
}

type cacheMutationResponse struct {
	Removed int `json:"removed"`
}

func (s *Server) handleCacheList(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		s.writeJSON(w, http.StatusOK, cacheListResponse{Backend: config.CacheBackendMemory, Entries: []cacheEntryView{}})
		return
	}
	entries, err := s.deps.Cache.List(r.Context())
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), err.Error(), "")
		return
	}
	views := make([]cacheEntryView, 0, len(entries))
	for _, entry := range entries {
		view := cacheEntryView{Key: entry.Key, Candidates: entry.Candidates, CachedAt: entry.CachedAt}
		if !entry.ExpiresAt.IsZero() {
			expires := entry.ExpiresAt
			view.ExpiresAt = &expires
		}
		views = append(views, view)
	}
	s.writeJSON(w, http.StatusOK, cacheListResponse{Backend: s.deps.Cache.Backend(), Count: len(views), Entries: views})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		s.writeJSON(w, http.StatusOK, cacheMutationResponse{})
		return
	}
	count, err := s.deps.Cache.Len(r.Context())
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), err.Error(), "")
		return
	}
	if err := s.deps.Cache.Clear(r.Context()); err != nil {
		s.writeError(w, services.HTTPStatus(err), err.Error(), "")
		return
	}
	s.writeJSON(w, http.StatusOK, cacheMutationResponse{Removed: count})
}

func (s *Server) handleCacheRemove(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		s.writeError(w, http.StatusBadRequest, "invalid cache key", "invalid_request")
		return
	}
	if s.deps.Cache == nil {
		s.writeError(w, http.StatusNotFound, "cache entry not found", "")
		return
	}
	if err := s.deps.Cache.Remove(r.Context(), key); err != nil {
		s.writeError(w, services.HTTPStatus(err), err.Error(), "")
		return
	}
	s.writeJSON(w, http.StatusOK, cacheMutationResponse{Removed: 1})
}
