package httpapi

import (
	"net/http"

	"cinespin/internal/config"
)

type healthResponse struct {
	Status             string `json:"status"`
	CacheBackend       string `json:"cacheBackend"`
	CacheEntries       int    `json:"cacheEntries"`
	ProposerConfigured bool   `json:"proposerConfigured"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:             "ok",
		CacheBackend:       config.CacheBackendMemory,
		ProposerConfigured: s.deps.ProposerConfigured,
	}
	if s.deps.Cache != nil {
		resp.CacheBackend = s.deps.Cache.Backend()
		count, err := s.deps.Cache.Len(r.Context())
		if err != nil {
			resp.Status = "degraded"
		}
		resp.CacheEntries = count
	}
	s.writeJSON(w, http.StatusOK, resp)
}
