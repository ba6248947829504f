package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cinespin/internal/config"
	"cinespin/internal/logging"
	"cinespin/internal/vibe"
	"cinespin/internal/vibecache"
)

// Resolver is the pipeline entry point the API serves.
type Resolver interface {
	Resolve(ctx context.Context, req vibe.Request) (vibe.Result, error)
}

// Deps are the collaborators behind the routes. Cache may be nil, in which
// case the admin routes report an empty memory cache.
type Deps struct {
	Resolver Resolver
	Trending vibe.TrendingSource
	Cache    vibecache.Admin
	// ProposerConfigured is reported by /healthz.
	ProposerConfigured bool
	Logger             *slog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	cfg      *config.Config
	deps     Deps
	limiter  *RateLimiter
	logger   *slog.Logger
	imageURL string
}

// New builds a server from configuration and dependencies.
func New(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		logger:   logging.NewComponentLogger(deps.Logger, "httpapi"),
		imageURL: cfg.TMDB.ImageBaseURL,
	}
	if cfg.Server.RateLimitRPS > 0 {
		s.limiter = NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	if s.cfg.Server.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(s.recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(s.rateLimit).Post("/analyze-vibe", s.handleAnalyzeVibe)
		r.Get("/trending-image", s.handleTrendingImage)

		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(s.cfg.Server.APIToken))
			r.Get("/cache", s.handleCacheList)
			r.Delete("/cache", s.handleCacheClear)
			r.Delete("/cache/{key}", s.handleCacheRemove)
		})
	})
	return r
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
