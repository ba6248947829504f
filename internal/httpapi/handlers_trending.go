package httpapi

import (
	"net/http"

	"cinespin/internal/catalog/tmdb"
	"cinespin/internal/logging"
)

const trendingImageCacheControl = "s-maxage=3600, stale-while-revalidate"

// handleTrendingImage redirects to the backdrop of this week's top trending
// movie, or to the configured fallback image when that cannot be resolved.
func (s *Server) handleTrendingImage(w http.ResponseWriter, r *http.Request) {
	target := s.cfg.Server.FallbackImageURL
	if url, err := s.trendingImageURL(r); err != nil {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "trending image lookup failed", "trending_image_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "clients receive the fallback image"),
		)
	} else if url != "" {
		target = url
	}
	w.Header().Set("Cache-Control", trendingImageCacheControl)
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func (s *Server) trendingImageURL(r *http.Request) (string, error) {
	if s.deps.Trending == nil {
		return "", nil
	}
	resp, err := s.deps.Trending.Trending(r.Context(), tmdb.MediaMovie, "week")
	if err != nil {
		return "", err
	}
	for _, result := range resp.Results {
		path := result.BackdropPath
		if path == "" {
			path = result.PosterPath
		}
		if path != "" {
			return tmdb.ImageURL(s.imageURL, "w1280", path), nil
		}
	}
	return "", nil
}
