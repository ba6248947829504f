package testsupport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	json "github.com/goccy/go-json"

	"cinespin/internal/services"
)

// NewTMDBServer serves catalog over the TMDB v3 routes the client uses and
// closes it on cleanup.
func NewTMDBServer(t testing.TB, catalog *FakeCatalog) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /search/{mode}", func(w http.ResponseWriter, r *http.Request) {
		resp, err := catalog.Search(r.Context(), r.URL.Query().Get("query"), r.PathValue("mode"))
		writeTMDB(w, resp, err)
	})
	mux.HandleFunc("GET /{media}/{id}/watch/providers", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		resp, err := catalog.WatchProviders(r.Context(), r.PathValue("media"), id)
		writeTMDB(w, resp, err)
	})
	mux.HandleFunc("GET /trending/{media}/{window}", func(w http.ResponseWriter, r *http.Request) {
		resp, err := catalog.Trending(r.Context(), r.PathValue("media"), r.PathValue("window"))
		writeTMDB(w, resp, err)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeTMDB(w http.ResponseWriter, payload any, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		http.Error(w, `{"status_code":34}`, http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, `{"status_code":11}`, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
