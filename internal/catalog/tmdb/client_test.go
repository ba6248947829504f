package tmdb_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cinespin/internal/catalog/tmdb"
	"cinespin/internal/config"
	"cinespin/internal/services"
)

func newClient(t *testing.T, handler http.HandlerFunc, opts ...tmdb.Option) *tmdb.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := tmdb.New("key", server.URL, "en-US", opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := tmdb.New("", "https://example.com", "en-US"); err == nil {
		t.Fatal("expected error when api key missing")
	}
	if _, err := tmdb.New("key", " ", "en-US"); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestSearchMultiSuccess(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/multi" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("api_key") != "key" || q.Get("query") != "The Sixth Sense" || q.Get("language") != "en-US" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[
			{"id":9,"name":"Haley Joel Osment","media_type":"person"},
			{"id":745,"title":"The Sixth Sense","media_type":"movie","poster_path":"/p.jpg","backdrop_path":"/b.jpg","release_date":"1999-08-06"}]}`))
	})

	resp, err := client.Search(context.Background(), "The Sixth Sense", "multi")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("unexpected results %#v", resp.Results)
	}
	movie := resp.Results[1]
	if movie.DisplayTitle() != "The Sixth Sense" || !movie.HasArtwork() || movie.Released() != "1999-08-06" {
		t.Fatalf("unexpected movie %#v", movie)
	}
}

func TestSearchTVStampsMediaType(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/tv" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"results":[{"id":1396,"name":"Breaking Bad","first_air_date":"2008-01-20"}]}`))
	})

	resp, err := client.Search(context.Background(), "Breaking Bad", "tv")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if got := resp.Results[0]; got.MediaType != tmdb.MediaTV || got.DisplayTitle() != "Breaking Bad" || got.Released() != "2008-01-20" {
		t.Fatalf("unexpected result %#v", got)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	client, err := tmdb.New("key", "https://example.com", "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.SearchMovie(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestSearchHTTPErrorIsClassified(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status_code":500}`))
	})
	_, err := client.SearchMovie(context.Background(), "fail")
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestWatchProviders(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/745/watch/providers" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":745,"results":{
			"US":{"link":"https://www.themoviedb.org/movie/745/watch","flatrate":[{"provider_id":8,"provider_name":"Netflix","logo_path":"/n.jpg","display_priority":1}]},
			"GB":{"link":"x","rent":[],"buy":[]}}}`))
	})

	providers, err := client.WatchProviders(context.Background(), tmdb.MediaMovie, 745)
	if err != nil {
		t.Fatalf("WatchProviders returned error: %v", err)
	}
	us, ok := providers.Region("us")
	if !ok || us.Empty() || us.Flatrate[0].Name != "Netflix" {
		t.Fatalf("unexpected US providers %#v", us)
	}
	gb, ok := providers.Region("GB")
	if !ok || !gb.Empty() {
		t.Fatalf("expected empty GB providers, got %#v", gb)
	}
	if _, ok := providers.Region("DE"); ok {
		t.Fatal("expected DE to be absent")
	}
}

func TestWatchProvidersNotFound(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	_, err := client.WatchProviders(context.Background(), tmdb.MediaTV, 1)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := client.WatchProviders(context.Background(), "person", 1); err == nil {
		t.Fatal("expected error for unsupported media type")
	}
}

func TestTrending(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trending/movie/week" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"results":[{"id":1,"title":"Dune","backdrop_path":"/d.jpg"}]}`))
	})
	resp, err := client.Trending(context.Background(), "movie", "week")
	if err != nil {
		t.Fatalf("Trending returned error: %v", err)
	}
	if resp.Results[0].MediaType != tmdb.MediaMovie {
		t.Fatalf("expected stamped media type, got %#v", resp.Results[0])
	}
	if _, err := client.Trending(context.Background(), "all", "month"); err == nil {
		t.Fatal("expected error for unsupported window")
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	breaker := tmdb.NewBreaker(tmdb.BreakerSettings{Name: "tmdb-test", MinRequests: 2, FailureRatio: 0.5, OpenTimeout: time.Minute})
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, tmdb.WithBreaker(breaker))

	for range 2 {
		if _, err := client.Trending(context.Background(), "all", "week"); err == nil {
			t.Fatal("expected upstream failure")
		}
	}
	if breaker.State() != "open" {
		t.Fatalf("expected open breaker, got %s", breaker.State())
	}
	_, err := client.Trending(context.Background(), "all", "week")
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected rejected request to be upstream error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected open breaker to short-circuit, server saw %d calls", calls.Load())
	}
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	breaker := tmdb.NewBreaker(tmdb.BreakerSettings{Name: "tmdb-notfound", MinRequests: 1, FailureRatio: 0.1})
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}, tmdb.WithBreaker(breaker))
	for range 3 {
		_, _ = client.WatchProviders(context.Background(), tmdb.MediaMovie, 5)
	}
	if breaker.State() != "closed" {
		t.Fatalf("not-found answers must not trip the breaker, state=%s", breaker.State())
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default().TMDB
	cfg.APIKey = "abc"
	client, err := tmdb.NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if client == nil {
		t.Fatal("expected client")
	}
}

func TestImageURL(t *testing.T) {
	if got := tmdb.ImageURL("https://image.tmdb.org/t/p/", "w1280", "/abc.jpg"); got != "https://image.tmdb.org/t/p/w1280/abc.jpg" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := tmdb.ImageURL("https://image.tmdb.org/t/p", "w500", ""); got != "" {
		t.Fatalf("expected empty url, got %q", got)
	}
}
