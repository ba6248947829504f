package testsupport

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"cinespin/internal/catalog/tmdb"
	"cinespin/internal/services"
)

// FakeTitle is one searchable title in a FakeCatalog.
type FakeTitle struct {
	Result tmdb.Result
	// Regions maps an uppercase region code to its offers.
	Regions map[string]tmdb.ProviderSet
	// Delay is applied to the search for this title.
	Delay     time.Duration
	SearchErr error
}

// FakeCatalog is an in-memory catalog implementing the search, availability
// and trending calls. It records every search so tests can assert which
// candidates were checked.
type FakeCatalog struct {
	mu            sync.Mutex
	titles        map[string]FakeTitle
	byID          map[int64]FakeTitle
	trending      []tmdb.Result
	trendingErr   error
	searched      []string
	trendingCalls int
}

// NewFakeCatalog returns an empty catalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		titles: make(map[string]FakeTitle),
		byID:   make(map[int64]FakeTitle),
	}
}

// AddTitle registers a title with artwork. When regions are given the title
// has a flatrate offer in each of them.
func (f *FakeCatalog) AddTitle(title string, id int64, mediaType string, regions ...string) *FakeCatalog {
	offers := make(map[string]tmdb.ProviderSet, len(regions))
	for _, region := range regions {
		offers[strings.ToUpper(region)] = tmdb.ProviderSet{
			Link:     "https://www.themoviedb.org/" + mediaType,
			Flatrate: []tmdb.Provider{{ID: 8, Name: "Netflix", LogoPath: "/netflix.png"}},
		}
	}
	return f.Add(FakeTitle{
		Result: tmdb.Result{
			ID:           id,
			Title:        title,
			MediaType:    mediaType,
			PosterPath:   "/poster.jpg",
			BackdropPath: "/backdrop.jpg",
		},
		Regions: offers,
	})
}

// Add registers a fully specified title.
func (f *FakeCatalog) Add(title FakeTitle) *FakeCatalog {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles[strings.ToLower(title.Result.DisplayTitle())] = title
	f.byID[title.Result.ID] = title
	return f
}

// SetDelay delays searches for title.
func (f *FakeCatalog) SetDelay(title string, delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(title)
	entry := f.titles[key]
	entry.Delay = delay
	f.titles[key] = entry
}

// SetTrending replaces the trending list.
func (f *FakeCatalog) SetTrending(results ...tmdb.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trending = append([]tmdb.Result(nil), results...)
	f.trendingErr = nil
}

// FailTrending makes every trending call return err.
func (f *FakeCatalog) FailTrending(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trendingErr = err
}

// Searched returns the queries seen so far, in call order.
func (f *FakeCatalog) Searched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.searched)
}

// TrendingCalls returns how many trending calls were made.
func (f *FakeCatalog) TrendingCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trendingCalls
}

// Search returns the registered title for query, if any.
func (f *FakeCatalog) Search(ctx context.Context, query, mode string) (*tmdb.Response, error) {
	f.mu.Lock()
	f.searched = append(f.searched, query)
	title, ok := f.titles[strings.ToLower(strings.TrimSpace(query))]
	f.mu.Unlock()

	if title.Delay > 0 {
		timer := time.NewTimer(title.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if title.SearchErr != nil {
		return nil, title.SearchErr
	}
	if !ok || title.Result.ID == 0 {
		return &tmdb.Response{Page: 1}, nil
	}
	if mode != "multi" && mode != "" && mode != title.Result.MediaType {
		return &tmdb.Response{Page: 1}, nil
	}
	return &tmdb.Response{Page: 1, Results: []tmdb.Result{title.Result}, TotalPages: 1, TotalResults: 1}, nil
}

// WatchProviders returns the offers registered for id.
func (f *FakeCatalog) WatchProviders(ctx context.Context, mediaType string, id int64) (*tmdb.WatchProviders, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	title, ok := f.byID[id]
	f.mu.Unlock()
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "tmdb", "watch providers", "unknown id", nil)
	}
	return &tmdb.WatchProviders{ID: id, Results: title.Regions}, nil
}

// Trending returns the configured trending list.
func (f *FakeCatalog) Trending(ctx context.Context, media, window string) (*tmdb.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trendingCalls++
	if f.trendingErr != nil {
		return nil, f.trendingErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &tmdb.Response{Page: 1, Results: slices.Clone(f.trending), TotalPages: 1, TotalResults: len(f.trending)}, nil
}

// TrendingMovie builds an artworked trending movie entry.
func TrendingMovie(id int64, title string) tmdb.Result {
	return tmdb.Result{
		ID:           id,
		Title:        title,
		MediaType:    tmdb.MediaMovie,
		PosterPath:   "/trending-poster.jpg",
		BackdropPath: "/trending-backdrop.jpg",
		Popularity:   float64(1000 - id),
	}
}

// ErrCatalogDown is a ready-made upstream failure.
var ErrCatalogDown = services.Wrap(services.ErrUpstream, "tmdb", "trending", "service unavailable", errors.New("503"))
