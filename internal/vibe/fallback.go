package vibe

import (
	"context"
	"errors"
	"log/slog"

	"cinespin/internal/catalog/tmdb"
	"cinespin/internal/logging"
)

var errNoTrending = errors.New("trending list is empty")

// Fallback picks a random entry from the top of the trending list.
type Fallback struct {
	source    TrendingSource
	media     string
	window    string
	topN      int
	imageBase string
	shuffler  *Shuffler
	logger    *slog.Logger
}

// NewFallback builds a fallback resolver over source.
func NewFallback(source TrendingSource, media, window string, topN int, imageBase string, shuffler *Shuffler, logger *slog.Logger) *Fallback {
	if media == "" {
		media = "all"
	}
	if window == "" {
		window = "week"
	}
	if topN <= 0 {
		topN = 5
	}
	if shuffler == nil {
		shuffler = NewShuffler(nil)
	}
	return &Fallback{
		source:    source,
		media:     media,
		window:    window,
		topN:      topN,
		imageBase: imageBase,
		shuffler:  shuffler,
		logger:    logging.NewComponentLogger(logger, "fallback"),
	}
}

// Resolve returns one trending item. Any failure is a *FatalError with code
// CodeTrendingUnavailable.
func (f *Fallback) Resolve(ctx context.Context, region string) (CatalogItem, error) {
	items, err := f.Top(ctx)
	if err != nil {
		return CatalogItem{}, &FatalError{Code: CodeTrendingUnavailable, Err: err}
	}
	pick := items[f.shuffler.IntN(len(items))]
	f.logger.Debug("fallback picked trending item",
		logging.String("title", pick.Title),
		logging.Int("rank", pick.PopularityRank),
		logging.String(logging.FieldRegion, region),
	)
	return pick, nil
}

// Top returns the top trending slice Resolve picks from.
func (f *Fallback) Top(ctx context.Context) ([]CatalogItem, error) {
	resp, err := f.source.Trending(ctx, f.media, f.window)
	if err != nil {
		return nil, err
	}
	candidates := filterTrending(resp)
	if len(candidates) == 0 {
		return nil, errNoTrending
	}
	if len(candidates) > f.topN {
		candidates = candidates[:f.topN]
	}
	items := make([]CatalogItem, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, itemFromResult(c.result, c.rank, f.imageBase))
	}
	return items, nil
}

type rankedResult struct {
	result tmdb.Result
	rank   int
}

// filterTrending drops people and keeps only fully-artworked entries when at
// least one exists.
func filterTrending(resp *tmdb.Response) []rankedResult {
	if resp == nil {
		return nil
	}
	var all, artworked []rankedResult
	for i, result := range resp.Results {
		if result.MediaType == tmdb.MediaPerson || result.ID <= 0 {
			continue
		}
		if result.MediaType == "" {
			result.MediaType = tmdb.MediaMovie
		}
		entry := rankedResult{result: result, rank: i + 1}
		all = append(all, entry)
		if result.HasArtwork() {
			artworked = append(artworked, entry)
		}
	}
	if len(artworked) > 0 {
		return artworked
	}
	return all
}
