package vibe

import (
	"context"
	"errors"
	"fmt"

	"cinespin/internal/catalog/tmdb"
)

// Request is one incoming vibe.
type Request struct {
	Text   string
	Region string
}

// Media kinds exposed to callers.
const (
	KindMovie  = "movie"
	KindSeries = "series"
)

// Strategies recorded on every result.
const (
	StrategyProposerValidator = "proposer-validator"
	StrategyFallback          = "fallback"
)

// Candidate sources reported in aiContext.source.
const (
	SourceCache        = "cache"
	SourceLLM          = "llm"
	SourceSafetyList   = "safety-list"
	SourceTrending     = "trending"
	SourceUnconfigured = "unconfigured"
)

// Outcome tags a finished resolution.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFatal    Outcome = "fatal"
)

// Fatal error codes.
const (
	CodeTrendingUnavailable  = "trending_unavailable"
	CodeMissingConfiguration = "missing_configuration"
)

// CatalogItem is a resolved movie or series.
type CatalogItem struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	MediaKind      string  `json:"mediaKind"`
	PopularityRank int     `json:"popularityRank"`
	Popularity     float64 `json:"popularity,omitempty"`
	Available      bool    `json:"available"`
	Overview       string  `json:"overview,omitempty"`
	ReleaseDate    string  `json:"releaseDate,omitempty"`
	VoteAverage    float64 `json:"voteAverage,omitempty"`
	PosterURL      string  `json:"posterUrl,omitempty"`
	BackdropURL    string  `json:"backdropUrl,omitempty"`
}

// Provider is a single streaming, rental or purchase offer.
type Provider struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logoUrl,omitempty"`
}

// AvailabilityRecord lists the offers for one item in one region.
type AvailabilityRecord struct {
	Region   string     `json:"region"`
	Link     string     `json:"link,omitempty"`
	Flatrate []Provider `json:"flatrate"`
	Rent     []Provider `json:"rent"`
	Buy      []Provider `json:"buy"`
}

// Available reports whether any offer exists.
func (a AvailabilityRecord) Available() bool {
	return len(a.Flatrate) > 0 || len(a.Rent) > 0 || len(a.Buy) > 0
}

// Result is the terminal output of one resolution.
type Result struct {
	Item              CatalogItem
	Availability      *AvailabilityRecord
	Outcome           Outcome
	Strategy          string
	CandidatesChecked int
	Reason            string
	Source            string
}

// AIContext explains how a result was produced.
type AIContext struct {
	Strategy          string `json:"strategy"`
	Reason            string `json:"reason"`
	CandidatesChecked int    `json:"candidatesChecked"`
	Source            string `json:"source"`
}

// Response is the caller-facing JSON shape.
type Response struct {
	Movie        CatalogItem         `json:"movie"`
	Availability *AvailabilityRecord `json:"availability,omitempty"`
	AIContext    AIContext           `json:"aiContext"`
}

// Response converts the result into the caller-facing shape.
func (r Result) Response() Response {
	return Response{
		Movie:        r.Item,
		Availability: r.Availability,
		AIContext: AIContext{
			Strategy:          r.Strategy,
			Reason:            r.Reason,
			CandidatesChecked: r.CandidatesChecked,
			Source:            r.Source,
		},
	}
}

// FatalError is returned when no degradation path remains.
type FatalError struct {
	Code string
	Err  error
}

func (e *FatalError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// AsFatal extracts a FatalError from err.
func AsFatal(err error) (*FatalError, bool) {
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return fatal, true
	}
	return nil, false
}

// Completer is the language-model call the proposer depends on.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Searcher resolves titles and regional availability.
type Searcher interface {
	Search(ctx context.Context, query, mode string) (*tmdb.Response, error)
	WatchProviders(ctx context.Context, mediaType string, id int64) (*tmdb.WatchProviders, error)
}

// TrendingSource lists trending catalog entries.
type TrendingSource interface {
	Trending(ctx context.Context, media, window string) (*tmdb.Response, error)
}

// Catalog is the full catalog surface; *tmdb.Client satisfies it.
type Catalog interface {
	Searcher
	TrendingSource
}

func itemFromResult(result tmdb.Result, rank int, imageBase string) CatalogItem {
	kind := KindMovie
	if result.MediaType == tmdb.MediaTV {
		kind = KindSeries
	}
	return CatalogItem{
		ID:             result.ID,
		Title:          result.DisplayTitle(),
		MediaKind:      kind,
		PopularityRank: rank,
		Popularity:     result.Popularity,
		Overview:       result.Overview,
		ReleaseDate:    result.Released(),
		VoteAverage:    result.VoteAverage,
		PosterURL:      tmdb.ImageURL(imageBase, "w500", result.PosterPath),
		BackdropURL:    tmdb.ImageURL(imageBase, "w1280", result.BackdropPath),
	}
}

func availabilityFromSet(region string, set tmdb.ProviderSet, imageBase string) AvailabilityRecord {
	convert := func(providers []tmdb.Provider) []Provider {
		out := make([]Provider, 0, len(providers))
		for _, p := range providers {
			out = append(out, Provider{ID: p.ID, Name: p.Name, LogoURL: tmdb.ImageURL(imageBase, "w92", p.LogoPath)})
		}
		return out
	}
	return AvailabilityRecord{
		Region:   region,
		Link:     set.Link,
		Flatrate: convert(set.Flatrate),
		Rent:     convert(set.Rent),
		Buy:      convert(set.Buy),
	}
}
