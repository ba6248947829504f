package vibe

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"cinespin/internal/catalog/tmdb"
	"cinespin/internal/logging"
)

// Validation is a confirmed candidate.
type Validation struct {
	Candidate    string
	Position     int
	Item         CatalogItem
	Availability AvailabilityRecord
}

// Validator checks candidates against the catalog in fixed-size concurrent
// batches and stops at the first available one.
type Validator struct {
	catalog    Searcher
	batchSize  int
	searchMode string
	imageBase  string
	logger     *slog.Logger
}

// NewValidator builds a validator. searchMode is "multi", "movie" or "tv".
func NewValidator(catalog Searcher, batchSize int, searchMode, imageBase string, logger *slog.Logger) *Validator {
	if batchSize <= 0 {
		batchSize = 3
	}
	if searchMode == "" {
		searchMode = "multi"
	}
	return &Validator{
		catalog:    catalog,
		batchSize:  batchSize,
		searchMode: searchMode,
		imageBase:  imageBase,
		logger:     logging.NewComponentLogger(logger, "validator"),
	}
}

// Validate returns the first available candidate by list position, or nil
// when every batch is exhausted. checked counts candidates whose checks were
// issued. A non-nil error is always the context's: the budget expired and
// the in-flight batch was abandoned.
func (v *Validator) Validate(ctx context.Context, candidates []string, region string) (match *Validation, checked int, err error) {
	for start := 0; start < len(candidates); start += v.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, checked, err
		}
		end := min(start+v.batchSize, len(candidates))
		batch := candidates[start:end]
		results := make([]*Validation, len(batch))

		// A check only fails the group when the budget ends under it; that
		// cancels the rest of the batch.
		group, groupCtx := errgroup.WithContext(ctx)
		for i, title := range batch {
			position := start + i
			group.Go(func() error {
				results[i] = v.check(groupCtx, title, position, region)
				if results[i] == nil {
					return ctx.Err()
				}
				return nil
			})
		}
		checked += len(batch)
		waitErr := group.Wait()

		for _, result := range results {
			if result != nil {
				v.logger.Debug("candidate confirmed",
					logging.String("candidate", result.Candidate),
					logging.Int("position", result.Position),
					logging.Int("checked", checked),
				)
				return result, checked, nil
			}
		}
		if waitErr != nil {
			return nil, checked, waitErr
		}
	}
	return nil, checked, nil
}

// check resolves one title. Every failure is absorbed into a nil result.
func (v *Validator) check(ctx context.Context, title string, position int, region string) *Validation {
	logger := v.logger.With(logging.String("candidate", title))
	resp, err := v.catalog.Search(ctx, title, v.searchMode)
	if err != nil {
		logger.Debug("candidate search failed", logging.Error(err))
		return nil
	}
	result, rank, ok := pickSearchResult(resp)
	if !ok {
		logger.Debug("candidate not in catalog")
		return nil
	}
	providers, err := v.catalog.WatchProviders(ctx, result.MediaType, result.ID)
	if err != nil {
		logger.Debug("candidate availability lookup failed", logging.Int64("tmdb_id", result.ID), logging.Error(err))
		return nil
	}
	set, listed := providers.Region(region)
	if !listed || set.Empty() {
		logger.Debug("candidate not available in region", logging.Int64("tmdb_id", result.ID))
		return nil
	}
	item := itemFromResult(result, rank, v.imageBase)
	item.Available = true
	return &Validation{
		Candidate:    title,
		Position:     position,
		Item:         item,
		Availability: availabilityFromSet(region, set, v.imageBase),
	}
}

// Availability looks up the offers for an already identified item. Unlike
// candidate checks, lookup errors are returned to the caller.
func (v *Validator) Availability(ctx context.Context, item CatalogItem, region string) (AvailabilityRecord, error) {
	media := tmdb.MediaMovie
	if item.MediaKind == KindSeries {
		media = tmdb.MediaTV
	}
	providers, err := v.catalog.WatchProviders(ctx, media, item.ID)
	if err != nil {
		return AvailabilityRecord{Region: region}, err
	}
	set, _ := providers.Region(region)
	return availabilityFromSet(region, set, v.imageBase), nil
}

// pickSearchResult takes the first movie or series result, preferring one
// with artwork when any exists. rank is the 1-based position in the response.
func pickSearchResult(resp *tmdb.Response) (tmdb.Result, int, bool) {
	if resp == nil {
		return tmdb.Result{}, 0, false
	}
	firstIndex := -1
	for i, result := range resp.Results {
		media := strings.ToLower(strings.TrimSpace(result.MediaType))
		if media != tmdb.MediaMovie && media != tmdb.MediaTV {
			continue
		}
		resp.Results[i].MediaType = media
		if firstIndex < 0 {
			firstIndex = i
		}
		if result.PosterPath != "" || result.BackdropPath != "" {
			return resp.Results[i], i + 1, true
		}
	}
	if firstIndex < 0 {
		return tmdb.Result{}, 0, false
	}
	return resp.Results[firstIndex], firstIndex + 1, true
}
