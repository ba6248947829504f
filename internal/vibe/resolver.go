package vibe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cinespin/internal/config"
	"cinespin/internal/logging"
	"cinespin/internal/metrics"
	"cinespin/internal/services"
	"cinespin/internal/vibecache"
)

// Dependencies are the collaborators a Resolver is built from. Completer may
// be nil, in which case every cache miss degrades to the fallback.
type Dependencies struct {
	Cache     vibecache.Store
	Completer Completer
	Catalog   Catalog
	Shuffler  *Shuffler
	Logger    *slog.Logger
}

// Resolver runs the vibe pipeline: cache, proposer, shuffle, validator and
// fallback, each step strictly forward.
type Resolver struct {
	cache            vibecache.Store
	cacheBackend     string
	proposer         *Proposer
	validator        *Validator
	fallback         *Fallback
	shuffler         *Shuffler
	defaultRegion    string
	proposerBudget   time.Duration
	validationBudget time.Duration
	logger           *slog.Logger
}

// New wires a resolver from configuration. A missing catalog is a fatal
// configuration error.
func New(cfg *config.Config, deps Dependencies) (*Resolver, error) {
	if cfg == nil {
		return nil, &FatalError{Code: CodeMissingConfiguration, Err: errors.New("configuration is nil")}
	}
	if deps.Catalog == nil {
		return nil, &FatalError{Code: CodeMissingConfiguration, Err: services.Wrap(services.ErrConfiguration, "vibe", "new", "catalog client is required", nil)}
	}
	logger := logging.ForComponent(deps.Logger, cfg, "resolver")
	shuffler := deps.Shuffler
	if shuffler == nil {
		shuffler = NewShuffler(nil)
	}
	store := deps.Cache
	if store == nil {
		store = vibecache.NewMemory(vibecache.Options{TTL: cfg.CacheTTL(), MaxEntries: cfg.Cache.MaxEntries, Logger: logging.ComponentLevel(deps.Logger, cfg, "vibecache")})
	}
	backend := config.CacheBackendMemory
	if named, ok := store.(interface{ Backend() string }); ok {
		backend = named.Backend()
	}

	r := &Resolver{
		cache:            store,
		cacheBackend:     backend,
		validator:        NewValidator(deps.Catalog, cfg.Resolver.BatchSize, cfg.TMDB.SearchMode, cfg.TMDB.ImageBaseURL, logging.ComponentLevel(deps.Logger, cfg, "validator")),
		fallback:         NewFallback(deps.Catalog, cfg.Resolver.TrendingMedia, cfg.Resolver.TrendingWindow, cfg.Resolver.FallbackTopN, cfg.TMDB.ImageBaseURL, shuffler, logging.ComponentLevel(deps.Logger, cfg, "fallback")),
		shuffler:         shuffler,
		defaultRegion:    cfg.Resolver.DefaultRegion,
		proposerBudget:   cfg.ProposerBudget(),
		validationBudget: cfg.ValidationBudget(),
		logger:           logger,
	}
	if r.defaultRegion == "" {
		r.defaultRegion = "US"
	}
	if deps.Completer != nil {
		r.proposer = NewProposer(deps.Completer, cfg.Resolver.CandidateCount, cfg.Resolver.SafetyCandidates, logging.ComponentLevel(deps.Logger, cfg, "proposer"))
	}
	return r, nil
}

// Fallback exposes the trending resolver for surfaces that list it.
func (r *Resolver) Fallback() *Fallback { return r.fallback }

// Resolve produces exactly one result for req. The returned error is a
// validation error for the request itself, a *FatalError, or the caller's
// context error when ctx ends before a result exists.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Result{}, services.Wrap(services.ErrValidation, "vibe", "resolve", "prompt cannot be empty", nil)
	}
	regionInput := req.Region
	if strings.TrimSpace(regionInput) == "" {
		regionInput = r.defaultRegion
	}
	region, err := config.NormalizeRegion(regionInput)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "vibe", "resolve", "invalid region", err)
	}

	ctx = services.WithRegion(ctx, region)
	logger := logging.WithContext(ctx, r.logger)
	run := &resolution{resolver: r, logger: logger, region: region, text: text}

	result, err := run.execute(ctx)
	duration := time.Since(started)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		metrics.RecordResolution("abandoned", StrategyFallback, run.checked, duration)
		logger.Info("vibe resolution abandoned by caller",
			logging.Error(err),
			logging.Int("candidates_checked", run.checked),
			logging.Duration("duration", duration),
		)
		return Result{}, err
	}
	if err != nil {
		metrics.RecordResolution(string(OutcomeFatal), StrategyFallback, run.checked, duration)
		logging.ErrorWithContext(logger, "vibe resolution failed", "vibe_resolution_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check TMDB availability and tmdb.api_key"),
			logging.Int("candidates_checked", run.checked),
		)
		return Result{}, err
	}
	metrics.RecordResolution(string(result.Outcome), result.Strategy, result.CandidatesChecked, duration)
	logger.Info("vibe resolved", logging.Args(append(
		logging.DecisionAttrs("vibe_resolution", result.Strategy, result.Reason),
		logging.String("title", result.Item.Title),
		logging.String("source", result.Source),
		logging.Int("candidates_checked", result.CandidatesChecked),
		logging.Duration("duration", duration),
	)...)...)
	return result, nil
}

// resolution carries the state of one pipeline run.
type resolution struct {
	resolver *Resolver
	logger   *slog.Logger
	region   string
	text     string
	checked  int
}

func (run *resolution) execute(ctx context.Context) (Result, error) {
	r := run.resolver
	key := vibecache.Key(run.region, run.text)

	// CHECK_CACHE
	candidates, source, hit := run.lookup(ctx, key)

	// PROPOSE
	if !hit {
		if r.proposer == nil {
			return run.fallback(ctx, "AI proposer not configured", SourceUnconfigured)
		}
		proposal, err := run.propose(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			metrics.RecordProposer("timeout")
			return run.fallback(ctx, fmt.Sprintf("AI proposer timed out after %s", r.proposerBudget), SourceTrending)
		}
		candidates, source = proposal.Candidates, proposal.Source
		if source == SourceLLM {
			metrics.RecordProposer("ok")
			if err := r.cache.Put(ctx, key, candidates); err != nil {
				logging.WarnWithContext(run.logger, "failed to cache proposal", "vibecache_put_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "the next identical request will call the model again"),
				)
			}
		} else {
			metrics.RecordProposer("safety_list")
		}
	}

	// SHUFFLE
	shuffled := append([]string(nil), candidates...)
	r.shuffler.Shuffle(shuffled)

	// VALIDATE
	validateCtx, cancel := context.WithTimeout(ctx, r.validationBudget)
	match, checked, err := r.validator.Validate(validateCtx, shuffled, run.region)
	cancel()
	run.checked = checked
	if match != nil {
		availability := match.Availability
		return Result{
			Item:              match.Item,
			Availability:      &availability,
			Outcome:           OutcomeOK,
			Strategy:          StrategyProposerValidator,
			CandidatesChecked: checked,
			Reason:            fmt.Sprintf("%q is available in %s", match.Item.Title, run.region),
			Source:            source,
		}, nil
	}
	if err != nil && ctx.Err() == nil {
		return run.fallback(ctx, fmt.Sprintf("availability checks exceeded %s after %d candidates", r.validationBudget, checked), SourceTrending)
	}
	return run.fallback(ctx, fmt.Sprintf("AI picks weren't streamable in %s", run.region), SourceTrending)
}

func (run *resolution) lookup(ctx context.Context, key string) ([]string, string, bool) {
	r := run.resolver
	entry, hit, err := r.cache.Get(ctx, key)
	metrics.RecordCacheLookup(r.cacheBackend, hit, err)
	if err != nil {
		logging.WarnWithContext(run.logger, "cache lookup failed; treating as miss", "vibecache_get_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the model is called for this request"),
		)
		return nil, "", false
	}
	if !hit || len(entry.Candidates) == 0 {
		return nil, "", false
	}
	run.logger.Debug("proposal cache hit", logging.Int("candidates", len(entry.Candidates)))
	return entry.Candidates, SourceCache, true
}

// propose races the proposer against the proposer budget. The model call is
// cancelled and abandoned when the budget wins.
func (run *resolution) propose(ctx context.Context) (Proposal, error) {
	r := run.resolver
	proposeCtx, cancel := context.WithTimeout(ctx, r.proposerBudget)
	defer cancel()

	type outcome struct {
		proposal Proposal
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		proposal, err := r.proposer.Propose(proposeCtx, run.text)
		done <- outcome{proposal: proposal, err: err}
	}()

	select {
	case out := <-done:
		return out.proposal, out.err
	case <-proposeCtx.Done():
		if ctx.Err() != nil {
			return Proposal{}, ctx.Err()
		}
		logging.WarnWithContext(run.logger, "proposer exceeded its budget", "proposer_timeout",
			logging.Duration("budget", r.proposerBudget),
			logging.String(logging.FieldErrorHint, "raise resolver.proposer_budget_ms or pick a faster llm.model"),
			logging.String(logging.FieldImpact, "the result comes from trending titles"),
		)
		return Proposal{}, proposeCtx.Err()
	}
}

// fallback never runs on a dead context: a caller that went away is not a
// trending outage.
func (run *resolution) fallback(ctx context.Context, reason, source string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	item, err := run.resolver.fallback.Resolve(ctx, run.region)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Item:              item,
		Outcome:           OutcomeDegraded,
		Strategy:          StrategyFallback,
		CandidatesChecked: run.checked,
		Reason:            reason,
		Source:            source,
	}, nil
}
