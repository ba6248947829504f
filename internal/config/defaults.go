package config

const (
	// CacheBackendMemory keeps proposals in an in-process LRU.
	CacheBackendMemory = "memory"
	// CacheBackendFile persists proposals to a JSON file.
	CacheBackendFile = "file"
	// CacheBackendSQLite persists proposals to a SQLite database.
	CacheBackendSQLite = "sqlite"
)

const (
	defaultTMDBLanguage           = "en-US"
	defaultTMDBBaseURL            = "https://api.themoviedb.org/3"
	defaultTMDBImageBaseURL       = "https://image.tmdb.org/t/p"
	defaultTMDBRequestTimeout     = 10
	defaultTMDBSearchMode         = "multi"
	defaultTMDBBreakerMinRequests = 10
	defaultTMDBBreakerRatio       = 0.6
	defaultTMDBBreakerOpenSeconds = 30
	defaultLLMBaseURL             = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel               = "google/gemini-2.0-flash-001"
	defaultLLMReferer             = "https://github.com/cinespin/cinespin"
	defaultLLMTitle               = "cinespin vibe proposer"
	defaultLLMTimeoutSeconds      = 15
	defaultLLMRetryAttempts       = 2
	defaultRegion                 = "US"
	defaultCandidateCount         = 10
	defaultBatchSize              = 3
	defaultProposerBudgetMS       = 5500
	defaultValidationBudgetMS     = 8000
	defaultFallbackTopN           = 5
	defaultTrendingWindow         = "week"
	defaultTrendingMedia          = "all"
	defaultCacheBackend           = CacheBackendMemory
	defaultCacheTTLSeconds        = 86400
	defaultCacheMaxEntries        = 1024
	defaultCacheSweepSeconds      = 300
	defaultServerBind             = "127.0.0.1:7488"
	defaultRateLimitRPS           = 5
	defaultRateLimitBurst         = 10
	defaultFallbackImageURL       = "https://cinespin.app/app-icon.png"
	defaultShutdownTimeoutSeconds = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// DefaultSafetyCandidates lists broadly popular, broadly available titles the
// proposer returns when the model output cannot be used.
func DefaultSafetyCandidates() []string {
	return []string{
		"Inception",
		"The Dark Knight",
		"Interstellar",
		"The Shawshank Redemption",
		"Pulp Fiction",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		TMDB: TMDB{
			Language:              defaultTMDBLanguage,
			BaseURL:               defaultTMDBBaseURL,
			ImageBaseURL:          defaultTMDBImageBaseURL,
			RequestTimeoutSeconds: defaultTMDBRequestTimeout,
			SearchMode:            defaultTMDBSearchMode,
			BreakerMinRequests:    defaultTMDBBreakerMinRequests,
			BreakerFailureRatio:   defaultTMDBBreakerRatio,
			BreakerOpenSeconds:    defaultTMDBBreakerOpenSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			RetryAttempts:  defaultLLMRetryAttempts,
		},
		Resolver: Resolver{
			DefaultRegion:      defaultRegion,
			CandidateCount:     defaultCandidateCount,
			BatchSize:          defaultBatchSize,
			ProposerBudgetMS:   defaultProposerBudgetMS,
			ValidationBudgetMS: defaultValidationBudgetMS,
			FallbackTopN:       defaultFallbackTopN,
			TrendingWindow:     defaultTrendingWindow,
			TrendingMedia:      defaultTrendingMedia,
			SafetyCandidates:   DefaultSafetyCandidates(),
		},
		Cache: Cache{
			Backend:              defaultCacheBackend,
			TTLSeconds:           defaultCacheTTLSeconds,
			MaxEntries:           defaultCacheMaxEntries,
			SweepIntervalSeconds: defaultCacheSweepSeconds,
		},
		Server: Server{
			Bind:                   defaultServerBind,
			RateLimitRPS:           defaultRateLimitRPS,
			RateLimitBurst:         defaultRateLimitBurst,
			FallbackImageURL:       defaultFallbackImageURL,
			ShutdownTimeoutSeconds: defaultShutdownTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
