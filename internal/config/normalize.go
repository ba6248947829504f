package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeTMDB()
	c.normalizeLLM()
	if err := c.normalizeResolver(); err != nil {
		return err
	}
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeServer()
	return c.normalizeLogging()
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = value
		}
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimSpace(c.TMDB.BaseURL)
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.ImageBaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.ImageBaseURL), "/")
	if c.TMDB.ImageBaseURL == "" {
		c.TMDB.ImageBaseURL = defaultTMDBImageBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	c.TMDB.SearchMode = strings.ToLower(strings.TrimSpace(c.TMDB.SearchMode))
	if c.TMDB.SearchMode == "" {
		c.TMDB.SearchMode = defaultTMDBSearchMode
	}
	if c.TMDB.RequestTimeoutSeconds <= 0 {
		c.TMDB.RequestTimeoutSeconds = defaultTMDBRequestTimeout
	}
	if c.TMDB.BreakerMinRequests <= 0 {
		c.TMDB.BreakerMinRequests = defaultTMDBBreakerMinRequests
	}
	if c.TMDB.BreakerOpenSeconds <= 0 {
		c.TMDB.BreakerOpenSeconds = defaultTMDBBreakerOpenSeconds
	}
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.RetryAttempts <= 0 {
		c.LLM.RetryAttempts = 1
	}
}

func (c *Config) normalizeResolver() error {
	region := strings.TrimSpace(c.Resolver.DefaultRegion)
	if region == "" {
		region = defaultRegion
	}
	normalized, err := NormalizeRegion(region)
	if err != nil {
		return fmt.Errorf("resolver.default_region: %w", err)
	}
	c.Resolver.DefaultRegion = normalized
	c.Resolver.TrendingWindow = strings.ToLower(strings.TrimSpace(c.Resolver.TrendingWindow))
	if c.Resolver.TrendingWindow == "" {
		c.Resolver.TrendingWindow = defaultTrendingWindow
	}
	c.Resolver.TrendingMedia = strings.ToLower(strings.TrimSpace(c.Resolver.TrendingMedia))
	if c.Resolver.TrendingMedia == "" {
		c.Resolver.TrendingMedia = defaultTrendingMedia
	}

	titles := make([]string, 0, len(c.Resolver.SafetyCandidates))
	seen := make(map[string]struct{}, len(c.Resolver.SafetyCandidates))
	for _, title := range c.Resolver.SafetyCandidates {
		trimmed := strings.TrimSpace(title)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		titles = append(titles, trimmed)
	}
	if len(titles) == 0 {
		titles = DefaultSafetyCandidates()
	}
	c.Resolver.SafetyCandidates = titles
	return nil
}

func (c *Config) normalizeCache() error {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	if c.Cache.Backend == CacheBackendMemory {
		c.Cache.Path = ""
	} else {
		if strings.TrimSpace(c.Cache.Path) == "" {
			c.Cache.Path = defaultCachePath(c.Cache.Backend)
		}
		var err error
		if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
			return fmt.Errorf("cache.path: %w", err)
		}
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = defaultCacheMaxEntries
	}
	if c.Cache.SweepIntervalSeconds <= 0 {
		c.Cache.SweepIntervalSeconds = defaultCacheSweepSeconds
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("CINESPIN_API_TOKEN"); ok {
			c.Server.APIToken = value
		}
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	c.Server.FallbackImageURL = strings.TrimSpace(c.Server.FallbackImageURL)
	if c.Server.FallbackImageURL == "" {
		c.Server.FallbackImageURL = defaultFallbackImageURL
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = defaultShutdownTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		var err error
		if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
	}
	if len(c.Logging.ComponentOverrides) > 0 {
		overrides := make(map[string]string, len(c.Logging.ComponentOverrides))
		for component, level := range c.Logging.ComponentOverrides {
			key := strings.ToLower(strings.TrimSpace(component))
			value := strings.ToLower(strings.TrimSpace(level))
			if key == "" || value == "" {
				continue
			}
			overrides[key] = value
		}
		c.Logging.ComponentOverrides = overrides
	}
	return nil
}
