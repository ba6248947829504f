package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateResolver(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTMDB() error {
	if c.TMDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/cinespin/config.toml"
		}
		return fmt.Errorf("tmdb.api_key is required. Set TMDB_API_KEY env var or edit %s (create with 'cinespin config init')", defaultPath)
	}
	switch c.TMDB.SearchMode {
	case "multi", "movie", "tv":
	default:
		return fmt.Errorf("tmdb.search_mode must be multi, movie or tv (got %q)", c.TMDB.SearchMode)
	}
	if c.TMDB.BreakerFailureRatio <= 0 || c.TMDB.BreakerFailureRatio > 1 {
		return errors.New("tmdb.breaker_failure_ratio must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.TimeoutSeconds < 0 {
		return errors.New("llm.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateResolver() error {
	if err := ensurePositiveMap(map[string]int{
		"resolver.candidate_count":      c.Resolver.CandidateCount,
		"resolver.batch_size":           c.Resolver.BatchSize,
		"resolver.proposer_budget_ms":   c.Resolver.ProposerBudgetMS,
		"resolver.validation_budget_ms": c.Resolver.ValidationBudgetMS,
		"resolver.fallback_top_n":       c.Resolver.FallbackTopN,
	}); err != nil {
		return err
	}
	switch c.Resolver.TrendingWindow {
	case "day", "week":
	default:
		return fmt.Errorf("resolver.trending_window must be day or week (got %q)", c.Resolver.TrendingWindow)
	}
	switch c.Resolver.TrendingMedia {
	case "all", "movie", "tv":
	default:
		return fmt.Errorf("resolver.trending_media must be all, movie or tv (got %q)", c.Resolver.TrendingMedia)
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendFile, CacheBackendSQLite:
		if strings.TrimSpace(c.Cache.Path) == "" {
			return fmt.Errorf("cache.path must be set when cache.backend is %s", c.Cache.Backend)
		}
	default:
		return fmt.Errorf("cache.backend must be memory, file or sqlite (got %q)", c.Cache.Backend)
	}
	if c.Cache.TTLSeconds < 0 {
		return errors.New("cache.ttl_seconds must not be negative (0 disables expiry)")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.RateLimitRPS < 0 {
		return errors.New("server.rate_limit_rps must not be negative (0 disables limiting)")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst <= 0 {
		return errors.New("server.rate_limit_burst must be positive when rate limiting is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	for component, level := range c.Logging.ComponentOverrides {
		if !validLevel(level) {
			return fmt.Errorf("logging.component_overrides.%s: unsupported level %q", component, level)
		}
	}
	if !validLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func validLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
