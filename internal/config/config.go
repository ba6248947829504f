package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey                string  `toml:"api_key"`
	BaseURL               string  `toml:"base_url"`
	Language              string  `toml:"language"`
	ImageBaseURL          string  `toml:"image_base_url"`
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"`
	SearchMode            string  `toml:"search_mode"`
	BreakerMinRequests    int     `toml:"breaker_min_requests"`
	BreakerFailureRatio   float64 `toml:"breaker_failure_ratio"`
	BreakerOpenSeconds    int     `toml:"breaker_open_seconds"`
}

// LLM contains the language model connection settings used by the proposer.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
}

// Resolver contains the tuning knobs of the vibe resolution pipeline.
type Resolver struct {
	DefaultRegion      string   `toml:"default_region"`
	CandidateCount     int      `toml:"candidate_count"`
	BatchSize          int      `toml:"batch_size"`
	ProposerBudgetMS   int      `toml:"proposer_budget_ms"`
	ValidationBudgetMS int      `toml:"validation_budget_ms"`
	FallbackTopN       int      `toml:"fallback_top_n"`
	TrendingWindow     string   `toml:"trending_window"`
	TrendingMedia      string   `toml:"trending_media"`
	SafetyCandidates   []string `toml:"safety_candidates"`
}

// Cache contains configuration for the proposal cache.
type Cache struct {
	Backend              string `toml:"backend"` // memory, file, sqlite
	Path                 string `toml:"path"`
	TTLSeconds           int    `toml:"ttl_seconds"` // 0 disables expiry
	MaxEntries           int    `toml:"max_entries"`
	SweepIntervalSeconds int    `toml:"sweep_interval_seconds"`
}

// Server contains configuration for the HTTP API.
type Server struct {
	Bind                   string  `toml:"bind"`
	APIToken               string  `toml:"api_token"`
	RateLimitRPS           float64 `toml:"rate_limit_rps"`
	RateLimitBurst         int     `toml:"rate_limit_burst"`
	FallbackImageURL       string  `toml:"fallback_image_url"`
	ShutdownTimeoutSeconds int     `toml:"shutdown_timeout_seconds"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool `toml:"trust_proxy_headers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format             string            `toml:"format"`
	Level              string            `toml:"level"`
	Dir                string            `toml:"dir"`
	ComponentOverrides map[string]string `toml:"component_overrides"`
}

// Config encapsulates all configuration values for cinespin.
//
// Configuration sections by subsystem:
//   - TMDB: catalog search, watch providers and trending lists
//   - LLM: language model used to propose candidate titles
//   - Resolver: pipeline budgets, batch sizes and fallback tuning
//   - Cache: proposal cache backend, TTL and size bound
//   - Server: HTTP API bind address, auth token and rate limits
//   - Logging: log format, level and per-component overrides
type Config struct {
	TMDB     TMDB     `toml:"tmdb"`
	LLM      LLM      `toml:"llm"`
	Resolver Resolver `toml:"resolver"`
	Cache    Cache    `toml:"cache"`
	Server   Server   `toml:"server"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cinespin/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cinespin.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the configured cache and log
// outputs write into.
func (c *Config) EnsureDirectories() error {
	if c.Cache.Backend != CacheBackendMemory && strings.TrimSpace(c.Cache.Path) != "" {
		if err := os.MkdirAll(filepath.Dir(c.Cache.Path), 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		if err := os.MkdirAll(c.Logging.Dir, 0o755); err != nil {
			return fmt.Errorf("create log directory %q: %w", c.Logging.Dir, err)
		}
	}
	return nil
}

// ProposerBudget returns the wall-clock budget for a single proposer call.
func (c *Config) ProposerBudget() time.Duration {
	return time.Duration(c.Resolver.ProposerBudgetMS) * time.Millisecond
}

// ValidationBudget returns the wall-clock budget for the validation batches.
func (c *Config) ValidationBudget() time.Duration {
	return time.Duration(c.Resolver.ValidationBudgetMS) * time.Millisecond
}

// CacheTTL returns the cache entry lifetime; zero means entries never expire.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// LLMConfigured reports whether the proposer has credentials to call the model.
func (c *Config) LLMConfigured() bool {
	return strings.TrimSpace(c.LLM.APIKey) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCachePath(backend string) string {
	name := "vibe-cache.json"
	if backend == CacheBackendSQLite {
		name = "vibe-cache.db"
	}
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "cinespin", name)
	}
	return "~/.cache/cinespin/" + name
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
