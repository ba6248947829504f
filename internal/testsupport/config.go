package testsupport

import (
	"path/filepath"
	"testing"

	"cinespin/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a validated config rooted in a per-test temp directory.
// Budgets are shortened so timeout paths finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.TMDB.APIKey = "test"
	cfgVal.LLM.APIKey = ""
	cfgVal.Resolver.ProposerBudgetMS = 500
	cfgVal.Resolver.ValidationBudgetMS = 2000
	cfgVal.Cache.Backend = config.CacheBackendMemory
	cfgVal.Cache.Path = ""
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Server.RateLimitRPS = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithTMDBBaseURL points the TMDB client at a fake server.
func WithTMDBBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.BaseURL = url
	}
}

// WithLLM configures the language model endpoint and key.
func WithLLM(baseURL, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = baseURL
		b.cfg.LLM.APIKey = key
	}
}

// WithCacheBackend selects a cache backend, placing file-backed caches under
// the test's temp directory.
func WithCacheBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Backend = backend
		switch backend {
		case config.CacheBackendFile:
			b.cfg.Cache.Path = filepath.Join(b.baseDir, "cache", "vibe-cache.json")
		case config.CacheBackendSQLite:
			b.cfg.Cache.Path = filepath.Join(b.baseDir, "cache", "vibe-cache.db")
		default:
			b.cfg.Cache.Path = ""
		}
	}
}

// WithBudgets overrides the proposer and validation budgets in milliseconds.
func WithBudgets(proposerMS, validationMS int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Resolver.ProposerBudgetMS = proposerMS
		b.cfg.Resolver.ValidationBudgetMS = validationMS
	}
}

// WithAPIToken protects the cache admin routes.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.APIToken = token
	}
}

// WithRateLimit enables the per-client limiter.
func WithRateLimit(rps float64, burst int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.RateLimitRPS = rps
		b.cfg.Server.RateLimitBurst = burst
	}
}

// WithTrustedProxy honours forwarding headers for the client address.
func WithTrustedProxy() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.TrustProxyHeaders = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Logging.Dir)
}
