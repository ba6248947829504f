package vibecache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cinespin/internal/config"
	"cinespin/internal/logging"
	"cinespin/internal/services"
)

// Entry is a cached proposal: the candidate titles the proposer returned for
// one normalized (region, text) key.
type Entry struct {
	Key        string    `json:"key"`
	Candidates []string  `json:"candidates"`
	CachedAt   time.Time `json:"cached_at"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
}

// Expired reports whether the entry is past its expiry. Entries without an
// expiry never expire.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Store is the contract the resolver depends on. Concurrent writers for the
// same key are allowed; the last write wins.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, candidates []string) error
}

// Admin adds inspection and maintenance operations used by the CLI, the HTTP
// admin routes and the sweeper.
type Admin interface {
	Store
	Backend() string
	List(ctx context.Context) ([]Entry, error)
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
	Sweep(ctx context.Context) (int, error)
	Close() error
}

// Key derives the cache key for a request: lower(region) + ":" +
// trim(lower(text)).
func Key(region, text string) string {
	return strings.ToLower(region) + ":" + strings.TrimSpace(strings.ToLower(text))
}

// Options carries the policy shared by every backend.
type Options struct {
	// TTL bounds entry lifetime; zero disables expiry.
	TTL time.Duration
	// MaxEntries bounds the entry count; zero means unbounded.
	MaxEntries int
	Logger     *slog.Logger
	// Now overrides the clock (tests).
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) expiry(now time.Time) time.Time {
	if o.TTL <= 0 {
		return time.Time{}
	}
	return now.Add(o.TTL)
}

// Open builds the backend named by cfg.Backend.
func Open(cfg config.Cache, logger *slog.Logger) (Admin, error) {
	opts := Options{
		TTL:        time.Duration(cfg.TTLSeconds) * time.Second,
		MaxEntries: cfg.MaxEntries,
		Logger:     logger,
	}
	switch cfg.Backend {
	case config.CacheBackendMemory, "":
		return NewMemory(opts), nil
	case config.CacheBackendFile:
		return NewFile(cfg.Path, opts), nil
	case config.CacheBackendSQLite:
		return OpenSQLite(context.Background(), cfg.Path, opts)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "vibecache", "open", fmt.Sprintf("unknown backend %q", cfg.Backend), nil)
	}
}

func errKeyRequired(op string) error {
	return services.Wrap(services.ErrValidation, "vibecache", op, "key cannot be empty", nil)
}

func errKeyNotFound(key string) error {
	return services.Wrap(services.ErrNotFound, "vibecache", "remove", fmt.Sprintf("key %q not in cache", key), nil)
}

func componentLogger(logger *slog.Logger) *slog.Logger {
	return logging.NewComponentLogger(logger, "vibecache")
}

func copyCandidates(candidates []string) []string {
	out := make([]string, len(candidates))
	copy(out, candidates)
	return out
}
