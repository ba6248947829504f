package vibecache

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"cinespin/internal/config"
	"cinespin/internal/logging"
	"cinespin/internal/metrics"
)

// Memory is an in-process LRU with optional TTL. Recency and the size bound
// come from simplelru; expiry is checked against Options.Now so it follows
// the same clock as the persistent backends.
type Memory struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	entries *simplelru.LRU[string, Entry]
}

// NewMemory creates an empty in-memory cache.
func NewMemory(opts Options) *Memory {
	return &Memory{
		opts:    opts,
		logger:  componentLogger(opts.Logger),
		entries: newLRU(opts.MaxEntries),
	}
}

func newLRU(maxEntries int) *simplelru.LRU[string, Entry] {
	size := maxEntries
	if size <= 0 {
		size = math.MaxInt
	}
	// NewLRU only fails for a non-positive size.
	entries, _ := simplelru.NewLRU[string, Entry](size, nil)
	return entries
}

// Backend returns the backend name.
func (m *Memory) Backend() string { return config.CacheBackendMemory }

// Get returns the entry for key, refreshing its recency. Expired entries are
// dropped and reported as misses.
func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries.Get(key)
	if !ok {
		return Entry{}, false, nil
	}
	if entry.Expired(m.opts.now()) {
		m.entries.Remove(key)
		m.recordSize()
		metrics.CacheEvictions.WithLabelValues(m.Backend(), "expired").Inc()
		return Entry{}, false, nil
	}
	entry.Candidates = copyCandidates(entry.Candidates)
	return entry, true, nil
}

// Put stores candidates under key, evicting the least recently used entry
// once MaxEntries is reached.
func (m *Memory) Put(_ context.Context, key string, candidates []string) error {
	if strings.TrimSpace(key) == "" {
		return errKeyRequired("put")
	}
	now := m.opts.now()
	entry := Entry{
		Key:        key,
		Candidates: copyCandidates(candidates),
		CachedAt:   now,
		ExpiresAt:  m.opts.expiry(now),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	oldest, _, _ := m.entries.GetOldest()
	if evicted := m.entries.Add(key, entry); evicted {
		metrics.CacheEvictions.WithLabelValues(m.Backend(), "capacity").Inc()
		m.logger.Debug("evicted least recently used proposal", logging.String("key", oldest))
	}
	m.recordSize()
	return nil
}

// List returns live entries, most recently used first.
func (m *Memory) List(_ context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.now()
	values := m.entries.Values()
	slices.Reverse(values)
	entries := make([]Entry, 0, len(values))
	for _, entry := range values {
		if entry.Expired(now) {
			continue
		}
		entry.Candidates = copyCandidates(entry.Candidates)
		entries = append(entries, entry)
	}
	return entries, nil
}

// Remove deletes key.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.entries.Remove(key) {
		return errKeyNotFound(key)
	}
	m.recordSize()
	return nil
}

// Clear drops every entry.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries.Purge()
	m.recordSize()
	return nil
}

// Len returns the number of stored entries, expired ones included until swept.
func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries.Len(), nil
}

// Sweep removes expired entries and returns how many were dropped.
func (m *Memory) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.now()
	removed := 0
	for _, key := range m.entries.Keys() {
		entry, ok := m.entries.Peek(key)
		if ok && entry.Expired(now) {
			m.entries.Remove(key)
			removed++
		}
	}
	if removed > 0 {
		m.recordSize()
		metrics.CacheEvictions.WithLabelValues(m.Backend(), "expired").Add(float64(removed))
	}
	return removed, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func (m *Memory) recordSize() {
	metrics.CacheEntries.WithLabelValues(m.Backend()).Set(float64(m.entries.Len()))
}
