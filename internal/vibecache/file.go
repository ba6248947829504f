package vibecache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	json "github.com/goccy/go-json"

	"cinespin/internal/config"
	"cinespin/internal/logging"
	"cinespin/internal/metrics"
)

// File persists proposals to a JSON document. Every operation re-reads the
// file under a cross-process lock so `cinespin cache clear` and a running
// server see each other's changes. When MaxEntries is exceeded the oldest
// entries by CachedAt are dropped.
type File struct {
	path   string
	opts   Options
	logger *slog.Logger
	lock   *flock.Flock

	mu sync.Mutex
}

// NewFile creates a file-backed cache at path. The file is created lazily on
// the first write.
func NewFile(path string, opts Options) *File {
	return &File{
		path:   path,
		opts:   opts,
		logger: componentLogger(opts.Logger),
		lock:   flock.New(path + ".lock"),
	}
}

// Backend returns the backend name.
func (f *File) Backend() string { return config.CacheBackendFile }

// Path returns the JSON document location.
func (f *File) Path() string { return f.path }

// Get returns the entry for key. A corrupt or unreadable file is logged and
// treated as a miss.
func (f *File) Get(_ context.Context, key string) (Entry, bool, error) {
	var (
		entry Entry
		found bool
	)
	err := f.withLock(false, func(entries map[string]Entry) (bool, error) {
		entry, found = entries[key]
		return false, nil
	})
	if err != nil {
		return Entry{}, false, err
	}
	if !found || entry.Expired(f.opts.now()) {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Put stores candidates under key and persists the document.
func (f *File) Put(_ context.Context, key string, candidates []string) error {
	if strings.TrimSpace(key) == "" {
		return errKeyRequired("put")
	}
	now := f.opts.now()
	return f.withLock(true, func(entries map[string]Entry) (bool, error) {
		entries[key] = Entry{
			Key:        key,
			Candidates: copyCandidates(candidates),
			CachedAt:   now,
			ExpiresAt:  f.opts.expiry(now),
		}
		if evicted := trimOldest(entries, f.opts.MaxEntries); evicted > 0 {
			metrics.CacheEvictions.WithLabelValues(f.Backend(), "capacity").Add(float64(evicted))
		}
		return true, nil
	})
}

// List returns live entries, newest first.
func (f *File) List(_ context.Context) ([]Entry, error) {
	var out []Entry
	now := f.opts.now()
	err := f.withLock(false, func(entries map[string]Entry) (bool, error) {
		for _, entry := range sortedEntries(entries) {
			if !entry.Expired(now) {
				out = append(out, entry)
			}
		}
		return false, nil
	})
	return out, err
}

// Remove deletes key and persists the change.
func (f *File) Remove(_ context.Context, key string) error {
	return f.withLock(true, func(entries map[string]Entry) (bool, error) {
		if _, ok := entries[key]; !ok {
			return false, errKeyNotFound(key)
		}
		delete(entries, key)
		return true, nil
	})
}

// Clear removes all entries and persists the empty document.
func (f *File) Clear(_ context.Context) error {
	return f.withLock(true, func(entries map[string]Entry) (bool, error) {
		clear(entries)
		return true, nil
	})
}

// Len returns the number of stored entries.
func (f *File) Len(_ context.Context) (int, error) {
	count := 0
	err := f.withLock(false, func(entries map[string]Entry) (bool, error) {
		count = len(entries)
		return false, nil
	})
	return count, err
}

// Sweep removes expired entries.
func (f *File) Sweep(_ context.Context) (int, error) {
	now := f.opts.now()
	removed := 0
	err := f.withLock(true, func(entries map[string]Entry) (bool, error) {
		for key, entry := range entries {
			if entry.Expired(now) {
				delete(entries, key)
				removed++
			}
		}
		return removed > 0, nil
	})
	if removed > 0 {
		metrics.CacheEvictions.WithLabelValues(f.Backend(), "expired").Add(float64(removed))
	}
	return removed, err
}

// Close is a no-op; locks are released after every operation.
func (f *File) Close() error { return nil }

// withLock loads the document under a shared (read) or exclusive (write)
// lock, runs fn, and saves when fn reports a change.
func (f *File) withLock(write bool, fn func(map[string]Entry) (bool, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	lockFn := f.lock.RLock
	if write {
		lockFn = f.lock.Lock
	}
	if err := lockFn(); err != nil {
		return fmt.Errorf("lock cache file: %w", err)
	}
	defer func() {
		_ = f.lock.Unlock()
	}()

	entries, err := f.load()
	if err != nil {
		logging.WarnWithContext(f.logger, "failed to load vibe cache", "vibecache_load_failed",
			logging.Error(err),
			logging.String("path", f.path),
			logging.String(logging.FieldErrorHint, "cache will start empty; delete the file if it stays corrupt"),
			logging.String(logging.FieldImpact, "previously cached proposals will be requested again"),
		)
		entries = make(map[string]Entry)
	}

	changed, err := fn(entries)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := f.save(entries); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	metrics.CacheEntries.WithLabelValues(f.Backend()).Set(float64(len(entries)))
	return nil
}

func (f *File) load() (map[string]Entry, error) {
	entries := make(map[string]Entry)
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entries, nil
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse cache file: %w", err)
	}
	for key, entry := range entries {
		if strings.TrimSpace(key) == "" {
			delete(entries, key)
			continue
		}
		entry.Key = key
		entries[key] = entry
	}
	return entries, nil
}

// save writes the document atomically via a temp file.
func (f *File) save(entries map[string]Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func sortedEntries(entries map[string]Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CachedAt.Equal(out[j].CachedAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].CachedAt.After(out[j].CachedAt)
	})
	return out
}

func trimOldest(entries map[string]Entry, maxEntries int) int {
	if maxEntries <= 0 || len(entries) <= maxEntries {
		return 0
	}
	sorted := sortedEntries(entries)
	evicted := 0
	for _, entry := range sorted[maxEntries:] {
		delete(entries, entry.Key)
		evicted++
	}
	return evicted
}
