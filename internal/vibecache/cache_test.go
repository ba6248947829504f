package vibecache_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"cinespin/internal/config"
	"cinespin/internal/logging"
	"cinespin/internal/services"
	"cinespin/internal/vibecache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type backendFactory func(t *testing.T, opts vibecache.Options) vibecache.Admin

func backends() map[string]backendFactory {
	return map[string]backendFactory{
		"memory": func(t *testing.T, opts vibecache.Options) vibecache.Admin {
			return vibecache.NewMemory(opts)
		},
		"file": func(t *testing.T, opts vibecache.Options) vibecache.Admin {
			return vibecache.NewFile(filepath.Join(t.TempDir(), "vibes.json"), opts)
		},
		"sqlite": func(t *testing.T, opts vibecache.Options) vibecache.Admin {
			store, err := vibecache.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "vibes.db"), opts)
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}
}

func TestKeyNormalizesRegionAndText(t *testing.T) {
	cases := []struct {
		region, text, want string
	}{
		{"US", "  Cozy Rainy Day ", "us:cozy rainy day"},
		{"gb", "HEIST", "gb:heist"},
		{"DE", "", "de:"},
	}
	for _, tc := range cases {
		if got := vibecache.Key(tc.region, tc.text); got != tc.want {
			t.Fatalf("Key(%q, %q) = %q, want %q", tc.region, tc.text, got, tc.want)
		}
	}
	if vibecache.Key("US", "Heist") != vibecache.Key("us", " heist ") {
		t.Fatal("expected equivalent requests to share a key")
	}
}

func TestBackendsRoundTrip(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			store := factory(t, vibecache.Options{TTL: time.Hour, MaxEntries: 10, Now: clock.Now, Logger: logging.NewNop()})
			ctx := context.Background()

			if _, ok, err := store.Get(ctx, "us:heist"); err != nil || ok {
				t.Fatalf("expected miss on empty cache, ok=%v err=%v", ok, err)
			}
			want := []string{"Heat", "Thief", "Ronin"}
			if err := store.Put(ctx, "us:heist", want); err != nil {
				t.Fatalf("Put: %v", err)
			}
			entry, ok, err := store.Get(ctx, "us:heist")
			if err != nil || !ok {
				t.Fatalf("expected hit, ok=%v err=%v", ok, err)
			}
			if !slices.Equal(entry.Candidates, want) {
				t.Fatalf("unexpected candidates %v", entry.Candidates)
			}
			if !entry.CachedAt.Equal(clock.Now()) {
				t.Fatalf("unexpected cached_at %s", entry.CachedAt)
			}

			if err := store.Put(ctx, "us:heist", []string{"Inside Man"}); err != nil {
				t.Fatalf("overwrite Put: %v", err)
			}
			entry, _, _ = store.Get(ctx, "us:heist")
			if !slices.Equal(entry.Candidates, []string{"Inside Man"}) {
				t.Fatalf("expected last write to win, got %v", entry.Candidates)
			}
			if n, _ := store.Len(ctx); n != 1 {
				t.Fatalf("expected one entry, got %d", n)
			}
		})
	}
}

func TestBackendsExpireEntries(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			store := factory(t, vibecache.Options{TTL: time.Minute, Now: clock.Now})
			ctx := context.Background()

			if err := store.Put(ctx, "us:old", []string{"Alien"}); err != nil {
				t.Fatalf("Put: %v", err)
			}
			clock.Advance(30 * time.Second)
			if err := store.Put(ctx, "us:new", []string{"Heat"}); err != nil {
				t.Fatalf("Put: %v", err)
			}
			clock.Advance(45 * time.Second)

			if _, ok, _ := store.Get(ctx, "us:old"); ok {
				t.Fatal("expected expired entry to miss")
			}
			if _, ok, _ := store.Get(ctx, "us:new"); !ok {
				t.Fatal("expected fresh entry to hit")
			}
			removed, err := store.Sweep(ctx)
			if err != nil {
				t.Fatalf("Sweep: %v", err)
			}
			if name != "memory" && removed != 1 {
				t.Fatalf("expected sweep to remove one entry, got %d", removed)
			}
			entries, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(entries) != 1 || entries[0].Key != "us:new" {
				t.Fatalf("unexpected entries after sweep: %+v", entries)
			}
		})
	}
}

func TestBackendsBoundEntries(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			store := factory(t, vibecache.Options{MaxEntries: 2, Now: clock.Now})
			ctx := context.Background()

			for _, key := range []string{"us:a", "us:b", "us:c"} {
				if err := store.Put(ctx, key, []string{key}); err != nil {
					t.Fatalf("Put %s: %v", key, err)
				}
				clock.Advance(time.Second)
			}
			if n, _ := store.Len(ctx); n != 2 {
				t.Fatalf("expected two entries, got %d", n)
			}
			if _, ok, _ := store.Get(ctx, "us:a"); ok {
				t.Fatal("expected oldest entry to be evicted")
			}
			if _, ok, _ := store.Get(ctx, "us:c"); !ok {
				t.Fatal("expected newest entry to survive")
			}
		})
	}
}

func TestBackendsAdminOperations(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			store := factory(t, vibecache.Options{Now: clock.Now})
			ctx := context.Background()

			if err := store.Put(ctx, "", []string{"Heat"}); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error for empty key, got %v", err)
			}
			for _, key := range []string{"us:a", "us:b"} {
				if err := store.Put(ctx, key, []string{"X"}); err != nil {
					t.Fatalf("Put: %v", err)
				}
				clock.Advance(time.Second)
			}
			entries, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(entries) != 2 || entries[0].Key != "us:b" {
				t.Fatalf("expected newest first, got %+v", entries)
			}
			if err := store.Remove(ctx, "us:a"); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if err := store.Remove(ctx, "us:a"); !errors.Is(err, services.ErrNotFound) {
				t.Fatalf("expected not found on second remove, got %v", err)
			}
			if err := store.Clear(ctx); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			if n, _ := store.Len(ctx); n != 0 {
				t.Fatalf("expected empty cache after clear, got %d", n)
			}
			if store.Backend() != name {
				t.Fatalf("expected backend %q, got %q", name, store.Backend())
			}
		})
	}
}

func TestMemoryGetRefreshesRecency(t *testing.T) {
	store := vibecache.NewMemory(vibecache.Options{MaxEntries: 2})
	ctx := context.Background()
	_ = store.Put(ctx, "us:a", []string{"A"})
	_ = store.Put(ctx, "us:b", []string{"B"})
	if _, ok, _ := store.Get(ctx, "us:a"); !ok {
		t.Fatal("expected hit")
	}
	_ = store.Put(ctx, "us:c", []string{"C"})

	if _, ok, _ := store.Get(ctx, "us:b"); ok {
		t.Fatal("expected least recently used entry to be evicted")
	}
	if _, ok, _ := store.Get(ctx, "us:a"); !ok {
		t.Fatal("expected recently read entry to survive")
	}
}

func TestMemoryListsRecentFirstAndSweepsWithInjectedClock(t *testing.T) {
	clock := newFakeClock()
	store := vibecache.NewMemory(vibecache.Options{TTL: time.Minute, Now: clock.Now})
	ctx := context.Background()
	_ = store.Put(ctx, "us:a", []string{"A"})
	clock.Advance(40 * time.Second)
	_ = store.Put(ctx, "us:b", []string{"B"})
	_ = store.Put(ctx, "us:c", []string{"C"})
	if _, ok, _ := store.Get(ctx, "us:b"); !ok {
		t.Fatal("expected hit")
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var keys []string
	for _, entry := range entries {
		keys = append(keys, entry.Key)
	}
	if !slices.Equal(keys, []string{"us:b", "us:c", "us:a"}) {
		t.Fatalf("expected most recently used first, got %v", keys)
	}
	if !entries[2].ExpiresAt.Equal(entries[2].CachedAt.Add(time.Minute)) {
		t.Fatalf("expected per-entry expiry from the injected clock, got %+v", entries[2])
	}

	clock.Advance(30 * time.Second)
	removed, err := store.Sweep(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("expected one expired entry swept, got %d %v", removed, err)
	}
	if n, _ := store.Len(ctx); n != 2 {
		t.Fatalf("expected two entries left, got %d", n)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	store := vibecache.NewMemory(vibecache.Options{})
	ctx := context.Background()
	input := []string{"Heat"}
	_ = store.Put(ctx, "us:x", input)
	input[0] = "mutated"

	entry, _, _ := store.Get(ctx, "us:x")
	entry.Candidates[0] = "also mutated"
	again, _, _ := store.Get(ctx, "us:x")
	if again.Candidates[0] != "Heat" {
		t.Fatalf("expected stored candidates to be isolated, got %v", again.Candidates)
	}
}

func TestFilePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vibes.json")
	ctx := context.Background()

	first := vibecache.NewFile(path, vibecache.Options{})
	if err := first.Put(ctx, "us:heist", []string{"Heat"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	second := vibecache.NewFile(path, vibecache.Options{})
	entry, ok, err := second.Get(ctx, "us:heist")
	if err != nil || !ok {
		t.Fatalf("expected persisted entry, ok=%v err=%v", ok, err)
	}
	if entry.Candidates[0] != "Heat" {
		t.Fatalf("unexpected candidates %v", entry.Candidates)
	}
	if second.Path() != path {
		t.Fatalf("unexpected path %q", second.Path())
	}
}

func TestFileRecoversFromCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vibes.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	store := vibecache.NewFile(path, vibecache.Options{Logger: logging.NewNop()})
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "us:x"); err != nil || ok {
		t.Fatalf("expected miss on corrupt cache, ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, "us:x", []string{"Alien"}); err != nil {
		t.Fatalf("Put after corruption: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "us:x"); !ok {
		t.Fatal("expected entry after rewriting corrupt file")
	}
}

func TestSQLiteReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vibes.db")
	ctx := context.Background()

	first, err := vibecache.OpenSQLite(ctx, path, vibecache.Options{})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := first.Put(ctx, "us:heist", []string{"Heat", "Thief"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := vibecache.OpenSQLite(ctx, path, vibecache.Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	entry, ok, err := second.Get(ctx, "us:heist")
	if err != nil || !ok {
		t.Fatalf("expected persisted entry, ok=%v err=%v", ok, err)
	}
	if !slices.Equal(entry.Candidates, []string{"Heat", "Thief"}) {
		t.Fatalf("unexpected candidates %v", entry.Candidates)
	}
}

func TestOpenDispatchesOnBackend(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		backend string
		path    string
	}{
		{config.CacheBackendMemory, ""},
		{config.CacheBackendFile, filepath.Join(dir, "vibes.json")},
		{config.CacheBackendSQLite, filepath.Join(dir, "vibes.db")},
	}
	for _, tc := range cases {
		store, err := vibecache.Open(config.Cache{Backend: tc.backend, Path: tc.path, MaxEntries: 5}, logging.NewNop())
		if err != nil {
			t.Fatalf("Open(%s): %v", tc.backend, err)
		}
		if store.Backend() != tc.backend {
			t.Fatalf("expected %s backend, got %s", tc.backend, store.Backend())
		}
		_ = store.Close()
	}
	if _, err := vibecache.Open(config.Cache{Backend: "redis"}, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
