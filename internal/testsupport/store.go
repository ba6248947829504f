package testsupport

import (
	"context"
	"testing"

	"cinespin/internal/config"
	"cinespin/internal/logging"
	"cinespin/internal/vibecache"
)

// MustOpenCache opens the configured cache backend and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) vibecache.Admin {
	t.Helper()

	store, err := vibecache.Open(cfg.Cache, logging.NewNop())
	if err != nil {
		t.Fatalf("vibecache.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedCache stores candidates for (region, text).
func SeedCache(t testing.TB, store vibecache.Store, region, text string, candidates ...string) {
	t.Helper()

	if err := store.Put(context.Background(), vibecache.Key(region, text), candidates); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
}
