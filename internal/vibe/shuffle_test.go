package vibe_test

import (
	"slices"
	"testing"

	"pgregory.net/rapid"

	"cinespin/internal/vibe"
)

func TestShufflePreservesMultiset(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		items := rapid.SliceOfN(rapid.StringMatching(`[A-Za-z ]{0,12}`), 0, 24).Draw(t, "items")
		seed := rapid.Uint64().Draw(t, "seed")

		shuffled := slices.Clone(items)
		vibe.NewSeededShuffler(seed).Shuffle(shuffled)

		if len(shuffled) != len(items) {
			t.Fatalf("length changed: %d -> %d", len(items), len(shuffled))
		}
		want := slices.Clone(items)
		got := slices.Clone(shuffled)
		slices.Sort(want)
		slices.Sort(got)
		if !slices.Equal(want, got) {
			t.Fatalf("multiset changed: %v -> %v", items, shuffled)
		}
	})
}

func TestShuffleIsDeterministicForSeed(t *testing.T) {
	base := []string{"Scream", "The Sixth Sense", "Candyman", "Ringu", "Event Horizon",
		"The Craft", "Se7en", "Misery", "Cube", "Tremors"}

	first := slices.Clone(base)
	second := slices.Clone(base)
	vibe.NewSeededShuffler(42).Shuffle(first)
	vibe.NewSeededShuffler(42).Shuffle(second)
	if !slices.Equal(first, second) {
		t.Fatalf("same seed produced different orders: %v vs %v", first, second)
	}

	sorted := slices.Clone(first)
	slices.Sort(sorted)
	want := slices.Clone(base)
	slices.Sort(want)
	if !slices.Equal(sorted, want) {
		t.Fatalf("shuffle dropped or duplicated titles: %v", first)
	}
}

func TestShuffleMovesItemsAcrossSeeds(t *testing.T) {
	base := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	firsts := make(map[string]bool)
	for seed := range uint64(50) {
		items := slices.Clone(base)
		vibe.NewSeededShuffler(seed).Shuffle(items)
		firsts[items[0]] = true
	}
	if len(firsts) < 3 {
		t.Fatalf("expected first position to vary across seeds, saw %v", firsts)
	}
}
