package vibe

import (
	"math/rand/v2"
	"sync"
)

// Shuffler is a goroutine-safe source of randomness for candidate ordering
// and fallback picks.
type Shuffler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewShuffler wraps rng; nil seeds from the runtime.
func NewShuffler(rng *rand.Rand) *Shuffler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Shuffler{rng: rng}
}

// NewSeededShuffler returns a deterministic shuffler.
func NewSeededShuffler(seed uint64) *Shuffler {
	return NewShuffler(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// Shuffle permutes items in place (Fisher-Yates).
func (s *Shuffler) Shuffle(items []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(items) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// IntN returns a value in [0, n).
func (s *Shuffler) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
