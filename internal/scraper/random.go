package scraper

import (
	"math/rand/v2"
	"sync"
)

// Random is a goroutine-safe random source shared by the identity rotator
// and the request builder. Seed it to get a reproducible request sequence.
type Random struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandom wraps src. A nil src is replaced by a randomly seeded PCG.
func NewRandom(src rand.Source) *Random {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Random{r: rand.New(src)}
}

// NewSeededRandom returns a Random with a fixed seed
func NewSeededRandom(seed uint64) *Random {
	return NewRandom(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// IntN returns a value in [0, n)
func (r *Random) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.IntN(n)
}

// Between returns a value in [lo, hi)
func (r *Random) Between(lo, hi int) int {
	return lo + r.IntN(hi-lo)
}

// Float64 returns a value in [0, 1)
func (r *Random) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Float64()
}
