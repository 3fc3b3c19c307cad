package service

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

// Randomizer supplies the randomness used for ids, like counts and interest
// sampling. Tests inject deterministic implementations.
type Randomizer interface {
	// Intn returns a value in [0, n). n must be positive.
	Intn(n int) int
	// NewID returns a fresh opaque identifier.
	NewID() string
}

type defaultRandomizer struct{}

// NewRandomizer returns the process-wide Randomizer backed by math/rand and uuid.
func NewRandomizer() Randomizer {
	return defaultRandomizer{}
}

func (defaultRandomizer) Intn(n int) int {
	return rand.IntN(n)
}

func (defaultRandomizer) NewID() string {
	return uuid.NewString()
}

// SampleInterests picks up to count interests uniformly without replacement,
// preserving no particular order. The input slice is not modified.
func SampleInterests(rnd Randomizer, interests []string, count int) []string {
	pool := make([]string, len(interests))
	copy(pool, interests)
	if count > len(pool) {
		count = len(pool)
	}
	if count <= 0 {
		return []string{}
	}
	for i := 0; i < count; i++ {
		j := i + rnd.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:count]
}
