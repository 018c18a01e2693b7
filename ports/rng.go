package ports

import (
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic resampling
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(name string, seed int64) *rand.Rand

	// Stream creates a deterministic RNG stream for one method/feature pair so
	// concurrent per-feature evaluation never shares generator state and
	// replays identically for the same seed
	Stream(method, featureKey string, baseSeed int64) *rand.Rand
}
