package rng

import (
	"math/rand"
)

// Streams implements ports.RNGPort with djb2-mixed seeds so every
// method/feature pair gets its own reproducible generator
type Streams struct{}

// NewStreams creates a stream factory
func NewStreams() *Streams {
	return &Streams{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (s *Streams) SeededStream(name string, seed int64) *rand.Rand {
	if name != "" {
		seed = int64(hashString(name)) + seed
	}
	return rand.New(rand.NewSource(seed))
}

// Stream creates a deterministic RNG stream for a specific method/feature pair
func (s *Streams) Stream(method, featureKey string, baseSeed int64) *rand.Rand {
	seed := baseSeed
	if method != "" {
		seed = int64(hashString(method)) + seed
	}
	if featureKey != "" {
		seed = int64(hashString(featureKey))*31 + seed
	}
	return rand.New(rand.NewSource(seed))
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2
	}
	return hash
}
