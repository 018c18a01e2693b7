package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamIsDeterministic(t *testing.T) {
	s := NewStreams()
	a := s.Stream("permutation", "8/3/100/100", 42)
	b := s.Stream("permutation", "8/3/100/100", 42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Int63(), b.Int63())
	}
}

func TestStreamsDifferByKey(t *testing.T) {
	s := NewStreams()
	a := s.Stream("permutation", "feature-a", 42)
	b := s.Stream("permutation", "feature-b", 42)
	c := s.Stream("bootstrap", "feature-a", 42)

	same := 0
	for i := 0; i < 20; i++ {
		va, vb, vc := a.Int63(), b.Int63(), c.Int63()
		if va == vb || va == vc {
			same++
		}
	}
	assert.Less(t, same, 20)
}

func TestSeededStream(t *testing.T) {
	s := NewStreams()
	assert.Equal(t, s.SeededStream("x", 1).Int63(), s.SeededStream("x", 1).Int63())
	assert.NotEqual(t, s.SeededStream("x", 1).Int63(), s.SeededStream("y", 1).Int63())
}
