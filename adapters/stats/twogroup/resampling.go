package twogroup

import (
	"fmt"
	"math"
	"math/rand"

	"gostamp/domain/core"
	"gostamp/domain/stats"
	"gostamp/internal/numeric"
	"gostamp/internal/rng"
	"gostamp/ports"
)

const (
	// DefaultReplicates is the default number of resampling replicates
	DefaultReplicates = 1000
	// MaxReplicates caps resampling effort per feature
	MaxReplicates = 1000000
)

// ResamplingConfig configures permutation and bootstrap tests
type ResamplingConfig struct {
	Replicates int
	Seed       int64
}

// DefaultResamplingConfig returns the default replicate count with seed 0
func DefaultResamplingConfig() ResamplingConfig {
	return ResamplingConfig{Replicates: DefaultReplicates}
}

// Validate checks the replicate bounds
func (c ResamplingConfig) Validate() error {
	if c.Replicates < 1 || c.Replicates > MaxReplicates {
		return core.NewInvalidInputError("Replicates", fmt.Sprintf("must be in [1, %d], got %d", MaxReplicates, c.Replicates))
	}
	return nil
}

func resamplingPreferences() []stats.PreferenceSpec {
	return []stats.PreferenceSpec{
		{Key: "Replicates", Default: DefaultReplicates, Effect: "number of resampling replicates"},
		{Key: "Seed", Default: 0, Effect: "base seed of the per-feature random stream"},
	}
}

// Permutation reshuffles the pooled binary outcomes between the two groups
type Permutation struct {
	config ResamplingConfig
	rng    ports.RNGPort
}

// NewPermutation creates a permutation test. A nil rngPort uses seeded streams.
func NewPermutation(config ResamplingConfig, rngPort ports.RNGPort) (*Permutation, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if rngPort == nil {
		rngPort = rng.NewStreams()
	}
	return &Permutation{config: config, rng: rngPort}, nil
}

// Name returns the registry name
func (p *Permutation) Name() string {
	return "permutation"
}

// Descriptor returns the registration metadata
func (p *Permutation) Descriptor() stats.Descriptor {
	return descriptor(p.Name(), "Permutation test of the difference between proportions", resamplingPreferences()...)
}

// HypothesisTest counts replicates whose difference is at least as extreme as the observed one
func (p *Permutation) HypothesisTest(obs stats.Observation) (stats.TestResult, error) {
	if err := obs.Validate(); err != nil {
		return stats.TestResult{}, err
	}
	r := p.rng.Stream(p.Name(), observationKey(obs), p.config.Seed)

	successes := obs.CountA + obs.CountB
	population := obs.TotalA + obs.TotalB
	observed := obs.ProportionA() - obs.ProportionB()

	// Draw the smaller group; the other receives the remaining successes.
	drawA := obs.TotalA <= obs.TotalB
	draws := obs.TotalB
	if drawA {
		draws = obs.TotalA
	}

	extremeTwo, extremeOne := 0, 0
	for i := 0; i < p.config.Replicates; i++ {
		x := drawWithoutReplacement(r, successes, population, draws)
		a, b := successes-x, x
		if drawA {
			a, b = x, successes-x
		}
		diff := float64(a)/float64(obs.TotalA) - float64(b)/float64(obs.TotalB)

		if numeric.AtLeast(math.Abs(diff), math.Abs(observed)) {
			extremeTwo++
		}
		signed, reference := diff, observed
		if observed < 0 {
			signed, reference = -diff, -observed
		}
		if numeric.AtLeast(signed, reference) {
			extremeOne++
		}
	}

	reps := float64(p.config.Replicates)
	return finish(stats.NewTestResult(float64(extremeOne)/reps, float64(extremeTwo)/reps)), nil
}

// drawWithoutReplacement counts successes in draws taken from an urn
func drawWithoutReplacement(r *rand.Rand, successes, population, draws int) int {
	x := 0
	remaining := population
	left := successes
	for i := 0; i < draws && left > 0; i++ {
		if r.Intn(remaining) < left {
			x++
			left--
		}
		remaining--
	}
	return x
}

// Bootstrap resamples each group from its own Bernoulli proportion
type Bootstrap struct {
	config ResamplingConfig
	rng    ports.RNGPort
}

// NewBootstrap creates a bootstrap test. A nil rngPort uses seeded streams.
func NewBootstrap(config ResamplingConfig, rngPort ports.RNGPort) (*Bootstrap, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if rngPort == nil {
		rngPort = rng.NewStreams()
	}
	return &Bootstrap{config: config, rng: rngPort}, nil
}

// Name returns the registry name
func (b *Bootstrap) Name() string {
	return "bootstrap"
}

// Descriptor returns the registration metadata
func (b *Bootstrap) Descriptor() stats.Descriptor {
	return descriptor(b.Name(), "Bootstrap test of the difference between proportions about zero", resamplingPreferences()...)
}

// HypothesisTest reports twice the smaller bootstrap tail about zero
func (b *Bootstrap) HypothesisTest(obs stats.Observation) (stats.TestResult, error) {
	if err := obs.Validate(); err != nil {
		return stats.TestResult{}, err
	}
	r := b.rng.Stream(b.Name(), observationKey(obs), b.config.Seed)
	pA, pB := obs.ProportionA(), obs.ProportionB()

	below, above := 0, 0
	for i := 0; i < b.config.Replicates; i++ {
		a := bernoulliCount(r, obs.TotalA, pA)
		c := bernoulliCount(r, obs.TotalB, pB)
		diff := float64(a)/float64(obs.TotalA) - float64(c)/float64(obs.TotalB)
		if diff <= 0 {
			below++
		}
		if diff >= 0 {
			above++
		}
	}

	reps := float64(b.config.Replicates)
	tail := math.Min(float64(below), float64(above)) / reps
	return finish(stats.NewTwoSidedResult(math.Min(1, 2*tail))), nil
}

// bernoulliCount draws n Bernoulli(p) trials and counts successes
func bernoulliCount(r *rand.Rand, n int, p float64) int {
	switch {
	case p <= 0:
		return 0
	case p >= 1:
		return n
	}
	count := 0
	for i := 0; i < n; i++ {
		if r.Float64() < p {
			count++
		}
	}
	return count
}
