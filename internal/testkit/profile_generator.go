package testkit

import (
	"fmt"
	"math/rand"

	"gostamp/domain/comparison"
	"gostamp/domain/core"
	"gostamp/domain/stats"
	"gostamp/internal/rng"
)

// ProfileGeneratorConfig configures synthetic count profiles
type ProfileGeneratorConfig struct {
	FeatureCount   int     `json:"feature_count"`
	ReadsA         int     `json:"reads_a"`
	ReadsB         int     `json:"reads_b"`
	BaseProportion float64 `json:"base_proportion"`
	// The first DifferentialCount features get FoldChange times the base proportion in group A
	DifferentialCount int     `json:"differential_count"`
	FoldChange        float64 `json:"fold_change"`
	Seed              int64   `json:"seed"`
}

// DefaultProfileConfig returns a small profile with a few strongly enriched features
func DefaultProfileConfig() ProfileGeneratorConfig {
	return ProfileGeneratorConfig{
		FeatureCount:      50,
		ReadsA:            2000,
		ReadsB:            2000,
		BaseProportion:    0.02,
		DifferentialCount: 5,
		FoldChange:        4,
		Seed:              42,
	}
}

// ProfileGenerator draws binomial feature counts for two groups
type ProfileGenerator struct {
	config ProfileGeneratorConfig
	random *rand.Rand
}

// NewProfileGenerator creates a generator
func NewProfileGenerator(config ProfileGeneratorConfig) *ProfileGenerator {
	return &ProfileGenerator{
		config: config,
		random: rng.NewStreams().SeededStream("profile", config.Seed),
	}
}

// FeatureKey names the i-th synthetic feature
func FeatureKey(i int) core.FeatureKey {
	return core.FeatureKey(fmt.Sprintf("feature_%03d", i))
}

// TwoGroupFeatures generates one observation per feature
func (g *ProfileGenerator) TwoGroupFeatures() []comparison.Feature {
	features := make([]comparison.Feature, g.config.FeatureCount)
	for i := range features {
		pB := g.config.BaseProportion
		pA := pB
		if i < g.config.DifferentialCount {
			pA = min(1, pB*g.config.FoldChange)
		}
		features[i] = comparison.Feature{
			Key: FeatureKey(i),
			Observation: stats.Observation{
				CountA: g.binomial(g.config.ReadsA, pA),
				CountB: g.binomial(g.config.ReadsB, pB),
				TotalA: g.config.ReadsA,
				TotalB: g.config.ReadsB,
			},
		}
	}
	return features
}

// GroupedFeatures generates per-sample relative proportions for k groups of
// the given size; the first DifferentialCount features shift group 0
func (g *ProfileGenerator) GroupedFeatures(groups, samplesPerGroup int) []comparison.GroupedFeature {
	features := make([]comparison.GroupedFeature, g.config.FeatureCount)
	for i := range features {
		values := make([][]float64, groups)
		for k := range values {
			p := g.config.BaseProportion
			if k == 0 && i < g.config.DifferentialCount {
				p = min(1, p*g.config.FoldChange)
			}
			values[k] = make([]float64, samplesPerGroup)
			for s := range values[k] {
				values[k][s] = float64(g.binomial(g.config.ReadsA, p)) / float64(g.config.ReadsA)
			}
		}
		features[i] = comparison.GroupedFeature{Key: FeatureKey(i), Groups: values}
	}
	return features
}

func (g *ProfileGenerator) binomial(n int, p float64) int {
	count := 0
	for i := 0; i < n; i++ {
		if g.random.Float64() < p {
			count++
		}
	}
	return count
}
