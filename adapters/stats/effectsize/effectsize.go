// Package effectsize screens features by the practical magnitude of the
// difference between two groups.
package effectsize

import (
	"fmt"
	"math"

	"gostamp/domain/core"
	"gostamp/domain/stats"
)

// DefaultPseudocount replaces zero denominators
const DefaultPseudocount = 0.5

// DifferenceOfProportions returns pA - pB
func DifferenceOfProportions(obs stats.Observation) (stats.EffectSize, error) {
	if err := obs.Validate(); err != nil {
		return stats.EffectSize{}, err
	}
	return stats.EffectSize{Value: obs.ProportionA() - obs.ProportionB()}, nil
}

// RatioOfProportions returns pA / pB, guarding a zero count in group B
func RatioOfProportions(obs stats.Observation, pseudocount float64) (stats.EffectSize, error) {
	if err := obs.Validate(); err != nil {
		return stats.EffectSize{}, err
	}
	if obs.CountB == 0 {
		a := (float64(obs.CountA) + pseudocount) / (float64(obs.TotalA) + pseudocount)
		b := pseudocount / (float64(obs.TotalB) + pseudocount)
		return stats.EffectSize{Value: a / b, Note: pseudocountNote(pseudocount)}, nil
	}
	return stats.EffectSize{Value: obs.ProportionA() / obs.ProportionB()}, nil
}

// OddsRatio returns (a*d)/(b*c), guarding zero cells in the denominator
func OddsRatio(obs stats.Observation, pseudocount float64) (stats.EffectSize, error) {
	if err := obs.Validate(); err != nil {
		return stats.EffectSize{}, err
	}
	a := float64(obs.CountA)
	b := float64(obs.TotalA - obs.CountA)
	c := float64(obs.CountB)
	d := float64(obs.TotalB - obs.CountB)
	if b == 0 || c == 0 {
		return stats.EffectSize{
			Value: (a + pseudocount) * (d + pseudocount) / ((b + pseudocount) * (c + pseudocount)),
			Note:  pseudocountNote(pseudocount),
		}, nil
	}
	return stats.EffectSize{Value: a * d / (b * c)}, nil
}

func pseudocountNote(pseudocount float64) string {
	return fmt.Sprintf("zero denominator; pseudocount of %g applied", pseudocount)
}

type measureFunc func(obs stats.Observation, pseudocount float64) (stats.EffectSize, error)

// Config holds the zero-denominator pseudocount
type Config struct {
	Pseudocount float64
}

// DefaultConfig returns the default pseudocount
func DefaultConfig() Config {
	return Config{Pseudocount: DefaultPseudocount}
}

// Filter is a stateless effect-size screen. Passes compares the absolute
// difference for additive measures and the larger of the ratio and its
// reciprocal for multiplicative ones, so direction never matters.
type Filter struct {
	name           string
	description    string
	multiplicative bool
	measure        measureFunc
	config         Config
}

// NewDifferenceFilter screens on the difference between proportions
func NewDifferenceFilter() *Filter {
	return &Filter{
		name:        "difference_of_proportions",
		description: "Difference between proportions",
		measure: func(obs stats.Observation, _ float64) (stats.EffectSize, error) {
			return DifferenceOfProportions(obs)
		},
	}
}

// NewRatioFilter screens on the ratio of proportions
func NewRatioFilter(config Config) (*Filter, error) {
	if err := validate(config); err != nil {
		return nil, err
	}
	return &Filter{
		name:           "ratio_of_proportions",
		description:    "Ratio of proportions",
		multiplicative: true,
		measure:        RatioOfProportions,
		config:         config,
	}, nil
}

// NewOddsRatioFilter screens on the odds ratio
func NewOddsRatioFilter(config Config) (*Filter, error) {
	if err := validate(config); err != nil {
		return nil, err
	}
	return &Filter{
		name:           "odds_ratio",
		description:    "Odds ratio",
		multiplicative: true,
		measure:        OddsRatio,
		config:         config,
	}, nil
}

func validate(config Config) error {
	if math.IsNaN(config.Pseudocount) || config.Pseudocount <= 0 {
		return core.NewInvalidInputError("Pseudocount", fmt.Sprintf("must be positive, got %g", config.Pseudocount))
	}
	return nil
}

// Name returns the registry name
func (f *Filter) Name() string {
	return f.name
}

// Descriptor returns the registration metadata
func (f *Filter) Descriptor() stats.Descriptor {
	d := stats.Descriptor{
		Name:        f.name,
		Family:      stats.FamilyEffectSize,
		Description: f.description,
	}
	if f.multiplicative {
		d.Preferences = []stats.PreferenceSpec{
			{Key: "Pseudocount", Default: DefaultPseudocount, Effect: "value substituted for zero denominators"},
		}
	}
	return d
}

// EffectSize computes the measure for one observation
func (f *Filter) EffectSize(obs stats.Observation) (stats.EffectSize, error) {
	return f.measure(obs, f.config.Pseudocount)
}

// Passes reports whether the effect magnitude reaches threshold
func (f *Filter) Passes(obs stats.Observation, threshold float64) (bool, error) {
	if math.IsNaN(threshold) || threshold < 0 {
		return false, core.NewInvalidInputError("threshold", fmt.Sprintf("must be non-negative, got %g", threshold))
	}
	effect, err := f.EffectSize(obs)
	if err != nil {
		return false, err
	}
	return Magnitude(effect.Value, f.multiplicative) >= threshold, nil
}

// Magnitude folds an effect so that opposite directions compare equally
func Magnitude(value float64, multiplicative bool) float64 {
	if !multiplicative {
		return math.Abs(value)
	}
	if value <= 0 {
		return math.Inf(1)
	}
	return math.Max(value, 1/value)
}
