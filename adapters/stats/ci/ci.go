// Package ci estimates confidence intervals around the difference, ratio or
// odds ratio of two proportions.
package ci

import (
	"fmt"
	"math"

	"gostamp/domain/core"
	"gostamp/domain/stats"
	"gostamp/internal/numeric"
)

// DefaultPseudocount is the Haldane-Anscombe correction added to every cell
const DefaultPseudocount = 0.5

func validate(obs stats.Observation, coverage float64) error {
	if err := obs.Validate(); err != nil {
		return err
	}
	if math.IsNaN(coverage) || coverage <= 0 || coverage >= 1 {
		return core.NewInvalidInputError("coverage", fmt.Sprintf("must be in (0, 1), got %g", coverage))
	}
	return nil
}

func validatePseudocount(value float64) error {
	if math.IsNaN(value) || value < 0 {
		return core.NewInvalidInputError("Pseudocount", fmt.Sprintf("must be non-negative, got %g", value))
	}
	return nil
}

func descriptor(name, description string, prefs ...stats.PreferenceSpec) stats.Descriptor {
	return stats.Descriptor{
		Name:        name,
		Family:      stats.FamilyConfidenceInterval,
		Description: description,
		Preferences: prefs,
	}
}

// wilson returns the Wilson score interval of successes/n
func wilson(successes, n int, z float64) (lower, upper float64) {
	p := float64(successes) / float64(n)
	nf := float64(n)
	den := 1 + z*z/nf
	center := p + z*z/(2*nf)
	rad := z * math.Sqrt((p*(1-p)+z*z/(4*nf))/nf)
	return (center - rad) / den, (center + rad) / den
}

// NewcombeWilson is Newcombe's hybrid score interval (method 10) for the
// difference between two proportions
type NewcombeWilson struct{}

// NewNewcombeWilson creates the interval estimator
func NewNewcombeWilson() *NewcombeWilson {
	return &NewcombeWilson{}
}

// Name returns the registry name
func (n *NewcombeWilson) Name() string {
	return "newcombe_wilson"
}

// Descriptor returns the registration metadata
func (n *NewcombeWilson) Descriptor() stats.Descriptor {
	return descriptor(n.Name(), "Newcombe-Wilson hybrid score interval for the difference between proportions")
}

// ConfidenceInterval combines the Wilson intervals of both groups
func (n *NewcombeWilson) ConfidenceInterval(obs stats.Observation, coverage float64) (stats.CIResult, error) {
	if err := validate(obs, coverage); err != nil {
		return stats.CIResult{}, err
	}
	z := numeric.TwoSidedZ(coverage)
	pA, pB := obs.ProportionA(), obs.ProportionB()
	lA, uA := wilson(obs.CountA, obs.TotalA, z)
	lB, uB := wilson(obs.CountB, obs.TotalB, z)

	diff := pA - pB
	return stats.CIResult{
		LowerBound:  diff - math.Sqrt((pA-lA)*(pA-lA)+(uB-pB)*(uB-pB)),
		UpperBound:  diff + math.Sqrt((uA-pA)*(uA-pA)+(pB-lB)*(pB-lB)),
		PointEffect: diff,
	}, nil
}

// Asymptotic is the Wald interval for the difference between proportions,
// optionally widened by a continuity correction
type Asymptotic struct {
	continuity bool
}

// NewAsymptotic creates the Wald interval
func NewAsymptotic() *Asymptotic {
	return &Asymptotic{}
}

// NewAsymptoticCC creates the Wald interval with continuity correction
func NewAsymptoticCC() *Asymptotic {
	return &Asymptotic{continuity: true}
}

// Name returns the registry name
func (a *Asymptotic) Name() string {
	if a.continuity {
		return "asymptotic_cc"
	}
	return "asymptotic"
}

// Descriptor returns the registration metadata
func (a *Asymptotic) Descriptor() stats.Descriptor {
	if a.continuity {
		return descriptor(a.Name(), "Wald interval for the difference between proportions with continuity correction")
	}
	return descriptor(a.Name(), "Wald interval for the difference between proportions")
}

// ConfidenceInterval returns diff +/- z*SE (+ 0.5(1/nA + 1/nB) with continuity correction)
func (a *Asymptotic) ConfidenceInterval(obs stats.Observation, coverage float64) (stats.CIResult, error) {
	if err := validate(obs, coverage); err != nil {
		return stats.CIResult{}, err
	}
	z := numeric.TwoSidedZ(coverage)
	pA, pB := obs.ProportionA(), obs.ProportionB()
	nA, nB := float64(obs.TotalA), float64(obs.TotalB)

	half := z * math.Sqrt(pA*(1-pA)/nA+pB*(1-pB)/nB)
	if a.continuity {
		half += 0.5 * (1/nA + 1/nB)
	}

	result := stats.CIResult{
		LowerBound:  pA - pB - half,
		UpperBound:  pA - pB + half,
		PointEffect: pA - pB,
	}
	if half == 0 {
		result.Note = "zero standard error; interval collapses to the point estimate"
	}
	return result, nil
}

// OddsRatioConfig holds the cell pseudocount. Zero requests the plain
// estimate with automatic Haldane correction when a cell is empty.
type OddsRatioConfig struct {
	Pseudocount float64
}

// OddsRatio is the Woolf log odds ratio interval
type OddsRatio struct {
	name   string
	config OddsRatioConfig
}

// NewOddsRatio creates the odds ratio interval with the given pseudocount
func NewOddsRatio(config OddsRatioConfig) (*OddsRatio, error) {
	if err := validatePseudocount(config.Pseudocount); err != nil {
		return nil, err
	}
	return &OddsRatio{name: "odds_ratio", config: config}, nil
}

// NewOddsRatioHaldane creates the odds ratio interval preset to Haldane's correction
func NewOddsRatioHaldane(config OddsRatioConfig) (*OddsRatio, error) {
	or, err := NewOddsRatio(config)
	if err != nil {
		return nil, err
	}
	or.name = "odds_ratio_haldane"
	return or, nil
}

// Name returns the registry name
func (o *OddsRatio) Name() string {
	return o.name
}

// Descriptor returns the registration metadata
func (o *OddsRatio) Descriptor() stats.Descriptor {
	def := 0.0
	if o.name == "odds_ratio_haldane" {
		def = DefaultPseudocount
	}
	return descriptor(o.name, "Woolf log odds ratio interval",
		stats.PreferenceSpec{Key: "Pseudocount", Default: def, Effect: "value added to every cell of the 2x2 table"})
}

// ConfidenceInterval returns exp(ln OR +/- z*SE)
func (o *OddsRatio) ConfidenceInterval(obs stats.Observation, coverage float64) (stats.CIResult, error) {
	if err := validate(obs, coverage); err != nil {
		return stats.CIResult{}, err
	}
	a := float64(obs.CountA)
	b := float64(obs.TotalA - obs.CountA)
	c := float64(obs.CountB)
	d := float64(obs.TotalB - obs.CountB)

	k := o.config.Pseudocount
	var note string
	if k == 0 && (a == 0 || b == 0 || c == 0 || d == 0) {
		k = DefaultPseudocount
		note = "zero cell; Haldane correction of 0.5 applied"
	}
	a, b, c, d = a+k, b+k, c+k, d+k

	logOR := math.Log(a*d) - math.Log(b*c)
	se := math.Sqrt(1/a + 1/b + 1/c + 1/d)
	z := numeric.TwoSidedZ(coverage)
	return stats.CIResult{
		LowerBound:  math.Exp(logOR - z*se),
		UpperBound:  math.Exp(logOR + z*se),
		PointEffect: math.Exp(logOR),
		Note:        note,
	}, nil
}

// RatioConfig holds the pseudocount added to counts and totals
type RatioConfig struct {
	Pseudocount float64
}

// DefaultRatioConfig returns the Haldane pseudocount
func DefaultRatioConfig() RatioConfig {
	return RatioConfig{Pseudocount: DefaultPseudocount}
}

// RatioOfProportions is the Katz log relative-risk interval
type RatioOfProportions struct {
	config RatioConfig
}

// NewRatioOfProportions creates the ratio interval
func NewRatioOfProportions(config RatioConfig) (*RatioOfProportions, error) {
	if err := validatePseudocount(config.Pseudocount); err != nil {
		return nil, err
	}
	return &RatioOfProportions{config: config}, nil
}

// Name returns the registry name
func (r *RatioOfProportions) Name() string {
	return "ratio_of_proportions"
}

// Descriptor returns the registration metadata
func (r *RatioOfProportions) Descriptor() stats.Descriptor {
	return descriptor(r.Name(), "Katz log interval for the ratio of proportions",
		stats.PreferenceSpec{Key: "Pseudocount", Default: DefaultPseudocount, Effect: "value added to counts and totals"})
}

// ConfidenceInterval returns exp(ln RR +/- z*SE)
func (r *RatioOfProportions) ConfidenceInterval(obs stats.Observation, coverage float64) (stats.CIResult, error) {
	if err := validate(obs, coverage); err != nil {
		return stats.CIResult{}, err
	}
	k := r.config.Pseudocount
	var note string
	if k == 0 && (obs.CountA == 0 || obs.CountB == 0) {
		k = DefaultPseudocount
		note = "zero count; pseudocount of 0.5 applied"
	}
	a, nA := float64(obs.CountA)+k, float64(obs.TotalA)+k
	c, nB := float64(obs.CountB)+k, float64(obs.TotalB)+k

	logRR := math.Log(a/nA) - math.Log(c/nB)
	se := math.Sqrt(math.Max(0, 1/a-1/nA+1/c-1/nB))
	z := numeric.TwoSidedZ(coverage)
	return stats.CIResult{
		LowerBound:  math.Exp(logRR - z*se),
		UpperBound:  math.Exp(logRR + z*se),
		PointEffect: math.Exp(logRR),
		Note:        note,
	}, nil
}
