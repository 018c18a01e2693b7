package twogroup

import (
	"math"

	"gostamp/domain/stats"
	"gostamp/internal/numeric"
)

// DiffBetweenProportions is the pooled two-proportion z-test
type DiffBetweenProportions struct{}

// NewDiffBetweenProportions creates the z-test
func NewDiffBetweenProportions() *DiffBetweenProportions {
	return &DiffBetweenProportions{}
}

// Name returns the registry name
func (d *DiffBetweenProportions) Name() string {
	return "diff_between_proportions"
}

// Descriptor returns the registration metadata
func (d *DiffBetweenProportions) Descriptor() stats.Descriptor {
	return descriptor(d.Name(), "Two-proportion z-test with pooled standard error")
}

// HypothesisTest computes the z statistic and its normal tails
func (d *DiffBetweenProportions) HypothesisTest(obs stats.Observation) (stats.TestResult, error) {
	if err := obs.Validate(); err != nil {
		return stats.TestResult{}, err
	}
	pooled := float64(obs.CountA+obs.CountB) / float64(obs.TotalA+obs.TotalB)
	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(obs.TotalA) + 1/float64(obs.TotalB)))
	if se <= 0 {
		return finish(stats.NewTestResult(1, 1), noteZeroPooledSE), nil
	}

	z := (obs.ProportionA() - obs.ProportionB()) / se
	one := numeric.NormalSurvival(math.Abs(z))
	return finish(stats.NewTestResult(one, math.Min(1, 2*one)), smallGroupNote(obs)), nil
}

// WhitesT is Welch's t-test applied to the per-read Bernoulli samples of each group
type WhitesT struct{}

// NewWhitesT creates White's t-test
func NewWhitesT() *WhitesT {
	return &WhitesT{}
}

// Name returns the registry name
func (w *WhitesT) Name() string {
	return "whites_t"
}

// Descriptor returns the registration metadata
func (w *WhitesT) Descriptor() stats.Descriptor {
	return descriptor(w.Name(), "Welch's t-test on per-read presence/absence samples")
}

// HypothesisTest computes Welch's t with Welch-Satterthwaite degrees of freedom
func (w *WhitesT) HypothesisTest(obs stats.Observation) (stats.TestResult, error) {
	if err := obs.Validate(); err != nil {
		return stats.TestResult{}, err
	}
	if obs.TotalA < 2 || obs.TotalB < 2 {
		return finish(stats.NewTestResult(1, 1), "each group needs at least two reads; no evidence against the null"), nil
	}

	pA, pB := obs.ProportionA(), obs.ProportionB()
	nA, nB := float64(obs.TotalA), float64(obs.TotalB)
	if pA == pB {
		return finish(stats.NewTestResult(1, 1)), nil
	}

	var note string
	vA := pA * (1 - pA) * nA / (nA - 1)
	vB := pB * (1 - pB) * nB / (nB - 1)
	// Welch's t needs only one positive variance
	if vA <= 0 && vB <= 0 {
		note = noteVarianceFloor
		vA = numeric.FloorPositive(vA, numeric.VarianceFloor)
		vB = numeric.FloorPositive(vB, numeric.VarianceFloor)
	}

	sA, sB := vA/nA, vB/nB
	se := math.Sqrt(sA + sB)
	t := (pA - pB) / se
	df := (sA + sB) * (sA + sB) / (sA*sA/(nA-1) + sB*sB/(nB-1))

	one := numeric.StudentsTSurvival(math.Abs(t), df)
	return finish(stats.NewTestResult(one, math.Min(1, 2*one)), note, smallGroupNote(obs)), nil
}
