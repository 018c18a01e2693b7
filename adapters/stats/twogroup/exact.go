package twogroup

import (
	"math"

	"gostamp/domain/stats"
	"gostamp/internal/numeric"
)

// conditionalTails enumerates the hypergeometric distribution of CountA given
// both margins and returns the left tail, right tail and the two-sided sum of
// tables no more probable than the observed one.
func conditionalTails(obs stats.Observation) (left, right, twoSided float64) {
	successes := obs.CountA + obs.CountB
	population := obs.TotalA + obs.TotalB
	draws := obs.TotalA

	lo, hi := numeric.HypergeometricSupport(successes, population, draws)
	logObs := numeric.LogHypergeometricPMF(obs.CountA, successes, population, draws)

	var leftLogs, rightLogs, twoLogs []float64
	for x := lo; x <= hi; x++ {
		lp := numeric.LogHypergeometricPMF(x, successes, population, draws)
		if x <= obs.CountA {
			leftLogs = append(leftLogs, lp)
		}
		if x >= obs.CountA {
			rightLogs = append(rightLogs, lp)
		}
		if numeric.LogAtMost(lp, logObs) {
			twoLogs = append(twoLogs, lp)
		}
	}
	return math.Exp(numeric.LogSumExp(leftLogs)),
		math.Exp(numeric.LogSumExp(rightLogs)),
		math.Exp(numeric.LogSumExp(twoLogs))
}

// Fishers is Fisher's exact test conditioned on both margins
type Fishers struct{}

// NewFishers creates a Fisher's exact test
func NewFishers() *Fishers {
	return &Fishers{}
}

// Name returns the registry name
func (f *Fishers) Name() string {
	return "fishers"
}

// Descriptor returns the registration metadata
func (f *Fishers) Descriptor() stats.Descriptor {
	return descriptor(f.Name(), "Fisher's exact test; two-sided sums every table no more probable than the observed one")
}

// HypothesisTest runs the exact conditional test
func (f *Fishers) HypothesisTest(obs stats.Observation) (stats.TestResult, error) {
	if err := obs.Validate(); err != nil {
		return stats.TestResult{}, err
	}
	left, right, two := conditionalTails(obs)
	return finish(stats.NewTestResult(directionalTail(obs, left, right), two)), nil
}

// Hypergeometric reports the directional hypergeometric tail and doubles it
// for the two-sided p-value
type Hypergeometric struct{}

// NewHypergeometric creates a hypergeometric tail test
func NewHypergeometric() *Hypergeometric {
	return &Hypergeometric{}
}

// Name returns the registry name
func (h *Hypergeometric) Name() string {
	return "hypergeometric"
}

// Descriptor returns the registration metadata
func (h *Hypergeometric) Descriptor() stats.Descriptor {
	return descriptor(h.Name(), "Hypergeometric tail in the observed direction; two-sided is twice the tail")
}

// HypothesisTest runs the tail test
func (h *Hypergeometric) HypothesisTest(obs stats.Observation) (stats.TestResult, error) {
	if err := obs.Validate(); err != nil {
		return stats.TestResult{}, err
	}
	left, right, _ := conditionalTails(obs)
	tail := directionalTail(obs, left, right)
	return finish(stats.NewTestResult(tail, math.Min(1, 2*tail))), nil
}
