package numeric

import "math"

// ClampProbability maps p into [0, 1]. NaN becomes 1 (no evidence).
// Underflowed values are kept as they are rather than raised as errors.
func ClampProbability(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 1
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// FloorPositive returns x, or floor when x is not above floor
func FloorPositive(x, floor float64) float64 {
	if x <= floor || math.IsNaN(x) {
		return floor
	}
	return x
}

// NegligibleVariance reports whether variance is zero up to rounding for
// data whose mean squared value is meanSquare
func NegligibleVariance(variance, meanSquare float64) bool {
	return variance <= RoundoffVariance*meanSquare
}

// AtLeast reports whether stat >= reference within ProbabilityTolerance
func AtLeast(stat, reference float64) bool {
	return stat >= reference-ProbabilityTolerance*math.Max(1, math.Abs(reference))
}

// LogAtMost reports whether exp(logP) <= exp(logReference) within a relative
// ProbabilityTolerance, comparing in log space
func LogAtMost(logP, logReference float64) bool {
	return logP <= logReference+math.Log1p(ProbabilityTolerance)
}
