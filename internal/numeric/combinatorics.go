package numeric

import (
	"math"
)

const (
	// ProbabilityTolerance is the relative slack used when deciding whether a
	// table is at least as extreme as the observed one.
	ProbabilityTolerance = 1e-7

	// VarianceFloor replaces a zero variance in degenerate designs.
	VarianceFloor = 1e-6

	// RoundoffVariance is the variance, relative to the mean squared value,
	// below which a computed variance is rounding noise around zero.
	RoundoffVariance = 1e-20
)

// LogFactorial returns ln(n!)
func LogFactorial(n int) float64 {
	if n < 2 {
		return 0
	}
	v, _ := math.Lgamma(float64(n) + 1)
	return v
}

// LogBinomial returns ln(C(n, k)), or -Inf when k is outside [0, n]
func LogBinomial(n, k int) float64 {
	if k < 0 || k > n || n < 0 {
		return math.Inf(-1)
	}
	if k == 0 || k == n {
		return 0
	}
	return LogFactorial(n) - LogFactorial(k) - LogFactorial(n-k)
}

// LogHypergeometricPMF returns ln P(X = x) where X counts successes in a draw
// of size draws from a population of size population holding successes successes.
func LogHypergeometricPMF(x, successes, population, draws int) float64 {
	return LogBinomial(successes, x) +
		LogBinomial(population-successes, draws-x) -
		LogBinomial(population, draws)
}

// HypergeometricSupport returns the inclusive range of x with non-zero mass
func HypergeometricSupport(successes, population, draws int) (lo, hi int) {
	lo = draws - (population - successes)
	if lo < 0 {
		lo = 0
	}
	hi = successes
	if draws < hi {
		hi = draws
	}
	return lo, hi
}

// LogSumExp returns ln(sum(exp(xs))) without overflow
func LogSumExp(xs []float64) float64 {
	maxV := math.Inf(-1)
	for _, x := range xs {
		if x > maxV {
			maxV = x
		}
	}
	if math.IsInf(maxV, -1) {
		return maxV
	}
	sum := 0.0
	for _, x := range xs {
		sum += math.Exp(x - maxV)
	}
	return maxV + math.Log(sum)
}
