package numeric

import (
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"
)

// ChiSquareSurvival returns P(X >= x) for X ~ chi-square(df).
// df = 1 uses the complementary error function directly to keep precision in the tail.
func ChiSquareSurvival(x float64, df int) float64 {
	if df <= 0 {
		return 1.0
	}
	if x <= 0 {
		return 1.0
	}
	if df == 1 {
		return ClampProbability(math.Erfc(math.Sqrt(x / 2)))
	}
	return ClampProbability(mathext.GammaIncRegComp(float64(df)/2, x/2))
}

// FSurvival returns P(X >= f) for X ~ F(df1, df2)
func FSurvival(f float64, df1, df2 int) float64 {
	if df1 <= 0 || df2 <= 0 {
		return 1.0
	}
	if f <= 0 {
		return 1.0
	}
	d1, d2 := float64(df1), float64(df2)
	// I_{d2/(d2+d1 f)}(d2/2, d1/2) is the upper tail without 1 - CDF cancellation
	return ClampProbability(mathext.RegIncBeta(d2/2, d1/2, d2/(d2+d1*f)))
}

// FQuantile returns the p-quantile of F(df1, df2)
func FQuantile(p float64, df1, df2 int) float64 {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return math.Inf(1)
	}
	d1, d2 := float64(df1), float64(df2)
	q := mathext.InvRegIncBeta(d1/2, d2/2, p)
	if q >= 1 {
		return math.Inf(1)
	}
	return d2 * q / (d1 * (1 - q))
}

// NormalSurvival returns P(Z >= z) for a standard normal Z
func NormalSurvival(z float64) float64 {
	return ClampProbability(0.5 * math.Erfc(z/math.Sqrt2))
}

// NormalQuantile computes quantile function for standard normal (inverse CDF)
func NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// TwoSidedZ returns the two-sided critical value for the given coverage
func TwoSidedZ(coverage float64) float64 {
	return NormalQuantile(1 - (1-coverage)/2)
}

// StudentsTSurvival returns P(T >= t) for T ~ t(df). Non-integer df is allowed
// for Welch-Satterthwaite degrees of freedom.
func StudentsTSurvival(t, df float64) float64 {
	if df <= 0 || math.IsNaN(df) {
		return 1.0
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return ClampProbability(tDist.Survival(t))
}
