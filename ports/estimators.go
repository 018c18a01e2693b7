package ports

import (
	"gonum.org/v1/gonum/mat"

	"gostamp/domain/stats"
)

// Estimator is the registration contract shared by every method family
type Estimator interface {
	Name() string
	Descriptor() stats.Descriptor
}

// TwoGroupTest compares one feature's proportion between two groups
type TwoGroupTest interface {
	Estimator
	HypothesisTest(obs stats.Observation) (stats.TestResult, error)
}

// ConfidenceInterval estimates an interval around a two-group effect
type ConfidenceInterval interface {
	Estimator
	ConfidenceInterval(obs stats.Observation, coverage float64) (stats.CIResult, error)
}

// EffectSizeFilter screens features by practical magnitude
type EffectSizeFilter interface {
	Estimator
	EffectSize(obs stats.Observation) (stats.EffectSize, error)
	Passes(obs stats.Observation, threshold float64) (bool, error)
}

// MultipleComparison adjusts a position-ordered vector of p-values
type MultipleComparison interface {
	Estimator
	Correct(pValues []float64, alpha float64) ([]stats.Correction, error)
}

// MultiGroupTest compares one feature across k >= 2 groups of per-sample values
type MultiGroupTest interface {
	Estimator
	Test(groups [][]float64) (stats.MultiGroupResult, error)
}

// PostHocTest localizes which group pairs differ after a multi-group test
type PostHocTest interface {
	Estimator
	PostHoc(groups [][]float64, alpha float64) (stats.PostHocResult, error)
}

// Ordination projects samples into a reduced space
type Ordination interface {
	Ordinate(data *mat.Dense) (stats.PCAResult, error)
}
