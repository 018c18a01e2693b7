package stats

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"gostamp/domain/core"
)

// ============================================================================
// INPUTS
// ============================================================================

// Observation is the per-feature 2x2 input to every two-group estimator.
// INVARIANTS:
// - 0 <= CountA <= TotalA, 0 <= CountB <= TotalB
// - TotalA > 0, TotalB > 0
type Observation struct {
	CountA int `json:"count_a"`
	CountB int `json:"count_b"`
	TotalA int `json:"total_a"`
	TotalB int `json:"total_b"`
}

// NewObservation builds and validates an observation
func NewObservation(countA, countB, totalA, totalB int) (Observation, error) {
	obs := Observation{CountA: countA, CountB: countB, TotalA: totalA, TotalB: totalB}
	if err := obs.Validate(); err != nil {
		return Observation{}, err
	}
	return obs, nil
}

// Validate checks the count/total invariants
func (o Observation) Validate() error {
	if o.TotalA <= 0 {
		return core.NewInvalidInputError("total_a", fmt.Sprintf("must be positive, got %d", o.TotalA))
	}
	if o.TotalB <= 0 {
		return core.NewInvalidInputError("total_b", fmt.Sprintf("must be positive, got %d", o.TotalB))
	}
	if o.CountA < 0 || o.CountA > o.TotalA {
		return core.NewInvalidInputError("count_a", fmt.Sprintf("%d outside [0, %d]", o.CountA, o.TotalA))
	}
	if o.CountB < 0 || o.CountB > o.TotalB {
		return core.NewInvalidInputError("count_b", fmt.Sprintf("%d outside [0, %d]", o.CountB, o.TotalB))
	}
	return nil
}

// ProportionA returns CountA/TotalA
func (o Observation) ProportionA() float64 {
	return float64(o.CountA) / float64(o.TotalA)
}

// ProportionB returns CountB/TotalB
func (o Observation) ProportionB() float64 {
	return float64(o.CountB) / float64(o.TotalB)
}

// Table returns the 2x2 contingency table as [[a, b], [c, d]] where the first
// row holds feature counts and the second row holds the remainder of each group.
func (o Observation) Table() [2][2]float64 {
	return [2][2]float64{
		{float64(o.CountA), float64(o.CountB)},
		{float64(o.TotalA - o.CountA), float64(o.TotalB - o.CountB)},
	}
}

// Reflect returns the point-reflected table (TotalA-CountA, TotalB-CountB)
func (o Observation) Reflect() Observation {
	return Observation{
		CountA: o.TotalA - o.CountA,
		CountB: o.TotalB - o.CountB,
		TotalA: o.TotalA,
		TotalB: o.TotalB,
	}
}

// ============================================================================
// RESULTS
// ============================================================================

// TestResult is computed fresh per call and never cached.
// A nil POneSided is the explicit "not applicable" sentinel.
type TestResult struct {
	POneSided *float64 `json:"p_one_sided,omitempty"`
	PTwoSided float64  `json:"p_two_sided"`
	Note      string   `json:"note,omitempty"`
}

// OneSided returns the one-sided p-value and whether the test defines one
func (r TestResult) OneSided() (float64, bool) {
	if r.POneSided == nil {
		return 0, false
	}
	return *r.POneSided, true
}

// NewTestResult builds a result carrying both p-values
func NewTestResult(oneSided, twoSided float64) TestResult {
	p := oneSided
	return TestResult{POneSided: &p, PTwoSided: twoSided}
}

// NewTwoSidedResult builds a result for tests without a one-sided p-value
func NewTwoSidedResult(twoSided float64) TestResult {
	return TestResult{PTwoSided: twoSided}
}

// CIResult is the output of a confidence-interval method
type CIResult struct {
	LowerBound  float64 `json:"lower_bound"`
	UpperBound  float64 `json:"upper_bound"`
	PointEffect float64 `json:"point_effect"`
	Note        string  `json:"note,omitempty"`
}

// EffectSize is the output of an effect-size filter
type EffectSize struct {
	Value float64 `json:"value"`
	Note  string  `json:"note,omitempty"`
}

// Correction is one position of a multiple-comparison correction output
type Correction struct {
	Reject    bool    `json:"reject"`
	AdjustedP float64 `json:"adjusted_p"`
}

// ANOVAResult is the output of a one-way ANOVA
type ANOVAResult struct {
	F         float64 `json:"f"`
	DFBetween int     `json:"df_between"`
	DFWithin  int     `json:"df_within"`
	MSBetween float64 `json:"ms_between"`
	MSWithin  float64 `json:"ms_within"`
	PValue    float64 `json:"p_value"`
	Note      string  `json:"note,omitempty"`
}

// KruskalWallisResult is the output of the rank-based multi-group test
type KruskalWallisResult struct {
	H      float64 `json:"h"`
	DF     int     `json:"df"`
	PValue float64 `json:"p_value"`
	Note   string  `json:"note,omitempty"`
}

// MultiGroupResult is the family-independent view of a multi-group test
type MultiGroupResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	Note      string  `json:"note,omitempty"`
}

// PostHocPair is one unordered group comparison of a post-hoc test
type PostHocPair struct {
	GroupA  int     `json:"group_a"`
	GroupB  int     `json:"group_b"`
	Effect  float64 `json:"effect"`
	LowerCI float64 `json:"lower_ci"`
	UpperCI float64 `json:"upper_ci"`
	PValue  float64 `json:"p_value"`
	Reject  bool    `json:"reject"`
	Note    string  `json:"note,omitempty"`
}

// PostHocResult is the output of a post-hoc test across all group pairs
type PostHocResult struct {
	CriticalValue float64       `json:"critical_value"`
	PooledSD      float64       `json:"pooled_sd"`
	Pairs         []PostHocPair `json:"pairs"`
	Note          string        `json:"note,omitempty"`
}

// PCAResult holds an ordination of n samples.
// Positions is n x m and Loadings is k x m where m = min(n, k).
type PCAResult struct {
	Mean      []float64  `json:"mean"`
	Variances []float64  `json:"variances"`
	Positions *mat.Dense `json:"-"`
	Loadings  *mat.Dense `json:"-"`
	Note      string     `json:"note,omitempty"`
}

// ============================================================================
// REGISTRATION
// ============================================================================

// Family names a group of interchangeable estimators
type Family string

const (
	FamilyTwoGroupTest       Family = "two_group_test"
	FamilyConfidenceInterval Family = "confidence_interval"
	FamilyEffectSize         Family = "effect_size"
	FamilyCorrection         Family = "multiple_comparison"
	FamilyMultiGroupTest     Family = "multi_group_test"
	FamilyPostHoc            Family = "post_hoc"
)

// PreferenceSpec declares one recognized configuration key
type PreferenceSpec struct {
	Key     string  `json:"key"`
	Default float64 `json:"default"`
	Effect  string  `json:"effect"`
}

// Descriptor declares an estimator for external configuration surfaces
type Descriptor struct {
	Name        string           `json:"name"`
	Family      Family           `json:"family"`
	Description string           `json:"description"`
	Preferences []PreferenceSpec `json:"preferences,omitempty"`
}

// Preferences is the external key/value bag. It is converted to an explicit
// per-method config struct when an estimator is built.
type Preferences map[string]float64

// Get returns the value for key or def when absent
func (p Preferences) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// CheckKeys fails with ErrUnsupportedConfiguration for any key the descriptor does not declare
func (p Preferences) CheckKeys(d Descriptor) error {
	for key := range p {
		known := false
		for _, spec := range d.Preferences {
			if spec.Key == key {
				known = true
				break
			}
		}
		if !known {
			return core.NewUnsupportedPreferenceError(d.Name, key)
		}
	}
	return nil
}
