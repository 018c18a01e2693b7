// Package correction adjusts a vector of p-values for multiple comparisons.
// Every method preserves length and position: output i belongs to input i.
package correction

import (
	"fmt"
	"math"
	"sort"

	"gostamp/domain/core"
	"gostamp/domain/stats"
)

// DefaultLambda is Storey's default tuning parameter for estimating pi0
const DefaultLambda = 0.5

type adjustFunc func(p []float64) []float64

// Method is a multiple-comparison correction. A position is rejected when
// its adjusted p-value is at most alpha.
type Method struct {
	name        string
	description string
	prefs       []stats.PreferenceSpec
	adjust      adjustFunc
}

// NewBonferroni creates the Bonferroni correction min(1, n*p)
func NewBonferroni() *Method {
	return &Method{
		name:        "bonferroni",
		description: "Bonferroni family-wise error rate control",
		adjust: func(p []float64) []float64 {
			n := float64(len(p))
			out := make([]float64, len(p))
			for i, v := range p {
				out[i] = math.Min(1, v*n)
			}
			return out
		},
	}
}

// NewSidak creates the Sidak correction 1 - (1-p)^n
func NewSidak() *Method {
	return &Method{
		name:        "sidak",
		description: "Sidak family-wise error rate control for independent tests",
		adjust: func(p []float64) []float64 {
			n := float64(len(p))
			out := make([]float64, len(p))
			for i, v := range p {
				out[i] = clamp(-math.Expm1(n * math.Log1p(-v)))
			}
			return out
		},
	}
}

// NewHolmBonferroni creates Holm's step-down procedure
func NewHolmBonferroni() *Method {
	return &Method{
		name:        "holm_bonferroni",
		description: "Holm-Bonferroni step-down family-wise error rate control",
		adjust:      holm,
	}
}

// NewBenjaminiHochberg creates the Benjamini-Hochberg step-up procedure
func NewBenjaminiHochberg() *Method {
	return &Method{
		name:        "benjamini_hochberg",
		description: "Benjamini-Hochberg false discovery rate control",
		adjust:      benjaminiHochberg,
	}
}

// StoreyConfig holds the pi0 tuning parameter
type StoreyConfig struct {
	Lambda float64
}

// DefaultStoreyConfig returns lambda = 0.5
func DefaultStoreyConfig() StoreyConfig {
	return StoreyConfig{Lambda: DefaultLambda}
}

// NewStorey creates Storey's q-value procedure
func NewStorey(config StoreyConfig) (*Method, error) {
	lambda := config.Lambda
	if math.IsNaN(lambda) || lambda <= 0 || lambda >= 1 {
		return nil, core.NewInvalidInputError("Lambda", fmt.Sprintf("must be in (0, 1), got %g", lambda))
	}
	return &Method{
		name:        "storey",
		description: "Storey q-values: Benjamini-Hochberg scaled by the estimated null proportion",
		prefs: []stats.PreferenceSpec{
			{Key: "Lambda", Default: DefaultLambda, Effect: "p-value threshold above which tests are counted as null"},
		},
		adjust: func(p []float64) []float64 {
			pi0 := estimatePi0(p, lambda)
			out := benjaminiHochberg(p)
			for i := range out {
				out[i] = clamp(out[i] * pi0)
			}
			return out
		},
	}, nil
}

// NewNone creates the identity correction
func NewNone() *Method {
	return &Method{
		name:        "none",
		description: "No correction; adjusted p-values equal the raw ones",
		adjust: func(p []float64) []float64 {
			return append([]float64(nil), p...)
		},
	}
}

// Name returns the registry name
func (m *Method) Name() string {
	return m.name
}

// Descriptor returns the registration metadata
func (m *Method) Descriptor() stats.Descriptor {
	return stats.Descriptor{
		Name:        m.name,
		Family:      stats.FamilyCorrection,
		Description: m.description,
		Preferences: m.prefs,
	}
}

// Correct adjusts pValues and flags rejections at alpha
func (m *Method) Correct(pValues []float64, alpha float64) ([]stats.Correction, error) {
	if math.IsNaN(alpha) || alpha <= 0 || alpha >= 1 {
		return nil, core.NewInvalidInputError("alpha", fmt.Sprintf("must be in (0, 1), got %g", alpha))
	}
	for i, p := range pValues {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, core.NewInvalidInputError("p_values", fmt.Sprintf("position %d is %g, outside [0, 1]", i, p))
		}
	}
	if len(pValues) == 0 {
		return []stats.Correction{}, nil
	}

	adjusted := m.adjust(pValues)
	out := make([]stats.Correction, len(pValues))
	for i, p := range adjusted {
		out[i] = stats.Correction{Reject: p <= alpha, AdjustedP: p}
	}
	return out, nil
}

// ascending returns positions ordered by p-value, ties by position
func ascending(p []float64) []int {
	order := make([]int, len(p))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return p[order[a]] < p[order[b]] })
	return order
}

// holm returns the running maximum of (n - rank) * p over ascending ranks
func holm(p []float64) []float64 {
	n := len(p)
	out := make([]float64, n)
	running := 0.0
	for rank, idx := range ascending(p) {
		running = math.Max(running, math.Min(1, float64(n-rank)*p[idx]))
		out[idx] = running
	}
	return out
}

// benjaminiHochberg returns the running minimum of n*p/rank taken from the top
func benjaminiHochberg(p []float64) []float64 {
	n := len(p)
	order := ascending(p)
	out := make([]float64, n)
	running := 1.0
	for rank := n - 1; rank >= 0; rank-- {
		idx := order[rank]
		running = math.Min(running, float64(n)*p[idx]/float64(rank+1))
		out[idx] = running
	}
	return out
}

// estimatePi0 returns max(#{p > lambda}, 1) / (n(1 - lambda)) capped at 1
func estimatePi0(p []float64, lambda float64) float64 {
	above := 0
	for _, v := range p {
		if v > lambda {
			above++
		}
	}
	if above == 0 {
		above = 1
	}
	return math.Min(1, float64(above)/(float64(len(p))*(1-lambda)))
}

func clamp(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}
