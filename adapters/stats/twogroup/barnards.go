package twogroup

import (
	"fmt"
	"math"

	"gostamp/domain/core"
	"gostamp/domain/stats"
	"gostamp/internal/numeric"
)

const (
	// DefaultBarnardSteps is the default number of nuisance grid points
	DefaultBarnardSteps = 100
	// MaxBarnardSteps caps the nuisance grid
	MaxBarnardSteps = 10000
)

// BarnardsConfig holds the nuisance-parameter grid resolution
type BarnardsConfig struct {
	Steps int
}

// DefaultBarnardsConfig returns the default grid
func DefaultBarnardsConfig() BarnardsConfig {
	return BarnardsConfig{Steps: DefaultBarnardSteps}
}

// Barnards is Barnard's unconditional exact test using the pooled Wald
// statistic. The nuisance proportion is maximised over pi = 0.5*i/Steps,
// i = 1..Steps. Tables with zero pooled variance are skipped and each
// extreme table contributes its point reflection, so the half grid covers
// both halves of the symmetric likelihood. This is an approximation of the
// full supremum over (0, 1).
type Barnards struct {
	config BarnardsConfig
}

// NewBarnards creates Barnard's test, validating the grid size
func NewBarnards(config BarnardsConfig) (*Barnards, error) {
	if config.Steps < 1 || config.Steps > MaxBarnardSteps {
		return nil, core.NewInvalidInputError("Steps", fmt.Sprintf("must be in [1, %d], got %d", MaxBarnardSteps, config.Steps))
	}
	return &Barnards{config: config}, nil
}

// Name returns the registry name
func (b *Barnards) Name() string {
	return "barnards"
}

// Descriptor returns the registration metadata
func (b *Barnards) Descriptor() stats.Descriptor {
	return descriptor(b.Name(), "Barnard's unconditional exact test with a pooled Wald statistic",
		stats.PreferenceSpec{Key: "Steps", Default: DefaultBarnardSteps, Effect: "nuisance parameter grid points"})
}

// HypothesisTest runs the unconditional test
func (b *Barnards) HypothesisTest(obs stats.Observation) (stats.TestResult, error) {
	if err := obs.Validate(); err != nil {
		return stats.TestResult{}, err
	}
	n1, n2 := obs.TotalA, obs.TotalB

	observed, ok := pooledWald(obs.CountA, obs.CountB, n1, n2)
	if !ok {
		return finish(stats.NewTwoSidedResult(1), noteDegenerateObs), nil
	}

	// Under the null the table likelihood factors as
	// C(n1,x)C(n2,y) * pi^s (1-pi)^(n-s) with s = x+y, so the extreme set is
	// collapsed to one log-weight per margin total.
	n := n1 + n2
	weights := newLogAccumulator(n + 1)
	include := func(x, y int) {
		weights.add(x+y, numeric.LogBinomial(n1, x)+numeric.LogBinomial(n2, y))
	}
	for x := 0; x <= n1; x++ {
		for y := 0; y <= n2; y++ {
			reflected := stats.Observation{CountA: x, CountB: y, TotalA: n1, TotalB: n2}.Reflect()
			rx, ry := reflected.CountA, reflected.CountB
			idx, ridx := x*(n2+1)+y, rx*(n2+1)+ry
			if idx > ridx {
				continue
			}
			stat, ok := pooledWald(x, y, n1, n2)
			if !ok || !numeric.AtLeast(stat, observed) {
				continue
			}
			include(x, y)
			if ridx != idx {
				include(rx, ry)
			}
		}
	}

	logWeight := weights.values()

	best := 0.0
	terms := make([]float64, 0, n+1)
	for i := 1; i <= b.config.Steps; i++ {
		pi := 0.5 * float64(i) / float64(b.config.Steps)
		lp, lq := math.Log(pi), math.Log1p(-pi)
		terms = terms[:0]
		for s, w := range logWeight {
			if math.IsInf(w, -1) {
				continue
			}
			terms = append(terms, w+float64(s)*lp+float64(n-s)*lq)
		}
		if p := math.Exp(numeric.LogSumExp(terms)); p > best {
			best = p
		}
	}
	return finish(stats.NewTwoSidedResult(best)), nil
}

// pooledWald returns |pA-pB| / sqrt(p(1-p)(1/n1+1/n2)) and false when the
// pooled variance is zero
func pooledWald(x, y, n1, n2 int) (float64, bool) {
	pooled := float64(x+y) / float64(n1+n2)
	variance := pooled * (1 - pooled) * (1/float64(n1) + 1/float64(n2))
	if variance <= 0 {
		return 0, false
	}
	diff := float64(x)/float64(n1) - float64(y)/float64(n2)
	return math.Abs(diff) / math.Sqrt(variance), true
}

// logAccumulator keeps a running log-sum-exp per slot
type logAccumulator struct {
	max []float64
	sum []float64
}

func newLogAccumulator(size int) *logAccumulator {
	acc := &logAccumulator{max: make([]float64, size), sum: make([]float64, size)}
	for i := range acc.max {
		acc.max[i] = math.Inf(-1)
	}
	return acc
}

func (a *logAccumulator) add(slot int, logValue float64) {
	switch {
	case math.IsInf(logValue, -1):
	case logValue > a.max[slot]:
		a.sum[slot] = a.sum[slot]*math.Exp(a.max[slot]-logValue) + 1
		a.max[slot] = logValue
	default:
		a.sum[slot] += math.Exp(logValue - a.max[slot])
	}
}

func (a *logAccumulator) values() []float64 {
	out := make([]float64, len(a.max))
	for i := range out {
		if a.sum[i] == 0 {
			out[i] = math.Inf(-1)
			continue
		}
		out[i] = a.max[i] + math.Log(a.sum[i])
	}
	return out
}
