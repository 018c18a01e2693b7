package multigroup

import (
	"fmt"
	"math"

	"gostamp/domain/core"
	"gostamp/domain/stats"
	"gostamp/internal/numeric"
)

// Scheffe is Scheffe's simultaneous post-hoc test over every unordered group pair
type Scheffe struct{}

// NewScheffe creates the post-hoc test
func NewScheffe() *Scheffe {
	return &Scheffe{}
}

// Name returns the registry name
func (s *Scheffe) Name() string {
	return "scheffe"
}

// Descriptor returns the registration metadata
func (s *Scheffe) Descriptor() stats.Descriptor {
	return descriptor(s.Name(), stats.FamilyPostHoc, "Scheffe simultaneous pairwise comparisons of group means")
}

// PostHoc compares every pair i < j. The critical value is
// (k-1)*F_{1-alpha}(k-1, N-k) and each interval is d +/- sqrt(cv*MSW*(1/ni+1/nj)).
func (s *Scheffe) PostHoc(groups [][]float64, alpha float64) (stats.PostHocResult, error) {
	if math.IsNaN(alpha) || alpha <= 0 || alpha >= 1 {
		return stats.PostHocResult{}, core.NewInvalidInputError("alpha", fmt.Sprintf("must be in (0, 1), got %g", alpha))
	}
	d, err := summarize(groups)
	if err != nil {
		return stats.PostHocResult{}, err
	}

	dfB, dfW := d.dfBetween(), d.dfWithin()
	cv := float64(dfB) * numeric.FQuantile(1-alpha, dfB, dfW)

	result := stats.PostHocResult{
		CriticalValue: cv,
		PooledSD:      math.Sqrt(d.msWithin),
	}
	if d.floored {
		result.Note = noteVarianceFloor
	}

	for i := 0; i < d.k(); i++ {
		for j := i + 1; j < d.k(); j++ {
			gi, gj := d.groups[i], d.groups[j]
			diff := gi.mean - gj.mean
			scale := d.msWithin * (1/float64(gi.n) + 1/float64(gj.n))
			f := diff * diff / (float64(dfB) * scale)
			p := numeric.ClampProbability(numeric.FSurvival(f, dfB, dfW))
			half := math.Sqrt(cv * scale)

			pair := stats.PostHocPair{
				GroupA:  i,
				GroupB:  j,
				Effect:  diff,
				LowerCI: diff - half,
				UpperCI: diff + half,
				PValue:  p,
				Reject:  p <= alpha,
				Note:    result.Note,
			}
			result.Pairs = append(result.Pairs, pair)
		}
	}
	return result, nil
}
