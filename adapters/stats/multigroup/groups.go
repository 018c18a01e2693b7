// Package multigroup compares per-sample values of one feature across k >= 2
// groups and localizes differences with post-hoc pairwise comparisons.
package multigroup

import (
	"fmt"
	"math"

	descriptive "github.com/montanaflynn/stats"

	"gostamp/domain/core"
	"gostamp/domain/stats"
	"gostamp/internal/numeric"
)

const noteVarianceFloor = "zero within-group variance floored to 1e-6"

// groupSummary holds the descriptive statistics of one group
type groupSummary struct {
	n    int
	mean float64
	ss   float64 // sum of squared deviations from the group mean
}

// design is the summarized one-way layout shared by ANOVA and Scheffe
type design struct {
	groups    []groupSummary
	total     int
	grandMean float64
	msWithin  float64
	msBetween float64
	floored   bool
}

func (d design) k() int {
	return len(d.groups)
}

func (d design) dfBetween() int {
	return d.k() - 1
}

func (d design) dfWithin() int {
	return d.total - d.k()
}

func validateGroups(groups [][]float64) error {
	if len(groups) < 2 {
		return core.NewInvalidInputError("groups", fmt.Sprintf("need at least 2 groups, got %d", len(groups)))
	}
	for i, g := range groups {
		if len(g) == 0 {
			return core.NewInvalidInputError("groups", fmt.Sprintf("group %d is empty", i))
		}
		for _, v := range g {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return core.NewInvalidInputError("groups", fmt.Sprintf("group %d has a non-finite value", i))
			}
		}
	}
	return nil
}

// summarize computes group means and the between/within mean squares.
// A within-group mean square that is zero up to rounding is floored at
// numeric.VarianceFloor; any real variance is kept whatever its scale.
func summarize(groups [][]float64) (design, error) {
	if err := validateGroups(groups); err != nil {
		return design{}, err
	}

	d := design{groups: make([]groupSummary, len(groups))}
	var all []float64
	var sumSquares float64
	for i, g := range groups {
		mean, err := descriptive.Mean(g)
		if err != nil {
			return design{}, fmt.Errorf("group %d mean: %w", i, err)
		}
		variance, err := descriptive.PopulationVariance(g)
		if err != nil {
			return design{}, fmt.Errorf("group %d variance: %w", i, err)
		}
		d.groups[i] = groupSummary{n: len(g), mean: mean, ss: variance * float64(len(g))}
		d.total += len(g)
		all = append(all, g...)
		for _, v := range g {
			sumSquares += v * v
		}
	}
	if d.total <= d.k() {
		return design{}, core.NewInvalidInputError("groups", fmt.Sprintf("need more samples (%d) than groups (%d)", d.total, d.k()))
	}

	grand, err := descriptive.Mean(all)
	if err != nil {
		return design{}, fmt.Errorf("grand mean: %w", err)
	}
	d.grandMean = grand

	var ssBetween, ssWithin float64
	for _, g := range d.groups {
		ssBetween += float64(g.n) * (g.mean - grand) * (g.mean - grand)
		ssWithin += g.ss
	}
	d.msBetween = ssBetween / float64(d.dfBetween())
	d.msWithin = ssWithin / float64(d.dfWithin())
	if numeric.NegligibleVariance(d.msWithin, sumSquares/float64(d.total)) {
		d.msWithin = numeric.VarianceFloor
		d.floored = true
	}
	return d, nil
}

func descriptor(name string, family stats.Family, description string) stats.Descriptor {
	return stats.Descriptor{Name: name, Family: family, Description: description}
}
