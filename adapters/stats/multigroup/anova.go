package multigroup

import (
	"gostamp/domain/stats"
	"gostamp/internal/numeric"
)

// ANOVA is the one-way analysis of variance F-test
type ANOVA struct{}

// NewANOVA creates a one-way ANOVA
func NewANOVA() *ANOVA {
	return &ANOVA{}
}

// Name returns the registry name
func (a *ANOVA) Name() string {
	return "anova"
}

// Descriptor returns the registration metadata
func (a *ANOVA) Descriptor() stats.Descriptor {
	return descriptor(a.Name(), stats.FamilyMultiGroupTest, "One-way ANOVA F-test of equal group means")
}

// Analyze returns the full ANOVA table
func (a *ANOVA) Analyze(groups [][]float64) (stats.ANOVAResult, error) {
	d, err := summarize(groups)
	if err != nil {
		return stats.ANOVAResult{}, err
	}
	f := d.msBetween / d.msWithin
	result := stats.ANOVAResult{
		F:         f,
		DFBetween: d.dfBetween(),
		DFWithin:  d.dfWithin(),
		MSBetween: d.msBetween,
		MSWithin:  d.msWithin,
		PValue:    numeric.ClampProbability(numeric.FSurvival(f, d.dfBetween(), d.dfWithin())),
	}
	if d.floored {
		result.Note = noteVarianceFloor
	}
	return result, nil
}

// Test runs the F-test
func (a *ANOVA) Test(groups [][]float64) (stats.MultiGroupResult, error) {
	result, err := a.Analyze(groups)
	if err != nil {
		return stats.MultiGroupResult{}, err
	}
	return stats.MultiGroupResult{Statistic: result.F, PValue: result.PValue, Note: result.Note}, nil
}
