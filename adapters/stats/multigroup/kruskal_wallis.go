package multigroup

import (
	"sort"

	"gostamp/domain/stats"
	"gostamp/internal/numeric"
)

// KruskalWallis is the rank-based one-way test with tie correction
type KruskalWallis struct{}

// NewKruskalWallis creates a Kruskal-Wallis H test
func NewKruskalWallis() *KruskalWallis {
	return &KruskalWallis{}
}

// Name returns the registry name
func (kw *KruskalWallis) Name() string {
	return "kruskal_wallis"
}

// Descriptor returns the registration metadata
func (kw *KruskalWallis) Descriptor() stats.Descriptor {
	return descriptor(kw.Name(), stats.FamilyMultiGroupTest, "Kruskal-Wallis H test on pooled ranks with tie correction")
}

type rankedValue struct {
	value float64
	group int
}

// Analyze computes H against chi-square with k-1 degrees of freedom
func (kw *KruskalWallis) Analyze(groups [][]float64) (stats.KruskalWallisResult, error) {
	if err := validateGroups(groups); err != nil {
		return stats.KruskalWallisResult{}, err
	}

	var pooled []rankedValue
	for g, values := range groups {
		for _, v := range values {
			pooled = append(pooled, rankedValue{value: v, group: g})
		}
	}
	sort.Slice(pooled, func(i, j int) bool { return pooled[i].value < pooled[j].value })

	n := float64(len(pooled))
	rankSums := make([]float64, len(groups))
	var tieTerm float64
	for i := 0; i < len(pooled); {
		j := i
		for j < len(pooled) && pooled[j].value == pooled[i].value {
			j++
		}
		// ranks i+1..j share their average
		avg := float64(i+j+1) / 2
		for m := i; m < j; m++ {
			rankSums[pooled[m].group] += avg
		}
		t := float64(j - i)
		tieTerm += t*t*t - t
		i = j
	}

	df := len(groups) - 1
	correction := 1 - tieTerm/(n*n*n-n)
	if correction <= 0 {
		return stats.KruskalWallisResult{DF: df, PValue: 1, Note: "all values tied; no evidence against the null"}, nil
	}

	var h float64
	for g, values := range groups {
		h += rankSums[g] * rankSums[g] / float64(len(values))
	}
	h = (12/(n*(n+1))*h - 3*(n+1)) / correction
	if h < 0 {
		h = 0
	}
	return stats.KruskalWallisResult{
		H:      h,
		DF:     df,
		PValue: numeric.ClampProbability(numeric.ChiSquareSurvival(h, df)),
	}, nil
}

// Test runs the H test
func (kw *KruskalWallis) Test(groups [][]float64) (stats.MultiGroupResult, error) {
	result, err := kw.Analyze(groups)
	if err != nil {
		return stats.MultiGroupResult{}, err
	}
	return stats.MultiGroupResult{Statistic: result.H, PValue: result.PValue, Note: result.Note}, nil
}
