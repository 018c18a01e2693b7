package multigroup

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gostamp/domain/core"
)

var separated = [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}

// For F(2, d2) the upper tail has the closed form (1 + 2f/d2)^(-d2/2).
func f2Survival(f float64, d2 int) float64 {
	return math.Pow(1+2*f/float64(d2), -float64(d2)/2)
}

func TestANOVAKnownTable(t *testing.T) {
	result, err := NewANOVA().Analyze(separated)
	require.NoError(t, err)

	assert.Equal(t, 2, result.DFBetween)
	assert.Equal(t, 6, result.DFWithin)
	assert.InDelta(t, 27.0, result.MSBetween, 1e-9)
	assert.InDelta(t, 1.0, result.MSWithin, 1e-9)
	assert.InDelta(t, 27.0, result.F, 1e-9)
	assert.InEpsilon(t, 0.001, result.PValue, 1e-6)
	assert.Empty(t, result.Note)
}

func TestANOVAEqualMeans(t *testing.T) {
	result, err := NewANOVA().Test([][]float64{{1, 2, 3}, {3, 2, 1}, {2, 1, 3}})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, result.Statistic, 1e-12)
	assert.Equal(t, 1.0, result.PValue)
}

func TestANOVAZeroVarianceIsFloored(t *testing.T) {
	result, err := NewANOVA().Analyze([][]float64{{1, 1}, {2, 2}, {3, 3}})
	require.NoError(t, err)
	assert.Equal(t, 1e-6, result.MSWithin)
	assert.False(t, math.IsInf(result.F, 0))
	assert.Less(t, result.PValue, 1e-6)
	assert.Contains(t, result.Note, "floored")
}

func scaled(groups [][]float64, factor float64) [][]float64 {
	out := make([][]float64, len(groups))
	for i, g := range groups {
		out[i] = make([]float64, len(g))
		for j, v := range g {
			out[i][j] = v * factor
		}
	}
	return out
}

func TestANOVAIsScaleInvariant(t *testing.T) {
	want, err := NewANOVA().Analyze(separated)
	require.NoError(t, err)

	for _, factor := range []float64{1e-4, 1e-8, 1e4} {
		got, err := NewANOVA().Analyze(scaled(separated, factor))
		require.NoError(t, err)
		assert.InEpsilon(t, want.F, got.F, 1e-9, "factor %g", factor)
		assert.InEpsilon(t, want.PValue, got.PValue, 1e-9, "factor %g", factor)
		assert.InEpsilon(t, factor*factor, got.MSWithin, 1e-9, "factor %g", factor)
		assert.Empty(t, got.Note, "factor %g", factor)
	}
}

func TestANOVASmallProportionsKeepTheirVariance(t *testing.T) {
	proportions := [][]float64{
		{1.00e-4, 1.01e-4, 0.99e-4, 1.02e-4},
		{2.00e-4, 2.01e-4, 1.99e-4, 2.02e-4},
	}
	small, err := NewANOVA().Analyze(proportions)
	require.NoError(t, err)
	large, err := NewANOVA().Analyze(scaled(proportions, 1e4))
	require.NoError(t, err)

	assert.Empty(t, small.Note)
	assert.Less(t, small.MSWithin, 1e-12)
	assert.InEpsilon(t, large.F, small.F, 1e-6)
	assert.InEpsilon(t, large.PValue, small.PValue, 1e-6)
	assert.Less(t, small.PValue, 1e-9)
}

func TestANOVAInvalidGroups(t *testing.T) {
	tests := []struct {
		name   string
		groups [][]float64
	}{
		{"single group", [][]float64{{1, 2}}},
		{"empty group", [][]float64{{1, 2}, {}}},
		{"no residual df", [][]float64{{1}, {2}}},
		{"non-finite", [][]float64{{1, math.NaN()}, {2, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewANOVA().Test(tt.groups)
			assert.True(t, core.IsInvalidInput(err))
		})
	}
}

func TestKruskalWallisKnownValue(t *testing.T) {
	result, err := NewKruskalWallis().Analyze(separated)
	require.NoError(t, err)
	assert.Equal(t, 2, result.DF)
	assert.InDelta(t, 7.2, result.H, 1e-9)
	// chi-square(2) survival is exp(-x/2)
	assert.InEpsilon(t, math.Exp(-3.6), result.PValue, 1e-6)
}

func TestKruskalWallisTies(t *testing.T) {
	result, err := NewKruskalWallis().Test([][]float64{{1, 1, 2}, {2, 3, 3}})
	require.NoError(t, err)
	assert.Greater(t, result.Statistic, 0.0)
	assert.Less(t, result.PValue, 1.0)

	allTied, err := NewKruskalWallis().Test([][]float64{{4, 4}, {4, 4}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, allTied.PValue)
	assert.NotEmpty(t, allTied.Note)
}

func TestScheffeKnownPairs(t *testing.T) {
	result, err := NewScheffe().PostHoc(separated, 0.05)
	require.NoError(t, err)

	// F_{0.95}(2, 6) solves (1 + x/3)^-3 = 0.05
	fCrit := 3 * (math.Cbrt(20) - 1)
	assert.InEpsilon(t, 2*fCrit, result.CriticalValue, 1e-6)
	assert.InDelta(t, 1.0, result.PooledSD, 1e-9)
	require.Len(t, result.Pairs, 3)

	near := result.Pairs[0]
	assert.Equal(t, 0, near.GroupA)
	assert.Equal(t, 1, near.GroupB)
	assert.InDelta(t, -3.0, near.Effect, 1e-9)
	assert.InEpsilon(t, f2Survival(6.75, 6), near.PValue, 1e-6)
	half := math.Sqrt(2 * fCrit * 2.0 / 3.0)
	assert.InDelta(t, -3-half, near.LowerCI, 1e-6)
	assert.InDelta(t, -3+half, near.UpperCI, 1e-6)
	assert.True(t, near.Reject)

	far := result.Pairs[1]
	assert.Equal(t, 0, far.GroupA)
	assert.Equal(t, 2, far.GroupB)
	assert.InEpsilon(t, 0.001, far.PValue, 1e-6)
}

func TestScheffeIntervalAgreesWithPValue(t *testing.T) {
	groups := [][]float64{{2.1, 2.5, 1.9, 2.2}, {2.4, 2.6, 2.2, 2.9}, {3.4, 3.1, 3.6, 3.3}}
	result, err := NewScheffe().PostHoc(groups, 0.05)
	require.NoError(t, err)
	for _, pair := range result.Pairs {
		excludesZero := pair.LowerCI > 0 || pair.UpperCI < 0
		assert.Equal(t, excludesZero, pair.Reject, "pair %d-%d", pair.GroupA, pair.GroupB)
	}
}

func TestScheffeZeroVariance(t *testing.T) {
	result, err := NewScheffe().PostHoc([][]float64{{1, 1}, {2, 2}, {2, 2}}, 0.05)
	require.NoError(t, err)
	assert.Contains(t, result.Note, "floored")
	for _, pair := range result.Pairs {
		assert.False(t, math.IsNaN(pair.PValue))
		assert.NotEmpty(t, pair.Note)
	}
	assert.True(t, result.Pairs[0].Reject)
	assert.False(t, result.Pairs[2].Reject)
}

func TestScheffeIsScaleInvariant(t *testing.T) {
	want, err := NewScheffe().PostHoc(separated, 0.05)
	require.NoError(t, err)
	got, err := NewScheffe().PostHoc(scaled(separated, 1e-4), 0.05)
	require.NoError(t, err)

	assert.Empty(t, got.Note)
	assert.InEpsilon(t, 1e-4*want.PooledSD, got.PooledSD, 1e-9)
	require.Len(t, got.Pairs, len(want.Pairs))
	for i := range want.Pairs {
		assert.InEpsilon(t, want.Pairs[i].PValue, got.Pairs[i].PValue, 1e-9)
		assert.Equal(t, want.Pairs[i].Reject, got.Pairs[i].Reject)
	}
}

func TestScheffeInvalidAlpha(t *testing.T) {
	_, err := NewScheffe().PostHoc(separated, 0)
	assert.True(t, core.IsInvalidInput(err))
	_, err = NewScheffe().PostHoc(separated, 1)
	assert.True(t, core.IsInvalidInput(err))
}
