package ordination

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"gostamp/domain/core"
)

// profiles is 5 samples x 3 features with one dominant axis
var profiles = mat.NewDense(5, 3, []float64{
	1, 2, 0.5,
	2, 4, 0.4,
	3, 6, 0.6,
	4, 8, 0.5,
	5, 10, 0.5,
})

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

func TestPCAVariancesSumToOne(t *testing.T) {
	for _, algorithm := range []Algorithm{Auto, Covariance, Gram} {
		result, err := Run(profiles, algorithm)
		require.NoError(t, err, algorithm)
		assert.InDelta(t, 1.0, sum(result.Variances), 1e-9, algorithm)
		assert.Len(t, result.Variances, 3)
		for i := 1; i < len(result.Variances); i++ {
			assert.GreaterOrEqual(t, result.Variances[i-1], result.Variances[i])
		}
	}
}

func TestPCADominantAxis(t *testing.T) {
	result, err := Run(profiles, Covariance)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{3, 6, 0.5}, result.Mean, 1e-12)
	assert.Greater(t, result.Variances[0], 0.99)

	// first loading follows (1, 2, 0)/sqrt(5) with positive orientation
	assert.InDelta(t, 1/math.Sqrt(5), result.Loadings.At(0, 0), 1e-2)
	assert.InDelta(t, 2/math.Sqrt(5), result.Loadings.At(1, 0), 1e-2)

	rows, cols := result.Positions.Dims()
	assert.Equal(t, 5, rows)
	assert.Equal(t, 3, cols)
	assert.Less(t, result.Positions.At(0, 0), 0.0)
	assert.Greater(t, result.Positions.At(4, 0), 0.0)
}

func TestPCARoutesAgree(t *testing.T) {
	cov, err := Run(profiles, Covariance)
	require.NoError(t, err)
	gram, err := Run(profiles, Gram)
	require.NoError(t, err)

	assert.InDeltaSlice(t, cov.Variances, gram.Variances, 1e-9)
	// the leading component is well separated, so both routes match exactly
	for i := 0; i < 5; i++ {
		assert.InDelta(t, cov.Positions.At(i, 0), gram.Positions.At(i, 0), 1e-8)
	}
	for r := 0; r < 3; r++ {
		assert.InDelta(t, cov.Loadings.At(r, 0), gram.Loadings.At(r, 0), 1e-8)
	}
}

func columnNorm(m *mat.Dense, j int) float64 {
	return mat.Norm(m.ColView(j), 2)
}

func TestPCAGramRouteIsScaleInvariant(t *testing.T) {
	const factor = 1e-9
	var tiny mat.Dense
	tiny.Scale(factor, profiles)

	unit, err := Run(profiles, Gram)
	require.NoError(t, err)
	small, err := Run(&tiny, Gram)
	require.NoError(t, err)

	assert.InDeltaSlice(t, unit.Variances, small.Variances, 1e-9)
	require.Greater(t, small.Variances[1], 1e-6)
	for j := 0; j < 2; j++ {
		assert.Greater(t, columnNorm(small.Positions, j), 0.0, "component %d", j)
		assert.InEpsilon(t, factor*columnNorm(unit.Positions, j), columnNorm(small.Positions, j), 1e-6, "component %d", j)
	}
}

func TestPCAMoreFeaturesThanSamples(t *testing.T) {
	wide := mat.NewDense(3, 6, []float64{
		1, 0, 2, 5, 1, 0,
		0, 1, 3, 4, 2, 1,
		2, 2, 1, 6, 0, 3,
	})
	result, err := Run(wide, Auto)
	require.NoError(t, err)

	rows, cols := result.Positions.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)
	rows, cols = result.Loadings.Dims()
	assert.Equal(t, 6, rows)
	assert.Equal(t, 3, cols)
	assert.InDelta(t, 1.0, sum(result.Variances), 1e-9)
	// three centred samples span at most two dimensions
	assert.InDelta(t, 0.0, result.Variances[2], 1e-9)
}

func TestPCAZeroSpectrum(t *testing.T) {
	flat := mat.NewDense(3, 2, []float64{1, 1, 1, 1, 1, 1})
	result, err := Run(flat, Auto)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, result.Variances, 1e-12)
	assert.NotEmpty(t, result.Note)
}

func TestPCAInvalidInput(t *testing.T) {
	_, err := Run(mat.NewDense(1, 3, []float64{1, 2, 3}), Auto)
	assert.True(t, core.IsInvalidInput(err))

	_, err = Run(mat.NewDense(2, 2, []float64{1, math.NaN(), 3, 4}), Auto)
	assert.True(t, core.IsInvalidInput(err))

	_, err = Run(nil, Auto)
	assert.True(t, core.IsInvalidInput(err))

	_, err = ParseAlgorithm("svd")
	assert.True(t, core.IsUnsupportedConfiguration(err))
}

func TestFromRows(t *testing.T) {
	m, err := FromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 6.0, m.At(1, 2))

	_, err = FromRows(nil)
	assert.True(t, core.IsInvalidInput(err))
	_, err = FromRows([][]float64{{1, 2}, {3}})
	assert.True(t, core.IsInvalidInput(err))
}
