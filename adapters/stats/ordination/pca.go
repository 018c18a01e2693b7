// Package ordination projects samples described by many features into a
// low-dimensional space for plotting.
package ordination

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"gostamp/domain/core"
	"gostamp/domain/stats"
	"gostamp/internal/numeric"
)

// rankTolerance is the singular value, relative to the largest one, below
// which a Gram component is rounding noise and gets no positions or loadings
const rankTolerance = 1e-7

// Algorithm selects which symmetric matrix is decomposed
type Algorithm string

const (
	// Auto decomposes whichever of the k x k covariance or n x n Gram matrix is smaller
	Auto Algorithm = "auto"
	// Covariance decomposes the k x k feature covariance matrix
	Covariance Algorithm = "covariance"
	// Gram decomposes the n x n sample Gram matrix
	Gram Algorithm = "gram"
)

// ParseAlgorithm maps a configuration string to an Algorithm
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case "", Auto:
		return Auto, nil
	case Covariance, Gram:
		return Algorithm(s), nil
	}
	return "", core.NewUnsupportedMethodError("ordination", s)
}

// PCA is a principal component analysis on column-centred data
type PCA struct {
	algorithm Algorithm
}

// NewPCA creates a PCA using the given route
func NewPCA(algorithm Algorithm) *PCA {
	if algorithm == "" {
		algorithm = Auto
	}
	return &PCA{algorithm: algorithm}
}

// Ordinate runs the PCA
func (p *PCA) Ordinate(data *mat.Dense) (stats.PCAResult, error) {
	return Run(data, p.algorithm)
}

// Run computes principal components of an n x k matrix of n samples and k
// features. Positions is n x m and Loadings is k x m with m = min(n, k).
func Run(data *mat.Dense, algorithm Algorithm) (stats.PCAResult, error) {
	if data == nil {
		return stats.PCAResult{}, core.NewInvalidInputError("data", "matrix is nil")
	}
	n, k := data.Dims()
	if n < 2 || k < 2 {
		return stats.PCAResult{}, core.NewInvalidInputError("data", fmt.Sprintf("need at least 2 samples and 2 features, got %dx%d", n, k))
	}

	mean := make([]float64, k)
	centred := mat.NewDense(n, k, nil)
	for j := 0; j < k; j++ {
		col := mat.Col(nil, j, data)
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return stats.PCAResult{}, core.NewInvalidInputError("data", fmt.Sprintf("non-finite value at (%d, %d)", i, j))
			}
		}
		mean[j] = stat.Mean(col, nil)
		for i, v := range col {
			centred.Set(i, j, v-mean[j])
		}
	}

	if algorithm == Auto {
		algorithm = Covariance
		if n < k {
			algorithm = Gram
		}
	}

	m := n
	if k < m {
		m = k
	}

	var (
		eigenvalues []float64
		positions   *mat.Dense
		loadings    *mat.Dense
		err         error
	)
	switch algorithm {
	case Covariance:
		eigenvalues, positions, loadings, err = viaCovariance(centred, m)
	case Gram:
		eigenvalues, positions, loadings, err = viaGram(centred, m)
	default:
		return stats.PCAResult{}, core.NewUnsupportedMethodError("ordination", string(algorithm))
	}
	if err != nil {
		return stats.PCAResult{}, err
	}
	orient(positions, loadings)

	result := stats.PCAResult{
		Mean:      mean,
		Positions: positions,
		Loadings:  loadings,
	}
	result.Variances, result.Note = normalise(eigenvalues[:m])
	return result, nil
}

// viaCovariance decomposes X'X/(n-1); positions are X*V
func viaCovariance(x *mat.Dense, m int) ([]float64, *mat.Dense, *mat.Dense, error) {
	n, k := x.Dims()
	var cov mat.SymDense
	cov.SymOuterK(1/float64(n-1), mat.DenseCopyOf(x.T()))

	values, vectors, err := numeric.SymmetricEigen(&cov)
	if err != nil {
		return nil, nil, nil, err
	}
	loadings := mat.DenseCopyOf(vectors.Slice(0, k, 0, m))
	var positions mat.Dense
	positions.Mul(x, loadings)
	return values, &positions, loadings, nil
}

// viaGram decomposes XX'/(n-1); positions are U*sqrt((n-1)*lambda) and
// loadings are recovered as X'U/sqrt((n-1)*lambda)
func viaGram(x *mat.Dense, m int) ([]float64, *mat.Dense, *mat.Dense, error) {
	n, k := x.Dims()
	var gram mat.SymDense
	gram.SymOuterK(1/float64(n-1), x)

	values, vectors, err := numeric.SymmetricEigen(&gram)
	if err != nil {
		return nil, nil, nil, err
	}

	positions := mat.NewDense(n, m, nil)
	loadings := mat.NewDense(k, m, nil)
	cutoff := rankTolerance * math.Sqrt(float64(n-1)*values[0])
	for j := 0; j < m; j++ {
		singular := math.Sqrt(float64(n-1) * values[j])
		if singular <= cutoff {
			continue
		}
		u := vectors.ColView(j)
		for i := 0; i < n; i++ {
			positions.Set(i, j, u.AtVec(i)*singular)
		}
		var v mat.VecDense
		v.MulVec(x.T(), u)
		for r := 0; r < k; r++ {
			loadings.Set(r, j, v.AtVec(r)/singular)
		}
	}
	return values, positions, loadings, nil
}

// orient flips each component so its largest-magnitude loading is positive
func orient(positions, loadings *mat.Dense) {
	k, m := loadings.Dims()
	n, _ := positions.Dims()
	for j := 0; j < m; j++ {
		largest := 0.0
		for r := 0; r < k; r++ {
			if v := loadings.At(r, j); math.Abs(v) > math.Abs(largest) {
				largest = v
			}
		}
		if largest >= 0 {
			continue
		}
		for r := 0; r < k; r++ {
			loadings.Set(r, j, -loadings.At(r, j))
		}
		for i := 0; i < n; i++ {
			positions.Set(i, j, -positions.At(i, j))
		}
	}
}

// normalise converts eigenvalues into fractions of total variance
func normalise(eigenvalues []float64) ([]float64, string) {
	out := make([]float64, len(eigenvalues))
	total := 0.0
	for _, v := range eigenvalues {
		total += v
	}
	if total <= 0 {
		for i := range out {
			out[i] = 1 / float64(len(out))
		}
		return out, "all eigenvalues are zero; variance shared uniformly"
	}
	for i, v := range eigenvalues {
		out[i] = v / total
	}
	return out, ""
}

// FromRows builds an n x k matrix from n equal-length sample rows
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, core.NewInvalidInputError("data", "matrix must be non-empty")
	}
	k := len(rows[0])
	data := make([]float64, 0, len(rows)*k)
	for i, row := range rows {
		if len(row) != k {
			return nil, core.NewInvalidInputError("data", fmt.Sprintf("row %d has %d values, want %d", i, len(row), k))
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), k, data), nil
}
