package numeric

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"gostamp/domain/core"
)

// SymmetricEigen decomposes a symmetric matrix and returns eigenvalues in
// descending order with matching eigenvector columns. Negative eigenvalues
// produced by rounding are clamped to zero. Each eigenvector is signed so that
// its largest-magnitude entry is positive, which keeps ordinations stable
// across runs and platforms.
func SymmetricEigen(sym *mat.SymDense) ([]float64, *mat.Dense, error) {
	var es mat.EigenSym
	if ok := es.Factorize(sym, true); !ok {
		return nil, nil, fmt.Errorf("%w: symmetric eigen-decomposition did not converge", core.ErrNumericalInstability)
	}

	raw := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	n := len(raw)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return raw[order[a]] > raw[order[b]]
	})

	values := make([]float64, n)
	vectors := mat.NewDense(n, n, nil)
	for dst, src := range order {
		values[dst] = ClampEigenvalue(raw[src])

		largest := 0.0
		for r := 0; r < n; r++ {
			v := vecs.At(r, src)
			if math.Abs(v) > math.Abs(largest) {
				largest = v
			}
		}
		sign := 1.0
		if largest < 0 {
			sign = -1.0
		}
		for r := 0; r < n; r++ {
			vectors.Set(r, dst, sign*vecs.At(r, src))
		}
	}

	return values, vectors, nil
}

// ClampEigenvalue zeroes negative eigenvalues caused by numerical noise
func ClampEigenvalue(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
