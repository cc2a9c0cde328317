package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/caribou/core/model"
)

// DefaultPSDTolerance is the relative tolerance under which negative
// eigenvalues are treated as rounding noise.
const DefaultPSDTolerance = 1e-9

// Sqrtm returns the principal square root of a symmetric positive
// semidefinite matrix. Eigenvalues in [-tol·λmax, 0) are clamped to zero;
// anything more negative yields ErrNumerical.
func Sqrtm(a mat.Symmetric, tol float64) (*mat.SymDense, error) {
	n := a.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			v := a.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: covariance contains non-finite values", model.ErrNumerical)
			}
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(a, true); !ok {
		return nil, fmt.Errorf("%w: eigendecomposition did not converge", model.ErrNumerical)
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	scale := 1.0
	for _, v := range vals {
		scale = math.Max(scale, math.Abs(v))
	}
	roots := make([]float64, n)
	for k, v := range vals {
		if v < -tol*scale {
			return nil, fmt.Errorf("%w: covariance is not positive semidefinite (eigenvalue %g)", model.ErrNumerical, v)
		}
		if v > 0 {
			roots[k] = math.Sqrt(v)
		}
	}

	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var s float64
			for k := 0; k < n; k++ {
				s += vecs.At(i, k) * roots[k] * vecs.At(j, k)
			}
			out.SetSym(i, j, s)
		}
	}
	return out, nil
}
