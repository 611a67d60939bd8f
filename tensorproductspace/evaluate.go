package tensorproductspace

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	sb "github.com/notargets/gospectral/spectralbase"
	"github.com/notargets/gospectral/utils"
)

// Evaluate computes the expansion with local spectral block coeffs at
// arbitrary points, points[i][p] being coordinate i of point p in the true
// domain. Every rank contributes its slice of the sum and receives the total.
func (T *TensorProductSpace) Evaluate(points [][]float64, coeffs *utils.NDArray) (vals []complex128, err error) {
	if err = T.alive(); err != nil {
		return
	}
	var (
		ndim = len(T.bases)
		sl   = T.LocalSlice(true)
		npts int
	)
	if len(points) != ndim {
		return nil, fmt.Errorf("%w: %d coordinate lists for %d axes", sb.ErrShape, len(points), ndim)
	}
	npts = len(points[0])
	for i := range points {
		if len(points[i]) != npts {
			return nil, fmt.Errorf("%w: coordinate list %d has %d points, want %d",
				sb.ErrShape, i, len(points[i]), npts)
		}
	}
	if err = utils.CheckShape(coeffs, T.LocalShape(true), "evaluate coefficients"); err != nil {
		return
	}
	// local columns of the basis matrix of every axis
	P := make([]*mat.CDense, ndim)
	hw := make([][]float64, ndim)
	for i, b := range T.bases {
		P[i] = b.GetVandermondeBasis(b.Vandermonde(b.MapReferenceDomain(points[i])))
		if h, ok := b.(sb.HermitianWeights); ok {
			hw[i] = h.HermitianWeights()
		}
	}
	vals = make([]complex128, npts)
	if coeffs.Size() != 0 {
		for p := 0; p < npts; p++ {
			A := coeffs
			for i := ndim - 1; i >= 0; i-- {
				vec := make([]complex128, sl[i][1]-sl[i][0])
				for k := range vec {
					vec[k] = P[i].At(p, sl[i][0]+k)
					if hw[i] != nil {
						vec[k] *= complex(hw[i][sl[i][0]+k], 0)
					}
				}
				A = A.Contract(i, vec)
			}
			vals[p] = A.Data[0]
		}
	}
	if err = T.group.AllReduceSum(vals); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if T.dtype == utils.Float64 {
		for p := range vals {
			vals[p] = complex(real(vals[p]), 0)
		}
	}
	return
}
