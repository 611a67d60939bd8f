package spectralbase

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gospectral/utils"
)

// BasisMatrix returns P = GetVandermondeBasis(Vandermonde(x)) at the reference
// quadrature points, with the quadrature weights. Both are cached per plan.
func (b *Base) BasisMatrix() (P *mat.CDense, w []float64, err error) {
	type pw struct {
		P   *mat.CDense
		w   []float64
		err error
	}
	val := b.Cached("basisMatrix", func() interface{} {
		x, w, err := b.kernel.PointsAndWeights(b.n, false)
		if err != nil {
			return pw{err: err}
		}
		return pw{P: b.kernel.GetVandermondeBasis(b.kernel.Vandermonde(x)), w: w}
	}).(pw)
	return val.P, val.w, val.err
}

func (b *Base) checkExact() error {
	if b.IsPadded() {
		return fmt.Errorf("%w: exact transforms of %v do not support padding factor %v",
			ErrConfig, b.family, b.paddingFactor)
	}
	return nil
}

// ExactScalarProduct computes out_k = sum_j w_j conj(P_jk) in_j along the axis.
func (b *Base) ExactScalarProduct(in, out *utils.NDArray) (err error) {
	var (
		P *mat.CDense
		w []float64
	)
	if err = b.checkExact(); err != nil {
		return
	}
	if err = b.CheckPlanned(in, out, b.InputShape(), b.OutputShape()); err != nil {
		return
	}
	if P, w, err = b.BasisMatrix(); err != nil {
		return
	}
	nr, nc := P.Dims()
	return utils.ApplyAlongAxis(in, out, b.plan.axis, func(_ int, u, sp []complex128) error {
		for k := 0; k < nc; k++ {
			var sum complex128
			for j := 0; j < nr; j++ {
				sum += complex(w[j], 0) * cmplx.Conj(P.At(j, k)) * u[j]
			}
			sp[k] = sum
		}
		return nil
	})
}

// ExactBackward computes out_j = sum_k P_jk c_k along the axis. With non nil
// hermitian weights the result is Re(sum_k hw_k P_jk c_k). When fix is non nil it may
// overwrite slots of each line's coefficients before the sum.
func (b *Base) ExactBackward(in, out *utils.NDArray, hw []float64,
	fix func(line int, c []complex128)) (err error) {
	var (
		P *mat.CDense
	)
	if err = b.checkExact(); err != nil {
		return
	}
	if err = b.CheckPlanned(in, out, b.OutputShape(), b.InputShape()); err != nil {
		return
	}
	if P, _, err = b.BasisMatrix(); err != nil {
		return
	}
	_, nc := P.Dims()
	c := make([]complex128, nc)
	return utils.ApplyAlongAxis(in, out, b.plan.axis, func(line int, ck, u []complex128) error {
		copy(c, ck)
		if fix != nil {
			fix(line, c)
		}
		copy(u, MatVec(P, c, hw))
		return nil
	})
}

// DenseMass returns the real part of P^H W P on the slots [lo, hi) x [lo, hi).
func (b *Base) DenseMass(lo, hi int) (M *mat.Dense, err error) {
	var (
		P *mat.CDense
		w []float64
	)
	if P, w, err = b.BasisMatrix(); err != nil {
		return
	}
	key := fmt.Sprintf("denseMass[%d:%d]", lo, hi)
	M = b.Cached(key, func() interface{} {
		nr, _ := P.Dims()
		M := mat.NewDense(hi-lo, hi-lo, nil)
		for i := lo; i < hi; i++ {
			for k := lo; k < hi; k++ {
				var sum complex128
				for j := 0; j < nr; j++ {
					sum += complex(w[j], 0) * cmplx.Conj(P.At(j, i)) * P.At(j, k)
				}
				M.Set(i-lo, k-lo, real(sum))
			}
		}
		return M
	}).(*mat.Dense)
	return
}

// EvalExpansion evaluates coeffs at points x of the true domain.
func (b *Base) EvalExpansion(x []float64, coeffs []complex128, hw []float64) (u []complex128, err error) {
	if !b.plan.planned {
		err = fmt.Errorf("%w: eval on %v N=%d", ErrNotPlanned, b.family, b.n)
		return
	}
	if len(coeffs) != b.SpectralSize() {
		err = fmt.Errorf("%w: %d coefficients for %v with %d slots", ErrShape, len(coeffs), b.family, b.SpectralSize())
		return
	}
	P := b.kernel.GetVandermondeBasis(b.kernel.Vandermonde(b.MapReferenceDomain(x)))
	u = MatVec(P, coeffs, hw)
	return
}

// MatVec returns P c, or Re(P diag(hw) c) for hermitian weights hw.
func MatVec(P *mat.CDense, c []complex128, hw []float64) (u []complex128) {
	nr, nc := P.Dims()
	u = make([]complex128, nr)
	for j := 0; j < nr; j++ {
		var sum complex128
		for k := 0; k < nc; k++ {
			if hw != nil {
				sum += complex(hw[k], 0) * P.At(j, k) * c[k]
			} else {
				sum += P.At(j, k) * c[k]
			}
		}
		if hw != nil {
			sum = complex(real(sum), 0)
		}
		u[j] = sum
	}
	return
}
