package legendre

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	sb "github.com/notargets/gospectral/spectralbase"
	"github.com/notargets/gospectral/utils"
)

// massSystem is a factored mass matrix on the solved slots [0, hi) and its
// coupling to the trailing fixed slots.
type massSystem struct {
	solver interface {
		SolveVecTo(dst *mat.VecDense, b mat.Vector) error
	}
	coupling *mat.Dense
}

// galerkin returns K^T H K, the mass matrix of the stencil under the discrete
// Legendre norms.
func (e *engine) galerkin() (G *mat.Dense) {
	var (
		N = e.N()
		K = mat.NewDense(N, N, nil)
	)
	for m := 0; m < N; m++ {
		for i := 0; i < N; i++ {
			if e.stencil == nil {
				if m == i {
					K.Set(m, i, 1)
				}
				continue
			}
			K.Set(m, i, e.stencil.At(m, i))
		}
	}
	G = mat.NewDense(N, N, nil)
	for i := 0; i < N; i++ {
		for j := i; j < N; j++ {
			var sum float64
			for m := 0; m < N; m++ {
				sum += K.At(m, i) * e.norms[m] * K.At(m, j)
			}
			G.Set(i, j, sum)
			G.Set(j, i, sum)
		}
	}
	return
}

func coupling(G *mat.Dense, hi int) (C *mat.Dense) {
	N, _ := G.Dims()
	if N == hi {
		return
	}
	C = mat.NewDense(hi, N-hi, nil)
	C.Copy(G.Slice(0, hi, hi, N))
	return
}

// bandMass factors the banded mass matrix used by the fast path.
func (e *engine) bandMass() (ms *massSystem, err error) {
	type result struct {
		ms  *massSystem
		err error
	}
	val := e.Cached("bandMass", func() interface{} {
		var (
			G  = e.galerkin()
			hi = e.hi
			// small N: the band cannot be wider than the matrix
			bw = min(e.bw, hi-1)
			S  = mat.NewSymBandDense(hi, bw, nil)
		)
		for i := 0; i < hi; i++ {
			for j := i; j <= i+bw && j < hi; j++ {
				S.SetSymBand(i, j, G.At(i, j))
			}
		}
		var ch mat.BandCholesky
		if ok := ch.Factorize(S); !ok {
			return result{err: fmt.Errorf("%w: %v banded mass matrix is not positive definite",
				sb.ErrConfig, e.Family())}
		}
		return result{ms: &massSystem{solver: &ch, coupling: coupling(G, hi)}}
	}).(result)
	return val.ms, val.err
}

// exactMass factors the dense quadrature mass matrix P^T W P.
func (e *engine) exactMass() (ms *massSystem, err error) {
	type result struct {
		ms  *massSystem
		err error
	}
	var M *mat.Dense
	if M, err = e.DenseMass(0, e.N()); err != nil {
		return
	}
	val := e.Cached("exactMass", func() interface{} {
		hi := e.hi
		S := mat.NewSymDense(hi, nil)
		for i := 0; i < hi; i++ {
			for j := i; j < hi; j++ {
				S.SetSym(i, j, 0.5*(M.At(i, j)+M.At(j, i)))
			}
		}
		var ch mat.Cholesky
		if ok := ch.Factorize(S); !ok {
			return result{err: fmt.Errorf("%w: %v mass matrix is not positive definite",
				sb.ErrConfig, e.Family())}
		}
		return result{ms: &massSystem{solver: &ch, coupling: coupling(M, hi)}}
	}).(result)
	return val.ms, val.err
}

// solve replaces the scalar products along the axis of a by coefficients. The
// trailing slots take their fixed values, whose coupling is moved to the right
// hand side first.
func (e *engine) solve(a *utils.NDArray, system func() (*massSystem, error)) (err error) {
	var (
		ms *massSystem
	)
	if err = e.begin(a, a, e.OutputShape(), e.OutputShape()); err != nil {
		return
	}
	if ms, err = system(); err != nil {
		return
	}
	var (
		N, hi  = e.N(), e.hi
		fix    = make([]complex128, N-hi)
		br, bi = mat.NewVecDense(hi, nil), mat.NewVecDense(hi, nil)
		xr, xi = mat.NewVecDense(hi, nil), mat.NewVecDense(hi, nil)
	)
	return utils.ApplyAlongAxis(a, a, e.Axis(), func(line int, sp, c []complex128) (err error) {
		e.fixed(line, fix)
		for i := 0; i < hi; i++ {
			rhs := sp[i]
			for m, f := range fix {
				rhs -= complex(ms.coupling.At(i, m), 0) * f
			}
			br.SetVec(i, real(rhs))
			bi.SetVec(i, imag(rhs))
		}
		if err = ms.solver.SolveVecTo(xr, br); err != nil {
			return
		}
		if err = ms.solver.SolveVecTo(xi, bi); err != nil {
			return
		}
		for i := 0; i < hi; i++ {
			c[i] = complex(xr.AtVec(i), xi.AtVec(i))
		}
		copy(c[hi:], fix)
		return
	})
}
