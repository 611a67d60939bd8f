package legendre

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	sb "github.com/notargets/gospectral/spectralbase"
	"github.com/notargets/gospectral/utils"
)

// engine carries everything the Legendre families share. A family is fixed by
// its stencil, whose column k holds the Legendre coefficients of basis
// function k, and by the number of leading slots that the mass matrix solves.
// The trailing slots hold boundary data or are zero.
type engine struct {
	*sb.Base
	opts    *sb.Options
	minN    int
	x, w    []float64 // reference quadrature
	norms   []float64 // discrete norms of L_k under the quadrature
	stencil *utils.CSR
	diff    *utils.CSR
	hi      int
	bw      int
	bv      *sb.BoundaryValues
	// adjustSP may overwrite scalar product slots, used for fixed means
	adjustSP func(sp []complex128)
}

func newEngine(family sb.Family, N, minN int, opts ...sb.Option) (e *engine, err error) {
	o := sb.NewOptions(opts...)
	quad := sb.LG
	if o.QuadSet {
		quad = o.Quad
	}
	switch {
	case quad != sb.LG && quad != sb.GL:
		err = fmt.Errorf("%w: %v for %v", sb.ErrUnsupportedQuad, quad, family)
		return
	case o.PaddingFactor != 1:
		err = fmt.Errorf("%w: %v does not support padding factor %v", sb.ErrConfig, family, o.PaddingFactor)
		return
	case o.DealiasDirect:
		err = fmt.Errorf("%w: %v does not support direct dealiasing", sb.ErrConfig, family)
		return
	case N < minN:
		err = fmt.Errorf("%w: %v needs N >= %d, have %d", sb.ErrInvalidSize, family, minN, N)
		return
	}
	e = &engine{
		Base: sb.NewBase(family, N, quad, o.Domain, [2]float64{-1, 1}, 1, false),
		opts: o,
		minN: minN,
		hi:   N,
	}
	e.Bind(e)
	if e.x, e.w, err = e.PointsAndWeights(N, false); err != nil {
		return
	}
	e.norms = make([]float64, N)
	for k := range e.norms {
		e.norms[k] = 2 / (2*float64(k) + 1)
	}
	if quad == sb.GL {
		e.norms[N-1] = 2 / float64(N-1)
	}
	e.diff = derivativeMatrix(N)
	return
}

// derivativeMatrix maps Legendre coefficients of u to those of u'. Column m
// holds the expansion of L_m', so V D evaluates derivatives.
func derivativeMatrix(N int) *utils.CSR {
	D := utils.NewDOK(N, N)
	for n := 0; n < N; n++ {
		for m := n + 1; m < N; m += 2 {
			D.Set(n, m, 2*float64(n)+1)
		}
	}
	D.SetReadOnly("Legendre derivative")
	csr := D.ToCSR()
	return &csr
}

func (e *engine) PointsAndWeights(N int, scaled bool) (points, weights []float64, err error) {
	if N < e.minN {
		err = fmt.Errorf("%w: %v needs N >= %d, have %d", sb.ErrInvalidSize, e.Family(), e.minN, N)
		return
	}
	switch e.Quad() {
	case sb.LG:
		points, weights = LegendreGauss(N)
	case sb.GL:
		points, weights = LegendreGaussLobatto(N)
	default:
		err = fmt.Errorf("%w: %v", sb.ErrUnsupportedQuad, e.Quad())
		return
	}
	if scaled {
		points = e.MapTrueDomain(points)
	}
	return
}

// Vandermonde evaluates L_k(x) for k < N.
func (e *engine) Vandermonde(x []float64) (V *mat.CDense) {
	var (
		N = e.N()
		L = make([]float64, N)
	)
	V = mat.NewCDense(len(x), N, nil)
	for j, xj := range x {
		legendreAll(xj, L)
		for k, val := range L {
			V.Set(j, k, complex(val, 0))
		}
	}
	return
}

func (e *engine) GetVandermondeBasis(V *mat.CDense) *mat.CDense {
	if e.stencil == nil {
		return V
	}
	return e.stencil.RightMulC(V)
}

// GetVandermondeBasisDerivative differentiates the Legendre columns k times
// before combining them, scaled to the true domain.
func (e *engine) GetVandermondeBasisDerivative(V *mat.CDense, k int) (dV *mat.CDense) {
	W := V
	for i := 0; i < k; i++ {
		W = e.diff.RightMulC(W)
	}
	dV = e.GetVandermondeBasis(W)
	if k == 0 {
		if dV == V {
			nr, nc := V.Dims()
			dV = mat.NewCDense(nr, nc, nil)
			dV.Copy(V)
		}
		return
	}
	var (
		f      = complex(utils.POW(e.DomainFactor(), k), 0)
		nr, nc = dV.Dims()
	)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			dV.Set(i, j, dV.At(i, j)*f)
		}
	}
	return
}

func (e *engine) Slice() (start, end int) { return 0, e.N() }

func (e *engine) BoundaryValues() *sb.BoundaryValues { return e.bv }

// begin validates the plan and makes boundary data available.
func (e *engine) begin(in, out *utils.NDArray, inShape, outShape []int) (err error) {
	if err = e.CheckPlanned(in, out, inShape, outShape); err != nil {
		return
	}
	if e.bv != nil {
		err = e.bv.Prepare()
	}
	return
}

// fixed writes the values of the trailing slots [hi, N) of a line.
func (e *engine) fixed(line int, vals []complex128) {
	for i := range vals {
		vals[i] = 0
	}
	if e.bv != nil && len(vals) == 2 {
		vals[0], vals[1] = e.bv.LineValues(line)
	}
}

func (e *engine) Forward(in, out *utils.NDArray, fast bool) (err error) {
	if err = e.ScalarProduct(in, out, fast); err != nil {
		return
	}
	if fast {
		return e.ApplyInverseMass(out)
	}
	return e.solve(out, e.exactMass)
}

func (e *engine) ScalarProduct(in, out *utils.NDArray, fast bool) (err error) {
	if !fast {
		err = e.ExactScalarProduct(in, out)
	} else {
		if err = e.CheckPlanned(in, out, e.InputShape(), e.OutputShape()); err != nil {
			return
		}
		s := make([]complex128, e.N())
		err = utils.ApplyAlongAxis(in, out, e.Axis(), func(_ int, u, sp []complex128) error {
			scalarProduct(e.x, e.w, u, s)
			if e.stencil == nil {
				copy(sp, s)
			} else {
				e.stencil.MulTransVecC(sp, s)
			}
			return nil
		})
	}
	if err != nil || e.adjustSP == nil {
		return
	}
	return utils.ApplyAlongAxis(out, out, e.Axis(), func(_ int, a, b []complex128) error {
		copy(b, a)
		e.adjustSP(b)
		return nil
	})
}

func (e *engine) Backward(in, out *utils.NDArray, fast bool) (err error) {
	if err = e.begin(in, out, e.OutputShape(), e.InputShape()); err != nil {
		return
	}
	if !fast {
		return e.ExactBackward(in, out, nil, func(line int, c []complex128) {
			e.fixed(line, c[e.hi:])
		})
	}
	var (
		c = make([]complex128, e.N())
		a = make([]complex128, e.N())
	)
	return utils.ApplyAlongAxis(in, out, e.Axis(), func(line int, ck, u []complex128) error {
		copy(c, ck)
		e.fixed(line, c[e.hi:])
		if e.stencil == nil {
			copy(a, c)
		} else {
			// the boundary columns of the stencil add the lifting to L_0 and L_1
			e.stencil.MulVecC(a, c)
		}
		evaluate(e.x, a, u)
		return nil
	})
}

func (e *engine) ApplyInverseMass(a *utils.NDArray) (err error) {
	if e.stencil == nil {
		if err = e.begin(a, a, e.OutputShape(), e.OutputShape()); err != nil {
			return
		}
		return utils.ApplyAlongAxis(a, a, e.Axis(), func(_ int, sp, c []complex128) error {
			for k := range c {
				c[k] = sp[k] / complex(e.norms[k], 0)
			}
			return nil
		})
	}
	return e.solve(a, e.bandMass)
}

func (e *engine) Eval(x []float64, coeffs []complex128) ([]complex128, error) {
	return e.EvalExpansion(x, coeffs, nil)
}

func (e *engine) rebuildOptions(N int, paddingFactor float64) (opts []sb.Option, err error) {
	if N < e.minN {
		err = fmt.Errorf("%w: %v needs N >= %d, have %d", sb.ErrInvalidSize, e.Family(), e.minN, N)
		return
	}
	return append(e.opts.Apply(), sb.WithPadding(paddingFactor)), nil
}

// Basis is the orthogonal Legendre basis L_k, k < N, with a diagonal mass
// matrix.
type Basis struct {
	*engine
}

func New(N int, opts ...sb.Option) (b *Basis, err error) {
	var e *engine
	if e, err = newEngine(sb.Legendre, N, 2, opts...); err != nil {
		return
	}
	b = &Basis{engine: e}
	return
}

func (b *Basis) Rebuild(N int, paddingFactor float64) (sb.Basis, error) {
	opts, err := b.rebuildOptions(N, paddingFactor)
	if err != nil {
		return nil, err
	}
	return New(N, opts...)
}
