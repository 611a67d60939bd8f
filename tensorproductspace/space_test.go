package tensorproductspace

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gospectral/comm"
	"github.com/notargets/gospectral/expression"
	"github.com/notargets/gospectral/fourier"
	"github.com/notargets/gospectral/legendre"
	sb "github.com/notargets/gospectral/spectralbase"
	"github.com/notargets/gospectral/utils"
)

// fill evaluates f on the local physical block of T.
func fill(T *TensorProductSpace, f func(x []float64) complex128) (u *utils.NDArray) {
	var (
		mesh = T.Mesh()
		sl   = T.LocalSlice(false)
		x    = make([]float64, len(mesh))
	)
	u = T.NewArray(false)
	idx := make([]int, u.Ndim())
	if u.Size() == 0 {
		return
	}
	for {
		for i := range idx {
			x[i] = mesh[i][sl[i][0]+idx[i]]
		}
		u.Set(f(x), idx...)
		if !utils.NextIndex(idx, u.Shape) {
			break
		}
	}
	return
}

func localBlock(G *utils.NDArray, sl [][2]int) *utils.NDArray {
	start, count := make([]int, len(sl)), make([]int, len(sl))
	for i, s := range sl {
		start[i], count[i] = s[0], s[1]-s[0]
	}
	return utils.NewNDArrayFrom(count, G.Block(start, count))
}

func check(cond bool, format string, args ...interface{}) error {
	if !cond {
		return fmt.Errorf(format, args...)
	}
	return nil
}

func TestScenarioDirichletFourier(t *testing.T) {
	N := 16
	for _, np := range []int{1, 2, 4} {
		err := comm.Run(np, func(g comm.Group) (err error) {
			var (
				D *legendre.ShenDirichlet
				F *fourier.R2C
				T *TensorProductSpace
			)
			if D, err = legendre.NewShenDirichlet(N, sb.WithQuad(sb.GL), sb.WithBC(sb.Numbers(1, -1))); err != nil {
				return
			}
			if F, err = fourier.NewR2C(N); err != nil {
				return
			}
			if T, err = New(g, []sb.Basis{D, F}); err != nil {
				return
			}
			defer T.Destroy()
			u := fill(T, func(x []float64) complex128 {
				return complex(-x[0]+(1-x[0]*x[0])*math.Sin(x[1]), 0)
			})
			c, uu := T.NewArray(true), T.NewArray(false)
			if err = T.Forward(u, c, true); err != nil {
				return
			}
			if err = T.Backward(c, uu, true); err != nil {
				return
			}
			if err = check(u.AllClose(uu, 1e-10), "round trip %v", u.MaxAbsDiff(uu)); err != nil {
				return
			}
			var G *utils.NDArray
			if G, err = T.Gather(uu, false); err != nil {
				return
			}
			for j := 0; j < N; j++ {
				if err = check(math.Abs(real(G.At(0, j))-1) < 1e-10 && math.Abs(real(G.At(N-1, j))+1) < 1e-10,
					"boundary rows at %d: %v %v", j, G.At(0, j), G.At(N-1, j)); err != nil {
					return
				}
			}
			return
		})
		assert.NoError(t, err, "np=%d", np)
	}
}

// build3D is a C2C x ShenDirichlet x R2C space with an expression boundary on
// the middle axis, so the Dirichlet stage has a stage on either side.
func build3D(g comm.Group, opts ...Option) (T *TensorProductSpace, err error) {
	var (
		bases = make([]sb.Basis, 3)
	)
	if bases[0], err = fourier.NewC2C(6); err != nil {
		return
	}
	bc := [2]sb.BC{sb.Expr(expression.MustNew("cos(z)")), sb.Number(2)}
	if bases[1], err = legendre.NewShenDirichlet(8, sb.WithQuad(sb.GL), sb.WithBC(bc)); err != nil {
		return
	}
	if bases[2], err = fourier.NewR2C(8); err != nil {
		return
	}
	return New(g, bases, opts...)
}

func field3D(x []float64) complex128 {
	y := x[1]
	return complex((1-y)/2*math.Cos(x[2])+(1+y)+(1-y*y)*math.Cos(x[0])*math.Sin(x[2]), 0)
}

func TestDistributedConsistency(t *testing.T) {
	var (
		mu        sync.Mutex
		reference *utils.NDArray
	)
	run := func(np int, opts ...Option) error {
		return comm.Run(np, func(g comm.Group) (err error) {
			var T *TensorProductSpace
			if T, err = build3D(g, opts...); err != nil {
				return
			}
			defer T.Destroy()
			var (
				u  = fill(T, field3D)
				c  = T.NewArray(true)
				ce = T.NewArray(true)
				uu = T.NewArray(false)
				G  *utils.NDArray
			)
			if err = T.Forward(u, c, true); err != nil {
				return
			}
			if err = T.Forward(u, ce, false); err != nil {
				return
			}
			if err = check(c.AllClose(ce, 1e-10), "fast and exact differ by %v", c.MaxAbsDiff(ce)); err != nil {
				return
			}
			if err = T.Backward(c, uu, true); err != nil {
				return
			}
			if err = check(u.AllClose(uu, 1e-10), "round trip %v", u.MaxAbsDiff(uu)); err != nil {
				return
			}
			if G, err = T.Gather(c, true); err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if reference == nil {
				reference = G
				return
			}
			return check(G.AllClose(reference, 1e-12), "gathered spectra differ by %v", G.MaxAbsDiff(reference))
		})
	}
	require.NoError(t, run(1))
	for _, np := range []int{2, 3, 4} {
		assert.NoError(t, run(np), "pencil np=%d", np)
		assert.NoError(t, run(np, WithSlab()), "slab np=%d", np)
	}
}

func TestBoundaryInjection(t *testing.T) {
	err := comm.Run(4, func(g comm.Group) (err error) {
		var T *TensorProductSpace
		if T, err = build3D(g); err != nil {
			return
		}
		defer T.Destroy()
		D := T.Bases()[1]
		bv := D.BoundaryValues()
		if err = check(bv.HasNonhomogeneousBcs(), "expected inhomogeneous data"); err != nil {
			return
		}
		var (
			u    = fill(T, field3D)
			c    = T.NewArray(true)
			uu   = T.NewArray(false)
			G    *utils.NDArray
			mesh = T.Mesh()
		)
		if err = T.Forward(u, c, true); err != nil {
			return
		}
		if err = T.Backward(c, uu, true); err != nil {
			return
		}
		if G, err = T.Gather(uu, false); err != nil {
			return
		}
		for i := range mesh[0] {
			for k, z := range mesh[2] {
				lo, hi := real(G.At(i, 0, k)), real(G.At(i, 7, k))
				if err = check(math.Abs(lo-math.Cos(z)) < 1e-10 && math.Abs(hi-2) < 1e-10,
					"endpoints (%v, %v) at x=%d z=%d", lo, hi, i, k); err != nil {
					return
				}
			}
		}
		// the final coefficients of the boundary slots are the transformed data
		pair, err := bv.Bcs(true)
		if err != nil {
			return
		}
		sl := T.LocalSlice(true)
		for slot := 0; slot < 2; slot++ {
			local := 6 + slot - sl[1][0]
			if local < 0 || local >= c.Shape[1] {
				continue
			}
			plane := c.Take(1, local)
			if err = check(plane.AllClose(pair[slot], 1e-12), "slot %d differs from bcsFinal", slot); err != nil {
				return
			}
		}
		// homogeneous data skips the wiring work and leaves the slots zero
		if err = bv.UpdateBcs(sb.Numbers(0, 0)); err != nil {
			return
		}
		if err = check(!bv.HasNonhomogeneousBcs(), "expected homogeneous data"); err != nil {
			return
		}
		if pair, err = bv.Bcs(true); err != nil {
			return
		}
		if err = check(pair[0].Size() == 1 && pair[0].Data[0] == 0, "homogeneous bcsFinal %v", pair[0].Shape); err != nil {
			return
		}
		if err = T.Forward(u, c, true); err != nil {
			return
		}
		for slot := 0; slot < 2; slot++ {
			local := 6 + slot - sl[1][0]
			if local < 0 || local >= c.Shape[1] {
				continue
			}
			if err = check(c.Take(1, local).MaxAbs() == 0, "slot %d not zero", slot); err != nil {
				return
			}
		}
		return
	})
	assert.NoError(t, err)
}

func TestEvaluate(t *testing.T) {
	f := func(x, y float64) float64 { return x*x*math.Cos(y) + 0.5 + x*math.Sin(2*y) }
	for _, np := range []int{1, 2, 3} {
		err := comm.Run(np, func(g comm.Group) (err error) {
			var (
				L *legendre.Basis
				F *fourier.R2C
				T *TensorProductSpace
			)
			if L, err = legendre.New(6); err != nil {
				return
			}
			if F, err = fourier.NewR2C(8, sb.WithDomain(0, 4*math.Pi)); err != nil {
				return
			}
			if T, err = New(g, []sb.Basis{L, F}); err != nil {
				return
			}
			defer T.Destroy()
			u := fill(T, func(x []float64) complex128 { return complex(f(x[0], x[1]/2), 0) })
			c := T.NewArray(true)
			if err = T.Forward(u, c, true); err != nil {
				return
			}
			var (
				xs   = []float64{0.3, -0.7, 1, -1}
				ys   = []float64{1.1, 4.0, 0, 12.5}
				vals []complex128
			)
			if vals, err = T.Evaluate([][]float64{xs, ys}, c); err != nil {
				return
			}
			for p := range xs {
				if err = check(math.Abs(real(vals[p])-f(xs[p], ys[p]/2)) < 1e-10 && imag(vals[p]) == 0,
					"point %d: %v want %v", p, vals[p], f(xs[p], ys[p]/2)); err != nil {
					return
				}
			}
			_, err = T.Evaluate([][]float64{xs}, c)
			return check(err != nil, "expected a shape error")
		})
		assert.NoError(t, err, "np=%d", np)
	}
}

func TestConvolve(t *testing.T) {
	var (
		fa = func(x []float64) complex128 { return complex(math.Cos(x[0])*math.Cos(2*x[1])+0.5*math.Sin(x[1]), 0) }
		fb = func(x []float64) complex128 { return complex(math.Cos(2*x[0])*math.Sin(x[1]), 0) }
		ab = func(x []float64) complex128 { return fa(x) * fb(x) }
	)
	build := func(g comm.Group, pf float64) (T *TensorProductSpace, err error) {
		bases := make([]sb.Basis, 2)
		if bases[0], err = fourier.NewC2C(8, sb.WithPadding(pf)); err != nil {
			return
		}
		if bases[1], err = fourier.NewR2C(8, sb.WithPadding(pf)); err != nil {
			return
		}
		return New(g, bases)
	}
	for _, np := range []int{1, 2} {
		err := comm.Run(np, func(g comm.Group) (err error) {
			var T *TensorProductSpace
			if T, err = build(g, 1.5); err != nil {
				return
			}
			defer T.Destroy()
			var (
				a, b   = T.NewArray(true), T.NewArray(true)
				got    = T.NewArray(true)
				want   = T.NewArray(true)
				ua, ub = fill(T, fa), fill(T, fb)
			)
			if err = T.Forward(ua, a, true); err != nil {
				return
			}
			if err = T.Forward(ub, b, true); err != nil {
				return
			}
			if err = T.Convolve(a, b, got, true); err != nil {
				return
			}
			if err = T.Forward(fill(T, ab), want, true); err != nil {
				return
			}
			if err = check(got.AllClose(want, 1e-12), "truncated product differs by %v", got.MaxAbsDiff(want)); err != nil {
				return
			}
			var C *Convolve
			if C, err = NewConvolve(T); err != nil {
				return
			}
			defer C.Destroy()
			full, fwant := C.Full.NewArray(true), C.Full.NewArray(true)
			if err = C.Apply(a, b, full, true); err != nil {
				return
			}
			if err = C.Full.Forward(fill(C.Full, ab), fwant, true); err != nil {
				return
			}
			if err = check(full.AllClose(fwant, 1e-12), "full product differs by %v", full.MaxAbsDiff(fwant)); err != nil {
				return
			}
			if err = check(utils.ShapeEqual(C.Full.Shape(true), []int{12, 7}), "full shape %v", C.Full.Shape(true)); err != nil {
				return
			}
			// no padding
			var U *TensorProductSpace
			if U, err = build(g, 1); err != nil {
				return
			}
			defer U.Destroy()
			cerr := U.Convolve(U.NewArray(true), U.NewArray(true), U.NewArray(true), true)
			return check(errors.Is(cerr, sb.ErrInsufficientPadding), "unpadded convolve: %v", cerr)
		})
		assert.NoError(t, err, "np=%d", np)
	}
}

func TestMixedAndVector(t *testing.T) {
	err := comm.Run(2, func(g comm.Group) (err error) {
		var (
			C *fourier.C2C
			F *fourier.R2C
			T *TensorProductSpace
			V *MixedTensorProductSpace
		)
		if C, err = fourier.NewC2C(6); err != nil {
			return
		}
		if F, err = fourier.NewR2C(6); err != nil {
			return
		}
		if T, err = New(g, []sb.Basis{C, F}); err != nil {
			return
		}
		if V, err = NewVector(T); err != nil {
			return
		}
		if err = check(V.NumComponents() == 2, "components %d", V.NumComponents()); err != nil {
			return
		}
		rnd := rand.New(rand.NewSource(int64(g.Rank())))
		u := V.NewArray(false)
		for _, ui := range u {
			for j := range ui.Data {
				ui.Data[j] = complex(rnd.Float64(), 0)
			}
		}
		// real random data on the grid is not band limited for R2C with an
		// even size, so drop the Nyquist content through a round trip first
		c, uu := V.NewArray(true), V.NewArray(false)
		if err = V.Forward(u, c, true); err != nil {
			return
		}
		if err = V.Backward(c, u, true); err != nil {
			return
		}
		if err = V.Forward(u, c, true); err != nil {
			return
		}
		if err = V.Backward(c, uu, true); err != nil {
			return
		}
		for i := range u {
			if err = check(u[i].AllClose(uu[i], 1e-12), "component %d", i); err != nil {
				return
			}
		}
		if err = V.ScalarProduct(u, c, true); err != nil {
			return
		}
		if err = check(V.Forward(u[:1], c, true) != nil, "expected a component count error"); err != nil {
			return
		}
		if err = V.Destroy(); err != nil {
			return
		}
		return check(errors.Is(T.Forward(u[0], c[0], true), ErrDestroyed), "forward after destroy")
	})
	assert.NoError(t, err)
}

func TestBoundaryParamsAndApply(t *testing.T) {
	const N = 8
	for _, np := range []int{1, 2} {
		err := comm.Run(np, func(g comm.Group) (err error) {
			var (
				D *legendre.ShenDirichlet
				F *fourier.R2C
				T *TensorProductSpace
			)
			bc := [2]sb.BC{sb.Number(0), sb.Expr(expression.MustNew("t*sin(y)"))}
			if D, err = legendre.NewShenDirichlet(N, sb.WithQuad(sb.GL), sb.WithBC(bc)); err != nil {
				return
			}
			bv := D.BoundaryValues()
			if err = bv.UpdateParams(map[string]float64{"t": 1}); err != nil {
				return
			}
			if F, err = fourier.NewR2C(N); err != nil {
				return
			}
			if T, err = New(g, []sb.Basis{D, F}); err != nil {
				return
			}
			defer T.Destroy()
			pair, err := bv.Bcs(true)
			if err != nil {
				return
			}
			right := pair[1].Copy()
			if sl := T.LocalSlice(true); sl[1][0] <= 1 && 1 < sl[1][1] {
				// sin(y) lives in wavenumber 1
				if err = check(right.MaxAbs() > 0.1, "sin(y) lost in transform"); err != nil {
					return
				}
			}
			// time enters linearly
			if err = bv.UpdateParams(map[string]float64{"t": 2}); err != nil {
				return
			}
			if pair, err = bv.Bcs(true); err != nil {
				return
			}
			if err = check(pair[1].AllClose(right.Scale(2), 1e-12), "bcs not rescaled by t"); err != nil {
				return
			}
			var (
				sl     = T.LocalSlice(true)
				after  = T.NewArray(true)
				before = T.NewArray(true)
			)
			if err = bv.ApplyAfter(after, true); err != nil {
				return
			}
			if err = bv.ApplyBefore(before, true, [2]float64{0.5, 0.5}); err != nil {
				return
			}
			sum := pair[0].Copy().Add(pair[1]).Scale(0.5)
			for slot := 0; slot < 2; slot++ {
				if local := N - 2 + slot - sl[0][0]; local >= 0 && local < after.Shape[0] {
					if err = check(after.Take(0, local).AllClose(pair[slot], 1e-12), "ApplyAfter slot %d", slot); err != nil {
						return
					}
				}
			}
			if local := -sl[0][0]; local >= 0 && local < before.Shape[0] {
				err = check(before.Take(0, local).AllClose(sum, 1e-12), "ApplyBefore slot 0")
			}
			return
		})
		require.NoError(t, err, "np=%d", np)
	}
}
