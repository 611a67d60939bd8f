package legendre

import (
	"math"

	sb "github.com/notargets/gospectral/spectralbase"
	"github.com/notargets/gospectral/utils"
)

// stencilBuilder returns the Legendre coefficients of basis function k as
// (row, value) pairs.
type stencilBuilder func(k int) (rows []int, vals []float64)

func (e *engine) setStencil(name string, nfree, bw int, column stencilBuilder) {
	N := e.N()
	K := utils.NewDOK(N, N)
	for k := 0; k < N; k++ {
		rows, vals := column(k)
		for i, r := range rows {
			if !utils.IsZero(vals[i]) {
				K.Set(r, k, vals[i])
			}
		}
	}
	K.SetReadOnly(name)
	csr := K.ToCSR()
	e.stencil = &csr
	e.hi = nfree
	e.bw = bw
}

// ShenDirichlet combines Legendre polynomials into functions vanishing at both
// ends, phi_k = L_k - L_{k+2} for k < N-2. The last two slots hold the
// boundary values u(-1) and u(+1) and carry the lifting functions
// (L_0 - L_1)/2 and (L_0 + L_1)/2.
type ShenDirichlet struct {
	*engine
	scaled bool
}

func NewShenDirichlet(N int, opts ...sb.Option) (b *ShenDirichlet, err error) {
	var e *engine
	if e, err = newEngine(sb.ShenDirichlet, N, 3, opts...); err != nil {
		return
	}
	b = &ShenDirichlet{engine: e, scaled: e.opts.Scaled}
	e.setStencil("ShenDirichlet stencil", N-2, 2, func(k int) ([]int, []float64) {
		switch {
		case k == N-2:
			return []int{0, 1}, []float64{0.5, -0.5}
		case k == N-1:
			return []int{0, 1}, []float64{0.5, 0.5}
		}
		s := 1.
		if b.scaled {
			s = 1 / math.Sqrt(4*float64(k)+6)
		}
		return []int{k, k + 2}, []float64{s, -s}
	})
	e.bv = sb.NewBoundaryValues(b, e.opts.BC, e.opts.Params)
	return
}

func (b *ShenDirichlet) Rebuild(N int, paddingFactor float64) (sb.Basis, error) {
	opts, err := b.rebuildOptions(N, paddingFactor)
	if err != nil {
		return nil, err
	}
	// rebuilt bases keep the current boundary values and parameters
	return NewShenDirichlet(N, append(opts, sb.WithBC(b.bv.BC()), sb.WithParams(b.bv.Params()))...)
}

// ShenNeumann has phi_k'(+-1) = 0 with
// phi_k = L_k - k(k+1)/((k+2)(k+3)) L_{k+2}. Slot 0 is the constant and is
// fixed to the configured mean; the last two slots are zero.
type ShenNeumann struct {
	*engine
	mean float64
}

func NewShenNeumann(N int, opts ...sb.Option) (b *ShenNeumann, err error) {
	var e *engine
	if e, err = newEngine(sb.ShenNeumann, N, 3, opts...); err != nil {
		return
	}
	b = &ShenNeumann{engine: e, mean: e.opts.Mean}
	e.setStencil("ShenNeumann stencil", N-2, 2, func(k int) ([]int, []float64) {
		if k >= N-2 {
			return nil, nil
		}
		fk := float64(k)
		return []int{k, k + 2}, []float64{1, -fk * (fk + 1) / ((fk + 2) * (fk + 3))}
	})
	e.adjustSP = func(sp []complex128) {
		sp[0] = complex(b.mean*e.norms[0], 0)
	}
	return
}

func (b *ShenNeumann) Mean() float64 { return b.mean }

func (b *ShenNeumann) Rebuild(N int, paddingFactor float64) (sb.Basis, error) {
	opts, err := b.rebuildOptions(N, paddingFactor)
	if err != nil {
		return nil, err
	}
	return NewShenNeumann(N, opts...)
}

// ShenBiharmonic has phi_k(+-1) = phi_k'(+-1) = 0 with
// phi_k = L_k - 2(2k+5)/(2k+7) L_{k+2} + (2k+3)/(2k+7) L_{k+4}.
// The last four slots are zero.
type ShenBiharmonic struct {
	*engine
}

func NewShenBiharmonic(N int, opts ...sb.Option) (b *ShenBiharmonic, err error) {
	var e *engine
	if e, err = newEngine(sb.ShenBiharmonic, N, 5, opts...); err != nil {
		return
	}
	b = &ShenBiharmonic{engine: e}
	e.setStencil("ShenBiharmonic stencil", N-4, 4, func(k int) ([]int, []float64) {
		if k >= N-4 {
			return nil, nil
		}
		fk := float64(k)
		return []int{k, k + 2, k + 4},
			[]float64{1, -2 * (2*fk + 5) / (2*fk + 7), (2*fk + 3) / (2*fk + 7)}
	})
	return
}

func (b *ShenBiharmonic) Rebuild(N int, paddingFactor float64) (sb.Basis, error) {
	opts, err := b.rebuildOptions(N, paddingFactor)
	if err != nil {
		return nil, err
	}
	return NewShenBiharmonic(N, opts...)
}
