package legendre

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/integrate/quad"

	sb "github.com/notargets/gospectral/spectralbase"
	"github.com/notargets/gospectral/utils"
)

func TestQuadrature(t *testing.T) {
	{ // Gauss nodes against gonum's rule
		for N := 1; N < 14; N++ {
			x, w := LegendreGauss(N)
			xx, ww := make([]float64, N), make([]float64, N)
			quad.Legendre{}.FixedLocations(xx, ww, -1, 1)
			// gonum returns the nodes from +1 down to -1
			for i, j := 0, N-1; i < j; i, j = i+1, j-1 {
				xx[i], xx[j] = xx[j], xx[i]
				ww[i], ww[j] = ww[j], ww[i]
			}
			assert.InDeltaSlice(t, xx, x, 1e-12)
			assert.InDeltaSlice(t, ww, w, 1e-12)
		}
	}
	{ // Gauss-Lobatto integrates x^p exactly for p <= 2N-3
		for N := 2; N < 14; N++ {
			x, w := LegendreGaussLobatto(N)
			assert.Equal(t, -1., x[0])
			assert.Equal(t, 1., x[N-1])
			for p := 0; p <= 2*N-3; p++ {
				var sum, exact float64
				for j := range x {
					sum += w[j] * math.Pow(x[j], float64(p))
				}
				if p%2 == 0 {
					exact = 2 / float64(p+1)
				}
				assert.InDelta(t, exact, sum, 1e-12, "N=%d p=%d", N, p)
			}
		}
	}
	{ // Recurrence
		x := 0.3
		assert.InDelta(t, 0.5*(3*x*x-1), LegendreP(2, x), 1e-15)
		assert.InDelta(t, 0.5*(5*x*x*x-3*x), LegendreP(3, x), 1e-15)
		L := make([]float64, 5)
		legendreAll(x, L)
		for k := range L {
			assert.InDelta(t, LegendreP(k, x), L[k], 1e-15)
		}
	}
}

type family struct {
	name  string
	nfree int // number of trailing fixed slots
	build func(N int, opts ...sb.Option) (sb.Basis, error)
}

var families = []family{
	{"Legendre", 0, func(N int, o ...sb.Option) (sb.Basis, error) { return New(N, o...) }},
	{"ShenDirichlet", 2, func(N int, o ...sb.Option) (sb.Basis, error) { return NewShenDirichlet(N, o...) }},
	{"ShenNeumann", 2, func(N int, o ...sb.Option) (sb.Basis, error) { return NewShenNeumann(N, o...) }},
	{"ShenBiharmonic", 4, func(N int, o ...sb.Option) (sb.Basis, error) { return NewShenBiharmonic(N, o...) }},
}

func planned(t *testing.T, f family, N int, opts ...sb.Option) sb.Basis {
	b, err := f.build(N, opts...)
	require.NoError(t, err)
	require.NoError(t, b.Plan([]int{N}, 0, utils.Float64))
	return b
}

// admissible returns random coefficients with the fixed slots of the family.
func admissible(rnd *rand.Rand, f family, N int) (c *utils.NDArray) {
	c = utils.NewNDArray(N)
	for k := 0; k < N-f.nfree; k++ {
		c.Data[k] = complex(rnd.Float64()-0.5, 0)
	}
	if f.name == "ShenNeumann" {
		c.Data[0] = 0
	}
	return
}

func TestRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, f := range families {
		for _, q := range []sb.Quad{sb.LG, sb.GL} {
			for _, N := range []int{8, 9, 16} {
				for _, fast := range []bool{true, false} {
					b := planned(t, f, N, sb.WithQuad(q))
					c := admissible(rnd, f, N)
					u := utils.NewNDArray(N)
					cc := utils.NewNDArray(N)
					require.NoError(t, b.Backward(c, u, fast))
					require.NoError(t, b.Forward(u, cc, fast))
					assert.True(t, c.AllClose(cc, 1e-11), "%s %v N=%d fast=%v: %v", f.name, q, N, fast,
						c.MaxAbsDiff(cc))
				}
			}
		}
	}
}

func TestSmallSizes(t *testing.T) {
	rnd := rand.New(rand.NewSource(5))
	minN := map[string]int{"Legendre": 2, "ShenDirichlet": 3, "ShenNeumann": 3, "ShenBiharmonic": 5}
	for _, f := range families {
		for _, q := range []sb.Quad{sb.LG, sb.GL} {
			for N := minN[f.name]; N <= 8; N++ {
				for _, fast := range []bool{true, false} {
					b := planned(t, f, N, sb.WithQuad(q))
					c := admissible(rnd, f, N)
					u, cc := utils.NewNDArray(N), utils.NewNDArray(N)
					require.NoError(t, b.Backward(c, u, fast))
					require.NoError(t, b.Forward(u, cc, fast))
					assert.True(t, c.AllClose(cc, 1e-11), "%s %v N=%d fast=%v: %v", f.name, q, N, fast,
						c.MaxAbsDiff(cc))
					require.NoError(t, b.ApplyInverseMass(cc))
				}
			}
		}
	}
}

func TestFastVersusExact(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	for _, f := range families {
		for _, q := range []sb.Quad{sb.LG, sb.GL} {
			for N := f.nfree + 3; N < 20; N++ {
				b := planned(t, f, N, sb.WithQuad(q))
				u := utils.NewNDArray(N)
				for j := range u.Data {
					u.Data[j] = complex(rnd.Float64(), 0)
				}
				fast, exact := utils.NewNDArray(N), utils.NewNDArray(N)
				require.NoError(t, b.ScalarProduct(u, fast, true))
				require.NoError(t, b.ScalarProduct(u, exact, false))
				assert.True(t, fast.AllClose(exact, 1e-12), "%s scalar product N=%d", f.name, N)
				require.NoError(t, b.Forward(u, fast, true))
				require.NoError(t, b.Forward(u, exact, false))
				assert.True(t, fast.AllClose(exact, 1e-10), "%s forward N=%d: %v", f.name, N,
					fast.MaxAbsDiff(exact))
				uf, ue := utils.NewNDArray(N), utils.NewNDArray(N)
				require.NoError(t, b.Backward(fast, uf, true))
				require.NoError(t, b.Backward(fast, ue, false))
				assert.True(t, uf.AllClose(ue, 1e-11), "%s backward N=%d", f.name, N)
			}
		}
	}
}

func TestDirichletBoundary(t *testing.T) {
	{ // Endpoints reproduce the boundary values
		N := 12
		b, err := NewShenDirichlet(N, sb.WithQuad(sb.GL), sb.WithBC(sb.Numbers(1, -1)))
		require.NoError(t, err)
		require.NoError(t, b.Plan([]int{N}, 0, utils.Float64))
		assert.True(t, b.BoundaryValues().HasNonhomogeneousBcs())
		x := b.Mesh()
		u := utils.NewNDArray(N)
		for j, xj := range x {
			u.Data[j] = complex(math.Cos(math.Pi*xj/2)-xj, 0)
		}
		c := utils.NewNDArray(N)
		for _, fast := range []bool{true, false} {
			require.NoError(t, b.Forward(u, c, fast))
			assert.Equal(t, complex(1, 0), c.Data[N-2])
			assert.Equal(t, complex(-1, 0), c.Data[N-1])
			uu := utils.NewNDArray(N)
			require.NoError(t, b.Backward(c, uu, fast))
			assert.InDelta(t, 1., real(uu.Data[0]), 1e-12)
			assert.InDelta(t, -1., real(uu.Data[N-1]), 1e-12)
			ends, err := b.Eval([]float64{-1, 1}, c.Data)
			require.NoError(t, err)
			assert.InDelta(t, 1., real(ends[0]), 1e-12)
			assert.InDelta(t, -1., real(ends[1]), 1e-12)
		}
		require.NoError(t, b.BoundaryValues().UpdateBcs(sb.Numbers(2, 3)))
		require.NoError(t, b.Forward(u, c, true))
		assert.Equal(t, complex(3, 0), c.Data[N-1])
	}
	{ // Homogeneous boundary values leave the slots zero
		N := 10
		b, err := NewShenDirichlet(N, sb.WithScaled())
		require.NoError(t, err)
		require.NoError(t, b.Plan([]int{N}, 0, utils.Float64))
		assert.False(t, b.BoundaryValues().HasNonhomogeneousBcs())
		u := utils.NewNDArray(N)
		for j, xj := range b.Mesh() {
			u.Data[j] = complex(1-xj*xj, 0)
		}
		c := utils.NewNDArray(N)
		require.NoError(t, b.Forward(u, c, true))
		assert.Equal(t, complex(0, 0), c.Data[N-2])
		assert.Equal(t, complex(0, 0), c.Data[N-1])
		// 1 - x^2 = 2/3 (L_0 - L_2) and phi_0 is scaled by 1/sqrt(6)
		assert.InDelta(t, 2./3*math.Sqrt(6), real(c.Data[0]), 1e-12)
	}
}

func TestNeumannMean(t *testing.T) {
	N := 12
	b, err := NewShenNeumann(N, sb.WithMean(0.25))
	require.NoError(t, err)
	require.NoError(t, b.Plan([]int{N}, 0, utils.Float64))
	u := utils.NewNDArray(N)
	for j, xj := range b.Mesh() {
		u.Data[j] = complex(math.Cos(math.Pi*xj), 0)
	}
	c := utils.NewNDArray(N)
	for _, fast := range []bool{true, false} {
		require.NoError(t, b.Forward(u, c, fast))
		assert.InDelta(t, 0.25, real(c.Data[0]), 1e-13)
		assert.Equal(t, complex(0, 0), c.Data[N-1])
		assert.Equal(t, complex(0, 0), c.Data[N-2])
	}
	assert.Equal(t, 0.25, b.Mean())
}

func TestDerivative(t *testing.T) {
	N := 6
	b, err := New(N, sb.WithDomain(0, 1))
	require.NoError(t, err)
	require.NoError(t, b.Plan([]int{N}, 0, utils.Float64))
	assert.Equal(t, 2., b.DomainFactor())
	var (
		tt = []float64{0.1, 0.5, 0.8}
		V  = b.Vandermonde(b.MapReferenceDomain(tt))
		dV = b.GetVandermondeBasisDerivative(V, 1)
		d2 = b.GetVandermondeBasisDerivative(V, 2)
	)
	for j, tj := range tt {
		x := 2*tj - 1
		// d/dt L_3(2t-1) = 2 * (15x^2 - 3)/2
		assert.InDelta(t, 15*x*x-3, real(dV.At(j, 3)), 1e-12)
		assert.InDelta(t, 4*15*x, real(d2.At(j, 3)), 1e-11)
	}
	{ // Shen functions vanish at the ends with their derivatives
		bh, err := NewShenBiharmonic(9)
		require.NoError(t, err)
		V := bh.Vandermonde([]float64{-1, 1})
		P := bh.GetVandermondeBasis(V)
		dP := bh.GetVandermondeBasisDerivative(V, 1)
		for k := 0; k < 5; k++ {
			for j := 0; j < 2; j++ {
				assert.InDelta(t, 0., real(P.At(j, k)), 1e-12)
				assert.InDelta(t, 0., real(dP.At(j, k)), 1e-11)
			}
		}
		nm, err := NewShenNeumann(8)
		require.NoError(t, err)
		dP = nm.GetVandermondeBasisDerivative(nm.Vandermonde([]float64{-1, 1}), 1)
		for k := 0; k < 6; k++ {
			assert.InDelta(t, 0., real(dP.At(0, k)), 1e-12)
			assert.InDelta(t, 0., real(dP.At(1, k)), 1e-12)
		}
	}
}

func TestLegendreNorms(t *testing.T) {
	N := 7
	b, err := New(N, sb.WithQuad(sb.GL))
	require.NoError(t, err)
	require.NoError(t, b.Plan([]int{N}, 0, utils.Float64))
	M, err := b.DenseMass(0, N)
	require.NoError(t, err)
	for i := 0; i < N; i++ {
		for j := 0; j < N; j++ {
			want := 0.
			if i == j {
				want = b.norms[i]
			}
			assert.InDelta(t, want, M.At(i, j), 1e-13)
		}
	}
	assert.InDelta(t, 2./6, b.norms[N-1], 1e-15)
}

func TestErrors(t *testing.T) {
	_, err := NewShenDirichlet(2)
	assert.ErrorIs(t, err, sb.ErrInvalidSize)
	_, err = NewShenBiharmonic(4)
	assert.ErrorIs(t, err, sb.ErrInvalidSize)
	_, err = New(8, sb.WithQuad(sb.GC))
	assert.ErrorIs(t, err, sb.ErrUnsupportedQuad)
	_, err = New(8, sb.WithPadding(1.5))
	assert.ErrorIs(t, err, sb.ErrConfig)

	b, err := New(8)
	require.NoError(t, err)
	u, c := utils.NewNDArray(8), utils.NewNDArray(8)
	assert.ErrorIs(t, b.Forward(u, c, true), sb.ErrNotPlanned)
	assert.ErrorIs(t, b.Plan([]int{7}, 0, utils.Float64), sb.ErrShape)
	require.NoError(t, b.Plan([]int{8}, 0, utils.Float64))
	assert.ErrorIs(t, b.Forward(u, utils.NewNDArray(9), true), sb.ErrShape)
	_, err = b.Eval([]float64{0}, make([]complex128, 3))
	assert.ErrorIs(t, err, sb.ErrShape)

	r, err := b.Rebuild(12, 1)
	require.NoError(t, err)
	assert.Equal(t, 12, r.N())
	assert.False(t, r.Planned())
	_, err = b.Rebuild(12, 1.5)
	assert.ErrorIs(t, err, sb.ErrConfig)
}
