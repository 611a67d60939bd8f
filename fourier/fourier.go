package fourier

import (
	"fmt"
	"math"
	"math/cmplx"

	jww "github.com/spf13/jwalterweatherman"
	"gonum.org/v1/gonum/mat"

	sb "github.com/notargets/gospectral/spectralbase"
	"github.com/notargets/gospectral/utils"
)

// fourierBase holds what R2C and C2C share: equispaced points on [0, 2pi),
// an identity mass matrix and forward normalisation by the padded size.
type fourierBase struct {
	*sb.Base
	opts *sb.Options
}

func newFourierBase(family sb.Family, N int, opts ...sb.Option) (fb fourierBase, err error) {
	o := sb.NewOptions(opts...)
	if N < 1 {
		err = fmt.Errorf("%w: %v needs N >= 1, have %d", sb.ErrInvalidSize, family, N)
		return
	}
	if o.QuadSet && o.Quad != sb.GC {
		err = fmt.Errorf("%w: %v for %v", sb.ErrUnsupportedQuad, o.Quad, family)
		return
	}
	if o.PaddingFactor < 1 {
		err = fmt.Errorf("%w: padding factor %v below one", sb.ErrConfig, o.PaddingFactor)
		return
	}
	if o.DealiasDirect && o.PaddingFactor > 1+1e-8 {
		jww.WARN.Printf("%v N=%d: direct dealiasing is ignored with padding factor %v\n",
			family, N, o.PaddingFactor)
	}
	fb = fourierBase{
		Base: sb.NewBase(family, N, sb.GC, o.Domain, [2]float64{0, 2 * math.Pi},
			o.PaddingFactor, o.DealiasDirect),
		opts: o,
	}
	return
}

func (fb *fourierBase) PointsAndWeights(N int, scaled bool) (points, weights []float64, err error) {
	if N < 1 {
		err = fmt.Errorf("%w: Fourier points need N >= 1, have %d", sb.ErrInvalidSize, N)
		return
	}
	points = make([]float64, N)
	weights = utils.ConstArray(N, 2*math.Pi/float64(N))
	for j := range points {
		points[j] = 2 * math.Pi * float64(j) / float64(N)
	}
	if scaled {
		points = fb.MapTrueDomain(points)
	}
	return
}

// vandermonde evaluates exp(i k x) for the wavenumbers k. The Nyquist column
// of an even size is the symmetric cos(N/2 x).
func (fb *fourierBase) vandermonde(x []float64) (V *mat.CDense) {
	var (
		k = fb.Wavenumbers(false, false)
		N = fb.N()
	)
	V = mat.NewCDense(len(x), len(k), nil)
	for j, xj := range x {
		for c, kc := range k {
			if N%2 == 0 && c == N/2 {
				V.Set(j, c, complex(math.Cos(float64(N/2)*xj), 0))
				continue
			}
			V.Set(j, c, cmplx.Exp(complex(0, kc*xj)))
		}
	}
	return
}

func (fb *fourierBase) GetVandermondeBasis(V *mat.CDense) *mat.CDense { return V }

// GetVandermondeBasisDerivative scales column l by (i l)^k with wavenumbers in
// the true domain. Odd orders drop the Nyquist column.
func (fb *fourierBase) GetVandermondeBasisDerivative(V *mat.CDense, k int) (dV *mat.CDense) {
	var (
		l      = fb.Wavenumbers(true, false)
		N      = fb.N()
		nr, nc = V.Dims()
	)
	dV = mat.NewCDense(nr, nc, nil)
	dV.Copy(V)
	if k == 0 {
		return
	}
	for c := 0; c < nc; c++ {
		f := utils.IPOW(complex(0, l[c]), k)
		if N%2 == 0 && c == N/2 && k%2 == 1 {
			f = 0
		}
		for j := 0; j < nr; j++ {
			dV.Set(j, c, dV.At(j, c)*f)
		}
	}
	return
}

func (fb *fourierBase) ApplyInverseMass(a *utils.NDArray) (err error) {
	if !fb.Planned() {
		return fmt.Errorf("%w: %v N=%d", sb.ErrNotPlanned, fb.Family(), fb.N())
	}
	return utils.CheckShape(a, fb.OutputShape(), "mass input")
}

// exactForward is the Vandermonde projection, normalised like the FFT path.
func (fb *fourierBase) exactForward(in, out *utils.NDArray) (err error) {
	if err = fb.ExactScalarProduct(in, out); err != nil {
		return
	}
	out.Scale(complex(0.5/math.Pi, 0))
	return
}

// dealiasedRange returns the modes zeroed by direct dealiasing, empty when
// disabled or when padding takes care of aliasing.
func (fb *fourierBase) dealiasedRange() (lo, hi int) {
	if !fb.DealiasDirect() || fb.IsPadded() {
		return
	}
	N := fb.N()
	if fb.Family() == sb.FourierR2C {
		return N / 3, N/2 + 1
	}
	return N / 3, 2 * N / 3
}

func (fb *fourierBase) dealias(c []complex128) {
	lo, hi := fb.dealiasedRange()
	for i := lo; i < hi && i < len(c); i++ {
		c[i] = 0
	}
}

func (fb *fourierBase) Slice() (start, end int) { return 0, fb.SpectralSize() }

func (fb *fourierBase) BoundaryValues() *sb.BoundaryValues { return nil }
