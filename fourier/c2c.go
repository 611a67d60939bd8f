package fourier

import (
	"github.com/notargets/gospectral/utils"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"

	sb "github.com/notargets/gospectral/spectralbase"
)

// C2C is the complex Fourier basis with wavenumbers in FFT order.
type C2C struct {
	fourierBase
	fft *fourier.CmplxFFT
}

func NewC2C(N int, opts ...sb.Option) (b *C2C, err error) {
	var fb fourierBase
	if fb, err = newFourierBase(sb.FourierC2C, N, opts...); err != nil {
		return
	}
	b = &C2C{fourierBase: fb}
	b.fft = fourier.NewCmplxFFT(b.Np())
	b.Bind(b)
	return
}

func (b *C2C) Vandermonde(x []float64) *mat.CDense { return b.vandermonde(x) }

func (b *C2C) Forward(in, out *utils.NDArray, fast bool) (err error) {
	if !fast {
		return b.exactForward(in, out)
	}
	return b.ScalarProduct(in, out, true)
}

func (b *C2C) ScalarProduct(in, out *utils.NDArray, fast bool) (err error) {
	if !fast {
		return b.exactForward(in, out)
	}
	if err = b.CheckPlanned(in, out, b.InputShape(), b.OutputShape()); err != nil {
		return
	}
	var (
		N, Np = b.N(), b.Np()
		coeff = make([]complex128, Np)
		scale = complex(1/float64(Np), 0)
	)
	return utils.ApplyAlongAxis(in, out, b.Axis(), func(_ int, u, c []complex128) error {
		b.fft.Coefficients(coeff, u)
		if !b.IsPadded() {
			copy(c, coeff)
		} else {
			// Fold the +N/2 and -N/2 halves of the padded spectrum
			for k := range c {
				c[k] = 0
			}
			copy(c[:N/2+1], coeff[:N/2+1])
			for k := 0; k < N/2; k++ {
				c[N-N/2+k] += coeff[Np-N/2+k]
			}
		}
		for k := range c {
			c[k] *= scale
		}
		return nil
	})
}

func (b *C2C) Backward(in, out *utils.NDArray, fast bool) (err error) {
	if !fast {
		return b.ExactBackward(in, out, nil, func(_ int, c []complex128) {
			b.dealias(c)
		})
	}
	if err = b.CheckPlanned(in, out, b.OutputShape(), b.InputShape()); err != nil {
		return
	}
	var (
		N, Np = b.N(), b.Np()
		work  = make([]complex128, N)
		coeff = make([]complex128, Np)
	)
	return utils.ApplyAlongAxis(in, out, b.Axis(), func(_ int, c, u []complex128) error {
		copy(work, c)
		b.dealias(work)
		if !b.IsPadded() {
			copy(coeff, work)
		} else {
			for k := range coeff {
				coeff[k] = 0
			}
			copy(coeff[:N/2+1], work[:N/2+1])
			copy(coeff[Np-N/2:], work[N-N/2:])
			if N%2 == 0 {
				coeff[N/2] *= 0.5
				coeff[Np-N/2] *= 0.5
			}
		}
		b.fft.Sequence(u, coeff)
		return nil
	})
}

func (b *C2C) Eval(x []float64, coeffs []complex128) ([]complex128, error) {
	return b.EvalExpansion(x, coeffs, nil)
}

func (b *C2C) Rebuild(N int, paddingFactor float64) (sb.Basis, error) {
	return NewC2C(N, append(b.opts.Apply(), sb.WithPadding(paddingFactor))...)
}
