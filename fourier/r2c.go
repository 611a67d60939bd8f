package fourier

import (
	"github.com/notargets/gospectral/utils"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"

	sb "github.com/notargets/gospectral/spectralbase"
)

// R2C is the real to complex Fourier basis. Spectral arrays hold the
// wavenumbers 0..N/2; the negative half is implied by conjugate symmetry.
type R2C struct {
	fourierBase
	fft *fourier.FFT
}

func NewR2C(N int, opts ...sb.Option) (b *R2C, err error) {
	var fb fourierBase
	if fb, err = newFourierBase(sb.FourierR2C, N, opts...); err != nil {
		return
	}
	b = &R2C{fourierBase: fb}
	b.fft = fourier.NewFFT(b.Np())
	b.Bind(b)
	return
}

func (b *R2C) Vandermonde(x []float64) *mat.CDense { return b.vandermonde(x) }

// HermitianWeights counts every interior mode twice.
func (b *R2C) HermitianWeights() (w []float64) {
	N := b.N()
	w = utils.ConstArray(N/2+1, 2)
	w[0] = 1
	if N%2 == 0 {
		w[N/2] = 1
	}
	return
}

func (b *R2C) Forward(in, out *utils.NDArray, fast bool) (err error) {
	if !fast {
		return b.exactForward(in, out)
	}
	return b.ScalarProduct(in, out, true)
}

func (b *R2C) ScalarProduct(in, out *utils.NDArray, fast bool) (err error) {
	if !fast {
		return b.exactForward(in, out)
	}
	if err = b.CheckPlanned(in, out, b.InputShape(), b.OutputShape()); err != nil {
		return
	}
	var (
		N, Np  = b.N(), b.Np()
		seq    = make([]float64, Np)
		coeff  = make([]complex128, Np/2+1)
		scale  = complex(1/float64(Np), 0)
		padded = b.IsPadded()
	)
	return utils.ApplyAlongAxis(in, out, b.Axis(), func(_ int, u, c []complex128) error {
		for j, val := range u {
			seq[j] = real(val)
		}
		b.fft.Coefficients(coeff, seq)
		copy(c, coeff[:N/2+1])
		if padded && N%2 == 0 {
			c[N/2] = complex(2*real(c[N/2]), 0)
		}
		for k := range c {
			c[k] *= scale
		}
		return nil
	})
}

func (b *R2C) Backward(in, out *utils.NDArray, fast bool) (err error) {
	if !fast {
		return b.ExactBackward(in, out, b.HermitianWeights(), func(_ int, c []complex128) {
			b.dealias(c)
		})
	}
	if err = b.CheckPlanned(in, out, b.OutputShape(), b.InputShape()); err != nil {
		return
	}
	var (
		N, Np = b.N(), b.Np()
		coeff = make([]complex128, Np/2+1)
		seq   = make([]float64, Np)
	)
	return utils.ApplyAlongAxis(in, out, b.Axis(), func(_ int, c, u []complex128) error {
		for k := range coeff {
			coeff[k] = 0
		}
		copy(coeff, c)
		b.dealias(coeff[:N/2+1])
		if b.IsPadded() && N%2 == 0 {
			coeff[N/2] = complex(0.5*real(coeff[N/2]), 0)
		}
		b.fft.Sequence(seq, coeff)
		for j, val := range seq {
			u[j] = complex(val, 0)
		}
		return nil
	})
}

func (b *R2C) Eval(x []float64, coeffs []complex128) ([]complex128, error) {
	return b.EvalExpansion(x, coeffs, b.HermitianWeights())
}

func (b *R2C) Rebuild(N int, paddingFactor float64) (sb.Basis, error) {
	return NewR2C(N, append(b.opts.Apply(), sb.WithPadding(paddingFactor))...)
}
