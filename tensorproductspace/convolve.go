package tensorproductspace

import (
	"fmt"

	sb "github.com/notargets/gospectral/spectralbase"
	"github.com/notargets/gospectral/utils"
)

// checkPadding requires every periodic axis to be padded enough for an alias
// free quadratic product, a factor of at least 3/2 less one mode.
func (T *TensorProductSpace) checkPadding() error {
	for i, b := range T.bases {
		if !b.Family().IsPeriodic() {
			continue
		}
		need := 1.5 - 1/float64(b.N())
		if b.PaddingFactor() < need-1e-12 {
			return fmt.Errorf("%w: axis %d has padding factor %v, need %v",
				sb.ErrInsufficientPadding, i, b.PaddingFactor(), need)
		}
	}
	return nil
}

// Convolve computes the spectral coefficients of the product of the fields
// with coefficients a and b, truncated to the spectral shape of the space.
func (T *TensorProductSpace) Convolve(a, b, ab *utils.NDArray, fast bool) (err error) {
	if err = T.alive(); err != nil {
		return
	}
	if err = T.checkPadding(); err != nil {
		return
	}
	var (
		ua = T.NewArray(false)
		ub = T.NewArray(false)
	)
	if err = T.Backward(a, ua, fast); err != nil {
		return
	}
	if err = T.Backward(b, ub, fast); err != nil {
		return
	}
	return T.Forward(ua.ElMul(ub), ab, fast)
}

// Convolve multiplies fields of a padded space without truncating the
// product: the result lives in an unpadded space with the padded sizes.
type Convolve struct {
	Padded *TensorProductSpace
	Full   *TensorProductSpace
}

func NewConvolve(padded *TensorProductSpace) (c *Convolve, err error) {
	if err = padded.alive(); err != nil {
		return
	}
	if err = padded.checkPadding(); err != nil {
		return
	}
	bases := make([]sb.Basis, len(padded.bases))
	for i, b := range padded.bases {
		if bases[i], err = b.Rebuild(b.Np(), 1); err != nil {
			return nil, fmt.Errorf("convolve axis %d: %w", i, err)
		}
	}
	c = &Convolve{Padded: padded}
	if c.Full, err = New(padded.group, bases, WithAxes(padded.axes...),
		WithDType(padded.dtype)); err != nil {
		return nil, err
	}
	return
}

// Apply writes the product of a and b, spectral arrays of the padded space,
// into ab, a spectral array of the full space.
func (c *Convolve) Apply(a, b, ab *utils.NDArray, fast bool) (err error) {
	var (
		ua = c.Padded.NewArray(false)
		ub = c.Padded.NewArray(false)
	)
	if err = c.Padded.Backward(a, ua, fast); err != nil {
		return
	}
	if err = c.Padded.Backward(b, ub, fast); err != nil {
		return
	}
	return c.Full.Forward(ua.ElMul(ub), ab, fast)
}

func (c *Convolve) Destroy() error { return c.Full.Destroy() }
