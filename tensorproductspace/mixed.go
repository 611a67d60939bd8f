package tensorproductspace

import (
	"fmt"

	"go.uber.org/multierr"

	sb "github.com/notargets/gospectral/spectralbase"
	"github.com/notargets/gospectral/utils"
)

// MixedTensorProductSpace transforms fields with one component per space.
type MixedTensorProductSpace struct {
	Spaces []*TensorProductSpace
}

func NewMixed(spaces ...*TensorProductSpace) (M *MixedTensorProductSpace, err error) {
	if len(spaces) == 0 {
		return nil, fmt.Errorf("%w: mixed space without components", sb.ErrConfig)
	}
	g := spaces[0].group
	for i, T := range spaces {
		if T.group != g {
			return nil, fmt.Errorf("%w: component %d lives on another process group", sb.ErrConfig, i)
		}
	}
	return &MixedTensorProductSpace{Spaces: append([]*TensorProductSpace{}, spaces...)}, nil
}

// NewVector returns the mixed space with one component per dimension of T.
func NewVector(T *TensorProductSpace) (*MixedTensorProductSpace, error) {
	spaces := make([]*TensorProductSpace, len(T.bases))
	for i := range spaces {
		spaces[i] = T
	}
	return NewMixed(spaces...)
}

func (M *MixedTensorProductSpace) NumComponents() int { return len(M.Spaces) }

func (M *MixedTensorProductSpace) NewArray(spectral bool) (u []*utils.NDArray) {
	u = make([]*utils.NDArray, len(M.Spaces))
	for i, T := range M.Spaces {
		u[i] = T.NewArray(spectral)
	}
	return
}

func (M *MixedTensorProductSpace) each(in, out []*utils.NDArray,
	f func(T *TensorProductSpace, a, b *utils.NDArray) error) (err error) {
	if len(in) != len(M.Spaces) || len(out) != len(M.Spaces) {
		return fmt.Errorf("%w: %d and %d components for %d spaces", sb.ErrShape, len(in), len(out), len(M.Spaces))
	}
	for i, T := range M.Spaces {
		if err = f(T, in[i], out[i]); err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
	}
	return
}

func (M *MixedTensorProductSpace) Forward(in, out []*utils.NDArray, fast bool) error {
	return M.each(in, out, func(T *TensorProductSpace, a, b *utils.NDArray) error {
		return T.Forward(a, b, fast)
	})
}

func (M *MixedTensorProductSpace) Backward(in, out []*utils.NDArray, fast bool) error {
	return M.each(in, out, func(T *TensorProductSpace, a, b *utils.NDArray) error {
		return T.Backward(a, b, fast)
	})
}

func (M *MixedTensorProductSpace) ScalarProduct(in, out []*utils.NDArray, fast bool) error {
	return M.each(in, out, func(T *TensorProductSpace, a, b *utils.NDArray) error {
		return T.ScalarProduct(a, b, fast)
	})
}

// Convolve multiplies the fields component by component.
func (M *MixedTensorProductSpace) Convolve(a, b, ab []*utils.NDArray, fast bool) (err error) {
	if n := len(M.Spaces); len(a) != n || len(b) != n || len(ab) != n {
		return fmt.Errorf("%w: %d, %d and %d components for %d spaces", sb.ErrShape,
			len(a), len(b), len(ab), n)
	}
	for i, T := range M.Spaces {
		if err = T.Convolve(a[i], b[i], ab[i], fast); err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
	}
	return
}

// Destroy releases every distinct component space once.
func (M *MixedTensorProductSpace) Destroy() (err error) {
	seen := make(map[*TensorProductSpace]bool)
	for _, T := range M.Spaces {
		if seen[T] {
			continue
		}
		seen[T] = true
		err = multierr.Append(err, T.Destroy())
	}
	return
}
