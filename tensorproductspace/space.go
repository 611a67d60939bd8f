// Package tensorproductspace composes single axis bases into distributed
// multidimensional transforms over pencil decompositions.
package tensorproductspace

import (
	"fmt"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/notargets/gospectral/comm"
	"github.com/notargets/gospectral/pencil"
	sb "github.com/notargets/gospectral/spectralbase"
	"github.com/notargets/gospectral/utils"
)

// stage is one local transform: the basis planned on the local block of
// pencil in, producing the local block of pencil out.
type stage struct {
	basis   sb.Basis
	in, out *pencil.Pencil
}

type TensorProductSpace struct {
	group     comm.Group
	bases     []sb.Basis
	axes      []int
	dtype     utils.DType
	subcomm   *pencil.Subcomm
	stages    []stage
	transfers []*pencil.Transfer

	// ForwardInput is the physical layout, BackwardInput the spectral one.
	ForwardInput  *pencil.Pencil
	BackwardInput *pencil.Pencil

	forward, backward, scalarProduct *Transform
	destroyed                        bool
}

// New plans bases[i] along axis i of a distributed array. Every rank of g
// must call New with equal arguments, since planning is collective.
func New(g comm.Group, bases []sb.Basis, opts ...Option) (T *TensorProductSpace, err error) {
	var (
		cfg  = &config{}
		ndim = len(bases)
	)
	for _, opt := range opts {
		opt(cfg)
	}
	if ndim == 0 {
		return nil, fmt.Errorf("%w: no bases", sb.ErrConfig)
	}
	if cfg.axes == nil {
		cfg.axes = make([]int, ndim)
		for i := range cfg.axes {
			cfg.axes[i] = i
		}
	}
	if err = checkAxes(cfg.axes, ndim); err != nil {
		return
	}
	seen := make(map[sb.Basis]bool)
	for i, b := range bases {
		if b == nil {
			return nil, fmt.Errorf("%w: basis %d is nil", sb.ErrConfig, i)
		}
		if seen[b] {
			return nil, fmt.Errorf("%w: basis %d is used on more than one axis", sb.ErrConfig, i)
		}
		seen[b] = true
	}
	T = &TensorProductSpace{
		group: g,
		bases: append([]sb.Basis{}, bases...),
		axes:  cfg.axes,
	}
	if T.dtype, err = inferDType(bases, cfg); err != nil {
		return nil, err
	}
	if err = T.decompose(cfg.slab); err != nil {
		return nil, err
	}
	if err = T.plan(); err != nil {
		_ = T.subcomm.Free()
		return nil, err
	}
	T.buildTransforms()
	for _, st := range T.stages {
		if bv := st.basis.BoundaryValues(); bv != nil {
			if err = bv.SetTensorBcs(T); err != nil {
				_ = T.subcomm.Free()
				return nil, err
			}
		}
	}
	return
}

func checkAxes(axes []int, ndim int) error {
	if len(axes) != ndim {
		return fmt.Errorf("%w: axes %v for %d bases", sb.ErrConfig, axes, ndim)
	}
	seen := make([]bool, ndim)
	for _, a := range axes {
		if a < 0 || a >= ndim || seen[a] {
			return fmt.Errorf("%w: axes %v is not a permutation of 0..%d", sb.ErrConfig, axes, ndim-1)
		}
		seen[a] = true
	}
	return nil
}

// inferDType takes the physical dtype from the first transformed basis.
func inferDType(bases []sb.Basis, cfg *config) (dtype utils.DType, err error) {
	var (
		last  = cfg.axes[len(cfg.axes)-1]
		first = bases[last]
	)
	for i, b := range bases {
		if b.Family() == sb.FourierR2C && i != last {
			err = fmt.Errorf("%w: R2C basis on axis %d must be transformed first (axes %v)",
				sb.ErrConfig, i, cfg.axes)
			return
		}
	}
	dtype = utils.Float64
	switch first.Family() {
	case sb.FourierR2C:
		if cfg.dtypeSet && cfg.dtype != utils.Float64 {
			err = fmt.Errorf("%w: R2C basis needs float64 input, have %v", sb.ErrConfig, cfg.dtype)
		}
	case sb.FourierC2C:
		dtype = utils.Complex128
		if cfg.dtypeSet && cfg.dtype != utils.Complex128 {
			err = fmt.Errorf("%w: C2C basis needs complex128 input, have %v", sb.ErrConfig, cfg.dtype)
		}
	default:
		if cfg.dtypeSet {
			dtype = cfg.dtype
		}
	}
	return
}

// decompose splits the group so that the first transformed axis is local.
func (T *TensorProductSpace) decompose(slab bool) (err error) {
	var (
		ndim = len(T.bases)
		dims = make([]int, ndim)
	)
	if ndim == 1 && T.group.Size() != 1 {
		return fmt.Errorf("%w: a one dimensional space cannot be distributed over %d ranks",
			sb.ErrConfig, T.group.Size())
	}
	dims[T.axes[ndim-1]] = 1
	if slab {
		for i := range dims {
			dims[i] = 1
		}
		if ndim > 1 {
			dims[T.axes[0]] = 0
		}
	}
	if T.subcomm, err = pencil.NewSubcomm(T.group, dims); err != nil {
		return fmt.Errorf("%w: %v", sb.ErrConfig, err)
	}
	return
}

// plan walks the axes from the last pipeline entry to the first, planning
// each basis on its pencil and carrying the spectral sizes forward.
func (T *TensorProductSpace) plan() (err error) {
	var (
		ndim  = len(T.bases)
		shape = make([]int, ndim)
		cur   = T.dtype
		p     *pencil.Pencil
	)
	for i, b := range T.bases {
		shape[i] = b.Np()
	}
	if p, err = pencil.NewPencil(T.subcomm, shape, T.axes[ndim-1]); err != nil {
		return
	}
	T.ForwardInput = p
	for i := ndim - 1; i >= 0; i-- {
		var (
			a      = T.axes[i]
			b      = T.bases[a]
			planDT = cur
		)
		if i != ndim-1 {
			var next *pencil.Pencil
			if next, err = p.Pencil(a); err != nil {
				return
			}
			var tr *pencil.Transfer
			if tr, err = p.Transfer(next, cur); err != nil {
				return
			}
			T.transfers = append(T.transfers, tr)
			p = next
		}
		if b.Family() == sb.FourierC2C {
			planDT = utils.Complex128
		}
		if err = b.Plan(p.Subshape, a, planDT); err != nil {
			return fmt.Errorf("plan axis %d: %w", a, err)
		}
		shape[a] = b.SpectralSize()
		var out *pencil.Pencil
		if out, err = pencil.NewPencilFromGroups(p.Subcomm, shape, a); err != nil {
			return
		}
		if !utils.ShapeEqual(out.Subshape, b.OutputShape()) {
			return fmt.Errorf("%w: axis %d plans output %v on pencil %v", sb.ErrShape, a,
				b.OutputShape(), out)
		}
		T.stages = append(T.stages, stage{basis: b, in: p, out: out})
		jww.DEBUG.Printf("rank %d stage %d: %v N=%d on %v\n", T.group.Rank(), len(T.stages)-1,
			b.Family(), b.N(), p)
		cur = b.OutputDType()
		p = out
	}
	T.BackwardInput = p
	return
}

func (T *TensorProductSpace) buildTransforms() {
	var (
		last   = len(T.stages) - 1
		first  = T.stages[0]
		final  = T.stages[last]
		newArr = func(shape []int) *utils.NDArray { return utils.NewNDArray(shape...) }
	)
	build := func(name string, local func(b sb.Basis) func(in, out *utils.NDArray, fast bool) error) *Transform {
		t := &Transform{name: name, inShape: first.in.Subshape, outShape: final.out.Subshape}
		for i, st := range T.stages {
			s := step{name: st.basis.Family().String(), local: local(st.basis), out: newArr(st.out.Subshape)}
			if i < last {
				s.transfer = T.transfers[i].Forward
				s.next = newArr(T.stages[i+1].in.Subshape)
			}
			t.steps = append(t.steps, s)
		}
		return t
	}
	T.forward = build("forward", func(b sb.Basis) func(in, out *utils.NDArray, fast bool) error {
		return b.Forward
	})
	T.scalarProduct = build("scalar product", func(b sb.Basis) func(in, out *utils.NDArray, fast bool) error {
		return b.ScalarProduct
	})
	T.backward = &Transform{name: "backward", inShape: final.out.Subshape, outShape: first.in.Subshape}
	for i := last; i >= 0; i-- {
		st := T.stages[i]
		s := step{name: st.basis.Family().String(), local: st.basis.Backward, out: newArr(st.in.Subshape)}
		if i > 0 {
			s.transfer = T.transfers[i-1].Backward
			s.next = newArr(T.stages[i-1].out.Subshape)
		}
		T.backward.steps = append(T.backward.steps, s)
	}
}

func (T *TensorProductSpace) alive() error {
	if T.destroyed {
		return ErrDestroyed
	}
	return nil
}

// Forward transforms the local physical block in into the local spectral
// block out. Collective.
func (T *TensorProductSpace) Forward(in, out *utils.NDArray, fast bool) (err error) {
	if err = T.alive(); err != nil {
		return
	}
	return T.forward.Execute(in, out, fast)
}

func (T *TensorProductSpace) Backward(in, out *utils.NDArray, fast bool) (err error) {
	if err = T.alive(); err != nil {
		return
	}
	return T.backward.Execute(in, out, fast)
}

func (T *TensorProductSpace) ScalarProduct(in, out *utils.NDArray, fast bool) (err error) {
	if err = T.alive(); err != nil {
		return
	}
	return T.scalarProduct.Execute(in, out, fast)
}

// Stages, StageForward and StageTransfer expose the planned pipeline to the
// boundary value wiring.
func (T *TensorProductSpace) Stages() (s []sb.Stage) {
	for _, st := range T.stages {
		s = append(s, sb.Stage{Basis: st.basis, Start: utils.CopyShape(st.in.Substart)})
	}
	return
}

func (T *TensorProductSpace) StageForward(i int, in, out *utils.NDArray) error {
	return T.stages[i].basis.Forward(in, out, true)
}

func (T *TensorProductSpace) StageTransfer(i int, a, b *utils.NDArray) error {
	return T.transfers[i].Forward(a, b)
}

func (T *TensorProductSpace) Bases() []sb.Basis { return append([]sb.Basis{}, T.bases...) }

// Axes is the pipeline order; Forward runs it from the last entry.
func (T *TensorProductSpace) Axes() []int { return utils.CopyShape(T.axes) }

func (T *TensorProductSpace) DType() utils.DType { return T.dtype }

func (T *TensorProductSpace) Group() comm.Group { return T.group }

// Dims is the number of ranks along each axis of the decomposition.
func (T *TensorProductSpace) Dims() []int { return utils.CopyShape(T.subcomm.Dims) }

// Destroy releases the sub groups of the space. Calling it again is a no-op.
func (T *TensorProductSpace) Destroy() (err error) {
	if T.destroyed {
		return
	}
	T.destroyed = true
	return T.subcomm.Free()
}
