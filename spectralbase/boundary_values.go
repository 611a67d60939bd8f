package spectralbase

import (
	"fmt"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/notargets/gospectral/utils"
)

type BCKind uint8

const (
	BCNumber BCKind = iota
	BCExpr
	BCArray
)

// Evaluator computes a boundary value from named variables. Coordinates are
// bound as x, y and z for axes 0, 1 and 2, next to any extra parameters.
type Evaluator interface {
	Eval(vars map[string]float64) (float64, error)
	Symbols() []string
}

// BC is one boundary value: a constant, an expression over the coordinates of
// the boundary face, or an array over the global face shape.
type BC struct {
	Kind  BCKind
	Value float64
	Expr  Evaluator
	Array *utils.NDArray
}

func Number(val float64) BC        { return BC{Kind: BCNumber, Value: val} }
func Expr(e Evaluator) BC          { return BC{Kind: BCExpr, Expr: e} }
func Array(face *utils.NDArray) BC { return BC{Kind: BCArray, Array: face} }
func Numbers(a, b float64) [2]BC   { return [2]BC{Number(a), Number(b)} }

func (bc BC) String() string {
	switch bc.Kind {
	case BCNumber:
		return fmt.Sprintf("%g", bc.Value)
	case BCExpr:
		return fmt.Sprintf("%v", bc.Expr)
	}
	return fmt.Sprintf("array%v", bc.Array.Shape)
}

// IsZero reports an identically zero boundary value. Expressions are only
// zero when they are constant and evaluate to zero.
func (bc BC) IsZero() bool {
	switch bc.Kind {
	case BCNumber:
		return bc.Value == 0
	case BCExpr:
		if len(bc.Expr.Symbols()) != 0 {
			return false
		}
		val, err := bc.Expr.Eval(nil)
		return err == nil && val == 0
	case BCArray:
		return bc.Array == nil || bc.Array.MaxAbs() == 0
	}
	return true
}

// Stage is one local transform of a pipeline, in execution order. Start is the
// global offset of the local block the stage works on.
type Stage struct {
	Basis Basis
	Start []int
}

// Pipeline exposes the planned stages of a multidimensional transform.
// StageForward and StageTransfer are the very objects the forward transform
// runs; StageTransfer is collective.
type Pipeline interface {
	Stages() []Stage
	StageForward(i int, in, out *utils.NDArray) error
	StageTransfer(i int, a, b *utils.NDArray) error
}

// BoundaryValues holds the inhomogeneous Dirichlet data of one basis. bcs is
// the data as seen by the basis' own stage, that is after the stages executed
// before it; bcsFinal is the data after the whole forward pipeline.
type BoundaryValues struct {
	basis      Basis
	bc         [2]BC
	params     map[string]float64
	bcs        [2]*utils.NDArray
	bcsFinal   [2]*utils.NDArray
	finalStart int
	pipeline   Pipeline
	ready      bool
}

func NewBoundaryValues(b Basis, bc [2]BC, params map[string]float64) (bv *BoundaryValues) {
	bv = &BoundaryValues{
		basis:  b,
		params: make(map[string]float64, len(params)),
	}
	bv.bc = bc
	for key, val := range params {
		bv.params[key] = val
	}
	return
}

func (bv *BoundaryValues) BC() [2]BC { return bv.bc }

// Params returns a copy of the extra expression parameters.
func (bv *BoundaryValues) Params() (params map[string]float64) {
	params = make(map[string]float64, len(bv.params))
	for key, val := range bv.params {
		params[key] = val
	}
	return
}

// Axis is the axis of the Dirichlet basis.
func (bv *BoundaryValues) Axis() int { return bv.basis.Axis() }

func (bv *BoundaryValues) HasNonhomogeneousBcs() bool {
	return !(bv.bc[0].IsZero() && bv.bc[1].IsZero())
}

// UpdateBcs replaces the boundary values. A wired instance recomputes its
// coefficients, which is collective over the space.
func (bv *BoundaryValues) UpdateBcs(bc [2]BC) (err error) {
	bv.bc = bc
	bv.ready = false
	if bv.pipeline != nil {
		return bv.SetTensorBcs(bv.pipeline)
	}
	return
}

// UpdateParams sets extra named parameters for expressions, time for example,
// and re-evaluates.
func (bv *BoundaryValues) UpdateParams(params map[string]float64) (err error) {
	for key, val := range params {
		bv.params[key] = val
	}
	bv.ready = false
	if bv.pipeline != nil {
		return bv.SetTensorBcs(bv.pipeline)
	}
	return
}

// Bcs returns the coefficient pair, evaluating stand alone data on demand.
func (bv *BoundaryValues) Bcs(final bool) (pair [2]*utils.NDArray, err error) {
	if err = bv.ensure(); err != nil {
		return
	}
	if final {
		return bv.bcsFinal, nil
	}
	return bv.bcs, nil
}

// LineValues returns the boundary pair of one line of the basis' own stage.
func (bv *BoundaryValues) LineValues(line int) (bc0, bc1 complex128) {
	pick := func(A *utils.NDArray) complex128 {
		if A.Size() == 1 {
			return A.Data[0]
		}
		return A.Data[line]
	}
	return pick(bv.bcs[0]), pick(bv.bcs[1])
}

// Prepare makes the per line values available and validates their layout
// against the planned shape of the basis.
func (bv *BoundaryValues) Prepare() (err error) {
	if err = bv.ensure(); err != nil {
		return
	}
	var (
		shape = bv.basis.InputShape()
		axis  = bv.basis.Axis()
		lines = utils.Prod(shape) / shape[axis]
	)
	for _, A := range bv.bcs {
		if A.Size() != 1 && A.Size() != lines {
			return fmt.Errorf("%w: boundary data of shape %v for %d lines", ErrShape, A.Shape, lines)
		}
	}
	return
}

func (bv *BoundaryValues) ensure() (err error) {
	if bv.ready {
		return
	}
	if bv.pipeline != nil {
		return bv.SetTensorBcs(bv.pipeline)
	}
	for k := 0; k < 2; k++ {
		switch bc := bv.bc[k]; bc.Kind {
		case BCNumber:
			bv.bcs[k] = scalarArray(complex(bc.Value, 0))
		case BCExpr:
			var val float64
			if val, err = bc.Expr.Eval(bv.params); err != nil {
				return fmt.Errorf("%w: boundary expression %v: %v", ErrConfig, bc.Expr, err)
			}
			bv.bcs[k] = scalarArray(complex(val, 0))
		case BCArray:
			bv.bcs[k] = bc.Array.Copy()
		}
	}
	bv.bcsFinal = bv.bcs
	bv.finalStart = 0
	bv.ready = true
	return
}

func scalarArray(val complex128) *utils.NDArray {
	return utils.NewNDArrayFrom([]int{1}, []complex128{val})
}

var coordinateNames = []string{"x", "y", "z"}

func coordinateName(axis int) string {
	if axis < len(coordinateNames) {
		return coordinateNames[axis]
	}
	return fmt.Sprintf("x%d", axis)
}

// SetTensorBcs wires the boundary data to a planned pipeline. The physical
// boundary data is pushed through the stages executed before the Dirichlet
// stage to give bcs, and through the remaining stages, with the Dirichlet stage
// as identity, to give bcsFinal. Every rank must call it.
func (bv *BoundaryValues) SetTensorBcs(p Pipeline) (err error) {
	var (
		stages = p.Stages()
		d      = -1
		last   = len(stages) - 1
	)
	for i, st := range stages {
		if st.Basis == bv.basis {
			d = i
			continue
		}
		if other := st.Basis.BoundaryValues(); other != nil && other.HasNonhomogeneousBcs() &&
			bv.HasNonhomogeneousBcs() {
			return fmt.Errorf("%w: more than one inhomogeneous Dirichlet basis", ErrUnsupported)
		}
	}
	if d < 0 {
		return fmt.Errorf("%w: Dirichlet basis is not part of the pipeline", ErrConfig)
	}
	if d > 2 || last-d > 2 {
		return fmt.Errorf("%w: %d stages before and %d after the Dirichlet stage",
			ErrUnsupported, d, last-d)
	}
	bv.pipeline = p
	bv.finalStart = stages[last].Start[bv.basis.Axis()]
	if !bv.HasNonhomogeneousBcs() {
		bv.bcs = [2]*utils.NDArray{scalarArray(0), scalarArray(0)}
		bv.bcsFinal = [2]*utils.NDArray{scalarArray(0), scalarArray(0)}
		bv.ready = true
		return
	}
	axis := bv.basis.Axis()
	for k := 0; k < 2; k++ {
		var (
			cur *utils.NDArray
		)
		if cur, err = bv.physicalData(stages, k); err != nil {
			return
		}
		for i, st := range stages {
			out := cur
			if i == d {
				bv.bcs[k] = cur.Take(axis, 0)
			} else {
				out = utils.NewNDArray(st.Basis.OutputShape()...)
				if err = p.StageForward(i, cur, out); err != nil {
					return fmt.Errorf("boundary values stage %d: %w", i, err)
				}
			}
			if i == last {
				cur = out
				break
			}
			next := utils.NewNDArray(stages[i+1].Basis.InputShape()...)
			if err = p.StageTransfer(i, out, next); err != nil {
				return fmt.Errorf("boundary values transfer %d: %w", i, err)
			}
			cur = next
		}
		if cur.Shape[axis] > 0 {
			bv.bcsFinal[k] = cur.Take(axis, 0)
		} else {
			shape := append(utils.CopyShape(cur.Shape[:axis]), cur.Shape[axis+1:]...)
			bv.bcsFinal[k] = utils.NewNDArray(shape...)
		}
	}
	bv.ready = true
	jww.DEBUG.Printf("boundary values wired on axis %d: stage %d of %d, bcs shape %v\n",
		axis, d, len(stages), bv.bcs[0].Shape)
	return
}

// physicalData fills the first stage input layout with boundary value k on
// every index of the Dirichlet axis.
func (bv *BoundaryValues) physicalData(stages []Stage, k int) (b *utils.NDArray, err error) {
	var (
		first = stages[0]
		shape = first.Basis.InputShape()
		axis  = bv.basis.Axis()
		ndim  = len(shape)
		mesh  = make([][]float64, ndim)
		gdims = make([]int, ndim)
		bc    = bv.bc[k]
		face  *utils.NDArray
	)
	b = utils.NewNDArray(shape...)
	if utils.Prod(shape) == 0 {
		return
	}
	for _, st := range stages {
		a := st.Basis.Axis()
		mesh[a] = st.Basis.Mesh()
		gdims[a] = len(mesh[a])
	}
	if bc.Kind == BCArray {
		faceShape := append(utils.CopyShape(gdims[:axis]), gdims[axis+1:]...)
		if err = utils.CheckShape(bc.Array, faceShape, "boundary array"); err != nil {
			return
		}
		face = bc.Array
	}
	var (
		idx     = make([]int, ndim)
		faceIdx = make([]int, 0, ndim-1)
		vars    = make(map[string]float64, len(bv.params)+ndim)
	)
	for key, val := range bv.params {
		vars[key] = val
	}
	endpoint := bv.basis.Domain()[k]
	for {
		var val float64
		switch bc.Kind {
		case BCNumber:
			val = bc.Value
		case BCExpr:
			for a := 0; a < ndim; a++ {
				if a == axis {
					vars[coordinateName(a)] = endpoint
				} else {
					vars[coordinateName(a)] = mesh[a][first.Start[a]+idx[a]]
				}
			}
			if val, err = bc.Expr.Eval(vars); err != nil {
				return nil, fmt.Errorf("%w: boundary expression %v: %v", ErrConfig, bc.Expr, err)
			}
		case BCArray:
			faceIdx = faceIdx[:0]
			for a := 0; a < ndim; a++ {
				if a != axis {
					faceIdx = append(faceIdx, first.Start[a]+idx[a])
				}
			}
			val = real(face.At(faceIdx...))
		}
		b.Set(complex(val, 0), idx...)
		if !utils.NextIndex(idx, shape) {
			break
		}
	}
	return
}

// ApplyBefore adds scales[0]*(bc0+bc1) to slot 0 and scales[1]*(bc1-bc0) to
// slot 1 along the Dirichlet axis of u.
func (bv *BoundaryValues) ApplyBefore(u *utils.NDArray, final bool, scales [2]float64) (err error) {
	var (
		pair  [2]*utils.NDArray
		start int
	)
	if pair, err = bv.Bcs(final); err != nil {
		return
	}
	if final {
		start = bv.finalStart
	}
	sum := pair[0].Copy().Add(pair[1]).Scale(complex(scales[0], 0))
	diff := pair[1].Copy().Subtract(pair[0]).Scale(complex(scales[1], 0))
	if err = bv.addToSlot(u, 0-start, sum, false); err != nil {
		return
	}
	return bv.addToSlot(u, 1-start, diff, false)
}

// ApplyAfter overwrites slots N-2 and N-1 along the Dirichlet axis of u with
// the boundary pair.
func (bv *BoundaryValues) ApplyAfter(u *utils.NDArray, final bool) (err error) {
	var (
		pair  [2]*utils.NDArray
		start int
		N     = bv.basis.N()
	)
	if pair, err = bv.Bcs(final); err != nil {
		return
	}
	if final {
		start = bv.finalStart
	}
	if err = bv.addToSlot(u, N-2-start, pair[0], true); err != nil {
		return
	}
	return bv.addToSlot(u, N-1-start, pair[1], true)
}

func (bv *BoundaryValues) addToSlot(u *utils.NDArray, local int, vals *utils.NDArray, overwrite bool) (err error) {
	axis := bv.basis.Axis()
	if axis >= u.Ndim() {
		return fmt.Errorf("%w: array of rank %d for boundary axis %d", ErrShape, u.Ndim(), axis)
	}
	if local < 0 || local >= u.Shape[axis] {
		return
	}
	plane := u.Take(axis, local)
	if vals.Size() != 1 && !utils.ShapeEqual(vals.Shape, plane.Shape) {
		return fmt.Errorf("%w: boundary data %v for plane %v", ErrShape, vals.Shape, plane.Shape)
	}
	if overwrite {
		u.Put(axis, local, vals)
		return
	}
	for i := range plane.Data {
		if vals.Size() == 1 {
			plane.Data[i] += vals.Data[0]
		} else {
			plane.Data[i] += vals.Data[i]
		}
	}
	u.Put(axis, local, plane)
	return
}
