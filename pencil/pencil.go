package pencil

import (
	"fmt"

	"github.com/notargets/gospectral/comm"
	"github.com/notargets/gospectral/utils"
)

// Pencil describes the local block of a global array that is complete along
// Axis and split along every other axis by the matching sub group.
type Pencil struct {
	Subcomm  []comm.Group
	Shape    []int
	Axis     int
	Subshape []int
	Substart []int
}

func NewPencil(sc *Subcomm, shape []int, axis int) (p *Pencil, err error) {
	return NewPencilFromGroups(sc.Groups, shape, axis)
}

// NewPencilFromGroups builds a pencil over explicit per axis groups. The
// group of the aligned axis must have size one.
func NewPencilFromGroups(groups []comm.Group, shape []int, axis int) (p *Pencil, err error) {
	if len(groups) != len(shape) {
		err = fmt.Errorf("pencil: %d groups for shape %v", len(groups), shape)
		return
	}
	if axis < 0 || axis >= len(shape) {
		err = fmt.Errorf("pencil: axis %d out of range for shape %v", axis, shape)
		return
	}
	if groups[axis].Size() != 1 {
		err = fmt.Errorf("pencil: aligned axis %d is split over %d ranks", axis, groups[axis].Size())
		return
	}
	p = &Pencil{
		Subcomm:  append([]comm.Group{}, groups...),
		Shape:    utils.CopyShape(shape),
		Axis:     axis,
		Subshape: make([]int, len(shape)),
		Substart: make([]int, len(shape)),
	}
	for i, g := range groups {
		start, end := localRange(g.Size(), g.Rank(), shape[i])
		p.Substart[i] = start
		p.Subshape[i] = end - start
	}
	return
}

// Pencil returns the layout aligned with axis, obtained by exchanging the
// groups of the current and the new aligned axis.
func (p *Pencil) Pencil(axis int) (np *Pencil, err error) {
	if axis < 0 || axis >= len(p.Shape) {
		err = fmt.Errorf("pencil: axis %d out of range for shape %v", axis, p.Shape)
		return
	}
	groups := append([]comm.Group{}, p.Subcomm...)
	groups[p.Axis], groups[axis] = groups[axis], groups[p.Axis]
	return NewPencilFromGroups(groups, p.Shape, axis)
}

// Transfer builds the redistribution from p to b. Both pencils must describe
// the same global shape and differ by one exchanged pair of groups.
func (p *Pencil) Transfer(b *Pencil, dtype utils.DType) (t *Transfer, err error) {
	var (
		i, j = p.Axis, b.Axis
	)
	if !utils.ShapeEqual(p.Shape, b.Shape) {
		err = fmt.Errorf("transfer: global shapes differ %v != %v", p.Shape, b.Shape)
		return
	}
	if i == j {
		err = fmt.Errorf("transfer: both pencils aligned with axis %d", i)
		return
	}
	for k := range p.Subcomm {
		if k == i || k == j {
			continue
		}
		if p.Subcomm[k] != b.Subcomm[k] {
			err = fmt.Errorf("transfer: pencils differ in the group of axis %d", k)
			return
		}
	}
	if p.Subcomm[j] != b.Subcomm[i] {
		err = fmt.Errorf("transfer: group of axis %d is not exchanged with axis %d", j, i)
		return
	}
	t = &Transfer{
		A:     p,
		B:     b,
		DType: dtype,
		group: p.Subcomm[j],
	}
	return
}

func (p *Pencil) String() string {
	return fmt.Sprintf("Pencil{shape: %v, axis: %d, subshape: %v, substart: %v}",
		p.Shape, p.Axis, p.Subshape, p.Substart)
}
