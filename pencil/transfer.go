package pencil

import (
	"fmt"

	"github.com/notargets/gospectral/comm"
	"github.com/notargets/gospectral/utils"
)

// Transfer moves data between pencil A (aligned with A.Axis) and pencil B
// (aligned with B.Axis) inside the sub group that splits one of the two axes.
// Forward and Backward are collective over that group.
type Transfer struct {
	A, B  *Pencil
	DType utils.DType
	group comm.Group
}

// Forward redistributes a, laid out as A, into b, laid out as B.
func (t *Transfer) Forward(a, b *utils.NDArray) (err error) {
	return t.exchange(t.A, t.B, a, b)
}

// Backward redistributes b, laid out as B, into a, laid out as A.
func (t *Transfer) Backward(b, a *utils.NDArray) (err error) {
	return t.exchange(t.B, t.A, b, a)
}

func (t *Transfer) exchange(from, to *Pencil, src, dst *utils.NDArray) (err error) {
	var (
		np   = t.group.Size()
		send = make([][]complex128, np)
		recv [][]complex128
		// The axis aligned in from becomes split in to, and the reverse
		fi, ti = from.Axis, to.Axis
		fromPM = utils.NewPartitionMap(np, from.Shape[fi])
		toPM   = utils.NewPartitionMap(np, to.Shape[ti])
	)
	if err = utils.CheckShape(src, from.Subshape, "transfer input"); err != nil {
		return
	}
	if err = utils.CheckShape(dst, to.Subshape, "transfer output"); err != nil {
		return
	}
	for q := 0; q < np; q++ {
		start, count := make([]int, len(from.Shape)), utils.CopyShape(from.Subshape)
		start[fi], _ = fromPM.GetBucketRange(q)
		count[fi] = fromPM.GetBucketDimension(q)
		send[q] = src.Block(start, count)
	}
	if recv, err = t.group.AllToAllV(send); err != nil {
		return fmt.Errorf("transfer %d -> %d: %w", fi, ti, err)
	}
	for q := 0; q < np; q++ {
		start, count := make([]int, len(to.Shape)), utils.CopyShape(to.Subshape)
		start[ti], _ = toPM.GetBucketRange(q)
		count[ti] = toPM.GetBucketDimension(q)
		if len(recv[q]) != utils.Prod(count) {
			return fmt.Errorf("transfer %d -> %d: %w: rank %d sent %d values, expected %d",
				fi, ti, utils.ErrShape, q, len(recv[q]), utils.Prod(count))
		}
		dst.SetBlock(start, count, recv[q])
	}
	return
}
