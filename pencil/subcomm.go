package pencil

import (
	"fmt"

	"github.com/notargets/gospectral/comm"
	"github.com/notargets/gospectral/utils"
	"go.uber.org/multierr"
)

// Subcomm is a Cartesian decomposition of a group, with one sub group per
// axis. Groups[i] holds the ranks that differ only in coordinate i.
type Subcomm struct {
	Dims   []int
	Coords []int
	Groups []comm.Group
}

// NewSubcomm decomposes g over len(dims) axes. Zero entries of dims are free
// and filled by comm.DimsCreate.
func NewSubcomm(g comm.Group, dims []int) (sc *Subcomm, err error) {
	var (
		ndim = len(dims)
	)
	sc = &Subcomm{
		Coords: make([]int, ndim),
		Groups: make([]comm.Group, ndim),
	}
	if sc.Dims, err = comm.DimsCreate(g.Size(), dims); err != nil {
		return nil, err
	}
	// Row major Cartesian coordinates
	rem := g.Rank()
	for i := ndim - 1; i >= 0; i-- {
		sc.Coords[i] = rem % sc.Dims[i]
		rem /= sc.Dims[i]
	}
	for i := 0; i < ndim; i++ {
		var color int
		for k := 0; k < ndim; k++ {
			if k == i {
				continue
			}
			color = color*sc.Dims[k] + sc.Coords[k]
		}
		if sc.Groups[i], err = g.Split(color, sc.Coords[i]); err != nil {
			return nil, fmt.Errorf("subcomm axis %d: %w", i, err)
		}
	}
	return
}

// Free releases every axis group.
func (sc *Subcomm) Free() (err error) {
	for _, g := range sc.Groups {
		err = multierr.Append(err, g.Free())
	}
	return
}

// Sizes returns the group size along each axis.
func (sc *Subcomm) Sizes() (s []int) {
	return groupSizes(sc.Groups)
}

func groupSizes(groups []comm.Group) (s []int) {
	s = make([]int, len(groups))
	for i, g := range groups {
		s[i] = g.Size()
	}
	return
}

// localRange returns the [start, end) piece of a length n axis owned by rank
// of a group of size np.
func localRange(np, rank, n int) (start, end int) {
	b := utils.NewPartitionMap(np, n).Split1D(rank)
	return b[0], b[1]
}
