package tensorproductspace

import (
	"fmt"

	"github.com/notargets/gospectral/pencil"
	sb "github.com/notargets/gospectral/spectralbase"
	"github.com/notargets/gospectral/utils"
)

func (T *TensorProductSpace) layout(spectral bool) *pencil.Pencil {
	if spectral {
		return T.BackwardInput
	}
	return T.ForwardInput
}

// Shape is the global array shape, padded sizes on the physical side.
func (T *TensorProductSpace) Shape(spectral bool) []int {
	return utils.CopyShape(T.layout(spectral).Shape)
}

func (T *TensorProductSpace) LocalShape(spectral bool) []int {
	return utils.CopyShape(T.layout(spectral).Subshape)
}

// LocalSlice returns the [start, end) range of the local block on every axis.
func (T *TensorProductSpace) LocalSlice(spectral bool) (s [][2]int) {
	p := T.layout(spectral)
	s = make([][2]int, len(p.Shape))
	for i := range s {
		s[i] = [2]int{p.Substart[i], p.Substart[i] + p.Subshape[i]}
	}
	return
}

func (T *TensorProductSpace) NewArray(spectral bool) *utils.NDArray {
	return utils.NewNDArray(T.LocalShape(spectral)...)
}

// Mesh returns the global physical points of every axis, in the true domain.
func (T *TensorProductSpace) Mesh() (x [][]float64) {
	x = make([][]float64, len(T.bases))
	for i, b := range T.bases {
		x[i] = b.Mesh()
	}
	return
}

// LocalMesh returns the local points of every axis. Broadcast arrays have the
// local physical shape; otherwise axis i has shape 1 except along i.
func (T *TensorProductSpace) LocalMesh(broadcast bool) (X []*utils.NDArray) {
	var (
		x  = T.Mesh()
		sl = T.LocalSlice(false)
	)
	X = make([]*utils.NDArray, len(x))
	for i := range x {
		vals := make([]complex128, sl[i][1]-sl[i][0])
		for j := range vals {
			vals[j] = complex(x[i][sl[i][0]+j], 0)
		}
		X[i] = T.spread(vals, i, false, broadcast)
	}
	return
}

// Wavenumbers returns the global wavenumbers of every axis.
func (T *TensorProductSpace) Wavenumbers(scaled, eliminateHighestFreq bool) (k [][]float64) {
	k = make([][]float64, len(T.bases))
	for i, b := range T.bases {
		k[i] = b.Wavenumbers(scaled, eliminateHighestFreq)
	}
	return
}

// LocalWavenumbers returns the wavenumbers of the local spectral block, laid
// out like LocalMesh.
func (T *TensorProductSpace) LocalWavenumbers(broadcast, scaled, eliminateHighestFreq bool) (K []*utils.NDArray) {
	var (
		k  = T.Wavenumbers(scaled, eliminateHighestFreq)
		sl = T.LocalSlice(true)
	)
	K = make([]*utils.NDArray, len(k))
	for i := range k {
		vals := make([]complex128, sl[i][1]-sl[i][0])
		for j := range vals {
			vals[j] = complex(k[i][sl[i][0]+j], 0)
		}
		K[i] = T.spread(vals, i, true, broadcast)
	}
	return
}

func (T *TensorProductSpace) spread(vals []complex128, axis int, spectral, broadcast bool) *utils.NDArray {
	shape := T.LocalShape(spectral)
	if !broadcast {
		for i := range shape {
			if i != axis {
				shape[i] = 1
			}
		}
	}
	return utils.Broadcast1D(vals, shape, axis)
}

// Gather assembles the global array from the local blocks of every rank.
// Collective; every rank receives the full array.
func (T *TensorProductSpace) Gather(local *utils.NDArray, spectral bool) (global *utils.NDArray, err error) {
	if err = T.alive(); err != nil {
		return
	}
	var (
		p    = T.layout(spectral)
		ndim = len(p.Shape)
		all  [][]complex128
	)
	if err = utils.CheckShape(local, p.Subshape, "gather input"); err != nil {
		return
	}
	// each block is prefixed by its start and count
	buf := make([]complex128, 0, 2*ndim+local.Size())
	for i := 0; i < ndim; i++ {
		buf = append(buf, complex(float64(p.Substart[i]), 0))
	}
	for i := 0; i < ndim; i++ {
		buf = append(buf, complex(float64(p.Subshape[i]), 0))
	}
	buf = append(buf, local.Data...)
	if all, err = T.group.AllGather(buf); err != nil {
		return nil, fmt.Errorf("gather: %w", err)
	}
	global = utils.NewNDArray(p.Shape...)
	for r, blk := range all {
		if len(blk) < 2*ndim {
			return nil, fmt.Errorf("%w: rank %d sent a block of %d values", sb.ErrShape, r, len(blk))
		}
		start, count := make([]int, ndim), make([]int, ndim)
		for i := 0; i < ndim; i++ {
			start[i] = int(real(blk[i]))
			count[i] = int(real(blk[ndim+i]))
		}
		global.SetBlock(start, count, blk[2*ndim:])
	}
	return
}
