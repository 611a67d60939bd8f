package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// DOK is a dictionary-of-keys builder for sparse operators. Operators are
// assembled with Set, frozen with SetReadOnly and applied through ToCSR.
type DOK struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }

func (m *DOK) SetReadOnly(name ...string) DOK {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m DOK) Set(i, j int, val float64) DOK {
	m.checkWritable()
	m.M.Set(i, j, val)
	return m
}

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m DOK) ToCSR() CSR {
	return CSR{
		M:        m.M.ToCSR(),
		readOnly: true,
		name:     m.name,
	}
}

// CSR is a compressed sparse row operator, read only once built from a DOK.
type CSR struct {
	M        *sparse.CSR
	readOnly bool
	name     string
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }
func (m CSR) Data() []float64 {
	return m.RawMatrix().Data
}
func (m CSR) Name() string { return m.name }

// NNZ returns the number of stored non zeros.
func (m CSR) NNZ() int { return m.M.NNZ() }

// MulVecC computes y = M x for complex vectors.
func (m CSR) MulVecC(y, x []complex128) {
	var (
		raw    = m.RawMatrix()
		nr, nc = m.Dims()
	)
	if len(x) != nc || len(y) != nr {
		panic(fmt.Errorf("dimension mismatch in %s: (%d x %d) * %d -> %d", m.name, nr, nc, len(x), len(y)))
	}
	for i := 0; i < raw.I; i++ {
		var sum complex128
		for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
			sum += complex(raw.Data[jj], 0) * x[raw.Ind[jj]]
		}
		y[i] = sum
	}
}

// MulTransVecC computes y = M^T x for complex vectors.
func (m CSR) MulTransVecC(y, x []complex128) {
	var (
		raw    = m.RawMatrix()
		nr, nc = m.Dims()
	)
	if len(x) != nr || len(y) != nc {
		panic(fmt.Errorf("dimension mismatch in %s^T: (%d x %d) * %d -> %d", m.name, nc, nr, len(x), len(y)))
	}
	for j := range y {
		y[j] = 0
	}
	for i := 0; i < raw.I; i++ {
		for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
			y[raw.Ind[jj]] += complex(raw.Data[jj], 0) * x[i]
		}
	}
}

// RightMulC returns A * M for a dense complex A, used to recombine Vandermonde
// columns with a sparse stencil.
func (m CSR) RightMulC(A *mat.CDense) (R *mat.CDense) {
	var (
		ar, ac = A.Dims()
		nr, nc = m.Dims()
		raw    = m.RawMatrix()
	)
	if ac != nr {
		panic(fmt.Errorf("dimension mismatch in %s: A(%d x %d) * M(%d x %d)", m.name, ar, ac, nr, nc))
	}
	R = mat.NewCDense(ar, nc, nil)
	for k := 0; k < raw.I; k++ {
		for jj := raw.Indptr[k]; jj < raw.Indptr[k+1]; jj++ {
			var (
				j = raw.Ind[jj]
				v = complex(raw.Data[jj], 0)
			)
			for i := 0; i < ar; i++ {
				R.Set(i, j, R.At(i, j)+A.At(i, k)*v)
			}
		}
	}
	return
}
