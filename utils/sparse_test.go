package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestRightMul(t *testing.T) {
	// [ 1 0 2 ]
	// [ 0 3 0 ]
	K := NewDOK(2, 3)
	K.Set(0, 0, 1)
	K.Set(0, 2, 2)
	K.Set(1, 1, 3)
	K.SetReadOnly("K")
	M := K.ToCSR()
	assert.Equal(t, "K", M.Name())
	assert.Equal(t, 2., M.At(0, 2))

	A := mat.NewCDense(1, 2, []complex128{1, 1i})
	R := M.RightMulC(A)
	r, c := R.Dims()
	assert.Equal(t, [2]int{1, 3}, [2]int{r, c})
	assert.Equal(t, complex(1, 0), R.At(0, 0))
	assert.Equal(t, 3i, R.At(0, 1))
	assert.Equal(t, complex(2, 0), R.At(0, 2))
	assert.Panics(t, func() { M.RightMulC(mat.NewCDense(2, 3, nil)) })
}

func TestMath(t *testing.T) {
	assert.Equal(t, 8., POW(2, 3))
	assert.Equal(t, 0.25, POW(2, -2))
	assert.InDelta(t, 1024., POW(2, 10), NODETOL)
	assert.Equal(t, complex(-1, 0), IPOW(1i, 2))
	assert.Equal(t, []float64{0, 1, 2}, Arange(3))
	assert.True(t, IsZero(1e-14))
	assert.False(t, IsZero(1e-6))
}
