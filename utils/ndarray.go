package utils

import (
	"errors"
	"fmt"
	"math/cmplx"
)

type DType uint8

const (
	Float64 DType = iota
	Complex128
)

func (d DType) String() string {
	switch d {
	case Float64:
		return "float64"
	case Complex128:
		return "complex128"
	}
	return fmt.Sprintf("DType(%d)", uint8(d))
}

// NDArray is a dense row-major (C order) array of complex128 values. Arrays of
// DType Float64 are carried with zero imaginary parts.
type NDArray struct {
	Shape []int
	Data  []complex128
}

func NewNDArray(shape ...int) (A *NDArray) {
	A = &NDArray{
		Shape: CopyShape(shape),
		Data:  make([]complex128, Prod(shape)),
	}
	return
}

func NewNDArrayFrom(shape []int, data []complex128) (A *NDArray) {
	if len(data) != Prod(shape) {
		err := fmt.Errorf("mismatch in allocation: shape = %v, len(data) = %v", shape, len(data))
		panic(err)
	}
	A = &NDArray{
		Shape: CopyShape(shape),
		Data:  data,
	}
	return
}

func NewNDArrayReal(shape []int, data []float64) (A *NDArray) {
	A = NewNDArray(shape...)
	if len(data) != len(A.Data) {
		err := fmt.Errorf("mismatch in allocation: shape = %v, len(data) = %v", shape, len(data))
		panic(err)
	}
	for i, val := range data {
		A.Data[i] = complex(val, 0)
	}
	return
}

func Prod(shape []int) (n int) {
	n = 1
	for _, s := range shape {
		n *= s
	}
	return
}

func CopyShape(shape []int) (s []int) {
	s = make([]int, len(shape))
	copy(s, shape)
	return
}

func ShapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (A *NDArray) Size() int { return len(A.Data) }
func (A *NDArray) Ndim() int { return len(A.Shape) }

func (A *NDArray) Strides() (st []int) {
	st = make([]int, len(A.Shape))
	s := 1
	for i := len(A.Shape) - 1; i >= 0; i-- {
		st[i] = s
		s *= A.Shape[i]
	}
	return
}

func (A *NDArray) Index(idx ...int) (ind int) {
	if len(idx) != len(A.Shape) {
		panic(fmt.Errorf("index rank %d does not match array rank %d", len(idx), len(A.Shape)))
	}
	for i, ii := range idx {
		if ii < 0 || ii >= A.Shape[i] {
			panic(fmt.Errorf("index out of bounds: index = %v, shape = %v", idx, A.Shape))
		}
		ind = ind*A.Shape[i] + ii
	}
	return
}

func (A *NDArray) At(idx ...int) complex128     { return A.Data[A.Index(idx...)] }
func (A *NDArray) Set(val complex128, idx ...int) { A.Data[A.Index(idx...)] = val }

func (A *NDArray) Copy() (R *NDArray) {
	R = NewNDArray(A.Shape...)
	copy(R.Data, A.Data)
	return
}

// CopyFrom overwrites the receiver with B, which must have the same shape.
func (A *NDArray) CopyFrom(B *NDArray) *NDArray {
	if !ShapeEqual(A.Shape, B.Shape) {
		panic(fmt.Errorf("shape mismatch in CopyFrom: %v != %v", A.Shape, B.Shape))
	}
	copy(A.Data, B.Data)
	return A
}

func (A *NDArray) Fill(val complex128) *NDArray {
	for i := range A.Data {
		A.Data[i] = val
	}
	return A
}

func (A *NDArray) Zero() *NDArray { return A.Fill(0) }

func (A *NDArray) Scale(a complex128) *NDArray {
	for i := range A.Data {
		A.Data[i] *= a
	}
	return A
}

func (A *NDArray) Add(B *NDArray) *NDArray {
	A.checkSameShape(B)
	for i, val := range B.Data {
		A.Data[i] += val
	}
	return A
}

func (A *NDArray) Subtract(B *NDArray) *NDArray {
	A.checkSameShape(B)
	for i, val := range B.Data {
		A.Data[i] -= val
	}
	return A
}

// ElMul multiplies the receiver element-wise by B.
func (A *NDArray) ElMul(B *NDArray) *NDArray {
	A.checkSameShape(B)
	for i, val := range B.Data {
		A.Data[i] *= val
	}
	return A
}

// DropImag zeroes all imaginary parts, used for Float64 arrays.
func (A *NDArray) DropImag() *NDArray {
	for i, val := range A.Data {
		A.Data[i] = complex(real(val), 0)
	}
	return A
}

func (A *NDArray) Real() (r []float64) {
	r = make([]float64, len(A.Data))
	for i, val := range A.Data {
		r[i] = real(val)
	}
	return
}

func (A *NDArray) MaxAbs() (m float64) {
	for _, val := range A.Data {
		if a := cmplx.Abs(val); a > m {
			m = a
		}
	}
	return
}

func (A *NDArray) MaxAbsDiff(B *NDArray) (m float64) {
	A.checkSameShape(B)
	for i, val := range A.Data {
		if a := cmplx.Abs(val - B.Data[i]); a > m {
			m = a
		}
	}
	return
}

func (A *NDArray) AllClose(B *NDArray, tol float64) bool {
	if !ShapeEqual(A.Shape, B.Shape) {
		return false
	}
	return A.MaxAbsDiff(B) <= tol
}

func (A *NDArray) checkSameShape(B *NDArray) {
	if !ShapeEqual(A.Shape, B.Shape) {
		panic(fmt.Errorf("shape mismatch: %v != %v", A.Shape, B.Shape))
	}
}

// LineOffsets returns the starting offset of every 1D line along axis, ordered
// row-major over the remaining axes, and the stride between line elements.
func (A *NDArray) LineOffsets(axis int) (offsets []int, stride int) {
	var (
		n     = A.Shape[axis]
		outer = Prod(A.Shape[:axis])
	)
	stride = Prod(A.Shape[axis+1:])
	offsets = make([]int, 0, outer*stride)
	for o := 0; o < outer; o++ {
		for i := 0; i < stride; i++ {
			offsets = append(offsets, o*n*stride+i)
		}
	}
	return
}

func (A *NDArray) GetLine(offset, stride int, dst []complex128) {
	for i := range dst {
		dst[i] = A.Data[offset+i*stride]
	}
}

func (A *NDArray) PutLine(offset, stride int, src []complex128) {
	for i, val := range src {
		A.Data[offset+i*stride] = val
	}
}

// ApplyAlongAxis passes every line of A along axis through f, writing into the
// matching line of Out. Out must match A on every axis except axis. The line
// number handed to f is the row-major index over the remaining axes.
func ApplyAlongAxis(A, Out *NDArray, axis int, f func(line int, in, out []complex128) error) (err error) {
	if len(A.Shape) != len(Out.Shape) || axis < 0 || axis >= len(A.Shape) {
		return fmt.Errorf("ApplyAlongAxis: incompatible ranks %v, %v for axis %d", A.Shape, Out.Shape, axis)
	}
	for i := range A.Shape {
		if i != axis && A.Shape[i] != Out.Shape[i] {
			return fmt.Errorf("ApplyAlongAxis: shapes %v and %v differ off axis %d", A.Shape, Out.Shape, axis)
		}
	}
	var (
		inOff, inStride   = A.LineOffsets(axis)
		outOff, outStride = Out.LineOffsets(axis)
		lineIn            = make([]complex128, A.Shape[axis])
		lineOut           = make([]complex128, Out.Shape[axis])
	)
	for l := range inOff {
		A.GetLine(inOff[l], inStride, lineIn)
		for i := range lineOut {
			lineOut[i] = 0
		}
		if err = f(l, lineIn, lineOut); err != nil {
			return
		}
		Out.PutLine(outOff[l], outStride, lineOut)
	}
	return
}

// NextIndex increments the row-major multi-index idx within shape and reports
// false once all indices have been visited.
func NextIndex(idx, shape []int) bool {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < shape[i] {
			return true
		}
		idx[i] = 0
	}
	return false
}

// Block copies the sub-block [start, start+count) of A into a flat row-major buffer.
func (A *NDArray) Block(start, count []int) (buf []complex128) {
	buf = make([]complex128, 0, Prod(count))
	if Prod(count) == 0 {
		return
	}
	var (
		idx = make([]int, len(count))
		pos = make([]int, len(count))
	)
	for {
		for i := range idx {
			pos[i] = start[i] + idx[i]
		}
		buf = append(buf, A.Data[A.Index(pos...)])
		if !NextIndex(idx, count) {
			break
		}
	}
	return
}

// SetBlock writes a flat row-major buffer into the sub-block [start, start+count) of A.
func (A *NDArray) SetBlock(start, count []int, buf []complex128) {
	if len(buf) != Prod(count) {
		panic(fmt.Errorf("block size mismatch: count = %v, len(buf) = %d", count, len(buf)))
	}
	if len(buf) == 0 {
		return
	}
	var (
		idx = make([]int, len(count))
		pos = make([]int, len(count))
		n   int
	)
	for {
		for i := range idx {
			pos[i] = start[i] + idx[i]
		}
		A.Data[A.Index(pos...)] = buf[n]
		n++
		if !NextIndex(idx, count) {
			break
		}
	}
}

// Take returns the hyperplane index along axis, with axis removed from the shape.
func (A *NDArray) Take(axis, index int) (R *NDArray) {
	var (
		start = make([]int, len(A.Shape))
		count = CopyShape(A.Shape)
	)
	start[axis] = index
	count[axis] = 1
	shape := append(CopyShape(A.Shape[:axis]), A.Shape[axis+1:]...)
	R = NewNDArrayFrom(shape, A.Block(start, count))
	return
}

// Put writes the hyperplane V (shape of A without axis) at index along axis.
// A size-one V is broadcast over the hyperplane.
func (A *NDArray) Put(axis, index int, V *NDArray) {
	var (
		start = make([]int, len(A.Shape))
		count = CopyShape(A.Shape)
	)
	start[axis] = index
	count[axis] = 1
	buf := V.Data
	if len(V.Data) == 1 && Prod(count) != 1 {
		buf = make([]complex128, Prod(count))
		for i := range buf {
			buf[i] = V.Data[0]
		}
	}
	A.SetBlock(start, count, buf)
}

// Contract sums A against vec along axis and drops that axis.
func (A *NDArray) Contract(axis int, vec []complex128) (R *NDArray) {
	if len(vec) != A.Shape[axis] {
		panic(fmt.Errorf("contract length %d does not match axis %d of shape %v", len(vec), axis, A.Shape))
	}
	shape := append(CopyShape(A.Shape[:axis]), A.Shape[axis+1:]...)
	R = NewNDArray(shape...)
	offsets, stride := A.LineOffsets(axis)
	for l, off := range offsets {
		var sum complex128
		for i, v := range vec {
			sum += A.Data[off+i*stride] * v
		}
		R.Data[l] = sum
	}
	return
}

// Broadcast1D places vals along axis of an array with the given shape.
func Broadcast1D(vals []complex128, shape []int, axis int) (R *NDArray) {
	R = NewNDArray(shape...)
	offsets, stride := R.LineOffsets(axis)
	for _, off := range offsets {
		R.PutLine(off, stride, vals)
	}
	return
}

// ErrShape reports an array whose shape does not match the planned layout.
var ErrShape = errors.New("shape mismatch")

// CheckShape returns a wrapped ErrShape when A does not have the wanted shape.
func CheckShape(A *NDArray, want []int, what string) error {
	if A == nil {
		return fmt.Errorf("%w: %s is nil, want %v", ErrShape, what, want)
	}
	if !ShapeEqual(A.Shape, want) {
		return fmt.Errorf("%w: %s has shape %v, want %v", ErrShape, what, A.Shape, want)
	}
	return nil
}
