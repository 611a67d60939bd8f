package spectralbase

import (
	"fmt"
	"math"

	jww "github.com/spf13/jwalterweatherman"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gospectral/utils"
)

type Quad uint8

const (
	GC Quad = iota // Equispaced Fourier points
	LG             // Legendre-Gauss
	GL             // Legendre-Gauss-Lobatto
)

func (q Quad) String() string {
	switch q {
	case GC:
		return "GC"
	case LG:
		return "LG"
	case GL:
		return "GL"
	}
	return fmt.Sprintf("Quad(%d)", uint8(q))
}

func NewQuad(label string) (q Quad, err error) {
	switch label {
	case "GC", "":
		q = GC
	case "LG":
		q = LG
	case "GL":
		q = GL
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedQuad, label)
	}
	return
}

type Family uint8

const (
	FourierR2C Family = iota
	FourierC2C
	Legendre
	ShenDirichlet
	ShenNeumann
	ShenBiharmonic
)

var familyNames = map[Family]string{
	FourierR2C:     "R2C",
	FourierC2C:     "C2C",
	Legendre:       "Legendre",
	ShenDirichlet:  "ShenDirichlet",
	ShenNeumann:    "ShenNeumann",
	ShenBiharmonic: "ShenBiharmonic",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Family(%d)", uint8(f))
}

func (f Family) IsPeriodic() bool { return f == FourierR2C || f == FourierC2C }

// Basis is the single axis contract shared by all families. Transforms operate
// along the planned axis of arrays with the planned shapes.
type Basis interface {
	Family() Family
	N() int
	// Np is the physical size along the axis, N times the padding factor.
	Np() int
	Quad() Quad
	Axis() int
	Domain() [2]float64
	PaddingFactor() float64
	IsPadded() bool
	DealiasDirect() bool
	Planned() bool
	Plan(shape []int, axis int, dtype utils.DType) error
	InputShape() []int
	OutputShape() []int
	InputDType() utils.DType
	OutputDType() utils.DType
	SpectralSize() int
	// Slice is the [start, end) range of meaningful spectral indices.
	Slice() (start, end int)
	DomainFactor() float64
	MapReferenceDomain(x []float64) []float64
	MapTrueDomain(x []float64) []float64
	Mesh() []float64
	Wavenumbers(scaled, eliminateHighestFreq bool) []float64

	PointsAndWeights(N int, scaled bool) (points, weights []float64, err error)
	Vandermonde(x []float64) *mat.CDense
	GetVandermondeBasis(V *mat.CDense) *mat.CDense
	GetVandermondeBasisDerivative(V *mat.CDense, k int) *mat.CDense

	Forward(in, out *utils.NDArray, fast bool) error
	Backward(in, out *utils.NDArray, fast bool) error
	ScalarProduct(in, out *utils.NDArray, fast bool) error
	ApplyInverseMass(a *utils.NDArray) error
	Eval(x []float64, coeffs []complex128) ([]complex128, error)

	// Rebuild returns an unplanned basis of the same family and settings with
	// a new size and padding factor.
	Rebuild(N int, paddingFactor float64) (Basis, error)
	BoundaryValues() *BoundaryValues
}

// HermitianWeights is implemented by real to complex families that store only
// the non negative half of a conjugate symmetric spectrum.
type HermitianWeights interface {
	HermitianWeights() []float64
}

// Kernel is the family specific part of a basis that Base needs for the
// exact Vandermonde paths.
type Kernel interface {
	PointsAndWeights(N int, scaled bool) (points, weights []float64, err error)
	Vandermonde(x []float64) *mat.CDense
	GetVandermondeBasis(V *mat.CDense) *mat.CDense
}

// Base carries the state shared by every family: size, quadrature, domain,
// padding and the plan.
type Base struct {
	kernel        Kernel
	family        Family
	n             int
	quad          Quad
	domain        [2]float64
	reference     [2]float64
	paddingFactor float64
	dealiasDirect bool
	plan          planState
	cache         map[string]interface{}
}

type planState struct {
	planned bool
	shape   []int
	axis    int
	dtype   utils.DType
}

func NewBase(family Family, N int, quad Quad, domain, reference [2]float64,
	paddingFactor float64, dealiasDirect bool) (b *Base) {
	if paddingFactor == 0 {
		paddingFactor = 1
	}
	if domain[0] == domain[1] {
		domain = reference
	}
	b = &Base{
		family:        family,
		n:             N,
		quad:          quad,
		domain:        domain,
		reference:     reference,
		paddingFactor: paddingFactor,
		dealiasDirect: dealiasDirect,
		cache:         make(map[string]interface{}),
	}
	return
}

// Bind attaches the family implementation, normally the struct embedding b.
func (b *Base) Bind(k Kernel) { b.kernel = k }

func (b *Base) Family() Family         { return b.family }
func (b *Base) N() int                 { return b.n }
func (b *Base) Quad() Quad             { return b.quad }
func (b *Base) Domain() [2]float64     { return b.domain }
func (b *Base) Reference() [2]float64  { return b.reference }
func (b *Base) PaddingFactor() float64 { return b.paddingFactor }
func (b *Base) DealiasDirect() bool    { return b.dealiasDirect }
func (b *Base) Planned() bool          { return b.plan.planned }

// IsPadded reports a padding factor measurably above one.
func (b *Base) IsPadded() bool { return b.paddingFactor > 1+1e-8 }

// Np is the physical size along the axis, including padding.
func (b *Base) Np() int { return int(math.Floor(b.paddingFactor * float64(b.n))) }

func (b *Base) SpectralSize() int {
	if b.family == FourierR2C {
		return b.n/2 + 1
	}
	return b.n
}

func (b *Base) Axis() int {
	if !b.plan.planned {
		return 0
	}
	return b.plan.axis
}

// Plan fixes the physical input shape, axis and dtype. Planning again with the
// same parameters keeps the current buffers; anything else discards them.
func (b *Base) Plan(shape []int, axis int, dtype utils.DType) (err error) {
	if axis < 0 || axis >= len(shape) {
		return fmt.Errorf("%w: plan axis %d for shape %v", ErrConfig, axis, shape)
	}
	if shape[axis] != b.Np() {
		return fmt.Errorf("%w: %v axis %d has length %d, basis needs %d",
			ErrShape, b.family, axis, shape[axis], b.Np())
	}
	if b.family == FourierR2C && dtype != utils.Float64 {
		return fmt.Errorf("%w: R2C basis planned with %v input", ErrConfig, dtype)
	}
	if b.plan.planned && b.plan.axis == axis && b.plan.dtype == dtype &&
		utils.ShapeEqual(b.plan.shape, shape) {
		return
	}
	b.cache = make(map[string]interface{})
	b.plan = planState{
		planned: true,
		shape:   utils.CopyShape(shape),
		axis:    axis,
		dtype:   dtype,
	}
	jww.DEBUG.Printf("plan %v N=%d quad=%v: shape %v axis %d dtype %v\n",
		b.family, b.n, b.quad, shape, axis, dtype)
	return
}

func (b *Base) InputShape() []int { return utils.CopyShape(b.plan.shape) }

func (b *Base) OutputShape() (s []int) {
	s = utils.CopyShape(b.plan.shape)
	if b.plan.planned {
		s[b.plan.axis] = b.SpectralSize()
	}
	return
}

func (b *Base) InputDType() utils.DType { return b.plan.dtype }

func (b *Base) OutputDType() utils.DType {
	if b.family == FourierR2C {
		return utils.Complex128
	}
	return b.plan.dtype
}

// CheckPlanned validates the plan state and the shapes of a transform pair.
func (b *Base) CheckPlanned(in, out *utils.NDArray, inShape, outShape []int) (err error) {
	if !b.plan.planned {
		return fmt.Errorf("%w: %v N=%d", ErrNotPlanned, b.family, b.n)
	}
	if err = utils.CheckShape(in, inShape, "input"); err != nil {
		return
	}
	return utils.CheckShape(out, outShape, "output")
}

func (b *Base) DomainFactor() float64 {
	return (b.reference[1] - b.reference[0]) / (b.domain[1] - b.domain[0])
}

func (b *Base) MapReferenceDomain(x []float64) (r []float64) {
	r = make([]float64, len(x))
	a := b.DomainFactor()
	for i, val := range x {
		r[i] = b.reference[0] + (val-b.domain[0])*a
	}
	return
}

func (b *Base) MapTrueDomain(x []float64) (r []float64) {
	r = make([]float64, len(x))
	a := b.DomainFactor()
	for i, val := range x {
		r[i] = b.domain[0] + (val-b.reference[0])/a
	}
	return
}

// Mesh returns the physical points along the axis, in the true domain.
func (b *Base) Mesh() (x []float64) {
	var err error
	if x, _, err = b.kernel.PointsAndWeights(b.Np(), true); err != nil {
		panic(err)
	}
	return
}

// Wavenumbers returns the index or frequency of each spectral slot.
func (b *Base) Wavenumbers(scaled, eliminateHighestFreq bool) (k []float64) {
	var (
		N = b.n
	)
	switch b.family {
	case FourierR2C:
		k = utils.Arange(N/2 + 1)
		if N%2 == 0 && eliminateHighestFreq {
			k[N/2] = 0
		}
	case FourierC2C:
		k = make([]float64, N)
		for i := range k {
			if i < (N+1)/2 {
				k[i] = float64(i)
			} else {
				k[i] = float64(i - N)
			}
		}
		if N%2 == 0 && eliminateHighestFreq {
			k[N/2] = 0
		}
	default:
		k = utils.Arange(N)
	}
	if scaled {
		a := b.DomainFactor()
		for i := range k {
			k[i] *= a
		}
	}
	return
}

// Cached returns the value stored under key, building it once per plan.
func (b *Base) Cached(key string, build func() interface{}) interface{} {
	if val, ok := b.cache[key]; ok {
		return val
	}
	val := build()
	b.cache[key] = val
	return val
}

// RealInput reports whether the physical side of the plan is real valued.
func (b *Base) RealInput() bool { return b.plan.dtype == utils.Float64 }
