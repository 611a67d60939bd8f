package spectralbase

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gospectral/utils"
)

func TestPlanState(t *testing.T) {
	b := NewBase(Legendre, 6, LG, [2]float64{}, [2]float64{-1, 1}, 0, false)
	assert.Equal(t, 1., b.PaddingFactor())
	assert.Equal(t, [2]float64{-1, 1}, b.Domain())
	assert.False(t, b.Planned())

	in, out := utils.NewNDArray(3, 6), utils.NewNDArray(3, 6)
	err := b.CheckPlanned(in, out, []int{3, 6}, []int{3, 6})
	assert.True(t, errors.Is(err, ErrNotPlanned))

	require.NoError(t, b.Plan([]int{3, 6}, 1, utils.Float64))
	var builds int
	build := func() interface{} { builds++; return builds }
	assert.Equal(t, 1, b.Cached("mass", build))
	assert.Equal(t, 1, b.Cached("mass", build))

	// Same plan keeps the cache, a new one drops it
	require.NoError(t, b.Plan([]int{3, 6}, 1, utils.Float64))
	assert.Equal(t, 1, b.Cached("mass", build))
	require.NoError(t, b.Plan([]int{6, 2}, 0, utils.Complex128))
	assert.Equal(t, 2, b.Cached("mass", build))
	assert.Equal(t, []int{6, 2}, b.OutputShape())
	assert.Equal(t, utils.Complex128, b.OutputDType())

	assert.True(t, errors.Is(b.Plan([]int{5, 2}, 0, utils.Float64), ErrShape))
	assert.True(t, errors.Is(b.Plan([]int{6, 2}, 2, utils.Float64), ErrConfig))

	r2c := NewBase(FourierR2C, 8, GC, [2]float64{}, [2]float64{0, 2 * math.Pi}, 1.5, false)
	assert.True(t, r2c.IsPadded())
	assert.Equal(t, 12, r2c.Np())
	assert.Equal(t, 5, r2c.SpectralSize())
	assert.True(t, errors.Is(r2c.Plan([]int{12}, 0, utils.Complex128), ErrConfig))
	require.NoError(t, r2c.Plan([]int{12}, 0, utils.Float64))
	assert.Equal(t, []int{5}, r2c.OutputShape())
	assert.Equal(t, utils.Complex128, r2c.OutputDType())
}

func TestDomainAndWavenumbers(t *testing.T) {
	b := NewBase(ShenDirichlet, 8, GL, [2]float64{0, 4}, [2]float64{-1, 1}, 1, false)
	assert.Equal(t, 0.5, b.DomainFactor())
	assert.InDeltaSlice(t, []float64{-1, 0, 1}, b.MapReferenceDomain([]float64{0, 2, 4}), 1e-14)
	assert.InDeltaSlice(t, []float64{0, 2, 4}, b.MapTrueDomain([]float64{-1, 0, 1}), 1e-14)
	assert.Equal(t, utils.Arange(8), b.Wavenumbers(false, false))

	c2c := NewBase(FourierC2C, 6, GC, [2]float64{0, math.Pi}, [2]float64{0, 2 * math.Pi}, 1, false)
	assert.Equal(t, []float64{0, 1, 2, -3, -2, -1}, c2c.Wavenumbers(false, false))
	assert.Equal(t, []float64{0, 2, 4, 0, -4, -2}, c2c.Wavenumbers(true, true))

	r2c := NewBase(FourierR2C, 6, GC, [2]float64{}, [2]float64{0, 2 * math.Pi}, 1, false)
	assert.Equal(t, []float64{0, 1, 2, 0}, r2c.Wavenumbers(false, true))
}

func TestOptionsAndBC(t *testing.T) {
	q, err := NewQuad("GL")
	require.NoError(t, err)
	assert.Equal(t, "GL", q.String())
	_, err = NewQuad("GC4")
	assert.True(t, errors.Is(err, ErrUnsupportedQuad))

	o := NewOptions(WithQuad(LG), WithPadding(1.5), WithMean(2), WithBC(Numbers(1, -1)))
	assert.True(t, o.QuadSet)
	assert.Equal(t, 1.5, o.PaddingFactor)
	c := NewOptions(append(o.Apply(), WithPadding(1))...)
	assert.Equal(t, 1., c.PaddingFactor)
	assert.Equal(t, 2., c.Mean)
	assert.Equal(t, Numbers(1, -1), c.BC)

	assert.Equal(t, Numbers(0, 0), NewOptions().BC)
	bv := NewBoundaryValues(nil, Numbers(0, 0), nil)
	assert.False(t, bv.HasNonhomogeneousBcs())
	bv = NewBoundaryValues(nil, [2]BC{Number(0), Array(utils.NewNDArray(2).Fill(1))}, map[string]float64{"t": 1})
	assert.True(t, bv.HasNonhomogeneousBcs())
	params := bv.Params()
	params["t"] = 2
	assert.Equal(t, map[string]float64{"t": 1}, bv.Params())
	o = NewOptions(WithParams(params))
	params["t"] = 3
	assert.Equal(t, 2., o.Params["t"])
	assert.Equal(t, "0", bv.BC()[0].String())
	assert.Equal(t, "array[2]", bv.BC()[1].String())
	assert.Equal(t, "ShenBiharmonic", ShenBiharmonic.String())
	assert.True(t, FourierC2C.IsPeriodic())
	assert.False(t, Legendre.IsPeriodic())
}
