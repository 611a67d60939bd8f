package InputParameters

import (
	"errors"
	"testing"

	"github.com/magiconair/properties/assert"

	"github.com/notargets/gospectral/comm"
	sb "github.com/notargets/gospectral/spectralbase"
	"github.com/notargets/gospectral/utils"
)

var channelInput = []byte(`
Title: Channel
Procs: 2
Axes: [0, 1]
Bases:
  - Family: ShenDirichlet
    Size: 8
    Quad: gl
    BC: [0, "sin(y) + t"]
  - Family: R2C
    Size: 8
    PaddingFactor: 1.5
Checks: [roundtrip, boundary]
Params:
  t: 0.5
`)

func TestParse(t *testing.T) {
	var (
		sp  SpaceParameters
		err error
	)
	if err = sp.Parse(channelInput); err != nil {
		panic(err)
	}
	assert.Equal(t, sp.Title, "Channel")
	assert.Equal(t, sp.Procs, 2)
	assert.Equal(t, len(sp.Bases), 2)
	assert.Equal(t, sp.Bases[0].Size, 8)
	assert.Equal(t, sp.Bases[1].Size, 8)
	assert.Equal(t, sp.Bases[1].Family, "R2C")
	assert.Equal(t, sp.Bases[1].PaddingFactor, 1.5)
	assert.Equal(t, sp.Params["t"], 0.5)
	assert.Equal(t, sp.Checks, []string{"roundtrip", "boundary"})
	sp.Print()

	bc, err := sp.Bases[0].BoundaryConditions()
	assert.Equal(t, err, nil)
	assert.Equal(t, bc[0].Kind, sb.BCNumber)
	assert.Equal(t, bc[1].Kind, sb.BCExpr)
	val, err := bc[1].Expr.Eval(map[string]float64{"y": 0, "t": 0.5})
	assert.Equal(t, err, nil)
	assert.Equal(t, val, 0.5)

	b, err := sp.Bases[0].NewBasis()
	assert.Equal(t, err, nil)
	assert.Equal(t, b.Family(), sb.ShenDirichlet)
	assert.Equal(t, b.Quad(), sb.GL)

	{ // Bad input
		var bad SpaceParameters
		assert.Equal(t, errors.Is(bad.Parse([]byte("Title: empty\n")), sb.ErrConfig), true)
		bp := BasisParameters{Family: "Chebyshev", Size: 8}
		_, err = bp.NewBasis()
		assert.Equal(t, errors.Is(err, sb.ErrConfig), true)
		bp = BasisParameters{Family: "ShenDirichlet", Size: 8, BC: []interface{}{1.}}
		_, err = bp.NewBasis()
		assert.Equal(t, errors.Is(err, sb.ErrConfig), true)
		bp = BasisParameters{Family: "R2C", Size: 8, Quad: "XX"}
		_, err = bp.NewBasis()
		assert.Equal(t, errors.Is(err, sb.ErrUnsupportedQuad), true)
	}
}

func TestNewSpace(t *testing.T) {
	var sp SpaceParameters
	if err := sp.Parse(channelInput); err != nil {
		panic(err)
	}
	shapes := make([][]int, sp.Procs)
	err := comm.Run(sp.Procs, func(g comm.Group) (err error) {
		T, err := sp.NewSpace(g)
		if err != nil {
			return
		}
		defer T.Destroy()
		shapes[g.Rank()] = T.Shape(false)
		if T.DType() != utils.Float64 {
			return errors.New("channel space should be real")
		}
		// t reached the boundary expression before the space was wired
		if bv := T.Bases()[0].BoundaryValues(); bv.Params()["t"] != 0.5 {
			return errors.New("parameter t missing from the boundary values")
		}
		return
	})
	assert.Equal(t, err, nil)
	assert.Equal(t, shapes[0], []int{8, 12})
	assert.Equal(t, shapes[1], []int{8, 12})
}
