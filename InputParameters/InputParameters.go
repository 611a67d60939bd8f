package InputParameters

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ghodss/yaml"

	"github.com/notargets/gospectral/comm"
	"github.com/notargets/gospectral/expression"
	"github.com/notargets/gospectral/fourier"
	"github.com/notargets/gospectral/legendre"
	sb "github.com/notargets/gospectral/spectralbase"
	"github.com/notargets/gospectral/tensorproductspace"
)

// Parameters of one axis obtained from the YAML input file
type BasisParameters struct {
	Family        string        `json:"Family"` // R2C, C2C, Legendre, ShenDirichlet, ShenNeumann, ShenBiharmonic
	Size          int           `json:"Size"`   // Number of modes; a bare N reads as a YAML boolean
	Quad          string        `json:"Quad"`   // GC, LG or GL
	PaddingFactor float64       `json:"PaddingFactor"`
	Domain        []float64     `json:"Domain"`
	BC            []interface{} `json:"BC"` // Two numbers or expressions, u(left) and u(right)
	Mean          float64       `json:"Mean"`
	Scaled        bool          `json:"Scaled"`
	DealiasDirect bool          `json:"DealiasDirect"`
}

// Parameters of a space obtained from the YAML input file
type SpaceParameters struct {
	Title  string             `json:"Title"`
	Bases  []BasisParameters  `json:"Bases"`
	Axes   []int              `json:"Axes"`
	Slab   bool               `json:"Slab"`
	Procs  int                `json:"Procs"`
	Checks []string           `json:"Checks"`
	Params map[string]float64 `json:"Params"` // Extra expression parameters, time for example
}

func (sp *SpaceParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, sp); err != nil {
		return
	}
	if len(sp.Bases) == 0 {
		return fmt.Errorf("%w: no bases in input", sb.ErrConfig)
	}
	if sp.Procs == 0 {
		sp.Procs = 1
	}
	return
}

func (sp *SpaceParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", sp.Title)
	for i, bp := range sp.Bases {
		fmt.Printf("[%d] %s Size=%d Quad=%s Padding=%v Domain=%v BC=%v\n",
			i, bp.Family, bp.Size, bp.Quad, bp.PaddingFactor, bp.Domain, bp.BC)
	}
	fmt.Printf("%v\t\t\t= Axes\n", sp.Axes)
	fmt.Printf("[%d]\t\t\t= Procs\n", sp.Procs)
	fmt.Printf("%v\t= Checks\n", sp.Checks)
	keys := make([]string, 0, len(sp.Params))
	for k := range sp.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("Params[%s] = %v\n", key, sp.Params[key])
	}
}

// Options translates the axis settings into basis options.
func (bp *BasisParameters) Options() (opts []sb.Option, err error) {
	if bp.Quad != "" {
		var q sb.Quad
		if q, err = sb.NewQuad(strings.ToUpper(bp.Quad)); err != nil {
			return
		}
		opts = append(opts, sb.WithQuad(q))
	}
	switch len(bp.Domain) {
	case 0:
	case 2:
		opts = append(opts, sb.WithDomain(bp.Domain[0], bp.Domain[1]))
	default:
		return nil, fmt.Errorf("%w: domain %v needs two end points", sb.ErrConfig, bp.Domain)
	}
	if bp.PaddingFactor != 0 {
		opts = append(opts, sb.WithPadding(bp.PaddingFactor))
	}
	if bp.DealiasDirect {
		opts = append(opts, sb.WithDealiasDirect())
	}
	if bp.Scaled {
		opts = append(opts, sb.WithScaled())
	}
	if bp.Mean != 0 {
		opts = append(opts, sb.WithMean(bp.Mean))
	}
	if len(bp.BC) != 0 {
		var bc [2]sb.BC
		if bc, err = bp.BoundaryConditions(); err != nil {
			return
		}
		opts = append(opts, sb.WithBC(bc))
	}
	return
}

// BoundaryConditions reads the BC pair. Strings that do not parse as numbers
// are expressions.
func (bp *BasisParameters) BoundaryConditions() (bc [2]sb.BC, err error) {
	if len(bp.BC) != 2 {
		err = fmt.Errorf("%w: BC needs two values, have %v", sb.ErrConfig, bp.BC)
		return
	}
	for i, val := range bp.BC {
		switch v := val.(type) {
		case float64:
			bc[i] = sb.Number(v)
		case string:
			if f, perr := strconv.ParseFloat(v, 64); perr == nil {
				bc[i] = sb.Number(f)
				continue
			}
			var ex *expression.Expression
			if ex, err = expression.New(v); err != nil {
				return
			}
			bc[i] = sb.Expr(ex)
		default:
			err = fmt.Errorf("%w: BC value %v of type %T", sb.ErrConfig, val, val)
			return
		}
	}
	return
}

// NewBasis builds an unplanned basis, extra options applied last. Every rank
// needs its own instance.
func (bp *BasisParameters) NewBasis(extra ...sb.Option) (b sb.Basis, err error) {
	var opts []sb.Option
	if opts, err = bp.Options(); err != nil {
		return
	}
	opts = append(opts, extra...)
	switch strings.ToLower(bp.Family) {
	case "r2c", "fourier":
		return fourier.NewR2C(bp.Size, opts...)
	case "c2c":
		return fourier.NewC2C(bp.Size, opts...)
	case "legendre":
		return legendre.New(bp.Size, opts...)
	case "shendirichlet", "dirichlet":
		return legendre.NewShenDirichlet(bp.Size, opts...)
	case "shenneumann", "neumann":
		return legendre.NewShenNeumann(bp.Size, opts...)
	case "shenbiharmonic", "biharmonic":
		return legendre.NewShenBiharmonic(bp.Size, opts...)
	}
	return nil, fmt.Errorf("%w: unknown family %q", sb.ErrConfig, bp.Family)
}

// NewSpace builds the space on one rank. Collective over g.
func (sp *SpaceParameters) NewSpace(g comm.Group) (T *tensorproductspace.TensorProductSpace, err error) {
	bases := make([]sb.Basis, len(sp.Bases))
	for i := range sp.Bases {
		if bases[i], err = sp.Bases[i].NewBasis(sb.WithParams(sp.Params)); err != nil {
			return nil, fmt.Errorf("basis %d: %w", i, err)
		}
	}
	var opts []tensorproductspace.Option
	if len(sp.Axes) != 0 {
		opts = append(opts, tensorproductspace.WithAxes(sp.Axes...))
	}
	if sp.Slab {
		opts = append(opts, tensorproductspace.WithSlab())
	}
	return tensorproductspace.New(g, bases, opts...)
}
