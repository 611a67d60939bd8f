/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"io/ioutil"
	"math"
	"math/rand"
	"os"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gospectral/InputParameters"
	"github.com/notargets/gospectral/comm"
	sb "github.com/notargets/gospectral/spectralbase"
	"github.com/notargets/gospectral/tensorproductspace"
	"github.com/notargets/gospectral/utils"
)

// ExampleSpace is printed when no input file is given.
const ExampleSpace = `
########################################
Title: "Channel"
Procs: 2
Bases:
  - Family: ShenDirichlet
    Size: 16
    Quad: GL
    BC: [0, "sin(y)"]
  - Family: R2C
    Size: 16
Checks: [roundtrip, exact, boundary, evaluate]
########################################
`

var DefaultChecks = []string{"roundtrip", "exact", "boundary", "evaluate", "convolve"}

type CheckResult struct {
	Name    string
	Error   float64 // Maximum absolute deviation over all ranks
	Skipped string  // Reason the check did not run
}

// TransformCmd represents the transform command
var TransformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Build a tensor product space from a YAML file and check its transforms",
	Long: `Build a tensor product space from a YAML file and check its transforms.
A random physical field is projected onto the space, then the projection is
transformed again and compared, along with the exact (matrix) transforms,
the boundary values of Dirichlet axes, point evaluation and the padded
convolution of the field with itself.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			sp      *InputParameters.SpaceParameters
			results []CheckResult
		)
		if sp, err = readSpace(viper.GetString("inputFile")); err != nil {
			return
		}
		if procs := viper.GetInt("procs"); procs != 0 {
			sp.Procs = procs
		}
		sp.Print()
		if results, err = RunChecks(sp, viper.GetBool("fast"), viper.GetInt64("seed")); err != nil {
			return
		}
		fmt.Printf("%-12s %14s\n", "Check", "Max Error")
		for _, r := range results {
			if r.Skipped != "" {
				fmt.Printf("%-12s %14s (%s)\n", r.Name, "skipped", r.Skipped)
				continue
			}
			fmt.Printf("%-12s %14.6e\n", r.Name, r.Error)
		}
		return
	},
}

func init() {
	rootCmd.AddCommand(TransformCmd)
	TransformCmd.Flags().StringP("inputFile", "I", "", "YAML file describing the bases, axes and checks of the space")
	TransformCmd.Flags().IntP("procs", "n", 0, "number of ranks, overrides Procs in the input file")
	TransformCmd.Flags().Bool("fast", true, "use the fast transforms, the exact ones are used for comparison")
	TransformCmd.Flags().Int64("seed", 1, "seed of the random physical field")
	for _, name := range []string{"inputFile", "procs", "fast", "seed"} {
		_ = viper.BindPFlag(name, TransformCmd.Flags().Lookup(name))
	}
}

func readSpace(fileName string) (sp *InputParameters.SpaceParameters, err error) {
	if len(fileName) == 0 {
		fmt.Printf("error: must supply an input file (-I, --inputFile)\nExample File:%s\n", ExampleSpace)
		os.Exit(1)
	}
	var data []byte
	if data, err = ioutil.ReadFile(fileName); err != nil {
		return
	}
	sp = &InputParameters.SpaceParameters{}
	err = sp.Parse(data)
	return
}

// RunChecks builds the space on sp.Procs ranks and runs the requested checks.
// The results are those of rank 0, after a max reduction over all ranks.
func RunChecks(sp *InputParameters.SpaceParameters, fast bool, seed int64) (results []CheckResult, err error) {
	checks := sp.Checks
	if len(checks) == 0 {
		checks = DefaultChecks
	}
	err = comm.Run(sp.Procs, func(g comm.Group) (err error) {
		var T *tensorproductspace.TensorProductSpace
		if T, err = sp.NewSpace(g); err != nil {
			return
		}
		defer T.Destroy()
		ck := &checker{sp: sp, T: T, fast: fast}
		if err = ck.project(seed); err != nil {
			return
		}
		var local []CheckResult
		for _, name := range checks {
			r := CheckResult{Name: name}
			switch name {
			case "roundtrip":
				r.Error, err = ck.roundTrip()
			case "exact":
				r.Error, err = ck.exact()
			case "boundary":
				r.Error, err = ck.boundary()
			case "evaluate":
				r.Error, err = ck.evaluate()
			case "convolve":
				r.Error, err = ck.convolve()
			default:
				err = fmt.Errorf("%w: unknown check %q", sb.ErrConfig, name)
			}
			if errors.Is(err, errSkip) {
				r.Skipped, err = err.Error(), nil
			}
			if err != nil {
				return
			}
			if r.Error, err = globalMax(g, r.Error); err != nil {
				return
			}
			jww.DEBUG.Printf("rank %d: %s = %g\n", g.Rank(), r.Name, r.Error)
			local = append(local, r)
		}
		if g.Rank() == 0 {
			results = local
		}
		return
	})
	return
}

var errSkip = errors.New("skipped")

type checker struct {
	sp       *InputParameters.SpaceParameters
	T        *tensorproductspace.TensorProductSpace
	fast     bool
	u1, uhat *utils.NDArray // Projected field and its coefficients
}

// project draws a random global field, identical on all ranks, and projects
// it onto the space.
func (ck *checker) project(seed int64) (err error) {
	var (
		T     = ck.T
		shape = T.Shape(false)
		rnd   = rand.New(rand.NewSource(seed))
		G     = utils.NewNDArray(shape...)
	)
	for i := range G.Data {
		if T.DType() == utils.Float64 {
			G.Data[i] = complex(rnd.Float64()-0.5, 0)
		} else {
			G.Data[i] = complex(rnd.Float64()-0.5, rnd.Float64()-0.5)
		}
	}
	sl := T.LocalSlice(false)
	start, count := make([]int, len(sl)), make([]int, len(sl))
	for i, s := range sl {
		start[i], count[i] = s[0], s[1]-s[0]
	}
	u := utils.NewNDArrayFrom(count, G.Block(start, count))
	ck.uhat, ck.u1 = T.NewArray(true), T.NewArray(false)
	if err = T.Forward(u, ck.uhat, ck.fast); err != nil {
		return
	}
	return T.Backward(ck.uhat, ck.u1, ck.fast)
}

func (ck *checker) roundTrip() (e float64, err error) {
	uhat := ck.T.NewArray(true)
	if err = ck.T.Forward(ck.u1, uhat, ck.fast); err != nil {
		return
	}
	u2 := ck.T.NewArray(false)
	if err = ck.T.Backward(uhat, u2, ck.fast); err != nil {
		return
	}
	return math.Max(maxDiff(uhat, ck.uhat), maxDiff(u2, ck.u1)), nil
}

func (ck *checker) exact() (e float64, err error) {
	for _, b := range ck.T.Bases() {
		if b.IsPadded() {
			return 0, fmt.Errorf("%w: %v is padded", errSkip, b.Family())
		}
	}
	uhat := ck.T.NewArray(true)
	if err = ck.T.Forward(ck.u1, uhat, !ck.fast); err != nil {
		return
	}
	u2 := ck.T.NewArray(false)
	if err = ck.T.Backward(uhat, u2, !ck.fast); err != nil {
		return
	}
	return math.Max(maxDiff(uhat, ck.uhat), maxDiff(u2, ck.u1)), nil
}

// boundary evaluates the projection on both end faces of every Dirichlet axis,
// at the mesh points of the other axes, and compares with the imposed values.
func (ck *checker) boundary() (e float64, err error) {
	var (
		T     = ck.T
		mesh  = T.Mesh()
		found bool
	)
	for axis, b := range T.Bases() {
		bv := b.BoundaryValues()
		if bv == nil || b.Family() != sb.ShenDirichlet {
			continue
		}
		found = true
		faceShape := utils.CopyShape(T.Shape(false))
		faceShape[axis] = 1
		for side, bc := range bv.BC() {
			if bc.Kind == sb.BCArray {
				continue
			}
			var (
				points = make([][]float64, len(mesh))
				want   []float64
				idx    = make([]int, len(faceShape))
				vars   = make(map[string]float64)
				val    float64
			)
			for k, v := range ck.sp.Params {
				vars[k] = v
			}
			for {
				for i := range idx {
					x := b.Domain()[side]
					if i != axis {
						x = mesh[i][idx[i]]
					}
					points[i] = append(points[i], x)
					vars[coordinateName(i)] = x
				}
				if val, err = bcValue(bc, vars); err != nil {
					return
				}
				want = append(want, val)
				if !utils.NextIndex(idx, faceShape) {
					break
				}
			}
			var got []complex128
			if got, err = T.Evaluate(points, ck.uhat); err != nil {
				return
			}
			for p := range got {
				e = math.Max(e, math.Abs(real(got[p])-want[p]))
			}
		}
	}
	if !found {
		return 0, fmt.Errorf("%w: no Dirichlet axis", errSkip)
	}
	return
}

func (ck *checker) evaluate() (e float64, err error) {
	var (
		T      = ck.T
		mesh   = T.Mesh()
		shape  = T.Shape(false)
		points = make([][]float64, len(mesh))
		idx    = make([]int, len(shape))
		G      *utils.NDArray
		got    []complex128
	)
	for {
		for i := range idx {
			points[i] = append(points[i], mesh[i][idx[i]])
		}
		if !utils.NextIndex(idx, shape) {
			break
		}
	}
	if got, err = T.Evaluate(points, ck.uhat); err != nil {
		return
	}
	if G, err = T.Gather(ck.u1, false); err != nil {
		return
	}
	return maxDiff(utils.NewNDArrayFrom(shape, got), G), nil
}

// convolve compares the padded product of the projection with itself against
// the same product formed on a space with twice the modes in physical space.
func (ck *checker) convolve() (e float64, err error) {
	ab := ck.T.NewArray(true)
	if err = ck.T.Convolve(ck.uhat, ck.uhat, ab, ck.fast); err != nil {
		if errors.Is(err, sb.ErrInsufficientPadding) {
			err = fmt.Errorf("%w: %v", errSkip, err)
		}
		return
	}
	var (
		bases = ck.T.Bases()
		fine  = make([]sb.Basis, len(bases))
		opts  = []tensorproductspace.Option{tensorproductspace.WithAxes(ck.T.Axes()...)}
		F     *tensorproductspace.TensorProductSpace
	)
	for i, b := range bases {
		pf := 1.
		if b.Family().IsPeriodic() {
			pf = 2
		}
		if fine[i], err = b.Rebuild(b.N(), pf); err != nil {
			return
		}
	}
	if ck.sp.Slab {
		opts = append(opts, tensorproductspace.WithSlab())
	}
	if F, err = tensorproductspace.New(ck.T.Group(), fine, opts...); err != nil {
		return
	}
	defer F.Destroy()
	u := F.NewArray(false)
	if err = F.Backward(ck.uhat, u, ck.fast); err != nil {
		return
	}
	u.ElMul(u)
	want := F.NewArray(true)
	if err = F.Forward(u, want, ck.fast); err != nil {
		return
	}
	return maxDiff(ab, want), nil
}

func bcValue(bc sb.BC, vars map[string]float64) (float64, error) {
	if bc.Kind == sb.BCExpr {
		return bc.Expr.Eval(vars)
	}
	return bc.Value, nil
}

func coordinateName(axis int) string {
	if axis < 3 {
		return []string{"x", "y", "z"}[axis]
	}
	return fmt.Sprintf("x%d", axis)
}

func maxDiff(A, B *utils.NDArray) float64 {
	if A.Size() == 0 {
		return 0
	}
	var (
		re = make([]float64, A.Size())
		im = make([]float64, A.Size())
	)
	for i, val := range A.Data {
		d := val - B.Data[i]
		re[i], im[i] = real(d), imag(d)
	}
	return math.Max(floats.Norm(re, math.Inf(1)), floats.Norm(im, math.Inf(1)))
}

func globalMax(g comm.Group, local float64) (m float64, err error) {
	var all [][]complex128
	if all, err = g.AllGather([]complex128{complex(local, 0)}); err != nil {
		return
	}
	for _, v := range all {
		m = math.Max(m, real(v[0]))
	}
	return
}
