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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notargets/gospectral/InputParameters"
	"github.com/notargets/gospectral/comm"
	"github.com/notargets/gospectral/tensorproductspace"
)

type RankLayout struct {
	Rank                         int
	Dims                         []int
	PhysicalShape, SpectralShape []int
	PhysicalSlice, SpectralSlice [][2]int
}

// LayoutCmd represents the layout command
var LayoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the physical and spectral blocks owned by every rank",
	Long:  `Print the physical and spectral blocks owned by every rank`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			sp      *InputParameters.SpaceParameters
			layouts []RankLayout
		)
		fileName, _ := cmd.Flags().GetString("inputFile")
		if sp, err = readSpace(fileName); err != nil {
			return
		}
		if procs, _ := cmd.Flags().GetInt("procs"); procs != 0 {
			sp.Procs = procs
		}
		if layouts, err = Layout(sp); err != nil {
			return
		}
		fmt.Printf("Process grid %v\n", layouts[0].Dims)
		for _, l := range layouts {
			fmt.Printf("[%3d] physical %v %v\tspectral %v %v\n",
				l.Rank, l.PhysicalShape, l.PhysicalSlice, l.SpectralShape, l.SpectralSlice)
		}
		return
	},
}

func init() {
	rootCmd.AddCommand(LayoutCmd)
	LayoutCmd.Flags().StringP("inputFile", "I", "", "YAML file describing the bases and axes of the space")
	LayoutCmd.Flags().IntP("procs", "n", 0, "number of ranks, overrides Procs in the input file")
}

// Layout builds the space on sp.Procs ranks and reports the blocks of each.
func Layout(sp *InputParameters.SpaceParameters) (layouts []RankLayout, err error) {
	layouts = make([]RankLayout, sp.Procs)
	err = comm.Run(sp.Procs, func(g comm.Group) (err error) {
		var T *tensorproductspace.TensorProductSpace
		if T, err = sp.NewSpace(g); err != nil {
			return
		}
		layouts[g.Rank()] = RankLayout{
			Rank:          g.Rank(),
			Dims:          T.Dims(),
			PhysicalShape: T.LocalShape(false),
			SpectralShape: T.LocalShape(true),
			PhysicalSlice: T.LocalSlice(false),
			SpectralSlice: T.LocalSlice(true),
		}
		return T.Destroy()
	})
	return
}
