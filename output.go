/*
Copyright © 2019 the ShelfMelt authors.
This file is part of ShelfMelt.

ShelfMelt is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ShelfMelt is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ShelfMelt.  If not, see <http://www.gnu.org/licenses/>.
*/

package shelfmelt

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"

	"github.com/cryomodel/shelfmelt/comm"
)

// diagnostics returns the gatherable per-cell model variables by name. The
// float fields carry the melt model outputs; the label masks and geometry
// inputs are included so that output files are self-describing.
func (m *Model) diagnostics() map[string]func(comm.Comm) (*sparse.DenseArray, error) {
	return map[string]func(comm.Comm) (*sparse.DenseArray, error){
		"basal_melt_rate":   m.BasalMeltRate.Gather,
		"basal_temperature": m.BasalTemperature.Gather,
		"temperature":       m.Toc.Gather,
		"salinity":          m.Soc.Gather,
		"temperature_box0":  m.TocBox0.Gather,
		"salinity_box0":     m.SocBox0.Gather,
		"T_star":            m.TStar.Gather,
		"overturning":       m.Overturning.Gather,
		"theta_ocean":       m.ThetaOcean.Gather,
		"salinity_ocean":    m.SalinityOcean.Gather,
		"ice_thickness":     m.IceThickness.Gather,
		"cell_type":         m.CellType.Gather,
		"basins":            m.BasinMask.Gather,
		"shelf_mask":        m.ShelfMask.Gather,
		"box_mask":          m.BoxMask.Gather,
		"contshelf_mask":    m.ContShelfMask.Gather,
	}
}

// OutputOptions returns the names of the model variables available to output
// expressions, sorted.
func (m *Model) OutputOptions() []string {
	d := m.diagnostics()
	names := make([]string, 0, len(d))
	for n := range d {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Outputter is a holder for output parameters.
//
// fileName contains the path where the output will be saved.
//
// outputVariables maps the names of the variables for which data should be
// written to expressions that define how the requested data should be
// calculated. These expressions can utilize variables built into the model
// and functions.
//
// modelVariables is automatically generated based on the model variables that
// are required to calculate the requested output variables.
type Outputter struct {
	fileName        string
	outputVariables map[string]string
	modelVariables  []string
	outputFunctions map[string]govaluate.ExpressionFunction
}

// NewOutputter initializes a new Outputter holder and adds a set of default
// output functions. Default functions include:
//
// 'exp(x)' which applies the exponential function e^x.
//
// 'abs(x)' which returns the absolute value of x.
//
// 'sum(x)' which sums a variable across all grid cells; expressions using it
// produce a scalar, written as a global attribute rather than a gridded
// variable.
func NewOutputter(fileName string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("shelfmelt: got %d arguments for function 'exp', but needs 1", len(arg))
			}
			return math.Exp(arg[0].(float64)), nil
		},
		"abs": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("shelfmelt: got %d arguments for function 'abs', but needs 1", len(arg))
			}
			return math.Abs(arg[0].(float64)), nil
		},
		"sum": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("shelfmelt: got %d arguments for function 'sum', but needs 1", len(arg))
			}
			return floats.Sum(arg[0].([]float64)), nil
		},
	}
	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}

	o := &Outputter{
		fileName:        fileName,
		outputVariables: outputVariables,
		outputFunctions: defaultOutputFuncs,
	}

	seen := make(map[string]bool)
	for name, expr := range o.outputVariables {
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(expr, o.outputFunctions)
		if err != nil {
			return nil, fmt.Errorf("shelfmelt: output variable %s: %v", name, err)
		}
		for _, v := range expression.Vars() {
			if !seen[v] {
				seen[v] = true
				o.modelVariables = append(o.modelVariables, v)
			}
		}
	}
	sort.Strings(o.modelVariables)
	return o, nil
}

// CheckOutputVars returns a function ensuring that every model variable the
// output expressions reference exists, so that a typo fails at init rather
// than after a full step.
func (o *Outputter) CheckOutputVars() DomainManipulator {
	return func(m *Model) error {
		available := m.diagnostics()
		for _, v := range o.modelVariables {
			if _, ok := available[v]; !ok {
				return fmt.Errorf("shelfmelt: undefined variable name '%s'; available: %v",
					v, m.OutputOptions())
			}
		}
		return nil
	}
}

// Results evaluates the output variable expressions over the gathered global
// fields. Expressions calling an aggregate function receive whole-grid
// slices and produce a single value; all others are evaluated cell by cell.
// This is a collective call: every rank must make it, and every rank receives
// the same results.
func (o *Outputter) Results(m *Model) (grids map[string]*sparse.DenseArray, scalars map[string]float64, err error) {
	available := m.diagnostics()
	gathered := make(map[string]*sparse.DenseArray)
	// Gather in sorted order so every rank issues the collectives identically.
	for _, v := range o.modelVariables {
		a, err := available[v](m.Comm)
		if err != nil {
			return nil, nil, err
		}
		gathered[v] = a
	}

	grids = make(map[string]*sparse.DenseArray)
	scalars = make(map[string]float64)
	nCells := m.Grid.Ny * m.Grid.Nx

	for name, exprText := range o.outputVariables {
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(exprText, o.outputFunctions)
		if err != nil {
			return nil, nil, fmt.Errorf("shelfmelt: output variable %s: %v", name, err)
		}

		if strings.Contains(exprText, "sum(") {
			params := make(map[string]interface{})
			for _, v := range expression.Vars() {
				params[v] = gathered[v].Elements
			}
			result, err := expression.Evaluate(params)
			if err != nil {
				return nil, nil, fmt.Errorf("shelfmelt: evaluating %s: %v", name, err)
			}
			scalars[name] = result.(float64)
			continue
		}

		out := sparse.ZerosDense(m.Grid.Ny, m.Grid.Nx)
		vars := expression.Vars()
		params := make(map[string]interface{}, len(vars))
		for i := 0; i < nCells; i++ {
			for _, v := range vars {
				params[v] = gathered[v].Elements[i]
			}
			result, err := expression.Evaluate(params)
			if err != nil {
				return nil, nil, fmt.Errorf("shelfmelt: evaluating %s: %v", name, err)
			}
			out.Elements[i] = result.(float64)
		}
		grids[name] = out
	}
	return grids, scalars, nil
}

// Output returns a function that evaluates the output expressions and writes
// them to a NetCDF file. Every rank participates in the gathers; only rank 0
// touches the file system.
func (o *Outputter) Output() DomainManipulator {
	return func(m *Model) error {
		grids, scalars, err := o.Results(m)
		if err != nil {
			return err
		}
		if m.Comm.Rank() != 0 {
			return nil
		}

		ff, err := os.Create(o.fileName)
		if err != nil {
			return fmt.Errorf("shelfmelt: creating output file: %v", err)
		}
		defer ff.Close()

		h := cdf.NewHeader([]string{"y", "x"}, []int{m.Grid.Ny, m.Grid.Nx})
		h.AddAttribute("", "comment", "sub-ice-shelf melt box model output")
		h.AddAttribute("", "dx", []float64{m.Grid.Dx})
		h.AddAttribute("", "dy", []float64{m.Grid.Dy})

		// Sort the names so they write in the same order every time.
		names := make([]string, 0, len(grids))
		for n := range grids {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, name := range names {
			h.AddVariable(name, []string{"y", "x"}, []float32{0})
		}

		scalarNames := make([]string, 0, len(scalars))
		for n := range scalars {
			scalarNames = append(scalarNames, n)
		}
		sort.Strings(scalarNames)
		for _, name := range scalarNames {
			h.AddAttribute("", name, []float64{scalars[name]})
		}
		h.Define()

		f, err := cdf.Create(ff, h) // writes the header to ff
		if err != nil {
			return err
		}
		for _, name := range names {
			if err := writeNCF(f, name, grids[name]); err != nil {
				return fmt.Errorf("shelfmelt: writing variable %s: %v", name, err)
			}
		}
		return cdf.UpdateNumRecs(ff)
	}
}

func writeNCF(f *cdf.File, Var string, data *sparse.DenseArray) error {
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}

	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		data32[i] = float32(e)
	}
	end := f.Header.Lengths(Var)
	start := make([]int, len(end))
	w := f.Writer(Var, start, end)
	_, err := w.Write(data32)
	return err
}
