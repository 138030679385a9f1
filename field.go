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

	"github.com/ctessum/sparse"

	"github.com/cryomodel/shelfmelt/comm"
)

// Field is one rank's share of a distributed per-cell scalar field: the owned
// rows of the band plus one ghost row on either side. Only owned rows may be
// written; ghost rows are read-only copies refreshed by ExchangeGhosts.
type Field struct {
	grid *Grid
	part Partition
	fill float64
	data []float64 // (NRows+2) * Nx, row-major, first row is the ghost below J0
}

// NewField allocates a field over the rows of part, initialized to fill.
func NewField(g *Grid, part Partition, fill float64) *Field {
	f := &Field{
		grid: g,
		part: part,
		fill: fill,
		data: make([]float64, (part.NRows()+2)*g.Nx),
	}
	f.Reset()
	return f
}

func (f *Field) index(i, j int) int {
	return (j-f.part.J0+1)*f.grid.Nx + i
}

// Value returns the value of cell (i,j). j must be an owned or ghost row of
// this rank's band.
func (f *Field) Value(i, j int) float64 { return f.data[f.index(i, j)] }

// Set sets the value of the owned cell (i,j).
func (f *Field) Set(i, j int, v float64) {
	if j < f.part.J0 || j >= f.part.J1 {
		panic(fmt.Sprintf("shelfmelt: write to non-owned row %d (band [%d,%d))", j, f.part.J0, f.part.J1))
	}
	f.data[f.index(i, j)] = v
}

// Fill returns the fill value of the field.
func (f *Field) Fill() float64 { return f.fill }

// Reset sets every owned and ghost cell to the fill value.
func (f *Field) Reset() {
	for i := range f.data {
		f.data[i] = f.fill
	}
}

// row returns the storage slice of row j.
func (f *Field) row(j int) []float64 {
	start := (j - f.part.J0 + 1) * f.grid.Nx
	return f.data[start : start+f.grid.Nx]
}

// ExchangeGhosts refreshes the ghost rows from the neighboring ranks. Ghost
// rows beyond the physical domain edge are set to the fill value. This is a
// collective call: every rank in the group must make it.
func (f *Field) ExchangeGhosts(c comm.Comm) error {
	below, above, err := c.ExchangeRows(f.row(f.part.J0), f.row(f.part.J1-1))
	if err != nil {
		return err
	}
	ghostBelow := f.row(f.part.J0 - 1)
	ghostAbove := f.row(f.part.J1)
	if below != nil {
		copy(ghostBelow, below)
	} else {
		for i := range ghostBelow {
			ghostBelow[i] = f.fill
		}
	}
	if above != nil {
		copy(ghostAbove, above)
	} else {
		for i := range ghostAbove {
			ghostAbove[i] = f.fill
		}
	}
	return nil
}

// Scatter copies this rank's rows, ghost rows included, out of the global
// array, which must have shape [Ny, Nx]. Ghost rows beyond the domain edge
// keep the fill value.
func (f *Field) Scatter(global *sparse.DenseArray) error {
	if err := checkShape(f.grid, global); err != nil {
		return err
	}
	for j := f.part.J0 - 1; j <= f.part.J1; j++ {
		if j < 0 || j >= f.grid.Ny {
			continue
		}
		copy(f.row(j), global.Elements[j*f.grid.Nx:(j+1)*f.grid.Nx])
	}
	return nil
}

// Gather assembles the global field from the owned rows of all ranks.
// Non-owned rows contribute zeros to the underlying sum reduction, so every
// rank receives the same complete [Ny, Nx] array. This is a collective call.
func (f *Field) Gather(c comm.Comm) (*sparse.DenseArray, error) {
	buf := make([]float64, f.grid.Ny*f.grid.Nx)
	for j := f.part.J0; j < f.part.J1; j++ {
		copy(buf[j*f.grid.Nx:(j+1)*f.grid.Nx], f.row(j))
	}
	sum, err := c.SumFloat64s(buf)
	if err != nil {
		return nil, err
	}
	out := sparse.ZerosDense(f.grid.Ny, f.grid.Nx)
	copy(out.Elements, sum)
	return out, nil
}

// IntField is the integer-label analogue of Field, used for the basin, shelf,
// box, cell-type and continental-shelf masks. Labels are static within a time
// step, so ghost rows are filled at scatter time rather than exchanged.
type IntField struct {
	grid *Grid
	part Partition
	fill int
	data []int
}

// NewIntField allocates an integer field over the rows of part, initialized
// to fill.
func NewIntField(g *Grid, part Partition, fill int) *IntField {
	f := &IntField{
		grid: g,
		part: part,
		fill: fill,
		data: make([]int, (part.NRows()+2)*g.Nx),
	}
	f.Reset()
	return f
}

func (f *IntField) index(i, j int) int {
	return (j-f.part.J0+1)*f.grid.Nx + i
}

// Value returns the value of cell (i,j). j must be an owned or ghost row.
func (f *IntField) Value(i, j int) int { return f.data[f.index(i, j)] }

// Set sets the value of the owned or ghost cell (i,j). Ghost writes are
// allowed because label ghosts are populated directly by the geometry input,
// not by exchange.
func (f *IntField) Set(i, j int, v int) { f.data[f.index(i, j)] = v }

// Reset sets every owned and ghost cell to the fill value.
func (f *IntField) Reset() {
	for i := range f.data {
		f.data[i] = f.fill
	}
}

// Scatter copies this rank's rows, ghost rows included, out of the global
// array, rounding to the nearest integer label.
func (f *IntField) Scatter(global *sparse.DenseArray) error {
	if err := checkShape(f.grid, global); err != nil {
		return err
	}
	for j := f.part.J0 - 1; j <= f.part.J1; j++ {
		if j < 0 || j >= f.grid.Ny {
			continue
		}
		for i := 0; i < f.grid.Nx; i++ {
			f.data[f.index(i, j)] = int(global.Elements[j*f.grid.Nx+i] + 0.5)
		}
	}
	return nil
}

// Gather assembles the global label field from the owned rows of all ranks.
// This is a collective call.
func (f *IntField) Gather(c comm.Comm) (*sparse.DenseArray, error) {
	buf := make([]float64, f.grid.Ny*f.grid.Nx)
	for j := f.part.J0; j < f.part.J1; j++ {
		for i := 0; i < f.grid.Nx; i++ {
			buf[j*f.grid.Nx+i] = float64(f.data[f.index(i, j)])
		}
	}
	sum, err := c.SumFloat64s(buf)
	if err != nil {
		return nil, err
	}
	out := sparse.ZerosDense(f.grid.Ny, f.grid.Nx)
	copy(out.Elements, sum)
	return out, nil
}

func checkShape(g *Grid, a *sparse.DenseArray) error {
	if len(a.Shape) != 2 || a.Shape[0] != g.Ny || a.Shape[1] != g.Nx {
		return fmt.Errorf("shelfmelt: array shape %v does not match grid %d×%d",
			a.Shape, g.Ny, g.Nx)
	}
	return nil
}
