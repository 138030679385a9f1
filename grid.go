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

import "fmt"

// Grid describes the global structured grid. Cells are uniform rectangles;
// cell (i,j) covers column i of row j.
type Grid struct {
	Nx, Ny int     // number of cells in each direction
	Dx, Dy float64 // cell edge lengths [m]
}

// CellArea returns the area of one grid cell [m2].
func (g *Grid) CellArea() float64 { return g.Dx * g.Dy }

// Partition is one rank's share of a row-band decomposition: the rows
// [J0,J1) are owned by the rank. Rows J0-1 and J1 are ghost rows, refreshed
// by explicit exchange.
type Partition struct {
	J0, J1 int
}

// NRows returns the number of owned rows.
func (p Partition) NRows() int { return p.J1 - p.J0 }

// RowBands decomposes ny grid rows into size contiguous bands of nearly equal
// height, one per rank. Every band must own at least one row.
func RowBands(ny, size int) ([]Partition, error) {
	if size < 1 || size > ny {
		return nil, fmt.Errorf("shelfmelt: cannot decompose %d rows into %d bands", ny, size)
	}
	bands := make([]Partition, size)
	rowsPer := ny / size
	extra := ny % size
	j := 0
	for r := 0; r < size; r++ {
		n := rowsPer
		if r < extra {
			n++
		}
		bands[r] = Partition{J0: j, J1: j + n}
		j += n
	}
	return bands, nil
}
