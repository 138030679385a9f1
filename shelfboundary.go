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

// ShelfBoundary returns a function that sets the box-0 ocean boundary
// condition (TocBox0, SocBox0) for every shelf cell: the basin-count-weighted
// average of the basin temperatures and salinities over the basins the shelf
// overlaps.
//
// A basin only contributes if the shelf has a calving front in it, i.e. at
// least one floating shelf cell in that basin with an ice-free-ocean
// 4-neighbor; basins that only touch a shelf's interior would otherwise bias
// the boundary condition with water the cavity cannot exchange with.
//
// The boundary temperature is clamped from below to the local pressure
// melting point plus a small margin so that the box-1 equations stay
// solvable; the number of clamped cells is reported once as a warning.
func ShelfBoundary() DomainManipulator {
	const eps = 0.001 // K above the melting point after clamping

	return func(m *Model) error {
		nBasins, nShelves := m.nBasins, m.nShelves

		// Pass 1: count shelf cells, shelf cells per basin, and mark the
		// (shelf, basin) pairs that contain a calving front.
		shelfCells := make([]int, nShelves)
		shelfCellsPerBasin := make([]int, nShelves*nBasins)
		frontInBasin := make([]int, nShelves*nBasins)

		for j := m.Part.J0; j < m.Part.J1; j++ {
			for i := 0; i < m.Grid.Nx; i++ {
				s := m.ShelfMask.Value(i, j)
				b := m.BasinMask.Value(i, j)
				shelfCells[s]++
				shelfCellsPerBasin[s*nBasins+b]++

				if m.CellType.Value(i, j) != Floating {
					continue
				}
				if m.neighbor4IceFreeOcean(i, j) {
					frontInBasin[s*nBasins+b] = 1
				}
			}
		}

		var err error
		if shelfCells, err = m.Comm.SumInts(shelfCells); err != nil {
			return fmt.Errorf("shelfmelt: reducing shelf cell counts: %v", err)
		}
		if shelfCellsPerBasin, err = m.Comm.SumInts(shelfCellsPerBasin); err != nil {
			return fmt.Errorf("shelfmelt: reducing per-basin shelf cell counts: %v", err)
		}
		if frontInBasin, err = m.Comm.SumInts(frontInBasin); err != nil {
			return fmt.Errorf("shelfmelt: reducing calving front flags: %v", err)
		}

		// Remove from the weighting any (shelf, basin) pair without a
		// calving front.
		for s := 0; s < nShelves; s++ {
			for b := 0; b < nBasins; b++ {
				sb := s*nBasins + b
				if shelfCellsPerBasin[sb] > 0 && frontInBasin[sb] == 0 {
					shelfCells[s] -= shelfCellsPerBasin[sb]
					shelfCellsPerBasin[sb] = 0
				}
			}
		}

		// Pass 2: per-cell weighted boundary condition and clamp.
		clamped := 0
		for j := m.Part.J0; j < m.Part.J1; j++ {
			for i := 0; i < m.Grid.Nx; i++ {
				m.TocBox0.Set(i, j, 0)
				m.SocBox0.Set(i, j, 0)

				s := m.ShelfMask.Value(i, j)
				if m.CellType.Value(i, j) != Floating || s <= 0 {
					// Shelf id 0 marks lakes and ice rises; they get no
					// boundary condition and drop out of the later stages.
					continue
				}

				n := float64(max(shelfCells[s], 1)) // protect from division by zero

				var toc, soc float64
				for b := 1; b < nBasins; b++ { // basin 0 is a placeholder, not data
					w := float64(shelfCellsPerBasin[s*nBasins+b]) / n
					toc += m.basinTemperature[b] * w
					soc += m.basinSalinity[b] * w
				}

				pressure := m.Physics.Pressure(m.IceThickness.Value(i, j))
				if thetaPM := m.Physics.ThetaPM(soc, pressure); toc < thetaPM {
					toc = thetaPM + eps
					clamped++
				}

				m.TocBox0.Set(i, j, toc)
				m.SocBox0.Set(i, j, soc)
			}
		}

		total, err := m.Comm.SumInts([]int{clamped})
		if err != nil {
			return fmt.Errorf("shelfmelt: reducing clamp counter: %v", err)
		}
		if total[0] > 0 && m.Comm.Rank() == 0 {
			m.Log.Warnf("box-0 temperature was below the pressure melting point in %d cells; "+
				"raised to the melting point", total[0])
		}
		return nil
	}
}

// neighbor4IceFreeOcean reports whether any 4-neighbor of owned cell (i,j) is
// ice-free ocean. Off-grid neighbors in the x direction do not count;
// neighbors in the y direction come from the ghost rows.
func (m *Model) neighbor4IceFreeOcean(i, j int) bool {
	if i > 0 && m.CellType.Value(i-1, j) == IceFreeOcean {
		return true
	}
	if i < m.Grid.Nx-1 && m.CellType.Value(i+1, j) == IceFreeOcean {
		return true
	}
	if j > 0 && m.CellType.Value(i, j-1) == IceFreeOcean {
		return true
	}
	if j < m.Grid.Ny-1 && m.CellType.Value(i, j+1) == IceFreeOcean {
		return true
	}
	return false
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
