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

// Box1 returns a function that solves the near-grounding-line box of the
// cavity circulation model. For every shelf it computes the area of box 1,
// then for each box-1 cell solves the coupled heat and salt balance: the
// quadratic for the box temperature, the salinity from the temperature
// anomaly, the overturning flux, and finally the melt rate.
//
// The quadratic has no real solution when the boundary water is too close to
// the freezing point for the assumed overturning to persist. Those cells are
// solved anyway with the square root taken as zero; the number of failures is
// reported once as a warning, not treated as an error, because a retreating
// grounding line routinely produces a few such cells.
func Box1() DomainManipulator {
	return func(m *Model) error {
		area, err := m.boxArea(1)
		if err != nil {
			return err
		}

		p := m.Physics
		failed := 0
		for j := m.Part.J0; j < m.Part.J1; j++ {
			for i := 0; i < m.Grid.Nx; i++ {
				s := m.ShelfMask.Value(i, j)
				if m.BoxMask.Value(i, j) != 1 || s <= 0 {
					continue
				}

				toc0 := m.TocBox0.Value(i, j)
				soc0 := m.SocBox0.Value(i, j)
				pressure := p.Pressure(m.IceThickness.Value(i, j))
				tStar := p.TStar(soc0, toc0, pressure)

				res := p.TocBox1(area[s], tStar, soc0, toc0)
				if res.Failed {
					failed++
				}
				toc := res.Value
				soc := p.SocBox1(toc0, soc0, toc)

				m.TStar.Set(i, j, tStar)
				m.Toc.Set(i, j, toc)
				m.Soc.Set(i, j, soc)
				m.Overturning.Set(i, j, p.Overturning(soc0, soc, toc0, toc))
				m.BasalMeltRate.Set(i, j, p.MeltRate(p.ThetaPM(soc, pressure), toc))
				m.BasalTemperature.Set(i, j, p.TPM(soc, pressure))
			}
		}

		total, err := m.Comm.SumInts([]int{failed})
		if err != nil {
			return fmt.Errorf("shelfmelt: reducing box-1 failure counter: %v", err)
		}
		if total[0] > 0 && m.Comm.Rank() == 0 {
			m.Log.Warnf("box-1 temperature calculation failed in %d cells; "+
				"using the zero-discriminant solution there", total[0])
		}
		return nil
	}
}

// boxArea computes, for every shelf, the total area of the cells assigned to
// the given box. The result is globally reduced and identical on all ranks.
func (m *Model) boxArea(box int) ([]float64, error) {
	area := make([]float64, m.nShelves)
	cellArea := m.Grid.CellArea()
	for j := m.Part.J0; j < m.Part.J1; j++ {
		for i := 0; i < m.Grid.Nx; i++ {
			if m.BoxMask.Value(i, j) == box {
				area[m.ShelfMask.Value(i, j)] += cellArea
			}
		}
	}
	area, err := m.Comm.SumFloat64s(area)
	if err != nil {
		return nil, fmt.Errorf("shelfmelt: reducing box %d area: %v", box, err)
	}
	return area, nil
}
