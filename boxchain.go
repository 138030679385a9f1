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

// BoxChain returns a function that propagates the cavity circulation from
// box 2 outward to the calving front. Each box is driven by the per-shelf
// average temperature and salinity of the box upstream of it, and by the
// overturning flux established in box 1; the overturning average is computed
// once and reused for every downstream box.
//
// A shelf whose upstream averages come out as exactly zero has no valid
// solution in the upstream box (for example when a shelf skips a box index
// entirely). Cells downstream of such a box
// keep their Beckmann-Goosse melt rate; their number is reported per box as
// a warning.
func BoxChain() DomainManipulator {
	return func(m *Model) error {
		overturning, err := m.boxAverage(1, m.Overturning)
		if err != nil {
			return err
		}

		p := m.Physics
		for box := 2; box <= m.NBoxes; box++ {
			degenerate := 0
			temperature, err := m.boxAverage(box-1, m.Toc)
			if err != nil {
				return err
			}
			salinity, err := m.boxAverage(box-1, m.Soc)
			if err != nil {
				return err
			}
			area, err := m.boxArea(box)
			if err != nil {
				return err
			}

			for j := m.Part.J0; j < m.Part.J1; j++ {
				for i := 0; i < m.Grid.Nx; i++ {
					s := m.ShelfMask.Value(i, j)
					if m.BoxMask.Value(i, j) != box || s <= 0 {
						continue
					}
					if salinity[s] == 0.0 || temperature[s] == 0.0 || overturning[s] == 0.0 {
						degenerate++
						continue
					}

					pressure := p.Pressure(m.IceThickness.Value(i, j))
					tStar := p.TStar(salinity[s], temperature[s], pressure)
					toc := p.Toc(area[s], temperature[s], tStar, overturning[s], salinity[s])
					soc := p.Soc(salinity[s], temperature[s], toc)

					m.TStar.Set(i, j, tStar)
					m.Toc.Set(i, j, toc)
					m.Soc.Set(i, j, soc)
					m.Overturning.Set(i, j, overturning[s])
					m.BasalMeltRate.Set(i, j, p.MeltRate(p.ThetaPM(soc, pressure), toc))
					m.BasalTemperature.Set(i, j, p.TPM(soc, pressure))
				}
			}

			total, err := m.Comm.SumInts([]int{degenerate})
			if err != nil {
				return fmt.Errorf("shelfmelt: reducing degenerate counter for box %d: %v", box, err)
			}
			if total[0] > 0 && m.Comm.Rank() == 0 {
				m.Log.Warnf("no upstream box solution for %d cells in box %d; "+
					"keeping the fallback melt rate there", total[0], box)
			}
		}
		return nil
	}
}

// boxAverage computes, for every shelf, the average of f over the cells
// assigned to the given box. Shelves with no cells in that box average to
// zero. The result is globally reduced and identical on all ranks.
func (m *Model) boxAverage(box int, f *Field) ([]float64, error) {
	sum := make([]float64, m.nShelves)
	count := make([]int, m.nShelves)
	for j := m.Part.J0; j < m.Part.J1; j++ {
		for i := 0; i < m.Grid.Nx; i++ {
			if m.BoxMask.Value(i, j) == box {
				s := m.ShelfMask.Value(i, j)
				sum[s] += f.Value(i, j)
				count[s]++
			}
		}
	}

	var err error
	if sum, err = m.Comm.SumFloat64s(sum); err != nil {
		return nil, fmt.Errorf("shelfmelt: reducing box %d sums: %v", box, err)
	}
	if count, err = m.Comm.SumInts(count); err != nil {
		return nil, fmt.Errorf("shelfmelt: reducing box %d counts: %v", box, err)
	}
	for s := range sum {
		if count[s] > 0 {
			sum[s] /= float64(count[s])
		}
	}
	return sum, nil
}
