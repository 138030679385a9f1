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

// ExtendMeltRates returns a function that spreads melt rates one cell beyond
// the floating mask: every grounded or ice-free-ocean cell with at least one
// floating 8-neighbor gets the average melt rate of its floating neighbors.
// Ice dynamics schemes that treat the grounding line sub-grid sample melt
// from these partially-floating cells, which would otherwise read zero.
//
// Only non-floating cells are written and only floating cells are read, so
// the in-place update is order independent and idempotent.
func ExtendMeltRates() DomainManipulator {
	return func(m *Model) error {
		if err := m.BasalMeltRate.ExchangeGhosts(m.Comm); err != nil {
			return err
		}

		for j := m.Part.J0; j < m.Part.J1; j++ {
			for i := 0; i < m.Grid.Nx; i++ {
				ct := m.CellType.Value(i, j)
				if ct != Grounded && ct != IceFreeOcean {
					continue
				}

				var sum float64
				n := 0
				for dj := -1; dj <= 1; dj++ {
					for di := -1; di <= 1; di++ {
						if di == 0 && dj == 0 {
							continue
						}
						ni, nj := i+di, j+dj
						if ni < 0 || ni >= m.Grid.Nx || nj < 0 || nj >= m.Grid.Ny {
							continue
						}
						if m.CellType.Value(ni, nj) == Floating {
							sum += m.BasalMeltRate.Value(ni, nj)
							n++
						}
					}
				}
				if n > 0 {
					m.BasalMeltRate.Set(i, j, sum/float64(n))
				}
			}
		}
		return nil
	}
}
