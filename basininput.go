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

// BasinInput returns a function that reduces the raw ocean temperature and
// salinity forcing to one value per drainage basin by averaging over the
// open-ocean continental shelf cells of each basin.
//
// A basin with no contributing cells receives the physics module's dummy
// temperature and salinity instead; this can happen when an ice shelf front
// advances beyond the continental shelf break, and is reported as a warning,
// not an error. Basin 0 ("no basin") always receives the dummy values.
func BasinInput() DomainManipulator {
	return func(m *Model) error {
		count := make([]int, m.nBasins)
		temperature := make([]float64, m.nBasins)
		salinity := make([]float64, m.nBasins)

		for j := m.Part.J0; j < m.Part.J1; j++ {
			for i := 0; i < m.Grid.Nx; i++ {
				if m.ContShelfMask.Value(i, j) != ShelfOpenOcean {
					continue
				}
				b := m.BasinMask.Value(i, j)
				count[b]++
				temperature[b] += m.ThetaOcean.Value(i, j)
				salinity[b] += m.SalinityOcean.Value(i, j)
			}
		}

		var err error
		if count, err = m.Comm.SumInts(count); err != nil {
			return fmt.Errorf("shelfmelt: reducing basin cell counts: %v", err)
		}
		if temperature, err = m.Comm.SumFloat64s(temperature); err != nil {
			return fmt.Errorf("shelfmelt: reducing basin temperatures: %v", err)
		}
		if salinity, err = m.Comm.SumFloat64s(salinity); err != nil {
			return fmt.Errorf("shelfmelt: reducing basin salinities: %v", err)
		}

		temperature[0] = m.Physics.TDummy()
		salinity[0] = m.Physics.SDummy()

		for b := 1; b < m.nBasins; b++ {
			if count[b] != 0 {
				temperature[b] /= float64(count[b])
				salinity[b] /= float64(count[b])
				continue
			}
			if m.Comm.Rank() == 0 {
				m.Log.Warnf("basin %d contains no open-ocean continental shelf cells; "+
					"using default temperature (%.3f K) and salinity (%.3f psu), "+
					"which may bias the basal melt rate estimate",
					b, m.Physics.TDummy(), m.Physics.SDummy())
			}
			temperature[b] = m.Physics.TDummy()
			salinity[b] = m.Physics.SDummy()
		}

		m.basinTemperature = temperature
		m.basinSalinity = salinity
		return nil
	}
}
