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

// BeckmannGoosse returns a function that fills every floating cell with the
// simple heat-flux melt parameterization of Beckmann and Goosse (2003) driven
// by the box-0 boundary condition. It runs before the box model so that
// floating cells outside any shelf (shelf id 0), and cells the box model
// later skips, still carry a physically plausible melt rate; cells the box
// model does handle are overwritten by the later stages.
//
// Non-floating cells are left untouched: they keep the fill values set by
// ResetFields (zero melt, basal temperature at the fresh water melting
// point).
func BeckmannGoosse() DomainManipulator {
	return func(m *Model) error {
		p := m.Physics
		for j := m.Part.J0; j < m.Part.J1; j++ {
			for i := 0; i < m.Grid.Nx; i++ {
				if m.CellType.Value(i, j) != Floating || m.ShelfMask.Value(i, j) <= 0 {
					continue
				}
				pressure := p.Pressure(m.IceThickness.Value(i, j))
				toc := m.TocBox0.Value(i, j)
				soc := m.SocBox0.Value(i, j)
				thetaPM := p.ThetaPM(soc, pressure)

				m.Toc.Set(i, j, toc)
				m.Soc.Set(i, j, soc)
				m.BasalMeltRate.Set(i, j, p.MeltRateBeckmannGoosse(thetaPM, toc))
				m.BasalTemperature.Set(i, j, p.TPM(soc, pressure))
			}
		}
		return nil
	}
}
