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
	"encoding/gob"
	"fmt"
	"io"
	"sort"

	"github.com/ctessum/sparse"
)

// snapshot is the gob-serialized global model state: the geometry and forcing
// inputs plus the melt model outputs, assembled over all ranks.
type snapshot struct {
	Nx, Ny int
	Dx, Dy float64
	NBoxes int

	Fields map[string][]float64
	Masks  map[string][]int
}

// floatFields returns the float-valued model fields by name, in the stable
// naming also used for diagnostics output.
func (m *Model) floatFields() map[string]*Field {
	return map[string]*Field{
		"ice_thickness":     m.IceThickness,
		"theta_ocean":       m.ThetaOcean,
		"salinity_ocean":    m.SalinityOcean,
		"temperature_box0":  m.TocBox0,
		"salinity_box0":     m.SocBox0,
		"temperature":       m.Toc,
		"salinity":          m.Soc,
		"T_star":            m.TStar,
		"overturning":       m.Overturning,
		"basal_melt_rate":   m.BasalMeltRate,
		"basal_temperature": m.BasalTemperature,
	}
}

func (m *Model) intFields() map[string]*IntField {
	return map[string]*IntField{
		"cell_type":      m.CellType,
		"basins":         m.BasinMask,
		"shelf_mask":     m.ShelfMask,
		"box_mask":       m.BoxMask,
		"contshelf_mask": m.ContShelfMask,
	}
}

// Save returns a function that saves the global model state to a gob stream
// (format description at https://golang.org/pkg/encoding/gob/). Every rank
// must call it (the global fields are assembled collectively); only rank 0
// writes to w, so the other ranks may pass a nil writer.
func Save(w io.Writer) DomainManipulator {
	return func(m *Model) error {
		s := snapshot{
			Nx: m.Grid.Nx, Ny: m.Grid.Ny,
			Dx: m.Grid.Dx, Dy: m.Grid.Dy,
			NBoxes: m.NBoxes,
			Fields: make(map[string][]float64),
			Masks:  make(map[string][]int),
		}

		// Gather in name order so every rank issues the collectives
		// identically.
		floatFields := m.floatFields()
		for _, name := range sortedFieldNames(floatFields) {
			a, err := floatFields[name].Gather(m.Comm)
			if err != nil {
				return fmt.Errorf("shelfmelt: Save: %v", err)
			}
			s.Fields[name] = a.Elements
		}
		intFields := m.intFields()
		for _, name := range sortedMaskNames(intFields) {
			a, err := intFields[name].Gather(m.Comm)
			if err != nil {
				return fmt.Errorf("shelfmelt: Save: %v", err)
			}
			ints := make([]int, len(a.Elements))
			for i, v := range a.Elements {
				ints[i] = int(v + 0.5)
			}
			s.Masks[name] = ints
		}

		if m.Comm.Rank() != 0 {
			return nil
		}
		if err := gob.NewEncoder(w).Encode(s); err != nil {
			return fmt.Errorf("shelfmelt: Save: %v", err)
		}
		return nil
	}
}

// Load returns a function that loads a previously Saved state into the
// calling rank's band of the model. Unlike Save this is not collective: each
// rank decodes its own copy of the stream.
func Load(r io.Reader) DomainManipulator {
	return func(m *Model) error {
		var s snapshot
		if err := gob.NewDecoder(r).Decode(&s); err != nil {
			return fmt.Errorf("shelfmelt: Load: %v", err)
		}
		if s.Nx != m.Grid.Nx || s.Ny != m.Grid.Ny {
			return fmt.Errorf("shelfmelt: Load: stored grid %d×%d does not match model grid %d×%d",
				s.Ny, s.Nx, m.Grid.Ny, m.Grid.Nx)
		}

		for name, f := range m.floatFields() {
			elems, ok := s.Fields[name]
			if !ok {
				return fmt.Errorf("shelfmelt: Load: missing field %s", name)
			}
			a := sparse.ZerosDense(s.Ny, s.Nx)
			copy(a.Elements, elems)
			if err := f.Scatter(a); err != nil {
				return fmt.Errorf("shelfmelt: Load: %v", err)
			}
		}
		for name, f := range m.intFields() {
			ints, ok := s.Masks[name]
			if !ok {
				return fmt.Errorf("shelfmelt: Load: missing mask %s", name)
			}
			a := sparse.ZerosDense(s.Ny, s.Nx)
			for i, v := range ints {
				a.Elements[i] = float64(v)
			}
			if err := f.Scatter(a); err != nil {
				return fmt.Errorf("shelfmelt: Load: %v", err)
			}
		}
		return nil
	}
}

func sortedFieldNames(m map[string]*Field) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sortedMaskNames(m map[string]*IntField) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
