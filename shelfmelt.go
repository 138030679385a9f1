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

// Package shelfmelt computes sub-ice-shelf basal melt rates from
// basin-averaged ocean conditions with the PICO ocean box model (Reese et al.
// 2018). The grid is decomposed into row bands, one per worker rank; every
// statistic that crosses band boundaries goes through a comm.Comm collective.
package shelfmelt

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cryomodel/shelfmelt/comm"
	"github.com/cryomodel/shelfmelt/physics"
)

// Version is the version of this code.
const Version = "1.2.0"

// Cell types of the ice/ocean mask.
const (
	IceFreeLand = iota
	Grounded
	Floating
	IceFreeOcean
)

// Continental shelf mask values. Only open-ocean continental shelf cells
// contribute to basin averages.
const (
	NotContinentalShelf = 0
	ShelfUnderIce       = 1
	ShelfOpenOcean      = 2
)

// DomainManipulator is a stage of the melt model: a function that modifies
// the state of a Model, usually by looping over its owned cells and reducing
// statistics across ranks.
type DomainManipulator func(m *Model) error

// Model holds the per-rank state of the melt model. In a distributed run
// every rank owns one Model over its band of grid rows; the ranks execute the
// same stage sequence and stay synchronized through the collective calls
// inside the stages.
type Model struct {
	// InitFuncs are the functions to be used to initialize the model
	// state and RunFuncs the stages of one coupled time step, executed in
	// order by Init and Run. CleanupFuncs run after the simulation.
	InitFuncs    []DomainManipulator
	RunFuncs     []DomainManipulator
	CleanupFuncs []DomainManipulator

	Grid    *Grid
	Part    Partition
	Comm    comm.Comm
	Physics *physics.Pico

	// NBoxes is the configured maximum number of ocean boxes per shelf.
	NBoxes int

	Log logrus.FieldLogger

	// Geometry and forcing inputs, supplied externally each step.
	IceThickness  *Field
	CellType      *IntField
	BasinMask     *IntField
	ShelfMask     *IntField
	BoxMask       *IntField
	ContShelfMask *IntField
	ThetaOcean    *Field
	SalinityOcean *Field

	// Box-0 boundary conditions, computed per step.
	TocBox0 *Field
	SocBox0 *Field

	// Outputs, meaningful only where CellType is Floating and the shelf
	// id is positive; elsewhere they hold their fill values.
	Toc              *Field
	Soc              *Field
	TStar            *Field
	Overturning      *Field
	BasalMeltRate    *Field
	BasalTemperature *Field

	// Label counts: maximum label value plus one, so that a label is a
	// direct index into the per-basin and per-shelf vectors. Index 0 is
	// the "not applicable" label.
	nBasins  int
	nShelves int

	basinTemperature []float64
	basinSalinity    []float64
}

// NewModel allocates the per-rank model state for one band of the grid.
func NewModel(g *Grid, part Partition, c comm.Comm, p *physics.Pico, nBoxes int) *Model {
	m := &Model{
		Grid:    g,
		Part:    part,
		Comm:    c,
		Physics: p,
		NBoxes:  nBoxes,
		Log:     logrus.StandardLogger(),
	}

	m.IceThickness = NewField(g, part, 0)
	m.CellType = NewIntField(g, part, IceFreeLand)
	m.BasinMask = NewIntField(g, part, 0)
	m.ShelfMask = NewIntField(g, part, 0)
	m.BoxMask = NewIntField(g, part, 0)
	m.ContShelfMask = NewIntField(g, part, NotContinentalShelf)
	m.ThetaOcean = NewField(g, part, 0)
	m.SalinityOcean = NewField(g, part, 0)

	m.TocBox0 = NewField(g, part, 0)
	m.SocBox0 = NewField(g, part, 0)
	m.Toc = NewField(g, part, 0)
	m.Soc = NewField(g, part, 0)
	m.TStar = NewField(g, part, 0)
	m.Overturning = NewField(g, part, 0)
	m.BasalMeltRate = NewField(g, part, 0)
	m.BasalTemperature = NewField(g, part, 0)

	return m
}

// Init initializes the model with the InitFuncs.
func (m *Model) Init() error {
	for _, f := range m.InitFuncs {
		if err := f(m); err != nil {
			return err
		}
	}
	return nil
}

// Run executes one coupled time step by running the RunFuncs in order.
func (m *Model) Run() error {
	for _, f := range m.RunFuncs {
		if err := f(m); err != nil {
			return err
		}
	}
	return nil
}

// Cleanup runs the CleanupFuncs.
func (m *Model) Cleanup() error {
	for _, f := range m.CleanupFuncs {
		if err := f(m); err != nil {
			return err
		}
	}
	return nil
}

// NBasins returns the number of basin labels (maximum basin id plus one)
// found by the most recent LabelCounts stage.
func (m *Model) NBasins() int { return m.nBasins }

// NShelves returns the number of shelf labels (maximum shelf id plus one)
// found by the most recent LabelCounts stage.
func (m *Model) NShelves() int { return m.nShelves }

// BasinTemperature returns the basin-average ocean temperatures [K] computed
// by the most recent BasinInput stage, indexed by basin id.
func (m *Model) BasinTemperature() []float64 { return m.basinTemperature }

// BasinSalinity returns the basin-average ocean salinities [psu] computed by
// the most recent BasinInput stage, indexed by basin id.
func (m *Model) BasinSalinity() []float64 { return m.basinSalinity }

// StepFuncs returns the standard stage sequence for one coupled time step.
// The order matters: the Beckmann-Goosse baseline must be in place before the
// box stages overwrite it where they apply, and box k requires box k-1's
// fields (see BoxChain).
func StepFuncs() []DomainManipulator {
	return []DomainManipulator{
		ResetFields(),
		LabelCounts(),
		BasinInput(),
		ShelfBoundary(),
		BeckmannGoosse(),
		Box1(),
		BoxChain(),
		ExtendMeltRates(),
	}
}

// ResetFields returns a function that resets every output field to its fill
// value, so that box and shelf non-membership is explicit rather than stale
// data from the previous step. The basal temperature fill value is the
// fresh-water melting point at zero pressure.
func ResetFields() DomainManipulator {
	return func(m *Model) error {
		for _, f := range []*Field{
			m.TocBox0, m.SocBox0, m.Toc, m.Soc, m.TStar,
			m.Overturning, m.BasalMeltRate,
		} {
			f.Reset()
		}
		m.BasalTemperature.fill = m.Physics.FreshWaterMeltingPoint(0)
		m.BasalTemperature.Reset()
		return nil
	}
}

// LabelCounts returns a function that determines the number of basin and
// shelf labels as the global maximum label value plus one. The counts size
// the per-basin and per-shelf vectors used by the following stages.
func LabelCounts() DomainManipulator {
	return func(m *Model) error {
		maxBasin, maxShelf := 0, 0
		for j := m.Part.J0; j < m.Part.J1; j++ {
			for i := 0; i < m.Grid.Nx; i++ {
				if b := m.BasinMask.Value(i, j); b > maxBasin {
					maxBasin = b
				}
				if s := m.ShelfMask.Value(i, j); s > maxShelf {
					maxShelf = s
				}
			}
		}
		var err error
		if maxBasin, err = m.Comm.MaxInt(maxBasin); err != nil {
			return fmt.Errorf("shelfmelt: reducing basin count: %v", err)
		}
		if maxShelf, err = m.Comm.MaxInt(maxShelf); err != nil {
			return fmt.Errorf("shelfmelt: reducing shelf count: %v", err)
		}
		m.nBasins = maxBasin + 1
		m.nShelves = maxShelf + 1
		return nil
	}
}
