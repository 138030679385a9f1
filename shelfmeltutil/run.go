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

package shelfmeltutil

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cryomodel/shelfmelt"
	"github.com/cryomodel/shelfmelt/comm"
	"github.com/cryomodel/shelfmelt/physics"
)

// RunConfig collects the resolved configuration of one model run.
type RunConfig struct {
	LogFile         string
	OutputFile      string
	OutputVariables map[string]string
	SaveFile        string

	GeometryFile    string
	ForcingFile     string
	PeriodicForcing bool
	ForcingTime     float64

	NumBoxes int
	NumRanks int
	Dx, Dy   float64

	Physics physics.Config
}

// Run reads the geometry and forcing, runs the melt model once over NumRanks
// parallel workers, and writes the requested output. The results are
// independent of NumRanks.
func Run(cmd *cobra.Command, c *RunConfig) error {
	startTime := time.Now()

	logfile, err := os.Create(c.LogFile)
	if err != nil {
		return fmt.Errorf("shelfmelt: problem creating log file: %v", err)
	}
	defer logfile.Close()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	})
	log.SetOutput(io.MultiWriter(cmd.OutOrStdout(), logfile))

	geometryFile, err := maybeDownload(os.ExpandEnv(c.GeometryFile), log)
	if err != nil {
		return err
	}
	forcingFile, err := maybeDownload(os.ExpandEnv(c.ForcingFile), log)
	if err != nil {
		return err
	}

	grid, geom, err := readGeometry(geometryFile, c.Dx, c.Dy)
	if err != nil {
		return err
	}
	log.Infof("read %d×%d cell geometry from %s", grid.Ny, grid.Nx, geometryFile)

	ff, err := os.Open(forcingFile)
	if err != nil {
		return fmt.Errorf("shelfmelt: opening forcing file: %v", err)
	}
	forcing, err := shelfmelt.ReadForcing(ff, grid, c.PeriodicForcing)
	ff.Close()
	if err != nil {
		return err
	}
	theta, salinity, err := forcing.At(c.ForcingTime)
	if err != nil {
		return err
	}

	o, err := shelfmelt.NewOutputter(c.OutputFile, c.OutputVariables, nil)
	if err != nil {
		return err
	}
	log.Info("parsed output variable expressions")

	models, err := buildModels(grid, geom, theta, salinity, c, log)
	if err != nil {
		return err
	}
	for _, m := range models {
		m.InitFuncs = []shelfmelt.DomainManipulator{o.CheckOutputVars()}
		m.RunFuncs = shelfmelt.StepFuncs()
		m.CleanupFuncs = []shelfmelt.DomainManipulator{o.Output()}
	}
	if c.SaveFile != "" {
		sf, err := os.Create(c.SaveFile)
		if err != nil {
			return fmt.Errorf("shelfmelt: creating save file: %v", err)
		}
		defer sf.Close()
		for _, m := range models {
			m.CleanupFuncs = append(m.CleanupFuncs, shelfmelt.Save(sf))
		}
	}

	if err := RunModels(models); err != nil {
		return err
	}

	log.Infof("finished in %v; output written to %s", time.Since(startTime), c.OutputFile)
	return nil
}

// RunModels executes Init, Run and Cleanup on every rank's model
// concurrently, one goroutine per rank. The first error is returned; the
// other ranks are still driven to completion so that none is left blocked in
// a collective.
func RunModels(models []*shelfmelt.Model) error {
	errs := make([]error, len(models))
	var wg sync.WaitGroup
	for r, m := range models {
		wg.Add(1)
		go func(r int, m *shelfmelt.Model) {
			defer wg.Done()
			if err := m.Init(); err != nil {
				errs[r] = err
				return
			}
			if err := m.Run(); err != nil {
				errs[r] = err
				return
			}
			errs[r] = m.Cleanup()
		}(r, m)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// geometry holds the global geometry and label inputs.
type geometry struct {
	iceThickness *sparse.DenseArray
	cellType     *sparse.DenseArray
	basins       *sparse.DenseArray
	shelfMask    *sparse.DenseArray
	boxMask      *sparse.DenseArray
	contshelf    *sparse.DenseArray
}

// geometryVars are the variables a geometry file must contain.
var geometryVars = []string{
	"ice_thickness", "cell_type", "basins", "shelf_mask", "box_mask", "contshelf_mask",
}

// readGeometry reads the geometry file. The grid dimensions come from the
// shape of the cell_type variable; the cell lengths come from the dx and dy
// file attributes when present, otherwise from the configured values.
func readGeometry(path string, dx, dy float64) (*shelfmelt.Grid, *geometry, error) {
	ff, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("shelfmelt: opening geometry file: %v", err)
	}
	defer ff.Close()

	f, err := cdf.Open(ff)
	if err != nil {
		return nil, nil, fmt.Errorf("shelfmelt: reading geometry file: %v", err)
	}
	dims := f.Header.Lengths("cell_type")
	if len(dims) != 2 {
		return nil, nil, fmt.Errorf("shelfmelt: geometry variable cell_type has %d dimensions; want 2", len(dims))
	}
	grid := &shelfmelt.Grid{Nx: dims[1], Ny: dims[0], Dx: dx, Dy: dy}
	if a, ok := f.Header.GetAttribute("", "dx").([]float64); ok && len(a) > 0 {
		grid.Dx = a[0]
	}
	if a, ok := f.Header.GetAttribute("", "dy").([]float64); ok && len(a) > 0 {
		grid.Dy = a[0]
	}

	arrays := make(map[string]*sparse.DenseArray, len(geometryVars))
	for _, v := range geometryVars {
		a, err := shelfmelt.ReadNCF(ff, grid, v)
		if err != nil {
			return nil, nil, err
		}
		arrays[v] = a
	}
	return grid, &geometry{
		iceThickness: arrays["ice_thickness"],
		cellType:     arrays["cell_type"],
		basins:       arrays["basins"],
		shelfMask:    arrays["shelf_mask"],
		boxMask:      arrays["box_mask"],
		contshelf:    arrays["contshelf_mask"],
	}, nil
}

// buildModels decomposes the grid into row bands and creates one model per
// rank, with the geometry and forcing scattered onto each band.
func buildModels(grid *shelfmelt.Grid, geom *geometry, theta, salinity *sparse.DenseArray,
	c *RunConfig, log logrus.FieldLogger) ([]*shelfmelt.Model, error) {

	parts, err := shelfmelt.RowBands(grid.Ny, c.NumRanks)
	if err != nil {
		return nil, err
	}
	var comms []comm.Comm
	if c.NumRanks == 1 {
		comms = []comm.Comm{&comm.Serial{}}
	} else {
		for _, r := range comm.NewGroup(c.NumRanks) {
			comms = append(comms, r)
		}
	}

	p := physics.New(c.Physics)
	models := make([]*shelfmelt.Model, c.NumRanks)
	for r := range models {
		m := shelfmelt.NewModel(grid, parts[r], comms[r], p, c.NumBoxes)
		m.Log = log
		if err := m.IceThickness.Scatter(geom.iceThickness); err != nil {
			return nil, err
		}
		if err := m.CellType.Scatter(geom.cellType); err != nil {
			return nil, err
		}
		if err := m.BasinMask.Scatter(geom.basins); err != nil {
			return nil, err
		}
		if err := m.ShelfMask.Scatter(geom.shelfMask); err != nil {
			return nil, err
		}
		if err := m.BoxMask.Scatter(geom.boxMask); err != nil {
			return nil, err
		}
		if err := m.ContShelfMask.Scatter(geom.contshelf); err != nil {
			return nil, err
		}
		if err := m.ThetaOcean.Scatter(theta); err != nil {
			return nil, err
		}
		if err := m.SalinityOcean.Scatter(salinity); err != nil {
			return nil, err
		}
		models[r] = m
	}
	return models, nil
}
