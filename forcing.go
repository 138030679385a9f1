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
	"fmt"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// Forcing variable names in the input file.
const (
	varThetaOcean    = "theta_ocean"
	varSalinityOcean = "salinity_ocean"
	varTime          = "time"
)

// Forcing holds a time series of gridded ocean temperature and salinity
// records and interpolates them linearly in time. When periodic, a query time
// outside the record range wraps around modulo the record length.
type Forcing struct {
	times    []float64
	theta    []*sparse.DenseArray
	salinity []*sparse.DenseArray

	periodic bool
	period   float64
}

// ReadForcing reads the ocean forcing from a NetCDF file, which must contain
// the variables theta_ocean [K] and salinity_ocean [psu] with dimensions
// [time, y, x] on the given grid, and a time coordinate in strictly
// increasing order. When periodic is true the record is treated as one
// climatological cycle whose period is the record length.
func ReadForcing(r cdf.ReaderWriterAt, g *Grid, periodic bool) (*Forcing, error) {
	f, err := cdf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("shelfmelt: opening forcing file: %v", err)
	}

	times, err := readNCFVector(f, varTime)
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("shelfmelt: forcing file contains no time records")
	}
	if !sort.Float64sAreSorted(times) {
		return nil, fmt.Errorf("shelfmelt: forcing time coordinate is not increasing")
	}

	o := &Forcing{times: times, periodic: periodic}
	if o.theta, err = readNCFRecords(f, varThetaOcean, g, len(times)); err != nil {
		return nil, err
	}
	if o.salinity, err = readNCFRecords(f, varSalinityOcean, g, len(times)); err != nil {
		return nil, err
	}

	if periodic && len(times) > 1 {
		// Period is the record length extended by one mean time step, so
		// that the last and first records are a step apart when wrapping.
		span := times[len(times)-1] - times[0]
		o.period = span + span/float64(len(times)-1)
	}
	return o, nil
}

// At returns the temperature and salinity fields at time t [same units as the
// file's time coordinate], linearly interpolated between the two bracketing
// records. Outside the record range the series is either clamped to the end
// records or, when periodic, wrapped.
func (o *Forcing) At(t float64) (theta, salinity *sparse.DenseArray, err error) {
	n := len(o.times)
	if n == 1 {
		return o.theta[0].Copy(), o.salinity[0].Copy(), nil
	}

	if o.periodic {
		t = o.times[0] + mod(t-o.times[0], o.period)
	}

	k := sort.SearchFloat64s(o.times, t)
	switch {
	case k == 0:
		return o.theta[0].Copy(), o.salinity[0].Copy(), nil
	case k == n && t > o.times[n-1]:
		if !o.periodic {
			return o.theta[n-1].Copy(), o.salinity[n-1].Copy(), nil
		}
		// Between the last record and the wrapped-around first one.
		w := (t - o.times[n-1]) / (o.period - (o.times[n-1] - o.times[0]))
		return interpolate(o.theta[n-1], o.theta[0], w),
			interpolate(o.salinity[n-1], o.salinity[0], w), nil
	}
	if o.times[k] == t {
		return o.theta[k].Copy(), o.salinity[k].Copy(), nil
	}
	w := (t - o.times[k-1]) / (o.times[k] - o.times[k-1])
	return interpolate(o.theta[k-1], o.theta[k], w),
		interpolate(o.salinity[k-1], o.salinity[k], w), nil
}

// interpolate returns (1-w)*a + w*b.
func interpolate(a, b *sparse.DenseArray, w float64) *sparse.DenseArray {
	out := sparse.ZerosDense(a.Shape...)
	floats.AddScaled(out.Elements, 1-w, a.Elements)
	floats.AddScaled(out.Elements, w, b.Elements)
	return out
}

func mod(x, period float64) float64 {
	m := x - period*float64(int(x/period))
	if m < 0 {
		m += period
	}
	return m
}

// readNCFVector reads a one-dimensional variable from f.
func readNCFVector(f *cdf.File, name string) ([]float64, error) {
	dims := f.Header.Lengths(name)
	if len(dims) != 1 {
		return nil, fmt.Errorf("shelfmelt: variable %s has %d dimensions; want 1", name, len(dims))
	}
	r := f.Reader(name, nil, nil)
	tmp := make([]float32, dims[0])
	if _, err := r.Read(tmp); err != nil {
		return nil, fmt.Errorf("shelfmelt: reading variable %s: %v", name, err)
	}
	out := make([]float64, len(tmp))
	for i, v := range tmp {
		out[i] = float64(v)
	}
	return out, nil
}

// readNCFRecords reads a [time, y, x] variable from f, checks its shape
// against the grid, and splits it into one DenseArray per time record.
func readNCFRecords(f *cdf.File, name string, g *Grid, nTimes int) ([]*sparse.DenseArray, error) {
	dims := f.Header.Lengths(name)
	if len(dims) != 3 || dims[0] != nTimes || dims[1] != g.Ny || dims[2] != g.Nx {
		return nil, fmt.Errorf("shelfmelt: variable %s has shape %v; want [%d %d %d]",
			name, dims, nTimes, g.Ny, g.Nx)
	}
	r := f.Reader(name, nil, nil)
	tmp := make([]float32, nTimes*g.Ny*g.Nx)
	if _, err := r.Read(tmp); err != nil {
		return nil, fmt.Errorf("shelfmelt: reading variable %s: %v", name, err)
	}
	out := make([]*sparse.DenseArray, nTimes)
	stride := g.Ny * g.Nx
	for k := 0; k < nTimes; k++ {
		a := sparse.ZerosDense(g.Ny, g.Nx)
		for i, v := range tmp[k*stride : (k+1)*stride] {
			a.Elements[i] = float64(v)
		}
		out[k] = a
	}
	return out, nil
}

// ReadNCF reads a single two-dimensional [y, x] variable from a NetCDF file,
// used for the geometry and label inputs.
func ReadNCF(r cdf.ReaderWriterAt, g *Grid, name string) (*sparse.DenseArray, error) {
	f, err := cdf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("shelfmelt: opening input file: %v", err)
	}
	dims := f.Header.Lengths(name)
	if len(dims) != 2 || dims[0] != g.Ny || dims[1] != g.Nx {
		return nil, fmt.Errorf("shelfmelt: variable %s has shape %v; want [%d %d]",
			name, dims, g.Ny, g.Nx)
	}
	rr := f.Reader(name, nil, nil)
	tmp := make([]float32, g.Ny*g.Nx)
	if _, err := rr.Read(tmp); err != nil {
		return nil, fmt.Errorf("shelfmelt: reading variable %s: %v", name, err)
	}
	out := sparse.ZerosDense(g.Ny, g.Nx)
	for i, v := range tmp {
		out.Elements[i] = float64(v)
	}
	return out, nil
}
