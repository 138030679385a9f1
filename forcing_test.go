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
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
)

// writeForcingFile writes a NetCDF forcing file with uniform fields: record k
// has temperature 273+k and salinity 34+k at times 0, 10, 20, ...
func writeForcingFile(t *testing.T, g *Grid, nTimes int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "forcing.nc")
	ff, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()

	h := cdf.NewHeader([]string{"time", "y", "x"}, []int{nTimes, g.Ny, g.Nx})
	h.AddVariable(varTime, []string{"time"}, []float32{0})
	h.AddVariable(varThetaOcean, []string{"time", "y", "x"}, []float32{0})
	h.AddVariable(varSalinityOcean, []string{"time", "y", "x"}, []float32{0})
	h.Define()

	f, err := cdf.Create(ff, h)
	if err != nil {
		t.Fatal(err)
	}

	times := make([]float32, nTimes)
	theta := make([]float32, nTimes*g.Ny*g.Nx)
	salinity := make([]float32, nTimes*g.Ny*g.Nx)
	stride := g.Ny * g.Nx
	for k := 0; k < nTimes; k++ {
		times[k] = float32(10 * k)
		for i := 0; i < stride; i++ {
			theta[k*stride+i] = float32(273 + k)
			salinity[k*stride+i] = float32(34 + k)
		}
	}
	for _, v := range []struct {
		name string
		data []float32
	}{
		{varTime, times},
		{varThetaOcean, theta},
		{varSalinityOcean, salinity},
	} {
		end := f.Header.Lengths(v.name)
		start := make([]int, len(end))
		w := f.Writer(v.name, start, end)
		if _, err := w.Write(v.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		t.Fatal(err)
	}
	return path
}

func openForcing(t *testing.T, g *Grid, nTimes int, periodic bool) *Forcing {
	t.Helper()
	path := writeForcingFile(t, g, nTimes)
	ff, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()
	forcing, err := ReadForcing(ff, g, periodic)
	if err != nil {
		t.Fatal(err)
	}
	return forcing
}

func TestForcingInterpolation(t *testing.T) {
	g := &Grid{Nx: 3, Ny: 2, Dx: 1, Dy: 1}
	forcing := openForcing(t, g, 3, false)

	tests := []struct {
		t                  float64
		wantTheta, wantSal float64
	}{
		{t: 0, wantTheta: 273, wantSal: 34},
		{t: 10, wantTheta: 274, wantSal: 35},
		{t: 5, wantTheta: 273.5, wantSal: 34.5},
		{t: 17.5, wantTheta: 274.75, wantSal: 35.75},
		{t: -3, wantTheta: 273, wantSal: 34},  // clamped to the first record
		{t: 100, wantTheta: 275, wantSal: 36}, // clamped to the last record
	}
	for _, test := range tests {
		theta, sal, err := forcing.At(test.t)
		if err != nil {
			t.Fatal(err)
		}
		if got := theta.Elements[0]; math.Abs(got-test.wantTheta) > 1e-6 {
			t.Errorf("At(%g): theta=%g; want %g", test.t, got, test.wantTheta)
		}
		if got := sal.Elements[0]; math.Abs(got-test.wantSal) > 1e-6 {
			t.Errorf("At(%g): salinity=%g; want %g", test.t, got, test.wantSal)
		}
	}
}

func TestForcingPeriodic(t *testing.T) {
	g := &Grid{Nx: 2, Ny: 2, Dx: 1, Dy: 1}
	forcing := openForcing(t, g, 3, true)

	// Records at 0, 10, 20 with period 30: time 35 maps to time 5.
	theta, _, err := forcing.At(35)
	if err != nil {
		t.Fatal(err)
	}
	if got := theta.Elements[0]; math.Abs(got-273.5) > 1e-6 {
		t.Errorf("At(35): theta=%g; want 273.5", got)
	}

	// Time 25 lies in the wrap-around gap between the last and first
	// records, halfway through: the mean of 275 and 273.
	theta, _, err = forcing.At(25)
	if err != nil {
		t.Fatal(err)
	}
	if got := theta.Elements[0]; math.Abs(got-274) > 1e-6 {
		t.Errorf("At(25): theta=%g; want 274", got)
	}
}

func TestForcingBadShape(t *testing.T) {
	g := &Grid{Nx: 3, Ny: 2, Dx: 1, Dy: 1}
	path := writeForcingFile(t, g, 2)
	ff, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()
	if _, err := ReadForcing(ff, &Grid{Nx: 5, Ny: 5}, false); err == nil {
		t.Error("expected an error reading forcing onto a mismatched grid")
	}
}
