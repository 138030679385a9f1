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

func TestOutputterResults(t *testing.T) {
	s := shelfScenario()
	m := s.models(t, 1, 2)[0]
	m.RunFuncs = StepFuncs()
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}

	const secPerYear = 3.15569e7
	o, err := NewOutputter("", map[string]string{
		"melt":            "basal_melt_rate",
		"melt_per_year":   "basal_melt_rate * 31556900.0",
		"total_melt_flux": "sum(basal_melt_rate)",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.CheckOutputVars()(m); err != nil {
		t.Fatal(err)
	}

	grids, scalars, err := o.Results(m)
	if err != nil {
		t.Fatal(err)
	}

	var sum float64
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			want := m.BasalMeltRate.Value(i, j)
			k := j*m.Grid.Nx + i
			if got := grids["melt"].Elements[k]; math.Abs(got-want) > testTolerance {
				t.Errorf("melt(%d,%d)=%g; want %g", i, j, got, want)
			}
			if got := grids["melt_per_year"].Elements[k]; math.Abs(got-want*secPerYear) > 1e-6 {
				t.Errorf("melt_per_year(%d,%d)=%g; want %g", i, j, got, want*secPerYear)
			}
			sum += want
		}
	}
	if got := scalars["total_melt_flux"]; math.Abs(got-sum) > testTolerance {
		t.Errorf("total_melt_flux=%g; want %g", got, sum)
	}
}

func TestOutputterUndefinedVariable(t *testing.T) {
	s := shelfScenario()
	m := s.models(t, 1, 2)[0]

	o, err := NewOutputter("", map[string]string{"bad": "no_such_variable"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.CheckOutputVars()(m); err == nil {
		t.Error("expected an error for an undefined model variable")
	}
}

func TestOutputFile(t *testing.T) {
	s := shelfScenario()
	m := s.models(t, 1, 2)[0]

	path := filepath.Join(t.TempDir(), "out.nc")
	o, err := NewOutputter(path, map[string]string{
		"melt":  "basal_melt_rate",
		"boxes": "box_mask",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	m.InitFuncs = []DomainManipulator{o.CheckOutputVars()}
	m.RunFuncs = StepFuncs()
	m.CleanupFuncs = []DomainManipulator{o.Output()}
	if err := m.Init(); err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if err := m.Cleanup(); err != nil {
		t.Fatal(err)
	}

	ff, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()
	f, err := cdf.Open(ff)
	if err != nil {
		t.Fatal(err)
	}

	dims := f.Header.Lengths("melt")
	if len(dims) != 2 || dims[0] != 4 || dims[1] != 4 {
		t.Fatalf("output variable melt has shape %v; want [4 4]", dims)
	}
	r := f.Reader("melt", nil, nil)
	tmp := make([]float32, 16)
	if _, err := r.Read(tmp); err != nil {
		t.Fatal(err)
	}
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			want := m.BasalMeltRate.Value(i, j)
			if got := float64(tmp[j*4+i]); math.Abs(got-want) > 1e-12 {
				// float32 round trip
				if math.Abs(got-want) > math.Abs(want)*1e-6 {
					t.Errorf("written melt(%d,%d)=%g; want %g", i, j, got, want)
				}
			}
		}
	}
	// The box mask round trips through the output as float values.
	r = f.Reader("boxes", nil, nil)
	if _, err := r.Read(tmp); err != nil {
		t.Fatal(err)
	}
	if got := int(tmp[1*4] + 0.5); got != 2 {
		t.Errorf("written box mask at (0,1)=%d; want 2", got)
	}
}
