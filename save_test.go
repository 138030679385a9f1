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
	"bytes"
	"math"
	"testing"
)

func TestSaveLoad(t *testing.T) {
	s := shelfScenario()
	m := s.models(t, 1, 2)[0]
	m.RunFuncs = StepFuncs()
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Save(&buf)(m); err != nil {
		t.Fatal(err)
	}

	// Load into a fresh model and compare the melt field.
	m2 := newTestSetup(4, 4).models(t, 1, 2)[0]
	if err := Load(&buf)(m2); err != nil {
		t.Fatal(err)
	}

	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			if got, want := m2.BasalMeltRate.Value(i, j), m.BasalMeltRate.Value(i, j); math.Abs(got-want) > testTolerance {
				t.Errorf("loaded melt rate (%d,%d)=%g; want %g", i, j, got, want)
			}
			if got, want := m2.CellType.Value(i, j), m.CellType.Value(i, j); got != want {
				t.Errorf("loaded cell type (%d,%d)=%d; want %d", i, j, got, want)
			}
		}
	}
}

func TestLoadGridMismatch(t *testing.T) {
	s := shelfScenario()
	m := s.models(t, 1, 2)[0]
	m.RunFuncs = StepFuncs()
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Save(&buf)(m); err != nil {
		t.Fatal(err)
	}

	other := newTestSetup(5, 5).models(t, 1, 2)[0]
	if err := Load(&buf)(other); err == nil {
		t.Error("expected an error loading onto a mismatched grid")
	}
}
