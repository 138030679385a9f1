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
	"sync"
	"testing"

	"github.com/ctessum/sparse"

	"github.com/cryomodel/shelfmelt/comm"
)

func TestFieldScatterGather(t *testing.T) {
	g := &Grid{Nx: 3, Ny: 4, Dx: 1, Dy: 1}
	global := sparse.ZerosDense(g.Ny, g.Nx)
	for i := range global.Elements {
		global.Elements[i] = float64(i)
	}

	f := NewField(g, Partition{0, 4}, 0)
	if err := f.Scatter(global); err != nil {
		t.Fatal(err)
	}
	if got := f.Value(2, 3); got != float64(3*g.Nx+2) {
		t.Errorf("Value(2,3)=%g; want %g", got, float64(3*g.Nx+2))
	}

	out, err := f.Gather(comm.Serial{})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out.Elements {
		if v != global.Elements[i] {
			t.Errorf("gathered element %d=%g; want %g", i, v, global.Elements[i])
		}
	}
}

func TestFieldShapeMismatch(t *testing.T) {
	g := &Grid{Nx: 3, Ny: 4, Dx: 1, Dy: 1}
	f := NewField(g, Partition{0, 4}, 0)
	if err := f.Scatter(sparse.ZerosDense(2, 2)); err == nil {
		t.Error("expected an error scattering a mis-shaped array")
	}
}

func TestFieldOwnershipPanic(t *testing.T) {
	g := &Grid{Nx: 3, Ny: 4, Dx: 1, Dy: 1}
	f := NewField(g, Partition{0, 2}, 0)
	defer func() {
		if recover() == nil {
			t.Error("expected a panic writing to a non-owned row")
		}
	}()
	f.Set(0, 3, 1)
}

func TestExchangeGhosts(t *testing.T) {
	g := &Grid{Nx: 2, Ny: 4, Dx: 1, Dy: 1}
	parts, err := RowBands(g.Ny, 2)
	if err != nil {
		t.Fatal(err)
	}
	ranks := comm.NewGroup(2)

	fields := make([]*Field, 2)
	for r := range fields {
		f := NewField(g, parts[r], -1)
		for j := parts[r].J0; j < parts[r].J1; j++ {
			for i := 0; i < g.Nx; i++ {
				f.Set(i, j, float64(j))
			}
		}
		fields[r] = f
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for r := range fields {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			errs[r] = fields[r].ExchangeGhosts(ranks[r])
		}(r)
	}
	wg.Wait()
	for r, err := range errs {
		if err != nil {
			t.Fatalf("rank %d: %v", r, err)
		}
	}

	// Rank 0's upper ghost row holds rank 1's first row, and vice versa.
	if got := fields[0].Value(0, 2); got != 2 {
		t.Errorf("rank 0 ghost row=%g; want 2", got)
	}
	if got := fields[1].Value(0, 1); got != 1 {
		t.Errorf("rank 1 ghost row=%g; want 1", got)
	}
	// Ghost rows beyond the domain edge take the fill value.
	if got := fields[0].Value(0, -1); got != -1 {
		t.Errorf("rank 0 edge ghost=%g; want fill -1", got)
	}
	if got := fields[1].Value(0, 4); got != -1 {
		t.Errorf("rank 1 edge ghost=%g; want fill -1", got)
	}
}
