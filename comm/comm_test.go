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

package comm

import (
	"sync"
	"testing"
)

func TestSerial(t *testing.T) {
	var c Serial
	if c.Rank() != 0 || c.Size() != 1 {
		t.Errorf("rank=%d size=%d; want 0, 1", c.Rank(), c.Size())
	}
	sum, err := c.SumInts([]int{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range []int{1, 2, 3} {
		if sum[i] != v {
			t.Errorf("sum[%d]=%d; want %d", i, sum[i], v)
		}
	}
	below, above, err := c.ExchangeRows([]float64{1}, []float64{2})
	if err != nil {
		t.Fatal(err)
	}
	if below != nil || above != nil {
		t.Error("serial exchange should return nil ghost rows")
	}
}

func TestGroupSums(t *testing.T) {
	const n = 4
	ranks := NewGroup(n)

	results := make([][]float64, n)
	var wg sync.WaitGroup
	for r, c := range ranks {
		wg.Add(1)
		go func(r int, c *Rank) {
			defer wg.Done()
			local := []float64{float64(r), 1}
			global, err := c.SumFloat64s(local)
			if err != nil {
				t.Error(err)
				return
			}
			results[r] = global
		}(r, c)
	}
	wg.Wait()

	for r := 0; r < n; r++ {
		if results[r][0] != 6 || results[r][1] != n {
			t.Errorf("rank %d: got %v; want [6 %d]", r, results[r], n)
		}
	}
}

func TestGroupRepeatedCollectives(t *testing.T) {
	// Back-to-back collectives must not bleed state between phases.
	const n = 3
	ranks := NewGroup(n)

	var wg sync.WaitGroup
	for r, c := range ranks {
		wg.Add(1)
		go func(r int, c *Rank) {
			defer wg.Done()
			for iter := 0; iter < 100; iter++ {
				sum, err := c.SumInts([]int{1})
				if err != nil {
					t.Error(err)
					return
				}
				if sum[0] != n {
					t.Errorf("rank %d iter %d: sum=%d; want %d", r, iter, sum[0], n)
					return
				}
				max, err := c.MaxInt(r + iter)
				if err != nil {
					t.Error(err)
					return
				}
				if want := n - 1 + iter; max != want {
					t.Errorf("rank %d iter %d: max=%d; want %d", r, iter, max, want)
					return
				}
			}
		}(r, c)
	}
	wg.Wait()
}

func TestGroupExchangeRows(t *testing.T) {
	const n = 3
	ranks := NewGroup(n)

	type ghosts struct{ below, above []float64 }
	results := make([]ghosts, n)
	var wg sync.WaitGroup
	for r, c := range ranks {
		wg.Add(1)
		go func(r int, c *Rank) {
			defer wg.Done()
			first := []float64{float64(10 * r)}
			last := []float64{float64(10*r + 1)}
			below, above, err := c.ExchangeRows(first, last)
			if err != nil {
				t.Error(err)
				return
			}
			results[r] = ghosts{below, above}
		}(r, c)
	}
	wg.Wait()

	if results[0].below != nil {
		t.Error("rank 0 should have no lower neighbor")
	}
	if results[n-1].above != nil {
		t.Errorf("rank %d should have no upper neighbor", n-1)
	}
	if got := results[1].below[0]; got != 1 {
		t.Errorf("rank 1 lower ghost=%v; want 1 (rank 0's last row)", got)
	}
	if got := results[1].above[0]; got != 20 {
		t.Errorf("rank 1 upper ghost=%v; want 20 (rank 2's first row)", got)
	}
}

func TestGroupLengthMismatch(t *testing.T) {
	const n = 2
	ranks := NewGroup(n)

	errs := make([]error, n)
	var wg sync.WaitGroup
	for r, c := range ranks {
		wg.Add(1)
		go func(r int, c *Rank) {
			defer wg.Done()
			_, errs[r] = c.SumInts(make([]int, r+1))
		}(r, c)
	}
	wg.Wait()

	var sawErr bool
	for _, err := range errs {
		if err != nil {
			sawErr = true
		}
	}
	if !sawErr {
		t.Error("expected an error for mismatched reduction lengths")
	}
}
