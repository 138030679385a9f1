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
	"fmt"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// group holds the shared state for an in-process rank group. Each collective
// is a phase-counted barrier with accumulation: ranks add their contribution
// under the lock, and the last rank to arrive publishes the result and
// advances the phase.
type group struct {
	size int

	mu   sync.Mutex
	cond *sync.Cond

	arrived int
	phase   int
	err     error

	isum []int
	fsum []float64
	imax int

	iresult []int
	fresult []float64
	iscalar int

	// rows[r] holds the first and last owned rows posted by rank r during
	// a row exchange.
	rows [][2][]float64
}

// Rank is one member of an in-process group of worker ranks created by
// NewGroup.
type Rank struct {
	g    *group
	rank int
}

// NewGroup creates an in-process group of n worker ranks that communicate
// through shared memory. Each returned Rank must be used by exactly one
// goroutine, and all ranks must make the same sequence of collective calls or
// the group deadlocks.
func NewGroup(n int) []*Rank {
	g := &group{size: n, rows: make([][2][]float64, n)}
	g.cond = sync.NewCond(&g.mu)
	ranks := make([]*Rank, n)
	for i := range ranks {
		ranks[i] = &Rank{g: g, rank: i}
	}
	return ranks
}

// Rank implements Comm.
func (r *Rank) Rank() int { return r.rank }

// Size implements Comm.
func (r *Rank) Size() int { return r.g.size }

// enter runs accumulate under the group lock, then blocks until every rank in
// the group has accumulated. The last rank to arrive runs publish before
// waking the others.
func (g *group) enter(accumulate func() error, publish func()) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := accumulate(); err != nil {
		// Poison the phase so the other ranks do not wait forever.
		g.err = err
	}
	g.arrived++
	if g.arrived == g.size {
		if publish != nil && g.err == nil {
			publish()
		}
		g.arrived = 0
		g.phase++
		g.cond.Broadcast()
		return g.err
	}
	phase := g.phase
	for g.phase == phase {
		g.cond.Wait()
	}
	return g.err
}

// SumInts implements Comm.
func (r *Rank) SumInts(local []int) ([]int, error) {
	g := r.g
	err := g.enter(func() error {
		if g.isum == nil {
			g.isum = make([]int, len(local))
		}
		if len(g.isum) != len(local) {
			return fmt.Errorf("comm: rank %d passed %d values to SumInts; expected %d",
				r.rank, len(local), len(g.isum))
		}
		for i, v := range local {
			g.isum[i] += v
		}
		return nil
	}, func() {
		g.iresult = g.isum
		g.isum = nil
	})
	if err != nil {
		return nil, err
	}
	return append([]int(nil), g.iresult...), nil
}

// SumFloat64s implements Comm.
func (r *Rank) SumFloat64s(local []float64) ([]float64, error) {
	g := r.g
	err := g.enter(func() error {
		if g.fsum == nil {
			g.fsum = make([]float64, len(local))
		}
		if len(g.fsum) != len(local) {
			return fmt.Errorf("comm: rank %d passed %d values to SumFloat64s; expected %d",
				r.rank, len(local), len(g.fsum))
		}
		floats.Add(g.fsum, local)
		return nil
	}, func() {
		g.fresult = g.fsum
		g.fsum = nil
	})
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), g.fresult...), nil
}

// MaxInt implements Comm.
func (r *Rank) MaxInt(local int) (int, error) {
	g := r.g
	err := g.enter(func() error {
		if g.arrived == 0 || local > g.imax {
			g.imax = local
		}
		return nil
	}, func() {
		g.iscalar = g.imax
	})
	if err != nil {
		return 0, err
	}
	return g.iscalar, nil
}

// ExchangeRows implements Comm.
func (r *Rank) ExchangeRows(first, last []float64) ([]float64, []float64, error) {
	g := r.g
	err := g.enter(func() error {
		g.rows[r.rank] = [2][]float64{
			append([]float64(nil), first...),
			append([]float64(nil), last...),
		}
		return nil
	}, nil)
	if err != nil {
		return nil, nil, err
	}
	g.mu.Lock()
	var below, above []float64
	if r.rank > 0 {
		below = append([]float64(nil), g.rows[r.rank-1][1]...)
	}
	if r.rank < g.size-1 {
		above = append([]float64(nil), g.rows[r.rank+1][0]...)
	}
	g.mu.Unlock()
	// A second barrier keeps a fast neighbor from starting the next
	// exchange before this rank has read its rows.
	if err := r.Barrier(); err != nil {
		return nil, nil, err
	}
	return below, above, nil
}

// Barrier implements Comm.
func (r *Rank) Barrier() error {
	return r.g.enter(func() error { return nil }, nil)
}
