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

// Package comm provides the collective operations that the melt model uses to
// combine statistics computed by worker ranks that each own part of the model
// grid. Every rank in a group must reach each collective call in the same
// order; the calls block until all ranks have contributed.
package comm

// Comm performs collective operations across a group of worker ranks.
//
// All slice-valued collectives require every rank to pass a slice of the same
// length. The returned slices are owned by the caller.
type Comm interface {
	// Rank returns the index of this worker within the group.
	Rank() int

	// Size returns the number of workers in the group.
	Size() int

	// SumInts returns the element-wise sum of local across all ranks.
	SumInts(local []int) ([]int, error)

	// SumFloat64s returns the element-wise sum of local across all ranks.
	SumFloat64s(local []float64) ([]float64, error)

	// MaxInt returns the maximum of local across all ranks.
	MaxInt(local int) (int, error)

	// ExchangeRows trades boundary rows with the neighboring ranks in a
	// one-dimensional band decomposition: first and last are this rank's
	// first and last owned rows. below is the last owned row of rank-1 and
	// above is the first owned row of rank+1; they are nil at the edges
	// of the domain.
	ExchangeRows(first, last []float64) (below, above []float64, err error)

	// Barrier blocks until every rank in the group has reached it.
	Barrier() error
}

// Serial is a single-rank Comm for runs that are not distributed.
type Serial struct{}

// Rank implements Comm.
func (Serial) Rank() int { return 0 }

// Size implements Comm.
func (Serial) Size() int { return 1 }

// SumInts implements Comm.
func (Serial) SumInts(local []int) ([]int, error) {
	return append([]int(nil), local...), nil
}

// SumFloat64s implements Comm.
func (Serial) SumFloat64s(local []float64) ([]float64, error) {
	return append([]float64(nil), local...), nil
}

// MaxInt implements Comm.
func (Serial) MaxInt(local int) (int, error) { return local, nil }

// ExchangeRows implements Comm. A single rank has no neighbors, so both
// returned rows are nil.
func (Serial) ExchangeRows(first, last []float64) ([]float64, []float64, error) {
	return nil, nil, nil
}

// Barrier implements Comm.
func (Serial) Barrier() error { return nil }
