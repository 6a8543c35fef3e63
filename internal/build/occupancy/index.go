// Package occupancy tracks which lattice cells hold a live cube.
//
// Keys are integer lattice cells, so positions that drifted by less than the configured
// tolerance through the world protocol still land on the same key after grid.CellOf.
package occupancy

import (
	"sort"
	"sync"

	"vblocks.ai/internal/build/grid"
)

type state uint8

const (
	occupied state = iota + 1
	reserved
)

// Index is safe for concurrent use. Its lock is held only for the map operation itself.
type Index struct {
	mu    sync.Mutex
	cells map[grid.Cell]state
}

func New() *Index {
	return &Index{cells: map[grid.Cell]state{}}
}

// Contains reports whether c is occupied or reserved by an in-flight create.
func (x *Index) Contains(c grid.Cell) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.cells[c]
	return ok
}

func (x *Index) Add(c grid.Cell) {
	x.mu.Lock()
	x.cells[c] = occupied
	x.mu.Unlock()
}

// Remove drops an occupant of c. A reservation held by an in-flight create is left for
// Commit or Release, so a late delete notification for an earlier cube cannot free it.
// Removing an absent cell is a no-op.
func (x *Index) Remove(c grid.Cell) {
	x.mu.Lock()
	if x.cells[c] == occupied {
		delete(x.cells, c)
	}
	x.mu.Unlock()
}

func (x *Index) Seed(cells []grid.Cell) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, c := range cells {
		x.cells[c] = occupied
	}
}

// Reserve marks c as taken if it is free. It returns false when c is already occupied or
// reserved; the caller must then not create anything there.
func (x *Index) Reserve(c grid.Cell) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.cells[c]; ok {
		return false
	}
	x.cells[c] = reserved
	return true
}

// Commit turns a reservation into a confirmed occupant.
func (x *Index) Commit(c grid.Cell) {
	x.Add(c)
}

// Release rolls back a reservation after a failed create. A cell already confirmed by a
// create notification is left alone.
func (x *Index) Release(c grid.Cell) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.cells[c] == reserved {
		delete(x.cells, c)
	}
}

func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.cells)
}

// Cells returns the occupied and reserved cells in lexical order.
func (x *Index) Cells() []grid.Cell {
	x.mu.Lock()
	out := make([]grid.Cell, 0, len(x.cells))
	for c := range x.cells {
		out = append(out, c)
	}
	x.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})
	return out
}
