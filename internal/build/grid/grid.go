// Package grid snaps continuous world coordinates onto the fixed-size cube lattice.
//
// Rounding is half away from zero (math.Round) on every axis, so a click exactly on a
// boundary between two cells always lands in the cell farther from the origin.
package grid

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Vec3 = mgl64.Vec3

// Cell is an integer lattice coordinate: the cell center is Cell*size per axis.
type Cell [3]int64

func (c Cell) String() string { return fmt.Sprintf("(%d,%d,%d)", c[0], c[1], c[2]) }

// Add returns the neighbor reached by stepping d cells.
func (c Cell) Add(d Cell) Cell { return Cell{c[0] + d[0], c[1] + d[1], c[2] + d[2]} }

type Grid struct {
	size float64
}

func New(size float64) (Grid, error) {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return Grid{}, fmt.Errorf("grid: invalid cell size %v", size)
	}
	return Grid{size: size}, nil
}

// MustNew is New for sizes known at compile time.
func MustNew(size float64) Grid {
	g, err := New(size)
	if err != nil {
		panic(err)
	}
	return g
}

func (g Grid) Size() float64 { return g.size }

// Snap maps one coordinate to the center of its enclosing cell.
func (g Grid) Snap(v float64) float64 {
	return math.Round(v/g.size) * g.size
}

// Quantize snaps every axis of v independently.
func (g Grid) Quantize(v Vec3) Vec3 {
	return Vec3{g.Snap(v[0]), g.Snap(v[1]), g.Snap(v[2])}
}

// Drift is the largest per-axis distance between v and the center of its cell.
func (g Grid) Drift(v Vec3) float64 {
	d := 0.0
	for i := 0; i < 3; i++ {
		d = math.Max(d, math.Abs(v[i]-g.Snap(v[i])))
	}
	return d
}

func (g Grid) CellOf(v Vec3) Cell {
	return Cell{g.index(v[0]), g.index(v[1]), g.index(v[2])}
}

func (g Grid) Center(c Cell) Vec3 {
	return Vec3{float64(c[0]) * g.size, float64(c[1]) * g.size, float64(c[2]) * g.size}
}

func (g Grid) index(v float64) int64 {
	return int64(math.Round(v / g.size))
}
