// Package face decides which side of a cube a click landed on.
package face

import (
	"github.com/go-gl/mathgl/mgl64"

	"vblocks.ai/internal/build/grid"
)

type Face int

// Enumeration order is also the tie-break order.
const (
	Left   Face = iota // -X
	Right              // +X
	Bottom             // -Y
	Top                // +Y
	Back               // -Z
	Front              // +Z
)

var All = [...]Face{Left, Right, Bottom, Top, Back, Front}

var normals = [...]mgl64.Vec3{
	Left:   {-1, 0, 0},
	Right:  {1, 0, 0},
	Bottom: {0, -1, 0},
	Top:    {0, 1, 0},
	Back:   {0, 0, -1},
	Front:  {0, 0, 1},
}

var names = [...]string{"left", "right", "bottom", "top", "back", "front"}

// minHitLength is the shortest center->hit vector that still has a direction.
const minHitLength = 1e-12

func (f Face) String() string {
	if f < Left || f > Front {
		return "unknown"
	}
	return names[f]
}

func (f Face) Normal() mgl64.Vec3 { return normals[f] }

// Offset is the displacement from a cube to its neighbor across f.
func (f Face) Offset(cellSize float64) mgl64.Vec3 { return normals[f].Mul(cellSize) }

// Step is Offset in lattice units.
func (f Face) Step() grid.Cell {
	n := normals[f]
	return grid.Cell{int64(n[0]), int64(n[1]), int64(n[2])}
}

// CubeCenter converts a reported cube position, which sits on the cube's base, into its center.
func CubeCenter(base mgl64.Vec3, cellSize float64) mgl64.Vec3 {
	return mgl64.Vec3{base[0], base[1] + cellSize/2, base[2]}
}

// Resolve returns the face whose outward normal is closest to the direction from center to
// hit. ok is false when hit coincides with center.
func Resolve(center, hit mgl64.Vec3) (f Face, ok bool) {
	d := hit.Sub(center)
	l := d.Len()
	if l < minHitLength {
		return 0, false
	}
	d = d.Mul(1 / l)

	best := Left
	bestDot := d.Dot(normals[Left])
	for _, cand := range All[1:] {
		if dot := d.Dot(normals[cand]); dot > bestDot {
			best, bestDot = cand, dot
		}
	}
	return best, true
}
