package face

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"vblocks.ai/internal/build/grid"
)

func TestResolve_EachFace(t *testing.T) {
	const size = 0.1
	centers := []mgl64.Vec3{{0, 0.05, 0}, {1.3, 2.05, -4.7}, {-0.2, -0.05, 0.9}}
	for _, c := range centers {
		for _, f := range All {
			hit := c.Add(f.Normal().Mul(size/2 + 1e-6))
			got, ok := Resolve(c, hit)
			if !ok || got != f {
				t.Fatalf("center=%v face=%v: got %v ok=%v", c, f, got, ok)
			}
			off := f.Offset(size)
			if math.Abs(off.Len()-size) > 1e-12 || off.Dot(f.Normal()) <= 0 {
				t.Fatalf("face=%v offset=%v", f, off)
			}
		}
	}
}

// Points anywhere on a face, including next to its edges and corners, resolve to exactly
// that face.
func TestResolve_SurfaceSamples(t *testing.T) {
	const half = 0.05
	r := rand.New(rand.NewSource(3))
	center := mgl64.Vec3{0.4, 0.25, -0.1}
	for _, f := range All {
		n := f.Normal()
		axis := 0
		for i := 0; i < 3; i++ {
			if n[i] != 0 {
				axis = i
			}
		}
		for i := 0; i < 2000; i++ {
			var p mgl64.Vec3
			for k := 0; k < 3; k++ {
				if k == axis {
					p[k] = n[k] * half
					continue
				}
				// Stay strictly inside the face so the answer is unique.
				p[k] = (r.Float64()*2 - 1) * half * 0.999
			}
			got, ok := Resolve(center, center.Add(p))
			if !ok || got != f {
				t.Fatalf("face=%v sample=%v: got %v", f, p, got)
			}
		}
	}
}

func TestResolve_NearEdges(t *testing.T) {
	c := mgl64.Vec3{0, 0.05, 0}
	cases := []struct {
		hit  mgl64.Vec3
		want Face
	}{
		{mgl64.Vec3{0.05, 0.0999, 0}, Right},
		{mgl64.Vec3{0.0499, 0.1, 0}, Top},
		{mgl64.Vec3{-0.05, 0.05, 0.0499}, Left},
		{mgl64.Vec3{0.0499, 0.05, 0.05}, Front},
		{mgl64.Vec3{0.0499, 0, -0.0499}, Bottom},
		{mgl64.Vec3{0.0499, 0.0501, -0.05}, Back},
	}
	for _, tc := range cases {
		got, ok := Resolve(c, tc.hit)
		if !ok || got != tc.want {
			t.Fatalf("hit=%v got %v want %v", tc.hit, got, tc.want)
		}
	}
}

func TestResolve_TiesFollowEnumerationOrder(t *testing.T) {
	c := mgl64.Vec3{}
	// Exact corner: +X, +Y and +Z tie, Right comes first.
	if got, ok := Resolve(c, mgl64.Vec3{1, 1, 1}); !ok || got != Right {
		t.Fatalf("corner got %v", got)
	}
	// -X/-Y edge: Left comes first.
	if got, ok := Resolve(c, mgl64.Vec3{-1, -1, 0}); !ok || got != Left {
		t.Fatalf("edge got %v", got)
	}
	// -Y/+Z edge: Bottom before Front.
	if got, ok := Resolve(c, mgl64.Vec3{0, -1, 1}); !ok || got != Bottom {
		t.Fatalf("edge got %v", got)
	}
}

func TestResolve_Degenerate(t *testing.T) {
	c := mgl64.Vec3{0.3, 0.05, 0.3}
	if _, ok := Resolve(c, c); ok {
		t.Fatalf("zero-length hit vector must not resolve")
	}
}

func TestCubeCenterAndStep(t *testing.T) {
	got := CubeCenter(mgl64.Vec3{0.1, 0.2, 0.3}, 0.1)
	if math.Abs(got[1]-0.25) > 1e-12 || got[0] != 0.1 || got[2] != 0.3 {
		t.Fatalf("center=%v", got)
	}
	want := map[Face]grid.Cell{
		Left: {-1, 0, 0}, Right: {1, 0, 0},
		Bottom: {0, -1, 0}, Top: {0, 1, 0},
		Back: {0, 0, -1}, Front: {0, 0, 1},
	}
	for f, c := range want {
		if f.Step() != c {
			t.Fatalf("%v step=%v want %v", f, f.Step(), c)
		}
	}
	if Face(42).String() != "unknown" || Top.String() != "top" {
		t.Fatalf("names")
	}
}
