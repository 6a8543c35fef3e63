package grid

import (
	"math"
	"math/rand"
	"testing"
)

func TestNew_RejectsBadSizes(t *testing.T) {
	for _, s := range []float64{0, -0.1, math.NaN(), math.Inf(1)} {
		if _, err := New(s); err == nil {
			t.Fatalf("expected error for size %v", s)
		}
	}
	if _, err := New(0.1); err != nil {
		t.Fatalf("size 0.1: %v", err)
	}
}

func TestQuantize_Table(t *testing.T) {
	g := MustNew(0.1)
	cases := []struct {
		in   Vec3
		want Cell
	}{
		{Vec3{0.03, 0, 0.02}, Cell{0, 0, 0}},
		{Vec3{0.06, 0, -0.06}, Cell{1, 0, -1}},
		{Vec3{0.149, 0.151, -0.149}, Cell{1, 2, -1}},
		{Vec3{1.0, 2.0, -3.0}, Cell{10, 20, -30}},
	}
	for _, tc := range cases {
		if got := g.CellOf(tc.in); got != tc.want {
			t.Fatalf("CellOf(%v)=%v want %v", tc.in, got, tc.want)
		}
		q := g.Quantize(tc.in)
		c := g.Center(tc.want)
		for i := 0; i < 3; i++ {
			if math.Abs(q[i]-c[i]) > 1e-12 {
				t.Fatalf("Quantize(%v)=%v want %v", tc.in, q, c)
			}
		}
	}
}

func TestQuantize_HalfRoundsAwayFromZero(t *testing.T) {
	g := MustNew(1)
	if got := g.CellOf(Vec3{0.5, -0.5, 2.5}); got != (Cell{1, -1, 3}) {
		t.Fatalf("CellOf=%v", got)
	}
}

func TestQuantize_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for _, size := range []float64{0.1, 0.25, 1, 0.5} {
		g := MustNew(size)
		for i := 0; i < 5000; i++ {
			p := Vec3{(r.Float64() - 0.5) * 2000, (r.Float64() - 0.5) * 200, (r.Float64() - 0.5) * 2000}
			q := g.Quantize(p)
			if qq := g.Quantize(q); qq != q {
				t.Fatalf("size=%v p=%v: quantize(quantize)=%v quantize=%v", size, p, qq, q)
			}
			if g.CellOf(q) != g.CellOf(p) {
				t.Fatalf("size=%v p=%v: cell drifted after quantize", size, p)
			}
		}
	}
}

func TestCellAdd(t *testing.T) {
	if got := (Cell{1, 2, 3}).Add(Cell{-1, 0, 1}); got != (Cell{0, 2, 4}) {
		t.Fatalf("Add=%v", got)
	}
	if s := (Cell{1, -2, 3}).String(); s != "(1,-2,3)" {
		t.Fatalf("String=%q", s)
	}
}

func TestDrift(t *testing.T) {
	g := MustNew(0.1)
	cases := []struct {
		p    Vec3
		want float64
	}{
		{Vec3{0.3, -0.2, 1}, 0},
		{Vec3{0.30000000000000004, 0, 0}, 0},
		{Vec3{0.32, 0, 0.1}, 0.02},
		{Vec3{0, -0.04, 0.01}, 0.04},
	}
	for _, c := range cases {
		if got := g.Drift(c.p); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("Drift(%v)=%v want %v", c.p, got, c.want)
		}
	}
}
