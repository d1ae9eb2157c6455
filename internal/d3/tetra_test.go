package d3

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

var unitTetra = [4]r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}}

func TestOrientAndVolume(t *testing.T) {
	a, b, c, d := unitTetra[0], unitTetra[1], unitTetra[2], unitTetra[3]
	if got := Orient(a, b, c, d); math.Abs(got-1) > 1e-15 {
		t.Errorf("Orient unit tetra: got %g, want 1", got)
	}
	if got := Volume(a, b, d, c); math.Abs(got+1.0/6) > 1e-15 {
		t.Errorf("swapped tetra volume: got %g, want -1/6", got)
	}
}

func TestBarycentricAndWeights(t *testing.T) {
	a, b, c, d := unitTetra[0], unitTetra[1], unitTetra[2], unitTetra[3]
	for _, test := range []struct {
		p      r3.Vec
		inside bool
	}{
		{p: r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}, inside: true},
		{p: r3.Vec{X: 0.25, Y: 0.25, Z: 0.25}, inside: true},
		{p: r3.Vec{X: 1, Y: 1, Z: 1}, inside: false},
		{p: r3.Vec{X: -0.1, Y: 0.1, Z: 0.1}, inside: false},
		{p: r3.Vec{X: 0.5, Y: 0.5}, inside: true}, // on face.
	} {
		bary, ok := Barycentric(test.p, a, b, c, d)
		if !ok {
			t.Fatal("unit tetra reported degenerate")
		}
		if !EqualWithin(bary, test.p, 1e-12) {
			t.Errorf("barycentric of %v in unit tetra: got %v", test.p, bary)
		}
		if got := InTetra(bary); got != test.inside {
			t.Errorf("InTetra(%v) = %v, want %v", test.p, got, test.inside)
		}
		w, _ := Weights(test.p, a, b, c, d)
		sum := w[0] + w[1] + w[2] + w[3]
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("weights of %v do not sum to 1: %v", test.p, w)
		}
		if math.Abs(w[1]-bary.X) > 1e-12 || math.Abs(w[2]-bary.Y) > 1e-12 || math.Abs(w[3]-bary.Z) > 1e-12 {
			t.Errorf("weights %v disagree with barycentric %v", w, bary)
		}
	}
}

func TestInSphere(t *testing.T) {
	a, b, c, d := unitTetra[0], unitTetra[1], unitTetra[2], unitTetra[3]
	center, r2, ok := Circumsphere(a, b, c, d)
	if !ok {
		t.Fatal("circumsphere failed")
	}
	if !EqualWithin(center, Elem(0.5), 1e-12) || math.Abs(r2-0.75) > 1e-12 {
		t.Errorf("circumsphere: got %v r2=%g", center, r2)
	}
	if !InSphere(a, b, c, d, Elem(0.5)) {
		t.Error("center not in sphere")
	}
	// cube corner is cospherical with the other four.
	if InSphere(a, b, c, d, Elem(1)) {
		t.Error("cospherical point reported inside")
	}
	if InSphere(a, b, c, d, Elem(2)) {
		t.Error("far point reported inside")
	}
}

func TestRadiusRatio(t *testing.T) {
	regular := [4]r3.Vec{{X: 1, Y: 1, Z: 1}, {X: 1, Y: -1, Z: -1}, {X: -1, Y: 1, Z: -1}, {X: -1, Y: -1, Z: 1}}
	if got := RadiusRatio(regular[0], regular[1], regular[2], regular[3]); math.Abs(got-1) > 1e-12 {
		t.Errorf("regular tetra radius ratio: got %g, want 1", got)
	}
	sliver := RadiusRatio(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{X: 1, Y: 1}, r3.Vec{Y: 1, Z: 1e-4})
	if sliver > 0.01 {
		t.Errorf("sliver radius ratio too large: %g", sliver)
	}
}

func TestLineTriangle(t *testing.T) {
	a, b, c := r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}
	tt, ok := LineTriangle(r3.Vec{X: 0.2, Y: 0.2, Z: 1}, r3.Vec{Z: -1}, a, b, c)
	if !ok || math.Abs(tt-1) > 1e-12 {
		t.Errorf("expected hit at t=1, got t=%g ok=%v", tt, ok)
	}
	tt, ok = LineTriangle(r3.Vec{X: 0.2, Y: 0.2, Z: 1}, r3.Vec{Z: 1}, a, b, c)
	if !ok || math.Abs(tt+1) > 1e-12 {
		t.Errorf("expected line hit behind origin at t=-1, got t=%g ok=%v", tt, ok)
	}
	if _, ok = LineTriangle(r3.Vec{X: 2, Y: 2, Z: 1}, r3.Vec{Z: -1}, a, b, c); ok {
		t.Error("expected miss")
	}
	if n := Normal(a, b, c); !EqualWithin(n, r3.Vec{Z: 1}, 1e-15) {
		t.Errorf("normal: got %v", n)
	}
	u, v, ok := TriangleBarycentric(r3.Vec{X: 0.25, Y: 0.5, Z: 3}, a, b, c)
	if !ok || math.Abs(u-0.25) > 1e-12 || math.Abs(v-0.5) > 1e-12 {
		t.Errorf("triangle barycentric: got %g %g", u, v)
	}
	st, ok := SegmentPlane(r3.Vec{Z: -1}, r3.Vec{Z: 3}, a, r3.Vec{Z: 1})
	if !ok || math.Abs(st-0.25) > 1e-12 {
		t.Errorf("segment plane: got %g %v", st, ok)
	}
}

func TestBox(t *testing.T) {
	b := BoxOf(r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: -1}, r3.Vec{Z: 5})
	want := Box{Min: r3.Vec{X: -1}, Max: r3.Vec{X: 1, Y: 2, Z: 5}}
	if !EqualWithin(b.Min, want.Min, 0) || !EqualWithin(b.Max, want.Max, 0) {
		t.Fatalf("BoxOf: got %v, want %v", b, want)
	}
	if !b.Valid() || EmptyBox().Valid() {
		t.Error("validity")
	}
	if !b.Overlaps(Box{Min: Elem(1), Max: Elem(4)}) || b.Overlaps(Box{Min: Elem(6), Max: Elem(7)}) {
		t.Error("overlap")
	}
	if c := Cell(r3.Vec{X: -0.5, Y: 1.5, Z: 2}, 1); c != [3]int{-1, 1, 2} {
		t.Errorf("Cell: got %v", c)
	}
}
