package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Normal returns the unit normal of triangle abc. Counter-clockwise winding
// seen from the tip of the normal.
func Normal(a, b, c r3.Vec) r3.Vec {
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	l := r3.Norm(n)
	if l == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, n)
}

// Area returns the area of triangle abc.
func Area(a, b, c r3.Vec) float64 {
	return r3.Norm(r3.Cross(r3.Sub(b, a), r3.Sub(c, a))) / 2
}

// TriangleBarycentric returns u, v such that the projection of p onto the
// plane of abc equals a + u*(b-a) + v*(c-a).
func TriangleBarycentric(p, a, b, c r3.Vec) (u, v float64, ok bool) {
	e1, e2, q := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(p, a)
	d00, d01, d11 := r3.Dot(e1, e1), r3.Dot(e1, e2), r3.Dot(e2, e2)
	d20, d21 := r3.Dot(q, e1), r3.Dot(q, e2)
	den := d00*d11 - d01*d01
	if math.Abs(den) < 1e-300 {
		return 0, 0, false
	}
	u = (d11*d20 - d01*d21) / den
	v = (d00*d21 - d01*d20) / den
	return u, v, true
}

// LineTriangle intersects the line o + t*dir with triangle abc using the
// Möller-Trumbore test. The returned t may be negative; ok is false if the
// line misses the triangle or is parallel to it.
func LineTriangle(o, dir, a, b, c r3.Vec) (t float64, ok bool) {
	const tol = 1e-12
	e1, e2 := r3.Sub(b, a), r3.Sub(c, a)
	h := r3.Cross(dir, e2)
	det := r3.Dot(e1, h)
	if math.Abs(det) < tol*r3.Norm(e1)*r3.Norm(e2)*r3.Norm(dir) {
		return 0, false
	}
	inv := 1 / det
	s := r3.Sub(o, a)
	u := inv * r3.Dot(s, h)
	if u < -tol || u > 1+tol {
		return 0, false
	}
	q := r3.Cross(s, e1)
	v := inv * r3.Dot(dir, q)
	if v < -tol || u+v > 1+tol {
		return 0, false
	}
	return inv * r3.Dot(e2, q), true
}

// SegmentPlane intersects segment p0-p1 with the plane through a with normal
// n. t is the parameter of the intersection along the segment in [0,1].
func SegmentPlane(p0, p1, a, n r3.Vec) (t float64, ok bool) {
	den := r3.Dot(n, r3.Sub(p1, p0))
	if math.Abs(den) < 1e-300 {
		return 0, false
	}
	t = r3.Dot(n, r3.Sub(a, p0)) / den
	return t, t >= 0 && t <= 1
}
