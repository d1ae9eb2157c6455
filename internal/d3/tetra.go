package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Tetrahedra are positively oriented when Orient(a,b,c,d) > 0. For such a
// tetrahedron the face (b,c,d) winds counter-clockwise seen from outside.

// Orient returns six times the signed volume of tetrahedron abcd.
func Orient(a, b, c, d r3.Vec) float64 {
	return r3.Dot(r3.Sub(b, a), r3.Cross(r3.Sub(c, a), r3.Sub(d, a)))
}

// Volume returns the signed volume of tetrahedron abcd.
func Volume(a, b, c, d r3.Vec) float64 {
	return Orient(a, b, c, d) / 6
}

// Barycentric returns the coordinates of p in the frame of tetrahedron abcd
// such that p = a + x*(b-a) + y*(c-a) + z*(d-a). ok is false for degenerate
// tetrahedra.
func Barycentric(p, a, b, c, d r3.Vec) (bary r3.Vec, ok bool) {
	e1, e2, e3 := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(d, a)
	det := r3.Dot(e1, r3.Cross(e2, e3))
	if math.Abs(det) < 1e-300 {
		return r3.Vec{}, false
	}
	q := r3.Sub(p, a)
	return r3.Vec{
		X: r3.Dot(q, r3.Cross(e2, e3)) / det,
		Y: r3.Dot(e1, r3.Cross(q, e3)) / det,
		Z: r3.Dot(e1, r3.Cross(e2, q)) / det,
	}, true
}

// InTetra returns true if barycentric coordinates returned by Barycentric
// lie inside or on the boundary of the tetrahedron.
func InTetra(bary r3.Vec) bool {
	return bary.X >= 0 && bary.Y >= 0 && bary.Z >= 0 && bary.X+bary.Y+bary.Z <= 1
}

// Weights returns the four barycentric weights of p with respect to abcd.
// Weight i is the fraction of volume of the tetrahedron obtained by
// replacing vertex i with p. Weights sum to 1.
func Weights(p, a, b, c, d r3.Vec) (w [4]float64, ok bool) {
	o := Orient(a, b, c, d)
	if o == 0 {
		return w, false
	}
	w[0] = Orient(p, b, c, d) / o
	w[1] = Orient(a, p, c, d) / o
	w[2] = Orient(a, b, p, d) / o
	w[3] = Orient(a, b, c, p) / o
	return w, true
}

// Circumsphere returns the center and squared radius of the sphere through
// a, b, c and d. ok is false if the points are coplanar.
func Circumsphere(a, b, c, d r3.Vec) (center r3.Vec, r2 float64, ok bool) {
	u, v, w := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(d, a)
	vw, wu, uv := r3.Cross(v, w), r3.Cross(w, u), r3.Cross(u, v)
	den := 2 * r3.Dot(u, vw)
	if math.Abs(den) < 1e-300 {
		return r3.Vec{}, 0, false
	}
	off := r3.Add(r3.Add(r3.Scale(r3.Norm2(u), vw), r3.Scale(r3.Norm2(v), wu)), r3.Scale(r3.Norm2(w), uv))
	off = r3.Scale(1/den, off)
	return r3.Add(a, off), r3.Norm2(off), true
}

// InSphere returns true if e lies strictly inside the circumsphere of abcd.
// Points within a relative tolerance of the sphere are considered outside
// so that cospherical configurations are stable.
func InSphere(a, b, c, d, e r3.Vec) bool {
	center, r2, ok := Circumsphere(a, b, c, d)
	if !ok {
		return false
	}
	const relTol = 1e-9
	return r3.Norm2(r3.Sub(e, center)) < r2*(1-relTol)
}

// RadiusRatio returns three times the inradius over the circumradius of
// abcd: 1 for the regular tetrahedron, approaching 0 for slivers.
func RadiusRatio(a, b, c, d r3.Vec) float64 {
	_, r2, ok := Circumsphere(a, b, c, d)
	if !ok || r2 == 0 {
		return 0
	}
	faces := Area(b, c, d) + Area(a, c, d) + Area(a, b, d) + Area(a, b, c)
	if faces == 0 {
		return 0
	}
	rin := 3 * math.Abs(Volume(a, b, c, d)) / faces
	return 3 * rin / math.Sqrt(r2)
}
