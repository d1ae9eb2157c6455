// Package d3 holds the 3D predicates and helpers shared by the mesh and
// collision code, on top of gonum's spatial/r3.
package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Elem returns (s, s, s).
func Elem(s float64) r3.Vec { return r3.Vec{X: s, Y: s, Z: s} }

// EqualWithin reports whether no component of a and b differs by more than tol.
func EqualWithin(a, b r3.Vec, tol float64) bool {
	d := r3.Sub(a, b)
	return math.Abs(d.X) <= tol && math.Abs(d.Y) <= tol && math.Abs(d.Z) <= tol
}

// Cell returns the integer coordinates of the grid cell of side size holding v.
func Cell(v r3.Vec, size float64) [3]int {
	return [3]int{
		int(math.Floor(v.X / size)),
		int(math.Floor(v.Y / size)),
		int(math.Floor(v.Z / size)),
	}
}

// Centroid returns the mean of pts.
func Centroid(pts ...r3.Vec) r3.Vec {
	var sum r3.Vec
	for _, p := range pts {
		sum = r3.Add(sum, p)
	}
	return r3.Scale(1/float64(len(pts)), sum)
}

// Angle returns the angle between a and b in radians, or pi when either is
// zero.
func Angle(a, b r3.Vec) float64 {
	na, nb := r3.Norm(a), r3.Norm(b)
	if na == 0 || nb == 0 {
		return math.Pi
	}
	c := r3.Dot(a, b) / (na * nb)
	return math.Acos(math.Max(-1, math.Min(1, c)))
}
