package sds

import "math"

const (
	pi = math.Pi
	// Epsilon is the tolerance used for geometric comparisons across packages.
	Epsilon = 1e-9
)

// SphereVolume returns the volume of a sphere of radius r.
func SphereVolume(r float64) float64 {
	return 4 * pi * r * r * r / 3
}

// SphereRadius returns the radius of a sphere of the given volume.
// Cells store their mass as a volume of unit density.
func SphereRadius(volume float64) float64 {
	if volume <= 0 {
		return 0
	}
	return math.Cbrt(3 * volume / (4 * pi))
}

// RestVolume returns the volume of the tetrahedron joining the centres of
// four mutually tangent spheres of radii r1, r2, r3 and r4. This is the rest
// volume of a tetrahedron whose vertices are cells of those radii.
func RestVolume(r1, r2, r3, r4 float64) float64 {
	s124, s134, s234 := r1+r2+r4, r1+r3+r4, r2+r3+r4
	r123, r12, r13, r23 := r1*r2*r3, r1*r2, r1*r3, r2*r3

	a := r4 * math.Sqrt(r23*s124*s134)
	b := r4 * math.Sqrt(r13*s124*s234)
	c := r4 * math.Sqrt(r12*s134*s234)

	prod := (r123 + a + b - c) * (r123 + a - b + c) * (r123 - a + b + c) * (-r123 + a + b + c)
	if prod <= 0 {
		return 0
	}
	return math.Sqrt(prod) / (3 * (r1 + r4) * (r2 + r4) * (r3 + r4))
}
