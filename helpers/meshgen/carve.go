package meshgen

import (
	"errors"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Carve returns the BCC tetrahedra of cell side resolution whose centre lies
// inside s, with unused nodes removed.
func Carve(s sdf.SDF3, resolution float64) ([]r3.Vec, [][4]int, error) {
	bb := s.BoundingBox()
	pad := r3.Vec{X: resolution, Y: resolution, Z: resolution}
	box := r3.Box{
		Min: r3.Sub(fromV3(bb.Min), pad),
		Max: r3.Add(fromV3(bb.Max), pad),
	}
	inside := func(p r3.Vec) bool { return s.Evaluate(toV3(p)) < 0 }
	points, tetras, err := bcc(box, resolution, inside)
	if err != nil {
		return nil, nil, err
	}
	if len(tetras) == 0 {
		return nil, nil, errors.New("meshgen: shape is thinner than the resolution")
	}
	return compact(points, tetras)
}

// Sphere carves a sphere of radius r centred at the origin.
func Sphere(r, resolution float64) ([]r3.Vec, [][4]int, error) {
	s, err := sdf.Sphere3D(r)
	if err != nil {
		return nil, nil, err
	}
	return Carve(s, resolution)
}

// Box carves a box of the given size centred at the origin.
func Box(size r3.Vec, resolution float64) ([]r3.Vec, [][4]int, error) {
	s, err := sdf.Box3D(toV3(size), 0)
	if err != nil {
		return nil, nil, err
	}
	return Carve(s, resolution)
}

// compact drops nodes no tetrahedron refers to and renumbers the rest in
// order of first use.
func compact(points []r3.Vec, tetras [][4]int) ([]r3.Vec, [][4]int, error) {
	idx := make(map[int]int, len(points))
	var out []r3.Vec
	res := make([][4]int, len(tetras))
	for i, t := range tetras {
		for j, n := range t {
			m, ok := idx[n]
			if !ok {
				m = len(out)
				idx[n] = m
				out = append(out, points[n])
			}
			res[i][j] = m
		}
	}
	return out, res, nil
}

func toV3(v r3.Vec) v3.Vec   { return v3.Vec{X: v.X, Y: v.Y, Z: v.Z} }
func fromV3(v v3.Vec) r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }
