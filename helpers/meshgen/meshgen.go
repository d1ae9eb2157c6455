// Package meshgen generates initial bodies as node positions and tetrahedra
// given by node index, the input of mesh.FromTetras.
package meshgen

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Tetra returns a regular tetrahedron with unit edges resting on z=0.
func Tetra() ([]r3.Vec, [][4]int) {
	return []r3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0.5, Y: math.Sqrt(3) / 2, Z: 0},
		{X: 0.5, Y: math.Sqrt(3) / 6, Z: math.Sqrt(2.0 / 3.0)},
	}, [][4]int{{0, 1, 2, 3}}
}

// Lattice returns div[0]*div[1]*div[2] cubes of side spacing with their
// minimum corner at the origin. Each cube is split into the six tetrahedra
// sharing its main diagonal (Kuhn subdivision), so neighbouring cubes match.
// Node i+(n0+1)*(j+(n1+1)*k) sits at spacing*(i,j,k).
func Lattice(div [3]int, spacing float64) ([]r3.Vec, [][4]int, error) {
	if div[0] < 1 || div[1] < 1 || div[2] < 1 {
		return nil, nil, errors.New("meshgen: lattice needs at least one cube per axis")
	}
	if spacing <= 0 {
		return nil, nil, errors.New("meshgen: lattice spacing must be positive")
	}
	nx, ny, nz := div[0]+1, div[1]+1, div[2]+1
	node := func(i, j, k int) int { return i + nx*(j+ny*k) }
	points := make([]r3.Vec, 0, nx*ny*nz)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				points = append(points, r3.Scale(spacing, r3.Vec{X: float64(i), Y: float64(j), Z: float64(k)}))
			}
		}
	}
	tetras := make([][4]int, 0, 6*div[0]*div[1]*div[2])
	for k := 0; k < div[2]; k++ {
		for j := 0; j < div[1]; j++ {
			for i := 0; i < div[0]; i++ {
				var (
					c000 = node(i, j, k)
					c100 = node(i+1, j, k)
					c010 = node(i, j+1, k)
					c110 = node(i+1, j+1, k)
					c001 = node(i, j, k+1)
					c101 = node(i+1, j, k+1)
					c011 = node(i, j+1, k+1)
					c111 = node(i+1, j+1, k+1)
				)
				tetras = append(tetras,
					[4]int{c000, c100, c110, c111},
					[4]int{c000, c100, c111, c101},
					[4]int{c000, c010, c111, c110},
					[4]int{c000, c010, c011, c111},
					[4]int{c000, c001, c101, c111},
					[4]int{c000, c001, c111, c011},
				)
			}
		}
	}
	return points, tetras, nil
}
