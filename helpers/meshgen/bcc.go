package meshgen

import (
	"errors"
	"math"

	"github.com/eigenbom/sds/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// bccGrid is a body centred cubic lattice: one node at the centre of every
// cell plus the cell corners. Tetrahedra join the centres of two adjacent
// cells with an edge of the face they share, which gives isotropic elements.
// See Molino, Bridson, Teran, Fedkiw, "A crystalline, red green strategy for
// meshing highly deformable objects with tetrahedra" (2003).
type bccGrid struct {
	div   [3]int
	min   r3.Vec
	res   float64
	nodes []r3.Vec
	// centre and corner node indices of each cell, -1 until meshed.
	centre  []int
	corners map[[3]int]int
}

// Cell corner offsets, counter-clockwise around z then up.
var cornerOffset = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// BCC returns the body centred cubic lattice covering b with cells of side
// resolution. The lattice spans the cell centres, so at least two cells per
// axis are needed.
func BCC(b r3.Box, resolution float64) ([]r3.Vec, [][4]int, error) {
	return bcc(b, resolution, nil)
}

func bcc(b r3.Box, resolution float64, keep func(r3.Vec) bool) ([]r3.Vec, [][4]int, error) {
	if resolution <= 0 {
		return nil, nil, errors.New("meshgen: resolution must be positive")
	}
	sz := d3.Box(b).Size()
	g := &bccGrid{
		div: [3]int{
			int(math.Ceil(sz.X / resolution)),
			int(math.Ceil(sz.Y / resolution)),
			int(math.Ceil(sz.Z / resolution)),
		},
		min:     b.Min,
		res:     resolution,
		corners: make(map[[3]int]int),
	}
	if g.div[0] < 2 || g.div[1] < 2 || g.div[2] < 2 {
		return nil, nil, errors.New("meshgen: resolution too low for the box")
	}
	g.centre = make([]int, g.div[0]*g.div[1]*g.div[2])
	for i := range g.centre {
		g.centre[i] = -1
	}
	var tetras [][4]int
	g.foreach(func(i, j, k int) {
		c := g.cellCentre(i, j, k)
		// Each cell meshes the octahedra it shares with its minus neighbours.
		for axis := 0; axis < 3; axis++ {
			n := [3]int{i, j, k}
			n[axis]--
			if n[axis] < 0 {
				continue
			}
			nc := g.cellCentre(n[0], n[1], n[2])
			if keep != nil && !keep(r3.Scale(0.5, r3.Add(c, nc))) {
				continue
			}
			ring := g.faceRing(i, j, k, axis)
			ci, ni := g.centreNode(i, j, k), g.centreNode(n[0], n[1], n[2])
			for q := 0; q < 4; q++ {
				tetras = append(tetras, [4]int{ci, ring[q], ring[(q+1)%4], ni})
			}
		}
	})
	return g.nodes, tetras, nil
}

func (g *bccGrid) foreach(f func(i, j, k int)) {
	for i := 0; i < g.div[0]; i++ {
		for j := 0; j < g.div[1]; j++ {
			for k := 0; k < g.div[2]; k++ {
				f(i, j, k)
			}
		}
	}
}

func (g *bccGrid) cellCentre(i, j, k int) r3.Vec {
	return r3.Add(g.min, r3.Scale(g.res, r3.Vec{X: float64(i) + 0.5, Y: float64(j) + 0.5, Z: float64(k) + 0.5}))
}

func (g *bccGrid) centreNode(i, j, k int) int {
	idx := i*g.div[1]*g.div[2] + j*g.div[2] + k
	if g.centre[idx] < 0 {
		g.centre[idx] = len(g.nodes)
		g.nodes = append(g.nodes, g.cellCentre(i, j, k))
	}
	return g.centre[idx]
}

// cornerNode returns the node at lattice corner (i,j,k), shared by up to
// eight cells.
func (g *bccGrid) cornerNode(i, j, k int) int {
	key := [3]int{i, j, k}
	if n, ok := g.corners[key]; ok {
		return n
	}
	n := len(g.nodes)
	g.corners[key] = n
	g.nodes = append(g.nodes, r3.Add(g.min, r3.Scale(g.res, r3.Vec{X: float64(i), Y: float64(j), Z: float64(k)})))
	return n
}

// faceRing returns the four corners of the face cell (i,j,k) shares with its
// minus neighbour along axis, in cyclic order.
func (g *bccGrid) faceRing(i, j, k, axis int) [4]int {
	u, v := (axis+1)%3, (axis+2)%3
	var ring [4]int
	for q, uv := range [4][2]int{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
		c := [3]int{i, j, k}
		c[u] += uv[0]
		c[v] += uv[1]
		ring[q] = g.cornerNode(c[0], c[1], c[2])
	}
	return ring
}
