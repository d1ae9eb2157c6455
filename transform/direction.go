package transform

import (
	"math"

	"github.com/eigenbom/sds/internal/d3"
	"github.com/eigenbom/sds/mesh"
	"github.com/eigenbom/sds/organism"
	"gonum.org/v1/gonum/spatial/r3"
)

// TetraInDirection returns the tetra incident to c whose face opposite c is
// pierced by the ray from c along dir, or NoTetra.
func (e *Engine) TetraInDirection(c *organism.Cell, dir r3.Vec) mesh.TetraID {
	v := c.Vertex()
	x := c.X()
	for _, t := range e.m.Incident(v) {
		tet := e.m.Tetra(t)
		if r3.Dot(r3.Sub(e.m.TetraCenter(t), x), dir) <= 0 {
			continue
		}
		f := tet.FaceVertices(tet.Index(v))
		a, b, cc := e.m.Vertex(f[0]).X, e.m.Vertex(f[1]).X, e.m.Vertex(f[2]).X
		if s, ok := d3.LineTriangle(x, dir, a, b, cc); ok && s >= 0 {
			return t
		}
	}
	return mesh.NoTetra
}

// FaceInDirection returns the outer face incident to c whose corner at c
// contains dir projected onto the face plane, or NoFace.
func (e *Engine) FaceInDirection(c *organism.Cell, dir r3.Vec) mesh.FaceID {
	v := c.Vertex()
	vert := e.m.Vertex(v)
	for _, f := range vert.Faces() {
		face := e.m.Face(f)
		n := e.m.FaceNormal(f)
		proj := r3.Sub(dir, r3.Scale(r3.Dot(dir, n), n))
		j := face.Index(v)
		v0 := vert.X
		v1 := e.m.Vertex(face.V[(j+1)%3]).X
		v2 := e.m.Vertex(face.V[(j+2)%3]).X
		u, w, ok := d3.TriangleBarycentric(r3.Add(v0, proj), v0, v1, v2)
		if ok && u >= 0 && w >= 0 {
			return f
		}
	}
	return mesh.NoFace
}

// nearestNeighbour returns the neighbour of c with the smallest angle
// between dir and the edge to it. With surface set only surface edges are
// considered.
func (e *Engine) nearestNeighbour(c *organism.Cell, dir r3.Vec, surface bool) (n mesh.VertexID, angle float64) {
	n, angle = mesh.NoVertex, math.Inf(1)
	v := c.Vertex()
	x := c.X()
	for _, u := range e.m.Vertex(v).Neighbours() {
		if surface && !e.isSurfaceEdge(e.m.FindEdge(v, u)) {
			continue
		}
		a := d3.Angle(r3.Sub(e.m.Vertex(u).X, x), dir)
		if a < angle {
			n, angle = u, a
		}
	}
	return n, angle
}

func (e *Engine) isSurfaceEdge(id mesh.EdgeID) bool {
	f0, _ := e.m.AdjacentFaces(id)
	return f0 != mesh.NoFace
}
