package mesh

import (
	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Handles address elements in a Mesh. They stay valid until the element is
// removed; removed handles are never reused by the same Mesh.
type (
	VertexID int
	EdgeID   int
	FaceID   int
	TetraID  int
)

// Null handles.
const (
	NoVertex VertexID = -1
	NoEdge   EdgeID   = -1
	NoFace   FaceID   = -1
	NoTetra  TetraID  = -1
)

// Vertex is a mesh node. Position, velocity state, force and mass are owned by
// the caller (integrator); topology fields are maintained by the Mesh.
type Vertex struct {
	X    r3.Vec // Position.
	Prev r3.Vec // Position at the previous step.
	F    r3.Vec // Accumulated force.
	M    float64
	// Frozen vertices do not move and are ignored as penetrators.
	Frozen bool

	surface    bool
	alive      bool
	neighbours []VertexID
	faces      []FaceID
	tetras     []TetraID
}

// Surface returns true if the vertex belongs to at least one outer face.
func (v *Vertex) Surface() bool { return v.surface }

// Neighbours returns the vertices sharing an edge with v. The slice is owned
// by the mesh and must not be modified.
func (v *Vertex) Neighbours() []VertexID { return v.neighbours }

// Faces returns the outer faces incident to v. The slice is owned by the mesh.
func (v *Vertex) Faces() []FaceID { return v.faces }

// AddF accumulates a force on the vertex.
func (v *Vertex) AddF(f r3.Vec) { v.F = r3.Add(v.F, f) }

// R returns the radius of a sphere of unit density with the vertex mass.
func (v *Vertex) R() float64 { return sds.SphereRadius(v.M) }

func (v *Vertex) hasNeighbour(n VertexID) bool {
	for _, x := range v.neighbours {
		if x == n {
			return true
		}
	}
	return false
}

// Edge is a spring between two vertices.
type Edge struct {
	V [2]VertexID
	// Rest is the canonical rest length. The effective rest length is
	// Rest*RestMultiplier.
	Rest           float64
	RestMultiplier float64
	Spring         float64

	alive bool
}

// Other returns the endpoint of e that is not v.
func (e *Edge) Other(v VertexID) VertexID {
	if e.V[0] == v {
		return e.V[1]
	}
	return e.V[0]
}

// Face is an outer (surface) triangle wound counter-clockwise seen from
// outside the mesh.
type Face struct {
	V [3]VertexID
	// Rest is the rest area.
	Rest  float64
	Outer bool

	alive bool
}

// Index returns the position of v in f or -1.
func (f *Face) Index(v VertexID) int {
	for i, x := range f.V {
		if x == v {
			return i
		}
	}
	return -1
}

// Contains returns true if all argument vertices belong to f.
func (f *Face) Contains(vs ...VertexID) bool {
	for _, v := range vs {
		if f.Index(v) < 0 {
			return false
		}
	}
	return true
}

// Tetra is a tetrahedral element. N[i] is the tetra across the face opposite
// V[i], or NoTetra when that face lies on the mesh boundary.
type Tetra struct {
	V [4]VertexID
	N [4]TetraID
	// Rest is the canonical rest volume. The effective rest volume is
	// Rest*RestMultiplier.
	Rest           float64
	RestMultiplier float64
	Spring         float64
	Outer          bool
	Intersected    bool

	alive bool
	box   d3.Box
}

// opposite[i] lists the vertex indices of the face opposite vertex i wound
// counter-clockwise seen from outside a positively oriented tetra.
var opposite = [4][3]int{
	0: {1, 2, 3},
	1: {3, 2, 0},
	2: {0, 1, 3},
	3: {0, 2, 1},
}

// OppositeFace returns the indices of the face opposite vertex i, outward wound.
func OppositeFace(i int) [3]int { return opposite[i] }

// Index returns the position of v in t or -1.
func (t *Tetra) Index(v VertexID) int {
	for i, x := range t.V {
		if x == v {
			return i
		}
	}
	return -1
}

// Contains returns true if all argument vertices belong to t.
func (t *Tetra) Contains(vs ...VertexID) bool {
	for _, v := range vs {
		if t.Index(v) < 0 {
			return false
		}
	}
	return true
}

// NeighbourIndex returns i such that t.N[i] == n, or -1.
func (t *Tetra) NeighbourIndex(n TetraID) int {
	for i, x := range t.N {
		if x == n {
			return i
		}
	}
	return -1
}

// FaceVertices returns the vertices of the face opposite V[i], outward wound.
func (t *Tetra) FaceVertices(i int) [3]VertexID {
	return tetraFace(t.V, i)
}

// FaceIndex returns the index of the vertex opposite the face made of a, b
// and c, or -1 if t does not contain them.
func (t *Tetra) FaceIndex(a, b, c VertexID) int {
	ia, ib, ic := t.Index(a), t.Index(b), t.Index(c)
	if ia < 0 || ib < 0 || ic < 0 || ia == ib || ib == ic || ia == ic {
		return -1
	}
	return 6 - ia - ib - ic
}

// Box returns the bounding box computed at the last Mesh.UpdateBoxes call or
// when the tetra was created.
func (t *Tetra) Box() d3.Box { return t.box }

func tetraFace(v [4]VertexID, i int) [3]VertexID {
	o := opposite[i]
	return [3]VertexID{v[o[0]], v[o[1]], v[o[2]]}
}

type edgeKey [2]VertexID

func makeEdgeKey(a, b VertexID) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

type faceKey [3]VertexID

func makeFaceKey(f [3]VertexID) faceKey {
	a, b, c := f[0], f[1], f[2]
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return faceKey{a, b, c}
}

// sameWinding returns true if f and g list the same vertices in the same
// cyclic order.
func sameWinding(f, g [3]VertexID) bool {
	for s := 0; s < 3; s++ {
		if f[0] == g[s] && f[1] == g[(s+1)%3] && f[2] == g[(s+2)%3] {
			return true
		}
	}
	return false
}

func reversed(f [3]VertexID) [3]VertexID { return [3]VertexID{f[0], f[2], f[1]} }
