// Package mesh implements the tetrahedral mesh of a deformable body.
//
// Elements live in flat arenas and refer to each other through integer
// handles. Only outer (surface) faces are stored. Every vertex keeps the list
// of tetrahedra incident to it so that lookups by vertex set visit a small
// neighbourhood instead of the whole mesh.
package mesh

import (
	"github.com/eigenbom/sds/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh owns vertices, edges, outer faces and tetrahedra.
// A Mesh is not safe for concurrent use.
type Mesh struct {
	vertices []Vertex
	edges    []Edge
	faces    []Face
	tetras   []Tetra

	nv, ne, nf, nt int

	edgeIndex map[edgeKey]EdgeID
	faceIndex map[faceKey]FaceID

	changed bool
	version uint64
}

// New returns an empty mesh.
func New() *Mesh {
	return &Mesh{
		edgeIndex: make(map[edgeKey]EdgeID),
		faceIndex: make(map[faceKey]FaceID),
	}
}

// Vertex returns the vertex with handle id or nil if it does not exist.
func (m *Mesh) Vertex(id VertexID) *Vertex {
	if id < 0 || int(id) >= len(m.vertices) || !m.vertices[id].alive {
		return nil
	}
	return &m.vertices[id]
}

// Edge returns the edge with handle id or nil if it does not exist.
func (m *Mesh) Edge(id EdgeID) *Edge {
	if id < 0 || int(id) >= len(m.edges) || !m.edges[id].alive {
		return nil
	}
	return &m.edges[id]
}

// Face returns the outer face with handle id or nil if it does not exist.
func (m *Mesh) Face(id FaceID) *Face {
	if id < 0 || int(id) >= len(m.faces) || !m.faces[id].alive {
		return nil
	}
	return &m.faces[id]
}

// Tetra returns the tetra with handle id or nil if it does not exist.
func (m *Mesh) Tetra(id TetraID) *Tetra {
	if id < 0 || int(id) >= len(m.tetras) || !m.tetras[id].alive {
		return nil
	}
	return &m.tetras[id]
}

func (m *Mesh) NumVertices() int { return m.nv }
func (m *Mesh) NumEdges() int    { return m.ne }
func (m *Mesh) NumFaces() int    { return m.nf }
func (m *Mesh) NumTetras() int   { return m.nt }

// Vertices returns the handles of all vertices in creation order.
func (m *Mesh) Vertices() []VertexID {
	ids := make([]VertexID, 0, m.nv)
	for i := range m.vertices {
		if m.vertices[i].alive {
			ids = append(ids, VertexID(i))
		}
	}
	return ids
}

// Edges returns the handles of all edges in creation order.
func (m *Mesh) Edges() []EdgeID {
	ids := make([]EdgeID, 0, m.ne)
	for i := range m.edges {
		if m.edges[i].alive {
			ids = append(ids, EdgeID(i))
		}
	}
	return ids
}

// OuterFaces returns the handles of all outer faces in creation order.
func (m *Mesh) OuterFaces() []FaceID {
	ids := make([]FaceID, 0, m.nf)
	for i := range m.faces {
		if m.faces[i].alive {
			ids = append(ids, FaceID(i))
		}
	}
	return ids
}

// Tetras returns the handles of all tetrahedra in creation order.
func (m *Mesh) Tetras() []TetraID {
	ids := make([]TetraID, 0, m.nt)
	for i := range m.tetras {
		if m.tetras[i].alive {
			ids = append(ids, TetraID(i))
		}
	}
	return ids
}

// TopologyChanged reports whether an element was added or removed since the
// last call to ClearTopologyChanged.
func (m *Mesh) TopologyChanged() bool { return m.changed }

// ClearTopologyChanged resets the flag returned by TopologyChanged.
func (m *Mesh) ClearTopologyChanged() { m.changed = false }

// Version is incremented on every structural mutation.
func (m *Mesh) Version() uint64 { return m.version }

func (m *Mesh) touch() {
	m.changed = true
	m.version++
}

// AddVertex adds an isolated vertex at x with mass.
func (m *Mesh) AddVertex(x r3.Vec, mass float64) VertexID {
	m.vertices = append(m.vertices, Vertex{X: x, Prev: x, M: mass, alive: true})
	m.nv++
	m.touch()
	return VertexID(len(m.vertices) - 1)
}

// RemoveVertex removes v from the vertex list. Edges, faces and tetras
// referring to v are left untouched.
func (m *Mesh) RemoveVertex(id VertexID) {
	v := m.Vertex(id)
	if v == nil {
		return
	}
	*v = Vertex{}
	m.nv--
	m.touch()
}

// AddEdge connects a and b. The vertices become neighbours of each other.
// If the edge already exists its handle is returned unchanged.
func (m *Mesh) AddEdge(a, b VertexID, rest float64) EdgeID {
	key := makeEdgeKey(a, b)
	if id, ok := m.edgeIndex[key]; ok {
		return id
	}
	m.edges = append(m.edges, Edge{V: [2]VertexID{a, b}, Rest: rest, RestMultiplier: 1, alive: true})
	id := EdgeID(len(m.edges) - 1)
	m.edgeIndex[key] = id
	va, vb := &m.vertices[a], &m.vertices[b]
	if !va.hasNeighbour(b) {
		va.neighbours = append(va.neighbours, b)
	}
	if !vb.hasNeighbour(a) {
		vb.neighbours = append(vb.neighbours, a)
	}
	m.ne++
	m.touch()
	return id
}

// DeleteEdge removes the edge and the neighbour relation between its vertices.
func (m *Mesh) DeleteEdge(id EdgeID) {
	e := m.Edge(id)
	if e == nil {
		return
	}
	a, b := e.V[0], e.V[1]
	delete(m.edgeIndex, makeEdgeKey(a, b))
	if v := m.Vertex(a); v != nil {
		v.neighbours = removeVertexID(v.neighbours, b)
	}
	if v := m.Vertex(b); v != nil {
		v.neighbours = removeVertexID(v.neighbours, a)
	}
	*e = Edge{}
	m.ne--
	m.touch()
}

// AddOuterFace adds the surface face (a,b,c) wound counter-clockwise from
// outside. Its vertices are flagged as surface vertices.
func (m *Mesh) AddOuterFace(a, b, c VertexID) FaceID {
	fv := [3]VertexID{a, b, c}
	m.faces = append(m.faces, Face{
		V:     fv,
		Rest:  d3.Area(m.vertices[a].X, m.vertices[b].X, m.vertices[c].X),
		Outer: true,
		alive: true,
	})
	id := FaceID(len(m.faces) - 1)
	m.faceIndex[makeFaceKey(fv)] = id
	for _, v := range fv {
		vert := &m.vertices[v]
		vert.faces = append(vert.faces, id)
		vert.surface = true
	}
	m.nf++
	m.touch()
	return id
}

// DeleteFace removes the outer face. Vertices left without outer faces lose
// their surface flag.
func (m *Mesh) DeleteFace(id FaceID) {
	f := m.Face(id)
	if f == nil {
		return
	}
	delete(m.faceIndex, makeFaceKey(f.V))
	for _, v := range f.V {
		if vert := m.Vertex(v); vert != nil {
			vert.faces = removeFaceID(vert.faces, id)
			vert.surface = len(vert.faces) > 0
		}
	}
	*f = Face{}
	m.nf--
	m.touch()
}

// AddTetra adds tetra (a,b,c,d) with no neighbours. Rest volume defaults to
// the current volume.
func (m *Mesh) AddTetra(a, b, c, d VertexID) TetraID {
	tv := [4]VertexID{a, b, c, d}
	m.tetras = append(m.tetras, Tetra{
		V:              tv,
		N:              [4]TetraID{NoTetra, NoTetra, NoTetra, NoTetra},
		RestMultiplier: 1,
		alive:          true,
	})
	id := TetraID(len(m.tetras) - 1)
	t := &m.tetras[id]
	t.Rest = m.volume(tv)
	t.box = m.tetraBox(tv)
	for _, v := range tv {
		vert := &m.vertices[v]
		vert.tetras = append(vert.tetras, id)
	}
	m.nt++
	m.touch()
	return id
}

// RemoveTetra removes t from the tetra list and from the vertex incidence
// lists. Neighbours pointing at t are reset to NoTetra; no outer face is
// created for them.
func (m *Mesh) RemoveTetra(id TetraID) {
	t := m.Tetra(id)
	if t == nil {
		return
	}
	for _, n := range t.N {
		if nt := m.Tetra(n); nt != nil {
			if i := nt.NeighbourIndex(id); i >= 0 {
				nt.N[i] = NoTetra
			}
		}
	}
	m.detachTetra(id)
}

// detachTetra removes t without touching neighbour links.
func (m *Mesh) detachTetra(id TetraID) {
	t := &m.tetras[id]
	for _, v := range t.V {
		if vert := m.Vertex(v); vert != nil {
			vert.tetras = removeTetraID(vert.tetras, id)
		}
	}
	*t = Tetra{}
	m.nt--
	m.touch()
}

// SetNeighbour sets t.N[i] = n.
func (m *Mesh) SetNeighbour(t TetraID, i int, n TetraID) {
	m.tetras[t].N[i] = n
}

func removeVertexID(s []VertexID, x VertexID) []VertexID {
	for i, v := range s {
		if v == x {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func removeFaceID(s []FaceID, x FaceID) []FaceID {
	for i, v := range s {
		if v == x {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func removeTetraID(s []TetraID, x TetraID) []TetraID {
	for i, v := range s {
		if v == x {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
