package mesh

import (
	"github.com/eigenbom/sds"
	"gonum.org/v1/gonum/spatial/r3"
)

// Snapshot is a flat copy of a mesh with contiguous indices. Element
// references are indices into the snapshot slices, -1 for none.
type Snapshot struct {
	Vertices []VertexState `json:"vertices"`
	Edges    []EdgeState   `json:"edges"`
	Faces    []FaceState   `json:"faces"`
	Tetras   []TetraState  `json:"tetras"`
}

type VertexState struct {
	X      r3.Vec  `json:"x"`
	Prev   r3.Vec  `json:"prev"`
	M      float64 `json:"m"`
	Frozen bool    `json:"frozen,omitempty"`
}

type EdgeState struct {
	V              [2]int  `json:"v"`
	Rest           float64 `json:"rest"`
	RestMultiplier float64 `json:"rest_multiplier"`
	Spring         float64 `json:"spring,omitempty"`
}

type FaceState struct {
	V    [3]int  `json:"v"`
	Rest float64 `json:"rest"`
}

type TetraState struct {
	V              [4]int  `json:"v"`
	N              [4]int  `json:"n"`
	Rest           float64 `json:"rest"`
	RestMultiplier float64 `json:"rest_multiplier"`
	Spring         float64 `json:"spring,omitempty"`
}

// Export copies the mesh into a Snapshot. ids maps snapshot vertex indices
// back to the handles of m; it is only meaningful until m is next mutated.
func (m *Mesh) Export() (s Snapshot, ids []VertexID) {
	ids = m.Vertices()
	vidx := make(map[VertexID]int, len(ids))
	for i, v := range ids {
		vidx[v] = i
		vert := &m.vertices[v]
		s.Vertices = append(s.Vertices, VertexState{X: vert.X, Prev: vert.Prev, M: vert.M, Frozen: vert.Frozen})
	}
	for _, e := range m.Edges() {
		edge := &m.edges[e]
		s.Edges = append(s.Edges, EdgeState{
			V:              [2]int{vidx[edge.V[0]], vidx[edge.V[1]]},
			Rest:           edge.Rest,
			RestMultiplier: edge.RestMultiplier,
			Spring:         edge.Spring,
		})
	}
	for _, f := range m.OuterFaces() {
		face := &m.faces[f]
		s.Faces = append(s.Faces, FaceState{
			V:    [3]int{vidx[face.V[0]], vidx[face.V[1]], vidx[face.V[2]]},
			Rest: face.Rest,
		})
	}
	tets := m.Tetras()
	tidx := make(map[TetraID]int, len(tets))
	for i, t := range tets {
		tidx[t] = i
	}
	for _, t := range tets {
		tet := &m.tetras[t]
		ts := TetraState{Rest: tet.Rest, RestMultiplier: tet.RestMultiplier, Spring: tet.Spring}
		for i := 0; i < 4; i++ {
			ts.V[i] = vidx[tet.V[i]]
			ts.N[i] = -1
			if tet.N[i] != NoTetra {
				ts.N[i] = tidx[tet.N[i]]
			}
		}
		s.Tetras = append(s.Tetras, ts)
	}
	return s, ids
}

// FromSnapshot rebuilds a mesh from s. Vertex i of s gets handle VertexID(i),
// and likewise for the other elements. The result is checked with Check.
func FromSnapshot(s Snapshot) (*Mesh, error) {
	const op = "FromSnapshot"
	m := New()
	nv := len(s.Vertices)
	inRange := func(idx ...int) bool {
		for _, i := range idx {
			if i < 0 || i >= nv {
				return false
			}
		}
		return true
	}
	for _, v := range s.Vertices {
		id := m.AddVertex(v.X, v.M)
		m.vertices[id].Prev = v.Prev
		m.vertices[id].Frozen = v.Frozen
	}
	for i, e := range s.Edges {
		if !inRange(e.V[0], e.V[1]) || e.V[0] == e.V[1] {
			return nil, sds.Errorf(sds.KindNotFound, op, "edge %d: bad vertices %v", i, e.V)
		}
		id := m.AddEdge(VertexID(e.V[0]), VertexID(e.V[1]), e.Rest)
		m.edges[id].RestMultiplier = e.RestMultiplier
		m.edges[id].Spring = e.Spring
	}
	for i, f := range s.Faces {
		if !inRange(f.V[0], f.V[1], f.V[2]) {
			return nil, sds.Errorf(sds.KindNotFound, op, "face %d: bad vertices %v", i, f.V)
		}
		id := m.AddOuterFace(VertexID(f.V[0]), VertexID(f.V[1]), VertexID(f.V[2]))
		m.faces[id].Rest = f.Rest
	}
	for i, t := range s.Tetras {
		if !inRange(t.V[0], t.V[1], t.V[2], t.V[3]) {
			return nil, sds.Errorf(sds.KindNotFound, op, "tetra %d: bad vertices %v", i, t.V)
		}
		id := m.AddTetra(VertexID(t.V[0]), VertexID(t.V[1]), VertexID(t.V[2]), VertexID(t.V[3]))
		tet := &m.tetras[id]
		tet.Rest = t.Rest
		tet.RestMultiplier = t.RestMultiplier
		tet.Spring = t.Spring
	}
	for i, t := range s.Tetras {
		for k, n := range t.N {
			if n < -1 || n >= len(s.Tetras) {
				return nil, sds.Errorf(sds.KindNotFound, op, "tetra %d: bad neighbour %d", i, n)
			}
			m.tetras[i].N[k] = TetraID(n)
		}
	}
	if err := m.Check(); err != nil {
		return nil, sds.Wrap(sds.KindInvariant, op, err)
	}
	m.ClearTopologyChanged()
	return m, nil
}

// Compact returns a copy of m with dense handles.
func (m *Mesh) Compact() (*Mesh, error) {
	s, _ := m.Export()
	return FromSnapshot(s)
}
