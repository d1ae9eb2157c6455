package mesh

import (
	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// FromTetras builds a mesh from node positions and tetrahedra given as node
// indices. Negatively oriented tetrahedra are flipped by swapping their last
// two nodes. Edges get their current length as rest length and vertices are
// massless; callers owning cells assign radii afterwards.
//
// Neighbour links are derived from shared faces and every face bounding a
// single tetra becomes an outer face.
func FromTetras(points []r3.Vec, tetras [][4]int) (*Mesh, error) {
	const op = "FromTetras"
	m := New()
	for _, p := range points {
		m.AddVertex(p, 0)
	}
	type owner struct {
		t TetraID
		i int
	}
	shared := make(map[faceKey][]owner, 2*len(tetras))
	for n, tet := range tetras {
		var tv [4]VertexID
		for i, idx := range tet {
			if idx < 0 || idx >= len(points) {
				return nil, sds.Errorf(sds.KindNotFound, op, "tetra %d: node %d out of range", n, idx)
			}
			tv[i] = VertexID(idx)
		}
		a, b, c, d := m.pos(tv)
		o := d3.Orient(a, b, c, d)
		switch {
		case o == 0:
			return nil, sds.Errorf(sds.KindDegenerate, op, "tetra %d %v is flat", n, tet)
		case o < 0:
			tv[2], tv[3] = tv[3], tv[2]
		}
		id := m.AddTetra(tv[0], tv[1], tv[2], tv[3])
		for i := 0; i < 4; i++ {
			k := makeFaceKey(tetraFace(tv, i))
			shared[k] = append(shared[k], owner{id, i})
			if len(shared[k]) > 2 {
				return nil, sds.Errorf(sds.KindInvariant, op, "face %v shared by more than two tetrahedra", k)
			}
		}
		for i := 0; i < 3; i++ {
			for j := i + 1; j < 4; j++ {
				va, vb := tv[i], tv[j]
				m.AddEdge(va, vb, r3.Norm(r3.Sub(m.vertices[vb].X, m.vertices[va].X)))
			}
		}
	}
	// Walk tetrahedra in creation order so outer face handles are stable.
	for _, t := range m.Tetras() {
		for i := 0; i < 4; i++ {
			tet := &m.tetras[t]
			fv := tet.FaceVertices(i)
			owners := shared[makeFaceKey(fv)]
			if len(owners) == 1 {
				m.AddOuterFace(fv[0], fv[1], fv[2])
				continue
			}
			other := owners[0]
			if other.t == t {
				other = owners[1]
			}
			if !sameWinding(m.tetras[other.t].FaceVertices(other.i), reversed(fv)) {
				return nil, sds.Errorf(sds.KindInvariant, op, "tetrahedra %d and %d overlap", t, other.t)
			}
			tet.N[i] = other.t
		}
	}
	m.ClearTopologyChanged()
	return m, nil
}
