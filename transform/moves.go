package transform

import (
	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/internal/d3"
	"github.com/eigenbom/sds/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// MoveVertexThroughOppositeFace moves vertex V[vi] of tetra t to the other
// side of its opposite face:
//   - across an interior face the two tetrahedra are flipped into three;
//   - across an outer face of an interior vertex, t is removed from the mesh;
//   - across an outer face of a surface vertex, a copy of the vertex is
//     placed beyond the face and t becomes three tetrahedra around the edge
//     joining the two.
func (e *Engine) MoveVertexThroughOppositeFace(vi int, t mesh.TetraID) error {
	e.begin("MoveVertexThroughOppositeFace")
	return e.end(e.moveVertex(vi, t))
}

func (e *Engine) moveVertex(vi int, t mesh.TetraID) error {
	tet := e.m.Tetra(t)
	if tet == nil {
		return e.errorf(sds.KindNotFound, "tetra %d", t)
	}
	if vi < 0 || vi > 3 {
		return e.errorf(sds.KindPrecondition, "vertex index %d", vi)
	}
	e.prop("tetra", int(t))
	e.prop("vertex", int(tet.V[vi]))
	fv := tet.FaceVertices(vi)
	if n := tet.N[vi]; n != mesh.NoTetra {
		e.prop("move", "flip23")
		l, err := e.localComplex([]mesh.TetraID{t, n})
		if err != nil {
			return err
		}
		if err := l.Flip23(l.face(fv)); err != nil {
			return e.wrap(sds.KindDegenerate, err)
		}
		return e.commit([]mesh.TetraID{t, n}, l.result())
	}

	v := tet.V[vi]
	if !e.m.Vertex(v).Surface() {
		e.prop("move", "peel")
		return e.commit([]mesh.TetraID{t}, nil)
	}

	e.prop("move", "extrude")
	r := e.m.Vertex(v).R()
	if c := e.o.Cell(v); c != nil {
		r = c.R()
	}
	fc := d3.Centroid(e.m.Vertex(fv[0]).X, e.m.Vertex(fv[1]).X, e.m.Vertex(fv[2]).X)
	dir := r3.Sub(fc, e.m.Vertex(v).X)
	if r3.Norm2(dir) == 0 {
		return e.errorf(sds.KindDegenerate, "vertex %d lies on its opposite face", v)
	}
	x := r3.Add(fc, r3.Scale(r/r3.Norm(dir), dir))
	tv := tet.V
	nv := e.m.AddVertex(x, sds.SphereVolume(r))
	add := make([][4]mesh.VertexID, 0, 3)
	for i := range tv {
		if i == vi {
			continue
		}
		nt := tv
		nt[i] = nv
		add = append(add, nt)
	}
	if err := e.commit([]mesh.TetraID{t}, add); err != nil {
		e.m.RemoveVertex(nv)
		return err
	}
	c := e.o.AddCell(nv)
	e.o.UpdateRest([]mesh.VertexID{nv}, false)
	e.prop("cell", int(c.Vertex()))
	return nil
}

// MoveEdgeThroughEdge removes the interior edge of t joining the two vertices
// other than V[ea] and V[eb], re-tetrahedralizing the ring of tetrahedra
// around it so that edge ea-eb lies inside the ring.
func (e *Engine) MoveEdgeThroughEdge(ea, eb int, t mesh.TetraID) error {
	e.begin("MoveEdgeThroughEdge")
	return e.end(e.moveEdge(ea, eb, t))
}

func (e *Engine) moveEdge(ea, eb int, t mesh.TetraID) error {
	tet := e.m.Tetra(t)
	if tet == nil {
		return e.errorf(sds.KindNotFound, "tetra %d", t)
	}
	if ea < 0 || ea > 3 || eb < 0 || eb > 3 || ea == eb {
		return e.errorf(sds.KindPrecondition, "edge indices %d %d", ea, eb)
	}
	var pq []mesh.VertexID
	for i, v := range tet.V {
		if i != ea && i != eb {
			pq = append(pq, v)
		}
	}
	p, q := pq[0], pq[1]
	e.prop("tetra", int(t))
	e.prop("edge", [2]int{int(p), int(q)})
	ring, closed := e.m.EdgeRing(p, q)
	if !closed {
		return e.errorf(sds.KindPrecondition, "edge %d-%d is on the surface", p, q)
	}
	e.prop("ring", len(ring))
	l, err := e.localComplex(ring)
	if err != nil {
		return err
	}
	if err := l.RemoveEdge(l.index[p], l.index[q]); err != nil {
		return e.wrap(sds.KindTetrahedralize, err)
	}
	return e.commit(ring, l.result())
}

// commit replaces remove by add and recomputes rest values around the patch.
func (e *Engine) commit(remove []mesh.TetraID, add [][4]mesh.VertexID) error {
	p, err := e.m.Replace(remove, add)
	if err != nil {
		return e.wrap(sds.KindTetrahedralize, err)
	}
	e.o.UpdateRest(p.Vertices(e.m), false)
	e.prop("removed", len(p.Removed))
	e.prop("added", len(p.Added))
	return nil
}
