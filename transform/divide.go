package transform

import (
	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/internal/d3"
	"github.com/eigenbom/sds/mesh"
	"github.com/eigenbom/sds/organism"
	"gonum.org/v1/gonum/spatial/r3"
)

// DivideTetra divides c into a daughter at the centre of mass of t, which
// must contain c. t is split into four tetrahedra sharing the daughter.
func (e *Engine) DivideTetra(c *organism.Cell, t mesh.TetraID) (Outcome, error) {
	e.begin("DivideTetra")
	out, err := e.divideTetra(c, t)
	return out, e.end(err)
}

func (e *Engine) divideTetra(c *organism.Cell, t mesh.TetraID) (Outcome, error) {
	if err := e.cellOf(c); err != nil {
		return Outcome{}, err
	}
	tet := e.m.Tetra(t)
	if tet == nil {
		return Outcome{}, e.errorf(sds.KindNotFound, "tetra %d", t)
	}
	if tet.Index(c.Vertex()) < 0 {
		return Outcome{}, e.errorf(sds.KindPrecondition, "cell %d not in tetra %d", c.Vertex(), t)
	}
	e.prop("tetra", int(t))
	m0 := c.M()
	c.SetM(m0 / 2) // The centre of mass is taken with the halved parent.
	x := e.m.TetraCenterOfMass(t)
	tv := tet.V
	return e.split("DivideTetra", c, m0, x, []mesh.TetraID{t}, func(d mesh.VertexID) [][4]mesh.VertexID {
		add := make([][4]mesh.VertexID, 4)
		for i := range add {
			add[i] = tv
			add[i][i] = d
		}
		return add
	})
}

// DivideFace divides surface cell c into a daughter at the centre of mass of
// the outer face f. The supporting tetra is split into three and f into
// three outer faces.
func (e *Engine) DivideFace(c *organism.Cell, f mesh.FaceID) (Outcome, error) {
	e.begin("DivideFace")
	out, err := e.divideFace(c, f)
	return out, e.end(err)
}

func (e *Engine) divideFace(c *organism.Cell, f mesh.FaceID) (Outcome, error) {
	if err := e.cellOf(c); err != nil {
		return Outcome{}, err
	}
	face := e.m.Face(f)
	if face == nil {
		return Outcome{}, e.errorf(sds.KindNotFound, "face %d", f)
	}
	if face.Index(c.Vertex()) < 0 {
		return Outcome{}, e.errorf(sds.KindPrecondition, "cell %d not in face %d", c.Vertex(), f)
	}
	fv := face.V
	t := e.m.FindTetra(fv[0], fv[1], fv[2])
	if t == mesh.NoTetra {
		return Outcome{}, e.errorf(sds.KindNotFound, "no tetra on face %d", f)
	}
	e.prop("face", int(f))
	e.prop("tetra", int(t))
	x := e.m.FaceCenterOfMass(f)
	tv := e.m.Tetra(t).V
	return e.split("DivideFace", c, c.M(), x, []mesh.TetraID{t}, func(d mesh.VertexID) [][4]mesh.VertexID {
		add := make([][4]mesh.VertexID, 0, 3)
		for i, v := range tv {
			if face.Index(v) < 0 {
				continue
			}
			nt := tv
			nt[i] = d
			add = append(add, nt)
		}
		return add
	})
}

// DivideAway divides surface cell c into a daughter placed outside the mesh
// above the outer face f, adding one tetra on f.
func (e *Engine) DivideAway(c *organism.Cell, f mesh.FaceID) (Outcome, error) {
	e.begin("DivideAway")
	out, err := e.divideAway(c, f)
	return out, e.end(err)
}

func (e *Engine) divideAway(c *organism.Cell, f mesh.FaceID) (Outcome, error) {
	if err := e.cellOf(c); err != nil {
		return Outcome{}, err
	}
	face := e.m.Face(f)
	if face == nil {
		return Outcome{}, e.errorf(sds.KindNotFound, "face %d", f)
	}
	if face.Index(c.Vertex()) < 0 {
		return Outcome{}, e.errorf(sds.KindPrecondition, "cell %d not in face %d", c.Vertex(), f)
	}
	e.prop("face", int(f))
	m0 := c.M()
	r := sds.SphereRadius(m0 / 2)
	x := r3.Add(e.m.FaceCentroid(f), r3.Scale(r, e.m.FaceNormal(f)))
	fv := face.V
	return e.split("DivideAway", c, m0, x, nil, func(d mesh.VertexID) [][4]mesh.VertexID {
		return [][4]mesh.VertexID{{d, fv[2], fv[1], fv[0]}}
	})
}

// DivideInternalEdge divides c into a daughter at the midpoint of the
// interior edge id. Every tetra around the edge is split in two.
func (e *Engine) DivideInternalEdge(c *organism.Cell, id mesh.EdgeID) (Outcome, error) {
	e.begin("DivideInternalEdge")
	out, err := e.divideEdge(c, id, false)
	return out, e.end(err)
}

// DivideSurfaceEdge divides c into a daughter at the midpoint of the surface
// edge id. The two outer faces on the edge are split as well.
func (e *Engine) DivideSurfaceEdge(c *organism.Cell, id mesh.EdgeID) (Outcome, error) {
	e.begin("DivideSurfaceEdge")
	out, err := e.divideEdge(c, id, true)
	return out, e.end(err)
}

func (e *Engine) divideEdge(c *organism.Cell, id mesh.EdgeID, surface bool) (Outcome, error) {
	if err := e.cellOf(c); err != nil {
		return Outcome{}, err
	}
	edge := e.m.Edge(id)
	if edge == nil {
		return Outcome{}, e.errorf(sds.KindNotFound, "edge %d", id)
	}
	a, b := edge.V[0], edge.V[1]
	if a != c.Vertex() && b != c.Vertex() {
		return Outcome{}, e.errorf(sds.KindPrecondition, "cell %d not on edge %d", c.Vertex(), id)
	}
	if e.isSurfaceEdge(id) != surface {
		if surface {
			return Outcome{}, e.errorf(sds.KindPrecondition, "edge %d is interior", id)
		}
		return Outcome{}, e.errorf(sds.KindPrecondition, "edge %d is on the surface", id)
	}
	ring, closed := e.m.EdgeRing(a, b)
	if len(ring) == 0 {
		return Outcome{}, e.errorf(sds.KindNotFound, "no tetra on edge %d", id)
	}
	if closed == surface || len(ring) != len(e.m.TetrasWith(a, b)) {
		return Outcome{}, e.errorf(sds.KindInvariant, "broken ring around edge %d", id)
	}
	op := "DivideInternalEdge"
	if surface {
		op = "DivideSurfaceEdge"
	}
	e.prop("edge", int(id))
	e.prop("ring", len(ring))
	x := d3.Centroid(e.m.Vertex(a).X, e.m.Vertex(b).X)
	return e.split(op, c, c.M(), x, ring, func(d mesh.VertexID) [][4]mesh.VertexID {
		add := make([][4]mesh.VertexID, 0, 2*len(ring))
		for _, t := range ring {
			tet := e.m.Tetra(t)
			ta, tb := tet.V, tet.V
			ta[tet.Index(b)] = d
			tb[tet.Index(a)] = d
			add = append(add, ta, tb)
		}
		return add
	})
}
