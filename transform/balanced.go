package transform

import (
	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/mesh"
	"github.com/eigenbom/sds/organism"
	"gonum.org/v1/gonum/spatial/r3"
)

// Divide divides c in direction dir. It is DivideBalanced.
func (e *Engine) Divide(c *organism.Cell, dir r3.Vec) (Outcome, error) {
	e.begin("Divide")
	out, err := e.divideBalanced(c, dir)
	return out, e.end(err)
}

// DivideBalanced divides c in direction dir choosing the operator from the
// local configuration:
//   - a surface cell splits the surface edge nearest to dir if it is within
//     the surface angle threshold, else the outer face lying in dir;
//   - otherwise the edge nearest to dir is split if it is within the
//     internal angle threshold;
//   - otherwise the daughter is placed at the centre of the incident tetra
//     lying in dir and the one-ring of c is re-tetrahedralized.
func (e *Engine) DivideBalanced(c *organism.Cell, dir r3.Vec) (Outcome, error) {
	e.begin("DivideBalanced")
	out, err := e.divideBalanced(c, dir)
	return out, e.end(err)
}

func (e *Engine) divideBalanced(c *organism.Cell, dir r3.Vec) (Outcome, error) {
	if err := e.cellOf(c); err != nil {
		return Outcome{}, err
	}
	if r3.Norm2(dir) == 0 {
		return Outcome{}, e.errorf(sds.KindPrecondition, "zero direction")
	}
	if c.IsBoundary() {
		if out, ok, err := e.divideOnSurface(c, dir); ok {
			return out, err
		}
	}
	if out, ok, err := e.divideNearEdge(c, dir); ok {
		return out, err
	}
	return e.divideStar(c, dir)
}

// divideOnSurface tries the surface edge and face divisions. ok is false if
// neither applies.
func (e *Engine) divideOnSurface(c *organism.Cell, dir r3.Vec) (out Outcome, ok bool, err error) {
	if n, angle := e.nearestNeighbour(c, dir, true); n != mesh.NoVertex && angle < e.surfaceAngle {
		e.prop("angle", angle)
		out, err = e.divideEdge(c, e.m.FindEdge(c.Vertex(), n), true)
		return out, true, err
	}
	if f := e.FaceInDirection(c, dir); f != mesh.NoFace {
		out, err = e.divideFace(c, f)
		return out, true, err
	}
	return Outcome{}, false, nil
}

// divideNearEdge splits the edge nearest to dir if it is within the
// internal angle threshold.
func (e *Engine) divideNearEdge(c *organism.Cell, dir r3.Vec) (out Outcome, ok bool, err error) {
	n, angle := e.nearestNeighbour(c, dir, false)
	if n == mesh.NoVertex || angle >= e.internalAngle {
		return Outcome{}, false, nil
	}
	e.prop("angle", angle)
	id := e.m.FindEdge(c.Vertex(), n)
	out, err = e.divideEdge(c, id, e.isSurfaceEdge(id))
	return out, true, err
}

// divideStar inserts a daughter at the centre of the incident tetra lying in
// dir and re-tetrahedralizes the tetrahedra around c.
func (e *Engine) divideStar(c *organism.Cell, dir r3.Vec) (Outcome, error) {
	star := e.m.Incident(c.Vertex())
	if len(star) == 0 {
		return Outcome{}, e.errorf(sds.KindNotFound, "cell %d has no tetrahedra", c.Vertex())
	}
	t := e.TetraInDirection(c, dir)
	if t == mesh.NoTetra {
		t = star[0]
	}
	e.prop("tetra", int(t))
	e.prop("star", len(star))
	x := e.m.TetraCenter(t)
	l, err := e.localComplex(star)
	if err != nil {
		return Outcome{}, err
	}
	pi, err := l.Insert(x)
	if err != nil {
		return Outcome{}, e.wrap(sds.KindTetrahedralize, err)
	}
	e.delaunay(l)
	return e.split("DivideBalanced", c, c.M(), x, star, func(d mesh.VertexID) [][4]mesh.VertexID {
		l.bind(pi, d)
		return l.result()
	})
}

// DivideSimple divides c in direction dir without re-tetrahedralizing:
// an edge within the angle threshold is split, else the outer face in dir for
// a surface cell, else the incident tetra in dir.
func (e *Engine) DivideSimple(c *organism.Cell, dir r3.Vec) (Outcome, error) {
	e.begin("DivideSimple")
	out, err := e.divideSimple(c, dir)
	return out, e.end(err)
}

func (e *Engine) divideSimple(c *organism.Cell, dir r3.Vec) (Outcome, error) {
	if err := e.cellOf(c); err != nil {
		return Outcome{}, err
	}
	if c.IsBoundary() {
		if out, ok, err := e.divideOnSurface(c, dir); ok {
			return out, err
		}
	}
	if out, ok, err := e.divideNearEdge(c, dir); ok {
		return out, err
	}
	t := e.TetraInDirection(c, dir)
	if t == mesh.NoTetra {
		ts := e.m.Incident(c.Vertex())
		if len(ts) == 0 {
			return Outcome{}, e.errorf(sds.KindNotFound, "cell %d has no tetrahedra", c.Vertex())
		}
		t = ts[0]
	}
	return e.divideTetra(c, t)
}

// DivideInternal is DivideBalanced restricted to interior cells.
func (e *Engine) DivideInternal(c *organism.Cell, dir r3.Vec) (Outcome, error) {
	e.begin("DivideInternal")
	out, err := e.divideInternal(c, dir)
	return out, e.end(err)
}

func (e *Engine) divideInternal(c *organism.Cell, dir r3.Vec) (Outcome, error) {
	if err := e.cellOf(c); err != nil {
		return Outcome{}, err
	}
	if c.IsBoundary() {
		return Outcome{}, e.errorf(sds.KindPrecondition, "cell %d is on the surface", c.Vertex())
	}
	if r3.Norm2(dir) == 0 {
		return Outcome{}, e.errorf(sds.KindPrecondition, "zero direction")
	}
	if out, ok, err := e.divideNearEdge(c, dir); ok {
		return out, err
	}
	return e.divideStar(c, dir)
}

// DivideAlong divides surface cell c along the surface in direction dir,
// splitting a surface edge or an outer face.
func (e *Engine) DivideAlong(c *organism.Cell, dir r3.Vec) (Outcome, error) {
	e.begin("DivideAlong")
	out, err := e.divideAlong(c, dir)
	return out, e.end(err)
}

func (e *Engine) divideAlong(c *organism.Cell, dir r3.Vec) (Outcome, error) {
	if err := e.cellOf(c); err != nil {
		return Outcome{}, err
	}
	if !c.IsBoundary() {
		return Outcome{}, e.errorf(sds.KindPrecondition, "cell %d is interior", c.Vertex())
	}
	out, ok, err := e.divideOnSurface(c, dir)
	if !ok {
		return Outcome{}, e.errorf(sds.KindNotFound, "no surface edge or face in direction %v", dir)
	}
	return out, err
}
