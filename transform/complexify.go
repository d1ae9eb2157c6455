package transform

import (
	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/internal/d3"
	"github.com/eigenbom/sds/mesh"
	"github.com/eigenbom/sds/organism"
	"gonum.org/v1/gonum/spatial/r3"
)

// ComplexifyOutcome is the result of Complexify.
type ComplexifyOutcome struct {
	NewCells []*organism.Cell
	Added    []mesh.TetraID
	Flips    int
}

// Complexify refines the region of tetrahedra tetras occupied by cells.
// A new surface cell is placed at the centroid of every outer face of the
// region and a new interior cell at the centroid of every tetra, then the
// region is re-tetrahedralized within its hull. If tetras is empty the
// region is every tetra whose vertices all belong to cells.
//
// Afterwards every cell of the region gets half the mean length of its edges
// as radius and rest lengths and volumes are reset so the current shape is
// the rest shape.
func (e *Engine) Complexify(cells []*organism.Cell, tetras []mesh.TetraID) (ComplexifyOutcome, error) {
	e.begin("Complexify")
	out, err := e.complexify(cells, tetras)
	return out, e.end(err)
}

func (e *Engine) complexify(cells []*organism.Cell, tetras []mesh.TetraID) (ComplexifyOutcome, error) {
	if len(cells) == 0 {
		return ComplexifyOutcome{}, e.errorf(sds.KindPrecondition, "no cells")
	}
	inC := make(map[mesh.VertexID]bool, len(cells))
	for _, c := range cells {
		if err := e.cellOf(c); err != nil {
			return ComplexifyOutcome{}, err
		}
		inC[c.Vertex()] = true
	}
	if len(tetras) == 0 {
		tetras = e.occupied(cells, inC)
	}
	if len(tetras) == 0 {
		return ComplexifyOutcome{}, e.errorf(sds.KindNotFound, "cells occupy no tetrahedra")
	}
	seen := make(map[mesh.TetraID]bool, len(tetras))
	for _, t := range tetras {
		tet := e.m.Tetra(t)
		if tet == nil {
			return ComplexifyOutcome{}, e.errorf(sds.KindNotFound, "tetra %d", t)
		}
		if seen[t] {
			return ComplexifyOutcome{}, e.errorf(sds.KindPrecondition, "tetra %d listed twice", t)
		}
		seen[t] = true
	}
	for v := range inC {
		found := false
		for _, t := range e.m.Incident(v) {
			if seen[t] {
				found = true
				break
			}
		}
		if !found {
			return ComplexifyOutcome{}, e.errorf(sds.KindPrecondition, "cell %d not in region", v)
		}
	}

	l, err := e.localComplex(tetras)
	if err != nil {
		return ComplexifyOutcome{}, err
	}
	var inserted []int
	var pos []r3.Vec
	var surface int
	for _, h := range e.hull(tetras) {
		t, i := mesh.TetraID(h[0]), h[1]
		tet := e.m.Tetra(t)
		if tet.N[i] != mesh.NoTetra {
			continue
		}
		fv := tet.FaceVertices(i)
		p := d3.Centroid(e.m.Vertex(fv[0]).X, e.m.Vertex(fv[1]).X, e.m.Vertex(fv[2]).X)
		pi, err := l.InsertOnBoundary(p, l.face(fv))
		if err != nil {
			return ComplexifyOutcome{}, e.wrap(sds.KindTetrahedralize, err)
		}
		inserted = append(inserted, pi)
		pos = append(pos, p)
		surface++
	}
	for _, t := range tetras {
		p := e.m.TetraCenter(t)
		pi, err := l.Insert(p)
		if err != nil {
			return ComplexifyOutcome{}, e.wrap(sds.KindTetrahedralize, err)
		}
		inserted = append(inserted, pi)
		pos = append(pos, p)
	}
	flips := e.delaunay(l)

	// New cells start massless; radii follow from the refined geometry.
	vs := make([]mesh.VertexID, len(inserted))
	for k, pi := range inserted {
		vs[k] = e.m.AddVertex(pos[k], 0)
		l.bind(pi, vs[k])
	}
	p, err := e.m.Replace(tetras, l.result())
	if err != nil {
		for _, v := range vs {
			e.m.RemoveVertex(v)
		}
		return ComplexifyOutcome{}, e.wrap(sds.KindTetrahedralize, err)
	}

	out := ComplexifyOutcome{Added: p.Added, Flips: flips}
	for _, v := range vs {
		out.NewCells = append(out.NewCells, e.o.AddCell(v))
	}
	affected := p.Vertices(e.m)
	for _, v := range affected {
		if c := e.o.Cell(v); c != nil {
			c.SetR(e.o.MeanHalfEdge(c))
		}
	}
	e.o.UpdateRest(affected, true)

	e.prop("tetras", len(tetras))
	e.prop("surface_cells", surface)
	e.prop("new_cells", len(vs))
	e.prop("added", len(p.Added))
	return out, nil
}

// occupied returns the tetrahedra whose vertices all belong to cells.
func (e *Engine) occupied(cells []*organism.Cell, inC map[mesh.VertexID]bool) []mesh.TetraID {
	var ts []mesh.TetraID
	seen := make(map[mesh.TetraID]bool)
	for _, c := range cells {
		for _, t := range e.m.Incident(c.Vertex()) {
			if seen[t] {
				continue
			}
			seen[t] = true
			tv := e.m.Tetra(t).V
			if inC[tv[0]] && inC[tv[1]] && inC[tv[2]] && inC[tv[3]] {
				ts = append(ts, t)
			}
		}
	}
	return ts
}
