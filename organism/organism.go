// Package organism binds biological cells to the vertices of a tetrahedral
// mesh. A cell carries a radius and growth rate; its mass lives on the mesh
// vertex so that physics and topology see a single value.
package organism

import (
	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/mesh"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Cell is a biological unit wrapping one mesh vertex.
type Cell struct {
	// Drdt is the growth rate of the radius.
	Drdt float64
	// Contents is opaque per-cell state owned by a process model.
	Contents any

	v mesh.VertexID
	r float64
	o *Organism
}

// Vertex returns the handle of the cell's vertex.
func (c *Cell) Vertex() mesh.VertexID { return c.v }

// R returns the cell radius.
func (c *Cell) R() float64 { return c.r }

// M returns the cell mass.
func (c *Cell) M() float64 { return c.o.mesh.Vertex(c.v).M }

// X returns the cell position.
func (c *Cell) X() r3.Vec { return c.o.mesh.Vertex(c.v).X }

// IsBoundary returns true if the cell lies on the mesh surface.
func (c *Cell) IsBoundary() bool { return c.o.mesh.Vertex(c.v).Surface() }

// SetR sets the radius and the mass to the volume of a sphere of radius r.
func (c *Cell) SetR(r float64) {
	c.r = r
	c.o.mesh.Vertex(c.v).M = sds.SphereVolume(r)
}

// SetM sets the mass and the radius of the sphere with that volume.
func (c *Cell) SetM(m float64) {
	c.o.mesh.Vertex(c.v).M = m
	c.r = sds.SphereRadius(m)
}

// Organism is the set of cells living on a mesh.
type Organism struct {
	mesh  *mesh.Mesh
	cells map[mesh.VertexID]*Cell
}

// New returns an organism with a cell on every vertex of m. With radius > 0
// every cell gets that radius; otherwise each cell gets half the mean length
// of its edges. Rest lengths and volumes are then set from the radii with
// multipliers preserving the current shape.
func New(m *mesh.Mesh, radius float64) *Organism {
	o := &Organism{mesh: m, cells: make(map[mesh.VertexID]*Cell, m.NumVertices())}
	vs := m.Vertices()
	for _, v := range vs {
		o.AddCell(v)
	}
	for _, v := range vs {
		r := radius
		if r <= 0 {
			r = o.meanHalfEdge(v)
		}
		o.cells[v].SetR(r)
	}
	o.UpdateRest(vs, true)
	return o
}

// Mesh returns the underlying mesh.
func (o *Organism) Mesh() *mesh.Mesh { return o.mesh }

// AddCell creates a cell on vertex v with the radius implied by its mass.
// An existing cell on v is returned unchanged.
func (o *Organism) AddCell(v mesh.VertexID) *Cell {
	if c, ok := o.cells[v]; ok {
		return c
	}
	c := &Cell{v: v, o: o}
	if vert := o.mesh.Vertex(v); vert != nil {
		c.r = sds.SphereRadius(vert.M)
	}
	o.cells[v] = c
	return c
}

// RemoveCell forgets the cell; its vertex is left in the mesh.
func (o *Organism) RemoveCell(c *Cell) {
	delete(o.cells, c.v)
}

// Cell returns the cell on vertex v or nil.
func (o *Organism) Cell(v mesh.VertexID) *Cell { return o.cells[v] }

// Cells returns all cells ordered by vertex handle.
func (o *Organism) Cells() []*Cell {
	cs := make([]*Cell, 0, len(o.cells))
	for _, v := range o.mesh.Vertices() {
		if c, ok := o.cells[v]; ok {
			cs = append(cs, c)
		}
	}
	return cs
}

// NumCells returns the number of cells.
func (o *Organism) NumCells() int { return len(o.cells) }

// Mass returns the total cell mass.
func (o *Organism) Mass() float64 {
	var m float64
	for _, c := range o.cells {
		m += c.M()
	}
	return m
}

// ConnectCells adds an edge between a and b with rest length ra+rb.
func (o *Organism) ConnectCells(a, b *Cell) mesh.EdgeID {
	return o.mesh.AddEdge(a.v, b.v, a.r+b.r)
}

// Edge returns the edge joining a and b or mesh.NoEdge.
func (o *Organism) Edge(a, b *Cell) mesh.EdgeID {
	return o.mesh.FindEdge(a.v, b.v)
}

// Neighbours returns the cells sharing an edge with c.
func (o *Organism) Neighbours(c *Cell) []*Cell {
	vert := o.mesh.Vertex(c.v)
	if vert == nil {
		return nil
	}
	ns := make([]*Cell, 0, len(vert.Neighbours()))
	for _, v := range vert.Neighbours() {
		if n := o.cells[v]; n != nil {
			ns = append(ns, n)
		}
	}
	return ns
}

// NearestCell returns the cell closest to p, or nil for an empty organism.
func (o *Organism) NearestCell(p r3.Vec) *Cell {
	if len(o.cells) == 0 {
		return nil
	}
	pts := make(cellPoints, 0, len(o.cells))
	for _, c := range o.Cells() {
		pts = append(pts, cellPoint{X: c.X(), c: c})
	}
	tree := kdtree.New(pts, false)
	got, _ := tree.Nearest(cellPoint{X: p})
	return got.(cellPoint).c
}

// RestLength returns the rest length of an edge between a and b.
func (o *Organism) RestLength(a, b *Cell) float64 { return a.r + b.r }

// RestVolume returns the rest volume of tetra t from its cell radii.
func (o *Organism) RestVolume(t mesh.TetraID) float64 {
	tet := o.mesh.Tetra(t)
	var r [4]float64
	for i, v := range tet.V {
		if c := o.cells[v]; c != nil {
			r[i] = c.r
		}
	}
	return sds.RestVolume(r[0], r[1], r[2], r[3])
}

// UpdateRest recomputes the rest length of every edge and the rest volume of
// every tetra incident to the vertices vs. With preserveShape the rest
// multipliers are set so that the current geometry is the rest state.
func (o *Organism) UpdateRest(vs []mesh.VertexID, preserveShape bool) {
	m := o.mesh
	edges := make(map[mesh.EdgeID]bool)
	tetras := make(map[mesh.TetraID]bool)
	for _, v := range vs {
		vert := m.Vertex(v)
		if vert == nil {
			continue
		}
		for _, n := range vert.Neighbours() {
			edges[m.FindEdge(v, n)] = true
		}
		for _, t := range m.Incident(v) {
			tetras[t] = true
		}
	}
	for e := range edges {
		edge := m.Edge(e)
		if edge == nil {
			continue
		}
		a, b := o.cells[edge.V[0]], o.cells[edge.V[1]]
		if a == nil || b == nil {
			continue
		}
		edge.Rest = o.RestLength(a, b)
		if preserveShape && edge.Rest > 0 {
			edge.RestMultiplier = m.EdgeLength(e) / edge.Rest
		}
	}
	for t := range tetras {
		tet := m.Tetra(t)
		tet.Rest = o.RestVolume(t)
		if preserveShape && tet.Rest > 0 {
			tet.RestMultiplier = m.TetraVolume(t) / tet.Rest
		}
	}
}

func (o *Organism) meanHalfEdge(v mesh.VertexID) float64 {
	vert := o.mesh.Vertex(v)
	ns := vert.Neighbours()
	if len(ns) == 0 {
		return sds.SphereRadius(vert.M)
	}
	var sum float64
	for _, n := range ns {
		sum += r3.Norm(r3.Sub(o.mesh.Vertex(n).X, vert.X)) / 2
	}
	return sum / float64(len(ns))
}

// MeanHalfEdge returns half the mean length of the edges of c.
func (o *Organism) MeanHalfEdge(c *Cell) float64 { return o.meanHalfEdge(c.v) }

// cellPoint is a kdtree point carrying its cell.
type cellPoint struct {
	X r3.Vec
	c *Cell
}

func (p cellPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(cellPoint)
	switch d {
	case 0:
		return p.X.X - q.X.X
	case 1:
		return p.X.Y - q.X.Y
	case 2:
		return p.X.Z - q.X.Z
	}
	panic("unreachable")
}

func (p cellPoint) Dims() int { return 3 }

func (p cellPoint) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(p.X, c.(cellPoint).X))
}

type cellPoints []cellPoint

func (p cellPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p cellPoints) Len() int                      { return len(p) }
func (p cellPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p cellPoints) Pivot(d kdtree.Dim) int {
	cp := cellPlane{dim: d, pts: p}
	return kdtree.Partition(cp, kdtree.MedianOfMedians(cp))
}

// cellPlane sorts cell points along one dimension.
type cellPlane struct {
	dim kdtree.Dim
	pts cellPoints
}

func (p cellPlane) Less(i, j int) bool {
	return p.pts[i].Compare(p.pts[j], p.dim) < 0
}
func (p cellPlane) Swap(i, j int) {
	p.pts[i], p.pts[j] = p.pts[j], p.pts[i]
}
func (p cellPlane) Len() int {
	return len(p.pts)
}
func (p cellPlane) Slice(start, end int) kdtree.SortSlicer {
	p.pts = p.pts[start:end]
	return p
}
