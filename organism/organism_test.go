package organism_test

import (
	"math"
	"testing"

	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/mesh"
	"github.com/eigenbom/sds/organism"
	"gonum.org/v1/gonum/spatial/r3"
)

func regularTetra(t *testing.T) *mesh.Mesh {
	t.Helper()
	m, err := mesh.FromTetras([]r3.Vec{
		{},
		{X: 1},
		{X: 0.5, Y: math.Sqrt(3) / 2},
		{X: 0.5, Y: math.Sqrt(3) / 6, Z: math.Sqrt(2.0 / 3.0)},
	}, [][4]int{{0, 1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNewUniform(t *testing.T) {
	m := regularTetra(t)
	o := organism.New(m, 0.5)
	if o.NumCells() != 4 {
		t.Fatalf("cells %d", o.NumCells())
	}
	for _, e := range m.Edges() {
		edge := m.Edge(e)
		if math.Abs(edge.Rest-1) > 1e-12 || math.Abs(edge.RestMultiplier-1) > 1e-12 {
			t.Errorf("edge %d rest %g multiplier %g", e, edge.Rest, edge.RestMultiplier)
		}
	}
	tet := m.Tetra(0)
	if want := 1 / (6 * math.Sqrt2); math.Abs(tet.Rest-want) > 1e-12 {
		t.Errorf("tetra rest %g, want %g", tet.Rest, want)
	}
	if math.Abs(tet.RestMultiplier-1) > 1e-9 {
		t.Errorf("tetra rest multiplier %g", tet.RestMultiplier)
	}
	if want := 4 * sds.SphereVolume(0.5); math.Abs(o.Mass()-want) > 1e-12 {
		t.Errorf("mass %g, want %g", o.Mass(), want)
	}
}

func TestNewDerivedRadius(t *testing.T) {
	m, err := mesh.LoadTetgen("../mesh/testdata/lattice")
	if err != nil {
		t.Fatal(err)
	}
	o := organism.New(m, 0)
	// Every edge of vertex 0 is axis aligned or a face diagonal.
	c := o.Cell(0)
	var sum float64
	for _, n := range o.Neighbours(c) {
		sum += r3.Norm(r3.Sub(n.X(), c.X())) / 2
	}
	if want := sum / float64(len(o.Neighbours(c))); math.Abs(c.R()-want) > 1e-12 {
		t.Errorf("radius %g, want %g", c.R(), want)
	}
	for _, e := range m.Edges() {
		edge := m.Edge(e)
		a, b := o.Cell(edge.V[0]), o.Cell(edge.V[1])
		if math.Abs(edge.Rest-(a.R()+b.R())) > 1e-12 {
			t.Fatalf("edge %d rest %g, radii %g %g", e, edge.Rest, a.R(), b.R())
		}
		if got := edge.Rest * edge.RestMultiplier; math.Abs(got-m.EdgeLength(e)) > 1e-12 {
			t.Fatalf("edge %d effective rest %g, length %g", e, got, m.EdgeLength(e))
		}
	}
}

func TestCellMassAndRadius(t *testing.T) {
	m := regularTetra(t)
	o := organism.New(m, 0.5)
	c := o.Cell(1)
	c.SetM(2)
	if math.Abs(c.R()-sds.SphereRadius(2)) > 1e-12 || m.Vertex(1).M != 2 {
		t.Errorf("SetM: r %g m %g", c.R(), m.Vertex(1).M)
	}
	c.SetR(0.25)
	if math.Abs(c.M()-sds.SphereVolume(0.25)) > 1e-12 {
		t.Errorf("SetR: m %g", c.M())
	}
	if !c.IsBoundary() {
		t.Error("tetra corner is not boundary")
	}
}

func TestNeighboursAndEdges(t *testing.T) {
	m := regularTetra(t)
	o := organism.New(m, 0.5)
	a, b := o.Cell(0), o.Cell(3)
	if len(o.Neighbours(a)) != 3 {
		t.Errorf("neighbours %d", len(o.Neighbours(a)))
	}
	if e := o.Edge(a, b); e == mesh.NoEdge || e != m.FindEdge(0, 3) {
		t.Error("edge lookup")
	}
	x := m.AddVertex(r3.Vec{X: 5}, sds.SphereVolume(1))
	c := o.AddCell(x)
	if math.Abs(c.R()-1) > 1e-12 {
		t.Errorf("new cell radius %g", c.R())
	}
	e := o.ConnectCells(a, c)
	if m.Edge(e).Rest != 1.5 {
		t.Errorf("connect rest %g", m.Edge(e).Rest)
	}
	o.RemoveCell(c)
	if o.Cell(x) != nil || len(o.Neighbours(a)) != 3 {
		t.Error("removed cell still visible")
	}
}

func TestNearestCell(t *testing.T) {
	m, err := mesh.LoadTetgen("../mesh/testdata/lattice")
	if err != nil {
		t.Fatal(err)
	}
	o := organism.New(m, 0.5)
	for _, tc := range []struct {
		p    r3.Vec
		want mesh.VertexID
	}{
		{r3.Vec{X: 1.9, Y: 0.1, Z: 0.1}, 2},
		{r3.Vec{X: 1.1, Y: 0.9, Z: 1.2}, 13},
		{r3.Vec{X: -5, Y: 3, Z: 9}, 24},
	} {
		if got := o.NearestCell(tc.p); got == nil || got.Vertex() != tc.want {
			t.Errorf("nearest to %v: got %v, want %d", tc.p, got, tc.want)
		}
	}
	if organism.New(mesh.New(), 1).NearestCell(r3.Vec{}) != nil {
		t.Error("empty organism returned a cell")
	}
}
