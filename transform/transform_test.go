package transform_test

import (
	"math"
	"testing"

	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/internal/d3"
	"github.com/eigenbom/sds/mesh"
	"github.com/eigenbom/sds/organism"
	"github.com/eigenbom/sds/transform"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

func oneTet(t *testing.T) (*mesh.Mesh, *organism.Organism) {
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
	return m, organism.New(m, 0.5)
}

func lattice(t *testing.T) (*mesh.Mesh, *organism.Organism) {
	t.Helper()
	m, err := mesh.LoadTetgen("../mesh/testdata/lattice")
	if err != nil {
		t.Fatal(err)
	}
	return m, organism.New(m, 0)
}

func counts(m *mesh.Mesh) [4]int {
	return [4]int{m.NumVertices(), m.NumEdges(), m.NumFaces(), m.NumTetras()}
}

// checkDivision verifies the bookkeeping every division must preserve.
func checkDivision(t *testing.T, o *organism.Organism, massBefore float64, out transform.Outcome) {
	t.Helper()
	m := o.Mesh()
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
	if got := m.Mass(); math.Abs(got-massBefore) > tol {
		t.Errorf("mass %g, want %g", got, massBefore)
	}
	if out.Parent == nil || out.Daughter == nil {
		t.Fatalf("outcome %+v", out)
	}
	if math.Abs(out.Parent.M()-out.Daughter.M()) > tol {
		t.Errorf("parent mass %g daughter mass %g", out.Parent.M(), out.Daughter.M())
	}
	if want := sds.SphereRadius(out.Parent.M()); math.Abs(out.Parent.R()-want) > tol {
		t.Errorf("parent radius %g, want %g", out.Parent.R(), want)
	}
	for _, e := range m.Edges() {
		edge := m.Edge(e)
		a, b := o.Cell(edge.V[0]), o.Cell(edge.V[1])
		if math.Abs(edge.Rest-(a.R()+b.R())) > tol {
			t.Errorf("edge %v rest %g, want %g", edge.V, edge.Rest, a.R()+b.R())
		}
	}
	for _, id := range m.Tetras() {
		tet := m.Tetra(id)
		var r [4]float64
		for i, v := range tet.V {
			r[i] = o.Cell(v).R()
		}
		if want := sds.RestVolume(r[0], r[1], r[2], r[3]); math.Abs(tet.Rest-want) > tol {
			t.Errorf("tetra %d rest %g, want %g", id, tet.Rest, want)
		}
	}
}

func TestDivideTetraSingle(t *testing.T) {
	m, o := oneTet(t)
	e := transform.New(o)
	mass := m.Mass()
	out, err := e.DivideTetra(o.Cell(0), 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := counts(m); got != [4]int{5, 10, 4, 4} {
		t.Fatalf("counts %v", got)
	}
	checkDivision(t, o, mass, out)
	d := out.Daughter.Vertex()
	for _, id := range m.Tetras() {
		tet := m.Tetra(id)
		old := 0
		for _, v := range tet.V {
			if v < 4 {
				old++
			}
		}
		if old != 3 || tet.Index(d) < 0 {
			t.Errorf("tetra %d = %v", id, tet.V)
		}
	}
	if out.Op != "DivideTetra" || e.State() != transform.StateCompleted || e.Err() != nil {
		t.Errorf("op %q state %v err %v", out.Op, e.State(), e.Err())
	}
	if len(e.Properties()) == 0 {
		t.Error("empty property log")
	}
	if out.Daughter.IsBoundary() {
		t.Error("daughter of a tetra division on the surface")
	}
}

func TestDivideFace(t *testing.T) {
	m, o := oneTet(t)
	e := transform.New(o)
	mass := m.Mass()
	f := m.FindFace(0, 1, 2)
	out, err := e.DivideFace(o.Cell(0), f)
	if err != nil {
		t.Fatal(err)
	}
	if got := counts(m); got != [4]int{5, 10, 6, 3} {
		t.Fatalf("counts %v", got)
	}
	checkDivision(t, o, mass, out)
	if !out.Daughter.IsBoundary() {
		t.Error("daughter not on surface")
	}
	if z := out.Daughter.X().Z; math.Abs(z) > tol {
		t.Errorf("daughter off the face: z = %g", z)
	}
}

func TestDivideAway(t *testing.T) {
	m, o := oneTet(t)
	e := transform.New(o)
	mass, vol := m.Mass(), m.Volume()
	f := m.FindFace(0, 1, 2)
	out, err := e.DivideAway(o.Cell(0), f)
	if err != nil {
		t.Fatal(err)
	}
	if got := counts(m); got != [4]int{5, 9, 6, 2} {
		t.Fatalf("counts %v", got)
	}
	checkDivision(t, o, mass, out)
	if z := out.Daughter.X().Z; math.Abs(z+out.Daughter.R()) > tol {
		t.Errorf("daughter at z = %g, want %g", z, -out.Daughter.R())
	}
	if m.Volume() <= vol {
		t.Errorf("volume %g not above %g", m.Volume(), vol)
	}
}

func TestDivideSurfaceEdge(t *testing.T) {
	m, o := oneTet(t)
	e := transform.New(o)
	mass := m.Mass()
	out, err := e.DivideSurfaceEdge(o.Cell(0), m.FindEdge(0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if got := counts(m); got != [4]int{5, 9, 6, 2} {
		t.Fatalf("counts %v", got)
	}
	checkDivision(t, o, mass, out)
	if !d3.EqualWithin(out.Daughter.X(), r3.Vec{X: 0.5}, tol) {
		t.Errorf("daughter at %v", out.Daughter.X())
	}
	if m.FindEdge(0, 1) != mesh.NoEdge {
		t.Error("split edge still present")
	}
}

func TestDivideInternalEdgeLattice(t *testing.T) {
	m, o := lattice(t)
	e := transform.New(o)
	mass := m.Mass()
	faces := m.NumFaces()
	id := m.FindEdge(12, 13)
	out, err := e.DivideInternalEdge(o.Cell(12), id)
	if err != nil {
		t.Fatal(err)
	}
	if m.NumFaces() != faces {
		t.Errorf("outer faces %d, want %d", m.NumFaces(), faces)
	}
	if got := counts(m); got != [4]int{28, 105, 48, 54} {
		t.Errorf("counts %v", got)
	}
	checkDivision(t, o, mass, out)
}

func TestDivideErrorsLeaveMesh(t *testing.T) {
	m, o := lattice(t)
	e := transform.New(o)
	before, n := m.Version(), counts(m)
	tests := []struct {
		name string
		do   func() error
		kind sds.Kind
	}{
		{"surface edge as internal", func() error {
			_, err := e.DivideInternalEdge(o.Cell(0), m.FindEdge(0, 1))
			return err
		}, sds.KindPrecondition},
		{"internal edge as surface", func() error {
			_, err := e.DivideSurfaceEdge(o.Cell(12), m.FindEdge(12, 13))
			return err
		}, sds.KindPrecondition},
		{"cell not on edge", func() error {
			_, err := e.DivideInternalEdge(o.Cell(0), m.FindEdge(12, 13))
			return err
		}, sds.KindPrecondition},
		{"missing tetra", func() error {
			_, err := e.DivideTetra(o.Cell(0), 1000)
			return err
		}, sds.KindNotFound},
		{"cell not in tetra", func() error {
			_, err := e.DivideTetra(o.Cell(26), 0)
			return err
		}, sds.KindPrecondition},
		{"face of interior cell", func() error {
			_, err := e.DivideFace(o.Cell(13), m.Vertex(0).Faces()[0])
			return err
		}, sds.KindPrecondition},
		{"interior cell along surface", func() error {
			_, err := e.DivideAlong(o.Cell(13), r3.Vec{X: 1})
			return err
		}, sds.KindPrecondition},
		{"surface cell internal", func() error {
			_, err := e.DivideInternal(o.Cell(0), r3.Vec{X: 1})
			return err
		}, sds.KindPrecondition},
		{"nil cell", func() error {
			_, err := e.Divide(nil, r3.Vec{X: 1})
			return err
		}, sds.KindPrecondition},
	}
	for _, tc := range tests {
		err := tc.do()
		if sds.KindOf(err) != tc.kind {
			t.Errorf("%s: got %v, want kind %v", tc.name, err, tc.kind)
		}
		if e.State() != transform.StateError || e.Err() != err {
			t.Errorf("%s: state %v err %v", tc.name, e.State(), e.Err())
		}
	}
	if m.Version() != before || counts(m) != n {
		t.Errorf("mesh changed by failed operators: %v", counts(m))
	}
}

func TestDivideBalancedInterior(t *testing.T) {
	m, o := lattice(t)
	e := transform.New(o)
	mass := m.Mass()
	// At least 45 degrees from every lattice edge at the centre.
	out, err := e.DivideBalanced(o.Cell(13), r3.Vec{X: 1, Y: -1})
	if err != nil {
		t.Fatal(err)
	}
	if out.Op != "DivideBalanced" {
		t.Errorf("op %q", out.Op)
	}
	if got := m.NumVertices(); got != 28 {
		t.Errorf("vertices %d", got)
	}
	if got := m.NumFaces(); got != 48 {
		t.Errorf("outer faces %d", got)
	}
	if math.Abs(m.Volume()-8) > 1e-9 {
		t.Errorf("volume %g", m.Volume())
	}
	checkDivision(t, o, mass, out)
}

func TestDivideBalancedPicksEdge(t *testing.T) {
	m, o := lattice(t)
	e := transform.New(o)
	mass := m.Mass()
	out, err := e.DivideBalanced(o.Cell(13), r3.Vec{X: 1, Y: 0.1})
	if err != nil {
		t.Fatal(err)
	}
	if out.Op != "DivideInternalEdge" {
		t.Errorf("op %q", out.Op)
	}
	if !d3.EqualWithin(out.Daughter.X(), r3.Vec{X: 1.5, Y: 1, Z: 1}, tol) {
		t.Errorf("daughter at %v", out.Daughter.X())
	}
	checkDivision(t, o, mass, out)
}

func TestDivideBalancedSurface(t *testing.T) {
	m, o := oneTet(t)
	e := transform.New(o)
	mass := m.Mass()
	out, err := e.DivideBalanced(o.Cell(0), r3.Vec{X: 1, Y: 0.05})
	if err != nil {
		t.Fatal(err)
	}
	if out.Op != "DivideSurfaceEdge" {
		t.Errorf("op %q", out.Op)
	}
	checkDivision(t, o, mass, out)

	// Pointing away from the tetra there is neither a surface edge nor a
	// face, so the division falls through to the one-ring.
	m, o = oneTet(t)
	e = transform.New(o)
	mass = m.Mass()
	away := r3.Scale(-1, m.TetraCenter(0))
	out, err = e.Divide(o.Cell(0), away)
	if err != nil {
		t.Fatal(err)
	}
	if out.Op != "DivideBalanced" {
		t.Errorf("op %q", out.Op)
	}
	if got := counts(m); got != [4]int{5, 10, 4, 4} {
		t.Errorf("counts %v", got)
	}
	checkDivision(t, o, mass, out)
}

func TestDivideSimple(t *testing.T) {
	m, o := oneTet(t)
	e := transform.New(o)
	mass := m.Mass()
	out, err := e.DivideSimple(o.Cell(0), r3.Scale(-1, m.TetraCenter(0)))
	if err != nil {
		t.Fatal(err)
	}
	if out.Op != "DivideTetra" {
		t.Errorf("op %q", out.Op)
	}
	checkDivision(t, o, mass, out)

	m, o = oneTet(t)
	e = transform.New(o)
	// Along the bottom face, away from its edges.
	dir := r3.Sub(m.FaceCentroid(m.FindFace(0, 1, 2)), m.Vertex(0).X)
	out, err = e.DivideAlong(o.Cell(0), dir)
	if err != nil {
		t.Fatal(err)
	}
	if out.Op != "DivideFace" {
		t.Errorf("op %q", out.Op)
	}
	if !m.IsSane() {
		t.Fatal(m.Check())
	}

	m, o = oneTet(t)
	e = transform.New(o)
	_, err = e.DivideAlong(o.Cell(0), r3.Scale(-1, m.TetraCenter(0)))
	if sds.KindOf(err) != sds.KindNotFound {
		t.Errorf("got %v", err)
	}
}

func TestDirectionQueries(t *testing.T) {
	m, o := lattice(t)
	e := transform.New(o)
	c := o.Cell(13)
	for _, dir := range []r3.Vec{{X: 1, Y: 0.2, Z: 0.1}, {X: -0.3, Y: 0.5, Z: -1}} {
		tet := e.TetraInDirection(c, dir)
		if tet == mesh.NoTetra {
			t.Errorf("no tetra in direction %v", dir)
			continue
		}
		if m.Tetra(tet).Index(13) < 0 {
			t.Errorf("tetra %d does not contain the cell", tet)
		}
	}
	corner := o.Cell(0)
	if f := e.FaceInDirection(corner, r3.Vec{X: 1, Y: 0.5, Z: -0.01}); f == mesh.NoFace {
		t.Error("no face along the bottom")
	} else if fv := m.Face(f).V; m.Vertex(fv[0]).X.Z+m.Vertex(fv[1]).X.Z+m.Vertex(fv[2]).X.Z != 0 {
		t.Errorf("face %v not on the bottom", fv)
	}
	if f := e.FaceInDirection(corner, r3.Vec{X: -1, Y: -1, Z: -1}); f != mesh.NoFace {
		t.Errorf("face %d found pointing out of the corner", f)
	}
}

func TestComplexify(t *testing.T) {
	m, o := oneTet(t)
	e := transform.New(o)
	out, err := e.Complexify(o.Cells(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.NewCells) != 5 {
		t.Errorf("new cells %d", len(out.NewCells))
	}
	if m.NumVertices() != 9 || m.NumFaces() != 12 {
		t.Errorf("counts %v", counts(m))
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
	if math.Abs(m.Volume()-1/(6*math.Sqrt2)) > 1e-12 {
		t.Errorf("volume %g", m.Volume())
	}
	for _, id := range m.Edges() {
		edge := m.Edge(id)
		if got := edge.Rest * edge.RestMultiplier; math.Abs(got-m.EdgeLength(id)) > tol {
			t.Errorf("edge %v rest %g, length %g", edge.V, got, m.EdgeLength(id))
		}
	}
	for _, id := range m.Tetras() {
		tet := m.Tetra(id)
		if got := tet.Rest * tet.RestMultiplier; math.Abs(got-m.TetraVolume(id)) > tol {
			t.Errorf("tetra %d rest %g, volume %g", id, got, m.TetraVolume(id))
		}
	}
	for _, c := range o.Cells() {
		if math.Abs(c.R()-o.MeanHalfEdge(c)) > tol {
			t.Errorf("cell %d radius %g", c.Vertex(), c.R())
		}
	}
}

func TestComplexifyLatticeRegion(t *testing.T) {
	m, o := lattice(t)
	e := transform.New(o)
	var cells []*organism.Cell
	for _, v := range []mesh.VertexID{0, 1, 3, 4, 9, 10, 12, 13} {
		cells = append(cells, o.Cell(v))
	}
	out, err := e.Complexify(cells, nil)
	if err != nil {
		t.Fatal(err)
	}
	// One cube of six tetrahedra, three of its faces on the surface with
	// two outer triangles each.
	if want := 6 + 6; len(out.NewCells) != want {
		t.Errorf("new cells %d, want %d", len(out.NewCells), want)
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
	if math.Abs(m.Volume()-8) > 1e-9 {
		t.Errorf("volume %g", m.Volume())
	}
}

func bipyramid(t *testing.T) (*mesh.Mesh, *organism.Organism) {
	t.Helper()
	m, err := mesh.FromTetras([]r3.Vec{
		{}, {X: 1}, {Y: 1},
		{X: 0.3, Y: 0.3, Z: 1},
		{X: 0.3, Y: 0.3, Z: -1},
	}, [][4]int{{3, 0, 1, 2}, {4, 0, 2, 1}})
	if err != nil {
		t.Fatal(err)
	}
	return m, organism.New(m, 0.5)
}

func TestMoveVertexFlip(t *testing.T) {
	m, o := bipyramid(t)
	e := transform.New(o)
	tet := m.FindTetra(3)
	if err := e.MoveVertexThroughOppositeFace(m.Tetra(tet).Index(3), tet); err != nil {
		t.Fatal(err)
	}
	if got := counts(m); got != [4]int{5, 10, 6, 3} {
		t.Fatalf("counts %v", got)
	}
	if m.FindEdge(3, 4) == mesh.NoEdge {
		t.Error("no edge between the apexes")
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}

	// Removing the apex edge again restores two tetrahedra.
	tet = m.FindTetra(3, 4, 0, 1)
	tv := m.Tetra(tet)
	if err := e.MoveEdgeThroughEdge(tv.Index(0), tv.Index(1), tet); err != nil {
		t.Fatal(err)
	}
	if got := counts(m); got != [4]int{5, 9, 6, 2} {
		t.Fatalf("counts %v", got)
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestMoveVertexPeelAndExtrude(t *testing.T) {
	m, o := lattice(t)
	e := transform.New(o)
	tet := m.FindTetra(0, 1, 4, 13)
	if err := e.MoveVertexThroughOppositeFace(m.Tetra(tet).Index(13), tet); err != nil {
		t.Fatal(err)
	}
	if got := counts(m); got != [4]int{27, 98, 50, 47} {
		t.Fatalf("peel counts %v", got)
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}

	m, o = oneTet(t)
	e = transform.New(o)
	if err := e.MoveVertexThroughOppositeFace(0, 0); err != nil {
		t.Fatal(err)
	}
	if got := counts(m); got != [4]int{5, 10, 6, 3} {
		t.Fatalf("extrude counts %v", got)
	}
	if o.NumCells() != 5 {
		t.Errorf("cells %d", o.NumCells())
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestMoveErrors(t *testing.T) {
	m, o := oneTet(t)
	e := transform.New(o)
	before := m.Version()
	if err := e.MoveEdgeThroughEdge(0, 1, 0); sds.KindOf(err) != sds.KindPrecondition {
		t.Errorf("surface edge: got %v", err)
	}
	if err := e.MoveEdgeThroughEdge(1, 1, 0); sds.KindOf(err) != sds.KindPrecondition {
		t.Errorf("repeated index: got %v", err)
	}
	if err := e.MoveVertexThroughOppositeFace(4, 0); sds.KindOf(err) != sds.KindPrecondition {
		t.Errorf("vertex index: got %v", err)
	}
	if err := e.MoveVertexThroughOppositeFace(0, 7); sds.KindOf(err) != sds.KindNotFound {
		t.Errorf("missing tetra: got %v", err)
	}
	if m.Version() != before {
		t.Error("mesh changed")
	}
}
