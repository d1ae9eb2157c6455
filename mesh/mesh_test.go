package mesh_test

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/internal/d3"
	"github.com/eigenbom/sds/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

func regularTetra(t *testing.T) *mesh.Mesh {
	t.Helper()
	pts := []r3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0.5, Y: math.Sqrt(3) / 2, Z: 0},
		{X: 0.5, Y: math.Sqrt(3) / 6, Z: math.Sqrt(2.0 / 3.0)},
	}
	m, err := mesh.FromTetras(pts, [][4]int{{0, 1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func lattice(t *testing.T) *mesh.Mesh {
	t.Helper()
	m, err := mesh.LoadTetgen("testdata/lattice")
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func counts(m *mesh.Mesh) [4]int {
	return [4]int{m.NumVertices(), m.NumEdges(), m.NumFaces(), m.NumTetras()}
}

func TestFromTetrasSingle(t *testing.T) {
	m := regularTetra(t)
	if got := counts(m); got != [4]int{4, 6, 4, 1} {
		t.Fatalf("counts %v", got)
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
	want := 1 / (6 * math.Sqrt2)
	if got := m.Volume(); math.Abs(got-want) > 1e-12 {
		t.Errorf("volume %g, want %g", got, want)
	}
	for _, e := range m.Edges() {
		if got := m.Edge(e).Rest; math.Abs(got-1) > 1e-12 {
			t.Errorf("edge %d rest %g, want 1", e, got)
		}
	}
	for _, v := range m.Vertices() {
		if !m.Vertex(v).Surface() {
			t.Errorf("vertex %d not on surface", v)
		}
	}
}

func TestFromTetrasFixesOrientation(t *testing.T) {
	pts := []r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}}
	m, err := mesh.FromTetras(pts, [][4]int{{0, 1, 3, 2}})
	if err != nil {
		t.Fatal(err)
	}
	if v := m.TetraVolume(0); v <= 0 {
		t.Fatalf("volume %g after orientation fix", v)
	}
	if !m.IsSane() {
		t.Fatal(m.Check())
	}
	_, err = mesh.FromTetras([]r3.Vec{{}, {X: 1}, {X: 2}, {X: 3}}, [][4]int{{0, 1, 2, 3}})
	if sds.KindOf(err) != sds.KindDegenerate {
		t.Fatalf("flat tetra: got %v", err)
	}
}

func TestLoadTetgenLattice(t *testing.T) {
	m := lattice(t)
	if got := counts(m); got != [4]int{27, 98, 48, 48} {
		t.Fatalf("counts %v", got)
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
	if got := m.Volume(); math.Abs(got-8) > 1e-12 {
		t.Errorf("volume %g, want 8", got)
	}
	if m.Vertex(13).Surface() {
		t.Error("centre vertex flagged surface")
	}
	if !m.Vertex(12).Surface() {
		t.Error("vertex 12 should be on the surface")
	}
	if m.TopologyChanged() {
		t.Error("fresh mesh reports topology change")
	}
}

func TestReadTetgenErrors(t *testing.T) {
	for _, tc := range []struct {
		name, node, ele string
	}{
		{"index order", "2 3 0 0\n1 0 0 0\n0 1 0 0\n", "1 4 0\n0 0 1 0 1\n"},
		{"node count", "0 3 0 0\n", "1 4 0\n0 0 1 2 3\n"},
		{"ten nodes", "4 3 0 0\n0 0 0 0\n1 1 0 0\n2 0 1 0\n3 0 0 1\n", "1 10 0\n0 0 1 2 3\n"},
		{"out of range", "4 3 0 0\n0 0 0 0\n1 1 0 0\n2 0 1 0\n3 0 0 1\n", "1 4 0\n0 0 1 2 4\n"},
		{"truncated", "4 3 0 0\n0 0 0 0\n1 1 0 0\n", "1 4 0\n0 0 1 2 3\n"},
	} {
		_, err := mesh.ReadTetgen(strings.NewReader(tc.node), strings.NewReader(tc.ele))
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
	node := "# comment\n4 3 1 1\n0 0 0 0 7 1 # attribute and marker\n1 1 0 0 7 1\n\n2 0 1 0 7 0\n3 0 0 1 7 0\n"
	m, err := mesh.ReadTetgen(strings.NewReader(node), strings.NewReader("1 4 0\n0 0 1 2 3\n"))
	if err != nil {
		t.Fatal(err)
	}
	if m.NumTetras() != 1 || !m.IsSane() {
		t.Fatal("bad single tetra")
	}
}

func TestLookups(t *testing.T) {
	m := lattice(t)
	e := m.FindEdge(13, 12)
	if e == mesh.NoEdge || m.FindEdge(12, 13) != e {
		t.Fatal("edge 12-13 not found")
	}
	if m.FindEdge(0, 26) != mesh.NoEdge {
		t.Error("found edge across the lattice")
	}
	ring := m.TetrasWith(12, 13)
	if len(ring) != 6 {
		t.Errorf("ring of 12-13 has %d tetrahedra, want 6", len(ring))
	}
	if tet := m.FindTetra(12, 13); tet == mesh.NoTetra || !m.Tetra(tet).Contains(12, 13) {
		t.Error("FindTetra partial lookup failed")
	}
	if len(m.Incident(13)) != 24 {
		t.Errorf("centre vertex has %d incident tetrahedra, want 24", len(m.Incident(13)))
	}
	// Edge 0-1 lies on two boundary planes.
	f0, f1 := m.AdjacentFaces(m.FindEdge(0, 1))
	if f0 == mesh.NoFace || f1 == mesh.NoFace || f0 == f1 {
		t.Fatalf("adjacent faces %d %d", f0, f1)
	}
	if f := m.FindFace(0, 1); f != f0 && f != f1 {
		t.Error("partial face lookup returned a face not adjacent to the edge")
	}
	if f0, f1 := m.AdjacentFaces(e); f0 != mesh.NoFace || f1 != mesh.NoFace {
		t.Error("internal edge has adjacent faces")
	}
	if m.FindFace(12, 13) != mesh.NoFace {
		t.Error("interior vertex found on a face")
	}
}

func TestReplaceSplitTetra(t *testing.T) {
	m := regularTetra(t)
	tet := m.Tetra(0).V
	x := m.AddVertex(m.TetraCenter(0), 0)
	var add [][4]mesh.VertexID
	for i := range tet {
		nt := tet
		nt[i] = x
		add = append(add, nt)
	}
	p, err := m.Replace([]mesh.TetraID{0}, add)
	if err != nil {
		t.Fatal(err)
	}
	if got := counts(m); got != [4]int{5, 10, 4, 4} {
		t.Fatalf("counts %v", got)
	}
	if len(p.NewEdges) != 4 || len(p.NewFaces) != 0 || p.DeletedFaces != 0 || p.DeletedEdges != 0 {
		t.Errorf("patch %+v", p)
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
	if m.Tetra(0) != nil {
		t.Error("removed tetra still alive")
	}
	for _, id := range p.Added {
		if !m.Tetra(id).Contains(x) {
			t.Errorf("tetra %d misses the new vertex", id)
		}
	}
	if len(p.Vertices(m)) != 5 {
		t.Errorf("patch touches %d vertices", len(p.Vertices(m)))
	}
}

func TestReplaceGlueOutside(t *testing.T) {
	m := regularTetra(t)
	f := m.OuterFaces()[0]
	fv := m.Face(f).V
	x := m.AddVertex(r3.Add(m.FaceCentroid(f), r3.Scale(0.5, m.FaceNormal(f))), 0)
	_, err := m.Replace(nil, [][4]mesh.VertexID{{x, fv[2], fv[1], fv[0]}})
	if err != nil {
		t.Fatal(err)
	}
	if got := counts(m); got != [4]int{5, 9, 6, 2} {
		t.Fatalf("counts %v", got)
	}
	if m.Face(f) != nil {
		t.Error("covered face still stored")
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestReplaceRejects(t *testing.T) {
	m := lattice(t)
	before := m.Version()
	tv := m.Tetra(0).V
	tv[2], tv[3] = tv[3], tv[2]
	_, err := m.Replace([]mesh.TetraID{0}, [][4]mesh.VertexID{tv})
	if sds.KindOf(err) != sds.KindDegenerate {
		t.Errorf("inverted: got %v", err)
	}
	_, err = m.Replace([]mesh.TetraID{0, 0}, nil)
	if sds.KindOf(err) != sds.KindPrecondition {
		t.Errorf("duplicate: got %v", err)
	}
	// Overlaps tetra 1 which is kept.
	_, err = m.Replace(nil, [][4]mesh.VertexID{m.Tetra(1).V})
	if err == nil {
		t.Error("overlapping tetra accepted")
	}
	if m.Version() != before || m.TopologyChanged() {
		t.Fatal("rejected replace mutated the mesh")
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestReplacePeel(t *testing.T) {
	m := regularTetra(t)
	p, err := m.Replace([]mesh.TetraID{0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.DeletedFaces != 4 || p.DeletedEdges != 6 {
		t.Errorf("patch %+v", p)
	}
	if got := counts(m); got != [4]int{4, 0, 0, 0} {
		t.Fatalf("counts %v", got)
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
	for _, v := range m.Vertices() {
		if m.Vertex(v).Surface() || len(m.Vertex(v).Neighbours()) != 0 {
			t.Errorf("vertex %d keeps topology", v)
		}
	}
}

func TestReplaceExposesNeighbours(t *testing.T) {
	m := lattice(t)
	// Tetra 0 has one face on the z=0 plane; removing it exposes three faces
	// of its neighbours.
	p, err := m.Replace([]mesh.TetraID{0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := counts(m); got != [4]int{27, 98, 50, 47} {
		t.Fatalf("counts %v", got)
	}
	if len(p.NewFaces) != 3 || p.DeletedFaces != 1 || p.DeletedEdges != 0 {
		t.Errorf("patch %+v", p)
	}
	if !m.Vertex(13).Surface() {
		t.Error("centre vertex not exposed")
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestCheckReportsViolations(t *testing.T) {
	m := regularTetra(t)
	m.DeleteFace(m.OuterFaces()[0])
	err := m.Check()
	if sds.KindOf(err) != sds.KindInvariant {
		t.Fatalf("missing face: got %v", err)
	}
	m = regularTetra(t)
	m.DeleteEdge(m.Edges()[0])
	if m.IsSane() {
		t.Fatal("missing edge not reported")
	}
}

func TestSnapshot(t *testing.T) {
	m := lattice(t)
	m.Vertex(3).Frozen = true
	m.Edge(5).RestMultiplier = 1.5
	s, ids := m.Export()
	if len(ids) != 27 || len(s.Tetras) != 48 || len(s.Faces) != 48 {
		t.Fatalf("snapshot sizes %d %d %d", len(ids), len(s.Tetras), len(s.Faces))
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var s2 mesh.Snapshot
	if err := json.Unmarshal(b, &s2); err != nil {
		t.Fatal(err)
	}
	m2, err := mesh.FromSnapshot(s2)
	if err != nil {
		t.Fatal(err)
	}
	if counts(m2) != counts(m) {
		t.Fatalf("counts %v, want %v", counts(m2), counts(m))
	}
	if !m2.Vertex(3).Frozen || m2.Edge(5).RestMultiplier != 1.5 {
		t.Error("element state lost")
	}
	s.Tetras[0].N = [4]int{-1, -1, -1, -1}
	if _, err := mesh.FromSnapshot(s); err == nil {
		t.Error("broken neighbour links accepted")
	}
}

func TestCompact(t *testing.T) {
	m := regularTetra(t)
	x := m.AddVertex(m.TetraCenter(0), 0)
	tv := m.Tetra(0).V
	var add [][4]mesh.VertexID
	for i := range tv {
		nt := tv
		nt[i] = x
		add = append(add, nt)
	}
	if _, err := m.Replace([]mesh.TetraID{0}, add); err != nil {
		t.Fatal(err)
	}
	c, err := m.Compact()
	if err != nil {
		t.Fatal(err)
	}
	if c.Tetra(3) == nil || c.Tetra(4) != nil {
		t.Error("compacted handles not dense")
	}
	if math.Abs(c.Volume()-m.Volume()) > 1e-12 {
		t.Error("volume changed")
	}
}

func TestGeometry(t *testing.T) {
	m := lattice(t)
	n := m.VertexNormal(0)
	want := r3.Scale(-1/math.Sqrt(3), r3.Vec{X: 1, Y: 1, Z: 1})
	if !d3.EqualWithin(n, want, 1e-12) {
		t.Errorf("corner normal %v, want %v", n, want)
	}
	if n := m.VertexNormal(13); n != (r3.Vec{}) {
		t.Errorf("interior normal %v", n)
	}
	b := m.Bounds()
	if !d3.EqualWithin(b.Min, r3.Vec{}, 0) || !d3.EqualWithin(b.Max, d3.Elem(2), 0) {
		t.Errorf("bounds %+v", b)
	}
	m.Translate(r3.Vec{X: 1})
	m.Scale(r3.Vec{X: 1}, 2)
	if got := m.Volume(); math.Abs(got-64) > 1e-9 {
		t.Errorf("scaled volume %g", got)
	}
	tb := m.Tetra(0).Box()
	if !tb.Valid() || tb.Min.X < 1-1e-12 {
		t.Errorf("stale box %+v", tb)
	}

	q := regularTetra(t).Quality()
	if math.Abs(q.Min-1) > 1e-9 || q.Inverted != 0 {
		t.Errorf("regular tetra quality %+v", q)
	}
}
