package mesh

import (
	"errors"
	"fmt"

	"github.com/eigenbom/sds"
)

// minCheckVolume is the most negative tetra volume Check tolerates.
// Simulated bodies deform so slightly inverted elements are reported only
// past this threshold.
const minCheckVolume = -1e-4

// maxReported bounds the number of violations joined into Check's error.
const maxReported = 16

type checker struct {
	errs []error
}

func (c *checker) failf(format string, args ...any) {
	if len(c.errs) < maxReported {
		c.errs = append(c.errs, fmt.Errorf(format, args...))
	}
}

// Check verifies every connectivity invariant of the mesh and returns an
// error of kind sds.KindInvariant describing the violations found, or nil.
//
// The invariants are: an edge exists iff its vertices are mutual
// neighbours; every tetra edge exists; every tetra has non-negative volume;
// neighbour links are symmetric and share a face; a tetra face has no
// neighbour iff exactly one outer face with the same winding exists; vertex
// face and tetra lists agree with the elements; no edge dangles outside the
// tetrahedra.
func (m *Mesh) Check() error {
	var c checker
	m.checkVertices(&c)
	m.checkEdges(&c)
	m.checkFaces(&c)
	m.checkTetras(&c)
	if len(c.errs) == 0 {
		return nil
	}
	return &sds.Error{Kind: sds.KindInvariant, Op: "Check", Err: errors.Join(c.errs...)}
}

// IsSane returns true if Check finds no violations.
func (m *Mesh) IsSane() bool { return m.Check() == nil }

func (m *Mesh) checkVertices(c *checker) {
	n := 0
	for i := range m.vertices {
		v := &m.vertices[i]
		if !v.alive {
			continue
		}
		n++
		id := VertexID(i)
		for _, nb := range v.neighbours {
			if m.Vertex(nb) == nil {
				c.failf("vertex %d: neighbour %d does not exist", id, nb)
				continue
			}
			if m.FindEdge(id, nb) == NoEdge {
				c.failf("vertex %d: no edge to neighbour %d", id, nb)
			}
		}
		for _, f := range v.faces {
			face := m.Face(f)
			if face == nil || !face.Contains(id) {
				c.failf("vertex %d: face %d does not contain it", id, f)
			}
		}
		if v.surface != (len(v.faces) > 0) {
			c.failf("vertex %d: surface flag %v with %d faces", id, v.surface, len(v.faces))
		}
		for _, t := range v.tetras {
			tet := m.Tetra(t)
			if tet == nil || !tet.Contains(id) {
				c.failf("vertex %d: incident tetra %d does not contain it", id, t)
			}
		}
	}
	if n != m.nv {
		c.failf("vertex count %d, counted %d", m.nv, n)
	}
}

func (m *Mesh) checkEdges(c *checker) {
	n := 0
	for i := range m.edges {
		e := &m.edges[i]
		if !e.alive {
			continue
		}
		n++
		id := EdgeID(i)
		a, b := m.Vertex(e.V[0]), m.Vertex(e.V[1])
		if a == nil || b == nil {
			c.failf("edge %d: endpoint missing", id)
			continue
		}
		if !a.hasNeighbour(e.V[1]) || !b.hasNeighbour(e.V[0]) {
			c.failf("edge %d: vertices %d and %d are not mutual neighbours", id, e.V[0], e.V[1])
		}
		if m.edgeIndex[makeEdgeKey(e.V[0], e.V[1])] != id {
			c.failf("edge %d: not indexed", id)
		}
		if m.FindTetra(e.V[0], e.V[1]) == NoTetra {
			c.failf("edge %d: dangling, no tetra contains %d and %d", id, e.V[0], e.V[1])
		}
	}
	if n != m.ne || len(m.edgeIndex) != n {
		c.failf("edge count %d, counted %d, indexed %d", m.ne, n, len(m.edgeIndex))
	}
}

func (m *Mesh) checkFaces(c *checker) {
	n := 0
	for i := range m.faces {
		f := &m.faces[i]
		if !f.alive {
			continue
		}
		n++
		id := FaceID(i)
		if !f.Outer {
			c.failf("face %d: not flagged outer", id)
		}
		owners := 0
		for j, v := range f.V {
			vert := m.Vertex(v)
			if vert == nil {
				c.failf("face %d: vertex %d missing", id, v)
				continue
			}
			found := false
			for _, x := range vert.faces {
				found = found || x == id
			}
			if !found {
				c.failf("face %d: not listed by vertex %d", id, v)
			}
			if m.FindEdge(v, f.V[(j+1)%3]) == NoEdge {
				c.failf("face %d: missing edge %d-%d", id, v, f.V[(j+1)%3])
			}
		}
		if m.Vertex(f.V[0]) == nil {
			continue
		}
		for _, t := range m.vertices[f.V[0]].tetras {
			tet := &m.tetras[t]
			k := tet.FaceIndex(f.V[0], f.V[1], f.V[2])
			if k < 0 {
				continue
			}
			if tet.N[k] == NoTetra && sameWinding(tet.FaceVertices(k), f.V) {
				owners++
			}
		}
		if owners != 1 {
			c.failf("face %d %v: bounds %d tetrahedra", id, f.V, owners)
		}
	}
	if n != m.nf || len(m.faceIndex) != n {
		c.failf("face count %d, counted %d, indexed %d", m.nf, n, len(m.faceIndex))
	}
}

func (m *Mesh) checkTetras(c *checker) {
	n := 0
tetras:
	for i := range m.tetras {
		t := &m.tetras[i]
		if !t.alive {
			continue
		}
		n++
		id := TetraID(i)
		for a := 0; a < 4; a++ {
			if m.Vertex(t.V[a]) == nil {
				c.failf("tetra %d: vertex %d missing", id, t.V[a])
				continue tetras
			}
			for b := a + 1; b < 4; b++ {
				if m.FindEdge(t.V[a], t.V[b]) == NoEdge {
					c.failf("tetra %d: missing edge %d-%d", id, t.V[a], t.V[b])
				}
			}
		}
		if vol := m.volume(t.V); vol < minCheckVolume {
			c.failf("tetra %d: volume %g", id, vol)
		}
		for k := 0; k < 4; k++ {
			fv := t.FaceVertices(k)
			nb := t.N[k]
			if nb == NoTetra {
				f := m.FindFace(fv[0], fv[1], fv[2])
				if f == NoFace {
					c.failf("tetra %d: boundary face %v has no outer face", id, fv)
				} else if !sameWinding(m.faces[f].V, fv) {
					c.failf("tetra %d: outer face %d wound inwards", id, f)
				}
				continue
			}
			nt := m.Tetra(nb)
			if nt == nil {
				c.failf("tetra %d: neighbour %d does not exist", id, nb)
				continue
			}
			j := nt.FaceIndex(fv[0], fv[1], fv[2])
			if j < 0 {
				c.failf("tetra %d: neighbour %d does not share face %v", id, nb, fv)
				continue
			}
			if nt.N[j] != id {
				c.failf("tetra %d: neighbour %d does not link back", id, nb)
			}
			if !sameWinding(nt.FaceVertices(j), reversed(fv)) {
				c.failf("tetra %d: neighbour %d overlaps", id, nb)
			}
			if m.FindFace(fv[0], fv[1], fv[2]) != NoFace {
				c.failf("tetra %d: interior face %v stored as outer", id, fv)
			}
		}
	}
	if n != m.nt {
		c.failf("tetra count %d, counted %d", m.nt, n)
	}
}
