package mesh

import (
	"math"

	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Patch describes the elements touched by Replace.
type Patch struct {
	Removed  []TetraID
	Added    []TetraID
	NewEdges []EdgeID
	NewFaces []FaceID
	// Counts of edges and outer faces deleted because they no longer
	// bound the mesh.
	DeletedEdges int
	DeletedFaces int
}

// Vertices returns the distinct vertices of the added tetrahedra.
func (p Patch) Vertices(m *Mesh) []VertexID {
	seen := make(map[VertexID]bool)
	var vs []VertexID
	for _, t := range p.Added {
		tet := m.Tetra(t)
		if tet == nil {
			continue
		}
		for _, v := range tet.V {
			if !seen[v] {
				seen[v] = true
				vs = append(vs, v)
			}
		}
	}
	return vs
}

// minRelVolume is the smallest accepted tetra volume relative to the cube of
// its longest edge.
const minRelVolume = 1e-12

type fragFace struct {
	tet  int // Index into the added list.
	i    int // Opposite vertex index.
	v    [3]VertexID
	twin int // Index of the paired fragment face, -1 if none.
	// External match.
	ext  TetraID
	extI int
	// Reused outer face.
	outer FaceID
}

// Replace removes the tetrahedra in remove and inserts the tetrahedra in
// add, relinking neighbours, outer faces and edges. Every added tetra must
// be positively oriented. The operation is validated before the mesh is
// touched: on error the mesh is unchanged.
//
// Faces of the new fragment that match a face of a tetra outside the removed
// set are glued to it. Unmatched fragment faces become outer faces, and so
// do faces of kept tetrahedra whose neighbour was removed without a
// replacement.
func (m *Mesh) Replace(remove []TetraID, add [][4]VertexID) (Patch, error) {
	const op = "Replace"
	removed := make(map[TetraID]bool, len(remove))
	for _, t := range remove {
		if m.Tetra(t) == nil {
			return Patch{}, sds.Errorf(sds.KindNotFound, op, "tetra %d does not exist", t)
		}
		if removed[t] {
			return Patch{}, sds.Errorf(sds.KindPrecondition, op, "tetra %d removed twice", t)
		}
		removed[t] = true
	}
	for j, tv := range add {
		if err := m.checkNewTetra(op, j, tv); err != nil {
			return Patch{}, err
		}
	}

	// Pair up fragment faces.
	frags := make([]fragFace, 0, 4*len(add))
	byKey := make(map[faceKey]int, 4*len(add))
	for j, tv := range add {
		for i := 0; i < 4; i++ {
			fv := tetraFace(tv, i)
			f := fragFace{tet: j, i: i, v: fv, twin: -1, ext: NoTetra, outer: NoFace}
			k := makeFaceKey(fv)
			idx, ok := byKey[k]
			if !ok {
				byKey[k] = len(frags)
				frags = append(frags, f)
				continue
			}
			other := &frags[idx]
			if other.twin >= 0 {
				return Patch{}, sds.Errorf(sds.KindTetrahedralize, op, "face %v shared by more than two new tetrahedra", fv)
			}
			if !sameWinding(other.v, reversed(fv)) {
				return Patch{}, sds.Errorf(sds.KindTetrahedralize, op, "new tetrahedra overlap across face %v", fv)
			}
			f.twin = idx
			other.twin = len(frags)
			frags = append(frags, f)
		}
	}

	// Glue unpaired faces to the rest of the mesh.
	type slot struct {
		t TetraID
		i int
	}
	glued := make(map[slot]bool)
	newOuter := make(map[faceKey]bool)
	for n := range frags {
		f := &frags[n]
		if f.twin >= 0 {
			continue
		}
		for _, c := range m.vertices[f.v[0]].tetras {
			if removed[c] || !m.tetras[c].Contains(f.v[1], f.v[2]) {
				continue
			}
			if f.ext != NoTetra {
				return Patch{}, sds.Errorf(sds.KindTetrahedralize, op, "face %v already shared by two tetrahedra", f.v)
			}
			ct := &m.tetras[c]
			k := ct.FaceIndex(f.v[0], f.v[1], f.v[2])
			if !sameWinding(tetraFace(ct.V, k), reversed(f.v)) {
				return Patch{}, sds.Errorf(sds.KindTetrahedralize, op, "new tetra overlaps tetra %d", c)
			}
			if nb := ct.N[k]; nb != NoTetra && !removed[nb] {
				return Patch{}, sds.Errorf(sds.KindTetrahedralize, op, "face %v of tetra %d is already interior", f.v, c)
			}
			f.ext, f.extI = c, k
			glued[slot{c, k}] = true
		}
		if f.ext != NoTetra {
			continue
		}
		k := makeFaceKey(f.v)
		if id, ok := m.faceIndex[k]; ok {
			if !sameWinding(m.faces[id].V, f.v) {
				return Patch{}, sds.Errorf(sds.KindTetrahedralize, op, "outer face %d has inconsistent winding", id)
			}
			f.outer = id
		}
		newOuter[k] = true
	}

	// Faces of kept tetrahedra that lose their neighbour become boundary.
	var exposed []slot
	for _, t := range remove {
		rt := &m.tetras[t]
		for _, nb := range rt.N {
			if nb == NoTetra || removed[nb] {
				continue
			}
			k := m.tetras[nb].NeighbourIndex(t)
			if k >= 0 && !glued[slot{nb, k}] {
				exposed = append(exposed, slot{nb, k})
			}
		}
	}

	// Validation done, mutate.
	var p Patch
	p.Removed = append(p.Removed, remove...)

	// Outer faces of removed and newly glued tetrahedra that are not part of
	// the new boundary.
	var drop []FaceID
	for _, t := range remove {
		rt := &m.tetras[t]
		for i, nb := range rt.N {
			if nb != NoTetra {
				continue
			}
			fv := tetraFace(rt.V, i)
			k := makeFaceKey(fv)
			if id, ok := m.faceIndex[k]; ok && !newOuter[k] {
				drop = append(drop, id)
			}
		}
	}
	for s := range glued {
		if m.tetras[s.t].N[s.i] != NoTetra {
			continue
		}
		if id := m.FindFace(tetraFaceVertices(m.tetras[s.t].V, s.i)...); id != NoFace {
			drop = append(drop, id)
		}
	}

	var touched []VertexID
	for _, t := range remove {
		touched = append(touched, m.tetras[t].V[:]...)
		m.detachTetra(t)
	}

	p.Added = make([]TetraID, len(add))
	for j, tv := range add {
		p.Added[j] = m.AddTetra(tv[0], tv[1], tv[2], tv[3])
	}
	for n := range frags {
		f := &frags[n]
		id := p.Added[f.tet]
		switch {
		case f.twin >= 0:
			m.tetras[id].N[f.i] = p.Added[frags[f.twin].tet]
		case f.ext != NoTetra:
			m.tetras[id].N[f.i] = f.ext
			m.tetras[f.ext].N[f.extI] = id
		}
	}

	for _, id := range drop {
		if m.Face(id) != nil {
			m.DeleteFace(id)
			p.DeletedFaces++
		}
	}
	for n := range frags {
		f := &frags[n]
		if f.twin >= 0 || f.ext != NoTetra || f.outer != NoFace {
			continue
		}
		p.NewFaces = append(p.NewFaces, m.AddOuterFace(f.v[0], f.v[1], f.v[2]))
	}
	for _, s := range exposed {
		m.tetras[s.t].N[s.i] = NoTetra
		fv := tetraFace(m.tetras[s.t].V, s.i)
		p.NewFaces = append(p.NewFaces, m.AddOuterFace(fv[0], fv[1], fv[2]))
	}

	for _, tv := range add {
		for a := 0; a < 3; a++ {
			for b := a + 1; b < 4; b++ {
				if m.FindEdge(tv[a], tv[b]) == NoEdge {
					p.NewEdges = append(p.NewEdges, m.AddEdge(tv[a], tv[b], 0))
				}
			}
		}
	}
	for a := 0; a < len(touched); a++ {
		for b := a + 1; b < len(touched); b++ {
			va, vb := touched[a], touched[b]
			if va == vb {
				continue
			}
			e := m.FindEdge(va, vb)
			if e != NoEdge && m.FindTetra(va, vb) == NoTetra {
				m.DeleteEdge(e)
				p.DeletedEdges++
			}
		}
	}
	m.touch()
	return p, nil
}

func tetraFaceVertices(v [4]VertexID, i int) []VertexID {
	f := tetraFace(v, i)
	return f[:]
}

func (m *Mesh) checkNewTetra(op string, j int, tv [4]VertexID) error {
	for a := 0; a < 4; a++ {
		if m.Vertex(tv[a]) == nil {
			return sds.Errorf(sds.KindNotFound, op, "new tetra %d: vertex %d does not exist", j, tv[a])
		}
		for b := a + 1; b < 4; b++ {
			if tv[a] == tv[b] {
				return sds.Errorf(sds.KindDegenerate, op, "new tetra %d: repeated vertex %d", j, tv[a])
			}
		}
	}
	a, b, c, d := m.pos(tv)
	var longest float64
	for _, e := range [6]r3.Vec{r3.Sub(b, a), r3.Sub(c, a), r3.Sub(d, a), r3.Sub(c, b), r3.Sub(d, b), r3.Sub(d, c)} {
		longest = math.Max(longest, r3.Norm(e))
	}
	if vol := d3.Volume(a, b, c, d); vol <= minRelVolume*longest*longest*longest {
		return sds.Errorf(sds.KindDegenerate, op, "new tetra %d %v has volume %g", j, tv, vol)
	}
	return nil
}
