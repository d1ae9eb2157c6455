package mesh

// FindEdge returns the edge joining a and b or NoEdge.
func (m *Mesh) FindEdge(a, b VertexID) EdgeID {
	if id, ok := m.edgeIndex[makeEdgeKey(a, b)]; ok {
		return id
	}
	return NoEdge
}

// FindFace returns an outer face containing all of the one to three argument
// vertices, or NoFace.
func (m *Mesh) FindFace(vs ...VertexID) FaceID {
	switch len(vs) {
	case 0:
		return NoFace
	case 3:
		if vs[0] == vs[1] || vs[1] == vs[2] || vs[0] == vs[2] {
			return NoFace
		}
		if id, ok := m.faceIndex[makeFaceKey([3]VertexID{vs[0], vs[1], vs[2]})]; ok {
			return id
		}
		return NoFace
	}
	v := m.Vertex(vs[0])
	if v == nil {
		return NoFace
	}
	for _, f := range v.faces {
		if m.faces[f].Contains(vs[1:]...) {
			return f
		}
	}
	return NoFace
}

// FindTetra returns a tetra containing all of the one to four argument
// vertices, or NoTetra.
func (m *Mesh) FindTetra(vs ...VertexID) TetraID {
	if len(vs) == 0 {
		return NoTetra
	}
	v := m.Vertex(vs[0])
	if v == nil {
		return NoTetra
	}
	for _, t := range v.tetras {
		if m.tetras[t].Contains(vs[1:]...) {
			return t
		}
	}
	return NoTetra
}

// TetrasWith returns every tetra containing all argument vertices.
func (m *Mesh) TetrasWith(vs ...VertexID) []TetraID {
	if len(vs) == 0 {
		return nil
	}
	v := m.Vertex(vs[0])
	if v == nil {
		return nil
	}
	var ts []TetraID
	for _, t := range v.tetras {
		if m.tetras[t].Contains(vs[1:]...) {
			ts = append(ts, t)
		}
	}
	return ts
}

// Incident returns the tetrahedra containing v.
func (m *Mesh) Incident(v VertexID) []TetraID {
	vert := m.Vertex(v)
	if vert == nil {
		return nil
	}
	return append([]TetraID(nil), vert.tetras...)
}

// AdjacentFaces returns the two outer faces sharing edge e. Either may be
// NoFace if e is not a surface edge.
func (m *Mesh) AdjacentFaces(e EdgeID) (FaceID, FaceID) {
	f0, f1 := NoFace, NoFace
	edge := m.Edge(e)
	if edge == nil {
		return f0, f1
	}
	for _, f := range m.vertices[edge.V[0]].faces {
		if !m.faces[f].Contains(edge.V[1]) {
			continue
		}
		if f0 == NoFace {
			f0 = f
		} else {
			f1 = f
			break
		}
	}
	return f0, f1
}

// NeighbourAcross returns the tetra sharing the face opposite V[i] of t
// found by vertex lookup, independent of t.N.
func (m *Mesh) NeighbourAcross(t TetraID, i int) TetraID {
	f := m.tetras[t].FaceVertices(i)
	for _, c := range m.vertices[f[0]].tetras {
		if c != t && m.tetras[c].Contains(f[1], f[2]) {
			return c
		}
	}
	return NoTetra
}

// EdgeRing returns the tetrahedra around edge ab in rotation order, walking
// neighbour links across the faces containing ab. For a surface edge the walk
// runs from one boundary face on ab to the other and closed is false.
// The ring is shorter than TetrasWith(a, b) only if neighbour links are broken.
func (m *Mesh) EdgeRing(a, b VertexID) (tets []TetraID, closed bool) {
	ts := m.TetrasWith(a, b)
	if len(ts) == 0 || a == b {
		return nil, false
	}
	start, from := ts[0], -1
search:
	for _, t := range ts {
		tet := &m.tetras[t]
		for i, v := range tet.V {
			if v != a && v != b && tet.N[i] == NoTetra {
				start, from = t, i
				break search
			}
		}
	}
	if from < 0 {
		tet := &m.tetras[start]
		for i, v := range tet.V {
			if v != a && v != b {
				from = i
				break
			}
		}
	}
	tets = append(tets, start)
	cur := start
	for len(tets) <= len(ts) {
		tet := &m.tetras[cur]
		k := -1
		for i, v := range tet.V {
			if v != a && v != b && i != from {
				k = i
			}
		}
		next := tet.N[k]
		switch next {
		case NoTetra:
			return tets, false
		case start:
			return tets, true
		}
		from = m.tetras[next].NeighbourIndex(cur)
		if from < 0 {
			break
		}
		tets = append(tets, next)
		cur = next
	}
	return tets, false
}
