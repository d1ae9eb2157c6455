package mesh

import (
	"math"

	"github.com/eigenbom/sds/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

func (m *Mesh) pos(tv [4]VertexID) (a, b, c, d r3.Vec) {
	return m.vertices[tv[0]].X, m.vertices[tv[1]].X, m.vertices[tv[2]].X, m.vertices[tv[3]].X
}

func (m *Mesh) volume(tv [4]VertexID) float64 {
	return d3.Volume(m.pos(tv))
}

func (m *Mesh) tetraBox(tv [4]VertexID) d3.Box {
	a, b, c, d := m.pos(tv)
	return d3.BoxOf(a, b, c, d)
}

// TetraVolume returns the signed volume of t.
func (m *Mesh) TetraVolume(t TetraID) float64 {
	return m.volume(m.tetras[t].V)
}

// TetraCenter returns the centroid of t.
func (m *Mesh) TetraCenter(t TetraID) r3.Vec {
	return d3.Centroid(m.pos(m.tetras[t].V))
}

// TetraCenterOfMass returns the mass weighted centre of the vertices of t.
// Falls back to the centroid when all vertices are massless.
func (m *Mesh) TetraCenterOfMass(t TetraID) r3.Vec {
	var sum r3.Vec
	var total float64
	for _, v := range m.tetras[t].V {
		vert := &m.vertices[v]
		sum = r3.Add(sum, r3.Scale(vert.M, vert.X))
		total += vert.M
	}
	if total <= 0 {
		return m.TetraCenter(t)
	}
	return r3.Scale(1/total, sum)
}

// FaceNormal returns the outward unit normal of outer face f.
func (m *Mesh) FaceNormal(f FaceID) r3.Vec {
	fv := m.faces[f].V
	return d3.Normal(m.vertices[fv[0]].X, m.vertices[fv[1]].X, m.vertices[fv[2]].X)
}

// FaceArea returns the current area of f.
func (m *Mesh) FaceArea(f FaceID) float64 {
	fv := m.faces[f].V
	return d3.Area(m.vertices[fv[0]].X, m.vertices[fv[1]].X, m.vertices[fv[2]].X)
}

// FaceCentroid returns the centroid of f.
func (m *Mesh) FaceCentroid(f FaceID) r3.Vec {
	fv := m.faces[f].V
	return d3.Centroid(m.vertices[fv[0]].X, m.vertices[fv[1]].X, m.vertices[fv[2]].X)
}

// FaceCenterOfMass returns the mass weighted centre of the vertices of f.
func (m *Mesh) FaceCenterOfMass(f FaceID) r3.Vec {
	var sum r3.Vec
	var total float64
	for _, v := range m.faces[f].V {
		vert := &m.vertices[v]
		sum = r3.Add(sum, r3.Scale(vert.M, vert.X))
		total += vert.M
	}
	if total <= 0 {
		return m.FaceCentroid(f)
	}
	return r3.Scale(1/total, sum)
}

// EdgeLength returns the current length of e.
func (m *Mesh) EdgeLength(e EdgeID) float64 {
	ev := m.edges[e].V
	return r3.Norm(r3.Sub(m.vertices[ev[1]].X, m.vertices[ev[0]].X))
}

// VertexNormal returns the angle weighted pseudo normal of a surface vertex,
// the zero vector for interior vertices.
func (m *Mesh) VertexNormal(v VertexID) r3.Vec {
	var n r3.Vec
	vert := &m.vertices[v]
	for _, f := range vert.faces {
		fv := m.faces[f].V
		j := m.faces[f].Index(v)
		p := vert.X
		s1 := r3.Sub(m.vertices[fv[(j+1)%3]].X, p)
		s2 := r3.Sub(m.vertices[fv[(j+2)%3]].X, p)
		if r3.Norm2(s1) == 0 || r3.Norm2(s2) == 0 {
			continue
		}
		alpha := math.Acos(math.Max(-1, math.Min(1, r3.Cos(s1, s2))))
		n = r3.Add(n, r3.Scale(alpha, m.FaceNormal(f)))
	}
	if l := r3.Norm(n); l > 0 {
		return r3.Scale(1/l, n)
	}
	return n
}

// Volume returns the sum of signed tetra volumes.
func (m *Mesh) Volume() float64 {
	var vol float64
	for i := range m.tetras {
		if m.tetras[i].alive {
			vol += m.volume(m.tetras[i].V)
		}
	}
	return vol
}

// Mass returns the total vertex mass.
func (m *Mesh) Mass() float64 {
	var mass float64
	for i := range m.vertices {
		if m.vertices[i].alive {
			mass += m.vertices[i].M
		}
	}
	return mass
}

// Bounds returns the bounding box of all vertices.
func (m *Mesh) Bounds() d3.Box {
	b := d3.EmptyBox()
	for i := range m.vertices {
		if m.vertices[i].alive {
			b = b.Include(m.vertices[i].X)
		}
	}
	return b
}

// UpdateBoxes recomputes the bounding box of every tetra from current
// vertex positions.
func (m *Mesh) UpdateBoxes() {
	for i := range m.tetras {
		if m.tetras[i].alive {
			m.tetras[i].box = m.tetraBox(m.tetras[i].V)
		}
	}
}

// Translate moves every vertex, including its previous position, by v.
func (m *Mesh) Translate(v r3.Vec) {
	for i := range m.vertices {
		vert := &m.vertices[i]
		vert.X = r3.Add(vert.X, v)
		vert.Prev = r3.Add(vert.Prev, v)
	}
	m.UpdateBoxes()
}

// Scale scales every vertex position about origin by factor k.
func (m *Mesh) Scale(origin r3.Vec, k float64) {
	scale := func(p r3.Vec) r3.Vec {
		return r3.Add(origin, r3.Scale(k, r3.Sub(p, origin)))
	}
	for i := range m.vertices {
		vert := &m.vertices[i]
		vert.X = scale(vert.X)
		vert.Prev = scale(vert.Prev)
	}
	m.UpdateBoxes()
}

// QualityStats summarises element shape.
type QualityStats struct {
	// Radius ratio statistics, 1 is a regular tetrahedron.
	Min, Mean, StdDev float64
	// Inverted counts tetrahedra with non-positive volume.
	Inverted int
}

// Quality returns radius ratio statistics over all tetrahedra.
func (m *Mesh) Quality() QualityStats {
	ratios := make([]float64, 0, m.nt)
	var q QualityStats
	for i := range m.tetras {
		t := &m.tetras[i]
		if !t.alive {
			continue
		}
		if m.volume(t.V) <= 0 {
			q.Inverted++
		}
		ratios = append(ratios, d3.RadiusRatio(m.pos(t.V)))
	}
	if len(ratios) == 0 {
		return q
	}
	q.Min = ratios[0]
	for _, r := range ratios {
		q.Min = math.Min(q.Min, r)
	}
	q.Mean, q.StdDev = stat.MeanStdDev(ratios, nil)
	return q
}
