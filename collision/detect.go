package collision

import (
	"math"
	"sort"

	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/internal/d3"
	"github.com/eigenbom/sds/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// vref is a vertex of the i-th registered mesh.
type vref struct {
	m int
	v mesh.VertexID
}

func less(a, b vref) bool {
	if a.m != b.m {
		return a.m < b.m
	}
	return a.v < b.v
}

// hashVertices buckets the non-frozen vertices of the dynamic meshes.
func (e *Engine) hashVertices(g grid) map[voxel][]vref {
	h := make(map[voxel][]vref)
	for i, m := range e.meshes {
		if e.static[i] {
			continue
		}
		for _, v := range m.Vertices() {
			vert := m.Vertex(v)
			if vert.Frozen {
				continue
			}
			k := g.voxel(vert.X)
			h[k] = append(h[k], vref{i, v})
		}
	}
	return h
}

// classify tags every tetra of every mesh as intersected or not and calls
// hit for each vertex found inside a tetra it does not belong to. hit may
// return false to exclude the vertex from further tests.
func (e *Engine) classify(op string, g grid, h map[voxel][]vref, hit func(vref) bool) error {
	done := make(map[vref]bool)
	for i, m := range e.meshes {
		for _, t := range m.Tetras() {
			tet := m.Tetra(t)
			tet.Intersected = false
			box := tet.Box()
			if !box.Valid() {
				return sds.Errorf(sds.KindCollision, op, "tetra %d has an invalid bounding box", t)
			}
			a, b, c, d := m.Vertex(tet.V[0]).X, m.Vertex(tet.V[1]).X, m.Vertex(tet.V[2]).X, m.Vertex(tet.V[3]).X
			g.span(box.Min, box.Max, func(k voxel) {
				for _, r := range h[k] {
					if done[r] || (r.m == i && tet.Index(r.v) >= 0) {
						continue
					}
					x := e.meshes[r.m].Vertex(r.v).X
					if !box.Contains(x) {
						continue
					}
					bary, ok := d3.Barycentric(x, a, b, c, d)
					if !ok || !d3.InTetra(bary) {
						continue
					}
					tet.Intersected = true
					if hit != nil && !hit(r) {
						done[r] = true
					}
				}
			})
		}
	}
	return nil
}

// DetectCollisions tags every tetra containing a vertex of another element
// as intersected. It does not estimate any response.
func (e *Engine) DetectCollisions() error {
	const op = "DetectCollisions"
	if err := e.prepare(op); err != nil {
		return err
	}
	g := grid{size: e.cellSize}
	return e.classify(op, g, e.hashVertices(g), nil)
}

// EstimateDepthAndDirection classifies vertices as colliding, then estimates
// the penetration depth and direction of every colliding vertex. Results are
// available through Colliding and IntersectingEdges.
func (e *Engine) EstimateDepthAndDirection() error {
	const op = "EstimateDepthAndDirection"
	e.contacts, e.edges, e.stalled = e.contacts[:0], e.edges[:0], 0
	if err := e.prepare(op); err != nil {
		return err
	}
	g := grid{size: e.cellSize}

	// Point classification.
	colliding := make(map[vref]bool)
	var order []vref
	err := e.classify(op, g, e.hashVertices(g), func(r vref) bool {
		colliding[r] = true
		order = append(order, r)
		return false
	})
	if err != nil {
		return err
	}
	sort.Slice(order, func(i, j int) bool { return less(order[i], order[j]) })

	// Border points and intersecting edges.
	border := make(map[vref]bool)
	for _, r := range order {
		m := e.meshes[r.m]
		for _, n := range m.Vertex(r.v).Neighbours() {
			if colliding[vref{r.m, n}] {
				continue
			}
			border[r] = true
			e.edges = append(e.edges, IntersectingEdge{Mesh: m, A: r.v, B: n, Face: mesh.NoFace})
		}
	}

	// Voxelize intersecting edges.
	eh := make(map[voxel][]int)
	for i, ie := range e.edges {
		a, b := ie.Mesh.Vertex(ie.A).X, ie.Mesh.Vertex(ie.B).X
		g.traverse(a, b, func(k voxel) {
			eh[k] = append(eh[k], i)
		})
	}
	if len(e.edges) > 0 {
		e.intersectSurface(g, eh)
	}

	// Depth at border points.
	type acc struct {
		depth, weight float64
		dir, normal   r3.Vec
	}
	data := make(map[vref]*acc)
	for _, r := range order {
		if border[r] {
			data[r] = &acc{}
		}
	}
	for _, ie := range e.edges {
		if !ie.Set {
			continue
		}
		r := vref{e.meshIndex(ie.Mesh), ie.A}
		p := data[r]
		if p == nil {
			return sds.Errorf(sds.KindCollision, op, "no penetration data for vertex %d", ie.A)
		}
		a := ie.Mesh.Vertex(ie.A).X
		p.normal = ie.FaceMesh.FaceNormal(ie.Face)
		d2 := r3.Norm2(r3.Sub(ie.P, a))
		if d2 < sds.Epsilon {
			p.weight++
			p.dir = r3.Add(p.dir, r3.Vec{Y: 1})
			continue
		}
		w := 1 / d2
		p.depth += w * r3.Dot(r3.Sub(ie.P, a), ie.N)
		p.weight += w
		p.dir = r3.Add(p.dir, r3.Scale(w, ie.N))
	}
	processed := make(map[vref]int)
	var pending []vref
	for _, r := range order {
		p := data[r]
		if p == nil || p.weight == 0 {
			// Interior points, and border points whose edges cut no face,
			// are reached by propagation.
			pending = append(pending, r)
			continue
		}
		e.contacts = append(e.contacts, Contact{
			Mesh:      e.meshes[r.m],
			Vertex:    r.v,
			Depth:     p.depth / p.weight,
			Direction: unit(p.dir),
			Normal:    p.normal,
			Border:    true,
		})
	}
	for i, c := range e.contacts {
		processed[vref{e.meshIndex(c.Mesh), c.Vertex}] = i
	}

	// Propagation.
	inPending := make(map[vref]bool, len(pending))
	for _, r := range pending {
		inPending[r] = true
	}
	for len(pending) > 0 {
		next := -1
		for k, r := range pending {
			ready := true
			for _, n := range e.meshes[r.m].Vertex(r.v).Neighbours() {
				if inPending[vref{r.m, n}] {
					ready = false
					break
				}
			}
			if ready {
				next = k
				break
			}
		}
		if next < 0 {
			break
		}
		r := pending[next]
		pending = append(pending[:next], pending[next+1:]...)
		delete(inPending, r)

		m := e.meshes[r.m]
		x := m.Vertex(r.v).X
		var depth, weight float64
		var dir r3.Vec
		for _, n := range m.Vertex(r.v).Neighbours() {
			i, ok := processed[vref{r.m, n}]
			if !ok {
				continue
			}
			pc := e.contacts[i]
			vx := m.Vertex(n).X
			w := 1 / r3.Norm2(r3.Sub(vx, x))
			depth += w * (r3.Dot(r3.Sub(vx, x), pc.Direction) + pc.Depth)
			weight += w
			dir = r3.Add(dir, r3.Scale(w, pc.Direction))
		}
		if weight == 0 || math.IsInf(weight, 0) {
			e.stalled++
			continue
		}
		processed[r] = len(e.contacts)
		e.contacts = append(e.contacts, Contact{
			Mesh:      m,
			Vertex:    r.v,
			Depth:     depth / weight,
			Direction: unit(dir),
		})
	}
	e.stalled += len(pending)
	if e.stalled > 0 {
		e.logger().Warn("penetration propagation stalled", "unprocessed", e.stalled)
	}
	e.logger().Debug(op, "colliding", len(order), "edges", len(e.edges), "contacts", len(e.contacts))
	return nil
}

// intersectSurface finds, for every intersecting edge, the outer face it
// crosses nearest to its non-colliding end.
func (e *Engine) intersectSurface(g grid, eh map[voxel][]int) {
	for _, m := range e.meshes {
		for _, f := range m.OuterFaces() {
			fv := m.Face(f).V
			a, b, c := m.Vertex(fv[0]).X, m.Vertex(fv[1]).X, m.Vertex(fv[2]).X
			n := m.FaceNormal(f)
			box := d3.BoxOf(a, b, c)
			g.span(box.Min, box.Max, func(k voxel) {
				list := eh[k]
				if len(list) == 0 || !planeCrossesVoxel(g, k, a, n) {
					return
				}
				for _, i := range list {
					ie := &e.edges[i]
					if ie.Mesh == m && (containsVertex(fv, ie.A) || containsVertex(fv, ie.B)) {
						continue
					}
					if ie.Set && ie.FaceMesh == m && ie.Face == f {
						continue
					}
					pa, pb := ie.Mesh.Vertex(ie.A).X, ie.Mesh.Vertex(ie.B).X
					t, ok := d3.SegmentPlane(pa, pb, a, n)
					if !ok {
						continue
					}
					p := r3.Add(pa, r3.Scale(t, r3.Sub(pb, pa)))
					u, v, ok := d3.TriangleBarycentric(p, a, b, c)
					if !ok || u < 0 || v < 0 || u+v > 1 {
						continue
					}
					if ie.Set && r3.Norm2(r3.Sub(p, pb)) >= r3.Norm2(r3.Sub(ie.P, pb)) {
						continue
					}
					ie.Set = true
					ie.FaceMesh, ie.Face, ie.P = m, f, p
					ie.N = interpolateNormal(m, fv, p)
				}
			})
		}
	}
}

// planeCrossesVoxel reports whether the plane through q with normal n
// separates the voxel corners nearest and farthest along n.
func planeCrossesVoxel(g grid, k voxel, q, n r3.Vec) bool {
	lo, hi := k, k
	for i, c := range [3]float64{n.X, n.Y, n.Z} {
		if c > 0 {
			hi[i]++
		} else {
			lo[i]++
		}
	}
	return r3.Dot(r3.Sub(g.corner(lo), q), n) <= 0 && r3.Dot(r3.Sub(g.corner(hi), q), n) >= 0
}

// interpolateNormal blends the vertex normals of face fv at p with weights
// inversely proportional to the distance from p to each vertex.
func interpolateNormal(m *mesh.Mesh, fv [3]mesh.VertexID, p r3.Vec) r3.Vec {
	var n r3.Vec
	for _, v := range fv {
		d := r3.Norm(r3.Sub(m.Vertex(v).X, p))
		if d < sds.Epsilon {
			return m.VertexNormal(v)
		}
		n = r3.Add(n, r3.Scale(1/d, m.VertexNormal(v)))
	}
	return unit(n)
}

func containsVertex(fv [3]mesh.VertexID, v mesh.VertexID) bool {
	return fv[0] == v || fv[1] == v || fv[2] == v
}

func unit(v r3.Vec) r3.Vec {
	l := r3.Norm(v)
	if l == 0 {
		return v
	}
	return r3.Scale(1/l, v)
}

func (e *Engine) meshIndex(m *mesh.Mesh) int {
	for i, x := range e.meshes {
		if x == m {
			return i
		}
	}
	return -1
}
