package collision

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// minResponseDepth is the depth under which SimpleResponseB leaves a contact alone.
const minResponseDepth = 1e-8

// SimpleResponse moves every penetrating vertex out along its estimated
// direction and makes its previous position the pre-response one, so that a
// Verlet step sees a velocity proportional to the depth.
func (e *Engine) SimpleResponse() {
	for _, c := range e.contacts {
		v := c.Mesh.Vertex(c.Vertex)
		v.Prev = v.X
		v.X = r3.Add(v.X, r3.Scale(c.Depth, c.Direction))
	}
	e.logger().Debug("SimpleResponse", "contacts", len(e.contacts))
}

// SimpleResponseB moves every penetrating vertex out, reflects the normal
// component of its velocity scaled by the restitution coefficient and applies
// Coulomb friction to its accumulated force. It then calls AABBResponse.
func (e *Engine) SimpleResponseB() {
	for _, c := range e.contacts {
		if c.Depth < minResponseDepth {
			continue
		}
		v := c.Mesh.Vertex(c.Vertex)
		vel := r3.Sub(v.X, v.Prev)
		n := c.Direction
		if c.Border && r3.Norm2(c.Normal) > 0 {
			n = c.Normal
		}
		vdotn := r3.Dot(vel, n)
		vn := r3.Scale(vdotn, n)

		v.X = r3.Add(v.X, r3.Scale(c.Depth, c.Direction))
		if vdotn < 0 {
			v.Prev = r3.Add(v.X, r3.Scale(e.restitution, vn))
		} else {
			v.Prev = r3.Sub(v.X, vel)
		}

		fdotn := r3.Dot(v.F, n)
		if fdotn >= 0 {
			continue
		}
		ft := r3.Sub(v.F, r3.Scale(fdotn, n))
		if r3.Norm(ft) > math.Abs(e.staticFriction*fdotn) {
			v.F = r3.Add(ft, r3.Scale(fdotn*e.kineticFriction, unit(ft)))
		} else {
			v.F = r3.Vec{}
		}
	}
	e.AABBResponse()
}

// AABBResponse pushes every vertex of a dynamic mesh that left the world box
// back onto its boundary. A vertex moving outwards keeps its velocity; one
// already moving back keeps its previous position. Does nothing when no world
// box is set.
func (e *Engine) AABBResponse() {
	if e.world.Empty() {
		return
	}
	min, max := e.world.Min, e.world.Max
	moved := 0
	for i, m := range e.meshes {
		if e.static[i] {
			continue
		}
		for _, id := range m.Vertices() {
			v := m.Vertex(id)
			if v.Frozen || e.world.Contains(v.X) {
				continue
			}
			ll := r3.Sub(v.X, min)
			ur := r3.Sub(v.X, max)
			ll = r3.Vec{X: math.Min(ll.X, 0), Y: math.Min(ll.Y, 0), Z: math.Min(ll.Z, 0)}
			ur = r3.Vec{X: math.Max(ur.X, 0), Y: math.Max(ur.Y, 0), Z: math.Max(ur.Z, 0)}
			diff := r3.Scale(-1, r3.Add(ll, ur))
			n := unit(diff)
			vel := r3.Sub(v.X, v.Prev)
			v.X = r3.Add(v.X, diff)
			if r3.Dot(vel, n) >= 0 {
				v.Prev = r3.Sub(v.X, vel)
			}
			moved++
		}
	}
	if moved > 0 {
		e.logger().Debug("AABBResponse", "moved", moved)
	}
}
