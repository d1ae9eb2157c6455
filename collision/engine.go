// Package collision detects vertices of deformable meshes penetrating other
// tetrahedra and estimates how far and in which direction each must move to
// leave the solid it entered.
//
// Vertices are hashed into a uniform grid whose cell size is the mean rest
// length of the registered edges. Depth estimation follows Heidelberger et
// al., "Consistent penetration depth estimation for deformable collision
// response" (2004): border points get their depth from the surface faces cut
// by their edges, interior points inherit it from processed neighbours.
package collision

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/internal/d3"
	"github.com/eigenbom/sds/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used instead of sds.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithWorld sets the box vertices of dynamic meshes are kept inside by
// AABBResponse.
func WithWorld(b r3.Box) Option {
	return func(e *Engine) { e.world = d3.Box(b) }
}

// WithRestitution sets the coefficient of restitution applied by SimpleResponseB.
func WithRestitution(c float64) Option {
	return func(e *Engine) { e.restitution = c }
}

// WithFriction sets the static and kinetic friction coefficients applied by
// SimpleResponseB.
func WithFriction(static, kinetic float64) Option {
	return func(e *Engine) {
		e.staticFriction = static
		e.kineticFriction = kinetic
	}
}

// Contact is the penetration estimate of one vertex.
type Contact struct {
	Mesh   *mesh.Mesh
	Vertex mesh.VertexID
	// Depth along Direction the vertex must move to leave the solid.
	Depth     float64
	Direction r3.Vec
	// Normal is the normal of the last surface face cut by an edge of a
	// border point; zero for vertices reached by propagation.
	Normal r3.Vec
	Border bool
}

// IntersectingEdge is an edge from a colliding vertex A to a non-colliding
// neighbour B. When Set, P is the point where the edge crosses the outer
// face Face of FaceMesh nearest to B and N the surface normal there.
type IntersectingEdge struct {
	Mesh     *mesh.Mesh
	A, B     mesh.VertexID
	Set      bool
	FaceMesh *mesh.Mesh
	Face     mesh.FaceID
	P, N     r3.Vec
}

// Engine holds the registered meshes and the results of the last pass.
// It is not safe for concurrent use.
type Engine struct {
	log             *slog.Logger
	world           d3.Box
	restitution     float64
	staticFriction  float64
	kineticFriction float64

	meshes []*mesh.Mesh
	static []bool

	cellSize float64
	numEdges int

	contacts []Contact
	edges    []IntersectingEdge
	stalled  int
}

// New returns an engine with no meshes. Restitution and friction default to
// zero and there is no world box.
func New(opts ...Option) *Engine {
	e := &Engine{world: d3.EmptyBox()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) logger() *slog.Logger {
	if e.log != nil {
		return e.log
	}
	return sds.Logger()
}

// AddMesh registers a dynamic mesh. Its vertices may penetrate any
// registered mesh and are moved by the responses.
func (e *Engine) AddMesh(m *mesh.Mesh) { e.add(m, false) }

// AddStaticMesh registers an obstacle. Its vertices are never tested.
func (e *Engine) AddStaticMesh(m *mesh.Mesh) { e.add(m, true) }

func (e *Engine) add(m *mesh.Mesh, static bool) {
	e.meshes = append(e.meshes, m)
	e.static = append(e.static, static)
	var sum float64
	for _, id := range m.Edges() {
		edge := m.Edge(id)
		sum += edge.Rest * edge.RestMultiplier
	}
	total := e.cellSize*float64(e.numEdges) + sum
	e.numEdges += m.NumEdges()
	if e.numEdges > 0 {
		e.cellSize = total / float64(e.numEdges)
	}
	m.ClearTopologyChanged()
}

// Reset forgets all meshes and results.
func (e *Engine) Reset() {
	e.meshes, e.static = nil, nil
	e.cellSize, e.numEdges = 0, 0
	e.contacts, e.edges = nil, nil
}

// SetWorld sets the world box.
func (e *Engine) SetWorld(b r3.Box) { e.world = d3.Box(b) }

// World returns the world box.
func (e *Engine) World() r3.Box { return r3.Box(e.world) }

// CellSize returns the edge length of the hash grid cells.
func (e *Engine) CellSize() float64 { return e.cellSize }

// Colliding returns the penetration estimates of the last
// EstimateDepthAndDirection call, border points first.
func (e *Engine) Colliding() []Contact { return e.contacts }

// IntersectingEdges returns the intersecting edges of the last
// EstimateDepthAndDirection call.
func (e *Engine) IntersectingEdges() []IntersectingEdge { return e.edges }

// recalibrate recomputes the cell size if a mesh changed topology since the
// last pass.
func (e *Engine) recalibrate() {
	changed := false
	for _, m := range e.meshes {
		if m.TopologyChanged() {
			changed = true
			break
		}
	}
	if !changed {
		return
	}
	meshes, static := e.meshes, e.static
	e.Reset()
	for i, m := range meshes {
		e.add(m, static[i])
	}
	e.logger().Debug("collision cell size recalibrated", "cell_size", e.cellSize)
}

func (e *Engine) prepare(op string) error {
	e.recalibrate()
	if e.cellSize <= 0 {
		return sds.Errorf(sds.KindCollision, op, "cell size %g", e.cellSize)
	}
	for _, m := range e.meshes {
		m.UpdateBoxes()
	}
	return nil
}

// String describes the engine state and the last pass.
func (e *Engine) String() string {
	var b strings.Builder
	s := e.Stats()
	fmt.Fprintf(&b, "restitution: %g\n", e.restitution)
	fmt.Fprintf(&b, "kinetic friction: %g\n", e.kineticFriction)
	fmt.Fprintf(&b, "static friction: %g\n", e.staticFriction)
	fmt.Fprintf(&b, "cell size: %g\n", e.cellSize)
	fmt.Fprintf(&b, "edges: %d\n", e.numEdges)
	fmt.Fprintf(&b, "penetrations: %d\n", s.Contacts)
	fmt.Fprintf(&b, "total depth: %g\n", s.TotalDepth)
	fmt.Fprintf(&b, "mean depth: %g\n", s.MeanDepth)
	return b.String()
}
