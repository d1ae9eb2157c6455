// Package transform implements cell division and the other topology changing
// operators on an organism's tetrahedral mesh.
//
// Every operator validates its replacement fragment through mesh.Replace
// before the mesh is modified, so a failed operator leaves the mesh and the
// organism as they were. Operators report failure with an *sds.Error and
// leave the engine in StateError until the next call.
package transform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/mesh"
	"github.com/eigenbom/sds/organism"
	"gonum.org/v1/gonum/spatial/r3"
)

// State of an Engine.
type State int

const (
	StateCompleted State = iota
	StateTransforming
	StateError
)

func (s State) String() string {
	switch s {
	case StateCompleted:
		return "completed"
	case StateTransforming:
		return "transforming"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Default parameters.
const (
	DefaultInternalAngle = 0.5
	DefaultSurfaceAngle  = 0.5
	DefaultFlipLimit     = 256
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used instead of sds.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithAngleThresholds sets the maximum angle in radians between the division
// direction and a neighbouring cell for the division to split the edge to
// that neighbour, for interior and surface cells respectively.
func WithAngleThresholds(internal, surface float64) Option {
	return func(e *Engine) {
		e.internalAngle = internal
		e.surfaceAngle = surface
	}
}

// WithFlipLimit caps the number of Delaunay flips after a re-tetrahedralization.
func WithFlipLimit(n int) Option {
	return func(e *Engine) { e.flipLimit = n }
}

// Engine applies topology operators to an organism. It is not safe for
// concurrent use and must not run while a collision pass reads the mesh.
type Engine struct {
	o *organism.Organism
	m *mesh.Mesh

	log           *slog.Logger
	internalAngle float64
	surfaceAngle  float64
	flipLimit     int

	state State
	err   error
	op    string
	props []slog.Attr
}

// New returns an engine operating on o.
func New(o *organism.Organism, opts ...Option) *Engine {
	e := &Engine{
		o:             o,
		m:             o.Mesh(),
		internalAngle: DefaultInternalAngle,
		surfaceAngle:  DefaultSurfaceAngle,
		flipLimit:     DefaultFlipLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Outcome is the result of a division. Op names the operator that divided the
// cell, which differs from the called operator for the front-ends.
type Outcome struct {
	Parent, Daughter *organism.Cell
	Op               string
}

// State returns the state after the last operator.
func (e *Engine) State() State { return e.state }

// Err returns the error of the last operator, nil unless State is StateError.
func (e *Engine) Err() error { return e.err }

// Properties returns the property log of the last operator. The slice is
// reused by the next operator.
func (e *Engine) Properties() []slog.Attr { return e.props }

func (e *Engine) logger() *slog.Logger {
	if e.log != nil {
		return e.log
	}
	return sds.Logger()
}

func (e *Engine) begin(op string) {
	e.op = op
	e.state = StateTransforming
	e.err = nil
	e.props = e.props[:0]
}

func (e *Engine) prop(key string, value any) {
	e.props = append(e.props, slog.Any(key, value))
}

// end finishes the current operator.
func (e *Engine) end(err error) error {
	l := e.logger()
	if err != nil {
		e.state = StateError
		e.err = err
		if l.Enabled(context.Background(), slog.LevelDebug) {
			l.LogAttrs(context.Background(), slog.LevelDebug, e.op+" failed", append(e.props, slog.String("err", err.Error()))...)
		}
		return err
	}
	e.state = StateCompleted
	l.LogAttrs(context.Background(), slog.LevelDebug, e.op, e.props...)
	return nil
}

func (e *Engine) errorf(kind sds.Kind, format string, args ...any) error {
	return sds.Errorf(kind, e.op, format, args...)
}

func (e *Engine) wrap(kind sds.Kind, err error) error {
	return sds.Wrap(kind, e.op, err)
}

// cellOf checks that c is a live cell of the engine's organism.
func (e *Engine) cellOf(c *organism.Cell) error {
	if c == nil {
		return e.errorf(sds.KindPrecondition, "nil cell")
	}
	if e.o.Cell(c.Vertex()) != c || e.m.Vertex(c.Vertex()) == nil {
		return e.errorf(sds.KindNotFound, "cell %d not in organism", c.Vertex())
	}
	return nil
}

// split places a daughter of c at x, replaces the tetrahedra in remove by
// the ones build returns and halves the mass of c between parent and
// daughter. build receives the daughter's vertex. m0 is the mass c had
// before the operator started; c is restored to it on failure.
func (e *Engine) split(op string, c *organism.Cell, m0 float64, x r3.Vec, remove []mesh.TetraID, build func(d mesh.VertexID) [][4]mesh.VertexID) (Outcome, error) {
	half := m0 / 2
	d := e.m.AddVertex(x, half)
	p, err := e.m.Replace(remove, build(d))
	if err != nil {
		e.m.RemoveVertex(d)
		c.SetM(m0)
		return Outcome{}, e.wrap(sds.KindTetrahedralize, err)
	}
	c.SetM(half)
	dc := e.o.AddCell(d)
	dc.Drdt = c.Drdt
	e.o.UpdateRest(append(p.Vertices(e.m), c.Vertex(), d), false)

	e.prop("cell", int(c.Vertex()))
	e.prop("daughter", int(d))
	e.prop("removed", len(p.Removed))
	e.prop("added", len(p.Added))
	e.prop("edges", len(p.NewEdges))
	return Outcome{Parent: c, Daughter: dc, Op: op}, nil
}
