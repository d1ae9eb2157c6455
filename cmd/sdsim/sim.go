package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/collision"
	"github.com/eigenbom/sds/config"
	"github.com/eigenbom/sds/helpers/meshgen"
	"github.com/eigenbom/sds/mesh"
	"github.com/eigenbom/sds/organism"
	"github.com/eigenbom/sds/record"
	"github.com/eigenbom/sds/render"
	"github.com/eigenbom/sds/transform"
	"gonum.org/v1/gonum/spatial/r3"
)

// sim is one run: an organism, the engines acting on it and the samples
// collected so far.
type sim struct {
	p   config.Params
	log *slog.Logger
	rng *rand.Rand

	org *organism.Organism
	tx  *transform.Engine
	col *collision.Engine

	samples   []render.GrowthSample
	divisions int
	failures  int
	contacts  collision.Stats
}

// buildMesh creates the initial body described by c.
func buildMesh(c config.Mesh) (*mesh.Mesh, error) {
	var (
		points []r3.Vec
		tetras [][4]int
		err    error
	)
	extent := float64(c.Size) * c.Spacing
	switch c.Kind {
	case "tetra":
		points, tetras = meshgen.Tetra()
	case "lattice":
		points, tetras, err = meshgen.Lattice([3]int{c.Size, c.Size, c.Size}, c.Spacing)
	case "sphere":
		points, tetras, err = meshgen.Sphere(extent/2, c.Spacing)
	case "box":
		points, tetras, err = meshgen.Box(r3.Vec{X: extent, Y: extent, Z: extent}, c.Spacing)
	case "tetgen":
		return mesh.LoadTetgen(c.Path)
	default:
		return nil, fmt.Errorf("unknown mesh kind %q", c.Kind)
	}
	if err != nil {
		return nil, err
	}
	return mesh.FromTetras(points, tetras)
}

func newSim(p config.Params, log *slog.Logger) (*sim, error) {
	m, err := buildMesh(p.Mesh)
	if err != nil {
		return nil, fmt.Errorf("mesh: %w", err)
	}
	s := &sim{
		p:   p,
		log: log,
		rng: rand.New(rand.NewSource(p.Seed)),
		org: organism.New(m, p.Mesh.CellRadius),
	}
	s.tx = transform.New(s.org,
		transform.WithLogger(log),
		transform.WithAngleThresholds(p.Division.InternalAngle, p.Division.SurfaceAngle),
		transform.WithFlipLimit(p.Division.FlipLimit),
	)
	c := p.Collision
	s.col = collision.New(
		collision.WithLogger(log),
		collision.WithWorld(r3.Box{Min: vec(c.WorldMin), Max: vec(c.WorldMax)}),
		collision.WithRestitution(c.Restitution),
		collision.WithFriction(c.StaticFriction, c.KineticFriction),
	)
	s.col.AddMesh(m)
	log.Info("mesh built", "kind", p.Mesh.Kind, "vertices", m.NumVertices(), "tetras", m.NumTetras(), "volume", m.Volume())
	return s, nil
}

func vec(a [3]float64) r3.Vec { return r3.Vec{X: a[0], Y: a[1], Z: a[2]} }

// step advances the run by one time step.
func (s *sim) step(i int) error {
	if err := s.divide(); err != nil {
		return err
	}
	s.forces()
	s.integrate()
	if s.p.Collision.Enabled {
		if err := s.collide(); err != nil {
			return err
		}
	}
	m := s.org.Mesh()
	s.samples = append(s.samples, render.GrowthSample{
		Step:     i,
		Cells:    s.org.NumCells(),
		Volume:   m.Volume(),
		Contacts: s.contacts.Contacts,
	})
	return nil
}

// divide divides up to PerStep cells. Each dividing cell is the one nearest
// to a random point of the body's bounding box, dividing away from the
// centre of the box.
func (s *sim) divide() error {
	d := s.p.Division
	m := s.org.Mesh()
	for n := 0; n < d.PerStep; n++ {
		if d.MaxCells > 0 && s.org.NumCells() >= d.MaxCells {
			return nil
		}
		b := m.Bounds()
		size := r3.Sub(b.Max, b.Min)
		p := r3.Add(b.Min, r3.Vec{
			X: s.rng.Float64() * size.X,
			Y: s.rng.Float64() * size.Y,
			Z: s.rng.Float64() * size.Z,
		})
		c := s.org.NearestCell(p)
		if c == nil {
			return nil
		}
		dir := r3.Sub(c.X(), r3.Scale(0.5, r3.Add(b.Min, b.Max)))
		if r3.Norm2(dir) < sds.Epsilon {
			dir = s.randomDirection()
		}
		out, err := s.tx.Divide(c, dir)
		if err != nil {
			// Operators leave the mesh untouched on failure unless an
			// invariant broke.
			if sds.KindOf(err) == sds.KindInvariant {
				return err
			}
			s.failures++
			s.log.Debug("division failed", "cell", int(c.Vertex()), "err", err)
			continue
		}
		s.divisions++
		s.log.Debug("divided", "op", out.Op, "parent", int(out.Parent.Vertex()), "daughter", int(out.Daughter.Vertex()))
	}
	return nil
}

func (s *sim) randomDirection() r3.Vec {
	for {
		v := r3.Vec{X: 2*s.rng.Float64() - 1, Y: 2*s.rng.Float64() - 1, Z: 2*s.rng.Float64() - 1}
		if n := r3.Norm2(v); n > 1e-6 && n <= 1 {
			return r3.Unit(v)
		}
	}
}

// forces accumulates spring and gravity forces on every vertex.
func (s *sim) forces() {
	m := s.org.Mesh()
	g := r3.Vec{Z: -s.p.Gravity}
	for _, v := range m.Vertices() {
		vert := m.Vertex(v)
		vert.F = r3.Scale(vert.M, g)
	}
	for _, e := range m.Edges() {
		edge := m.Edge(e)
		a, b := m.Vertex(edge.V[0]), m.Vertex(edge.V[1])
		d := r3.Sub(b.X, a.X)
		l := r3.Norm(d)
		if l < sds.Epsilon {
			continue
		}
		k := edge.Spring
		if k == 0 {
			k = s.p.Spring
		}
		f := r3.Scale(k*(l-edge.Rest*edge.RestMultiplier)/l, d)
		a.AddF(f)
		b.AddF(r3.Scale(-1, f))
	}
}

// integrate takes a damped Verlet step. Massless and frozen vertices stay.
func (s *sim) integrate() {
	m := s.org.Mesh()
	dt2 := s.p.Dt * s.p.Dt
	keep := 1 - s.p.Damping
	for _, v := range m.Vertices() {
		vert := m.Vertex(v)
		if vert.Frozen || vert.M <= 0 {
			continue
		}
		x := vert.X
		vel := r3.Scale(keep, r3.Sub(vert.X, vert.Prev))
		vert.X = r3.Add(r3.Add(x, vel), r3.Scale(dt2/vert.M, vert.F))
		vert.Prev = x
	}
}

func (s *sim) collide() error {
	if err := s.col.EstimateDepthAndDirection(); err != nil {
		return err
	}
	switch s.p.Collision.Response {
	case config.ResponseSimple:
		s.col.SimpleResponse()
		s.col.AABBResponse()
	case config.ResponseSimpleB:
		s.col.SimpleResponseB()
	default:
		s.col.AABBResponse()
	}
	s.contacts = s.col.Stats()
	return nil
}

// run executes p and writes its outputs.
func run(ctx context.Context, p config.Params, log *slog.Logger) (err error) {
	s, err := newSim(p, log)
	if err != nil {
		return err
	}
	var (
		store *record.Store
		runID string
	)
	if p.Output.Database != "" {
		store, err = record.Open(p.Output.Database)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, store.Close()) }()
		r, serr := store.StartRun(ctx, p.Name, p)
		if serr != nil {
			return serr
		}
		runID = r.ID
	}
	frame := func(i int) error {
		if store == nil {
			return nil
		}
		_, err := store.Record(ctx, runID, i, s.org.Mesh(), record.Stats{
			Cells:    s.org.NumCells(),
			Contacts: s.contacts.Contacts,
			MaxDepth: s.contacts.MaxDepth,
		})
		return err
	}
	if err := frame(0); err != nil {
		return err
	}
	last := 0
	for i := 1; i <= p.Steps; i++ {
		if err := ctx.Err(); err != nil {
			log.Warn("run interrupted", "step", i)
			break
		}
		if err := s.step(i); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		last = i
		if p.Output.Every > 0 && i%p.Output.Every == 0 {
			if err := frame(i); err != nil {
				return err
			}
		}
	}
	if last > 0 && (p.Output.Every == 0 || last%p.Output.Every != 0) {
		if err := frame(last); err != nil {
			return err
		}
	}
	m := s.org.Mesh()
	log.Info("run finished", "steps", last, "cells", s.org.NumCells(), "divisions", s.divisions,
		"failed", s.failures, "volume", m.Volume(), "max_depth", s.contacts.MaxDepth)
	if !finite(m) {
		return errors.New("simulation diverged")
	}
	return s.writeOutputs()
}

func (s *sim) writeOutputs() error {
	o, m := s.p.Output, s.org.Mesh()
	if o.STL != "" {
		if err := render.SaveSTL(o.STL, m); err != nil {
			return err
		}
		s.log.Info("wrote STL", "path", o.STL)
	}
	if o.PNG != "" {
		if err := render.SavePNG(o.PNG, m, render.DefaultView()); err != nil {
			return err
		}
		s.log.Info("wrote snapshot", "path", o.PNG)
	}
	if o.Plot != "" && len(s.samples) > 0 {
		if err := render.PlotGrowth(o.Plot, s.samples); err != nil {
			return err
		}
		s.log.Info("wrote growth plot", "path", o.Plot)
	}
	return nil
}

func finite(m *mesh.Mesh) bool {
	for _, v := range m.Vertices() {
		x := m.Vertex(v).X
		if math.IsNaN(x.X+x.Y+x.Z) || math.IsInf(x.X+x.Y+x.Z, 0) {
			return false
		}
	}
	return true
}
