// Package config holds the simulation parameters read by cmd/sdsim.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Response selects the collision response applied after each step.
type Response string

const (
	ResponseNone    Response = "none"
	ResponseSimple  Response = "simple"
	ResponseSimpleB Response = "simple_b"
)

// Division parameters of the transform engine.
type Division struct {
	// Angle thresholds in radians under which a division splits the edge to
	// the neighbour nearest to the division direction.
	InternalAngle float64 `yaml:"internal_angle_threshold"`
	SurfaceAngle  float64 `yaml:"surface_angle_threshold"`
	FlipLimit     int     `yaml:"flip_limit"`
	// PerStep is the number of cells divided every step.
	PerStep int `yaml:"per_step"`
	// MaxCells stops division once the organism reaches this size.
	MaxCells int `yaml:"max_cells"`
}

// Collision parameters.
type Collision struct {
	Enabled         bool       `yaml:"enabled"`
	Response        Response   `yaml:"response"`
	Restitution     float64    `yaml:"restitution"`
	StaticFriction  float64    `yaml:"static_friction"`
	KineticFriction float64    `yaml:"kinetic_friction"`
	WorldMin        [3]float64 `yaml:"world_min"`
	WorldMax        [3]float64 `yaml:"world_max"`
}

// Mesh selects the initial body.
type Mesh struct {
	// Kind is one of "tetra", "lattice", "sphere", "box" or "tetgen".
	Kind string `yaml:"kind"`
	// Size is the lattice size in cubes, or the shape extent.
	Size int `yaml:"size"`
	// Spacing is the node spacing of generated lattices.
	Spacing float64 `yaml:"spacing"`
	// Path is the .node/.ele basename for kind "tetgen".
	Path string `yaml:"path"`
	// Radius of every initial cell; 0 derives it from edge lengths.
	CellRadius float64 `yaml:"cell_radius"`
}

// Output paths. Empty paths disable the output.
type Output struct {
	Database string `yaml:"database"`
	STL      string `yaml:"stl"`
	PNG      string `yaml:"png"`
	Plot     string `yaml:"plot"`
	// Every records a frame every Every steps.
	Every int `yaml:"every"`
}

// Params is the full simulation configuration.
type Params struct {
	Name      string    `yaml:"name"`
	Steps     int       `yaml:"steps"`
	Dt        float64   `yaml:"dt"`
	Damping   float64   `yaml:"damping"`
	Spring    float64   `yaml:"spring"`
	Gravity   float64   `yaml:"gravity"`
	Seed      int64     `yaml:"seed"`
	Mesh      Mesh      `yaml:"mesh"`
	Division  Division  `yaml:"division"`
	Collision Collision `yaml:"collision"`
	Output    Output    `yaml:"output"`
}

// Default returns the parameters used when no file is given.
func Default() Params {
	return Params{
		Name:    "sds",
		Steps:   200,
		Dt:      0.01,
		Damping: 0.1,
		Spring:  50,
		Gravity: 0,
		Seed:    1,
		Mesh: Mesh{
			Kind:    "lattice",
			Size:    2,
			Spacing: 1,
		},
		Division: Division{
			InternalAngle: 0.5,
			SurfaceAngle:  0.5,
			FlipLimit:     256,
			PerStep:       1,
			MaxCells:      200,
		},
		Collision: Collision{
			Enabled:         true,
			Response:        ResponseSimpleB,
			Restitution:     0.5,
			StaticFriction:  0.5,
			KineticFriction: 0.3,
			WorldMin:        [3]float64{-10, -10, -10},
			WorldMax:        [3]float64{10, 10, 10},
		},
		Output: Output{Every: 10},
	}
}

// Load reads a YAML file. Fields absent from the file keep their Default
// value. The result is validated.
func Load(path string) (Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Params{}, err
	}
	return Parse(b)
}

// Parse decodes YAML parameters over Default and validates them.
func Parse(b []byte) (Params, error) {
	p := Default()
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Params{}, fmt.Errorf("config: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Marshal encodes p as YAML.
func (p Params) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// Validate reports every inconsistent field.
func (p Params) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(p.Steps >= 0, "steps %d is negative", p.Steps)
	check(p.Dt > 0, "dt %g must be positive", p.Dt)
	check(p.Damping >= 0, "damping %g is negative", p.Damping)
	check(p.Spring >= 0, "spring %g is negative", p.Spring)
	check(p.Division.InternalAngle >= 0 && p.Division.InternalAngle <= math.Pi, "internal angle threshold %g out of [0, pi]", p.Division.InternalAngle)
	check(p.Division.SurfaceAngle >= 0 && p.Division.SurfaceAngle <= math.Pi, "surface angle threshold %g out of [0, pi]", p.Division.SurfaceAngle)
	check(p.Division.FlipLimit > 0, "flip limit %d must be positive", p.Division.FlipLimit)
	check(p.Division.PerStep >= 0, "divisions per step %d is negative", p.Division.PerStep)
	switch p.Mesh.Kind {
	case "tetra":
	case "lattice", "sphere", "box":
		check(p.Mesh.Size > 0, "mesh size %d must be positive", p.Mesh.Size)
		check(p.Mesh.Spacing > 0, "mesh spacing %g must be positive", p.Mesh.Spacing)
	case "tetgen":
		check(p.Mesh.Path != "", "tetgen mesh needs a path")
	default:
		errs = append(errs, fmt.Errorf("unknown mesh kind %q", p.Mesh.Kind))
	}
	check(p.Mesh.CellRadius >= 0, "cell radius %g is negative", p.Mesh.CellRadius)
	c := p.Collision
	switch c.Response {
	case ResponseNone, ResponseSimple, ResponseSimpleB:
	default:
		errs = append(errs, fmt.Errorf("unknown collision response %q", c.Response))
	}
	check(c.Restitution >= 0 && c.Restitution <= 1, "restitution %g out of [0, 1]", c.Restitution)
	check(c.StaticFriction >= 0 && c.KineticFriction >= 0, "negative friction")
	for i := range c.WorldMin {
		check(c.WorldMin[i] <= c.WorldMax[i], "world box is empty along axis %d", i)
	}
	check(p.Output.Every >= 0, "output interval %d is negative", p.Output.Every)
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
