// Package render exports the outer surface of tetrahedral meshes as STL
// files and PNG snapshots and plots growth curves of a run.
package render

import (
	"errors"
	"io"

	"github.com/eigenbom/sds/internal/d3"
	"github.com/eigenbom/sds/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle3 is a surface triangle wound counter-clockwise seen from outside.
type Triangle3 struct {
	V [3]r3.Vec
}

// Normal returns the outward unit normal of t.
func (t Triangle3) Normal() r3.Vec {
	return d3.Normal(t.V[0], t.V[1], t.V[2])
}

// Renderer streams triangles. ReadTriangles returns io.EOF once exhausted.
type Renderer interface {
	ReadTriangles(t []Triangle3) (int, error)
}

type surfaceRenderer struct {
	m     *mesh.Mesh
	faces []mesh.FaceID
}

// NewSurfaceRenderer returns a Renderer over the outer faces of m as they are
// when it is called. Positions are read as triangles are consumed.
func NewSurfaceRenderer(m *mesh.Mesh) Renderer {
	return &surfaceRenderer{m: m, faces: m.OuterFaces()}
}

func (s *surfaceRenderer) ReadTriangles(t []Triangle3) (int, error) {
	if len(s.faces) == 0 {
		return 0, io.EOF
	}
	n := 0
	for n < len(t) && len(s.faces) > 0 {
		fv := s.m.Face(s.faces[0]).V
		s.faces = s.faces[1:]
		t[n] = Triangle3{V: [3]r3.Vec{
			s.m.Vertex(fv[0]).X,
			s.m.Vertex(fv[1]).X,
			s.m.Vertex(fv[2]).X,
		}}
		n++
	}
	return n, nil
}

// Surface returns the outer faces of m as triangles.
func Surface(m *mesh.Mesh) []Triangle3 {
	t, _ := ReadAll(NewSurfaceRenderer(m))
	return t
}

// ReadAll drains r. Reaching io.EOF is not an error.
func ReadAll(r Renderer) ([]Triangle3, error) {
	out := make([]Triangle3, 0, 256)
	buf := make([]Triangle3, 1024)
	for {
		n, err := r.ReadTriangles(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}
