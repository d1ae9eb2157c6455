package render

import (
	"errors"
	"image"

	"github.com/eigenbom/sds/internal/d3"
	"github.com/eigenbom/sds/mesh"
	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"gonum.org/v1/gonum/spatial/r3"
)

// View places the camera of a Snapshot. The mesh is first fit in the
// bi-unit cube centred at the origin.
type View struct {
	Eye, Center, Up r3.Vec
	Width, Height   int
	// Supersample renders at this multiple of the output size and
	// downscales for antialiasing.
	Supersample int
	// Vertical field of view in degrees.
	Fovy      float64
	Near, Far float64
	// Colours as hex strings, i.e. "#468966".
	Color, Background string
}

// DefaultView looks at the origin from (3,3,3) with z up.
func DefaultView() View {
	return View{
		Eye:         d3.Elem(3),
		Up:          r3.Vec{Z: 1},
		Width:       640,
		Height:      480,
		Supersample: 2,
		Fovy:        30,
		Near:        1,
		Far:         10,
		Color:       "#468966",
		Background:  "#FFF8E3",
	}
}

// Snapshot rasterises the outer surface of m with a Phong shader.
func Snapshot(m *mesh.Mesh, v View) (image.Image, error) {
	if v.Width <= 0 || v.Height <= 0 {
		return nil, errors.New("render: empty viewport")
	}
	tris := Surface(m)
	if len(tris) == 0 {
		return nil, errors.New("render: mesh has no outer faces")
	}
	ft := make([]*fauxgl.Triangle, len(tris))
	for i, t := range tris {
		ft[i] = fauxgl.NewTriangleForPoints(fv(t.V[0]), fv(t.V[1]), fv(t.V[2]))
	}
	fm := fauxgl.NewTriangleMesh(ft)
	fm.BiUnitCube()

	scale := v.Supersample
	if scale < 1 {
		scale = 1
	}
	var (
		eye    = fv(v.Eye)
		center = fv(v.Center)
		up     = fv(v.Up)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
	)
	context := fauxgl.NewContext(v.Width*scale, v.Height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor(v.Background))
	aspect := float64(v.Width) / float64(v.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(v.Fovy, aspect, v.Near, v.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = fauxgl.HexColor(v.Color)
	context.Shader = shader
	context.DrawMesh(fm)

	img := context.Image()
	if scale > 1 {
		img = resize.Resize(uint(v.Width), uint(v.Height), img, resize.Bilinear)
	}
	return img, nil
}

// SavePNG writes a Snapshot of m to path.
func SavePNG(path string, m *mesh.Mesh, v View) error {
	img, err := Snapshot(m, v)
	if err != nil {
		return err
	}
	return fauxgl.SavePNG(path, img)
}

func fv(v r3.Vec) fauxgl.Vector { return fauxgl.V(v.X, v.Y, v.Z) }
