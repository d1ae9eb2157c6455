package render

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/chewxy/math32"
	"github.com/eigenbom/sds/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Binary STL layout: an 80 byte comment, a little endian uint32 facet count,
// then 50 bytes per facet (normal, three vertices, attribute count).
const (
	stlCommentSize = 80
	stlHeaderSize  = stlCommentSize + 4
	stlFacetSize   = 50
)

var errNormalMismatch = errors.New("stored normal does not match the triangle winding")

// facet is one STL record: the normal followed by three vertices.
type facet [4][3]float32

func facetOf(t Triangle3) facet {
	return facet{f32(t.Normal()), f32(t.V[0]), f32(t.V[1]), f32(t.V[2])}
}

func (f *facet) encode(b []byte) {
	_ = b[stlFacetSize-1]
	for i, v := range f {
		for j, x := range v {
			binary.LittleEndian.PutUint32(b[12*i+4*j:], math.Float32bits(x))
		}
	}
	b[48], b[49] = 0, 0
}

func (f *facet) decode(b []byte) {
	_ = b[stlFacetSize-1]
	for i := range f {
		for j := range f[i] {
			f[i][j] = math.Float32frombits(binary.LittleEndian.Uint32(b[12*i+4*j:]))
		}
	}
}

func (f *facet) triangle() Triangle3 {
	var t Triangle3
	for i := range t.V {
		v := f[i+1]
		t.V[i] = r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
	}
	return t
}

// check rejects non-finite values and collapsed vertices. A normal that
// disagrees with the winding yields errNormalMismatch.
func (f *facet) check() error {
	const (
		coincident = 1e-12
		normalTol  = 5e-2
	)
	for i, v := range f {
		for _, x := range v {
			if math32.IsNaN(x) || math32.IsInf(x, 0) {
				if i == 0 {
					return errors.New("non-finite facet normal")
				}
				return errors.New("non-finite facet vertex")
			}
		}
	}
	if near32(f[1], f[2], coincident) || near32(f[2], f[3], coincident) || near32(f[3], f[1], coincident) {
		return errors.New("degenerate facet")
	}
	if !near32(f32(f.triangle().Normal()), f[0], normalTol) {
		return errNormalMismatch
	}
	return nil
}

func near32(a, b [3]float32, tol float32) bool {
	return math32.Abs(a[0]-b[0]) <= tol && math32.Abs(a[1]-b[1]) <= tol && math32.Abs(a[2]-b[2]) <= tol
}

func f32(v r3.Vec) [3]float32 { return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)} }

func putHeader(b []byte, count uint32) {
	clear(b[:stlCommentSize])
	binary.LittleEndian.PutUint32(b[stlCommentSize:], count)
}

// SaveSTL writes the outer surface of m to a binary STL file.
func SaveSTL(path string, m *mesh.Mesh) error {
	if m.NumFaces() == 0 {
		return errors.New("render: mesh has no outer faces")
	}
	return CreateSTL(path, NewSurfaceRenderer(m))
}

// CreateSTL streams the triangles of r to a binary STL file. The facet count
// is written once r is exhausted.
func CreateSTL(path string, r Renderer) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, file.Close()) }()
	if _, err := file.Seek(stlHeaderSize, io.SeekStart); err != nil {
		return err
	}
	w := bufio.NewWriter(file)
	var (
		tris  = make([]Triangle3, 1024)
		rec   [stlFacetSize]byte
		count uint32
	)
	for {
		n, rerr := r.ReadTriangles(tris)
		for _, t := range tris[:n] {
			f := facetOf(t)
			f.encode(rec[:])
			if _, err := w.Write(rec[:]); err != nil {
				return err
			}
		}
		count += uint32(n)
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	var hdr [stlHeaderSize]byte
	putHeader(hdr[:], count)
	_, err = file.WriteAt(hdr[:], 0)
	return err
}

// WriteSTL writes triangles to w in binary STL format.
func WriteSTL(w io.Writer, tris []Triangle3) error {
	if len(tris) == 0 {
		return errors.New("render: no triangles to write")
	}
	b := make([]byte, stlHeaderSize+stlFacetSize*len(tris))
	putHeader(b, uint32(len(tris)))
	for i, t := range tris {
		f := facetOf(t)
		f.encode(b[stlHeaderSize+i*stlFacetSize:])
	}
	_, err := w.Write(b)
	return err
}

// ReadSTL reads a binary STL stream. Triangles whose stored normal disagrees
// with their winding are still returned, along with errNormalMismatch.
func ReadSTL(r io.Reader) ([]Triangle3, error) {
	var hdr [stlHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("render: STL header: %w", err)
	}
	count := binary.LittleEndian.Uint32(hdr[stlCommentSize:])
	if count == 0 {
		return nil, errors.New("render: STL holds no facets")
	}
	var (
		out      = make([]Triangle3, 0, min(count, 1<<16))
		rec      [stlFacetSize]byte
		f        facet
		mismatch error
	)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return nil, fmt.Errorf("render: STL facet %d/%d: %w", i+1, count, err)
		}
		f.decode(rec[:])
		if err := f.check(); err != nil {
			if !errors.Is(err, errNormalMismatch) {
				return nil, fmt.Errorf("render: STL facet %d/%d: %w", i+1, count, err)
			}
			mismatch = err
		}
		out = append(out, f.triangle())
	}
	return out, mismatch
}
