package transform

import (
	"errors"
	"sort"

	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/internal/retet"
	"github.com/eigenbom/sds/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// local is a scratch copy of a set of mesh tetrahedra on which the
// tetrahedralizer works. ids maps complex point indices to mesh vertices;
// points inserted into the complex get NoVertex until bound.
type local struct {
	*retet.Complex
	ids   []mesh.VertexID
	index map[mesh.VertexID]int
}

func (e *Engine) localComplex(tets []mesh.TetraID) (*local, error) {
	l := &local{index: make(map[mesh.VertexID]int)}
	var pts []r3.Vec
	lt := make([][4]int, len(tets))
	for i, t := range tets {
		tet := e.m.Tetra(t)
		if tet == nil {
			return nil, e.errorf(sds.KindNotFound, "tetra %d", t)
		}
		for k, v := range tet.V {
			j, ok := l.index[v]
			if !ok {
				j = len(l.ids)
				l.index[v] = j
				l.ids = append(l.ids, v)
				pts = append(pts, e.m.Vertex(v).X)
			}
			lt[i][k] = j
		}
	}
	cx, err := retet.New(pts, lt)
	if err != nil {
		return nil, e.wrap(sds.KindDegenerate, err)
	}
	l.Complex = cx
	return l, nil
}

func (l *local) face(f [3]mesh.VertexID) [3]int {
	return [3]int{l.index[f[0]], l.index[f[1]], l.index[f[2]]}
}

// bind assigns vertex v to complex point i.
func (l *local) bind(i int, v mesh.VertexID) {
	for len(l.ids) <= i {
		l.ids = append(l.ids, mesh.NoVertex)
	}
	l.ids[i] = v
	l.index[v] = i
}

// result returns the tetrahedra of the complex in mesh vertices.
func (l *local) result() [][4]mesh.VertexID {
	ts := l.Tetras()
	out := make([][4]mesh.VertexID, len(ts))
	for i, t := range ts {
		for k, j := range t {
			out[i][k] = l.ids[j]
		}
	}
	return out
}

// delaunay improves the complex with at most limit flips. Reaching the limit
// is logged and otherwise ignored: the complex is valid after every flip.
func (e *Engine) delaunay(l *local) int {
	flips, err := l.Delaunay(e.flipLimit)
	if errors.Is(err, retet.ErrFlipLimit) {
		e.logger().Warn("flip limit reached", "op", e.op, "flips", flips)
	}
	e.prop("flips", flips)
	return flips
}

// hull returns the faces of the tetrahedra in ts whose neighbour lies
// outside ts, as (tetra, opposite index) pairs in a deterministic order.
func (e *Engine) hull(ts []mesh.TetraID) [][2]int {
	in := make(map[mesh.TetraID]bool, len(ts))
	for _, t := range ts {
		in[t] = true
	}
	var out [][2]int
	for _, t := range ts {
		for i, n := range e.m.Tetra(t).N {
			if !in[n] {
				out = append(out, [2]int{int(t), i})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}
