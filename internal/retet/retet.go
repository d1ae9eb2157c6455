// Package retet re-tetrahedralizes small tetrahedral complexes in place.
//
// A Complex starts from a valid, positively oriented set of tetrahedra.
// Points are inserted by splitting every tetrahedron whose closure contains
// them and the result is improved towards a Delaunay tetrahedralization with
// 2-3 and 3-2 flips. Neither operation moves the boundary of the complex
// unless a boundary face is explicitly named for insertion.
package retet

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/eigenbom/sds/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// eps is the relative barycentric tolerance used to decide that a point
// lies on a face, edge or vertex of a tetrahedron.
const eps = 1e-9

var (
	ErrOutside      = errors.New("retet: point outside complex")
	ErrBoundary     = errors.New("retet: insertion changes the boundary")
	ErrDuplicate    = errors.New("retet: point coincides with a vertex")
	ErrNotFlippable = errors.New("retet: configuration not flippable")
	ErrFlipLimit    = errors.New("retet: flip limit reached")
)

type face [3]int

func sortedFace(a, b, c int) face {
	f := face{a, b, c}
	sort.Ints(f[:])
	return f
}

// opposite lists, for each vertex index, the outward wound opposite face.
var opposite = [4][3]int{
	0: {1, 2, 3},
	1: {3, 2, 0},
	2: {0, 1, 3},
	3: {0, 2, 1},
}

// Complex is a mutable set of positively oriented tetrahedra over points P.
type Complex struct {
	P []r3.Vec

	tets  [][4]int
	dead  []bool
	faces map[face][]int
}

// New returns a complex over a copy of points made of tets. Every
// tetrahedron must be positively oriented.
func New(points []r3.Vec, tets [][4]int) (*Complex, error) {
	c := &Complex{
		P:     append([]r3.Vec(nil), points...),
		faces: make(map[face][]int),
	}
	for i, t := range tets {
		for _, v := range t {
			if v < 0 || v >= len(points) {
				return nil, fmt.Errorf("retet: tetra %d: point %d out of range", i, v)
			}
		}
		if c.orient(t) <= 0 {
			return nil, fmt.Errorf("retet: tetra %d %v not positively oriented", i, t)
		}
		c.add(t)
	}
	for f, ts := range c.faces {
		if len(ts) > 2 {
			return nil, fmt.Errorf("retet: face %v shared by %d tetrahedra", f, len(ts))
		}
	}
	return c, nil
}

// Tetras returns the live tetrahedra.
func (c *Complex) Tetras() [][4]int {
	out := make([][4]int, 0, len(c.tets))
	for i, t := range c.tets {
		if !c.dead[i] {
			out = append(out, t)
		}
	}
	return out
}

// Boundary returns the boundary faces of the complex, outward wound, in a
// deterministic order.
func (c *Complex) Boundary() [][3]int {
	var out [][3]int
	for i, t := range c.tets {
		if c.dead[i] {
			continue
		}
		for k := 0; k < 4; k++ {
			o := opposite[k]
			if len(c.faces[sortedFace(t[o[0]], t[o[1]], t[o[2]])]) == 1 {
				out = append(out, [3]int{t[o[0]], t[o[1]], t[o[2]]})
			}
		}
	}
	return out
}

// Volume returns the total volume of the complex.
func (c *Complex) Volume() float64 {
	var v float64
	for i, t := range c.tets {
		if !c.dead[i] {
			v += c.orient(t) / 6
		}
	}
	return v
}

func (c *Complex) orient(t [4]int) float64 {
	return d3.Orient(c.P[t[0]], c.P[t[1]], c.P[t[2]], c.P[t[3]])
}

// positive reports whether t has volume above a threshold relative to its
// longest edge.
func (c *Complex) positive(t [4]int) bool {
	var l2 float64
	for a := 0; a < 3; a++ {
		for b := a + 1; b < 4; b++ {
			l2 = math.Max(l2, r3.Norm2(r3.Sub(c.P[t[a]], c.P[t[b]])))
		}
	}
	return c.orient(t) > 6e-12*l2*math.Sqrt(l2)
}

func (c *Complex) add(t [4]int) int {
	id := len(c.tets)
	c.tets = append(c.tets, t)
	c.dead = append(c.dead, false)
	for k := 0; k < 4; k++ {
		o := opposite[k]
		f := sortedFace(t[o[0]], t[o[1]], t[o[2]])
		c.faces[f] = append(c.faces[f], id)
	}
	return id
}

func (c *Complex) remove(id int) {
	t := c.tets[id]
	c.dead[id] = true
	for k := 0; k < 4; k++ {
		o := opposite[k]
		f := sortedFace(t[o[0]], t[o[1]], t[o[2]])
		ts := c.faces[f]
		for i, x := range ts {
			if x == id {
				ts = append(ts[:i], ts[i+1:]...)
				break
			}
		}
		if len(ts) == 0 {
			delete(c.faces, f)
		} else {
			c.faces[f] = ts
		}
	}
}

func contains(t [4]int, v int) int {
	for i, x := range t {
		if x == v {
			return i
		}
	}
	return -1
}

// Insert adds p to the complex by splitting every tetrahedron whose closure
// contains it. It fails with ErrBoundary if p lies on the boundary of the
// complex and leaves the complex unchanged on error. The index of the new
// point is returned.
func (c *Complex) Insert(p r3.Vec) (int, error) {
	return c.insert(p, nil)
}

// InsertOnBoundary inserts p, which must lie on the boundary face f, splitting
// f into three boundary faces.
func (c *Complex) InsertOnBoundary(p r3.Vec, f [3]int) (int, error) {
	return c.insert(p, &f)
}

func (c *Complex) insert(p r3.Vec, allowed *[3]int) (int, error) {
	type split struct {
		id int
		w  [4]float64
	}
	var star []split
	for i, t := range c.tets {
		if c.dead[i] {
			continue
		}
		w, ok := d3.Weights(p, c.P[t[0]], c.P[t[1]], c.P[t[2]], c.P[t[3]])
		if !ok || w[0] < -eps || w[1] < -eps || w[2] < -eps || w[3] < -eps {
			continue
		}
		for k := range w {
			if w[k] > 1-eps {
				return -1, ErrDuplicate
			}
		}
		star = append(star, split{i, w})
	}
	if len(star) == 0 {
		return -1, ErrOutside
	}

	// Faces of the star containing p must be interior, except the allowed one.
	var allowedKey face
	if allowed != nil {
		allowedKey = sortedFace(allowed[0], allowed[1], allowed[2])
	}
	hitAllowed := false
	for _, s := range star {
		t := c.tets[s.id]
		for k := 0; k < 4; k++ {
			if s.w[k] > eps {
				continue
			}
			o := opposite[k]
			f := sortedFace(t[o[0]], t[o[1]], t[o[2]])
			if len(c.faces[f]) != 1 {
				continue
			}
			if allowed == nil || f != allowedKey {
				return -1, ErrBoundary
			}
			hitAllowed = true
		}
	}
	if allowed != nil && !hitAllowed {
		return -1, ErrBoundary
	}

	pi := len(c.P)
	c.P = append(c.P, p)
	var add [][4]int
	for _, s := range star {
		t := c.tets[s.id]
		for k := 0; k < 4; k++ {
			if s.w[k] <= eps {
				continue
			}
			nt := t
			nt[k] = pi
			if !c.positive(nt) {
				c.P = c.P[:pi]
				return -1, fmt.Errorf("retet: insertion creates a sliver in %v", t)
			}
			add = append(add, nt)
		}
	}
	for _, s := range star {
		c.remove(s.id)
	}
	for _, t := range add {
		c.add(t)
	}
	return pi, nil
}

// Flip23 replaces the two tetrahedra sharing face f by three tetrahedra
// around the edge joining their apexes.
func (c *Complex) Flip23(f [3]int) error {
	ts := c.faces[sortedFace(f[0], f[1], f[2])]
	if len(ts) != 2 {
		return ErrNotFlippable
	}
	t1, t2 := c.tets[ts[0]], c.tets[ts[1]]
	e := apex(t2, f)
	var add [][4]int
	var vol float64
	for _, v := range f {
		nt := t1
		nt[contains(t1, v)] = e
		if !c.positive(nt) {
			return ErrNotFlippable
		}
		vol += c.orient(nt)
		add = append(add, nt)
	}
	if before := c.orient(t1) + c.orient(t2); math.Abs(vol-before) > 1e-9*math.Abs(before) {
		return ErrNotFlippable
	}
	c.remove(ts[0])
	c.remove(ts[1])
	for _, t := range add {
		c.add(t)
	}
	return nil
}

func apex(t [4]int, f [3]int) int {
	for _, v := range t {
		if v != f[0] && v != f[1] && v != f[2] {
			return v
		}
	}
	return -1
}

// RemoveEdge replaces the closed ring of tetrahedra around interior edge ab
// by a fan of 2(n-2) tetrahedra, where n is the ring size. A 3-2 flip is the
// case n == 3.
func (c *Complex) RemoveEdge(a, b int) error {
	var ring []int
	for i, t := range c.tets {
		if !c.dead[i] && contains(t, a) >= 0 && contains(t, b) >= 0 {
			ring = append(ring, i)
		}
	}
	if len(ring) < 3 {
		return ErrNotFlippable
	}
	// Order the ring vertices: each tetra contributes the pair of vertices
	// other than a and b, and consecutive pairs share a vertex.
	pairs := make([][2]int, len(ring))
	var before float64
	for n, id := range ring {
		t := c.tets[id]
		k := 0
		for _, v := range t {
			if v != a && v != b {
				pairs[n][k] = v
				k++
			}
		}
		if len(c.faces[sortedFace(a, b, pairs[n][0])]) != 2 || len(c.faces[sortedFace(a, b, pairs[n][1])]) != 2 {
			return ErrNotFlippable // Boundary edge.
		}
		before += c.orient(t)
	}
	poly := []int{pairs[0][0], pairs[0][1]}
	used := make([]bool, len(pairs))
	used[0] = true
	for len(poly) < len(pairs) {
		last := poly[len(poly)-1]
		found := false
		for n, pr := range pairs {
			if used[n] {
				continue
			}
			switch last {
			case pr[0]:
				poly = append(poly, pr[1])
			case pr[1]:
				poly = append(poly, pr[0])
			default:
				continue
			}
			used[n] = true
			found = true
			break
		}
		if !found {
			return ErrNotFlippable
		}
	}
	n := len(poly)
	for k := 0; k < n; k++ {
		var add [][4]int
		var vol float64
		ok := true
		swap := c.orient([4]int{poly[k], poly[(k+1)%n], poly[(k+2)%n], a}) < 0
		for i := 1; i < n-1; i++ {
			w0, w1, w2 := poly[k], poly[(k+i)%n], poly[(k+i+1)%n]
			if swap {
				w1, w2 = w2, w1
			}
			ta := [4]int{w0, w1, w2, a}
			tb := [4]int{w0, w2, w1, b}
			if !c.positive(ta) || !c.positive(tb) {
				ok = false
				break
			}
			vol += c.orient(ta) + c.orient(tb)
			add = append(add, ta, tb)
		}
		if !ok || math.Abs(vol-before) > 1e-9*math.Abs(before) {
			continue
		}
		for _, id := range ring {
			c.remove(id)
		}
		for _, t := range add {
			c.add(t)
		}
		return nil
	}
	return ErrNotFlippable
}

// Delaunay flips interior faces whose opposite apex lies inside the
// circumsphere of the neighbouring tetrahedron until none can be flipped
// or limit flips were performed, in which case ErrFlipLimit is returned
// alongside a valid complex.
func (c *Complex) Delaunay(limit int) (flips int, err error) {
	for {
		flipped := false
		for _, f := range c.interiorFaces() {
			ts, ok := c.faces[f]
			if !ok || len(ts) != 2 {
				continue
			}
			t1, t2 := c.tets[ts[0]], c.tets[ts[1]]
			e := apex(t2, f)
			if !d3.InSphere(c.P[t1[0]], c.P[t1[1]], c.P[t1[2]], c.P[t1[3]], c.P[e]) {
				continue
			}
			if flips >= limit {
				return flips, ErrFlipLimit
			}
			if c.Flip23(f) == nil {
				flips++
				flipped = true
				continue
			}
			// Try removing each edge of f that has degree three.
			for i := 0; i < 3; i++ {
				a, b := f[i], f[(i+1)%3]
				if c.edgeDegree(a, b) == 3 && c.RemoveEdge(a, b) == nil {
					flips++
					flipped = true
					break
				}
			}
		}
		if !flipped {
			return flips, nil
		}
	}
}

func (c *Complex) interiorFaces() []face {
	var fs []face
	for f, ts := range c.faces {
		if len(ts) == 2 {
			fs = append(fs, f)
		}
	}
	sort.Slice(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})
	return fs
}

func (c *Complex) edgeDegree(a, b int) int {
	n := 0
	for i, t := range c.tets {
		if !c.dead[i] && contains(t, a) >= 0 && contains(t, b) >= 0 {
			n++
		}
	}
	return n
}
