package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is an axis aligned bounding box. Bounds are inclusive.
type Box r3.Box

// EmptyBox returns the box with inverted infinite bounds, the identity of
// Include.
func EmptyBox() Box {
	return Box{Min: Elem(math.Inf(1)), Max: Elem(math.Inf(-1))}
}

// BoxOf returns the smallest box containing pts.
func BoxOf(pts ...r3.Vec) Box {
	b := EmptyBox()
	for _, p := range pts {
		b = b.Include(p)
	}
	return b
}

// Include returns a grown to hold p.
func (a Box) Include(p r3.Vec) Box {
	a.Min = r3.Vec{X: math.Min(a.Min.X, p.X), Y: math.Min(a.Min.Y, p.Y), Z: math.Min(a.Min.Z, p.Z)}
	a.Max = r3.Vec{X: math.Max(a.Max.X, p.X), Y: math.Max(a.Max.Y, p.Y), Z: math.Max(a.Max.Z, p.Z)}
	return a
}

func (a Box) Empty() bool {
	return a.Min.X > a.Max.X || a.Min.Y > a.Max.Y || a.Min.Z > a.Max.Z
}

// Valid reports whether a is non-empty with finite bounds.
func (a Box) Valid() bool {
	return !a.Empty() && finite(a.Min) && finite(a.Max)
}

func (a Box) Size() r3.Vec { return r3.Sub(a.Max, a.Min) }

func (a Box) Contains(p r3.Vec) bool {
	return a.Min.X <= p.X && p.X <= a.Max.X &&
		a.Min.Y <= p.Y && p.Y <= a.Max.Y &&
		a.Min.Z <= p.Z && p.Z <= a.Max.Z
}

// Overlaps reports whether a and b share a point.
func (a Box) Overlaps(b Box) bool {
	return !a.Empty() && !b.Empty() &&
		a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y &&
		a.Min.Z <= b.Max.Z && b.Min.Z <= a.Max.Z
}

func finite(v r3.Vec) bool {
	for _, x := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
