package collision

import (
	"math"

	"github.com/eigenbom/sds/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

type voxel [3]int

// grid is a sparse uniform grid.
type grid struct {
	size float64
}

func (g grid) voxel(p r3.Vec) voxel { return voxel(d3.Cell(p, g.size)) }

// corner returns the world position of the minimum corner of v.
func (g grid) corner(v voxel) r3.Vec {
	return r3.Vec{X: float64(v[0]) * g.size, Y: float64(v[1]) * g.size, Z: float64(v[2]) * g.size}
}

// span calls fn for every voxel overlapping the box [min, max].
func (g grid) span(min, max r3.Vec, fn func(voxel)) {
	lo, hi := g.voxel(min), g.voxel(max)
	for i := lo[0]; i <= hi[0]; i++ {
		for j := lo[1]; j <= hi[1]; j++ {
			for k := lo[2]; k <= hi[2]; k++ {
				fn(voxel{i, j, k})
			}
		}
	}
}

// traverse calls fn once for every voxel the segment ab passes through, in
// order from a to b (Amanatides and Woo, 1987).
func (g grid) traverse(a, b r3.Vec, fn func(voxel)) {
	va, vb := g.voxel(a), g.voxel(b)
	fn(va)
	if va == vb {
		return
	}
	pa := [3]float64{a.X / g.size, a.Y / g.size, a.Z / g.size}
	d := [3]float64{(b.X - a.X) / g.size, (b.Y - a.Y) / g.size, (b.Z - a.Z) / g.size}
	var step [3]int
	var tMax, tDelta [3]float64
	for i := 0; i < 3; i++ {
		switch {
		case d[i] > 0:
			step[i] = 1
			tMax[i] = (math.Floor(pa[i]) + 1 - pa[i]) / d[i]
			tDelta[i] = 1 / d[i]
		case d[i] < 0:
			step[i] = -1
			tMax[i] = (pa[i] - math.Floor(pa[i])) / -d[i]
			tDelta[i] = -1 / d[i]
		default:
			tMax[i] = math.Inf(1)
			tDelta[i] = math.Inf(1)
		}
	}
	n := abs(vb[0]-va[0]) + abs(vb[1]-va[1]) + abs(vb[2]-va[2])
	cur := va
	for ; n > 0 && cur != vb; n-- {
		k := 0
		if tMax[1] < tMax[k] {
			k = 1
		}
		if tMax[2] < tMax[k] {
			k = 2
		}
		cur[k] += step[k]
		tMax[k] += tDelta[k]
		fn(cur)
	}
	if cur != vb {
		fn(vb)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
