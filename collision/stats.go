package collision

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises the last EstimateDepthAndDirection call.
type Stats struct {
	CellSize float64
	// Edges is the number of intersecting edges, Cut of which cross a face.
	Edges, Cut int
	Contacts   int
	Border     int
	// Intersected counts tetrahedra containing a foreign vertex.
	Intersected int
	// Stalled counts colliding vertices propagation could not reach.
	Stalled                       int
	TotalDepth, MeanDepth, StdDev float64
	MaxDepth                      float64
}

// Stats returns statistics of the last pass.
func (e *Engine) Stats() Stats {
	s := Stats{
		CellSize: e.cellSize,
		Edges:    len(e.edges),
		Contacts: len(e.contacts),
		Stalled:  e.stalled,
	}
	for _, ie := range e.edges {
		if ie.Set {
			s.Cut++
		}
	}
	for _, m := range e.meshes {
		for _, t := range m.Tetras() {
			if m.Tetra(t).Intersected {
				s.Intersected++
			}
		}
	}
	if len(e.contacts) == 0 {
		return s
	}
	depths := make([]float64, len(e.contacts))
	for i, c := range e.contacts {
		depths[i] = c.Depth
		if c.Border {
			s.Border++
		}
	}
	s.TotalDepth = floats.Sum(depths)
	s.MaxDepth = floats.Max(depths)
	if len(depths) > 1 {
		s.MeanDepth, s.StdDev = stat.MeanStdDev(depths, nil)
	} else {
		s.MeanDepth = depths[0]
	}
	return s
}
