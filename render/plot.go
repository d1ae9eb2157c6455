package render

import (
	"errors"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var plotColors = []color.Color{
	color.RGBA{R: 0x46, G: 0x89, B: 0x66, A: 0xff},
	color.RGBA{R: 0xb6, G: 0x49, B: 0x26, A: 0xff},
	color.RGBA{R: 0x8e, G: 0x28, B: 0x00, A: 0xff},
}

// GrowthSample is the state of a run after one step.
type GrowthSample struct {
	Step     int
	Cells    int
	Volume   float64
	Contacts int
}

// GrowthPlot charts cell count, volume and contact count against the step.
func GrowthPlot(samples []GrowthSample) (*plot.Plot, error) {
	if len(samples) == 0 {
		return nil, errors.New("render: no growth samples")
	}
	cells := make(plotter.XYs, len(samples))
	volume := make(plotter.XYs, len(samples))
	contacts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		x := float64(s.Step)
		cells[i] = plotter.XY{X: x, Y: float64(s.Cells)}
		volume[i] = plotter.XY{X: x, Y: s.Volume}
		contacts[i] = plotter.XY{X: x, Y: float64(s.Contacts)}
	}
	p := plot.New()
	p.Title.Text = "Growth"
	p.X.Label.Text = "step"
	p.Add(plotter.NewGrid())
	for i, series := range []struct {
		name string
		xys  plotter.XYs
	}{
		{"cells", cells},
		{"volume", volume},
		{"contacts", contacts},
	} {
		l, err := plotter.NewLine(series.xys)
		if err != nil {
			return nil, err
		}
		l.Color = plotColors[i]
		p.Add(l)
		p.Legend.Add(series.name, l)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

// WriteGrowthPlot encodes the growth chart in format ("png", "svg", "pdf").
func WriteGrowthPlot(w io.Writer, samples []GrowthSample, format string) error {
	p, err := GrowthPlot(samples)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(16*vg.Centimeter, 10*vg.Centimeter, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// PlotGrowth saves the growth chart to path. The format follows the extension.
func PlotGrowth(path string, samples []GrowthSample) error {
	p, err := GrowthPlot(samples)
	if err != nil {
		return err
	}
	return p.Save(16*vg.Centimeter, 10*vg.Centimeter, path)
}
