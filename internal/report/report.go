// Package report renders diffusion diagnostics as images with gonum/plot.
// The output format follows the file extension (.png, .svg, .pdf).
package report

import (
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/technodrome/diffuser/internal/diffusion"
	"github.com/technodrome/diffuser/internal/tensor"
)

// Page size of every report.
const (
	Width  = 8 * vg.Inch
	Height = 6 * vg.Inch
)

// PlotSchedule draws betas, alphasCumProd and the posterior variance
// against the timestep.
func PlotSchedule(s *diffusion.Schedule, path string) error {
	p := plot.New()
	p.Title.Text = "Cosine noise schedule"
	p.X.Label.Text = "timestep"
	p.Y.Label.Text = "value"
	p.Add(plotter.NewGrid())

	series := []struct {
		name   string
		values []float64
	}{
		{"beta", s.Betas()},
		{"alpha cumprod", s.AlphasCumProd()},
		{"posterior variance", s.PosteriorVariance()},
	}
	for i, sr := range series {
		if err := addLine(p, sr.name, indexed(sr.values), i); err != nil {
			return err
		}
	}
	p.Y.Min, p.Y.Max = 0, 1
	return save(p, path)
}

// PlotLossWeights draws one line per horizon row of the (horizon,
// transition) weight matrix against the transition dimension.
func PlotLossWeights(weights mat.Matrix, path string) error {
	rows, _ := weights.Dims()

	p := plot.New()
	p.Title.Text = "Loss weights"
	p.X.Label.Text = "transition dimension"
	p.Y.Label.Text = "weight"
	p.Add(plotter.NewGrid())

	for h := 0; h < rows; h++ {
		row := mat.Row(nil, h, weights)
		name := ""
		if h == 0 || h == rows-1 {
			name = "h=" + strconv.Itoa(h)
		}
		if err := addLine(p, name, indexed(row), h); err != nil {
			return err
		}
	}
	return save(p, path)
}

// PlotTrajectories draws each trajectory of a sample as a path through the
// (dimX, dimY) plane, best value first.
func PlotTrajectories[T diffusion.Float, B tensor.Backend](s *diffusion.Sample[T, B], dimX, dimY int, path string) error {
	if s == nil || s.Trajectories == nil {
		return errors.New("sample has no trajectories")
	}
	x := s.Trajectories
	shape := x.Shape()
	if len(shape) != 3 {
		return errors.Errorf("trajectories must be (batch, horizon, transition), got %v", shape)
	}
	batch, horizon, dim := shape[0], shape[1], shape[2]
	if dimX < 0 || dimX >= dim || dimY < 0 || dimY >= dim {
		return errors.Errorf("dimensions (%d, %d) outside transition of %d", dimX, dimY, dim)
	}

	p := plot.New()
	p.Title.Text = "Sampled trajectories"
	p.X.Label.Text = "dim " + strconv.Itoa(dimX)
	p.Y.Label.Text = "dim " + strconv.Itoa(dimY)
	p.Add(plotter.NewGrid())

	data := x.Data()
	for b := 0; b < batch; b++ {
		xys := make(plotter.XYs, horizon)
		for h := range xys {
			base := (b*horizon + h) * dim
			xys[h] = plotter.XY{X: float64(data[base+dimX]), Y: float64(data[base+dimY])}
		}

		name := ""
		if b == 0 {
			name = "best"
		}
		if err := addLine(p, name, xys, b); err != nil {
			return err
		}

		start, err := plotter.NewScatter(xys[:1])
		if err != nil {
			return errors.Wrap(err, "start marker")
		}
		start.GlyphStyle.Color = color.Black
		start.GlyphStyle.Radius = vg.Points(2)
		p.Add(start)
	}
	return save(p, path)
}

func addLine(p *plot.Plot, name string, xys plotter.XYs, i int) error {
	line, err := plotter.NewLine(xys)
	if err != nil {
		return errors.Wrapf(err, "line %q", name)
	}
	line.Color = plotutil.Color(i)
	line.Width = vg.Points(1)
	p.Add(line)
	if name != "" {
		p.Legend.Add(name, line)
	}
	return nil
}

func indexed(values []float64) plotter.XYs {
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			v = 0
		}
		xys[i] = plotter.XY{X: float64(i), Y: v}
	}
	return xys
}

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrap(err, "create report directory")
	}
	if err := p.Save(Width, Height, path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return nil
}
