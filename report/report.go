// Package report plots experiment results.
package report

import (
	"errors"
	"image/color"
	"strconv"

	"gonum.org/v1/plot"
	_ "gonum.org/v1/plot/font/liberation"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"bitbucket.org/dmlab/mirrorstab/experiment"
)

// Size is the width and height of the saved plots.
var Size = 5 * vg.Inch

// ErrEmpty is returned when there is nothing to plot.
var ErrEmpty = errors.New("report: empty result")

// maxCurves is the number of eigenvalues drawn by SweepPlot.
const maxCurves = 3

// zeroLine returns a dashed line at y = 0 from x0 to x1.
func zeroLine(x0, x1 float64) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: x0, Y: 0}, {X: x1, Y: 0}})
	if err != nil {
		return nil, err
	}
	l.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	l.Color = color.RGBA{A: 255}
	return l, nil
}

// SweepPlot draws the lowest eigenvalues against the swept value.
func SweepPlot(res *experiment.Result) (*plot.Plot, error) {
	if res.Len() == 0 {
		return nil, ErrEmpty
	}
	p := plot.New()
	p.Title.Text = res.Name
	p.X.Label.Text = res.Kind.Label()
	p.Y.Label.Text = "Omega eigenvalue"
	p.Add(plotter.NewGrid())

	xs := res.Values()
	var lines []interface{}
	for c := 1; c <= maxCurves && c < len(res.Rows[0]); c++ {
		ys := res.Column(c)
		pts := make(plotter.XYs, len(xs))
		for i := range xs {
			pts[i].X = xs[i]
			pts[i].Y = ys[i]
		}
		lines = append(lines, "lambda"+strconv.Itoa(c), pts)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return nil, err
	}

	zl, err := zeroLine(xs[0], xs[len(xs)-1])
	if err != nil {
		return nil, err
	}
	p.Add(zl)
	return p, nil
}

// GridPlot draws the stable and unstable points of a small amplitude test
// over Va^2/dA^3 and Vt^2/dT^3.
func GridPlot(g *experiment.Grid) (*plot.Plot, error) {
	if len(g.X) == 0 || len(g.Y) == 0 {
		return nil, ErrEmpty
	}
	p := plot.New()
	p.Title.Text = "Small amplitude stability"
	p.X.Label.Text = "Va^2/dA^3 (V^2/um^3)"
	p.Y.Label.Text = "Vt^2/dT^3 (V^2/um^3)"

	var stable, unstable plotter.XYs
	for i, y := range g.Y {
		for j, x := range g.X {
			if g.Min.At(i, j) > 0 {
				stable = append(stable, plotter.XY{X: x, Y: y})
			} else {
				unstable = append(unstable, plotter.XY{X: x, Y: y})
			}
		}
	}
	for _, set := range []struct {
		name  string
		pts   plotter.XYs
		color color.Color
		shape draw.GlyphDrawer
	}{
		{"stable", stable, color.RGBA{B: 255, A: 255}, draw.CircleGlyph{}},
		{"unstable", unstable, color.RGBA{R: 255, A: 255}, draw.CrossGlyph{}},
	} {
		if len(set.pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(set.pts)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = set.color
		s.GlyphStyle.Shape = set.shape
		p.Add(s)
		p.Legend.Add(set.name, s)
	}
	return p, nil
}

// Save writes a plot to a file. The format follows the file extension.
func Save(p *plot.Plot, path string) error {
	return p.Save(Size, Size, path)
}
