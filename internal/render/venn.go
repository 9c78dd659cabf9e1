package render

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"degpipe/internal/analysis"
)

// venn draws a fixed-layout two-set diagram: two overlapping translucent
// circles on a unit canvas with hidden axes. Set sizes are reported through
// the legend rather than scaled circle areas.
type venn struct {
	colorA, colorB color.Color
}

func (v *venn) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)

	// Circle geometry in data space: unit square, radius 0.28, centers
	// offset so the circles overlap by roughly a third.
	r := trX(0.28) - trX(0)
	left := vg.Point{X: trX(0.38), Y: trY(0.5)}
	right := vg.Point{X: trX(0.62), Y: trY(0.5)}

	for _, circle := range []struct {
		center vg.Point
		fill   color.Color
	}{
		{left, v.colorA},
		{right, v.colorB},
	} {
		var path vg.Path
		path.Move(vg.Point{X: circle.center.X + r, Y: circle.center.Y})
		path.Arc(circle.center, r, 0, 2*math.Pi)
		path.Close()

		c.SetColor(circle.fill)
		c.Fill(path)
		c.SetColor(color.Black)
		c.SetLineWidth(vg.Points(1))
		c.Stroke(path)
	}
}

// DataRange pins the plot to the unit square the circles are laid out in.
func (v *venn) DataRange() (xmin, xmax, ymin, ymax float64) { return 0, 1, 0, 1 }

// swatch is a legend thumbnail filled with one color.
type swatch struct{ color.Color }

func (s swatch) Thumbnail(c *draw.Canvas) {
	pts := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(s.Color, pts)
}

// renderVenn visualizes an overlap result: circle per set, counts in the
// legend (set sizes and intersection).
func renderVenn(res *analysis.Result, cfg Config, path string) error {
	aLabel := cfg.ALabel
	if aLabel == "" {
		aLabel = "A"
	}
	bLabel := cfg.BLabel
	if bLabel == "" {
		bLabel = "B"
	}

	colorA := color.NRGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0x60}
	colorB := color.NRGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0x60}

	p := newPlot(cfg)
	p.HideAxes()
	p.Add(&venn{colorA: colorA, colorB: colorB})

	p.Legend.Add(fmt.Sprintf("%s (n=%d)", aLabel, int(res.Metrics["n_a"])), swatch{colorA})
	p.Legend.Add(fmt.Sprintf("%s (n=%d)", bLabel, int(res.Metrics["n_b"])), swatch{colorB})
	p.Legend.Add(fmt.Sprintf("shared (n=%d)", int(res.Metrics["n_intersection"])), swatch{color.NRGBA{R: 0x9b, G: 0x59, B: 0xb6, A: 0x60}})
	p.Legend.Top = true

	w, h := cfg.size()
	return p.Save(w, h, path)
}
