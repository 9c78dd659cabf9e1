package render

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"degpipe/internal/analysis"
)

func newPlot(cfg Config) *plot.Plot {
	p := plot.New()
	p.Title.Text = cfg.Title
	p.X.Label.Text = cfg.XLabel
	p.Y.Label.Text = cfg.YLabel
	return p
}

// renderBar draws one bar per metric in the result's deterministic order.
func renderBar(res *analysis.Result, cfg Config, path string) error {
	values := make(plotter.Values, len(res.Order))
	for i, name := range res.Order {
		values[i] = res.Metrics[name]
	}

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return err
	}
	p := newPlot(cfg)
	p.Add(bars)
	p.NominalX(res.Order...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = -1
	p.X.Tick.Label.YAlign = -0.5

	w, h := cfg.size()
	return p.Save(w, h, path)
}

// renderHistogram draws the distribution of the result's raw samples.
func renderHistogram(res *analysis.Result, cfg Config, path string) error {
	bins := cfg.Bins
	if bins == 0 {
		bins = 16
	}
	hist, err := plotter.NewHist(plotter.Values(res.Values), bins)
	if err != nil {
		return err
	}
	p := newPlot(cfg)
	p.Add(hist)

	w, h := cfg.size()
	return p.Save(w, h, path)
}

// matrixGrid adapts an analysis matrix to the plotter grid interface.
// Row 0 of the matrix draws at the bottom.
type matrixGrid struct{ m *analysis.Matrix }

func (g matrixGrid) Dims() (c, r int)   { return len(g.m.ColLabels), len(g.m.RowLabels) }
func (g matrixGrid) Z(c, r int) float64 { return g.m.At(r, c) }
func (g matrixGrid) X(c int) float64    { return float64(c) }
func (g matrixGrid) Y(r int) float64    { return float64(r) }

// renderHeatmap draws the pivot matrix with a diverging palette scaled
// symmetrically around zero, so up- and down-regulation are comparable.
func renderHeatmap(res *analysis.Result, cfg Config, path string) error {
	m := res.Matrix

	vmax := 0.0
	for _, v := range m.Data {
		vmax = math.Max(vmax, math.Abs(v))
	}
	if vmax == 0 {
		vmax = 1
	}

	pal := moreland.SmoothBlueRed().Palette(255)
	hm := plotter.NewHeatMap(matrixGrid{m}, pal)
	hm.Min = -vmax
	hm.Max = vmax

	p := newPlot(cfg)
	p.Add(hm)

	// Condition names on X; individual genes are too many to label.
	ticks := make([]plot.Tick, len(m.ColLabels))
	for i, label := range m.ColLabels {
		ticks[i] = plot.Tick{Value: float64(i), Label: label}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = -1
	p.Y.Tick.Marker = plot.ConstantTicks(nil)

	w, h := cfg.size()
	return p.Save(w, h, path)
}

// renderScatter draws the regression sample pairs with the fitted line
// overlaid when the result carries alpha/beta parameters.
func renderScatter(res *analysis.Result, cfg Config, path string) error {
	xys := make(plotter.XYs, len(res.Pairs))
	for i, pair := range res.Pairs {
		xys[i].X, xys[i].Y = pair[0], pair[1]
	}
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}

	p := newPlot(cfg)
	p.Add(scatter)

	alpha, okA := res.Params["alpha"]
	beta, okB := res.Params["beta"]
	if okA && okB {
		fit := plotter.NewFunction(func(x float64) float64 { return alpha + beta*x })
		fit.Samples = 2
		p.Add(fit)
	}

	w, h := cfg.size()
	return p.Save(w, h, path)
}
