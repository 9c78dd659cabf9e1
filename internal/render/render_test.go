package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"degpipe/internal/analysis"
)

func overlapResult() *analysis.Result {
	return &analysis.Result{
		Name: "ov",
		Kind: analysis.KindOverlap,
		Metrics: map[string]float64{
			"n_a": 3, "n_b": 4, "n_intersection": 2, "n_union": 5,
		},
		Order: []string{"n_a", "n_b", "n_intersection", "n_union"},
	}
}

func assertFigure(t *testing.T, fig *Figure, err error) {
	t.Helper()
	require.NoError(t, err)
	info, statErr := os.Stat(fig.Path)
	require.NoError(t, statErr)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRender_Bar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.png")
	fig, err := Render(overlapResult(), Config{Name: "counts", Chart: ChartBar, Title: "Counts"}, path)
	assertFigure(t, fig, err)
	assert.Equal(t, "ov", fig.Result)
}

func TestRender_Histogram(t *testing.T) {
	res := &analysis.Result{
		Name:    "dist",
		Kind:    analysis.KindDistribution,
		Metrics: map[string]float64{"count": 5},
		Order:   []string{"count"},
		Values:  []float64{-2.5, -1, 0.5, 1.2, 3},
	}
	path := filepath.Join(t.TempDir(), "dist.png")
	fig, err := Render(res, Config{Name: "dist", Chart: ChartHistogram, Bins: 4}, path)
	assertFigure(t, fig, err)
}

func TestRender_Heatmap(t *testing.T) {
	res := &analysis.Result{
		Name: "grid",
		Kind: analysis.KindPivot,
		Matrix: &analysis.Matrix{
			RowLabels: []string{"g1", "g2"},
			ColLabels: []string{"salt_up", "heat_up"},
			Data:      []float64{1.5, -0.5, 4, 0},
		},
		Metrics: map[string]float64{"n_rows": 2, "n_cols": 2},
		Order:   []string{"n_rows", "n_cols"},
	}
	path := filepath.Join(t.TempDir(), "heatmap.png")
	fig, err := Render(res, Config{Name: "heatmap", Chart: ChartHeatmap}, path)
	assertFigure(t, fig, err)
}

func TestRender_Venn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venn.png")
	cfg := Config{Name: "venn", Chart: ChartVenn, ALabel: "Salt Stress", BLabel: "Heat Stress"}
	fig, err := Render(overlapResult(), cfg, path)
	assertFigure(t, fig, err)
}

func TestRender_Scatter(t *testing.T) {
	res := &analysis.Result{
		Name:    "fit",
		Kind:    analysis.KindRegression,
		Metrics: map[string]float64{"n": 3, "r_squared": 1},
		Order:   []string{"n", "r_squared"},
		Params:  map[string]float64{"alpha": 1, "beta": 2},
		Pairs:   [][2]float64{{0, 1}, {1, 3}, {2, 5}},
	}
	path := filepath.Join(t.TempDir(), "fit.png")
	fig, err := Render(res, Config{Name: "fit", Chart: ChartScatter}, path)
	assertFigure(t, fig, err)
}

func TestRender_ShapeMismatch(t *testing.T) {
	summary := &analysis.Result{
		Name:    "stats",
		Kind:    analysis.KindSummary,
		Metrics: map[string]float64{"padj_mean": 0.01},
		Order:   []string{"padj_mean"},
	}

	cases := []struct {
		name  string
		chart string
		res   *analysis.Result
	}{
		{"histogram of summary", ChartHistogram, summary},
		{"heatmap of summary", ChartHeatmap, summary},
		{"venn of summary", ChartVenn, summary},
		{"scatter of summary", ChartScatter, summary},
		{"bar of empty result", ChartBar, &analysis.Result{Name: "empty"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "fig.png")
			_, err := Render(tc.res, Config{Name: "fig", Chart: tc.chart}, path)

			var rerr *RenderError
			require.ErrorAs(t, err, &rerr)
			// A failed shape check must not leave a file behind.
			_, statErr := os.Stat(path)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestRender_UnknownChart(t *testing.T) {
	_, err := Render(overlapResult(), Config{Name: "x", Chart: "sparkline"}, filepath.Join(t.TempDir(), "x.png"))
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
}
