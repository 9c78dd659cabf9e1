// Package render turns analysis results into figure artifacts. Each chart
// type checks that the result carries the shape it needs and fails with a
// *RenderError before anything is written, so a halted run leaves no
// partial figure behind.
package render

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot/vg"

	"degpipe/internal/analysis"
)

// Chart types recognized by Render.
const (
	ChartBar       = "bar"
	ChartHistogram = "histogram"
	ChartHeatmap   = "heatmap"
	ChartVenn      = "venn"
	ChartScatter   = "scatter"
)

// Config selects a chart type and its labels for one figure.
type Config struct {
	Name   string `yaml:"name"`
	Chart  string `yaml:"chart"`
	Result string `yaml:"result"`

	Title  string `yaml:"title,omitempty"`
	XLabel string `yaml:"x_label,omitempty"`
	YLabel string `yaml:"y_label,omitempty"`

	// Venn set labels, e.g. "Salt Stress" / "Heat Stress".
	ALabel string `yaml:"a_label,omitempty"`
	BLabel string `yaml:"b_label,omitempty"`

	// Histogram bin count. Zero means 16.
	Bins int `yaml:"bins,omitempty"`

	// Canvas size in centimeters. Zero values take 18x12.
	WidthCM  float64 `yaml:"width_cm,omitempty"`
	HeightCM float64 `yaml:"height_cm,omitempty"`
}

// Figure is an immutable rendered artifact referencing the result it
// visualizes.
type Figure struct {
	Name   string
	Chart  string
	Result string
	Path   string
}

// RenderError reports a result whose shape does not fit the requested
// chart type.
type RenderError struct {
	Figure string
	Chart  string
	Reason string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render error: figure %s (%s): %s", e.Figure, e.Chart, e.Reason)
}

func renderf(cfg Config, format string, args ...any) error {
	return &RenderError{Figure: cfg.Name, Chart: cfg.Chart, Reason: fmt.Sprintf(format, args...)}
}

// Render draws the configured chart from the result and writes it as PNG
// to path. The shape check runs before the output file is created.
func Render(res *analysis.Result, cfg Config, path string) (*Figure, error) {
	var draw func(*analysis.Result, Config, string) error
	switch cfg.Chart {
	case ChartBar:
		draw = renderBar
	case ChartHistogram:
		draw = renderHistogram
	case ChartHeatmap:
		draw = renderHeatmap
	case ChartVenn:
		draw = renderVenn
	case ChartScatter:
		draw = renderScatter
	default:
		return nil, renderf(cfg, "unknown chart type")
	}

	if err := checkShape(res, cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating figure directory: %w", err)
	}
	if err := draw(res, cfg, path); err != nil {
		return nil, fmt.Errorf("drawing figure %s: %w", cfg.Name, err)
	}
	return &Figure{Name: cfg.Name, Chart: cfg.Chart, Result: res.Name, Path: path}, nil
}

// checkShape validates result-shape compatibility for every chart type in
// one place, so the driver halts before any file is touched.
func checkShape(res *analysis.Result, cfg Config) error {
	switch cfg.Chart {
	case ChartBar:
		if len(res.Order) == 0 {
			return renderf(cfg, "result %s has no metrics to plot", res.Name)
		}
	case ChartHistogram:
		if len(res.Values) == 0 {
			return renderf(cfg, "result %s carries no raw samples; histogram needs a distribution result", res.Name)
		}
	case ChartHeatmap:
		if res.Matrix == nil {
			return renderf(cfg, "result %s carries no matrix; heatmap needs a pivot result", res.Name)
		}
	case ChartVenn:
		for _, m := range []string{"n_a", "n_b", "n_intersection"} {
			if _, ok := res.Metrics[m]; !ok {
				return renderf(cfg, "result %s lacks metric %q; venn needs an overlap result", res.Name, m)
			}
		}
	case ChartScatter:
		if len(res.Pairs) == 0 {
			return renderf(cfg, "result %s carries no sample pairs; scatter needs a regression result", res.Name)
		}
	}
	return nil
}

func (c Config) size() (w, h vg.Length) {
	wcm, hcm := c.WidthCM, c.HeightCM
	if wcm == 0 {
		wcm = 18
	}
	if hcm == 0 {
		hcm = 12
	}
	return vg.Length(wcm) * vg.Centimeter, vg.Length(hcm) * vg.Centimeter
}
