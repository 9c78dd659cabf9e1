// Package analysis computes derived statistics and model fits over
// transformed datasets. Every computation here is a pure function of its
// inputs: identical datasets and configuration always yield identical
// results, and input datasets are never mutated.
package analysis

import (
	"fmt"

	"degpipe/internal/dataset"
)

// Analysis kinds recognized by Run.
const (
	KindSummary      = "summary"
	KindRegression   = "regression"
	KindOverlap      = "overlap"
	KindPivot        = "pivot"
	KindDistribution = "distribution"
	KindRanking      = "ranking"
)

// Config selects one computation over one or more datasets.
type Config struct {
	Name   string   `yaml:"name"`
	Kind   string   `yaml:"kind"`
	Inputs []string `yaml:"inputs"`

	// Fields scopes summary statistics. Empty means every float field.
	Fields []string `yaml:"fields,omitempty"`

	// Regression axes.
	XField string `yaml:"x_field,omitempty"`
	YField string `yaml:"y_field,omitempty"`

	// Overlap and pivot key column. Defaults to "gene_id".
	KeyField string `yaml:"key_field,omitempty"`

	// Pivot and distribution value column. Defaults to "log2FoldChange".
	ValueField string `yaml:"value_field,omitempty"`

	// Pivot and ranking row cap. Zero keeps everything.
	TopN int `yaml:"top_n,omitempty"`

	// Ranking order. Ascending ranks smallest values first, the order
	// for picking top GO terms by FDR.
	Ascending bool `yaml:"ascending,omitempty"`

	// Ranking metric transform: report -log10 of the value instead of
	// the value itself, the usual axis for enrichment significance.
	NegLog10 bool `yaml:"neglog10,omitempty"`
}

// Matrix is a dense row-major value grid with labeled axes, the shape the
// heatmap renderer consumes.
type Matrix struct {
	RowLabels []string
	ColLabels []string
	Data      []float64 // len == len(RowLabels)*len(ColLabels)
}

// At returns the cell at row r, column c.
func (m *Matrix) At(r, c int) float64 { return m.Data[r*len(m.ColLabels)+c] }

// Result is the output of one analysis: named metrics plus any fitted
// parameters, with the auxiliary series the rendering stage needs.
type Result struct {
	Name string
	Kind string

	// Metrics maps metric name to value; Order fixes a deterministic
	// iteration order for serialization and bar rendering.
	Metrics map[string]float64
	Order   []string

	// Params holds fitted model parameters (regression alpha/beta).
	Params map[string]float64

	// Values holds raw samples for distribution results.
	Values []float64
	// Pairs holds (x, y) samples for regression results.
	Pairs [][2]float64
	// Matrix holds the grid for pivot results.
	Matrix *Matrix
}

// Run dispatches to the configured computation. Inputs arrive in the order
// the configuration names them. Returns a *ComputationError on numerically
// invalid input and a plain error on a malformed configuration.
func Run(cfg Config, inputs []*dataset.Dataset) (*Result, error) {
	switch cfg.Kind {
	case KindSummary:
		if err := wantInputs(cfg, inputs, 1); err != nil {
			return nil, err
		}
		return Summarize(cfg.Name, inputs[0], cfg.Fields)
	case KindRegression:
		if err := wantInputs(cfg, inputs, 1); err != nil {
			return nil, err
		}
		return Regression(cfg.Name, inputs[0], cfg.XField, cfg.YField)
	case KindOverlap:
		if err := wantInputs(cfg, inputs, 2); err != nil {
			return nil, err
		}
		return Overlap(cfg.Name, inputs[0], inputs[1], keyOr(cfg.KeyField))
	case KindPivot:
		if len(inputs) < 1 {
			return nil, fmt.Errorf("analysis %s: pivot needs at least one input", cfg.Name)
		}
		return Pivot(cfg.Name, inputs, keyOr(cfg.KeyField), valueOr(cfg.ValueField), cfg.TopN)
	case KindDistribution:
		if err := wantInputs(cfg, inputs, 1); err != nil {
			return nil, err
		}
		return Distribution(cfg.Name, inputs[0], valueOr(cfg.ValueField))
	case KindRanking:
		if err := wantInputs(cfg, inputs, 1); err != nil {
			return nil, err
		}
		return Ranking(cfg.Name, inputs[0], keyOr(cfg.KeyField), valueOr(cfg.ValueField), cfg)
	default:
		return nil, fmt.Errorf("analysis %s: unknown kind %q", cfg.Name, cfg.Kind)
	}
}

func wantInputs(cfg Config, inputs []*dataset.Dataset, n int) error {
	if len(inputs) != n {
		return fmt.Errorf("analysis %s: kind %s takes %d input dataset(s), got %d",
			cfg.Name, cfg.Kind, n, len(inputs))
	}
	return nil
}

func keyOr(field string) string {
	if field == "" {
		return "gene_id"
	}
	return field
}

func valueOr(field string) string {
	if field == "" {
		return "log2FoldChange"
	}
	return field
}
