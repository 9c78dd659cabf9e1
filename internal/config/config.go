// Package config holds the pipeline run configuration: which raw tables to
// load, which cleaning operations, analyses and figures to produce, and
// where artifacts go. Loaded from YAML with environment overrides applied
// on top.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"degpipe/internal/analysis"
	"degpipe/internal/render"
	"degpipe/internal/transform"
)

// Config holds all degpipe configuration.
type Config struct {
	Name string `yaml:"name"`

	Input     InputConfig       `yaml:"input"`
	Transform TransformConfig   `yaml:"transform"`
	Analyses  []analysis.Config `yaml:"analyses"`
	Figures   []render.Config   `yaml:"figures"`
	Output    OutputConfig      `yaml:"output"`
	Logging   LoggingConfig     `yaml:"logging"`
}

// InputConfig names the raw tables a run loads.
type InputConfig struct {
	// Dir is the directory raw tables are read from.
	Dir string `yaml:"dir"`
	// Schema selects the expected schema: "deseq2" (default) requires the
	// canonical DESeq2 columns, "infer" accepts any table.
	Schema string `yaml:"schema,omitempty"`

	Tables []TableConfig `yaml:"tables"`
}

// TableConfig is one raw input table.
type TableConfig struct {
	// ID identifies the condition, e.g. "salt" or "heat".
	ID string `yaml:"id"`
	// File is the table path relative to the input directory.
	File string `yaml:"file"`
}

// TransformConfig configures the cleaning stage.
type TransformConfig struct {
	// Ops run against every loaded table, in order.
	Ops []transform.Op `yaml:"ops"`
	// OutputSuffix names each per-table result: <table-id><suffix>.
	OutputSuffix string `yaml:"output_suffix,omitempty"`

	Join    *JoinConfig    `yaml:"join,omitempty"`
	Split   *SplitConfig   `yaml:"split,omitempty"`
	IDLists []IDListConfig `yaml:"id_lists,omitempty"`
}

// JoinConfig merges two transformed tables on a key field.
type JoinConfig struct {
	ID          string `yaml:"id"`
	Left        string `yaml:"left"`
	Right       string `yaml:"right"`
	Key         string `yaml:"key,omitempty"` // default gene_id
	LeftSuffix  string `yaml:"left_suffix"`
	RightSuffix string `yaml:"right_suffix"`
}

// SplitConfig partitions a merged table by side membership.
type SplitConfig struct {
	Source     string `yaml:"source"` // defaults to the join's id
	Prefix     string `yaml:"prefix"`
	LeftProbe  string `yaml:"left_probe"`
	RightProbe string `yaml:"right_probe"`
}

// IDListConfig extracts an ID list artifact from a transformed dataset,
// optionally restricted to records where a field equals a value (the
// regulation direction, typically).
type IDListConfig struct {
	Name    string `yaml:"name"`
	Source  string `yaml:"source"`
	IDField string `yaml:"id_field,omitempty"` // default gene_id
	Field   string `yaml:"field,omitempty"`
	Equals  string `yaml:"equals,omitempty"`
}

// OutputConfig configures artifact persistence.
type OutputConfig struct {
	Dir string `yaml:"dir"`
	// Manifest records runs in a SQLite database under Dir.
	Manifest bool `yaml:"manifest"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the configuration of the salt/heat stress study the
// pipeline was built around: filter significant genes per condition, merge,
// split into shared and condition-only sets, and render the standard
// figures.
func DefaultConfig() *Config {
	return &Config{
		Name: "salt-heat-stress",

		Input: InputConfig{
			Dir:    "data",
			Schema: "deseq2",
			Tables: []TableConfig{
				{ID: "salt", File: "salt.tabular"},
				{ID: "heat", File: "heat.tabular"},
			},
		},

		Transform: TransformConfig{
			OutputSuffix: "_significant",
			Ops: []transform.Op{
				{Name: transform.OpFilterSignificant},
				{Name: transform.OpLabelRegulation},
			},
			Join: &JoinConfig{
				ID:          "merged",
				Left:        "salt_significant",
				Right:       "heat_significant",
				LeftSuffix:  "_salt",
				RightSuffix: "_heat",
			},
			Split: &SplitConfig{
				Prefix:     "genes",
				LeftProbe:  "log2FoldChange_salt",
				RightProbe: "log2FoldChange_heat",
			},
			IDLists: []IDListConfig{
				{Name: "salt_up", Source: "genes_only_left", Field: "regulation_salt", Equals: "up"},
				{Name: "salt_down", Source: "genes_only_left", Field: "regulation_salt", Equals: "down"},
				{Name: "heat_up", Source: "genes_only_right", Field: "regulation_heat", Equals: "up"},
				{Name: "heat_down", Source: "genes_only_right", Field: "regulation_heat", Equals: "down"},
				{Name: "both_up", Source: "genes_shared", Field: "regulation_salt", Equals: "up"},
				{Name: "both_down", Source: "genes_shared", Field: "regulation_salt", Equals: "down"},
			},
		},

		Analyses: []analysis.Config{
			{Name: "salt_summary", Kind: analysis.KindSummary, Inputs: []string{"salt_significant"},
				Fields: []string{"log2FoldChange", "padj"}},
			{Name: "heat_summary", Kind: analysis.KindSummary, Inputs: []string{"heat_significant"},
				Fields: []string{"log2FoldChange", "padj"}},
			{Name: "sig_overlap", Kind: analysis.KindOverlap,
				Inputs: []string{"salt_significant", "heat_significant"}},
			{Name: "deg_pivot", Kind: analysis.KindPivot,
				Inputs: []string{"salt_significant", "heat_significant"}, TopN: 500},
			{Name: "lfc_dist", Kind: analysis.KindDistribution, Inputs: []string{"salt_significant"}},
			{Name: "lfc_fit", Kind: analysis.KindRegression, Inputs: []string{"genes_shared"},
				XField: "log2FoldChange_salt", YField: "log2FoldChange_heat"},
		},

		Figures: []render.Config{
			{Name: "sig_venn", Chart: render.ChartVenn, Result: "sig_overlap",
				Title:  "Overlap of Significant Genes in Salt and Heat Stress",
				ALabel: "Salt Stress", BLabel: "Heat Stress"},
			{Name: "deg_heatmap", Chart: render.ChartHeatmap, Result: "deg_pivot",
				Title: "Significant DEGs Across Salt and Heat Conditions"},
			{Name: "lfc_hist", Chart: render.ChartHistogram, Result: "lfc_dist",
				Title: "log2 Fold Change Distribution (salt)", XLabel: "log2FoldChange"},
			{Name: "overlap_counts", Chart: render.ChartBar, Result: "sig_overlap",
				Title: "Significant Gene Counts and Overlap"},
			{Name: "lfc_scatter", Chart: render.ChartScatter, Result: "lfc_fit",
				Title:  "Shared Genes: Salt vs Heat Fold Change",
				XLabel: "log2FoldChange (salt)", YLabel: "log2FoldChange (heat)"},
		},

		Output: OutputConfig{
			Dir:      "out",
			Manifest: true,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file over the defaults and applies environment
// overrides. An empty path returns the defaults with overrides only.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets the environment trump the file for paths and the
// logging level, so collaborators can redirect a run without editing the
// config.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("DEGPIPE_INPUT_DIR"); dir != "" {
		c.Input.Dir = dir
	}
	if dir := os.Getenv("DEGPIPE_OUTPUT_DIR"); dir != "" {
		c.Output.Dir = dir
	}
	if level := os.Getenv("DEGPIPE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate rejects configurations no run could execute.
func (c *Config) Validate() error {
	if len(c.Input.Tables) == 0 {
		return fmt.Errorf("config: no input tables")
	}
	seen := make(map[string]struct{}, len(c.Input.Tables))
	for _, tbl := range c.Input.Tables {
		if tbl.ID == "" || tbl.File == "" {
			return fmt.Errorf("config: input table needs both id and file")
		}
		if _, dup := seen[tbl.ID]; dup {
			return fmt.Errorf("config: duplicate input table id %q", tbl.ID)
		}
		seen[tbl.ID] = struct{}{}
	}
	if c.Transform.Join != nil {
		j := c.Transform.Join
		if j.ID == "" || j.Left == "" || j.Right == "" {
			return fmt.Errorf("config: join needs id, left and right")
		}
	}
	if c.Transform.Split != nil && c.Transform.Join == nil && c.Transform.Split.Source == "" {
		return fmt.Errorf("config: split needs a source when no join is configured")
	}
	for _, a := range c.Analyses {
		if a.Name == "" || a.Kind == "" {
			return fmt.Errorf("config: analysis needs name and kind")
		}
	}
	for _, f := range c.Figures {
		if f.Name == "" || f.Chart == "" || f.Result == "" {
			return fmt.Errorf("config: figure needs name, chart and result")
		}
	}
	return nil
}
