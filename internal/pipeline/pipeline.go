// Package pipeline drives one end-to-end run: load, transform, analyze,
// render, strictly in that order, persisting every produced dataset,
// result and figure under stable names. The first stage failure halts the
// run; there are no retries and no partial-failure recovery.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"degpipe/internal/analysis"
	"degpipe/internal/config"
	"degpipe/internal/dataset"
	"degpipe/internal/manifest"
	"degpipe/internal/render"
	"degpipe/internal/transform"
)

// Stage names as reported in failures and artifact file names.
const (
	StageLoad      = "load"
	StageTransform = "transform"
	StageAnalyze   = "analyze"
	StageRender    = "render"
)

// Driver sequences the pipeline stages for one configuration.
type Driver struct {
	cfg   *config.Config
	log   *zap.Logger
	store *manifest.Store // nil when the manifest is disabled
}

// New builds a driver. The manifest store may be nil.
func New(cfg *config.Config, log *zap.Logger, store *manifest.Store) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{cfg: cfg, log: log, store: store}
}

// RunResult describes one completed (or halted) pipeline run.
type RunResult struct {
	ID       string
	Started  time.Time
	Finished time.Time

	Artifacts []manifest.Artifact
	Results   map[string]*analysis.Result
	Figures   []*render.Figure
}

// Run executes all stages sequentially. Datasets flow through an
// in-memory registry that only ever grows, so a stage can only consume
// datasets produced by an earlier stage or loaded as raw input. Returns
// the run result along with a *StageError naming the failing stage and
// input when the run halted.
func (d *Driver) Run(ctx context.Context) (*RunResult, error) {
	run := &RunResult{
		ID:      uuid.NewString(),
		Started: time.Now(),
		Results: make(map[string]*analysis.Result),
	}
	d.log.Info("run starting",
		zap.String("run_id", run.ID),
		zap.String("pipeline", d.cfg.Name),
		zap.String("output", d.cfg.Output.Dir))

	if d.store != nil {
		if err := d.store.BeginRun(run.ID, d.cfg.Name, run.Started); err != nil {
			return run, err
		}
	}

	datasets := make(map[string]*dataset.Dataset)
	stages := []struct {
		name string
		exec func(*RunResult, map[string]*dataset.Dataset) error
	}{
		{StageLoad, d.load},
		{StageTransform, d.transform},
		{StageAnalyze, d.analyze},
		{StageRender, d.render},
	}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return run, d.fail(run, stage.name, "", err)
		}
		if err := stage.exec(run, datasets); err != nil {
			serr, ok := err.(*StageError)
			if !ok {
				serr = &StageError{Stage: stage.name, Err: err}
			}
			return run, d.fail(run, serr.Stage, serr.Input, serr)
		}
		d.log.Info("stage complete", zap.String("run_id", run.ID), zap.String("stage", stage.name))
	}

	run.Finished = time.Now()
	if d.store != nil {
		if err := d.store.CompleteRun(run.ID, run.Finished); err != nil {
			return run, err
		}
	}
	d.log.Info("run complete",
		zap.String("run_id", run.ID),
		zap.Int("artifacts", len(run.Artifacts)),
		zap.Duration("elapsed", run.Finished.Sub(run.Started)))
	return run, nil
}

// fail records the halt and hands the stage error back unchanged unless it
// needs wrapping.
func (d *Driver) fail(run *RunResult, stage, input string, err error) error {
	serr, ok := err.(*StageError)
	if !ok {
		serr = &StageError{Stage: stage, Input: input, Err: err}
	}
	run.Finished = time.Now()
	d.log.Error("run halted",
		zap.String("run_id", run.ID),
		zap.String("stage", serr.Stage),
		zap.String("input", serr.Input),
		zap.Error(serr.Err))
	if d.store != nil {
		if dbErr := d.store.FailRun(run.ID, serr.Stage, serr.Input, serr.Err.Error(), run.Finished); dbErr != nil {
			d.log.Warn("recording run failure", zap.Error(dbErr))
		}
	}
	return serr
}

func (d *Driver) load(run *RunResult, datasets map[string]*dataset.Dataset) error {
	var expected dataset.Schema
	if d.cfg.Input.Schema == "" || d.cfg.Input.Schema == "deseq2" {
		expected = dataset.DESeq2Schema()
	}

	for _, tbl := range d.cfg.Input.Tables {
		path := filepath.Join(d.cfg.Input.Dir, tbl.File)
		ds, err := dataset.ReadFile(path, expected)
		if err != nil {
			return &StageError{Stage: StageLoad, Input: tbl.File, Err: err}
		}
		// Re-identify under the configured table ID; the loaded dataset
		// itself stays as ReadFile built it.
		ds = ds.Derive(tbl.ID, ds.Stage, ds.Schema, ds.Records)
		datasets[tbl.ID] = ds
		d.log.Debug("table loaded",
			zap.String("table", tbl.ID),
			zap.String("path", path),
			zap.Int("records", ds.Len()))

		if err := d.persistDataset(run, StageLoad, ds); err != nil {
			return &StageError{Stage: StageLoad, Input: tbl.ID, Err: err}
		}
	}
	return nil
}

func (d *Driver) transform(run *RunResult, datasets map[string]*dataset.Dataset) error {
	tc := d.cfg.Transform

	suffix := tc.OutputSuffix
	if suffix == "" {
		suffix = "_clean"
	}
	for _, tbl := range d.cfg.Input.Tables {
		src := datasets[tbl.ID]
		out, err := transform.Apply(src, tbl.ID+suffix, tc.Ops)
		if err != nil {
			return &StageError{Stage: StageTransform, Input: tbl.ID, Err: err}
		}
		datasets[out.ID] = out
		if err := d.persistDataset(run, StageTransform, out); err != nil {
			return &StageError{Stage: StageTransform, Input: out.ID, Err: err}
		}
	}

	if tc.Join != nil {
		left, err := d.resolve(datasets, tc.Join.Left)
		if err != nil {
			return &StageError{Stage: StageTransform, Input: tc.Join.ID, Err: err}
		}
		right, err := d.resolve(datasets, tc.Join.Right)
		if err != nil {
			return &StageError{Stage: StageTransform, Input: tc.Join.ID, Err: err}
		}
		key := tc.Join.Key
		if key == "" {
			key = "gene_id"
		}
		merged, err := transform.OuterJoin(left, right, tc.Join.ID, key, tc.Join.LeftSuffix, tc.Join.RightSuffix)
		if err != nil {
			return &StageError{Stage: StageTransform, Input: tc.Join.ID, Err: err}
		}
		datasets[merged.ID] = merged
		if err := d.persistDataset(run, StageTransform, merged); err != nil {
			return &StageError{Stage: StageTransform, Input: merged.ID, Err: err}
		}
	}

	if tc.Split != nil {
		source := tc.Split.Source
		if source == "" && tc.Join != nil {
			source = tc.Join.ID
		}
		src, err := d.resolve(datasets, source)
		if err != nil {
			return &StageError{Stage: StageTransform, Input: tc.Split.Prefix, Err: err}
		}
		parts, err := transform.Split(src, tc.Split.Prefix, tc.Split.LeftProbe, tc.Split.RightProbe)
		if err != nil {
			return &StageError{Stage: StageTransform, Input: source, Err: err}
		}
		for _, part := range []*dataset.Dataset{parts.Shared, parts.OnlyLeft, parts.OnlyRight} {
			datasets[part.ID] = part
			if err := d.persistDataset(run, StageTransform, part); err != nil {
				return &StageError{Stage: StageTransform, Input: part.ID, Err: err}
			}
		}
	}

	for _, list := range tc.IDLists {
		src, err := d.resolve(datasets, list.Source)
		if err != nil {
			return &StageError{Stage: StageTransform, Input: list.Name, Err: err}
		}
		if list.Field != "" {
			src, err = transform.SelectEqual(src, list.Name, list.Field, list.Equals)
			if err != nil {
				return &StageError{Stage: StageTransform, Input: list.Name, Err: err}
			}
		}
		idField := list.IDField
		if idField == "" {
			idField = "gene_id"
		}
		if !src.Schema.Has(idField) {
			return &StageError{Stage: StageTransform, Input: list.Name,
				Err: fmt.Errorf("id field %q not in dataset %s", idField, src.ID)}
		}
		path := filepath.Join(d.cfg.Output.Dir, "lists", list.Name+".txt")
		if err := dataset.WriteList(src.Strings(idField), path); err != nil {
			return &StageError{Stage: StageTransform, Input: list.Name, Err: err}
		}
		if err := d.record(run, manifest.Artifact{
			RunID: run.ID, Name: list.Name, Kind: "list", Stage: StageTransform, Path: path,
		}); err != nil {
			return &StageError{Stage: StageTransform, Input: list.Name, Err: err}
		}
	}
	return nil
}

func (d *Driver) analyze(run *RunResult, datasets map[string]*dataset.Dataset) error {
	for _, cfg := range d.cfg.Analyses {
		inputs := make([]*dataset.Dataset, 0, len(cfg.Inputs))
		for _, id := range cfg.Inputs {
			ds, err := d.resolve(datasets, id)
			if err != nil {
				return &StageError{Stage: StageAnalyze, Input: cfg.Name, Err: err}
			}
			inputs = append(inputs, ds)
		}
		res, err := analysis.Run(cfg, inputs)
		if err != nil {
			return &StageError{Stage: StageAnalyze, Input: cfg.Name, Err: err}
		}
		run.Results[cfg.Name] = res

		if err := d.persistResult(run, res); err != nil {
			return &StageError{Stage: StageAnalyze, Input: cfg.Name, Err: err}
		}
	}
	return nil
}

func (d *Driver) render(run *RunResult, _ map[string]*dataset.Dataset) error {
	for _, cfg := range d.cfg.Figures {
		res, ok := run.Results[cfg.Result]
		if !ok {
			return &StageError{Stage: StageRender, Input: cfg.Name,
				Err: fmt.Errorf("figure references unknown analysis result %q", cfg.Result)}
		}
		path := filepath.Join(d.cfg.Output.Dir, fmt.Sprintf("%s_%s.png", StageRender, cfg.Name))
		fig, err := render.Render(res, cfg, path)
		if err != nil {
			return &StageError{Stage: StageRender, Input: cfg.Name, Err: err}
		}
		run.Figures = append(run.Figures, fig)
		if err := d.record(run, manifest.Artifact{
			RunID: run.ID, Name: fig.Name, Kind: "figure", Stage: StageRender, Path: path,
		}); err != nil {
			return &StageError{Stage: StageRender, Input: cfg.Name, Err: err}
		}
	}
	return nil
}

// resolve looks a dataset up in the run registry. The registry only grows
// as stages execute, so an unknown id means the configuration references a
// dataset no earlier stage produced.
func (d *Driver) resolve(datasets map[string]*dataset.Dataset, id string) (*dataset.Dataset, error) {
	ds, ok := datasets[id]
	if !ok {
		return nil, fmt.Errorf("dataset %q was not produced by an earlier stage", id)
	}
	return ds, nil
}

func (d *Driver) persistDataset(run *RunResult, stage string, ds *dataset.Dataset) error {
	path := filepath.Join(d.cfg.Output.Dir, fmt.Sprintf("%s_%s.csv", stage, ds.ID))
	if err := dataset.WriteFile(ds, path); err != nil {
		return err
	}
	return d.record(run, manifest.Artifact{
		RunID: run.ID, Name: ds.ID, Kind: "dataset", Stage: stage, Path: path,
	})
}

// resultDoc is the serialized form of an analysis result: the metric
// mapping and fitted parameters, without the bulky rendering series.
type resultDoc struct {
	Name    string             `json:"name"`
	Kind    string             `json:"kind"`
	Metrics map[string]float64 `json:"metrics"`
	Order   []string           `json:"order"`
	Params  map[string]float64 `json:"params,omitempty"`
}

func (d *Driver) persistResult(run *RunResult, res *analysis.Result) error {
	doc := resultDoc{Name: res.Name, Kind: res.Kind, Metrics: res.Metrics, Order: res.Order, Params: res.Params}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result %s: %w", res.Name, err)
	}
	path := filepath.Join(d.cfg.Output.Dir, fmt.Sprintf("%s_%s.json", StageAnalyze, res.Name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing result %s: %w", res.Name, err)
	}
	return d.record(run, manifest.Artifact{
		RunID: run.ID, Name: res.Name, Kind: "result", Stage: StageAnalyze, Path: path,
	})
}

func (d *Driver) record(run *RunResult, a manifest.Artifact) error {
	run.Artifacts = append(run.Artifacts, a)
	if d.store != nil {
		return d.store.AddArtifact(a)
	}
	return nil
}
