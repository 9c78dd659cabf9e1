package analysis

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"degpipe/internal/dataset"
)

// Summarize computes per-field descriptive statistics: count, mean, stddev,
// min, max, median. Fields defaults to every float field of the dataset.
// A requested field with no valid samples is a *ComputationError.
func Summarize(name string, ds *dataset.Dataset, fields []string) (*Result, error) {
	if len(fields) == 0 {
		for _, f := range ds.Schema.Fields {
			if f.Type == dataset.TypeFloat {
				fields = append(fields, f.Name)
			}
		}
	}
	if len(fields) == 0 {
		return nil, computef(name, "dataset %s has no numeric fields", ds.ID)
	}

	res := &Result{
		Name:    name,
		Kind:    KindSummary,
		Metrics: make(map[string]float64),
	}
	for _, field := range fields {
		if !ds.Schema.Has(field) {
			return nil, fmt.Errorf("analysis %s: field %q not in dataset %s", name, field, ds.ID)
		}
		vals := ds.Numeric(field)
		if len(vals) == 0 {
			return nil, computef(name, "field %q of dataset %s has no valid samples", field, ds.ID)
		}

		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)

		res.put(field+"_count", float64(len(vals)))
		res.put(field+"_mean", stat.Mean(vals, nil))
		res.put(field+"_stddev", stat.StdDev(vals, nil))
		res.put(field+"_min", floats.Min(sorted))
		res.put(field+"_max", floats.Max(sorted))
		res.put(field+"_median", stat.Quantile(0.5, stat.Empirical, sorted, nil))
	}
	return res, nil
}

// Distribution captures the raw samples of one numeric field, for
// histogram rendering, along with basic location metrics.
func Distribution(name string, ds *dataset.Dataset, field string) (*Result, error) {
	if !ds.Schema.Has(field) {
		return nil, fmt.Errorf("analysis %s: field %q not in dataset %s", name, field, ds.ID)
	}
	vals := ds.Numeric(field)
	if len(vals) == 0 {
		return nil, computef(name, "field %q of dataset %s has no valid samples", field, ds.ID)
	}

	res := &Result{
		Name:    name,
		Kind:    KindDistribution,
		Metrics: make(map[string]float64),
		Values:  append([]float64(nil), vals...),
	}
	res.put("count", float64(len(vals)))
	res.put("mean", stat.Mean(vals, nil))
	res.put("stddev", stat.StdDev(vals, nil))
	return res, nil
}

// put records a metric and its deterministic position.
func (r *Result) put(name string, v float64) {
	if _, ok := r.Metrics[name]; !ok {
		r.Order = append(r.Order, name)
	}
	r.Metrics[name] = v
}
