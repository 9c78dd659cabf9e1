package analysis

import (
	"fmt"
	"math"
	"sort"

	"degpipe/internal/dataset"
)

// Ranking pairs a label column with a value column, orders the rows by
// value, and keeps the top TopN. Labels land in Order and values in
// Metrics, the shape the bar chart renders, so a ranked table — top GO
// terms from a PANTHER overrepresentation run, say — plots directly.
// With NegLog10 set the reported metric is -log10 of the value, clamped
// away from zero, which is the conventional enrichment axis.
func Ranking(name string, ds *dataset.Dataset, keyField, valueField string, cfg Config) (*Result, error) {
	if !ds.Schema.Has(keyField) {
		return nil, fmt.Errorf("analysis %s: field %q not in dataset %s", name, keyField, ds.ID)
	}
	if !ds.Schema.Has(valueField) {
		return nil, fmt.Errorf("analysis %s: field %q not in dataset %s", name, valueField, ds.ID)
	}

	type row struct {
		key string
		val float64
	}
	rows := make([]row, 0, len(ds.Records))
	seen := make(map[string]struct{}, len(ds.Records))
	for _, rec := range ds.Records {
		key := rec[keyField]
		if key.IsMissing() {
			continue
		}
		v, ok := rec[valueField].Float()
		if !ok {
			continue
		}
		if _, dup := seen[key.String()]; dup {
			continue
		}
		seen[key.String()] = struct{}{}
		rows = append(rows, row{key: key.String(), val: v})
	}
	if len(rows) == 0 {
		return nil, computef(name, "field %q of dataset %s has no valid samples", valueField, ds.ID)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if cfg.Ascending {
			return rows[i].val < rows[j].val
		}
		return rows[i].val > rows[j].val
	})
	if cfg.TopN > 0 && len(rows) > cfg.TopN {
		rows = rows[:cfg.TopN]
	}

	res := &Result{
		Name:    name,
		Kind:    KindRanking,
		Metrics: make(map[string]float64, len(rows)),
	}
	for _, r := range rows {
		v := r.val
		if cfg.NegLog10 {
			v = -math.Log10(math.Max(v, 1e-300))
		}
		res.put(r.key, v)
	}
	return res, nil
}
