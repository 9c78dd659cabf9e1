package analysis

import (
	"fmt"
	"math"
	"sort"

	"degpipe/internal/dataset"
)

// Pivot assembles a genes-by-conditions value matrix from one dataset per
// condition: one column per input dataset (labeled by its ID), one row per
// key, cell value taken from the value field, zero where a key is absent
// from a condition. With topN > 0 only the strongest rows (largest absolute
// cell anywhere) are kept; rows are ordered weakest to strongest, ties
// broken by key, so the output is deterministic.
func Pivot(name string, inputs []*dataset.Dataset, keyField, valueField string, topN int) (*Result, error) {
	cols := make([]string, len(inputs))
	rowsByKey := make(map[string][]float64)
	for i, ds := range inputs {
		if !ds.Schema.Has(keyField) {
			return nil, fmt.Errorf("analysis %s: field %q not in dataset %s", name, keyField, ds.ID)
		}
		if !ds.Schema.Has(valueField) {
			return nil, fmt.Errorf("analysis %s: field %q not in dataset %s", name, valueField, ds.ID)
		}
		cols[i] = ds.ID

		for _, rec := range ds.Records {
			key := rec[keyField]
			if key.IsMissing() {
				continue
			}
			v, ok := rec[valueField].Float()
			if !ok {
				continue
			}
			row, exists := rowsByKey[key.String()]
			if !exists {
				row = make([]float64, len(inputs))
				rowsByKey[key.String()] = row
			}
			row[i] = v
		}
	}
	if len(rowsByKey) == 0 {
		return nil, computef(name, "no valid %q values across %d inputs", valueField, len(inputs))
	}

	strength := func(row []float64) float64 {
		s := 0.0
		for _, v := range row {
			s = math.Max(s, math.Abs(v))
		}
		return s
	}

	keys := make([]string, 0, len(rowsByKey))
	for k := range rowsByKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		si, sj := strength(rowsByKey[keys[i]]), strength(rowsByKey[keys[j]])
		if si != sj {
			return si < sj
		}
		return keys[i] < keys[j]
	})
	if topN > 0 && len(keys) > topN {
		keys = keys[len(keys)-topN:]
	}

	m := &Matrix{
		RowLabels: keys,
		ColLabels: cols,
		Data:      make([]float64, 0, len(keys)*len(cols)),
	}
	for _, k := range keys {
		m.Data = append(m.Data, rowsByKey[k]...)
	}

	res := &Result{
		Name:    name,
		Kind:    KindPivot,
		Metrics: make(map[string]float64),
		Matrix:  m,
	}
	res.put("n_rows", float64(len(keys)))
	res.put("n_cols", float64(len(cols)))
	return res, nil
}
