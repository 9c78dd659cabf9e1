package analysis

import (
	"fmt"

	"degpipe/internal/dataset"
)

// Overlap computes normalized overlap metrics between the key sets of two
// datasets: intersection and union sizes, Jaccard index, overlap
// coefficient, and the shared percentage relative to each side. Empty sets
// yield zero metrics rather than NaN.
func Overlap(name string, a, b *dataset.Dataset, keyField string) (*Result, error) {
	if !a.Schema.Has(keyField) {
		return nil, fmt.Errorf("analysis %s: field %q not in dataset %s", name, keyField, a.ID)
	}
	if !b.Schema.Has(keyField) {
		return nil, fmt.Errorf("analysis %s: field %q not in dataset %s", name, keyField, b.ID)
	}

	setA := a.IDSet(keyField)
	setB := b.IDSet(keyField)

	inter := 0
	for k := range setA {
		if _, ok := setB[k]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter

	jaccard := 0.0
	if union > 0 {
		jaccard = float64(inter) / float64(union)
	}
	smaller := min(len(setA), len(setB))
	coeff := 0.0
	if smaller > 0 {
		coeff = float64(inter) / float64(smaller)
	}
	pctA := 0.0
	if len(setA) > 0 {
		pctA = float64(inter) / float64(len(setA)) * 100
	}
	pctB := 0.0
	if len(setB) > 0 {
		pctB = float64(inter) / float64(len(setB)) * 100
	}

	res := &Result{
		Name:    name,
		Kind:    KindOverlap,
		Metrics: make(map[string]float64),
	}
	res.put("n_a", float64(len(setA)))
	res.put("n_b", float64(len(setB)))
	res.put("n_intersection", float64(inter))
	res.put("n_union", float64(union))
	res.put("jaccard", jaccard)
	res.put("overlap_coefficient", coeff)
	res.put("pct_of_a_shared", pctA)
	res.put("pct_of_b_shared", pctB)
	return res, nil
}
