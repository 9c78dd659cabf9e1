// Package transform implements the cleaning stage: configured operations
// that derive a new dataset with the same or a reduced record set. Every
// operation is deterministic, so applying the same configuration to a
// transform's own output changes nothing.
package transform

import (
	"math"
	"sort"

	"degpipe/internal/dataset"
)

// Operation names recognized by Apply.
const (
	OpDropMissing       = "drop-missing"
	OpNormalize         = "normalize"
	OpFilterSignificant = "filter-significant"
	OpFilterThreshold   = "filter-threshold"
	OpTopN              = "top-n"
	OpLabelRegulation   = "label-regulation"
)

// Default significance thresholds, matching the study's DESeq2 filtering.
const (
	DefaultPadjThreshold = 0.05
	DefaultLFCThreshold  = 1.0
)

// Op configures one cleaning operation.
type Op struct {
	Name string `yaml:"name"`

	// Fields scopes drop-missing and normalize. Empty means every field
	// (drop-missing) or every float field (normalize).
	Fields []string `yaml:"fields,omitempty"`

	// Field scopes filter-threshold and top-n to one column.
	Field string `yaml:"field,omitempty"`

	// Inclusive bounds for filter-threshold. A nil bound is not enforced.
	Max *float64 `yaml:"max,omitempty"`
	Min *float64 `yaml:"min,omitempty"`

	// Row cap for top-n, ordered by Field ascending unless Descending.
	N          int  `yaml:"n,omitempty"`
	Descending bool `yaml:"descending,omitempty"`

	// Significance thresholds for filter-significant. Nil values take the
	// study defaults, so an explicit zero is honored.
	PadjThreshold *float64 `yaml:"padj_threshold,omitempty"`
	LFCThreshold  *float64 `yaml:"lfc_threshold,omitempty"`

	// Column names for filter-significant and label-regulation. Empty
	// values take the canonical DESeq2 names.
	PadjField string `yaml:"padj_field,omitempty"`
	LFCField  string `yaml:"lfc_field,omitempty"`

	// Output column for label-regulation. Defaults to "regulation".
	Target string `yaml:"target,omitempty"`
}

// Apply runs the configured operations in order, deriving a new
// intermediate dataset under the given id. The input dataset is never
// mutated. Returns a *ValidationError when an operation references a field
// the schema does not declare or an operation name Apply does not know.
func Apply(ds *dataset.Dataset, id string, ops []Op) (*dataset.Dataset, error) {
	out := ds
	for _, op := range ops {
		var err error
		switch op.Name {
		case OpDropMissing:
			out, err = dropMissing(out, id, op)
		case OpNormalize:
			out, err = normalize(out, id, op)
		case OpFilterSignificant:
			out, err = filterSignificant(out, id, op)
		case OpFilterThreshold:
			out, err = filterThreshold(out, id, op)
		case OpTopN:
			out, err = topN(out, id, op)
		case OpLabelRegulation:
			out, err = labelRegulation(out, id, op)
		default:
			err = &ValidationError{Op: op.Name, Reason: "unknown operation"}
		}
		if err != nil {
			return nil, err
		}
	}
	if out == ds {
		// No ops configured; still derive so the stage tag advances.
		out = ds.Derive(id, dataset.StageIntermediate, ds.Schema, ds.Records)
	}
	return out, nil
}

func requireFields(op string, ds *dataset.Dataset, fields ...string) error {
	for _, f := range fields {
		if !ds.Schema.Has(f) {
			return unknownField(op, f)
		}
	}
	return nil
}

// dropMissing removes records with missing required fields.
func dropMissing(ds *dataset.Dataset, id string, op Op) (*dataset.Dataset, error) {
	required := op.Fields
	if len(required) == 0 {
		required = ds.Schema.Names()
	}
	if err := requireFields(op.Name, ds, required...); err != nil {
		return nil, err
	}

	kept := make([]dataset.Record, 0, len(ds.Records))
	for _, rec := range ds.Records {
		ok := true
		for _, f := range required {
			if rec[f].IsMissing() {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, rec)
		}
	}
	return ds.Derive(id, dataset.StageIntermediate, ds.Schema, kept), nil
}

// normalize min-max rescales numeric fields into [0,1]. A constant column
// maps to all zeros. Missing cells stay missing.
func normalize(ds *dataset.Dataset, id string, op Op) (*dataset.Dataset, error) {
	fields := op.Fields
	if len(fields) == 0 {
		for _, f := range ds.Schema.Fields {
			if f.Type == dataset.TypeFloat {
				fields = append(fields, f.Name)
			}
		}
	}
	if err := requireFields(op.Name, ds, fields...); err != nil {
		return nil, err
	}

	type span struct{ min, max float64 }
	spans := make(map[string]span, len(fields))
	for _, f := range fields {
		vals := ds.Numeric(f)
		if len(vals) == 0 {
			continue
		}
		s := span{min: math.Inf(1), max: math.Inf(-1)}
		for _, v := range vals {
			s.min = math.Min(s.min, v)
			s.max = math.Max(s.max, v)
		}
		spans[f] = s
	}

	records := make([]dataset.Record, len(ds.Records))
	for i, rec := range ds.Records {
		cp := rec.Clone()
		for _, f := range fields {
			v, ok := cp[f].Float()
			if !ok {
				continue
			}
			s := spans[f]
			if s.max == s.min {
				cp[f] = dataset.FloatValue(0)
				continue
			}
			cp[f] = dataset.FloatValue((v - s.min) / (s.max - s.min))
		}
		records[i] = cp
	}
	return ds.Derive(id, dataset.StageIntermediate, ds.Schema, records), nil
}

// filterSignificant keeps records with padj below the threshold and an
// absolute log2 fold change at or above the threshold. Records with a
// missing padj or fold change are dropped, as in the source filtering.
func filterSignificant(ds *dataset.Dataset, id string, op Op) (*dataset.Dataset, error) {
	padjField := fieldOr(op.PadjField, "padj")
	lfcField := fieldOr(op.LFCField, "log2FoldChange")
	if err := requireFields(op.Name, ds, padjField, lfcField); err != nil {
		return nil, err
	}

	padjMax := DefaultPadjThreshold
	if op.PadjThreshold != nil {
		padjMax = *op.PadjThreshold
	}
	lfcMin := DefaultLFCThreshold
	if op.LFCThreshold != nil {
		lfcMin = *op.LFCThreshold
	}

	kept := make([]dataset.Record, 0, len(ds.Records))
	for _, rec := range ds.Records {
		padj, ok := rec[padjField].Float()
		if !ok {
			continue
		}
		lfc, ok := rec[lfcField].Float()
		if !ok {
			continue
		}
		if padj < padjMax && math.Abs(lfc) >= lfcMin {
			kept = append(kept, rec)
		}
	}
	return ds.Derive(id, dataset.StageIntermediate, ds.Schema, kept), nil
}

// filterThreshold keeps records whose field lies within the configured
// inclusive bounds. Records with a missing value are dropped. This is how
// PANTHER overrepresentation tables come back into a run: keep the GO
// terms with fdr at or below the significance level.
func filterThreshold(ds *dataset.Dataset, id string, op Op) (*dataset.Dataset, error) {
	if op.Field == "" {
		return nil, &ValidationError{Op: op.Name, Reason: "needs a field"}
	}
	if op.Max == nil && op.Min == nil {
		return nil, &ValidationError{Op: op.Name, Field: op.Field, Reason: "needs a max or min bound"}
	}
	if err := requireFields(op.Name, ds, op.Field); err != nil {
		return nil, err
	}

	kept := make([]dataset.Record, 0, len(ds.Records))
	for _, rec := range ds.Records {
		v, ok := rec[op.Field].Float()
		if !ok {
			continue
		}
		if op.Max != nil && v > *op.Max {
			continue
		}
		if op.Min != nil && v < *op.Min {
			continue
		}
		kept = append(kept, rec)
	}
	return ds.Derive(id, dataset.StageIntermediate, ds.Schema, kept), nil
}

// topN keeps the n records with the smallest field values, or the largest
// when Descending. The sort is stable so records tied on the field keep
// their input order. Records with a missing value are dropped.
func topN(ds *dataset.Dataset, id string, op Op) (*dataset.Dataset, error) {
	if op.Field == "" {
		return nil, &ValidationError{Op: op.Name, Reason: "needs a field"}
	}
	if op.N <= 0 {
		return nil, &ValidationError{Op: op.Name, Field: op.Field, Reason: "needs n > 0"}
	}
	if err := requireFields(op.Name, ds, op.Field); err != nil {
		return nil, err
	}

	kept := make([]dataset.Record, 0, len(ds.Records))
	for _, rec := range ds.Records {
		if _, ok := rec[op.Field].Float(); ok {
			kept = append(kept, rec)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		vi, _ := kept[i][op.Field].Float()
		vj, _ := kept[j][op.Field].Float()
		if op.Descending {
			return vi > vj
		}
		return vi < vj
	})
	if len(kept) > op.N {
		kept = kept[:op.N]
	}
	return ds.Derive(id, dataset.StageIntermediate, ds.Schema, kept), nil
}

// labelRegulation adds an up/down column from the fold-change sign.
func labelRegulation(ds *dataset.Dataset, id string, op Op) (*dataset.Dataset, error) {
	lfcField := fieldOr(op.LFCField, "log2FoldChange")
	if err := requireFields(op.Name, ds, lfcField); err != nil {
		return nil, err
	}
	target := fieldOr(op.Target, "regulation")

	schema := ds.Schema.WithField(dataset.Field{Name: target, Type: dataset.TypeString})
	records := make([]dataset.Record, len(ds.Records))
	for i, rec := range ds.Records {
		cp := rec.Clone()
		if lfc, ok := cp[lfcField].Float(); ok {
			if lfc >= 0 {
				cp[target] = dataset.StringValue("up")
			} else {
				cp[target] = dataset.StringValue("down")
			}
		} else {
			cp[target] = dataset.Missing()
		}
		records[i] = cp
	}
	return ds.Derive(id, dataset.StageIntermediate, schema, records), nil
}

func fieldOr(field, fallback string) string {
	if field == "" {
		return fallback
	}
	return field
}

// SelectEqual derives the records whose field equals the given value.
// Used to split gene lists by regulation direction.
func SelectEqual(ds *dataset.Dataset, id, field, value string) (*dataset.Dataset, error) {
	if err := requireFields("select-equal", ds, field); err != nil {
		return nil, err
	}
	kept := make([]dataset.Record, 0, len(ds.Records))
	for _, rec := range ds.Records {
		v := rec[field]
		if !v.IsMissing() && v.String() == value {
			kept = append(kept, rec)
		}
	}
	return ds.Derive(id, dataset.StageIntermediate, ds.Schema, kept), nil
}
