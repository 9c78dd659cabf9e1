// Package dataset holds the in-memory tabular model shared by every
// pipeline stage. A Dataset is an ordered sequence of uniformly-shaped
// records tagged with the processing stage that produced it. Datasets are
// immutable once built: transformations derive new instances instead of
// editing in place.
package dataset

import (
	"fmt"
	"sort"
)

// Stage tags where in the pipeline a dataset was produced.
type Stage string

const (
	StageRaw          Stage = "raw"
	StageIntermediate Stage = "intermediate"
	StageFinal        Stage = "final"
)

// FieldType is the declared type of one column.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeFloat  FieldType = "float"
)

// Field declares one column of a schema.
type Field struct {
	Name string    `yaml:"name"`
	Type FieldType `yaml:"type"`
}

// Schema is the ordered field set shared by all records of a dataset.
type Schema struct {
	Fields []Field
}

// Names returns the field names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Has reports whether the schema declares the named field.
func (s Schema) Has(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// TypeOf returns the declared type of the named field.
func (s Schema) TypeOf(name string) (FieldType, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return "", false
}

// WithField returns a copy of the schema extended by one field. Adding a
// field that already exists returns the schema unchanged.
func (s Schema) WithField(f Field) Schema {
	if s.Has(f.Name) {
		return s
	}
	fields := make([]Field, len(s.Fields), len(s.Fields)+1)
	copy(fields, s.Fields)
	return Schema{Fields: append(fields, f)}
}

// Record maps field names to scalar cells.
type Record map[string]Value

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

// Dataset is an ordered record sequence with a uniform field set.
type Dataset struct {
	// ID identifies the dataset within a run, e.g. "salt_significant".
	ID string
	// Source is the path the raw data came from, carried through derivations.
	Source string
	// Stage tags which pipeline stage produced this instance.
	Stage Stage

	Schema  Schema
	Records []Record
}

// New builds a dataset and validates the uniform-field-set invariant.
func New(id, source string, stage Stage, schema Schema, records []Record) (*Dataset, error) {
	ds := &Dataset{ID: id, Source: source, Stage: stage, Schema: schema, Records: records}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Validate checks that every record carries exactly the schema's field set.
func (d *Dataset) Validate() error {
	for i, rec := range d.Records {
		if len(rec) != len(d.Schema.Fields) {
			return fmt.Errorf("dataset %s: record %d has %d fields, schema declares %d",
				d.ID, i, len(rec), len(d.Schema.Fields))
		}
		for _, f := range d.Schema.Fields {
			if _, ok := rec[f.Name]; !ok {
				return fmt.Errorf("dataset %s: record %d missing field %q", d.ID, i, f.Name)
			}
		}
	}
	return nil
}

// Len returns the record count.
func (d *Dataset) Len() int { return len(d.Records) }

// Derive builds a new dataset from this one, preserving the source path.
// Used by transforms so provenance survives every derivation.
func (d *Dataset) Derive(id string, stage Stage, schema Schema, records []Record) *Dataset {
	return &Dataset{ID: id, Source: d.Source, Stage: stage, Schema: schema, Records: records}
}

// Numeric collects the non-missing numeric values of the named field in
// record order.
func (d *Dataset) Numeric(field string) []float64 {
	vals := make([]float64, 0, len(d.Records))
	for _, rec := range d.Records {
		if v, ok := rec[field].Float(); ok {
			vals = append(vals, v)
		}
	}
	return vals
}

// Strings collects the non-missing string renderings of the named field in
// record order.
func (d *Dataset) Strings(field string) []string {
	vals := make([]string, 0, len(d.Records))
	for _, rec := range d.Records {
		v := rec[field]
		if v.IsMissing() {
			continue
		}
		vals = append(vals, v.String())
	}
	return vals
}

// IDSet returns the distinct non-missing values of the named field.
func (d *Dataset) IDSet(field string) map[string]struct{} {
	set := make(map[string]struct{}, len(d.Records))
	for _, rec := range d.Records {
		v := rec[field]
		if v.IsMissing() {
			continue
		}
		set[v.String()] = struct{}{}
	}
	return set
}

// SortedKeys returns the sorted members of a string set. Deterministic
// ordering for artifacts and tests.
func SortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
