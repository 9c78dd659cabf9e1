package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Canonical DESeq2 result columns. Raw tables exported from Galaxy come
// headerless with these seven columns; a six-column variant omits "stat".
var deseq2Columns = []string{"gene_id", "baseMean", "log2FoldChange", "lfcSE", "stat", "pvalue", "padj"}

// Column names whose presence in the first data line marks it as a header.
var headerMarkers = map[string]struct{}{
	"gene_id": {}, "baseMean": {}, "log2FoldChange": {},
	"lfcSE": {}, "stat": {}, "pvalue": {}, "padj": {},
}

// DESeq2Schema returns the canonical schema of a raw DESeq2 result table.
func DESeq2Schema() Schema {
	fields := make([]Field, len(deseq2Columns))
	for i, name := range deseq2Columns {
		t := TypeFloat
		if name == "gene_id" {
			t = TypeString
		}
		fields[i] = Field{Name: name, Type: t}
	}
	return Schema{Fields: fields}
}

// ReadFile parses a delimited table into a raw Dataset.
//
// Comma-separated for .csv, tab-separated otherwise (.tsv, .tabular, .txt).
// Lines starting with '#' are skipped. A header row is recognized when the
// first line mentions a canonical DESeq2 column or a field of the expected
// schema, or under an inferred schema when it has no numeric cells;
// headerless tables with six or seven columns get the canonical DESeq2
// names. Numeric cells that fail to parse (including "NA" and empty
// cells) coerce to missing values.
//
// Returns a *FormatError when the file is not parseable as a table and a
// *SchemaError when fields required by the expected schema are absent. Pass
// a zero Schema to skip the requirement check and infer column types.
func ReadFile(path string, expected Schema) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.Comma = delimiterFor(path)
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}
	if len(rows) == 0 {
		return nil, &FormatError{Path: path, Err: fmt.Errorf("no data rows")}
	}

	names, rows, err := resolveHeader(path, rows, expected)
	if err != nil {
		return nil, err
	}

	if missing := missingFields(names, expected); len(missing) > 0 {
		return nil, &SchemaError{Path: path, Missing: missing}
	}

	types := resolveTypes(names, rows, expected)

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, len(names))
		for i, name := range names {
			rec[name] = coerce(row[i], types[i])
		}
		records = append(records, rec)
	}

	schema := Schema{}
	for i, name := range names {
		schema.Fields = append(schema.Fields, Field{Name: name, Type: types[i]})
	}

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Dataset{ID: id, Source: path, Stage: StageRaw, Schema: schema, Records: records}, nil
}

// WriteFile serializes a dataset as CSV with a header row. Missing cells
// write as empty strings, which ReadFile coerces back to missing.
func WriteFile(ds *Dataset, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(ds.Schema.Names()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	row := make([]string, len(ds.Schema.Fields))
	for _, rec := range ds.Records {
		for i, field := range ds.Schema.Fields {
			row[i] = rec[field.Name].String()
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteList writes one value per line, the format PANTHER-style tools take
// gene-ID lists in.
func WriteList(lines []string, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func delimiterFor(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ','
	}
	return '\t'
}

// resolveHeader decides column names and returns the data rows proper.
func resolveHeader(path string, rows [][]string, expected Schema) ([]string, [][]string, error) {
	first := rows[0]
	if isHeader(first, expected) {
		return first, rows[1:], nil
	}

	switch len(first) {
	case 7:
		return deseq2Columns, rows, nil
	case 6:
		names := []string{"gene_id", "baseMean", "log2FoldChange", "lfcSE", "pvalue", "padj"}
		return names, rows, nil
	}
	if len(expected.Fields) == len(first) {
		return expected.Names(), rows, nil
	}
	return nil, nil, &FormatError{
		Path: path,
		Err:  fmt.Errorf("headerless table has %d columns; expected 6 or 7 DESeq2 columns", len(first)),
	}
}

func isHeader(row []string, expected Schema) bool {
	for _, tok := range row {
		if _, ok := headerMarkers[tok]; ok {
			return true
		}
		if expected.Has(tok) {
			return true
		}
	}
	if len(expected.Fields) == 0 {
		// Inferred schemas: a first line with no numeric cell is a header.
		// Headerless DESeq2 exports always carry numeric columns.
		for _, tok := range row {
			if _, err := strconv.ParseFloat(strings.TrimSpace(tok), 64); err == nil {
				return false
			}
		}
		return true
	}
	return false
}

func missingFields(names []string, expected Schema) []string {
	present := make(map[string]struct{}, len(names))
	for _, n := range names {
		present[n] = struct{}{}
	}
	var missing []string
	for _, f := range expected.Fields {
		if _, ok := present[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// resolveTypes picks a type per column: the expected schema wins, otherwise
// a column where every non-null cell parses numerically is a float column.
func resolveTypes(names []string, rows [][]string, expected Schema) []FieldType {
	types := make([]FieldType, len(names))
	for i, name := range names {
		if t, ok := expected.TypeOf(name); ok {
			types[i] = t
			continue
		}
		types[i] = inferType(rows, i)
	}
	return types
}

func inferType(rows [][]string, col int) FieldType {
	seen := false
	for _, row := range rows {
		cell := strings.TrimSpace(row[col])
		if cell == "" || cell == "NA" {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return TypeString
		}
		seen = true
	}
	if seen {
		return TypeFloat
	}
	return TypeString
}

func coerce(cell string, t FieldType) Value {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == "NA" {
		return Missing()
	}
	if t == TypeFloat {
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return Missing()
		}
		return FloatValue(v)
	}
	return StringValue(cell)
}
