package transform

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"degpipe/internal/dataset"
)

func degTable(t *testing.T, rows []dataset.Record) *dataset.Dataset {
	t.Helper()
	schema := dataset.Schema{Fields: []dataset.Field{
		{Name: "gene_id", Type: dataset.TypeString},
		{Name: "log2FoldChange", Type: dataset.TypeFloat},
		{Name: "padj", Type: dataset.TypeFloat},
	}}
	ds, err := dataset.New("test", "mem", dataset.StageRaw, schema, rows)
	require.NoError(t, err)
	return ds
}

func rec(gene string, lfc, padj dataset.Value) dataset.Record {
	return dataset.Record{
		"gene_id":        dataset.StringValue(gene),
		"log2FoldChange": lfc,
		"padj":           padj,
	}
}

// goTable builds an overrepresentation-style table: term, fold_enrichment,
// fdr. A nil fdr cell becomes a missing value.
func goTable(t *testing.T, rows [][3]any) *dataset.Dataset {
	t.Helper()
	schema := dataset.Schema{Fields: []dataset.Field{
		{Name: "term", Type: dataset.TypeString},
		{Name: "fold_enrichment", Type: dataset.TypeFloat},
		{Name: "fdr", Type: dataset.TypeFloat},
	}}
	records := make([]dataset.Record, len(rows))
	for i, row := range rows {
		fdr := dataset.Missing()
		if v, ok := row[2].(float64); ok {
			fdr = dataset.FloatValue(v)
		}
		records[i] = dataset.Record{
			"term":            dataset.StringValue(row[0].(string)),
			"fold_enrichment": dataset.FloatValue(row[1].(float64)),
			"fdr":             fdr,
		}
	}
	ds, err := dataset.New("go_test", "mem", dataset.StageRaw, schema, records)
	require.NoError(t, err)
	return ds
}

func f64(v float64) *float64 { return &v }

func TestDropMissing(t *testing.T) {
	ds := degTable(t, []dataset.Record{
		rec("a", dataset.FloatValue(2), dataset.FloatValue(0.01)),
		rec("b", dataset.Missing(), dataset.FloatValue(0.02)),
		rec("c", dataset.FloatValue(-3), dataset.Missing()),
	})

	out, err := Apply(ds, "cleaned", []Op{{Name: OpDropMissing, Fields: []string{"log2FoldChange"}}})
	require.NoError(t, err)

	// Exactly the record with the missing required field is gone.
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "a", out.Records[0]["gene_id"].String())
	assert.Equal(t, "c", out.Records[1]["gene_id"].String())
	assert.Equal(t, dataset.StageIntermediate, out.Stage)

	// Input untouched.
	assert.Equal(t, 3, ds.Len())
}

func TestFilterSignificant(t *testing.T) {
	ds := degTable(t, []dataset.Record{
		rec("kept_up", dataset.FloatValue(2.4), dataset.FloatValue(0.001)),
		rec("kept_down", dataset.FloatValue(-1.5), dataset.FloatValue(0.01)),
		rec("weak_fold", dataset.FloatValue(0.5), dataset.FloatValue(0.001)),
		rec("weak_padj", dataset.FloatValue(3.0), dataset.FloatValue(0.2)),
		rec("na_padj", dataset.FloatValue(3.0), dataset.Missing()),
	})

	out, err := Apply(ds, "sig", []Op{{Name: OpFilterSignificant}})
	require.NoError(t, err)

	var ids []string
	for _, r := range out.Records {
		ids = append(ids, r["gene_id"].String())
	}
	assert.Equal(t, []string{"kept_up", "kept_down"}, ids)
}

// An explicit zero threshold is a real bound, not a request for the
// default.
func TestFilterSignificant_ExplicitZeroThresholds(t *testing.T) {
	ds := degTable(t, []dataset.Record{
		rec("strong", dataset.FloatValue(2.0), dataset.FloatValue(0.001)),
		rec("weak", dataset.FloatValue(0.3), dataset.FloatValue(0.001)),
	})

	out, err := Apply(ds, "all_folds", []Op{{Name: OpFilterSignificant, LFCThreshold: f64(0)}})
	require.NoError(t, err)
	// |lfc| >= 0 keeps every fold change; the default of 1.0 would drop "weak".
	assert.Equal(t, 2, out.Len())

	out, err = Apply(ds, "none", []Op{{Name: OpFilterSignificant, PadjThreshold: f64(0)}})
	require.NoError(t, err)
	// padj < 0 keeps nothing.
	assert.Equal(t, 0, out.Len())
}

func TestFilterThreshold(t *testing.T) {
	ds := goTable(t, [][3]any{
		{"response to stress", 5.2, 0.001},
		{"oxidation-reduction", 3.1, 0.04},
		{"transport", 2.0, 0.2},
		{"unscored", 1.5, nil},
	})

	out, err := Apply(ds, "go_sig", []Op{{Name: OpFilterThreshold, Field: "fdr", Max: f64(0.05)}})
	require.NoError(t, err)

	var terms []string
	for _, r := range out.Records {
		terms = append(terms, r["term"].String())
	}
	// Inclusive bound: fdr == 0.04 stays; the missing fdr is dropped.
	assert.Equal(t, []string{"response to stress", "oxidation-reduction"}, terms)

	t.Run("min bound", func(t *testing.T) {
		out, err := Apply(ds, "enriched", []Op{{Name: OpFilterThreshold, Field: "fold_enrichment", Min: f64(3.0)}})
		require.NoError(t, err)
		assert.Equal(t, 2, out.Len())
	})

	t.Run("no bounds", func(t *testing.T) {
		_, err := Apply(ds, "x", []Op{{Name: OpFilterThreshold, Field: "fdr"}})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("no field", func(t *testing.T) {
		_, err := Apply(ds, "x", []Op{{Name: OpFilterThreshold, Max: f64(1)}})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestTopN(t *testing.T) {
	ds := goTable(t, [][3]any{
		{"transport", 2.0, 0.04},
		{"response to stress", 5.2, 0.001},
		{"oxidation-reduction", 3.1, 0.02},
		{"unscored", 1.5, nil},
	})

	out, err := Apply(ds, "go_top", []Op{{Name: OpTopN, Field: "fdr", N: 2}})
	require.NoError(t, err)

	var terms []string
	for _, r := range out.Records {
		terms = append(terms, r["term"].String())
	}
	// Smallest fdr first; the missing fdr never ranks.
	assert.Equal(t, []string{"response to stress", "oxidation-reduction"}, terms)

	t.Run("descending", func(t *testing.T) {
		out, err := Apply(ds, "go_top", []Op{{Name: OpTopN, Field: "fold_enrichment", N: 1, Descending: true}})
		require.NoError(t, err)
		require.Equal(t, 1, out.Len())
		assert.Equal(t, "response to stress", out.Records[0]["term"].String())
	})

	t.Run("n required", func(t *testing.T) {
		_, err := Apply(ds, "x", []Op{{Name: OpTopN, Field: "fdr"}})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestLabelRegulation(t *testing.T) {
	ds := degTable(t, []dataset.Record{
		rec("a", dataset.FloatValue(2), dataset.FloatValue(0.01)),
		rec("b", dataset.FloatValue(-2), dataset.FloatValue(0.01)),
		rec("c", dataset.Missing(), dataset.FloatValue(0.01)),
	})

	out, err := Apply(ds, "labeled", []Op{{Name: OpLabelRegulation}})
	require.NoError(t, err)

	assert.True(t, out.Schema.Has("regulation"))
	assert.Equal(t, "up", out.Records[0]["regulation"].String())
	assert.Equal(t, "down", out.Records[1]["regulation"].String())
	assert.True(t, out.Records[2]["regulation"].IsMissing())
	// Source schema did not grow.
	assert.False(t, ds.Schema.Has("regulation"))
}

func TestNormalize(t *testing.T) {
	ds := degTable(t, []dataset.Record{
		rec("a", dataset.FloatValue(-2), dataset.FloatValue(0.5)),
		rec("b", dataset.FloatValue(0), dataset.FloatValue(0.5)),
		rec("c", dataset.FloatValue(2), dataset.FloatValue(0.5)),
	})

	out, err := Apply(ds, "norm", []Op{{Name: OpNormalize, Fields: []string{"log2FoldChange", "padj"}}})
	require.NoError(t, err)

	lfc := out.Numeric("log2FoldChange")
	assert.Equal(t, []float64{0, 0.5, 1}, lfc)
	// Constant column maps to zeros.
	assert.Equal(t, []float64{0, 0, 0}, out.Numeric("padj"))
}

func TestValidationError(t *testing.T) {
	ds := degTable(t, nil)

	t.Run("unknown field", func(t *testing.T) {
		_, err := Apply(ds, "x", []Op{{Name: OpDropMissing, Fields: []string{"no_such"}}})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "no_such", verr.Field)
	})

	t.Run("unknown op", func(t *testing.T) {
		_, err := Apply(ds, "x", []Op{{Name: "transmogrify"}})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

// Applying a deterministic op list to its own output must be a no-op.
func TestIdempotence(t *testing.T) {
	ds := degTable(t, []dataset.Record{
		rec("a", dataset.FloatValue(2.4), dataset.FloatValue(0.001)),
		rec("b", dataset.FloatValue(-1.5), dataset.FloatValue(0.01)),
		rec("c", dataset.FloatValue(0.2), dataset.FloatValue(0.5)),
		rec("d", dataset.Missing(), dataset.FloatValue(0.01)),
	})
	ops := []Op{
		{Name: OpDropMissing, Fields: []string{"log2FoldChange", "padj"}},
		{Name: OpFilterSignificant},
		{Name: OpLabelRegulation},
	}

	once, err := Apply(ds, "once", ops)
	require.NoError(t, err)
	twice, err := Apply(once, "once", ops)
	require.NoError(t, err)

	if diff := cmp.Diff(once.Records, twice.Records); diff != "" {
		t.Errorf("second application changed records (-once +twice):\n%s", diff)
	}

	// normalize is idempotent on its own: rescaling [0,1] is the identity.
	normOps := []Op{{Name: OpNormalize, Fields: []string{"padj"}}}
	n1, err := Apply(once, "norm", normOps)
	require.NoError(t, err)
	n2, err := Apply(n1, "norm", normOps)
	require.NoError(t, err)
	if diff := cmp.Diff(n1.Records, n2.Records); diff != "" {
		t.Errorf("normalize not idempotent (-n1 +n2):\n%s", diff)
	}
}

func TestOuterJoin(t *testing.T) {
	salt := degTable(t, []dataset.Record{
		rec("shared", dataset.FloatValue(2), dataset.FloatValue(0.01)),
		rec("salt_only", dataset.FloatValue(3), dataset.FloatValue(0.02)),
	})
	heat := degTable(t, []dataset.Record{
		rec("shared", dataset.FloatValue(-2), dataset.FloatValue(0.03)),
		rec("heat_only", dataset.FloatValue(4), dataset.FloatValue(0.04)),
	})

	merged, err := OuterJoin(salt, heat, "merged", "gene_id", "_salt", "_heat")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"gene_id",
		"log2FoldChange_salt", "padj_salt",
		"log2FoldChange_heat", "padj_heat",
	}, merged.Schema.Names())
	require.Equal(t, 3, merged.Len())

	shared := merged.Records[0]
	lfcSalt, _ := shared["log2FoldChange_salt"].Float()
	lfcHeat, _ := shared["log2FoldChange_heat"].Float()
	assert.Equal(t, 2.0, lfcSalt)
	assert.Equal(t, -2.0, lfcHeat)

	heatOnly := merged.Records[2]
	assert.Equal(t, "heat_only", heatOnly["gene_id"].String())
	assert.True(t, heatOnly["log2FoldChange_salt"].IsMissing())
}

func TestOuterJoin_MissingKey(t *testing.T) {
	salt := degTable(t, nil)
	other, err := dataset.New("o", "mem", dataset.StageRaw,
		dataset.Schema{Fields: []dataset.Field{{Name: "id", Type: dataset.TypeString}}}, nil)
	require.NoError(t, err)

	_, err = OuterJoin(salt, other, "merged", "gene_id", "_a", "_b")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestSplit(t *testing.T) {
	salt := degTable(t, []dataset.Record{
		rec("both", dataset.FloatValue(2), dataset.FloatValue(0.01)),
		rec("salt_only", dataset.FloatValue(3), dataset.FloatValue(0.02)),
	})
	heat := degTable(t, []dataset.Record{
		rec("both", dataset.FloatValue(-2), dataset.FloatValue(0.03)),
		rec("heat_only", dataset.FloatValue(4), dataset.FloatValue(0.04)),
	})
	merged, err := OuterJoin(salt, heat, "merged", "gene_id", "_salt", "_heat")
	require.NoError(t, err)

	split, err := Split(merged, "genes", "log2FoldChange_salt", "log2FoldChange_heat")
	require.NoError(t, err)

	assert.Equal(t, 1, split.Shared.Len())
	assert.Equal(t, "both", split.Shared.Records[0]["gene_id"].String())
	assert.Equal(t, 1, split.OnlyLeft.Len())
	assert.Equal(t, "salt_only", split.OnlyLeft.Records[0]["gene_id"].String())
	assert.Equal(t, 1, split.OnlyRight.Len())
	assert.Equal(t, "heat_only", split.OnlyRight.Records[0]["gene_id"].String())
}

func TestSelectEqual(t *testing.T) {
	ds := degTable(t, []dataset.Record{
		rec("a", dataset.FloatValue(2), dataset.FloatValue(0.01)),
		rec("b", dataset.FloatValue(-2), dataset.FloatValue(0.01)),
	})
	labeled, err := Apply(ds, "labeled", []Op{{Name: OpLabelRegulation}})
	require.NoError(t, err)

	up, err := SelectEqual(labeled, "up", "regulation", "up")
	require.NoError(t, err)
	require.Equal(t, 1, up.Len())
	assert.Equal(t, "a", up.Records[0]["gene_id"].String())
}
