package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadFile_HeaderlessDESeq2(t *testing.T) {
	path := writeTemp(t, "salt.tabular",
		"# DESeq2 output\n"+
			"AT1G01010\t120.5\t2.4\t0.3\t8.0\t0.0001\t0.001\n"+
			"AT1G01020\t80.2\t-1.1\t0.2\t-5.5\t0.002\t0.01\n")

	ds, err := ReadFile(path, DESeq2Schema())
	require.NoError(t, err)

	assert.Equal(t, "salt", ds.ID)
	assert.Equal(t, StageRaw, ds.Stage)
	assert.Equal(t, deseq2Columns, ds.Schema.Names())
	require.Len(t, ds.Records, 2)

	v, ok := ds.Records[0]["log2FoldChange"].Float()
	require.True(t, ok)
	assert.Equal(t, 2.4, v)
	assert.Equal(t, "AT1G01020", ds.Records[1]["gene_id"].String())
}

func TestReadFile_HeaderRowAndNACoercion(t *testing.T) {
	path := writeTemp(t, "heat.tsv",
		"gene_id\tbaseMean\tlog2FoldChange\tlfcSE\tstat\tpvalue\tpadj\n"+
			"AT2G02020\t55.1\tNA\t0.4\t1.1\t0.5\tNA\n")

	ds, err := ReadFile(path, DESeq2Schema())
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)

	assert.True(t, ds.Records[0]["log2FoldChange"].IsMissing())
	assert.True(t, ds.Records[0]["padj"].IsMissing())
	_, ok := ds.Records[0]["baseMean"].Float()
	assert.True(t, ok)
}

func TestReadFile_SchemaError(t *testing.T) {
	path := writeTemp(t, "partial.csv",
		"gene_id,log2FoldChange\nAT1G01010,2.0\n")

	expected := Schema{Fields: []Field{
		{Name: "gene_id", Type: TypeString},
		{Name: "log2FoldChange", Type: TypeFloat},
		{Name: "padj", Type: TypeFloat},
	}}

	_, err := ReadFile(path, expected)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"padj"}, schemaErr.Missing)
}

func TestReadFile_FormatError(t *testing.T) {
	t.Run("ragged rows", func(t *testing.T) {
		path := writeTemp(t, "ragged.csv", "a,b,c\n1,2\n")
		_, err := ReadFile(path, Schema{})
		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeTemp(t, "empty.tabular", "# only comments\n")
		_, err := ReadFile(path, Schema{})
		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"), Schema{})
		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr)
	})
}

// Tables from outside tools carry their own headers with none of the
// DESeq2 column names; under an inferred schema the header still has to
// be recognized.
func TestReadFile_InferredHeader(t *testing.T) {
	path := writeTemp(t, "go_salt_up.tsv",
		"term\tfold_enrichment\tfdr\nresponse to stress\t5.2\t0.001\ntransport\t2.0\t0.2\n")

	ds, err := ReadFile(path, Schema{})
	require.NoError(t, err)

	assert.Equal(t, []string{"term", "fold_enrichment", "fdr"}, ds.Schema.Names())
	require.Equal(t, 2, ds.Len())
	fdr, ok := ds.Records[0]["fdr"].Float()
	require.True(t, ok)
	assert.Equal(t, 0.001, fdr)
}

func TestReadFile_TypeInference(t *testing.T) {
	path := writeTemp(t, "genes.csv",
		"gene_id,score,label\nAT1G01010,1.5,up\nAT1G01020,2.5,down\n")

	ds, err := ReadFile(path, Schema{})
	require.NoError(t, err)

	typ, ok := ds.Schema.TypeOf("score")
	require.True(t, ok)
	assert.Equal(t, TypeFloat, typ)

	typ, ok = ds.Schema.TypeOf("label")
	require.True(t, ok)
	assert.Equal(t, TypeString, typ)
}

// Round-trip property: load, serialize, reload yields an equal record set.
func TestRoundTrip(t *testing.T) {
	path := writeTemp(t, "salt.tabular",
		"AT1G01010\t120.5\t2.4\t0.3\t8.0\t0.0001\t0.001\n"+
			"AT1G01020\t80.2\tNA\t0.2\t-5.5\t0.002\tNA\n"+
			"AT1G01030\t10.0\t-3.25\t0.1\t-9.9\t1e-08\t1e-06\n")

	first, err := ReadFile(path, DESeq2Schema())
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "salt_out.csv")
	require.NoError(t, WriteFile(first, out))

	second, err := ReadFile(out, DESeq2Schema())
	require.NoError(t, err)

	assert.Equal(t, first.Schema.Names(), second.Schema.Names())
	if diff := cmp.Diff(first.Records, second.Records); diff != "" {
		t.Errorf("records changed across round-trip (-first +second):\n%s", diff)
	}
}

func TestWriteList(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ids", "salt_up.txt")
	require.NoError(t, WriteList([]string{"AT1G01010", "AT1G01020"}, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "AT1G01010\nAT1G01020\n", string(data))
}
