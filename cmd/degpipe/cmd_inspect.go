package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"degpipe/internal/analysis"
	"degpipe/internal/dataset"
)

var inspectInfer bool

// inspectCmd prints the schema and summary statistics of one raw table
var inspectCmd = &cobra.Command{
	Use:   "inspect <table-file>",
	Short: "Show the schema and summary statistics of a result table",
	Long: `Loads one table the way a pipeline run would and prints its schema
along with descriptive statistics for every numeric column. Useful for
checking an export before wiring it into a study config.

Example:
  degpipe inspect data/salt.tabular
  degpipe inspect --infer counts.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectInfer, "infer", false, "Infer the schema instead of requiring DESeq2 columns")
}

func runInspect(cmd *cobra.Command, args []string) error {
	var expected dataset.Schema
	if !inspectInfer {
		expected = dataset.DESeq2Schema()
	}

	ds, err := dataset.ReadFile(args[0], expected)
	if err != nil {
		return err
	}

	fmt.Printf("Table: %s\n", args[0])
	fmt.Printf("Records: %d\n", ds.Len())
	fmt.Println(strings.Repeat("─", 50))
	for _, f := range ds.Schema.Fields {
		fmt.Printf("  %-20s %s\n", f.Name, f.Type)
	}

	res, err := analysis.Summarize("inspect", ds, nil)
	if err != nil {
		// A table with no numeric columns still has a printable schema.
		return nil
	}
	fmt.Println(strings.Repeat("─", 50))
	for _, name := range res.Order {
		fmt.Printf("  %-30s %g\n", name, res.Metrics[name])
	}
	return nil
}
