package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"degpipe/internal/manifest"
)

var historyLimit int

// historyCmd lists recorded pipeline runs
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs, or the artifacts of one run",
	Long: `Reads the manifest database in the output directory. Without
arguments the most recent runs are listed, newest first. With a run id
the artifacts of that run are listed instead.

Example:
  degpipe history
  degpipe history 3f2a...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := manifest.Open(cfg.Output.Dir)
	if err != nil {
		return fmt.Errorf("opening manifest: %w", err)
	}
	defer store.Close()

	if len(args) == 1 {
		return printArtifacts(store, args[0])
	}
	return printRuns(store)
}

func printRuns(store *manifest.Store) error {
	runs, err := store.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	fmt.Println(strings.Repeat("─", 70))
	for _, r := range runs {
		line := fmt.Sprintf("  %s  %-10s %s", r.ID, r.Status, r.StartedAt.Local().Format(time.RFC3339))
		if r.Status == manifest.StatusFailed {
			line += fmt.Sprintf("  [%s/%s] %s", r.FailedStage, r.FailedInput, r.Error)
		}
		fmt.Println(line)
	}
	fmt.Println(strings.Repeat("─", 70))
	fmt.Printf("Total: %d runs\n", len(runs))
	return nil
}

func printArtifacts(store *manifest.Store, runID string) error {
	artifacts, err := store.Artifacts(runID)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		fmt.Printf("No artifacts recorded for run %s.\n", runID)
		return nil
	}
	for _, a := range artifacts {
		fmt.Printf("  %-10s %-8s %-20s %s\n", a.Stage, a.Kind, a.Name, a.Path)
	}
	fmt.Printf("Total: %d artifacts\n", len(artifacts))
	return nil
}
