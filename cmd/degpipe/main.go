package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose   bool
	cfgPath   string
	inputDir  string
	outputDir string

	// Logger
	logger   *zap.Logger
	logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "degpipe",
	Short: "degpipe - reproducible differential expression analysis pipeline",
	Long: `degpipe turns raw DESeq2 result tables into a reproducible set of
cleaned datasets, summary statistics and publication figures.

A run executes four stages in order: load raw tables, transform them
(filtering, labeling, merging conditions), compute analyses, and render
figures. The same input and configuration always produce the same
artifacts; the first failing stage halts the whole run.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logLevel.SetLevel(zapcore.DebugLevel)
		}
		config := zap.NewProductionConfig()
		config.Level = logLevel
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// setLogLevel applies the configured level unless --verbose already
// forced debug.
func setLogLevel(level string) {
	if verbose || level == "" {
		return
	}
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		logLevel.SetLevel(parsed)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Pipeline config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&inputDir, "input", "", "Override the input directory")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output", "", "Override the output directory")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
