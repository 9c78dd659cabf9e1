package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"degpipe/internal/config"
	"degpipe/internal/manifest"
	"degpipe/internal/pipeline"
)

// runCmd executes one full pipeline run
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the pipeline once: load, transform, analyze, render",
	Long: `Runs every stage against the configured input tables and writes all
artifacts to the output directory. The run is recorded in the manifest
database unless the manifest is disabled.

Example:
  degpipe run -c study.yaml
  degpipe run --input data/ --output out/`,
	RunE: runPipeline,
}

// loadConfig resolves the effective configuration: file over defaults,
// then environment, then command-line flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if inputDir != "" {
		cfg.Input.Dir = inputDir
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	setLogLevel(cfg.Logging.Level)
	return cfg, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	run, err := pipeline.New(cfg, logger, store).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("run %s completed: %d artifacts in %s\n", run.ID, len(run.Artifacts), cfg.Output.Dir)
	return nil
}

// openStore opens the manifest database when the config enables it.
func openStore(cfg *config.Config) (*manifest.Store, error) {
	if !cfg.Output.Manifest {
		return nil, nil
	}
	store, err := manifest.Open(cfg.Output.Dir)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	logger.Debug("manifest open", zap.String("path", store.Path()))
	return store, nil
}
