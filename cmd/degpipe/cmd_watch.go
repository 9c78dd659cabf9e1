package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"degpipe/internal/pipeline"
	"degpipe/internal/watch"
)

var watchSettle time.Duration

// watchCmd re-runs the pipeline whenever an input table changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the pipeline when input tables change",
	Long: `Watches the input directory and triggers a full run after table
files (.tabular, .tsv, .csv) stop changing. A burst of saves settles
into a single run. Stop with Ctrl-C.

Example:
  degpipe watch -c study.yaml --settle 2s`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", 2*time.Second, "Quiet period before a run triggers")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
	driver := pipeline.New(cfg, logger, store)

	// A failed run logs and keeps watching; the next settled change gets
	// another chance.
	trigger := func(ctx context.Context, paths []string) {
		if _, err := driver.Run(ctx); err != nil {
			logger.Error("run failed", zap.Error(err))
		}
	}

	w, err := watch.New(cfg.Input.Dir, watchSettle, logger, trigger)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	logger.Info("watching for table changes", zap.String("dir", cfg.Input.Dir))
	<-ctx.Done()
	return nil
}
