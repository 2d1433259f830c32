package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nccreang/berelax/pkg/config"
	"github.com/nccreang/berelax/pkg/dataset"
	"github.com/nccreang/berelax/pkg/relax"
)

var fitConfigPath string

// fitCmd runs the chunked batch fit described by a job file
var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit a relaxation model to every pixel of a scan",
	Long: `fit loads a YAML job file, opens the dataset store it names and runs
the chunked batch fit. An interrupted run resumes from the last committed
chunk when invoked again with the same job.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(fitConfigPath)
		if err != nil {
			logrus.Fatalf("Failed to load job file: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Invalid job: %v", err)
		}
		applyConfigLogLevel(cmd, cfg)

		store, err := dataset.Open(cfg.Dataset.Path)
		if err != nil {
			logrus.Fatalf("Failed to open dataset: %v", err)
		}
		defer store.Close()

		pipeline, err := relax.NewPipeline(store, cfg.PipelineParams())
		if err != nil {
			logrus.Fatalf("Failed to configure fit run: %v", err)
		}

		// An interrupt stops the run between chunks; the persisted cursor
		// lets the next invocation pick up where this one stopped.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := pipeline.Process(ctx); err != nil {
			logrus.Fatalf("Fit run failed: %v", err)
		}
	},
}

// init sets up the fit command flags
func init() {
	fitCmd.Flags().StringVar(&fitConfigPath, "config", "job.yaml", "Path to the YAML job file")
	rootCmd.AddCommand(fitCmd)
}
