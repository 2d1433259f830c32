package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nccreang/berelax/pkg/config"
)

// logLevel is shared by every subcommand
var logLevel string

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "berelax",
	Short: "Batch relaxation-curve fitting for voltage-pulse spectroscopy scans",
	Long: `berelax fits relaxation models (exponential, double exponential,
stretched exponential, logistic) to every pixel of a scanned-probe
voltage-pulse spectroscopy dataset, committing resumable per-model
results back into the dataset store.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// applyConfigLogLevel lets the job file set the log level unless the flag was
// given explicitly.
func applyConfigLogLevel(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("log-level") {
		return
	}
	if level, err := logrus.ParseLevel(cfg.Output.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up the shared CLI flags
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
}
