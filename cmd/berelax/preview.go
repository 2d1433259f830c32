package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nccreang/berelax/pkg/config"
	"github.com/nccreang/berelax/pkg/dataset"
	"github.com/nccreang/berelax/pkg/relax"
	"github.com/nccreang/berelax/pkg/visualization"
)

var (
	previewConfigPath string
	previewPixel      int
	previewCycle      int
	previewOut        string
)

// previewCmd fits a single pixel in memory and renders the outcome
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Fit one pixel in memory and render the fitted curves",
	Long: `preview runs the configured model over a single pixel without
creating any results group, then renders the reconstructed signal and the
fitted curve. Use it to tune sensitivity, phase offset and model choice
before a batch run.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(previewConfigPath)
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
			logrus.Fatalf("Failed to configure test fit: %v", err)
		}

		prev, err := pipeline.TestPixel(previewPixel)
		if err != nil {
			logrus.Fatalf("Test fit failed: %v", err)
		}
		for c, params := range prev.Params {
			logrus.Infof("pixel %d cycle %d: %s fit %v", previewPixel, c, cfg.Fit.Model, params)
		}

		fp, err := visualization.NewFitPreview(prev.Time, prev.Signals, prev.Fitted)
		if err != nil {
			logrus.Fatalf("Failed to build preview: %v", err)
		}

		if previewCycle >= 0 {
			out := previewOut
			if !cmd.Flags().Changed("out") {
				out = fmt.Sprintf("pixel_%d_cycle_%d.png", previewPixel, previewCycle)
			}
			title := fmt.Sprintf("%s pixel %d cycle %d", cfg.Fit.Model, previewPixel, previewCycle)
			if err := fp.RenderCycle(previewCycle, title, out); err != nil {
				logrus.Fatalf("Failed to render preview: %v", err)
			}
			logrus.Infof("wrote %s", out)
			return
		}

		prefix := fmt.Sprintf("pixel_%d", previewPixel)
		if err := fp.RenderSequence(previewOut, prefix); err != nil {
			logrus.Fatalf("Failed to render previews: %v", err)
		}
		logrus.Infof("wrote %d cycle previews under %s", fp.Cycles(), previewOut)
	},
}

// init sets up the preview command flags
func init() {
	previewCmd.Flags().StringVar(&previewConfigPath, "config", "job.yaml", "Path to the YAML job file")
	previewCmd.Flags().IntVar(&previewPixel, "pixel", 0, "Pixel row to fit")
	previewCmd.Flags().IntVar(&previewCycle, "cycle", -1, "Cycle to render; negative renders every cycle")
	previewCmd.Flags().StringVar(&previewOut, "out", "previews", "Output image file (with --cycle) or directory")
	rootCmd.AddCommand(previewCmd)
}
