// Package config provides job configuration loading and management for berelax.
// It handles loading job files from YAML and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/nccreang/berelax/pkg/fitting"
	"github.com/nccreang/berelax/pkg/relax"
)

// Config represents one fitting job loaded from YAML
type Config struct {
	// Dataset parameters
	Dataset struct {
		// Path is the dataset store file holding the scan
		Path string `yaml:"path"`

		// MeasurementGroup is the root-level group carrying the scan timing attributes
		MeasurementGroup string `yaml:"measurementGroup"`

		// ChannelGroup is the measurement child holding the raw Main dataset
		ChannelGroup string `yaml:"channelGroup"`
	} `yaml:"dataset"`

	// Fit parameters
	Fit struct {
		// Model selects the relaxation model to fit
		Model string `yaml:"model"`

		// Sensitivity converts raw amplitudes to displacement in pm/V
		Sensitivity float64 `yaml:"sensitivity"`

		// PhaseOffset is added to the raw phase before mixing, in radians
		PhaseOffset float64 `yaml:"phaseOffset"`

		// StartsWith says whether cycles open with "read" or "write" pulses
		StartsWith string `yaml:"startsWith"`
	} `yaml:"fit"`

	// Processing parameters
	Processing struct {
		// ChunkSize is the number of pixels committed per chunk
		ChunkSize int `yaml:"chunkSize"`

		// NumWorkers specifies how many goroutines fit pixels inside a chunk
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// LogLevel controls the level of logging output
		LogLevel string `yaml:"logLevel"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default dataset parameters
	cfg.Dataset.MeasurementGroup = relax.DefaultMeasurementGroup
	cfg.Dataset.ChannelGroup = relax.DefaultChannelGroup

	// Set default fit parameters
	cfg.Fit.Model = string(fitting.Exponential)
	cfg.Fit.Sensitivity = 1.0
	cfg.Fit.PhaseOffset = 0.0
	cfg.Fit.StartsWith = "write"

	// Set default processing parameters
	cfg.Processing.ChunkSize = 128
	cfg.Processing.NumWorkers = runtime.NumCPU() // Use all available cores by default

	// Set default output parameters
	cfg.Output.LogLevel = "info"

	return cfg
}

// LoadConfig loads a job configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading job file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing job file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the job configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing job file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default job file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks the job for structural problems before any store is opened:
// the dataset path must be set, the model and starts-with selector must be
// known, and the numeric knobs must be usable.
func (cfg *Config) Validate() error {
	if cfg.Dataset.Path == "" {
		return fmt.Errorf("job has no dataset path")
	}
	if _, err := fitting.Lookup(cfg.Fit.Model); err != nil {
		return err
	}
	if _, err := relax.ParseStartsWith(cfg.Fit.StartsWith); err != nil {
		return err
	}
	if cfg.Fit.Sensitivity == 0 {
		return fmt.Errorf("sensitivity must be non-zero")
	}
	if cfg.Processing.ChunkSize < 0 {
		return fmt.Errorf("chunk size cannot be negative, got %d", cfg.Processing.ChunkSize)
	}
	if cfg.Processing.NumWorkers < 0 {
		return fmt.Errorf("worker count cannot be negative, got %d", cfg.Processing.NumWorkers)
	}
	if _, err := logrus.ParseLevel(cfg.Output.LogLevel); err != nil {
		return fmt.Errorf("unknown log level %q", cfg.Output.LogLevel)
	}
	return nil
}

// PipelineParams maps the job onto pipeline parameters.
func (cfg *Config) PipelineParams() relax.Params {
	return relax.Params{
		MeasurementGroup: cfg.Dataset.MeasurementGroup,
		ChannelGroup:     cfg.Dataset.ChannelGroup,
		Model:            cfg.Fit.Model,
		Sensitivity:      cfg.Fit.Sensitivity,
		PhaseOffset:      cfg.Fit.PhaseOffset,
		StartsWith:       cfg.Fit.StartsWith,
		ChunkSize:        cfg.Processing.ChunkSize,
		Workers:          cfg.Processing.NumWorkers,
	}
}
