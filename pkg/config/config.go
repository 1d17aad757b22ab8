// Package config provides configuration loading and management for contourqa.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Comparison parameters
	Comparison struct {
		// APLTolerance is the accepted distance, in cm, between the two
		// contours for the added path length metric
		APLTolerance float64 `yaml:"aplTolerance"`

		// SDSCTolerance is the accepted distance, in cm, for the
		// surface Dice metric
		SDSCTolerance float64 `yaml:"sdscTolerance"`

		// CalcAllParameters switches calculation of APL and surface
		// Dice on (true) or off (false) in addition to volumetric Dice
		CalcAllParameters bool `yaml:"calcAllParameters"`

		// Structures restricts the comparison to these structure
		// names; an empty list compares every structure common to both
		// structure sets
		Structures []string `yaml:"structures"`
	} `yaml:"comparison"`

	// Output parameters
	Output struct {
		// ResultsFile is the CSV file the comparison table is written to
		ResultsFile string `yaml:"resultsFile"`

		// SaveComparisonImages enables per-slice overlay images of the
		// compared boundaries
		SaveComparisonImages bool `yaml:"saveComparisonImages"`

		// ImageDir is the directory comparison images are written to
		ImageDir string `yaml:"imageDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Comparison.APLTolerance = 0.1
	cfg.Comparison.SDSCTolerance = 0.1
	cfg.Comparison.CalcAllParameters = true

	cfg.Output.ResultsFile = "contour_comparison_results.csv"
	cfg.Output.SaveComparisonImages = false
	cfg.Output.ImageDir = "comparison_images"
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
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
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
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
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
