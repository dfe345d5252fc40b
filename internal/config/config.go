// Package config defines the validated run configuration for a batch crop
// run. It replaces the interactive prompts of the legacy workflow: every
// setting is explicit, loadable from a YAML file, and checked up front so a
// bad run aborts before any slide is touched.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"slidecrop/internal/roi"
)

const (
	// DefaultBlurRadius is the Gaussian smoothing radius applied before
	// binarization.
	DefaultBlurRadius = 25
	// DefaultOutputDir is the subdirectory of the input directory that
	// receives the exported crops.
	DefaultOutputDir = "tif_files"

	// Size thresholds applied when none is set explicitly. The value
	// tracks the pyramid level because level-1 rasters are downsampled:
	// the same tissue section covers far fewer pixels.
	thresholdLevel0 = 10000000
	thresholdLevel1 = 1000000
)

// Config holds the settings for one batch run.
type Config struct {
	// InputDir is the directory scanned for .ndpis index files.
	InputDir string `yaml:"inputDir"`

	// TemplateChannel is the substring identifying the channel whose
	// raster defines the crop geometry for its whole slide set.
	TemplateChannel string `yaml:"templateChannel"`

	// Level is the pyramid level to decode: 0 (highest resolution) or 1.
	Level int `yaml:"level"`

	// BlurRadius is the Gaussian smoothing radius in pixels. 0 disables
	// smoothing.
	BlurRadius int `yaml:"blurRadius"`

	// SizeThreshold is the strict minimum ROI area in pixels squared.
	// 0 selects the default for the configured level.
	SizeThreshold int `yaml:"sizeThreshold"`

	// ThresholdMode is "fixed" (legacy any-sample-above-zero rule) or
	// "otsu". Empty means fixed.
	ThresholdMode roi.ThresholdMode `yaml:"thresholdMode"`

	// OutputDirName is the subdirectory of InputDir receiving the crops.
	OutputDirName string `yaml:"outputDirName"`

	// ContinueOnError makes the driver log and skip a slide set that
	// fails to resolve, decode, or export instead of aborting the run.
	ContinueOnError bool `yaml:"continueOnError"`
}

// Default returns a configuration with default values. InputDir and
// TemplateChannel have no defaults and must be supplied before Validate.
func Default() *Config {
	return &Config{
		Level:         0,
		BlurRadius:    DefaultBlurRadius,
		ThresholdMode: roi.ThresholdFixed,
		OutputDirName: DefaultOutputDir,
	}
}

// Load reads a YAML configuration file over the defaults, so settings the
// file omits keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("config: input directory is required")
	}
	if c.TemplateChannel == "" {
		return fmt.Errorf("config: template channel name is required")
	}
	if c.Level != 0 && c.Level != 1 {
		return fmt.Errorf("config: pyramid level must be 0 or 1, got %d", c.Level)
	}
	if c.BlurRadius < 0 {
		return fmt.Errorf("config: blur radius must not be negative, got %d", c.BlurRadius)
	}
	if c.SizeThreshold < 0 {
		return fmt.Errorf("config: size threshold must not be negative, got %d", c.SizeThreshold)
	}
	switch c.ThresholdMode {
	case "", roi.ThresholdFixed, roi.ThresholdOtsu:
	default:
		return fmt.Errorf("config: unknown threshold mode %q", c.ThresholdMode)
	}
	if c.OutputDirName == "" {
		return fmt.Errorf("config: output directory name is required")
	}
	return nil
}

// EffectiveSizeThreshold returns the configured size threshold, or the
// default for the configured pyramid level when none is set.
func (c *Config) EffectiveSizeThreshold() int {
	if c.SizeThreshold > 0 {
		return c.SizeThreshold
	}
	if c.Level == 0 {
		return thresholdLevel0
	}
	return thresholdLevel1
}
