// Package config loads server defaults for the particle analysis tools.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file named by PARTICLE_MCP_CONFIG, then individual environment variables.
// Tool arguments override the resulting defaults per call.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/particle-size-mcp/internal/analysis"
	"github.com/ironsheep/particle-size-mcp/internal/detection"
	"github.com/ironsheep/particle-size-mcp/internal/imaging"
	"github.com/ironsheep/particle-size-mcp/internal/logger"
)

// Environment variables read by Load.
const (
	EnvConfigPath      = "PARTICLE_MCP_CONFIG"
	EnvLogLevel        = "PARTICLE_MCP_LOG_LEVEL"
	EnvTessdataPrefix  = "PARTICLE_MCP_TESSDATA_PREFIX"
	EnvOCRLanguage     = "PARTICLE_MCP_OCR_LANGUAGE"
	EnvHistogramBins   = "PARTICLE_MCP_HISTOGRAM_BINS"
	EnvBottomExclusion = "PARTICLE_MCP_BOTTOM_EXCLUSION_PERCENT"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the server-wide defaults.
type Config struct {
	LogLevel      string                      `yaml:"log_level"`
	Preprocessing imaging.PreprocessingParams `yaml:"preprocessing"`
	Detection     detection.DetectionParams   `yaml:"detection"`
	Analysis      AnalysisConfig              `yaml:"analysis"`
	OCR           OCRConfig                   `yaml:"ocr"`
}

// AnalysisConfig holds defaults for the statistics tools.
type AnalysisConfig struct {
	HistogramBins int `yaml:"histogram_bins"`
}

// OCRConfig configures data bar recognition.
type OCRConfig struct {
	Language       string `yaml:"language"`
	TessdataPrefix string `yaml:"tessdata_prefix"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:      "info",
		Preprocessing: imaging.DefaultPreprocessingParams(),
		Detection:     detection.DefaultDetectionParams(),
		Analysis:      AnalysisConfig{HistogramBins: analysis.DefaultBins},
		OCR:           OCRConfig{Language: "eng"},
	}
}

// Load resolves the configuration from defaults, the optional YAML file and
// the environment, then validates it.
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv(EnvConfigPath)); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.overlayYAML(data); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.overlayEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// overlayYAML decodes data over the current values. Keys absent from the
// document keep their current value; unknown keys are rejected.
func (c *Config) overlayYAML(data []byte) error {
	if strings.TrimSpace(string(data)) == "" {
		return nil
	}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	return dec.Decode(c)
}

func (c *Config) overlayEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(getenv(EnvTessdataPrefix)); v != "" {
		c.OCR.TessdataPrefix = v
	}
	if v := strings.TrimSpace(getenv(EnvOCRLanguage)); v != "" {
		c.OCR.Language = v
	}
	if v := strings.TrimSpace(getenv(EnvHistogramBins)); v != "" {
		bins, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, EnvHistogramBins, v)
		}
		c.Analysis.HistogramBins = bins
	}
	if v := strings.TrimSpace(getenv(EnvBottomExclusion)); v != "" {
		pct, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, EnvBottomExclusion, v)
		}
		c.Detection.BottomExclusionPercent = pct
	}
	return nil
}

// Validate checks the log level, both default parameter sets and the bin
// count.
func (c Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Preprocessing.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Analysis.HistogramBins < 1 {
		return fmt.Errorf("%w: histogram bins must be >= 1, got %d", ErrInvalidConfig, c.Analysis.HistogramBins)
	}
	if c.OCR.Language == "" {
		return fmt.Errorf("%w: OCR language must not be empty", ErrInvalidConfig)
	}
	return nil
}
