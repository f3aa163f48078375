// Package config provides configuration loading and management for the mask reviewer.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mask-reviewer/pkg/colorutil"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	Data struct {
		// BaseDir holds the satellite images.
		BaseDir string `yaml:"baseDir"`

		// MaskDir holds the segmentation masks.
		MaskDir string `yaml:"maskDir"`

		// Extensions lists recognised file extensions without the dot.
		Extensions []string `yaml:"extensions"`
	} `yaml:"data"`

	Viewer struct {
		// OverlayColor is "#RRGGBBAA"; the alpha channel sets the overlay translucency.
		OverlayColor string `yaml:"overlayColor"`

		MinZoom float64 `yaml:"minZoom"`
		MaxZoom float64 `yaml:"maxZoom"`

		// ZoomStep is the wheel zoom factor per notch (zoom out uses 2 - ZoomStep).
		ZoomStep float64 `yaml:"zoomStep"`

		// DebounceIntervalMs is the quiet period before a resize resets the view.
		DebounceIntervalMs int `yaml:"debounceIntervalMs"`

		// StrictMaskDimensions rejects masks whose size differs from the base image
		// instead of resampling them.
		StrictMaskDimensions bool `yaml:"strictMaskDimensions"`

		Background string `yaml:"background"`
	} `yaml:"viewer"`

	Window struct {
		Title  string  `yaml:"title"`
		Width  float32 `yaml:"width"`
		Height float32 `yaml:"height"`
	} `yaml:"window"`

	Tags []TagConfig `yaml:"tags"`

	Ledger struct {
		// AutosavePath, when set, receives the ledger on exit.
		AutosavePath string `yaml:"autosavePath"`
	} `yaml:"ledger"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// TagConfig describes one defect tag shown as a toggle.
type TagConfig struct {
	Code  int    `yaml:"code"`
	Label string `yaml:"label"`
	Key   string `yaml:"key"`
}

// Viewer is the immutable set of viewport options handed to components at
// construction.
type Viewer struct {
	OverlayColor         color.NRGBA
	Background           color.NRGBA
	MinZoom              float64
	MaxZoom              float64
	ZoomStep             float64
	DebounceInterval     time.Duration
	StrictMaskDimensions bool
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Data.BaseDir = "sat"
	cfg.Data.MaskDir = "mask"
	cfg.Data.Extensions = []string{"jpg", "png", "tif"}

	cfg.Viewer.OverlayColor = colorutil.FormatHex(colorutil.WarmOrange)
	cfg.Viewer.MinZoom = 0.1
	cfg.Viewer.MaxZoom = 10.0
	cfg.Viewer.ZoomStep = 1.1
	cfg.Viewer.DebounceIntervalMs = 250
	cfg.Viewer.Background = colorutil.FormatHex(colorutil.White)

	cfg.Window.Title = "Mask Reviewer"
	cfg.Window.Width = 1280
	cfg.Window.Height = 800

	cfg.Tags = []TagConfig{
		{Code: 1, Label: "Missing label", Key: "1"},
		{Code: 2, Label: "Wrong label", Key: "2"},
		{Code: 3, Label: "Shape mismatch", Key: "3"},
	}

	cfg.Log.Level = "info"

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

// Validate checks value ranges and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Data.BaseDir) == "" {
		errs = append(errs, errors.New("data.baseDir is empty"))
	}
	if strings.TrimSpace(c.Data.MaskDir) == "" {
		errs = append(errs, errors.New("data.maskDir is empty"))
	}
	if len(c.Data.Extensions) == 0 {
		errs = append(errs, errors.New("data.extensions is empty"))
	}

	if _, err := colorutil.ParseHex(c.Viewer.OverlayColor); err != nil {
		errs = append(errs, fmt.Errorf("viewer.overlayColor: %w", err))
	}
	if _, err := colorutil.ParseHex(c.Viewer.Background); err != nil {
		errs = append(errs, fmt.Errorf("viewer.background: %w", err))
	}
	if c.Viewer.MinZoom <= 0 {
		errs = append(errs, fmt.Errorf("viewer.minZoom must be positive, got %g", c.Viewer.MinZoom))
	}
	if c.Viewer.MaxZoom <= c.Viewer.MinZoom {
		errs = append(errs, fmt.Errorf("viewer.maxZoom (%g) must exceed viewer.minZoom (%g)",
			c.Viewer.MaxZoom, c.Viewer.MinZoom))
	}
	if c.Viewer.ZoomStep <= 1 || c.Viewer.ZoomStep >= 2 {
		errs = append(errs, fmt.Errorf("viewer.zoomStep must be in (1, 2), got %g", c.Viewer.ZoomStep))
	}
	if c.Viewer.DebounceIntervalMs < 0 {
		errs = append(errs, fmt.Errorf("viewer.debounceIntervalMs must not be negative, got %d",
			c.Viewer.DebounceIntervalMs))
	}

	seen := make(map[int]bool)
	for _, tag := range c.Tags {
		if tag.Code <= 0 {
			errs = append(errs, fmt.Errorf("tag %q: code must be positive", tag.Label))
		}
		if seen[tag.Code] {
			errs = append(errs, fmt.Errorf("tag code %d declared twice", tag.Code))
		}
		seen[tag.Code] = true
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ViewerOptions derives the immutable viewer options. Call Validate first; invalid
// colours fall back to the defaults.
func (c *Config) ViewerOptions() Viewer {
	overlay, err := colorutil.ParseHex(c.Viewer.OverlayColor)
	if err != nil {
		overlay = colorutil.WarmOrange
	}
	background, err := colorutil.ParseHex(c.Viewer.Background)
	if err != nil {
		background = colorutil.White
	}

	return Viewer{
		OverlayColor:         overlay,
		Background:           background,
		MinZoom:              c.Viewer.MinZoom,
		MaxZoom:              c.Viewer.MaxZoom,
		ZoomStep:             c.Viewer.ZoomStep,
		DebounceInterval:     time.Duration(c.Viewer.DebounceIntervalMs) * time.Millisecond,
		StrictMaskDimensions: c.Viewer.StrictMaskDimensions,
	}
}

// LogLevel returns the slog level named by log.level.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level: unknown level %q", s)
	}
}
