// Package config loads framepipe settings.
//
// Precedence (lowest to highest):
//  1. Default()
//  2. YAML file (path from FRAMEPIPE_CONFIG, optional)
//  3. FRAMEPIPE_* environment variables
//
// The input path given on the command line overrides Input afterwards.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override (FRAMEPIPE_QUEUE_SIZE, ...).
const EnvPrefix = "FRAMEPIPE"

// EnvConfigPath names the variable holding the YAML file path.
const EnvConfigPath = "FRAMEPIPE_CONFIG"

// Config represents the complete framepipe configuration
type Config struct {
	Input           string         `yaml:"input"`
	FrameRate       float64        `yaml:"frame_rate" split_words:"true"`
	QueueSize       int            `yaml:"queue_size" split_words:"true"`
	Transform       string         `yaml:"transform"`
	Pacing          string         `yaml:"pacing"` // sleep, rate
	FailOnReadError bool           `yaml:"fail_on_read_error" split_words:"true"`
	Source          SourceConfig   `yaml:"source"`
	Renderer        RendererConfig `yaml:"renderer"`
	Log             LogConfig      `yaml:"log"`
	Metrics         MetricsConfig  `yaml:"metrics"`
}

// SourceConfig selects the media reader
type SourceConfig struct {
	Kind   string `yaml:"kind"`   // file, synthetic
	Frames int    `yaml:"frames"` // synthetic only
	Width  int    `yaml:"width"`  // synthetic only
	Height int    `yaml:"height"` // synthetic only
}

// RendererConfig selects where frames are shown
type RendererConfig struct {
	Kind        string `yaml:"kind"`                            // window, frames, discard
	OutputDir   string `yaml:"output_dir" split_words:"true"`   // frames only
	Format      string `yaml:"format"`                          // frames only: png, jpeg
	JPEGQuality int    `yaml:"jpeg_quality" split_words:"true"` // frames only: 1-100
	VideoSink   string `yaml:"video_sink" split_words:"true"`   // window only: GStreamer sink element
}

// LogConfig contains logger settings
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// MetricsConfig contains the Prometheus listener settings
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// Source kinds.
const (
	SourceFile      = "file"
	SourceSynthetic = "synthetic"
)

// Renderer kinds.
const (
	RendererWindow  = "window"
	RendererFrames  = "frames"
	RendererDiscard = "discard"
)

// Default returns the built-in configuration: play clip.mp4 in a window at
// 24 fps, grayscale, with channels of 10 frames.
func Default() *Config {
	return &Config{
		Input:     "clip.mp4",
		FrameRate: 24,
		QueueSize: 10,
		Transform: "grayscale",
		Pacing:    "sleep",
		Source: SourceConfig{
			Kind:   SourceFile,
			Frames: 240,
			Width:  320,
			Height: 240,
		},
		Renderer: RendererConfig{
			Kind:        RendererWindow,
			OutputDir:   "frames",
			Format:      "png",
			JPEGQuality: 90,
			VideoSink:   "autovideosink",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// FromEnv loads the file named by FRAMEPIPE_CONFIG, if any.
func FromEnv() (*Config, error) {
	return Load(os.Getenv(EnvConfigPath))
}
