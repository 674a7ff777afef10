package config

import (
	"fmt"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/pacing"
	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/transform"
)

// Validate checks if the configuration is valid
func Validate(cfg *Config) error {
	if cfg.FrameRate <= 0 {
		return fmt.Errorf("frame_rate must be > 0")
	}
	if cfg.QueueSize < 1 {
		return fmt.Errorf("queue_size must be >= 1")
	}
	if _, err := transform.ByName(cfg.Transform); err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	if cfg.Pacing != pacing.ModeSleep && cfg.Pacing != pacing.ModeRate {
		return fmt.Errorf("pacing must be %s or %s, got %q", pacing.ModeSleep, pacing.ModeRate, cfg.Pacing)
	}

	if err := validateSource(cfg); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := validateRenderer(&cfg.Renderer); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return nil
}

func validateSource(cfg *Config) error {
	switch cfg.Source.Kind {
	case SourceFile:
		if cfg.Input == "" {
			return fmt.Errorf("input is required for kind %q", SourceFile)
		}
	case SourceSynthetic:
		if cfg.Source.Frames < 0 {
			return fmt.Errorf("frames must be >= 0")
		}
		if cfg.Source.Width <= 0 || cfg.Source.Height <= 0 {
			return fmt.Errorf("width and height must be > 0, got %dx%d", cfg.Source.Width, cfg.Source.Height)
		}
	default:
		return fmt.Errorf("kind must be %s or %s, got %q", SourceFile, SourceSynthetic, cfg.Source.Kind)
	}
	return nil
}

func validateRenderer(r *RendererConfig) error {
	switch r.Kind {
	case RendererWindow:
		if r.VideoSink == "" {
			r.VideoSink = "autovideosink" // default
		}
	case RendererFrames:
		if r.OutputDir == "" {
			return fmt.Errorf("output_dir is required for kind %q", RendererFrames)
		}
		if r.Format != "png" && r.Format != "jpeg" {
			return fmt.Errorf("format must be png or jpeg, got %q", r.Format)
		}
		if r.Format == "jpeg" && (r.JPEGQuality < 1 || r.JPEGQuality > 100) {
			return fmt.Errorf("jpeg_quality must be 1-100, got %d", r.JPEGQuality)
		}
	case RendererDiscard:
	default:
		return fmt.Errorf("kind must be %s, %s or %s, got %q", RendererWindow, RendererFrames, RendererDiscard, r.Kind)
	}
	return nil
}
