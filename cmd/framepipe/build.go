package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe"
	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/config"
	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/framesaver"
	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/gstmedia"
	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/pacing"
	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/synthetic"
	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/transform"
)

// build assembles a pipeline from a validated configuration.
func build(cfg *config.Config, stop framesaver.StopSignal, logger *zap.Logger, opts []framepipe.Option) (*framepipe.Pipeline, error) {
	reader, err := newReader(cfg.Source, logger)
	if err != nil {
		return nil, err
	}

	t, err := transform.ByName(cfg.Transform)
	if err != nil {
		return nil, err
	}

	pacer, err := pacing.New(cfg.Pacing, cfg.FrameRate)
	if err != nil {
		return nil, err
	}

	renderer, err := newRenderer(cfg.Renderer, cfg.FrameRate, stop, logger)
	if err != nil {
		return nil, err
	}

	opts = append(opts, framepipe.WithPacer(pacer))
	return framepipe.New(reader, cfg.Input, t, renderer, opts...)
}

func newReader(cfg config.SourceConfig, logger *zap.Logger) (framepipe.MediaReader, error) {
	switch cfg.Kind {
	case config.SourceFile:
		return gstmedia.NewReader(logger.Named("reader")), nil
	case config.SourceSynthetic:
		r := synthetic.NewReader(cfg.Width, cfg.Height, cfg.Frames)
		r.Logger = logger.Named("reader")
		return r, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

func newRenderer(cfg config.RendererConfig, fps float64, stop framesaver.StopSignal, logger *zap.Logger) (framepipe.Renderer, error) {
	switch cfg.Kind {
	case config.RendererWindow:
		return gstmedia.NewWindow(cfg.VideoSink, fps, stop, logger.Named("window")), nil
	case config.RendererFrames:
		saver, err := framesaver.New(cfg.OutputDir, cfg.Format, cfg.JPEGQuality, stop, logger.Named("framesaver"))
		if err != nil {
			return nil, err
		}
		return saver, nil
	case config.RendererDiscard:
		return framesaver.NewDiscard(stop), nil
	default:
		return nil, fmt.Errorf("unknown renderer kind %q", cfg.Kind)
	}
}
