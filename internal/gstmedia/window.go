package gstmedia

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
	"go.uber.org/zap"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe"
	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/media"
)

// DefaultVideoSink is the display element used when none is configured.
const DefaultVideoSink = "autovideosink"

// eosTimeout bounds how long Teardown waits for the display to flush.
const eosTimeout = 2 * time.Second

// StopSignal reports a pending user stop request (see internal/keyboard).
type StopSignal interface {
	Requested() bool
}

// Window is a framepipe.Renderer that shows frames in a GStreamer video sink.
//
// Pipeline structure:
//
//	appsrc → videoconvert → <video sink>
//
// The pipeline is built on the first frame, once the geometry is known.
// Closing the window counts as a user stop.
type Window struct {
	videoSink string
	frameRate float64
	stop      StopSignal
	logger    *zap.Logger

	pipeline *gst.Pipeline
	src      *app.Source
	width    int
	height   int
	format   framepipe.PixelFormat

	closed atomic.Bool
	shown  uint64
}

// NewWindow creates a Window. videoSink names the display element
// (autovideosink when empty); stop may be nil.
func NewWindow(videoSink string, frameRate float64, stop StopSignal, logger *zap.Logger) *Window {
	if videoSink == "" {
		videoSink = DefaultVideoSink
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Window{
		videoSink: videoSink,
		frameRate: frameRate,
		stop:      stop,
		logger:    logger,
	}
}

// Show implements framepipe.Renderer.
func (w *Window) Show(f *framepipe.Frame) error {
	if w.closed.Load() {
		return nil
	}

	if w.pipeline == nil {
		if err := w.start(f); err != nil {
			return err
		}
	} else if f.Width != w.width || f.Height != w.height || f.Format != w.format {
		w.setCaps(f)
	}

	data, err := media.Pad(f.Data, f.Width, f.Height, f.Format)
	if err != nil {
		return fmt.Errorf("gstmedia: frame %d: %w", f.Seq, err)
	}

	if ret := w.src.PushBuffer(gst.NewBufferFromBytes(data)); ret != gst.FlowOK {
		if err := w.pollBus(); err != nil {
			return err
		}
		if w.closed.Load() {
			return nil
		}
		return fmt.Errorf("gstmedia: push frame %d: flow %v", f.Seq, ret)
	}
	w.shown++

	return w.pollBus()
}

// PollUserStop implements framepipe.Renderer.
func (w *Window) PollUserStop() bool {
	if w.closed.Load() {
		return true
	}
	return w.stop != nil && w.stop.Requested()
}

// Teardown implements framepipe.Renderer. It flushes the display and releases
// the pipeline. Safe to call when no frame was ever shown.
func (w *Window) Teardown() error {
	if w.pipeline == nil {
		return nil
	}

	if !w.closed.Load() {
		w.src.EndStream()
		w.waitEOS(eosTimeout)
	}

	err := w.pipeline.SetState(gst.StateNull)
	w.pipeline = nil
	w.src = nil

	w.logger.Info("gstmedia: window closed",
		zap.Uint64("frames_shown", w.shown),
		zap.Bool("closed_by_user", w.closed.Load()),
	)
	if err != nil {
		return fmt.Errorf("gstmedia: stop window: %w", err)
	}
	return nil
}

func (w *Window) start(f *framepipe.Frame) error {
	gst.Init(nil)

	desc := fmt.Sprintf(
		"appsrc name=src is-live=true format=time do-timestamp=true ! videoconvert ! %s sync=false",
		w.videoSink,
	)
	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return fmt.Errorf("gstmedia: create window pipeline: %w", err)
	}

	elem, err := pipeline.GetElementByName("src")
	if err != nil {
		return fmt.Errorf("gstmedia: window pipeline without appsrc: %w", err)
	}

	w.pipeline = pipeline
	w.src = app.SrcFromElement(elem)
	w.setCaps(f)

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		w.pipeline = nil
		w.src = nil
		return fmt.Errorf("gstmedia: start window pipeline: %w", err)
	}

	w.logger.Info("gstmedia: window opened",
		zap.String("video_sink", w.videoSink),
		zap.Int("width", f.Width),
		zap.Int("height", f.Height),
		zap.Stringer("format", f.Format),
	)
	return nil
}

func (w *Window) setCaps(f *framepipe.Frame) {
	w.width, w.height, w.format = f.Width, f.Height, f.Format
	w.src.SetCaps(gst.NewCapsFromString(media.DisplayCaps(f.Format, f.Width, f.Height, w.frameRate)))
}

// pollBus drains pending bus messages without blocking. A closed window marks
// the renderer closed; other errors are returned.
func (w *Window) pollBus() error {
	bus := w.pipeline.GetPipelineBus()
	for {
		msg := bus.TimedPop(0)
		if msg == nil {
			return nil
		}
		if msg.Type() != gst.MessageError {
			continue
		}

		gerr := msg.ParseError()
		if gerr == nil {
			return errors.New("gstmedia: unknown display error")
		}
		if media.IsWindowClosed(gerr.Error(), gerr.DebugString()) {
			if !w.closed.Swap(true) {
				w.logger.Info("gstmedia: window closed by user")
			}
			return nil
		}

		category := media.Classify(gerr.Error(), gerr.DebugString())
		w.logger.Error("gstmedia: display error",
			zap.String("error", gerr.Error()),
			zap.String("debug", gerr.DebugString()),
			zap.Stringer("category", category),
		)
		return fmt.Errorf("gstmedia: display error [%s]: %s", category, gerr.Error())
	}
}

func (w *Window) waitEOS(timeout time.Duration) {
	bus := w.pipeline.GetPipelineBus()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			return
		case gst.MessageError:
			if gerr := msg.ParseError(); gerr != nil {
				w.logger.Warn("gstmedia: error while flushing window", zap.String("error", gerr.Error()))
			}
			return
		}
	}
	w.logger.Warn("gstmedia: window did not flush in time", zap.Duration("timeout", timeout))
}
