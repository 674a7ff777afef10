// Package gstmedia adapts GStreamer (via go-gst) to the pipeline's media
// interfaces: a file decoder (Reader) and an on-screen window (Window).
package gstmedia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
	"go.uber.org/zap"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe"
	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/media"
)

// DefaultPrerollTimeout bounds how long Open waits for the decoder to
// produce its first frame.
const DefaultPrerollTimeout = 10 * time.Second

// Reader decodes video files into BGR frames.
//
// Pipeline structure:
//
//	filesrc → decodebin → videoconvert → capsfilter(BGR) → appsink
//
// decodebin exposes its video pad dynamically; it is linked in the
// pad-added callback.
type Reader struct {
	Logger         *zap.Logger
	PrerollTimeout time.Duration
}

// NewReader creates a Reader.
func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{Logger: logger, PrerollTimeout: DefaultPrerollTimeout}
}

// Open implements framepipe.MediaReader. It builds the pipeline, starts it and
// waits until the decoder is prerolled, so unreadable or undecodable inputs
// fail here with *framepipe.OpenError rather than on the first read.
func (r *Reader) Open(ctx context.Context, path string) (framepipe.FrameSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &framepipe.OpenError{Path: path, Err: err}
	}

	gst.Init(nil)

	elements, err := buildReaderPipeline(path, r.Logger)
	if err != nil {
		return nil, &framepipe.OpenError{Path: path, Err: err}
	}

	if err := elements.pipeline.SetState(gst.StatePlaying); err != nil {
		elements.destroy()
		return nil, &framepipe.OpenError{Path: path, Err: fmt.Errorf("failed to start pipeline: %w", err)}
	}

	timeout := r.PrerollTimeout
	if timeout <= 0 {
		timeout = DefaultPrerollTimeout
	}
	if err := waitPlaying(ctx, elements.pipeline, timeout); err != nil {
		elements.destroy()
		r.Logger.Warn("gstmedia: input could not be opened", zap.String("path", path), zap.Error(err))
		return nil, &framepipe.OpenError{Path: path, Err: err}
	}

	r.Logger.Info("gstmedia: input opened", zap.String("path", path))
	return &fileSource{elements: elements, path: path, logger: r.Logger}, nil
}

type readerElements struct {
	pipeline *gst.Pipeline
	sink     *app.Sink
}

func (e *readerElements) destroy() error {
	if e == nil || e.pipeline == nil {
		return nil
	}
	if err := e.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}
	return nil
}

func buildReaderPipeline(path string, logger *zap.Logger) (*readerElements, error) {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	filesrc, err := gst.NewElement("filesrc")
	if err != nil {
		return nil, fmt.Errorf("failed to create filesrc: %w", err)
	}
	filesrc.SetProperty("location", path)

	decodebin, err := gst.NewElement("decodebin")
	if err != nil {
		return nil, fmt.Errorf("failed to create decodebin: %w", err)
	}

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(media.RawCaps(framepipe.FormatBGR)))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	// Every frame is delivered: no dropping, no clock sync. The source stage's
	// channel provides the backpressure.
	appsink.SetProperty("sync", false)
	appsink.SetProperty("drop", false)
	appsink.SetProperty("max-buffers", uint(2))

	if err := pipeline.AddMany(filesrc, decodebin, converter, capsfilter, appsink.Element); err != nil {
		return nil, fmt.Errorf("failed to add elements: %w", err)
	}
	if err := filesrc.Link(decodebin); err != nil {
		return nil, fmt.Errorf("failed to link filesrc: %w", err)
	}
	if err := gst.ElementLinkMany(converter, capsfilter, appsink.Element); err != nil {
		return nil, fmt.Errorf("failed to link conversion elements: %w", err)
	}

	decodebin.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		onDecodedPad(srcPad, converter, logger)
	})

	return &readerElements{pipeline: pipeline, sink: appsink}, nil
}

// onDecodedPad links the first video pad decodebin exposes to videoconvert.
// Audio and subsequent video pads are left unlinked.
func onDecodedPad(srcPad *gst.Pad, converter *gst.Element, logger *zap.Logger) {
	caps := srcPad.GetCurrentCaps()
	if caps == nil || caps.GetSize() == 0 {
		logger.Debug("gstmedia: pad without caps ignored", zap.String("pad", srcPad.GetName()))
		return
	}
	if name := caps.GetStructureAt(0).Name(); len(name) < 5 || name[:5] != "video" {
		logger.Debug("gstmedia: non-video pad ignored", zap.String("pad", srcPad.GetName()), zap.String("caps", name))
		return
	}

	sinkPad := converter.GetStaticPad("sink")
	if sinkPad == nil || sinkPad.IsLinked() {
		return
	}
	if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK {
		logger.Error("gstmedia: failed to link decoded pad",
			zap.String("pad", srcPad.GetName()),
			zap.Any("ret", ret),
		)
		return
	}
	logger.Debug("gstmedia: decoded pad linked", zap.String("pad", srcPad.GetName()))
}

// waitPlaying polls the bus until the pipeline reaches PLAYING, fails, or the
// timeout expires.
func waitPlaying(ctx context.Context, pipeline *gst.Pipeline, timeout time.Duration) error {
	bus := pipeline.GetPipelineBus()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageError:
			return gstError(msg)
		case gst.MessageEOS:
			// Empty or audio-only input: playable, but yields no frames.
			return nil
		case gst.MessageStateChanged:
			if msg.Source() == pipeline.GetName() {
				if _, newState := msg.ParseStateChanged(); newState == gst.StatePlaying {
					return nil
				}
			}
		}
	}
	return fmt.Errorf("pipeline did not start within %s", timeout)
}

// gstError converts an error message to a Go error tagged with its category.
func gstError(msg *gst.Message) error {
	gerr := msg.ParseError()
	if gerr == nil {
		return errors.New("unknown pipeline error")
	}
	category := media.Classify(gerr.Error(), gerr.DebugString())
	return fmt.Errorf("pipeline error [%s]: %s", category, gerr.Error())
}

// fileSource pulls decoded frames from the appsink.
type fileSource struct {
	elements *readerElements
	path     string
	logger   *zap.Logger
	read     uint64
	closed   bool
}

// ReadNext implements framepipe.FrameSource.
func (s *fileSource) ReadNext() (*framepipe.Frame, error) {
	if s.closed {
		return nil, &framepipe.ReadError{Seq: s.read + 1, Err: errors.New("source closed")}
	}

	sample := s.elements.sink.PullSample()
	if sample == nil {
		if err := s.pendingError(); err != nil {
			return nil, &framepipe.ReadError{Seq: s.read + 1, Err: err}
		}
		return nil, io.EOF
	}

	width, height, err := sampleGeometry(sample)
	if err != nil {
		return nil, &framepipe.ReadError{Seq: s.read + 1, Err: err}
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		return nil, &framepipe.ReadError{Seq: s.read + 1, Err: errors.New("sample without buffer")}
	}

	mapInfo := buffer.Map(gst.MapRead)
	raw := mapInfo.Bytes()
	// Copy frame data (GStreamer will reuse buffer)
	owned := make([]byte, len(raw))
	copy(owned, raw)
	buffer.Unmap()

	data, err := media.Unpad(owned, width, height, framepipe.FormatBGR)
	if err != nil {
		return nil, &framepipe.ReadError{Seq: s.read + 1, Err: err}
	}

	s.read++
	return &framepipe.Frame{
		Timestamp: time.Now(),
		Width:     width,
		Height:    height,
		Format:    framepipe.FormatBGR,
		Data:      data,
		TraceID:   uuid.New().String(),
	}, nil
}

// pendingError drains the bus and returns the first error message, if any.
func (s *fileSource) pendingError() error {
	bus := s.elements.pipeline.GetPipelineBus()
	for {
		msg := bus.TimedPop(0)
		if msg == nil {
			return nil
		}
		if msg.Type() == gst.MessageError {
			return gstError(msg)
		}
	}
}

// Close implements framepipe.FrameSource.
func (s *fileSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("gstmedia: input closed", zap.String("path", s.path), zap.Uint64("frames", s.read))
	return s.elements.destroy()
}

func sampleGeometry(sample *gst.Sample) (width, height int, err error) {
	caps := sample.GetCaps()
	if caps == nil || caps.GetSize() == 0 {
		return 0, 0, errors.New("sample without caps")
	}
	st := caps.GetStructureAt(0)

	w, err := st.GetValue("width")
	if err != nil {
		return 0, 0, fmt.Errorf("caps without width: %w", err)
	}
	h, err := st.GetValue("height")
	if err != nil {
		return 0, 0, fmt.Errorf("caps without height: %w", err)
	}

	width, okW := w.(int)
	height, okH := h.(int)
	if !okW || !okH || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid caps geometry %v x %v", w, h)
	}
	return width, height, nil
}
