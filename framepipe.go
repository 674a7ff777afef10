package framepipe

import (
	"context"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/frame"
	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/pacing"
)

// Frame is re-exported from the internal package to avoid import cycles.
// See internal/frame/frame.go for the immutability contract.
type Frame = frame.Frame

// PixelFormat describes the byte layout of Frame.Data.
type PixelFormat = frame.PixelFormat

const (
	// FormatBGR is interleaved 8-bit B,G,R, as produced by decoders.
	FormatBGR = frame.FormatBGR
	// FormatGray is a single 8-bit luma plane.
	FormatGray = frame.FormatGray
)

// OpenError reports a media source that could not be opened.
type OpenError = frame.OpenError

// ReadError reports a failure while pulling the next frame.
type ReadError = frame.ReadError

// Public API errors - Re-export internal errors as stable contract
var (
	// ErrOpen matches every *OpenError (errors.Is).
	ErrOpen = frame.ErrOpen
	// ErrRead matches every *ReadError (errors.Is).
	ErrRead = frame.ErrRead
	// ErrChannelClosed signals a push onto, or an unterminated pop from, a
	// closed channel. Always fatal.
	ErrChannelClosed = frame.ErrChannelClosed
	// ErrUserStop is the cancellation cause recorded when the sink's
	// renderer reports a stop request.
	ErrUserStop = frame.ErrUserStop
)

// MediaReader opens a media source.
type MediaReader interface {
	// Open prepares path for reading. Failures are reported as *OpenError
	// and happen before any stage starts.
	Open(ctx context.Context, path string) (FrameSource, error)
}

// FrameSource yields decoded frames in presentation order.
//
// Only the source stage calls ReadNext, so implementations need not be safe
// for concurrent use.
type FrameSource interface {
	// ReadNext returns the next frame, io.EOF once the source is exhausted,
	// or a *ReadError when decoding fails.
	ReadNext() (*Frame, error)

	// Close releases the source. Called once, after every stage finished.
	Close() error
}

// Transform maps one frame to another.
//
// Contract:
//   - Deterministic: equal input gives equal output
//   - Total: never fails, never returns nil
//   - Pure: no I/O, input frame left untouched
type Transform interface {
	Apply(in *Frame) *Frame
}

// TransformFunc adapts a plain function to Transform.
type TransformFunc func(in *Frame) *Frame

// Apply calls f(in).
func (f TransformFunc) Apply(in *Frame) *Frame { return f(in) }

// Renderer displays frames and carries the user's stop signal.
type Renderer interface {
	// Show presents one frame. An error is fatal to the run.
	Show(f *Frame) error

	// PollUserStop reports whether the user asked to stop. It must not block.
	PollUserStop() bool

	// Teardown releases display resources. Called once after the sink
	// stage is done; an error is fatal to the run.
	Teardown() error
}

// Pacer delays the sink between frames to hold the output rate.
type Pacer = pacing.Pacer
