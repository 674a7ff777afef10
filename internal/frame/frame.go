// Package frame holds the unit of work that flows through the pipeline.
//
// The type lives in an internal package so that media adapters (readers,
// renderers, transforms) and the public framepipe package can share it
// without an import cycle. Clients use the framepipe.Frame alias.
package frame

import "time"

// PixelFormat describes the byte layout of Frame.Data.
type PixelFormat int

const (
	// FormatBGR is interleaved 8-bit B,G,R (3 bytes per pixel).
	FormatBGR PixelFormat = iota
	// FormatGray is a single 8-bit luma plane (1 byte per pixel).
	FormatGray
)

// String returns the GStreamer caps name of the format.
func (f PixelFormat) String() string {
	switch f {
	case FormatBGR:
		return "BGR"
	case FormatGray:
		return "GRAY8"
	default:
		return "unknown"
	}
}

// BytesPerPixel returns the number of bytes one pixel occupies.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatGray:
		return 1
	default:
		return 3
	}
}

// Frame is one decoded video frame.
//
// IMMUTABILITY CONTRACT:
//   - A stage MUST NOT modify Data after pushing the frame downstream.
//   - Transforms return a new Frame instead of mutating their input.
//
// Ownership moves with every channel hand-off; no stage keeps a reference
// after the push.
type Frame struct {
	// Seq is the 1-based read order assigned by the source stage.
	Seq uint64
	// Timestamp is when the frame was decoded.
	Timestamp time.Time
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Format describes Data's layout.
	Format PixelFormat
	// Data holds Width*Height*Format.BytesPerPixel() bytes.
	Data []byte
	// TraceID correlates log lines for this frame across stages.
	TraceID string
}

// Size returns the expected length of Data for the frame geometry.
func (f *Frame) Size() int {
	return f.Width * f.Height * f.Format.BytesPerPixel()
}
