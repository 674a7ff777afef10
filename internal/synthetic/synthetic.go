// Package synthetic generates test-pattern frames without a decoder.
//
// Used for headless runs (source.kind: synthetic) and tests. The pattern is
// a diagonal BGR gradient that scrolls one pixel per frame, so consecutive
// frames differ and grayscale output is easy to eyeball.
package synthetic

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe"
)

// Reader opens synthetic streams of a fixed length and geometry.
type Reader struct {
	Width  int
	Height int
	Count  int // frames per stream; 0 yields an empty stream

	Logger *zap.Logger
}

// NewReader creates a Reader with a no-op logger.
func NewReader(width, height, count int) *Reader {
	return &Reader{Width: width, Height: height, Count: count, Logger: zap.NewNop()}
}

// Open implements framepipe.MediaReader. path only names the stream in logs.
func (r *Reader) Open(ctx context.Context, path string) (framepipe.FrameSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, &framepipe.OpenError{Path: path, Err: err}
	}
	if r.Width <= 0 || r.Height <= 0 {
		return nil, &framepipe.OpenError{
			Path: path,
			Err:  fmt.Errorf("invalid geometry %dx%d", r.Width, r.Height),
		}
	}
	if r.Count < 0 {
		return nil, &framepipe.OpenError{Path: path, Err: fmt.Errorf("invalid frame count %d", r.Count)}
	}

	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("synthetic: stream opened",
		zap.String("name", path),
		zap.Int("width", r.Width),
		zap.Int("height", r.Height),
		zap.Int("frames", r.Count),
	)

	return &Source{width: r.Width, height: r.Height, remaining: r.Count}, nil
}

// Source yields the frames of one synthetic stream.
type Source struct {
	width, height int
	remaining     int
	emitted       uint64
	closed        bool
}

// ReadNext implements framepipe.FrameSource.
func (s *Source) ReadNext() (*framepipe.Frame, error) {
	if s.closed {
		return nil, &framepipe.ReadError{Seq: s.emitted + 1, Err: fmt.Errorf("source closed")}
	}
	if s.remaining <= 0 {
		return nil, io.EOF
	}
	s.remaining--

	f := &framepipe.Frame{
		Timestamp: time.Now(),
		Width:     s.width,
		Height:    s.height,
		Format:    framepipe.FormatBGR,
		Data:      Pattern(s.width, s.height, s.emitted),
		TraceID:   uuid.New().String(),
	}
	s.emitted++
	return f, nil
}

// Close implements framepipe.FrameSource.
func (s *Source) Close() error {
	s.closed = true
	return nil
}

// Pattern renders frame n of the test pattern as BGR bytes.
func Pattern(width, height int, n uint64) []byte {
	data := make([]byte, width*height*3)
	shift := int(n % 256)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := (y*width + x) * 3
			data[o] = byte(x + shift)       // B
			data[o+1] = byte(y + shift)     // G
			data[o+2] = byte(x + y + shift) // R
		}
	}
	return data
}
