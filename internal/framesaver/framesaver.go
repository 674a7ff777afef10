// Package framesaver provides headless renderers: one that writes every shown
// frame to disk, and one that discards frames and only counts them.
package framesaver

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe"
)

// Supported output formats.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

// StopSignal reports a pending user stop request (see internal/keyboard).
type StopSignal interface {
	Requested() bool
}

// Saver is a framepipe.Renderer that writes frames as PNG or JPEG files.
//
// Filename format: frame_{seq:06d}_{timestamp}.{ext}
// Example: frame_000042_20251105_234517.123.png
type Saver struct {
	outputDir   string
	format      string
	jpegQuality int
	stop        StopSignal
	logger      *zap.Logger

	framesSaved atomic.Uint64
	bytesSaved  atomic.Uint64
}

// New creates a Saver writing into outputDir, which is created if missing.
//
// Format: "png" or "jpeg"
// JPEGQuality: 1-100 (only used for JPEG)
// stop may be nil, in which case the saver never requests a stop.
func New(outputDir, format string, jpegQuality int, stop StopSignal, logger *zap.Logger) (*Saver, error) {
	if format != FormatPNG && format != FormatJPEG {
		return nil, fmt.Errorf("framesaver: unsupported format %q (must be png or jpeg)", format)
	}
	if format == FormatJPEG && (jpegQuality < 1 || jpegQuality > 100) {
		return nil, fmt.Errorf("framesaver: invalid jpeg quality %d (must be 1-100)", jpegQuality)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("framesaver: create output directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Saver{
		outputDir:   outputDir,
		format:      format,
		jpegQuality: jpegQuality,
		stop:        stop,
		logger:      logger,
	}, nil
}

// Show implements framepipe.Renderer.
func (s *Saver) Show(f *framepipe.Frame) error {
	img, err := toImage(f)
	if err != nil {
		return fmt.Errorf("framesaver: frame %d: %w", f.Seq, err)
	}

	name := fmt.Sprintf("frame_%06d_%s.%s",
		f.Seq,
		f.Timestamp.Format("20060102_150405.000"),
		s.format)
	path := filepath.Join(s.outputDir, name)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("framesaver: create file: %w", err)
	}

	switch s.format {
	case FormatPNG:
		err = png.Encode(file, img)
	case FormatJPEG:
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: s.jpegQuality})
	}
	if err != nil {
		file.Close()
		return fmt.Errorf("framesaver: %s encode failed: %w", s.format, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("framesaver: close file: %w", err)
	}

	if info, statErr := os.Stat(path); statErr == nil {
		s.bytesSaved.Add(uint64(info.Size()))
	}
	s.framesSaved.Add(1)

	s.logger.Debug("framesaver: frame written",
		zap.Uint64("seq", f.Seq),
		zap.String("path", path),
	)
	return nil
}

// PollUserStop implements framepipe.Renderer.
func (s *Saver) PollUserStop() bool {
	return s.stop != nil && s.stop.Requested()
}

// Teardown implements framepipe.Renderer.
func (s *Saver) Teardown() error {
	s.logger.Info("framesaver: output closed",
		zap.String("dir", s.outputDir),
		zap.Uint64("frames_saved", s.framesSaved.Load()),
		zap.Uint64("bytes_saved", s.bytesSaved.Load()),
	)
	return nil
}

// Stats returns frames and bytes written so far.
func (s *Saver) Stats() (frames, bytes uint64) {
	return s.framesSaved.Load(), s.bytesSaved.Load()
}

// toImage converts raw frame bytes to an image.Image.
//
// BGR frames become image.RGBA (channels swapped, alpha = 255); gray frames
// become image.Gray without conversion.
func toImage(f *framepipe.Frame) (image.Image, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("invalid geometry %dx%d", f.Width, f.Height)
	}
	if len(f.Data) != f.Size() {
		return nil, fmt.Errorf("invalid %s data size: got %d, expected %d",
			f.Format, len(f.Data), f.Size())
	}

	rect := image.Rect(0, 0, f.Width, f.Height)
	switch f.Format {
	case framepipe.FormatGray:
		img := image.NewGray(rect)
		copy(img.Pix, f.Data)
		return img, nil

	case framepipe.FormatBGR:
		img := image.NewRGBA(rect)
		for i := 0; i < f.Width*f.Height; i++ {
			img.Pix[i*4+0] = f.Data[i*3+2] // R
			img.Pix[i*4+1] = f.Data[i*3+1] // G
			img.Pix[i*4+2] = f.Data[i*3+0] // B
			img.Pix[i*4+3] = 255           // A (opaque)
		}
		return img, nil

	default:
		return nil, fmt.Errorf("unsupported pixel format %s", f.Format)
	}
}
