// Package media holds the GStreamer-independent parts of the media adapters:
// caps strings, row-stride handling and error classification. It has no cgo
// dependency so it can be tested without GStreamer installed.
package media

import (
	"fmt"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/frame"
)

// RawCaps returns the caps string that locks a raw video format.
//
// Format: "video/x-raw,format=BGR"
func RawCaps(f frame.PixelFormat) string {
	return fmt.Sprintf("video/x-raw,format=%s", f)
}

// DisplayCaps returns the caps an appsrc advertises for frames of the given
// geometry.
//
// Format: "video/x-raw,format=GRAY8,width=W,height=H,framerate=N/D"
func DisplayCaps(f frame.PixelFormat, width, height int, fps float64) string {
	num, den := FramerateFraction(fps)
	return fmt.Sprintf(
		"video/x-raw,format=%s,width=%d,height=%d,framerate=%d/%d",
		f, width, height, num, den,
	)
}

// FramerateFraction expresses fps as a GStreamer fraction.
//
// Handles fractional framerates:
//   - fps >= 1.0: framerate = fps/1 (e.g., 24.0 → 24/1)
//   - 0 < fps < 1.0: framerate = 1/(1/fps) (e.g., 0.5 → 1/2)
//   - fps <= 0: 0/1 (variable rate)
func FramerateFraction(fps float64) (num, den int) {
	switch {
	case fps <= 0:
		return 0, 1
	case fps < 1.0:
		return 1, int(1.0 / fps)
	default:
		return int(fps), 1
	}
}

// Stride is the byte length of one image row in a GStreamer raw video buffer.
// Rows of packed formats are padded to a multiple of 4 bytes.
func Stride(width int, f frame.PixelFormat) int {
	return (width*f.BytesPerPixel() + 3) &^ 3
}

// Unpad removes row padding from a raw buffer so the result is tightly packed
// (width*bpp bytes per row). Tightly packed input is returned unchanged.
func Unpad(data []byte, width, height int, f frame.PixelFormat) ([]byte, error) {
	row := width * f.BytesPerPixel()
	packed := row * height
	if len(data) == packed {
		return data, nil
	}

	stride := Stride(width, f)
	if len(data) < stride*(height-1)+row {
		return nil, fmt.Errorf("media: buffer too small for %dx%d %s: got %d bytes, want %d",
			width, height, f, len(data), stride*height)
	}

	out := make([]byte, packed)
	for y := 0; y < height; y++ {
		copy(out[y*row:(y+1)*row], data[y*stride:y*stride+row])
	}
	return out, nil
}

// Pad lays tightly packed rows out at GStreamer's stride. Input whose rows
// already need no padding is returned unchanged.
func Pad(data []byte, width, height int, f frame.PixelFormat) ([]byte, error) {
	row := width * f.BytesPerPixel()
	if len(data) != row*height {
		return nil, fmt.Errorf("media: expected %d bytes for %dx%d %s, got %d",
			row*height, width, height, f, len(data))
	}

	stride := Stride(width, f)
	if stride == row {
		return data, nil
	}

	out := make([]byte, stride*height)
	for y := 0; y < height; y++ {
		copy(out[y*stride:y*stride+row], data[y*row:(y+1)*row])
	}
	return out, nil
}
