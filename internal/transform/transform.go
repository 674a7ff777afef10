// Package transform provides the per-frame functions run by the transform
// stage. Every transform is pure: it never mutates its input and never fails.
package transform

import (
	"fmt"
	"sort"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/frame"
)

// Func adapts a plain function to the pipeline's Transform interface.
type Func func(*frame.Frame) *frame.Frame

// Apply calls f(in).
func (f Func) Apply(in *frame.Frame) *frame.Frame { return f(in) }

// Names of the built-in transforms.
const (
	NameGrayscale = "grayscale"
	NameIdentity  = "identity"
)

var registry = map[string]Func{
	NameGrayscale: Grayscale,
	NameIdentity:  Identity,
}

// ByName returns the built-in transform registered under name.
func ByName(name string) (Func, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("transform: unknown transform %q (available: %v)", name, Names())
	}
	return fn, nil
}

// Names lists the built-in transforms in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Identity returns a copy of in with its own pixel buffer.
func Identity(in *frame.Frame) *frame.Frame {
	out := *in
	out.Data = append([]byte(nil), in.Data...)
	return &out
}

// Grayscale reduces a BGR frame to 8-bit luma using the BT.601 weights
// (Y = 0.299R + 0.587G + 0.114B, rounded). Frames that are already gray are
// copied unchanged. A short Data slice yields zero pixels for the missing
// tail rather than a panic.
func Grayscale(in *frame.Frame) *frame.Frame {
	if in.Format == frame.FormatGray {
		return Identity(in)
	}

	pixels := in.Width * in.Height
	if pixels < 0 {
		pixels = 0
	}
	gray := make([]byte, pixels)

	src := in.Data
	for i := 0; i < pixels; i++ {
		o := i * 3
		if o+2 >= len(src) {
			break
		}
		b := uint32(src[o])
		g := uint32(src[o+1])
		r := uint32(src[o+2])
		gray[i] = byte((299*r + 587*g + 114*b + 500) / 1000)
	}

	out := *in
	out.Format = frame.FormatGray
	out.Data = gray
	return &out
}
