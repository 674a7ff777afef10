package framesaver

import (
	"sync/atomic"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe"
)

// Discard is a framepipe.Renderer that drops every frame. It only counts
// them, for benchmarks and headless smoke runs.
type Discard struct {
	stop  StopSignal
	shown atomic.Uint64
}

// NewDiscard creates a Discard renderer. stop may be nil.
func NewDiscard(stop StopSignal) *Discard {
	return &Discard{stop: stop}
}

// Show implements framepipe.Renderer.
func (d *Discard) Show(*framepipe.Frame) error {
	d.shown.Add(1)
	return nil
}

// PollUserStop implements framepipe.Renderer.
func (d *Discard) PollUserStop() bool {
	return d.stop != nil && d.stop.Requested()
}

// Teardown implements framepipe.Renderer.
func (d *Discard) Teardown() error { return nil }

// Shown returns the number of frames received.
func (d *Discard) Shown() uint64 { return d.shown.Load() }
