package framepipe

import "time"

// Channel names, used in logs, metrics and Stats.
const (
	ChannelA = "A" // source → transform
	ChannelB = "B" // transform → sink
)

// Observer receives pipeline events for telemetry.
//
// Calls come from the stage goroutines, so implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	// FrameHandled is called each time stage finishes one frame.
	FrameHandled(stage string)
	// QueueDepth reports the buffered item count of channel after a push or pop.
	QueueDepth(channel string, depth int)
	// EndOfStream is called when the marker is enqueued on channel.
	EndOfStream(channel string)
	// Paced reports how long the sink waited after showing a frame.
	Paced(d time.Duration)
	// RunFinished is called once per run with the termination reason.
	RunFinished(t Termination)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) FrameHandled(string)     {}
func (NopObserver) QueueDepth(string, int)  {}
func (NopObserver) EndOfStream(string)      {}
func (NopObserver) Paced(time.Duration)     {}
func (NopObserver) RunFinished(Termination) {}
