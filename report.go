package framepipe

import (
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/fpsstats"
)

// Termination says why a run ended.
type Termination int

const (
	// TerminationEndOfStream: the source was exhausted and every frame shown.
	TerminationEndOfStream Termination = iota
	// TerminationReadError: the source failed; frames read before the
	// failure were all shown.
	TerminationReadError
	// TerminationUserStop: the renderer reported a stop request.
	TerminationUserStop
	// TerminationCanceled: Cancel was called or the Run context ended.
	TerminationCanceled
	// TerminationFailed: a fatal error (renderer, transform or channel
	// invariant) aborted the run.
	TerminationFailed
)

func (t Termination) String() string {
	switch t {
	case TerminationEndOfStream:
		return "end_of_stream"
	case TerminationReadError:
		return "read_error"
	case TerminationUserStop:
		return "user_stop"
	case TerminationCanceled:
		return "canceled"
	case TerminationFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DisplayStats summarises how steadily the sink delivered frames.
type DisplayStats = fpsstats.Stats

// Report describes a finished run.
type Report struct {
	RunID       string
	Input       string
	Termination Termination
	// Err is the read error, cancellation cause or fatal error behind
	// Termination. Nil for end-of-stream and user stop.
	Err error

	Started  time.Time
	Duration time.Duration

	Source    StageStats
	Transform StageStats
	Sink      StageStats

	ChannelA ChannelStats
	ChannelB ChannelStats

	Display DisplayStats
}

// Stats is a point-in-time snapshot of a pipeline.
type Stats struct {
	Source    StageStats
	Transform StageStats
	Sink      StageStats
	ChannelA  ChannelStats
	ChannelB  ChannelStats
}

// StageStats describes one stage.
type StageStats struct {
	Name   string
	State  StageState
	Frames uint64 // frames read, transformed or shown
}

// ChannelStats describes one bounded channel.
type ChannelStats struct {
	Name          string
	Capacity      int
	Len           int
	Pushed        uint64 // including the end-of-stream marker
	Popped        uint64
	BlockedPushes uint64
	HighWater     int
	Closed        bool
	EndOfStream   uint64 // markers enqueued, 0 or 1
}
