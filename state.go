package framepipe

import "sync/atomic"

// StageState is the lifecycle state of one pipeline stage.
//
// Transitions:
//
//	Running → Draining → Done   (end-of-stream observed and propagated)
//	Running → Done              (cancellation or fatal error)
//	Draining → Done             (cancellation while propagating)
//
// No stage re-enters Running.
type StageState int32

const (
	// StateRunning is the initial state: the stage loops over its input.
	StateRunning StageState = iota
	// StateDraining means end-of-stream was observed and is being forwarded.
	StateDraining
	// StateDone is terminal.
	StateDone
)

func (s StageState) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateDraining:
		return "DRAINING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Stage names, used in logs, metrics and Stats.
const (
	StageSource    = "source"
	StageTransform = "transform"
	StageSink      = "sink"
)

// stage holds the lock-free counters of one stage goroutine.
type stage struct {
	name   string
	state  atomic.Int32
	frames atomic.Uint64
}

func newStage(name string) *stage {
	return &stage{name: name}
}

// advance moves the stage forward to st. Backward moves are ignored.
func (s *stage) advance(st StageState) {
	for {
		cur := s.state.Load()
		if cur >= int32(st) {
			return
		}
		if s.state.CompareAndSwap(cur, int32(st)) {
			return
		}
	}
}

func (s *stage) stats() StageStats {
	return StageStats{
		Name:   s.name,
		State:  StageState(s.state.Load()),
		Frames: s.frames.Load(),
	}
}
