// Package framepipe runs a three-stage video pipeline with bounded buffers
// between the stages.
//
// # Topology
//
//	MediaReader → [Source] → Channel A → [Transform] → Channel B → [Sink] → Renderer
//	               (read)     (bounded)    (gray)       (bounded)   (show, pace, poll)
//
// Each stage runs in its own goroutine and is strictly sequential. The two
// channels are the only shared state. A full channel blocks its producer
// (backpressure); an empty one blocks its consumer. Frames are never dropped
// and reach the renderer in read order.
//
// # Shutdown
//
// Forward: when the source is exhausted (or fails) it enqueues an
// end-of-stream marker on Channel A. The transform forwards a marker to
// Channel B; the sink stops when it sees it. Every channel carries exactly
// one marker, and nothing follows it.
//
// Backward: after each frame the sink polls the renderer. A stop request sets
// the cancellation flag (a context cancelled with cause ErrUserStop); the
// upstream stages notice it at their next blocking operation and exit without
// draining. Cancel does the same from outside.
//
// # Basic Usage
//
//	p, err := framepipe.New(reader, "video.mp4",
//	    framepipe.TransformFunc(toGray),
//	    renderer,
//	    framepipe.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//
//	report, err := p.Run(ctx)
//	if err != nil {
//	    return err // *OpenError, or a fatal renderer error
//	}
//	fmt.Println(report.Termination, report.Sink.Frames)
//
// # Stage States
//
// Each stage moves RUNNING → DRAINING → DONE (or straight to DONE on
// cancellation). Stats exposes the current state and counters at any time.
package framepipe
