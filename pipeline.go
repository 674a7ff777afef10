package framepipe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/fpsstats"
	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/pacing"
)

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("framepipe: pipeline already run")

// Pipeline wires Source → Channel A → Transform → Channel B → Sink.
//
// Lifecycle: New() → Run() (once) → Report. Cancel and Stats are safe to
// call from any goroutine at any time.
type Pipeline struct {
	// --- Collaborators ---

	reader    MediaReader
	input     string
	transform Transform
	renderer  Renderer
	pacer     Pacer

	// --- Settings (from options) ---

	queueSize int
	frameRate float64
	logger    *zap.Logger
	observer  Observer

	// --- Topology ---

	chanA          *channel
	chanB          *channel
	source         *stage
	transformStage *stage
	sink           *stage

	// --- Lifecycle ---

	runID   string
	started atomic.Bool

	mu              sync.Mutex
	cancel          context.CancelCauseFunc // set while Run is active
	cancelRequested bool                    // Cancel called before Run

	// --- Sink results (written by the sink goroutine, read after it exits) ---

	reachedEnd bool
	endCause   error
	shownAt    []time.Time
}

// New builds a pipeline that reads input with reader, applies t to every
// frame and shows the result on r.
//
// Fail-fast: returns an error for nil collaborators, a queue size below 1 or
// a non-positive frame rate.
func New(reader MediaReader, input string, t Transform, r Renderer, opts ...Option) (*Pipeline, error) {
	if reader == nil {
		return nil, errors.New("framepipe: nil media reader")
	}
	if t == nil {
		return nil, errors.New("framepipe: nil transform")
	}
	if r == nil {
		return nil, errors.New("framepipe: nil renderer")
	}

	p := &Pipeline{
		reader:    reader,
		input:     input,
		transform: t,
		renderer:  r,
		queueSize: DefaultQueueSize,
		frameRate: DefaultFrameRate,
		logger:    zap.NewNop(),
		observer:  NopObserver{},
		runID:     uuid.New().String(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.queueSize < 1 {
		return nil, fmt.Errorf("framepipe: invalid queue size %d (must be >= 1)", p.queueSize)
	}
	if p.pacer == nil {
		pc, err := pacing.New(pacing.ModeSleep, p.frameRate)
		if err != nil {
			return nil, err
		}
		p.pacer = pc
	}

	p.logger = p.logger.With(zap.String("run_id", p.runID))
	p.chanA = newChannel(ChannelA, p.queueSize, p.observer)
	p.chanB = newChannel(ChannelB, p.queueSize, p.observer)
	p.source = newStage(StageSource)
	p.transformStage = newStage(StageTransform)
	p.sink = newStage(StageSink)

	return p, nil
}

// RunID identifies this pipeline in logs and reports.
func (p *Pipeline) RunID() string { return p.runID }

// Run opens the input, runs the three stages to completion and tears the
// renderer down.
//
// Returns:
//   - (nil, *OpenError) if the input cannot be opened; no stage started
//   - (report, nil) on end-of-stream, read error, user stop or cancellation;
//     report.Termination says which
//   - (report, err) on a fatal error (renderer, transform, channel invariant)
//
// Run may be called once.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if !p.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}

	started := time.Now()
	log := p.logger

	src, err := p.reader.Open(ctx, p.input)
	if err != nil {
		var oe *OpenError
		if !errors.As(err, &oe) {
			err = &OpenError{Path: p.input, Err: err}
		}
		log.Error("framepipe: cannot open input", zap.String("input", p.input), zap.Error(err))
		return nil, err
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	p.arm(cancel)

	log.Info("framepipe: pipeline started",
		zap.String("input", p.input),
		zap.Int("queue_size", p.queueSize),
	)

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return p.runSource(gctx, src) })
	g.Go(func() error { return p.runTransform(gctx) })
	g.Go(func() error { return p.runSink(gctx) })
	runErr := g.Wait()

	// Must be read before the deferred cancel(nil) records its own cause.
	cause := context.Cause(runCtx)
	p.disarm()

	if cerr := src.Close(); cerr != nil {
		log.Warn("framepipe: closing input failed", zap.Error(cerr))
	}
	if terr := p.renderer.Teardown(); terr != nil && runErr == nil {
		runErr = fmt.Errorf("framepipe: renderer teardown: %w", terr)
	}

	report := p.buildReport(started, runErr, cause)
	p.observer.RunFinished(report.Termination)

	fields := []zap.Field{
		zap.Stringer("termination", report.Termination),
		zap.Uint64("read", report.Source.Frames),
		zap.Uint64("shown", report.Sink.Frames),
		zap.Duration("duration", report.Duration),
	}
	if report.Err != nil {
		fields = append(fields, zap.Error(report.Err))
	}

	if runErr != nil {
		log.Error("framepipe: pipeline failed", fields...)
		return report, runErr
	}
	log.Info("framepipe: pipeline finished", fields...)
	return report, nil
}

// Cancel asks every stage to stop. Blocked pushes and pops are released;
// frames still buffered are not shown. Idempotent. Calling Cancel before
// Run makes Run stop immediately after opening the input.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	p.cancelRequested = true
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel(context.Canceled)
	}
}

// raise sets the cancellation flag with cause. The first cause wins.
func (p *Pipeline) raise(cause error) {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel(cause)
	}
}

func (p *Pipeline) arm(cancel context.CancelCauseFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancel = cancel
	if p.cancelRequested {
		cancel(context.Canceled)
	}
}

func (p *Pipeline) disarm() {
	p.mu.Lock()
	p.cancel = nil
	p.mu.Unlock()
}

// Stats returns a snapshot of stage states and channel counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Source:    p.source.stats(),
		Transform: p.transformStage.stats(),
		Sink:      p.sink.stats(),
		ChannelA:  p.chanA.stats(),
		ChannelB:  p.chanB.stats(),
	}
}

func (p *Pipeline) buildReport(started time.Time, runErr, cause error) *Report {
	s := p.Stats()
	r := &Report{
		RunID:     p.runID,
		Input:     p.input,
		Started:   started,
		Duration:  time.Since(started),
		Source:    s.Source,
		Transform: s.Transform,
		Sink:      s.Sink,
		ChannelA:  s.ChannelA,
		ChannelB:  s.ChannelB,
		Display:   fpsstats.Calculate(p.shownAt),
	}

	switch {
	case runErr != nil:
		r.Termination = TerminationFailed
		r.Err = runErr
	case p.reachedEnd && p.endCause != nil:
		r.Termination = TerminationReadError
		r.Err = p.endCause
	case p.reachedEnd:
		r.Termination = TerminationEndOfStream
	case errors.Is(cause, ErrUserStop):
		r.Termination = TerminationUserStop
	default:
		r.Termination = TerminationCanceled
		r.Err = cause
	}
	return r
}
