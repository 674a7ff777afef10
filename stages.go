package framepipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// runSource reads frames until the source is exhausted or fails, then ends
// Channel A with a marker.
func (p *Pipeline) runSource(ctx context.Context, src FrameSource) error {
	st := p.source
	defer st.advance(StateDone)
	defer p.chanA.abandon()

	log := p.logger.With(zap.String("stage", StageSource))
	log.Info("framepipe: source stage started", zap.String("input", p.input))

	var seq uint64
	for {
		if ctx.Err() != nil {
			log.Info("framepipe: source stage cancelled", zap.Uint64("frames", st.frames.Load()))
			return nil
		}

		f, err := src.ReadNext()
		if errors.Is(err, io.EOF) {
			st.advance(StateDraining)
			log.Info("framepipe: source exhausted", zap.Uint64("frames", seq))
			return p.forwardEnd(ctx, log, p.chanA, nil)
		}
		if err != nil {
			var re *ReadError
			if !errors.As(err, &re) {
				err = &ReadError{Seq: seq + 1, Err: err}
			}
			st.advance(StateDraining)
			log.Warn("framepipe: read failed, ending stream",
				zap.Uint64("frames", seq),
				zap.Error(err),
			)
			return p.forwardEnd(ctx, log, p.chanA, err)
		}
		if f == nil {
			return fmt.Errorf("framepipe: source returned nil frame after %d frames", seq)
		}

		seq++
		f.Seq = seq
		if f.TraceID == "" {
			f.TraceID = uuid.New().String()
		}
		if f.Timestamp.IsZero() {
			f.Timestamp = time.Now()
		}

		log.Debug("framepipe: extracting frame",
			zap.Uint64("seq", f.Seq),
			zap.String("trace_id", f.TraceID),
			zap.Int("size_bytes", len(f.Data)),
		)

		if err := p.chanA.send(ctx, f); err != nil {
			return stopOnCancel(log, err)
		}
		st.frames.Add(1)
		p.observer.FrameHandled(StageSource)
	}
}

// runTransform applies the transform to every frame from Channel A and
// forwards the result, and finally the marker, to Channel B.
func (p *Pipeline) runTransform(ctx context.Context) error {
	st := p.transformStage
	defer st.advance(StateDone)
	defer p.chanB.abandon()

	log := p.logger.With(zap.String("stage", StageTransform))
	log.Info("framepipe: transform stage started")

	for {
		m, err := p.chanA.recv(ctx)
		if err != nil {
			return stopOnRecv(log, err)
		}

		if m.kind == kindEndOfStream {
			st.advance(StateDraining)
			log.Info("framepipe: end of stream observed", zap.Uint64("frames", st.frames.Load()))
			return p.forwardEnd(ctx, log, p.chanB, m.cause)
		}

		out := p.transform.Apply(m.frame)
		if out == nil {
			return fmt.Errorf("framepipe: transform returned nil for frame %d", m.frame.Seq)
		}

		log.Debug("framepipe: converting frame",
			zap.Uint64("seq", out.Seq),
			zap.String("trace_id", out.TraceID),
		)

		if err := p.chanB.send(ctx, out); err != nil {
			return stopOnCancel(log, err)
		}
		st.frames.Add(1)
		p.observer.FrameHandled(StageTransform)
	}
}

// runSink shows every frame from Channel B, paces the output and polls the
// renderer for a stop request. It is the only stage that raises the
// cancellation flag.
func (p *Pipeline) runSink(ctx context.Context) error {
	st := p.sink
	defer st.advance(StateDone)

	log := p.logger.With(zap.String("stage", StageSink))
	log.Info("framepipe: sink stage started")

	for {
		m, err := p.chanB.recv(ctx)
		if err != nil {
			return stopOnRecv(log, err)
		}

		if m.kind == kindEndOfStream {
			st.advance(StateDraining)
			p.reachedEnd = true
			p.endCause = m.cause
			log.Info("framepipe: end of stream reached", zap.Uint64("frames", st.frames.Load()))
			return nil
		}

		f := m.frame
		if err := p.renderer.Show(f); err != nil {
			return fmt.Errorf("framepipe: render frame %d: %w", f.Seq, err)
		}
		p.shownAt = append(p.shownAt, time.Now())
		st.frames.Add(1)
		p.observer.FrameHandled(StageSink)

		log.Debug("framepipe: displaying frame",
			zap.Uint64("seq", f.Seq),
			zap.String("trace_id", f.TraceID),
		)

		waitStart := time.Now()
		if err := p.pacer.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return stopOnCancel(log, ctx.Err())
			}
			return stopOnCancel(log, fmt.Errorf("framepipe: pacing: %w", err))
		}
		p.observer.Paced(time.Since(waitStart))

		if p.renderer.PollUserStop() {
			log.Info("framepipe: stop requested by user", zap.Uint64("frames", st.frames.Load()))
			p.raise(ErrUserStop)
			return nil
		}
	}
}

// forwardEnd enqueues the end-of-stream marker on c.
func (p *Pipeline) forwardEnd(ctx context.Context, log *zap.Logger, c *channel, cause error) error {
	if err := c.endStream(ctx, cause); err != nil {
		return stopOnCancel(log, err)
	}
	log.Debug("framepipe: end-of-stream forwarded", zap.String("channel", c.name))
	return nil
}

// stopOnRecv ends a consumer stage when its input closed without a marker.
// The producer only does that when it stopped on cancellation or a fatal
// error, and that error is reported by the producer itself.
func stopOnRecv(log *zap.Logger, err error) error {
	if errors.Is(err, ErrChannelClosed) {
		log.Info("framepipe: upstream stopped")
		return nil
	}
	return stopOnCancel(log, err)
}

// stopOnCancel turns a context error into a clean stage exit and passes any
// other error through as fatal.
func stopOnCancel(log *zap.Logger, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Info("framepipe: stage cancelled")
		return nil
	}
	log.Error("framepipe: stage failed", zap.Error(err))
	return err
}
