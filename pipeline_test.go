package framepipe_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe"
)

// tagged wraps every payload as "f(x)" so tests can see the transform ran.
var tagged = framepipe.TransformFunc(func(in *framepipe.Frame) *framepipe.Frame {
	out := *in
	out.Data = append(append([]byte("f("), in.Data...), ')')
	out.Width = len(out.Data)
	return &out
})

func newPipeline(t *testing.T, reader framepipe.MediaReader, r framepipe.Renderer, opts ...framepipe.Option) *framepipe.Pipeline {
	t.Helper()
	opts = append([]framepipe.Option{
		framepipe.WithLogger(zaptest.NewLogger(t)),
		framepipe.WithPacer(&countingPacer{}),
	}, opts...)

	p, err := framepipe.New(reader, "test://input", tagged, r, opts...)
	require.NoError(t, err)
	return p
}

func assertAllDone(t *testing.T, s framepipe.Stats) {
	t.Helper()
	assert.Equal(t, framepipe.StateDone, s.Source.State, "source")
	assert.Equal(t, framepipe.StateDone, s.Transform.State, "transform")
	assert.Equal(t, framepipe.StateDone, s.Sink.State, "sink")
}

func TestNew_Validation(t *testing.T) {
	reader := &sliceReader{}
	r := &recordingRenderer{}

	tests := []struct {
		name    string
		reader  framepipe.MediaReader
		tr      framepipe.Transform
		r       framepipe.Renderer
		opts    []framepipe.Option
		wantErr string
	}{
		{"nil reader", nil, tagged, r, nil, "nil media reader"},
		{"nil transform", reader, nil, r, nil, "nil transform"},
		{"nil renderer", reader, tagged, nil, nil, "nil renderer"},
		{"zero queue", reader, tagged, r, []framepipe.Option{framepipe.WithQueueSize(0)}, "invalid queue size"},
		{"zero frame rate", reader, tagged, r, []framepipe.Option{framepipe.WithFrameRate(0)}, "invalid frame rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := framepipe.New(tt.reader, "x", tt.tr, tt.r, tt.opts...)
			assert.Nil(t, p)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestStats_BeforeRun(t *testing.T) {
	p := newPipeline(t, &sliceReader{}, &recordingRenderer{}, framepipe.WithQueueSize(3))

	s := p.Stats()
	assert.Equal(t, framepipe.StateRunning, s.Source.State)
	assert.Equal(t, framepipe.StateRunning, s.Sink.State)
	assert.Equal(t, "A", s.ChannelA.Name)
	assert.Equal(t, 3, s.ChannelA.Capacity)
	assert.Equal(t, 3, s.ChannelB.Capacity)
	assert.NotEmpty(t, p.RunID())
}

func TestRun_TerminatesForAnyLength(t *testing.T) {
	for _, n := range []int{0, 1, 100} {
		t.Run(fmt.Sprintf("%d frames", n), func(t *testing.T) {
			reader := &sliceReader{payloads: payloads(n)}
			r := &recordingRenderer{}
			pacer := &countingPacer{}
			p := newPipeline(t, reader, r, framepipe.WithPacer(pacer), framepipe.WithQueueSize(4))

			report, err := p.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, framepipe.TerminationEndOfStream, report.Termination)
			assert.NoError(t, report.Err)
			assert.Equal(t, uint64(n), report.Source.Frames)
			assert.Equal(t, uint64(n), report.Transform.Frames)
			assert.Equal(t, uint64(n), report.Sink.Frames)
			assert.Len(t, r.frames(), n)
			assert.Equal(t, int32(n), pacer.waits.Load())

			// Exactly one marker per channel, and nothing after it.
			for _, c := range []framepipe.ChannelStats{report.ChannelA, report.ChannelB} {
				assert.Equal(t, uint64(1), c.EndOfStream, c.Name)
				assert.Equal(t, uint64(n+1), c.Pushed, c.Name)
				assert.Equal(t, uint64(n+1), c.Popped, c.Name)
				assert.True(t, c.Closed, c.Name)
			}

			assertAllDone(t, p.Stats())
			assert.Equal(t, int32(1), r.teardowns.Load())
			assert.Equal(t, int32(1), reader.src.closed.Load())
		})
	}
}

func TestRun_PreservesOrder(t *testing.T) {
	const n = 500
	reader := &sliceReader{payloads: payloads(n)}
	r := &recordingRenderer{}
	p := newPipeline(t, reader, r, framepipe.WithQueueSize(2))

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	shown := r.frames()
	require.Len(t, shown, n)
	for i, f := range shown {
		require.Equal(t, uint64(i+1), f.Seq)
		require.Equal(t, []byte{'f', '(', byte(i), ')'}, f.Data)
		require.NotEmpty(t, f.TraceID)
	}
}

func TestRun_CapacityOneScenario(t *testing.T) {
	reader := &sliceReader{payloads: [][]byte{[]byte("A"), []byte("B"), []byte("C")}}
	r := &recordingRenderer{}
	pacer := &countingPacer{}
	p := newPipeline(t, reader, r, framepipe.WithQueueSize(1), framepipe.WithPacer(pacer))

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	var got []string
	for _, f := range r.frames() {
		got = append(got, string(f.Data))
	}
	assert.Equal(t, []string{"f(A)", "f(B)", "f(C)"}, got)
	assert.Equal(t, int32(3), pacer.waits.Load())
	assert.Equal(t, framepipe.TerminationEndOfStream, report.Termination)
	assert.Equal(t, 1, report.ChannelA.HighWater)
	assert.Equal(t, 1, report.ChannelB.HighWater)
	assertAllDone(t, p.Stats())
}

func TestRun_BoundedBuffering(t *testing.T) {
	reader := &sliceReader{payloads: payloads(40)}
	r := &recordingRenderer{}
	p := newPipeline(t, reader, r,
		framepipe.WithQueueSize(2),
		framepipe.WithPacer(&countingPacer{delay: time.Millisecond}),
	)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.LessOrEqual(t, report.ChannelA.HighWater, 2)
	assert.LessOrEqual(t, report.ChannelB.HighWater, 2)
	assert.Positive(t, report.ChannelA.BlockedPushes+report.ChannelB.BlockedPushes,
		"a slow sink must push back on upstream stages")
	assert.Len(t, r.frames(), 40)
}

func TestRun_UserStopBoundsShownFrames(t *testing.T) {
	const (
		k        = 5
		capacity = 4
	)
	reader := &sliceReader{payloads: payloads(1000)}
	r := &recordingRenderer{stopAfter: k}
	p := newPipeline(t, reader, r, framepipe.WithQueueSize(capacity))

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, framepipe.TerminationUserStop, report.Termination)
	assert.NoError(t, report.Err)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, r.seqs())

	// Read at most: shown + both buffers + one frame in hand per upstream stage.
	assert.LessOrEqual(t, report.Source.Frames, uint64(k+2*capacity+2))
	assert.Zero(t, report.ChannelB.EndOfStream)
	assertAllDone(t, p.Stats())
	assert.Equal(t, int32(1), r.teardowns.Load())
}

func TestRun_ReadErrorEndsStream(t *testing.T) {
	reader := &sliceReader{payloads: payloads(10), failAt: 4, readErr: errBoom}
	r := &recordingRenderer{}
	p := newPipeline(t, reader, r)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, framepipe.TerminationReadError, report.Termination)
	assert.ErrorIs(t, report.Err, framepipe.ErrRead)
	assert.ErrorIs(t, report.Err, errBoom)

	var re *framepipe.ReadError
	require.ErrorAs(t, report.Err, &re)
	assert.Equal(t, uint64(4), re.Seq)

	assert.Equal(t, []uint64{1, 2, 3}, r.seqs())
	assert.Equal(t, uint64(1), report.ChannelA.EndOfStream)
	assert.Equal(t, uint64(1), report.ChannelB.EndOfStream)
	assertAllDone(t, p.Stats())
}

func TestRun_OpenErrorStopsBeforeStages(t *testing.T) {
	reader := &sliceReader{openErr: errBoom}
	r := &recordingRenderer{}
	p := newPipeline(t, reader, r)

	report, err := p.Run(context.Background())
	assert.Nil(t, report)
	assert.ErrorIs(t, err, framepipe.ErrOpen)
	assert.ErrorIs(t, err, errBoom)

	var oe *framepipe.OpenError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "test://input", oe.Path)

	assert.Empty(t, r.frames())
	assert.Zero(t, r.teardowns.Load())
	assert.Equal(t, framepipe.StateRunning, p.Stats().Source.State)
}

func TestRun_RendererErrorIsFatal(t *testing.T) {
	reader := &sliceReader{payloads: payloads(100)}
	r := &recordingRenderer{failOn: 3, showErr: errBoom}
	p := newPipeline(t, reader, r, framepipe.WithQueueSize(2))

	report, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	require.NotNil(t, report)
	assert.Equal(t, framepipe.TerminationFailed, report.Termination)
	assert.Len(t, r.frames(), 2)
	assertAllDone(t, p.Stats())
	assert.Equal(t, int32(1), r.teardowns.Load())
}

func TestRun_TeardownErrorIsFatal(t *testing.T) {
	reader := &sliceReader{payloads: payloads(3)}
	r := &recordingRenderer{teardownErr: errBoom}
	p := newPipeline(t, reader, r)

	report, err := p.Run(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, framepipe.TerminationFailed, report.Termination)
	assert.Len(t, r.frames(), 3)
}

func TestRun_TransformReturningNilIsFatal(t *testing.T) {
	reader := &sliceReader{payloads: payloads(3)}
	nilT := framepipe.TransformFunc(func(*framepipe.Frame) *framepipe.Frame { return nil })

	p, err := framepipe.New(reader, "x", nilT, &recordingRenderer{}, framepipe.WithPacer(&countingPacer{}))
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	assert.ErrorContains(t, err, "transform returned nil")
	assertAllDone(t, p.Stats())
}

func TestRun_OnlyOnce(t *testing.T) {
	p := newPipeline(t, &sliceReader{}, &recordingRenderer{})

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, framepipe.ErrAlreadyRun)
}

func TestCancel_BeforeRun(t *testing.T) {
	reader := &sliceReader{payloads: payloads(50)}
	r := &recordingRenderer{}
	p := newPipeline(t, reader, r)

	p.Cancel()
	p.Cancel()

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, framepipe.TerminationCanceled, report.Termination)
	assert.ErrorIs(t, report.Err, context.Canceled)
	assert.Empty(t, r.frames())
	assertAllDone(t, p.Stats())
}

func TestCancel_ReleasesBlockedStages(t *testing.T) {
	reader := &sliceReader{payloads: payloads(1000)}
	r := &recordingRenderer{}
	pacer := newBlockingPacer()
	p := newPipeline(t, reader, r, framepipe.WithQueueSize(2), framepipe.WithPacer(pacer))

	type result struct {
		report *framepipe.Report
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := p.Run(context.Background())
		done <- result{report, err}
	}()

	<-pacer.entered
	require.Eventually(t, func() bool {
		return p.Stats().ChannelA.Len == 2 && p.Stats().ChannelB.Len == 2
	}, 2*time.Second, 5*time.Millisecond, "upstream stages should fill both channels")

	p.Cancel()
	p.Cancel()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, framepipe.TerminationCanceled, res.report.Termination)
		assert.Equal(t, []uint64{1}, r.seqs())
		assertAllDone(t, p.Stats())
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Cancel")
	}
}

func TestRun_ParentContextCancel(t *testing.T) {
	reader := &sliceReader{payloads: payloads(1000)}
	pacer := newBlockingPacer()
	p := newPipeline(t, reader, &recordingRenderer{}, framepipe.WithPacer(pacer))

	ctx, cancel := context.WithCancelCause(context.Background())
	stop := errors.New("shutdown signal")
	go func() {
		<-pacer.entered
		cancel(stop)
	}()

	report, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, framepipe.TerminationCanceled, report.Termination)
	assert.ErrorIs(t, report.Err, stop)
	assertAllDone(t, p.Stats())
}

func TestRun_Observer(t *testing.T) {
	obs := newRecordingObserver()
	p := newPipeline(t, &sliceReader{payloads: payloads(7)}, &recordingRenderer{},
		framepipe.WithObserver(obs),
		framepipe.WithQueueSize(3),
	)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, map[string]int{"source": 7, "transform": 7, "sink": 7}, obs.handled)
	assert.Equal(t, map[string]int{"A": 1, "B": 1}, obs.markers)
	assert.Equal(t, 7, obs.paced)
	assert.Equal(t, []framepipe.Termination{framepipe.TerminationEndOfStream}, obs.finished)
	assert.LessOrEqual(t, obs.maxDepth["A"], 3)
	assert.LessOrEqual(t, obs.maxDepth["B"], 3)
}

func TestRun_DisplayStats(t *testing.T) {
	p := newPipeline(t, &sliceReader{payloads: payloads(5)}, &recordingRenderer{},
		framepipe.WithPacer(&countingPacer{delay: 5 * time.Millisecond}),
	)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.Display.Frames)
	assert.Positive(t, report.Display.FPSMean)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "test://input", report.Input)
}

func TestStageState_String(t *testing.T) {
	assert.Equal(t, "RUNNING", framepipe.StateRunning.String())
	assert.Equal(t, "DRAINING", framepipe.StateDraining.String())
	assert.Equal(t, "DONE", framepipe.StateDone.String())
	assert.Equal(t, "UNKNOWN", framepipe.StageState(42).String())
}

func TestTermination_String(t *testing.T) {
	assert.Equal(t, "end_of_stream", framepipe.TerminationEndOfStream.String())
	assert.Equal(t, "read_error", framepipe.TerminationReadError.String())
	assert.Equal(t, "user_stop", framepipe.TerminationUserStop.String())
	assert.Equal(t, "canceled", framepipe.TerminationCanceled.String())
	assert.Equal(t, "failed", framepipe.TerminationFailed.String())
}
