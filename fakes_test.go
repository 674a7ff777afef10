package framepipe_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe"
)

// sliceReader serves payloads as 1x1 gray frames.
type sliceReader struct {
	payloads [][]byte
	failAt   int   // 1-based read that fails; 0 = never
	readErr  error // returned at failAt
	openErr  error

	opened atomic.Int32
	src    *sliceSource
}

func payloads(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte{byte(i)}
	}
	return out
}

func (r *sliceReader) Open(_ context.Context, path string) (framepipe.FrameSource, error) {
	r.opened.Add(1)
	if r.openErr != nil {
		return nil, r.openErr
	}
	r.src = &sliceSource{r: r}
	return r.src, nil
}

type sliceSource struct {
	r      *sliceReader
	reads  int
	closed atomic.Int32
}

func (s *sliceSource) ReadNext() (*framepipe.Frame, error) {
	s.reads++
	if s.r.failAt > 0 && s.reads == s.r.failAt {
		return nil, s.r.readErr
	}
	if s.reads > len(s.r.payloads) {
		return nil, io.EOF
	}
	data := s.r.payloads[s.reads-1]
	return &framepipe.Frame{
		Width:  len(data),
		Height: 1,
		Format: framepipe.FormatGray,
		Data:   data,
	}, nil
}

func (s *sliceSource) Close() error {
	s.closed.Add(1)
	return nil
}

// recordingRenderer keeps every shown frame.
type recordingRenderer struct {
	mu    sync.Mutex
	shown []*framepipe.Frame

	stopAfter   int   // request stop once this many frames were shown; 0 = never
	failOn      int   // Show of this 1-based frame fails; 0 = never
	showErr     error // returned at failOn
	teardownErr error

	teardowns atomic.Int32
}

func (r *recordingRenderer) Show(f *framepipe.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failOn > 0 && len(r.shown)+1 == r.failOn {
		return r.showErr
	}
	r.shown = append(r.shown, f)
	return nil
}

func (r *recordingRenderer) PollUserStop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopAfter > 0 && len(r.shown) >= r.stopAfter
}

func (r *recordingRenderer) Teardown() error {
	r.teardowns.Add(1)
	return r.teardownErr
}

func (r *recordingRenderer) frames() []*framepipe.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*framepipe.Frame(nil), r.shown...)
}

func (r *recordingRenderer) seqs() []uint64 {
	out := []uint64{}
	for _, f := range r.frames() {
		out = append(out, f.Seq)
	}
	return out
}

// countingPacer counts waits and optionally sleeps.
type countingPacer struct {
	delay time.Duration
	waits atomic.Int32
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits.Add(1)
	if p.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(p.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// blockingPacer parks the sink until the run is cancelled.
type blockingPacer struct {
	entered chan struct{}
	once    sync.Once
}

func newBlockingPacer() *blockingPacer {
	return &blockingPacer{entered: make(chan struct{})}
}

func (p *blockingPacer) Wait(ctx context.Context) error {
	p.once.Do(func() { close(p.entered) })
	<-ctx.Done()
	return ctx.Err()
}

// recordingObserver counts events.
type recordingObserver struct {
	mu       sync.Mutex
	handled  map[string]int
	markers  map[string]int
	paced    int
	finished []framepipe.Termination
	maxDepth map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		handled:  map[string]int{},
		markers:  map[string]int{},
		maxDepth: map[string]int{},
	}
}

func (o *recordingObserver) FrameHandled(stage string) {
	o.mu.Lock()
	o.handled[stage]++
	o.mu.Unlock()
}

func (o *recordingObserver) QueueDepth(channel string, depth int) {
	o.mu.Lock()
	if depth > o.maxDepth[channel] {
		o.maxDepth[channel] = depth
	}
	o.mu.Unlock()
}

func (o *recordingObserver) EndOfStream(channel string) {
	o.mu.Lock()
	o.markers[channel]++
	o.mu.Unlock()
}

func (o *recordingObserver) Paced(time.Duration) {
	o.mu.Lock()
	o.paced++
	o.mu.Unlock()
}

func (o *recordingObserver) RunFinished(t framepipe.Termination) {
	o.mu.Lock()
	o.finished = append(o.finished, t)
	o.mu.Unlock()
}

var errBoom = errors.New("boom")
