package framepipe

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe/internal/queue"
)

type messageKind uint8

const (
	kindFrame messageKind = iota
	kindEndOfStream
)

// message is what travels through a channel: a frame, or the end-of-stream
// marker. The marker may carry the read error that ended the stream.
type message struct {
	kind  messageKind
	frame *Frame
	cause error
}

// channel couples two stages: exactly one producer, exactly one consumer.
type channel struct {
	name     string
	q        *queue.Queue[message]
	observer Observer

	sealed  atomic.Bool   // marker enqueued (or attempted)
	markers atomic.Uint64 // markers actually enqueued
}

func newChannel(name string, capacity int, obs Observer) *channel {
	return &channel{
		name:     name,
		q:        queue.New[message](capacity),
		observer: obs,
	}
}

// send enqueues a frame, blocking while the channel is full.
func (c *channel) send(ctx context.Context, f *Frame) error {
	if c.sealed.Load() {
		return fmt.Errorf("%w: %s: frame %d after end-of-stream", ErrChannelClosed, c.name, f.Seq)
	}
	if err := c.q.Push(ctx, message{kind: kindFrame, frame: f}); err != nil {
		return c.translate(err)
	}
	c.observer.QueueDepth(c.name, c.q.Len())
	return nil
}

// endStream enqueues the marker and closes the channel. Only the first call
// has an effect.
func (c *channel) endStream(ctx context.Context, cause error) error {
	if !c.sealed.CompareAndSwap(false, true) {
		return nil
	}
	defer c.q.Close()

	if err := c.q.Push(ctx, message{kind: kindEndOfStream, cause: cause}); err != nil {
		return c.translate(err)
	}
	c.markers.Add(1)
	c.observer.EndOfStream(c.name)
	return nil
}

// recv dequeues the next message, blocking while the channel is empty.
func (c *channel) recv(ctx context.Context) (message, error) {
	m, err := c.q.Pop(ctx)
	if err != nil {
		return message{}, c.translate(err)
	}
	c.observer.QueueDepth(c.name, c.q.Len())
	return m, nil
}

// abandon closes the channel without a marker. The producer calls it when it
// stops on cancellation.
func (c *channel) abandon() {
	c.q.Close()
}

// translate maps queue errors to the package's contract. Context errors are
// passed through so stages can recognise cancellation.
func (c *channel) translate(err error) error {
	if errors.Is(err, queue.ErrClosed) {
		return fmt.Errorf("%w: %s", ErrChannelClosed, c.name)
	}
	return err
}

func (c *channel) stats() ChannelStats {
	s := c.q.Stats()
	return ChannelStats{
		Name:          c.name,
		Capacity:      s.Capacity,
		Len:           s.Len,
		Pushed:        s.Pushed,
		Popped:        s.Popped,
		BlockedPushes: s.BlockedPushes,
		HighWater:     s.HighWater,
		Closed:        s.Closed,
		EndOfStream:   c.markers.Load(),
	}
}
