// Package pacing holds the sink stage's output-rate control.
package pacing

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Mode names accepted by New.
const (
	ModeSleep = "sleep"
	ModeRate  = "rate"
)

// Pacer delays the sink between frames.
type Pacer interface {
	// Wait blocks for the pacing delay or until ctx is done.
	Wait(ctx context.Context) error
}

// Interval returns the per-frame delay for fps, truncated to whole
// milliseconds (24 fps → 41ms).
func Interval(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(int(1000/fps)) * time.Millisecond
}

// New builds the pacer for mode at fps.
func New(mode string, fps float64) (Pacer, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("pacing: invalid frame rate %.2f (must be > 0)", fps)
	}

	switch mode {
	case ModeSleep, "":
		return &SleepPacer{Delay: Interval(fps)}, nil
	case ModeRate:
		return NewRatePacer(fps), nil
	default:
		return nil, fmt.Errorf("pacing: unknown mode %q (must be %s or %s)", mode, ModeSleep, ModeRate)
	}
}

// SleepPacer sleeps a fixed delay after every frame, regardless of how long
// rendering took.
type SleepPacer struct {
	Delay time.Duration
}

// Wait implements Pacer.
func (p *SleepPacer) Wait(ctx context.Context) error {
	if p.Delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.Delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RatePacer spaces frames evenly at fps using a token bucket of size one, so
// time spent rendering counts against the delay.
type RatePacer struct {
	limiter *rate.Limiter
}

// NewRatePacer creates a RatePacer. The first Wait returns immediately.
func NewRatePacer(fps float64) *RatePacer {
	return &RatePacer{limiter: rate.NewLimiter(rate.Limit(fps), 1)}
}

// Wait implements Pacer.
func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
