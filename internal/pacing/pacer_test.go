package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterval(t *testing.T) {
	tests := []struct {
		fps  float64
		want time.Duration
	}{
		{24, 41 * time.Millisecond},
		{25, 40 * time.Millisecond},
		{1, time.Second},
		{0, 0},
		{-3, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Interval(tt.fps), "fps=%v", tt.fps)
	}
}

func TestNew(t *testing.T) {
	p, err := New(ModeSleep, 24)
	require.NoError(t, err)
	assert.Equal(t, &SleepPacer{Delay: 41 * time.Millisecond}, p)

	p, err = New("", 10)
	require.NoError(t, err)
	assert.IsType(t, &SleepPacer{}, p)

	p, err = New(ModeRate, 10)
	require.NoError(t, err)
	assert.IsType(t, &RatePacer{}, p)

	_, err = New("bogus", 10)
	assert.ErrorContains(t, err, "unknown mode")

	_, err = New(ModeSleep, 0)
	assert.ErrorContains(t, err, "invalid frame rate")
}

func TestSleepPacer_Waits(t *testing.T) {
	p := &SleepPacer{Delay: 30 * time.Millisecond}

	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestSleepPacer_Cancelled(t *testing.T) {
	p := &SleepPacer{Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRatePacer_SpacesFrames(t *testing.T) {
	p := NewRatePacer(20) // 50ms between tokens
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Wait(ctx))
	}
	// First token is immediate, the next two wait ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
