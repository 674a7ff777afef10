// Package fpsstats measures how steadily frames were delivered.
//
// The sink stage records one timestamp per shown frame; Calculate turns
// those into rate and jitter figures for the run report.
package fpsstats

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// fpsStabilityThreshold is the maximum instantaneous-FPS standard deviation
	// as a fraction of mean FPS. 24 FPS mean → stable if stddev < 3.6 FPS.
	fpsStabilityThreshold = 0.15

	// jitterStabilityThreshold is the maximum mean jitter as a fraction of the
	// expected inter-frame interval. 24 FPS (41.6ms) → stable if jitter < 8.3ms.
	jitterStabilityThreshold = 0.20
)

// Stats summarises frame delivery timing.
type Stats struct {
	Frames       int           // Timestamps analysed
	Span         time.Duration // First to last timestamp
	FPSMean      float64       // Intervals per second over Span
	FPSStdDev    float64       // Standard deviation of instantaneous FPS
	FPSMin       float64       // Slowest instantaneous FPS
	FPSMax       float64       // Fastest instantaneous FPS
	JitterMean   float64       // Mean deviation from the expected interval (seconds)
	JitterStdDev float64       // Standard deviation of jitter (seconds)
	JitterMax    float64       // Largest jitter observed (seconds)
	IsStable     bool          // FPS stddev < 15% of mean AND jitter < 20% of interval
}

// Calculate derives delivery statistics from ordered frame timestamps.
//
// Fewer than two timestamps, or timestamps that never advance, yield a Stats
// with only Frames (and Span) filled in and IsStable false.
func Calculate(times []time.Time) Stats {
	n := len(times)
	if n < 2 {
		return Stats{Frames: n}
	}

	span := times[n-1].Sub(times[0])
	out := Stats{Frames: n, Span: span}
	if span <= 0 {
		return out
	}

	intervals := make([]float64, 0, n-1)
	instantaneous := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		iv := times[i].Sub(times[i-1]).Seconds()
		intervals = append(intervals, iv)
		if iv > 0 {
			instantaneous = append(instantaneous, 1.0/iv)
		}
	}

	out.FPSMean = float64(n-1) / span.Seconds()

	if len(instantaneous) > 0 {
		out.FPSMin = floats.Min(instantaneous)
		out.FPSMax = floats.Max(instantaneous)
		out.FPSStdDev = spread(instantaneous)
	}

	expected := 1.0 / out.FPSMean
	jitters := make([]float64, len(intervals))
	for i, iv := range intervals {
		jitters[i] = math.Abs(iv - expected)
	}
	out.JitterMean = stat.Mean(jitters, nil)
	out.JitterStdDev = spread(jitters)
	out.JitterMax = floats.Max(jitters)

	fpsStable := out.FPSStdDev < out.FPSMean*fpsStabilityThreshold
	jitterStable := out.JitterMean < expected*jitterStabilityThreshold
	out.IsStable = fpsStable && jitterStable

	return out
}

// spread is the sample standard deviation, 0 for fewer than two values.
func spread(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}
