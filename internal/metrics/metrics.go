// Package metrics exports pipeline events as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe"
)

// Metrics holds all pipeline collectors. It implements framepipe.Observer.
type Metrics struct {
	FramesTotal   *prometheus.CounterVec // by stage
	QueueItems    *prometheus.GaugeVec   // by channel
	MarkersTotal  *prometheus.CounterVec // by channel
	PacingSeconds prometheus.Histogram   // sink wait per frame
	RunsTotal     *prometheus.CounterVec // by termination
	registry      prometheus.Gatherer
}

var _ framepipe.Observer = (*Metrics)(nil)

// New registers the collectors on reg. Pass prometheus.NewRegistry() in
// tests to keep runs isolated.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FramesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framepipe_frames_total",
				Help: "Frames completed per stage",
			},
			[]string{"stage"},
		),
		QueueItems: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "framepipe_queue_depth",
				Help: "Items buffered in a channel after the last push or pop",
			},
			[]string{"channel"},
		),
		MarkersTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framepipe_end_of_stream_total",
				Help: "End-of-stream markers enqueued per channel",
			},
			[]string{"channel"},
		),
		PacingSeconds: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "framepipe_pacing_seconds",
				Help:    "Time the sink waited after showing a frame",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framepipe_runs_total",
				Help: "Finished runs by termination reason",
			},
			[]string{"termination"},
		),
		registry: reg,
	}
}

// FrameHandled implements framepipe.Observer.
func (m *Metrics) FrameHandled(stage string) {
	m.FramesTotal.WithLabelValues(stage).Inc()
}

// QueueDepth implements framepipe.Observer.
func (m *Metrics) QueueDepth(channel string, depth int) {
	m.QueueItems.WithLabelValues(channel).Set(float64(depth))
}

// EndOfStream implements framepipe.Observer.
func (m *Metrics) EndOfStream(channel string) {
	m.MarkersTotal.WithLabelValues(channel).Inc()
}

// Paced implements framepipe.Observer.
func (m *Metrics) Paced(d time.Duration) {
	m.PacingSeconds.Observe(d.Seconds())
}

// RunFinished implements framepipe.Observer.
func (m *Metrics) RunFinished(t framepipe.Termination) {
	m.RunsTotal.WithLabelValues(t.String()).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
