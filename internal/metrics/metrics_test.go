package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe"
)

func TestMetrics_RecordsEvents(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.FrameHandled(framepipe.StageSource)
	m.FrameHandled(framepipe.StageSource)
	m.FrameHandled(framepipe.StageSink)
	m.QueueDepth(framepipe.ChannelA, 4)
	m.QueueDepth(framepipe.ChannelA, 2)
	m.EndOfStream(framepipe.ChannelB)
	m.Paced(40 * time.Millisecond)
	m.RunFinished(framepipe.TerminationUserStop)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesTotal.WithLabelValues("source")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesTotal.WithLabelValues("sink")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueItems.WithLabelValues("A")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MarkersTotal.WithLabelValues("B")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("user_stop")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PacingSeconds))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.FrameHandled(framepipe.StageTransform)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `framepipe_frames_total{stage="transform"} 1`)
}

func TestMetrics_IsolatedRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
