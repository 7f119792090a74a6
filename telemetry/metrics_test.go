package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/cache"
	"github.com/ACUCyS/weekly-ctf-bot/config"
	"github.com/ACUCyS/weekly-ctf-bot/interfaces"

	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ interfaces.MetricsRecorder = (*MetricsClient)(nil)

type fakeWriter struct {
	requests []*monitoringpb.CreateTimeSeriesRequest
	err      error
	closed   bool
}

func (w *fakeWriter) CreateTimeSeries(_ context.Context, req *monitoringpb.CreateTimeSeriesRequest) error {
	if w.err != nil {
		return w.err
	}
	w.requests = append(w.requests, req)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestClient() (*MetricsClient, *fakeWriter) {
	w := &fakeWriter{}
	m := newMetricsClient(w, "test-project")
	m.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return m, w
}

func seriesByType(req *monitoringpb.CreateTimeSeriesRequest) map[string][]*monitoringpb.TimeSeries {
	out := make(map[string][]*monitoringpb.TimeSeries)
	for _, ts := range req.TimeSeries {
		out[ts.Metric.Type] = append(out[ts.Metric.Type], ts)
	}
	return out
}

func TestDisabledClientIsNoop(t *testing.T) {
	m := NewMetricsClient(context.Background(), config.TelemetryConfig{Enabled: false})
	assert.False(t, m.Enabled())

	m.RecordCommand("challenge", time.Second, true)
	m.RecordSubmission(true)
	m.RecordAnnouncement("open", true)
	m.RecordCacheStats(cache.CacheStats{Hits: 1})
	m.StartFlushWorker(time.Millisecond)

	assert.NoError(t, m.Flush(context.Background()))
	assert.NoError(t, m.Close())
}

func TestMissingProjectDisablesTelemetry(t *testing.T) {
	m := NewMetricsClient(context.Background(), config.TelemetryConfig{Enabled: true})
	assert.False(t, m.Enabled())
}

func TestFlushAggregatesCounters(t *testing.T) {
	m, w := newTestClient()

	m.RecordCommand("challenge", 100*time.Millisecond, true)
	m.RecordCommand("challenge", 300*time.Millisecond, true)
	m.RecordCommand("challenge", 200*time.Millisecond, false)
	m.RecordSubmission(true)
	m.RecordSubmission(false)
	m.RecordSubmission(false)

	require.NoError(t, m.Flush(context.Background()))
	require.Len(t, w.requests, 1)
	assert.Equal(t, "projects/test-project", w.requests[0].Name)

	series := seriesByType(w.requests[0])
	usage := series["custom.googleapis.com/ctf_bot/commands/usage"]
	require.Len(t, usage, 2, "success 라벨별로 나뉘어야 합니다")
	for _, ts := range usage {
		want := 2.0
		if ts.Metric.Labels["success"] == "false" {
			want = 1.0
		}
		assert.Equal(t, want, ts.Points[0].Value.GetDoubleValue())
	}

	duration := series["custom.googleapis.com/ctf_bot/commands/duration"]
	require.Len(t, duration, 1)
	assert.InDelta(t, 0.2, duration[0].Points[0].Value.GetDoubleValue(), 1e-9, "처리 시간은 평균이어야 합니다")

	submissions := series["custom.googleapis.com/ctf_bot/submissions"]
	require.Len(t, submissions, 2)

	resource := usage[0].Resource
	assert.Equal(t, "generic_task", resource.Type)
	assert.Equal(t, "test-project", resource.Labels["project_id"])
	assert.Equal(t, int64(1_700_000_000), usage[0].Points[0].Interval.EndTime.Seconds)
}

func TestFlushClearsPending(t *testing.T) {
	m, w := newTestClient()
	m.RecordAnnouncement("solve", true)

	require.NoError(t, m.Flush(context.Background()))
	require.NoError(t, m.Flush(context.Background()))
	assert.Len(t, w.requests, 1, "보낼 지표가 없으면 요청하지 않아야 합니다")
}

func TestCacheStatsOverwrite(t *testing.T) {
	m, w := newTestClient()
	m.RecordCacheStats(cache.CacheStats{Hits: 1, Misses: 1})
	m.RecordCacheStats(cache.CacheStats{Hits: 3, Misses: 1})

	require.NoError(t, m.Flush(context.Background()))
	series := seriesByType(w.requests[0])
	rate := series["custom.googleapis.com/ctf_bot/cache/hit_rate"]
	require.Len(t, rate, 1)
	assert.Equal(t, 0.75, rate[0].Points[0].Value.GetDoubleValue())
}

func TestFlushSplitsLargeBatches(t *testing.T) {
	m, w := newTestClient()
	for i := 0; i < maxSeriesPerRequest+10; i++ {
		m.RecordAnnouncement(time.Duration(i).String(), true)
	}

	require.NoError(t, m.Flush(context.Background()))
	require.Len(t, w.requests, 2)
	assert.Len(t, w.requests[0].TimeSeries, maxSeriesPerRequest)
	assert.Len(t, w.requests[1].TimeSeries, 10)
}

func TestFlushReturnsWriterError(t *testing.T) {
	m, w := newTestClient()
	w.err = errors.New("quota exceeded")
	m.RecordSubmission(true)

	err := m.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestCloseFlushesRemaining(t *testing.T) {
	m, w := newTestClient()
	m.StartFlushWorker(time.Hour)
	m.RecordSubmission(true)

	require.NoError(t, m.Close())
	assert.Len(t, w.requests, 1)
	assert.True(t, w.closed)
}
