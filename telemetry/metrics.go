package telemetry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/cache"
	"github.com/ACUCyS/weekly-ctf-bot/config"
	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/ACUCyS/weekly-ctf-bot/utils"

	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
	"google.golang.org/genproto/googleapis/api/metric"
	"google.golang.org/genproto/googleapis/api/monitoredres"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// 지표 이름
const (
	metricCommandUsage    = "ctf_bot/commands/usage"
	metricCommandDuration = "ctf_bot/commands/duration"
	metricSubmissions     = "ctf_bot/submissions"
	metricAnnouncements   = "ctf_bot/announcements"
	metricCacheHitRate    = "ctf_bot/cache/hit_rate"
	metricCacheHits       = "ctf_bot/cache/hits"
	metricCacheMisses     = "ctf_bot/cache/misses"

	// CreateTimeSeries 한 번에 보낼 수 있는 최대 시계열 수
	maxSeriesPerRequest = 200
)

// timeSeriesWriter monitoring.MetricClient 중 사용하는 메서드입니다
type timeSeriesWriter interface {
	CreateTimeSeries(ctx context.Context, req *monitoringpb.CreateTimeSeriesRequest) error
	Close() error
}

type metricClientWriter struct {
	client *monitoring.MetricClient
}

func (w metricClientWriter) CreateTimeSeries(ctx context.Context, req *monitoringpb.CreateTimeSeriesRequest) error {
	return w.client.CreateTimeSeries(ctx, req)
}

func (w metricClientWriter) Close() error {
	return w.client.Close()
}

// aggregate 한 번의 전송 주기 동안 같은 시계열에 쌓인 값입니다
type aggregate struct {
	metricType string
	labels     map[string]string
	sum        float64
	count      int
	mean       bool
}

func (a *aggregate) value() float64 {
	if a.mean && a.count > 0 {
		return a.sum / float64(a.count)
	}
	return a.sum
}

// MetricsClient Google Cloud Monitoring 으로 봇 지표를 보냅니다.
// 기록은 메모리에 모아 두었다가 주기적으로 한 번에 전송합니다.
type MetricsClient struct {
	writer    timeSeriesWriter
	projectID string
	enabled   bool

	mu      sync.Mutex
	pending map[string]*aggregate

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewMetricsClient 설정에 따라 MetricsClient 를 생성합니다. 비활성화되었거나 초기화에 실패하면
// 아무것도 보내지 않는 클라이언트를 반환합니다.
func NewMetricsClient(ctx context.Context, cfg config.TelemetryConfig) *MetricsClient {
	if !cfg.Enabled {
		return disabledClient()
	}
	if cfg.ProjectID == "" {
		utils.Warn("Project ID not provided, telemetry disabled")
		return disabledClient()
	}

	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}

	client, err := monitoring.NewMetricClient(ctx, opts...)
	if err != nil {
		utils.Warn("Failed to create monitoring client: %v", err)
		utils.Warn("Telemetry disabled")
		return disabledClient()
	}

	utils.Info("Google Cloud Monitoring telemetry enabled for project: %s", cfg.ProjectID)
	return newMetricsClient(metricClientWriter{client}, cfg.ProjectID)
}

func disabledClient() *MetricsClient {
	return &MetricsClient{enabled: false, now: time.Now}
}

func newMetricsClient(writer timeSeriesWriter, projectID string) *MetricsClient {
	return &MetricsClient{
		writer:    writer,
		projectID: projectID,
		enabled:   true,
		pending:   make(map[string]*aggregate),
		stop:      make(chan struct{}),
		now:       time.Now,
	}
}

// Enabled 지표를 실제로 전송하는지 반환합니다
func (m *MetricsClient) Enabled() bool {
	return m.enabled
}

// StartFlushWorker interval 마다 모인 지표를 전송합니다
func (m *MetricsClient) StartFlushWorker(interval time.Duration) {
	if !m.enabled {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), constants.HealthCheckTimeout)
				if err := m.Flush(ctx); err != nil {
					utils.Warn("Failed to send metrics: %v", err)
				}
				cancel()
			case <-m.stop:
				return
			}
		}
	}()
}

// RecordCommand 명령어 사용 횟수와 처리 시간을 기록합니다
func (m *MetricsClient) RecordCommand(command string, duration time.Duration, success bool) {
	labels := map[string]string{"command": command, "success": fmt.Sprintf("%t", success)}
	m.add(metricCommandUsage, labels, 1, false)
	m.add(metricCommandDuration, map[string]string{"command": command}, duration.Seconds(), true)
}

// RecordSubmission 채점된 플래그 제출을 기록합니다
func (m *MetricsClient) RecordSubmission(correct bool) {
	m.add(metricSubmissions, map[string]string{"correct": fmt.Sprintf("%t", correct)}, 1, false)
}

// RecordAnnouncement 공지 전송 결과를 기록합니다
func (m *MetricsClient) RecordAnnouncement(kind string, success bool) {
	m.add(metricAnnouncements, map[string]string{"kind": kind, "success": fmt.Sprintf("%t", success)}, 1, false)
}

// RecordCacheStats 진행 중 챌린지 목록 캐시 통계를 기록합니다
func (m *MetricsClient) RecordCacheStats(stats cache.CacheStats) {
	m.set(metricCacheHitRate, stats.HitRate())
	m.set(metricCacheHits, float64(stats.Hits))
	m.set(metricCacheMisses, float64(stats.Misses))
}

func seriesKey(metricType string, labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(metricType)
	for _, k := range keys {
		sb.WriteString("|" + k + "=" + labels[k])
	}
	return sb.String()
}

func (m *MetricsClient) add(metricType string, labels map[string]string, value float64, mean bool) {
	if !m.enabled {
		return
	}
	key := seriesKey(metricType, labels)

	m.mu.Lock()
	defer m.mu.Unlock()
	agg, ok := m.pending[key]
	if !ok {
		agg = &aggregate{metricType: metricType, labels: labels, mean: mean}
		m.pending[key] = agg
	}
	agg.sum += value
	agg.count++
}

// set 게이지 값을 덮어씁니다
func (m *MetricsClient) set(metricType string, value float64) {
	if !m.enabled {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[seriesKey(metricType, nil)] = &aggregate{metricType: metricType, sum: value, count: 1}
}

// Flush 모인 지표를 전송하고 비웁니다
func (m *MetricsClient) Flush(ctx context.Context) error {
	if !m.enabled {
		return nil
	}

	m.mu.Lock()
	batch := m.pending
	m.pending = make(map[string]*aggregate)
	m.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	keys := make([]string, 0, len(batch))
	for k := range batch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := timestamppb.New(m.now())
	series := make([]*monitoringpb.TimeSeries, 0, len(keys))
	for _, k := range keys {
		agg := batch[k]
		series = append(series, m.timeSeries(agg.metricType, agg.value(), agg.labels, now))
	}

	for start := 0; start < len(series); start += maxSeriesPerRequest {
		end := min(start+maxSeriesPerRequest, len(series))
		req := &monitoringpb.CreateTimeSeriesRequest{
			Name:       "projects/" + m.projectID,
			TimeSeries: series[start:end],
		}
		if err := m.writer.CreateTimeSeries(ctx, req); err != nil {
			return errors.Wrap(err, "create time series")
		}
	}
	utils.Debug("Sent %d metric series to Google Cloud Monitoring", len(series))
	return nil
}

// timeSeries 라벨이 포함된 커스텀 지표 시계열을 만듭니다
func (m *MetricsClient) timeSeries(metricType string, value float64, labels map[string]string, timestamp *timestamppb.Timestamp) *monitoringpb.TimeSeries {
	if labels == nil {
		labels = make(map[string]string)
	}
	return &monitoringpb.TimeSeries{
		Metric: &metric.Metric{
			Type:   "custom.googleapis.com/" + metricType,
			Labels: labels,
		},
		Resource: &monitoredres.MonitoredResource{
			Type: "generic_task",
			Labels: map[string]string{
				"project_id": m.projectID,
				"location":   "global",
				"namespace":  constants.TelemetryNamespace,
				"job":        constants.TelemetryJobName,
				"task_id":    constants.TelemetryTaskID,
			},
		},
		Points: []*monitoringpb.Point{
			{
				Interval: &monitoringpb.TimeInterval{EndTime: timestamp},
				Value: &monitoringpb.TypedValue{
					Value: &monitoringpb.TypedValue_DoubleValue{DoubleValue: value},
				},
			},
		},
	}
}

// Close 남은 지표를 전송하고 클라이언트를 정리합니다
func (m *MetricsClient) Close() error {
	if !m.enabled {
		return nil
	}
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), constants.HealthCheckTimeout)
	defer cancel()
	if err := m.Flush(ctx); err != nil {
		utils.Warn("Failed to send final metrics: %v", err)
	}
	return m.writer.Close()
}
