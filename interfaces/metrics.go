package interfaces

import "time"

// MetricsRecorder 봇 사용 지표를 기록하는 인터페이스입니다
type MetricsRecorder interface {
	RecordCommand(command string, duration time.Duration, success bool)
	RecordSubmission(correct bool)
	RecordAnnouncement(kind string, success bool)
}
