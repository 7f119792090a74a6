package constants

import "time"

// 시스템 관련 상수
const (
	// 애플리케이션 버전
	BotVersion = "1.0.0"

	// 네트워크 관련
	DefaultHTTPPort = "8080" // 헬스체크 서버 기본 포트

	// 메모리 관련
	BytesToMB = 1024 * 1024

	// 헬스체크 관련
	HealthCheckTimeout  = 5 * time.Second
	HealthStatusHealthy = "healthy"
	HealthStatusFailing = "unhealthy"

	// 종료 대기 시간
	ShutdownTimeout = 10 * time.Second

	// 인터랙션 하나를 처리하는 최대 시간
	InteractionTimeout = 10 * time.Second

	// 지표 전송 주기
	TelemetryFlushInterval = 1 * time.Minute

	// 봇 상태 메시지
	BotStatusMessage = "/challenge"
)
