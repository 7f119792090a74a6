package constants

import "time"

// 기본 설정값
const (
	DefaultDatabaseURL    = "sqlite://challenges.db"
	DefaultWebhookTimeout = 5 * time.Second  // 솔브 웹훅 타임아웃
	SolveAnnounceTimeout  = 15 * time.Second // 백그라운드 솔브 공지 전체 제한 시간
	DefaultActiveCacheTTL = 30 * time.Second // 진행 중 챌린지 목록 캐시 만료 시간
	DefaultAnnounceRate   = 5                // 초당 공지 전송 수
	CacheCleanupInterval  = 1 * time.Minute  // 캐시 정리 간격

	// Discord API 재시도 설정
	MaxDiscordRetries = 3               // 최대 재시도 횟수
	BaseRetryDelay    = 1 * time.Second // 기본 재시도 지연 시간

	// 데이터베이스 커넥션 풀
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 30 * time.Minute
	DBConnMaxIdleTime = 2 * time.Minute
	DBPingTimeout     = 5 * time.Second
)

// 검증 규칙 상수
const (
	MinNameLength = 3  // 챌린지 이름 최소 길이
	MaxNameLength = 32 // 챌린지 이름 최대 길이
	MinFlagLength = 2  // 플래그 최소 길이
	MaxFlagLength = 32 // 플래그 최대 길이
	MaxURLLength  = 64 // 접속 URL 최대 길이

	MaxSubmittedFlagLength = 255 // 저장하는 제출 플래그 최대 길이
)
