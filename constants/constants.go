package constants

import "time"

// 챌린지 관련 상수
const (
	DefaultChallengeDuration = 7 * 24 * time.Hour // 새 챌린지 기본 진행 기간
	MaxAutocompleteChoices   = 25                 // Discord 자동완성 최대 개수
	MaxSelectOptions         = 25                 // Discord 선택 메뉴 최대 옵션 수
)

// 명령어 이름
const (
	CommandNewChallenge   = "new-challenge"
	CommandChallenge      = "challenge"
	CommandSubmitFlag     = "submit-flag"
	CommandSubmissions    = "submissions"
	CommandEditChallenge  = "edit-challenge"
	CommandSetStatus      = "set-challenge-status"
	CommandServerSettings = "server-settings"
	CommandUptime         = "uptime"
)

// 명령어 옵션 이름
const (
	OptionChallenge           = "challenge"
	OptionFlag                = "flag"
	OptionAuthorRole          = "author-role"
	OptionPingRole            = "ping-role"
	OptionAnnouncementChannel = "announcement-channel"
	OptionSolveChannel        = "solve-channel"
	OptionClear               = "clear"
)

// 명령어별 사용자 쿨다운
var CommandCooldowns = map[string]time.Duration{
	CommandNewChallenge:  10 * time.Second,
	CommandChallenge:     1 * time.Second,
	CommandSubmitFlag:    3 * time.Second,
	CommandSubmissions:   1 * time.Second,
	CommandEditChallenge: 10 * time.Second,
	CommandSetStatus:     10 * time.Second,
}

// 이모지 상수
const (
	EmojiSuccess = "✅"
	EmojiError   = "❌"
	EmojiInfo    = "ℹ️"
	EmojiFlag    = "🚩"
	EmojiClock   = "⏰"
	EmojiFile    = "📎"
	EmojiLink    = "🔗"
)

// 임베드 색상
const (
	ColorOpen    = 0x2ECC71
	ColorClosed  = 0xE74C3C
	ColorInfo    = 0x3498DB
	ColorHidden  = 0x95A5A6
	ColorWarning = 0xF1C40F
)

// 날짜 형식
const (
	DateTimeFormat = "2006-01-02 15:04:05"
)

// 로그 관련 상수
const (
	LogLevelDebug = "DEBUG"
	LogLevelInfo  = "INFO"
	LogLevelWarn  = "WARN"
	LogLevelError = "ERROR"
)

// 문자열 크기 제한
const (
	TruncateIndicator    = "..."
	MaxEmbedDescription  = 4096
	MaxSelectLabelLength = 100
)

// 환경 변수 키
const (
	EnvDiscordToken    = "DISCORD_BOT_TOKEN"
	EnvGuildID         = "DISCORD_GUILD_ID"
	EnvDatabaseURL     = "DATABASE_URL"
	EnvAutoMigrate     = "AUTO_MIGRATE"
	EnvBotMode         = "BOT_MODE"
	EnvLogLevel        = "LOG_LEVEL"
	EnvDebugMode       = "DEBUG_MODE"
	EnvSolveWebhookURL = "SOLVE_WEBHOOK_URL"
	EnvWebhookTimeout  = "WEBHOOK_TIMEOUT"
	EnvRedisURL        = "REDIS_URL"
	EnvActiveCacheTTL  = "ACTIVE_CACHE_TTL"
	EnvAnnounceRate    = "ANNOUNCE_RATE"
	EnvPort            = "PORT"
	EnvTelemetry       = "TELEMETRY_ENABLED"
	EnvGCPProject      = "GOOGLE_CLOUD_PROJECT"
	EnvGCPCredentials  = "GOOGLE_CREDENTIALS_JSON"
)

// 봇 실행 모드
const (
	BotModeDev  = "dev"
	BotModeProd = "prod"
)

// 텔레메트리 관련 상수
const (
	TelemetryNamespace = "weekly-ctf-bot"
	TelemetryJobName   = "ctf-bot"
	TelemetryTaskID    = "main"
)
