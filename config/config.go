package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/joho/godotenv"
)

// Config 애플리케이션의 전체 설정을 관리합니다
type Config struct {
	Mode          string
	Discord       DiscordConfig
	Database      DatabaseConfig
	Cache         CacheConfig
	Announcements AnnouncementConfig
	Logging       LoggingConfig
	Health        HealthConfig
	Telemetry     TelemetryConfig
}

type DiscordConfig struct {
	Token           string
	GuildID         string // 비어있으면 전역 명령어로 등록
	SolveWebhookURL string
	WebhookTimeout  time.Duration
}

type DatabaseConfig struct {
	URL          string
	AutoMigrate  bool
	MaxOpenConns int
	MaxIdleConns int
}

type CacheConfig struct {
	RedisURL  string
	ActiveTTL time.Duration
}

type AnnouncementConfig struct {
	RatePerSecond int
}

type LoggingConfig struct {
	Level     string
	DebugMode bool
}

type HealthConfig struct {
	Port string
}

type TelemetryConfig struct {
	Enabled         bool
	ProjectID       string
	CredentialsJSON string
}

// LoadDotEnv 작업 디렉터리의 .env 파일을 환경변수로 읽습니다. 파일이 없으면 무시합니다
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	err := godotenv.Load(paths...)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Load는 환경변수에서 설정을 로드합니다
func Load() *Config {
	return &Config{
		Mode: strings.ToLower(getEnv(constants.EnvBotMode, constants.BotModeDev)),
		Discord: DiscordConfig{
			Token:           getEnv(constants.EnvDiscordToken, ""),
			GuildID:         getEnv(constants.EnvGuildID, ""),
			SolveWebhookURL: getEnv(constants.EnvSolveWebhookURL, ""),
			WebhookTimeout:  getEnvSeconds(constants.EnvWebhookTimeout, constants.DefaultWebhookTimeout),
		},
		Database: DatabaseConfig{
			URL:          getEnv(constants.EnvDatabaseURL, constants.DefaultDatabaseURL),
			AutoMigrate:  getEnvBool(constants.EnvAutoMigrate, true),
			MaxOpenConns: constants.DBMaxOpenConns,
			MaxIdleConns: constants.DBMaxIdleConns,
		},
		Cache: CacheConfig{
			RedisURL:  getEnv(constants.EnvRedisURL, ""),
			ActiveTTL: getEnvSeconds(constants.EnvActiveCacheTTL, constants.DefaultActiveCacheTTL),
		},
		Announcements: AnnouncementConfig{
			RatePerSecond: getEnvInt(constants.EnvAnnounceRate, constants.DefaultAnnounceRate),
		},
		Logging: LoggingConfig{
			Level:     getEnv(constants.EnvLogLevel, constants.LogLevelInfo),
			DebugMode: getEnvBool(constants.EnvDebugMode, false),
		},
		Health: HealthConfig{
			Port: getEnv(constants.EnvPort, constants.DefaultHTTPPort),
		},
		Telemetry: TelemetryConfig{
			Enabled:         getEnvBool(constants.EnvTelemetry, false),
			ProjectID:       getEnv(constants.EnvGCPProject, ""),
			CredentialsJSON: getEnv(constants.EnvGCPCredentials, ""),
		},
	}
}

// Validate 설정의 유효성을 검사합니다
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return &ConfigError{
			Field:   "Discord.Token",
			Message: constants.EnvDiscordToken + " is required",
		}
	}

	if c.Mode != constants.BotModeDev && c.Mode != constants.BotModeProd {
		return &ConfigError{
			Field:   "Mode",
			Message: "BOT_MODE must be one of: dev, prod (got: " + c.Mode + ")",
		}
	}

	if _, err := DatabaseDialect(c.Database.URL); err != nil {
		return &ConfigError{Field: "Database.URL", Message: err.Error()}
	}

	// 로그 레벨 검증
	validLogLevels := map[string]bool{
		constants.LogLevelDebug: true,
		constants.LogLevelInfo:  true,
		constants.LogLevelWarn:  true,
		constants.LogLevelError: true,
	}
	if !validLogLevels[strings.ToUpper(c.Logging.Level)] {
		return &ConfigError{
			Field:   "Logging.Level",
			Message: "LOG_LEVEL must be one of: DEBUG, INFO, WARN, ERROR (got: " + c.Logging.Level + ")",
		}
	}

	if c.Discord.WebhookTimeout <= 0 {
		return &ConfigError{
			Field:   "Discord.WebhookTimeout",
			Message: "WEBHOOK_TIMEOUT must be positive",
		}
	}

	if c.Discord.SolveWebhookURL != "" && !strings.Contains(c.Discord.SolveWebhookURL, "/webhooks/") {
		return &ConfigError{
			Field:   "Discord.SolveWebhookURL",
			Message: "SOLVE_WEBHOOK_URL must be a Discord webhook URL",
		}
	}

	if c.Announcements.RatePerSecond <= 0 {
		return &ConfigError{
			Field:   "Announcements.RatePerSecond",
			Message: "ANNOUNCE_RATE must be positive (got: " + strconv.Itoa(c.Announcements.RatePerSecond) + ")",
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.ProjectID == "" {
		return &ConfigError{
			Field:   "Telemetry.ProjectID",
			Message: "GOOGLE_CLOUD_PROJECT is required when telemetry is enabled",
		}
	}

	return nil
}

// IsDevelopment 개발 모드 여부를 반환합니다. 개발 모드에서는 오류 상세가 사용자에게 표시됩니다
func (c *Config) IsDevelopment() bool {
	return c.Mode == constants.BotModeDev
}

// IsDebugMode 디버그 모드 여부를 반환합니다
func (c *Config) IsDebugMode() bool {
	return c.Logging.DebugMode || strings.ToUpper(c.Logging.Level) == constants.LogLevelDebug
}

// Dialect 데이터베이스 종류
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// DatabaseDialect DATABASE_URL 의 스킴으로 데이터베이스 종류를 판별합니다
func DatabaseDialect(url string) (Dialect, error) {
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		if strings.TrimPrefix(url, "sqlite://") == "" {
			return "", errors.New("sqlite DATABASE_URL needs a file path")
		}
		return DialectSQLite, nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DialectPostgres, nil
	case strings.HasPrefix(url, "mysql://"):
		return DialectMySQL, nil
	}
	return "", errors.New("DATABASE_URL must start with sqlite://, postgres:// or mysql://")
}

// ConfigError 설정 관련 오류를 나타냅니다
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in " + e.Field + ": " + e.Message
}

// 헬퍼 함수들
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.ParseFloat(value, 64); err == nil {
			return time.Duration(seconds * float64(time.Second))
		}
	}
	return defaultValue
}
