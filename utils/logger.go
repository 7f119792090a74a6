package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/ACUCyS/weekly-ctf-bot/constants"
	jww "github.com/spf13/jwalterweatherman"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// Logger 는 jwalterweatherman notepad 위에 레벨 필터와 민감정보 마스킹을 얹은 로거입니다
type Logger struct {
	level   LogLevel
	notepad *jww.Notepad
}

var globalLogger *Logger

func init() {
	globalLogger = NewLogger(os.Stdout)
}

// NewLogger 환경 변수에서 로그 레벨을 읽어 로거를 생성합니다
func NewLogger(out io.Writer) *Logger {
	return newLoggerWithLevel(out, getLogLevelFromEnv())
}

func newLoggerWithLevel(out io.Writer, level LogLevel) *Logger {
	notepad := jww.NewNotepad(toThreshold(level), jww.LevelError, out, io.Discard, "", log.Ldate|log.Ltime)
	return &Logger{level: level, notepad: notepad}
}

// SetLevel 전역 로거의 레벨을 변경합니다
func SetLevel(level string) {
	globalLogger.level = ParseLogLevel(level)
	globalLogger.notepad.SetStdoutThreshold(toThreshold(globalLogger.level))
}

// ParseLogLevel 문자열 로그 레벨을 변환합니다. 알 수 없는 값은 INFO로 처리합니다
func ParseLogLevel(levelStr string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case constants.LogLevelDebug:
		return DEBUG
	case constants.LogLevelInfo:
		return INFO
	case constants.LogLevelWarn:
		return WARN
	case constants.LogLevelError:
		return ERROR
	default:
		return INFO
	}
}

func getLogLevelFromEnv() LogLevel {
	if strings.EqualFold(os.Getenv(constants.EnvDebugMode), "true") {
		return DEBUG
	}
	return ParseLogLevel(os.Getenv(constants.EnvLogLevel))
}

func toThreshold(level LogLevel) jww.Threshold {
	switch level {
	case DEBUG:
		return jww.LevelDebug
	case WARN:
		return jww.LevelWarn
	case ERROR:
		return jww.LevelError
	default:
		return jww.LevelInfo
	}
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	// 보안: 민감한 정보가 로그에 기록되지 않도록 필터링
	message := l.filterSensitiveInfo(fmt.Sprintf(format, args...))

	switch level {
	case DEBUG:
		l.notepad.DEBUG.Println(message)
	case INFO:
		l.notepad.INFO.Println(message)
	case WARN:
		l.notepad.WARN.Println(message)
	default:
		l.notepad.ERROR.Println(message)
	}
}

// filterSensitiveInfo 민감한 정보를 로그에서 마스킹합니다
func (l *Logger) filterSensitiveInfo(message string) string {
	// Discord 봇 토큰과 웹훅 토큰 패턴
	words := strings.Fields(message)
	masked := false
	for i, word := range words {
		switch {
		case strings.Contains(word, "/api/webhooks/"):
			if idx := strings.LastIndex(word, "/"); idx != -1 {
				words[i] = word[:idx+1] + "***TOKEN***"
				masked = true
			}
		case len(word) > 50 && strings.Count(word, ".") == 2:
			words[i] = "***DISCORD_TOKEN***"
			masked = true
		}
	}
	if masked {
		message = strings.Join(words, " ")
	}

	// 기본적인 키워드 기반 마스킹
	sensitiveKeywords := []string{"token", "key", "secret", "password"}
	lowerMessage := strings.ToLower(message)

	for _, keyword := range sensitiveKeywords {
		for _, sep := range []string{"=", ":", "\""} {
			idx := strings.Index(lowerMessage, keyword+sep)
			if idx == -1 {
				continue
			}
			message = message[:idx+len(keyword)+len(sep)] + "***MASKED***"
			lowerMessage = strings.ToLower(message)
			break
		}
	}

	return message
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

// 글로벌 로거 함수들
func Debug(format string, args ...interface{}) {
	globalLogger.Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	globalLogger.Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	globalLogger.Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	globalLogger.Error(format, args...)
}
