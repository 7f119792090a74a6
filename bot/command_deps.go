package bot

import (
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/interfaces"
	"github.com/ACUCyS/weekly-ctf-bot/lifecycle"
)

// MetricsRecorder 명령어 처리 지표 기록기
type MetricsRecorder = interfaces.MetricsRecorder

type noopMetrics struct{}

func (noopMetrics) RecordCommand(string, time.Duration, bool) {}
func (noopMetrics) RecordSubmission(bool)                     {}
func (noopMetrics) RecordAnnouncement(string, bool)           {}

// CommandDependencies 명령어 핸들러가 필요로 하는 모든 의존성을 묶어서 관리합니다
type CommandDependencies struct {
	Controller *lifecycle.Controller
	Storage    interfaces.StorageRepository
	Cooldowns  *CooldownManager
	Metrics    MetricsRecorder
	// DevMode 가 켜져 있으면 내부 오류 응답에 상세 정보를 붙입니다
	DevMode   bool
	StartedAt time.Time
}

// NewCommandDependencies 새로운 CommandDependencies 인스턴스를 생성합니다
func NewCommandDependencies(
	controller *lifecycle.Controller,
	cooldowns *CooldownManager,
	metrics MetricsRecorder,
	devMode bool,
) *CommandDependencies {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if cooldowns == nil {
		cooldowns = NewCooldownManager(nil)
	}
	return &CommandDependencies{
		Controller: controller,
		Storage:    controller.Store(),
		Cooldowns:  cooldowns,
		Metrics:    metrics,
		DevMode:    devMode,
		StartedAt:  time.Now(),
	}
}
