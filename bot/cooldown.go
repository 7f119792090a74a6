package bot

import (
	"sync"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/utils"
	"golang.org/x/time/rate"
)

// CooldownManager 명령어와 사용자별 재사용 대기시간을 관리합니다
type CooldownManager struct {
	mu        sync.Mutex
	cooldowns map[string]time.Duration
	limiters  map[string]*rate.Limiter
	now       func() time.Time
}

// NewCooldownManager 명령어별 대기시간으로 CooldownManager 를 생성합니다
func NewCooldownManager(cooldowns map[string]time.Duration) *CooldownManager {
	return &CooldownManager{
		cooldowns: cooldowns,
		limiters:  make(map[string]*rate.Limiter),
		now:       time.Now,
	}
}

// Allow 사용자가 명령어를 지금 사용할 수 있는지 확인합니다. 불가능하면 남은 시간을 반환합니다
func (m *CooldownManager) Allow(command, userID string) (bool, time.Duration) {
	cooldown, ok := m.cooldowns[command]
	if !ok || cooldown <= 0 {
		return true, 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := command + ":" + userID
	limiter, ok := m.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(cooldown), 1)
		m.limiters[key] = limiter
	}

	now := m.now()
	reservation := limiter.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Cleanup 대기시간이 모두 끝난 항목을 제거합니다
func (m *CooldownManager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, limiter := range m.limiters {
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			delete(m.limiters, key)
			removed++
		}
	}
	if removed > 0 {
		utils.Debug("Removed %d idle cooldown entries", removed)
	}
	return removed
}

// StartCleanupWorker interval 마다 Cleanup 을 실행합니다. 반환된 함수로 중지합니다
func (m *CooldownManager) StartCleanupWorker(interval time.Duration) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Cleanup()
			case <-stop:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }
}
