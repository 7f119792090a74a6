package bot

import (
	"testing"
	"time"
)

func newTestCooldowns(now *time.Time) *CooldownManager {
	m := NewCooldownManager(map[string]time.Duration{"submit-flag": 3 * time.Second})
	m.now = func() time.Time { return *now }
	return m
}

func TestCooldownManagerAllow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := newTestCooldowns(&now)

	if ok, _ := m.Allow("submit-flag", "alice"); !ok {
		t.Fatal("첫 사용은 허용되어야 합니다")
	}

	now = now.Add(time.Second)
	ok, wait := m.Allow("submit-flag", "alice")
	if ok {
		t.Fatal("대기시간 안의 재사용은 거부되어야 합니다")
	}
	if wait <= time.Second || wait > 3*time.Second {
		t.Errorf("남은 시간 = %v, 약 2초여야 합니다", wait)
	}

	if ok, _ := m.Allow("submit-flag", "bob"); !ok {
		t.Error("다른 사용자는 영향을 받지 않아야 합니다")
	}
	if ok, _ := m.Allow("uptime", "alice"); !ok {
		t.Error("대기시간이 없는 명령어는 항상 허용되어야 합니다")
	}

	now = now.Add(2100 * time.Millisecond)
	if ok, _ := m.Allow("submit-flag", "alice"); !ok {
		t.Error("대기시간이 지나면 다시 허용되어야 합니다")
	}
}

func TestCooldownManagerRejectedAttemptDoesNotExtend(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := newTestCooldowns(&now)

	m.Allow("submit-flag", "alice")
	for i := 0; i < 5; i++ {
		now = now.Add(500 * time.Millisecond)
		m.Allow("submit-flag", "alice")
	}

	now = now.Add(600 * time.Millisecond)
	if ok, _ := m.Allow("submit-flag", "alice"); !ok {
		t.Error("거부된 시도가 대기시간을 늘려서는 안 됩니다")
	}
}

func TestCooldownManagerCleanup(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := newTestCooldowns(&now)

	m.Allow("submit-flag", "alice")
	m.Allow("submit-flag", "bob")
	if removed := m.Cleanup(); removed != 0 {
		t.Errorf("대기 중인 항목이 제거되었습니다: %d", removed)
	}

	now = now.Add(5 * time.Second)
	if removed := m.Cleanup(); removed != 2 {
		t.Errorf("Cleanup() = %d, 예상값 2", removed)
	}
}
