package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/utils"
)

// Kind 예약 이벤트 종류
type Kind int

const (
	// StartEvent 챌린지 시작 공지
	StartEvent Kind = iota
	// FinishEvent 챌린지 종료 공지
	FinishEvent
)

func (k Kind) String() string {
	switch k {
	case StartEvent:
		return "start"
	case FinishEvent:
		return "finish"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Handler 예약 시각이 된 이벤트를 처리합니다
type Handler interface {
	HandleEvent(ctx context.Context, kind Kind, challengeID uint)
}

// HandlerFunc 함수를 Handler 로 사용합니다
type HandlerFunc func(ctx context.Context, kind Kind, challengeID uint)

func (f HandlerFunc) HandleEvent(ctx context.Context, kind Kind, challengeID uint) {
	f(ctx, kind, challengeID)
}

// PendingEvent 대기 중인 이벤트 정보
type PendingEvent struct {
	Kind        Kind
	ChallengeID uint
	FireAt      time.Time
}

type event struct {
	kind   Kind
	id     uint
	fireAt time.Time
	gen    uint64 // 실행 직전 기록한 챌린지 세대
	cancel chan struct{}
}

type firingKey struct{}

// firing 실행 중인 이벤트가 예약될 때의 챌린지 세대
type firing struct {
	id  uint
	gen uint64
}

// Scheduler 챌린지별 시작/종료 이벤트를 하나씩만 유지하는 지연 실행기입니다.
// 두 대기 맵은 mu 로 보호되며, 실행 직전 자기 항목을 맵에서 제거한 이벤트만 핸들러를 호출합니다.
// 따라서 취소되었거나 덮어쓰인 이벤트는 절대 실행되지 않습니다.
//
// 취소는 챌린지의 세대를 올립니다. 이미 실행 중인 핸들러는 ScheduleIfCurrent 와 IsCurrent 로
// 실행 이후 취소가 있었는지 확인할 수 있습니다.
type Scheduler struct {
	mu       sync.Mutex
	pending  map[Kind]map[uint]*event
	gens     map[uint]uint64
	handler  Handler
	now      func() time.Time
	stopChan chan struct{}
	stopped  bool
	wg       sync.WaitGroup

	ctx       context.Context
	cancelCtx context.CancelFunc
}

// Option 스케줄러 옵션
type Option func(*Scheduler)

// WithClock 지연 시간 계산에 사용할 시계를 지정합니다
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New 새로운 스케줄러를 생성합니다
func New(handler Handler, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		pending: map[Kind]map[uint]*event{
			StartEvent:  make(map[uint]*event),
			FinishEvent: make(map[uint]*event),
		},
		gens:      make(map[uint]uint64),
		handler:   handler,
		now:       time.Now,
		stopChan:  make(chan struct{}),
		ctx:       ctx,
		cancelCtx: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule fireAt 에 이벤트를 예약합니다. 같은 종류와 챌린지의 기존 예약은 대체됩니다.
// 이미 지난 시각이면 즉시 실행됩니다.
func (s *Scheduler) Schedule(kind Kind, challengeID uint, fireAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked(kind, challengeID, fireAt)
}

// ScheduleIfCurrent 핸들러 안에서 후속 이벤트를 예약합니다. 이 핸들러의 이벤트가 실행된 뒤
// 챌린지 이벤트가 취소되었다면 예약하지 않고 false 를 반환합니다.
func (s *Scheduler) ScheduleIfCurrent(ctx context.Context, kind Kind, challengeID uint, fireAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(ctx, challengeID) {
		utils.Debug("Challenge %d changed while its event was firing, not scheduling %s event", challengeID, kind)
		return false
	}
	return s.scheduleLocked(kind, challengeID, fireAt)
}

// IsCurrent 핸들러의 이벤트가 실행된 뒤 챌린지 이벤트가 취소되지 않았으면 true 입니다.
// 스케줄러가 실행한 컨텍스트가 아니면 항상 true 입니다.
func (s *Scheduler) IsCurrent(ctx context.Context, challengeID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked(ctx, challengeID)
}

func (s *Scheduler) currentLocked(ctx context.Context, challengeID uint) bool {
	f, ok := ctx.Value(firingKey{}).(firing)
	if !ok || f.id != challengeID {
		return true
	}
	return !s.stopped && s.gens[challengeID] == f.gen
}

func (s *Scheduler) scheduleLocked(kind Kind, challengeID uint, fireAt time.Time) bool {
	if s.stopped {
		utils.Warn("Scheduler stopped, dropping %s event for challenge %d", kind, challengeID)
		return false
	}

	if old, ok := s.pending[kind][challengeID]; ok {
		close(old.cancel)
	}

	ev := &event{kind: kind, id: challengeID, fireAt: fireAt, cancel: make(chan struct{})}
	s.pending[kind][challengeID] = ev

	delay := fireAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	s.wg.Add(1)
	go s.wait(ev, delay)
	utils.Debug("Scheduled %s event for challenge %d in %v", kind, challengeID, delay)
	return true
}

func (s *Scheduler) wait(ev *event, delay time.Duration) {
	defer s.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ev.cancel:
		return
	case <-s.stopChan:
		return
	}

	if !s.claim(ev) {
		return
	}
	s.fire(ev)
}

// claim 이벤트가 아직 유효하면 맵에서 제거하고 true 를 반환합니다
func (s *Scheduler) claim(ev *event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	current, ok := s.pending[ev.kind][ev.id]
	if !ok || current != ev {
		return false
	}
	delete(s.pending[ev.kind], ev.id)
	ev.gen = s.gens[ev.id]
	return true
}

func (s *Scheduler) fire(ev *event) {
	defer func() {
		if r := recover(); r != nil {
			utils.Error("Panic in %s event for challenge %d: %v\n%s", ev.kind, ev.id, r, debug.Stack())
		}
	}()

	utils.Info("Firing %s event for challenge %d", ev.kind, ev.id)
	ctx := context.WithValue(s.ctx, firingKey{}, firing{id: ev.id, gen: ev.gen})
	s.handler.HandleEvent(ctx, ev.kind, ev.id)
}

// Cancel 대기 중인 이벤트를 취소합니다. 취소한 이벤트가 있었으면 true 입니다.
// 대기 중인 이벤트가 없어도 챌린지의 세대는 올라갑니다.
func (s *Scheduler) Cancel(kind Kind, challengeID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gens[challengeID]++
	ev, ok := s.pending[kind][challengeID]
	if !ok {
		return false
	}
	close(ev.cancel)
	delete(s.pending[kind], challengeID)
	utils.Debug("Cancelled %s event for challenge %d", kind, challengeID)
	return true
}

// CancelAll 챌린지의 시작/종료 이벤트를 모두 취소합니다
func (s *Scheduler) CancelAll(challengeID uint) {
	s.Cancel(StartEvent, challengeID)
	s.Cancel(FinishEvent, challengeID)
}

// IsPending 대기 중인 이벤트의 예약 시각을 반환합니다
func (s *Scheduler) IsPending(kind Kind, challengeID uint) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.pending[kind][challengeID]
	if !ok {
		return time.Time{}, false
	}
	return ev.fireAt, true
}

// Pending 대기 중인 이벤트를 예약 시각 순으로 반환합니다
func (s *Scheduler) Pending(kind Kind) []PendingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]PendingEvent, 0, len(s.pending[kind]))
	for id, ev := range s.pending[kind] {
		events = append(events, PendingEvent{Kind: kind, ChallengeID: id, FireAt: ev.fireAt})
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].FireAt.Equal(events[j].FireAt) {
			return events[i].FireAt.Before(events[j].FireAt)
		}
		return events[i].ChallengeID < events[j].ChallengeID
	})
	return events
}

// Counts 종류별 대기 이벤트 수를 반환합니다
func (s *Scheduler) Counts() (start, finish int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending[StartEvent]), len(s.pending[FinishEvent])
}

// Reset 모든 대기 이벤트를 버립니다. 스케줄러는 계속 사용할 수 있습니다
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for kind, events := range s.pending {
		for id, ev := range events {
			close(ev.cancel)
			delete(events, id)
		}
		utils.Debug("Dropped all pending %s events", kind)
	}
}

// Stop 새 예약을 막고 대기 이벤트를 버린 뒤 실행 중인 핸들러를 기다립니다.
// ctx 가 먼저 끝나면 핸들러 컨텍스트를 취소합니다.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopChan)
	for _, events := range s.pending {
		for id := range events {
			delete(events, id)
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		utils.Warn("Scheduler stop timed out, cancelling in-flight events")
		s.cancelCtx()
		<-done
	}
	s.cancelCtx()
	utils.Info("Event scheduler stopped")
}
