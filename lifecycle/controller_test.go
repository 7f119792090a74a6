package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/errors"
	"github.com/ACUCyS/weekly-ctf-bot/models"
	"github.com/ACUCyS/weekly-ctf-bot/scheduler"
	"github.com/ACUCyS/weekly-ctf-bot/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Unix(1_700_000_000, 0).UTC()

type closeAnnouncement struct {
	challengeID uint
	solvers     []string
}

type fakeAnnouncer struct {
	mu     sync.Mutex
	opened chan uint
	closed chan closeAnnouncement
	solved []string
	err    error
}

func newFakeAnnouncer() *fakeAnnouncer {
	return &fakeAnnouncer{
		opened: make(chan uint, 10),
		closed: make(chan closeAnnouncement, 10),
	}
}

func (a *fakeAnnouncer) AnnounceOpen(_ context.Context, c *models.Challenge) error {
	a.opened <- c.ID
	return a.err
}

func (a *fakeAnnouncer) AnnounceClose(_ context.Context, c *models.Challenge, solvers []models.Submission) error {
	ids := make([]string, 0, len(solvers))
	for _, s := range solvers {
		ids = append(ids, s.UserID)
	}
	a.closed <- closeAnnouncement{challengeID: c.ID, solvers: ids}
	return a.err
}

func (a *fakeAnnouncer) AnnounceSolve(_ context.Context, c *models.Challenge, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.solved = append(a.solved, userID)
	return a.err
}

func (a *fakeAnnouncer) solveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.solved)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store      *storage.InMemoryStorage
	announcer  *fakeAnnouncer
	clock      *testClock
	controller *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: baseTime}
	store := storage.NewInMemoryStorage()
	store.SetClock(clock.Now)
	announcer := newFakeAnnouncer()
	controller := NewController(store, announcer, WithClock(clock.Now))
	t.Cleanup(func() { controller.Stop(context.Background()) })
	return &fixture{store: store, announcer: announcer, clock: clock, controller: controller}
}

func (f *fixture) create(t *testing.T, name string) *models.Challenge {
	t.Helper()
	c, err := f.controller.CreateChallenge(context.Background(), CreateRequest{
		GuildID:     "guild",
		Name:        name,
		Description: "desc",
		Flag:        "Flag{x}",
	})
	require.NoError(t, err)
	return c
}

// waitAnnouncements 백그라운드 솔브 공지가 모두 끝날 때까지 기다립니다
func (f *fixture) waitAnnouncements() {
	f.controller.announcements.Wait()
}

func unixString(t time.Time) string {
	return fmt.Sprintf("%.3f", float64(t.UnixMilli())/1000)
}

func pendingCounts(c *Controller) (int, int) {
	return c.Scheduler().Counts()
}

func TestCreateChallengeDefaults(t *testing.T) {
	f := newFixture(t)

	c, err := f.controller.CreateChallenge(context.Background(), CreateRequest{
		GuildID:     "guild",
		Name:        "  Warmup ",
		Description: "first one",
		Flag:        "flag{hi}",
		Files:       "notes.txt https://example.com/notes.txt",
	})
	require.NoError(t, err)

	assert.Equal(t, "Warmup", c.Name)
	assert.False(t, c.Visible, "새 챌린지는 숨김 상태여야 합니다")
	assert.Equal(t, baseTime.UnixMilli(), c.Start.Millis())
	assert.Equal(t, baseTime.Add(7*24*time.Hour).UnixMilli(), c.Finish.Millis())
	assert.Equal(t, models.FileList{{Name: "notes.txt", URL: "https://example.com/notes.txt"}}, c.Files)

	start, finish := pendingCounts(f.controller)
	assert.Zero(t, start)
	assert.Zero(t, finish)
}

func TestCreateChallengeValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  CreateRequest
		code string
	}{
		{"짧은 이름", CreateRequest{Name: "ab", Flag: "flag"}, "INVALID_NAME"},
		{"짧은 플래그", CreateRequest{Name: "valid", Flag: "f"}, "INVALID_FLAG"},
		{"긴 URL", CreateRequest{Name: "valid", Flag: "flag", URL: string(make([]byte, 65))}, "INVALID_URL"},
		{"잘못된 파일", CreateRequest{Name: "valid", Flag: "flag", Files: "onlyname"}, "INVALID_FILES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.controller.CreateChallenge(context.Background(), tt.req)
			appErr, ok := errors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, errors.TypeValidation, appErr.Type)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestCreateChallengeDuplicateName(t *testing.T) {
	f := newFixture(t)
	f.create(t, "Warmup")

	_, err := f.controller.CreateChallenge(context.Background(), CreateRequest{
		GuildID: "guild", Name: "WARMUP", Flag: "flag",
	})
	assert.True(t, errors.IsDuplicate(err))
}

func TestEditChallengeContentLeavesTimers(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")
	_, err := f.controller.EditChallengeStatus(context.Background(), StatusRequest{
		ID: c.ID, Start: unixString(baseTime.Add(time.Hour)), Finish: unixString(baseTime.Add(2 * time.Hour)),
	})
	require.NoError(t, err)

	edited, err := f.controller.EditChallengeContent(context.Background(), EditRequest{
		ID: c.ID, Name: "Renamed", Description: "new", Flag: "flag{new}",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", edited.Name)
	assert.Equal(t, "flag{new}", edited.Flag)

	fireAt, ok := f.controller.Scheduler().IsPending(scheduler.StartEvent, c.ID)
	assert.True(t, ok)
	assert.Equal(t, baseTime.Add(time.Hour), fireAt)

	_, err = f.controller.EditChallengeContent(context.Background(), EditRequest{ID: 999, Name: "Missing", Flag: "flag"})
	assert.True(t, errors.IsNotFound(err))
}

func TestEditChallengeStatusScheduling(t *testing.T) {
	tests := []struct {
		name         string
		start        time.Duration
		finish       time.Duration
		hidden       bool
		wantStart    bool
		wantFinish   bool
		wantFinishAt time.Duration
	}{
		{"미래 시작", time.Hour, 2 * time.Hour, false, true, false, 0},
		{"진행 중", -time.Hour, time.Hour, false, false, true, time.Hour},
		{"이미 종료", -2 * time.Hour, -time.Hour, false, false, false, 0},
		{"숨김", time.Hour, 2 * time.Hour, true, false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := f.create(t, "Warmup")

			updated, err := f.controller.EditChallengeStatus(context.Background(), StatusRequest{
				ID:     c.ID,
				Start:  unixString(baseTime.Add(tt.start)),
				Finish: unixString(baseTime.Add(tt.finish)),
				Hidden: tt.hidden,
			})
			require.NoError(t, err)
			assert.Equal(t, !tt.hidden, updated.Visible)

			_, hasStart := f.controller.Scheduler().IsPending(scheduler.StartEvent, c.ID)
			finishAt, hasFinish := f.controller.Scheduler().IsPending(scheduler.FinishEvent, c.ID)
			assert.Equal(t, tt.wantStart, hasStart)
			assert.Equal(t, tt.wantFinish, hasFinish)
			if tt.wantFinish {
				assert.Equal(t, baseTime.Add(tt.wantFinishAt), finishAt)
			}
		})
	}
}

func TestEditChallengeStatusBlankStartMeansNow(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")

	updated, err := f.controller.EditChallengeStatus(context.Background(), StatusRequest{
		ID: c.ID, Start: "", Finish: unixString(baseTime.Add(time.Hour)),
	})
	require.NoError(t, err)
	assert.Equal(t, baseTime.UnixMilli(), updated.Start.Millis())

	_, hasFinish := f.controller.Scheduler().IsPending(scheduler.FinishEvent, c.ID)
	assert.True(t, hasFinish)
}

func TestEditChallengeStatusInvalidTimestampMutatesNothing(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")

	for _, req := range []StatusRequest{
		{ID: c.ID, Start: "tomorrow", Finish: unixString(baseTime.Add(time.Hour))},
		{ID: c.ID, Start: unixString(baseTime.Add(time.Hour)), Finish: "NaN"},
		{ID: c.ID, Start: unixString(baseTime.Add(time.Hour)), Finish: ""},
	} {
		_, err := f.controller.EditChallengeStatus(context.Background(), req)
		appErr, ok := errors.AsAppError(err)
		require.True(t, ok, "잘못된 시각은 검증 오류여야 합니다: %+v", req)
		assert.Equal(t, "INVALID_TIMESTAMP", appErr.Code)
	}

	stored, err := f.store.GetChallenge(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Start.Millis(), stored.Start.Millis())
	assert.Equal(t, c.Finish.Millis(), stored.Finish.Millis())
	assert.False(t, stored.Visible)

	start, finish := pendingCounts(f.controller)
	assert.Zero(t, start)
	assert.Zero(t, finish)
}

func TestEditChallengeStatusTwiceKeepsOneTimer(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")

	for _, offset := range []time.Duration{time.Hour, 3 * time.Hour} {
		_, err := f.controller.EditChallengeStatus(context.Background(), StatusRequest{
			ID: c.ID, Start: unixString(baseTime.Add(offset)), Finish: unixString(baseTime.Add(offset + time.Hour)),
		})
		require.NoError(t, err)
	}

	pending := f.controller.Scheduler().Pending(scheduler.StartEvent)
	require.Len(t, pending, 1)
	assert.Equal(t, baseTime.Add(3*time.Hour), pending[0].FireAt)

	_, err := f.controller.EditChallengeStatus(context.Background(), StatusRequest{
		ID: c.ID, Start: unixString(baseTime.Add(time.Hour)), Finish: unixString(baseTime.Add(2 * time.Hour)), Hidden: true,
	})
	require.NoError(t, err)
	start, finish := pendingCounts(f.controller)
	assert.Zero(t, start, "숨김으로 바꾸면 예약이 남지 않아야 합니다")
	assert.Zero(t, finish)
}

func TestDeleteChallengeCancelsTimers(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")
	_, err := f.controller.EditChallengeStatus(context.Background(), StatusRequest{
		ID: c.ID, Start: unixString(baseTime.Add(time.Hour)), Finish: unixString(baseTime.Add(2 * time.Hour)),
	})
	require.NoError(t, err)
	// 종료 이벤트도 함께 걸어둡니다
	f.controller.Scheduler().Schedule(scheduler.FinishEvent, c.ID, baseTime.Add(2*time.Hour))

	_, err = f.controller.SubmitFlag(context.Background(), c.ID, "user", "wrong")
	require.NoError(t, err)

	deleted, err := f.controller.DeleteChallenge(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, deleted.ID)

	_, hasStart := f.controller.Scheduler().IsPending(scheduler.StartEvent, c.ID)
	_, hasFinish := f.controller.Scheduler().IsPending(scheduler.FinishEvent, c.ID)
	assert.False(t, hasStart)
	assert.False(t, hasFinish)

	// 제출 기록은 남습니다
	subs, err := f.store.GetSubmissions(context.Background(), c.ID, "")
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	_, err = f.controller.DeleteChallenge(context.Background(), c.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestDeleteChallengeConfirmed(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")

	_, err := f.controller.DeleteChallengeConfirmed(context.Background(), c.ID, "warm")
	assert.True(t, errors.IsValidation(err))

	_, err = f.controller.DeleteChallengeConfirmed(context.Background(), c.ID, " warmup ")
	require.NoError(t, err)
	_, err = f.store.GetChallenge(context.Background(), c.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestToggleHiddenLeavesTimers(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")
	_, err := f.controller.EditChallengeStatus(context.Background(), StatusRequest{
		ID: c.ID, Start: unixString(baseTime.Add(time.Hour)), Finish: unixString(baseTime.Add(2 * time.Hour)),
	})
	require.NoError(t, err)

	toggled, err := f.controller.ToggleHidden(context.Background(), c.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Visible)

	_, hasStart := f.controller.Scheduler().IsPending(scheduler.StartEvent, c.ID)
	assert.True(t, hasStart, "숨김 토글은 예약을 건드리지 않습니다")

	toggled, err = f.controller.ToggleHidden(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Visible)
}

func TestStartEventOpensAndSchedulesFinish(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")

	// 고정된 시계 기준으로 50ms 뒤 시작, 1000초 뒤 종료
	_, err := f.controller.EditChallengeStatus(context.Background(), StatusRequest{
		ID:     c.ID,
		Start:  unixString(baseTime.Add(50 * time.Millisecond)),
		Finish: unixString(baseTime.Add(1000 * time.Second)),
	})
	require.NoError(t, err)

	select {
	case id := <-f.announcer.opened:
		assert.Equal(t, c.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("시작 공지가 전송되지 않았습니다")
	}

	require.Eventually(t, func() bool {
		_, ok := f.controller.Scheduler().IsPending(scheduler.FinishEvent, c.ID)
		return ok
	}, time.Second, 5*time.Millisecond)

	finishAt, _ := f.controller.Scheduler().IsPending(scheduler.FinishEvent, c.ID)
	assert.Equal(t, baseTime.Add(1000*time.Second), finishAt)
	_, hasStart := f.controller.Scheduler().IsPending(scheduler.StartEvent, c.ID)
	assert.False(t, hasStart)

	select {
	case <-f.announcer.opened:
		t.Fatal("시작 공지는 한 번만 전송되어야 합니다")
	case <-time.After(50 * time.Millisecond):
	}
}

// stallingStore armed 상태에서 처음 읽은 챌린지를 release 가 닫힐 때까지 붙잡아 둡니다
type stallingStore struct {
	*storage.InMemoryStorage
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (s *stallingStore) GetChallenge(ctx context.Context, id uint) (*models.Challenge, error) {
	challenge, err := s.InMemoryStorage.GetChallenge(ctx, id)
	if s.armed.CompareAndSwap(true, false) {
		close(s.entered)
		<-s.release
	}
	return challenge, err
}

func TestHidingWhileStartEventFiresSkipsOpen(t *testing.T) {
	clock := &testClock{now: baseTime}
	store := &stallingStore{
		InMemoryStorage: storage.NewInMemoryStorage(),
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	store.SetClock(clock.Now)
	announcer := newFakeAnnouncer()
	controller := NewController(store, announcer, WithClock(clock.Now))
	defer controller.Stop(context.Background())
	ctx := context.Background()

	c, err := controller.CreateChallenge(ctx, CreateRequest{GuildID: "guild", Name: "Warmup", Flag: "flag{x}"})
	require.NoError(t, err)

	store.armed.Store(true)
	schedule := StatusRequest{
		ID:     c.ID,
		Start:  unixString(baseTime.Add(20 * time.Millisecond)),
		Finish: unixString(baseTime.Add(time.Hour)),
	}
	_, err = controller.EditChallengeStatus(ctx, schedule)
	require.NoError(t, err)

	select {
	case <-store.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("시작 이벤트가 실행되지 않았습니다")
	}

	// 시작 이벤트가 공개 상태의 챌린지를 읽은 뒤 숨깁니다
	schedule.Hidden = true
	_, err = controller.EditChallengeStatus(ctx, schedule)
	require.NoError(t, err)
	close(store.release)

	select {
	case <-announcer.opened:
		t.Fatal("숨긴 챌린지의 시작 공지가 전송되었습니다")
	case <-time.After(200 * time.Millisecond):
	}
	start, finish := pendingCounts(controller)
	assert.Zero(t, start)
	assert.Zero(t, finish, "숨긴 챌린지의 종료 이벤트가 예약되면 안 됩니다")
}

func TestFinishEventListsSolversInSolveOrder(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")
	_, err := f.controller.EditChallengeStatus(context.Background(), StatusRequest{
		ID: c.ID, Start: unixString(baseTime), Finish: unixString(baseTime.Add(time.Hour)),
	})
	require.NoError(t, err)

	// 두 번째 사용자가 먼저(3초) 풀고 첫 번째 사용자가 나중(5초)에 풉니다
	require.NoError(t, f.store.AddSubmission(context.Background(), &models.Submission{
		ChallengeID: c.ID, UserID: "alice", Flag: "flag{x}", IsCorrect: true,
		Timestamp: models.NewUnixMillis(baseTime.Add(5 * time.Second)),
	}))
	require.NoError(t, f.store.AddSubmission(context.Background(), &models.Submission{
		ChallengeID: c.ID, UserID: "bob", Flag: "flag{x}", IsCorrect: true,
		Timestamp: models.NewUnixMillis(baseTime.Add(3 * time.Second)),
	}))
	require.NoError(t, f.store.AddSubmission(context.Background(), &models.Submission{
		ChallengeID: c.ID, UserID: "carol", Flag: "nope", IsCorrect: false,
		Timestamp: models.NewUnixMillis(baseTime.Add(time.Second)),
	}))

	f.controller.HandleEvent(context.Background(), scheduler.FinishEvent, c.ID)

	select {
	case ann := <-f.announcer.closed:
		assert.Equal(t, c.ID, ann.challengeID)
		assert.Equal(t, []string{"bob", "alice"}, ann.solvers)
	default:
		t.Fatal("종료 공지가 전송되지 않았습니다")
	}
}

func TestFinishEventWithoutSolvers(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")

	f.controller.HandleEvent(context.Background(), scheduler.FinishEvent, c.ID)
	ann := <-f.announcer.closed
	assert.Empty(t, ann.solvers)
}

func TestEventForDeletedChallengeIsSkipped(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")
	require.NoError(t, f.store.DeleteChallenge(context.Background(), c.ID))

	f.controller.HandleEvent(context.Background(), scheduler.StartEvent, c.ID)
	f.controller.HandleEvent(context.Background(), scheduler.FinishEvent, c.ID)

	assert.Empty(t, f.announcer.opened)
	assert.Empty(t, f.announcer.closed)
	start, finish := pendingCounts(f.controller)
	assert.Zero(t, start)
	assert.Zero(t, finish)
}

func TestAnnouncerFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.announcer.err = assert.AnError
	c := f.create(t, "Warmup")

	f.controller.HandleEvent(context.Background(), scheduler.StartEvent, c.ID)
	<-f.announcer.opened
	_, hasFinish := f.controller.Scheduler().IsPending(scheduler.FinishEvent, c.ID)
	assert.True(t, hasFinish, "공지 실패와 관계없이 종료 이벤트가 예약되어야 합니다")

	result, err := f.controller.SubmitFlag(context.Background(), c.ID, "user", "flag{x}")
	require.NoError(t, err)
	assert.Equal(t, SubmitCorrect, result.Outcome)
	_, err = f.store.GetSolve(context.Background(), c.ID, "user")
	assert.NoError(t, err, "공지 실패가 제출 기록을 되돌리면 안 됩니다")
}

func TestRestoreRebuildsTimers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	upcoming := f.create(t, "Upcoming")
	open := f.create(t, "Running")
	closed := f.create(t, "Finished")
	hidden := f.create(t, "Secret")

	for _, req := range []StatusRequest{
		{ID: upcoming.ID, Start: unixString(baseTime.Add(time.Hour)), Finish: unixString(baseTime.Add(2 * time.Hour))},
		{ID: open.ID, Start: unixString(baseTime.Add(-time.Hour)), Finish: unixString(baseTime.Add(time.Hour))},
		{ID: closed.ID, Start: unixString(baseTime.Add(-2 * time.Hour)), Finish: unixString(baseTime.Add(-time.Hour))},
		{ID: hidden.ID, Start: unixString(baseTime.Add(time.Hour)), Finish: unixString(baseTime.Add(2 * time.Hour)), Hidden: true},
	} {
		_, err := f.controller.EditChallengeStatus(ctx, req)
		require.NoError(t, err)
	}

	// 재시작: 메모리 상태를 버리고 저장소에서 복구합니다
	f.controller.Scheduler().Reset()
	require.NoError(t, f.controller.Restore(ctx))
	// 복구를 두 번 해도 중복 예약이 생기지 않습니다
	require.NoError(t, f.controller.Restore(ctx))

	starts := f.controller.Scheduler().Pending(scheduler.StartEvent)
	finishes := f.controller.Scheduler().Pending(scheduler.FinishEvent)
	require.Len(t, starts, 1)
	require.Len(t, finishes, 1)
	assert.Equal(t, upcoming.ID, starts[0].ChallengeID)
	assert.Equal(t, baseTime.Add(time.Hour), starts[0].FireAt)
	assert.Equal(t, open.ID, finishes[0].ChallengeID)
	assert.Equal(t, baseTime.Add(time.Hour), finishes[0].FireAt)
}

func TestCancelWithoutPendingIsNoop(t *testing.T) {
	f := newFixture(t)
	assert.NotPanics(t, func() {
		assert.False(t, f.controller.Scheduler().Cancel(scheduler.StartEvent, 42))
		f.controller.Scheduler().CancelAll(42)
	})
	start, finish := pendingCounts(f.controller)
	assert.Zero(t, start)
	assert.Zero(t, finish)
}
