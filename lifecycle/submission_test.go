package lifecycle

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/ACUCyS/weekly-ctf-bot/errors"
	"github.com/ACUCyS/weekly-ctf-bot/models"
	"github.com/ACUCyS/weekly-ctf-bot/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitFlagCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")

	tests := []struct {
		user string
		flag string
	}{
		{"upper", "FLAG{X}"},
		{"lower", "flag{x}"},
		{"exact", "Flag{x}"},
		{"padded", "  flag{X}  "},
	}

	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			result, err := f.controller.SubmitFlag(context.Background(), c.ID, tt.user, tt.flag)
			require.NoError(t, err)
			assert.Equal(t, SubmitCorrect, result.Outcome, "%q 는 정답이어야 합니다", tt.flag)
			assert.True(t, result.Submission.IsCorrect)
		})
	}
	f.waitAnnouncements()
	assert.Equal(t, len(tests), f.announcer.solveCount())
}

func TestSubmitFlagIncorrectIsRecorded(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")

	result, err := f.controller.SubmitFlag(context.Background(), c.ID, "user", "flag{y}")
	require.NoError(t, err)
	assert.Equal(t, SubmitIncorrect, result.Outcome)
	assert.Equal(t, baseTime.UnixMilli(), result.Submission.Timestamp.Millis())

	subs, err := f.store.GetSubmissions(context.Background(), c.ID, "user")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.False(t, subs[0].IsCorrect)
	assert.Equal(t, "flag{y}", subs[0].Flag)
	f.waitAnnouncements()
	assert.Zero(t, f.announcer.solveCount())
}

func TestSubmitFlagAlreadySolvedWritesNothing(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")
	ctx := context.Background()

	first, err := f.controller.SubmitFlag(ctx, c.ID, "user", "flag{x}")
	require.NoError(t, err)
	require.Equal(t, SubmitCorrect, first.Outcome)

	for _, flag := range []string{"flag{x}", "wrong", "FLAG{X}"} {
		result, err := f.controller.SubmitFlag(ctx, c.ID, "user", flag)
		require.NoError(t, err)
		assert.Equal(t, SubmitAlreadySolved, result.Outcome)
		assert.Equal(t, first.Submission.ID, result.Submission.ID)
	}

	subs, err := f.store.GetSubmissions(ctx, c.ID, "user")
	require.NoError(t, err)
	assert.Len(t, subs, 1, "이미 푼 뒤에는 기록이 추가되지 않아야 합니다")
	f.waitAnnouncements()
	assert.Equal(t, 1, f.announcer.solveCount())
}

func TestSubmitFlagErrors(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")

	_, err := f.controller.SubmitFlag(context.Background(), c.ID, "user", "   ")
	assert.True(t, errors.IsValidation(err), "빈 플래그는 검증 오류여야 합니다")

	_, err = f.controller.SubmitFlag(context.Background(), 999, "user", "flag")
	assert.True(t, errors.IsNotFound(err))

	subs, err := f.store.GetSubmissions(context.Background(), c.ID, "")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

// blockingAnnouncer release 가 닫힐 때까지 솔브 공지를 붙잡아 둡니다
type blockingAnnouncer struct {
	*fakeAnnouncer
	release chan struct{}
}

func (a *blockingAnnouncer) AnnounceSolve(ctx context.Context, c *models.Challenge, userID string) error {
	<-a.release
	return a.fakeAnnouncer.AnnounceSolve(ctx, c, userID)
}

func TestSubmitFlagDoesNotWaitForSolveAnnouncement(t *testing.T) {
	announcer := &blockingAnnouncer{fakeAnnouncer: newFakeAnnouncer(), release: make(chan struct{})}
	controller := NewController(storage.NewInMemoryStorage(), announcer)
	defer controller.Stop(context.Background())

	c, err := controller.CreateChallenge(context.Background(), CreateRequest{
		GuildID: "guild", Name: "Warmup", Flag: "flag{x}",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *SubmitResult, 1)
	go func() {
		result, err := controller.SubmitFlag(ctx, c.ID, "user", "flag{x}")
		assert.NoError(t, err)
		done <- result
	}()

	select {
	case result := <-done:
		assert.Equal(t, SubmitCorrect, result.Outcome)
	case <-time.After(time.Second):
		close(announcer.release)
		t.Fatal("제출 응답이 솔브 공지를 기다렸습니다")
	}

	// 요청이 끝나 컨텍스트가 취소되어도 공지는 계속됩니다
	cancel()
	assert.Zero(t, announcer.solveCount())
	close(announcer.release)
	controller.announcements.Wait()
	assert.Equal(t, 1, announcer.solveCount())
}

func TestSubmitFlagTruncatesByCharacter(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")

	flag := "a" + strings.Repeat("한", 300)
	result, err := f.controller.SubmitFlag(context.Background(), c.ID, "user", flag)
	require.NoError(t, err)
	assert.Equal(t, SubmitIncorrect, result.Outcome)

	subs, err := f.store.GetSubmissions(context.Background(), c.ID, "user")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	stored := subs[0].Flag
	assert.True(t, utf8.ValidString(stored), "저장된 플래그는 올바른 UTF-8 이어야 합니다")
	assert.Equal(t, 255, utf8.RuneCountInString(stored))
	assert.True(t, strings.HasPrefix(stored, "a한한"))
}

// gatedStore 두 요청이 모두 GetSolve 를 통과할 때까지 붙잡아 둡니다
type gatedStore struct {
	*storage.InMemoryStorage
	gate sync.WaitGroup
}

func (s *gatedStore) GetSolve(ctx context.Context, challengeID uint, userID string) (*models.Submission, error) {
	solve, err := s.InMemoryStorage.GetSolve(ctx, challengeID, userID)
	s.gate.Done()
	s.gate.Wait()
	return solve, err
}

func TestConcurrentCorrectSubmissionsAreNotSerialized(t *testing.T) {
	store := &gatedStore{InMemoryStorage: storage.NewInMemoryStorage()}
	store.gate.Add(2)
	announcer := newFakeAnnouncer()
	controller := NewController(store, announcer)
	defer controller.Stop(context.Background())

	c, err := controller.CreateChallenge(context.Background(), CreateRequest{
		GuildID: "guild", Name: "Warmup", Flag: "flag{x}",
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	outcomes := make([]SubmitOutcome, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := controller.SubmitFlag(context.Background(), c.ID, "user", "flag{x}")
			if assert.NoError(t, err) {
				outcomes[i] = result.Outcome
			}
		}(i)
	}
	wg.Wait()

	// 이미 푼 여부 확인은 직렬화되지 않으므로 두 정답이 모두 기록됩니다
	assert.Equal(t, []SubmitOutcome{SubmitCorrect, SubmitCorrect}, outcomes)
	subs, err := store.GetSubmissions(context.Background(), c.ID, "user")
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	// 종료 공지에는 사용자당 한 번만 나타납니다
	assert.Len(t, models.FirstSolves(subs), 1)
}

func TestListSubmissionsGroupsByUser(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")
	ctx := context.Background()

	for _, s := range []struct{ user, flag string }{
		{"alice", "nope"},
		{"bob", "flag{x}"},
		{"alice", "flag{x}"},
		{"carol", "nope"},
	} {
		_, err := f.controller.SubmitFlag(ctx, c.ID, s.user, s.flag)
		require.NoError(t, err)
	}

	challenge, groups, err := f.controller.ListSubmissions(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, challenge.ID)
	require.Len(t, groups, 3)

	assert.Equal(t, "alice", groups[0].UserID)
	assert.Len(t, groups[0].Submissions, 2)
	assert.True(t, groups[0].Solved)
	assert.Equal(t, "bob", groups[1].UserID)
	assert.True(t, groups[1].Solved)
	assert.Equal(t, "carol", groups[2].UserID)
	assert.False(t, groups[2].Solved)

	userSubs, err := f.controller.UserSubmissions(ctx, c.ID, "alice")
	require.NoError(t, err)
	assert.Len(t, userSubs, 2)

	_, _, err = f.controller.ListSubmissions(ctx, 999)
	assert.True(t, errors.IsNotFound(err))
}

func TestDeleteSubmission(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Warmup")
	ctx := context.Background()

	result, err := f.controller.SubmitFlag(ctx, c.ID, "user", "flag{x}")
	require.NoError(t, err)

	other := f.create(t, "Other")
	err = f.controller.DeleteSubmission(ctx, other.ID, result.Submission.ID)
	assert.True(t, errors.IsNotFound(err), "다른 챌린지의 제출 기록은 지울 수 없어야 합니다")

	require.NoError(t, f.controller.DeleteSubmission(ctx, c.ID, result.Submission.ID))
	err = f.controller.DeleteSubmission(ctx, c.ID, result.Submission.ID)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "SUBMISSION_NOT_FOUND", appErr.Code)

	// 정답 기록을 지우면 다시 제출할 수 있습니다
	again, err := f.controller.SubmitFlag(ctx, c.ID, "user", "flag{x}")
	require.NoError(t, err)
	assert.Equal(t, SubmitCorrect, again.Outcome)
}
