package lifecycle

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/ACUCyS/weekly-ctf-bot/errors"
	"github.com/ACUCyS/weekly-ctf-bot/models"
	"github.com/ACUCyS/weekly-ctf-bot/storage"
	"github.com/ACUCyS/weekly-ctf-bot/utils"
)

// SubmitOutcome 플래그 제출 결과
type SubmitOutcome int

const (
	SubmitIncorrect SubmitOutcome = iota
	SubmitCorrect
	SubmitAlreadySolved
)

func (o SubmitOutcome) String() string {
	switch o {
	case SubmitCorrect:
		return "correct"
	case SubmitAlreadySolved:
		return "already_solved"
	default:
		return "incorrect"
	}
}

// SubmitResult 제출 결과와 저장된 기록. 이미 푼 경우 Submission 은 기존 정답 기록입니다
type SubmitResult struct {
	Outcome    SubmitOutcome
	Challenge  *models.Challenge
	Submission *models.Submission
}

// SubmitFlag 플래그를 채점하고 기록합니다. 이미 푼 사용자는 기록 없이 AlreadySolved 를 받습니다.
// 정답이면 솔브 공지를 백그라운드로 보내며 공지 결과를 기다리지 않습니다.
func (c *Controller) SubmitFlag(ctx context.Context, challengeID uint, userID, flag string) (*SubmitResult, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return nil, validationError("EMPTY_FLAG", "empty flag")
	}
	flag = utils.TruncateRunes(flag, constants.MaxSubmittedFlagLength)

	challenge, err := c.store.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, c.storeError(err, "submit flag")
	}

	solve, err := c.store.GetSolve(ctx, challengeID, userID)
	switch {
	case err == nil:
		return &SubmitResult{Outcome: SubmitAlreadySolved, Challenge: challenge, Submission: solve}, nil
	case !stderrors.Is(err, storage.ErrNotFound):
		return nil, errors.NewSystemError("STORAGE_ERROR", "lookup solve", err)
	}

	submission := &models.Submission{
		ChallengeID: challengeID,
		UserID:      userID,
		Flag:        flag,
		Timestamp:   models.NewUnixMillis(c.now()),
		IsCorrect:   challenge.CheckFlag(flag),
	}
	if err := c.store.AddSubmission(ctx, submission); err != nil {
		return nil, errors.NewSystemError("STORAGE_ERROR", "record submission", err)
	}

	if !submission.IsCorrect {
		utils.Debug("User %s submitted an incorrect flag for challenge %d", userID, challengeID)
		return &SubmitResult{Outcome: SubmitIncorrect, Challenge: challenge, Submission: submission}, nil
	}

	utils.Info("User %s solved challenge %d", userID, challengeID)
	c.announceSolve(ctx, challenge, userID)
	return &SubmitResult{Outcome: SubmitCorrect, Challenge: challenge, Submission: submission}, nil
}

// announceSolve 솔브 공지를 백그라운드에서 보냅니다. 요청 컨텍스트가 끝나도 공지는 계속됩니다
func (c *Controller) announceSolve(ctx context.Context, challenge *models.Challenge, userID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.SolveAnnounceTimeout)
	c.announcements.Add(1)
	go func() {
		defer c.announcements.Done()
		defer cancel()
		if err := c.announcer.AnnounceSolve(ctx, challenge, userID); err != nil {
			utils.Warn("Failed to announce solve of challenge %d by %s: %v", challenge.ID, userID, err)
		}
	}()
}

// ListSubmissions 챌린지의 제출 기록을 사용자별로 묶어 반환합니다
func (c *Controller) ListSubmissions(ctx context.Context, challengeID uint) (*models.Challenge, []models.UserSubmissions, error) {
	challenge, err := c.store.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, nil, c.storeError(err, "list submissions")
	}
	submissions, err := c.store.GetSubmissions(ctx, challengeID, "")
	if err != nil {
		return nil, nil, errors.NewSystemError("STORAGE_ERROR", "list submissions", err)
	}
	return challenge, models.GroupByUser(submissions), nil
}

// UserSubmissions 한 사용자의 제출 기록을 시간순으로 반환합니다
func (c *Controller) UserSubmissions(ctx context.Context, challengeID uint, userID string) ([]models.Submission, error) {
	if _, err := c.store.GetChallenge(ctx, challengeID); err != nil {
		return nil, c.storeError(err, "user submissions")
	}
	submissions, err := c.store.GetSubmissions(ctx, challengeID, userID)
	if err != nil {
		return nil, errors.NewSystemError("STORAGE_ERROR", "user submissions", err)
	}
	return submissions, nil
}

// DeleteSubmission 챌린지에 속한 제출 기록 하나를 삭제합니다. 다른 챌린지의 기록은 찾을 수 없는 것으로 취급합니다
func (c *Controller) DeleteSubmission(ctx context.Context, challengeID, id uint) error {
	submission, err := c.store.GetSubmission(ctx, id)
	if err == nil && submission.ChallengeID != challengeID {
		err = storage.ErrNotFound
	}
	if err == nil {
		err = c.store.DeleteSubmission(ctx, id)
	}
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NewNotFoundError("SUBMISSION_NOT_FOUND", "submission not found", constants.ErrorMessages["SUBMISSION_NOT_FOUND"])
		}
		return errors.NewSystemError("STORAGE_ERROR", "delete submission", err)
	}
	utils.Info("Submission %d deleted", id)
	return nil
}
