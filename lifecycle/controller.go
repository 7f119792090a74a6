package lifecycle

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/ACUCyS/weekly-ctf-bot/errors"
	"github.com/ACUCyS/weekly-ctf-bot/interfaces"
	"github.com/ACUCyS/weekly-ctf-bot/models"
	"github.com/ACUCyS/weekly-ctf-bot/scheduler"
	"github.com/ACUCyS/weekly-ctf-bot/storage"
	"github.com/ACUCyS/weekly-ctf-bot/utils"
)

// Controller 챌린지 상태 변경과 예약 이벤트를 저장소 상태와 일치시키는 컨트롤러입니다
type Controller struct {
	store     interfaces.StorageRepository
	announcer interfaces.Announcer
	scheduler *scheduler.Scheduler
	now       func() time.Time

	// 진행 중인 백그라운드 솔브 공지
	announcements sync.WaitGroup
}

// Option 컨트롤러 옵션
type Option func(*Controller)

// WithClock 현재 시각을 구하는 함수를 지정합니다. 스케줄러도 같은 시계를 사용합니다
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController 새로운 라이프사이클 컨트롤러를 생성합니다
func NewController(store interfaces.StorageRepository, announcer interfaces.Announcer, opts ...Option) *Controller {
	c := &Controller{
		store:     store,
		announcer: announcer,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.scheduler = scheduler.New(c, scheduler.WithClock(c.now))
	return c
}

// Scheduler 컨트롤러가 소유한 이벤트 스케줄러를 반환합니다
func (c *Controller) Scheduler() *scheduler.Scheduler {
	return c.scheduler
}

// Store 컨트롤러가 사용하는 저장소를 반환합니다
func (c *Controller) Store() interfaces.StorageRepository {
	return c.store
}

// Stop 예약 이벤트를 모두 버리고 실행 중인 공지를 기다립니다. 솔브 공지는 ctx 가 끝날 때까지만 기다립니다
func (c *Controller) Stop(ctx context.Context) {
	c.scheduler.Stop(ctx)

	done := make(chan struct{})
	go func() {
		c.announcements.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		utils.Warn("Timed out waiting for solve announcements")
	}
}

// CreateRequest 새 챌린지 생성 요청
type CreateRequest struct {
	GuildID     string
	Name        string
	Description string
	Flag        string
	Files       string
	URL         string
}

// EditRequest 챌린지 내용 수정 요청. 일정과 공개 여부는 StatusRequest 로 변경합니다
type EditRequest struct {
	ID          uint
	Name        string
	Description string
	Flag        string
	Files       string
	URL         string
}

// StatusRequest 챌린지 일정과 공개 여부 변경 요청. 시각은 유닉스 초 문자열이며 Start 가 비어있으면 지금입니다
type StatusRequest struct {
	ID     uint
	Start  string
	Finish string
	Hidden bool
}

type content struct {
	name, description, flag, url string
	files                        models.FileList
}

func validateContent(name, description, flag, files, url string) (*content, error) {
	if !utils.IsValidChallengeName(name) {
		return nil, validationError("INVALID_NAME", fmt.Sprintf("invalid challenge name %q", name))
	}
	if !utils.IsValidFlag(flag) {
		return nil, validationError("INVALID_FLAG", "invalid flag length")
	}
	if !utils.IsValidConnectionURL(url) {
		return nil, validationError("INVALID_URL", "connection url too long")
	}
	fileList, err := models.ParseFileInput(files)
	if err != nil {
		return nil, errors.NewValidationError("INVALID_FILES", err.Error(),
			constants.ErrorMessages["INVALID_FILES"]+"\n"+err.Error())
	}
	return &content{
		name:        strings.TrimSpace(name),
		description: strings.TrimSpace(description),
		flag:        strings.TrimSpace(flag),
		url:         strings.TrimSpace(url),
		files:       fileList,
	}, nil
}

// CreateChallenge 숨김 상태의 챌린지를 만듭니다. 시작은 지금, 종료는 일주일 뒤이며 이벤트는 예약하지 않습니다
func (c *Controller) CreateChallenge(ctx context.Context, req CreateRequest) (*models.Challenge, error) {
	fields, err := validateContent(req.Name, req.Description, req.Flag, req.Files, req.URL)
	if err != nil {
		return nil, err
	}

	now := c.now()
	challenge := &models.Challenge{
		GuildID:     req.GuildID,
		Description: fields.description,
		Flag:        fields.flag,
		Files:       fields.files,
		URL:         fields.url,
		Start:       models.NewUnixMillis(now),
		Finish:      models.NewUnixMillis(now.Add(constants.DefaultChallengeDuration)),
		Visible:     false,
	}
	challenge.SetName(fields.name)

	if err := c.store.AddChallenge(ctx, challenge); err != nil {
		return nil, c.storeError(err, "create challenge")
	}
	utils.Info("Challenge %d (%s) created in guild %s", challenge.ID, challenge.Name, challenge.GuildID)
	return challenge, nil
}

// EditChallengeContent 챌린지 내용을 수정합니다. 예약 이벤트는 건드리지 않습니다
func (c *Controller) EditChallengeContent(ctx context.Context, req EditRequest) (*models.Challenge, error) {
	fields, err := validateContent(req.Name, req.Description, req.Flag, req.Files, req.URL)
	if err != nil {
		return nil, err
	}

	challenge, err := c.store.UpdateChallenge(ctx, req.ID, models.ChallengeUpdate{
		Name:        &fields.name,
		Description: &fields.description,
		Flag:        &fields.flag,
		Files:       &fields.files,
		URL:         &fields.url,
	})
	if err != nil {
		return nil, c.storeError(err, "edit challenge")
	}
	utils.Info("Challenge %d content updated", challenge.ID)
	return challenge, nil
}

// EditChallengeStatus 일정과 공개 여부를 변경한 뒤 예약 이벤트를 다시 맞춥니다.
// 시각 하나라도 해석할 수 없으면 아무것도 변경하지 않습니다.
func (c *Controller) EditChallengeStatus(ctx context.Context, req StatusRequest) (*models.Challenge, error) {
	now := c.now()

	start := now
	if strings.TrimSpace(req.Start) != "" {
		parsed, err := utils.ParseUnixTimestamp(req.Start, "start")
		if err != nil {
			return nil, timestampError(req.Start, err)
		}
		start = parsed
	}
	finish, err := utils.ParseUnixTimestamp(req.Finish, "finish")
	if err != nil {
		return nil, timestampError(req.Finish, err)
	}

	visible := !req.Hidden
	challenge, err := c.store.UpdateChallenge(ctx, req.ID, models.ChallengeUpdate{
		Start:   &start,
		Finish:  &finish,
		Visible: &visible,
	})
	if err != nil {
		return nil, c.storeError(err, "edit challenge status")
	}

	c.scheduler.CancelAll(challenge.ID)
	c.scheduleFor(challenge, now)
	return challenge, nil
}

// scheduleFor 공개 챌린지의 다음 이벤트 하나를 예약합니다. 이미 종료된 챌린지는 예약하지 않습니다
func (c *Controller) scheduleFor(challenge *models.Challenge, now time.Time) {
	switch {
	case !challenge.Visible:
		utils.Debug("Challenge %d is hidden, no events scheduled", challenge.ID)
	case challenge.Start.After(now):
		c.scheduler.Schedule(scheduler.StartEvent, challenge.ID, challenge.Start.Time)
	case challenge.HasFinish() && challenge.Finish.After(now):
		c.scheduler.Schedule(scheduler.FinishEvent, challenge.ID, challenge.Finish.Time)
	default:
		utils.Debug("Challenge %d already closed, no events scheduled", challenge.ID)
	}
}

// ToggleHidden 공개 여부만 뒤집습니다. 예약 이벤트는 그대로 둡니다
func (c *Controller) ToggleHidden(ctx context.Context, id uint) (*models.Challenge, error) {
	current, err := c.store.GetChallenge(ctx, id)
	if err != nil {
		return nil, c.storeError(err, "toggle hidden")
	}
	visible := !current.Visible
	challenge, err := c.store.UpdateChallenge(ctx, id, models.ChallengeUpdate{Visible: &visible})
	if err != nil {
		return nil, c.storeError(err, "toggle hidden")
	}
	utils.Info("Challenge %d visibility set to %t", id, visible)
	return challenge, nil
}

// DeleteChallenge 챌린지를 삭제하고 예약 이벤트를 취소합니다. 제출 기록은 남습니다
func (c *Controller) DeleteChallenge(ctx context.Context, id uint) (*models.Challenge, error) {
	challenge, err := c.store.GetChallenge(ctx, id)
	if err != nil {
		return nil, c.storeError(err, "delete challenge")
	}
	if err := c.store.DeleteChallenge(ctx, id); err != nil {
		return nil, c.storeError(err, "delete challenge")
	}
	c.scheduler.CancelAll(id)
	utils.Info("Challenge %d (%s) deleted", id, challenge.Name)
	return challenge, nil
}

// DeleteChallengeConfirmed 확인용 이름이 일치할 때만 챌린지를 삭제합니다
func (c *Controller) DeleteChallengeConfirmed(ctx context.Context, id uint, confirmation string) (*models.Challenge, error) {
	challenge, err := c.store.GetChallenge(ctx, id)
	if err != nil {
		return nil, c.storeError(err, "delete challenge")
	}
	if models.NameKey(confirmation) != challenge.NameKey {
		return nil, validationError("CONFIRMATION_FAILED", "delete confirmation mismatch")
	}
	return c.DeleteChallenge(ctx, id)
}

// Restore 저장소 상태로부터 예약 이벤트를 다시 만듭니다. 프로세스가 꺼져 있던 동안 지난 이벤트는 건너뜁니다
func (c *Controller) Restore(ctx context.Context) error {
	upcoming, err := c.store.ListUpcomingChallenges(ctx)
	if err != nil {
		return c.storeError(err, "restore upcoming challenges")
	}
	for i := range upcoming {
		c.scheduler.Schedule(scheduler.StartEvent, upcoming[i].ID, upcoming[i].Start.Time)
	}

	active, err := c.store.ListActiveChallenges(ctx, "")
	if err != nil {
		return c.storeError(err, "restore active challenges")
	}
	finishes := 0
	for i := range active {
		if !active[i].HasFinish() {
			continue
		}
		c.scheduler.Schedule(scheduler.FinishEvent, active[i].ID, active[i].Finish.Time)
		finishes++
	}

	utils.Info("Restored %d start events and %d finish events", len(upcoming), finishes)
	return nil
}

// HandleEvent 스케줄러가 예약 시각에 호출합니다
func (c *Controller) HandleEvent(ctx context.Context, kind scheduler.Kind, challengeID uint) {
	challenge, err := c.store.GetChallenge(ctx, challengeID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			utils.Debug("Challenge %d no longer exists, skipping %s event", challengeID, kind)
			return
		}
		utils.Error("Failed to load challenge %d for %s event: %v", challengeID, kind, err)
		return
	}

	switch kind {
	case scheduler.StartEvent:
		c.handleStart(ctx, challenge)
	case scheduler.FinishEvent:
		c.handleFinish(ctx, challenge)
	}
}

// handleStart 종료 이벤트를 예약하고 시작을 공지합니다. 이벤트가 실행된 뒤 일정이 바뀌었으면 둘 다 하지 않습니다
func (c *Controller) handleStart(ctx context.Context, challenge *models.Challenge) {
	var current bool
	if challenge.HasFinish() {
		current = c.scheduler.ScheduleIfCurrent(ctx, scheduler.FinishEvent, challenge.ID, challenge.Finish.Time)
	} else {
		current = c.scheduler.IsCurrent(ctx, challenge.ID)
	}
	if !current {
		utils.Info("Challenge %d was rescheduled while starting, skipping open announcement", challenge.ID)
		return
	}
	if err := c.announcer.AnnounceOpen(ctx, challenge); err != nil {
		utils.Error("Failed to announce opening of challenge %d: %v", challenge.ID, err)
	}
}

func (c *Controller) handleFinish(ctx context.Context, challenge *models.Challenge) {
	submissions, err := c.store.GetSubmissions(ctx, challenge.ID, "")
	if err != nil {
		utils.Error("Failed to load submissions for challenge %d: %v", challenge.ID, err)
		return
	}
	solvers := models.FirstSolves(submissions)
	if !c.scheduler.IsCurrent(ctx, challenge.ID) {
		utils.Info("Challenge %d was rescheduled while finishing, skipping close announcement", challenge.ID)
		return
	}
	if err := c.announcer.AnnounceClose(ctx, challenge, solvers); err != nil {
		utils.Error("Failed to announce closing of challenge %d: %v", challenge.ID, err)
	}
}

func validationError(code, message string) *errors.AppError {
	return errors.NewValidationError(code, message, constants.ErrorMessages[code])
}

func timestampError(value string, err error) *errors.AppError {
	return errors.NewValidationError("INVALID_TIMESTAMP", err.Error(),
		fmt.Sprintf("`%s` is an invalid unix epoch timestamp!", value))
}

// storeError 저장소 오류를 사용자에게 보여줄 수 있는 AppError 로 바꿉니다
func (c *Controller) storeError(err error, operation string) error {
	switch {
	case stderrors.Is(err, storage.ErrNotFound):
		return errors.NewNotFoundError("CHALLENGE_NOT_FOUND", operation+": not found", constants.ErrorMessages["CHALLENGE_NOT_FOUND"])
	case stderrors.Is(err, storage.ErrDuplicate):
		return errors.NewDuplicateError("DUPLICATE_NAME", operation+": duplicate name", constants.ErrorMessages["DUPLICATE_NAME"])
	default:
		return errors.NewSystemError("STORAGE_ERROR", operation, err)
	}
}
