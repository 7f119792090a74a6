package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/models"
)

// InMemoryStorage 테스트/개발용 비영구 저장소 구현
type InMemoryStorage struct {
	mu               sync.RWMutex
	challenges       map[uint]models.Challenge
	submissions      map[uint]models.Submission
	servers          map[string]models.Server
	nextChallengeID  uint
	nextSubmissionID uint
	now              func() time.Time
}

// NewInMemoryStorage 새 인메모리 저장소 생성
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		challenges:  make(map[uint]models.Challenge),
		submissions: make(map[uint]models.Submission),
		servers:     make(map[string]models.Server),
		now:         time.Now,
	}
}

// SetClock 진행 중/예정 판정에 쓰는 시계를 바꿉니다
func (s *InMemoryStorage) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func copyChallenge(c models.Challenge) *models.Challenge {
	c.Files = append(models.FileList{}, c.Files...)
	return &c
}

// GetChallenge ID로 챌린지 조회
func (s *InMemoryStorage) GetChallenge(_ context.Context, id uint) (*models.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.challenges[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyChallenge(c), nil
}

// SearchChallenge 길드 안에서 이름으로 챌린지 조회
func (s *InMemoryStorage) SearchChallenge(_ context.Context, guildID, name string) (*models.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := models.NameKey(name)
	for _, c := range s.challenges {
		if c.GuildID == guildID && c.NameKey == key {
			return copyChallenge(c), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStorage) filterChallenges(match func(c *models.Challenge) bool) []models.Challenge {
	res := make([]models.Challenge, 0)
	for _, c := range s.challenges {
		if match(&c) {
			res = append(res, *copyChallenge(c))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].Start.Equal(res[j].Start.Time) {
			return res[i].Start.Before(res[j].Start.Time)
		}
		return res[i].ID < res[j].ID
	})
	return res
}

// ListActiveChallenges 진행 중인 공개 챌린지 조회
func (s *InMemoryStorage) ListActiveChallenges(_ context.Context, guildID string) ([]models.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	return s.filterChallenges(func(c *models.Challenge) bool {
		return (guildID == "" || c.GuildID == guildID) && c.IsOpen(now)
	}), nil
}

// ListUpcomingChallenges 시작 전인 공개 챌린지 조회
func (s *InMemoryStorage) ListUpcomingChallenges(_ context.Context) ([]models.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	return s.filterChallenges(func(c *models.Challenge) bool {
		return c.IsUpcoming(now)
	}), nil
}

func (s *InMemoryStorage) nameTaken(guildID, key string, except uint) bool {
	for id, c := range s.challenges {
		if id != except && c.GuildID == guildID && c.NameKey == key {
			return true
		}
	}
	return false
}

// AddChallenge 챌린지 추가
func (s *InMemoryStorage) AddChallenge(_ context.Context, challenge *models.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge.NameKey = models.NameKey(challenge.Name)
	if s.nameTaken(challenge.GuildID, challenge.NameKey, 0) {
		return ErrDuplicate
	}
	s.nextChallengeID++
	challenge.ID = s.nextChallengeID
	s.challenges[challenge.ID] = *copyChallenge(*challenge)
	return nil
}

// UpdateChallenge 챌린지 부분 수정
func (s *InMemoryStorage) UpdateChallenge(_ context.Context, id uint, update models.ChallengeUpdate) (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return nil, ErrNotFound
	}
	update.Apply(&c)
	if s.nameTaken(c.GuildID, c.NameKey, id) {
		return nil, ErrDuplicate
	}
	s.challenges[id] = c
	return copyChallenge(c), nil
}

// DeleteChallenge 챌린지 삭제. 제출 기록은 남겨둡니다
func (s *InMemoryStorage) DeleteChallenge(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.challenges[id]; !ok {
		return ErrNotFound
	}
	delete(s.challenges, id)
	return nil
}

// GetSubmission ID로 제출 기록 조회
func (s *InMemoryStorage) GetSubmission(_ context.Context, id uint) (*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sub, nil
}

// GetSubmissions 제출 기록을 시간순(동일 시각은 ID순)으로 조회
func (s *InMemoryStorage) GetSubmissions(_ context.Context, challengeID uint, userID string) ([]models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]models.Submission, 0)
	for _, sub := range s.submissions {
		if sub.ChallengeID == challengeID && (userID == "" || sub.UserID == userID) {
			res = append(res, sub)
		}
	}
	sortSubmissions(res)
	return res, nil
}

func sortSubmissions(subs []models.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Timestamp.Millis() != subs[j].Timestamp.Millis() {
			return subs[i].Timestamp.Millis() < subs[j].Timestamp.Millis()
		}
		return subs[i].ID < subs[j].ID
	})
}

// GetSolve 사용자의 첫 정답 제출 조회
func (s *InMemoryStorage) GetSolve(ctx context.Context, challengeID uint, userID string) (*models.Submission, error) {
	subs, _ := s.GetSubmissions(ctx, challengeID, userID)
	for _, sub := range subs {
		if sub.IsCorrect {
			return &sub, nil
		}
	}
	return nil, ErrNotFound
}

// AddSubmission 제출 기록 추가
func (s *InMemoryStorage) AddSubmission(_ context.Context, submission *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubmissionID++
	submission.ID = s.nextSubmissionID
	s.submissions[submission.ID] = *submission
	return nil
}

// DeleteSubmission 제출 기록 삭제
func (s *InMemoryStorage) DeleteSubmission(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[id]; !ok {
		return ErrNotFound
	}
	delete(s.submissions, id)
	return nil
}

// GetServer 길드 설정 조회. 없으면 기본값
func (s *InMemoryStorage) GetServer(_ context.Context, guildID string) (*models.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if server, ok := s.servers[guildID]; ok {
		return &server, nil
	}
	return &models.Server{GuildID: guildID}, nil
}

// UpdateServer 길드 설정 갱신
func (s *InMemoryStorage) UpdateServer(_ context.Context, guildID string, update models.ServerUpdate) (*models.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	server, ok := s.servers[guildID]
	if !ok {
		server = models.Server{GuildID: guildID}
	}
	update.Apply(&server)
	s.servers[guildID] = server
	return &server, nil
}

// Ping 항상 성공합니다
func (s *InMemoryStorage) Ping(context.Context) error {
	return nil
}

// Close 정리할 리소스가 없습니다
func (s *InMemoryStorage) Close() error {
	return nil
}
