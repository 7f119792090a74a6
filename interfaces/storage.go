package interfaces

import (
	"context"

	"github.com/ACUCyS/weekly-ctf-bot/models"
)

// ChallengeRepository 챌린지 저장소 작업을 위한 인터페이스입니다
type ChallengeRepository interface {
	GetChallenge(ctx context.Context, id uint) (*models.Challenge, error)
	// SearchChallenge 길드 안에서 이름으로 챌린지를 찾습니다 (대소문자 무시)
	SearchChallenge(ctx context.Context, guildID, name string) (*models.Challenge, error)
	// ListActiveChallenges 진행 중인 공개 챌린지를 반환합니다. guildID 가 비어있으면 모든 길드가 대상입니다
	ListActiveChallenges(ctx context.Context, guildID string) ([]models.Challenge, error)
	ListUpcomingChallenges(ctx context.Context) ([]models.Challenge, error)
	AddChallenge(ctx context.Context, challenge *models.Challenge) error
	UpdateChallenge(ctx context.Context, id uint, update models.ChallengeUpdate) (*models.Challenge, error)
	DeleteChallenge(ctx context.Context, id uint) error
}

// SubmissionRepository 제출 기록 저장소 작업을 위한 인터페이스입니다
type SubmissionRepository interface {
	GetSubmission(ctx context.Context, id uint) (*models.Submission, error)
	// GetSubmissions 제출 기록을 시간순(동일 시각은 삽입순)으로 반환합니다. userID 가 비어있으면 전체입니다
	GetSubmissions(ctx context.Context, challengeID uint, userID string) ([]models.Submission, error)
	// GetSolve 사용자의 첫 정답 제출을 반환합니다. 없으면 ErrNotFound 입니다
	GetSolve(ctx context.Context, challengeID uint, userID string) (*models.Submission, error)
	AddSubmission(ctx context.Context, submission *models.Submission) error
	DeleteSubmission(ctx context.Context, id uint) error
}

// ServerRepository 길드 설정 저장소 작업을 위한 인터페이스입니다
type ServerRepository interface {
	// GetServer 길드 설정을 반환합니다. 저장된 설정이 없으면 기본값입니다
	GetServer(ctx context.Context, guildID string) (*models.Server, error)
	UpdateServer(ctx context.Context, guildID string, update models.ServerUpdate) (*models.Server, error)
}

// StorageRepository 봇이 사용하는 저장소 전체 인터페이스입니다
type StorageRepository interface {
	ChallengeRepository
	SubmissionRepository
	ServerRepository

	// Ping 저장소 연결 상태를 확인합니다
	Ping(ctx context.Context) error
	// 리소스 정리
	Close() error
}
