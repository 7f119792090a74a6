package interfaces

import (
	"context"

	"github.com/ACUCyS/weekly-ctf-bot/models"
)

// Announcer 챌린지 공지를 보내는 인터페이스입니다
type Announcer interface {
	AnnounceOpen(ctx context.Context, challenge *models.Challenge) error
	// AnnounceClose 종료 공지를 보냅니다. solvers 는 정답 시각 순서이며 비어있을 수 있습니다
	AnnounceClose(ctx context.Context, challenge *models.Challenge, solvers []models.Submission) error
	AnnounceSolve(ctx context.Context, challenge *models.Challenge, userID string) error
}
