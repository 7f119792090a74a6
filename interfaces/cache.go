package interfaces

import (
	"context"

	"github.com/ACUCyS/weekly-ctf-bot/cache"
	"github.com/ACUCyS/weekly-ctf-bot/models"
)

// ChallengeListCache 길드별 진행 중 챌린지 목록 캐시입니다
type ChallengeListCache interface {
	GetActive(ctx context.Context, guildID string) ([]models.Challenge, bool)
	SetActive(ctx context.Context, guildID string, challenges []models.Challenge)
	// Invalidate 모든 길드의 목록을 비웁니다
	Invalidate(ctx context.Context)

	GetStats() cache.CacheStats
	Close() error
}
