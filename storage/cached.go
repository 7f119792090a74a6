package storage

import (
	"context"

	"github.com/ACUCyS/weekly-ctf-bot/interfaces"
	"github.com/ACUCyS/weekly-ctf-bot/models"
	"github.com/ACUCyS/weekly-ctf-bot/utils"
)

// CachedStorage 길드별 진행 중 챌린지 목록을 캐시하는 저장소 래퍼입니다.
// 자동완성처럼 자주 호출되는 조회만 캐시하며, 전체 길드 조회(빈 guildID)는 항상 저장소로 보냅니다.
type CachedStorage struct {
	interfaces.StorageRepository
	cache interfaces.ChallengeListCache
}

// NewCachedStorage 저장소를 캐시로 감쌉니다
func NewCachedStorage(repo interfaces.StorageRepository, cache interfaces.ChallengeListCache) *CachedStorage {
	return &CachedStorage{StorageRepository: repo, cache: cache}
}

// ListActiveChallenges 캐시를 먼저 확인하고 없으면 저장소에서 읽어 캐시합니다
func (s *CachedStorage) ListActiveChallenges(ctx context.Context, guildID string) ([]models.Challenge, error) {
	if guildID == "" {
		return s.StorageRepository.ListActiveChallenges(ctx, guildID)
	}

	if challenges, ok := s.cache.GetActive(ctx, guildID); ok {
		return challenges, nil
	}

	challenges, err := s.StorageRepository.ListActiveChallenges(ctx, guildID)
	if err != nil {
		return nil, err
	}
	s.cache.SetActive(ctx, guildID, challenges)
	return challenges, nil
}

// AddChallenge 저장 후 캐시를 비웁니다
func (s *CachedStorage) AddChallenge(ctx context.Context, challenge *models.Challenge) error {
	defer s.invalidate(ctx)
	return s.StorageRepository.AddChallenge(ctx, challenge)
}

// UpdateChallenge 수정 후 캐시를 비웁니다
func (s *CachedStorage) UpdateChallenge(ctx context.Context, id uint, update models.ChallengeUpdate) (*models.Challenge, error) {
	defer s.invalidate(ctx)
	return s.StorageRepository.UpdateChallenge(ctx, id, update)
}

// DeleteChallenge 삭제 후 캐시를 비웁니다
func (s *CachedStorage) DeleteChallenge(ctx context.Context, id uint) error {
	defer s.invalidate(ctx)
	return s.StorageRepository.DeleteChallenge(ctx, id)
}

func (s *CachedStorage) invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx)
	utils.Debug("Active challenge cache invalidated")
}

// Close 캐시와 저장소를 함께 닫습니다
func (s *CachedStorage) Close() error {
	if err := s.cache.Close(); err != nil {
		utils.Warn("Failed to close challenge cache: %v", err)
	}
	return s.StorageRepository.Close()
}
