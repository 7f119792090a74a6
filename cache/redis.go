package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/models"
	"github.com/ACUCyS/weekly-ctf-bot/utils"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "weekly-ctf:active:"

// RedisChallengeCache 재시작 후에도 유지되는 Redis 기반 챌린지 목록 캐시
type RedisChallengeCache struct {
	client *redis.Client
	ttl    time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewRedisChallengeCache REDIS_URL 로 연결하고 ping 으로 연결을 확인합니다
func NewRedisChallengeCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisChallengeCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping")
	}

	return &RedisChallengeCache{client: client, ttl: ttl}, nil
}

// GetActive 캐시에서 진행 중 챌린지 목록을 조회합니다
func (c *RedisChallengeCache) GetActive(ctx context.Context, guildID string) ([]models.Challenge, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+guildKey(guildID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			utils.Warn("redis get failed: %v", err)
		}
		c.misses.Add(1)
		return nil, false
	}

	var challenges []models.Challenge
	if err := json.Unmarshal(data, &challenges); err != nil {
		utils.Warn("redis cache entry for guild %q is corrupt: %v", guildID, err)
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return challenges, true
}

// SetActive 진행 중 챌린지 목록을 캐시에 저장합니다
func (c *RedisChallengeCache) SetActive(ctx context.Context, guildID string, challenges []models.Challenge) {
	data, err := json.Marshal(challenges)
	if err != nil {
		utils.Warn("failed to encode active challenges: %v", err)
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+guildKey(guildID), data, c.ttl).Err(); err != nil {
		utils.Warn("redis set failed: %v", err)
	}
}

// Invalidate 접두사가 일치하는 모든 키를 삭제합니다
func (c *RedisChallengeCache) Invalidate(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		utils.Warn("redis scan failed: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		utils.Warn("redis del failed: %v", err)
	}
}

// Ping 헬스체크용 연결 확인
func (c *RedisChallengeCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetStats 캐시 통계를 반환합니다
func (c *RedisChallengeCache) GetStats() CacheStats {
	return CacheStats{
		Entries: -1,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Backend: "redis",
	}
}

// Close Redis 연결을 닫습니다
func (c *RedisChallengeCache) Close() error {
	return c.client.Close()
}
