package cache

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/models"
)

// MemoryChallengeCache 우선순위 큐로 만료를 관리하는 프로세스 내 챌린지 목록 캐시
type MemoryChallengeCache struct {
	items map[string]*CacheItem

	// 만료 시간 추적을 위한 우선순위 큐와 인덱스
	expirationQueue *ExpirationQueue
	keyToEntry      map[string]*ExpirationEntry

	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time

	hits   atomic.Uint64
	misses atomic.Uint64

	cleanupBatchSize int
	stopCleanup      context.CancelFunc
}

// NewMemoryChallengeCache 새로운 MemoryChallengeCache 인스턴스를 생성합니다
func NewMemoryChallengeCache(ttl time.Duration) *MemoryChallengeCache {
	pq := &ExpirationQueue{}
	heap.Init(pq)

	return &MemoryChallengeCache{
		items:            make(map[string]*CacheItem),
		expirationQueue:  pq,
		keyToEntry:       make(map[string]*ExpirationEntry),
		ttl:              ttl,
		now:              time.Now,
		cleanupBatchSize: 50,
	}
}

// GetActive 캐시에서 진행 중 챌린지 목록을 조회합니다
func (c *MemoryChallengeCache) GetActive(_ context.Context, guildID string) ([]models.Challenge, bool) {
	c.mu.RLock()
	item, exists := c.items[guildKey(guildID)]
	c.mu.RUnlock()

	if !exists || item.IsExpired(c.now()) {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	cached := item.Data.([]models.Challenge)
	return append([]models.Challenge(nil), cached...), true
}

// SetActive 진행 중 챌린지 목록을 캐시에 저장합니다
func (c *MemoryChallengeCache) SetActive(_ context.Context, guildID string, challenges []models.Challenge) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := guildKey(guildID)
	expiresAt := c.now().Add(c.ttl)
	c.items[key] = &CacheItem{
		Data:      append([]models.Challenge(nil), challenges...),
		ExpiresAt: expiresAt,
	}

	// 기존 항목은 힙에서 빼지 않고 무효화 표시만 합니다
	if existing, ok := c.keyToEntry[key]; ok {
		existing.ExpiresAt = time.Time{}
	}
	entry := &ExpirationEntry{Key: key, ExpiresAt: expiresAt}
	heap.Push(c.expirationQueue, entry)
	c.keyToEntry[key] = entry
}

// Invalidate 모든 캐시를 삭제합니다
func (c *MemoryChallengeCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*CacheItem)
	c.expirationQueue = &ExpirationQueue{}
	heap.Init(c.expirationQueue)
	c.keyToEntry = make(map[string]*ExpirationEntry)
}

// ClearExpired 만료된 항목을 배치 크기만큼 정리하고 정리한 개수를 반환합니다
func (c *MemoryChallengeCache) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	cleaned := 0
	for cleaned < c.cleanupBatchSize && c.expirationQueue.Len() > 0 {
		entry := (*c.expirationQueue)[0]

		if entry.ExpiresAt.IsZero() {
			heap.Pop(c.expirationQueue)
			cleaned++
			continue
		}
		if now.Before(entry.ExpiresAt) {
			break
		}

		heap.Pop(c.expirationQueue)
		if c.keyToEntry[entry.Key] == entry {
			delete(c.keyToEntry, entry.Key)
			delete(c.items, entry.Key)
		}
		cleaned++
	}
	return cleaned
}

// StartCleanupWorker 주기적으로 만료 항목을 정리하는 워커를 시작합니다
func (c *MemoryChallengeCache) StartCleanupWorker(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	c.stopCleanup = cancel
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.ClearExpired()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// GetStats 캐시 통계를 반환합니다
func (c *MemoryChallengeCache) GetStats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Entries: len(c.items),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Backend: "memory",
	}
}

// Close 정리 워커를 중지합니다
func (c *MemoryChallengeCache) Close() error {
	if c.stopCleanup != nil {
		c.stopCleanup()
	}
	return nil
}
