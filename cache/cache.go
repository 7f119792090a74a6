package cache

import (
	"time"
)

// CacheItem 만료 시간이 있는 캐시 항목
type CacheItem struct {
	Data      interface{}
	ExpiresAt time.Time
}

// IsExpired 주어진 시각 기준으로 만료되었는지 확인합니다
func (item *CacheItem) IsExpired(now time.Time) bool {
	return !now.Before(item.ExpiresAt)
}

// CacheStats 캐시 통계 정보
type CacheStats struct {
	Entries int
	Hits    uint64
	Misses  uint64
	Backend string
}

// HitRate 조회 중 적중 비율을 반환합니다
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// ExpirationEntry 만료 시간 기반 우선순위 큐의 항목
type ExpirationEntry struct {
	Key       string
	ExpiresAt time.Time
	Index     int // 힙에서의 인덱스
}

// ExpirationQueue 만료 시간 기반 우선순위 큐 (최소 힙)
type ExpirationQueue []*ExpirationEntry

func (pq ExpirationQueue) Len() int { return len(pq) }

func (pq ExpirationQueue) Less(i, j int) bool {
	return pq[i].ExpiresAt.Before(pq[j].ExpiresAt)
}

func (pq ExpirationQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].Index = i
	pq[j].Index = j
}

func (pq *ExpirationQueue) Push(x interface{}) {
	entry := x.(*ExpirationEntry)
	entry.Index = len(*pq)
	*pq = append(*pq, entry)
}

func (pq *ExpirationQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.Index = -1
	*pq = old[0 : n-1]
	return entry
}

// guildKey 전체 길드 조회(빈 ID)도 별도 키로 저장합니다
func guildKey(guildID string) string {
	if guildID == "" {
		return "all"
	}
	return guildID
}
