// Package cache holds nutrition lookup cache backends.
package cache

import (
	"context"
	"sync"
	"time"

	"food-budget/internal/core/nutrition"
	"food-budget/internal/pkg/common"

	"go.uber.org/zap"
)

// Stats 快取統計介面，供健康檢查使用
type Stats interface {
	GetStats() map[string]interface{}
}

// MemoryStore 程序內快取，生命週期與程序相同，沒有過期
type MemoryStore struct {
	mu    sync.RWMutex
	store map[nutrition.LookupKey]memoryEntry
	stats cacheStats
}

// memoryEntry 快取條目
type memoryEntry struct {
	record      *nutrition.Record
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// cacheStats 快取統計
type cacheStats struct {
	hits      int64
	negatives int64
	misses    int64
	writes    int64
}

// NewMemoryStore 創建程序內快取
func NewMemoryStore() *MemoryStore {
	common.LogInfo("營養快取已初始化", zap.String("backend", "memory"))
	return &MemoryStore{
		store: make(map[nutrition.LookupKey]memoryEntry),
	}
}

// Get 取得快取；負向快取同樣算命中
func (m *MemoryStore) Get(_ context.Context, key nutrition.LookupKey) (nutrition.CacheEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.store[key]
	if !ok {
		m.stats.misses++
		return nutrition.CacheEntry{}, false
	}

	entry.lastAccess = time.Now()
	entry.accessCount++
	m.store[key] = entry
	if entry.record == nil {
		m.stats.negatives++
	} else {
		m.stats.hits++
	}
	return nutrition.CacheEntry{Record: entry.record.Clone()}, true
}

// Put 寫入快取；record 為 nil 代表查無資料
func (m *MemoryStore) Put(_ context.Context, key nutrition.LookupKey, record *nutrition.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.store[key] = memoryEntry{
		record:     record.Clone(),
		createdAt:  now,
		lastAccess: now,
	}
	m.stats.writes++
	return nil
}

// Len 目前條目數
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

// GetStats 獲取快取統計信息
func (m *MemoryStore) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lookups := m.stats.hits + m.stats.negatives + m.stats.misses
	ratio := 0.0
	if lookups > 0 {
		ratio = float64(m.stats.hits+m.stats.negatives) / float64(lookups)
	}
	return map[string]interface{}{
		"backend":   "memory",
		"size":      len(m.store),
		"hits":      m.stats.hits,
		"negatives": m.stats.negatives,
		"misses":    m.stats.misses,
		"writes":    m.stats.writes,
		"hit_ratio": ratio,
	}
}

// Close 關閉快取並清空
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store = make(map[nutrition.LookupKey]memoryEntry)
	common.LogInfo("營養快取已關閉",
		zap.Int64("命中次數", m.stats.hits),
		zap.Int64("負向命中次數", m.stats.negatives),
		zap.Int64("未命中次數", m.stats.misses),
	)
	return nil
}
