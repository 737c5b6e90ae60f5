package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"food-budget/internal/core/nutrition"
	"food-budget/internal/infrastructure/config"
	"food-budget/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// redisValue 序列化格式；Negative 為 true 時沒有 Record
type redisValue struct {
	Negative bool              `json:"negative"`
	Record   *nutrition.Record `json:"record,omitempty"`
}

// RedisStore Redis 快取；鍵不設 TTL
type RedisStore struct {
	client    *redis.Client
	namespace string

	hits, negatives, misses, errs atomic.Int64
}

// NewRedisStore 連線 Redis；namespace 空值時使用每個程序獨立的 ID
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return newRedisStore(client, cfg.Namespace), nil
}

func newRedisStore(client *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "proc-" + common.GenerateUUID()
	}
	common.LogInfo("營養快取已初始化",
		zap.String("backend", "redis"),
		zap.String("namespace", namespace),
	)
	return &RedisStore{client: client, namespace: namespace}
}

// Namespace 目前使用的命名空間
func (s *RedisStore) Namespace() string { return s.namespace }

// generateKey 生成快取鍵
func (s *RedisStore) generateKey(key nutrition.LookupKey) string {
	return fmt.Sprintf("nutrition:%s:%s:%s", s.namespace, key.Kind, key.Value)
}

// Get 取得快取；連線錯誤視為未命中
func (s *RedisStore) Get(ctx context.Context, key nutrition.LookupKey) (nutrition.CacheEntry, bool) {
	data, err := s.client.Get(ctx, s.generateKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.errs.Add(1)
			common.LogWarn("Redis 快取讀取失敗", zap.String("key", key.String()), zap.Error(err))
		}
		s.misses.Add(1)
		return nutrition.CacheEntry{}, false
	}

	var v redisValue
	if err := json.Unmarshal(data, &v); err != nil {
		s.errs.Add(1)
		s.misses.Add(1)
		common.LogWarn("Redis 快取內容無法解析", zap.String("key", key.String()), zap.Error(err))
		return nutrition.CacheEntry{}, false
	}
	if v.Negative || v.Record == nil {
		s.negatives.Add(1)
		return nutrition.CacheEntry{}, true
	}
	if err := v.Record.Validate(); err != nil {
		s.errs.Add(1)
		s.misses.Add(1)
		return nutrition.CacheEntry{}, false
	}
	s.hits.Add(1)
	return nutrition.CacheEntry{Record: v.Record}, true
}

// Put 寫入快取
func (s *RedisStore) Put(ctx context.Context, key nutrition.LookupKey, record *nutrition.Record) error {
	data, err := json.Marshal(redisValue{Negative: record == nil, Record: record})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := s.client.Set(ctx, s.generateKey(key), data, 0).Err(); err != nil {
		s.errs.Add(1)
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// GetStats 獲取快取統計信息
func (s *RedisStore) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"backend":   "redis",
		"namespace": s.namespace,
		"hits":      s.hits.Load(),
		"negatives": s.negatives.Load(),
		"misses":    s.misses.Load(),
		"errors":    s.errs.Load(),
	}
}

// Ping 檢查連線
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 關閉連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}
