package cache

import (
	"context"
	"fmt"

	"food-budget/internal/core/nutrition"
	"food-budget/internal/infrastructure/config"
)

// Backend 可關閉並回報統計的營養快取
type Backend interface {
	nutrition.Cache
	Stats
	Close() error
}

// New 依設定建立快取後端
func New(ctx context.Context, cfg config.CacheConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}
