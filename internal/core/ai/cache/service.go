package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fridge-helper/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "fridge:image:"

// Service Redis 快取服務
type Service struct {
	client *redis.Client
	ttl    time.Duration
}

// NewService 創建 Redis 快取服務
func NewService(client *redis.Client, ttl time.Duration) *Service {
	return &Service{
		client: client,
		ttl:    ttl,
	}
}

// Get 獲取緩存
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			common.LogCacheMiss("redis", key)
			return "", common.ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get cache: %w", err)
	}
	common.LogCacheHit("redis", key)
	return val, nil
}

// Set 設置緩存
func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, redisKeyPrefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Delete 移除緩存
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

// GetStats 獲取緩存統計信息
func (s *Service) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"backend": "redis",
		"ttl":     s.ttl.String(),
	}
}

// Close 連線由呼叫端共用，這裡不關閉
func (s *Service) Close() error {
	return nil
}
