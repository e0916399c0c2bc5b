package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fridge-helper/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const redisKeyPrefix = "fridge:session:"

// RedisStore 以 Redis 保存使用者狀態，多個實例可共用
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore 創建 Redis 狀態儲存
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	common.LogInfo("使用者狀態儲存已初始化",
		zap.String("backend", "redis"),
		zap.Duration("存活時間", ttl),
	)
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(userID string) string {
	return redisKeyPrefix + userID
}

// Load 讀取使用者狀態
func (s *RedisStore) Load(ctx context.Context, userID string) (*Session, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return New(userID), nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// 壞掉的資料視同沒有狀態
		common.LogWarn("使用者狀態解析失敗，重新建立", zap.String("user_id", userID), zap.Error(err))
		return New(userID), nil
	}
	sess.UserID = userID
	return &sess, nil
}

// Save 寫入使用者狀態並刷新 TTL
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now()
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sess.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Stats 健康檢查使用的統計
func (s *RedisStore) Stats() map[string]interface{} {
	return map[string]interface{}{
		"backend": "redis",
		"ttl":     s.ttl.String(),
	}
}

// Close 連線由呼叫端共用，這裡不關閉
func (s *RedisStore) Close() error {
	return nil
}
