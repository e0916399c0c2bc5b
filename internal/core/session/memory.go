package session

import (
	"context"
	"sync"
	"time"

	"fridge-helper/internal/pkg/common"

	"go.uber.org/zap"
)

// MemoryStore 記憶體版使用者狀態，重啟後會清空
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

// NewMemoryStore 創建記憶體狀態儲存，cleanupInterval > 0 時啟動背景清理
func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go s.startCleanup(cleanupInterval)
	}
	common.LogInfo("使用者狀態儲存已初始化",
		zap.String("backend", "memory"),
		zap.Duration("存活時間", ttl),
	)
	return s
}

// Load 讀取使用者狀態
func (s *MemoryStore) Load(_ context.Context, userID string) (*Session, error) {
	s.mu.RLock()
	entry, ok := s.entries[userID]
	s.mu.RUnlock()

	if !ok || s.expired(entry) {
		return New(userID), nil
	}
	return entry.session.Clone(), nil
}

// Save 寫入使用者狀態
func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	now := s.now()
	c := sess.Clone()
	c.UpdatedAt = now
	sess.UpdatedAt = now

	s.mu.Lock()
	s.entries[sess.UserID] = memoryEntry{session: c, expiresAt: now.Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

// Len 目前保存的使用者數
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats 健康檢查使用的統計
func (s *MemoryStore) Stats() map[string]interface{} {
	return map[string]interface{}{
		"backend": "memory",
		"users":   s.Len(),
		"ttl":     s.ttl.String(),
	}
}

// Close 停止背景清理
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) expired(e memoryEntry) bool {
	return s.ttl > 0 && s.now().After(e.expiresAt)
}

func (s *MemoryStore) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stop:
			return
		}
	}
}

// cleanup 清理過期的使用者狀態
func (s *MemoryStore) cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, id)
			count++
		}
	}
	if count > 0 {
		common.LogDebug("清理過期的使用者狀態",
			zap.Int("count", count),
			zap.Int("remaining", len(s.entries)),
		)
	}
	return count
}
