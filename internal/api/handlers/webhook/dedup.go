package webhook

import (
	"sync"
	"time"
)

// Deduplicator 記錄最近處理過的 webhookEventId
// LINE 在沒收到 2xx 時會重送同一事件（isRedelivery=true），視窗內重複的事件不再處理
type Deduplicator struct {
	mu     sync.Mutex
	window time.Duration
	events map[string]time.Time
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

// NewDeduplicator 創建去重器並啟動背景清理
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = time.Minute
	}
	d := &Deduplicator{
		window: window,
		events: make(map[string]time.Time),
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go d.startCleanup(10 * window)
	return d
}

// Seen 回報事件是否在視窗內出現過，並記錄這次出現
func (d *Deduplicator) Seen(eventID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.events[eventID]; ok && now.Sub(last) <= d.window {
		return true
	}
	d.events[eventID] = now
	return false
}

// Len 目前記錄的事件數
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

// Close 停止背景清理
func (d *Deduplicator) Close() {
	d.once.Do(func() { close(d.stop) })
}

func (d *Deduplicator) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.cleanup()
		case <-d.stop:
			return
		}
	}
}

func (d *Deduplicator) cleanup() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	removed := 0
	for k, t := range d.events {
		if now.Sub(t) > d.window {
			delete(d.events, k)
			removed++
		}
	}
	return removed
}
