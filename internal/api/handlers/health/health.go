package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"fridge-helper/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatsProvider 可回報統計資料的元件
type StatsProvider func() map[string]interface{}

// Pinger 就緒檢查使用的外部依賴
type Pinger func(ctx context.Context) error

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status     string                            `json:"status"`
	Timestamp  time.Time                         `json:"timestamp"`
	Version    string                            `json:"version"`
	Runtime    map[string]interface{}            `json:"runtime"`
	Components map[string]map[string]interface{} `json:"components,omitempty"`
}

// Handler 健康檢查處理器
type Handler struct {
	version string
	stats   map[string]StatsProvider
	pingers map[string]Pinger
}

// NewHandler 創建健康檢查處理器
func NewHandler(version string) *Handler {
	return &Handler{
		version: version,
		stats:   make(map[string]StatsProvider),
		pingers: make(map[string]Pinger),
	}
}

// AddStats 註冊元件統計
func (h *Handler) AddStats(name string, p StatsProvider) *Handler {
	h.stats[name] = p
	return h
}

// AddPinger 註冊就緒檢查
func (h *Handler) AddPinger(name string, p Pinger) *Handler {
	h.pingers[name] = p
	return h
}

// Root GET /
func (h *Handler) Root(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Healthz GET /healthz
func (h *Handler) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "healthy")
}

// HealthCheck GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if len(h.stats) > 0 {
		response.Components = make(map[string]map[string]interface{}, len(h.stats))
		for name, p := range h.stats {
			response.Components[name] = p()
		}
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)
	c.JSON(http.StatusOK, response)
}

// ReadinessCheck GET /ready
func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, ping := range h.pingers {
		if err := ping(ctx); err != nil {
			common.LogWarn("就緒檢查失敗", zap.String("component", name), zap.Error(err))
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"failed": failed,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck GET /live
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
