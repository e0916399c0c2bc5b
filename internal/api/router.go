package api

import (
	"errors"
	"time"

	"fridge-helper/internal/api/handlers/health"
	"fridge-helper/internal/api/handlers/webhook"
	"fridge-helper/internal/api/middleware"
	"fridge-helper/internal/core/image/storage"
	"fridge-helper/internal/infrastructure/config"
	"fridge-helper/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 路由需要的處理器
type Dependencies struct {
	Webhook *webhook.Handler
	Health  *health.Handler
	// ImageDir 本機圖片目錄，空字串時不提供靜態檔案
	ImageDir string
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Webhook == nil || deps.Health == nil {
		return nil, errors.New("webhook and health handlers are required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))
	router.Use(middleware.Logger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Line-Signature", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodySize))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	router.GET("/", deps.Health.Root)
	router.GET("/healthz", deps.Health.Healthz)
	router.GET("/health", deps.Health.HealthCheck)
	router.GET("/ready", deps.Health.ReadinessCheck)
	router.GET("/live", deps.Health.LivenessCheck)

	// 重送去重在 handler 內以 webhookEventId 處理，被限流的請求不會被記成已處理
	callback := []gin.HandlerFunc{}
	if cfg.RateLimit.Enabled {
		callback = append(callback, middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	callback = append(callback, deps.Webhook.Callback)
	router.POST("/callback", callback...)

	if deps.ImageDir != "" {
		router.Static(storage.URLPrefix, deps.ImageDir)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.String("image_dir", deps.ImageDir),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodySize),
	)
	return router, nil
}
