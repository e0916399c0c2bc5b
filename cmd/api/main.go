package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fridge-helper/internal/api"
	"fridge-helper/internal/api/handlers/health"
	"fridge-helper/internal/api/handlers/webhook"
	"fridge-helper/internal/core/ai/cache"
	"fridge-helper/internal/core/bot"
	"fridge-helper/internal/core/image"
	"fridge-helper/internal/core/recipe"
	"fridge-helper/internal/infrastructure/config"
	"fridge-helper/internal/line"
	"fridge-helper/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := common.InitLogger(cfg.LogLevel, cfg.Log.Dir); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	if err := run(cfg); err != nil {
		common.LogFatal("服務異常結束", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	var rdb *redis.Client
	if needsRedis(cfg) {
		client, err := newRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		rdb = client
	}

	sessions := newSessionStore(cfg.Session, rdb)
	defer sessions.Close()

	promptCache := newPromptCache(cfg.Cache, rdb)
	var illustratorCache cache.PromptCache
	if promptCache != nil {
		illustratorCache = promptCache
		defer promptCache.Close()
	}

	g := &lazyGemini{apiKey: cfg.Gemini.APIKey}
	textGen, err := newTextGenerator(ctx, cfg, g)
	if err != nil {
		return err
	}
	imageGen, err := newImageGenerator(ctx, cfg, g)
	if err != nil {
		return err
	}

	store, imageDir, closeStore, err := newImageStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	illustrator := image.NewIllustrator(
		imageGen,
		image.NewService(cfg.Image.MaxSizeBytes, cfg.Image.JPEGQuality),
		store,
		illustratorCache,
		cfg.Storage.MaxKeepImages,
	)

	botSvc := bot.NewService(
		recipe.NewRecipeService(textGen, cfg.Bot.TopUpAttempts),
		illustrator,
		sessions,
		bot.Options{
			RecipeCount:      cfg.Bot.RecipeCount,
			PageSize:         cfg.Bot.PageSize,
			MaxStepImages:    cfg.Bot.MaxStepImages,
			ImageConcurrency: cfg.Image.Concurrency,
		},
	)

	replier, err := line.NewReplier(cfg.Line.ChannelAccessToken)
	if err != nil {
		return err
	}
	dedup := webhook.NewDeduplicator(cfg.DedupWindow)
	defer dedup.Close()
	hook := webhook.NewHandler(cfg.Line.ChannelSecret, botSvc, replier, cfg.AI.Timeout*3,
		webhook.WithDeduplicator(dedup))

	healthHandler := health.NewHandler(cfg.App.Version).
		AddStats("sessions", sessions.Stats)
	if promptCache != nil {
		healthHandler.AddStats("image_cache", promptCache.GetStats)
	}
	if rdb != nil {
		healthHandler.AddPinger("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	router, err := api.SetupRouter(cfg, api.Dependencies{
		Webhook:  hook,
		Health:   healthHandler,
		ImageDir: imageDir,
	})
	if err != nil {
		return fmt.Errorf("failed to setup router: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
			zap.String("text_model", textGen.Model()),
			zap.String("image_model", imageGen.Model()),
			zap.String("storage", cfg.Storage.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}

	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// 等待背景中的 webhook 事件處理完再關閉儲存
	hook.Wait()
	common.LogInfo("Server exited")
	return nil
}
