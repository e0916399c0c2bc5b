package main

import (
	"context"
	"fmt"

	"fridge-helper/internal/core/ai/cache"
	"fridge-helper/internal/core/ai/gemini"
	"fridge-helper/internal/core/ai/openai"
	"fridge-helper/internal/core/ai/openrouter"
	"fridge-helper/internal/core/ai/provider"
	"fridge-helper/internal/core/image/storage"
	"fridge-helper/internal/core/session"
	"fridge-helper/internal/infrastructure/config"
	"fridge-helper/internal/pkg/common"

	gcs "cloud.google.com/go/storage"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// needsRedis 任一元件使用 Redis 時才建立連線
func needsRedis(cfg *config.Config) bool {
	return cfg.Session.Backend == config.BackendRedis ||
		(cfg.Cache.Enabled && cfg.Cache.Backend == config.BackendRedis)
}

func newRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect redis %s: %w", cfg.Addr, err)
	}
	common.LogInfo("Redis 已連線", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return client, nil
}

// sessionStore 依設定選擇使用者狀態儲存
type sessionStore interface {
	session.Store
	Stats() map[string]interface{}
}

func newSessionStore(cfg config.SessionConfig, rdb *redis.Client) sessionStore {
	if cfg.Backend == config.BackendRedis {
		return session.NewRedisStore(rdb, cfg.TTL)
	}
	return session.NewMemoryStore(cfg.TTL, cfg.CleanupInterval)
}

// promptCache 圖片快取與其統計
type promptCache interface {
	cache.PromptCache
	GetStats() map[string]interface{}
}

func newPromptCache(cfg config.CacheConfig, rdb *redis.Client) promptCache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Backend == config.BackendRedis {
		return cache.NewService(rdb, cfg.TTL)
	}
	return cache.NewManager(cfg)
}

// lazyGemini 文字與圖片共用同一個 genai 客戶端
type lazyGemini struct {
	apiKey string
	client *genai.Client
}

func (g *lazyGemini) get(ctx context.Context) (*genai.Client, error) {
	if g.client != nil {
		return g.client, nil
	}
	client, err := gemini.NewClient(ctx, g.apiKey)
	if err != nil {
		return nil, err
	}
	g.client = client
	return client, nil
}

func newTextGenerator(ctx context.Context, cfg *config.Config, g *lazyGemini) (provider.TextGenerator, error) {
	switch cfg.AI.TextProvider {
	case config.ProviderOpenRouter:
		return openrouter.NewClient(cfg.OpenRouter), nil
	default:
		client, err := g.get(ctx)
		if err != nil {
			return nil, err
		}
		return gemini.NewTextGenerator(client, cfg.Gemini.TextModel, cfg.AI.Timeout), nil
	}
}

func newImageGenerator(ctx context.Context, cfg *config.Config, g *lazyGemini) (provider.ImageGenerator, error) {
	switch cfg.AI.ImageProvider {
	case config.ProviderOpenAI:
		return openai.NewImageGenerator(cfg.OpenAI), nil
	default:
		client, err := g.get(ctx)
		if err != nil {
			return nil, err
		}
		return gemini.NewImageGenerator(client, cfg.Gemini.ImageModel, cfg.AI.Timeout), nil
	}
}

// newImageStore 回傳圖片儲存與需要對外提供的本機目錄（非本機儲存時為空）
func newImageStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, string, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendGCS:
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, "", noop, fmt.Errorf("failed to create GCS client: %w", err)
		}
		store, err := storage.NewGCSStore(client, cfg.Bucket, cfg.Prefix, cfg.CDNBaseURL)
		if err != nil {
			client.Close()
			return nil, "", noop, err
		}
		return store, "", client.Close, nil

	case config.BackendS3:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, "", noop, fmt.Errorf("failed to load AWS config: %w", err)
		}
		store, err := storage.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix, cfg.CDNBaseURL)
		if err != nil {
			return nil, "", noop, err
		}
		return store, "", noop, nil

	default:
		store, err := storage.NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, "", noop, err
		}
		return store, store.Dir(), noop, nil
	}
}
