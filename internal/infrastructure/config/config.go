package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 支援的後端名稱
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderImagen     = "imagen"
	ProviderOpenAI     = "openai"

	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendLocal  = "local"
	BackendGCS    = "gcs"
	BackendS3     = "s3"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	Line        LineConfig       `mapstructure:"line"`
	AI          AIConfig         `mapstructure:"ai"`
	Gemini      GeminiConfig     `mapstructure:"gemini"`
	OpenRouter  OpenRouterConfig `mapstructure:"openrouter"`
	OpenAI      OpenAIConfig     `mapstructure:"openai"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Image       ImageConfig      `mapstructure:"image"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Session     SessionConfig    `mapstructure:"session"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Bot         BotConfig        `mapstructure:"bot"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	Log         LogConfig        `mapstructure:"log"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
	LogLevel    string           `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodySize    int64         `mapstructure:"max_body_size"`
}

// LineConfig LINE Messaging API 憑證
type LineConfig struct {
	ChannelSecret      string `mapstructure:"channel_secret"`
	ChannelAccessToken string `mapstructure:"channel_access_token"`
	KeysFile           string `mapstructure:"keys_file"`
}

// AIConfig 選擇文字與圖片的供應商
type AIConfig struct {
	TextProvider  string        `mapstructure:"text_provider"`
	ImageProvider string        `mapstructure:"image_provider"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// GeminiConfig Gemini / Imagen 設定
type GeminiConfig struct {
	APIKey     string `mapstructure:"api_key"`
	TextModel  string `mapstructure:"text_model"`
	ImageModel string `mapstructure:"image_model"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// OpenAIConfig OpenAI 圖片生成設定
type OpenAIConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	ImageModel string        `mapstructure:"image_model"`
	ImageSize  string        `mapstructure:"image_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// StorageConfig 圖片儲存設定
type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	LocalDir      string `mapstructure:"local_dir"`
	PublicBaseURL string `mapstructure:"public_base_url"` // 本服務的對外網址，只用於本機儲存
	CDNBaseURL    string `mapstructure:"cdn_base_url"`    // gcs/s3 物件網址的替代前綴
	MaxKeepImages int    `mapstructure:"max_keep_images"`
	Bucket        string `mapstructure:"bucket"`
	Prefix        string `mapstructure:"prefix"`
	Region        string `mapstructure:"region"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
	JPEGQuality  int   `mapstructure:"jpeg_quality"`
	Concurrency  int   `mapstructure:"concurrency"`
}

// CacheConfig 提示詞圖片快取配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// SessionConfig 使用者狀態設定
type SessionConfig struct {
	Backend         string        `mapstructure:"backend"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// BotConfig 聊天機器人行為設定
type BotConfig struct {
	RecipeCount   int `mapstructure:"recipe_count"`
	PageSize      int `mapstructure:"page_size"`
	MaxStepImages int `mapstructure:"max_step_images"`
	TopUpAttempts int `mapstructure:"top_up_attempts"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LogConfig 日誌設定
type LogConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時直接使用環境變數
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return Load(viper.New())
}

// Load 以指定的 viper 實例解析設定
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(config.Storage.PublicBaseURL), "/")
	config.Storage.CDNBaseURL = strings.TrimRight(strings.TrimSpace(config.Storage.CDNBaseURL), "/")

	if err := loadLineKeys(&config.Line); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	fmt.Println("Loading configuration",
		"text_provider:", config.AI.TextProvider,
		"image_provider:", config.AI.ImageProvider,
		"gemini_api_key:", maskAPIKey(config.Gemini.APIKey),
		"storage:", config.Storage.Backend,
	)

	return &config, nil
}

func bindEnvs(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("line.channel_secret", "CHANNEL_SECRET")
	v.BindEnv("line.channel_access_token", "CHANNEL_ACCESS_TOKEN")
	v.BindEnv("line.keys_file", "LINE_KEYS_FILE")
	v.BindEnv("ai.text_provider", "TEXT_PROVIDER")
	v.BindEnv("ai.image_provider", "IMAGE_PROVIDER")
	v.BindEnv("gemini.api_key", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	v.BindEnv("gemini.text_model", "GEMINI_TEXT_MODEL")
	v.BindEnv("gemini.image_model", "IMAGE_MODEL")
	v.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	v.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	v.BindEnv("openrouter.max_tokens", "MODEL_MAX_TOKENS")
	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("openai.image_model", "OPENAI_IMAGE_MODEL")
	v.BindEnv("storage.backend", "STORAGE_BACKEND")
	v.BindEnv("storage.public_base_url", "PUBLIC_BASE_URL")
	v.BindEnv("storage.cdn_base_url", "STORAGE_PUBLIC_BASE_URL")
	v.BindEnv("storage.max_keep_images", "MAX_KEEP_IMAGES")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("storage.region", "AWS_REGION")
	v.BindEnv("cache.enabled", "CACHE_ENABLED")
	v.BindEnv("cache.backend", "CACHE_BACKEND")
	v.BindEnv("session.backend", "SESSION_BACKEND")
	v.BindEnv("session.ttl", "SESSION_TTL")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("bot.max_step_images", "MAX_STEP_IMAGES")
	v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	v.BindEnv("dedup_window", "DEDUP_WINDOW")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("log.dir", "LOG_DIR")
}

// loadLineKeys 環境變數缺少 LINE 憑證時，改讀 KEY=VALUE 格式的金鑰檔
func loadLineKeys(line *LineConfig) error {
	if line.ChannelSecret != "" && line.ChannelAccessToken != "" {
		return nil
	}
	if line.KeysFile == "" {
		return fmt.Errorf("missing CHANNEL_SECRET / CHANNEL_ACCESS_TOKEN")
	}

	keys, err := godotenv.Read(line.KeysFile)
	if err != nil {
		return fmt.Errorf("missing CHANNEL_SECRET / CHANNEL_ACCESS_TOKEN and cannot read %s: %w", line.KeysFile, err)
	}
	if line.ChannelSecret == "" {
		line.ChannelSecret = strings.TrimSpace(keys["CHANNEL_SECRET"])
	}
	if line.ChannelAccessToken == "" {
		line.ChannelAccessToken = strings.TrimSpace(keys["CHANNEL_ACCESS_TOKEN"])
	}
	if line.ChannelSecret == "" || line.ChannelAccessToken == "" {
		return fmt.Errorf("%s must contain CHANNEL_SECRET and CHANNEL_ACCESS_TOKEN", line.KeysFile)
	}
	return nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "fridge-helper")

	// 伺服器設定
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "170s")
	v.SetDefault("server.max_body_size", 1<<20)

	// LINE
	v.SetDefault("line.channel_secret", "")
	v.SetDefault("line.channel_access_token", "")
	v.SetDefault("line.keys_file", "keys.txt")

	// AI 供應商
	v.SetDefault("ai.text_provider", ProviderGemini)
	v.SetDefault("ai.image_provider", ProviderImagen)
	v.SetDefault("ai.timeout", "90s")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.text_model", "gemini-2.5-flash")
	v.SetDefault("gemini.image_model", "imagen-4.0-generate-001")

	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "google/gemini-2.5-flash")
	v.SetDefault("openrouter.max_tokens", 4096)
	v.SetDefault("openrouter.timeout", "90s")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.image_model", "dall-e-3")
	v.SetDefault("openai.image_size", "1024x1024")
	v.SetDefault("openai.timeout", "120s")

	// 圖片儲存
	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.local_dir", "static/generated")
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.cdn_base_url", "")
	v.SetDefault("storage.max_keep_images", 200)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "generated/")
	v.SetDefault("storage.region", "ap-northeast-1")

	// 圖片設定
	v.SetDefault("image.max_size_bytes", 10*1024*1024) // 10MB
	v.SetDefault("image.jpeg_quality", 85)
	v.SetDefault("image.concurrency", 4)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// 使用者狀態
	v.SetDefault("session.backend", BackendMemory)
	v.SetDefault("session.ttl", "72h")
	v.SetDefault("session.cleanup_interval", "10m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// 機器人行為
	v.SetDefault("bot.recipe_count", 3)
	v.SetDefault("bot.page_size", 5)
	v.SetDefault("bot.max_step_images", 12)
	v.SetDefault("bot.top_up_attempts", 2)

	// 限流設定
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("log.dir", "logs")
	v.SetDefault("dedup_window", "1m")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}

	switch config.AI.TextProvider {
	case ProviderGemini:
		if config.Gemini.APIKey == "" {
			return fmt.Errorf("missing GEMINI_API_KEY (or GOOGLE_API_KEY)")
		}
	case ProviderOpenRouter:
		if config.OpenRouter.APIKey == "" {
			return fmt.Errorf("missing OPENROUTER_API_KEY")
		}
	default:
		return fmt.Errorf("unknown text provider %q", config.AI.TextProvider)
	}

	switch config.AI.ImageProvider {
	case ProviderImagen:
		if config.Gemini.APIKey == "" {
			return fmt.Errorf("missing GEMINI_API_KEY (or GOOGLE_API_KEY)")
		}
	case ProviderOpenAI:
		if config.OpenAI.APIKey == "" {
			return fmt.Errorf("missing OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown image provider %q", config.AI.ImageProvider)
	}

	switch config.Storage.Backend {
	case BackendLocal:
		if config.Storage.LocalDir == "" {
			return fmt.Errorf("storage local_dir is required")
		}
		if config.Storage.MaxKeepImages <= 0 {
			return fmt.Errorf("invalid MAX_KEEP_IMAGES")
		}
	case BackendGCS, BackendS3:
		if config.Storage.Bucket == "" {
			return fmt.Errorf("storage bucket is required for %s", config.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}

	if config.Cache.Enabled {
		if config.Cache.Backend != BackendMemory && config.Cache.Backend != BackendRedis {
			return fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
		}
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Session.Backend != BackendMemory && config.Session.Backend != BackendRedis {
		return fmt.Errorf("unknown session backend %q", config.Session.Backend)
	}
	if config.Session.TTL <= 0 {
		return fmt.Errorf("invalid session ttl")
	}

	if config.Bot.RecipeCount <= 0 || config.Bot.PageSize <= 0 {
		return fmt.Errorf("invalid bot recipe_count / page_size")
	}
	if config.Bot.MaxStepImages < 1 {
		config.Bot.MaxStepImages = 1
	}
	if config.Image.Concurrency <= 0 {
		return fmt.Errorf("invalid image concurrency")
	}

	return nil
}
