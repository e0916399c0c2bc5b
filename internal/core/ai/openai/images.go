package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fridge-helper/internal/core/ai/provider"
	"fridge-helper/internal/infrastructure/config"
	"fridge-helper/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	maxRetries     = 3
)

// ImageRequest 圖片生成請求
type ImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// ImageResponse 圖片生成回應
type ImageResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL           string `json:"url,omitempty"`
		B64JSON       string `json:"b64_json,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ImageGenerator 透過 OpenAI Images API 產生圖片
type ImageGenerator struct {
	client *resty.Client
	model  string
	size   string
}

// NewImageGenerator 創建 OpenAI 圖片生成器
func NewImageGenerator(cfg config.OpenAIConfig) *ImageGenerator {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetRetryCount(maxRetries - 1).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	return &ImageGenerator{client: client, model: cfg.ImageModel, size: cfg.ImageSize}
}

// Model 模型名稱
func (g *ImageGenerator) Model() string {
	return g.model
}

// GenerateImage 產生一張圖片；回應只有網址時再下載內容
func (g *ImageGenerator) GenerateImage(ctx context.Context, prompt string) (*provider.Image, error) {
	req := ImageRequest{
		Model:  g.model,
		Prompt: prompt,
		N:      1,
		Size:   g.size,
	}
	// gpt-image 系列固定回傳 base64，不接受 response_format
	if !strings.HasPrefix(g.model, "gpt-image") {
		req.ResponseFormat = "b64_json"
	}

	var result ImageResponse
	var errBody apiError
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&errBody).
		Post("/images/generations")
	if err != nil {
		return nil, fmt.Errorf("openai images request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("openai images error (status %d): %s", resp.StatusCode(), errBody.Error.Message)
	}
	if len(result.Data) == 0 {
		return nil, common.ErrNoImageData
	}

	item := result.Data[0]
	if item.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, common.ErrInvalidImageFormat.Wrap(err)
		}
		return &provider.Image{Data: data, MIMEType: "image/png"}, nil
	}
	if item.URL != "" {
		return g.download(ctx, item.URL)
	}
	return nil, common.ErrNoImageData
}

func (g *ImageGenerator) download(ctx context.Context, url string) (*provider.Image, error) {
	resp, err := g.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("download generated image: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("download generated image: status %d", resp.StatusCode())
	}
	common.LogDebug("已下載 OpenAI 圖片", zap.Int("bytes", len(resp.Body())))
	return &provider.Image{Data: resp.Body(), MIMEType: resp.Header().Get("Content-Type")}, nil
}
