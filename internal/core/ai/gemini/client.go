package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fridge-helper/internal/core/ai/provider"
	"fridge-helper/internal/pkg/common"

	"google.golang.org/genai"
)

// contentAPI genai.Models 中文字生成的部分
type contentAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// imagesAPI genai.Models 中圖片生成的部分
type imagesAPI interface {
	GenerateImages(ctx context.Context, model string, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// NewClient 以 API key 建立 Gemini Developer API 客戶端
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// TextGenerator 以 Gemini 產生文字
type TextGenerator struct {
	models  contentAPI
	model   string
	timeout time.Duration
}

// NewTextGenerator 創建 Gemini 文字生成器
func NewTextGenerator(client *genai.Client, model string, timeout time.Duration) *TextGenerator {
	return &TextGenerator{models: client.Models, model: model, timeout: timeout}
}

// Model 模型名稱
func (g *TextGenerator) Model() string {
	return g.model
}

// Generate 產生文字，opts.JSON 時要求回傳 application/json
func (g *TextGenerator) Generate(ctx context.Context, prompt string, opts provider.Options) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(opts.Temperature),
	}
	if opts.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	common.LogAICall("text", g.model, time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned empty content")
	}
	return text, nil
}

// ImageGenerator 以 Imagen 產生圖片
type ImageGenerator struct {
	models  imagesAPI
	model   string
	timeout time.Duration
}

// NewImageGenerator 創建 Imagen 圖片生成器
func NewImageGenerator(client *genai.Client, model string, timeout time.Duration) *ImageGenerator {
	return &ImageGenerator{models: client.Models, model: model, timeout: timeout}
}

// Model 模型名稱
func (g *ImageGenerator) Model() string {
	return g.model
}

// GenerateImage 產生一張圖片
func (g *ImageGenerator) GenerateImage(ctx context.Context, prompt string) (*provider.Image, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.models.GenerateImages(ctx, g.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("imagen generate images: %w", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, common.ErrNoImageData
	}

	generated := resp.GeneratedImages[0]
	if generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
		if generated.RAIFilteredReason != "" {
			return nil, common.ErrNoImageData.Wrap(fmt.Errorf("filtered: %s", generated.RAIFilteredReason))
		}
		return nil, common.ErrNoImageData
	}

	mimeType := generated.Image.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return &provider.Image{Data: generated.Image.ImageBytes, MIMEType: mimeType}, nil
}
