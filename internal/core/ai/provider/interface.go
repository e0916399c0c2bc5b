package provider

import (
	"context"
)

// Options 單次文字生成的參數
type Options struct {
	Temperature float32 // 取樣溫度
	JSON        bool    // 要求模型只輸出 JSON
}

// TextGenerator 定義文字生成供應商介面
type TextGenerator interface {
	// Generate 根據 prompt 產生文字
	Generate(ctx context.Context, prompt string, opts Options) (string, error)

	// Model 目前使用的模型名稱
	Model() string
}

// Image 生成後的圖片內容
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageGenerator 定義圖片生成供應商介面
type ImageGenerator interface {
	// GenerateImage 將 prompt 繪製成一張圖片
	GenerateImage(ctx context.Context, prompt string) (*Image, error)

	// Model 目前使用的模型名稱
	Model() string
}
