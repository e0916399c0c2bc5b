package image

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	"fridge-helper/internal/pkg/common"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // 支援 WebP
)

// Service 圖片處理服務
type Service struct {
	maxSizeBytes int64
	quality      int
}

// Normalized 轉檔後的圖片
type Normalized struct {
	Data        []byte
	ContentType string
	Ext         string
}

// NewService 創建新的圖片處理服務
func NewService(maxSizeBytes int64, quality int) *Service {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Service{
		maxSizeBytes: maxSizeBytes,
		quality:      quality,
	}
}

// Normalize 將生成的圖片統一轉成 JPEG
// 無法解碼的資料保留原樣，依內容判斷副檔名
func (s *Service) Normalize(data []byte) (*Normalized, error) {
	if len(data) == 0 {
		return nil, common.ErrNoImageData
	}
	if s.maxSizeBytes > 0 && int64(len(data)) > s.maxSizeBytes {
		return nil, common.ErrInvalidImageSize.Wrap(fmt.Errorf("%d bytes exceeds %d", len(data), s.maxSizeBytes))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		contentType := http.DetectContentType(data)
		ext, ok := extByContentType[contentType]
		if !ok {
			return nil, common.ErrInvalidImageFormat.Wrap(err)
		}
		common.LogWarn("圖片無法解碼，保留原始格式",
			zap.String("content_type", contentType),
			zap.Error(err),
		)
		return &Normalized{Data: data, ContentType: contentType, Ext: ext}, nil
	}

	if !isSupportedFormat(format) {
		return nil, common.ErrInvalidImageFormat.Wrap(fmt.Errorf("unsupported image format: %s", format))
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image as JPEG: %w", err)
	}

	return &Normalized{Data: buf.Bytes(), ContentType: "image/jpeg", Ext: ".jpg"}, nil
}

// storedExts 可能的儲存副檔名，JPEG 最常見放最前面
var storedExts = []string{".jpg", ".png", ".gif", ".webp"}

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"webp": true,
	}
	return supportedFormats[format]
}
