package image

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"fridge-helper/internal/core/ai/cache"
	"fridge-helper/internal/core/ai/provider"
	"fridge-helper/internal/core/image/storage"
	"fridge-helper/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Illustrator 將 prompt 畫成圖並回傳公開網址
// 檔名以 prompt 的 SHA-256 命名，相同 prompt 只會生成一次
type Illustrator struct {
	generator provider.ImageGenerator
	images    *Service
	store     storage.Store
	cache     cache.PromptCache
	keep      int
	group     singleflight.Group
}

// NewIllustrator 創建插圖服務；promptCache 可為 nil
func NewIllustrator(generator provider.ImageGenerator, images *Service, store storage.Store, promptCache cache.PromptCache, keep int) *Illustrator {
	return &Illustrator{
		generator: generator,
		images:    images,
		store:     store,
		cache:     promptCache,
		keep:      keep,
	}
}

// Illustrate 取得 prompt 對應的圖片網址
// 回傳空字串代表圖片已生成但沒有可公開的網址
func (i *Illustrator) Illustrate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", common.ErrEmptyPrompt
	}
	key := common.HashString(prompt)

	if i.cache != nil {
		url, err := i.cache.Get(ctx, key)
		if err == nil && url != "" {
			return url, nil
		}
		if err != nil && !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("讀取圖片快取失敗", zap.Error(err))
		}
	}

	v, err, shared := i.group.Do(key, func() (interface{}, error) {
		return i.render(ctx, key, prompt)
	})
	if err != nil {
		return "", err
	}
	if shared {
		common.LogDebug("共用進行中的圖片生成", zap.String("key", key))
	}
	return v.(string), nil
}

func (i *Illustrator) render(ctx context.Context, key, prompt string) (string, error) {
	if url, ok := i.lookup(ctx, key); ok {
		i.remember(ctx, key, url)
		return url, nil
	}

	start := time.Now()
	img, err := i.generator.GenerateImage(ctx, prompt)
	common.LogAICall("image", i.generator.Model(), time.Since(start), err)
	if err != nil {
		return "", common.ErrAIServiceError.Wrap(err)
	}
	if img == nil || len(img.Data) == 0 {
		return "", common.ErrNoImageData
	}

	normalized, err := i.images.Normalize(img.Data)
	if err != nil {
		return "", err
	}

	i.prune(ctx)

	url, err := i.store.Put(ctx, key+normalized.Ext, normalized.Data, normalized.ContentType)
	if err != nil {
		return "", err
	}
	i.remember(ctx, key, url)
	return url, nil
}

// lookup 依序找各種副檔名的既有圖片，無法轉檔的圖片會以原格式保存
func (i *Illustrator) lookup(ctx context.Context, key string) (string, bool) {
	for _, ext := range storedExts {
		url, ok, err := i.store.Lookup(ctx, key+ext)
		if err != nil {
			common.LogWarn("查詢既有圖片失敗", zap.String("key", key), zap.String("ext", ext), zap.Error(err))
			return "", false
		}
		if ok {
			return url, true
		}
	}
	return "", false
}

func (i *Illustrator) remember(ctx context.Context, key, url string) {
	if i.cache == nil || url == "" {
		return
	}
	if err := i.cache.Set(ctx, key, url); err != nil {
		common.LogWarn("寫入圖片快取失敗", zap.Error(err))
	}
}

// prune 寫入前先清理舊圖，並讓對應的快取失效
func (i *Illustrator) prune(ctx context.Context) {
	p, ok := i.store.(storage.Pruner)
	if !ok || i.keep <= 0 {
		return
	}
	removed, err := p.Prune(i.keep - 1)
	if err != nil {
		common.LogWarn("清理舊圖片失敗", zap.Error(err))
		return
	}
	if i.cache == nil {
		return
	}
	for _, name := range removed {
		key := strings.TrimSuffix(name, path.Ext(name))
		if err := i.cache.Delete(ctx, key); err != nil {
			common.LogWarn("移除圖片快取失敗", zap.Error(err))
		}
	}
}

// IllustrateAll 平行生成多張圖，失敗或空 prompt 的位置回傳空字串
func (i *Illustrator) IllustrateAll(ctx context.Context, prompts []string, concurrency int) []string {
	urls := make([]string, len(prompts))
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for idx, p := range prompts {
		idx, p := idx, p
		g.Go(func() error {
			url, err := i.Illustrate(gctx, p)
			if err != nil {
				common.LogWarn("圖片生成失敗，改用無圖卡片",
					zap.Int("index", idx),
					zap.Error(err),
				)
				return nil
			}
			urls[idx] = url
			return nil
		})
	}
	_ = g.Wait()
	return urls
}
