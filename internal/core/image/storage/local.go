package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"fridge-helper/internal/pkg/common"

	"go.uber.org/zap"
)

// URLPrefix 本機圖片對外的路徑前綴
const URLPrefix = "/static/generated"

// LocalStore 將圖片寫在本機目錄，由 HTTP 服務以靜態檔案提供
type LocalStore struct {
	dir     string
	baseURL string
	mu      sync.Mutex
}

// NewLocalStore 創建本機儲存，目錄不存在時會自動建立
func NewLocalStore(dir, publicBaseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	if !strings.HasPrefix(publicBaseURL, "https://") {
		common.LogWarn("PUBLIC_BASE_URL 不是 https，LINE 將無法顯示圖片",
			zap.String("public_base_url", publicBaseURL),
		)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Dir 圖片目錄
func (s *LocalStore) Dir() string {
	return s.dir
}

// URL 物件的公開網址，LINE 只接受 https
func (s *LocalStore) URL(name string) string {
	if !strings.HasPrefix(s.baseURL, "https://") {
		return ""
	}
	return joinURL(s.baseURL, URLPrefix+"/"+name)
}

// Put 寫入圖片
func (s *LocalStore) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, filepath.Base(name))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to move image: %w", err)
	}
	return s.URL(name), nil
}

// Lookup 檢查圖片是否已存在
func (s *LocalStore) Lookup(_ context.Context, name string) (string, bool, error) {
	_, err := os.Stat(filepath.Join(s.dir, filepath.Base(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s.URL(name), true, nil
}

// Prune 依修改時間只保留最新的 keep 張
func (s *LocalStore) Prune(keep int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	type file struct {
		name string
		mod  int64
	}
	files := make([]file, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, file{name: e.Name(), mod: info.ModTime().UnixNano()})
	}
	if len(files) <= keep {
		return nil, nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mod > files[j].mod })

	var removed []string
	for _, f := range files[keep:] {
		if err := os.Remove(filepath.Join(s.dir, f.name)); err != nil {
			common.LogWarn("刪除舊圖片失敗", zap.String("file", f.name), zap.Error(err))
			continue
		}
		removed = append(removed, f.name)
	}
	if len(removed) > 0 {
		common.LogDebug("清理舊圖片", zap.Int("count", len(removed)))
	}
	return removed, nil
}
