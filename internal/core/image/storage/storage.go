package storage

import (
	"context"
	"strings"
)

// Store 圖片儲存後端
type Store interface {
	// Put 寫入物件並回傳公開網址，無法產生公開網址時回傳空字串
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	// Lookup 物件已存在時回傳其公開網址
	Lookup(ctx context.Context, name string) (url string, ok bool, err error)
}

// Pruner 需要自行控制容量的後端
type Pruner interface {
	// Prune 只保留最新的 keep 個物件，回傳被刪除的物件名稱
	Prune(keep int) ([]string, error)
}

// joinURL 組合基底網址與物件路徑
func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
