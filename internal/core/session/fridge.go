package session

import (
	"strings"

	"fridge-helper/internal/core/recipe"
)

// FridgeItem 冰箱內的一項食材
type FridgeItem struct {
	Key     string `json:"key"`     // 正規化後的比對鍵
	Display string `json:"display"` // 使用者原本的寫法
}

// Fridge 保持加入順序的虛擬冰箱
type Fridge struct {
	Items []FridgeItem `json:"items"`
}

// List 依加入順序回傳顯示字串
func (f *Fridge) List() []string {
	out := make([]string, 0, len(f.Items))
	for _, it := range f.Items {
		out = append(out, it.Display)
	}
	return out
}

// Len 食材數量
func (f *Fridge) Len() int {
	return len(f.Items)
}

// Add 加入食材，回傳實際新增的項目
func (f *Fridge) Add(items []string) []string {
	var added []string
	for _, x := range items {
		x = strings.TrimSpace(x)
		key := recipe.NormToken(x)
		if key == "" || f.has(key) {
			continue
		}
		f.Items = append(f.Items, FridgeItem{Key: key, Display: x})
		added = append(added, x)
	}
	return added
}

// Remove 模糊移除：相等或互相包含都算同一項，回傳被移除的顯示字串
func (f *Fridge) Remove(items []string) []string {
	var targets []string
	for _, x := range items {
		if t := recipe.NormToken(x); t != "" {
			targets = append(targets, t)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	var removed []string
	kept := f.Items[:0]
	for _, it := range f.Items {
		if matchesAny(it.Key, targets) {
			removed = append(removed, it.Display)
			continue
		}
		kept = append(kept, it)
	}
	f.Items = kept
	return removed
}

// Clear 清空冰箱
func (f *Fridge) Clear() {
	f.Items = nil
}

func (f *Fridge) has(key string) bool {
	for _, it := range f.Items {
		if it.Key == key {
			return true
		}
	}
	return false
}

func matchesAny(key string, targets []string) bool {
	for _, t := range targets {
		if t == key || strings.Contains(key, t) || strings.Contains(t, key) {
			return true
		}
	}
	return false
}
