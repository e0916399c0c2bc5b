package recipe

import (
	"regexp"
	"strings"
)

var (
	// 食材分隔符：空白、頓號、逗號、分號、斜線、直線
	separatorPattern = regexp.MustCompile(`[\s、,，;；/｜|]+`)

	// 「我家有 xxx」「冰箱有 xxx」「剩下 xxx」
	havePattern = regexp.MustCompile(`(我家有|冰箱裡有|冰箱有|我剩下|剩下|有)\s*(.*)$`)

	fillerTokens = map[string]bool{
		"我": true, "家": true, "有": true, "冰箱": true, "剩下": true, "想": true,
		"煮": true, "做": true, "可以": true, "幫我": true, "一下": true,
	}
)

// NormToken 比對用的正規化：去掉所有空白並轉小寫
func NormToken(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// SplitItems 以分隔符拆出非空的項目
func SplitItems(s string) []string {
	var items []string
	for _, p := range separatorPattern.Split(strings.TrimSpace(s), -1) {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

// HeuristicExtract 模型沒抽到食材時的保底拆詞
func HeuristicExtract(text string) []string {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil
	}

	if m := havePattern.FindStringSubmatch(t); m != nil {
		if tail := strings.TrimSpace(m[2]); tail != "" {
			return SplitItems(tail)
		}
	}

	var parts []string
	for _, p := range SplitItems(t) {
		if !fillerTokens[p] {
			parts = append(parts, p)
		}
	}
	return parts
}

// DedupKeepFirst 依 NormToken 去重，保留第一次出現的寫法
func DedupKeepFirst(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, x := range items {
		x = strings.TrimSpace(x)
		key := NormToken(x)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, x)
	}
	return out
}
