package bot

import (
	"regexp"
	"strconv"
	"strings"

	"fridge-helper/internal/core/recipe"
)

// Kind 指令種類
type Kind int

const (
	// KindFreeText 其他任何訊息，當作推薦用的食材描述
	KindFreeText Kind = iota
	KindRecommend
	KindMenu
	KindRemoveMenu
	KindRemove
	KindNextPage
	KindPrevPage
	KindShowFridge
	KindClearFridge
	KindAdd
	KindSteps
	KindSwap
)

var kindNames = map[Kind]string{
	KindFreeText:    "free_text",
	KindRecommend:   "recommend",
	KindMenu:        "menu",
	KindRemoveMenu:  "remove_menu",
	KindRemove:      "remove",
	KindNextPage:    "next_page",
	KindPrevPage:    "prev_page",
	KindShowFridge:  "show_fridge",
	KindClearFridge: "clear_fridge",
	KindAdd:         "add",
	KindSteps:       "steps",
	KindSwap:        "swap",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command 解析後的使用者指令
type Command struct {
	Kind  Kind
	Text  string   // 原始訊息（已去除前後空白）
	Items []string // 加入/移除的食材
	Index int      // 做法編號，從 1 起算
}

var (
	menuWords       = wordSet("+", "開啟按鈕選單", "按鈕選單", "選單", "menu", "MENU")
	removeMenuWords = wordSet("-", "用完食材", "移除食材", "刪食材", "減食材")
	nextWords       = wordSet("下一頁", "下一", "next")
	prevWords       = wordSet("上一頁", "上一", "prev")
	fridgeWords     = wordSet("查看冰箱", "冰箱", "我的冰箱")
	clearWords      = wordSet("清空冰箱", "清空", "重置冰箱", "清空全部")
	swapWords       = wordSet("換食譜", "換", "重新推薦", "再推薦")
	recommendWords  = wordSet("推薦", "給我食譜", "食譜", "煮什麼", "今天煮什麼")

	removePattern = regexp.MustCompile(`^-\s*(.+)$`)
	addPattern    = regexp.MustCompile(`^(加入|加)\s*(.+)$`)
	stepsPattern  = regexp.MustCompile(`^做法\s*(\d+)\s*$`)
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func in(set map[string]struct{}, text string) bool {
	_, ok := set[text]
	return ok
}

// Parse 依固定順序比對，第一個符合的規則勝出
func Parse(text string) Command {
	text = strings.TrimSpace(text)
	cmd := Command{Kind: KindFreeText, Text: text}

	switch {
	case in(menuWords, text):
		cmd.Kind = KindMenu
	case in(removeMenuWords, text):
		cmd.Kind = KindRemoveMenu
	case removePattern.MatchString(text):
		cmd.Kind = KindRemove
		cmd.Items = recipe.SplitItems(removePattern.FindStringSubmatch(text)[1])
	case in(nextWords, text):
		cmd.Kind = KindNextPage
	case in(prevWords, text):
		cmd.Kind = KindPrevPage
	case in(fridgeWords, text):
		cmd.Kind = KindShowFridge
	case in(clearWords, text):
		cmd.Kind = KindClearFridge
	case addPattern.MatchString(text):
		cmd.Kind = KindAdd
		cmd.Items = recipe.SplitItems(addPattern.FindStringSubmatch(text)[2])
	case stepsPattern.MatchString(text):
		cmd.Kind = KindSteps
		n, err := strconv.Atoi(stepsPattern.FindStringSubmatch(text)[1])
		if err != nil {
			n = 0
		}
		cmd.Index = n
	case in(swapWords, text):
		cmd.Kind = KindSwap
	case in(recommendWords, text):
		cmd.Kind = KindRecommend
	}
	return cmd
}
