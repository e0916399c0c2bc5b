package bot

import (
	"fmt"
	"strings"

	"fridge-helper/internal/core/recipe"
)

// Reply 平台無關的回覆訊息
type Reply interface {
	isReply()
}

// QuickReplyItem 快捷按鈕，點擊後送出 Text
type QuickReplyItem struct {
	Label string
	Text  string
}

// TextReply 文字訊息
type TextReply struct {
	Text       string
	QuickReply []QuickReplyItem
}

// CarouselReply 卡片輪播
type CarouselReply struct {
	AltText string
	Cards   []Card
}

func (TextReply) isReply()     {}
func (CarouselReply) isReply() {}

// Line 卡片內文的一行
type Line struct {
	Text string
	Size string
	Bold bool
}

// Button 卡片底部按鈕
type Button struct {
	Label string
	Text  string
}

// Card 單張卡片：標題、可選的主圖、內文與按鈕
type Card struct {
	Title    string
	ImageURL string
	Lines    []Line
	Button   *Button
}

const maxCardIngredients = 12

// quickIngredients 快捷加入的常見食材
var quickIngredients = []string{"雞肉", "牛肉", "豬肉", "雞蛋", "洋蔥", "大蒜"}

// MainMenu 主要按鈕選單
func MainMenu() []QuickReplyItem {
	items := make([]QuickReplyItem, 0, len(quickIngredients)+7)
	for _, ing := range quickIngredients {
		items = append(items, QuickReplyItem{Label: "+" + ing, Text: "加入 " + ing})
	}
	return append(items,
		QuickReplyItem{Label: "🍳 推薦", Text: "推薦"},
		QuickReplyItem{Label: "🔁 換食譜", Text: "換食譜"},
		QuickReplyItem{Label: "➖ 用完", Text: "-"},
		QuickReplyItem{Label: "⬅ 上一頁", Text: "上一頁"},
		QuickReplyItem{Label: "下一頁 ➡", Text: "下一頁"},
		QuickReplyItem{Label: "📦 查看冰箱", Text: "查看冰箱"},
		QuickReplyItem{Label: "🗑 清空", Text: "清空冰箱"},
	)
}

const (
	// LINE 快速回覆最多 13 個
	maxQuickReplies = 13
	// 移除選單固定附上的按鈕數
	removeMenuActions = 4
)

// RemoveMenu 移除食材選單，食材數量受限於快速回覆上限，固定按鈕一定保留
func RemoveMenu(fridgeItems []string) []QuickReplyItem {
	if limit := maxQuickReplies - removeMenuActions; len(fridgeItems) > limit {
		fridgeItems = fridgeItems[:limit]
	}
	items := make([]QuickReplyItem, 0, len(fridgeItems)+removeMenuActions)
	for _, ing := range fridgeItems {
		items = append(items, QuickReplyItem{Label: "➖" + ing, Text: "- " + ing})
	}
	return append(items,
		QuickReplyItem{Label: "🍳 推薦", Text: "推薦"},
		QuickReplyItem{Label: "🔁 換食譜", Text: "換食譜"},
		QuickReplyItem{Label: "📦 查看冰箱", Text: "查看冰箱"},
		QuickReplyItem{Label: "➕ 按鈕選單", Text: "+"},
	)
}

// RecipeCard 食譜卡片，rank 從 1 起算
func RecipeCard(rank int, r recipe.Recipe, imageURL string) Card {
	card := Card{
		Title:    fmt.Sprintf("%d. %s", rank, recipeName(r, rank)),
		ImageURL: imageURL,
		Button:   &Button{Label: fmt.Sprintf("看做法(%d)", rank), Text: fmt.Sprintf("做法 %d", rank)},
	}
	if r.Summary != "" {
		card.Lines = append(card.Lines, Line{Text: r.Summary, Size: "sm"})
	}

	ings := r.Ingredients
	suffix := ""
	if len(ings) > maxCardIngredients {
		ings = ings[:maxCardIngredients]
		suffix = "…"
	}
	card.Lines = append(card.Lines, Line{Text: "🧾 食材：" + strings.Join(ings, "、") + suffix, Size: "sm"})
	return card
}

// StepCard 步驟卡片，n 從 1 起算
func StepCard(n int, text, imageURL string) Card {
	return Card{
		Title:    fmt.Sprintf("步驟 %d", n),
		ImageURL: imageURL,
		Lines:    []Line{{Text: text, Size: "sm"}},
	}
}

// StepsCarousel 指定頁的步驟卡片
func StepsCarousel(steps, imageURLs []string, page, pageSize int) CarouselReply {
	total := len(steps)
	start := page * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	cards := make([]Card, 0, end-start)
	for i := start; i < end; i++ {
		url := ""
		if i < len(imageURLs) {
			url = imageURLs[i]
		}
		cards = append(cards, StepCard(i+1, steps[i], url))
	}
	return CarouselReply{
		AltText: fmt.Sprintf("料理步驟圖（%d-%d/%d）", start+1, end, total),
		Cards:   cards,
	}
}

func recipeName(r recipe.Recipe, rank int) string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("料理 %d", rank)
}

func textReply(msg string, menu []QuickReplyItem) TextReply {
	return TextReply{Text: msg, QuickReply: menu}
}
