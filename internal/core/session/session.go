package session

import (
	"context"
	"strings"
	"time"

	"fridge-helper/internal/core/recipe"
)

// Store 使用者狀態儲存介面
type Store interface {
	// Load 讀取使用者狀態，不存在時回傳新的空狀態
	Load(ctx context.Context, userID string) (*Session, error)
	// Save 寫入使用者狀態並刷新存活時間
	Save(ctx context.Context, s *Session) error
	// Close 釋放資源
	Close() error
}

// Session 單一使用者的對話狀態
type Session struct {
	UserID        string          `json:"user_id"`
	Fridge        Fridge          `json:"fridge"`
	RecentRecipes []recipe.Recipe `json:"recent_recipes,omitempty"`
	LastUsed      []string        `json:"last_used,omitempty"`
	LastTitles    []string        `json:"last_titles,omitempty"`
	StepView      *StepView       `json:"step_view,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// New 建立空的使用者狀態
func New(userID string) *Session {
	return &Session{UserID: userID}
}

// Reset 清空冰箱與所有推薦相關狀態
func (s *Session) Reset() {
	s.Fridge.Clear()
	s.RecentRecipes = nil
	s.LastUsed = nil
	s.LastTitles = nil
	s.StepView = nil
}

// FridgeText 冰箱內容的顯示文字
func (s *Session) FridgeText() string {
	items := s.Fridge.List()
	if len(items) == 0 {
		return "你的冰箱目前：（空的）"
	}
	return "你的冰箱目前：" + strings.Join(items, "、")
}

// Clone 深拷貝，避免呼叫端與儲存層共用切片
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Fridge = Fridge{Items: append([]FridgeItem(nil), s.Fridge.Items...)}
	c.LastUsed = append([]string(nil), s.LastUsed...)
	c.LastTitles = append([]string(nil), s.LastTitles...)
	if s.RecentRecipes != nil {
		c.RecentRecipes = make([]recipe.Recipe, len(s.RecentRecipes))
		for i, r := range s.RecentRecipes {
			r.Ingredients = append([]string(nil), r.Ingredients...)
			r.Steps = append([]string(nil), r.Steps...)
			c.RecentRecipes[i] = r
		}
	}
	if s.StepView != nil {
		sv := *s.StepView
		sv.Steps = append([]string(nil), s.StepView.Steps...)
		sv.ImageURLs = append([]string(nil), s.StepView.ImageURLs...)
		c.StepView = &sv
	}
	return &c
}

// StepView 目前正在翻閱的步驟圖
type StepView struct {
	RecipeIndex int      `json:"recipe_index"`
	RecipeName  string   `json:"recipe_name"`
	Steps       []string `json:"steps"`
	ImageURLs   []string `json:"image_urls"` // 與 Steps 等長，空字串代表沒有圖
	Page        int      `json:"page"`
}

// MaxPage 依每頁數量計算最後一頁（從 0 起算）
func (v *StepView) MaxPage(pageSize int) int {
	if pageSize <= 0 || len(v.Steps) == 0 {
		return 0
	}
	return (len(v.Steps) - 1) / pageSize
}

// Move 依 delta 翻頁並限制在 [0, MaxPage]
func (v *StepView) Move(delta, pageSize int) int {
	page := v.Page + delta
	if page < 0 {
		page = 0
	}
	if last := v.MaxPage(pageSize); page > last {
		page = last
	}
	v.Page = page
	return page
}
