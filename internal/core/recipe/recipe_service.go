package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"fridge-helper/internal/core/ai/provider"
	"fridge-helper/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	recipeTemperature = 0.6
	topUpTemperature  = 0.7
	stepsTemperature  = 0.5

	// prompt 中最多列出的避開菜名
	maxAvoidTitles = 12
)

// RecipeService 食譜生成服務
type RecipeService struct {
	text          provider.TextGenerator
	topUpAttempts int
}

// NewRecipeService 創建新的食譜生成服務
func NewRecipeService(text provider.TextGenerator, topUpAttempts int) *RecipeService {
	if topUpAttempts < 0 {
		topUpAttempts = 0
	}
	return &RecipeService{
		text:          text,
		topUpAttempts: topUpAttempts,
	}
}

// rawGeneration 模型回傳的原始格式
// 兩個欄位都先保留原文，不是陣列時視為空的，recipes 再逐筆解析以略過壞掉的項目
type rawGeneration struct {
	Ingredients json.RawMessage `json:"ingredients"`
	Recipes     json.RawMessage `json:"recipes"`
}

// GenerateRecipes 抽取食材並產生剛好 req.Count 道食譜
// 第一次回傳不足時會用較高溫度補問，最後結果仍可能少於 req.Count，由呼叫端判斷
func (s *RecipeService) GenerateRecipes(ctx context.Context, req Request) (*Generation, error) {
	if req.Count <= 0 {
		req.Count = 3
	}

	content, err := s.text.Generate(ctx, buildRecipePrompt(req), provider.Options{
		Temperature: recipeTemperature,
		JSON:        true,
	})
	if err != nil {
		return nil, common.ErrAIServiceError.Wrap(err)
	}

	var raw rawGeneration
	if err := common.ExtractJSONObject(content, &raw); err != nil {
		common.LogWarn("食譜 JSON 解析失敗",
			zap.Int("ai_response_length", len(content)),
			zap.Error(err),
		)
		return nil, common.ErrMalformedAIResponse.Wrap(err)
	}

	ingredients := DedupKeepFirst(decodeStrings(rawList(raw.Ingredients)))
	recipes := decodeRecipes(rawList(raw.Recipes))

	for attempt := 1; len(recipes) < req.Count && attempt <= s.topUpAttempts; attempt++ {
		common.LogInfo("食譜數量不足，補問模型",
			zap.Int("have", len(recipes)),
			zap.Int("want", req.Count),
			zap.Int("attempt", attempt),
		)
		more, err := s.topUp(ctx, req, ingredients, recipes)
		if err != nil {
			common.LogWarn("補問食譜失敗", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		recipes = mergeRecipes(recipes, more)
	}

	if len(recipes) > req.Count {
		recipes = recipes[:req.Count]
	}

	return &Generation{
		Ingredients: ingredients,
		Recipes:     recipes,
	}, nil
}

func (s *RecipeService) topUp(ctx context.Context, req Request, extracted []string, have []Recipe) ([]Recipe, error) {
	avoid := append([]string{}, req.AvoidTitles...)
	for _, r := range have {
		avoid = append(avoid, r.Name)
	}
	pool := DedupKeepFirst(append(append([]string{}, req.FridgeItems...), extracted...))

	prompt := fmt.Sprintf(`只輸出 JSON（不要任何其他文字）。
用這些食材生成「剛好 %d 道」recipes（格式同前：{"recipes":[{"name","summary","ingredients","steps","image_prompt"}]}），且避開菜名：%s
食材：%s
並且仍要保留部位/品項寫法，不要泛化成大分類。`,
		req.Count, joinOr(avoid, "（無）"), joinOr(pool, "（空）"))

	content, err := s.text.Generate(ctx, prompt, provider.Options{
		Temperature: topUpTemperature,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	var raw rawGeneration
	if err := common.ExtractJSONObject(content, &raw); err != nil {
		return nil, err
	}
	return decodeRecipes(rawList(raw.Recipes)), nil
}

// StepsWithPrompts 將步驟改寫得更清楚，並為每一步產生英文示意圖 prompt
func (s *RecipeService) StepsWithPrompts(ctx context.Context, recipeName string, steps []string) ([]StepPrompt, error) {
	stepsJSON, _ := json.Marshal(steps)

	prompt := fmt.Sprintf(`只輸出 JSON（不要任何其他文字）。
你要把每個步驟改寫得更清楚（繁體中文），並為每個步驟提供「英文」示意圖 prompt（教學感、手在做事、看圖就懂，不要有文字/水印）。

菜名：%s
步驟（原始）：%s

輸出格式：
{
  "steps": [
    {
      "text": "中文步驟（清楚簡短）",
      "image_prompt": "English prompt for a photorealistic instructional cooking image showing THIS step in action (hands, utensils, ingredients), kitchen setting, natural lighting, no text, no watermark"
    }
  ]
}

規則：
- steps 數量要與原始步驟一致
- image_prompt 一定要英文`, recipeName, string(stepsJSON))

	content, err := s.text.Generate(ctx, prompt, provider.Options{
		Temperature: stepsTemperature,
		JSON:        true,
	})
	if err != nil {
		return nil, common.ErrAIServiceError.Wrap(err)
	}

	var raw struct {
		Steps *[]json.RawMessage `json:"steps"`
	}
	if err := common.ExtractJSONObject(content, &raw); err != nil {
		return nil, common.ErrMalformedAIResponse.Wrap(err)
	}
	if raw.Steps == nil {
		return nil, common.ErrMalformedAIResponse.Wrap(fmt.Errorf("missing steps"))
	}

	out := make([]StepPrompt, 0, len(*raw.Steps))
	for _, item := range *raw.Steps {
		var sp StepPrompt
		if err := json.Unmarshal(item, &sp); err != nil {
			continue
		}
		sp.Text = strings.TrimSpace(sp.Text)
		sp.ImagePrompt = strings.TrimSpace(sp.ImagePrompt)
		if sp.Text == "" {
			continue
		}
		out = append(out, sp)
	}
	return out, nil
}

func buildRecipePrompt(req Request) string {
	avoid := req.AvoidTitles
	if len(avoid) > maxAvoidTitles {
		avoid = avoid[:maxAvoidTitles]
	}

	return fmt.Sprintf(`請只輸出 JSON（不要任何其他文字）。使用繁體中文（只有 image_prompt 用英文）。
你是料理助理。

【使用者輸入】
%s

【目前冰箱已記錄食材（使用者原寫法，可能含部位/品項）】
%s

【要求 JSON 格式】
{
  "ingredients": ["抽取/推斷到的食材（中文，去掉數量與單位，去重）"],
  "recipes": [
    {
      "name": "菜名（中文）",
      "summary": "一句話介紹（中文）",
      "ingredients": ["關鍵食材（中文，盡量沿用 ingredients 裡的寫法，例如：霜降牛小排、雞腿排）"],
      "steps": ["步驟1（中文）", "步驟2（中文）", "...至少 5 步"],
      "image_prompt": "English prompt for a photorealistic food photo of this dish, plated nicely, natural lighting, shallow depth of field, no text"
    }
  ]
}

【重要規則（請務必遵守）】
- ingredients 請盡量保留使用者輸入的寫法與部位名稱，不要把『霜降牛小排』改成『牛肉』，除非使用者本來就只寫『牛肉』
- recipes 必須剛好 %d 道，每一道要明顯不同（菜名/做法不同）
- 若食材很少也要想辦法做出 %d 道家常料理（常見調味料可視為已有，但不要硬塞奇怪食材）
- 避免產出與以下菜名相同或高度相似的菜名：%s
- steps 至少 5 步，語句要讓人一看就能做
- image_prompt 務必英文，且能清楚呈現成品`,
		req.UserInput,
		joinOr(req.FridgeItems, "（空）"),
		req.Count, req.Count,
		joinOr(avoid, "（無）"),
	)
}

// rawList 取出 JSON 陣列的元素，其他型別回傳 nil
func rawList(data json.RawMessage) []json.RawMessage {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	return items
}

// decodeRecipes 逐筆解析，格式不符的項目直接略過
func decodeRecipes(items []json.RawMessage) []Recipe {
	recipes := make([]Recipe, 0, len(items))
	for _, item := range items {
		var r Recipe
		if err := json.Unmarshal(item, &r); err != nil {
			continue
		}
		r.Name = strings.TrimSpace(r.Name)
		r.Summary = strings.TrimSpace(r.Summary)
		r.ImagePrompt = strings.TrimSpace(r.ImagePrompt)
		r.Ingredients = trimNonEmpty(r.Ingredients)
		r.Steps = trimNonEmpty(r.Steps)
		recipes = append(recipes, r)
	}
	return recipes
}

// decodeStrings 只保留字串項目
func decodeStrings(items []json.RawMessage) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

// mergeRecipes 依正規化後的菜名合併，略過無名或重複的食譜
func mergeRecipes(have, more []Recipe) []Recipe {
	seen := make(map[string]bool, len(have))
	for _, r := range have {
		seen[NormToken(r.Name)] = true
	}
	for _, r := range more {
		key := NormToken(r.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		have = append(have, r)
	}
	return have
}

func trimNonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, x := range items {
		if x = strings.TrimSpace(x); x != "" {
			out = append(out, x)
		}
	}
	return out
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, "、")
}
