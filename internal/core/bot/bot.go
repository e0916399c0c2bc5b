package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fridge-helper/internal/core/recipe"
	"fridge-helper/internal/core/session"
	"fridge-helper/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	menuText        = "這是按鈕選單～你可以快速加入/推薦/換食譜/移除食材 👇"
	emptyRemoveText = "你的冰箱目前是空的～不用移除囉！"
	removeHelpText  = "你可以點下面按鈕移除已用完的食材，或直接輸入：- 霜降牛小排 洋蔥"
	removeUsageText = "請輸入：- 雞腿排 洋蔥（可一次移除多個）"
	addUsageText    = "請輸入：加入 雞腿排 洋蔥"
	clearedText     = "🗑 已清空冰箱！\n你的冰箱目前：（空的）"
	noBaseText      = "你還沒有可用食材～先輸入：『我家有 霜降牛小排 洋蔥』或用『加入 雞腿排』加入吧！"
	noRecipesText   = "你還沒有推薦清單～先輸入食材或『推薦』。"
	badIndexText    = "這個編號不在清單內～請輸入『做法 1/2/3』。"
	noStepViewText  = "你還沒有開啟任何步驟圖～先輸入『做法 1』。"
	busyText        = "系統忙碌中，請稍後再試一次。"
	recipesAltText  = "推薦料理（含示意圖）"

	generateErrorText = "生成時出錯…\n\n你可以試：\n1) 我家有 霜降牛小排 洋蔥\n2) 加入 雞腿排 洋蔥\n3) 推薦"

	welcomeText = "嗨～我是冰箱清理小幫手！\n\n" +
		"✅ 你可以輸入任何食材/部位：\n例如：『我家有 霜降牛小排 雞腿排 洋蔥』\n\n" +
		"✅ 或輸入『加入 雞腿排』存進冰箱\n" +
		"✅ 輸入『推薦』生成 3 道菜\n" +
		"✅ 不喜歡按『換食譜』\n" +
		"✅ 看做法（含步驟圖）：輸入『做法 1』\n" +
		"✅ 用完食材：輸入『- 雞腿排』或輸入『-』叫出移除選單\n" +
		"✅ 叫出按鈕：輸入『+』或『開啟按鈕選單』"
)

// RecipeGenerator 食譜與步驟的生成
type RecipeGenerator interface {
	GenerateRecipes(ctx context.Context, req recipe.Request) (*recipe.Generation, error)
	StepsWithPrompts(ctx context.Context, recipeName string, steps []string) ([]recipe.StepPrompt, error)
}

// Illustrator 批次把 prompt 畫成圖，失敗的位置為空字串
type Illustrator interface {
	IllustrateAll(ctx context.Context, prompts []string, concurrency int) []string
}

// Options 機器人行為參數
type Options struct {
	RecipeCount      int
	PageSize         int
	MaxStepImages    int
	ImageConcurrency int
}

func (o Options) withDefaults() Options {
	if o.RecipeCount <= 0 {
		o.RecipeCount = 3
	}
	if o.PageSize <= 0 {
		o.PageSize = 5
	}
	if o.MaxStepImages < 1 {
		o.MaxStepImages = 1
	}
	if o.ImageConcurrency <= 0 {
		o.ImageConcurrency = 4
	}
	return o
}

// Service 處理使用者訊息並回傳要送出的回覆
type Service struct {
	recipes RecipeGenerator
	images  Illustrator
	store   session.Store
	locker  *session.Locker
	opts    Options
}

// NewService 創建聊天機器人服務
func NewService(recipes RecipeGenerator, images Illustrator, store session.Store, opts Options) *Service {
	return &Service{
		recipes: recipes,
		images:  images,
		store:   store,
		locker:  session.NewLocker(),
		opts:    opts.withDefaults(),
	}
}

// HandleFollow 加入好友時的歡迎訊息
func (s *Service) HandleFollow(_ context.Context, userID string) []Reply {
	common.LogInfo("新使用者加入", zap.String("user_id", userID))
	return []Reply{textReply(welcomeText, MainMenu())}
}

// HandleText 處理一則文字訊息；同一使用者的訊息依序處理
func (s *Service) HandleText(ctx context.Context, userID, text string) []Reply {
	unlock := s.locker.Lock(userID)
	defer unlock()

	sess, err := s.store.Load(ctx, userID)
	if err != nil {
		common.LogError("讀取使用者狀態失敗", zap.String("user_id", userID), zap.Error(err))
		return []Reply{textReply(busyText, MainMenu())}
	}

	cmd := Parse(text)
	start := time.Now()
	replies := s.dispatch(ctx, sess, cmd)
	common.LogInfo("處理指令",
		zap.String("user_id", userID),
		zap.String("command", cmd.Kind.String()),
		zap.Duration("duration", time.Since(start)),
	)

	if err := s.store.Save(ctx, sess); err != nil {
		common.LogError("儲存使用者狀態失敗", zap.String("user_id", userID), zap.Error(err))
	}
	return replies
}

func (s *Service) dispatch(ctx context.Context, sess *session.Session, cmd Command) []Reply {
	switch cmd.Kind {
	case KindMenu:
		return []Reply{textReply(menuText, MainMenu())}
	case KindRemoveMenu:
		return s.removeMenu(sess)
	case KindRemove:
		return s.remove(sess, cmd.Items)
	case KindNextPage:
		return s.page(sess, 1)
	case KindPrevPage:
		return s.page(sess, -1)
	case KindShowFridge:
		return []Reply{textReply(sess.FridgeText(), MainMenu())}
	case KindClearFridge:
		sess.Reset()
		return []Reply{textReply(clearedText, MainMenu())}
	case KindAdd:
		return s.add(sess, cmd.Items)
	case KindSteps:
		return s.steps(ctx, sess, cmd.Index)
	case KindSwap:
		return s.swap(ctx, sess)
	case KindRecommend:
		return s.recommend(ctx, sess, recipe.Request{
			UserInput:   cmd.Text,
			FridgeItems: sess.Fridge.List(),
		}, "")
	default:
		return s.recommend(ctx, sess, recipe.Request{
			UserInput:   cmd.Text,
			FridgeItems: sess.Fridge.List(),
		}, cmd.Text)
	}
}

func (s *Service) removeMenu(sess *session.Session) []Reply {
	if sess.Fridge.Len() == 0 {
		return []Reply{textReply(emptyRemoveText, MainMenu())}
	}
	return []Reply{textReply(removeHelpText, RemoveMenu(sess.Fridge.List()))}
}

func (s *Service) remove(sess *session.Session, items []string) []Reply {
	if len(items) == 0 {
		return []Reply{textReply(removeUsageText, RemoveMenu(sess.Fridge.List()))}
	}
	removed := sess.Fridge.Remove(items)
	if len(removed) == 0 {
		return []Reply{textReply(
			fmt.Sprintf("我沒有在冰箱裡找到：%s\n%s", strings.Join(items, "、"), sess.FridgeText()),
			MainMenu(),
		)}
	}
	sess.StepView = nil
	return []Reply{textReply(
		fmt.Sprintf("已移除：%s\n%s", strings.Join(removed, "、"), sess.FridgeText()),
		MainMenu(),
	)}
}

func (s *Service) add(sess *session.Session, items []string) []Reply {
	if len(items) == 0 {
		return []Reply{textReply(addUsageText, MainMenu())}
	}
	added := sess.Fridge.Add(items)
	if len(added) == 0 {
		return []Reply{textReply("這些已經在冰箱裡了～\n"+sess.FridgeText(), MainMenu())}
	}
	return []Reply{textReply(
		fmt.Sprintf("✅ 已加入：%s\n%s", strings.Join(added, "、"), sess.FridgeText()),
		MainMenu(),
	)}
}

// swap 用上次的食材換一批，避開上次的菜名
func (s *Service) swap(ctx context.Context, sess *session.Session) []Reply {
	base := sess.LastUsed
	if len(base) == 0 {
		base = sess.Fridge.List()
	}
	if len(base) == 0 {
		return []Reply{textReply(noBaseText, MainMenu())}
	}
	return s.recommend(ctx, sess, recipe.Request{
		UserInput:   "請用同一批食材換一組新食譜：" + strings.Join(base, "、"),
		FridgeItems: base,
		AvoidTitles: sess.LastTitles,
	}, "")
}

// recommend 生成食譜並為每道菜配一張圖
// freeText 非空時，模型沒抽到食材就改用拆詞結果寫入冰箱
func (s *Service) recommend(ctx context.Context, sess *session.Session, req recipe.Request, freeText string) []Reply {
	req.Count = s.opts.RecipeCount
	gen, err := s.recipes.GenerateRecipes(ctx, req)
	if err != nil {
		common.LogError("生成食譜失敗", zap.String("user_id", sess.UserID), zap.Error(err))
		return []Reply{textReply(generateErrorText, MainMenu())}
	}

	if len(gen.Ingredients) > 0 {
		sess.Fridge.Add(gen.Ingredients)
	} else if fallback := recipe.HeuristicExtract(freeText); freeText != "" && len(fallback) > 0 {
		sess.Fridge.Add(fallback)
	}
	used := sess.Fridge.List()
	sess.LastUsed = used

	if len(gen.Recipes) < s.opts.RecipeCount {
		common.LogWarn("食譜數量不足",
			zap.String("user_id", sess.UserID),
			zap.Int("have", len(gen.Recipes)),
			zap.Int("want", s.opts.RecipeCount),
		)
		return []Reply{textReply(generateErrorText, MainMenu())}
	}

	recipes := append([]recipe.Recipe(nil), gen.Recipes[:s.opts.RecipeCount]...)
	prompts := make([]string, len(recipes))
	titles := make([]string, len(recipes))
	for i := range recipes {
		recipes[i].Name = recipeName(recipes[i], i+1)
		titles[i] = recipes[i].Name
		prompts[i] = recipes[i].ImagePrompt
		if prompts[i] == "" {
			prompts[i] = recipe.DishImagePrompt(recipes[i].Name)
		}
	}
	urls := s.images.IllustrateAll(ctx, prompts, s.opts.ImageConcurrency)

	cards := make([]Card, len(recipes))
	for i, r := range recipes {
		cards[i] = RecipeCard(i+1, r, urls[i])
	}

	sess.RecentRecipes = recipes
	sess.LastTitles = titles
	sess.StepView = nil

	usedText := "（未偵測到）"
	if len(used) > 0 {
		usedText = strings.Join(used, "、")
	}
	summary := fmt.Sprintf("✅ 使用/記錄食材：%s\n%s\n\n"+
		"我給你 %d 個選項～\n"+
		"📌 看做法（含步驟圖）：輸入『做法 %s』\n"+
		"🔁 不喜歡：輸入/按『換食譜』再換一批\n"+
		"➖ 用完食材：輸入『- 雞腿排』或直接輸入『-』叫出移除選單\n"+
		"➕ 叫出按鈕：輸入『+』或『開啟按鈕選單』",
		usedText, sess.FridgeText(), len(recipes), rankList(len(recipes)))

	return []Reply{
		textReply(summary, MainMenu()),
		CarouselReply{AltText: recipesAltText, Cards: cards},
	}
}

// steps 顯示第 n 道菜的步驟圖，n 從 1 起算
func (s *Service) steps(ctx context.Context, sess *session.Session, n int) []Reply {
	if len(sess.RecentRecipes) == 0 {
		return []Reply{textReply(noRecipesText, MainMenu())}
	}
	idx := n - 1
	if idx < 0 || idx >= len(sess.RecentRecipes) {
		return []Reply{textReply(badIndexText, MainMenu())}
	}

	r := sess.RecentRecipes[idx]
	name := recipeName(r, n)
	if len(r.Steps) == 0 {
		return []Reply{textReply(fmt.Sprintf("《%s》沒有步驟內容。你可以按『換食譜』換一批。", name), MainMenu())}
	}

	if v := sess.StepView; v != nil && v.RecipeIndex == idx && len(v.Steps) > 0 {
		v.Page = 0
		return []Reply{
			textReply(fmt.Sprintf("《%s》步驟示意圖（第 1 頁）\n輸入『下一頁/上一頁』翻頁。", name), MainMenu()),
			StepsCarousel(v.Steps, v.ImageURLs, 0, s.opts.PageSize),
		}
	}

	stepPrompts, err := s.recipes.StepsWithPrompts(ctx, name, r.Steps)
	if err != nil {
		common.LogError("步驟 prompt 生成失敗", zap.String("user_id", sess.UserID), zap.String("recipe", name), zap.Error(err))
		return []Reply{textReply(fmt.Sprintf("步驟圖 prompt 產生失敗，請稍後再試一次『做法 %d』。", n), MainMenu())}
	}
	if len(stepPrompts) > s.opts.MaxStepImages {
		stepPrompts = stepPrompts[:s.opts.MaxStepImages]
	}

	texts := make([]string, 0, len(stepPrompts))
	prompts := make([]string, 0, len(stepPrompts))
	for _, sp := range stepPrompts {
		if sp.Text == "" {
			continue
		}
		p := sp.ImagePrompt
		if p == "" {
			p = recipe.StepImagePrompt(name)
		}
		texts = append(texts, sp.Text)
		prompts = append(prompts, p)
	}
	if len(texts) == 0 {
		return []Reply{textReply(
			fmt.Sprintf("《%s》步驟整理失敗，請按『換食譜』或再試一次『做法 %d』。", name, n),
			MainMenu(),
		)}
	}

	urls := s.images.IllustrateAll(ctx, prompts, s.opts.ImageConcurrency)
	sess.StepView = &session.StepView{
		RecipeIndex: idx,
		RecipeName:  name,
		Steps:       texts,
		ImageURLs:   urls,
	}

	header := fmt.Sprintf("《%s》步驟示意圖（第 1 頁）\n（我先幫你把前 %d 步做成圖）\n輸入『下一頁/上一頁』翻頁。", name, len(texts))
	return []Reply{
		textReply(header, MainMenu()),
		StepsCarousel(texts, urls, 0, s.opts.PageSize),
	}
}

func (s *Service) page(sess *session.Session, delta int) []Reply {
	v := sess.StepView
	if v == nil || len(v.Steps) == 0 {
		return []Reply{textReply(noStepViewText, MainMenu())}
	}
	p := v.Move(delta, s.opts.PageSize)
	name := v.RecipeName
	if name == "" {
		name = "料理"
	}
	return []Reply{
		textReply(fmt.Sprintf("《%s》步驟示意圖（第 %d 頁）", name, p+1), MainMenu()),
		StepsCarousel(v.Steps, v.ImageURLs, p, s.opts.PageSize),
	}
}

// rankList 例如 3 → "1/2/3"
func rankList(n int) string {
	ranks := make([]string, n)
	for i := range ranks {
		ranks[i] = fmt.Sprint(i + 1)
	}
	return strings.Join(ranks, "/")
}
