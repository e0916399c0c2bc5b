package recipe

// Recipe 模型產生的單道食譜
type Recipe struct {
	Name        string   `json:"name"`         // 菜名
	Summary     string   `json:"summary"`      // 一句話介紹
	Ingredients []string `json:"ingredients"`  // 關鍵食材，沿用使用者寫法
	Steps       []string `json:"steps"`        // 依序的做法
	ImagePrompt string   `json:"image_prompt"` // 成品圖的英文 prompt
}

// Generation 一次推薦的結果
type Generation struct {
	Ingredients []string `json:"ingredients"` // 從輸入抽取的食材（已去重）
	Recipes     []Recipe `json:"recipes"`
}

// Request 推薦食譜的請求
type Request struct {
	UserInput   string   // 使用者原始輸入
	FridgeItems []string // 冰箱已記錄的食材
	AvoidTitles []string // 需避開的菜名
	Count       int      // 需要的道數
}

// StepPrompt 改寫後的步驟與其示意圖 prompt
type StepPrompt struct {
	Text        string `json:"text"`
	ImagePrompt string `json:"image_prompt"`
}

// DishImagePrompt 模型沒給 prompt 時的成品圖預設 prompt
func DishImagePrompt(name string) string {
	return "A high-quality photorealistic food photo of " + name +
		", plated nicely, natural lighting, shallow depth of field, no text"
}

// StepImagePrompt 模型沒給 prompt 時的步驟圖預設 prompt
func StepImagePrompt(name string) string {
	return "Photorealistic instructional cooking image showing a step in action for " + name +
		", hands, utensils, ingredients, kitchen, natural lighting, no text"
}
