package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  Kind
		items []string
		index int
	}{
		{"menu plus", "+", KindMenu, nil, 0},
		{"menu word", "  開啟按鈕選單 ", KindMenu, nil, 0},
		{"remove menu", "-", KindRemoveMenu, nil, 0},
		{"remove menu word", "用完食材", KindRemoveMenu, nil, 0},
		{"remove items", "- 霜降牛小排 洋蔥", KindRemove, []string{"霜降牛小排", "洋蔥"}, 0},
		{"remove attached", "-雞腿排", KindRemove, []string{"雞腿排"}, 0},
		{"next", "下一頁", KindNextPage, nil, 0},
		{"prev", "prev", KindPrevPage, nil, 0},
		{"fridge", "冰箱", KindShowFridge, nil, 0},
		{"clear", "清空", KindClearFridge, nil, 0},
		{"add", "加入 雞腿排、洋蔥", KindAdd, []string{"雞腿排", "洋蔥"}, 0},
		{"add short", "加蛋", KindAdd, []string{"蛋"}, 0},
		{"steps", "做法 2", KindSteps, nil, 2},
		{"steps no space", "做法3 ", KindSteps, nil, 3},
		{"swap", "換食譜", KindSwap, nil, 0},
		{"recommend", "今天煮什麼", KindRecommend, nil, 0},
		{"free text", "我家有 雞蛋 番茄", KindFreeText, nil, 0},
		{"steps with suffix is free text", "做法 2 呢", KindFreeText, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Parse(tt.input)
			assert.Equal(t, tt.kind, cmd.Kind, cmd.Kind.String())
			assert.Equal(t, tt.items, cmd.Items)
			assert.Equal(t, tt.index, cmd.Index)
		})
	}
}

func TestParseKeepsTrimmedText(t *testing.T) {
	cmd := Parse("  我家有 牛小排  ")
	assert.Equal(t, "我家有 牛小排", cmd.Text)
	assert.Equal(t, "free_text", cmd.Kind.String())
}
