package line

import (
	"fmt"
	"strings"
	"testing"

	"fridge-helper/internal/core/bot"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderText(t *testing.T) {
	msgs := Render([]bot.Reply{bot.TextReply{Text: "hi", QuickReply: bot.MainMenu()}})
	require.Len(t, msgs, 1)

	tm, ok := msgs[0].(*messaging_api.TextMessage)
	require.True(t, ok)
	assert.Equal(t, "hi", tm.Text)
	require.NotNil(t, tm.QuickReply)
	assert.Len(t, tm.QuickReply.Items, 13)

	action, ok := tm.QuickReply.Items[0].Action.(*messaging_api.MessageAction)
	require.True(t, ok)
	assert.Equal(t, "+雞肉", action.Label)
	assert.Equal(t, "加入 雞肉", action.Text)
}

func TestRenderQuickReplyLimits(t *testing.T) {
	items := make([]bot.QuickReplyItem, 20)
	for i := range items {
		items[i] = bot.QuickReplyItem{Label: strings.Repeat("長", 30), Text: fmt.Sprint(i)}
	}
	tm := Render([]bot.Reply{bot.TextReply{Text: "x", QuickReply: items}})[0].(*messaging_api.TextMessage)
	assert.Len(t, tm.QuickReply.Items, MaxQuickReplyItems)
	label := tm.QuickReply.Items[0].Action.(*messaging_api.MessageAction).Label
	assert.Equal(t, 20, len([]rune(label)))

	plain := Render([]bot.Reply{bot.TextReply{Text: "x"}})[0].(*messaging_api.TextMessage)
	assert.Nil(t, plain.QuickReply)
}

func TestRenderCarousel(t *testing.T) {
	cards := []bot.Card{
		bot.StepCard(1, "切菜", "https://img.example.com/a.jpg"),
		bot.StepCard(2, "下鍋", ""),
	}
	cards = append(cards, bot.Card{Title: "1. 炒飯", Button: &bot.Button{Label: "看做法(1)", Text: "做法 1"}})

	msgs := Render([]bot.Reply{bot.CarouselReply{AltText: "料理步驟圖（1-2/2）", Cards: cards}})
	require.Len(t, msgs, 1)
	fm := msgs[0].(*messaging_api.FlexMessage)
	assert.Equal(t, "料理步驟圖（1-2/2）", fm.AltText)

	carousel := fm.Contents.(*messaging_api.FlexCarousel)
	require.Len(t, carousel.Contents, 3)

	first := carousel.Contents[0]
	assert.Equal(t, messaging_api.FlexBubbleSIZE_MEGA, first.Size)
	hero := first.Hero.(*messaging_api.FlexImage)
	assert.Equal(t, "https://img.example.com/a.jpg", hero.Url)
	assert.Equal(t, "16:9", hero.AspectRatio)
	require.Len(t, first.Body.Contents, 2)
	title := first.Body.Contents[0].(*messaging_api.FlexText)
	assert.Equal(t, "步驟 1", title.Text)
	assert.Equal(t, messaging_api.FlexTextWEIGHT_BOLD, title.Weight)
	assert.Nil(t, first.Footer)

	assert.Nil(t, carousel.Contents[1].Hero)

	footer := carousel.Contents[2].Footer
	require.NotNil(t, footer)
	btn := footer.Contents[0].(*messaging_api.FlexButton)
	assert.Equal(t, "#1DB446", btn.Color)
	assert.Equal(t, "做法 1", btn.Action.(*messaging_api.MessageAction).Text)
}

func TestRenderLimits(t *testing.T) {
	cards := make([]bot.Card, 15)
	for i := range cards {
		cards[i] = bot.StepCard(i+1, "x", "")
	}
	msgs := Render([]bot.Reply{bot.CarouselReply{AltText: "a", Cards: cards}, bot.CarouselReply{AltText: "empty"}})
	require.Len(t, msgs, 1)
	assert.Len(t, msgs[0].(*messaging_api.FlexMessage).Contents.(*messaging_api.FlexCarousel).Contents, MaxBubbles)

	many := make([]bot.Reply, 7)
	for i := range many {
		many[i] = bot.TextReply{Text: fmt.Sprint(i)}
	}
	assert.Len(t, Render(many), MaxMessages)
}
