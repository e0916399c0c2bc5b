package line

import (
	"fmt"
	"unicode/utf8"

	"fridge-helper/internal/core/bot"
	"fridge-helper/internal/pkg/common"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"go.uber.org/zap"
)

// LINE Messaging API 的上限
const (
	MaxMessages        = 5
	MaxQuickReplyItems = 13
	MaxBubbles         = 12
	maxLabelRunes      = 20
	maxAltTextRunes    = 400
	maxTextRunes       = 5000
	heroAspectRatio    = "16:9"
	buttonColor        = "#1DB446"
)

// Render 將回覆轉為 LINE 訊息，超過上限的部分會被截掉
func Render(replies []bot.Reply) []messaging_api.MessageInterface {
	messages := make([]messaging_api.MessageInterface, 0, len(replies))
	for _, r := range replies {
		var msg messaging_api.MessageInterface
		switch v := r.(type) {
		case bot.TextReply:
			msg = renderText(v)
		case bot.CarouselReply:
			if len(v.Cards) == 0 {
				continue
			}
			msg = renderCarousel(v)
		default:
			common.LogWarn("未知的回覆類型", zap.String("type", fmt.Sprintf("%T", r)))
			continue
		}
		messages = append(messages, msg)
	}

	if len(messages) > MaxMessages {
		common.LogWarn("回覆訊息超過上限，已截斷", zap.Int("count", len(messages)))
		messages = messages[:MaxMessages]
	}
	return messages
}

func renderText(r bot.TextReply) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{
		Text:       truncate(r.Text, maxTextRunes),
		QuickReply: renderQuickReply(r.QuickReply),
	}
}

func renderQuickReply(items []bot.QuickReplyItem) *messaging_api.QuickReply {
	if len(items) == 0 {
		return nil
	}
	if len(items) > MaxQuickReplyItems {
		items = items[:MaxQuickReplyItems]
	}
	out := make([]messaging_api.QuickReplyItem, 0, len(items))
	for _, it := range items {
		out = append(out, messaging_api.QuickReplyItem{
			Type:   "action",
			Action: messageAction(it.Label, it.Text),
		})
	}
	return &messaging_api.QuickReply{Items: out}
}

func renderCarousel(r bot.CarouselReply) *messaging_api.FlexMessage {
	cards := r.Cards
	if len(cards) > MaxBubbles {
		cards = cards[:MaxBubbles]
	}
	bubbles := make([]messaging_api.FlexBubble, 0, len(cards))
	for _, c := range cards {
		bubbles = append(bubbles, renderBubble(c))
	}
	return &messaging_api.FlexMessage{
		AltText:  truncate(r.AltText, maxAltTextRunes),
		Contents: &messaging_api.FlexCarousel{Contents: bubbles},
	}
}

func renderBubble(c bot.Card) messaging_api.FlexBubble {
	contents := []messaging_api.FlexComponentInterface{
		&messaging_api.FlexText{
			Text:   c.Title,
			Wrap:   true,
			Weight: messaging_api.FlexTextWEIGHT_BOLD,
			Size:   "lg",
		},
	}
	for _, l := range c.Lines {
		t := &messaging_api.FlexText{Text: l.Text, Wrap: true, Size: l.Size}
		if l.Bold {
			t.Weight = messaging_api.FlexTextWEIGHT_BOLD
		}
		contents = append(contents, t)
	}

	bubble := messaging_api.FlexBubble{
		Size: messaging_api.FlexBubbleSIZE_MEGA,
		Body: &messaging_api.FlexBox{
			Layout:   messaging_api.FlexBoxLAYOUT_VERTICAL,
			Spacing:  "md",
			Contents: contents,
		},
	}
	if c.ImageURL != "" {
		bubble.Hero = &messaging_api.FlexImage{
			Url:         c.ImageURL,
			Size:        "full",
			AspectRatio: heroAspectRatio,
			AspectMode:  messaging_api.FlexImageASPECT_MODE_COVER,
		}
	}
	if c.Button != nil {
		bubble.Footer = &messaging_api.FlexBox{
			Layout:  messaging_api.FlexBoxLAYOUT_VERTICAL,
			Spacing: "sm",
			Contents: []messaging_api.FlexComponentInterface{
				&messaging_api.FlexButton{
					Style:  messaging_api.FlexButtonSTYLE_PRIMARY,
					Color:  buttonColor,
					Action: messageAction(c.Button.Label, c.Button.Text),
				},
			},
		}
	}
	return bubble
}

func messageAction(label, text string) *messaging_api.MessageAction {
	return &messaging_api.MessageAction{
		Label: truncate(label, maxLabelRunes),
		Text:  text,
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
