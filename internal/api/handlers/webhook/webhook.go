package webhook

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"fridge-helper/internal/core/bot"
	"fridge-helper/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"go.uber.org/zap"
)

// Bot 將使用者事件轉成回覆
type Bot interface {
	HandleText(ctx context.Context, userID, text string) []bot.Reply
	HandleFollow(ctx context.Context, userID string) []bot.Reply
}

// Replier 以 reply token 送出回覆
type Replier interface {
	Reply(ctx context.Context, replyToken string, replies []bot.Reply) error
}

// Handler LINE webhook 處理器
// 驗證簽章後立即回 200，事件在背景依序處理
type Handler struct {
	secret  string
	bot     Bot
	replier Replier
	timeout time.Duration
	dedup   *Deduplicator
	wg      sync.WaitGroup
}

// Option 設定 Handler 的選項
type Option func(*Handler)

// WithDeduplicator 略過視窗內重送的事件
func WithDeduplicator(d *Deduplicator) Option {
	return func(h *Handler) {
		h.dedup = d
	}
}

// NewHandler 創建 webhook 處理器；timeout 為單次回呼所有事件的處理上限
func NewHandler(channelSecret string, b Bot, replier Replier, timeout time.Duration, opts ...Option) *Handler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	h := &Handler{
		secret:  channelSecret,
		bot:     b,
		replier: replier,
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Callback POST /callback
func (h *Handler) Callback(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.secret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			common.LogWarn("webhook 簽章驗證失敗", zap.String("ip", c.ClientIP()))
			common.WriteError(c, common.ErrInvalidSignature)
			return
		}
		common.LogError("解析 webhook 失敗", zap.Error(err))
		common.WriteError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	if events := h.fresh(cb.Events); len(events) > 0 {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
			defer cancel()
			h.handleEvents(ctx, events)
		}()
	}

	c.String(http.StatusOK, "OK")
}

// fresh 簽章驗證通過後才登記事件 ID，回傳尚未處理過的事件
func (h *Handler) fresh(events []webhook.EventInterface) []webhook.EventInterface {
	if h.dedup == nil {
		return events
	}
	out := make([]webhook.EventInterface, 0, len(events))
	for _, event := range events {
		id, redelivery := eventID(event)
		if id != "" && h.dedup.Seen(id) {
			common.LogInfo("略過重複的事件",
				zap.String("webhook_event_id", id),
				zap.Bool("redelivery", redelivery),
			)
			continue
		}
		out = append(out, event)
	}
	return out
}

// eventID 取出會處理的事件類型的 webhookEventId
func eventID(event webhook.EventInterface) (string, bool) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.WebhookEventId, e.DeliveryContext != nil && e.DeliveryContext.IsRedelivery
	case webhook.FollowEvent:
		return e.WebhookEventId, e.DeliveryContext != nil && e.DeliveryContext.IsRedelivery
	}
	return "", false
}

// Wait 等待背景中的事件處理完成
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) handleEvents(ctx context.Context, events []webhook.EventInterface) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("處理 webhook 事件時發生 panic", zap.Any("error", r))
		}
	}()

	for _, event := range events {
		switch e := event.(type) {
		case webhook.MessageEvent:
			msg, ok := e.Message.(webhook.TextMessageContent)
			if !ok {
				common.LogDebug("略過非文字訊息", zap.String("type", e.Message.GetType()))
				continue
			}
			userID := sourceID(e.Source)
			h.reply(ctx, e.ReplyToken, h.bot.HandleText(ctx, userID, msg.Text))
		case webhook.FollowEvent:
			h.reply(ctx, e.ReplyToken, h.bot.HandleFollow(ctx, sourceID(e.Source)))
		default:
			common.LogDebug("略過未處理的事件", zap.String("type", event.GetType()))
		}
	}
}

func (h *Handler) reply(ctx context.Context, token string, replies []bot.Reply) {
	if err := h.replier.Reply(ctx, token, replies); err != nil {
		common.LogError("回覆訊息失敗", zap.Error(err))
	}
}

// sourceID 以使用者 ID 為主，群組或聊天室沒有使用者 ID 時改用群組 ID
func sourceID(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		if s.UserId != "" {
			return s.UserId
		}
		return s.GroupId
	case webhook.RoomSource:
		if s.UserId != "" {
			return s.UserId
		}
		return s.RoomId
	}
	return ""
}
