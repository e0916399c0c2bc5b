package line

import (
	"context"
	"fmt"

	"fridge-helper/internal/core/bot"
	"fridge-helper/internal/pkg/common"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"go.uber.org/zap"
)

// Replier 以 reply token 回覆訊息
type Replier struct {
	api *messaging_api.MessagingApiAPI
}

// NewReplier 創建 LINE 回覆客戶端
func NewReplier(channelAccessToken string, opts ...messaging_api.MessagingApiAPIOption) (*Replier, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelAccessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LINE messaging client: %w", err)
	}
	return &Replier{api: api}, nil
}

// Reply 送出回覆；沒有可送的訊息時直接略過
func (r *Replier) Reply(ctx context.Context, replyToken string, replies []bot.Reply) error {
	messages := Render(replies)
	if len(messages) == 0 || replyToken == "" {
		return nil
	}
	// reply token 有時效，請求已取消就不再送出
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := r.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	if err != nil {
		common.LogError("LINE 回覆失敗", zap.Int("messages", len(messages)), zap.Error(err))
		return fmt.Errorf("reply message: %w", err)
	}
	return nil
}
