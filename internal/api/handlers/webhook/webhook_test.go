package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fridge-helper/internal/core/bot"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "channel-secret"

type fakeBot struct {
	mu      sync.Mutex
	texts   []string
	follows []string
}

func (f *fakeBot) HandleText(_ context.Context, userID, text string) []bot.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, userID+":"+text)
	return []bot.Reply{bot.TextReply{Text: "echo " + text}}
}

func (f *fakeBot) HandleFollow(_ context.Context, userID string) []bot.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.follows = append(f.follows, userID)
	return []bot.Reply{bot.TextReply{Text: "welcome"}}
}

type fakeReplier struct {
	mu     sync.Mutex
	tokens []string
	texts  []string
}

func (f *fakeReplier) Reply(_ context.Context, token string, replies []bot.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	for _, r := range replies {
		if tr, ok := r.(bot.TextReply); ok {
			f.texts = append(f.texts, tr.Text)
		}
	}
	return nil
}

// sign 產生 X-Line-Signature
func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func textEventBody(userID, replyToken, text string) string {
	return `{"destination":"Ubot","events":[{"type":"message","mode":"active","timestamp":1700000000000,` +
		`"source":{"type":"user","userId":"` + userID + `"},"webhookEventId":"evt-` + replyToken + `",` +
		`"deliveryContext":{"isRedelivery":false},"replyToken":"` + replyToken + `",` +
		`"message":{"type":"text","id":"m-` + replyToken + `","quoteToken":"q","text":"` + text + `"}}]}`
}

func newTestHandler() (*Handler, *fakeBot, *fakeReplier, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	b := &fakeBot{}
	rep := &fakeReplier{}
	h := NewHandler(testSecret, b, rep, time.Minute)
	r := gin.New()
	r.POST("/callback", h.Callback)
	return h, b, rep, r
}

func post(r *gin.Engine, body, signature string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	req.Header.Set("X-Line-Signature", signature)
	r.ServeHTTP(w, req)
	return w
}

func TestCallbackHandlesTextEvent(t *testing.T) {
	h, b, rep, r := newTestHandler()
	body := textEventBody("U1", "rt-1", "冰箱")

	w := post(r, body, sign(testSecret, body))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	h.Wait()
	assert.Equal(t, []string{"U1:冰箱"}, b.texts)
	assert.Equal(t, []string{"rt-1"}, rep.tokens)
	assert.Equal(t, []string{"echo 冰箱"}, rep.texts)
}

func TestCallbackRejectsBadSignature(t *testing.T) {
	h, b, _, r := newTestHandler()
	body := textEventBody("U1", "rt-1", "hi")

	w := post(r, body, sign("wrong-secret", body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_SIGNATURE")

	h.Wait()
	assert.Empty(t, b.texts)
}

func TestCallbackFollowAndIgnoredEvents(t *testing.T) {
	h, b, rep, r := newTestHandler()
	body := `{"destination":"Ubot","events":[` +
		`{"type":"follow","mode":"active","timestamp":1,"source":{"type":"user","userId":"U2"},"webhookEventId":"e1","deliveryContext":{"isRedelivery":false},"replyToken":"rt-f","follow":{"isUnblocked":false}},` +
		`{"type":"message","mode":"active","timestamp":2,"source":{"type":"user","userId":"U2"},"webhookEventId":"e2","deliveryContext":{"isRedelivery":false},"replyToken":"rt-s","message":{"type":"sticker","id":"s1","quoteToken":"q","packageId":"1","stickerId":"2","stickerResourceType":"STATIC"}},` +
		`{"type":"message","mode":"active","timestamp":3,"source":{"type":"group","groupId":"G1","userId":"U3"},"webhookEventId":"e3","deliveryContext":{"isRedelivery":false},"replyToken":"rt-g","message":{"type":"text","id":"m3","quoteToken":"q","text":"推薦"}}` +
		`]}`

	w := post(r, body, sign(testSecret, body))
	require.Equal(t, http.StatusOK, w.Code)

	h.Wait()
	assert.Equal(t, []string{"U2"}, b.follows)
	assert.Equal(t, []string{"U3:推薦"}, b.texts)
	assert.Equal(t, []string{"rt-f", "rt-g"}, rep.tokens)
}

func TestCallbackEmptyEvents(t *testing.T) {
	h, _, rep, r := newTestHandler()
	body := `{"destination":"Ubot","events":[]}`

	w := post(r, body, sign(testSecret, body))
	assert.Equal(t, http.StatusOK, w.Code)
	h.Wait()
	assert.Empty(t, rep.tokens)
}

func newDedupHandler(t *testing.T) (*Handler, *fakeBot, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	d := NewDeduplicator(time.Minute)
	t.Cleanup(d.Close)
	b := &fakeBot{}
	h := NewHandler(testSecret, b, &fakeReplier{}, time.Minute, WithDeduplicator(d))
	r := gin.New()
	r.POST("/callback", h.Callback)
	return h, b, r
}

func TestCallbackSkipsRedeliveredEvent(t *testing.T) {
	h, b, r := newDedupHandler(t)
	body := textEventBody("U1", "rt-1", "推薦")
	require.Equal(t, http.StatusOK, post(r, body, sign(testSecret, body)).Code)

	// 重送時 deliveryContext 會變，整個請求體不同但 webhookEventId 相同
	redelivery := strings.Replace(body, `"isRedelivery":false`, `"isRedelivery":true`, 1)
	w := post(r, redelivery, sign(testSecret, redelivery))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	other := textEventBody("U1", "rt-2", "推薦")
	require.Equal(t, http.StatusOK, post(r, other, sign(testSecret, other)).Code)

	h.Wait()
	assert.Equal(t, []string{"U1:推薦", "U1:推薦"}, b.texts)
}

func TestCallbackRecordsEventsOnlyAfterSignatureCheck(t *testing.T) {
	h, b, r := newDedupHandler(t)
	body := textEventBody("U1", "rt-1", "冰箱")

	assert.Equal(t, http.StatusBadRequest, post(r, body, sign("wrong-secret", body)).Code)
	assert.Equal(t, http.StatusOK, post(r, body, sign(testSecret, body)).Code)

	h.Wait()
	assert.Equal(t, []string{"U1:冰箱"}, b.texts)
}

func TestDeduplicatorWindow(t *testing.T) {
	d := NewDeduplicator(time.Second)
	defer d.Close()
	now := time.Now()
	d.now = func() time.Time { return now }

	assert.False(t, d.Seen("a"))
	assert.True(t, d.Seen("a"))

	now = now.Add(2 * time.Second)
	assert.False(t, d.Seen("a"))

	now = now.Add(2 * time.Second)
	assert.Equal(t, 1, d.cleanup())
	assert.Equal(t, 0, d.Len())
}
