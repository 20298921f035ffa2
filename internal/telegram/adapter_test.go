package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/expensesbot/internal/bot"
)

type fakeAPI struct {
	updates  chan tgbotapi.Update
	fileURL  string
	sendErrs []error
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	mu       sync.Mutex
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		return tgbotapi.Message{}, err
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(string) (string, error) {
	return f.fileURL, nil
}

func (f *fakeAPI) messages() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.sent...)
}

type recordingHandler struct {
	reply  bot.Reply
	texts  []bot.Text
	photos []bot.Photo
	calls  []bot.Callback
	mu     sync.Mutex
}

func (h *recordingHandler) HandleText(_ context.Context, msg bot.Text) bot.Reply {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.texts = append(h.texts, msg)
	return h.reply
}

func (h *recordingHandler) HandlePhoto(_ context.Context, photo bot.Photo) bot.Reply {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.photos = append(h.photos, photo)
	return h.reply
}

func (h *recordingHandler) HandleCallback(_ context.Context, cb bot.Callback) bot.Reply {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, cb)
	return h.reply
}

func textUpdate(id int, from int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: from},
			Chat: &tgbotapi.Chat{ID: from},
			Text: text,
		},
	}
}

// run feeds updates to the adapter and stops it once they are handled.
func run(t *testing.T, a *Adapter, api *fakeAPI, updates ...tgbotapi.Update) {
	t.Helper()
	for _, u := range updates {
		api.updates <- u
	}
	close(api.updates)
	require.NoError(t, a.Run(context.Background()))
}

func TestAdapter_TextWithMenu(t *testing.T) {
	api := newFakeAPI()
	handler := &recordingHandler{reply: bot.Reply{Text: "Welcome", Menu: true}}
	a := NewWithAPI(api, handler, nil)

	run(t, a, api, textUpdate(1, 42, "/start"))

	require.Equal(t, []bot.Text{{UserID: "42", Text: "/start"}}, handler.texts)
	sent := api.messages()
	require.Len(t, sent, 1)
	msg, ok := sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "Welcome", msg.Text)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, len(bot.MainMenu))
	assert.Equal(t, bot.ActionStats, *markup.InlineKeyboard[0][0].CallbackData)
}

func TestAdapter_Callback(t *testing.T) {
	api := newFakeAPI()
	handler := &recordingHandler{reply: bot.Reply{Text: "Pick one", Buttons: [][]bot.Button{{{Label: "CSV", Data: "export_csv"}}}}}
	a := NewWithAPI(api, handler, nil)

	run(t, a, api, tgbotapi.Update{
		UpdateID: 1,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-1",
			From:    &tgbotapi.User{ID: 7},
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 70}},
			Data:    "export",
		},
	})

	assert.Equal(t, []bot.Callback{{UserID: "7", Data: "export"}}, handler.calls)
	require.Len(t, api.requests, 1)
	answer, ok := api.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "cb-1", answer.CallbackQueryID)

	sent := api.messages()
	require.Len(t, sent, 1)
	msg := sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(70), msg.ChatID)
	markup := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, "CSV", markup.InlineKeyboard[0][0].Text)
}

func TestAdapter_PhotoDownloadsLargestSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	api := newFakeAPI()
	api.fileURL = srv.URL + "/file.jpg"
	handler := &recordingHandler{reply: bot.Reply{Text: "saved"}}
	a := NewWithAPI(api, handler, nil)

	run(t, a, api, tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 5},
			Chat: &tgbotapi.Chat{ID: 5},
			Photo: []tgbotapi.PhotoSize{
				{FileID: "small", FileUniqueID: "u-small"},
				{FileID: "large", FileUniqueID: "u-large"},
			},
		},
	})

	require.Len(t, handler.photos, 1)
	assert.Equal(t, bot.Photo{UserID: "5", FileID: "u-large", Image: []byte("jpeg-bytes")}, handler.photos[0])
}

func TestAdapter_DocumentReply(t *testing.T) {
	api := newFakeAPI()
	handler := &recordingHandler{reply: bot.Reply{
		Text:     "CSV export ready: expenses.csv",
		Document: &bot.Document{Name: "expenses.csv", Data: []byte("Date,Store\n")},
	}}
	a := NewWithAPI(api, handler, nil)

	run(t, a, api, textUpdate(1, 3, "/export csv"))

	sent := api.messages()
	require.Len(t, sent, 1)
	doc, ok := sent[0].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Equal(t, "CSV export ready: expenses.csv", doc.Caption)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "expenses.csv", file.Name)
}

func TestAdapter_RetriesRateLimitedSend(t *testing.T) {
	api := newFakeAPI()
	api.sendErrs = []error{&tgbotapi.Error{Code: http.StatusTooManyRequests, Message: "Too Many Requests"}}
	handler := &recordingHandler{reply: bot.Reply{Text: "ok"}}
	a := NewWithAPI(api, handler, nil)
	a.retryDelay = time.Millisecond

	run(t, a, api, textUpdate(1, 9, "hi"))

	assert.Len(t, api.messages(), 1)
}

func TestAdapter_DoesNotRetryBadRequest(t *testing.T) {
	api := newFakeAPI()
	api.sendErrs = []error{&tgbotapi.Error{Code: http.StatusBadRequest, Message: "chat not found"}}
	handler := &recordingHandler{reply: bot.Reply{Text: "ok"}}
	a := NewWithAPI(api, handler, nil)
	a.retryDelay = time.Millisecond

	run(t, a, api, textUpdate(1, 9, "hi"))

	assert.Empty(t, api.messages())
}

type concurrencyHandler struct {
	active  map[string]*int32
	maxSeen map[string]*int32
	order   map[string][]string
	mu      sync.Mutex
}

func (h *concurrencyHandler) HandleText(_ context.Context, msg bot.Text) bot.Reply {
	h.mu.Lock()
	counter, peak := h.active[msg.UserID], h.maxSeen[msg.UserID]
	h.order[msg.UserID] = append(h.order[msg.UserID], msg.Text)
	h.mu.Unlock()

	n := atomic.AddInt32(counter, 1)
	for {
		seen := atomic.LoadInt32(peak)
		if n <= seen || atomic.CompareAndSwapInt32(peak, seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(counter, -1)
	return bot.Reply{}
}

func (h *concurrencyHandler) HandlePhoto(context.Context, bot.Photo) bot.Reply { return bot.Reply{} }

func (h *concurrencyHandler) HandleCallback(context.Context, bot.Callback) bot.Reply { return bot.Reply{} }

func TestAdapter_SerializesEventsPerUser(t *testing.T) {
	h := &concurrencyHandler{
		active:  map[string]*int32{"1": new(int32), "2": new(int32)},
		maxSeen: map[string]*int32{"1": new(int32), "2": new(int32)},
		order:   map[string][]string{},
	}
	api := newFakeAPI()
	a := NewWithAPI(api, h, nil)

	run(t, a, api,
		textUpdate(1, 1, "a"), textUpdate(2, 2, "x"),
		textUpdate(3, 1, "b"), textUpdate(4, 2, "y"),
		textUpdate(5, 1, "c"),
	)

	assert.Equal(t, int32(1), atomic.LoadInt32(h.maxSeen["1"]))
	assert.Equal(t, int32(1), atomic.LoadInt32(h.maxSeen["2"]))
	assert.Equal(t, []string{"a", "b", "c"}, h.order["1"])
	assert.Equal(t, []string{"x", "y"}, h.order["2"])
}

func TestSplitText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{name: "empty", text: "", limit: 10, want: nil},
		{name: "fits", text: "short", limit: 10, want: []string{"short"}},
		{name: "prefers newline", text: "line one\nline two", limit: 12, want: []string{"line one\n", "line two"}},
		{name: "hard cut", text: strings.Repeat("a", 25), limit: 10, want: []string{"aaaaaaaaaa", "aaaaaaaaaa", "aaaaa"}},
		{name: "keeps runes whole", text: "ééééé", limit: 3, want: []string{"é", "é", "é", "é", "é"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitText(tt.text, tt.limit))
		})
	}
}
