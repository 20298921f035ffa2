// Package telegram connects the bot router to the Telegram Bot API using
// long polling.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avast/retry-go"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Veraticus/expensesbot/internal/bot"
	"github.com/Veraticus/expensesbot/internal/common"
)

const (
	pollTimeout     = 60
	maxPhotoBytes   = 10 << 20
	maxMessageSize  = 4096
	sendAttempts    = 3
	downloadTimeout = 30 * time.Second
)

// Handler processes router events.
type Handler interface {
	HandleText(ctx context.Context, msg bot.Text) bot.Reply
	HandlePhoto(ctx context.Context, photo bot.Photo) bot.Reply
	HandleCallback(ctx context.Context, cb bot.Callback) bot.Reply
}

// API is the part of *tgbotapi.BotAPI the adapter uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Adapter turns Telegram updates into router events. Updates of different
// users run concurrently; updates of one user run one at a time, in order
// of arrival.
type Adapter struct {
	api        API
	handler    Handler
	httpClient *http.Client
	logger     *slog.Logger
	queues     *userQueues
	retryDelay time.Duration
}

// New connects to Telegram with token.
func New(token string, handler Handler, logger *slog.Logger) (*Adapter, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: telegram bot token", common.ErrMissingConfig)
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	a := NewWithAPI(api, handler, logger)
	a.logger.Info("Connected to Telegram", "bot", api.Self.UserName)
	return a, nil
}

// NewWithAPI creates an adapter around an existing client.
func NewWithAPI(api API, handler Handler, logger *slog.Logger) *Adapter {
	return &Adapter{
		api:        api,
		handler:    handler,
		httpClient: &http.Client{Timeout: downloadTimeout},
		logger:     common.OrDefault(logger),
		queues:     newUserQueues(),
		retryDelay: time.Second,
	}
}

// RegisterCommands publishes the slash command list shown by clients.
func (a *Adapter) RegisterCommands() error {
	_, err := a.api.Request(tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Open the main menu"},
		tgbotapi.BotCommand{Command: "stats", Description: "Monthly report"},
		tgbotapi.BotCommand{Command: "budget", Description: "Manage budgets"},
		tgbotapi.BotCommand{Command: "recurring", Description: "Recurring expenses"},
		tgbotapi.BotCommand{Command: "export", Description: "Download your expenses"},
		tgbotapi.BotCommand{Command: "receipt", Description: "Scan a receipt"},
		tgbotapi.BotCommand{Command: "ai", Description: "Ask about your spending"},
		tgbotapi.BotCommand{Command: "timezone", Description: "Set your timezone"},
		tgbotapi.BotCommand{Command: "cancel", Description: "Abandon the current step"},
		tgbotapi.BotCommand{Command: "help", Description: "Show help"},
	))
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	return nil
}

// Run polls for updates until ctx is cancelled, then waits for in-flight
// updates to finish.
func (a *Adapter) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	updates := a.api.GetUpdatesChan(cfg)

	a.logger.Info("Polling for Telegram updates")
	defer a.queues.wait()

	for {
		select {
		case <-ctx.Done():
			a.api.StopReceivingUpdates()
			a.logger.Info("Stopped polling for Telegram updates")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			a.dispatch(ctx, update)
		}
	}
}

func (a *Adapter) dispatch(ctx context.Context, update tgbotapi.Update) {
	userKey, ok := updateUser(update)
	if !ok {
		a.logger.Debug("ignoring update without sender", "update_id", update.UpdateID)
		return
	}
	a.queues.push(userKey, func() { a.handle(ctx, update) })
}

func updateUser(update tgbotapi.Update) (int64, bool) {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID, true
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, true
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID, true
	default:
		return 0, false
	}
}

func (a *Adapter) handle(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Panic while handling update", "update_id", update.UpdateID, "panic", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		a.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		a.handleMessage(ctx, update.Message)
	}
}

func (a *Adapter) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := a.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		a.logger.Debug("failed to answer callback", "error", err)
	}
	if q.Message == nil || q.Message.Chat == nil {
		return
	}

	reply := a.handler.HandleCallback(ctx, bot.Callback{UserID: userID(q.From.ID), Data: q.Data})
	a.send(ctx, q.Message.Chat.ID, reply)
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	uid := msg.Chat.ID
	if msg.From != nil {
		uid = msg.From.ID
	}

	var reply bot.Reply
	switch {
	case len(msg.Photo) > 0:
		// Sizes are ordered smallest first.
		largest := msg.Photo[len(msg.Photo)-1]
		image, err := a.download(ctx, largest.FileID)
		if err != nil {
			a.logger.Warn("Failed to download photo", "user_id", uid, "error", err)
			reply = bot.Reply{Text: "Couldn't download that photo. Please send it again."}
			break
		}
		reply = a.handler.HandlePhoto(ctx, bot.Photo{UserID: userID(uid), FileID: largest.FileUniqueID, Image: image})
	case msg.Text != "":
		reply = a.handler.HandleText(ctx, bot.Text{UserID: userID(uid), Text: msg.Text})
	default:
		a.logger.Debug("ignoring unsupported message", "user_id", uid)
		return
	}
	a.send(ctx, msg.Chat.ID, reply)
}

func userID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// download fetches a file through its direct URL.
func (a *Adapter) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := a.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			a.logger.Debug("failed to close download body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > maxPhotoBytes {
		return nil, fmt.Errorf("file larger than %d bytes", maxPhotoBytes)
	}
	return data, nil
}

// send delivers a reply: the document first when there is one, then the
// text split into Telegram-sized messages with the keyboard on the last.
func (a *Adapter) send(ctx context.Context, chatID int64, reply bot.Reply) {
	markup := keyboard(reply)

	if reply.Document != nil {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: reply.Document.Name, Bytes: reply.Document.Data})
		if len(reply.Text) <= 1024 {
			doc.Caption = reply.Text
			reply.Text = ""
		}
		if markup != nil && reply.Text == "" {
			doc.ReplyMarkup = *markup
		}
		a.deliver(ctx, chatID, doc)
	}

	chunks := splitText(reply.Text, maxMessageSize)
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if i == len(chunks)-1 && markup != nil {
			msg.ReplyMarkup = *markup
		}
		a.deliver(ctx, chatID, msg)
	}
}

func (a *Adapter) deliver(ctx context.Context, chatID int64, c tgbotapi.Chattable) {
	err := retry.Do(
		func() error {
			_, err := a.api.Send(c)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(sendAttempts),
		retry.Delay(a.retryDelay),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			var apiErr *tgbotapi.Error
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				return time.Duration(apiErr.RetryAfter) * time.Second
			}
			return retry.BackOffDelay(n, err, config)
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)
	if err != nil {
		a.logger.Error("Failed to send Telegram message", "chat_id", chatID, "error", err)
	}
}

// isRetryable retries rate limiting, server errors and transport failures.
// Other API errors (bad request, blocked by user) are final.
func isRetryable(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled)
}

func keyboard(reply bot.Reply) *tgbotapi.InlineKeyboardMarkup {
	rows := reply.Buttons
	if len(rows) == 0 && reply.Menu {
		rows = bot.MainMenu
	}
	if len(rows) == 0 {
		return nil
	}

	markup := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		markup = append(markup, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	m := tgbotapi.NewInlineKeyboardMarkup(markup...)
	return &m
}

// splitText cuts text into pieces of at most limit bytes, preferring line
// breaks and never splitting a UTF-8 sequence.
func splitText(text string, limit int) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	for len(text) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if nl := strings.LastIndexByte(text[:cut], '\n'); nl > limit/2 {
			cut = nl + 1
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	return append(chunks, text)
}
