// Package assistant answers free-form spending questions with the remote
// text service, grounded in a digest of the user's own data.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/llm"
	"github.com/Veraticus/expensesbot/internal/service"
	"github.com/Veraticus/expensesbot/internal/session"
)

const (
	answerTimeout     = 30 * time.Second
	answerTemperature = 0.1
	answerMaxTokens   = 4096
)

// User-facing failure replies.
const (
	MsgNotConfigured = "AI features not available. Set DEEPSEEK_API_KEY in .env to enable."
	MsgQuota         = "AI quota exceeded. Try again later."
	MsgTimeout       = "Request took too long. Try a simpler query."
	MsgGeneric       = "Unable to process query right now. Try using /stats command instead."
)

// Digester builds the spending digest sent with each question.
type Digester interface {
	Build(ctx context.Context, userID string) (string, error)
}

// Assistant answers questions. Answer never returns an error; every
// failure becomes one of the fixed replies above.
type Assistant struct {
	gateway service.TextGateway
	digest  Digester
	history *session.History
	logger  *slog.Logger
}

// New creates an assistant.
func New(gateway service.TextGateway, digest Digester, history *session.History, logger *slog.Logger) *Assistant {
	if history == nil {
		history = session.NewHistory()
	}
	return &Assistant{
		gateway: gateway,
		digest:  digest,
		history: history,
		logger:  common.OrDefault(logger),
	}
}

// LimitMessage is the reply given while the daily quota is exhausted.
func LimitMessage(status llm.RateLimitStatus) string {
	return fmt.Sprintf("AI daily limit reached (%d/%d). Try again tomorrow.", status.DailyUsed, status.DailyLimit)
}

// Answer replies to question using the user's data and conversation memory.
func (a *Assistant) Answer(ctx context.Context, userID, question string) string {
	if status := a.gateway.Status(); status.IsLimited {
		return LimitMessage(status)
	}

	digest, err := a.digest.Build(ctx, userID)
	if err != nil {
		a.logger.Warn("Failed to build expense context", "user_id", userID, "error", err)
		return MsgGeneric
	}

	reply, err := a.gateway.Classify(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		Prompt:       buildUserPrompt(question, digest),
		History:      a.history.Get(userID),
		Temperature:  answerTemperature,
		MaxTokens:    answerMaxTokens,
	}, answerTimeout)
	if err != nil {
		a.logger.Warn("Assistant call failed", "user_id", userID, "error", err)
		return failureMessage(err)
	}

	clean := strings.TrimSpace(StripMarkdown(reply))
	if clean == "" {
		return MsgGeneric
	}
	a.history.Append(userID, question, clean)

	a.logger.Debug("assistant answered", "user_id", userID, "chars", len(clean))
	return clean
}

// Forget clears the user's conversation memory.
func (a *Assistant) Forget(userID string) {
	a.history.Clear(userID)
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrNotConfigured):
		return MsgNotConfigured
	case errors.Is(err, common.ErrQuotaExceeded):
		return MsgQuota
	case errors.Is(err, common.ErrTimeout):
		return MsgTimeout
	default:
		return MsgGeneric
	}
}
