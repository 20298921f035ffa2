// Package bot routes chat events through the conversation flows. It is
// transport-agnostic: adapters turn their updates into Text, Photo and
// Callback events and render the returned Reply.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/expensesbot/internal/assistant"
	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/money"
	"github.com/Veraticus/expensesbot/internal/receipt"
	"github.com/Veraticus/expensesbot/internal/session"
	"github.com/Veraticus/expensesbot/internal/timezone"
)

// Dependencies are the collaborators of a Router. Exporter, OCR,
// Interpreter and Files may be nil, which disables the matching feature.
type Dependencies struct {
	Conversations Conversations
	Entries       EntryParser
	Categorizer   Categorizer
	Assistant     Assistant
	Budgets       Budgets
	Recurring     Recurring
	Analytics     Analytics
	Exporter      Exporter
	OCR           OCR
	Interpreter   ReceiptInterpreter
	Files         ReceiptFiles
	Store         Store
	Logger        *slog.Logger
}

// Config holds router defaults.
type Config struct {
	Now              func() time.Time
	DefaultCurrency  string
	DefaultTimezone  string
	ReceiptRetention time.Duration
	InflationDays    int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Now:              time.Now,
		DefaultCurrency:  "EUR",
		DefaultTimezone:  "UTC+0",
		ReceiptRetention: receipt.DefaultRetention,
		InflationDays:    30,
	}
}

// Router dispatches events to command, flow and fallthrough handlers.
type Router struct {
	deps   Dependencies
	logger *slog.Logger
	cfg    Config
}

// New creates a router with the default configuration.
func New(deps Dependencies) *Router {
	return NewWithConfig(deps, DefaultConfig())
}

// NewWithConfig creates a router with custom configuration.
func NewWithConfig(deps Dependencies, cfg Config) *Router {
	defaults := DefaultConfig()
	if cfg.Now == nil {
		cfg.Now = defaults.Now
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = defaults.DefaultCurrency
	}
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = defaults.DefaultTimezone
	}
	if cfg.ReceiptRetention <= 0 {
		cfg.ReceiptRetention = defaults.ReceiptRetention
	}
	if cfg.InflationDays <= 0 {
		cfg.InflationDays = defaults.InflationDays
	}
	return &Router{
		deps:   deps,
		cfg:    cfg,
		logger: common.OrDefault(deps.Logger),
	}
}

// HandleText routes a text message. A live conversation consumes the
// message exclusively; otherwise it is tried as a quick entry, then as a
// spending question.
func (r *Router) HandleText(ctx context.Context, msg Text) Reply {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return Reply{Text: msgUsage}
	}

	if strings.HasPrefix(text, "/") {
		return r.command(ctx, msg.UserID, text)
	}

	if conv, ok := r.deps.Conversations.Get(ctx, msg.UserID); ok {
		r.logger.Debug("text consumed by flow", "user_id", msg.UserID, "state", conv.State())
		return r.continueFlow(ctx, msg.UserID, conv.Payload, text)
	}

	if entry, ok := r.deps.Entries.Parse(ctx, text, r.currency(ctx, msg.UserID)); ok {
		return r.quickEntry(ctx, msg.UserID, entry)
	}

	if r.deps.Assistant != nil && assistant.IsExpenseQuery(text) {
		return Reply{Text: r.deps.Assistant.Answer(ctx, msg.UserID, text)}
	}

	return Reply{Text: msgUsage}
}

// quickEntry persists a one-item expense and confirms it.
func (r *Router) quickEntry(ctx context.Context, userID string, entry model.ParsedEntry) Reply {
	category := model.CategoryOther
	if results := r.deps.Categorizer.Categorize(ctx, userID, []string{entry.Description}); len(results) > 0 {
		category = results[0].Category
	}

	expense := &model.Expense{
		UserID:       userID,
		PurchaseDate: r.today(ctx, userID),
		Currency:     entry.Currency,
		Source:       model.SourceQuickEntry,
		TotalAmount:  entry.AmountMinorUnits,
		Items: []model.Item{{
			Name:       entry.Description,
			Category:   category,
			UnitPrice:  entry.AmountMinorUnits,
			TotalPrice: entry.AmountMinorUnits,
			Quantity:   1,
		}},
	}
	if err := r.deps.Store.SaveExpense(ctx, expense); err != nil {
		r.logger.Error("Failed to save quick entry", "user_id", userID, "error", err)
		return Reply{Text: msgSaveFailed}
	}

	r.logger.Info("Expense added",
		"user_id", userID,
		"source", expense.Source,
		"amount", expense.TotalAmount,
		"category", expense.Items[0].Category)

	text := fmt.Sprintf("✓ Added: %s\nAmount: %s\nCategory: %s",
		entry.Description,
		money.Format(entry.AmountMinorUnits, entry.Currency),
		expense.Items[0].Category)
	return Reply{Text: text + r.budgetAlerts(ctx, userID, entry.Currency)}
}

// budgetAlerts renders the budgets at or above their threshold, or "".
func (r *Router) budgetAlerts(ctx context.Context, userID, currency string) string {
	if r.deps.Budgets == nil {
		return ""
	}
	alerts, err := r.deps.Budgets.Alerts(ctx, userID, r.today(ctx, userID))
	if err != nil {
		r.logger.Warn("Failed to check budgets", "user_id", userID, "error", err)
		return ""
	}
	var b strings.Builder
	for _, a := range alerts {
		fmt.Fprintf(&b, "\n⚠️ Budget alert: %s at %d%% (%s of %s)",
			a.CategoryName, a.Percentage, money.Format(a.Spent, currency), money.Format(a.Limit, currency))
	}
	return b.String()
}

// offset returns the user's UTC offset in hours.
func (r *Router) offset(ctx context.Context, userID string) float64 {
	settings, err := r.deps.Store.GetSettings(ctx, userID)
	switch {
	case err == nil && settings.Timezone != "":
		return timezone.OffsetFromLabel(settings.Timezone)
	case err != nil && !errors.Is(err, common.ErrNotFound):
		r.logger.Warn("Failed to load settings", "user_id", userID, "error", err)
	}
	return timezone.OffsetFromLabel(r.cfg.DefaultTimezone)
}

// today is the user's local calendar date.
func (r *Router) today(ctx context.Context, userID string) time.Time {
	return timezone.LocalDate(r.cfg.Now(), r.offset(ctx, userID))
}

// currency returns the user's preferred currency.
func (r *Router) currency(ctx context.Context, userID string) string {
	settings, err := r.deps.Store.GetSettings(ctx, userID)
	if err == nil && settings.DefaultCurrency != "" {
		return settings.DefaultCurrency
	}
	return r.cfg.DefaultCurrency
}

// prompt enters a flow state and asks its first question.
func (r *Router) prompt(ctx context.Context, userID string, payload session.Payload, text string) Reply {
	r.deps.Conversations.Set(ctx, userID, payload)
	return Reply{Text: text}
}
