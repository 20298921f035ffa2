package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/expensesbot/internal/analytics"
	"github.com/Veraticus/expensesbot/internal/assistant"
	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/export"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/session"
	"github.com/Veraticus/expensesbot/internal/timezone"
)

// commandActions maps slash commands onto the menu action they open.
var commandActions = map[string]string{
	"/stats":     ActionStats,
	"/budget":    ActionBudget,
	"/recurring": ActionRecurring,
	"/export":    ActionExport,
	"/timezone":  ActionTimezone,
	"/receipt":   ActionReceiptUpload,
	"/ai":        ActionAIQuery,
}

// command runs a slash command. Commands abandon any pending flow.
func (r *Router) command(ctx context.Context, userID, text string) Reply {
	fields := strings.Fields(text)
	name := strings.ToLower(fields[0])
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	args := fields[1:]

	_, pending := r.deps.Conversations.Get(ctx, userID)
	r.deps.Conversations.Clear(ctx, userID)

	switch name {
	case "/start":
		return r.start(ctx, userID)
	case "/help":
		return Reply{Text: msgHelp}
	case "/cancel":
		if !pending {
			return Reply{Text: msgNothingPending}
		}
		return Reply{Text: msgCancelled, Menu: true}
	case "/export":
		if len(args) > 0 {
			return r.exportCommand(ctx, userID, args[0])
		}
	case "/ai":
		if len(args) == 1 && strings.EqualFold(args[0], "forget") && r.deps.Assistant != nil {
			r.deps.Assistant.Forget(userID)
			return Reply{Text: "🧹 Conversation memory cleared. Ask me anything with /ai."}
		}
	}

	if action, ok := commandActions[name]; ok {
		return r.action(ctx, userID, action)
	}
	return Reply{Text: msgUnknownCommand}
}

// HandleCallback runs a menu action.
func (r *Router) HandleCallback(ctx context.Context, cb Callback) Reply {
	r.logger.Debug("callback", "user_id", cb.UserID, "data", cb.Data)
	return r.action(ctx, cb.UserID, cb.Data)
}

func (r *Router) action(ctx context.Context, userID, action string) Reply {
	switch action {
	case ActionStats:
		return r.stats(ctx, userID)

	case ActionBudget, ActionBudgetList:
		return r.budgetList(ctx, userID)
	case ActionBudgetSet:
		return r.prompt(ctx, userID, session.BudgetCategory{},
			msgBudgetCategory+"\nCategories: "+strings.Join(model.CategoryNames(), ", "))
	case ActionBudgetDelete:
		return r.prompt(ctx, userID, session.BudgetCategory{Delete: true}, msgBudgetDeleteCategory)

	case ActionRecurring, ActionRecurringList:
		return r.recurringList(ctx, userID)
	case ActionRecurringAdd:
		return r.prompt(ctx, userID, session.RecurringName{}, msgRecurringName)

	case ActionExport:
		return Reply{Text: "📤 Choose an export format:", Buttons: exportMenu}
	case ActionExportCSV:
		return r.export(ctx, userID, export.FormatCSV)
	case ActionExportPDF:
		return r.export(ctx, userID, export.FormatPDF)
	case ActionExportJSON:
		return r.export(ctx, userID, export.FormatJSON)

	case ActionAI, ActionAIQuery:
		if r.deps.Assistant == nil {
			return Reply{Text: assistant.MsgNotConfigured}
		}
		return r.prompt(ctx, userID, session.AIQuery{}, msgAIPrompt)

	case ActionTimezone:
		current := timezone.FormatLabel(r.offset(ctx, userID))
		return Reply{Text: fmt.Sprintf("🌍 Your timezone: %s\nHow would you like to set it?", current), Buttons: timezoneMenu}
	case ActionTZTime:
		return r.prompt(ctx, userID, session.TimezoneInput{Mode: session.TimezoneModeTime}, msgTimezoneTime)
	case ActionTZCity:
		return r.prompt(ctx, userID, session.TimezoneInput{Mode: session.TimezoneModeCity}, msgTimezoneCity)
	case ActionTZOffset:
		return r.prompt(ctx, userID, session.TimezoneInput{Mode: session.TimezoneModeOffset}, msgTimezoneOffset)

	case ActionReceipt, ActionReceiptUpload:
		if r.deps.OCR == nil || r.deps.Interpreter == nil {
			return Reply{Text: "Receipt scanning is not available. Type the amount instead, e.g. \"20 coffee\"."}
		}
		return r.prompt(ctx, userID, session.ReceiptUpload{}, msgReceiptPrompt)

	case ActionBack:
		r.deps.Conversations.Clear(ctx, userID)
		return Reply{Text: msgMainMenu, Menu: true}

	default:
		r.logger.Debug("unknown callback", "user_id", userID, "data", action)
		return Reply{Text: msgUnknownAction, Menu: true}
	}
}

func (r *Router) start(ctx context.Context, userID string) Reply {
	text := msgWelcome
	_, err := r.deps.Store.GetSettings(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		text += msgSuggestTimezone
	}
	return Reply{Text: text, Menu: true}
}

func (r *Router) stats(ctx context.Context, userID string) Reply {
	today := r.today(ctx, userID)
	stats, err := r.deps.Analytics.MonthlyStats(ctx, userID, today)
	if err != nil {
		r.logger.Error("Failed to build monthly stats", "user_id", userID, "error", err)
		return Reply{Text: msgLoadFailed}
	}

	inflation, err := r.deps.Analytics.CategoryInflation(ctx, userID, r.cfg.InflationDays, today)
	if err != nil {
		r.logger.Warn("Failed to compute price changes", "user_id", userID, "error", err)
	}
	return Reply{Text: analytics.ReportText(stats, inflation, r.currency(ctx, userID))}
}

func (r *Router) exportCommand(ctx context.Context, userID, arg string) Reply {
	format, err := export.ParseFormat(arg)
	if err != nil || format == export.FormatSheets {
		return Reply{Text: "Unsupported format. Use /export csv, /export pdf or /export json.", Buttons: exportMenu}
	}
	return r.export(ctx, userID, format)
}

func (r *Router) export(ctx context.Context, userID string, format export.Format) Reply {
	if r.deps.Exporter == nil {
		return Reply{Text: "Export is not available right now. Try /stats for a summary instead."}
	}
	res, err := r.deps.Exporter.Export(ctx, export.Request{UserID: userID, Format: format})
	if err != nil {
		r.logger.Error("Export failed", "user_id", userID, "format", format, "error", err)
		return Reply{Text: msgExportFailed, Buttons: exportMenu}
	}
	return Reply{Text: res.Message, Document: &Document{Name: res.FileName, Data: res.Data}}
}
