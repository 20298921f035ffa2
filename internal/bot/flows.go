package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/expensesbot/internal/assistant"
	"github.com/Veraticus/expensesbot/internal/budget"
	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/money"
	"github.com/Veraticus/expensesbot/internal/session"
	"github.com/Veraticus/expensesbot/internal/timezone"
	"github.com/Veraticus/expensesbot/internal/validation"
)

// continueFlow hands text to the handler of the live state.
func (r *Router) continueFlow(ctx context.Context, userID string, payload session.Payload, text string) Reply {
	switch p := payload.(type) {
	case session.BudgetCategory:
		return r.budgetCategory(ctx, userID, p, text)
	case session.BudgetAmount:
		return r.budgetAmount(ctx, userID, p, text)
	case session.RecurringName:
		return r.recurringName(ctx, userID, text)
	case session.RecurringAmount:
		return r.recurringAmount(ctx, userID, p, text)
	case session.RecurringFrequency:
		return r.recurringFrequency(ctx, userID, p, text)
	case session.TimezoneInput:
		return r.timezoneInput(ctx, userID, p, text)
	case session.AIQuery:
		return r.aiQuery(ctx, userID, text)
	case session.ReceiptUpload:
		return Reply{Text: msgReceiptWaiting}
	default:
		r.logger.Warn("Dropping unknown conversation state", "user_id", userID, "payload", fmt.Sprintf("%T", payload))
		r.deps.Conversations.Clear(ctx, userID)
		return Reply{Text: msgUsage, Menu: true}
	}
}

// invalid re-prompts after a validation failure. The state is left as is.
func invalid(err error, reprompt string) Reply {
	return Reply{Text: "❌ " + validation.Message(err) + "\n\n" + reprompt}
}

func (r *Router) budgetCategory(ctx context.Context, userID string, p session.BudgetCategory, text string) Reply {
	reprompt := msgBudgetCategory
	if p.Delete {
		reprompt = msgBudgetDeleteCategory
	}

	name, err := validation.Category(text)
	if err != nil {
		return invalid(err, reprompt)
	}
	category, ok := model.CanonicalCategory(name)
	if !ok {
		return Reply{Text: fmt.Sprintf(msgUnknownCategory, strings.Join(model.CategoryNames(), ", "))}
	}

	if !p.Delete {
		return r.prompt(ctx, userID, session.BudgetAmount{Category: category}, fmt.Sprintf(msgBudgetAmount, category))
	}

	removed, err := r.deps.Budgets.Delete(ctx, userID, category)
	if err != nil {
		r.logger.Error("Failed to delete budget", "user_id", userID, "category", category, "error", err)
		return Reply{Text: msgSaveFailed}
	}
	r.deps.Conversations.Clear(ctx, userID)
	if !removed {
		return Reply{Text: fmt.Sprintf(msgBudgetMissing, category)}
	}
	return Reply{Text: fmt.Sprintf(msgBudgetDeleted, category)}
}

func (r *Router) budgetAmount(ctx context.Context, userID string, p session.BudgetAmount, text string) Reply {
	limit, err := validation.BudgetAmount(text)
	if err != nil {
		return invalid(err, fmt.Sprintf(msgBudgetAmount, p.Category))
	}

	b, err := r.deps.Budgets.SetLimit(ctx, userID, p.Category, limit, 0)
	switch {
	case budget.IsUnknownCategory(err):
		r.deps.Conversations.Set(ctx, userID, session.BudgetCategory{})
		return Reply{Text: fmt.Sprintf(msgUnknownCategory, strings.Join(model.CategoryNames(), ", "))}
	case err != nil:
		r.logger.Error("Failed to save budget", "user_id", userID, "category", p.Category, "error", err)
		return Reply{Text: msgSaveFailed}
	}

	r.deps.Conversations.Clear(ctx, userID)
	return Reply{Text: fmt.Sprintf(msgBudgetSet, b.CategoryName, money.Format(b.MonthlyLimit, r.currency(ctx, userID)))}
}

func (r *Router) recurringName(ctx context.Context, userID, text string) Reply {
	name, err := validation.RecurringName(text)
	if err != nil {
		return invalid(err, msgRecurringName)
	}
	return r.prompt(ctx, userID, session.RecurringAmount{Name: name}, fmt.Sprintf(msgRecurringAmount, name))
}

func (r *Router) recurringAmount(ctx context.Context, userID string, p session.RecurringAmount, text string) Reply {
	amount, err := validation.RecurringAmount(text)
	if err != nil {
		return invalid(err, fmt.Sprintf(msgRecurringAmount, p.Name))
	}
	return r.prompt(ctx, userID, session.RecurringFrequency{Name: p.Name, Amount: amount}, msgRecurringFrequency)
}

func (r *Router) recurringFrequency(ctx context.Context, userID string, p session.RecurringFrequency, text string) Reply {
	frequency, err := validation.Frequency(text)
	if err != nil {
		return invalid(err, msgRecurringFrequency)
	}

	rec, err := r.deps.Recurring.Add(ctx, userID, p.Name, p.Amount, frequency, r.today(ctx, userID))
	if err != nil {
		r.logger.Error("Failed to save recurring expense", "user_id", userID, "name", p.Name, "error", err)
		return Reply{Text: msgSaveFailed}
	}

	r.deps.Conversations.Clear(ctx, userID)
	return Reply{Text: fmt.Sprintf(msgRecurringAdded,
		rec.Name,
		money.Format(rec.Amount, r.currency(ctx, userID)),
		rec.Frequency,
		rec.NextDueDate.Format(model.DateLayout))}
}

func (r *Router) timezoneInput(ctx context.Context, userID string, p session.TimezoneInput, text string) Reply {
	reprompt := timezonePrompt(p.Mode)
	input, err := validation.TimezoneInput(text)
	if err != nil {
		return invalid(err, reprompt)
	}

	var (
		info timezone.Info
		ok   bool
		now  = r.cfg.Now()
	)
	switch p.Mode {
	case session.TimezoneModeTime:
		info, ok = timezone.FromLocalTime(input, now)
	case session.TimezoneModeCity:
		info, ok = timezone.ByCity(input)
		if !ok {
			return Reply{Text: fmt.Sprintf(msgTimezoneNoCity, strings.Join(timezone.Cities(), ", "))}
		}
	default:
		info, ok = timezone.Parse(input, now)
	}
	if !ok {
		return Reply{Text: msgTimezoneBad + "\n\n" + reprompt}
	}

	settings, err := r.deps.Store.GetSettings(ctx, userID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		settings = &model.UserSettings{UserID: userID, DefaultCurrency: r.cfg.DefaultCurrency}
	case err != nil:
		r.logger.Error("Failed to load settings", "user_id", userID, "error", err)
		return Reply{Text: msgSaveFailed}
	}
	settings.Timezone = info.Label()
	if err := r.deps.Store.SaveSettings(ctx, settings); err != nil {
		r.logger.Error("Failed to save settings", "user_id", userID, "error", err)
		return Reply{Text: msgSaveFailed}
	}

	r.deps.Conversations.Clear(ctx, userID)
	r.logger.Info("Timezone set", "user_id", userID, "timezone", settings.Timezone)
	return Reply{Text: fmt.Sprintf(msgTimezoneSet, info.Label(), info.Name)}
}

func timezonePrompt(mode string) string {
	switch mode {
	case session.TimezoneModeTime:
		return msgTimezoneTime
	case session.TimezoneModeCity:
		return msgTimezoneCity
	default:
		return msgTimezoneOffset
	}
}

func (r *Router) aiQuery(ctx context.Context, userID, text string) Reply {
	query, err := validation.AIQuery(text)
	if err != nil {
		return invalid(err, msgAIPrompt)
	}
	defer r.deps.Conversations.Clear(ctx, userID)

	if r.deps.Assistant == nil {
		return Reply{Text: assistant.MsgNotConfigured}
	}
	return Reply{Text: r.deps.Assistant.Answer(ctx, userID, query)}
}

// budgetList renders the user's budgets with this month's progress.
func (r *Router) budgetList(ctx context.Context, userID string) Reply {
	statuses, err := r.deps.Budgets.Statuses(ctx, userID, r.today(ctx, userID))
	if err != nil {
		r.logger.Error("Failed to load budgets", "user_id", userID, "error", err)
		return Reply{Text: msgLoadFailed}
	}
	if len(statuses) == 0 {
		return Reply{Text: msgBudgetNone, Buttons: budgetMenu}
	}

	currency := r.currency(ctx, userID)
	var b strings.Builder
	b.WriteString("💰 Your Budgets:\n")
	for _, st := range statuses {
		marker := ""
		if st.IsAlertTriggered {
			marker = " ⚠️"
		}
		fmt.Fprintf(&b, "\n%s: %s / %s (%d%%)%s",
			st.CategoryName, money.Format(st.Spent, currency), money.Format(st.Limit, currency), st.Percentage, marker)
	}
	fmt.Fprintf(&b, "\n\n%d days left this month.", statuses[0].DaysRemainingInMonth)
	return Reply{Text: b.String(), Buttons: budgetMenu}
}

// recurringList renders the active recurring expenses, soonest first.
func (r *Router) recurringList(ctx context.Context, userID string) Reply {
	active, err := r.deps.Recurring.Active(ctx, userID)
	if err != nil {
		r.logger.Error("Failed to load recurring expenses", "user_id", userID, "error", err)
		return Reply{Text: msgLoadFailed}
	}
	if len(active) == 0 {
		return Reply{Text: msgRecurringNone, Buttons: recurringMenu}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].NextDueDate.Before(active[j].NextDueDate) })

	currency := r.currency(ctx, userID)
	today := r.today(ctx, userID)
	var b strings.Builder
	b.WriteString("🔄 Recurring Expenses:\n")
	for _, rec := range active {
		due := ""
		if !rec.NextDueDate.After(today) {
			due = " (DUE TODAY!)"
		}
		fmt.Fprintf(&b, "\n%s: %s %s, next %s%s",
			rec.Name, money.Format(rec.Amount, currency), rec.Frequency, rec.NextDueDate.Format(model.DateLayout), due)
	}
	return Reply{Text: b.String(), Buttons: recurringMenu}
}
