package bot

import (
	"context"
	"time"

	"github.com/Veraticus/expensesbot/internal/export"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/service"
	"github.com/Veraticus/expensesbot/internal/session"
)

// Conversations holds the per-user flow state.
type Conversations interface {
	Get(ctx context.Context, userID string) (session.Conversation, bool)
	Set(ctx context.Context, userID string, payload session.Payload) session.Conversation
	Clear(ctx context.Context, userID string)
}

// EntryParser turns a free-text line into an expense. homeCurrency is the
// user's currency, assumed when the text names none.
type EntryParser interface {
	Parse(ctx context.Context, raw, homeCurrency string) (model.ParsedEntry, bool)
}

// Categorizer assigns categories to item labels.
type Categorizer interface {
	Categorize(ctx context.Context, userID string, labels []string) []model.CategoryResult
}

// Assistant answers spending questions.
type Assistant interface {
	Answer(ctx context.Context, userID, question string) string
	Forget(userID string)
}

// Budgets manages monthly limits.
type Budgets interface {
	SetLimit(ctx context.Context, userID, category string, limit int64, threshold float64) (*model.BudgetLimit, error)
	Delete(ctx context.Context, userID, category string) (bool, error)
	Statuses(ctx context.Context, userID string, now time.Time) ([]model.BudgetStatus, error)
	Alerts(ctx context.Context, userID string, now time.Time) ([]model.BudgetStatus, error)
}

// Recurring manages bills and subscriptions.
type Recurring interface {
	Add(ctx context.Context, userID, name string, amount int64, frequency model.Frequency, now time.Time) (*model.RecurringExpense, error)
	Active(ctx context.Context, userID string) ([]model.RecurringExpense, error)
}

// Analytics builds the monthly report.
type Analytics interface {
	MonthlyStats(ctx context.Context, userID string, month time.Time) (*model.MonthlyStats, error)
	CategoryInflation(ctx context.Context, userID string, days int, now time.Time) ([]model.CategoryInflation, error)
}

// Exporter renders exports.
type Exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

// OCR extracts the text of a receipt image.
type OCR interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// ReceiptInterpreter turns OCR text into a structured receipt.
type ReceiptInterpreter interface {
	Interpret(ctx context.Context, ocrText string) model.ParsedReceipt
}

// ReceiptFiles stores receipt images on disk.
type ReceiptFiles interface {
	Save(userID, name string, data []byte) (string, error)
}

// Store is the persistence the router writes to directly.
type Store interface {
	SaveExpense(ctx context.Context, expense *model.Expense) error
	service.SettingsStore
	SaveReceiptPhoto(ctx context.Context, photo *model.ReceiptPhoto) error
}
