// Package service defines the contracts between the conversational core and
// its collaborators.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/expensesbot/internal/llm"
	"github.com/Veraticus/expensesbot/internal/model"
)

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// MonthRange returns the range covering the calendar month containing t.
func MonthRange(t time.Time) DateRange {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return DateRange{Start: start, End: start.AddDate(0, 1, -1)}
}

// LastDays returns the range of the n days ending on now (inclusive).
func LastDays(now time.Time, n int) DateRange {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return DateRange{Start: end.AddDate(0, 0, -n), End: end}
}

// TextGateway is the rate-limited remote text-generation service.
type TextGateway interface {
	Classify(ctx context.Context, req llm.Request, timeout time.Duration) (string, error)
	Configured() bool
	Status() llm.RateLimitStatus
}

// ExpenseStore persists expenses and their items.
type ExpenseStore interface {
	// SaveExpense stores the expense, its items and their price history
	// atomically. Missing IDs and timestamps are filled in.
	SaveExpense(ctx context.Context, expense *model.Expense) error
	GetExpense(ctx context.Context, id string) (*model.Expense, error)
	ExpensesInRange(ctx context.Context, userID string, r DateRange) ([]model.Expense, error)
	ExpenseExists(ctx context.Context, userID, externalID string) (bool, error)
	ExportRows(ctx context.Context, userID string, r DateRange) ([]model.ExportRow, error)
	RecentItems(ctx context.Context, userID string, limit int) ([]model.Item, error)
	CategorizedItems(ctx context.Context, userID string, limit int) ([]model.CategoryResult, error)
}

// CategoryStore reads categories.
type CategoryStore interface {
	Categories(ctx context.Context, userID string) ([]model.Category, error)
	CategoryByName(ctx context.Context, userID, name string) (*model.Category, error)
}

// BudgetStore persists monthly budget limits.
type BudgetStore interface {
	UpsertBudget(ctx context.Context, limit *model.BudgetLimit) error
	Budgets(ctx context.Context, userID string) ([]model.BudgetLimit, error)
	BudgetForCategory(ctx context.Context, userID, categoryID string) (*model.BudgetLimit, error)
	DeleteBudget(ctx context.Context, userID, categoryID string) (bool, error)
	CategorySpend(ctx context.Context, userID, categoryID string, r DateRange) (int64, error)
}

// RecurringStore persists recurring expenses.
type RecurringStore interface {
	SaveRecurring(ctx context.Context, recurring *model.RecurringExpense) error
	ActiveRecurring(ctx context.Context, userID string) ([]model.RecurringExpense, error)
	DueRecurring(ctx context.Context, asOf time.Time) ([]model.RecurringExpense, error)
	UpdateRecurringDueDate(ctx context.Context, id string, next time.Time) error
	SetRecurringActive(ctx context.Context, id string, active bool) error
}

// SettingsStore persists per-user preferences. GetSettings returns
// common.ErrNotFound for users without saved settings.
type SettingsStore interface {
	GetSettings(ctx context.Context, userID string) (*model.UserSettings, error)
	SaveSettings(ctx context.Context, settings *model.UserSettings) error
}

// AnalyticsStore answers aggregate spending queries.
type AnalyticsStore interface {
	PeriodTotal(ctx context.Context, userID string, r DateRange) (total int64, count int, err error)
	CategoryTotals(ctx context.Context, userID string, r DateRange) ([]model.CategoryTotal, error)
	MonthlyTotals(ctx context.Context, userID string, since time.Time) ([]model.MonthlyTotal, error)
	TopItems(ctx context.Context, userID string, r DateRange, limit int) ([]model.ItemStat, error)
	PriceHistory(ctx context.Context, userID string, since time.Time) ([]model.PricePoint, error)
}

// ReceiptStore tracks stored receipt images.
type ReceiptStore interface {
	SaveReceiptPhoto(ctx context.Context, photo *model.ReceiptPhoto) error
	ExpiredReceiptPhotos(ctx context.Context, before time.Time) ([]model.ReceiptPhoto, error)
	DeleteReceiptPhoto(ctx context.Context, id string) error
}

// MigrationStatus describes one schema migration.
type MigrationStatus struct {
	AppliedAt   *time.Time
	Description string
	Version     int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	ExpenseStore
	CategoryStore
	BudgetStore
	RecurringStore
	SettingsStore
	AnalyticsStore
	ReceiptStore

	// Database management
	Migrate(ctx context.Context) error
	Migrations(ctx context.Context) ([]MigrationStatus, error)
	Close() error
}
