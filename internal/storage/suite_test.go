package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/service"
)

// storageSuite runs against every driver. Each case scopes its rows to
// t.Name() so cases can share one database.
var storageSuite = []struct {
	run  func(t *testing.T, s *SQLStorage)
	name string
}{
	{name: "expense round trip", run: testExpenseRoundTrip},
	{name: "expense external ids", run: testExpenseExternalIDs},
	{name: "export rows", run: testExportRows},
	{name: "categories", run: testCategories},
	{name: "budgets", run: testBudgets},
	{name: "recurring", run: testRecurring},
	{name: "settings", run: testSettings},
	{name: "analytics", run: testAnalytics},
	{name: "receipt photos", run: testReceiptPhotos},
	{name: "migrations idempotent", run: testMigrationsIdempotent},
}

func TestSQLiteStorage(t *testing.T) {
	for _, tc := range storageSuite {
		t.Run(tc.name, func(t *testing.T) {
			tc.run(t, createTestStorage(t))
		})
	}
}

func testExpenseRoundTrip(t *testing.T, s *SQLStorage) {
	ctx := context.Background()
	user := t.Name()

	expense := &model.Expense{
		UserID:        user,
		StoreName:     "Continente",
		PurchaseDate:  day("2024-03-10"),
		TotalAmount:   650,
		OCRConfidence: 0.8,
		Source:        model.SourceReceipt,
		Items: []model.Item{
			{Name: "Leite Mimosa", Category: "Groceries", UnitPrice: 100, TotalPrice: 200, Quantity: 2},
			{Name: "Mystery", Category: "Not A Category", UnitPrice: 450, TotalPrice: 450, Quantity: 1},
		},
	}
	require.NoError(t, s.SaveExpense(ctx, expense))
	require.NotEmpty(t, expense.ID)
	assert.Equal(t, "EUR", expense.Currency)
	assert.Equal(t, model.CategoryOther, expense.Items[1].Category)

	got, err := s.GetExpense(ctx, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, "Continente", got.StoreName)
	assert.Equal(t, int64(650), got.TotalAmount)
	assert.Equal(t, model.SourceReceipt, got.Source)
	assert.True(t, got.PurchaseDate.Equal(day("2024-03-10")))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "leite mimosa", got.Items[0].NormalizedName)
	assert.Equal(t, "Groceries", got.Items[0].Category)
	assert.InDelta(t, 2.0, got.Items[0].Quantity, 1e-9)

	_, err = s.GetExpense(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, s.SaveExpense(ctx, quickExpense(user, "2024-03-12", "coffee", "Restaurants", 250)))
	expenses, err := s.ExpensesInRange(ctx, user, service.DateRange{Start: day("2024-03-01"), End: day("2024-03-31")})
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.Equal(t, "coffee", expenses[0].Items[0].Name)

	recent, err := s.RecentItems(ctx, user, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "coffee", recent[0].Name)

	labels, err := s.CategorizedItems(ctx, user, 10)
	require.NoError(t, err)
	assert.Len(t, labels, 3)

	points, err := s.PriceHistory(ctx, user, day("2024-01-01"))
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "Continente", points[0].StoreName)
}

func testExpenseExternalIDs(t *testing.T, s *SQLStorage) {
	ctx := context.Background()
	user := t.Name()

	e := quickExpense(user, "2024-01-05", "Shell", "Transportation", 4000)
	e.Source = model.SourceOFX
	e.ExternalID = "FIT-1"
	require.NoError(t, s.SaveExpense(ctx, e))

	exists, err := s.ExpenseExists(ctx, user, "FIT-1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.ExpenseExists(ctx, user, "FIT-2")
	require.NoError(t, err)
	assert.False(t, exists)

	dup := quickExpense(user, "2024-01-05", "Shell", "Transportation", 4000)
	dup.ExternalID = "FIT-1"
	assert.ErrorIs(t, s.SaveExpense(ctx, dup), common.ErrPersistence)

	// Expenses without an external id never collide.
	require.NoError(t, s.SaveExpense(ctx, quickExpense(user, "2024-01-05", "a", "Other", 1)))
	require.NoError(t, s.SaveExpense(ctx, quickExpense(user, "2024-01-05", "b", "Other", 1)))
}

func testExportRows(t *testing.T, s *SQLStorage) {
	ctx := context.Background()
	user := t.Name()

	require.NoError(t, s.SaveExpense(ctx, quickExpense(user, "2024-01-01", "bread", "Groceries", 120)))
	require.NoError(t, s.SaveExpense(ctx, quickExpense(user, "2024-02-01", "cinema", "Entertainment", 900)))

	rows, err := s.ExportRows(ctx, user, service.DateRange{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "cinema", rows[0].ItemName)
	assert.Equal(t, "Entertainment", rows[0].Category)

	rows, err = s.ExportRows(ctx, user, service.DateRange{End: day("2024-01-31")})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "bread", rows[0].ItemName)
}

func testCategories(t *testing.T, s *SQLStorage) {
	ctx := context.Background()

	cats, err := s.Categories(ctx, t.Name())
	require.NoError(t, err)
	require.Len(t, cats, len(model.SystemCategories))
	for i, def := range model.SystemCategories {
		assert.Equal(t, def.Name, cats[i].Name)
		assert.True(t, cats[i].IsSystem)
	}

	cat, err := s.CategoryByName(ctx, t.Name(), "  groceries ")
	require.NoError(t, err)
	assert.Equal(t, "Groceries", cat.Name)

	_, err = s.CategoryByName(ctx, t.Name(), "Yachts")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func testBudgets(t *testing.T, s *SQLStorage) {
	ctx := context.Background()
	user := t.Name()

	groceries, err := s.CategoryByName(ctx, user, "Groceries")
	require.NoError(t, err)

	limit := &model.BudgetLimit{UserID: user, CategoryID: groceries.ID, MonthlyLimit: 30000}
	require.NoError(t, s.UpsertBudget(ctx, limit))
	assert.InDelta(t, model.DefaultAlertThreshold, limit.AlertThreshold, 1e-9)

	require.NoError(t, s.UpsertBudget(ctx, &model.BudgetLimit{
		UserID: user, CategoryID: groceries.ID, MonthlyLimit: 40000, AlertThreshold: 0.9,
	}))

	budgets, err := s.Budgets(ctx, user)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, int64(40000), budgets[0].MonthlyLimit)
	assert.Equal(t, "Groceries", budgets[0].CategoryName)

	got, err := s.BudgetForCategory(ctx, user, groceries.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, got.AlertThreshold, 1e-9)

	require.NoError(t, s.SaveExpense(ctx, quickExpense(user, "2024-03-02", "milk", "Groceries", 500)))
	require.NoError(t, s.SaveExpense(ctx, quickExpense(user, "2024-04-02", "milk", "Groceries", 700)))
	spent, err := s.CategorySpend(ctx, user, groceries.ID, service.MonthRange(day("2024-03-15")))
	require.NoError(t, err)
	assert.Equal(t, int64(500), spent)

	removed, err := s.DeleteBudget(ctx, user, groceries.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.DeleteBudget(ctx, user, groceries.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.BudgetForCategory(ctx, user, groceries.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = s.UpsertBudget(ctx, &model.BudgetLimit{UserID: user, CategoryID: groceries.ID, MonthlyLimit: 0})
	assert.ErrorIs(t, err, ErrInvalidBudget)
}

func testRecurring(t *testing.T, s *SQLStorage) {
	ctx := context.Background()
	user := t.Name()

	netflix := &model.RecurringExpense{
		UserID: user, Name: "Netflix", Amount: 1299, Frequency: model.FrequencyMonthly,
		NextDueDate: day("2024-02-01"), IsActive: true,
	}
	gym := &model.RecurringExpense{
		UserID: user, Name: "Gym", Amount: 3000, Frequency: model.FrequencyMonthly,
		NextDueDate: day("2024-01-15"), IsActive: true,
	}
	require.NoError(t, s.SaveRecurring(ctx, netflix))
	require.NoError(t, s.SaveRecurring(ctx, gym))

	active, err := s.ActiveRecurring(ctx, user)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Gym", active[0].Name)

	due, err := s.DueRecurring(ctx, day("2024-01-20"))
	require.NoError(t, err)
	var names []string
	for _, r := range due {
		if r.UserID == user {
			names = append(names, r.Name)
		}
	}
	assert.Equal(t, []string{"Gym"}, names)

	require.NoError(t, s.UpdateRecurringDueDate(ctx, gym.ID, day("2024-02-15")))
	require.NoError(t, s.SetRecurringActive(ctx, netflix.ID, false))

	active, err = s.ActiveRecurring(ctx, user)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].NextDueDate.Equal(day("2024-02-15")))

	assert.ErrorIs(t, s.SetRecurringActive(ctx, "missing", true), common.ErrNotFound)
}

func testSettings(t *testing.T, s *SQLStorage) {
	ctx := context.Background()
	user := t.Name()

	_, err := s.GetSettings(ctx, user)
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, s.SaveSettings(ctx, &model.UserSettings{UserID: user, Timezone: "UTC+9"}))
	require.NoError(t, s.SaveSettings(ctx, &model.UserSettings{UserID: user, Timezone: "UTC-3.5", DefaultCurrency: "USD"}))

	got, err := s.GetSettings(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "UTC-3.5", got.Timezone)
	assert.Equal(t, "USD", got.DefaultCurrency)
}

func testAnalytics(t *testing.T, s *SQLStorage) {
	ctx := context.Background()
	user := t.Name()

	require.NoError(t, s.SaveExpense(ctx, quickExpense(user, "2024-01-10", "coffee", "Restaurants", 300)))
	require.NoError(t, s.SaveExpense(ctx, quickExpense(user, "2024-02-10", "coffee", "Restaurants", 350)))
	require.NoError(t, s.SaveExpense(ctx, quickExpense(user, "2024-02-11", "Bread", "Groceries", 150)))
	require.NoError(t, s.SaveExpense(ctx, quickExpense(user, "2024-02-12", "bread", "Groceries", 1000)))

	feb := service.MonthRange(day("2024-02-01"))
	total, count, err := s.PeriodTotal(ctx, user, feb)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), total)
	assert.Equal(t, 3, count)

	cats, err := s.CategoryTotals(ctx, user, feb)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, model.CategoryTotal{Category: "Groceries", Total: 1150, ItemCount: 2}, cats[0])

	months, err := s.MonthlyTotals(ctx, user, day("2024-01-01"))
	require.NoError(t, err)
	require.Len(t, months, 2)
	assert.Equal(t, model.MonthlyTotal{Month: "2024-01", Total: 300, ExpenseCount: 1}, months[0])
	assert.Equal(t, "2024-02", months[1].Month)

	top, err := s.TopItems(ctx, user, feb, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "bread", top[0].Name)
	assert.Equal(t, 2, top[0].Count)
	assert.Equal(t, int64(575), top[0].AvgPrice)

	empty, count, err := s.PeriodTotal(ctx, "nobody", feb)
	require.NoError(t, err)
	assert.Zero(t, empty)
	assert.Zero(t, count)
}

func testReceiptPhotos(t *testing.T, s *SQLStorage) {
	ctx := context.Background()
	user := t.Name()

	expense := quickExpense(user, "2024-01-01", "receipt", "Other", 100)
	require.NoError(t, s.SaveExpense(ctx, expense))

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	old := &model.ReceiptPhoto{ExpenseID: expense.ID, FilePath: "/tmp/a.jpg", DeleteAfter: now.Add(-time.Hour)}
	fresh := &model.ReceiptPhoto{ExpenseID: expense.ID, FilePath: "/tmp/b.jpg", DeleteAfter: now.Add(time.Hour)}
	require.NoError(t, s.SaveReceiptPhoto(ctx, old))
	require.NoError(t, s.SaveReceiptPhoto(ctx, fresh))

	expired, err := s.ExpiredReceiptPhotos(ctx, now)
	require.NoError(t, err)
	var ids []string
	for _, p := range expired {
		if p.ExpenseID == expense.ID {
			ids = append(ids, p.ID)
		}
	}
	assert.Equal(t, []string{old.ID}, ids)

	require.NoError(t, s.DeleteReceiptPhoto(ctx, old.ID))
	assert.ErrorIs(t, s.DeleteReceiptPhoto(ctx, old.ID), common.ErrNotFound)
}

func testMigrationsIdempotent(t *testing.T, s *SQLStorage) {
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx))

	statuses, err := s.Migrations(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, ExpectedSchemaVersion)
	for _, st := range statuses {
		assert.NotNil(t, st.AppliedAt, "migration %d", st.Version)
	}

	cats, err := s.Categories(ctx, t.Name())
	require.NoError(t, err)
	assert.Len(t, cats, len(model.SystemCategories))
}
