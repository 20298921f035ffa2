// Package testutil provides shared fixtures for package tests: a migrated
// SQLite database and a scripted remote gateway.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/storage"
)

// TestDB is a migrated SQLite database scoped to one test.
type TestDB struct {
	Storage *storage.SQLStorage
	t       *testing.T
}

// SetupTestDB creates a file-backed SQLite database in the test's temp dir,
// runs migrations and closes it on cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "expenses.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return &TestDB{Storage: store, t: t}
}

// AddItem saves a single-item expense and returns it.
func (db *TestDB) AddItem(userID string, date time.Time, name, category string, amount int64) *model.Expense {
	db.t.Helper()

	expense := &model.Expense{
		UserID:       userID,
		PurchaseDate: date,
		TotalAmount:  amount,
		Items: []model.Item{{
			Name:       name,
			Category:   category,
			UnitPrice:  amount,
			TotalPrice: amount,
			Quantity:   1,
		}},
	}
	if err := db.Storage.SaveExpense(context.Background(), expense); err != nil {
		db.t.Fatalf("failed to save expense %q: %v", name, err)
	}
	return expense
}

// MustCategory returns the id of a category or fails the test.
func (db *TestDB) MustCategory(userID, name string) string {
	db.t.Helper()

	cat, err := db.Storage.CategoryByName(context.Background(), userID, name)
	if err != nil {
		db.t.Fatalf("failed to find category %q: %v", name, err)
	}
	return cat.ID
}

// Date parses a YYYY-MM-DD string or fails the test.
func (db *TestDB) Date(s string) time.Time {
	db.t.Helper()

	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		db.t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}
