package ofx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/expensesbot/internal/categorize"
	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/money"
)

// Store is what the importer needs from storage.
type Store interface {
	ExpenseExists(ctx context.Context, userID, externalID string) (bool, error)
	SaveExpense(ctx context.Context, expense *model.Expense) error
}

// Summary counts the outcome of an import.
type Summary struct {
	Imported   int
	Duplicates int
	Credits    int
}

// Importer turns statement debits into single-item expenses.
type Importer struct {
	store    Store
	logger   *slog.Logger
	currency string
}

// NewImporter creates an importer. fallbackCurrency is used when a
// statement does not name a valid currency.
func NewImporter(store Store, fallbackCurrency string, logger *slog.Logger) *Importer {
	return &Importer{store: store, currency: fallbackCurrency, logger: common.OrDefault(logger)}
}

// Import saves every debit not imported before (matched by FITID). Credits
// are counted and skipped. progress, when non-nil, is called once per entry.
func (im *Importer) Import(ctx context.Context, userID string, entries []Entry, progress func()) (Summary, error) {
	var sum Summary
	for _, entry := range entries {
		if err := im.importOne(ctx, userID, entry, &sum); err != nil {
			return sum, err
		}
		if progress != nil {
			progress()
		}
	}

	im.logger.Info("Imported bank statement",
		"user_id", userID,
		"imported", sum.Imported,
		"duplicates", sum.Duplicates,
		"credits", sum.Credits)
	return sum, nil
}

func (im *Importer) importOne(ctx context.Context, userID string, entry Entry, sum *Summary) error {
	if !entry.IsDebit() {
		sum.Credits++
		return nil
	}

	if entry.FITID != "" {
		exists, err := im.store.ExpenseExists(ctx, userID, entry.FITID)
		if err != nil {
			return fmt.Errorf("failed to check transaction %s: %w", entry.FITID, err)
		}
		if exists {
			sum.Duplicates++
			return nil
		}
	}

	amount := -entry.Amount
	if amount > money.MaxAmount {
		im.logger.Warn("Skipping oversized transaction", "fitid", entry.FITID, "amount", money.ToMajor(amount))
		return nil
	}

	// XXX is what an absent CURDEF decodes to.
	currency, ok := money.NormalizeCurrency(entry.Currency)
	if !ok || currency == "XXX" {
		currency = im.currency
	}

	date := entry.Date.UTC()
	expense := &model.Expense{
		UserID:       userID,
		PurchaseDate: time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		StoreName:    entry.Merchant,
		Currency:     currency,
		Source:       model.SourceOFX,
		ExternalID:   entry.FITID,
		TotalAmount:  amount,
		Items: []model.Item{{
			Name:       entry.Merchant,
			Category:   categorize.Keyword(entry.Merchant),
			Quantity:   1,
			UnitPrice:  amount,
			TotalPrice: amount,
		}},
	}
	if err := im.store.SaveExpense(ctx, expense); err != nil {
		return fmt.Errorf("failed to save transaction %s: %w", entry.FITID, err)
	}
	sum.Imported++
	return nil
}
