package recurring

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/expensesbot/internal/categorize"
	"github.com/Veraticus/expensesbot/internal/model"
)

// ExpenseSaver records the expenses produced by due recurring entries.
type ExpenseSaver interface {
	SaveExpense(ctx context.Context, expense *model.Expense) error
	ExpenseExists(ctx context.Context, userID, externalID string) (bool, error)
}

// Charge records one expense for every period that fell due on or before
// asOf and advances each entry past it. Periods already recorded are
// skipped, so a run interrupted between save and advance is safe to repeat.
// It returns the number of expenses created.
func (s *Service) Charge(ctx context.Context, asOf time.Time, expenses ExpenseSaver) (int, error) {
	due, err := s.Due(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to list due recurring expenses: %w", err)
	}

	created := 0
	for _, r := range due {
		for !r.NextDueDate.After(asOf) {
			if err := ctx.Err(); err != nil {
				return created, err
			}
			ok, err := s.chargeOnce(ctx, r, expenses)
			if err != nil {
				return created, err
			}
			if ok {
				created++
			}
			next, err := s.Advance(ctx, r)
			if err != nil {
				return created, err
			}
			r.NextDueDate = next
		}
	}

	if created > 0 {
		s.logger.Info("Recorded recurring expenses", "count", created, "as_of", asOf.Format(model.DateLayout))
	}
	return created, nil
}

func (s *Service) chargeOnce(ctx context.Context, r model.RecurringExpense, expenses ExpenseSaver) (bool, error) {
	externalID := fmt.Sprintf("recurring:%s:%s", r.ID, r.NextDueDate.Format(model.DateLayout))
	exists, err := expenses.ExpenseExists(ctx, r.UserID, externalID)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", r.Name, err)
	}
	if exists {
		s.logger.Debug("recurring period already recorded", "name", r.Name, "external_id", externalID)
		return false, nil
	}

	expense := &model.Expense{
		UserID:       r.UserID,
		PurchaseDate: r.NextDueDate,
		StoreName:    r.Name,
		Currency:     r.Currency,
		Source:       model.SourceRecurring,
		ExternalID:   externalID,
		TotalAmount:  r.Amount,
		Items: []model.Item{{
			Name:       r.Name,
			Category:   categorize.Keyword(r.Name),
			UnitPrice:  r.Amount,
			TotalPrice: r.Amount,
			Quantity:   1,
		}},
	}
	if err := expenses.SaveExpense(ctx, expense); err != nil {
		return false, fmt.Errorf("failed to record %s: %w", r.Name, err)
	}
	return true, nil
}
