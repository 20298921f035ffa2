package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
)

// Argument errors. All of them also match common.ErrPersistence.
var (
	ErrNilContext       = fmt.Errorf("%w: context cannot be nil", common.ErrPersistence)
	ErrEmptyString      = fmt.Errorf("%w: string parameter cannot be empty", common.ErrPersistence)
	ErrNilParameter     = fmt.Errorf("%w: parameter cannot be nil", common.ErrPersistence)
	ErrInvalidDateRange = fmt.Errorf("%w: start date must be before end date", common.ErrPersistence)
	ErrInvalidExpense   = fmt.Errorf("%w: invalid expense", common.ErrPersistence)
	ErrInvalidBudget    = fmt.Errorf("%w: invalid budget", common.ErrPersistence)
	ErrInvalidRecurring = fmt.Errorf("%w: invalid recurring expense", common.ErrPersistence)
)

// validateContext rejects nil and already-cancelled contexts.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return ctx.Err()
}

func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateRange(start, end string) error {
	if start > end {
		return fmt.Errorf("%w: %s > %s", ErrInvalidDateRange, start, end)
	}
	return nil
}

func validateExpense(expense *model.Expense) error {
	if expense == nil {
		return fmt.Errorf("%w: expense", ErrNilParameter)
	}
	if err := validateString(expense.UserID, "userID"); err != nil {
		return err
	}
	if expense.TotalAmount < 0 {
		return fmt.Errorf("%w: negative total", ErrInvalidExpense)
	}
	for i, item := range expense.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: item %d has no name", ErrInvalidExpense, i)
		}
	}
	return nil
}

func validateBudget(limit *model.BudgetLimit) error {
	if limit == nil {
		return fmt.Errorf("%w: budget", ErrNilParameter)
	}
	if err := validateString(limit.UserID, "userID"); err != nil {
		return err
	}
	if err := validateString(limit.CategoryID, "categoryID"); err != nil {
		return err
	}
	if limit.MonthlyLimit <= 0 {
		return fmt.Errorf("%w: limit must be positive", ErrInvalidBudget)
	}
	if limit.AlertThreshold < 0 || limit.AlertThreshold > 1 {
		return fmt.Errorf("%w: alert threshold must be between 0 and 1", ErrInvalidBudget)
	}
	return nil
}

func validateRecurring(r *model.RecurringExpense) error {
	if r == nil {
		return fmt.Errorf("%w: recurring expense", ErrNilParameter)
	}
	if err := validateString(r.UserID, "userID"); err != nil {
		return err
	}
	if err := validateString(r.Name, "name"); err != nil {
		return err
	}
	if r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRecurring)
	}
	if r.NextDueDate.IsZero() {
		return fmt.Errorf("%w: missing next due date", ErrInvalidRecurring)
	}
	return nil
}

// IsArgumentError reports whether err came from argument validation rather
// than the database.
func IsArgumentError(err error) bool {
	for _, target := range []error{ErrNilContext, ErrEmptyString, ErrNilParameter, ErrInvalidDateRange, ErrInvalidExpense, ErrInvalidBudget, ErrInvalidRecurring} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
