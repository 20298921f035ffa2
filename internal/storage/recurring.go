package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
)

// SaveRecurring inserts a new recurring expense.
func (s *SQLStorage) SaveRecurring(ctx context.Context, r *model.RecurringExpense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecurring(r); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Currency == "" {
		r.Currency = "EUR"
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}

	if _, err := s.exec(ctx, s.db, `
		INSERT INTO recurring_expenses (id, user_id, name, amount, currency, category_id, frequency,
			next_due_date, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Name, r.Amount, r.Currency, nullString(r.CategoryID), string(r.Frequency),
		formatDate(r.NextDueDate), boolInt(r.IsActive), formatTimestamp(r.CreatedAt),
	); err != nil {
		return persistErr("insert recurring expense", err)
	}
	return nil
}

const recurringColumns = `id, user_id, name, amount, currency, COALESCE(category_id, ''), frequency,
	next_due_date, is_active, created_at`

func (s *SQLStorage) listRecurring(ctx context.Context, query string, args ...any) ([]model.RecurringExpense, error) {
	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, persistErr("query recurring expenses", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.RecurringExpense
	for rows.Next() {
		var (
			r         model.RecurringExpense
			frequency string
			nextDue   string
			active    int
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.Amount, &r.Currency, &r.CategoryID, &frequency,
			&nextDue, &active, &createdAt); err != nil {
			return nil, persistErr("scan recurring expense", err)
		}
		r.Frequency = model.Frequency(frequency)
		r.NextDueDate = parseDate(nextDue)
		r.IsActive = active == 1
		r.CreatedAt = parseTimestamp(createdAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate recurring expenses", err)
	}
	return out, nil
}

// ActiveRecurring returns the user's active recurring expenses, soonest due first.
func (s *SQLStorage) ActiveRecurring(ctx context.Context, userID string) ([]model.RecurringExpense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	return s.listRecurring(ctx, `
		SELECT `+recurringColumns+`
		FROM recurring_expenses
		WHERE user_id = ? AND is_active = 1
		ORDER BY next_due_date, name`, userID)
}

// DueRecurring returns every active recurring expense due on or before asOf.
func (s *SQLStorage) DueRecurring(ctx context.Context, asOf time.Time) ([]model.RecurringExpense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listRecurring(ctx, `
		SELECT `+recurringColumns+`
		FROM recurring_expenses
		WHERE is_active = 1 AND next_due_date <= ?
		ORDER BY next_due_date, user_id`, formatDate(asOf))
}

// UpdateRecurringDueDate moves a recurring expense to its next due date.
func (s *SQLStorage) UpdateRecurringDueDate(ctx context.Context, id string, next time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.updateRecurring(ctx, id, `UPDATE recurring_expenses SET next_due_date = ? WHERE id = ?`, formatDate(next), id)
}

// SetRecurringActive pauses or resumes a recurring expense.
func (s *SQLStorage) SetRecurringActive(ctx context.Context, id string, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.updateRecurring(ctx, id, `UPDATE recurring_expenses SET is_active = ? WHERE id = ?`, boolInt(active), id)
}

func (s *SQLStorage) updateRecurring(ctx context.Context, id, query string, args ...any) error {
	res, err := s.exec(ctx, s.db, query, args...)
	if err != nil {
		return persistErr("update recurring expense", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("count updated recurring expenses", err)
	}
	if n == 0 {
		return fmt.Errorf("recurring expense %s: %w", id, common.ErrNotFound)
	}
	return nil
}
