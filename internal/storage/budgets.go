package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/service"
)

// UpsertBudget creates the category's budget or replaces its limit and threshold.
func (s *SQLStorage) UpsertBudget(ctx context.Context, limit *model.BudgetLimit) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if limit != nil && limit.AlertThreshold == 0 {
		limit.AlertThreshold = model.DefaultAlertThreshold
	}
	if err := validateBudget(limit); err != nil {
		return err
	}
	if limit.ID == "" {
		limit.ID = uuid.NewString()
	}
	if limit.Currency == "" {
		limit.Currency = "EUR"
	}
	if limit.CreatedAt.IsZero() {
		limit.CreatedAt = s.now()
	}

	if _, err := s.exec(ctx, s.db, `
		INSERT INTO budget_limits (id, user_id, category_id, monthly_limit, currency, alert_threshold, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, category_id) DO UPDATE SET
			monthly_limit = excluded.monthly_limit,
			alert_threshold = excluded.alert_threshold,
			currency = excluded.currency`,
		limit.ID, limit.UserID, limit.CategoryID, limit.MonthlyLimit, limit.Currency, limit.AlertThreshold,
		formatTimestamp(limit.CreatedAt),
	); err != nil {
		return persistErr("upsert budget", err)
	}
	return nil
}

const budgetColumns = `bl.id, bl.user_id, bl.category_id, c.name, bl.monthly_limit, bl.currency,
	bl.alert_threshold, bl.created_at`

func scanBudget(row interface{ Scan(...any) error }) (model.BudgetLimit, error) {
	var (
		b         model.BudgetLimit
		createdAt string
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.CategoryName, &b.MonthlyLimit, &b.Currency,
		&b.AlertThreshold, &createdAt); err != nil {
		return model.BudgetLimit{}, err
	}
	b.CreatedAt = parseTimestamp(createdAt)
	return b, nil
}

// Budgets returns the user's budgets ordered by category name.
func (s *SQLStorage) Budgets(ctx context.Context, userID string) ([]model.BudgetLimit, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, s.db, `
		SELECT `+budgetColumns+`
		FROM budget_limits bl
		JOIN categories c ON c.id = bl.category_id
		WHERE bl.user_id = ?
		ORDER BY c.name`, userID)
	if err != nil {
		return nil, persistErr("query budgets", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.BudgetLimit
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, persistErr("scan budget", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate budgets", err)
	}
	return budgets, nil
}

// BudgetForCategory returns the user's budget for one category.
func (s *SQLStorage) BudgetForCategory(ctx context.Context, userID, categoryID string) (*model.BudgetLimit, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(categoryID, "categoryID"); err != nil {
		return nil, err
	}

	b, err := scanBudget(s.queryRow(ctx, s.db, `
		SELECT `+budgetColumns+`
		FROM budget_limits bl
		JOIN categories c ON c.id = bl.category_id
		WHERE bl.user_id = ? AND bl.category_id = ?`, userID, categoryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("budget for %s: %w", categoryID, common.ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("query budget", err)
	}
	return &b, nil
}

// DeleteBudget removes a budget and reports whether one existed.
func (s *SQLStorage) DeleteBudget(ctx context.Context, userID, categoryID string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(categoryID, "categoryID"); err != nil {
		return false, err
	}

	res, err := s.exec(ctx, s.db, `DELETE FROM budget_limits WHERE user_id = ? AND category_id = ?`, userID, categoryID)
	if err != nil {
		return false, persistErr("delete budget", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, persistErr("count deleted budgets", err)
	}
	return n > 0, nil
}

// CategorySpend sums the user's item totals in a category over the range.
func (s *SQLStorage) CategorySpend(ctx context.Context, userID, categoryID string, r service.DateRange) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	from, to := rangeBounds(r.Start, r.End)
	if err := validateRange(from, to); err != nil {
		return 0, err
	}

	var total int64
	if err := s.queryRow(ctx, s.db, `
		SELECT COALESCE(SUM(i.total_price), 0)
		FROM items i
		JOIN expenses e ON e.id = i.expense_id
		WHERE e.user_id = ? AND i.category_id = ? AND e.purchase_date >= ? AND e.purchase_date <= ?`,
		userID, categoryID, from, to,
	).Scan(&total); err != nil {
		return 0, persistErr("sum category spend", err)
	}
	return total, nil
}
