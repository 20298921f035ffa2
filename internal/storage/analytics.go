package storage

import (
	"context"
	"time"

	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/service"
)

// PeriodTotal sums the user's expense totals over the range.
func (s *SQLStorage) PeriodTotal(ctx context.Context, userID string, r service.DateRange) (int64, int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, 0, err
	}
	from, to := rangeBounds(r.Start, r.End)
	if err := validateRange(from, to); err != nil {
		return 0, 0, err
	}

	var (
		total int64
		count int
	)
	if err := s.queryRow(ctx, s.db, `
		SELECT COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM expenses
		WHERE user_id = ? AND purchase_date >= ? AND purchase_date <= ?`, userID, from, to,
	).Scan(&total, &count); err != nil {
		return 0, 0, persistErr("sum period total", err)
	}
	return total, count, nil
}

// CategoryTotals sums item totals per category over the range, largest first.
func (s *SQLStorage) CategoryTotals(ctx context.Context, userID string, r service.DateRange) ([]model.CategoryTotal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	from, to := rangeBounds(r.Start, r.End)
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, s.db, `
		SELECT COALESCE(c.name, 'Other') AS category, SUM(i.total_price) AS total, COUNT(i.id)
		FROM items i
		JOIN expenses e ON e.id = i.expense_id
		LEFT JOIN categories c ON c.id = i.category_id
		WHERE e.user_id = ? AND e.purchase_date >= ? AND e.purchase_date <= ?
		GROUP BY COALESCE(c.name, 'Other')
		ORDER BY total DESC, category`, userID, from, to)
	if err != nil {
		return nil, persistErr("query category totals", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.CategoryTotal
	for rows.Next() {
		var ct model.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total, &ct.ItemCount); err != nil {
			return nil, persistErr("scan category total", err)
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate category totals", err)
	}
	return out, nil
}

// MonthlyTotals sums expense totals per calendar month from since, oldest first.
func (s *SQLStorage) MonthlyTotals(ctx context.Context, userID string, since time.Time) ([]model.MonthlyTotal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, s.db, `
		SELECT SUBSTR(purchase_date, 1, 7) AS month, SUM(total_amount), COUNT(*)
		FROM expenses
		WHERE user_id = ? AND purchase_date >= ?
		GROUP BY SUBSTR(purchase_date, 1, 7)
		ORDER BY month`, userID, formatDate(since))
	if err != nil {
		return nil, persistErr("query monthly totals", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.MonthlyTotal
	for rows.Next() {
		var mt model.MonthlyTotal
		if err := rows.Scan(&mt.Month, &mt.Total, &mt.ExpenseCount); err != nil {
			return nil, persistErr("scan monthly total", err)
		}
		out = append(out, mt)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate monthly totals", err)
	}
	return out, nil
}

// TopItems returns the items with the largest spend over the range.
func (s *SQLStorage) TopItems(ctx context.Context, userID string, r service.DateRange, limit int) ([]model.ItemStat, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	from, to := rangeBounds(r.Start, r.End)
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, s.db, `
		SELECT i.normalized_name, SUM(i.total_price) AS total, COUNT(*), CAST(AVG(i.unit_price) AS BIGINT)
		FROM items i
		JOIN expenses e ON e.id = i.expense_id
		WHERE e.user_id = ? AND e.purchase_date >= ? AND e.purchase_date <= ?
		GROUP BY i.normalized_name
		ORDER BY total DESC, i.normalized_name
		LIMIT ?`, userID, from, to, limit)
	if err != nil {
		return nil, persistErr("query top items", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ItemStat
	for rows.Next() {
		var st model.ItemStat
		if err := rows.Scan(&st.Name, &st.Amount, &st.Count, &st.AvgPrice); err != nil {
			return nil, persistErr("scan top item", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate top items", err)
	}
	return out, nil
}

// PriceHistory returns the user's observed unit prices since the given
// date, oldest first.
func (s *SQLStorage) PriceHistory(ctx context.Context, userID string, since time.Time) ([]model.PricePoint, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, s.db, `
		SELECT ph.normalized_name, COALESCE(ph.store_name, ''), COALESCE(c.name, 'Other'), ph.unit_price, ph.purchase_date
		FROM price_history ph
		LEFT JOIN items i ON i.id = ph.item_id
		LEFT JOIN categories c ON c.id = i.category_id
		WHERE ph.user_id = ? AND ph.purchase_date >= ?
		ORDER BY ph.purchase_date, ph.normalized_name`, userID, formatDate(since))
	if err != nil {
		return nil, persistErr("query price history", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.PricePoint
	for rows.Next() {
		var (
			p            model.PricePoint
			purchaseDate string
		)
		if err := rows.Scan(&p.NormalizedName, &p.StoreName, &p.Category, &p.UnitPrice, &purchaseDate); err != nil {
			return nil, persistErr("scan price point", err)
		}
		p.PurchaseDate = parseDate(purchaseDate)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate price history", err)
	}
	return out, nil
}

var _ service.Storage = (*SQLStorage)(nil)
