package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/service"
)

// SaveExpense inserts the expense, its items and one price-history row per
// item in a single transaction. Missing ids, dates and names are filled in
// on the passed value.
func (s *SQLStorage) SaveExpense(ctx context.Context, expense *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}

	s.fillExpense(expense)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		categories, err := s.categoryIDs(ctx, tx, expense.UserID)
		if err != nil {
			return err
		}

		if _, err := s.exec(ctx, tx, `
			INSERT INTO expenses (id, user_id, store_name, total_amount, currency, purchase_date,
				ocr_confidence, source, external_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			expense.ID, expense.UserID, nullString(expense.StoreName), expense.TotalAmount, expense.Currency,
			formatDate(expense.PurchaseDate), expense.OCRConfidence, expense.Source, nullString(expense.ExternalID),
			formatTimestamp(expense.CreatedAt),
		); err != nil {
			return persistErr("insert expense", err)
		}

		for i := range expense.Items {
			item := &expense.Items[i]
			categoryID := categories[strings.ToLower(item.Category)]
			if categoryID == "" {
				categoryID = categories[strings.ToLower(model.CategoryOther)]
				item.Category = model.CategoryOther
			}

			if _, err := s.exec(ctx, tx, `
				INSERT INTO items (id, expense_id, user_id, item_name, normalized_name, quantity, unit,
					unit_price, total_price, category_id, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				item.ID, expense.ID, expense.UserID, item.Name, item.NormalizedName, item.Quantity,
				nullString(item.Unit), item.UnitPrice, item.TotalPrice, nullString(categoryID),
				formatTimestamp(item.CreatedAt),
			); err != nil {
				return persistErr("insert item", err)
			}

			if _, err := s.exec(ctx, tx, `
				INSERT INTO price_history (id, user_id, normalized_name, store_name, unit_price, unit,
					purchase_date, item_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), expense.UserID, item.NormalizedName, nullString(expense.StoreName),
				item.UnitPrice, nullString(item.Unit), formatDate(expense.PurchaseDate), item.ID,
			); err != nil {
				return persistErr("insert price history", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("saved expense",
		"user_id", expense.UserID,
		"expense_id", expense.ID,
		"items", len(expense.Items),
		"source", expense.Source)
	return nil
}

func (s *SQLStorage) fillExpense(expense *model.Expense) {
	now := s.now()
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = now
	}
	if expense.PurchaseDate.IsZero() {
		expense.PurchaseDate = now
	}
	if expense.Currency == "" {
		expense.Currency = "EUR"
	}
	if expense.Source == "" {
		expense.Source = model.SourceQuickEntry
	}
	for i := range expense.Items {
		item := &expense.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.ExpenseID = expense.ID
		item.UserID = expense.UserID
		item.PurchaseDate = expense.PurchaseDate
		if item.CreatedAt.IsZero() {
			// Offset by position so items read back in receipt order.
			item.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		}
		if item.NormalizedName == "" {
			item.NormalizedName = model.NormalizeName(item.Name)
		}
		if item.Quantity == 0 {
			item.Quantity = 1
		}
		if item.TotalPrice == 0 {
			item.TotalPrice = item.UnitPrice
		}
		if item.UnitPrice == 0 {
			item.UnitPrice = item.TotalPrice
		}
		if item.Category == "" {
			item.Category = model.CategoryOther
		}
	}
}

const expenseColumns = `id, user_id, COALESCE(store_name, ''), total_amount, currency, purchase_date,
	COALESCE(ocr_confidence, 0), source, COALESCE(external_id, ''), created_at`

func scanExpense(row interface{ Scan(...any) error }) (model.Expense, error) {
	var (
		e            model.Expense
		purchaseDate string
		createdAt    string
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.StoreName, &e.TotalAmount, &e.Currency, &purchaseDate,
		&e.OCRConfidence, &e.Source, &e.ExternalID, &createdAt); err != nil {
		return model.Expense{}, err
	}
	e.PurchaseDate = parseDate(purchaseDate)
	e.CreatedAt = parseTimestamp(createdAt)
	return e, nil
}

// GetExpense returns one expense with its items.
func (s *SQLStorage) GetExpense(ctx context.Context, id string) (*model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	expense, err := scanExpense(s.queryRow(ctx, s.db, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("query expense", err)
	}

	items, err := s.itemsFor(ctx, []string{expense.ID})
	if err != nil {
		return nil, err
	}
	expense.Items = items[expense.ID]
	return &expense, nil
}

// ExpensesInRange returns the user's expenses with items, newest first.
func (s *SQLStorage) ExpensesInRange(ctx context.Context, userID string, r service.DateRange) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	from, to := rangeBounds(r.Start, r.End)
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, s.db, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE user_id = ? AND purchase_date >= ? AND purchase_date <= ?
		ORDER BY purchase_date DESC, created_at DESC`, userID, from, to)
	if err != nil {
		return nil, persistErr("query expenses", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		expenses []model.Expense
		ids      []string
	)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, persistErr("scan expense", err)
		}
		expenses = append(expenses, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate expenses", err)
	}
	_ = rows.Close()

	items, err := s.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range expenses {
		expenses[i].Items = items[expenses[i].ID]
	}
	return expenses, nil
}

const itemColumns = `i.id, i.expense_id, i.user_id, i.item_name, i.normalized_name, i.quantity,
	COALESCE(i.unit, ''), i.unit_price, i.total_price, COALESCE(c.name, 'Other'), i.created_at, e.purchase_date`

func scanItem(row interface{ Scan(...any) error }) (model.Item, error) {
	var (
		item         model.Item
		createdAt    string
		purchaseDate string
	)
	if err := row.Scan(&item.ID, &item.ExpenseID, &item.UserID, &item.Name, &item.NormalizedName, &item.Quantity,
		&item.Unit, &item.UnitPrice, &item.TotalPrice, &item.Category, &createdAt, &purchaseDate); err != nil {
		return model.Item{}, err
	}
	item.CreatedAt = parseTimestamp(createdAt)
	item.PurchaseDate = parseDate(purchaseDate)
	return item, nil
}

// itemsFor loads the items of the given expenses keyed by expense id.
func (s *SQLStorage) itemsFor(ctx context.Context, expenseIDs []string) (map[string][]model.Item, error) {
	items := make(map[string][]model.Item, len(expenseIDs))
	if len(expenseIDs) == 0 {
		return items, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(expenseIDs)), ",")
	args := make([]any, len(expenseIDs))
	for i, id := range expenseIDs {
		args[i] = id
	}

	rows, err := s.query(ctx, s.db, `
		SELECT `+itemColumns+`
		FROM items i
		JOIN expenses e ON e.id = i.expense_id
		LEFT JOIN categories c ON c.id = i.category_id
		WHERE i.expense_id IN (`+placeholders+`)
		ORDER BY i.created_at, i.id`, args...)
	if err != nil {
		return nil, persistErr("query items", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, persistErr("scan item", err)
		}
		items[item.ExpenseID] = append(items[item.ExpenseID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate items", err)
	}
	return items, nil
}

// ExpenseExists reports whether an expense with the external id was already imported.
func (s *SQLStorage) ExpenseExists(ctx context.Context, userID, externalID string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(externalID, "externalID"); err != nil {
		return false, err
	}

	var count int
	if err := s.queryRow(ctx, s.db,
		`SELECT COUNT(*) FROM expenses WHERE user_id = ? AND external_id = ?`, userID, externalID,
	).Scan(&count); err != nil {
		return false, persistErr("check expense", err)
	}
	return count > 0, nil
}

// ExportRows flattens the user's items in the range, newest first.
func (s *SQLStorage) ExportRows(ctx context.Context, userID string, r service.DateRange) ([]model.ExportRow, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	from, to := rangeBounds(r.Start, r.End)
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, s.db, `
		SELECT e.purchase_date, e.id, COALESCE(e.store_name, ''), i.item_name, COALESCE(i.unit, ''),
			COALESCE(c.name, 'Other'), i.unit_price, i.total_price, i.quantity
		FROM items i
		JOIN expenses e ON e.id = i.expense_id
		LEFT JOIN categories c ON c.id = i.category_id
		WHERE e.user_id = ? AND e.purchase_date >= ? AND e.purchase_date <= ?
		ORDER BY e.purchase_date DESC, e.created_at DESC, i.created_at`, userID, from, to)
	if err != nil {
		return nil, persistErr("query export rows", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ExportRow
	for rows.Next() {
		var (
			row          model.ExportRow
			purchaseDate string
		)
		if err := rows.Scan(&purchaseDate, &row.ExpenseID, &row.StoreName, &row.ItemName, &row.Unit,
			&row.Category, &row.UnitPrice, &row.TotalPrice, &row.Quantity); err != nil {
			return nil, persistErr("scan export row", err)
		}
		row.PurchaseDate = parseDate(purchaseDate)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate export rows", err)
	}
	return out, nil
}

// RecentItems returns the user's latest items, newest first.
func (s *SQLStorage) RecentItems(ctx context.Context, userID string, limit int) ([]model.Item, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.query(ctx, s.db, `
		SELECT `+itemColumns+`
		FROM items i
		JOIN expenses e ON e.id = i.expense_id
		LEFT JOIN categories c ON c.id = i.category_id
		WHERE i.user_id = ?
		ORDER BY e.purchase_date DESC, i.created_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, persistErr("query recent items", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, persistErr("scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate items", err)
	}
	return items, nil
}

// CategorizedItems returns the user's most recent item labels with their
// categories, for training the category learner.
func (s *SQLStorage) CategorizedItems(ctx context.Context, userID string, limit int) ([]model.CategoryResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.query(ctx, s.db, `
		SELECT i.item_name, COALESCE(c.name, 'Other')
		FROM items i
		LEFT JOIN categories c ON c.id = i.category_id
		WHERE i.user_id = ?
		ORDER BY i.created_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, persistErr("query categorized items", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.CategoryResult
	for rows.Next() {
		var r model.CategoryResult
		if err := rows.Scan(&r.ItemLabel, &r.Category); err != nil {
			return nil, persistErr("scan categorized item", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate categorized items", err)
	}
	return out, nil
}
