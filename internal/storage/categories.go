package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
)

const categoryColumns = `id, COALESCE(user_id, ''), name, COALESCE(icon, ''), is_system, created_at`

func scanCategory(row interface{ Scan(...any) error }) (model.Category, error) {
	var (
		cat       model.Category
		isSystem  int
		createdAt string
	)
	if err := row.Scan(&cat.ID, &cat.UserID, &cat.Name, &cat.Icon, &isSystem, &createdAt); err != nil {
		return model.Category{}, err
	}
	cat.IsSystem = isSystem == 1
	cat.CreatedAt = parseTimestamp(createdAt)
	return cat, nil
}

// Categories returns the system categories followed by the user's own.
func (s *SQLStorage) Categories(ctx context.Context, userID string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, s.db, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE user_id IS NULL OR user_id = ?
		ORDER BY is_system DESC, sort_order, name`, userID)
	if err != nil {
		return nil, persistErr("query categories", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, persistErr("scan category", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate categories", err)
	}

	s.logger.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// CategoryByName finds a category visible to the user, ignoring case.
func (s *SQLStorage) CategoryByName(ctx context.Context, userID, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	cat, err := scanCategory(s.queryRow(ctx, s.db, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE LOWER(name) = ? AND (user_id IS NULL OR user_id = ?)
		ORDER BY is_system
		LIMIT 1`, strings.ToLower(strings.TrimSpace(name)), userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", name, common.ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("query category", err)
	}
	return &cat, nil
}

// categoryIDs maps lower-cased category names visible to the user onto ids.
func (s *SQLStorage) categoryIDs(ctx context.Context, q querier, userID string) (map[string]string, error) {
	rows, err := s.query(ctx, q, `SELECT id, name FROM categories WHERE user_id IS NULL OR user_id = ?`, userID)
	if err != nil {
		return nil, persistErr("query category ids", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, persistErr("scan category id", err)
		}
		ids[strings.ToLower(name)] = id
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate category ids", err)
	}
	return ids, nil
}
