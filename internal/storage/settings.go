package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
)

// GetSettings returns the user's saved settings or common.ErrNotFound.
func (s *SQLStorage) GetSettings(ctx context.Context, userID string) (*model.UserSettings, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	var (
		settings  model.UserSettings
		createdAt string
	)
	err := s.queryRow(ctx, s.db,
		`SELECT user_id, default_currency, timezone, created_at FROM user_settings WHERE user_id = ?`, userID,
	).Scan(&settings.UserID, &settings.DefaultCurrency, &settings.Timezone, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settings for %s: %w", userID, common.ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("query settings", err)
	}
	settings.CreatedAt = parseTimestamp(createdAt)
	return &settings, nil
}

// SaveSettings creates or replaces the user's settings.
func (s *SQLStorage) SaveSettings(ctx context.Context, settings *model.UserSettings) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if settings == nil {
		return fmt.Errorf("%w: settings", ErrNilParameter)
	}
	if err := validateString(settings.UserID, "userID"); err != nil {
		return err
	}
	if settings.DefaultCurrency == "" {
		settings.DefaultCurrency = "EUR"
	}
	if settings.Timezone == "" {
		settings.Timezone = "UTC+0"
	}
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = s.now()
	}

	if _, err := s.exec(ctx, s.db, `
		INSERT INTO user_settings (user_id, default_currency, timezone, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			default_currency = excluded.default_currency,
			timezone = excluded.timezone`,
		settings.UserID, settings.DefaultCurrency, settings.Timezone, formatTimestamp(settings.CreatedAt),
	); err != nil {
		return persistErr("save settings", err)
	}
	return nil
}
