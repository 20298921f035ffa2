package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/service"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration. Statements use ?
// placeholders and portable DDL so one list serves both drivers.
type Migration struct {
	Up          func(ctx context.Context, s *SQLStorage, tx *sql.Tx) error
	Description string
	Version     int
}

func execAll(ctx context.Context, s *SQLStorage, tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := s.exec(ctx, tx, query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(ctx context.Context, s *SQLStorage, tx *sql.Tx) error {
			return execAll(ctx, s, tx,
				`CREATE TABLE IF NOT EXISTS user_settings (
					user_id TEXT PRIMARY KEY,
					default_currency TEXT NOT NULL DEFAULT 'EUR',
					timezone TEXT NOT NULL DEFAULT 'UTC+0',
					created_at TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS categories (
					id TEXT PRIMARY KEY,
					user_id TEXT,
					name TEXT NOT NULL,
					icon TEXT,
					is_system INTEGER NOT NULL DEFAULT 0,
					sort_order INTEGER NOT NULL DEFAULT 0,
					created_at TEXT NOT NULL,
					UNIQUE(user_id, name)
				)`,
				`CREATE TABLE IF NOT EXISTS expenses (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					store_name TEXT,
					total_amount BIGINT NOT NULL,
					currency TEXT NOT NULL DEFAULT 'EUR',
					purchase_date TEXT NOT NULL,
					ocr_confidence DOUBLE PRECISION,
					created_at TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS items (
					id TEXT PRIMARY KEY,
					expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
					user_id TEXT NOT NULL,
					item_name TEXT NOT NULL,
					normalized_name TEXT NOT NULL,
					quantity DOUBLE PRECISION NOT NULL DEFAULT 1,
					unit TEXT,
					unit_price BIGINT NOT NULL,
					total_price BIGINT NOT NULL,
					category_id TEXT REFERENCES categories(id),
					created_at TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS price_history (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					normalized_name TEXT NOT NULL,
					store_name TEXT,
					unit_price BIGINT NOT NULL,
					unit TEXT,
					purchase_date TEXT NOT NULL,
					item_id TEXT REFERENCES items(id) ON DELETE CASCADE
				)`,
				`CREATE TABLE IF NOT EXISTS budget_limits (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					category_id TEXT NOT NULL REFERENCES categories(id),
					monthly_limit BIGINT NOT NULL,
					currency TEXT NOT NULL DEFAULT 'EUR',
					alert_threshold DOUBLE PRECISION NOT NULL DEFAULT 0.8,
					created_at TEXT NOT NULL,
					UNIQUE(user_id, category_id)
				)`,
				`CREATE TABLE IF NOT EXISTS recurring_expenses (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					name TEXT NOT NULL,
					amount BIGINT NOT NULL,
					currency TEXT NOT NULL DEFAULT 'EUR',
					category_id TEXT REFERENCES categories(id),
					frequency TEXT NOT NULL,
					next_due_date TEXT NOT NULL,
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS receipt_photos (
					id TEXT PRIMARY KEY,
					expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
					file_path TEXT NOT NULL,
					telegram_file_id TEXT,
					file_size BIGINT,
					upload_date TEXT NOT NULL,
					delete_after TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS user_patterns (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					pattern_type TEXT NOT NULL,
					pattern_key TEXT NOT NULL,
					pattern_value TEXT NOT NULL,
					confidence DOUBLE PRECISION NOT NULL DEFAULT 1.0,
					match_count INTEGER NOT NULL DEFAULT 1,
					UNIQUE(user_id, pattern_type, pattern_key)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_items_normalized_name ON items(normalized_name)`,
				`CREATE INDEX IF NOT EXISTS idx_price_history_name_date ON price_history(normalized_name, purchase_date)`,
				`CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses(user_id, purchase_date)`,
				`CREATE INDEX IF NOT EXISTS idx_items_expense_id ON items(expense_id)`,
				`CREATE INDEX IF NOT EXISTS idx_categories_user ON categories(user_id)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Seed system categories",
		Up: func(ctx context.Context, s *SQLStorage, tx *sql.Tx) error {
			var count int
			if err := s.queryRow(ctx, tx, `SELECT COUNT(*) FROM categories WHERE is_system = 1`).Scan(&count); err != nil {
				return fmt.Errorf("failed to count system categories: %w", err)
			}
			if count > 0 {
				return nil
			}
			createdAt := s.timestamp()
			for i, def := range model.SystemCategories {
				if _, err := s.exec(ctx, tx,
					`INSERT INTO categories (id, user_id, name, icon, is_system, sort_order, created_at) VALUES (?, NULL, ?, ?, 1, ?, ?)`,
					uuid.NewString(), def.Name, def.Icon, i, createdAt,
				); err != nil {
					return fmt.Errorf("failed to seed category %q: %w", def.Name, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Track expense source and external ids for imports",
		Up: func(ctx context.Context, s *SQLStorage, tx *sql.Tx) error {
			return execAll(ctx, s, tx,
				`ALTER TABLE expenses ADD COLUMN source TEXT NOT NULL DEFAULT 'quick_entry'`,
				`ALTER TABLE expenses ADD COLUMN external_id TEXT`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_expenses_user_external ON expenses(user_id, external_id)`,
			)
		},
	},
	{
		Version:     4,
		Description: "Index recurring due dates",
		Up: func(ctx context.Context, s *SQLStorage, tx *sql.Tx) error {
			return execAll(ctx, s, tx,
				`CREATE INDEX IF NOT EXISTS idx_recurring_due ON recurring_expenses(is_active, next_due_date)`,
			)
		},
	},
}

func (s *SQLStorage) ensureMigrationTable(ctx context.Context) error {
	_, err := s.exec(ctx, s.db, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return persistErr("create schema_migrations", err)
	}
	return nil
}

func (s *SQLStorage) appliedVersions(ctx context.Context) (map[int]string, error) {
	rows, err := s.query(ctx, s.db, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, persistErr("query schema_migrations", err)
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]string)
	for rows.Next() {
		var (
			version   int
			appliedAt string
		)
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, persistErr("scan migration", err)
		}
		applied[version] = appliedAt
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate migrations", err)
	}
	return applied, nil
}

// Migrate applies all pending database migrations. Running it again is a no-op.
func (s *SQLStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := s.ensureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if _, ok := applied[migration.Version]; ok {
			continue
		}

		err := s.withTx(ctx, func(tx *sql.Tx) error {
			if upErr := migration.Up(ctx, s, tx); upErr != nil {
				return persistErr(fmt.Sprintf("apply migration %d", migration.Version), upErr)
			}
			if _, execErr := s.exec(ctx, tx,
				`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
				migration.Version, migration.Description, s.timestamp(),
			); execErr != nil {
				return persistErr("record schema version", execErr)
			}
			return nil
		})
		if err != nil {
			return err
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description,
			"driver", s.driver)
	}

	var finalVersion int
	if err := s.queryRow(ctx, s.db, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&finalVersion); err != nil {
		return persistErr("verify schema version", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}
	return nil
}

// Migrations reports every known migration and when it was applied.
func (s *SQLStorage) Migrations(ctx context.Context) ([]service.MigrationStatus, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := s.ensureMigrationTable(ctx); err != nil {
		return nil, err
	}
	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]service.MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		status := service.MigrationStatus{Version: m.Version, Description: m.Description}
		if at, ok := applied[m.Version]; ok {
			t := parseTimestamp(at)
			status.AppliedAt = &t
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
