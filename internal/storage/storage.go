// Package storage provides the relational persistence layer for expenses,
// budgets, recurring bills and settings. The same statements run on SQLite
// and PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStorage implements service.Storage on database/sql.
type SQLStorage struct {
	db     *sql.DB
	logger *slog.Logger
	driver string
	now    func() time.Time
}

// Open connects to the database named by driver. For SQLite dsn is a file
// path, for PostgreSQL a connection URL.
func Open(driver, dsn string) (*SQLStorage, error) {
	switch strings.ToLower(driver) {
	case "", DriverSQLite, "sqlite3":
		return NewSQLiteStorage(dsn)
	case DriverPostgres, "postgresql", "pgx":
		return NewPostgresStorage(dsn)
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", common.ErrInvalidConfig, driver)
	}
}

// NewSQLiteStorage opens (creating if needed) a SQLite database file.
func NewSQLiteStorage(dbPath string) (*SQLStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; one connection also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newSQLStorage(db, DriverSQLite), nil
}

// NewPostgresStorage connects to PostgreSQL through the pgx driver.
func NewPostgresStorage(url string) (*SQLStorage, error) {
	if err := validateString(url, "url"); err != nil {
		return nil, err
	}

	cfg, err := pgx.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	db := stdlib.OpenDB(*cfg)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Connected to PostgreSQL", "host", cfg.Host, "database", cfg.Database)
	return newSQLStorage(db, DriverPostgres), nil
}

func newSQLStorage(db *sql.DB, driver string) *SQLStorage {
	return &SQLStorage{
		db:     db,
		driver: driver,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// Driver reports which database the storage is connected to.
func (s *SQLStorage) Driver() string {
	return s.driver
}

// Close closes the database connection.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (s *SQLStorage) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inString := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inString = !inString
			b.WriteByte(c)
		case c == '?' && !inString:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStorage) exec(ctx context.Context, q querier, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *SQLStorage) query(ctx context.Context, q querier, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.rebind(query), args...)
}

func (s *SQLStorage) queryRow(ctx context.Context, q querier, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.rebind(query), args...)
}

// withTx runs fn in a transaction, committing when it returns nil.
func (s *SQLStorage) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return persistErr("commit transaction", err)
	}
	return nil
}

// persistErr wraps a driver error in the persistence family.
func persistErr(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", common.ErrPersistence, op, err)
}

func (s *SQLStorage) timestamp() string {
	return formatTimestamp(s.now())
}

// timestampLayout has a fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// Rows written by SQLite defaults use "YYYY-MM-DD HH:MM:SS".
		t, _ = time.Parse(time.DateTime, s)
	}
	return t
}

func formatDate(t time.Time) string {
	return t.Format(model.DateLayout)
}

func parseDate(s string) time.Time {
	if len(s) > len(model.DateLayout) {
		s = s[:len(model.DateLayout)]
	}
	t, _ := time.Parse(model.DateLayout, s)
	return t
}

// rangeBounds turns an open-ended range into inclusive date strings.
func rangeBounds(start, end time.Time) (string, string) {
	from, to := "0000-01-01", "9999-12-31"
	if !start.IsZero() {
		from = formatDate(start)
	}
	if !end.IsZero() {
		to = formatDate(end)
	}
	return from, to
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
