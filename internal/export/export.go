// Package export renders a user's expenses as CSV, JSON, PDF or a Google
// spreadsheet.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/service"
	"github.com/Veraticus/expensesbot/internal/sheets"
)

// Format names an export rendering.
type Format string

// Supported formats.
const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatPDF    Format = "pdf"
	FormatSheets Format = "sheets"
)

// ParseFormat maps user input to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatPDF, FormatSheets:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", common.ErrValidation, s)
	}
}

// Request selects what to export. Zero range bounds are open.
type Request struct {
	UserID string
	Format Format
	Range  service.DateRange
}

// Result is a rendered export. Data is empty for spreadsheet exports,
// whose location is reported in Message.
type Result struct {
	Format   Format
	FileName string
	Message  string
	Data     []byte
}

// Store is the read side exports are built from.
type Store interface {
	ExportRows(ctx context.Context, userID string, r service.DateRange) ([]model.ExportRow, error)
	ExpensesInRange(ctx context.Context, userID string, r service.DateRange) ([]model.Expense, error)
	CategoryTotals(ctx context.Context, userID string, r service.DateRange) ([]model.CategoryTotal, error)
}

// SheetWriter publishes a report to a spreadsheet and returns its URL.
type SheetWriter interface {
	Write(ctx context.Context, report sheets.Report) (string, error)
}

// Exporter renders exports.
type Exporter struct {
	store    Store
	sheets   SheetWriter
	logger   *slog.Logger
	now      func() time.Time
	currency string
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithSheets enables the spreadsheet format.
func WithSheets(w SheetWriter) Option {
	return func(e *Exporter) { e.sheets = w }
}

// WithClock overrides the export timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// New creates an exporter formatting amounts in currency.
func New(store Store, currency string, logger *slog.Logger, opts ...Option) *Exporter {
	if currency == "" {
		currency = "EUR"
	}
	e := &Exporter{
		store:    store,
		logger:   common.OrDefault(logger),
		now:      time.Now,
		currency: currency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FileName returns the download name for format as of now.
func FileName(format Format, now time.Time) string {
	date := now.UTC().Format(model.DateLayout)
	switch format {
	case FormatPDF:
		return "expenses_report_" + date + ".pdf"
	case FormatSheets:
		return ""
	default:
		return "expenses_" + date + "." + string(format)
	}
}

// Export renders req.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id required", common.ErrValidation)
	}
	if !req.Range.Start.IsZero() && !req.Range.End.IsZero() && req.Range.End.Before(req.Range.Start) {
		return nil, fmt.Errorf("%w: end date before start date", common.ErrValidation)
	}

	now := e.now()
	var (
		data []byte
		err  error
	)
	switch req.Format {
	case FormatCSV:
		data, err = e.csv(ctx, req)
	case FormatJSON:
		data, err = e.json(ctx, req, now)
	case FormatPDF:
		data, err = e.pdf(ctx, req, now)
	case FormatSheets:
		return e.spreadsheet(ctx, req)
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q", common.ErrValidation, req.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", req.Format, err)
	}

	name := FileName(req.Format, now)
	e.logger.Info("Export generated", "user_id", req.UserID, "format", req.Format, "bytes", len(data))
	return &Result{
		Format:   req.Format,
		FileName: name,
		Message:  fmt.Sprintf("%s export ready: %s", strings.ToUpper(string(req.Format)), name),
		Data:     data,
	}, nil
}

func (e *Exporter) spreadsheet(ctx context.Context, req Request) (*Result, error) {
	if e.sheets == nil {
		return nil, fmt.Errorf("%w: spreadsheet export needs Google credentials", common.ErrNotConfigured)
	}

	rows, err := e.store.ExportRows(ctx, req.UserID, req.Range)
	if err != nil {
		return nil, fmt.Errorf("failed to load rows: %w", err)
	}
	categories, err := e.store.CategoryTotals(ctx, req.UserID, req.Range)
	if err != nil {
		return nil, fmt.Errorf("failed to total categories: %w", err)
	}

	url, err := e.sheets.Write(ctx, sheets.Report{
		Period:     periodLabel(req.Range),
		Currency:   e.currency,
		Rows:       rows,
		Categories: categories,
		Total:      sumRows(rows),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export sheets: %w", err)
	}
	return &Result{Format: FormatSheets, Message: "Spreadsheet export ready: " + url}, nil
}

func sumRows(rows []model.ExportRow) int64 {
	var total int64
	for _, r := range rows {
		total += r.TotalPrice
	}
	return total
}

// periodLabel describes a range: "All Time", "From 01 Mar 2024",
// "Until 31 Mar 2024" or "01 Mar 2024 - 31 Mar 2024".
func periodLabel(r service.DateRange) string {
	const layout = "02 Jan 2006"
	switch {
	case r.Start.IsZero() && r.End.IsZero():
		return "All Time"
	case r.End.IsZero():
		return "From " + r.Start.Format(layout)
	case r.Start.IsZero():
		return "Until " + r.End.Format(layout)
	default:
		return r.Start.Format(layout) + " - " + r.End.Format(layout)
	}
}

func dateOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}
