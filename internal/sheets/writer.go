package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/money"
)

const sheetTitle = "Expenses"

// Writer writes expense reports to a Google spreadsheet.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	ts, err := tokenSource(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets credentials: %w", err)
	}
	return newWriter(ctx, config, logger, option.WithTokenSource(ts))
}

func newWriter(ctx context.Context, config Config, logger *slog.Logger, opts ...option.ClientOption) (*Writer, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	return &Writer{
		config:  config,
		service: srv,
		logger:  common.OrDefault(logger),
	}, nil
}

// Write replaces the sheet contents with report and returns the
// spreadsheet URL.
func (w *Writer) Write(ctx context.Context, report Report) (string, error) {
	w.logger.Info("Starting spreadsheet export", "rows", len(report.Rows), "period", report.Period)

	spreadsheetID, url, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if err := w.withRetry(ctx, func() error { return w.clearSheet(ctx, spreadsheetID) }); err != nil {
		return "", fmt.Errorf("failed to clear sheet: %w", err)
	}

	values := prepareReportData(report)
	if err := w.withRetry(ctx, func() error { return w.writeData(ctx, spreadsheetID, values) }); err != nil {
		return "", fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		if err := w.withRetry(ctx, func() error { return w.applyFormatting(ctx, spreadsheetID, len(values)) }); err != nil {
			w.logger.Warn("Failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("Spreadsheet export completed", "spreadsheet_id", spreadsheetID, "rows_written", len(values))
	return url, nil
}

// withRetry retries rate-limited and server-side failures.
func (w *Writer) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(uint(w.config.RetryAttempts+1)),
		retry.Delay(w.config.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) {
				return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
			}
			return false
		}),
	)
}

func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, string, error) {
	if w.config.SpreadsheetID != "" {
		existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return existing.SpreadsheetId, existing.SpreadsheetUrl, nil
	}

	name := w.config.SpreadsheetName
	if name == "" {
		name = DefaultConfig().SpreadsheetName
	}
	created, err := w.service.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    name,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{{Properties: &sheets.SheetProperties{
			Title:           sheetTitle,
			ForceSendFields: []string{"SheetId"},
		}}},
	}).Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("Created new spreadsheet", "id", created.SpreadsheetId, "url", created.SpreadsheetUrl)
	return created.SpreadsheetId, created.SpreadsheetUrl, nil
}

func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// prepareReportData lays out the title, summary, category breakdown and
// item table as sheet rows.
func prepareReportData(report Report) [][]any {
	values := make([][]any, 0, 12+len(report.Categories)+len(report.Rows))

	values = append(values,
		[]any{"Expense Report", report.Period},
		[]any{},
		[]any{"Summary"},
		[]any{"Total Spent", money.ToMajor(report.Total)},
		[]any{"Total Items", len(report.Rows)},
		[]any{"Currency", report.Currency},
		[]any{},
		[]any{"Category Breakdown"},
		[]any{"Category", "Items", "Amount"},
	)
	for _, c := range report.Categories {
		values = append(values, []any{c.Category, c.ItemCount, money.ToMajor(c.Total)})
	}

	values = append(values, []any{}, []any{"Items"}, itemHeader)
	for _, r := range report.Rows {
		values = append(values, []any{
			r.PurchaseDate.Format(model.DateLayout),
			r.StoreName,
			r.ItemName,
			r.Quantity,
			r.Unit,
			money.ToMajor(r.UnitPrice),
			money.ToMajor(r.TotalPrice),
			r.Category,
		})
	}
	return values
}

// writeData writes values in batches to stay under request size limits.
func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))

		batch := values[i:end]
		rangeStr := fmt.Sprintf("A%d", i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, &sheets.ValueRange{Values: batch}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "start_row", i+1, "rows", len(batch))
	}
	return nil
}

func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, totalRows int) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: 0, StartRowIndex: 0, EndRowIndex: 1, StartColumnIndex: 0, EndColumnIndex: 2},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true, FontSize: 16}},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: 0, StartRowIndex: 2, EndRowIndex: int64(totalRows), StartColumnIndex: 0, EndColumnIndex: 1},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true}},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{SheetId: 0, Dimension: "COLUMNS", StartIndex: 0, EndIndex: int64(len(itemHeader))},
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        0,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	return err
}
