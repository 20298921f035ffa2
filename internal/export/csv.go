package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/money"
)

var csvHeader = []string{"Date", "Store", "Item", "Quantity", "Unit", "Unit Price", "Total Price", "Category"}

func (e *Exporter) csv(ctx context.Context, req Request) ([]byte, error) {
	rows, err := e.store.ExportRows(ctx, req.UserID, req.Range)
	if err != nil {
		return nil, err
	}
	return renderCSV(rows, e.currency)
}

// renderCSV writes one line per item, newest first, followed by a SUMMARY
// block when there is anything to summarize.
func renderCSV(rows []model.ExportRow, currency string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := make([][]string, 0, len(rows)+5)
	records = append(records, csvHeader)
	for _, r := range rows {
		category := r.Category
		if category == "" {
			category = model.CategoryOther
		}
		records = append(records, []string{
			r.PurchaseDate.Format(model.DateLayout),
			r.StoreName,
			r.ItemName,
			strconv.FormatFloat(r.Quantity, 'f', -1, 64),
			r.Unit,
			money.ToMajor(r.UnitPrice),
			money.ToMajor(r.TotalPrice),
			category,
		})
	}

	if len(rows) > 0 {
		records = append(records,
			[]string{""},
			[]string{"SUMMARY"},
			[]string{"Total Items", strconv.Itoa(len(rows))},
			[]string{"Total Spent", money.Format(sumRows(rows), currency)},
		)
	}

	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("writing csv: %w", err)
	}
	return buf.Bytes(), nil
}
