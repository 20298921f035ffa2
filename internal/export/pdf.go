package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/money"
)

const (
	pdfMargin       = 18.0
	pdfRowHeight    = 6.0
	pdfMaxTableRows = 50
)

var (
	pdfColumns = []string{"Date", "Store", "Item", "Amount", "Category"}
	pdfWidths  = []float64{25, 32, 55, 28, 34}
)

func (e *Exporter) pdf(ctx context.Context, req Request, now time.Time) ([]byte, error) {
	rows, err := e.store.ExportRows(ctx, req.UserID, req.Range)
	if err != nil {
		return nil, err
	}
	categories, err := e.store.CategoryTotals(ctx, req.UserID, req.Range)
	if err != nil {
		return nil, err
	}
	return renderPDF(periodLabel(req.Range), rows, categories, e.currency, now)
}

// renderPDF lays out an A4 report: title, period, summary, category
// breakdown and the most recent items.
func renderPDF(period string, rows []model.ExportRow, categories []model.CategoryTotal, currency string, now time.Time) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	doc.SetAutoPageBreak(true, pdfMargin)
	doc.SetCreationDate(now)
	tr := doc.UnicodeTranslatorFromDescriptor("")
	pageWidth, pageHeight := doc.GetPageSize()
	contentWidth := pageWidth - 2*pdfMargin

	doc.AddPage()
	doc.SetFont("Helvetica", "B", 22)
	doc.CellFormat(contentWidth, 10, "Expense Report", "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(contentWidth, 6, period, "", 1, "C", false, 0, "")
	doc.Ln(2)
	doc.Line(pdfMargin, doc.GetY(), pageWidth-pdfMargin, doc.GetY())
	doc.Ln(4)

	total := sumRows(rows)
	var avg int64
	if len(rows) > 0 {
		avg = total / int64(len(rows))
	}
	section(doc, contentWidth, "Summary")
	for _, line := range []string{
		"Total Spent: " + money.Format(total, currency),
		fmt.Sprintf("Total Items: %d", len(rows)),
		"Average per Item: " + money.Format(avg, currency),
	} {
		doc.CellFormat(contentWidth, 5, line, "", 1, "L", false, 0, "")
	}
	doc.Ln(4)

	if len(categories) > 0 {
		section(doc, contentWidth, "Spending by Category")
		for _, c := range categories {
			pct := 0.0
			if total > 0 {
				pct = float64(c.Total) * 100 / float64(total)
			}
			line := fmt.Sprintf("%s: %s (%.1f%%)", c.Category, money.Format(c.Total, currency), pct)
			doc.CellFormat(contentWidth, 5, tr(line), "", 1, "L", false, 0, "")
		}
		doc.Ln(4)
	}

	if len(rows) > 0 {
		section(doc, contentWidth, "Recent Transactions")
		tableHeader(doc)
		doc.SetFont("Helvetica", "", 8)
		for i, r := range rows {
			if i == pdfMaxTableRows {
				break
			}
			if doc.GetY()+pdfRowHeight > pageHeight-pdfMargin {
				doc.AddPage()
				tableHeader(doc)
				doc.SetFont("Helvetica", "", 8)
			}
			store := r.StoreName
			if store == "" {
				store = "Manual"
			}
			cells := []string{
				r.PurchaseDate.Format("02 Jan 2006"),
				truncate(store, 16),
				truncate(r.ItemName, 28),
				money.Format(r.TotalPrice, currency),
				truncate(r.Category, 16),
			}
			for j, cell := range cells {
				doc.CellFormat(pdfWidths[j], pdfRowHeight, tr(cell), "", 0, "L", false, 0, "")
			}
			doc.Ln(pdfRowHeight)
		}
	}

	doc.Ln(8)
	doc.SetFont("Helvetica", "", 8)
	doc.CellFormat(contentWidth, 5, "Generated on "+now.Format("02 Jan 2006"), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func section(doc *fpdf.Fpdf, width float64, title string) {
	doc.SetFont("Helvetica", "B", 13)
	doc.CellFormat(width, 7, title, "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
}

func tableHeader(doc *fpdf.Fpdf) {
	doc.SetFont("Helvetica", "B", 9)
	for i, col := range pdfColumns {
		doc.CellFormat(pdfWidths[i], pdfRowHeight, col, "B", 0, "L", false, 0, "")
	}
	doc.Ln(pdfRowHeight)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if s == "" {
		return "-"
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
