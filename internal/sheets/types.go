package sheets

import (
	"github.com/Veraticus/expensesbot/internal/model"
)

// Report is the content of one spreadsheet export.
type Report struct {
	Period     string
	Currency   string
	Rows       []model.ExportRow
	Categories []model.CategoryTotal
	Total      int64
}

// itemHeader is the column layout of the item table.
var itemHeader = []any{"Date", "Store", "Item", "Quantity", "Unit", "Unit Price", "Total Price", "Category"}
