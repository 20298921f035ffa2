package model

import (
	"strings"
	"time"
)

// DateLayout is the storage and wire format for calendar dates.
const DateLayout = "2006-01-02"

// ParsedEntry is the structured result of a quick-entry line such as "20 coffee".
type ParsedEntry struct {
	Currency         string
	Description      string
	AmountMinorUnits int64
}

// Expense sources.
const (
	SourceQuickEntry = "quick_entry"
	SourceReceipt    = "receipt"
	SourceRecurring  = "recurring"
	SourceOFX        = "ofx"
)

// Expense is one purchase event. Quick entries carry a single item, receipts many.
// ExternalID is set for imported expenses (the bank's FITID) and is unique per user.
type Expense struct {
	PurchaseDate  time.Time
	CreatedAt     time.Time
	ID            string
	UserID        string
	StoreName     string
	Currency      string
	Source        string
	ExternalID    string
	Items         []Item
	TotalAmount   int64
	OCRConfidence float64
}

// Item is a line of an expense. Amounts are integer minor units.
type Item struct {
	CreatedAt      time.Time
	PurchaseDate   time.Time
	ID             string
	ExpenseID      string
	UserID         string
	Name           string
	NormalizedName string
	Unit           string
	Category       string
	UnitPrice      int64
	TotalPrice     int64
	Quantity       float64
}

// NormalizeName lower-cases and trims an item label for repeat-purchase grouping.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// PricePoint is one observed unit price of a normalized item.
type PricePoint struct {
	PurchaseDate   time.Time
	NormalizedName string
	StoreName      string
	Category       string
	UnitPrice      int64
}

// ReceiptPhoto records a stored receipt image for retention cleanup.
type ReceiptPhoto struct {
	UploadedAt  time.Time
	DeleteAfter time.Time
	ID          string
	ExpenseID   string
	FilePath    string
	FileID      string
	FileSize    int64
}

// ExportRow is the flattened expense/item view used by exports.
type ExportRow struct {
	PurchaseDate time.Time
	ExpenseID    string
	StoreName    string
	ItemName     string
	Unit         string
	Category     string
	UnitPrice    int64
	TotalPrice   int64
	Quantity     float64
}
