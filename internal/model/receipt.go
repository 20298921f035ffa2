package model

// Receipt field limits.
const (
	MaxStoreNameLength = 50
	MaxItemNameLength  = 100
	UnknownStore       = "Unknown Store"
)

// ReceiptItem is one line item read from a receipt.
type ReceiptItem struct {
	Name     string  `json:"name"`
	Amount   int64   `json:"amount"`
	Quantity float64 `json:"quantity"`
}

// ParsedReceipt is the interpreted form of a receipt's OCR text.
// Confidence is a heuristic trust signal, not a probability.
type ParsedReceipt struct {
	StoreName   string
	Items       []ReceiptItem
	TotalAmount int64
	Confidence  float64
}

// EmptyReceipt returns the zero-confidence receipt used whenever interpretation fails.
func EmptyReceipt() ParsedReceipt {
	return ParsedReceipt{
		Items:     []ReceiptItem{},
		StoreName: UnknownStore,
	}
}

// ItemSum adds up the amounts of all items.
func (r ParsedReceipt) ItemSum() int64 {
	var sum int64
	for _, item := range r.Items {
		sum += item.Amount
	}
	return sum
}
