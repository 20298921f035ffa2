package receipt

import (
	"regexp"
	"strings"

	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/money"
)

var (
	itemLinePattern  = regexp.MustCompile(`^(.+?)\s+(-?\d+[.,]\d{2})\s*€?$`)
	anyAmountPattern = regexp.MustCompile(`€?\s*(\d+[.,]\d{2})`)
	totalLinePattern = regexp.MustCompile(`(?i)^(total|totaal|summe|importe|montante|a pagar)\b`)
	skipLinePattern  = regexp.MustCompile(`(?i)^(subtotal|iva|vat|tax|troco|change|multibanco|visa|mastercard|cash|dinheiro)\b`)
)

// ParseLines reads a receipt without the remote service. Lines ending in a
// price become items; a line starting with a total keyword sets the total.
// When no line looks like an item, the last amount in the text is used as a
// single "Receipt total" item.
func ParseLines(text string) model.ParsedReceipt {
	receipt := model.EmptyReceipt()

	var total int64
	var sawTotal bool
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if receipt.StoreName == model.UnknownStore && len(receipt.Items) == 0 && !anyAmountPattern.MatchString(line) {
			receipt.StoreName = truncate(line, model.MaxStoreNameLength)
			continue
		}

		m := itemLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		amount, err := money.ParseMinorUnits(m[2])
		if err != nil {
			continue
		}

		switch {
		case totalLinePattern.MatchString(name):
			total = amount
			sawTotal = true
		case skipLinePattern.MatchString(name):
		case amount != 0 && len([]rune(name)) > 1:
			receipt.Items = append(receipt.Items, model.ReceiptItem{
				Name:     truncate(name, model.MaxItemNameLength),
				Amount:   amount,
				Quantity: 1,
			})
		}
	}

	if len(receipt.Items) == 0 {
		matches := anyAmountPattern.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			return model.EmptyReceipt()
		}
		amount, err := money.ParseMinorUnits(matches[len(matches)-1][1])
		if err != nil || amount <= 0 {
			return model.EmptyReceipt()
		}
		receipt.Items = append(receipt.Items, model.ReceiptItem{Name: "Receipt total", Amount: amount, Quantity: 1})
		total = amount
		sawTotal = true
	}

	if !sawTotal {
		total = receipt.ItemSum()
	}
	receipt.TotalAmount = total
	return receipt
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
