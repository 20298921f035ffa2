// Package receipt turns receipt photos into itemized expenses: OCR, remote
// interpretation, a self-consistency repair, and image retention.
package receipt

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/llm"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/service"
)

const (
	interpretTimeout   = 30 * time.Second
	interpretMaxTokens = 4096
)

// Interpreter extracts a structured receipt from OCR text.
type Interpreter struct {
	gateway service.TextGateway
	logger  *slog.Logger
}

// NewInterpreter creates an interpreter. gateway may be unconfigured, in
// which case receipts are read with ParseLines.
func NewInterpreter(gateway service.TextGateway, logger *slog.Logger) *Interpreter {
	return &Interpreter{
		gateway: gateway,
		logger:  common.OrDefault(logger),
	}
}

type remoteItem struct {
	Price    *decimal.Decimal `json:"price"`
	Quantity *decimal.Decimal `json:"quantity"`
	Name     string           `json:"name"`
}

type remoteReceipt struct {
	Total     *decimal.Decimal `json:"total"`
	StoreName string           `json:"store_name"`
	Items     []remoteItem     `json:"items"`
}

// Interpret never fails: on any error it returns the empty receipt.
func (i *Interpreter) Interpret(ctx context.Context, ocrText string) model.ParsedReceipt {
	if strings.TrimSpace(ocrText) == "" {
		return model.EmptyReceipt()
	}

	receipt, err := i.remote(ctx, ocrText)
	switch {
	case errors.Is(err, common.ErrNotConfigured):
		i.logger.Debug("interpreting receipt without remote service")
		receipt = ParseLines(ocrText)
	case err != nil:
		i.logger.Warn("Receipt interpretation failed", "error", err)
		return model.EmptyReceipt()
	}

	return i.finish(receipt)
}

func (i *Interpreter) remote(ctx context.Context, ocrText string) (model.ParsedReceipt, error) {
	if i.gateway == nil || !i.gateway.Configured() {
		return model.ParsedReceipt{}, common.ErrNotConfigured
	}

	reply, err := i.gateway.Classify(ctx, llm.Request{
		Prompt:      buildPrompt(ocrText),
		Temperature: 0,
		MaxTokens:   interpretMaxTokens,
	}, interpretTimeout)
	if err != nil {
		return model.ParsedReceipt{}, err
	}

	var parsed remoteReceipt
	if err := llm.DecodeJSON(reply, &parsed); err != nil {
		return model.ParsedReceipt{}, err
	}
	return convert(parsed), nil
}

func convert(parsed remoteReceipt) model.ParsedReceipt {
	receipt := model.EmptyReceipt()
	if name := strings.TrimSpace(parsed.StoreName); name != "" {
		receipt.StoreName = name
	}
	hundred := decimal.NewFromInt(100)
	for _, item := range parsed.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" || item.Price == nil {
			continue
		}
		quantity := 1.0
		if item.Quantity != nil && item.Quantity.IsPositive() {
			quantity = item.Quantity.InexactFloat64()
		}
		receipt.Items = append(receipt.Items, model.ReceiptItem{
			Name:     name,
			Amount:   item.Price.Mul(hundred).Round(0).IntPart(),
			Quantity: quantity,
		})
	}
	if parsed.Total != nil {
		receipt.TotalAmount = parsed.Total.Mul(hundred).Round(0).IntPart()
	}
	return receipt
}

// finish applies field limits, the ×10 repair, the mismatch flag and the
// confidence score.
func (i *Interpreter) finish(receipt model.ParsedReceipt) model.ParsedReceipt {
	receipt.StoreName = truncate(receipt.StoreName, model.MaxStoreNameLength)
	if receipt.StoreName == "" {
		receipt.StoreName = model.UnknownStore
	}
	for idx := range receipt.Items {
		receipt.Items[idx].Name = truncate(receipt.Items[idx].Name, model.MaxItemNameLength)
	}

	items, corrected := Correct(receipt.Items, receipt.TotalAmount)
	receipt.Items = items
	if corrected > 0 {
		i.logger.Info("Corrected receipt prices", "items_corrected", corrected, "store", receipt.StoreName)
	}

	if diff := abs(receipt.TotalAmount - receipt.ItemSum()); diff > Tolerance(receipt.TotalAmount) {
		i.logger.Warn("Receipt items do not add up to total",
			"receipt_mismatch", true,
			"total", receipt.TotalAmount,
			"item_sum", receipt.ItemSum(),
			"diff", diff,
		)
	}

	receipt.Confidence = Confidence(len(receipt.Items))
	return receipt
}

func buildPrompt(ocrText string) string {
	return `You are reading the OCR text of a store receipt. Extract it as JSON.

Step 1 - decimal convention: look at the prices, currency and language of the receipt to decide whether it uses a comma (12,34) or a dot (12.34) as decimal separator. Thousands separators use the other symbol.
Step 2 - normalize every price to a plain number with a dot as decimal separator.
Step 3 - extract:
- "store_name": the store or merchant name printed at the top
- "items": every purchased line with "name", "price" (the line total after quantity or weight, not the unit price) and "quantity" (1 when not printed)
- "total": the grand total actually paid

Rules:
- Do NOT include tax/VAT summaries, payment method lines, change given, or subtotal lines as items
- DO include bags, bottle deposits and discounts as items; discounts have negative prices
- Keep item names as printed, without prices or codes

Receipt text:
` + ocrText + `

Reply ONLY with JSON: {"store_name": "Store", "items": [{"name": "item", "price": 1.23, "quantity": 1}], "total": 1.23}`
}
