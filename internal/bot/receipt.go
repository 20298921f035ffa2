package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/money"
	"github.com/Veraticus/expensesbot/internal/session"
)

// lowConfidence is the score under which the user is asked to double-check.
const lowConfidence = 0.5

// HandlePhoto processes a receipt photo. Photos are only accepted while the
// user is in the receipt upload flow; any other photo is discarded.
func (r *Router) HandlePhoto(ctx context.Context, photo Photo) Reply {
	conv, ok := r.deps.Conversations.Get(ctx, photo.UserID)
	if !ok || conv.State() != session.WaitingReceiptUpload {
		r.logger.Debug("discarding unsolicited photo", "user_id", photo.UserID)
		return Reply{Text: msgReceiptUnasked, Menu: true}
	}
	if r.deps.OCR == nil || r.deps.Interpreter == nil {
		r.deps.Conversations.Clear(ctx, photo.UserID)
		return Reply{Text: "Receipt scanning is not available. Type the amount instead, e.g. \"20 coffee\"."}
	}

	text, err := r.deps.OCR.ExtractText(ctx, photo.Image)
	if err != nil {
		r.logger.Warn("OCR failed", "user_id", photo.UserID, "error", err)
		return Reply{Text: msgReceiptOCRFailed}
	}
	if strings.TrimSpace(text) == "" {
		return Reply{Text: msgReceiptNoText}
	}

	parsed := r.deps.Interpreter.Interpret(ctx, text)
	if len(parsed.Items) == 0 {
		return Reply{Text: msgReceiptNoItems}
	}

	expense := r.receiptExpense(ctx, photo.UserID, parsed)
	if err := r.deps.Store.SaveExpense(ctx, expense); err != nil {
		r.logger.Error("Failed to save receipt", "user_id", photo.UserID, "error", err)
		return Reply{Text: msgSaveFailed}
	}
	r.deps.Conversations.Clear(ctx, photo.UserID)
	r.storePhoto(ctx, photo, expense.ID)

	r.logger.Info("Receipt saved",
		"user_id", photo.UserID,
		"store", expense.StoreName,
		"items", len(expense.Items),
		"total", expense.TotalAmount,
		"confidence", expense.OCRConfidence)

	return Reply{Text: receiptSummary(expense) + r.budgetAlerts(ctx, photo.UserID, expense.Currency)}
}

// receiptExpense builds the expense for a parsed receipt, categorizing all
// items in one call.
func (r *Router) receiptExpense(ctx context.Context, userID string, parsed model.ParsedReceipt) *model.Expense {
	labels := make([]string, len(parsed.Items))
	for i, item := range parsed.Items {
		labels[i] = item.Name
	}
	categories := r.deps.Categorizer.Categorize(ctx, userID, labels)

	total := parsed.TotalAmount
	if total <= 0 {
		total = parsed.ItemSum()
	}

	expense := &model.Expense{
		UserID:        userID,
		PurchaseDate:  r.today(ctx, userID),
		StoreName:     parsed.StoreName,
		Currency:      r.currency(ctx, userID),
		Source:        model.SourceReceipt,
		TotalAmount:   total,
		OCRConfidence: parsed.Confidence,
		Items:         make([]model.Item, 0, len(parsed.Items)),
	}
	for i, item := range parsed.Items {
		category := model.CategoryOther
		if i < len(categories) {
			category = categories[i].Category
		}
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		expense.Items = append(expense.Items, model.Item{
			Name:       item.Name,
			Category:   category,
			Quantity:   quantity,
			UnitPrice:  int64(float64(item.Amount)/quantity + 0.5),
			TotalPrice: item.Amount,
		})
	}
	return expense
}

// storePhoto keeps the image for the retention period. Failures are logged
// only: the expense is already saved.
func (r *Router) storePhoto(ctx context.Context, photo Photo, expenseID string) {
	if r.deps.Files == nil {
		return
	}
	name := photo.FileID
	if name == "" {
		name = expenseID
	}
	path, err := r.deps.Files.Save(photo.UserID, name+".jpg", photo.Image)
	if err != nil {
		r.logger.Warn("Failed to store receipt image", "user_id", photo.UserID, "error", err)
		return
	}

	now := r.cfg.Now()
	record := &model.ReceiptPhoto{
		ExpenseID:   expenseID,
		FilePath:    path,
		FileID:      photo.FileID,
		FileSize:    int64(len(photo.Image)),
		UploadedAt:  now,
		DeleteAfter: now.Add(r.cfg.ReceiptRetention),
	}
	if err := r.deps.Store.SaveReceiptPhoto(ctx, record); err != nil {
		r.logger.Warn("Failed to record receipt image", "user_id", photo.UserID, "path", path, "error", err)
	}
}

func receiptSummary(expense *model.Expense) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Receipt saved: %s\n", expense.StoreName)
	for _, item := range expense.Items {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", item.Name, money.ToMajor(item.TotalPrice), item.Category)
	}
	fmt.Fprintf(&b, "Total: %s", money.Format(expense.TotalAmount, expense.Currency))
	if expense.OCRConfidence < lowConfidence {
		b.WriteString(msgReceiptLowConf)
	}
	return b.String()
}
