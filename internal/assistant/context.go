package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/expensesbot/internal/analytics"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/money"
	"github.com/Veraticus/expensesbot/internal/service"
)

// Digest limits.
const (
	recentDays        = 30
	topCategories     = 5
	trendMonths       = 6
	recentItemLimit   = 50
	repeatItemLimit   = 10
	priceHistoryYears = 1
)

// NoDataMessage is the digest for users without any expenses.
const NoDataMessage = "No expense records found. Start tracking by sending receipt photos or typing amounts."

// ContextStore is the read side the digest is built from.
type ContextStore interface {
	service.AnalyticsStore
	RecentItems(ctx context.Context, userID string, limit int) ([]model.Item, error)
}

// ContextBuilder renders a bounded plain-text digest of a user's spending.
type ContextBuilder struct {
	store    ContextStore
	now      func() time.Time
	currency string
}

// NewContextBuilder creates a builder that formats amounts in currency.
func NewContextBuilder(store ContextStore, currency string) *ContextBuilder {
	if currency == "" {
		currency = "EUR"
	}
	return &ContextBuilder{store: store, now: time.Now, currency: currency}
}

// Build returns the digest for userID, or NoDataMessage when the user has
// no expenses at all.
func (b *ContextBuilder) Build(ctx context.Context, userID string) (string, error) {
	now := b.now().UTC()

	items, err := b.store.RecentItems(ctx, userID, recentItemLimit)
	if err != nil {
		return "", fmt.Errorf("failed to load recent items: %w", err)
	}
	if len(items) == 0 {
		return NoDataMessage, nil
	}

	recent := service.LastDays(now, recentDays)
	total, count, err := b.store.PeriodTotal(ctx, userID, recent)
	if err != nil {
		return "", fmt.Errorf("failed to total recent spend: %w", err)
	}
	categories, err := b.store.CategoryTotals(ctx, userID, recent)
	if err != nil {
		return "", fmt.Errorf("failed to total categories: %w", err)
	}
	firstMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(trendMonths - 1), 0)
	months, err := b.store.MonthlyTotals(ctx, userID, firstMonth)
	if err != nil {
		return "", fmt.Errorf("failed to total months: %w", err)
	}
	points, err := b.store.PriceHistory(ctx, userID, now.AddDate(-priceHistoryYears, 0, 0))
	if err != nil {
		return "", fmt.Errorf("failed to load price history: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("USER EXPENSE CONTEXT:\n\n")

	sb.WriteString("Recent Activity (Last 30 Days):\n")
	fmt.Fprintf(&sb, "- Total spent: %s\n", b.format(total))
	fmt.Fprintf(&sb, "- Number of transactions: %d\n\n", count)

	sb.WriteString("Category Breakdown:\n")
	for i, c := range categories {
		if i == topCategories {
			break
		}
		pct := 0
		if total > 0 {
			pct = int(c.Total * 100 / total)
		}
		fmt.Fprintf(&sb, "- %s: %s (%d%%, %d items)\n", c.Category, b.format(c.Total), pct, c.ItemCount)
	}
	sb.WriteString("\n")

	sb.WriteString("Monthly Trends (Last 6 Months):\n")
	for _, m := range months {
		fmt.Fprintf(&sb, "- %s: %s\n", m.Month, b.format(m.Total))
	}
	sb.WriteString("\n")

	sb.WriteString("Recent Items:\n")
	for _, item := range items {
		qty := ""
		if item.Quantity != 1 {
			qty = fmt.Sprintf(" x%g", item.Quantity)
		}
		fmt.Fprintf(&sb, "- %s %s%s: %s [%s]\n",
			item.PurchaseDate.Format(model.DateLayout), item.Name, qty, b.format(item.TotalPrice), item.Category)
	}

	if repeats := analytics.RepeatPurchases(points, repeatItemLimit); len(repeats) > 0 {
		sb.WriteString("\nRepeat Purchases (price history):\n")
		for _, r := range repeats {
			prices := make([]string, 0, len(r.Prices))
			for _, p := range r.Prices {
				prices = append(prices, fmt.Sprintf("%s on %s", money.ToMajor(p.UnitPrice), p.PurchaseDate.Format(model.DateLayout)))
			}
			fmt.Fprintf(&sb, "- %s: %s (change %+.1f%%)\n", r.Name, strings.Join(prices, ", "), r.PercentChange)
		}
	}

	return sb.String(), nil
}

func (b *ContextBuilder) format(minor int64) string {
	return money.Format(minor, b.currency)
}
