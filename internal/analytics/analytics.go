// Package analytics computes monthly spending reports, price inflation per
// category and repeat-purchase price histories.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/money"
	"github.com/Veraticus/expensesbot/internal/service"
)

const (
	monthLayout     = "2006-01"
	topItemsInStats = 5
)

// Service answers aggregate spending questions.
type Service struct {
	store  service.AnalyticsStore
	logger *slog.Logger
}

// New creates an analytics service.
func New(store service.AnalyticsStore, logger *slog.Logger) *Service {
	return &Service{store: store, logger: common.OrDefault(logger)}
}

// MonthlyStats summarizes the calendar month containing month.
func (s *Service) MonthlyStats(ctx context.Context, userID string, month time.Time) (*model.MonthlyStats, error) {
	r := service.MonthRange(month)

	total, count, err := s.store.PeriodTotal(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("failed to total month: %w", err)
	}
	categories, err := s.store.CategoryTotals(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("failed to total categories: %w", err)
	}
	items, err := s.store.TopItems(ctx, userID, r, topItemsInStats)
	if err != nil {
		return nil, fmt.Errorf("failed to rank items: %w", err)
	}
	prevTotal, _, err := s.store.PeriodTotal(ctx, userID, service.MonthRange(r.Start.AddDate(0, -1, 0)))
	if err != nil {
		return nil, fmt.Errorf("failed to total previous month: %w", err)
	}

	stats := &model.MonthlyStats{
		Month:             r.Start.Format(monthLayout),
		TotalSpent:        total,
		ExpenseCount:      count,
		TopItems:          items,
		CategoryBreakdown: make([]model.CategoryStat, 0, len(categories)),
	}
	for _, c := range categories {
		stats.CategoryBreakdown = append(stats.CategoryBreakdown, model.CategoryStat{
			Name:       c.Category,
			Amount:     c.Total,
			ItemCount:  c.ItemCount,
			Percentage: percentOf(c.Total, total),
		})
	}
	if prevTotal > 0 {
		trend := int(math.Round(float64(total-prevTotal) / float64(prevTotal) * 100))
		stats.PreviousMonthTotal = &prevTotal
		stats.TrendPercentage = &trend
	}
	return stats, nil
}

// percentOf returns part as a rounded percentage of whole.
func percentOf(part, whole int64) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// CategoryInflation compares, per category, the average unit price in the
// recent half of the last days days with the older half. Results are
// sorted by the size of the change, largest first.
func (s *Service) CategoryInflation(ctx context.Context, userID string, days int, now time.Time) ([]model.CategoryInflation, error) {
	if days <= 0 {
		days = 30
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := today.AddDate(0, 0, -days)
	split := today.AddDate(0, 0, -days/2)

	points, err := s.store.PriceHistory(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}

	type sums struct {
		recent, older           int64
		recentCount, olderCount int
	}
	byCategory := make(map[string]*sums)
	var order []string
	for _, p := range points {
		acc, ok := byCategory[p.Category]
		if !ok {
			acc = &sums{}
			byCategory[p.Category] = acc
			order = append(order, p.Category)
		}
		if p.PurchaseDate.Before(split) {
			acc.older += p.UnitPrice
			acc.olderCount++
		} else {
			acc.recent += p.UnitPrice
			acc.recentCount++
		}
	}

	out := make([]model.CategoryInflation, 0, len(order))
	for _, name := range order {
		acc := byCategory[name]
		change := 0
		if acc.olderCount > 0 && acc.older > 0 {
			olderAvg := float64(acc.older) / float64(acc.olderCount)
			var recentAvg float64
			if acc.recentCount > 0 {
				recentAvg = float64(acc.recent) / float64(acc.recentCount)
			}
			change = int(math.Round((recentAvg - olderAvg) / olderAvg * 100))
		}
		out = append(out, model.CategoryInflation{CategoryName: name, PercentChange: change, DaysAnalyzed: days})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return abs(out[i].PercentChange) > abs(out[j].PercentChange)
	})
	return out, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// RepeatPurchases groups price points by normalized name and keeps items
// observed at least twice. Points must be ordered oldest first. The result
// is ordered by observation count, then by the size of the price change,
// and holds at most limit entries.
func RepeatPurchases(points []model.PricePoint, limit int) []model.RepeatPurchase {
	groups := make(map[string][]model.PricePoint)
	var order []string
	for _, p := range points {
		if _, ok := groups[p.NormalizedName]; !ok {
			order = append(order, p.NormalizedName)
		}
		groups[p.NormalizedName] = append(groups[p.NormalizedName], p)
	}

	var out []model.RepeatPurchase
	for _, name := range order {
		prices := groups[name]
		if len(prices) < 2 {
			continue
		}
		first, last := prices[0].UnitPrice, prices[len(prices)-1].UnitPrice
		var change float64
		if first > 0 {
			change = math.Round(float64(last-first)/float64(first)*1000) / 10
		}
		out = append(out, model.RepeatPurchase{Name: name, Prices: prices, PercentChange: change})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Prices) != len(out[j].Prices) {
			return len(out[i].Prices) > len(out[j].Prices)
		}
		return math.Abs(out[i].PercentChange) > math.Abs(out[j].PercentChange)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ReportText renders a plain-text monthly report. inflation may be nil.
func ReportText(stats *model.MonthlyStats, inflation []model.CategoryInflation, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Monthly Report: %s\n", stats.Month)
	fmt.Fprintf(&b, "Total Spent: %s\n", money.Format(stats.TotalSpent, currency))
	fmt.Fprintf(&b, "Transactions: %d\n\n", stats.ExpenseCount)

	if stats.PreviousMonthTotal != nil && stats.TrendPercentage != nil {
		trend := "→"
		switch {
		case *stats.TrendPercentage > 0:
			trend = "↑"
		case *stats.TrendPercentage < 0:
			trend = "↓"
		}
		fmt.Fprintf(&b, "vs Previous Month: %s %d%%\n\n", trend, abs(*stats.TrendPercentage))
	}

	b.WriteString("Category Breakdown:\n")
	if len(stats.CategoryBreakdown) == 0 {
		b.WriteString("- No expenses yet\n")
	}
	for _, c := range stats.CategoryBreakdown {
		fmt.Fprintf(&b, "- %s: %s (%d%%)\n", c.Name, money.Format(c.Amount, currency), c.Percentage)
	}

	if len(stats.TopItems) > 0 {
		b.WriteString("\nTop Items:\n")
		for _, item := range stats.TopItems {
			fmt.Fprintf(&b, "- %s: %s (%dx)\n", item.Name, money.Format(item.Amount, currency), item.Count)
		}
	}

	var moved []model.CategoryInflation
	for _, inf := range inflation {
		if inf.PercentChange != 0 {
			moved = append(moved, inf)
		}
	}
	if len(moved) > 0 {
		fmt.Fprintf(&b, "\nPrice Changes (last %d days):\n", moved[0].DaysAnalyzed)
		for _, inf := range moved {
			fmt.Fprintf(&b, "- %s: %+d%%\n", inf.CategoryName, inf.PercentChange)
		}
	}

	return b.String()
}
