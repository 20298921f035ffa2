package cli

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/expensesbot/internal/model"
)

func TestPrintReport(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	prev := int64(10000)
	trend := 25
	stats := &model.MonthlyStats{
		Month:              "2024-03",
		TotalSpent:         12500,
		ExpenseCount:       4,
		PreviousMonthTotal: &prev,
		TrendPercentage:    &trend,
		CategoryBreakdown: []model.CategoryStat{
			{Name: "Groceries", Amount: 10000, Percentage: 80},
			{Name: "Restaurants", Amount: 2500, Percentage: 20},
		},
		TopItems: []model.ItemStat{{Name: "milk", Amount: 600, Count: 3}},
	}
	inflation := []model.CategoryInflation{
		{CategoryName: "Groceries", PercentChange: -4, DaysAnalyzed: 30},
		{CategoryName: "Bills", PercentChange: 0, DaysAnalyzed: 30},
	}

	var out bytes.Buffer
	PrintReport(&out, stats, inflation, "EUR")
	got := out.String()

	assert.Contains(t, got, "Monthly Report: 2024-03")
	assert.Contains(t, got, "125.00 EUR")
	assert.Contains(t, got, "↑ 25%")
	assert.Contains(t, got, "Groceries")
	assert.Contains(t, got, "████████████████░░░░  80%")
	assert.Contains(t, got, "(3x)")
	assert.Contains(t, got, "Price Changes (last 30 days)")
	assert.Contains(t, got, "↓ 4%")
	assert.NotContains(t, got, "Bills")
}

func TestPrintReport_Empty(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var out bytes.Buffer
	PrintReport(&out, &model.MonthlyStats{Month: "2024-03"}, nil, "EUR")

	assert.Contains(t, out.String(), "no expenses yet")
	assert.NotContains(t, out.String(), "vs Previous")
	assert.NotContains(t, out.String(), "Top Items")
}

func TestBar(t *testing.T) {
	tests := []struct {
		pct  int
		want int
	}{
		{pct: -5, want: 0},
		{pct: 0, want: 0},
		{pct: 52, want: 10},
		{pct: 100, want: 20},
		{pct: 180, want: 20},
	}
	for _, tt := range tests {
		got := bar(tt.pct)
		assert.Equal(t, tt.want, bytes.Count([]byte(got), []byte("█")))
		assert.Equal(t, 20, len([]rune(got)))
	}
}
