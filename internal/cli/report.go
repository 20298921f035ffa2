package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/money"
)

var (
	reportHeader = color.New(color.BgGreen, color.FgBlack)
	reportLabel  = color.New(color.FgCyan)
	reportAmount = color.New(color.FgYellow)
	reportUp     = color.New(color.FgRed)
	reportDown   = color.New(color.FgGreen)
	reportMuted  = color.New(color.FgHiBlack)
)

// PrintReport writes a colored monthly report for the terminal.
func PrintReport(w io.Writer, stats *model.MonthlyStats, inflation []model.CategoryInflation, currency string) {
	reportHeader.Fprintf(w, " %s Monthly Report: %s ", ChartIcon, stats.Month)
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	reportLabel.Fprintf(w, "%-14s", "Total Spent")
	reportAmount.Fprintln(w, money.Format(stats.TotalSpent, currency))
	reportLabel.Fprintf(w, "%-14s", "Transactions")
	fmt.Fprintln(w, stats.ExpenseCount)
	if stats.TrendPercentage != nil {
		reportLabel.Fprintf(w, "%-14s", "vs Previous")
		printChange(w, *stats.TrendPercentage)
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	reportHeader.Fprint(w, " Categories ")
	fmt.Fprintln(w)
	if len(stats.CategoryBreakdown) == 0 {
		reportMuted.Fprintln(w, "  no expenses yet")
	}
	for _, c := range stats.CategoryBreakdown {
		fmt.Fprintf(w, "  %-16s ", c.Name)
		reportAmount.Fprintf(w, "%16s", money.Format(c.Amount, currency))
		fmt.Fprintf(w, " %s %3d%%\n", bar(c.Percentage), c.Percentage)
	}

	if len(stats.TopItems) > 0 {
		fmt.Fprintln(w)
		reportHeader.Fprint(w, " Top Items ")
		fmt.Fprintln(w)
		for _, item := range stats.TopItems {
			fmt.Fprintf(w, "  %-24s ", item.Name)
			reportAmount.Fprintf(w, "%16s", money.Format(item.Amount, currency))
			reportMuted.Fprintf(w, " (%dx)\n", item.Count)
		}
	}

	printed := false
	for _, inf := range inflation {
		if inf.PercentChange == 0 {
			continue
		}
		if !printed {
			fmt.Fprintln(w)
			reportHeader.Fprintf(w, " Price Changes (last %d days) ", inf.DaysAnalyzed)
			fmt.Fprintln(w)
			printed = true
		}
		fmt.Fprintf(w, "  %-16s ", inf.CategoryName)
		printChange(w, inf.PercentChange)
		fmt.Fprintln(w)
	}
}

func printChange(w io.Writer, pct int) {
	switch {
	case pct > 0:
		reportUp.Fprintf(w, "↑ %d%%", pct)
	case pct < 0:
		reportDown.Fprintf(w, "↓ %d%%", -pct)
	default:
		reportMuted.Fprint(w, "→ 0%")
	}
}

// bar draws a 20-cell share bar for a percentage.
func bar(pct int) string {
	filled := min(max(pct/5, 0), 20)
	return strings.Repeat("█", filled) + strings.Repeat("░", 20-filled)
}
