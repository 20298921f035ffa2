package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/expensesbot/internal/analytics"
	"github.com/Veraticus/expensesbot/internal/cli"
	"github.com/Veraticus/expensesbot/internal/money"
)

const monthLayout = "2006-01"

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a monthly spending report",
		Long: `Print a user's spending for one month by category, with the change in
average item price per category over the last --days days.`,
		RunE: runReport,
	}

	cmd.Flags().String("user", "", "user ID to report on (required)")
	cmd.Flags().String("month", "", "month to report (YYYY-MM, default: current month)")
	cmd.Flags().String("currency", "", "currency to display (default: DEFAULT_CURRENCY)")
	cmd.Flags().Int("days", 30, "window for price changes")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetString("user")
	monthFlag, _ := cmd.Flags().GetString("month")
	currencyFlag, _ := cmd.Flags().GetString("currency")
	days, _ := cmd.Flags().GetInt("days")

	now := time.Now()
	month := now
	if monthFlag != "" {
		parsed, err := time.Parse(monthLayout, monthFlag)
		if err != nil {
			return fmt.Errorf("invalid month %q (want YYYY-MM)", monthFlag)
		}
		month = parsed
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	currency := a.cfg.DefaultCurrency
	if currencyFlag != "" {
		code, ok := money.NormalizeCurrency(currencyFlag)
		if !ok {
			return fmt.Errorf("invalid currency %q", currencyFlag)
		}
		currency = code
	}

	svc := analytics.New(a.store, a.logger)
	stats, err := svc.MonthlyStats(ctx, userID, month)
	if err != nil {
		return err
	}
	inflation, err := svc.CategoryInflation(ctx, userID, days, now)
	if err != nil {
		return err
	}

	cli.PrintReport(cmd.OutOrStdout(), stats, inflation, currency)
	return nil
}
