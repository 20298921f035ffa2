package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/expensesbot/internal/cli"
	"github.com/Veraticus/expensesbot/internal/export"
	"github.com/Veraticus/expensesbot/internal/service"
	"github.com/Veraticus/expensesbot/internal/validation"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export expenses to CSV, JSON, PDF or Google Sheets",
		Long: `Export a user's expenses.

Examples:
  # Everything as CSV into the current directory
  expensesbot export --user 123456

  # March as a PDF report
  expensesbot export --user 123456 --format pdf --from 2024-03-01 --to 2024-03-31

  # Publish to Google Sheets (requires GOOGLE_SHEETS_* credentials)
  expensesbot export --user 123456 --format sheets`,
		RunE: runExport,
	}

	cmd.Flags().StringP("format", "f", "csv", "export format (csv, json, pdf, sheets)")
	cmd.Flags().String("user", "", "user ID to export (required)")
	cmd.Flags().String("from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last day to include (YYYY-MM-DD)")
	cmd.Flags().StringP("output", "o", ".", "directory or file to write to")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	formatFlag, _ := cmd.Flags().GetString("format")
	userID, _ := cmd.Flags().GetString("user")
	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")
	output, _ := cmd.Flags().GetString("output")

	format, err := export.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	from, to, err := validation.DateRange(fromFlag, toFlag)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.exporter(ctx).Export(ctx, export.Request{
		UserID: userID,
		Format: format,
		Range:  service.DateRange{Start: from, End: to},
	})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if len(result.Data) == 0 {
		cmd.Println(cli.FormatSuccess(result.Message))
		return nil
	}

	path := exportPath(output, result.FileName)
	if err := os.WriteFile(path, result.Data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	cmd.Println(cli.FormatSuccess(fmt.Sprintf("%s (%d bytes) written to %s", result.Message, len(result.Data), path)))
	return nil
}

// exportPath places name inside output when output is a directory.
func exportPath(output, name string) string {
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, name)
	}
	return output
}
