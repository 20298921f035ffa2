package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/expensesbot/internal/cli"
	"github.com/Veraticus/expensesbot/internal/ofx"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import expenses from OFX/QFX statements",
		Long: `Import debits from OFX or QFX (Quicken) files exported from your bank.

Every debit becomes a single-item expense. Files can be imported again
safely: transactions already imported are skipped.

Examples:
  expensesbot import-ofx --user 123456 ~/Downloads/chase_jan_2024.qfx
  expensesbot import-ofx --user 123456 ~/Downloads/Chase/*.qfx ~/Downloads/Ally/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().String("user", "", "user ID the expenses belong to (required)")
	cmd.Flags().BoolP("dry-run", "d", false, "parse and summarize without saving")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	files, err := expandPatterns(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to import")
	}

	ctx := cmd.Context()
	parser := ofx.NewParser(slog.Default())

	var entries []ofx.Entry
	for _, path := range files {
		parsed, err := parseFile(ctx, parser, path)
		if err != nil {
			slog.Error("Failed to parse OFX file", "file", path, "error", err)
			continue
		}
		slog.Info("Processed file", "file", filepath.Base(path), "transactions", len(parsed))
		entries = append(entries, parsed...)
	}
	if len(entries) == 0 {
		slog.Warn("No transactions found in any file")
		return nil
	}

	if dryRun {
		debits := 0
		for _, e := range entries {
			if e.IsDebit() {
				debits++
			}
		}
		cmd.Println(cli.FormatInfo(fmt.Sprintf("Dry run: %d transactions, %d debits would be imported", len(entries), debits)))
		return nil
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(entries), "Importing")
	summary, err := ofx.NewImporter(a.store, a.cfg.DefaultCurrency, a.logger).
		Import(ctx, userID, entries, func() { cli.Step(bar) })
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("import failed after %d expenses: %w", summary.Imported, err)
	}

	cmd.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d expenses", summary.Imported)))
	if summary.Duplicates > 0 {
		cmd.Println(cli.FormatInfo(fmt.Sprintf("Skipped %d already imported", summary.Duplicates)))
	}
	if summary.Credits > 0 {
		cmd.Println(cli.FormatInfo(fmt.Sprintf("Skipped %d credits", summary.Credits)))
	}
	return nil
}

// expandPatterns resolves globs. A pattern with no match is kept when it
// names an existing file.
func expandPatterns(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && !info.IsDir() {
				files = append(files, m)
			}
		}
	}
	return files, nil
}

func parseFile(ctx context.Context, parser *ofx.Parser, path string) ([]ofx.Entry, error) {
	f, err := os.Open(path) //nolint:gosec // user-supplied statement path
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return parser.Parse(ctx, f)
}
